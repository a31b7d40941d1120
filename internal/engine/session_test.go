package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-sync/internal/api"
	"chat-sync/internal/mocks"
	"chat-sync/internal/models"
	"chat-sync/internal/store"
)

func newTestSession(st *store.Store) (*Session, *mocks.ChatAPIMock, *mocks.ChannelMock) {
	apiMock := new(mocks.ChatAPIMock)
	channelMock := new(mocks.ChannelMock)
	return NewSession(st, apiMock, channelMock), apiMock, channelMock
}

func TestSessionOpenConversation(t *testing.T) {
	st := newSeededStore("me", "c1")
	session, apiMock, channelMock := newTestSession(st)

	channelMock.On("JoinConversation", "c1").Return(nil).Once()
	apiMock.On("FetchMessages", mock.Anything, "c1", 1).Return(api.MessagePage{
		Messages: []models.Message{{ID: "m1", SenderID: "u2", Content: "hi"}},
		Page:     1,
		HasMore:  false,
	}, nil).Once()

	require.NoError(t, session.OpenConversation(context.Background(), "c1"))

	assert.Equal(t, "c1", st.ActiveConversation())
	assert.Len(t, st.Messages("c1"), 1)
	apiMock.AssertExpectations(t)
	channelMock.AssertExpectations(t)
}

func TestSessionOpenUnknownConversation(t *testing.T) {
	st := newSeededStore("me", "c1")
	session, apiMock, channelMock := newTestSession(st)

	err := session.OpenConversation(context.Background(), "nope")
	require.ErrorIs(t, err, store.ErrUnknownConversation)

	channelMock.AssertNotCalled(t, "JoinConversation", mock.Anything)
	apiMock.AssertNotCalled(t, "FetchMessages", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionCloseConversationLeavesRoom(t *testing.T) {
	st := newSeededStore("me", "c1")
	require.NoError(t, st.SetActiveConversation("c1"))
	session, _, channelMock := newTestSession(st)

	channelMock.On("LeaveConversation", "c1").Return(nil).Once()
	require.NoError(t, session.CloseConversation("c1"))

	assert.Equal(t, "", st.ActiveConversation())
	channelMock.AssertExpectations(t)
}

func TestSessionStartDirectChatActivates(t *testing.T) {
	st := store.New("me")
	session, apiMock, _ := newTestSession(st)

	conv := models.Conversation{ID: "c9", Type: models.ConversationDirect}
	apiMock.On("CreateDirectChat", mock.Anything, "u2").Return(conv, nil).Once()

	got, err := session.StartDirectChat(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, "c9", got.ID)
	assert.Equal(t, "c9", st.ActiveConversation())
	assert.True(t, st.HasConversation("c9"))
	apiMock.AssertExpectations(t)
}

func TestSessionStartGroupChat(t *testing.T) {
	st := store.New("me")
	session, apiMock, _ := newTestSession(st)

	conv := models.Conversation{ID: "g1", Type: models.ConversationGroup, Name: "plans"}
	apiMock.On("CreateGroupChat", mock.Anything, "plans", []string{"u2", "u3"}).Return(conv, nil).Once()

	got, err := session.StartGroupChat(context.Background(), "plans", []string{"u2", "u3"})
	require.NoError(t, err)
	assert.Equal(t, models.ConversationGroup, got.Type)
	assert.Equal(t, "g1", st.ActiveConversation())
	apiMock.AssertExpectations(t)
}

func TestSessionReactAppliesReturnedList(t *testing.T) {
	st := newSeededStore("me", "c1")
	require.NoError(t, st.MergeIncoming("c1", models.Message{ID: "m1", SenderID: "u2", Content: "hi"}, store.OriginLivePush))
	session, apiMock, _ := newTestSession(st)

	reactions := []models.Reaction{{Emoji: "❤️", UserIDs: []string{"me"}}}
	apiMock.On("AddReaction", mock.Anything, "m1", "❤️").Return(reactions, nil).Once()

	got, err := session.React(context.Background(), "m1", "❤️")
	require.NoError(t, err)
	assert.Equal(t, reactions, got)
	assert.Equal(t, reactions, st.Messages("c1")[0].Reactions)
	apiMock.AssertExpectations(t)
}

func TestSessionReactStaleMessageDiscarded(t *testing.T) {
	st := newSeededStore("me", "c1")
	session, apiMock, _ := newTestSession(st)

	reactions := []models.Reaction{{Emoji: "❤️", UserIDs: []string{"me"}}}
	apiMock.On("AddReaction", mock.Anything, "gone", "❤️").Return(reactions, nil).Once()

	// The message vanished mid-flight; the result is dropped, not an error.
	got, err := session.React(context.Background(), "gone", "❤️")
	require.NoError(t, err)
	assert.Equal(t, reactions, got)
}

func TestSessionDeleteMessageSetsPlaceholder(t *testing.T) {
	st := newSeededStore("me", "c1")
	require.NoError(t, st.MergeIncoming("c1", models.Message{ID: "m1", SenderID: "me", Content: "oops"}, store.OriginSendEcho))
	session, apiMock, _ := newTestSession(st)

	apiMock.On("DeleteMessage", mock.Anything, "c1", "m1").Return(nil).Once()
	require.NoError(t, session.DeleteMessage(context.Background(), "c1", "m1"))

	deleted := st.Messages("c1")[0]
	assert.True(t, deleted.Deleted)
	assert.Equal(t, models.DeletedPlaceholder, deleted.Content)
	apiMock.AssertExpectations(t)
}

func TestSessionReplyFromLoadedMessage(t *testing.T) {
	st := newSeededStore("me", "c1")
	require.NoError(t, st.MergeIncoming("c1", models.Message{
		ID: "m1", SenderID: "u2", SenderName: "Dana", Content: "original",
	}, store.OriginLivePush))
	session, _, _ := newTestSession(st)

	require.NoError(t, session.Reply("c1", "m1"))
	target := st.ReplyTo()
	require.NotNil(t, target)
	assert.Equal(t, "m1", target.MessageID)
	assert.Equal(t, "Dana", target.SenderName)

	require.ErrorIs(t, session.Reply("c1", "missing"), store.ErrUnknownMessage)
}

func TestSessionMarkReadForwardsAndMirrors(t *testing.T) {
	st := newSeededStore("me", "c1")
	require.NoError(t, st.MergeIncoming("c1", models.Message{ID: "m1", SenderID: "u2", Content: "hi"}, store.OriginLivePush))
	session, apiMock, _ := newTestSession(st)

	apiMock.On("MarkAsRead", mock.Anything, "c1", []string{"m1"}).Return(nil).Once()
	require.NoError(t, session.MarkRead(context.Background(), "c1", []string{"m1"}))

	assert.True(t, st.Messages("c1")[0].Read)
	apiMock.AssertExpectations(t)
}
