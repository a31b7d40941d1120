package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-sync/internal/api"
	"chat-sync/internal/mocks"
	"chat-sync/internal/models"
	"chat-sync/internal/store"
)

func newSeededStore(selfID string, convIDs ...string) *store.Store {
	st := store.New(selfID)
	convs := make([]models.Conversation, 0, len(convIDs))
	for _, id := range convIDs {
		convs = append(convs, models.Conversation{ID: id, Type: models.ConversationDirect})
	}
	st.SetConversations(convs)
	return st
}

func TestSenderSuccessReplacesProvisionalInPlace(t *testing.T) {
	st := newSeededStore("me", "c1")
	st.SaveDraft("c1", "hel")

	apiMock := new(mocks.ChatAPIMock)
	channelMock := new(mocks.ChannelMock)

	apiMock.On("SendMessage", mock.Anything, "c1", mock.MatchedBy(func(req api.SendMessageRequest) bool {
		return req.Content == "hello" && req.Type == models.MessageText && req.ClientKey != ""
	})).Return(models.Message{ID: "m100", ConversationID: "c1", SenderID: "me", Content: "hello"}, nil).Once()
	channelMock.On("SendTyping", "c1", false).Return(nil).Once()

	sender := NewSender(apiMock, st, channelMock)
	msg, err := sender.Send(context.Background(), "c1", "hello", "")
	require.NoError(t, err)
	assert.Equal(t, "m100", msg.ID)
	assert.Equal(t, models.StatusSent, msg.Status)

	// Exactly one entry, the confirmed one, in the provisional's slot.
	seq := st.Messages("c1")
	require.Len(t, seq, 1)
	assert.Equal(t, "m100", seq[0].ID)
	assert.Equal(t, models.StatusSent, seq[0].Status)

	// Own message, so no unread movement; draft is gone.
	assert.Equal(t, 0, st.TotalUnread())
	assert.Equal(t, "", st.Draft("c1"))

	apiMock.AssertExpectations(t)
	channelMock.AssertExpectations(t)
}

func TestSenderFailureMarksEntryFailed(t *testing.T) {
	st := newSeededStore("me", "c1")

	apiMock := new(mocks.ChatAPIMock)
	channelMock := new(mocks.ChannelMock)
	apiMock.On("SendMessage", mock.Anything, "c1", mock.Anything).
		Return(nil, errors.New("boom")).Once()

	sender := NewSender(apiMock, st, channelMock)
	_, err := sender.Send(context.Background(), "c1", "hello", models.MessageText)
	require.Error(t, err)

	seq := st.Messages("c1")
	require.Len(t, seq, 1)
	assert.Equal(t, models.StatusFailed, seq[0].Status)
	assert.Equal(t, "hello", seq[0].Content)

	channelMock.AssertNotCalled(t, "SendTyping", "c1", false)
	apiMock.AssertExpectations(t)
}

func TestSenderBlankContentIsNoop(t *testing.T) {
	st := newSeededStore("me", "c1")

	apiMock := new(mocks.ChatAPIMock)
	channelMock := new(mocks.ChannelMock)

	sender := NewSender(apiMock, st, channelMock)
	msg, err := sender.Send(context.Background(), "c1", "   \n\t", models.MessageText)
	require.NoError(t, err)
	assert.Empty(t, msg.ID)
	assert.Empty(t, st.Messages("c1"))

	apiMock.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestSenderUnknownConversationRejected(t *testing.T) {
	st := newSeededStore("me", "c1")

	apiMock := new(mocks.ChatAPIMock)
	channelMock := new(mocks.ChannelMock)

	sender := NewSender(apiMock, st, channelMock)
	_, err := sender.Send(context.Background(), "nope", "hello", models.MessageText)
	require.ErrorIs(t, err, store.ErrUnknownConversation)

	apiMock.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestSenderAttachesAndClearsReply(t *testing.T) {
	st := newSeededStore("me", "c1")
	require.NoError(t, st.MergeIncoming("c1", models.Message{
		ID: "m1", SenderID: "u2", SenderName: "Dana", Content: "original",
	}, store.OriginLivePush))
	st.SetReplyTo(models.ReplyTarget{
		ConversationID: "c1", MessageID: "m1", Content: "original", SenderID: "u2", SenderName: "Dana",
	})

	apiMock := new(mocks.ChatAPIMock)
	channelMock := new(mocks.ChannelMock)
	apiMock.On("SendMessage", mock.Anything, "c1", mock.MatchedBy(func(req api.SendMessageRequest) bool {
		return req.ReplyTo == "m1"
	})).Return(models.Message{ID: "m2", ConversationID: "c1", SenderID: "me", Content: "answer"}, nil).Once()
	channelMock.On("SendTyping", "c1", false).Return(nil).Once()

	sender := NewSender(apiMock, st, channelMock)
	_, err := sender.Send(context.Background(), "c1", "answer", models.MessageText)
	require.NoError(t, err)

	seq := st.Messages("c1")
	require.Len(t, seq, 2)
	require.NotNil(t, seq[1].ReplyTo)
	assert.Equal(t, "m1", seq[1].ReplyTo.MessageID)

	// The reply pointer is single-use.
	assert.Nil(t, st.ReplyTo())
	apiMock.AssertExpectations(t)
}

func TestSenderIgnoresReplyFromOtherConversation(t *testing.T) {
	st := newSeededStore("me", "c1", "c2")
	st.SetReplyTo(models.ReplyTarget{ConversationID: "c2", MessageID: "m1"})

	apiMock := new(mocks.ChatAPIMock)
	channelMock := new(mocks.ChannelMock)
	apiMock.On("SendMessage", mock.Anything, "c1", mock.MatchedBy(func(req api.SendMessageRequest) bool {
		return req.ReplyTo == ""
	})).Return(models.Message{ID: "m2", ConversationID: "c1", SenderID: "me", Content: "hi"}, nil).Once()
	channelMock.On("SendTyping", "c1", false).Return(nil).Once()

	sender := NewSender(apiMock, st, channelMock)
	_, err := sender.Send(context.Background(), "c1", "hi", models.MessageText)
	require.NoError(t, err)
	apiMock.AssertExpectations(t)
}
