package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-sync/internal/mocks"
	"chat-sync/internal/models"
	"chat-sync/internal/observability"
	"chat-sync/internal/store"
)

type strangeEvent struct{}

func (strangeEvent) Kind() models.EventKind { return "unrecognised" }

func TestIngestorNewMessage(t *testing.T) {
	st := newSeededStore("me", "c1")
	in := NewIngestor(st)

	in.Ingest(models.NewMessageEvent{
		ConversationID: "c1",
		Message:        models.Message{ID: "m1", SenderID: "u2", Content: "hi"},
	})

	seq := st.Messages("c1")
	require.Len(t, seq, 1)
	assert.Equal(t, 1, st.Unread("c1"))
}

func TestIngestorDropsEventForUnknownConversation(t *testing.T) {
	st := newSeededStore("me", "c1")
	in := NewIngestor(st)

	in.Ingest(models.NewMessageEvent{
		ConversationID: "nope",
		Message:        models.Message{ID: "m1", SenderID: "u2", Content: "hi"},
	})

	assert.Empty(t, st.Messages("nope"))
	assert.Equal(t, 0, st.TotalUnread())
}

func TestIngestorTypingChanged(t *testing.T) {
	st := newSeededStore("me", "c1")
	in := NewIngestor(st)

	in.Ingest(models.TypingChangedEvent{ConversationID: "c1", UserID: "u2", IsTyping: true})
	assert.Equal(t, []string{"u2"}, st.TypingUsers("c1"))

	in.Ingest(models.TypingChangedEvent{ConversationID: "c1", UserID: "u2", IsTyping: false})
	assert.Empty(t, st.TypingUsers("c1"))
}

func TestIngestorReactionForUnknownMessageIsDropped(t *testing.T) {
	st := newSeededStore("me", "c1")
	in := NewIngestor(st)

	in.Ingest(models.ReactionUpdatedEvent{
		MessageID: "missing",
		Reactions: []models.Reaction{{Emoji: "🔥", UserIDs: []string{"u2"}}},
	})

	assert.Empty(t, st.Messages("c1"))
}

func TestIngestorPublishesIntegrityMismatch(t *testing.T) {
	pub := new(mocks.PublisherMock)
	pub.On("PublishJSON", mock.Anything, "sync_events.integrity", mock.Anything, mock.Anything).Return(nil).Once()
	observability.SetPublisher(pub)
	defer observability.SetPublisher(nil)

	st := newSeededStore("me", "c1")
	in := NewIngestor(st)

	in.Ingest(models.ReactionUpdatedEvent{MessageID: "missing"})
	pub.AssertExpectations(t)
}

func TestIngestorReadReceipt(t *testing.T) {
	st := newSeededStore("me", "c1")
	require.NoError(t, st.MergeIncoming("c1", models.Message{ID: "m1", SenderID: "me", Content: "hi"}, store.OriginSendEcho))
	in := NewIngestor(st)

	in.Ingest(models.ReadReceiptEvent{ConversationID: "c1", MessageIDs: []string{"m1"}})
	assert.True(t, st.Messages("c1")[0].Read)
}

func TestIngestorPresenceChanged(t *testing.T) {
	st := store.New("me")
	st.SetConversations([]models.Conversation{{
		ID:           "c1",
		Participants: []models.Participant{{ID: "u2"}},
	}})
	in := NewIngestor(st)

	in.Ingest(models.PresenceChangedEvent{UserIDs: []string{"u2"}})
	assert.True(t, st.IsOnline("u2"))

	in.Ingest(models.PresenceChangedEvent{UserIDs: nil})
	assert.False(t, st.IsOnline("u2"))
}

func TestIngestorUnknownKindIsDropped(t *testing.T) {
	st := newSeededStore("me", "c1")
	in := NewIngestor(st)

	// Must not panic, must not touch the store.
	in.Ingest(strangeEvent{})
	assert.Empty(t, st.Messages("c1"))
}

func TestIngestorRunDrainsUntilChannelCloses(t *testing.T) {
	st := newSeededStore("me", "c1")
	in := NewIngestor(st)

	events := make(chan models.Event, 2)
	events <- models.NewMessageEvent{ConversationID: "c1", Message: models.Message{ID: "m1", SenderID: "u2", Content: "a"}}
	events <- models.NewMessageEvent{ConversationID: "c1", Message: models.Message{ID: "m2", SenderID: "u2", Content: "b"}}
	close(events)

	done := make(chan struct{})
	go func() {
		in.Run(context.Background(), events)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ingestor did not stop on channel close")
	}
	assert.Len(t, st.Messages("c1"), 2)
}
