package engine

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"chat-sync/internal/api"
	"chat-sync/internal/models"
	"chat-sync/internal/realtime"
	"chat-sync/internal/store"
)

// Sender performs optimistic sends: it merges a provisional entry first,
// persists the message, then reconciles the server-confirmed entry against
// the provisional one in place.
type Sender struct {
	api     api.ChatAPI
	store   *store.Store
	channel realtime.Channel
}

// NewSender builds a Sender.
func NewSender(chatAPI api.ChatAPI, st *store.Store, channel realtime.Channel) *Sender {
	return &Sender{api: chatAPI, store: st, channel: channel}
}

// Send validates, merges a provisional entry, and issues the persistence
// request. Empty content (after trimming) is a no-op, not an error. On
// success the provisional entry is replaced in place, the draft and reply
// pointer are cleared, and the typing indicator is stopped. On failure the
// entry is marked failed and kept for retry/discard.
func (s *Sender) Send(ctx context.Context, conversationID, content string, kind models.MessageType) (models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return models.Message{}, nil
	}
	if kind == "" {
		kind = models.MessageText
	}

	ctx, span := otel.Tracer("chat-sync/engine").Start(ctx, "send.message")
	defer span.End()

	clientKey := uuid.NewString()
	provisional := models.Message{
		ID:             "tmp-" + clientKey,
		ClientKey:      clientKey,
		ConversationID: conversationID,
		SenderID:       s.store.SelfID(),
		Content:        content,
		Type:           kind,
		Status:         models.StatusPending,
		CreatedAt:      time.Now(),
	}

	var replyToID string
	if target := s.store.ReplyTo(); target != nil && target.ConversationID == conversationID {
		replyToID = target.MessageID
		provisional.ReplyTo = &models.ReplyRef{
			MessageID:  target.MessageID,
			Content:    target.Content,
			SenderID:   target.SenderID,
			SenderName: target.SenderName,
		}
	}

	if err := s.store.MergeIncoming(conversationID, provisional, store.OriginSendEcho); err != nil {
		return models.Message{}, err
	}

	confirmed, err := s.api.SendMessage(ctx, conversationID, api.SendMessageRequest{
		Content:       content,
		Type:          kind,
		ReplyTo:       replyToID,
		SharedVideoID: provisional.SharedVideoID,
		ClientKey:     clientKey,
	})
	if err != nil {
		if markErr := s.store.MarkSendFailed(conversationID, clientKey); markErr != nil {
			log.Printf("mark send failed: %v", markErr)
		}
		return models.Message{}, err
	}

	// Targeted update, not a second append: the correlation key routes this
	// into the update-in-place branch even if the live echo landed first.
	confirmed.ClientKey = clientKey
	confirmed.Status = models.StatusSent
	if err := s.store.MergeIncoming(conversationID, confirmed, store.OriginSendEcho); err != nil {
		return models.Message{}, err
	}

	s.store.ClearDraft(conversationID)
	s.store.ClearReplyTo()
	if s.channel != nil {
		if err := s.channel.SendTyping(conversationID, false); err != nil {
			log.Printf("stop typing signal: %v", err)
		}
	}
	return confirmed, nil
}
