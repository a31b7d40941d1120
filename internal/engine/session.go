package engine

import (
	"context"
	"errors"
	"log"

	"go.opentelemetry.io/otel"

	"chat-sync/internal/api"
	"chat-sync/internal/models"
	"chat-sync/internal/realtime"
	"chat-sync/internal/store"
)

// Session ties the store, the persistence API and the live channel together
// for one signed-in user.
type Session struct {
	store   *store.Store
	api     api.ChatAPI
	channel realtime.Channel

	loader *Loader
	sender *Sender
	typing *TypingNotifier
}

// NewSession wires a session from its collaborators.
func NewSession(st *store.Store, chatAPI api.ChatAPI, channel realtime.Channel) *Session {
	return &Session{
		store:   st,
		api:     chatAPI,
		channel: channel,
		loader:  NewLoader(chatAPI, st),
		sender:  NewSender(chatAPI, st, channel),
		typing:  NewTypingNotifier(channel, 0),
	}
}

func (s *Session) Store() *store.Store       { return s.store }
func (s *Session) Loader() *Loader           { return s.loader }
func (s *Session) Sender() *Sender           { return s.sender }
func (s *Session) Typing() *TypingNotifier   { return s.typing }
func (s *Session) Channel() realtime.Channel { return s.channel }

// OpenConversation activates a conversation: zeroes its unread counter,
// joins its room on the live channel, and loads the first history page.
func (s *Session) OpenConversation(ctx context.Context, conversationID string) error {
	ctx, span := otel.Tracer("chat-sync/engine").Start(ctx, "session.open_conversation")
	defer span.End()

	if err := s.store.SetActiveConversation(conversationID); err != nil {
		return err
	}
	if err := s.channel.JoinConversation(conversationID); err != nil {
		log.Printf("join conversation %s: %v", conversationID, err)
	}
	_, err := s.loader.LoadPage(ctx, conversationID, 1)
	return err
}

// CloseConversation deactivates the conversation and leaves its room.
func (s *Session) CloseConversation(conversationID string) error {
	if s.store.ActiveConversation() == conversationID {
		if err := s.store.SetActiveConversation(""); err != nil {
			return err
		}
	}
	if err := s.channel.LeaveConversation(conversationID); err != nil {
		log.Printf("leave conversation %s: %v", conversationID, err)
	}
	return nil
}

// StartDirectChat creates (or fetches) the direct conversation with a user
// and makes it active.
func (s *Session) StartDirectChat(ctx context.Context, participantID string) (models.Conversation, error) {
	conv, err := s.api.CreateDirectChat(ctx, participantID)
	if err != nil {
		return models.Conversation{}, err
	}
	s.store.UpsertConversation(conv)
	if err := s.store.SetActiveConversation(conv.ID); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// StartGroupChat creates a group conversation and makes it active.
func (s *Session) StartGroupChat(ctx context.Context, name string, participantIDs []string) (models.Conversation, error) {
	conv, err := s.api.CreateGroupChat(ctx, name, participantIDs)
	if err != nil {
		return models.Conversation{}, err
	}
	s.store.UpsertConversation(conv)
	if err := s.store.SetActiveConversation(conv.ID); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// React toggles a reaction through the API and applies the returned reaction
// list. A message that disappeared while the request was in flight is a
// stale race: the result is discarded, not surfaced.
func (s *Session) React(ctx context.Context, messageID, emoji string) ([]models.Reaction, error) {
	reactions, err := s.api.AddReaction(ctx, messageID, emoji)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetReactions(messageID, reactions); err != nil {
		if errors.Is(err, store.ErrUnknownMessage) {
			log.Printf("reaction result discarded: message %s no longer loaded", messageID)
			return reactions, nil
		}
		return nil, err
	}
	return reactions, nil
}

// MarkRead reports messages as read and mirrors the flag locally.
func (s *Session) MarkRead(ctx context.Context, conversationID string, messageIDs []string) error {
	if err := s.api.MarkAsRead(ctx, conversationID, messageIDs); err != nil {
		return err
	}
	if err := s.store.MarkRead(conversationID, messageIDs); err != nil {
		if errors.Is(err, store.ErrUnknownConversation) {
			log.Printf("read receipt discarded: conversation %s no longer loaded", conversationID)
			return nil
		}
		return err
	}
	return nil
}

// DeleteMessage deletes a message for everyone and swaps in the placeholder.
func (s *Session) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	if err := s.api.DeleteMessage(ctx, conversationID, messageID); err != nil {
		return err
	}
	if err := s.store.MarkDeleted(conversationID, messageID); err != nil {
		if errors.Is(err, store.ErrUnknownMessage) {
			log.Printf("delete result discarded: message %s no longer loaded", messageID)
			return nil
		}
		return err
	}
	return nil
}

// Reply sets the reply pointer from a loaded message.
func (s *Session) Reply(conversationID, messageID string) error {
	msg, ok := s.store.Message(messageID)
	if !ok || msg.ConversationID != conversationID {
		return store.ErrUnknownMessage
	}
	s.store.SetReplyTo(models.ReplyTarget{
		ConversationID: conversationID,
		MessageID:      msg.ID,
		Content:        msg.Content,
		SenderID:       msg.SenderID,
		SenderName:     msg.SenderName,
	})
	return nil
}

// Search runs a server-side message search in one conversation.
func (s *Session) Search(ctx context.Context, conversationID, query string) ([]models.Message, error) {
	return s.api.SearchMessages(ctx, conversationID, query)
}

// Close releases the typing timers and the channel connection.
func (s *Session) Close() {
	s.typing.Close()
	if err := s.channel.Close(); err != nil {
		log.Printf("close channel: %v", err)
	}
}
