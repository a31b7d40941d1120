package engine

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"

	"chat-sync/internal/api"
	"chat-sync/internal/models"
	"chat-sync/internal/store"
)

// Loader fetches history pages and conversation lists and feeds them into
// the store.
type Loader struct {
	api   api.ChatAPI
	store *store.Store
}

// NewLoader builds a Loader.
func NewLoader(chatAPI api.ChatAPI, st *store.Store) *Loader {
	return &Loader{api: chatAPI, store: st}
}

// LoadConversations fetches the conversation list and seeds the store,
// including per-conversation unread counters.
func (l *Loader) LoadConversations(ctx context.Context) error {
	ctx, span := otel.Tracer("chat-sync/engine").Start(ctx, "history.load_conversations")
	defer span.End()

	chats, err := l.api.FetchChats(ctx)
	if err != nil {
		return err
	}
	l.store.SetConversations(chats)
	return nil
}

// LoadPage fetches one page of history. Page 1 replaces the conversation's
// sequence; later pages prepend older messages. Responses arriving after the
// conversation disappeared, or for a page the store already covers, are
// stale and discarded without surfacing an error.
func (l *Loader) LoadPage(ctx context.Context, conversationID string, page int) (models.PageCursor, error) {
	if page < 1 {
		page = 1
	}
	if !l.store.HasConversation(conversationID) {
		return models.PageCursor{}, store.ErrUnknownConversation
	}

	ctx, span := otel.Tracer("chat-sync/engine").Start(ctx, "history.load_page")
	defer span.End()

	resp, err := l.api.FetchMessages(ctx, conversationID, page)
	if err != nil {
		return models.PageCursor{}, err
	}
	if resp.Page == 0 {
		resp.Page = page
	}

	// Re-validate after the round trip: the conversation may be gone, or a
	// concurrent load may already have applied this page.
	if !l.store.HasConversation(conversationID) {
		log.Printf("history page discarded: conversation %s no longer loaded", conversationID)
		return models.PageCursor{}, nil
	}
	if resp.Page > 1 {
		if cur, ok := l.store.Cursor(conversationID); ok && cur.Page >= resp.Page {
			log.Printf("history page discarded: page %d already applied for conversation %s", resp.Page, conversationID)
			return cur, nil
		}
	}

	if err := l.store.ApplyHistoryPage(conversationID, resp.Messages, resp.Page, resp.HasMore); err != nil {
		return models.PageCursor{}, err
	}
	return models.PageCursor{Page: resp.Page, HasMore: resp.HasMore}, nil
}
