package engine

import (
	"context"
	"log"

	"chat-sync/internal/models"
	"chat-sync/internal/observability"
	"chat-sync/internal/store"
)

// Ingestor applies live channel events to the store through the same merge
// rules used by the history and send paths. Events referencing unknown ids
// are dropped and reported as recoverable integrity mismatches; nothing here
// is fatal.
type Ingestor struct {
	store    *store.Store
	handlers map[models.EventKind]func(models.Event) error
}

// NewIngestor builds the dispatch table.
func NewIngestor(st *store.Store) *Ingestor {
	in := &Ingestor{store: st}
	in.handlers = map[models.EventKind]func(models.Event) error{
		models.EventNewMessage:      in.onNewMessage,
		models.EventTypingChanged:   in.onTypingChanged,
		models.EventReactionUpdated: in.onReactionUpdated,
		models.EventReadReceipt:     in.onReadReceipt,
		models.EventPresenceChanged: in.onPresenceChanged,
	}
	return in
}

// Run consumes events until the context ends or the channel closes.
func (in *Ingestor) Run(ctx context.Context, events <-chan models.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			in.Ingest(event)
		}
	}
}

// Ingest dispatches one event. Handler failures are logged and counted but
// never propagate; other conversations' state stays intact.
func (in *Ingestor) Ingest(event models.Event) {
	handler, ok := in.handlers[event.Kind()]
	if !ok {
		observability.IncIntegrityMismatch("unknown_event_kind")
		log.Printf("event dropped: no handler for kind %s", event.Kind())
		return
	}
	if err := handler(event); err != nil {
		kind := string(event.Kind())
		observability.IncIntegrityMismatch(kind)
		log.Printf("event dropped (%s): %v", kind, err)
		in.publishMismatch(kind, err)
	}
}

func (in *Ingestor) onNewMessage(event models.Event) error {
	ev := event.(models.NewMessageEvent)
	return in.store.MergeIncoming(ev.ConversationID, ev.Message, store.OriginLivePush)
}

func (in *Ingestor) onTypingChanged(event models.Event) error {
	ev := event.(models.TypingChangedEvent)
	return in.store.SetTyping(ev.ConversationID, ev.UserID, ev.IsTyping)
}

func (in *Ingestor) onReactionUpdated(event models.Event) error {
	ev := event.(models.ReactionUpdatedEvent)
	return in.store.SetReactions(ev.MessageID, ev.Reactions)
}

func (in *Ingestor) onReadReceipt(event models.Event) error {
	ev := event.(models.ReadReceiptEvent)
	return in.store.MarkRead(ev.ConversationID, ev.MessageIDs)
}

func (in *Ingestor) onPresenceChanged(event models.Event) error {
	ev := event.(models.PresenceChangedEvent)
	in.store.SetOnlineUsers(ev.UserIDs)
	return nil
}

func (in *Ingestor) publishMismatch(kind string, err error) {
	_ = observability.PublishEvent(context.Background(), "sync_events.integrity", observability.EventEnvelope{
		EventType: "sync_events",
		EventName: "integrity_mismatch",
		Payload: map[string]interface{}{
			"event_kind": kind,
			"reason":     err.Error(),
		},
	}, nil)
}
