package realtime

import (
	"encoding/json"
	"fmt"

	"chat-sync/internal/models"
)

// ErrUnknownEventKind reports an envelope whose type is outside the closed
// event set. Callers log and drop these rather than ignoring them silently.
type ErrUnknownEventKind struct {
	Type string
}

func (e *ErrUnknownEventKind) Error() string {
	return fmt.Sprintf("unknown event kind %q", e.Type)
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeEvent parses a wire envelope into one of the typed events.
func DecodeEvent(data []byte) (models.Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch models.EventKind(env.Type) {
	case models.EventNewMessage:
		var ev models.NewMessageEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return ev, nil
	case models.EventTypingChanged:
		var ev models.TypingChangedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return ev, nil
	case models.EventReactionUpdated:
		var ev models.ReactionUpdatedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return ev, nil
	case models.EventReadReceipt:
		var ev models.ReadReceiptEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return ev, nil
	case models.EventPresenceChanged:
		var ev models.PresenceChangedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return ev, nil
	default:
		return nil, &ErrUnknownEventKind{Type: env.Type}
	}
}
