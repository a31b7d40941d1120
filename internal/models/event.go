package models

// EventKind names a live channel event type.
type EventKind string

const (
	EventNewMessage      EventKind = "new_message"
	EventTypingChanged   EventKind = "typing_changed"
	EventReactionUpdated EventKind = "reaction_updated"
	EventReadReceipt     EventKind = "read_receipt"
	EventPresenceChanged EventKind = "presence_changed"
)

// Event is one inbound notification from the real-time channel. The set of
// implementations is closed; unrecognized kinds are rejected at decode time.
type Event interface {
	Kind() EventKind
}

// NewMessageEvent announces a message accepted by the server.
type NewMessageEvent struct {
	ConversationID string  `json:"conversation_id"`
	Message        Message `json:"message"`
}

func (NewMessageEvent) Kind() EventKind { return EventNewMessage }

// TypingChangedEvent flips one user's typing flag in one conversation.
// It is a boolean signal; the emitting side owns the idle expiry.
type TypingChangedEvent struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	IsTyping       bool   `json:"is_typing"`
}

func (TypingChangedEvent) Kind() EventKind { return EventTypingChanged }

// ReactionUpdatedEvent replaces a message's reaction list. Message ids are
// globally unique, so no conversation id is carried.
type ReactionUpdatedEvent struct {
	MessageID string     `json:"message_id"`
	Reactions []Reaction `json:"reactions"`
}

func (ReactionUpdatedEvent) Kind() EventKind { return EventReactionUpdated }

// ReadReceiptEvent marks messages as read by the other side.
type ReadReceiptEvent struct {
	ConversationID string   `json:"conversation_id"`
	MessageIDs     []string `json:"message_ids"`
}

func (ReadReceiptEvent) Kind() EventKind { return EventReadReceipt }

// PresenceChangedEvent carries the full set of currently online users.
type PresenceChangedEvent struct {
	UserIDs []string `json:"user_ids"`
}

func (PresenceChangedEvent) Kind() EventKind { return EventPresenceChanged }
