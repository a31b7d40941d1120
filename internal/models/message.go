package models

import "time"

// MessageType enumerates the supported message kinds.
type MessageType string

const (
	MessageText        MessageType = "text"
	MessageEmoji       MessageType = "emoji"
	MessageSharedVideo MessageType = "shared_video"
	MessageSystem      MessageType = "system"
)

// MessageStatus tracks the lifecycle of an optimistic send.
type MessageStatus string

const (
	// StatusPending marks a provisional entry awaiting server confirmation.
	StatusPending MessageStatus = "pending"
	// StatusSent marks a server-confirmed message.
	StatusSent MessageStatus = "sent"
	// StatusFailed marks a provisional entry whose persistence request failed.
	// Failed entries stay in the sequence so the UI can offer retry/discard.
	StatusFailed MessageStatus = "failed"
)

// DeletedPlaceholder replaces the content of a message deleted for everyone.
const DeletedPlaceholder = "This message was deleted"

// Reaction holds one emoji and the set of users who reacted with it.
type Reaction struct {
	Emoji   string   `json:"emoji"`
	UserIDs []string `json:"user_ids"`
}

// ReplyRef is the snapshot of a replied-to message carried on the reply.
type ReplyRef struct {
	MessageID  string `json:"message_id"`
	Content    string `json:"content"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name,omitempty"`
}

// Message is one entry in a conversation's sequence. ID is server-assigned;
// a provisional entry carries a temporary ID and a ClientKey that correlates
// it with the confirmed message (and its live-push echo).
type Message struct {
	ID             string        `json:"id"`
	ClientKey      string        `json:"client_key,omitempty"`
	ConversationID string        `json:"conversation_id"`
	SenderID       string        `json:"sender_id"`
	SenderName     string        `json:"sender_name,omitempty"`
	Content        string        `json:"content"`
	Type           MessageType   `json:"type"`
	ReplyTo        *ReplyRef     `json:"reply_to,omitempty"`
	SharedVideoID  string        `json:"shared_video_id,omitempty"`
	Reactions      []Reaction    `json:"reactions,omitempty"`
	Read           bool          `json:"read"`
	Deleted        bool          `json:"deleted"`
	Status         MessageStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
}
