package models

import "time"

// ConversationType distinguishes direct chats from group chats.
type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

// Participant is a member of a conversation as rendered in the chat list.
type Participant struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Online   bool   `json:"online"`
}

// Conversation represents a direct or group messaging thread.
type Conversation struct {
	ID           string           `json:"id"`
	Type         ConversationType `json:"type"`
	Name         string           `json:"name,omitempty"`
	Avatar       string           `json:"avatar,omitempty"`
	Participants []Participant    `json:"participants"`
	LastMessage  *Message         `json:"last_message,omitempty"`
	UnreadCount  int              `json:"unread_count"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// PageCursor tracks pagination progress for one conversation's history.
type PageCursor struct {
	Page    int  `json:"page"`
	HasMore bool `json:"has_more"`
}

// ReplyTarget is the active reply pointer: the message being replied to plus
// the minimal snapshot the composer needs to render it.
type ReplyTarget struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Content        string `json:"content"`
	SenderID       string `json:"sender_id"`
	SenderName     string `json:"sender_name,omitempty"`
}
