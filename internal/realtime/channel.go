package realtime

import "chat-sync/internal/models"

// Channel is the real-time collaborator boundary: an inbound event source
// plus the join/leave and typing outbound signals. Connection lifecycle
// beyond a single session is not the sync core's concern.
type Channel interface {
	Events() <-chan models.Event
	JoinConversation(conversationID string) error
	LeaveConversation(conversationID string) error
	SendTyping(conversationID string, isTyping bool) error
	Close() error
}
