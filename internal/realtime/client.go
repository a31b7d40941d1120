package realtime

import (
	"context"
	"errors"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chat-sync/internal/models"
	"chat-sync/internal/observability"
)

// Client is a websocket implementation of Channel.
type Client struct {
	conn   *websocket.Conn
	connID string

	events chan models.Event

	writeMu sync.Mutex
	closed  bool

	connectedAt time.Time
}

// Dial connects to the platform's push channel. The token rides on the query
// string the same way the browser client attaches it.
func Dial(rawURL, token string) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn:        conn,
		connID:      newConnID(),
		events:      make(chan models.Event, 64),
		connectedAt: time.Now(),
	}
	go c.readLoop()
	return c, nil
}

// Events exposes the inbound event stream. The channel is closed when the
// connection ends.
func (c *Client) Events() <-chan models.Event {
	return c.events
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("channel read error: %v", err)
				c.publishChannelError(err)
			}
			return
		}

		event, err := DecodeEvent(data)
		if err != nil {
			var unknown *ErrUnknownEventKind
			if errors.As(err, &unknown) {
				observability.IncIntegrityMismatch("unknown_event_kind")
			}
			log.Printf("channel event dropped: %v", err)
			continue
		}
		observability.IncChannelEvent(string(event.Kind()))
		c.events <- event
	}
}

type command struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	IsTyping       bool   `json:"is_typing,omitempty"`
}

// JoinConversation subscribes to a conversation's room.
func (c *Client) JoinConversation(conversationID string) error {
	return c.writeCommand(command{Type: "join_conversation", ConversationID: conversationID})
}

// LeaveConversation unsubscribes from a conversation's room.
func (c *Client) LeaveConversation(conversationID string) error {
	return c.writeCommand(command{Type: "leave_conversation", ConversationID: conversationID})
}

// SendTyping signals the local user's typing state. Both on and off signals
// are plain boolean sets on the receiving side; the caller owns the idle
// timer that emits the off signal.
func (c *Client) SendTyping(conversationID string, isTyping bool) error {
	return c.writeCommand(command{Type: "typing", ConversationID: conversationID, IsTyping: isTyping})
}

func (c *Client) writeCommand(cmd command) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return errors.New("channel closed")
	}
	return c.conn.WriteJSON(cmd)
}

// Close tears down the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}

func (c *Client) publishChannelError(err error) {
	payload := map[string]interface{}{
		"channel": map[string]interface{}{
			"event":       "channel_error",
			"conn_id":     c.connID,
			"duration_ms": time.Since(c.connectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
	}
	_ = observability.PublishEvent(context.Background(), "sync_events.channel", observability.EventEnvelope{
		EventType: "sync_events",
		EventName: "channel_error",
		Payload:   payload,
	}, nil)
}

var _ Channel = (*Client)(nil)
