package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"

	"chat-sync/internal/models"
)

var ErrNotFound = errors.New("resource not found")

// APIError carries the backend's human-readable failure message.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// MessagePage is one page of conversation history.
type MessagePage struct {
	Messages []models.Message `json:"messages"`
	Page     int              `json:"page"`
	HasMore  bool             `json:"has_more"`
}

// SendMessageRequest is the payload for persisting a new message. ClientKey
// correlates the stored message (and its live-push echo) with the provisional
// entry created before the request was issued.
type SendMessageRequest struct {
	Content       string             `json:"content"`
	Type          models.MessageType `json:"type"`
	ReplyTo       string             `json:"reply_to,omitempty"`
	SharedVideoID string             `json:"shared_video_id,omitempty"`
	ClientKey     string             `json:"client_key"`
}

// ChatAPI abstracts the platform's persistence endpoints.
type ChatAPI interface {
	FetchChats(ctx context.Context) ([]models.Conversation, error)
	FetchChat(ctx context.Context, conversationID string) (models.Conversation, error)
	CreateDirectChat(ctx context.Context, participantID string) (models.Conversation, error)
	CreateGroupChat(ctx context.Context, name string, participantIDs []string) (models.Conversation, error)
	FetchMessages(ctx context.Context, conversationID string, page int) (MessagePage, error)
	SendMessage(ctx context.Context, conversationID string, req SendMessageRequest) (models.Message, error)
	AddReaction(ctx context.Context, messageID, emoji string) ([]models.Reaction, error)
	MarkAsRead(ctx context.Context, conversationID string, messageIDs []string) error
	DeleteMessage(ctx context.Context, conversationID, messageID string) error
	SearchMessages(ctx context.Context, conversationID, query string) ([]models.Message, error)
}

// Client is a resty implementation of ChatAPI.
type Client struct {
	http *resty.Client
}

// NewClient builds a ChatAPI client against the given base URL, attaching the
// bearer token to every request.
func NewClient(baseURL, token string) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetHeader("Accept", "application/json")
	return &Client{http: http}
}

type errorBody struct {
	Message string `json:"message"`
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&errorBody{})
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		msg := "request failed"
		if body, ok := resp.Error().(*errorBody); ok && body.Message != "" {
			msg = body.Message
		}
		return &APIError{StatusCode: resp.StatusCode(), Message: msg}
	}
	return nil
}

// FetchChats returns all conversations for the current user, including
// server-side unread counts.
func (c *Client) FetchChats(ctx context.Context) ([]models.Conversation, error) {
	var out struct {
		Chats []models.Conversation `json:"chats"`
	}
	resp, err := c.request(ctx).SetResult(&out).Get("/chats")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

// FetchChat returns a single conversation.
func (c *Client) FetchChat(ctx context.Context, conversationID string) (models.Conversation, error) {
	var out struct {
		Chat models.Conversation `json:"chat"`
	}
	resp, err := c.request(ctx).SetResult(&out).Get("/chats/" + conversationID)
	if err := checkResponse(resp, err); err != nil {
		return models.Conversation{}, err
	}
	return out.Chat, nil
}

// CreateDirectChat creates (or returns) the direct conversation with a user.
func (c *Client) CreateDirectChat(ctx context.Context, participantID string) (models.Conversation, error) {
	var out models.Conversation
	resp, err := c.request(ctx).
		SetBody(map[string]string{"participant_id": participantID}).
		SetResult(&out).
		Post("/chats")
	if err := checkResponse(resp, err); err != nil {
		return models.Conversation{}, err
	}
	return out, nil
}

// CreateGroupChat creates a group conversation.
func (c *Client) CreateGroupChat(ctx context.Context, name string, participantIDs []string) (models.Conversation, error) {
	var out models.Conversation
	resp, err := c.request(ctx).
		SetBody(map[string]interface{}{"name": name, "participants": participantIDs}).
		SetResult(&out).
		Post("/chats/group")
	if err := checkResponse(resp, err); err != nil {
		return models.Conversation{}, err
	}
	return out, nil
}

// FetchMessages returns one page of history for a conversation.
func (c *Client) FetchMessages(ctx context.Context, conversationID string, page int) (MessagePage, error) {
	var out MessagePage
	resp, err := c.request(ctx).
		SetQueryParam("page", fmt.Sprintf("%d", page)).
		SetResult(&out).
		Get("/chats/" + conversationID + "/messages")
	if err := checkResponse(resp, err); err != nil {
		return MessagePage{}, err
	}
	return out, nil
}

// SendMessage persists a message and returns the server-confirmed entry.
func (c *Client) SendMessage(ctx context.Context, conversationID string, req SendMessageRequest) (models.Message, error) {
	var out models.Message
	resp, err := c.request(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/chats/" + conversationID + "/messages")
	if err := checkResponse(resp, err); err != nil {
		return models.Message{}, err
	}
	return out, nil
}

// AddReaction toggles a reaction and returns the message's full reaction list.
func (c *Client) AddReaction(ctx context.Context, messageID, emoji string) ([]models.Reaction, error) {
	var out struct {
		Reactions []models.Reaction `json:"reactions"`
	}
	resp, err := c.request(ctx).
		SetBody(map[string]string{"emoji": emoji}).
		SetResult(&out).
		Post("/messages/" + messageID + "/reactions")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return out.Reactions, nil
}

// MarkAsRead reports the given messages as read.
func (c *Client) MarkAsRead(ctx context.Context, conversationID string, messageIDs []string) error {
	resp, err := c.request(ctx).
		SetBody(map[string]interface{}{"message_ids": messageIDs}).
		Post("/chats/" + conversationID + "/read")
	return checkResponse(resp, err)
}

// DeleteMessage removes a message for everyone.
func (c *Client) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	resp, err := c.request(ctx).
		Delete("/chats/" + conversationID + "/messages/" + messageID)
	return checkResponse(resp, err)
}

// SearchMessages searches a conversation's history.
func (c *Client) SearchMessages(ctx context.Context, conversationID, query string) ([]models.Message, error) {
	var out struct {
		Results []models.Message `json:"results"`
	}
	resp, err := c.request(ctx).
		SetQueryParam("q", query).
		SetResult(&out).
		Get("/chats/" + conversationID + "/search")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return out.Results, nil
}

var _ ChatAPI = (*Client)(nil)
