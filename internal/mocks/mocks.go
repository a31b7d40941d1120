package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-sync/internal/api"
	"chat-sync/internal/models"
	"chat-sync/internal/realtime"
)

type ChatAPIMock struct {
	mock.Mock
}

func (m *ChatAPIMock) FetchChats(ctx context.Context) ([]models.Conversation, error) {
	args := m.Called(ctx)
	var chats []models.Conversation
	if val := args.Get(0); val != nil {
		chats = val.([]models.Conversation)
	}
	return chats, args.Error(1)
}

func (m *ChatAPIMock) FetchChat(ctx context.Context, conversationID string) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ChatAPIMock) CreateDirectChat(ctx context.Context, participantID string) (models.Conversation, error) {
	args := m.Called(ctx, participantID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ChatAPIMock) CreateGroupChat(ctx context.Context, name string, participantIDs []string) (models.Conversation, error) {
	args := m.Called(ctx, name, participantIDs)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ChatAPIMock) FetchMessages(ctx context.Context, conversationID string, page int) (api.MessagePage, error) {
	args := m.Called(ctx, conversationID, page)
	var pageResp api.MessagePage
	if val := args.Get(0); val != nil {
		pageResp = val.(api.MessagePage)
	}
	return pageResp, args.Error(1)
}

func (m *ChatAPIMock) SendMessage(ctx context.Context, conversationID string, req api.SendMessageRequest) (models.Message, error) {
	args := m.Called(ctx, conversationID, req)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *ChatAPIMock) AddReaction(ctx context.Context, messageID, emoji string) ([]models.Reaction, error) {
	args := m.Called(ctx, messageID, emoji)
	var reactions []models.Reaction
	if val := args.Get(0); val != nil {
		reactions = val.([]models.Reaction)
	}
	return reactions, args.Error(1)
}

func (m *ChatAPIMock) MarkAsRead(ctx context.Context, conversationID string, messageIDs []string) error {
	args := m.Called(ctx, conversationID, messageIDs)
	return args.Error(0)
}

func (m *ChatAPIMock) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	args := m.Called(ctx, conversationID, messageID)
	return args.Error(0)
}

func (m *ChatAPIMock) SearchMessages(ctx context.Context, conversationID, query string) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, query)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

type ChannelMock struct {
	mock.Mock
}

func (m *ChannelMock) Events() <-chan models.Event {
	args := m.Called()
	if val := args.Get(0); val != nil {
		return val.(chan models.Event)
	}
	return nil
}

func (m *ChannelMock) JoinConversation(conversationID string) error {
	args := m.Called(conversationID)
	return args.Error(0)
}

func (m *ChannelMock) LeaveConversation(conversationID string) error {
	args := m.Called(conversationID)
	return args.Error(0)
}

func (m *ChannelMock) SendTyping(conversationID string, isTyping bool) error {
	args := m.Called(conversationID, isTyping)
	return args.Error(0)
}

func (m *ChannelMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ api.ChatAPI = (*ChatAPIMock)(nil)
var _ realtime.Channel = (*ChannelMock)(nil)
