package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"enclave-chat/internal/models"
	"enclave-chat/internal/ratelimit"
	"enclave-chat/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, username, accessKeyHash, role string) (models.User, error) {
	args := m.Called(ctx, username, accessKeyHash, role)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByUsername(ctx context.Context, username string) (models.User, error) {
	args := m.Called(ctx, username)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByID(ctx context.Context, id string) (models.User, error) {
	args := m.Called(ctx, id)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) ListAdminViews(ctx context.Context) ([]models.AdminUserView, error) {
	args := m.Called(ctx)
	var views []models.AdminUserView
	if val := args.Get(0); val != nil {
		views = val.([]models.AdminUserView)
	}
	return views, args.Error(1)
}

func (m *UserRepositoryMock) TouchLastLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *UserRepositoryMock) DeleteUser(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type TokenRepositoryMock struct {
	mock.Mock
}

func (m *TokenRepositoryMock) CreateToken(ctx context.Context, tokenHash, createdBy string, expiresAt *time.Time) (models.SignupToken, error) {
	args := m.Called(ctx, tokenHash, createdBy, expiresAt)
	var token models.SignupToken
	if val := args.Get(0); val != nil {
		token = val.(models.SignupToken)
	}
	return token, args.Error(1)
}

func (m *TokenRepositoryMock) ListTokens(ctx context.Context) ([]models.SignupToken, error) {
	args := m.Called(ctx)
	var tokens []models.SignupToken
	if val := args.Get(0); val != nil {
		tokens = val.([]models.SignupToken)
	}
	return tokens, args.Error(1)
}

func (m *TokenRepositoryMock) ListUnconsumed(ctx context.Context) ([]models.SignupToken, error) {
	args := m.Called(ctx)
	var tokens []models.SignupToken
	if val := args.Get(0); val != nil {
		tokens = val.([]models.SignupToken)
	}
	return tokens, args.Error(1)
}

func (m *TokenRepositoryMock) ConsumeToken(ctx context.Context, id string, usedBy *string) error {
	args := m.Called(ctx, id, usedBy)
	return args.Error(0)
}

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) CreateChat(ctx context.Context, creatorID, kind, name string, memberIDs []string) (models.Chat, error) {
	args := m.Called(ctx, creatorID, kind, name, memberIDs)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) Members(ctx context.Context, chatID string) ([]models.ChatMember, error) {
	args := m.Called(ctx, chatID)
	var members []models.ChatMember
	if val := args.Get(0); val != nil {
		members = val.([]models.ChatMember)
	}
	return members, args.Error(1)
}

func (m *ChatRepositoryMock) Authorize(ctx context.Context, chatID, userID string) (repositories.ChatGrant, error) {
	args := m.Called(ctx, chatID, userID)
	var grant repositories.ChatGrant
	if val := args.Get(0); val != nil {
		grant = val.(repositories.ChatGrant)
	}
	return grant, args.Error(1)
}

func (m *ChatRepositoryMock) ListSummaries(ctx context.Context, userID string, now time.Time) ([]models.ChatSummary, error) {
	args := m.Called(ctx, userID, now)
	var summaries []models.ChatSummary
	if val := args.Get(0); val != nil {
		summaries = val.([]models.ChatSummary)
	}
	return summaries, args.Error(1)
}

func (m *ChatRepositoryMock) DeleteChat(ctx context.Context, chatID string) ([]string, error) {
	args := m.Called(ctx, chatID)
	var memberIDs []string
	if val := args.Get(0); val != nil {
		memberIDs = val.([]string)
	}
	return memberIDs, args.Error(1)
}

func (m *ChatRepositoryMock) TouchActivity(ctx context.Context, chatID string) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, chatID, senderID, content, kind string, ttlSeconds int64) (models.Message, error) {
	args := m.Called(ctx, chatID, senderID, content, kind, ttlSeconds)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) History(ctx context.Context, chatID string, limit int, now time.Time) ([]models.Message, error) {
	args := m.Called(ctx, chatID, limit, now)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) PurgeExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type LimiterMock struct {
	mock.Mock
}

func (m *LimiterMock) IsBlocked(ctx context.Context, origin string) (bool, error) {
	args := m.Called(ctx, origin)
	return args.Bool(0), args.Error(1)
}

func (m *LimiterMock) RecordFailure(ctx context.Context, origin string) error {
	args := m.Called(ctx, origin)
	return args.Error(0)
}

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.TokenRepository = (*TokenRepositoryMock)(nil)
var _ repositories.ChatRepository = (*ChatRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ ratelimit.Limiter = (*LimiterMock)(nil)
