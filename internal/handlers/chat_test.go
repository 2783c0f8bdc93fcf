package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"enclave-chat/internal/middleware"
	"enclave-chat/internal/mocks"
	"enclave-chat/internal/models"
	"enclave-chat/internal/repositories"
	"enclave-chat/internal/ws"
)

func setupChatRouter(handler *ChatHandler, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.CtxUserID, userID)
		c.Next()
	})
	r.GET("/chats", handler.ListChats)
	r.POST("/chats", handler.CreateChat)
	r.DELETE("/chats/:chat_id", handler.DeleteChat)
	r.GET("/chats/:chat_id/messages", handler.GetChatMessages)
	r.POST("/chats/:chat_id/messages", handler.PostChatMessage)
	return r
}

func newTestRelay(messages *mocks.MessageRepositoryMock, chats *mocks.ChatRepositoryMock) *ws.Relay {
	return ws.NewRelay(ws.NewHub(), messages, chats)
}

func TestListChatsSuccess(t *testing.T) {
	chats := new(mocks.ChatRepositoryMock)
	handler := NewChatHandler(chats, new(mocks.MessageRepositoryMock), nil, nil, 50)
	router := setupChatRouter(handler, "u1")

	chats.On("ListSummaries", mock.Anything, "u1", mock.AnythingOfType("time.Time")).Return([]models.ChatSummary{
		{ChatID: "c1", Kind: models.ChatPersonal, Name: "bob"},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	chats.AssertExpectations(t)
}

func TestListChatsRepoError(t *testing.T) {
	chats := new(mocks.ChatRepositoryMock)
	handler := NewChatHandler(chats, new(mocks.MessageRepositoryMock), nil, nil, 50)
	router := setupChatRouter(handler, "u1")

	chats.On("ListSummaries", mock.Anything, "u1", mock.AnythingOfType("time.Time")).Return(nil, assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	chats.AssertExpectations(t)
}

func TestCreateChatSuccess(t *testing.T) {
	chats := new(mocks.ChatRepositoryMock)
	handler := NewChatHandler(chats, new(mocks.MessageRepositoryMock), nil, nil, 50)
	router := setupChatRouter(handler, "u1")

	chats.On("CreateChat", mock.Anything, "u1", models.ChatPersonal, "", []string{"u2"}).
		Return(models.Chat{ID: "c1", Kind: models.ChatPersonal}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats", bytes.NewBufferString(`{"kind":"personal","member_ids":["u2"]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "c1")
	chats.AssertExpectations(t)
}

func TestCreateChatGroupNeedsName(t *testing.T) {
	chats := new(mocks.ChatRepositoryMock)
	handler := NewChatHandler(chats, new(mocks.MessageRepositoryMock), nil, nil, 50)
	router := setupChatRouter(handler, "u1")

	chats.On("CreateChat", mock.Anything, "u1", models.ChatGroup, "", []string{"u2"}).
		Return(nil, repositories.ErrEmptyGroupName).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats", bytes.NewBufferString(`{"kind":"group","member_ids":["u2"]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	chats.AssertExpectations(t)
}

func TestCreateChatMissingMembers(t *testing.T) {
	handler := NewChatHandler(new(mocks.ChatRepositoryMock), new(mocks.MessageRepositoryMock), nil, nil, 50)
	router := setupChatRouter(handler, "u1")

	req := httptest.NewRequest(http.MethodPost, "/chats", bytes.NewBufferString(`{"kind":"personal"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteChatSuccess(t *testing.T) {
	chats := new(mocks.ChatRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	handler := NewChatHandler(chats, messages, newTestRelay(messages, chats), nil, 50)
	router := setupChatRouter(handler, "u1")

	chats.On("Authorize", mock.Anything, "c1", "u1").Return(repositories.ChatGrant{ChatID: "c1", UserID: "u1"}, nil).Once()
	chats.On("DeleteChat", mock.Anything, "c1").Return([]string{"u1", "u2"}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/chats/c1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "u2")
	chats.AssertExpectations(t)
}

func TestDeleteChatNotMemberLooksLikeMissing(t *testing.T) {
	chats := new(mocks.ChatRepositoryMock)
	handler := NewChatHandler(chats, new(mocks.MessageRepositoryMock), nil, nil, 50)
	router := setupChatRouter(handler, "intruder")

	chats.On("Authorize", mock.Anything, "c1", "intruder").Return(nil, repositories.ErrNotMember).Once()

	req := httptest.NewRequest(http.MethodDelete, "/chats/c1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "chat not found")
	chats.AssertNotCalled(t, "DeleteChat", mock.Anything, mock.Anything)
}

func TestGetChatMessagesSuccess(t *testing.T) {
	chats := new(mocks.ChatRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	handler := NewChatHandler(chats, messages, nil, nil, 50)
	router := setupChatRouter(handler, "u1")

	chats.On("Authorize", mock.Anything, "c1", "u1").Return(repositories.ChatGrant{ChatID: "c1", UserID: "u1"}, nil).Once()
	chats.On("GetChat", mock.Anything, "c1").Return(models.Chat{ID: "c1", Kind: models.ChatPersonal}, nil).Once()
	chats.On("Members", mock.Anything, "c1").Return([]models.ChatMember{
		{ChatID: "c1", UserID: "u1", Username: "alice"},
		{ChatID: "c1", UserID: "u2", Username: "bob"},
	}, nil).Once()
	messages.On("History", mock.Anything, "c1", 50, mock.AnythingOfType("time.Time")).Return([]models.Message{
		{ID: "m1", ChatID: "c1", SenderID: "u2", Content: "hi", Kind: models.KindText, CreatedAt: time.Now()},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/c1/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"chat_name":"bob"`)
	chats.AssertExpectations(t)
	messages.AssertExpectations(t)
}

func TestGetChatMessagesSelfChatName(t *testing.T) {
	chats := new(mocks.ChatRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	handler := NewChatHandler(chats, messages, nil, nil, 50)
	router := setupChatRouter(handler, "u1")

	chats.On("Authorize", mock.Anything, "c1", "u1").Return(repositories.ChatGrant{ChatID: "c1", UserID: "u1"}, nil).Once()
	chats.On("GetChat", mock.Anything, "c1").Return(models.Chat{ID: "c1", Kind: models.ChatPersonal}, nil).Once()
	chats.On("Members", mock.Anything, "c1").Return([]models.ChatMember{
		{ChatID: "c1", UserID: "u1", Username: "alice"},
	}, nil).Once()
	messages.On("History", mock.Anything, "c1", 50, mock.AnythingOfType("time.Time")).Return([]models.Message{}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/c1/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), models.SelfChatName)
}

func TestGetChatMessagesNotMember(t *testing.T) {
	chats := new(mocks.ChatRepositoryMock)
	handler := NewChatHandler(chats, new(mocks.MessageRepositoryMock), nil, nil, 50)
	router := setupChatRouter(handler, "intruder")

	chats.On("Authorize", mock.Anything, "c1", "intruder").Return(nil, repositories.ErrNotMember).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/c1/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "chat not found")
}

func TestPostChatMessageSuccess(t *testing.T) {
	chats := new(mocks.ChatRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	handler := NewChatHandler(chats, messages, newTestRelay(messages, chats), nil, 50)
	router := setupChatRouter(handler, "u1")

	chats.On("Authorize", mock.Anything, "c1", "u1").Return(repositories.ChatGrant{ChatID: "c1", UserID: "u1"}, nil).Once()
	messages.On("Append", mock.Anything, "c1", "u1", "hi", models.KindText, int64(0)).
		Return(models.Message{ID: "m1", ChatID: "c1", SenderID: "u1", Content: "hi", Kind: models.KindText}, nil).Once()
	chats.On("TouchActivity", mock.Anything, "c1").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/c1/messages", bytes.NewBufferString(`{"content":"hi","kind":"text"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "m1")
	chats.AssertExpectations(t)
	messages.AssertExpectations(t)
}

func TestPostChatMessageStorageFailure(t *testing.T) {
	chats := new(mocks.ChatRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	handler := NewChatHandler(chats, messages, newTestRelay(messages, chats), nil, 50)
	router := setupChatRouter(handler, "u1")

	chats.On("Authorize", mock.Anything, "c1", "u1").Return(repositories.ChatGrant{ChatID: "c1", UserID: "u1"}, nil).Once()
	messages.On("Append", mock.Anything, "c1", "u1", "hi", models.KindText, int64(0)).
		Return(nil, assert.AnError).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/c1/messages", bytes.NewBufferString(`{"content":"hi","kind":"text"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to store message")
}
