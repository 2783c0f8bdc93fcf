package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"enclave-chat/internal/middleware"
	"enclave-chat/internal/models"
	"enclave-chat/internal/repositories"
	"enclave-chat/internal/telemetry"
	"enclave-chat/internal/ws"
)

// ChatHandler manages chat directory and history endpoints.
type ChatHandler struct {
	chats        repositories.ChatRepository
	messages     repositories.MessageRepository
	relay        *ws.Relay
	audit        *telemetry.AuditEmitter
	historyLimit int
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chats repositories.ChatRepository, messages repositories.MessageRepository, relay *ws.Relay, audit *telemetry.AuditEmitter, historyLimit int) *ChatHandler {
	return &ChatHandler{
		chats:        chats,
		messages:     messages,
		relay:        relay,
		audit:        audit,
		historyLimit: historyLimit,
	}
}

// ListChats returns the caller's chats, most recently active first.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)

	summaries, err := h.chats.ListSummaries(c.Request.Context(), userID, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": summaries})
}

// CreateChat creates a personal or group chat with the caller as a
// member.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)

	var req struct {
		Kind      string   `json:"kind"`
		Name      string   `json:"name"`
		MemberIDs []string `json:"member_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid members"})
		return
	}

	chat, err := h.chats.CreateChat(c.Request.Context(), userID, req.Kind, req.Name, req.MemberIDs)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrEmptyGroupName), errors.Is(err, repositories.ErrNoMembers):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create chat"})
		}
		return
	}

	emitAudit(c, h.audit, "INFO", "chat_created", "chat created")
	c.JSON(http.StatusOK, chat)
}

// DeleteChat removes a chat and everything beneath it, then notifies the
// members. Requester must be a member; the response does not reveal
// whether a denied chat exists.
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString(middleware.CtxUserID)

	if _, err := h.chats.Authorize(c.Request.Context(), chatID, userID); err != nil {
		status := http.StatusNotFound
		if !errors.Is(err, repositories.ErrNotMember) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": "chat not found"})
		return
	}

	memberIDs, err := h.chats.DeleteChat(c.Request.Context(), chatID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChatNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "chat not found"})
		return
	}

	h.relay.ChatDeleted(chatID, memberIDs)

	emitAudit(c, h.audit, "INFO", "chat_deleted", "chat deleted")
	c.JSON(http.StatusOK, gin.H{"success": true, "member_ids": memberIDs})
}

// GetChatMessages returns the bounded, expiry-filtered history window.
func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString(middleware.CtxUserID)

	if _, err := h.chats.Authorize(c.Request.Context(), chatID, userID); err != nil {
		status := http.StatusNotFound
		if !errors.Is(err, repositories.ErrNotMember) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": "chat not found"})
		return
	}

	chat, err := h.chats.GetChat(c.Request.Context(), chatID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChatNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "chat not found"})
		return
	}

	msgs, err := h.messages.History(c.Request.Context(), chatID, h.historyLimit, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"chat_name": h.resolveName(c, chat, userID),
		"messages":  msgs,
	})
}

func (h *ChatHandler) resolveName(c *gin.Context, chat models.Chat, userID string) string {
	if chat.Kind != models.ChatPersonal {
		return chat.Name
	}
	members, err := h.chats.Members(c.Request.Context(), chat.ID)
	if err != nil {
		return ""
	}
	for _, m := range members {
		if m.UserID != userID {
			return m.Username
		}
	}
	if len(members) == 1 && members[0].UserID == userID {
		return models.SelfChatName
	}
	return "Unknown User"
}

// PostChatMessage persists and broadcasts a message over the REST path;
// it shares the relay pipeline with the websocket path.
func (h *ChatHandler) PostChatMessage(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString(middleware.CtxUserID)

	grant, err := h.chats.Authorize(c.Request.Context(), chatID, userID)
	if err != nil {
		status := http.StatusNotFound
		if !errors.Is(err, repositories.ErrNotMember) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": "chat not found"})
		return
	}

	var req struct {
		Content    string `json:"content" binding:"required"`
		Kind       string `json:"kind"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	msg, err := h.relay.SendMessage(c.Request.Context(), grant, req.Content, req.Kind, req.TTLSeconds)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	c.JSON(http.StatusCreated, msg)
}
