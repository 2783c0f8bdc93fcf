package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"enclave-chat/internal/models"
	"enclave-chat/internal/repositories"
)

// UserHandler serves the member directory.
type UserHandler struct {
	users repositories.UserRepository
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(users repositories.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

// ListUsers returns every member with the coarse online flag, online
// users first. The flag is derived from last_login; there is no liveness
// protocol behind it.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}

	now := time.Now()
	summaries := make([]models.UserSummary, 0, len(users))
	for _, user := range users {
		summaries = append(summaries, user.Summarize(now))
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Online && !summaries[j].Online
	})

	c.JSON(http.StatusOK, gin.H{"users": summaries})
}
