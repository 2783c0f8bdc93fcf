package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"enclave-chat/internal/auth"
	"enclave-chat/internal/middleware"
	"enclave-chat/internal/repositories"
	"enclave-chat/internal/telemetry"
)

// AdminHandler serves the invite and account administration surface. All
// routes behind it are gated by the admin middleware; failures upstream
// render as one generic denial.
type AdminHandler struct {
	credentials *auth.Credentials
	tokens      repositories.TokenRepository
	users       repositories.UserRepository
	audit       *telemetry.AuditEmitter
}

// NewAdminHandler builds an AdminHandler.
func NewAdminHandler(credentials *auth.Credentials, tokens repositories.TokenRepository, users repositories.UserRepository, audit *telemetry.AuditEmitter) *AdminHandler {
	return &AdminHandler{
		credentials: credentials,
		tokens:      tokens,
		users:       users,
		audit:       audit,
	}
}

// IssueToken mints an invite. The raw value appears in this response and
// nowhere else, ever.
func (h *AdminHandler) IssueToken(c *gin.Context) {
	var req struct {
		ExpiresInHours int `json:"expires_in_hours"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ExpiresInHours < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	issuerID := c.GetString(middleware.CtxUserID)
	raw, token, err := h.credentials.IssueInvite(c.Request.Context(), issuerID, req.ExpiresInHours)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "access denied"})
		return
	}

	emitAudit(c, h.audit, "INFO", "invite_issued", "invite token issued")
	c.JSON(http.StatusOK, gin.H{"token": raw, "id": token.ID, "expires_at": token.ExpiresAt})
}

// ListTokens returns every invite record, hashes excluded.
func (h *AdminHandler) ListTokens(c *gin.Context) {
	tokens, err := h.tokens.ListTokens(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "access denied"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// RevokeToken permanently invalidates an invite.
func (h *AdminHandler) RevokeToken(c *gin.Context) {
	id := c.Param("id")

	if err := h.credentials.RevokeInvite(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTokenNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "token not found"})
		case errors.Is(err, repositories.ErrTokenConsumed):
			// Revoking a consumed token changes nothing; report success.
			c.JSON(http.StatusOK, gin.H{"success": true})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "access denied"})
		}
		return
	}

	emitAudit(c, h.audit, "INFO", "invite_revoked", "invite token revoked")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListUsers returns the admin account listing.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	views, err := h.users.ListAdminViews(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "access denied"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": views})
}
