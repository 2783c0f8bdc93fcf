package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"enclave-chat/internal/auth"
	"enclave-chat/internal/middleware"
	"enclave-chat/internal/observability"
	"enclave-chat/internal/ratelimit"
	"enclave-chat/internal/repositories"
	"enclave-chat/internal/telemetry"
)

// AuthHandler serves login, signup and logout.
type AuthHandler struct {
	credentials   *auth.Credentials
	sessions      *auth.Sessions
	users         repositories.UserRepository
	limiter       ratelimit.Limiter
	audit         *telemetry.AuditEmitter
	secureCookies bool
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(credentials *auth.Credentials, sessions *auth.Sessions, users repositories.UserRepository, limiter ratelimit.Limiter, audit *telemetry.AuditEmitter, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		credentials:   credentials,
		sessions:      sessions,
		users:         users,
		limiter:       limiter,
		audit:         audit,
		secureCookies: secureCookies,
	}
}

// Login authenticates a handle/key pair. Every failure path renders the
// same generic denial and counts toward the per-origin limit.
func (h *AuthHandler) Login(c *gin.Context) {
	origin := observability.OriginFromRequest(c.Request)

	blocked, err := h.limiter.IsBlocked(c.Request.Context(), origin)
	if err != nil {
		// A broken limiter store fails closed.
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "access denied"})
		return
	}
	if blocked {
		observability.IncLoginBlocked()
		emitAudit(c, h.audit, "WARN", "login_blocked", "login blocked by rate limit")
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "access denied"})
		return
	}

	var req struct {
		Username  string `json:"username"`
		AccessKey string `json:"access_key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.AccessKey == "" {
		h.recordFailure(c, origin)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}

	user, err := h.credentials.VerifySecret(c.Request.Context(), req.Username, req.AccessKey)
	if err != nil {
		h.recordFailure(c, origin)
		emitAudit(c, h.audit, "WARN", "login_failed", "login denied")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied"})
		return
	}

	if err := h.users.TouchLastLogin(c.Request.Context(), user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "access denied"})
		return
	}

	token, _, err := h.sessions.Issue(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "access denied"})
		return
	}
	middleware.SetSessionCookie(c, token, int(h.sessions.TTL().Seconds()), h.secureCookies)

	emitAudit(c, h.audit, "INFO", "login", "login succeeded")
	c.JSON(http.StatusOK, gin.H{"success": true, "role": user.Role})
}

func (h *AuthHandler) recordFailure(c *gin.Context, origin string) {
	observability.IncLoginFailure()
	if err := h.limiter.RecordFailure(c.Request.Context(), origin); err != nil {
		emitAudit(c, h.audit, "ERROR", "rate_limit", "failed to record login failure")
	}
}

// Signup redeems an invite and creates the account.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Token     string `json:"token" binding:"required"`
		Username  string `json:"username" binding:"required"`
		AccessKey string `json:"access_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.credentials.Signup(c.Request.Context(), req.Token, req.Username, req.AccessKey)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInvite):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired token"})
		case errors.Is(err, repositories.ErrUsernameTaken):
			c.JSON(http.StatusBadRequest, gin.H{"error": "username already taken"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		}
		return
	}

	emitAudit(c, h.audit, "INFO", "signup", "account created via invite")
	c.JSON(http.StatusOK, gin.H{"success": true, "user_id": user.ID})
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.ClearSessionCookie(c, h.secureCookies)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
