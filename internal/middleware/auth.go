package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"enclave-chat/internal/auth"
)

// SessionCookie is the bearer cookie name.
const SessionCookie = "session"

// Context keys set for downstream handlers.
const (
	CtxUserID   = "userID"
	CtxUsername = "username"
	CtxRole     = "role"
)

// SetSessionCookie writes the session cookie the way the browser flow
// expects: HTTP-only, same-site lax, secure outside development.
func SetSessionCookie(c *gin.Context, token string, maxAge int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, maxAge, "/", "", secure, true)
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", secure, true)
}

// SessionMiddleware verifies the session cookie and slides its validity
// window forward, so active users never hit an abrupt expiry.
func SessionMiddleware(sessions *auth.Sessions, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(SessionCookie)
		if err != nil || cookie == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, err := sessions.Verify(cookie)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if refreshed, _, err := sessions.Refresh(claims); err == nil {
			SetSessionCookie(c, refreshed, int(sessions.TTL().Seconds()), secureCookies)
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUsername, claims.Username)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// AdminMiddleware gates admin routes on the verified role. Every failure
// path renders the same generic denial so a caller cannot tell a missing
// session from an insufficient role.
func AdminMiddleware(sessions *auth.Sessions, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(SessionCookie)
		if err != nil || cookie == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}

		claims, err := sessions.Verify(cookie)
		if err != nil || !claims.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}

		if refreshed, _, err := sessions.Refresh(claims); err == nil {
			SetSessionCookie(c, refreshed, int(sessions.TTL().Seconds()), secureCookies)
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUsername, claims.Username)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}
