package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enclave-chat/internal/auth"
	"enclave-chat/internal/models"
)

func setupProtectedRouter(sessions *auth.Sessions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", SessionMiddleware(sessions, false), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(CtxUserID)})
	})
	r.GET("/admin", AdminMiddleware(sessions, false), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(CtxUserID)})
	})
	return r
}

func sessionFor(t *testing.T, sessions *auth.Sessions, user models.User) *http.Cookie {
	t.Helper()
	token, _, err := sessions.Issue(user)
	require.NoError(t, err)
	return &http.Cookie{Name: SessionCookie, Value: token}
}

func TestSessionMiddlewareNoCookie(t *testing.T) {
	router := setupProtectedRouter(auth.NewSessions("test-secret", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionMiddlewareBadToken(t *testing.T) {
	router := setupProtectedRouter(auth.NewSessions("test-secret", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "garbage"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionMiddlewareValidSessionRefreshes(t *testing.T) {
	sessions := auth.NewSessions("test-secret", time.Hour)
	router := setupProtectedRouter(sessions)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(sessionFor(t, sessions, models.User{ID: "u1", Username: "alice", Role: models.RoleUser}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "u1")

	var refreshed bool
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == SessionCookie && cookie.Value != "" {
			refreshed = true
		}
	}
	assert.True(t, refreshed, "expected the session cookie to be re-issued")
}

func TestAdminMiddlewareDeniesUniformly(t *testing.T) {
	sessions := auth.NewSessions("test-secret", time.Hour)
	router := setupProtectedRouter(sessions)

	// no cookie
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	noCookieBody := rec.Body.String()

	// valid session, wrong role
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(sessionFor(t, sessions, models.User{ID: "u1", Username: "alice", Role: models.RoleUser}))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	assert.Equal(t, noCookieBody, rec.Body.String(), "denials must be indistinguishable")
}

func TestAdminMiddlewareAllowsAdmin(t *testing.T) {
	sessions := auth.NewSessions("test-secret", time.Hour)
	router := setupProtectedRouter(sessions)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(sessionFor(t, sessions, models.User{ID: "root", Username: "root", Role: models.RoleAdmin}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "root")
}
