package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"enclave-chat/internal/models"
)

// ErrSessionInvalid covers every verification failure: bad signature,
// malformed token, expired window. Callers never learn which.
var ErrSessionInvalid = errors.New("invalid session")

// Claims is the signed session payload held by the client.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin is the only sanctioned role check; it operates on verified
// claims, never on anything client-asserted.
func (c Claims) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

// Sessions issues and verifies signed session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
}

// NewSessions builds a session authority with a symmetric signing key and
// a fixed validity window.
func NewSessions(secret string, ttl time.Duration) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl}
}

// TTL reports the validity window, used for cookie max-age.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

// Issue signs a fresh session for the user.
func (s *Sessions) Issue(user models.User) (string, time.Time, error) {
	return s.sign(Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
}

// Refresh re-signs verified claims with the window slid forward. Applied
// on every authenticated request so active sessions never lapse.
func (s *Sessions) Refresh(claims Claims) (string, time.Time, error) {
	return s.sign(claims)
}

func (s *Sessions) sign(claims Claims) (string, time.Time, error) {
	expires := time.Now().Add(s.ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// Verify checks signature and expiry. Any failure, structural or
// cryptographic, is ErrSessionInvalid.
func (s *Sessions) Verify(tokenString string) (Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Claims{}, ErrSessionInvalid
	}
	return *claims, nil
}
