package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"enclave-chat/internal/models"
	"enclave-chat/internal/repositories"
)

var (
	// ErrDenied is the undifferentiated authentication failure. Unknown
	// user, wrong key and inactive account all collapse into it.
	ErrDenied = errors.New("access denied")
	// ErrInvalidInvite covers unknown, expired and consumed invites alike.
	ErrInvalidInvite = errors.New("invalid or expired token")
)

const hashCost = 12

// dummyHash keeps the bcrypt compare on the unknown-user path so timing
// does not distinguish it from a wrong key.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("enclave-dummy"), hashCost)

// Credentials verifies identities and manages invite tokens.
type Credentials struct {
	users  repositories.UserRepository
	tokens repositories.TokenRepository
}

// NewCredentials constructs the credential store.
func NewCredentials(users repositories.UserRepository, tokens repositories.TokenRepository) *Credentials {
	return &Credentials{users: users, tokens: tokens}
}

// VerifySecret authenticates a handle/key pair. It fails closed with
// ErrDenied and never reports which check failed.
func (c *Credentials) VerifySecret(ctx context.Context, username, accessKey string) (models.User, error) {
	user, err := c.users.GetByUsername(ctx, username)
	if err != nil {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(accessKey))
		return models.User{}, ErrDenied
	}
	if !user.IsActive() {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(accessKey))
		return models.User{}, ErrDenied
	}
	if bcrypt.CompareHashAndPassword([]byte(user.AccessKeyHash), []byte(accessKey)) != nil {
		return models.User{}, ErrDenied
	}
	return user, nil
}

// IssueInvite mints a high-entropy invite for the issuer. Only the hash
// is stored; the raw value is returned exactly once and must not be
// logged. ttlHours of zero means no expiry.
func (c *Credentials) IssueInvite(ctx context.Context, issuerID string, ttlHours int) (string, models.SignupToken, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", models.SignupToken{}, err
	}
	raw := hex.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), hashCost)
	if err != nil {
		return "", models.SignupToken{}, err
	}

	var expiresAt *time.Time
	if ttlHours > 0 {
		t := time.Now().Add(time.Duration(ttlHours) * time.Hour)
		expiresAt = &t
	}

	token, err := c.tokens.CreateToken(ctx, string(hash), issuerID, expiresAt)
	if err != nil {
		return "", models.SignupToken{}, err
	}
	return raw, token, nil
}

// RedeemInvite finds the unconsumed, unexpired token matching the raw
// value. Only hashes are stored, so this is a linear scan over unused
// tokens with a bcrypt compare each. It does not consume the token.
func (c *Credentials) RedeemInvite(ctx context.Context, raw string) (models.SignupToken, error) {
	tokens, err := c.tokens.ListUnconsumed(ctx)
	if err != nil {
		return models.SignupToken{}, err
	}

	now := time.Now()
	for _, token := range tokens {
		if token.Expired(now) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(token.TokenHash), []byte(raw)) == nil {
			return token, nil
		}
	}
	return models.SignupToken{}, ErrInvalidInvite
}

// RevokeInvite consumes a token without a consumer, making it permanently
// unusable.
func (c *Credentials) RevokeInvite(ctx context.Context, id string) error {
	return c.tokens.ConsumeToken(ctx, id, nil)
}

// Register creates an active, non-admin account.
func (c *Credentials) Register(ctx context.Context, username, accessKey string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(accessKey), hashCost)
	if err != nil {
		return models.User{}, err
	}
	return c.users.CreateUser(ctx, username, string(hash), models.RoleUser)
}

// Signup redeems an invite and registers the account behind it. The
// consumption write is the compare-and-set: when two signups race on the
// same invite, exactly one wins and the loser's account is removed again.
func (c *Credentials) Signup(ctx context.Context, rawToken, username, accessKey string) (models.User, error) {
	token, err := c.RedeemInvite(ctx, rawToken)
	if err != nil {
		return models.User{}, err
	}

	user, err := c.Register(ctx, username, accessKey)
	if err != nil {
		return models.User{}, err
	}

	if err := c.tokens.ConsumeToken(ctx, token.ID, &user.ID); err != nil {
		_ = c.users.DeleteUser(ctx, user.ID)
		if errors.Is(err, repositories.ErrTokenConsumed) || errors.Is(err, repositories.ErrTokenNotFound) {
			return models.User{}, ErrInvalidInvite
		}
		return models.User{}, err
	}
	return user, nil
}
