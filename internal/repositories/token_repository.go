package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"enclave-chat/internal/models"
)

var (
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenConsumed = errors.New("token already consumed")
)

// TokenRepository abstracts signup-token persistence.
type TokenRepository interface {
	CreateToken(ctx context.Context, tokenHash, createdBy string, expiresAt *time.Time) (models.SignupToken, error)
	ListTokens(ctx context.Context) ([]models.SignupToken, error)
	ListUnconsumed(ctx context.Context) ([]models.SignupToken, error)
	ConsumeToken(ctx context.Context, id string, usedBy *string) error
}

// TokenRepo is a sqlx implementation of TokenRepository.
type TokenRepo struct {
	db *sqlx.DB
}

// NewTokenRepo constructs a TokenRepo.
func NewTokenRepo(db *sqlx.DB) *TokenRepo {
	return &TokenRepo{db: db}
}

const tokenColumns = `id, token_hash, created_by, created_at, expires_at, used_at, used_by`

// CreateToken stores the hash of a freshly issued invite.
func (r *TokenRepo) CreateToken(ctx context.Context, tokenHash, createdBy string, expiresAt *time.Time) (models.SignupToken, error) {
	var token models.SignupToken
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO signup_tokens (id, token_hash, created_by, expires_at) VALUES ($1, $2, $3, $4)
         RETURNING `+tokenColumns,
		uuid.NewString(), tokenHash, createdBy, expiresAt).StructScan(&token)
	return token, err
}

// ListTokens returns every token record, newest first.
func (r *TokenRepo) ListTokens(ctx context.Context) ([]models.SignupToken, error) {
	var tokens []models.SignupToken
	err := r.db.SelectContext(ctx, &tokens,
		`SELECT `+tokenColumns+` FROM signup_tokens ORDER BY created_at DESC`)
	return tokens, err
}

// ListUnconsumed returns tokens that have not been redeemed or revoked.
// Redemption must compare a candidate against each of these hashes; there
// is no lookup key for a raw token. O(unused tokens), fine at invite-only
// scale.
func (r *TokenRepo) ListUnconsumed(ctx context.Context) ([]models.SignupToken, error) {
	var tokens []models.SignupToken
	err := r.db.SelectContext(ctx, &tokens,
		`SELECT `+tokenColumns+` FROM signup_tokens WHERE used_at IS NULL ORDER BY created_at ASC`)
	return tokens, err
}

// ConsumeToken marks a token used. The WHERE clause is the compare-and-set
// guard: of two concurrent redemptions at most one sees a row update.
// A nil usedBy records a revocation.
func (r *TokenRepo) ConsumeToken(ctx context.Context, id string, usedBy *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE signup_tokens SET used_at = NOW(), used_by = $2 WHERE id=$1 AND used_at IS NULL`,
		id, usedBy)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists,
			`SELECT EXISTS(SELECT 1 FROM signup_tokens WHERE id=$1)`, id); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if !exists {
			return ErrTokenNotFound
		}
		return ErrTokenConsumed
	}
	return nil
}
