package models

import "time"

// SignupToken is a single-use invite. Only the bcrypt hash of the raw
// value is stored; the raw value is shown to the issuing admin exactly
// once and never persisted or logged.
type SignupToken struct {
	ID        string     `db:"id" json:"id"`
	TokenHash string     `db:"token_hash" json:"-"`
	CreatedBy string     `db:"created_by" json:"created_by"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	UsedAt    *time.Time `db:"used_at" json:"used_at,omitempty"`
	UsedBy    *string    `db:"used_by" json:"used_by,omitempty"`
}

// Consumed reports whether the token has been redeemed or revoked.
// A revoked token has UsedAt set with no UsedBy.
func (t SignupToken) Consumed() bool {
	return t.UsedAt != nil
}

// Expired reports whether the token's window has passed. Tokens without
// an expiry stay valid until consumed.
func (t SignupToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}
