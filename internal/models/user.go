package models

import (
	"database/sql"
	"time"
)

// Roles assignable to a user account.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// StatusActive is the only status that may authenticate.
const StatusActive = "active"

// User is a registered account. AccessKeyHash never crosses the API
// boundary; responses use UserSummary instead.
type User struct {
	ID            string       `db:"id" json:"id"`
	Username      string       `db:"username" json:"username"`
	AccessKeyHash string       `db:"access_key_hash" json:"-"`
	Role          string       `db:"role" json:"role"`
	Status        string       `db:"status" json:"status"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	LastLogin     sql.NullTime `db:"last_login" json:"-"`
}

// IsActive reports whether the account may authenticate.
func (u User) IsActive() bool {
	return u.Status == StatusActive
}

// UserSummary is the directory view of a user.
type UserSummary struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Online    bool       `json:"online"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// onlineWindow is how recently a user must have logged in to count as
// online. Coarse by design: last_login only moves on login, there is no
// heartbeat.
const onlineWindow = 15 * time.Minute

// Summarize derives the directory view at the given instant.
func (u User) Summarize(now time.Time) UserSummary {
	s := UserSummary{ID: u.ID, Username: u.Username}
	if u.LastLogin.Valid {
		t := u.LastLogin.Time
		s.LastLogin = &t
		s.Online = now.Sub(t) < onlineWindow
	}
	return s
}

// AdminUserView is the admin listing row; it carries more than the
// directory view but still never the key hash.
type AdminUserView struct {
	ID        string     `db:"id" json:"id"`
	Username  string     `db:"username" json:"username"`
	Role      string     `db:"role" json:"role"`
	Status    string     `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	LastLogin *time.Time `db:"last_login" json:"last_login,omitempty"`
}
