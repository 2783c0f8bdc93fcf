package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"enclave-chat/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

// UserRepository abstracts account persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, username, accessKeyHash, role string) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ListAdminViews(ctx context.Context) ([]models.AdminUserView, error)
	TouchLastLogin(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, id string) error
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, username, access_key_hash, role, status, created_at, last_login`

// CreateUser inserts an active account with the given pre-hashed key.
func (r *UserRepo) CreateUser(ctx context.Context, username, accessKeyHash, role string) (models.User, error) {
	var user models.User
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO users (id, username, access_key_hash, role, status) VALUES ($1, $2, $3, $4, 'active')
         RETURNING `+userColumns,
		uuid.NewString(), username, accessKeyHash, role).StructScan(&user)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, err
	}
	return user, nil
}

// GetByUsername fetches a user by display handle.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// ListUsers returns every account ordered by username.
func (r *UserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY username ASC`)
	return users, err
}

// ListAdminViews returns the admin listing, newest accounts first.
func (r *UserRepo) ListAdminViews(ctx context.Context) ([]models.AdminUserView, error) {
	var views []models.AdminUserView
	err := r.db.SelectContext(ctx, &views,
		`SELECT id, username, role, status, created_at, last_login FROM users ORDER BY created_at DESC`)
	return views, err
}

// TouchLastLogin records a successful authentication.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = NOW() WHERE id=$1`, id)
	return err
}

// DeleteUser removes an account. Used to undo a registration whose
// invite was consumed by a concurrent signup.
func (r *UserRepo) DeleteUser(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
	return err
}
