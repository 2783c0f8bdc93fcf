package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"enclave-chat/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository owns a chat's ordered message log.
type MessageRepository interface {
	Append(ctx context.Context, chatID, senderID, content, kind string, ttlSeconds int64) (models.Message, error)
	History(ctx context.Context, chatID string, limit int, now time.Time) ([]models.Message, error)
	PurgeExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append persists a message and returns it joined with the sender's
// username. A positive TTL sets the expiry instant; zero means the
// message never expires.
func (r *MessageRepo) Append(ctx context.Context, chatID, senderID, content, kind string, ttlSeconds int64) (models.Message, error) {
	if !models.ValidKind(kind) {
		kind = models.KindText
	}
	var expiresAt *time.Time
	if ttlSeconds > 0 {
		t := time.Now().Add(time.Duration(ttlSeconds) * time.Second)
		expiresAt = &t
	}

	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`WITH ins AS (
            INSERT INTO messages (id, chat_id, sender_id, content, kind, expires_at)
            VALUES ($1, $2, $3, $4, $5, $6)
            RETURNING id, chat_id, sender_id, content, kind, seq, created_at, expires_at
        )
        SELECT ins.id, ins.chat_id, ins.sender_id, u.username AS sender_username,
               ins.content, ins.kind, ins.seq, ins.created_at, ins.expires_at
        FROM ins INNER JOIN users u ON u.id = ins.sender_id`,
		uuid.NewString(), chatID, senderID, content, kind, expiresAt).StructScan(&msg)
	return msg, err
}

// History returns up to limit messages in ascending creation order, ties
// broken by insertion sequence. Expired messages are filtered at read
// time; their rows stay put.
func (r *MessageRepo) History(ctx context.Context, chatID string, limit int, now time.Time) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT m.id, m.chat_id, m.sender_id, u.username AS sender_username,
                m.content, m.kind, m.seq, m.created_at, m.expires_at
         FROM messages m INNER JOIN users u ON u.id = m.sender_id
         WHERE m.chat_id=$1 AND (m.expires_at IS NULL OR m.expires_at > $2)
         ORDER BY m.created_at ASC, m.seq ASC
         LIMIT $3`,
		chatID, now, limit)
	return msgs, err
}

// PurgeExpiredBefore hard-deletes rows whose expiry passed before the
// cutoff. Correctness never depends on this; reads filter on their own.
func (r *MessageRepo) PurgeExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM messages WHERE expires_at IS NOT NULL AND expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
