package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"enclave-chat/internal/models"
)

var (
	ErrChatNotFound = errors.New("chat not found")
	// ErrNotMember covers both "no such chat" and "caller is not a member"
	// so responses never leak whether a chat exists.
	ErrNotMember = errors.New("not a chat member")

	ErrEmptyGroupName = errors.New("group chat requires a name")
	ErrNoMembers      = errors.New("chat requires at least one member")
)

// ChatGrant is the capability proving a membership check passed. The hub
// only joins rooms for holders of a grant, so call sites cannot skip the
// gate.
type ChatGrant struct {
	ChatID string
	UserID string
}

// ChatRepository owns chats and memberships.
type ChatRepository interface {
	CreateChat(ctx context.Context, creatorID, kind, name string, memberIDs []string) (models.Chat, error)
	GetChat(ctx context.Context, chatID string) (models.Chat, error)
	Members(ctx context.Context, chatID string) ([]models.ChatMember, error)
	Authorize(ctx context.Context, chatID, userID string) (ChatGrant, error)
	ListSummaries(ctx context.Context, userID string, now time.Time) ([]models.ChatSummary, error)
	DeleteChat(ctx context.Context, chatID string) ([]string, error)
	TouchActivity(ctx context.Context, chatID string) error
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// CreateChat creates a chat and its memberships atomically. The creator
// is always a member; duplicate ids are collapsed. For group chats the
// creator joins as owner and a non-empty name is required.
func (r *ChatRepo) CreateChat(ctx context.Context, creatorID, kind, name string, memberIDs []string) (models.Chat, error) {
	if kind != models.ChatGroup {
		kind = models.ChatPersonal
		name = ""
	}
	if kind == models.ChatGroup && name == "" {
		return models.Chat{}, ErrEmptyGroupName
	}

	memberSet := map[string]struct{}{creatorID: {}}
	for _, id := range memberIDs {
		if id != "" {
			memberSet[id] = struct{}{}
		}
	}
	if len(memberSet) == 0 {
		return models.Chat{}, ErrNoMembers
	}
	ids := make([]string, 0, len(memberSet))
	for id := range memberSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Chat{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var chat models.Chat
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO chats (id, kind, name) VALUES ($1, $2, $3)
         RETURNING id, kind, name, created_at, updated_at`,
		uuid.NewString(), kind, name).StructScan(&chat); err != nil {
		return models.Chat{}, err
	}

	for _, id := range ids {
		role := models.MemberPlain
		if kind == models.ChatGroup && id == creatorID {
			role = models.MemberOwner
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO chat_members (chat_id, user_id, role) VALUES ($1, $2, $3)`,
			chat.ID, id, role); err != nil {
			return models.Chat{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat,
		`SELECT id, kind, name, created_at, updated_at FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// Members returns the membership list with usernames resolved.
func (r *ChatRepo) Members(ctx context.Context, chatID string) ([]models.ChatMember, error) {
	var members []models.ChatMember
	err := r.db.SelectContext(ctx, &members,
		`SELECT cm.chat_id, cm.user_id, u.username, cm.role, cm.joined_at
         FROM chat_members cm INNER JOIN users u ON u.id = cm.user_id
         WHERE cm.chat_id=$1 ORDER BY cm.joined_at ASC`, chatID)
	return members, err
}

// Authorize is the membership gate for every read and write path. On
// success it returns the grant the hub demands before joining a room.
func (r *ChatRepo) Authorize(ctx context.Context, chatID, userID string) (ChatGrant, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM chat_members WHERE chat_id=$1 AND user_id=$2)`, chatID, userID)
	if err != nil {
		return ChatGrant{}, err
	}
	if !exists {
		return ChatGrant{}, ErrNotMember
	}
	return ChatGrant{ChatID: chatID, UserID: userID}, nil
}

type summaryRow struct {
	ChatID     string         `db:"id"`
	Kind       string         `db:"kind"`
	Name       string         `db:"name"`
	UpdatedAt  time.Time      `db:"updated_at"`
	MsgContent sql.NullString `db:"msg_content"`
	MsgKind    sql.NullString `db:"msg_kind"`
	MsgCreated sql.NullTime   `db:"msg_created_at"`
	OtherName  sql.NullString `db:"other_username"`
	SelfOnly   bool           `db:"self_only"`
}

// ListSummaries returns the viewer's chats ordered by descending
// last-activity. Personal chats are named after the other member, or the
// note-to-self label when the viewer is the only member. The last-message
// preview honours the expiry predicate.
func (r *ChatRepo) ListSummaries(ctx context.Context, userID string, now time.Time) ([]models.ChatSummary, error) {
	query := `SELECT c.id, c.kind, c.name, c.updated_at,
            lm.content AS msg_content, lm.kind AS msg_kind, lm.created_at AS msg_created_at,
            other.username AS other_username,
            NOT EXISTS(SELECT 1 FROM chat_members x WHERE x.chat_id = c.id AND x.user_id <> $1) AS self_only
        FROM chats c
        INNER JOIN chat_members cm ON cm.chat_id = c.id AND cm.user_id = $1
        LEFT JOIN LATERAL (
            SELECT m.content, m.kind, m.created_at FROM messages m
            WHERE m.chat_id = c.id AND (m.expires_at IS NULL OR m.expires_at > $2)
            ORDER BY m.created_at DESC, m.seq DESC LIMIT 1
        ) lm ON TRUE
        LEFT JOIN LATERAL (
            SELECT u.username FROM chat_members om
            INNER JOIN users u ON u.id = om.user_id
            WHERE om.chat_id = c.id AND om.user_id <> $1
            ORDER BY om.joined_at ASC LIMIT 1
        ) other ON TRUE
        ORDER BY c.updated_at DESC`

	var rows []summaryRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, now); err != nil {
		return nil, err
	}

	summaries := make([]models.ChatSummary, 0, len(rows))
	for _, row := range rows {
		summary := models.ChatSummary{
			ChatID:    row.ChatID,
			Kind:      row.Kind,
			Name:      row.Name,
			UpdatedAt: row.UpdatedAt,
		}
		if row.Kind == models.ChatPersonal {
			switch {
			case row.OtherName.Valid:
				summary.Name = row.OtherName.String
			case row.SelfOnly:
				summary.Name = models.SelfChatName
			default:
				summary.Name = "Unknown User"
			}
		}
		if row.MsgContent.Valid {
			summary.LastMessage = &models.LastMessage{
				Content:   row.MsgContent.String,
				Kind:      row.MsgKind.String,
				CreatedAt: row.MsgCreated.Time,
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// DeleteChat removes a chat and, through cascade, its memberships and
// messages as one unit. It returns the pre-deletion member ids so the
// caller can notify them.
func (r *ChatRepo) DeleteChat(ctx context.Context, chatID string) ([]string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var memberIDs []string
	if err = tx.SelectContext(ctx, &memberIDs,
		`SELECT user_id FROM chat_members WHERE chat_id=$1 ORDER BY joined_at ASC`, chatID); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE id=$1`, chatID)
	if err != nil {
		return nil, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		err = ErrChatNotFound
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return memberIDs, nil
}

// TouchActivity bumps the chat's last-activity timestamp.
func (r *ChatRepo) TouchActivity(ctx context.Context, chatID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE chats SET updated_at = NOW() WHERE id=$1`, chatID)
	return err
}
