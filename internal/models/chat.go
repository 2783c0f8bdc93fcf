package models

import "time"

// Chat kinds.
const (
	ChatPersonal = "personal"
	ChatGroup    = "group"
)

// Membership roles, meaningful for group chats only.
const (
	MemberOwner = "owner"
	MemberPlain = "member"
)

// Chat is a conversation. Name is set for group chats and empty for
// personal ones, where the display name is resolved per viewer.
type Chat struct {
	ID        string    `db:"id" json:"id"`
	Kind      string    `db:"kind" json:"kind"`
	Name      string    `db:"name" json:"name,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ChatMember binds a user to a chat.
type ChatMember struct {
	ChatID   string    `db:"chat_id" json:"chat_id"`
	UserID   string    `db:"user_id" json:"user_id"`
	Username string    `db:"username" json:"username"`
	Role     string    `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// LastMessage is the newest message preview attached to a chat summary.
type LastMessage struct {
	Content   string    `json:"content"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSummary is the per-viewer list entry: personal chats are named
// after the other member, group chats after their own name.
type ChatSummary struct {
	ChatID      string       `json:"chat_id"`
	Kind        string       `json:"kind"`
	Name        string       `json:"name"`
	UpdatedAt   time.Time    `json:"updated_at"`
	LastMessage *LastMessage `json:"last_message,omitempty"`
}

// SelfChatName labels the degenerate single-member personal chat.
const SelfChatName = "Me (Note to Self)"
