package models

import "time"

// Message kinds. Non-text kinds carry an opaque URL in Content.
const (
	KindText  = "text"
	KindImage = "image"
	KindVoice = "voice"
	KindFile  = "file"
)

// ValidKind reports whether kind names a known message kind.
func ValidKind(kind string) bool {
	switch kind {
	case KindText, KindImage, KindVoice, KindFile:
		return true
	}
	return false
}

// Message is one entry in a chat's ordered log. Seq breaks creation-time
// ties so ordering within a chat is total.
type Message struct {
	ID             string     `db:"id" json:"id"`
	ChatID         string     `db:"chat_id" json:"chat_id"`
	SenderID       string     `db:"sender_id" json:"sender_id"`
	SenderUsername string     `db:"sender_username" json:"sender_username,omitempty"`
	Content        string     `db:"content" json:"content"`
	Kind           string     `db:"kind" json:"kind"`
	Seq            int64      `db:"seq" json:"-"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt      *time.Time `db:"expires_at" json:"expires_at,omitempty"`
}

// Expired reports whether the message's content is gone to readers.
// Evaluated at read time; the row may still exist. The expiry instant
// itself counts as expired.
func (m Message) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && !now.Before(*m.ExpiresAt)
}
