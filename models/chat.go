package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a message posted in a market's chat room
type ChatMessage struct {
	ID        uuid.UUID `db:"id" json:"id"`
	MarketID  uuid.UUID `db:"market_id" json:"market_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Message   string    `db:"message" json:"message"`
	IsDeleted bool      `db:"is_deleted" json:"is_deleted"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// UserMute silences a user in every chat room until MutedUntil.
// A nil MutedUntil mutes indefinitely.
type UserMute struct {
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	MutedUntil *time.Time `db:"muted_until" json:"muted_until,omitempty"`
}

// IsActive reports whether the mute applies at now
func (m *UserMute) IsActive(now time.Time) bool {
	return m.MutedUntil == nil || now.Before(*m.MutedUntil)
}
