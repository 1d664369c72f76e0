package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds the authoritative balance of a user
type Wallet struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Balance   int64     `db:"balance" json:"balance"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
