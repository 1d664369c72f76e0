package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestMeta carries request details recorded in the audit tables
type RequestMeta struct {
	IP        string
	UserAgent string
}

// UnauthorizedAttempt records a rejected authentication or access check
type UnauthorizedAttempt struct {
	ID         uuid.UUID `db:"id" json:"id"`
	TelegramID *int64    `db:"telegram_id" json:"telegram_id,omitempty"`
	Username   *string   `db:"username" json:"username,omitempty"`
	IP         *string   `db:"ip" json:"ip,omitempty"`
	UserAgent  *string   `db:"user_agent" json:"user_agent,omitempty"`
	Endpoint   string    `db:"endpoint" json:"endpoint"`
	Reason     string    `db:"reason" json:"reason"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AttemptFilter narrows the unauthorized attempt listing
type AttemptFilter struct {
	TelegramID *int64
	Since      *time.Time
}

// LoginLog records a successful login
type LoginLog struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	IP        *string   `db:"ip" json:"ip,omitempty"`
	UserAgent *string   `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Audit reasons
const (
	AttemptReasonTelegramHashInvalid = "telegram_hash_invalid"
	AttemptReasonBannedLogin         = "banned_login"
	AttemptReasonNotWhitelistedLogin = "not_whitelisted_login"
	AttemptReasonBanned              = "banned"
	AttemptReasonNotWhitelisted      = "not_whitelisted"
)
