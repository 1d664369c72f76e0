package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole is the authorization level of a user
type UserRole string

const (
	UserRoleAdmin UserRole = "ADMIN"
	UserRoleUser  UserRole = "USER"
)

// User represents a Telegram-authenticated user
type User struct {
	ID            uuid.UUID `db:"id" json:"id"`
	TelegramID    int64     `db:"telegram_id" json:"telegram_id"`
	Username      *string   `db:"username" json:"username,omitempty"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      *string   `db:"last_name" json:"last_name,omitempty"`
	PhotoURL      *string   `db:"photo_url" json:"photo_url,omitempty"`
	Role          UserRole  `db:"role" json:"role"`
	IsWhitelisted bool      `db:"is_whitelisted" json:"is_whitelisted"`
	IsBanned      bool      `db:"is_banned" json:"is_banned"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// HasAccess reports whether the user may use member endpoints.
// Admins bypass the whitelist but not a ban.
func (u *User) HasAccess() bool {
	if u.IsBanned {
		return false
	}
	return u.IsWhitelisted || u.IsAdmin()
}

// DisplayName returns the best available human readable name
func (u *User) DisplayName() string {
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	return u.FirstName
}

// TelegramProfile is the profile data carried by a Telegram login
type TelegramProfile struct {
	TelegramID int64
	Username   *string
	FirstName  string
	LastName   *string
	PhotoURL   *string
}

// TelegramIDPtr returns the Telegram id, or nil when it is unknown
func (p TelegramProfile) TelegramIDPtr() *int64 {
	if p.TelegramID == 0 {
		return nil
	}
	id := p.TelegramID
	return &id
}

// UserPatch is a partial update of a user; nil fields are left unchanged
type UserPatch struct {
	Username      *string   `json:"username,omitempty"`
	FirstName     *string   `json:"first_name,omitempty"`
	LastName      *string   `json:"last_name,omitempty"`
	Role          *UserRole `json:"role,omitempty"`
	IsWhitelisted *bool     `json:"is_whitelisted,omitempty"`
	IsBanned      *bool     `json:"is_banned,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p UserPatch) IsEmpty() bool {
	return p.Username == nil && p.FirstName == nil && p.LastName == nil &&
		p.Role == nil && p.IsWhitelisted == nil && p.IsBanned == nil
}

// Apply copies the set fields onto u
func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = p.Username
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = p.LastName
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsWhitelisted != nil {
		u.IsWhitelisted = *p.IsWhitelisted
	}
	if p.IsBanned != nil {
		u.IsBanned = *p.IsBanned
	}
}
