package models

import (
	"time"

	"github.com/google/uuid"
)

// StreamType is the kind of embedded stream shown for a market
type StreamType string

const (
	StreamTypeYouTube StreamType = "YOUTUBE"
	StreamTypeTwitch  StreamType = "TWITCH"
	StreamTypeHLS     StreamType = "HLS"
	StreamTypeIframe  StreamType = "IFRAME"
)

// IsValid reports whether t is a known stream type
func (t StreamType) IsValid() bool {
	switch t {
	case StreamTypeYouTube, StreamTypeTwitch, StreamTypeHLS, StreamTypeIframe:
		return true
	}
	return false
}

// MarketStatus represents the lifecycle state of a market
type MarketStatus string

const (
	MarketStatusScheduled MarketStatus = "SCHEDULED"
	MarketStatusLive      MarketStatus = "LIVE"
	MarketStatusFinished  MarketStatus = "FINISHED"
)

// IsValid reports whether s is a known market status
func (s MarketStatus) IsValid() bool {
	switch s {
	case MarketStatusScheduled, MarketStatusLive, MarketStatusFinished:
		return true
	}
	return false
}

// Market is a bettable live event (a stream) with two or more outcomes
type Market struct {
	ID              uuid.UUID    `db:"id" json:"id"`
	Title           string       `db:"title" json:"title"`
	Description     *string      `db:"description" json:"description,omitempty"`
	StreamType      StreamType   `db:"stream_type" json:"stream_type"`
	StreamURL       string       `db:"stream_url" json:"stream_url"`
	Status          MarketStatus `db:"status" json:"status"`
	StartTime       time.Time    `db:"start_time" json:"start_time"`
	BettingLockedAt time.Time    `db:"betting_locked_at" json:"betting_locked_at"`
	CreatedBy       *uuid.UUID   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	Outcomes        []*Outcome   `db:"-" json:"outcomes"`
}

// Outcome is one side of a market (a team)
type Outcome struct {
	ID       uuid.UUID `db:"id" json:"id"`
	MarketID uuid.UUID `db:"market_id" json:"market_id"`
	Name     string    `db:"name" json:"name"`
	LogoURL  *string   `db:"logo_url" json:"logo_url,omitempty"`
	Color    *string   `db:"color" json:"color,omitempty"`
	Position int16     `db:"position" json:"position"`
}

// EffectiveLockTime is the earlier of the configured lock time and the event start
func (m *Market) EffectiveLockTime() time.Time {
	if m.BettingLockedAt.Before(m.StartTime) {
		return m.BettingLockedAt
	}
	return m.StartTime
}

// IsFinished reports whether the market reached its terminal state
func (m *Market) IsFinished() bool {
	return m.Status == MarketStatusFinished
}

// IsBettingClosed reports whether a wager placed at now must be rejected
func (m *Market) IsBettingClosed(now time.Time) bool {
	if m.IsFinished() {
		return true
	}
	return !now.Before(m.EffectiveLockTime())
}

// HasOutcome reports whether outcomeID belongs to this market.
// Outcomes must be loaded.
func (m *Market) HasOutcome(outcomeID uuid.UUID) bool {
	for _, o := range m.Outcomes {
		if o.ID == outcomeID {
			return true
		}
	}
	return false
}

// NewOutcome describes an outcome to create with a market
type NewOutcome struct {
	Name    string  `json:"name"`
	LogoURL *string `json:"logo_url,omitempty"`
	Color   *string `json:"color,omitempty"`
}

// NewMarket describes a market to create
type NewMarket struct {
	Title           string       `json:"title"`
	Description     *string      `json:"description,omitempty"`
	StreamType      StreamType   `json:"stream_type"`
	StreamURL       string       `json:"stream_url"`
	Status          MarketStatus `json:"status"`
	StartTime       time.Time    `json:"start_time"`
	BettingLockedAt time.Time    `json:"betting_locked_at"`
	Outcomes        []NewOutcome `json:"outcomes"`
}

// MarketPatch is a partial update of a market; nil fields are left unchanged
type MarketPatch struct {
	Title           *string     `json:"title,omitempty"`
	Description     *string     `json:"description,omitempty"`
	StreamType      *StreamType `json:"stream_type,omitempty"`
	StreamURL       *string     `json:"stream_url,omitempty"`
	StartTime       *time.Time  `json:"start_time,omitempty"`
	BettingLockedAt *time.Time  `json:"betting_locked_at,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p MarketPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.StreamType == nil &&
		p.StreamURL == nil && p.StartTime == nil && p.BettingLockedAt == nil
}

// Apply copies the set fields onto m
func (p MarketPatch) Apply(m *Market) {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Description != nil {
		m.Description = p.Description
	}
	if p.StreamType != nil {
		m.StreamType = *p.StreamType
	}
	if p.StreamURL != nil {
		m.StreamURL = *p.StreamURL
	}
	if p.StartTime != nil {
		m.StartTime = *p.StartTime
	}
	if p.BettingLockedAt != nil {
		m.BettingLockedAt = *p.BettingLockedAt
	}
}
