package models

import (
	"time"

	"github.com/google/uuid"
)

// WagerStatus represents the state of a wager
type WagerStatus string

const (
	WagerStatusActive   WagerStatus = "ACTIVE"
	WagerStatusWon      WagerStatus = "WON"
	WagerStatusLost     WagerStatus = "LOST"
	WagerStatusRefunded WagerStatus = "REFUNDED"
)

// IsTerminal reports whether the status can no longer change
func (s WagerStatus) IsTerminal() bool {
	return s == WagerStatusWon || s == WagerStatusLost || s == WagerStatusRefunded
}

// Wager is a single user's stake on one outcome of one market
type Wager struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	UserID    uuid.UUID   `db:"user_id" json:"user_id"`
	MarketID  uuid.UUID   `db:"market_id" json:"market_id"`
	OutcomeID uuid.UUID   `db:"outcome_id" json:"outcome_id"`
	Amount    int64       `db:"amount" json:"amount"`
	Status    WagerStatus `db:"status" json:"status"`
	Payout    *int64      `db:"payout" json:"payout,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	SettledAt *time.Time  `db:"settled_at" json:"settled_at,omitempty"`
}

// WagerSettlement is the computed terminal state of one wager.
// Credit is the amount returned to the owner's wallet (0 for a loss).
type WagerSettlement struct {
	Wager  *Wager
	Status WagerStatus
	Credit int64
}

// SettlementResult summarizes one settlement of a market
type SettlementResult struct {
	MarketID         uuid.UUID
	WinningOutcomeID uuid.UUID
	TotalPool        int64
	WinningPool      int64
	LosingPool       int64
	TotalPaid        int64
	Remainder        int64 // losing pool units kept by floor rounding
	Refunded         bool  // no wager backed the winner
	AlreadyFinished  bool  // market was FINISHED before this call; nothing changed
	Settlements      []*WagerSettlement
}

// CountByStatus returns how many wagers ended in status
func (r *SettlementResult) CountByStatus(status WagerStatus) int {
	count := 0
	for _, s := range r.Settlements {
		if s.Status == status {
			count++
		}
	}
	return count
}
