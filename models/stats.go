package models

import (
	"github.com/google/uuid"
)

// OutcomeStats aggregates the wagers placed on one outcome
type OutcomeStats struct {
	OutcomeID uuid.UUID `json:"outcome_id"`
	Name      string    `json:"name"`
	Amount    int64     `json:"amount"`
	Percent   float64   `json:"percent"`
}

// TopWager is an entry of the largest wagers list
type TopWager struct {
	WagerID uuid.UUID `json:"wager_id"`
	UserID  uuid.UUID `json:"user_id"`
	Amount  int64     `json:"amount"`
}

// MarketStats summarizes all wagers on a market
type MarketStats struct {
	MarketID     uuid.UUID       `json:"market_id"`
	TotalAmount  int64           `json:"total_amount"`
	BettorsCount int             `json:"bettors_count"`
	Outcomes     []*OutcomeStats `json:"outcomes"`
	TopWagers    []*TopWager     `json:"top_wagers"`
}

// FillPercents sets each outcome's share of the total amount
func (s *MarketStats) FillPercents() {
	for _, o := range s.Outcomes {
		if s.TotalAmount == 0 {
			o.Percent = 0
			continue
		}
		o.Percent = float64(o.Amount) / float64(s.TotalAmount) * 100
	}
}
