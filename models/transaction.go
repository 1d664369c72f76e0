package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the reason a wallet balance changed
type TransactionType string

const (
	TransactionTypeBet         TransactionType = "BET"
	TransactionTypeWin         TransactionType = "WIN"
	TransactionTypeRefund      TransactionType = "REFUND"
	TransactionTypeAdminAdjust TransactionType = "ADMIN_ADJUST"
)

// Transaction is one append-only ledger row. Amount is signed and equals the
// balance delta it explains.
type Transaction struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	UserID       uuid.UUID       `db:"user_id" json:"user_id"`
	Type         TransactionType `db:"type" json:"type"`
	Amount       int64           `db:"amount" json:"amount"`
	MarketID     *uuid.UUID      `db:"market_id" json:"market_id,omitempty"`
	Reason       *string         `db:"reason" json:"reason,omitempty"`
	BalanceAfter int64           `db:"balance_after" json:"balance_after"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
