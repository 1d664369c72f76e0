package service

import (
	"context"
	"fmt"

	"streambet/events"
	"streambet/models"

	"github.com/google/uuid"
)

// LedgerEntry describes one signed wallet balance change
type LedgerEntry struct {
	UserID   uuid.UUID
	Type     models.TransactionType
	Amount   int64
	MarketID *uuid.UUID
	Reason   string
}

// ApplyWalletDelta locks the wallet, applies the delta and records exactly one
// transaction explaining it. This is the single entry point for all balance
// changes in the system and must run inside the caller's unit of work.
func ApplyWalletDelta(ctx context.Context, uow UnitOfWork, entry LedgerEntry) (*models.Transaction, error) {
	if entry.Amount == 0 {
		return nil, ErrInvalidAmount
	}

	wallet, err := uow.WalletRepository().GetForUpdate(ctx, entry.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	if wallet == nil {
		return nil, ErrWalletNotFound
	}

	newBalance := wallet.Balance + entry.Amount
	if newBalance < 0 {
		return nil, ErrInsufficientBalance
	}

	if err := uow.WalletRepository().UpdateBalance(ctx, entry.UserID, newBalance); err != nil {
		return nil, fmt.Errorf("failed to update wallet balance: %w", err)
	}

	tx := &models.Transaction{
		UserID:       entry.UserID,
		Type:         entry.Type,
		Amount:       entry.Amount,
		MarketID:     entry.MarketID,
		BalanceAfter: newBalance,
	}
	if entry.Reason != "" {
		reason := entry.Reason
		tx.Reason = &reason
	}
	if err := uow.TransactionRepository().Record(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	// flushed after commit
	uow.EventBus().Publish(events.BalanceChangeEvent{
		UserID:          entry.UserID,
		MarketID:        entry.MarketID,
		OldBalance:      wallet.Balance,
		NewBalance:      newBalance,
		TransactionType: entry.Type,
		ChangeAmount:    entry.Amount,
	})

	return tx, nil
}
