package service

import (
	"context"
	"errors"
	"fmt"

	"streambet/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	defaultTransactionLimit = 50
	maxListLimit            = 200
)

type walletService struct {
	uowFactory UnitOfWorkFactory
}

// NewWalletService creates a new wallet service
func NewWalletService(uowFactory UnitOfWorkFactory) WalletService {
	return &walletService{uowFactory: uowFactory}
}

// GetBalance returns the current wallet of a user
func (s *walletService) GetBalance(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	wallet, err := uow.WalletRepository().GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	if wallet == nil {
		return nil, ErrWalletNotFound
	}
	return wallet, nil
}

// GetTransactions returns the newest ledger rows of a user
func (s *walletService) GetTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Transaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txs, err := uow.TransactionRepository().ListByUser(ctx, userID, clampLimit(limit, defaultTransactionLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

// AdjustBalance applies a signed admin adjustment through the ledger
func (s *walletService) AdjustBalance(ctx context.Context, userID uuid.UUID, amount int64, reason string) (*models.Wallet, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if reason == "" {
		reason = "admin adjustment"
	}
	tx, err := ApplyWalletDelta(ctx, uow, LedgerEntry{
		UserID: userID,
		Type:   models.TransactionTypeAdminAdjust,
		Amount: amount,
		Reason: reason,
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrWalletNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to adjust balance: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":       userID,
		"amount":       amount,
		"balanceAfter": tx.BalanceAfter,
		"reason":       reason,
	}).Info("Balance adjusted by admin")

	return &models.Wallet{UserID: userID, Balance: tx.BalanceAfter}, nil
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
