package repository

import (
	"context"
	"errors"
	"fmt"

	"streambet/database"
	"streambet/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository implements the WalletRepository interface
type WalletRepository struct {
	q queryable
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *database.DB) *WalletRepository {
	return &WalletRepository{q: db.Pool}
}

func newWalletRepositoryWithTx(tx queryable) *WalletRepository {
	return &WalletRepository{q: tx}
}

// Create creates a wallet with a seed balance
func (r *WalletRepository) Create(ctx context.Context, userID uuid.UUID, balance int64) (*models.Wallet, error) {
	query := `
		INSERT INTO wallets (user_id, balance)
		VALUES ($1, $2)
		RETURNING user_id, balance, updated_at
	`

	var wallet models.Wallet
	err := r.q.QueryRow(ctx, query, userID, balance).Scan(&wallet.UserID, &wallet.Balance, &wallet.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet for user %s: %w", userID, err)
	}
	return &wallet, nil
}

// GetByUserID reads a wallet without locking
func (r *WalletRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return r.get(ctx, `SELECT user_id, balance, updated_at FROM wallets WHERE user_id = $1`, userID)
}

// GetForUpdate reads a wallet and holds its row lock until the transaction ends
func (r *WalletRepository) GetForUpdate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return r.get(ctx, `SELECT user_id, balance, updated_at FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
}

func (r *WalletRepository) get(ctx context.Context, query string, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.q.QueryRow(ctx, query, userID).Scan(&wallet.UserID, &wallet.Balance, &wallet.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet for user %s: %w", userID, err)
	}
	return &wallet, nil
}

// UpdateBalance sets the balance of a wallet
func (r *WalletRepository) UpdateBalance(ctx context.Context, userID uuid.UUID, newBalance int64) error {
	query := `
		UPDATE wallets
		SET balance = $1, updated_at = NOW()
		WHERE user_id = $2
	`

	result, err := r.q.Exec(ctx, query, newBalance, userID)
	if err != nil {
		return fmt.Errorf("failed to update balance for user %s: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("wallet for user %s not found", userID)
	}
	return nil
}
