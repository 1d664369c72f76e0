package service

import (
	"context"
	"testing"

	"streambet/events"
	"streambet/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWalletService_GetBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("existing wallet", func(t *testing.T) {
		m := NewTestMocks().ExpectTransaction()
		m.Wallets.On("GetByUserID", ctx, testUserID).Return(&models.Wallet{UserID: testUserID, Balance: 42}, nil)

		wallet, err := NewWalletService(m.Factory).GetBalance(ctx, testUserID)
		require.NoError(t, err)
		assert.Equal(t, int64(42), wallet.Balance)
	})

	t.Run("missing wallet", func(t *testing.T) {
		m := NewTestMocks().ExpectTransaction()
		m.Wallets.On("GetByUserID", ctx, testUserID).Return(nil, nil)

		_, err := NewWalletService(m.Factory).GetBalance(ctx, testUserID)
		assert.ErrorIs(t, err, ErrWalletNotFound)
	})
}

func TestWalletService_GetTransactions_ClampsLimit(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		requested int
		expected  int
	}{
		{0, defaultTransactionLimit},
		{-3, defaultTransactionLimit},
		{10, 10},
		{5000, maxListLimit},
	}

	for _, tt := range tests {
		m := NewTestMocks().ExpectTransaction()
		m.Transactions.On("ListByUser", ctx, testUserID, tt.expected).Return([]*models.Transaction{}, nil)

		_, err := NewWalletService(m.Factory).GetTransactions(ctx, testUserID, tt.requested)
		require.NoError(t, err)
		m.Transactions.AssertExpectations(t)
	}
}

func TestWalletService_AdjustBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("credit", func(t *testing.T) {
		m := NewTestMocks().ExpectTransaction().AllowEvents()
		m.Wallets.On("GetForUpdate", ctx, testUserID).Return(&models.Wallet{UserID: testUserID, Balance: 100}, nil)
		m.ExpectLedgerWrite(testUserID, 100, 250, models.TransactionTypeAdminAdjust)

		wallet, err := NewWalletService(m.Factory).AdjustBalance(ctx, testUserID, 250, "")
		require.NoError(t, err)
		assert.Equal(t, int64(350), wallet.Balance)

		m.Transactions.AssertCalled(t, "Record", ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
			return tx.Reason != nil && *tx.Reason == "admin adjustment" && tx.MarketID == nil
		}))
		m.Events.AssertCalled(t, "Publish", mock.MatchedBy(func(e events.Event) bool {
			change, ok := e.(events.BalanceChangeEvent)
			return ok && change.TransactionType == models.TransactionTypeAdminAdjust && change.ChangeAmount == 250
		}))
		m.UoW.AssertCalled(t, "Commit")
	})

	t.Run("debit to zero", func(t *testing.T) {
		m := NewTestMocks().ExpectTransaction().AllowEvents()
		m.Wallets.On("GetForUpdate", ctx, testUserID).Return(&models.Wallet{UserID: testUserID, Balance: 100}, nil)
		m.ExpectLedgerWrite(testUserID, 100, -100, models.TransactionTypeAdminAdjust)

		wallet, err := NewWalletService(m.Factory).AdjustBalance(ctx, testUserID, -100, "chargeback")
		require.NoError(t, err)
		assert.Zero(t, wallet.Balance)
	})

	t.Run("debit below zero", func(t *testing.T) {
		m := NewTestMocks().ExpectTransaction()
		m.Wallets.On("GetForUpdate", ctx, testUserID).Return(&models.Wallet{UserID: testUserID, Balance: 100}, nil)

		_, err := NewWalletService(m.Factory).AdjustBalance(ctx, testUserID, -101, "")
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		m.Wallets.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
		m.UoW.AssertNotCalled(t, "Commit")
	})

	t.Run("zero amount", func(t *testing.T) {
		m := NewTestMocks()
		_, err := NewWalletService(m.Factory).AdjustBalance(ctx, testUserID, 0, "")
		assert.ErrorIs(t, err, ErrInvalidAmount)
		m.Factory.AssertNotCalled(t, "Create")
	})

	t.Run("unknown wallet", func(t *testing.T) {
		m := NewTestMocks().ExpectTransaction()
		m.Wallets.On("GetForUpdate", ctx, testUserID).Return(nil, nil)

		_, err := NewWalletService(m.Factory).AdjustBalance(ctx, testUserID, 10, "")
		assert.ErrorIs(t, err, ErrWalletNotFound)
	})
}
