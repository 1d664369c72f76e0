package repository

import (
	"context"
	"testing"
	"time"

	"streambet/events"
	"streambet/models"
	"streambet/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	bus := events.NewBus()
	received := make(chan events.Event, 10)
	bus.Subscribe(events.EventTypeBalanceChange, func(ctx context.Context, e events.Event) {
		received <- e
	})

	factory := NewUnitOfWorkFactory(testDB.DB, bus)
	user := testutil.SeedUser(t, testDB.DB, "uow_user", 100)

	t.Run("accessors panic before begin", func(t *testing.T) {
		uow := factory.Create()
		assert.Panics(t, func() { uow.WalletRepository() })
	})

	t.Run("commit persists and flushes events", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		require.NoError(t, uow.WalletRepository().UpdateBalance(ctx, user.ID, 150))
		uow.EventBus().Publish(events.BalanceChangeEvent{UserID: user.ID, OldBalance: 100, NewBalance: 150})

		// nothing leaves before commit
		select {
		case <-received:
			t.Fatal("event delivered before commit")
		case <-time.After(50 * time.Millisecond):
		}

		require.NoError(t, uow.Commit())
		assert.Equal(t, int64(150), testutil.WalletBalance(t, testDB.DB, user.ID))

		select {
		case e := <-received:
			assert.Equal(t, events.EventTypeBalanceChange, e.Type())
		case <-time.After(time.Second):
			t.Fatal("event not delivered after commit")
		}
	})

	t.Run("rollback discards writes and events", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))

		require.NoError(t, uow.WalletRepository().UpdateBalance(ctx, user.ID, 0))
		uow.EventBus().Publish(events.BalanceChangeEvent{UserID: user.ID, OldBalance: 150, NewBalance: 0})
		require.NoError(t, uow.Rollback())

		assert.Equal(t, int64(150), testutil.WalletBalance(t, testDB.DB, user.ID))
		select {
		case <-received:
			t.Fatal("event delivered after rollback")
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("rollback after commit is a no-op", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		require.NoError(t, uow.Commit())
		assert.NoError(t, uow.Rollback())
		assert.Error(t, uow.Commit())
	})

	t.Run("double begin", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()
		assert.Error(t, uow.Begin(ctx))
	})

	t.Run("repositories share the transaction", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		wallet, err := uow.WalletRepository().GetForUpdate(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, wallet)

		require.NoError(t, uow.TransactionRepository().Record(ctx, &models.Transaction{
			UserID:       user.ID,
			Type:         models.TransactionTypeAdminAdjust,
			Amount:       -50,
			BalanceAfter: wallet.Balance - 50,
		}))
		require.NoError(t, uow.WalletRepository().UpdateBalance(ctx, user.ID, wallet.Balance-50))

		sum, err := uow.TransactionRepository().SumByUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(-50), sum)

		// not yet visible outside the transaction
		assert.Equal(t, int64(150), testutil.WalletBalance(t, testDB.DB, user.ID))
		assert.Zero(t, testutil.LedgerSum(t, testDB.DB, user.ID))
	})
}
