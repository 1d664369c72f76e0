package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"streambet/database"
	"streambet/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

var telegramSeq int64 = 1_000_000

// NextTelegramID returns a unique Telegram id for test users
func NextTelegramID() int64 {
	return atomic.AddInt64(&telegramSeq, 1)
}

// CreateTestProfile builds a Telegram profile with a unique id
func CreateTestProfile(name string) models.TelegramProfile {
	username := name
	return models.TelegramProfile{
		TelegramID: NextTelegramID(),
		Username:   &username,
		FirstName:  name,
	}
}

// CreateTestNewMarket builds a market input with the given outcome names
// whose betting closes an hour from now
func CreateTestNewMarket(title string, outcomes ...string) *models.NewMarket {
	start := time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond)
	input := &models.NewMarket{
		Title:           title,
		StreamType:      models.StreamTypeTwitch,
		StreamURL:       "https://twitch.tv/test",
		Status:          models.MarketStatusScheduled,
		StartTime:       start,
		BettingLockedAt: start,
	}
	for _, name := range outcomes {
		input.Outcomes = append(input.Outcomes, models.NewOutcome{Name: name})
	}
	return input
}

// SeedUser inserts a whitelisted user with a wallet of balance
func SeedUser(t *testing.T, db *database.DB, name string, balance int64) *models.User {
	t.Helper()
	ctx := context.Background()

	profile := CreateTestProfile(name)
	var user models.User
	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO users (telegram_id, username, first_name, role, is_whitelisted)
			VALUES ($1, $2, $3, 'USER', TRUE)
			RETURNING id, telegram_id, username, first_name, role, is_whitelisted, is_banned, created_at
		`, profile.TelegramID, profile.Username, profile.FirstName).Scan(
			&user.ID, &user.TelegramID, &user.Username, &user.FirstName,
			&user.Role, &user.IsWhitelisted, &user.IsBanned, &user.CreatedAt,
		)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `INSERT INTO wallets (user_id, balance) VALUES ($1, $2)`, user.ID, balance)
		return err
	})
	require.NoError(t, err)

	return &user
}

// SeedMarket inserts an open market with the named outcomes
func SeedMarket(t *testing.T, db *database.DB, outcomes ...string) *models.Market {
	t.Helper()
	ctx := context.Background()

	if len(outcomes) == 0 {
		outcomes = []string{"Home", "Away"}
	}
	input := CreateTestNewMarket(fmt.Sprintf("market-%s", uuid.NewString()[:8]), outcomes...)

	market := &models.Market{
		Title:           input.Title,
		StreamType:      input.StreamType,
		StreamURL:       input.StreamURL,
		Status:          input.Status,
		StartTime:       input.StartTime,
		BettingLockedAt: input.BettingLockedAt,
	}
	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO markets (title, stream_type, stream_url, status, start_time, betting_locked_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at
		`, market.Title, market.StreamType, market.StreamURL, market.Status, market.StartTime, market.BettingLockedAt).Scan(&market.ID, &market.CreatedAt)
		if err != nil {
			return err
		}

		for i, name := range outcomes {
			outcome := &models.Outcome{MarketID: market.ID, Name: name, Position: int16(i)}
			err := tx.QueryRow(ctx, `
				INSERT INTO outcomes (market_id, name, position) VALUES ($1, $2, $3) RETURNING id
			`, market.ID, name, outcome.Position).Scan(&outcome.ID)
			if err != nil {
				return err
			}
			market.Outcomes = append(market.Outcomes, outcome)
		}
		return nil
	})
	require.NoError(t, err)

	return market
}

// WalletBalance reads a wallet balance directly
func WalletBalance(t *testing.T, db *database.DB, userID uuid.UUID) int64 {
	t.Helper()
	var balance int64
	err := db.Pool.QueryRow(context.Background(), `SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&balance)
	require.NoError(t, err)
	return balance
}

// LedgerSum returns the sum of signed transaction amounts of a user
func LedgerSum(t *testing.T, db *database.DB, userID uuid.UUID) int64 {
	t.Helper()
	var sum int64
	err := db.Pool.QueryRow(context.Background(), `SELECT COALESCE(SUM(amount), 0)::BIGINT FROM transactions WHERE user_id = $1`, userID).Scan(&sum)
	require.NoError(t, err)
	return sum
}
