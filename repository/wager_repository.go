package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"streambet/database"
	"streambet/models"
	"streambet/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	wagerColumns              = `id, user_id, market_id, outcome_id, amount, status, payout, created_at, settled_at`
	wagerUserMarketConstraint = "uq_wagers_user_market"
)

// WagerRepository implements the WagerRepository interface
type WagerRepository struct {
	q queryable
}

// NewWagerRepository creates a new wager repository
func NewWagerRepository(db *database.DB) *WagerRepository {
	return &WagerRepository{q: db.Pool}
}

func newWagerRepositoryWithTx(tx queryable) *WagerRepository {
	return &WagerRepository{q: tx}
}

func scanWager(row pgx.Row) (*models.Wager, error) {
	var w models.Wager
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.MarketID,
		&w.OutcomeID,
		&w.Amount,
		&w.Status,
		&w.Payout,
		&w.CreatedAt,
		&w.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func collectWagers(rows pgx.Rows) ([]*models.Wager, error) {
	defer rows.Close()

	wagers := make([]*models.Wager, 0)
	for rows.Next() {
		w, err := scanWager(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wager: %w", err)
		}
		wagers = append(wagers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wagers: %w", err)
	}
	return wagers, nil
}

// GetByUserAndMarket returns the wager of a user on a market, if any
func (r *WagerRepository) GetByUserAndMarket(ctx context.Context, userID, marketID uuid.UUID) (*models.Wager, error) {
	query := `SELECT ` + wagerColumns + ` FROM wagers WHERE user_id = $1 AND market_id = $2`

	w, err := scanWager(r.q.QueryRow(ctx, query, userID, marketID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wager of user %s on market %s: %w", userID, marketID, err)
	}
	return w, nil
}

// Create inserts an ACTIVE wager, filling its id and timestamp
func (r *WagerRepository) Create(ctx context.Context, wager *models.Wager) error {
	query := `
		INSERT INTO wagers (user_id, market_id, outcome_id, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		wager.UserID,
		wager.MarketID,
		wager.OutcomeID,
		wager.Amount,
		models.WagerStatusActive,
	).Scan(&wager.ID, &wager.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, wagerUserMarketConstraint) {
			return service.ErrDuplicateWager
		}
		return fmt.Errorf("failed to create wager: %w", err)
	}
	wager.Status = models.WagerStatusActive
	return nil
}

// ListActiveForUpdate locks every ACTIVE wager of a market, ordered by user id
func (r *WagerRepository) ListActiveForUpdate(ctx context.Context, marketID uuid.UUID) ([]*models.Wager, error) {
	query := `
		SELECT ` + wagerColumns + `
		FROM wagers
		WHERE market_id = $1 AND status = $2
		ORDER BY user_id
		FOR UPDATE
	`

	rows, err := r.q.Query(ctx, query, marketID, models.WagerStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to lock active wagers of market %s: %w", marketID, err)
	}
	return collectWagers(rows)
}

// MarkSettled moves an ACTIVE wager into a terminal state
func (r *WagerRepository) MarkSettled(ctx context.Context, id uuid.UUID, status models.WagerStatus, payout int64, settledAt time.Time) error {
	if !status.IsTerminal() {
		return fmt.Errorf("cannot settle wager into status %s", status)
	}

	query := `
		UPDATE wagers
		SET status = $2, payout = $3, settled_at = $4
		WHERE id = $1 AND status = $5
	`

	result, err := r.q.Exec(ctx, query, id, status, payout, settledAt, models.WagerStatusActive)
	if err != nil {
		return fmt.Errorf("failed to settle wager %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("wager %s is not active", id)
	}
	return nil
}

// List returns wagers matching the filter, newest first
func (r *WagerRepository) List(ctx context.Context, filter service.WagerFilter) ([]*models.Wager, error) {
	var conditions []string
	var args []any

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.MarketID != nil {
		args = append(args, *filter.MarketID)
		conditions = append(conditions, fmt.Sprintf("market_id = $%d", len(args)))
	}

	query := `SELECT ` + wagerColumns + ` FROM wagers`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list wagers: %w", err)
	}
	return collectWagers(rows)
}
