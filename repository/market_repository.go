package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"streambet/database"
	"streambet/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const marketColumns = `id, title, description, stream_type, stream_url, status, start_time, betting_locked_at, created_by, created_at`

// MarketRepository implements the MarketRepository interface
type MarketRepository struct {
	q queryable
}

// NewMarketRepository creates a new market repository
func NewMarketRepository(db *database.DB) *MarketRepository {
	return &MarketRepository{q: db.Pool}
}

func newMarketRepositoryWithTx(tx queryable) *MarketRepository {
	return &MarketRepository{q: tx}
}

func scanMarket(row pgx.Row) (*models.Market, error) {
	var m models.Market
	err := row.Scan(
		&m.ID,
		&m.Title,
		&m.Description,
		&m.StreamType,
		&m.StreamURL,
		&m.Status,
		&m.StartTime,
		&m.BettingLockedAt,
		&m.CreatedBy,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByID reads a market and its outcomes
func (r *MarketRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	return r.get(ctx, id, "")
}

// GetForShare reads a market holding a shared row lock. Concurrent admissions
// share it; settlement and admin changes wait for them.
func (r *MarketRepository) GetForShare(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	return r.get(ctx, id, "FOR SHARE")
}

// GetForUpdate reads a market holding an exclusive row lock
func (r *MarketRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	return r.get(ctx, id, "FOR UPDATE")
}

func (r *MarketRepository) get(ctx context.Context, id uuid.UUID, lockClause string) (*models.Market, error) {
	query := `SELECT ` + marketColumns + ` FROM markets WHERE id = $1 ` + lockClause

	market, err := scanMarket(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get market %s: %w", id, err)
	}

	outcomes, err := r.outcomesFor(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	market.Outcomes = outcomes[id]
	return market, nil
}

// outcomesFor loads the outcomes of several markets keyed by market id
func (r *MarketRepository) outcomesFor(ctx context.Context, marketIDs []uuid.UUID) (map[uuid.UUID][]*models.Outcome, error) {
	query := `
		SELECT id, market_id, name, logo_url, color, position
		FROM outcomes
		WHERE market_id = ANY($1)
		ORDER BY market_id, position, id
	`

	rows, err := r.q.Query(ctx, query, marketIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get outcomes: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]*models.Outcome, len(marketIDs))
	for rows.Next() {
		var o models.Outcome
		if err := rows.Scan(&o.ID, &o.MarketID, &o.Name, &o.LogoURL, &o.Color, &o.Position); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		result[o.MarketID] = append(result[o.MarketID], &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcomes: %w", err)
	}
	return result, nil
}

// Create inserts a market and its outcomes
func (r *MarketRepository) Create(ctx context.Context, input *models.NewMarket, createdBy *uuid.UUID) (*models.Market, error) {
	query := `
		INSERT INTO markets (title, description, stream_type, stream_url, status, start_time, betting_locked_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + marketColumns

	market, err := scanMarket(r.q.QueryRow(ctx, query,
		input.Title,
		input.Description,
		input.StreamType,
		input.StreamURL,
		input.Status,
		input.StartTime,
		input.BettingLockedAt,
		createdBy,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create market: %w", err)
	}

	outcomeQuery := `
		INSERT INTO outcomes (market_id, name, logo_url, color, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	market.Outcomes = make([]*models.Outcome, 0, len(input.Outcomes))
	for i, in := range input.Outcomes {
		outcome := &models.Outcome{
			MarketID: market.ID,
			Name:     in.Name,
			LogoURL:  in.LogoURL,
			Color:    in.Color,
			Position: int16(i),
		}
		err := r.q.QueryRow(ctx, outcomeQuery,
			outcome.MarketID,
			outcome.Name,
			outcome.LogoURL,
			outcome.Color,
			outcome.Position,
		).Scan(&outcome.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create outcome %q: %w", in.Name, err)
		}
		market.Outcomes = append(market.Outcomes, outcome)
	}

	return market, nil
}

// Update persists the mutable fields of a market
func (r *MarketRepository) Update(ctx context.Context, market *models.Market) error {
	query := `
		UPDATE markets
		SET title = $2,
		    description = $3,
		    stream_type = $4,
		    stream_url = $5,
		    status = $6,
		    start_time = $7,
		    betting_locked_at = $8
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query,
		market.ID,
		market.Title,
		market.Description,
		market.StreamType,
		market.StreamURL,
		market.Status,
		market.StartTime,
		market.BettingLockedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update market %s: %w", market.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("market %s not found", market.ID)
	}
	return nil
}

// Finalize marks a market FINISHED and closes betting at lockedAt
func (r *MarketRepository) Finalize(ctx context.Context, id uuid.UUID, lockedAt time.Time) error {
	query := `
		UPDATE markets
		SET status = $2, betting_locked_at = $3
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, id, models.MarketStatusFinished, lockedAt)
	if err != nil {
		return fmt.Errorf("failed to finalize market %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("market %s not found", id)
	}
	return nil
}

// List returns markets with their outcomes, latest start time first
func (r *MarketRepository) List(ctx context.Context, limit, offset int) ([]*models.Market, error) {
	query := `SELECT ` + marketColumns + ` FROM markets ORDER BY start_time DESC, id LIMIT $1 OFFSET $2`

	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}

	markets := make([]*models.Market, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		market, err := scanMarket(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan market: %w", err)
		}
		markets = append(markets, market)
		ids = append(ids, market.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating markets: %w", err)
	}

	if len(ids) == 0 {
		return markets, nil
	}

	outcomes, err := r.outcomesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range markets {
		m.Outcomes = outcomes[m.ID]
	}
	return markets, nil
}

// GetStats aggregates every wager placed on a market
func (r *MarketRepository) GetStats(ctx context.Context, id uuid.UUID, topN int) (*models.MarketStats, error) {
	stats := &models.MarketStats{MarketID: id}

	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::BIGINT, COUNT(DISTINCT user_id)
		FROM wagers
		WHERE market_id = $1
	`, id).Scan(&stats.TotalAmount, &stats.BettorsCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get market totals: %w", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT o.id, o.name, COALESCE(SUM(w.amount), 0)::BIGINT
		FROM outcomes o
		LEFT JOIN wagers w ON w.outcome_id = o.id
		WHERE o.market_id = $1
		GROUP BY o.id, o.name, o.position
		ORDER BY o.position, o.id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get outcome totals: %w", err)
	}
	stats.Outcomes = make([]*models.OutcomeStats, 0)
	for rows.Next() {
		var o models.OutcomeStats
		if err := rows.Scan(&o.OutcomeID, &o.Name, &o.Amount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan outcome totals: %w", err)
		}
		stats.Outcomes = append(stats.Outcomes, &o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcome totals: %w", err)
	}
	stats.FillPercents()

	rows, err = r.q.Query(ctx, `
		SELECT id, user_id, amount
		FROM wagers
		WHERE market_id = $1
		ORDER BY amount DESC, created_at, id
		LIMIT $2
	`, id, topN)
	if err != nil {
		return nil, fmt.Errorf("failed to get top wagers: %w", err)
	}
	defer rows.Close()

	stats.TopWagers = make([]*models.TopWager, 0, topN)
	for rows.Next() {
		var w models.TopWager
		if err := rows.Scan(&w.WagerID, &w.UserID, &w.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan top wager: %w", err)
		}
		stats.TopWagers = append(stats.TopWagers, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top wagers: %w", err)
	}

	return stats, nil
}
