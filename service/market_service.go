package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"streambet/events"
	"streambet/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	statsTopWagers     = 5
	defaultMarketLimit = 50
	defaultWagerLimit  = 100
)

type marketService struct {
	uowFactory UnitOfWorkFactory
	now        func() time.Time
}

// NewMarketService creates a new market service
func NewMarketService(uowFactory UnitOfWorkFactory) MarketService {
	return &marketService{
		uowFactory: uowFactory,
		now:        time.Now,
	}
}

// GetMarket returns a market with its outcomes
func (s *marketService) GetMarket(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	market, err := uow.MarketRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get market: %w", err)
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}
	return market, nil
}

// ListMarkets returns markets, latest start time first
func (s *marketService) ListMarkets(ctx context.Context, limit, offset int) ([]*models.Market, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if offset < 0 {
		offset = 0
	}
	markets, err := uow.MarketRepository().List(ctx, clampLimit(limit, defaultMarketLimit), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	return markets, nil
}

// CreateMarket validates and inserts a market with its outcomes
func (s *marketService) CreateMarket(ctx context.Context, input *models.NewMarket, createdBy *uuid.UUID) (*models.Market, error) {
	if err := normalizeNewMarket(input); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	market, err := uow.MarketRepository().Create(ctx, input, createdBy)
	if err != nil {
		return nil, fmt.Errorf("failed to create market: %w", err)
	}

	uow.EventBus().Publish(events.MarketUpdatedEvent{
		MarketID:        market.ID,
		Status:          market.Status,
		BettingLockedAt: market.BettingLockedAt,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"marketID": market.ID,
		"title":    market.Title,
		"outcomes": len(market.Outcomes),
	}).Info("Market created")

	return market, nil
}

// UpdateMarket applies a partial update. Finished markets are immutable.
func (s *marketService) UpdateMarket(ctx context.Context, id uuid.UUID, patch models.MarketPatch) (*models.Market, error) {
	if patch.StreamType != nil && !patch.StreamType.IsValid() {
		return nil, fmt.Errorf("%w: unknown stream type %q", ErrInvalidMarketFields, *patch.StreamType)
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidMarketFields)
	}

	return s.mutate(ctx, id, func(market *models.Market) error {
		patch.Apply(market)
		return nil
	})
}

// SetStatus moves a market between SCHEDULED and LIVE. FINISHED is only
// reachable through settlement and is never left.
func (s *marketService) SetStatus(ctx context.Context, id uuid.UUID, status models.MarketStatus) (*models.Market, error) {
	if !status.IsValid() || status == models.MarketStatusFinished {
		return nil, ErrInvalidStatus
	}

	return s.mutate(ctx, id, func(market *models.Market) error {
		market.Status = status
		return nil
	})
}

// LockBetting closes betting immediately
func (s *marketService) LockBetting(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	return s.mutate(ctx, id, func(market *models.Market) error {
		now := s.now()
		if now.Before(market.BettingLockedAt) {
			market.BettingLockedAt = now
		}
		return nil
	})
}

// mutate locks a non-finished market, applies fn and persists the result
func (s *marketService) mutate(ctx context.Context, id uuid.UUID, fn func(*models.Market) error) (*models.Market, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	market, err := uow.MarketRepository().GetForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock market: %w", err)
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}
	if market.IsFinished() {
		return nil, ErrMarketFinished
	}

	if err := fn(market); err != nil {
		return nil, err
	}

	if err := uow.MarketRepository().Update(ctx, market); err != nil {
		return nil, fmt.Errorf("failed to update market: %w", err)
	}

	uow.EventBus().Publish(events.MarketUpdatedEvent{
		MarketID:        market.ID,
		Status:          market.Status,
		BettingLockedAt: market.BettingLockedAt,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return market, nil
}

// GetStats aggregates the wagers placed on a market
func (s *marketService) GetStats(ctx context.Context, id uuid.UUID) (*models.MarketStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	market, err := uow.MarketRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get market: %w", err)
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}

	stats, err := uow.MarketRepository().GetStats(ctx, id, statsTopWagers)
	if err != nil {
		return nil, fmt.Errorf("failed to get market stats: %w", err)
	}
	return stats, nil
}

// ListWagers returns wagers matching the filter, newest first
func (s *marketService) ListWagers(ctx context.Context, filter WagerFilter) ([]*models.Wager, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	filter.Limit = clampLimit(filter.Limit, defaultWagerLimit)
	wagers, err := uow.WagerRepository().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list wagers: %w", err)
	}
	return wagers, nil
}

func normalizeNewMarket(input *models.NewMarket) error {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidMarketFields)
	}
	if !input.StreamType.IsValid() {
		return fmt.Errorf("%w: unknown stream type %q", ErrInvalidMarketFields, input.StreamType)
	}
	if strings.TrimSpace(input.StreamURL) == "" {
		return fmt.Errorf("%w: stream url is required", ErrInvalidMarketFields)
	}
	if input.StartTime.IsZero() {
		return fmt.Errorf("%w: start time is required", ErrInvalidMarketFields)
	}
	if input.BettingLockedAt.IsZero() {
		input.BettingLockedAt = input.StartTime
	}

	switch input.Status {
	case "":
		input.Status = models.MarketStatusScheduled
	case models.MarketStatusScheduled, models.MarketStatusLive:
	default:
		return ErrInvalidStatus
	}

	named := 0
	for i := range input.Outcomes {
		input.Outcomes[i].Name = strings.TrimSpace(input.Outcomes[i].Name)
		if input.Outcomes[i].Name != "" {
			named++
		}
	}
	if named != len(input.Outcomes) {
		return fmt.Errorf("%w: outcome name is required", ErrInvalidMarketFields)
	}
	if named < 2 {
		return ErrTooFewOutcomes
	}
	return nil
}
