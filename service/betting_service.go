package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"streambet/events"
	"streambet/models"
	"streambet/ratelimit"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type bettingService struct {
	uowFactory UnitOfWorkFactory
	limiter    RateLimiter
	now        func() time.Time
}

// NewBettingService creates the bet admission and settlement service
func NewBettingService(uowFactory UnitOfWorkFactory, limiter RateLimiter) BettingService {
	return &bettingService{
		uowFactory: uowFactory,
		limiter:    limiter,
		now:        time.Now,
	}
}

// PlaceBet admits a wager. Market checks run twice: once against an unlocked
// read to reject cheaply, and again against the row held FOR SHARE so a
// concurrent lock or settlement cannot slip between check and insert.
func (s *bettingService) PlaceBet(ctx context.Context, userID, marketID, outcomeID uuid.UUID, amount int64) (*models.Wager, error) {
	if err := checkRateLimit(ctx, s.limiter, ratelimit.BetPolicy, userID.String()); err != nil {
		return nil, err
	}

	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	market, err := s.readMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if err := validateAdmission(market, outcomeID, s.now()); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	market, err = uow.MarketRepository().GetForShare(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock market: %w", err)
	}
	if err := validateAdmission(market, outcomeID, s.now()); err != nil {
		return nil, err
	}

	// the wallet lock serializes admissions of the same user
	wallet, err := uow.WalletRepository().GetForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	if wallet == nil {
		return nil, ErrWalletNotFound
	}

	existing, err := uow.WagerRepository().GetByUserAndMarket(ctx, userID, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing wager: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateWager
	}

	if wallet.Balance < amount {
		return nil, ErrInsufficientBalance
	}

	if _, err := ApplyWalletDelta(ctx, uow, LedgerEntry{
		UserID:   userID,
		Type:     models.TransactionTypeBet,
		Amount:   -amount,
		MarketID: &marketID,
		Reason:   "bet placed",
	}); err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to debit wallet: %w", err)
	}

	wager := &models.Wager{
		UserID:    userID,
		MarketID:  marketID,
		OutcomeID: outcomeID,
		Amount:    amount,
		Status:    models.WagerStatusActive,
	}
	if err := uow.WagerRepository().Create(ctx, wager); err != nil {
		if errors.Is(err, ErrDuplicateWager) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create wager: %w", err)
	}

	uow.EventBus().Publish(events.WagerPlacedEvent{
		WagerID:   wager.ID,
		UserID:    userID,
		MarketID:  marketID,
		OutcomeID: outcomeID,
		Amount:    amount,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"wagerID":   wager.ID,
		"userID":    userID,
		"marketID":  marketID,
		"outcomeID": outcomeID,
		"amount":    amount,
	}).Debug("Wager placed")

	return wager, nil
}

// Settle resolves every ACTIVE wager of a market in one unit of work and
// finishes the market. Settling a FINISHED market changes nothing.
func (s *bettingService) Settle(ctx context.Context, marketID, winningOutcomeID uuid.UUID) (*models.SettlementResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	market, err := uow.MarketRepository().GetForUpdate(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock market: %w", err)
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}
	if !market.HasOutcome(winningOutcomeID) {
		return nil, ErrInvalidOutcome
	}

	if market.IsFinished() {
		log.WithFields(log.Fields{
			"marketID": marketID,
		}).Info("Market already finished, settlement skipped")
		return &models.SettlementResult{
			MarketID:         marketID,
			WinningOutcomeID: winningOutcomeID,
			AlreadyFinished:  true,
		}, nil
	}

	// ordered by user id so wallet credits below lock in a consistent order
	wagers, err := uow.WagerRepository().ListActiveForUpdate(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock active wagers: %w", err)
	}

	result := ComputeSettlement(wagers, winningOutcomeID)
	result.MarketID = marketID
	settledAt := s.now()

	for _, ws := range result.Settlements {
		if err := uow.WagerRepository().MarkSettled(ctx, ws.Wager.ID, ws.Status, ws.Credit, settledAt); err != nil {
			return nil, fmt.Errorf("failed to settle wager %s: %w", ws.Wager.ID, err)
		}
		ws.Wager.Status = ws.Status
		payout := ws.Credit
		ws.Wager.Payout = &payout
		ws.Wager.SettledAt = &settledAt

		if ws.Credit == 0 {
			continue
		}

		txType := models.TransactionTypeWin
		reason := "market won"
		if ws.Status == models.WagerStatusRefunded {
			txType = models.TransactionTypeRefund
			reason = "market refunded"
		}
		if _, err := ApplyWalletDelta(ctx, uow, LedgerEntry{
			UserID:   ws.Wager.UserID,
			Type:     txType,
			Amount:   ws.Credit,
			MarketID: &marketID,
			Reason:   reason,
		}); err != nil {
			return nil, fmt.Errorf("failed to credit wallet of user %s: %w", ws.Wager.UserID, err)
		}
	}

	if err := uow.MarketRepository().Finalize(ctx, marketID, settledAt); err != nil {
		return nil, fmt.Errorf("failed to finalize market: %w", err)
	}

	uow.EventBus().Publish(events.MarketSettledEvent{
		MarketID:         marketID,
		WinningOutcomeID: winningOutcomeID,
		TotalPool:        result.TotalPool,
		TotalPaid:        result.TotalPaid,
		Remainder:        result.Remainder,
		Refunded:         result.Refunded,
		WagerCount:       len(result.Settlements),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"marketID":         marketID,
		"winningOutcomeID": winningOutcomeID,
		"totalPool":        result.TotalPool,
		"totalPaid":        result.TotalPaid,
		"remainder":        result.Remainder,
		"refunded":         result.Refunded,
		"wagers":           len(result.Settlements),
	}).Info("Market settled")

	return result, nil
}

// readMarket loads a market outside of any lock
func (s *bettingService) readMarket(ctx context.Context, marketID uuid.UUID) (*models.Market, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	market, err := uow.MarketRepository().GetByID(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get market: %w", err)
	}
	return market, nil
}

func validateAdmission(market *models.Market, outcomeID uuid.UUID, now time.Time) error {
	if market == nil {
		return ErrMarketNotFound
	}
	if market.IsBettingClosed(now) {
		return ErrBettingClosed
	}
	if !market.HasOutcome(outcomeID) {
		return ErrInvalidOutcome
	}
	return nil
}

// checkRateLimit applies a policy; store failures are logged and the
// limiter's configured fallback decides.
func checkRateLimit(ctx context.Context, limiter RateLimiter, policy ratelimit.Policy, identity string) error {
	if limiter == nil {
		return nil
	}

	allowed, err := limiter.Hit(ctx, policy.Key(identity), policy.Limit, policy.Window)
	if err != nil {
		log.WithFields(log.Fields{
			"policy":   policy.Prefix,
			"identity": identity,
			"allowed":  allowed,
			"error":    err,
		}).Warn("Rate limiter store unavailable")
	}
	if !allowed {
		return ErrRateLimited
	}
	return nil
}
