package api

import (
	"context"
	"time"

	"streambet/models"
	"streambet/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateToken(token string) (uuid.UUID, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) LoginWithTelegram(ctx context.Context, data map[string]string, meta models.RequestMeta) (string, *models.User, error) {
	args := m.Called(ctx, data, meta)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*models.User), args.Error(2)
}

func (m *MockAuthService) EnforceWhitelisted(ctx context.Context, user *models.User, meta models.RequestMeta, endpoint string) error {
	args := m.Called(ctx, user, meta, endpoint)
	return args.Error(0)
}

func (m *MockAuthService) RequireAdmin(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockAuthService) ListUnauthorizedAttempts(ctx context.Context, filter models.AttemptFilter, limit int) ([]*models.UnauthorizedAttempt, error) {
	args := m.Called(ctx, filter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UnauthorizedAttempt), args.Error(1)
}

func (m *MockAuthService) ListLogins(ctx context.Context, limit int) ([]*models.LoginLog, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LoginLog), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) user(args mock.Arguments) (*models.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *MockUserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserService) WhitelistUser(ctx context.Context, profile models.TelegramProfile) (*models.User, error) {
	return m.user(m.Called(ctx, profile))
}

func (m *MockUserService) UpdateUser(ctx context.Context, id uuid.UUID, patch models.UserPatch) (*models.User, error) {
	return m.user(m.Called(ctx, id, patch))
}

func (m *MockUserService) BanUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *MockUserService) UnbanUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *MockUserService) MuteUser(ctx context.Context, id uuid.UUID, until *time.Time) error {
	args := m.Called(ctx, id, until)
	return args.Error(0)
}

func (m *MockUserService) SeedAdmins(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) GetBalance(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletService) GetTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockWalletService) AdjustBalance(ctx context.Context, userID uuid.UUID, amount int64, reason string) (*models.Wallet, error) {
	args := m.Called(ctx, userID, amount, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

type MockMarketService struct {
	mock.Mock
}

func (m *MockMarketService) market(args mock.Arguments) (*models.Market, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Market), args.Error(1)
}

func (m *MockMarketService) GetMarket(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	return m.market(m.Called(ctx, id))
}

func (m *MockMarketService) ListMarkets(ctx context.Context, limit, offset int) ([]*models.Market, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Market), args.Error(1)
}

func (m *MockMarketService) CreateMarket(ctx context.Context, input *models.NewMarket, createdBy *uuid.UUID) (*models.Market, error) {
	return m.market(m.Called(ctx, input, createdBy))
}

func (m *MockMarketService) UpdateMarket(ctx context.Context, id uuid.UUID, patch models.MarketPatch) (*models.Market, error) {
	return m.market(m.Called(ctx, id, patch))
}

func (m *MockMarketService) SetStatus(ctx context.Context, id uuid.UUID, status models.MarketStatus) (*models.Market, error) {
	return m.market(m.Called(ctx, id, status))
}

func (m *MockMarketService) LockBetting(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	return m.market(m.Called(ctx, id))
}

func (m *MockMarketService) GetStats(ctx context.Context, id uuid.UUID) (*models.MarketStats, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MarketStats), args.Error(1)
}

func (m *MockMarketService) ListWagers(ctx context.Context, filter service.WagerFilter) ([]*models.Wager, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Wager), args.Error(1)
}

type MockBettingService struct {
	mock.Mock
}

func (m *MockBettingService) PlaceBet(ctx context.Context, userID, marketID, outcomeID uuid.UUID, amount int64) (*models.Wager, error) {
	args := m.Called(ctx, userID, marketID, outcomeID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wager), args.Error(1)
}

func (m *MockBettingService) Settle(ctx context.Context, marketID, winningOutcomeID uuid.UUID) (*models.SettlementResult, error) {
	args := m.Called(ctx, marketID, winningOutcomeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SettlementResult), args.Error(1)
}

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) PostMessage(ctx context.Context, user *models.User, marketID uuid.UUID, message string) (*models.ChatMessage, error) {
	args := m.Called(ctx, user, marketID, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatMessage), args.Error(1)
}

func (m *MockChatService) ListMessages(ctx context.Context, marketID uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	args := m.Called(ctx, marketID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ChatMessage), args.Error(1)
}

func (m *MockChatService) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
