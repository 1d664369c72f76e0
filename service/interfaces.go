package service

import (
	"context"
	"time"

	"streambet/events"
	"streambet/models"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by id
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByTelegramID retrieves a user by Telegram id
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)

	// Create inserts a new user built from a Telegram profile
	Create(ctx context.Context, profile models.TelegramProfile, role models.UserRole, whitelisted bool) (*models.User, error)

	// Update persists the mutable fields of a user
	Update(ctx context.Context, user *models.User) error

	// List returns users ordered by creation time, newest first
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// WalletRepository defines the interface for wallet data access.
// Only the ledger writes balances.
type WalletRepository interface {
	// Create creates the wallet of a user with a seed balance
	Create(ctx context.Context, userID uuid.UUID, balance int64) (*models.Wallet, error)

	// GetByUserID reads a wallet without locking
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)

	// GetForUpdate reads a wallet holding an exclusive row lock
	GetForUpdate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)

	// UpdateBalance sets the balance of a locked wallet
	UpdateBalance(ctx context.Context, userID uuid.UUID, newBalance int64) error
}

// TransactionRepository defines the interface for the append-only ledger
type TransactionRepository interface {
	// Record inserts a ledger row, filling its id and timestamp
	Record(ctx context.Context, tx *models.Transaction) error

	// ListByUser returns the newest ledger rows of a user
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Transaction, error)

	// SumByUser returns the sum of signed amounts recorded for a user
	SumByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// MarketRepository defines the interface for market and outcome data access
type MarketRepository interface {
	// GetByID reads a market and its outcomes without locking
	GetByID(ctx context.Context, id uuid.UUID) (*models.Market, error)

	// GetForShare reads a market and its outcomes holding a shared row lock
	GetForShare(ctx context.Context, id uuid.UUID) (*models.Market, error)

	// GetForUpdate reads a market and its outcomes holding an exclusive row lock
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Market, error)

	// Create inserts a market together with its outcomes
	Create(ctx context.Context, market *models.NewMarket, createdBy *uuid.UUID) (*models.Market, error)

	// Update persists the mutable fields of a market
	Update(ctx context.Context, market *models.Market) error

	// Finalize marks a market FINISHED and closes betting at lockedAt
	Finalize(ctx context.Context, id uuid.UUID, lockedAt time.Time) error

	// List returns markets ordered by start time, newest first
	List(ctx context.Context, limit, offset int) ([]*models.Market, error)

	// GetStats aggregates the wagers of a market
	GetStats(ctx context.Context, id uuid.UUID, topN int) (*models.MarketStats, error)
}

// WagerFilter narrows wager listings
type WagerFilter struct {
	UserID   *uuid.UUID
	MarketID *uuid.UUID
	Limit    int
}

// WagerRepository defines the interface for wager data access
type WagerRepository interface {
	// GetByUserAndMarket returns the wager of a user on a market, if any
	GetByUserAndMarket(ctx context.Context, userID, marketID uuid.UUID) (*models.Wager, error)

	// Create inserts an ACTIVE wager. A (user, market) conflict returns ErrDuplicateWager.
	Create(ctx context.Context, wager *models.Wager) error

	// ListActiveForUpdate locks and returns every ACTIVE wager of a market ordered by user id
	ListActiveForUpdate(ctx context.Context, marketID uuid.UUID) ([]*models.Wager, error)

	// MarkSettled moves an ACTIVE wager into its terminal state
	MarkSettled(ctx context.Context, id uuid.UUID, status models.WagerStatus, payout int64, settledAt time.Time) error

	// List returns wagers newest first
	List(ctx context.Context, filter WagerFilter) ([]*models.Wager, error)
}

// AuditRepository defines the interface for security audit data access
type AuditRepository interface {
	// RecordUnauthorizedAttempt inserts an unauthorized attempt
	RecordUnauthorizedAttempt(ctx context.Context, attempt *models.UnauthorizedAttempt) error

	// RecordLogin inserts a login log row
	RecordLogin(ctx context.Context, login *models.LoginLog) error

	// ListUnauthorizedAttempts returns attempts newest first
	ListUnauthorizedAttempts(ctx context.Context, filter models.AttemptFilter, limit int) ([]*models.UnauthorizedAttempt, error)

	// ListLogins returns login logs newest first
	ListLogins(ctx context.Context, limit int) ([]*models.LoginLog, error)
}

// ChatRepository defines the interface for chat data access
type ChatRepository interface {
	Create(ctx context.Context, message *models.ChatMessage) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error)

	// ListByMarket returns the newest non-deleted messages of a market
	ListByMarket(ctx context.Context, marketID uuid.UUID, limit int) ([]*models.ChatMessage, error)

	// SoftDelete flags a message as deleted
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// GetMute returns the mute of a user, if any
	GetMute(ctx context.Context, userID uuid.UUID) (*models.UserMute, error)

	// SetMute creates or replaces the mute of a user
	SetMute(ctx context.Context, mute *models.UserMute) error
}

// RateLimiter gates how often an identity may attempt a costly action
type RateLimiter interface {
	Hit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// BettingService defines bet admission and market settlement
type BettingService interface {
	// PlaceBet admits a wager and debits the wallet atomically
	PlaceBet(ctx context.Context, userID, marketID, outcomeID uuid.UUID, amount int64) (*models.Wager, error)

	// Settle resolves every ACTIVE wager of a market and finishes it
	Settle(ctx context.Context, marketID, winningOutcomeID uuid.UUID) (*models.SettlementResult, error)
}

// WalletService exposes the read side of the ledger and admin adjustments
type WalletService interface {
	// GetBalance returns the current wallet of a user
	GetBalance(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)

	// GetTransactions returns the newest ledger rows of a user
	GetTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Transaction, error)

	// AdjustBalance applies an ADMIN_ADJUST delta
	AdjustBalance(ctx context.Context, userID uuid.UUID, amount int64, reason string) (*models.Wallet, error)
}

// MarketService defines market management operations
type MarketService interface {
	GetMarket(ctx context.Context, id uuid.UUID) (*models.Market, error)
	ListMarkets(ctx context.Context, limit, offset int) ([]*models.Market, error)
	CreateMarket(ctx context.Context, input *models.NewMarket, createdBy *uuid.UUID) (*models.Market, error)
	UpdateMarket(ctx context.Context, id uuid.UUID, patch models.MarketPatch) (*models.Market, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.MarketStatus) (*models.Market, error)
	LockBetting(ctx context.Context, id uuid.UUID) (*models.Market, error)
	GetStats(ctx context.Context, id uuid.UUID) (*models.MarketStats, error)
	ListWagers(ctx context.Context, filter WagerFilter) ([]*models.Wager, error)
}

// UserService defines user administration operations
type UserService interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)

	// WhitelistUser whitelists an existing user or creates one with an empty wallet
	WhitelistUser(ctx context.Context, profile models.TelegramProfile) (*models.User, error)

	UpdateUser(ctx context.Context, id uuid.UUID, patch models.UserPatch) (*models.User, error)
	BanUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	UnbanUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	MuteUser(ctx context.Context, id uuid.UUID, until *time.Time) error

	// SeedAdmins ensures every configured admin exists with a funded wallet
	SeedAdmins(ctx context.Context) ([]*models.User, error)
}

// TokenIssuer issues session tokens
type TokenIssuer interface {
	GenerateToken(userID uuid.UUID) (string, error)
}

// TelegramVerifier checks Telegram login payloads
type TelegramVerifier interface {
	Verify(data map[string]string, now time.Time) (models.TelegramProfile, error)
}

// AuthService defines login and access enforcement
type AuthService interface {
	// LoginWithTelegram verifies the payload and returns a session token
	LoginWithTelegram(ctx context.Context, data map[string]string, meta models.RequestMeta) (string, *models.User, error)

	// EnforceWhitelisted rejects banned and non-whitelisted users
	EnforceWhitelisted(ctx context.Context, user *models.User, meta models.RequestMeta, endpoint string) error

	// RequireAdmin rejects non-admin users
	RequireAdmin(user *models.User) error

	ListUnauthorizedAttempts(ctx context.Context, filter models.AttemptFilter, limit int) ([]*models.UnauthorizedAttempt, error)
	ListLogins(ctx context.Context, limit int) ([]*models.LoginLog, error)
}

// ChatService defines chat operations
type ChatService interface {
	PostMessage(ctx context.Context, user *models.User, marketID uuid.UUID, message string) (*models.ChatMessage, error)
	ListMessages(ctx context.Context, marketID uuid.UUID, limit int) ([]*models.ChatMessage, error)
	DeleteMessage(ctx context.Context, id uuid.UUID) error
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() UserRepository
	WalletRepository() WalletRepository
	TransactionRepository() TransactionRepository
	MarketRepository() MarketRepository
	WagerRepository() WagerRepository
	AuditRepository() AuditRepository
	ChatRepository() ChatRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
