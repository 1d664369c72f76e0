package service

import (
	"time"

	"streambet/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Fixed identifiers and clock shared by the service tests
var (
	testNow = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	testUserID    = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	testUserID2   = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	testUserID3   = uuid.MustParse("00000000-0000-0000-0000-000000000003")
	testMarketID  = uuid.MustParse("10000000-0000-0000-0000-000000000001")
	testOutcomeA  = uuid.MustParse("20000000-0000-0000-0000-00000000000a")
	testOutcomeB  = uuid.MustParse("20000000-0000-0000-0000-00000000000b")
	testForeignID = uuid.MustParse("20000000-0000-0000-0000-0000000000ff")
)

func fixedClock() time.Time {
	return testNow
}

// TestMocks bundles a mock unit of work with every repository it hands out
type TestMocks struct {
	Factory      *MockUnitOfWorkFactory
	UoW          *MockUnitOfWork
	Users        *MockUserRepository
	Wallets      *MockWalletRepository
	Transactions *MockTransactionRepository
	Markets      *MockMarketRepository
	Wagers       *MockWagerRepository
	Audit        *MockAuditRepository
	Chat         *MockChatRepository
	Events       *MockEventPublisher
	Limiter      *MockRateLimiter
}

// NewTestMocks wires a factory that always returns the same unit of work
func NewTestMocks() *TestMocks {
	m := &TestMocks{
		Factory:      new(MockUnitOfWorkFactory),
		UoW:          new(MockUnitOfWork),
		Users:        new(MockUserRepository),
		Wallets:      new(MockWalletRepository),
		Transactions: new(MockTransactionRepository),
		Markets:      new(MockMarketRepository),
		Wagers:       new(MockWagerRepository),
		Audit:        new(MockAuditRepository),
		Chat:         new(MockChatRepository),
		Events:       new(MockEventPublisher),
		Limiter:      new(MockRateLimiter),
	}
	m.UoW.SetRepositories(MockRepositories{
		Users:        m.Users,
		Wallets:      m.Wallets,
		Transactions: m.Transactions,
		Markets:      m.Markets,
		Wagers:       m.Wagers,
		Audit:        m.Audit,
		Chat:         m.Chat,
		Events:       m.Events,
	})
	m.Factory.On("Create").Return(m.UoW)
	return m
}

// ExpectTransaction accepts any number of begin, commit and rollback calls
func (m *TestMocks) ExpectTransaction() *TestMocks {
	m.UoW.On("Begin", mock.Anything).Return(nil)
	m.UoW.On("Commit").Return(nil).Maybe()
	m.UoW.On("Rollback").Return(nil)
	return m
}

// AllowRateLimit lets every rate limited call through
func (m *TestMocks) AllowRateLimit() *TestMocks {
	m.Limiter.On("Hit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	return m
}

// AllowEvents accepts every published event
func (m *TestMocks) AllowEvents() *TestMocks {
	m.Events.On("Publish", mock.Anything).Return()
	return m
}

// ExpectLedgerWrite expects one ApplyWalletDelta on a wallet currently at balance
func (m *TestMocks) ExpectLedgerWrite(userID uuid.UUID, balance, delta int64, txType models.TransactionType) {
	m.Wallets.On("UpdateBalance", mock.Anything, userID, balance+delta).Return(nil).Once()
	m.Transactions.On("Record", mock.Anything, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.UserID == userID && tx.Amount == delta && tx.Type == txType && tx.BalanceAfter == balance+delta
	})).Return(nil).Once()
}

// MarketBuilder builds markets for tests
type MarketBuilder struct {
	market *models.Market
}

// NewTestMarket returns an open two-outcome market
func NewTestMarket() *MarketBuilder {
	return &MarketBuilder{market: &models.Market{
		ID:              testMarketID,
		Title:           "Grand Final",
		StreamType:      models.StreamTypeTwitch,
		StreamURL:       "https://twitch.tv/final",
		Status:          models.MarketStatusLive,
		StartTime:       testNow.Add(time.Hour),
		BettingLockedAt: testNow.Add(30 * time.Minute),
		Outcomes: []*models.Outcome{
			{ID: testOutcomeA, MarketID: testMarketID, Name: "Team A", Position: 0},
			{ID: testOutcomeB, MarketID: testMarketID, Name: "Team B", Position: 1},
		},
	}}
}

func (b *MarketBuilder) WithStatus(status models.MarketStatus) *MarketBuilder {
	b.market.Status = status
	return b
}

func (b *MarketBuilder) LockedAt(t time.Time) *MarketBuilder {
	b.market.BettingLockedAt = t
	return b
}

func (b *MarketBuilder) StartingAt(t time.Time) *MarketBuilder {
	b.market.StartTime = t
	return b
}

func (b *MarketBuilder) Build() *models.Market {
	return b.market
}

func newTestWager(userID, outcomeID uuid.UUID, amount int64) *models.Wager {
	return &models.Wager{
		ID:        uuid.New(),
		UserID:    userID,
		MarketID:  testMarketID,
		OutcomeID: outcomeID,
		Amount:    amount,
		Status:    models.WagerStatusActive,
	}
}
