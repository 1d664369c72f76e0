package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"streambet/config"
	"streambet/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type authMocks struct {
	*TestMocks
	Verifier *MockTelegramVerifier
	Tokens   *MockTokenIssuer
}

func newAuthMocks() *authMocks {
	return &authMocks{
		TestMocks: NewTestMocks().ExpectTransaction(),
		Verifier:  new(MockTelegramVerifier),
		Tokens:    new(MockTokenIssuer),
	}
}

func (m *authMocks) service() *authService {
	return &authService{
		uowFactory: m.Factory,
		verifier:   m.Verifier,
		tokens:     m.Tokens,
		config:     config.NewTestConfig(),
		now:        fixedClock,
	}
}

func attemptWithReason(reason string) interface{} {
	return mock.MatchedBy(func(a *models.UnauthorizedAttempt) bool {
		return a.Reason == reason
	})
}

var (
	loginData = map[string]string{"id": "42", "hash": "abc"}
	loginMeta = models.RequestMeta{IP: "10.0.0.1", UserAgent: "Mozilla/5.0"}
)

func TestAuthService_Login_InvalidPayload(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()

	username := "mallory"
	m.Verifier.On("Verify", loginData, testNow).Return(models.TelegramProfile{TelegramID: 42, Username: &username}, errors.New("hash mismatch"))
	m.Audit.On("RecordUnauthorizedAttempt", ctx, mock.MatchedBy(func(a *models.UnauthorizedAttempt) bool {
		return a.Reason == models.AttemptReasonTelegramHashInvalid &&
			a.Endpoint == loginEndpoint &&
			a.TelegramID != nil && *a.TelegramID == 42 &&
			a.IP != nil && *a.IP == "10.0.0.1"
	})).Return(nil)

	token, user, err := m.service().LoginWithTelegram(ctx, loginData, loginMeta)

	assert.ErrorIs(t, err, ErrInvalidTelegramPayload)
	assert.Empty(t, token)
	assert.Nil(t, user)
	m.Audit.AssertExpectations(t)
	m.Users.AssertNotCalled(t, "GetByTelegramID", mock.Anything, mock.Anything)
}

func TestAuthService_Login_AuditFailureDoesNotMaskRejection(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()

	m.Verifier.On("Verify", loginData, testNow).Return(models.TelegramProfile{}, errors.New("expired"))
	m.Audit.On("RecordUnauthorizedAttempt", ctx, mock.Anything).Return(errors.New("db down"))

	_, _, err := m.service().LoginWithTelegram(ctx, loginData, loginMeta)
	assert.ErrorIs(t, err, ErrInvalidTelegramPayload)
}

func TestAuthService_Login_NewUserNotWhitelisted(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	m.AllowEvents()

	profile := models.TelegramProfile{TelegramID: 42, FirstName: "Eve"}
	created := newTestUser(42, models.UserRoleUser, false)

	m.Verifier.On("Verify", loginData, testNow).Return(profile, nil)
	m.Users.On("GetByTelegramID", ctx, int64(42)).Return(nil, nil)
	m.Users.On("Create", ctx, profile, models.UserRoleUser, false).Return(created, nil)
	m.Wallets.On("Create", ctx, created.ID, int64(1000)).Return(&models.Wallet{UserID: created.ID, Balance: 1000}, nil)
	m.Audit.On("RecordUnauthorizedAttempt", ctx, attemptWithReason(models.AttemptReasonNotWhitelistedLogin)).Return(nil)

	token, user, err := m.service().LoginWithTelegram(ctx, loginData, loginMeta)

	assert.ErrorIs(t, err, ErrNotWhitelisted)
	assert.Empty(t, token)
	assert.Nil(t, user)
	// the account and its wallet are kept
	m.UoW.AssertCalled(t, "Commit")
	m.Wallets.AssertExpectations(t)
	m.Tokens.AssertNotCalled(t, "GenerateToken", mock.Anything)
}

func TestAuthService_Login_NewAdmin(t *testing.T) {
	ctx := context.Background()
	m := newAuthMocks()
	m.AllowEvents()

	profile := models.TelegramProfile{TelegramID: 999999, FirstName: "Root"}
	created := newTestUser(999999, models.UserRoleAdmin, true)

	m.Verifier.On("Verify", loginData, testNow).Return(profile, nil)
	m.Users.On("GetByTelegramID", ctx, int64(999999)).Return(nil, nil)
	m.Users.On("Create", ctx, profile, models.UserRoleAdmin, true).Return(created, nil)
	m.Wallets.On("Create", ctx, created.ID, int64(1000)).Return(&models.Wallet{UserID: created.ID, Balance: 1000}, nil)
	m.Audit.On("RecordLogin", ctx, mock.MatchedBy(func(l *models.LoginLog) bool {
		return l.UserID == created.ID
	})).Return(nil)
	m.Tokens.On("GenerateToken", created.ID).Return("jwt-token", nil)

	token, user, err := m.service().LoginWithTelegram(ctx, loginData, loginMeta)

	require.NoError(t, err)
	assert.Equal(t, "jwt-token", token)
	assert.True(t, user.IsAdmin())
	m.Audit.AssertExpectations(t)
}

func TestAuthService_Login_ExistingUser(t *testing.T) {
	ctx := context.Background()

	t.Run("profile refreshed and login recorded", func(t *testing.T) {
		m := newAuthMocks()
		existing := newTestUser(42, models.UserRoleUser, true)
		newName := "renamed"
		profile := models.TelegramProfile{TelegramID: 42, Username: &newName, FirstName: "Renamed"}
		longAgent := strings.Repeat("a", userAgentMaxLength+50)

		m.Verifier.On("Verify", loginData, testNow).Return(profile, nil)
		m.Users.On("GetByTelegramID", ctx, int64(42)).Return(existing, nil)
		m.Users.On("Update", ctx, mock.MatchedBy(func(u *models.User) bool {
			return u.Username != nil && *u.Username == "renamed" && u.FirstName == "Renamed"
		})).Return(nil)
		m.Audit.On("RecordLogin", ctx, mock.MatchedBy(func(l *models.LoginLog) bool {
			return l.UserAgent != nil && len(*l.UserAgent) == userAgentMaxLength
		})).Return(nil)
		m.Tokens.On("GenerateToken", existing.ID).Return("jwt-token", nil)

		token, user, err := m.service().LoginWithTelegram(ctx, loginData, models.RequestMeta{UserAgent: longAgent})

		require.NoError(t, err)
		assert.Equal(t, "jwt-token", token)
		assert.Equal(t, existing.ID, user.ID)
		m.Users.AssertExpectations(t)
		m.Audit.AssertExpectations(t)
		m.Wallets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("banned", func(t *testing.T) {
		m := newAuthMocks()
		existing := newTestUser(42, models.UserRoleAdmin, true)
		existing.IsBanned = true

		m.Verifier.On("Verify", loginData, testNow).Return(models.TelegramProfile{TelegramID: 42}, nil)
		m.Users.On("GetByTelegramID", ctx, int64(42)).Return(existing, nil)
		m.Users.On("Update", ctx, existing).Return(nil)
		m.Audit.On("RecordUnauthorizedAttempt", ctx, attemptWithReason(models.AttemptReasonBannedLogin)).Return(nil)

		_, _, err := m.service().LoginWithTelegram(ctx, loginData, loginMeta)

		assert.ErrorIs(t, err, ErrUserBanned)
		m.Audit.AssertExpectations(t)
		m.UoW.AssertCalled(t, "Commit")
		m.Audit.AssertNotCalled(t, "RecordLogin", mock.Anything, mock.Anything)
	})

	t.Run("token failure", func(t *testing.T) {
		m := newAuthMocks()
		existing := newTestUser(42, models.UserRoleUser, true)

		m.Verifier.On("Verify", loginData, testNow).Return(models.TelegramProfile{TelegramID: 42}, nil)
		m.Users.On("GetByTelegramID", ctx, int64(42)).Return(existing, nil)
		m.Users.On("Update", ctx, existing).Return(nil)
		m.Audit.On("RecordLogin", ctx, mock.Anything).Return(nil)
		m.Tokens.On("GenerateToken", existing.ID).Return("", errors.New("no secret"))

		_, _, err := m.service().LoginWithTelegram(ctx, loginData, loginMeta)
		assert.Error(t, err)
	})
}

func TestAuthService_EnforceWhitelisted(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		user     func() *models.User
		reason   string
		expected error
	}{
		{
			name:     "whitelisted user",
			user:     func() *models.User { return newTestUser(1, models.UserRoleUser, true) },
			expected: nil,
		},
		{
			name:     "admin without whitelist",
			user:     func() *models.User { return newTestUser(2, models.UserRoleAdmin, false) },
			expected: nil,
		},
		{
			name: "banned admin",
			user: func() *models.User {
				u := newTestUser(3, models.UserRoleAdmin, true)
				u.IsBanned = true
				return u
			},
			reason:   models.AttemptReasonBanned,
			expected: ErrUserBanned,
		},
		{
			name:     "not whitelisted",
			user:     func() *models.User { return newTestUser(4, models.UserRoleUser, false) },
			reason:   models.AttemptReasonNotWhitelisted,
			expected: ErrNotWhitelisted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newAuthMocks()
			if tt.reason != "" {
				m.Audit.On("RecordUnauthorizedAttempt", ctx, mock.MatchedBy(func(a *models.UnauthorizedAttempt) bool {
					return a.Reason == tt.reason && a.Endpoint == "/api/markets"
				})).Return(nil)
			}

			err := m.service().EnforceWhitelisted(ctx, tt.user(), loginMeta, "/api/markets")

			if tt.expected == nil {
				assert.NoError(t, err)
				m.Factory.AssertNotCalled(t, "Create")
				return
			}
			assert.ErrorIs(t, err, tt.expected)
			m.Audit.AssertExpectations(t)
		})
	}
}

func TestAuthService_RequireAdmin(t *testing.T) {
	svc := newAuthMocks().service()

	assert.NoError(t, svc.RequireAdmin(newTestUser(1, models.UserRoleAdmin, false)))
	assert.ErrorIs(t, svc.RequireAdmin(newTestUser(2, models.UserRoleUser, true)), ErrAdminOnly)
	assert.ErrorIs(t, svc.RequireAdmin(nil), ErrAdminOnly)
}
