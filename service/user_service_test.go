package service

import (
	"context"
	"testing"
	"time"

	"streambet/config"
	"streambet/events"
	"streambet/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestUser(telegramID int64, role models.UserRole, whitelisted bool) *models.User {
	username := "user"
	return &models.User{
		ID:            uuid.New(),
		TelegramID:    telegramID,
		Username:      &username,
		FirstName:     "Test",
		Role:          role,
		IsWhitelisted: whitelisted,
	}
}

func TestUserService_WhitelistUser(t *testing.T) {
	ctx := context.Background()

	t.Run("creates unknown user with empty wallet", func(t *testing.T) {
		m := NewTestMocks().ExpectTransaction().AllowEvents()
		profile := models.TelegramProfile{TelegramID: 555, FirstName: "Newbie"}
		created := newTestUser(555, models.UserRoleUser, true)

		m.Users.On("GetByTelegramID", ctx, int64(555)).Return(nil, nil)
		m.Users.On("Create", ctx, profile, models.UserRoleUser, true).Return(created, nil)
		m.Wallets.On("Create", ctx, created.ID, int64(0)).Return(&models.Wallet{UserID: created.ID}, nil)

		user, err := NewUserService(m.Factory, config.NewTestConfig()).WhitelistUser(ctx, profile)
		require.NoError(t, err)
		assert.Equal(t, created.ID, user.ID)
		m.Wallets.AssertExpectations(t)
		m.Events.AssertCalled(t, "Publish", mock.MatchedBy(func(e events.Event) bool {
			ev, ok := e.(events.UserCreatedEvent)
			return ok && ev.InitialBalance == 0
		}))
	})

	t.Run("whitelists existing user", func(t *testing.T) {
		m := NewTestMocks().ExpectTransaction()
		existing := newTestUser(556, models.UserRoleUser, false)

		m.Users.On("GetByTelegramID", ctx, int64(556)).Return(existing, nil)
		m.Users.On("Update", ctx, mock.MatchedBy(func(u *models.User) bool { return u.IsWhitelisted })).Return(nil)

		user, err := NewUserService(m.Factory, config.NewTestConfig()).WhitelistUser(ctx, models.TelegramProfile{TelegramID: 556})
		require.NoError(t, err)
		assert.True(t, user.IsWhitelisted)
		m.Wallets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("requires telegram id", func(t *testing.T) {
		m := NewTestMocks()
		_, err := NewUserService(m.Factory, config.NewTestConfig()).WhitelistUser(ctx, models.TelegramProfile{})
		assert.ErrorIs(t, err, ErrInvalidTelegramPayload)
	})
}

func TestUserService_BanAndUnban(t *testing.T) {
	ctx := context.Background()
	user := newTestUser(1, models.UserRoleUser, true)

	m := NewTestMocks().ExpectTransaction()
	m.Users.On("GetByID", ctx, user.ID).Return(user, nil)
	m.Users.On("Update", ctx, user).Return(nil)
	svc := NewUserService(m.Factory, config.NewTestConfig())

	banned, err := svc.BanUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, banned.IsBanned)
	assert.False(t, banned.HasAccess())

	unbanned, err := svc.UnbanUser(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, unbanned.IsBanned)
	assert.True(t, unbanned.HasAccess())
}

func TestUserService_UpdateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown role", func(t *testing.T) {
		role := models.UserRole("ROOT")
		m := NewTestMocks()
		_, err := NewUserService(m.Factory, config.NewTestConfig()).UpdateUser(ctx, testUserID, models.UserPatch{Role: &role})
		assert.Error(t, err)
		m.Factory.AssertNotCalled(t, "Create")
	})

	t.Run("unknown user", func(t *testing.T) {
		m := NewTestMocks().ExpectTransaction()
		m.Users.On("GetByID", ctx, testUserID).Return(nil, nil)

		_, err := NewUserService(m.Factory, config.NewTestConfig()).UpdateUser(ctx, testUserID, models.UserPatch{})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("promote", func(t *testing.T) {
		role := models.UserRoleAdmin
		user := newTestUser(2, models.UserRoleUser, false)
		m := NewTestMocks().ExpectTransaction()
		m.Users.On("GetByID", ctx, user.ID).Return(user, nil)
		m.Users.On("Update", ctx, user).Return(nil)

		updated, err := NewUserService(m.Factory, config.NewTestConfig()).UpdateUser(ctx, user.ID, models.UserPatch{Role: &role})
		require.NoError(t, err)
		assert.True(t, updated.IsAdmin())
		assert.True(t, updated.HasAccess())
	})
}

func TestUserService_MuteUser(t *testing.T) {
	ctx := context.Background()
	user := newTestUser(3, models.UserRoleUser, true)
	until := testNow.Add(10 * time.Minute)

	m := NewTestMocks().ExpectTransaction()
	m.Users.On("GetByID", ctx, user.ID).Return(user, nil)
	m.Chat.On("SetMute", ctx, &models.UserMute{UserID: user.ID, MutedUntil: &until}).Return(nil)

	err := NewUserService(m.Factory, config.NewTestConfig()).MuteUser(ctx, user.ID, &until)
	require.NoError(t, err)
	m.Chat.AssertExpectations(t)
	m.UoW.AssertCalled(t, "Commit")
}

func TestUserService_SeedAdmins(t *testing.T) {
	ctx := context.Background()
	cfg := config.NewTestConfig()
	cfg.TelegramAdminIDs = []int64{100, 200, 300}
	cfg.AdminStartingBalance = 5000

	m := NewTestMocks().ExpectTransaction().AllowEvents()

	// 100 is new, 200 exists as a plain user, 300 is already an admin
	created := newTestUser(100, models.UserRoleAdmin, true)
	plain := newTestUser(200, models.UserRoleUser, false)
	admin := newTestUser(300, models.UserRoleAdmin, true)

	m.Users.On("GetByTelegramID", ctx, int64(100)).Return(nil, nil)
	m.Users.On("GetByTelegramID", ctx, int64(200)).Return(plain, nil)
	m.Users.On("GetByTelegramID", ctx, int64(300)).Return(admin, nil)
	m.Users.On("Create", ctx, mock.MatchedBy(func(p models.TelegramProfile) bool {
		return p.TelegramID == 100 && p.FirstName == "admin-100"
	}), models.UserRoleAdmin, true).Return(created, nil)
	m.Wallets.On("Create", ctx, created.ID, int64(5000)).Return(&models.Wallet{UserID: created.ID, Balance: 5000}, nil)
	m.Users.On("Update", ctx, plain).Return(nil).Once()

	admins, err := NewUserService(m.Factory, cfg).SeedAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 3)
	assert.True(t, plain.IsAdmin())
	assert.True(t, plain.IsWhitelisted)

	m.Users.AssertExpectations(t)
	m.Wallets.AssertExpectations(t)
	m.Users.AssertNotCalled(t, "Update", ctx, admin)
}
