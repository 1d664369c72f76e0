package service

import (
	"context"
	"fmt"
	"time"

	"streambet/config"
	"streambet/events"
	"streambet/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const defaultUserLimit = 100

// userService implements the UserService interface
type userService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
}

// NewUserService creates a new user service
func NewUserService(uowFactory UnitOfWorkFactory, cfg *config.Config) UserService {
	return &userService{
		uowFactory: uowFactory,
		config:     cfg,
	}
}

// createUserWithWallet inserts a user and its seeded wallet. The seed is the
// only balance not explained by a ledger transaction.
func createUserWithWallet(ctx context.Context, uow UnitOfWork, profile models.TelegramProfile, role models.UserRole, whitelisted bool, seed int64) (*models.User, error) {
	user, err := uow.UserRepository().Create(ctx, profile, role, whitelisted)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if _, err := uow.WalletRepository().Create(ctx, user.ID, seed); err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	uow.EventBus().Publish(events.UserCreatedEvent{
		UserID:         user.ID,
		TelegramID:     user.TelegramID,
		Username:       user.DisplayName(),
		InitialBalance: seed,
	})

	return user, nil
}

// GetUser returns a user by id
func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ListUsers returns users, newest first
func (s *userService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if offset < 0 {
		offset = 0
	}
	users, err := uow.UserRepository().List(ctx, clampLimit(limit, defaultUserLimit), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// WhitelistUser whitelists an existing user, or creates a whitelisted user
// with an empty wallet
func (s *userService) WhitelistUser(ctx context.Context, profile models.TelegramProfile) (*models.User, error) {
	if profile.TelegramID <= 0 {
		return nil, fmt.Errorf("%w: telegram id is required", ErrInvalidTelegramPayload)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByTelegramID(ctx, profile.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user != nil {
		user.IsWhitelisted = true
		if err := uow.UserRepository().Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to whitelist user: %w", err)
		}
	} else {
		user, err = createUserWithWallet(ctx, uow, profile, models.UserRoleUser, true, 0)
		if err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":     user.ID,
		"telegramID": user.TelegramID,
	}).Info("User whitelisted")

	return user, nil
}

// UpdateUser applies a partial update
func (s *userService) UpdateUser(ctx context.Context, id uuid.UUID, patch models.UserPatch) (*models.User, error) {
	if patch.Role != nil && *patch.Role != models.UserRoleAdmin && *patch.Role != models.UserRoleUser {
		return nil, fmt.Errorf("unknown role %q", *patch.Role)
	}
	return s.mutate(ctx, id, func(user *models.User) {
		patch.Apply(user)
	})
}

// BanUser bans a user
func (s *userService) BanUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.mutate(ctx, id, func(user *models.User) {
		user.IsBanned = true
	})
}

// UnbanUser lifts a ban
func (s *userService) UnbanUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.mutate(ctx, id, func(user *models.User) {
		user.IsBanned = false
	})
}

func (s *userService) mutate(ctx context.Context, id uuid.UUID, fn func(*models.User)) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	fn(user)

	if err := uow.UserRepository().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return user, nil
}

// MuteUser silences a user in chat until the given time; nil mutes indefinitely
func (s *userService) MuteUser(ctx context.Context, id uuid.UUID, until *time.Time) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := uow.ChatRepository().SetMute(ctx, &models.UserMute{UserID: id, MutedUntil: until}); err != nil {
		return fmt.Errorf("failed to mute user: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":     id,
		"mutedUntil": until,
	}).Info("User muted")
	return nil
}

// SeedAdmins makes sure every configured admin exists, is whitelisted and has
// the admin role. Newly created admins get AdminStartingBalance.
func (s *userService) SeedAdmins(ctx context.Context) ([]*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	admins := make([]*models.User, 0, len(s.config.TelegramAdminIDs))
	for _, telegramID := range s.config.TelegramAdminIDs {
		user, err := uow.UserRepository().GetByTelegramID(ctx, telegramID)
		if err != nil {
			return nil, fmt.Errorf("failed to get admin %d: %w", telegramID, err)
		}

		if user == nil {
			profile := models.TelegramProfile{
				TelegramID: telegramID,
				FirstName:  fmt.Sprintf("admin-%d", telegramID),
			}
			user, err = createUserWithWallet(ctx, uow, profile, models.UserRoleAdmin, true, s.config.AdminStartingBalance)
			if err != nil {
				return nil, err
			}
		} else if !user.IsAdmin() || !user.IsWhitelisted {
			user.Role = models.UserRoleAdmin
			user.IsWhitelisted = true
			if err := uow.UserRepository().Update(ctx, user); err != nil {
				return nil, fmt.Errorf("failed to promote admin %d: %w", telegramID, err)
			}
		}
		admins = append(admins, user)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return admins, nil
}
