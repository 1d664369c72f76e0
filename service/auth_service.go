package service

import (
	"context"
	"fmt"
	"time"

	"streambet/config"
	"streambet/models"

	log "github.com/sirupsen/logrus"
)

const (
	loginEndpoint      = "/auth/telegram"
	defaultAuditLimit  = 100
	userAgentMaxLength = 500
)

type authService struct {
	uowFactory UnitOfWorkFactory
	verifier   TelegramVerifier
	tokens     TokenIssuer
	config     *config.Config
	now        func() time.Time
}

// NewAuthService creates the login and access enforcement service
func NewAuthService(uowFactory UnitOfWorkFactory, verifier TelegramVerifier, tokens TokenIssuer, cfg *config.Config) AuthService {
	return &authService{
		uowFactory: uowFactory,
		verifier:   verifier,
		tokens:     tokens,
		config:     cfg,
		now:        time.Now,
	}
}

// LoginWithTelegram verifies a Telegram login payload, creates or refreshes the
// user and issues a session token. Rejected logins are audited; profile
// changes made before the rejection are kept.
func (s *authService) LoginWithTelegram(ctx context.Context, data map[string]string, meta models.RequestMeta) (string, *models.User, error) {
	profile, err := s.verifier.Verify(data, s.now())
	if err != nil {
		attempt := newAttempt(meta, loginEndpoint, models.AttemptReasonTelegramHashInvalid)
		attempt.TelegramID = profile.TelegramIDPtr()
		attempt.Username = profile.Username
		s.recordAttempt(ctx, attempt)
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidTelegramPayload, err)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByTelegramID(ctx, profile.TelegramID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user == nil {
		role := models.UserRoleUser
		isAdmin := s.config.IsAdminTelegramID(profile.TelegramID)
		if isAdmin {
			role = models.UserRoleAdmin
		}
		user, err = createUserWithWallet(ctx, uow, profile, role, isAdmin, s.config.StartingBalance)
		if err != nil {
			return "", nil, err
		}
	} else {
		user.Username = profile.Username
		user.FirstName = profile.FirstName
		user.LastName = profile.LastName
		user.PhotoURL = profile.PhotoURL
		if err := uow.UserRepository().Update(ctx, user); err != nil {
			return "", nil, fmt.Errorf("failed to refresh user profile: %w", err)
		}
	}

	var rejection error
	switch {
	case user.IsBanned:
		rejection = ErrUserBanned
		if err := s.auditInTx(ctx, uow, user, meta, loginEndpoint, models.AttemptReasonBannedLogin); err != nil {
			return "", nil, err
		}
	case !user.HasAccess():
		rejection = ErrNotWhitelisted
		if err := s.auditInTx(ctx, uow, user, meta, loginEndpoint, models.AttemptReasonNotWhitelistedLogin); err != nil {
			return "", nil, err
		}
	default:
		login := &models.LoginLog{
			UserID:    user.ID,
			IP:        optionalString(meta.IP),
			UserAgent: optionalString(truncate(meta.UserAgent, userAgentMaxLength)),
		}
		if err := uow.AuditRepository().RecordLogin(ctx, login); err != nil {
			return "", nil, fmt.Errorf("failed to record login: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return "", nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if rejection != nil {
		log.WithFields(log.Fields{
			"userID":     user.ID,
			"telegramID": user.TelegramID,
			"reason":     rejection,
		}).Warn("Login rejected")
		return "", nil, rejection
	}

	token, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":     user.ID,
		"telegramID": user.TelegramID,
	}).Info("User logged in")

	return token, user, nil
}

// EnforceWhitelisted rejects banned users and users who are neither
// whitelisted nor admins, recording the attempt
func (s *authService) EnforceWhitelisted(ctx context.Context, user *models.User, meta models.RequestMeta, endpoint string) error {
	var reason string
	var rejection error
	switch {
	case user.IsBanned:
		reason, rejection = models.AttemptReasonBanned, ErrUserBanned
	case !user.HasAccess():
		reason, rejection = models.AttemptReasonNotWhitelisted, ErrNotWhitelisted
	default:
		return nil
	}

	attempt := newAttempt(meta, endpoint, reason)
	attempt.TelegramID = &user.TelegramID
	attempt.Username = user.Username
	s.recordAttempt(ctx, attempt)
	return rejection
}

// RequireAdmin rejects non-admin users
func (s *authService) RequireAdmin(user *models.User) error {
	if user == nil || !user.IsAdmin() {
		return ErrAdminOnly
	}
	return nil
}

// ListUnauthorizedAttempts returns audited attempts, newest first
func (s *authService) ListUnauthorizedAttempts(ctx context.Context, filter models.AttemptFilter, limit int) ([]*models.UnauthorizedAttempt, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	attempts, err := uow.AuditRepository().ListUnauthorizedAttempts(ctx, filter, clampLimit(limit, defaultAuditLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to list unauthorized attempts: %w", err)
	}
	return attempts, nil
}

// ListLogins returns login logs, newest first
func (s *authService) ListLogins(ctx context.Context, limit int) ([]*models.LoginLog, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	logins, err := uow.AuditRepository().ListLogins(ctx, clampLimit(limit, defaultAuditLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to list logins: %w", err)
	}
	return logins, nil
}

// recordAttempt stores an attempt in its own unit of work. Audit failures are
// logged and never change the caller's outcome.
func (s *authService) recordAttempt(ctx context.Context, attempt *models.UnauthorizedAttempt) {
	err := func() error {
		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		defer uow.Rollback()

		if err := uow.AuditRepository().RecordUnauthorizedAttempt(ctx, attempt); err != nil {
			return err
		}
		return uow.Commit()
	}()
	if err != nil {
		log.WithFields(log.Fields{
			"endpoint": attempt.Endpoint,
			"reason":   attempt.Reason,
			"error":    err,
		}).Error("Failed to record unauthorized attempt")
	}
}

func (s *authService) auditInTx(ctx context.Context, uow UnitOfWork, user *models.User, meta models.RequestMeta, endpoint, reason string) error {
	attempt := newAttempt(meta, endpoint, reason)
	attempt.TelegramID = &user.TelegramID
	attempt.Username = user.Username
	if err := uow.AuditRepository().RecordUnauthorizedAttempt(ctx, attempt); err != nil {
		return fmt.Errorf("failed to record unauthorized attempt: %w", err)
	}
	return nil
}

func newAttempt(meta models.RequestMeta, endpoint, reason string) *models.UnauthorizedAttempt {
	return &models.UnauthorizedAttempt{
		IP:        optionalString(meta.IP),
		UserAgent: optionalString(truncate(meta.UserAgent, userAgentMaxLength)),
		Endpoint:  endpoint,
		Reason:    reason,
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
