package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"streambet/events"
	"streambet/models"
	"streambet/ratelimit"

	"github.com/google/uuid"
)

const (
	maxChatMessageLength = 1000
	defaultChatLimit     = 50
)

type chatService struct {
	uowFactory UnitOfWorkFactory
	limiter    RateLimiter
	now        func() time.Time
}

// NewChatService creates a new chat service
func NewChatService(uowFactory UnitOfWorkFactory, limiter RateLimiter) ChatService {
	return &chatService{
		uowFactory: uowFactory,
		limiter:    limiter,
		now:        time.Now,
	}
}

// PostMessage stores a chat message and announces it to the market's room
func (s *chatService) PostMessage(ctx context.Context, user *models.User, marketID uuid.UUID, message string) (*models.ChatMessage, error) {
	if err := checkRateLimit(ctx, s.limiter, ratelimit.ChatPolicy, user.ID.String()); err != nil {
		return nil, err
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > maxChatMessageLength {
		return nil, ErrMessageTooLong
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	mute, err := uow.ChatRepository().GetMute(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get mute: %w", err)
	}
	if mute != nil && mute.IsActive(s.now()) {
		return nil, ErrUserMuted
	}

	market, err := uow.MarketRepository().GetByID(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get market: %w", err)
	}
	if market == nil {
		return nil, ErrMarketNotFound
	}

	msg := &models.ChatMessage{
		MarketID: marketID,
		UserID:   user.ID,
		Message:  message,
	}
	if err := uow.ChatRepository().Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to create chat message: %w", err)
	}

	uow.EventBus().Publish(events.ChatMessageCreatedEvent{
		MessageID: msg.ID,
		MarketID:  marketID,
		UserID:    user.ID,
		Username:  user.DisplayName(),
		Message:   msg.Message,
		CreatedAt: msg.CreatedAt,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return msg, nil
}

// ListMessages returns the newest visible messages of a market
func (s *chatService) ListMessages(ctx context.Context, marketID uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	messages, err := uow.ChatRepository().ListByMarket(ctx, marketID, clampLimit(limit, defaultChatLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	return messages, nil
}

// DeleteMessage hides a message from the room
func (s *chatService) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	msg, err := uow.ChatRepository().GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get chat message: %w", err)
	}
	if msg == nil {
		return ErrMessageNotFound
	}

	if !msg.IsDeleted {
		if err := uow.ChatRepository().SoftDelete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete chat message: %w", err)
		}
		uow.EventBus().Publish(events.ChatMessageDeletedEvent{
			MessageID: id,
			MarketID:  msg.MarketID,
		})
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
