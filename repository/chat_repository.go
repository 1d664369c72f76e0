package repository

import (
	"context"
	"errors"
	"fmt"

	"streambet/database"
	"streambet/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ChatRepository implements the ChatRepository interface
type ChatRepository struct {
	q queryable
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *database.DB) *ChatRepository {
	return &ChatRepository{q: db.Pool}
}

func newChatRepositoryWithTx(tx queryable) *ChatRepository {
	return &ChatRepository{q: tx}
}

// Create inserts a chat message, filling its id and timestamp
func (r *ChatRepository) Create(ctx context.Context, message *models.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (market_id, user_id, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, message.MarketID, message.UserID, message.Message).Scan(&message.ID, &message.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create chat message: %w", err)
	}
	return nil
}

// GetByID returns a message, deleted or not
func (r *ChatRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	query := `
		SELECT id, market_id, user_id, message, is_deleted, created_at
		FROM chat_messages
		WHERE id = $1
	`

	var m models.ChatMessage
	err := r.q.QueryRow(ctx, query, id).Scan(&m.ID, &m.MarketID, &m.UserID, &m.Message, &m.IsDeleted, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat message %s: %w", id, err)
	}
	return &m, nil
}

// ListByMarket returns the newest visible messages of a market in
// chronological order
func (r *ChatRepository) ListByMarket(ctx context.Context, marketID uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	query := `
		SELECT id, market_id, user_id, message, is_deleted, created_at
		FROM (
			SELECT id, market_id, user_id, message, is_deleted, created_at
			FROM chat_messages
			WHERE market_id = $1 AND NOT is_deleted
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at, id
	`

	rows, err := r.q.Query(ctx, query, marketID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.ChatMessage, 0)
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.MarketID, &m.UserID, &m.Message, &m.IsDeleted, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat messages: %w", err)
	}
	return messages, nil
}

// SoftDelete flags a message as deleted
func (r *ChatRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result, err := r.q.Exec(ctx, `UPDATE chat_messages SET is_deleted = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete chat message %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("chat message %s not found", id)
	}
	return nil
}

// GetMute returns the mute of a user, if any
func (r *ChatRepository) GetMute(ctx context.Context, userID uuid.UUID) (*models.UserMute, error) {
	var mute models.UserMute
	err := r.q.QueryRow(ctx, `SELECT user_id, muted_until FROM user_mutes WHERE user_id = $1`, userID).Scan(&mute.UserID, &mute.MutedUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mute of user %s: %w", userID, err)
	}
	return &mute, nil
}

// SetMute creates or replaces the mute of a user
func (r *ChatRepository) SetMute(ctx context.Context, mute *models.UserMute) error {
	query := `
		INSERT INTO user_mutes (user_id, muted_until)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET muted_until = EXCLUDED.muted_until
	`

	if _, err := r.q.Exec(ctx, query, mute.UserID, mute.MutedUntil); err != nil {
		return fmt.Errorf("failed to mute user %s: %w", mute.UserID, err)
	}
	return nil
}
