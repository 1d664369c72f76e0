package repository

import (
	"context"
	"fmt"
	"strings"

	"streambet/database"
	"streambet/models"
)

// AuditRepository implements the AuditRepository interface
type AuditRepository struct {
	q queryable
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{q: db.Pool}
}

func newAuditRepositoryWithTx(tx queryable) *AuditRepository {
	return &AuditRepository{q: tx}
}

// RecordUnauthorizedAttempt inserts an attempt
func (r *AuditRepository) RecordUnauthorizedAttempt(ctx context.Context, attempt *models.UnauthorizedAttempt) error {
	query := `
		INSERT INTO unauthorized_attempts (telegram_id, username, ip, user_agent, endpoint, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		attempt.TelegramID,
		attempt.Username,
		attempt.IP,
		attempt.UserAgent,
		attempt.Endpoint,
		attempt.Reason,
	).Scan(&attempt.ID, &attempt.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record unauthorized attempt: %w", err)
	}
	return nil
}

// RecordLogin inserts a login log row
func (r *AuditRepository) RecordLogin(ctx context.Context, login *models.LoginLog) error {
	query := `
		INSERT INTO login_logs (user_id, ip, user_agent)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, login.UserID, login.IP, login.UserAgent).Scan(&login.ID, &login.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

// ListUnauthorizedAttempts returns attempts matching the filter, newest first
func (r *AuditRepository) ListUnauthorizedAttempts(ctx context.Context, filter models.AttemptFilter, limit int) ([]*models.UnauthorizedAttempt, error) {
	var conditions []string
	var args []any

	if filter.TelegramID != nil {
		args = append(args, *filter.TelegramID)
		conditions = append(conditions, fmt.Sprintf("telegram_id = $%d", len(args)))
	}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	query := `SELECT id, telegram_id, username, ip, user_agent, endpoint, reason, created_at FROM unauthorized_attempts`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list unauthorized attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]*models.UnauthorizedAttempt, 0)
	for rows.Next() {
		var a models.UnauthorizedAttempt
		if err := rows.Scan(&a.ID, &a.TelegramID, &a.Username, &a.IP, &a.UserAgent, &a.Endpoint, &a.Reason, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unauthorized attempt: %w", err)
		}
		attempts = append(attempts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unauthorized attempts: %w", err)
	}
	return attempts, nil
}

// ListLogins returns login logs, newest first
func (r *AuditRepository) ListLogins(ctx context.Context, limit int) ([]*models.LoginLog, error) {
	query := `
		SELECT id, user_id, ip, user_agent, created_at
		FROM login_logs
		ORDER BY created_at DESC, id
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list logins: %w", err)
	}
	defer rows.Close()

	logins := make([]*models.LoginLog, 0)
	for rows.Next() {
		var l models.LoginLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.IP, &l.UserAgent, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan login: %w", err)
		}
		logins = append(logins, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating logins: %w", err)
	}
	return logins, nil
}
