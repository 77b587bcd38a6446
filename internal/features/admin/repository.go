// repository.go — доступ к таблицам admin_sessions и admin_login_attempts.
package admin

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateSession создаёт новую сессию администратора.
func (r *Repository) CreateSession(ctx context.Context, userID int64, token string, expiresAt time.Time) (*Session, error) {
	query := `
		INSERT INTO admin_sessions (user_id, session_token, authenticated_at, expires_at, last_activity, is_active)
		VALUES ($1, $2, NOW(), $3, NOW(), true)
		RETURNING id, user_id, session_token, authenticated_at, expires_at, last_activity, is_active`

	var s Session
	err := r.db.QueryRow(ctx, query, userID, token, expiresAt).Scan(
		&s.ID, &s.UserID, &s.SessionToken, &s.AuthenticatedAt,
		&s.ExpiresAt, &s.LastActivity, &s.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetActiveSession возвращает активную непросроченную сессию пользователя.
func (r *Repository) GetActiveSession(ctx context.Context, userID int64) (*Session, error) {
	query := `
		SELECT id, user_id, session_token, authenticated_at, expires_at, last_activity, is_active
		FROM admin_sessions
		WHERE user_id = $1 AND is_active = true AND expires_at > NOW()
		ORDER BY authenticated_at DESC
		LIMIT 1`

	var s Session
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&s.ID, &s.UserID, &s.SessionToken, &s.AuthenticatedAt,
		&s.ExpiresAt, &s.LastActivity, &s.IsActive,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateActivity обновляет время последней активности сессии.
func (r *Repository) UpdateActivity(ctx context.Context, sessionID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE admin_sessions SET last_activity = NOW() WHERE id = $1`, sessionID)
	return err
}

// DeactivateSessions закрывает все сессии пользователя.
func (r *Repository) DeactivateSessions(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE admin_sessions SET is_active = false WHERE user_id = $1`, userID)
	return err
}

// LogAttempt записывает попытку входа.
func (r *Repository) LogAttempt(ctx context.Context, userID int64, success bool) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO admin_login_attempts (user_id, attempt_time, success) VALUES ($1, NOW(), $2)`,
		userID, success)
	return err
}

// CountRecentFailures считает неудачные попытки входа за последний час.
func (r *Repository) CountRecentFailures(ctx context.Context, userID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM admin_login_attempts
		WHERE user_id = $1 AND success = false AND attempt_time > NOW() - INTERVAL '1 hour'`

	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
