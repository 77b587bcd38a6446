// Package quota — repository.go выполняет операции с таблицей spin_quota.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository хранит состояния квоты в PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий квоты.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetState возвращает состояние квоты, создавая нулевое при первом обращении.
func (r *Repository) GetState(ctx context.Context, userID int64) (*State, error) {
	query := `
		SELECT id, user_id, attempts_used_today, bonus_attempts, last_reset_date, created_at, updated_at
		FROM spin_quota WHERE user_id = $1
	`
	var st State
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&st.ID, &st.UserID, &st.AttemptsUsedToday, &st.BonusAttempts,
		&st.LastResetDate, &st.CreatedAt, &st.UpdatedAt,
	)
	if err == nil {
		return &st, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ошибка получения квоты: %w", err)
	}

	// Первое обращение пользователя — создаём нулевое состояние.
	_, err = r.db.Exec(ctx, `
		INSERT INTO spin_quota (user_id, attempts_used_today, bonus_attempts, last_reset_date)
		VALUES ($1, 0, 0, '1970-01-01')
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания квоты: %w", err)
	}

	err = r.db.QueryRow(ctx, query, userID).Scan(
		&st.ID, &st.UserID, &st.AttemptsUsedToday, &st.BonusAttempts,
		&st.LastResetDate, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения квоты: %w", err)
	}
	return &st, nil
}

// SaveState сохраняет изменённое состояние квоты.
func (r *Repository) SaveState(ctx context.Context, state *State) error {
	_, err := r.db.Exec(ctx, `
		UPDATE spin_quota
		SET attempts_used_today = $2, bonus_attempts = $3, last_reset_date = $4, updated_at = NOW()
		WHERE user_id = $1
	`, state.UserID, state.AttemptsUsedToday, state.BonusAttempts, state.LastResetDate)
	if err != nil {
		return fmt.Errorf("ошибка сохранения квоты: %w", err)
	}
	return nil
}

// ResetAllBefore зануляет дневные счётчики всех, чьи игровые сутки старше day.
// Бонусные попытки при сбросе сохраняются.
func (r *Repository) ResetAllBefore(ctx context.Context, day time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE spin_quota
		SET attempts_used_today = 0, last_reset_date = $1, updated_at = NOW()
		WHERE last_reset_date < $1
	`, day)
	if err != nil {
		return 0, fmt.Errorf("ошибка массового сброса: %w", err)
	}
	return tag.RowsAffected(), nil
}
