// Package referral — repository.go выполняет операции с таблицей referral_grants.
package referral

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"spinmarket.ru/telegram-bot/internal/common"
)

// Repository хранит выданные бонусы в PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий рефералки.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// InsertGrant атомарно вставляет запись о выдаче.
// ON CONFLICT DO NOTHING + проверка числа вставленных строк заменяет
// гонкоопасный SELECT-затем-INSERT: при конкурентных вызовах ровно один
// победит, остальные получат common.ErrAlreadyGranted.
func (r *Repository) InsertGrant(ctx context.Context, referrerID, referredUserID int64, attempts int) error {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO referral_grants (referrer_id, referred_user_id, attempts_granted)
		VALUES ($1, $2, $3)
		ON CONFLICT (referrer_id, referred_user_id) DO NOTHING
	`, referrerID, referredUserID, attempts)
	if err != nil {
		return fmt.Errorf("ошибка вставки выдачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrAlreadyGranted
	}
	return nil
}

// HasGrant проверяет наличие выдачи для пары.
func (r *Repository) HasGrant(ctx context.Context, referrerID, referredUserID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM referral_grants
			WHERE referrer_id = $1 AND referred_user_id = $2
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, referrerID, referredUserID).Scan(&exists); err != nil {
		return false, fmt.Errorf("ошибка проверки выдачи: %w", err)
	}
	return exists, nil
}

// CountGrants возвращает число активированных рефералов пользователя.
func (r *Repository) CountGrants(ctx context.Context, referrerID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM referral_grants WHERE referrer_id = $1`, referrerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта выдач: %w", err)
	}
	return count, nil
}
