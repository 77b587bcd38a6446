// Package casino — repository.go выполняет операции с таблицами
// reward_tiers, spins и spin_stats.
package casino

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository работает с таблицами слот-машины в БД.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий казино.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetTiers возвращает все тиры наград в порядке id.
// Порядок важен: PickTier ходит по таблице накопительно.
func (r *Repository) GetTiers(ctx context.Context) ([]*Tier, error) {
	query := `
		SELECT id, combo_key, reward_type, reward_amount, probability_percent, display_name, created_at
		FROM reward_tiers
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения тиров: %w", err)
	}
	defer rows.Close()

	var tiers []*Tier
	for rows.Next() {
		var t Tier
		if err := rows.Scan(&t.ID, &t.ComboKey, &t.RewardType, &t.RewardAmount,
			&t.ProbabilityPercent, &t.DisplayName, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования тира: %w", err)
		}
		tiers = append(tiers, &t)
	}
	return tiers, rows.Err()
}

// CreateTier добавляет тир наград (админская операция).
func (r *Repository) CreateTier(ctx context.Context, comboKey, rewardType string, amount decimal.Decimal, probability float64, displayName string) (int64, error) {
	query := `
		INSERT INTO reward_tiers (combo_key, reward_type, reward_amount, probability_percent, display_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query, comboKey, rewardType, amount, probability, displayName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания тира: %w", err)
	}
	return id, nil
}

// UpdateTierProbability меняет вероятность тира.
func (r *Repository) UpdateTierProbability(ctx context.Context, tierID int64, probability float64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE reward_tiers SET probability_percent = $2 WHERE id = $1`, tierID, probability)
	if err != nil {
		return fmt.Errorf("ошибка обновления тира: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteTier удаляет тир наград.
func (r *Repository) DeleteTier(ctx context.Context, tierID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM reward_tiers WHERE id = $1`, tierID)
	if err != nil {
		return fmt.Errorf("ошибка удаления тира: %w", err)
	}
	return nil
}

// SaveSpin сохраняет результат спина.
func (r *Repository) SaveSpin(ctx context.Context, spin *SpinRecord) error {
	query := `
		INSERT INTO spins (user_id, combo, won, tier_id)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, spin.UserID, spin.Combo, spin.Won, spin.TierID)
	if err != nil {
		return fmt.Errorf("ошибка сохранения спина: %w", err)
	}
	return nil
}

// UpdateStats обновляет статистику спинов после розыгрыша.
func (r *Repository) UpdateStats(ctx context.Context, userID int64, won bool) error {
	winInc := 0
	if won {
		winInc = 1
	}
	query := `
		INSERT INTO spin_stats (user_id, total_spins, total_wins)
		VALUES ($1, 1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			total_spins = spin_stats.total_spins + 1,
			total_wins = spin_stats.total_wins + $2,
			updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, userID, winInc)
	if err != nil {
		return fmt.Errorf("ошибка обновления статистики: %w", err)
	}
	return nil
}

// GetStats возвращает статистику спинов пользователя.
func (r *Repository) GetStats(ctx context.Context, userID int64) (*Stats, error) {
	query := `
		SELECT id, user_id, total_spins, total_wins, created_at, updated_at
		FROM spin_stats WHERE user_id = $1
	`
	var s Stats
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&s.ID, &s.UserID, &s.TotalSpins, &s.TotalWins, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &Stats{UserID: userID}, nil
		}
		return nil, fmt.Errorf("ошибка получения статистики: %w", err)
	}
	return &s, nil
}
