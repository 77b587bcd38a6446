// Package ledger — repository.go выполняет операции с таблицами accounts
// и ledger_entries. Сохранение счёта и записи журнала идёт в одной
// транзакции БД для целостности данных.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"spinmarket.ru/telegram-bot/internal/common"
)

// Repository предоставляет методы для работы со счетами в PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий леджера.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetAccount возвращает счёт пользователя.
func (r *Repository) GetAccount(ctx context.Context, userID int64) (*Account, error) {
	query := `
		SELECT id, user_id, available, frozen, created_at, updated_at
		FROM accounts WHERE user_id = $1
	`
	var a Account
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&a.ID, &a.UserID, &a.Available, &a.Frozen, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrAccountNotFound
		}
		return nil, fmt.Errorf("ошибка получения счёта: %w", err)
	}
	return &a, nil
}

// CreateAccount создаёт нулевой счёт для нового пользователя.
func (r *Repository) CreateAccount(ctx context.Context, userID int64) error {
	query := `
		INSERT INTO accounts (user_id, available, frozen)
		VALUES ($1, 0, 0)
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("ошибка создания счёта: %w", err)
	}
	return nil
}

// Save сохраняет счёт и добавляет запись журнала.
// Обновление баланса и запись журнала атомарны: либо оба произойдут,
// либо ни одного.
func (r *Repository) Save(ctx context.Context, account *Account, entry *Entry) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE accounts
		SET available = $2, frozen = $3, updated_at = NOW()
		WHERE user_id = $1
	`, account.UserID, account.Available, account.Frozen)
	if err != nil {
		return fmt.Errorf("ошибка обновления счёта: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO ledger_entries (user_id, entry_type, amount, description)
		VALUES ($1, $2, $3, $4)
	`, entry.UserID, entry.EntryType, entry.Amount, entry.Description)
	if err != nil {
		return fmt.Errorf("ошибка записи журнала: %w", err)
	}

	return tx.Commit(ctx)
}

// GetEntries возвращает последние limit операций пользователя.
func (r *Repository) GetEntries(ctx context.Context, userID int64, limit int) ([]*Entry, error) {
	query := `
		SELECT id, user_id, entry_type, amount, description, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.EntryType, &e.Amount, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
