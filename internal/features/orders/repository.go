// Package orders — repository.go выполняет операции с таблицей orders.
// Журнал append-only: вставки и точечные обновления status/extra,
// удалений нет.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"spinmarket.ru/telegram-bot/internal/common"
)

// Repository хранит заявки в PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий заявок.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create сохраняет заявку и заполняет её ID.
func (r *Repository) Create(ctx context.Context, order *Order) error {
	extraJSON, err := json.Marshal(order.Extra)
	if err != nil {
		return fmt.Errorf("ошибка сериализации extra: %w", err)
	}

	query := `
		INSERT INTO orders (user_id, kind, amount, status, extra)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err = r.db.QueryRow(ctx, query,
		order.UserID, order.Kind, order.Amount, order.Status, extraJSON,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания заявки: %w", err)
	}
	return nil
}

// GetByID возвращает заявку по id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Order, error) {
	query := `
		SELECT id, user_id, kind, amount, status, extra, created_at, updated_at
		FROM orders WHERE id = $1
	`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// FinishPending атомарно переводит pending-заявку в финальный статус.
// Условие status='pending' прямо в запросе: два конкурирующих решения
// не обработают одну заявку дважды.
func (r *Repository) FinishPending(ctx context.Context, id int64, newStatus string, extra Extra) error {
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return fmt.Errorf("ошибка сериализации extra: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET status = $2, extra = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, newStatus, extraJSON)
	if err != nil {
		return fmt.Errorf("ошибка обновления заявки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Либо заявки нет, либо она уже обработана.
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return gerr
		}
		return common.ErrOrderNotPending
	}
	return nil
}

// ListPending возвращает все заявки, ждущие решения, старые первыми.
func (r *Repository) ListPending(ctx context.Context) ([]*Order, error) {
	query := `
		SELECT id, user_id, kind, amount, status, extra, created_at, updated_at
		FROM orders
		WHERE status = 'pending'
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения заявок: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// ListByUser возвращает последние limit заявок пользователя.
func (r *Repository) ListByUser(ctx context.Context, userID int64, limit int) ([]*Order, error) {
	query := `
		SELECT id, user_id, kind, amount, status, extra, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения заявок: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

func (r *Repository) scanOne(row pgx.Row) (*Order, error) {
	var o Order
	var extraJSON []byte
	err := row.Scan(&o.ID, &o.UserID, &o.Kind, &o.Amount, &o.Status, &extraJSON, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrOrderNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования заявки: %w", err)
	}
	if len(extraJSON) > 0 {
		if err := json.Unmarshal(extraJSON, &o.Extra); err != nil {
			return nil, fmt.Errorf("ошибка разбора extra: %w", err)
		}
	}
	return &o, nil
}

func (r *Repository) scanAll(rows pgx.Rows) ([]*Order, error) {
	var out []*Order
	for rows.Next() {
		var o Order
		var extraJSON []byte
		if err := rows.Scan(&o.ID, &o.UserID, &o.Kind, &o.Amount, &o.Status, &extraJSON, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования заявки: %w", err)
		}
		if len(extraJSON) > 0 {
			if err := json.Unmarshal(extraJSON, &o.Extra); err != nil {
				return nil, fmt.Errorf("ошибка разбора extra: %w", err)
			}
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}
