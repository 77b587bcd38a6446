// Package quota ведёт суточные попытки спинов и банк бонусных попыток.
// models.go описывает состояние квоты одного пользователя.
package quota

import "time"

// State — счётчики попыток пользователя.
//
// Использование квоты и банк бонусов — два отдельных поля.
// Эффективный остаток = дневная квота − AttemptsUsedToday + BonusAttempts;
// для отображения он прижимается к нулю, сами счётчики не прижимаются.
type State struct {
	ID                int64     `db:"id"`
	UserID            int64     `db:"user_id"`
	AttemptsUsedToday int       `db:"attempts_used_today"` // Потрачено из дневной квоты
	BonusAttempts     int       `db:"bonus_attempts"`      // Банк бонусных попыток (рефералка, админ)
	LastResetDate     time.Time `db:"last_reset_date"`     // Игровые сутки последнего сброса
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}
