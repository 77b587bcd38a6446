// Package referral реализует идемпотентную выдачу реферальных бонусов.
// models.go описывает запись о выданном бонусе.
package referral

import "time"

// Grant — факт выдачи бонуса за пару «пригласивший → приглашённый».
// Уникальность пары держит база (UNIQUE), а не проверка перед вставкой:
// на одну пару существует максимум одна запись.
type Grant struct {
	ID             int64     `db:"id"`
	ReferrerID     int64     `db:"referrer_id"`      // Кто пригласил
	ReferredUserID int64     `db:"referred_user_id"` // Кого привёл
	AttemptsGranted int      `db:"attempts_granted"` // Сколько попыток начислено
	GrantedAt      time.Time `db:"granted_at"`
}

// ClaimResult — итог ClaimAllUnclaimed для отображения пользователю.
type ClaimResult struct {
	ActivatedCount       int // Сколько новых рефералов активировано
	TotalAttemptsGranted int // Сколько попыток начислено суммарно
}
