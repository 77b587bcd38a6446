// Package ledger владеет балансами пользователей.
// models.go описывает структуры счёта и журнала операций.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account представляет счёт пользователя.
// Каждый пользователь имеет ровно одну запись в таблице accounts.
// Инвариант: available >= 0 и frozen >= 0 всегда; заявка на вывод
// переносит ровно запрошенную сумму из available во frozen целиком.
type Account struct {
	ID        int64           `db:"id"`
	UserID    int64           `db:"user_id"`
	Available decimal.Decimal `db:"available"` // Доступные средства
	Frozen    decimal.Decimal `db:"frozen"`    // Заморожено под заявки на вывод
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Entry представляет одну операцию по счёту.
// Все движения средств (начисления, списания, заморозки) записываются сюда.
type Entry struct {
	ID          int64           `db:"id"`
	UserID      int64           `db:"user_id"`
	EntryType   string          `db:"entry_type"`  // Тип: 'credit', 'debit', 'freeze', ...
	Amount      decimal.Decimal `db:"amount"`      // Сумма (всегда положительная)
	Description string          `db:"description"` // Описание для отображения
	CreatedAt   time.Time       `db:"created_at"`
}

// Типы операций по счёту
const (
	EntryCredit   = "credit"   // Начисление на available
	EntryDebit    = "debit"    // Прямое списание с available
	EntryFreeze   = "freeze"   // Перенос available → frozen (заявка на вывод)
	EntryUnfreeze = "unfreeze" // Возврат frozen → available (отклонение заявки)
	EntrySettle   = "settle"   // Списание frozen без возврата (вывод выплачен)
)

// Поводы начислений — попадают в описание записи журнала.
const (
	ReasonSlotWin        = "slot_win"        // Выигрыш в слотах
	ReasonActivityReward = "activity_reward" // Награда за активность
	ReasonReferralBonus  = "referral_bonus"  // Реферальный бонус
	ReasonAdminAdjust    = "admin_adjust"    // Ручная корректировка админом
	ReasonOrderPayout    = "order_payout"    // Начисление по одобренной заявке
)
