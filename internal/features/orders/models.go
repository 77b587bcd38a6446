// Package orders ведёт заявки на выплаты и маршрутизацию наград.
// models.go описывает заявку и её жизненный цикл.
//
// Жизненный цикл награды: Drawn → {AutoCredited | PendingApproval} →
// {Completed | Rejected}. Денежные выигрыши зачисляются сразу и рождаются
// уже completed; stars/ton и выводы ждут решения админа в pending.
package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Виды заявок
const (
	KindSlotWin        = "slot_win"        // Выигрыш в слотах
	KindWithdraw       = "withdraw"        // Вывод средств
	KindActivityReward = "activity_reward" // Награда за активность
	KindReferral       = "referral"        // Реферальное начисление
)

// Статусы заявок
const (
	StatusPending   = "pending"   // Ждёт решения админа
	StatusCompleted = "completed" // Выполнена (средства зачислены или выплачены)
	StatusRejected  = "rejected"  // Отклонена (заморозка возвращена)
)

// Order — одна заявка. Журнал заявок append-only, мутируют только
// status и extra.
type Order struct {
	ID        int64           `db:"id"`
	UserID    int64           `db:"user_id"`
	Kind      string          `db:"kind"`
	Amount    decimal.Decimal `db:"amount"`
	Status    string          `db:"status"`
	Extra     Extra           `db:"extra"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Extra — служебные данные заявки, хранятся в JSONB.
// Комиссия здесь информационная: заморожена полная запрошенная сумма,
// дисконт учитывает сотрудник при ручной выплате.
type Extra struct {
	RewardType  string `json:"reward_type,omitempty"`  // money | stars | ton
	Combo       string `json:"combo,omitempty"`        // Выпавшая комбинация
	TierName    string `json:"tier_name,omitempty"`    // Название тира
	Commission  string `json:"commission,omitempty"`   // Комиссия вывода (для отображения)
	FinalAmount string `json:"final_amount,omitempty"` // Сумма к выплате после комиссии
	Requisites  string `json:"requisites,omitempty"`   // Реквизиты для вывода
	AdminID     int64  `json:"admin_id,omitempty"`     // Кто подтвердил/отклонил
	Note        string `json:"note,omitempty"`         // Произвольная пометка
}

// WithdrawalReceipt — ответ пользователю на заявку вывода.
type WithdrawalReceipt struct {
	OrderID     int64
	Amount      decimal.Decimal // Запрошено (заморожено целиком)
	Commission  decimal.Decimal // Удержание, информационно
	FinalAmount decimal.Decimal // К выплате на руки
}
