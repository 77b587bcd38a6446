// Package casino реализует слот-машину витрины: таблица наград с весами
// вероятностей и движок розыгрыша. models.go описывает структуры данных.
package casino

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Типы наград. Денежные выигрыши зачисляются на счёт сразу,
// stars и ton уходят заявкой на ручное подтверждение админом.
const (
	RewardMoney = "money"
	RewardStars = "stars"
	RewardTON   = "ton"
)

// SymbolAlphabet — полный алфавит символов барабанов.
// Все символы — одиночные руны, чтобы комбинацию можно было
// резать и собирать посимвольно.
var SymbolAlphabet = []string{"🍒", "🍋", "🍊", "🍇", "🍉", "💎", "🔔", "⭐"}

// Tier — один настроенный исход розыгрыша: комбинация, награда, вероятность.
// Строки создаёт и правит админ; движок во время розыгрыша видит
// снапшот только на чтение.
type Tier struct {
	ID                 int64           `db:"id"`
	ComboKey           string          `db:"combo_key"`           // Паттерн из трёх символов, например "💎💎💎"
	RewardType         string          `db:"reward_type"`         // money | stars | ton
	RewardAmount       decimal.Decimal `db:"reward_amount"`       // Размер награды, > 0
	ProbabilityPercent float64         `db:"probability_percent"` // Вероятность в процентах, >= 0
	DisplayName        string          `db:"display_name"`        // Название для сообщений
	CreatedAt          time.Time       `db:"created_at"`
}

// Combo возвращает комбинацию тира как три символа.
func (t *Tier) Combo() [3]string {
	return SplitCombo(t.ComboKey)
}

// SplitCombo режет строку-комбинацию на три символа.
// Лишние руны игнорируются, недостающие остаются пустыми.
func SplitCombo(key string) [3]string {
	var combo [3]string
	i := 0
	for _, r := range key {
		if i >= 3 {
			break
		}
		combo[i] = string(r)
		i++
	}
	return combo
}

// JoinCombo собирает три символа обратно в строку-ключ.
func JoinCombo(combo [3]string) string {
	return strings.Join(combo[:], "")
}

// Result — результат одного розыгрыша движка.
type Result struct {
	Combo [3]string // Выпавшие символы
	Won   bool      // Есть ли выигрыш
	Tier  *Tier     // Выигравший тир (nil при проигрыше)
}

// SpinRecord — запись одного спина в БД.
type SpinRecord struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Combo     string    `db:"combo"`
	Won       bool      `db:"won"`
	TierID    *int64    `db:"tier_id"` // nil при проигрыше
	CreatedAt time.Time `db:"created_at"`
}

// Stats — статистика спинов пользователя.
type Stats struct {
	ID         int64     `db:"id"`
	UserID     int64     `db:"user_id"`
	TotalSpins int       `db:"total_spins"`
	TotalWins  int       `db:"total_wins"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}
