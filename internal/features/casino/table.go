// Package casino — table.go реализует таблицу наград.
// Таблица отвечает на два вопроса: какова суммарная вероятность выигрыша
// и какой тир выпал при заданном случайном числе.
package casino

import (
	"fmt"

	"spinmarket.ru/telegram-bot/internal/common"
)

// Table — упорядоченный набор тиров наград.
// Порядок стабильный (порядок id из БД): выбор тира идёт накопительным
// проходом, поэтому перестановка строк меняла бы привязку диапазонов.
type Table struct {
	tiers []*Tier
}

// NewTable создаёт таблицу из тиров в переданном порядке.
func NewTable(tiers []*Tier) *Table {
	return &Table{tiers: tiers}
}

// Tiers возвращает тиры таблицы.
func (t *Table) Tiers() []*Tier {
	return t.tiers
}

// Validate проверяет конфигурацию таблицы.
// Ошибка конфигурации — не ошибка рантайма: при невалидной таблице
// спины блокируются целиком, молча ничего не подрезаем.
func (t *Table) Validate() error {
	total := 0.0
	for _, tier := range t.tiers {
		if tier.ProbabilityPercent < 0 {
			return fmt.Errorf("%w: тир %q имеет отрицательную вероятность %.2f",
				common.ErrConfigInvalid, tier.DisplayName, tier.ProbabilityPercent)
		}
		if !tier.RewardAmount.IsPositive() {
			return fmt.Errorf("%w: тир %q имеет неположительную награду %s",
				common.ErrConfigInvalid, tier.DisplayName, tier.RewardAmount)
		}
		total += tier.ProbabilityPercent
	}
	if total > 100 {
		return fmt.Errorf("%w: сумма вероятностей %.2f%% больше 100%%",
			common.ErrConfigInvalid, total)
	}
	return nil
}

// TotalWinProbability возвращает суммарную вероятность выигрыша в процентах.
// Используется как порог «выиграл вообще / проиграл».
func (t *Table) TotalWinProbability() float64 {
	total := 0.0
	for _, tier := range t.tiers {
		total += tier.ProbabilityPercent
	}
	return total
}

// PickTier выбирает тир для случайного числа r из [0, TotalWinProbability()).
// Проход накопительный в порядке таблицы: возвращается первый тир, чья
// верхняя накопленная граница превышает r. Совпадения границ разрешаются
// порядком таблицы, без переброса.
func (t *Table) PickTier(r float64) *Tier {
	cumulative := 0.0
	for _, tier := range t.tiers {
		cumulative += tier.ProbabilityPercent
		if r < cumulative {
			return tier
		}
	}
	return nil
}
