// Package casino — engine.go реализует двухэтапный розыгрыш.
//
// Этап 1 решает «выиграл вообще или нет» по суммарной вероятности таблицы,
// этап 2 выбирает конкретный тир. Если бросать символы по отдельности,
// совместная вероятность расходится с настроенными процентами тиров;
// разделение этапов удерживает фактическую частоту каждого тира в его
// настроенном проценте.
package casino

import (
	"math/rand"
)

// maxLossAttempts — сколько раз пробуем случайную проигрышную комбинацию,
// прежде чем перейти к детерминированному перебору.
const maxLossAttempts = 100

// Engine выполняет розыгрыши по таблице наград.
type Engine struct {
	// uniform возвращает равномерное число из [0, 1).
	// Подменяется в тестах для детерминированных розыгрышей.
	uniform func() float64
}

// NewEngine создаёт движок со стандартным источником случайности.
func NewEngine() *Engine {
	return &Engine{uniform: rand.Float64}
}

// NewEngineWithSource создаёт движок с заданным источником [0,1).
func NewEngineWithSource(uniform func() float64) *Engine {
	return &Engine{uniform: uniform}
}

// Draw выполняет один розыгрыш по таблице.
// Таблица проверяется перед каждым розыгрышем: движок не работает
// на невалидной конфигурации.
func (e *Engine) Draw(table *Table) (*Result, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}

	total := table.TotalWinProbability()

	// Этап 1: выиграл вообще?
	r1 := e.uniform() * 100
	if r1 >= total {
		return &Result{Combo: e.losingCombo(table), Won: false}, nil
	}

	// Этап 2: какой тир. r2 равномерно из [0, total).
	r2 := e.uniform() * total
	tier := table.PickTier(r2)
	if tier == nil {
		// r2 строго меньше суммы вероятностей, накопительный проход
		// обязан был найти тир. Сюда можно попасть только из-за потери
		// точности float на последней границе — отдаём последний тир.
		tier = table.tiers[len(table.tiers)-1]
	}

	return &Result{Combo: tier.Combo(), Won: true, Tier: tier}, nil
}

// losingCombo синтезирует комбинацию, гарантированно не совпадающую
// ни с одной выигрышной.
//
// Сначала ограниченное число случайных попыток из полного алфавита.
// Если все коллидируют — собираем тройку из символов, не встречающихся
// ни в одном выигрышном тире. Если выигрышные тиры покрывают весь
// алфавит — детерминированный перебор комбинаций с двумя разными
// символами. Процедура всегда завершается проигрышной тройкой.
func (e *Engine) losingCombo(table *Table) [3]string {
	winning := make(map[string]bool, len(table.tiers))
	winSymbols := make(map[string]bool)
	for _, tier := range table.tiers {
		winning[tier.ComboKey] = true
		for _, s := range tier.Combo() {
			if s != "" {
				winSymbols[s] = true
			}
		}
	}

	isLosing := func(combo [3]string) bool {
		if winning[JoinCombo(combo)] {
			return false
		}
		// Тройка одинаковых символов выигрышного тира тоже не годится,
		// даже если точного ключа в таблице нет.
		if combo[0] == combo[1] && combo[1] == combo[2] && winSymbols[combo[0]] {
			return false
		}
		return true
	}

	// Случайные попытки из полного алфавита
	for i := 0; i < maxLossAttempts; i++ {
		combo := [3]string{e.pickSymbol(), e.pickSymbol(), e.pickSymbol()}
		if isLosing(combo) {
			return combo
		}
	}

	// Символы, свободные от выигрышных тиров: любая тройка из них безопасна
	var free []string
	for _, s := range SymbolAlphabet {
		if !winSymbols[s] {
			free = append(free, s)
		}
	}
	if len(free) > 0 {
		s := free[int(e.uniform()*float64(len(free)))%len(free)]
		return [3]string{s, s, s}
	}

	// Весь алфавит занят выигрышными тирами: детерминированный перебор
	// всех троек с минимум двумя разными символами, первая невыигрышная — наша.
	for _, a := range SymbolAlphabet {
		for _, b := range SymbolAlphabet {
			for _, c := range SymbolAlphabet {
				if a == b && b == c {
					continue
				}
				combo := [3]string{a, b, c}
				if isLosing(combo) {
					return combo
				}
			}
		}
	}

	// Таблица объявила выигрышными вообще все смешанные тройки — такой
	// конфиг дальше валидации не живёт, но невыигрышную пару символов отдаём.
	return [3]string{SymbolAlphabet[0], SymbolAlphabet[0], SymbolAlphabet[1]}
}

// pickSymbol возвращает случайный символ алфавита.
func (e *Engine) pickSymbol() string {
	idx := int(e.uniform() * float64(len(SymbolAlphabet)))
	if idx >= len(SymbolAlphabet) {
		idx = len(SymbolAlphabet) - 1
	}
	return SymbolAlphabet[idx]
}
