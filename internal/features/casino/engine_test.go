package casino

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spinmarket.ru/telegram-bot/internal/common"
)

// seqSource отдаёт заданные значения по порядку, дальше — детерминированный rand.
func seqSource(vals ...float64) func() float64 {
	rng := rand.New(rand.NewSource(1))
	i := 0
	return func() float64 {
		if i < len(vals) {
			v := vals[i]
			i++
			return v
		}
		return rng.Float64()
	}
}

func TestDrawLossWhenFirstRollAboveTotal(t *testing.T) {
	table := NewTable(testTiers()) // суммарно 15%
	engine := NewEngineWithSource(seqSource(0.20)) // r1 = 20

	result, err := engine.Draw(table)
	require.NoError(t, err)
	assert.False(t, result.Won)
	assert.Nil(t, result.Tier)
	assert.False(t, isWinningCombo(table, result.Combo))
}

func TestDrawTwoStageRollPicksSecondTier(t *testing.T) {
	table := NewTable(testTiers())
	// r1 = 3 (< 15, выигрыш), r2 = 0.8*15 = 12 → диапазон второго тира [10, 15)
	engine := NewEngineWithSource(seqSource(0.03, 0.8))

	result, err := engine.Draw(table)
	require.NoError(t, err)
	require.True(t, result.Won)
	assert.Equal(t, int64(2), result.Tier.ID)
	assert.Equal(t, result.Tier.Combo(), result.Combo)
}

func TestDrawTwoStageRollPicksFirstTier(t *testing.T) {
	table := NewTable(testTiers())
	// r1 = 5, r2 = 0.2*15 = 3 → диапазон первого тира [0, 10)
	engine := NewEngineWithSource(seqSource(0.05, 0.2))

	result, err := engine.Draw(table)
	require.NoError(t, err)
	require.True(t, result.Won)
	assert.Equal(t, int64(1), result.Tier.ID)
}

func TestDrawRejectsInvalidTable(t *testing.T) {
	tiers := testTiers()
	tiers[0].ProbabilityPercent = 96 // сумма 101

	_, err := NewEngineWithSource(seqSource(0.0)).Draw(NewTable(tiers))
	assert.ErrorIs(t, err, common.ErrConfigInvalid)
}

func TestDrawEmptyTableAlwaysLoses(t *testing.T) {
	engine := NewEngineWithSource(rand.New(rand.NewSource(7)).Float64)
	table := NewTable(nil)

	for i := 0; i < 100; i++ {
		result, err := engine.Draw(table)
		require.NoError(t, err)
		assert.False(t, result.Won)
	}
}

func TestLosingComboNeverMatchesWinningTier(t *testing.T) {
	table := NewTable(testTiers())
	engine := NewEngineWithSource(rand.New(rand.NewSource(99)).Float64)

	for i := 0; i < 1000; i++ {
		combo := engine.losingCombo(table)
		assert.False(t, isWinningCombo(table, combo), "комбинация %v выигрышная", combo)
	}
}

func TestLosingComboWhenAllSymbolsAreWinning(t *testing.T) {
	// Каждый символ алфавита — выигрышная тройка. Проигрышная комбинация
	// всё равно обязана найтись (из смешанных символов).
	var tiers []*Tier
	for i, s := range SymbolAlphabet {
		tiers = append(tiers, &Tier{
			ID:                 int64(i + 1),
			ComboKey:           s + s + s,
			RewardType:         RewardMoney,
			RewardAmount:       decimal.NewFromInt(1),
			ProbabilityPercent: 0.1,
			DisplayName:        "тир " + s,
		})
	}
	table := NewTable(tiers)
	engine := NewEngineWithSource(rand.New(rand.NewSource(5)).Float64)

	for i := 0; i < 200; i++ {
		combo := engine.losingCombo(table)
		assert.False(t, isWinningCombo(table, combo), "комбинация %v выигрышная", combo)
	}
}

func TestDrawStatisticalConvergence(t *testing.T) {
	if testing.Short() {
		t.Skip("статистический тест")
	}

	table := NewTable(testTiers())
	engine := NewEngineWithSource(rand.New(rand.NewSource(42)).Float64)

	const n = 100000
	wins := 0
	secondTier := 0
	for i := 0; i < n; i++ {
		result, err := engine.Draw(table)
		require.NoError(t, err)
		if result.Won {
			wins++
			if result.Tier.ID == 2 {
				secondTier++
			}
		}
	}

	// Настроено: выигрыш всего 15%, второй тир 5%.
	assert.InDelta(t, 0.15, float64(wins)/n, 0.01)
	assert.InDelta(t, 0.05, float64(secondTier)/n, 0.01)
}

// isWinningCombo проверяет комбинацию по правилам движка: точный ключ
// тира или тройка одинаковых символов выигрышного тира.
func isWinningCombo(table *Table, combo [3]string) bool {
	key := JoinCombo(combo)
	for _, tier := range table.Tiers() {
		if tier.ComboKey == key {
			return true
		}
		if combo[0] == combo[1] && combo[1] == combo[2] {
			for _, s := range tier.Combo() {
				if s == combo[0] {
					return true
				}
			}
		}
	}
	return false
}
