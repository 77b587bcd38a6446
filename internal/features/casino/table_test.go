package casino

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spinmarket.ru/telegram-bot/internal/common"
)

func testTiers() []*Tier {
	return []*Tier{
		{ID: 1, ComboKey: "🍒🍒🍒", RewardType: RewardMoney, RewardAmount: decimal.NewFromInt(50), ProbabilityPercent: 10, DisplayName: "Три вишни"},
		{ID: 2, ComboKey: "🍋🍋🍋", RewardType: RewardMoney, RewardAmount: decimal.NewFromInt(100), ProbabilityPercent: 5, DisplayName: "Три лимона"},
	}
}

func TestValidateAcceptsCorrectTable(t *testing.T) {
	assert.NoError(t, NewTable(testTiers()).Validate())
}

func TestValidateEmptyTableIsValid(t *testing.T) {
	// Пустая таблица — легальный «всегда проигрыш».
	assert.NoError(t, NewTable(nil).Validate())
}

func TestValidateRejectsNegativeProbability(t *testing.T) {
	tiers := testTiers()
	tiers[0].ProbabilityPercent = -1

	err := NewTable(tiers).Validate()
	assert.ErrorIs(t, err, common.ErrConfigInvalid)
}

func TestValidateRejectsNonPositiveReward(t *testing.T) {
	tiers := testTiers()
	tiers[1].RewardAmount = decimal.Zero

	err := NewTable(tiers).Validate()
	assert.ErrorIs(t, err, common.ErrConfigInvalid)
}

func TestValidateRejectsTotalOver100(t *testing.T) {
	tiers := testTiers()
	tiers[0].ProbabilityPercent = 60
	tiers[1].ProbabilityPercent = 41

	err := NewTable(tiers).Validate()
	assert.ErrorIs(t, err, common.ErrConfigInvalid)
}

func TestValidateTotalExactly100IsValid(t *testing.T) {
	tiers := testTiers()
	tiers[0].ProbabilityPercent = 60
	tiers[1].ProbabilityPercent = 40

	assert.NoError(t, NewTable(tiers).Validate())
}

func TestTotalWinProbability(t *testing.T) {
	assert.InDelta(t, 15.0, NewTable(testTiers()).TotalWinProbability(), 1e-9)
}

func TestPickTierCumulativeRanges(t *testing.T) {
	table := NewTable(testTiers())

	// [0, 10) — первый тир, [10, 15) — второй
	require.NotNil(t, table.PickTier(0))
	assert.Equal(t, int64(1), table.PickTier(0).ID)
	assert.Equal(t, int64(1), table.PickTier(9.999).ID)
	assert.Equal(t, int64(2), table.PickTier(10).ID)
	assert.Equal(t, int64(2), table.PickTier(12).ID)
	assert.Equal(t, int64(2), table.PickTier(14.999).ID)
	assert.Nil(t, table.PickTier(15))
}

func TestPickTierSkipsZeroProbabilityTier(t *testing.T) {
	tiers := testTiers()
	tiers[0].ProbabilityPercent = 0

	table := NewTable(tiers)
	assert.Equal(t, int64(2), table.PickTier(0).ID)
}

func TestSplitJoinCombo(t *testing.T) {
	combo := SplitCombo("🍒🍋💎")
	assert.Equal(t, [3]string{"🍒", "🍋", "💎"}, combo)
	assert.Equal(t, "🍒🍋💎", JoinCombo(combo))

	// недостающие символы остаются пустыми
	short := SplitCombo("🍒🍋")
	assert.Equal(t, "", short[2])
}
