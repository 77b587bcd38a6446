package casino

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spinmarket.ru/telegram-bot/internal/common"
)

type fakeQuota struct {
	allow    bool
	err      error
	consumed int
}

func (f *fakeQuota) TryConsume(context.Context, int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.allow {
		f.consumed++
	}
	return f.allow, nil
}

type routedWin struct {
	userID      int64
	rewardType  string
	amount      decimal.Decimal
	combo       string
	displayName string
}

type fakeRouter struct {
	wins    []routedWin
	orderID int64
	err     error
}

func (f *fakeRouter) RouteWin(_ context.Context, userID int64, rewardType string, amount decimal.Decimal, combo, displayName string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.wins = append(f.wins, routedWin{userID, rewardType, amount, combo, displayName})
	return f.orderID, nil
}

type fakeCasinoStorage struct {
	tiers       []*Tier
	spins       []*SpinRecord
	statsCalls  int
	saveSpinErr error
}

func (f *fakeCasinoStorage) GetTiers(context.Context) ([]*Tier, error) { return f.tiers, nil }

func (f *fakeCasinoStorage) SaveSpin(_ context.Context, spin *SpinRecord) error {
	if f.saveSpinErr != nil {
		return f.saveSpinErr
	}
	f.spins = append(f.spins, spin)
	return nil
}

func (f *fakeCasinoStorage) UpdateStats(context.Context, int64, bool) error {
	f.statsCalls++
	return nil
}

func (f *fakeCasinoStorage) GetStats(context.Context, int64) (*Stats, error) {
	return &Stats{}, nil
}

func TestSpinQuotaExhausted(t *testing.T) {
	st := &fakeCasinoStorage{tiers: testTiers()}
	quota := &fakeQuota{allow: false}
	router := &fakeRouter{}
	svc := NewService(st, quota, router, NewEngineWithSource(seqSource(0.0)))

	_, err := svc.Spin(context.Background(), 1)
	assert.ErrorIs(t, err, common.ErrQuotaExhausted)
	assert.Empty(t, router.wins)
	assert.Empty(t, st.spins)
}

func TestSpinInvalidTableDoesNotConsumeAttempt(t *testing.T) {
	tiers := testTiers()
	tiers[0].ProbabilityPercent = 200
	st := &fakeCasinoStorage{tiers: tiers}
	quota := &fakeQuota{allow: true}
	svc := NewService(st, quota, &fakeRouter{}, NewEngineWithSource(seqSource(0.0)))

	_, err := svc.Spin(context.Background(), 1)
	assert.ErrorIs(t, err, common.ErrConfigInvalid)
	// попытка не тратится на сломанной таблице
	assert.Zero(t, quota.consumed)
}

func TestSpinWinRoutesReward(t *testing.T) {
	st := &fakeCasinoStorage{tiers: testTiers()}
	quota := &fakeQuota{allow: true}
	router := &fakeRouter{orderID: 77}
	// r1 = 3 → выигрыш, r2 = 12 → второй тир
	svc := NewService(st, quota, router, NewEngineWithSource(seqSource(0.03, 0.8)))

	outcome, err := svc.Spin(context.Background(), 42)
	require.NoError(t, err)

	assert.True(t, outcome.Won)
	assert.Equal(t, "Три лимона", outcome.TierName)
	assert.Equal(t, RewardMoney, outcome.RewardType)
	assert.True(t, outcome.RewardAmount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, int64(77), outcome.OrderID)

	require.Len(t, router.wins, 1)
	assert.Equal(t, int64(42), router.wins[0].userID)
	assert.Equal(t, "🍋🍋🍋", router.wins[0].combo)

	require.Len(t, st.spins, 1)
	assert.True(t, st.spins[0].Won)
	require.NotNil(t, st.spins[0].TierID)
	assert.Equal(t, int64(2), *st.spins[0].TierID)
}

func TestSpinLossDoesNotRoute(t *testing.T) {
	st := &fakeCasinoStorage{tiers: testTiers()}
	quota := &fakeQuota{allow: true}
	router := &fakeRouter{}
	svc := NewService(st, quota, router, NewEngineWithSource(seqSource(0.99)))

	outcome, err := svc.Spin(context.Background(), 1)
	require.NoError(t, err)

	assert.False(t, outcome.Won)
	assert.Zero(t, outcome.OrderID)
	assert.Empty(t, router.wins)

	require.Len(t, st.spins, 1)
	assert.False(t, st.spins[0].Won)
	assert.Nil(t, st.spins[0].TierID)
	assert.Equal(t, 1, quota.consumed)
}

func TestSpinRouterErrorIsPropagated(t *testing.T) {
	st := &fakeCasinoStorage{tiers: testTiers()}
	router := &fakeRouter{err: errors.New("ledger down")}
	svc := NewService(st, &fakeQuota{allow: true}, router, NewEngineWithSource(seqSource(0.03, 0.2)))

	_, err := svc.Spin(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, router.err)
}

func TestSpinJournalFailureDoesNotFailSpin(t *testing.T) {
	st := &fakeCasinoStorage{tiers: testTiers(), saveSpinErr: errors.New("db down")}
	svc := NewService(st, &fakeQuota{allow: true}, &fakeRouter{}, NewEngineWithSource(seqSource(0.99)))

	outcome, err := svc.Spin(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, outcome.Won)
}
