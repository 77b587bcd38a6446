package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spinmarket.ru/telegram-bot/internal/common"
)

type fakeSettings struct {
	daily     int
	resetHour int
}

func (f *fakeSettings) DailySpinQuota(context.Context) (int, error) { return f.daily, nil }
func (f *fakeSettings) QuotaResetHour(context.Context) (int, error) { return f.resetHour, nil }

type memQuotaStorage struct {
	states map[int64]*State
}

func newMemQuotaStorage() *memQuotaStorage {
	return &memQuotaStorage{states: make(map[int64]*State)}
}

func (m *memQuotaStorage) GetState(_ context.Context, userID int64) (*State, error) {
	st, ok := m.states[userID]
	if !ok {
		st = &State{UserID: userID, LastResetDate: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)}
		m.states[userID] = st
	}
	cp := *st
	return &cp, nil
}

func (m *memQuotaStorage) SaveState(_ context.Context, state *State) error {
	cp := *state
	m.states[state.UserID] = &cp
	return nil
}

func (m *memQuotaStorage) ResetAllBefore(_ context.Context, day time.Time) (int64, error) {
	var n int64
	for _, st := range m.states {
		if st.LastResetDate.Before(day) {
			st.AttemptsUsedToday = 0
			st.LastResetDate = day
			n++
		}
	}
	return n, nil
}

// dateColumnStorage моделирует хранение last_reset_date в колонке DATE:
// в БД живёт только календарная дата, драйвер отдаёт её как полночь UTC
// независимо от зоны, в которой дата была записана.
type dateColumnStorage struct {
	inner *memQuotaStorage
}

func (d *dateColumnStorage) GetState(ctx context.Context, userID int64) (*State, error) {
	st, err := d.inner.GetState(ctx, userID)
	if err != nil {
		return nil, err
	}
	y, m, day := st.LastResetDate.Date()
	st.LastResetDate = time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	return st, nil
}

func (d *dateColumnStorage) SaveState(ctx context.Context, state *State) error {
	return d.inner.SaveState(ctx, state)
}

func (d *dateColumnStorage) ResetAllBefore(ctx context.Context, dy time.Time) (int64, error) {
	return d.inner.ResetAllBefore(ctx, dy)
}

func newTestService(daily, resetHour int, now time.Time) (*Service, *memQuotaStorage) {
	st := newMemQuotaStorage()
	svc := NewService(st, &fakeSettings{daily: daily, resetHour: resetHour})
	svc.now = func() time.Time { return now }
	return svc, st
}

func TestTryConsumeDailyQuota(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(3, 0, now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := svc.TryConsume(ctx, 1)
		require.NoError(t, err)
		assert.True(t, ok, "попытка %d должна пройти", i+1)
	}

	ok, err := svc.TryConsume(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDailyQuotaExhaustsWithDateColumnStorage(t *testing.T) {
	// Текущее время московское, а дата последнего сброса приходит из
	// хранилища полночью UTC. Полночи не совпадают как моменты, но
	// календарный день один — сброс не должен срабатывать на каждом
	// обращении и раздавать безлимитную квоту.
	msk := time.FixedZone("MSK", 3*60*60)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, msk)

	inner := newMemQuotaStorage()
	svc := NewService(&dateColumnStorage{inner: inner}, &fakeSettings{daily: 3, resetHour: 0})
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := svc.TryConsume(ctx, 1)
		require.NoError(t, err)
		require.True(t, ok, "попытка %d должна пройти", i+1)
	}

	ok, err := svc.TryConsume(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok, "дневная квота 3 исчерпана")
	assert.Equal(t, 3, inner.states[1].AttemptsUsedToday)
}

func TestExhaustedQuotaThenBonusGrant(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(5, 0, now)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := svc.TryConsume(ctx, 1)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := svc.TryConsume(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, svc.GrantBonus(ctx, 1, 2))

	// ровно две бонусные попытки
	for i := 0; i < 2; i++ {
		ok, err := svc.TryConsume(ctx, 1)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err = svc.TryConsume(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBonusSpentBeforeDailyQuota(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, st := newTestService(3, 0, now)
	ctx := context.Background()

	require.NoError(t, svc.GrantBonus(ctx, 1, 1))

	ok, err := svc.TryConsume(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)

	state := st.states[1]
	assert.Equal(t, 0, state.BonusAttempts)
	assert.Equal(t, 0, state.AttemptsUsedToday)
}

func TestGrantBonusRejectsNonPositive(t *testing.T) {
	svc, _ := newTestService(3, 0, time.Now())
	assert.ErrorIs(t, svc.GrantBonus(context.Background(), 1, 0), common.ErrInvalidAmount)
	assert.ErrorIs(t, svc.GrantBonus(context.Background(), 1, -2), common.ErrInvalidAmount)
}

func TestDailyResetRestoresQuotaButKeepsBonus(t *testing.T) {
	day1 := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	svc, st := newTestService(2, 0, day1)
	ctx := context.Background()

	require.NoError(t, svc.GrantBonus(ctx, 1, 1))
	// тратим дневную квоту и бонус
	for i := 0; i < 3; i++ {
		ok, err := svc.TryConsume(ctx, 1)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := svc.TryConsume(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)

	// наступили новые сутки
	svc.now = func() time.Time { return day1.Add(2 * time.Hour) }

	remaining, err := svc.Remaining(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	ok, err = svc.TryConsume(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	// бонус был потрачен вчера и сбросом не возвращается
	assert.Equal(t, 0, st.states[1].BonusAttempts)
}

func TestResetHonoursConfiguredHour(t *testing.T) {
	// Час сброса 6:00. В 05:59 и в 23:00 накануне — одни игровые сутки.
	before := time.Date(2025, 6, 2, 5, 59, 0, 0, time.UTC)
	svc, _ := newTestService(1, 6, time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC))
	ctx := context.Background()

	ok, err := svc.TryConsume(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)

	svc.now = func() time.Time { return before }
	ok, err = svc.TryConsume(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok, "до часа сброса квота не обновляется")

	svc.now = func() time.Time { return time.Date(2025, 6, 2, 6, 1, 0, 0, time.UTC) }
	ok, err = svc.TryConsume(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok, "после часа сброса квота обновилась")
}

func TestRemainingClampedToZero(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, st := newTestService(3, 0, now)
	ctx := context.Background()

	// админ уменьшил квоту после того, как пользователь уже отыграл больше
	st.states[1] = &State{UserID: 1, AttemptsUsedToday: 5, LastResetDate: common.QuotaDay(now, 0)}

	remaining, err := svc.Remaining(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}

func TestSweepResetZeroesStaleCounters(t *testing.T) {
	now := time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC)
	svc, st := newTestService(3, 0, now)
	ctx := context.Background()

	st.states[1] = &State{UserID: 1, AttemptsUsedToday: 3, BonusAttempts: 2, LastResetDate: common.QuotaDay(now.Add(-24*time.Hour), 0)}
	st.states[2] = &State{UserID: 2, AttemptsUsedToday: 1, LastResetDate: common.QuotaDay(now, 0)}

	require.NoError(t, svc.SweepReset(ctx))

	assert.Equal(t, 0, st.states[1].AttemptsUsedToday)
	assert.Equal(t, 2, st.states[1].BonusAttempts, "бонус переживает сброс")
	assert.Equal(t, 1, st.states[2].AttemptsUsedToday, "сегодняшний счётчик не трогаем")
}
