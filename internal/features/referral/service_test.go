package referral

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spinmarket.ru/telegram-bot/internal/common"
)

type grantKey struct{ referrer, referred int64 }

type memGrantStorage struct {
	grants map[grantKey]int
}

func newMemGrantStorage() *memGrantStorage {
	return &memGrantStorage{grants: make(map[grantKey]int)}
}

func (m *memGrantStorage) InsertGrant(_ context.Context, referrerID, referredUserID int64, attempts int) error {
	key := grantKey{referrerID, referredUserID}
	if _, ok := m.grants[key]; ok {
		return common.ErrAlreadyGranted
	}
	m.grants[key] = attempts
	return nil
}

func (m *memGrantStorage) HasGrant(_ context.Context, referrerID, referredUserID int64) (bool, error) {
	_, ok := m.grants[grantKey{referrerID, referredUserID}]
	return ok, nil
}

func (m *memGrantStorage) CountGrants(_ context.Context, referrerID int64) (int, error) {
	n := 0
	for key := range m.grants {
		if key.referrer == referrerID {
			n++
		}
	}
	return n, nil
}

type fakeLister struct{ referred []int64 }

func (f *fakeLister) GetReferredUserIDs(context.Context, int64) ([]int64, error) {
	return f.referred, nil
}

type countingGranter struct {
	granted map[int64]int
}

func (c *countingGranter) GrantBonus(_ context.Context, userID int64, n int) error {
	if c.granted == nil {
		c.granted = make(map[int64]int)
	}
	c.granted[userID] += n
	return nil
}

type fixedBonus struct{ spins int }

func (f fixedBonus) ReferralBonusSpins(context.Context) (int, error) { return f.spins, nil }

func TestGrantIsIdempotent(t *testing.T) {
	storage := newMemGrantStorage()
	granter := &countingGranter{}
	svc := NewService(storage, &fakeLister{}, granter, fixedBonus{spins: 1})
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, 1, 2, 1))
	err := svc.Grant(ctx, 1, 2, 1)
	assert.ErrorIs(t, err, common.ErrAlreadyGranted)

	// попытки начислены ровно один раз
	assert.Equal(t, 1, granter.granted[1])
}

func TestGrantRejectsNonPositiveAttempts(t *testing.T) {
	svc := NewService(newMemGrantStorage(), &fakeLister{}, &countingGranter{}, fixedBonus{spins: 1})
	assert.ErrorIs(t, svc.Grant(context.Background(), 1, 2, 0), common.ErrInvalidAmount)
}

func TestClaimAllUnclaimed(t *testing.T) {
	storage := newMemGrantStorage()
	granter := &countingGranter{}
	lister := &fakeLister{referred: []int64{10, 11, 12}}
	svc := NewService(storage, lister, granter, fixedBonus{spins: 2})
	ctx := context.Background()

	result, err := svc.ClaimAllUnclaimed(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, result.ActivatedCount)
	assert.Equal(t, 6, result.TotalAttemptsGranted)
	assert.Equal(t, 6, granter.granted[1])

	// повторный сбор ничего не добавляет
	result, err = svc.ClaimAllUnclaimed(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, result.ActivatedCount)
	assert.Zero(t, result.TotalAttemptsGranted)
	assert.Equal(t, 6, granter.granted[1])
}

func TestClaimPicksUpOnlyNewReferrals(t *testing.T) {
	storage := newMemGrantStorage()
	granter := &countingGranter{}
	lister := &fakeLister{referred: []int64{10}}
	svc := NewService(storage, lister, granter, fixedBonus{spins: 1})
	ctx := context.Background()

	_, err := svc.ClaimAllUnclaimed(ctx, 1)
	require.NoError(t, err)

	// пришёл новый реферал
	lister.referred = []int64{10, 11}
	result, err := svc.ClaimAllUnclaimed(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ActivatedCount)
	assert.Equal(t, 2, granter.granted[1])
}

func TestClaimDisabledBonus(t *testing.T) {
	svc := NewService(newMemGrantStorage(), &fakeLister{referred: []int64{10}}, &countingGranter{}, fixedBonus{spins: 0})

	result, err := svc.ClaimAllUnclaimed(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, result.ActivatedCount)
}

func TestActivatedCount(t *testing.T) {
	storage := newMemGrantStorage()
	svc := NewService(storage, &fakeLister{}, &countingGranter{}, fixedBonus{spins: 1})
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, 1, 2, 1))
	require.NoError(t, svc.Grant(ctx, 1, 3, 1))

	n, err := svc.ActivatedCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
