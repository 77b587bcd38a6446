package common

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPluralizeAttempts(t *testing.T) {
	cases := map[int]string{
		0:   "попыток",
		1:   "попытка",
		2:   "попытки",
		4:   "попытки",
		5:   "попыток",
		11:  "попыток",
		12:  "попыток",
		21:  "попытка",
		22:  "попытки",
		100: "попыток",
		101: "попытка",
	}
	for n, want := range cases {
		assert.Equal(t, want, PluralizeAttempts(n), "n=%d", n)
	}
}

func TestPluralizeReferrals(t *testing.T) {
	assert.Equal(t, "реферал", PluralizeReferrals(1))
	assert.Equal(t, "реферала", PluralizeReferrals(3))
	assert.Equal(t, "рефералов", PluralizeReferrals(7))
	assert.Equal(t, "рефералов", PluralizeReferrals(11))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "150.50 ₽", FormatAmount(decimal.RequireFromString("150.5")))
	assert.Equal(t, "0.00 ₽", FormatAmount(decimal.Zero))
	// полная точность обрезается до двух знаков при показе
	assert.Equal(t, "2.50 ₽", FormatAmount(decimal.RequireFromString("2.49975")))
}

func TestQuotaDay(t *testing.T) {
	loc := time.UTC

	// сброс в полночь: календарные сутки
	assert.Equal(t,
		time.Date(2025, 6, 1, 0, 0, 0, 0, loc),
		QuotaDay(time.Date(2025, 6, 1, 23, 59, 0, 0, loc), 0))

	// сброс в 03:00: 02:59 — ещё вчерашние сутки
	assert.Equal(t,
		time.Date(2025, 6, 1, 0, 0, 0, 0, loc),
		QuotaDay(time.Date(2025, 6, 2, 2, 59, 0, 0, loc), 3))
	assert.Equal(t,
		time.Date(2025, 6, 2, 0, 0, 0, 0, loc),
		QuotaDay(time.Date(2025, 6, 2, 3, 0, 0, 0, loc), 3))
}

func TestSameDate(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)

	// полночь по Москве и полночь UTC того же календарного дня —
	// разные моменты, но один день
	assert.True(t, SameDate(
		time.Date(2025, 6, 1, 0, 0, 0, 0, msk),
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))

	assert.False(t, SameDate(
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)))

	// время суток не влияет
	assert.True(t, SameDate(
		time.Date(2025, 6, 1, 23, 59, 0, 0, msk),
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
}

func TestFormatDateTime(t *testing.T) {
	// 12:00 UTC = 15:00 по Москве
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "01.06.2025 15:00", FormatDateTime(ts))
}
