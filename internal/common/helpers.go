// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование сумм, работа с временем.
package common

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// PluralizeAttempts возвращает правильную форму слова «попытка» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "попытка" (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → "попытки" (2, 3, 4, 22, ...)
//   - Остальные случаи → "попыток" (0, 5-20, 25-30, 100, ...)
func PluralizeAttempts(n int) string {
	absN := int(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "попытка"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "попытки"
	}
	return "попыток"
}

// PluralizeReferrals возвращает правильную форму слова «реферал».
func PluralizeReferrals(n int) string {
	absN := int(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "реферал"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "реферала"
	}
	return "рефералов"
}

// FormatAmount форматирует денежную сумму для отображения.
// Полная точность хранится в decimal, показываем максимум 2 знака.
// Пример: FormatAmount(decimal "150.5") → "150.50 ₽"
func FormatAmount(amount decimal.Decimal) string {
	return fmt.Sprintf("%s ₽", amount.StringFixed(2))
}

// GetMoscowTime возвращает текущее время в часовом поясе Москвы (Europe/Moscow).
// Все суточные сбросы квоты спинов считаются по Москве.
func GetMoscowTime() time.Time {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		// Если не удалось загрузить — используем UTC+3 вручную
		loc = time.FixedZone("MSK", 3*60*60)
	}
	return time.Now().In(loc)
}

// QuotaDay возвращает «игровые сутки» для момента t при сбросе в resetHour.
// До часа сброса действуют ещё вчерашние сутки: квота, выданная в 23:00
// при сбросе в 03:00, живёт до трёх ночи следующего дня.
func QuotaDay(t time.Time, resetHour int) time.Time {
	shifted := t.Add(-time.Duration(resetHour) * time.Hour)
	return time.Date(shifted.Year(), shifted.Month(), shifted.Day(), 0, 0, 0, 0, t.Location())
}

// SameDate сравнивает календарные даты двух моментов, каждый в своей зоне.
// Колонка DATE из Postgres декодируется как полночь UTC, а QuotaDay отдаёт
// полночь по Москве — сравнивать их через Equal нельзя.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04".
// Используется для отображения дат операций и заявок.
func FormatDateTime(t time.Time) string {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		loc = time.FixedZone("MSK", 3*60*60)
	}
	return t.In(loc).Format("02.01.2006 15:04")
}
