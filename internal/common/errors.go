// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки леджера (баланс, заморозка, списания)
var (
	// ErrInsufficientFunds — недостаточно средств на счёте
	ErrInsufficientFunds = errors.New("недостаточно средств на счёте")
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrAccountNotFound — счёт пользователя не найден в базе
	ErrAccountNotFound = errors.New("счёт пользователя не найден")
)

// Ошибки слот-машины
var (
	// ErrConfigInvalid — таблица наград настроена неверно (сумма вероятностей > 100%)
	ErrConfigInvalid = errors.New("таблица наград настроена неверно, спины заблокированы")
	// ErrQuotaExhausted — попытки на сегодня закончились
	ErrQuotaExhausted = errors.New("попытки на сегодня закончились")
)

// Ошибки заявок (выводы, призы)
var (
	// ErrOrderNotFound — заявка не найдена
	ErrOrderNotFound = errors.New("заявка не найдена")
	// ErrOrderNotPending — заявка уже обработана
	ErrOrderNotPending = errors.New("заявка уже обработана")
)

// Ошибки рефералки
var (
	// ErrAlreadyGranted — бонус за этого реферала уже начислен
	ErrAlreadyGranted = errors.New("бонус за этого реферала уже начислен")
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = errors.New("пользователь не найден")
)

// Ошибки админки
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired — сессия истекла
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
)
