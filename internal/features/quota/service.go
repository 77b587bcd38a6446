// Package quota — service.go реализует списание и начисление попыток.
//
// Все мутации квоты идут под одним мьютексом сервиса: перечитать
// состояние, при необходимости сбросить по суткам, изменить, сохранить.
package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"spinmarket.ru/telegram-bot/internal/common"
)

// settingsSource — динамические настройки квоты.
type settingsSource interface {
	DailySpinQuota(ctx context.Context) (int, error)
	QuotaResetHour(ctx context.Context) (int, error)
}

// Storage — хранилище состояний квоты.
type Storage interface {
	// GetState возвращает состояние, создавая нулевое при первом обращении.
	GetState(ctx context.Context, userID int64) (*State, error)
	// SaveState сохраняет изменённое состояние.
	SaveState(ctx context.Context, state *State) error
	// ResetAllBefore зануляет attempts_used_today у всех, чьи игровые
	// сутки старше day. Бонусные попытки не трогает.
	ResetAllBefore(ctx context.Context, day time.Time) (int64, error)
}

// Service управляет квотой спинов.
type Service struct {
	mu       sync.Mutex
	storage  Storage
	settings settingsSource

	// now подменяется в тестах
	now func() time.Time
}

// NewService создаёт сервис квоты.
func NewService(storage Storage, settings settingsSource) *Service {
	return &Service{
		storage:  storage,
		settings: settings,
		now:      common.GetMoscowTime,
	}
}

// resetIfDue сбрасывает дневной счётчик, если начались новые игровые сутки.
// Бонусные попытки переживают сброс. Вызывается под мьютексом сервиса.
func (s *Service) resetIfDue(ctx context.Context, st *State) (bool, error) {
	resetHour, err := s.settings.QuotaResetHour(ctx)
	if err != nil {
		return false, fmt.Errorf("ошибка чтения часа сброса: %w", err)
	}

	// Сравниваем календарные даты: из БД колонка DATE приходит как
	// полночь UTC, а QuotaDay считает полночь по Москве.
	today := common.QuotaDay(s.now(), resetHour)
	if common.SameDate(st.LastResetDate, today) {
		return false, nil
	}

	st.AttemptsUsedToday = 0
	st.LastResetDate = today
	return true, nil
}

// TryConsume списывает одну попытку.
// Возвращает false без побочных эффектов, если попыток не осталось.
// Приоритет списания: сначала бонусные попытки, потом дневная квота.
func (s *Service) TryConsume(ctx context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.storage.GetState(ctx, userID)
	if err != nil {
		return false, err
	}

	wasReset, err := s.resetIfDue(ctx, st)
	if err != nil {
		return false, err
	}

	daily, err := s.settings.DailySpinQuota(ctx)
	if err != nil {
		return false, fmt.Errorf("ошибка чтения дневной квоты: %w", err)
	}

	remaining := daily - st.AttemptsUsedToday + st.BonusAttempts
	if remaining <= 0 {
		// Сброс суток всё равно фиксируем, чтобы не повторять его
		// на каждом отказе.
		if wasReset {
			if err := s.storage.SaveState(ctx, st); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	if st.BonusAttempts > 0 {
		st.BonusAttempts--
	} else {
		st.AttemptsUsedToday++
	}

	if err := s.storage.SaveState(ctx, st); err != nil {
		return false, err
	}
	return true, nil
}

// GrantBonus добавляет n бонусных попыток в банк пользователя.
// Используется рефералкой и ручными начислениями админа.
func (s *Service) GrantBonus(ctx context.Context, userID int64, n int) error {
	if n <= 0 {
		return common.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.storage.GetState(ctx, userID)
	if err != nil {
		return err
	}

	st.BonusAttempts += n
	if err := s.storage.SaveState(ctx, st); err != nil {
		return err
	}

	log.WithFields(log.Fields{"user_id": userID, "bonus": n}).Info("Начислены бонусные попытки")
	return nil
}

// Remaining возвращает остаток попыток для отображения, прижатый к нулю.
func (s *Service) Remaining(ctx context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.storage.GetState(ctx, userID)
	if err != nil {
		return 0, err
	}
	if _, err := s.resetIfDue(ctx, st); err != nil {
		return 0, err
	}

	daily, err := s.settings.DailySpinQuota(ctx)
	if err != nil {
		return 0, err
	}

	remaining := daily - st.AttemptsUsedToday + st.BonusAttempts
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// SweepReset зануляет дневные счётчики всех пользователей, чьи игровые
// сутки закончились. Вызывается из планировщика; поверх него работает
// ленивый resetIfDue на каждом обращении.
func (s *Service) SweepReset(ctx context.Context) error {
	resetHour, err := s.settings.QuotaResetHour(ctx)
	if err != nil {
		return err
	}

	day := common.QuotaDay(s.now(), resetHour)

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.storage.ResetAllBefore(ctx, day)
	if err != nil {
		return fmt.Errorf("ошибка массового сброса квоты: %w", err)
	}
	log.WithField("users", n).Info("Суточный сброс квоты спинов выполнен")
	return nil
}
