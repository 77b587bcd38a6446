// Package referral — service.go содержит логику начисления бонусов.
//
// Ключевое свойство — идемпотентность: сколько бы раз пользователь ни
// нажимал «забрать бонус», за одного реферала начисляется ровно один
// бонус. Гарантию даёт атомарная вставка с уникальным ограничением,
// а не проверка перед вставкой.
package referral

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"spinmarket.ru/telegram-bot/internal/common"
)

// Storage — хранилище выданных бонусов.
type Storage interface {
	// InsertGrant атомарно вставляет запись, если её ещё нет.
	// Возвращает common.ErrAlreadyGranted, если пара уже существует.
	InsertGrant(ctx context.Context, referrerID, referredUserID int64, attempts int) error
	// HasGrant проверяет наличие записи для пары.
	HasGrant(ctx context.Context, referrerID, referredUserID int64) (bool, error)
	// CountGrants возвращает число активированных рефералов пользователя.
	CountGrants(ctx context.Context, referrerID int64) (int, error)
}

// referredLister отдаёт приглашённых пользователей (members.invited_by).
type referredLister interface {
	GetReferredUserIDs(ctx context.Context, referrerID int64) ([]int64, error)
}

// bonusGranter начисляет бонусные попытки (quota.Service).
type bonusGranter interface {
	GrantBonus(ctx context.Context, userID int64, n int) error
}

// settingsSource — размер бонуса за одного реферала.
type settingsSource interface {
	ReferralBonusSpins(ctx context.Context) (int, error)
}

// Service управляет реферальными бонусами.
type Service struct {
	storage  Storage
	members  referredLister
	quota    bonusGranter
	settings settingsSource
}

// NewService создаёт сервис рефералки.
func NewService(storage Storage, members referredLister, quota bonusGranter, settings settingsSource) *Service {
	return &Service{
		storage:  storage,
		members:  members,
		quota:    quota,
		settings: settings,
	}
}

// HasGranted проверяет, выдан ли бонус за пару.
func (s *Service) HasGranted(ctx context.Context, referrerID, referredUserID int64) (bool, error) {
	return s.storage.HasGrant(ctx, referrerID, referredUserID)
}

// Grant выдаёт бонус за одного реферала.
// Повторный вызов для той же пары возвращает common.ErrAlreadyGranted,
// попытки второй раз не начисляются.
func (s *Service) Grant(ctx context.Context, referrerID, referredUserID int64, attempts int) error {
	if attempts <= 0 {
		return common.ErrInvalidAmount
	}

	// Сначала атомарная вставка: она же и замок от двойной выдачи.
	if err := s.storage.InsertGrant(ctx, referrerID, referredUserID, attempts); err != nil {
		return err
	}

	if err := s.quota.GrantBonus(ctx, referrerID, attempts); err != nil {
		return fmt.Errorf("ошибка начисления бонусных попыток: %w", err)
	}

	log.WithFields(log.Fields{
		"referrer": referrerID,
		"referred": referredUserID,
		"attempts": attempts,
	}).Info("Реферальный бонус выдан")
	return nil
}

// ClaimAllUnclaimed выдаёт бонусы за всех ещё не активированных рефералов.
// Безопасно вызывать сколько угодно раз: уже выданные пары пропускаются.
func (s *Service) ClaimAllUnclaimed(ctx context.Context, referrerID int64) (*ClaimResult, error) {
	referred, err := s.members.GetReferredUserIDs(ctx, referrerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка рефералов: %w", err)
	}

	attempts, err := s.settings.ReferralBonusSpins(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения размера бонуса: %w", err)
	}

	result := &ClaimResult{}
	if attempts <= 0 {
		// Бонус отключён настройкой — активировать нечего.
		return result, nil
	}

	for _, referredID := range referred {
		err := s.Grant(ctx, referrerID, referredID, attempts)
		if err != nil {
			if errors.Is(err, common.ErrAlreadyGranted) {
				// Уже активирован — для вызывающего это не ошибка.
				continue
			}
			return nil, err
		}
		result.ActivatedCount++
		result.TotalAttemptsGranted += attempts
	}

	return result, nil
}

// ActivatedCount возвращает число активированных рефералов для статистики.
func (s *Service) ActivatedCount(ctx context.Context, referrerID int64) (int, error) {
	return s.storage.CountGrants(ctx, referrerID)
}
