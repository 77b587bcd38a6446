// Package members — service.go содержит бизнес-логику регистрации.
// Сервис координирует первый /start, реферальную привязку и обновление
// информации о вернувшихся пользователях.
package members

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"spinmarket.ru/telegram-bot/internal/common"
)

// Service управляет пользователями витрины.
type Service struct {
	repo *Repository
}

// NewService создаёт новый сервис пользователей.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Register обрабатывает /start.
// Новому пользователю записывается реферальная привязка (invitedBy > 0
// и не сам себе); у существующего обновляются только имя и username —
// привязку перезаписать нельзя.
func (s *Service) Register(ctx context.Context, userID int64, username, firstName, lastName string, invitedBy int64) error {
	existing, err := s.repo.GetByUserID(ctx, userID)
	if err != nil && err != common.ErrUserNotFound {
		return err
	}
	if existing != nil {
		log.WithField("user_id", userID).Debug("Пользователь вернулся, обновляем данные")
		return s.repo.UpdateInfo(ctx, userID, UpdateInfo{
			Username:  username,
			FirstName: firstName,
			LastName:  lastName,
		})
	}

	member := &Member{
		UserID:    userID,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
	}
	if invitedBy > 0 && invitedBy != userID {
		member.InvitedBy = &invitedBy
	}

	if err := s.repo.Create(ctx, member); err != nil {
		return fmt.Errorf("ошибка регистрации пользователя: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":    userID,
		"username":   username,
		"invited_by": invitedBy,
	}).Info("Новый пользователь зарегистрирован")
	return nil
}

// GetByUserID возвращает пользователя по его Telegram user ID.
func (s *Service) GetByUserID(ctx context.Context, userID int64) (*Member, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// GetByUsername возвращает пользователя по @username (без @).
func (s *Service) GetByUsername(ctx context.Context, username string) (*Member, error) {
	return s.repo.GetByUsername(ctx, username)
}

// IsRegistered проверяет, запускал ли пользователь бота.
func (s *Service) IsRegistered(ctx context.Context, userID int64) (bool, error) {
	return s.repo.Exists(ctx, userID)
}

// GetReferredUserIDs возвращает всех приглашённых пользователем.
func (s *Service) GetReferredUserIDs(ctx context.Context, referrerID int64) ([]int64, error) {
	return s.repo.GetReferredUserIDs(ctx, referrerID)
}
