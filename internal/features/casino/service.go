// Package casino — service.go координирует спин от начала до конца:
// валидация таблицы → списание попытки → розыгрыш → маршрутизация награды.
//
// Порядок жёсткий: попытка списывается ДО розыгрыша. Падение процесса
// между шагами может потерять спин, но никогда не дарит бесплатный.
package casino

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"spinmarket.ru/telegram-bot/internal/common"
)

// quotaConsumer списывает попытки спинов.
type quotaConsumer interface {
	TryConsume(ctx context.Context, userID int64) (bool, error)
}

// winRouter отправляет выигрыш в леджер или в заявку на подтверждение.
type winRouter interface {
	RouteWin(ctx context.Context, userID int64, rewardType string, amount decimal.Decimal, combo, displayName string) (int64, error)
}

// storage — операции казино с БД.
type storage interface {
	GetTiers(ctx context.Context) ([]*Tier, error)
	SaveSpin(ctx context.Context, spin *SpinRecord) error
	UpdateStats(ctx context.Context, userID int64, won bool) error
	GetStats(ctx context.Context, userID int64) (*Stats, error)
}

// SpinOutcome — итог спина для вызывающего слоя.
type SpinOutcome struct {
	Combo        [3]string
	Won          bool
	RewardType   string
	RewardAmount decimal.Decimal
	TierName     string
	OrderID      int64 // id заявки; 0 при проигрыше
}

// Service управляет слот-машиной.
type Service struct {
	repo   storage
	quota  quotaConsumer
	router winRouter
	engine *Engine
}

// NewService создаёт сервис казино.
func NewService(repo storage, quota quotaConsumer, router winRouter, engine *Engine) *Service {
	return &Service{
		repo:   repo,
		quota:  quota,
		router: router,
		engine: engine,
	}
}

// Spin выполняет полный цикл спина для пользователя.
//
// Возвращаемые ошибки:
//   - common.ErrConfigInvalid — таблица наград сломана, спины заблокированы
//   - common.ErrQuotaExhausted — попытки на сегодня кончились
func (s *Service) Spin(ctx context.Context, userID int64) (*SpinOutcome, error) {
	// Снапшот таблицы наград. Невалидная конфигурация блокирует спины
	// целиком — до исправления админом движок не запускается.
	tiers, err := s.repo.GetTiers(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки таблицы наград: %w", err)
	}
	table := NewTable(tiers)
	if err := table.Validate(); err != nil {
		log.WithError(err).Error("Таблица наград невалидна, спин отклонён")
		return nil, err
	}

	// Попытка списывается до розыгрыша.
	ok, err := s.quota.TryConsume(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка списания попытки: %w", err)
	}
	if !ok {
		return nil, common.ErrQuotaExhausted
	}

	// Сам розыгрыш читает только снапшот таблицы, блокировок не держит.
	result, err := s.engine.Draw(table)
	if err != nil {
		return nil, err
	}

	outcome := &SpinOutcome{Combo: result.Combo, Won: result.Won}

	if result.Won {
		tier := result.Tier
		orderID, err := s.router.RouteWin(ctx, userID, tier.RewardType, tier.RewardAmount, tier.ComboKey, tier.DisplayName)
		if err != nil {
			// Ошибка начисления касается денег — наверх, не глотаем.
			return nil, fmt.Errorf("ошибка маршрутизации выигрыша: %w", err)
		}
		outcome.RewardType = tier.RewardType
		outcome.RewardAmount = tier.RewardAmount
		outcome.TierName = tier.DisplayName
		outcome.OrderID = orderID
	}

	// Журнал спинов и статистика — вспомогательные, их ошибки не
	// отменяют уже применённый результат.
	record := &SpinRecord{
		UserID: userID,
		Combo:  JoinCombo(result.Combo),
		Won:    result.Won,
	}
	if result.Won {
		record.TierID = &result.Tier.ID
	}
	if err := s.repo.SaveSpin(ctx, record); err != nil {
		log.WithError(err).Error("Ошибка сохранения спина")
	}
	if err := s.repo.UpdateStats(ctx, userID, result.Won); err != nil {
		log.WithError(err).Error("Ошибка обновления статистики спинов")
	}

	return outcome, nil
}

// GetStats возвращает статистику спинов пользователя.
func (s *Service) GetStats(ctx context.Context, userID int64) (*Stats, error) {
	return s.repo.GetStats(ctx, userID)
}

// ListTiers возвращает тиры таблицы наград в порядке розыгрыша.
func (s *Service) ListTiers(ctx context.Context) ([]*Tier, error) {
	return s.repo.GetTiers(ctx)
}

// ValidateTable проверяет текущую таблицу наград.
// Используется админкой после правок тиров.
func (s *Service) ValidateTable(ctx context.Context) error {
	tiers, err := s.repo.GetTiers(ctx)
	if err != nil {
		return fmt.Errorf("ошибка загрузки таблицы наград: %w", err)
	}
	return NewTable(tiers).Validate()
}
