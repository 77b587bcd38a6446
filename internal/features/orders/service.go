// Package orders — service.go реализует маршрутизатор выплат
// и машину состояний заявок.
//
// Все переходы статусов идут через одну функцию transition, независимую
// от способа доставки решения (кнопка в боте, CLI, что угодно).
package orders

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"spinmarket.ru/telegram-bot/internal/common"
	"spinmarket.ru/telegram-bot/internal/features/casino"
)

// ledgerService — операции леджера, которые дёргает маршрутизатор.
type ledgerService interface {
	Credit(ctx context.Context, userID int64, amount decimal.Decimal, description string) error
	Freeze(ctx context.Context, userID int64, amount decimal.Decimal, description string) error
	Unfreeze(ctx context.Context, userID int64, amount decimal.Decimal, description string) error
	SettleFrozen(ctx context.Context, userID int64, amount decimal.Decimal, description string) error
}

// settingsSource — настройки, читаемые в момент запроса.
type settingsSource interface {
	CommissionPercent(ctx context.Context) (decimal.Decimal, error)
}

// Storage — хранилище заявок.
type Storage interface {
	// Create сохраняет заявку и заполняет её ID.
	Create(ctx context.Context, order *Order) error
	// GetByID возвращает заявку или common.ErrOrderNotFound.
	GetByID(ctx context.Context, id int64) (*Order, error)
	// FinishPending атомарно переводит pending-заявку в новый статус.
	// Возвращает common.ErrOrderNotPending, если заявка уже обработана.
	FinishPending(ctx context.Context, id int64, newStatus string, extra Extra) error
	// ListPending возвращает все заявки, ждущие решения.
	ListPending(ctx context.Context) ([]*Order, error)
	// ListByUser возвращает последние заявки пользователя.
	ListByUser(ctx context.Context, userID int64, limit int) ([]*Order, error)
}

// Service управляет заявками и маршрутизацией наград.
type Service struct {
	storage  Storage
	ledger   ledgerService
	settings settingsSource
}

// NewService создаёт сервис заявок.
func NewService(storage Storage, ledgerSvc ledgerService, settings settingsSource) *Service {
	return &Service{
		storage:  storage,
		ledger:   ledgerSvc,
		settings: settings,
	}
}

// RouteWin маршрутизирует выигрыш спина.
//
// Деньги зачисляются на счёт сразу, заявка рождается уже completed —
// админского шага нет. Stars и TON создают pending-заявку без движения
// по леджеру: средства зачислит подтверждение админа.
func (s *Service) RouteWin(ctx context.Context, userID int64, rewardType string, amount decimal.Decimal, combo, displayName string) (int64, error) {
	if !amount.IsPositive() {
		return 0, common.ErrInvalidAmount
	}

	order := &Order{
		UserID: userID,
		Kind:   KindSlotWin,
		Amount: amount,
		Status: StatusPending,
		Extra: Extra{
			RewardType: rewardType,
			Combo:      combo,
			TierName:   displayName,
		},
	}

	if rewardType == casino.RewardMoney {
		if err := s.ledger.Credit(ctx, userID, amount, "Выигрыш в слотах: "+displayName); err != nil {
			return 0, fmt.Errorf("ошибка зачисления выигрыша: %w", err)
		}
		order.Status = StatusCompleted
	}

	if err := s.storage.Create(ctx, order); err != nil {
		return 0, fmt.Errorf("ошибка создания заявки: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":  userID,
		"order_id": order.ID,
		"reward":   rewardType,
		"amount":   amount.String(),
		"status":   order.Status,
	}).Info("Выигрыш обработан")
	return order.ID, nil
}

// RequestWithdrawal оформляет заявку на вывод средств.
//
// Комиссия читается из настроек в момент запроса (не кэшируется на заявке
// заранее), считается в полной точности и хранится только как метаданные:
// замораживается вся запрошенная сумма. Если средств не хватает, заявка
// не создаётся вовсе — пользователь получает отказ сразу.
func (s *Service) RequestWithdrawal(ctx context.Context, userID int64, amount decimal.Decimal, requisites string) (*WithdrawalReceipt, error) {
	if !amount.IsPositive() {
		return nil, common.ErrInvalidAmount
	}

	commissionPct, err := s.settings.CommissionPercent(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения комиссии: %w", err)
	}
	commission := amount.Mul(commissionPct).Div(decimal.NewFromInt(100))
	final := amount.Sub(commission)

	// Заморозка до создания заявки: при нехватке средств никаких следов.
	if err := s.ledger.Freeze(ctx, userID, amount, "Заявка на вывод"); err != nil {
		return nil, err
	}

	order := &Order{
		UserID: userID,
		Kind:   KindWithdraw,
		Amount: amount,
		Status: StatusPending,
		Extra: Extra{
			Commission:  commission.String(),
			FinalAmount: final.String(),
			Requisites:  requisites,
		},
	}
	if err := s.storage.Create(ctx, order); err != nil {
		// Заявка не записалась — возвращаем заморозку, иначе средства
		// повиснут без заявки.
		if uerr := s.ledger.Unfreeze(ctx, userID, amount, "Откат несохранённой заявки"); uerr != nil {
			log.WithError(uerr).WithField("user_id", userID).Error("Не удалось откатить заморозку")
		}
		return nil, fmt.Errorf("ошибка создания заявки: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":  userID,
		"order_id": order.ID,
		"amount":   amount.String(),
		"final":    final.String(),
	}).Info("Заявка на вывод создана")

	return &WithdrawalReceipt{
		OrderID:     order.ID,
		Amount:      amount,
		Commission:  commission,
		FinalAmount: final,
	}, nil
}

// Approve подтверждает pending-заявку.
// Вывод: замороженная сумма списывается насовсем (выплачено вовне).
// Stars/TON-выигрыш: сумма зачисляется на счёт.
func (s *Service) Approve(ctx context.Context, orderID, adminID int64, note string) (*Order, error) {
	return s.transition(ctx, orderID, adminID, true, note)
}

// Reject отклоняет pending-заявку.
// Вывод: заморозка возвращается на available. Stars/TON: движения
// по леджеру нет — под них ничего не резервировалось.
func (s *Service) Reject(ctx context.Context, orderID, adminID int64, note string) (*Order, error) {
	return s.transition(ctx, orderID, adminID, false, note)
}

// transition — единственная точка смены статуса заявки.
//
// Статус забирается первым атомарным переходом pending → финальный:
// двойное подтверждение двумя админами не приводит к двойному движению
// средств. Ошибка леджера после захвата статуса — инфраструктурная,
// она логируется и поднимается наверх для ручного разбора.
func (s *Service) transition(ctx context.Context, orderID, adminID int64, approve bool, note string) (*Order, error) {
	order, err := s.storage.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != StatusPending {
		return nil, common.ErrOrderNotPending
	}

	newStatus := StatusRejected
	if approve {
		newStatus = StatusCompleted
	}

	extra := order.Extra
	extra.AdminID = adminID
	if note != "" {
		extra.Note = note
	}

	if err := s.storage.FinishPending(ctx, orderID, newStatus, extra); err != nil {
		return nil, err
	}
	order.Status = newStatus
	order.Extra = extra

	if err := s.applyLedgerEffect(ctx, order, approve); err != nil {
		log.WithError(err).WithField("order_id", orderID).
			Error("Статус заявки изменён, но операция по счёту не прошла")
		return nil, err
	}

	log.WithFields(log.Fields{
		"order_id": orderID,
		"admin_id": adminID,
		"kind":     order.Kind,
		"status":   newStatus,
	}).Info("Заявка обработана")
	return order, nil
}

// applyLedgerEffect выполняет движение средств для финального статуса.
func (s *Service) applyLedgerEffect(ctx context.Context, order *Order, approve bool) error {
	desc := fmt.Sprintf("Заявка #%d", order.ID)

	switch order.Kind {
	case KindWithdraw:
		if approve {
			// Средства выплачены вовне и покидают систему.
			return s.ledger.SettleFrozen(ctx, order.UserID, order.Amount, desc)
		}
		return s.ledger.Unfreeze(ctx, order.UserID, order.Amount, desc)

	default:
		// slot_win (stars/ton), activity_reward, referral: при подтверждении
		// зачисляем, при отклонении движения нет — ничего не резервировалось.
		if approve {
			return s.ledger.Credit(ctx, order.UserID, order.Amount, desc+": начисление по заявке")
		}
		return nil
	}
}

// CreateActivityReward начисляет награду за активность: деньги падают
// на счёт сразу, заявка создаётся completed для истории.
func (s *Service) CreateActivityReward(ctx context.Context, userID int64, amount decimal.Decimal, adminID int64, note string) (*Order, error) {
	if !amount.IsPositive() {
		return nil, common.ErrInvalidAmount
	}

	if err := s.ledger.Credit(ctx, userID, amount, "Награда за активность"); err != nil {
		return nil, fmt.Errorf("ошибка начисления награды: %w", err)
	}

	order := &Order{
		UserID: userID,
		Kind:   KindActivityReward,
		Amount: amount,
		Status: StatusCompleted,
		Extra:  Extra{RewardType: casino.RewardMoney, AdminID: adminID, Note: note},
	}
	if err := s.storage.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("ошибка создания заявки: %w", err)
	}
	return order, nil
}

// GetOrder возвращает заявку по id.
func (s *Service) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	return s.storage.GetByID(ctx, orderID)
}

// ListPending возвращает заявки, ждущие решения админа.
func (s *Service) ListPending(ctx context.Context) ([]*Order, error) {
	return s.storage.ListPending(ctx)
}

// ListByUser возвращает последние заявки пользователя.
func (s *Service) ListByUser(ctx context.Context, userID int64, limit int) ([]*Order, error) {
	return s.storage.ListByUser(ctx, userID, limit)
}
