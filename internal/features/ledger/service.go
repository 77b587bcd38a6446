// Package ledger — service.go содержит все мутации балансов.
//
// Все пять операций (Credit, Debit, Freeze, Unfreeze, SettleFrozen)
// выполняются под одним мьютексом сервиса: перечитать счёт, изменить,
// сохранить. Ни одна операция не видит частично применённую соседнюю.
// На блокировки уровня БД для многошаговых сценариев не полагаемся —
// критическая секция явная и живёт здесь.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"spinmarket.ru/telegram-bot/internal/common"
)

// Storage — хранилище счетов и журнала операций.
// Save обязан записать счёт и запись журнала атомарно.
type Storage interface {
	// GetAccount возвращает счёт или common.ErrAccountNotFound.
	GetAccount(ctx context.Context, userID int64) (*Account, error)
	// CreateAccount создаёт нулевой счёт, если его ещё нет.
	CreateAccount(ctx context.Context, userID int64) error
	// Save сохраняет изменённый счёт и добавляет запись в журнал.
	Save(ctx context.Context, account *Account, entry *Entry) error
	// GetEntries возвращает последние limit записей журнала пользователя.
	GetEntries(ctx context.Context, userID int64, limit int) ([]*Entry, error)
}

// Service управляет балансами.
type Service struct {
	// Одна глобальная критическая секция на все счета: процесс один,
	// хранилище одно, пропускной способности хватает с запасом.
	mu      sync.Mutex
	storage Storage
}

// NewService создаёт сервис леджера.
func NewService(storage Storage) *Service {
	return &Service{storage: storage}
}

// loadOrCreate перечитывает счёт внутри критической секции,
// создавая его при первом обращении пользователя.
func (s *Service) loadOrCreate(ctx context.Context, userID int64) (*Account, error) {
	acc, err := s.storage.GetAccount(ctx, userID)
	if err == nil {
		return acc, nil
	}
	if err != common.ErrAccountNotFound {
		return nil, err
	}
	if err := s.storage.CreateAccount(ctx, userID); err != nil {
		return nil, fmt.Errorf("ошибка создания счёта: %w", err)
	}
	return s.storage.GetAccount(ctx, userID)
}

// Credit начисляет сумму на available. Не падает при корректной сумме:
// используется для автовыплат выигрышей и бонусов.
func (s *Service) Credit(ctx context.Context, userID int64, amount decimal.Decimal, description string) error {
	if !amount.IsPositive() {
		return common.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	acc.Available = acc.Available.Add(amount)
	return s.save(ctx, acc, EntryCredit, amount, description)
}

// Debit списывает сумму с available.
// Возвращает ErrInsufficientFunds, если средств не хватает.
func (s *Service) Debit(ctx context.Context, userID int64, amount decimal.Decimal, description string) error {
	if !amount.IsPositive() {
		return common.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	if acc.Available.LessThan(amount) {
		return common.ErrInsufficientFunds
	}

	acc.Available = acc.Available.Sub(amount)
	return s.save(ctx, acc, EntryDebit, amount, description)
}

// Freeze переносит сумму из available во frozen под заявку на вывод.
// Перенос атомарный: либо вся сумма, либо ErrInsufficientFunds.
func (s *Service) Freeze(ctx context.Context, userID int64, amount decimal.Decimal, description string) error {
	if !amount.IsPositive() {
		return common.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	if acc.Available.LessThan(amount) {
		return common.ErrInsufficientFunds
	}

	acc.Available = acc.Available.Sub(amount)
	acc.Frozen = acc.Frozen.Add(amount)
	return s.save(ctx, acc, EntryFreeze, amount, description)
}

// Unfreeze возвращает сумму из frozen в available (заявка отклонена).
// Frozen не уходит ниже нуля.
func (s *Service) Unfreeze(ctx context.Context, userID int64, amount decimal.Decimal, description string) error {
	if !amount.IsPositive() {
		return common.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	acc.Frozen = decimal.Max(acc.Frozen.Sub(amount), decimal.Zero)
	acc.Available = acc.Available.Add(amount)
	return s.save(ctx, acc, EntryUnfreeze, amount, description)
}

// SettleFrozen списывает сумму из frozen БЕЗ возврата на available:
// вывод выплачен вовне, средства покидают систему.
func (s *Service) SettleFrozen(ctx context.Context, userID int64, amount decimal.Decimal, description string) error {
	if !amount.IsPositive() {
		return common.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	acc.Frozen = decimal.Max(acc.Frozen.Sub(amount), decimal.Zero)
	return s.save(ctx, acc, EntrySettle, amount, description)
}

// save записывает счёт и журнал и логирует операцию.
func (s *Service) save(ctx context.Context, acc *Account, entryType string, amount decimal.Decimal, description string) error {
	entry := &Entry{
		UserID:      acc.UserID,
		EntryType:   entryType,
		Amount:      amount,
		Description: description,
	}
	if err := s.storage.Save(ctx, acc, entry); err != nil {
		return fmt.Errorf("ошибка сохранения счёта: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":   acc.UserID,
		"op":        entryType,
		"amount":    amount.String(),
		"available": acc.Available.String(),
		"frozen":    acc.Frozen.String(),
	}).Info("Операция по счёту")
	return nil
}

// GetBalance возвращает (available, frozen) пользователя.
// Чтение грязное, без критической секции — только для отображения.
// Любое решение о списании перечитывает счёт внутри своей операции.
func (s *Service) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, decimal.Decimal, error) {
	acc, err := s.storage.GetAccount(ctx, userID)
	if err != nil {
		if err == common.ErrAccountNotFound {
			return decimal.Zero, decimal.Zero, nil
		}
		return decimal.Zero, decimal.Zero, err
	}
	return acc.Available, acc.Frozen, nil
}

// GetHistory возвращает последние операции пользователя для отображения.
func (s *Service) GetHistory(ctx context.Context, userID int64, limit int) ([]*Entry, error) {
	return s.storage.GetEntries(ctx, userID, limit)
}
