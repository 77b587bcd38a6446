// Package admin — service.go: парольный вход с argon2id, сессии на 24 часа,
// защита от перебора и сами админ-операции над заявками и настройками.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"spinmarket.ru/telegram-bot/internal/common"
	"spinmarket.ru/telegram-bot/internal/features/casino"
	"spinmarket.ru/telegram-bot/internal/features/orders"
)

const (
	sessionTTL       = 24 * time.Hour
	maxLoginFailures = 3
)

// orderManager — операции над заявками, доступные администратору.
type orderManager interface {
	Approve(ctx context.Context, orderID, adminID int64, note string) (*orders.Order, error)
	Reject(ctx context.Context, orderID, adminID int64, note string) (*orders.Order, error)
	ListPending(ctx context.Context) ([]*orders.Order, error)
	CreateActivityReward(ctx context.Context, userID int64, amount decimal.Decimal, adminID int64, note string) (*orders.Order, error)
}

// settingsEditor пишет значения настроек с валидацией.
type settingsEditor interface {
	Set(ctx context.Context, key, value string) error
}

// bonusGranter начисляет бонусные попытки.
type bonusGranter interface {
	GrantBonus(ctx context.Context, userID int64, n int) error
}

// tierEditor правит таблицу наград (casino.Repository).
type tierEditor interface {
	CreateTier(ctx context.Context, comboKey, rewardType string, amount decimal.Decimal, probability float64, displayName string) (int64, error)
	UpdateTierProbability(ctx context.Context, tierID int64, probability float64) error
	DeleteTier(ctx context.Context, tierID int64) error
}

// tableViewer читает и проверяет текущую таблицу наград.
type tableViewer interface {
	ListTiers(ctx context.Context) ([]*casino.Tier, error)
	ValidateTable(ctx context.Context) error
}

// adminChecker проверяет членство в списке администраторов из конфига.
type adminChecker interface {
	IsAdmin(userID int64) bool
}

type Service struct {
	repo     *Repository
	orders   orderManager
	settings settingsEditor
	quota    bonusGranter
	tiers    tierEditor
	table    tableViewer
	cfg      adminChecker

	passwordHash string
}

func NewService(repo *Repository, om orderManager, se settingsEditor, bg bonusGranter, te tierEditor, tv tableViewer, cfg adminChecker, passwordHash string) *Service {
	return &Service{
		repo:         repo,
		orders:       om,
		settings:     se,
		quota:        bg,
		tiers:        te,
		table:        tv,
		cfg:          cfg,
		passwordHash: passwordHash,
	}
}

// Login проверяет пароль и открывает сессию. Три неудачные попытки за час
// блокируют вход до истечения окна.
func (s *Service) Login(ctx context.Context, userID int64, password string) (*Session, error) {
	if !s.cfg.IsAdmin(userID) {
		return nil, common.ErrNotAdmin
	}

	failures, err := s.repo.CountRecentFailures(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("подсчёт попыток входа: %w", err)
	}
	if failures >= maxLoginFailures {
		log.WithField("user_id", userID).Warn("Вход администратора заблокирован: слишком много попыток")
		return nil, common.ErrTooManyAttempts
	}

	ok, err := verifyArgon2id(password, s.passwordHash)
	if err != nil {
		return nil, fmt.Errorf("проверка пароля: %w", err)
	}
	if logErr := s.repo.LogAttempt(ctx, userID, ok); logErr != nil {
		log.WithError(logErr).Error("Не удалось записать попытку входа")
	}
	if !ok {
		return nil, common.ErrWrongPassword
	}

	// старые сессии закрываем, активной остаётся одна
	if err := s.repo.DeactivateSessions(ctx, userID); err != nil {
		return nil, fmt.Errorf("закрытие старых сессий: %w", err)
	}

	token, err := generateSecureToken()
	if err != nil {
		return nil, fmt.Errorf("генерация токена: %w", err)
	}
	session, err := s.repo.CreateSession(ctx, userID, token, time.Now().Add(sessionTTL))
	if err != nil {
		return nil, fmt.Errorf("создание сессии: %w", err)
	}

	log.WithField("user_id", userID).Info("Администратор вошёл в систему")
	return session, nil
}

// Logout закрывает все сессии администратора.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.repo.DeactivateSessions(ctx, userID)
}

// requireSession проверяет список админов и наличие живой сессии.
func (s *Service) requireSession(ctx context.Context, userID int64) error {
	if !s.cfg.IsAdmin(userID) {
		return common.ErrNotAdmin
	}
	session, err := s.repo.GetActiveSession(ctx, userID)
	if err != nil {
		return fmt.Errorf("поиск сессии: %w", err)
	}
	if session == nil {
		return common.ErrSessionExpired
	}
	if err := s.repo.UpdateActivity(ctx, session.ID); err != nil {
		log.WithError(err).Warn("Не удалось обновить активность сессии")
	}
	return nil
}

// HasActiveSession сообщает, авторизован ли администратор сейчас.
func (s *Service) HasActiveSession(ctx context.Context, userID int64) bool {
	return s.requireSession(ctx, userID) == nil
}

// ApproveOrder подтверждает заявку от имени администратора.
func (s *Service) ApproveOrder(ctx context.Context, adminID, orderID int64, note string) (*orders.Order, error) {
	if err := s.requireSession(ctx, adminID); err != nil {
		return nil, err
	}
	return s.orders.Approve(ctx, orderID, adminID, note)
}

// RejectOrder отклоняет заявку от имени администратора.
func (s *Service) RejectOrder(ctx context.Context, adminID, orderID int64, note string) (*orders.Order, error) {
	if err := s.requireSession(ctx, adminID); err != nil {
		return nil, err
	}
	return s.orders.Reject(ctx, orderID, adminID, note)
}

// ListPendingOrders возвращает очередь заявок на ручную обработку.
func (s *Service) ListPendingOrders(ctx context.Context, adminID int64) ([]*orders.Order, error) {
	if err := s.requireSession(ctx, adminID); err != nil {
		return nil, err
	}
	return s.orders.ListPending(ctx)
}

// UpdateSetting меняет значение настройки (комиссия, дневная квота и т.д.).
func (s *Service) UpdateSetting(ctx context.Context, adminID int64, key, value string) error {
	if err := s.requireSession(ctx, adminID); err != nil {
		return err
	}
	if err := s.settings.Set(ctx, key, value); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"admin_id": adminID,
		"key":      key,
		"value":    value,
	}).Info("Настройка изменена администратором")
	return nil
}

// GrantAttempts вручную начисляет пользователю бонусные попытки.
func (s *Service) GrantAttempts(ctx context.Context, adminID, userID int64, n int) error {
	if err := s.requireSession(ctx, adminID); err != nil {
		return err
	}
	if err := s.quota.GrantBonus(ctx, userID, n); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"admin_id": adminID,
		"user_id":  userID,
		"attempts": n,
	}).Info("Бонусные попытки начислены вручную")
	return nil
}

// ListTiers возвращает текущую таблицу наград.
func (s *Service) ListTiers(ctx context.Context, adminID int64) ([]*casino.Tier, error) {
	if err := s.requireSession(ctx, adminID); err != nil {
		return nil, err
	}
	return s.table.ListTiers(ctx)
}

// AddTier добавляет тир наград и перепроверяет таблицу.
// Невалидная после правки таблица блокирует спины, поэтому ошибка
// валидации возвращается админу сразу — правка при этом сохранена.
func (s *Service) AddTier(ctx context.Context, adminID int64, comboKey, rewardType string, amount decimal.Decimal, probability float64, displayName string) (int64, error) {
	if err := s.requireSession(ctx, adminID); err != nil {
		return 0, err
	}

	tierID, err := s.tiers.CreateTier(ctx, comboKey, rewardType, amount, probability, displayName)
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{
		"admin_id": adminID,
		"tier_id":  tierID,
		"combo":    comboKey,
	}).Info("Тир наград добавлен")

	return tierID, s.table.ValidateTable(ctx)
}

// SetTierProbability меняет вероятность тира и перепроверяет таблицу.
func (s *Service) SetTierProbability(ctx context.Context, adminID, tierID int64, probability float64) error {
	if err := s.requireSession(ctx, adminID); err != nil {
		return err
	}
	if err := s.tiers.UpdateTierProbability(ctx, tierID, probability); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"admin_id":    adminID,
		"tier_id":     tierID,
		"probability": probability,
	}).Info("Вероятность тира изменена")

	return s.table.ValidateTable(ctx)
}

// DeleteTier удаляет тир наград.
func (s *Service) DeleteTier(ctx context.Context, adminID, tierID int64) error {
	if err := s.requireSession(ctx, adminID); err != nil {
		return err
	}
	if err := s.tiers.DeleteTier(ctx, tierID); err != nil {
		return err
	}
	log.WithFields(log.Fields{"admin_id": adminID, "tier_id": tierID}).Info("Тир наград удалён")
	return nil
}

// RewardActivity начисляет пользователю денежную награду за активность.
func (s *Service) RewardActivity(ctx context.Context, adminID, userID int64, amount decimal.Decimal, note string) (*orders.Order, error) {
	if err := s.requireSession(ctx, adminID); err != nil {
		return nil, err
	}
	return s.orders.CreateActivityReward(ctx, userID, amount, adminID, note)
}

// verifyArgon2id сверяет пароль с хешем формата
// $argon2id$v=19$m=65536,t=3,p=2$<salt_b64>$<hash_b64>.
func verifyArgon2id(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("неверный формат хеша пароля")
	}

	var memory uint32
	var iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, fmt.Errorf("разбор параметров argon2: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("декодирование соли: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("декодирование хеша: %w", err)
	}

	actual := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}

func generateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
