// Package settings реализует динамические настройки бота.
// В отличие от internal/config (окружение, читается один раз при старте),
// эти значения админ меняет на лету: процент комиссии вывода, суточная
// квота спинов, час сброса квоты, бонусные попытки за реферала.
//
// Значения хранятся строками в таблице settings, наружу отдаются через
// типизированные аксессоры. Прочитанное кэшируется под RWMutex; запись
// сбрасывает кэш, поэтому изменение админа действует со следующего запроса.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Ключи настроек и значения по умолчанию.
const (
	KeyCommissionPercent  = "commission_percent"
	KeyDailySpinQuota     = "daily_spin_quota"
	KeyQuotaResetHour     = "quota_reset_hour"
	KeyReferralBonusSpins = "referral_bonus_spins"
)

var defaults = map[string]string{
	KeyCommissionPercent:  "10",
	KeyDailySpinQuota:     "3",
	KeyQuotaResetHour:     "0",
	KeyReferralBonusSpins: "1",
}

// ErrSettingNotFound — ключ отсутствует и в базе, и в дефолтах.
var ErrSettingNotFound = errors.New("настройка не найдена")

// ErrBadSettingValue — значение не проходит валидацию для своего ключа.
var ErrBadSettingValue = errors.New("недопустимое значение настройки")

// Storage — хранилище пар ключ/значение.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Store — типизированный доступ к настройкам с кэшем.
type Store struct {
	storage Storage

	mu    sync.RWMutex
	cache map[string]string
}

// NewStore создаёт хранилище настроек поверх Storage.
func NewStore(storage Storage) *Store {
	return &Store{
		storage: storage,
		cache:   make(map[string]string),
	}
}

// get возвращает строковое значение: кэш → база → дефолт.
func (s *Store) get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	if v, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return v, nil
	}
	s.mu.RUnlock()

	v, err := s.storage.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrSettingNotFound) {
			return "", fmt.Errorf("ошибка чтения настройки %s: %w", key, err)
		}
		def, ok := defaults[key]
		if !ok {
			return "", ErrSettingNotFound
		}
		v = def
	}

	s.mu.Lock()
	s.cache[key] = v
	s.mu.Unlock()
	return v, nil
}

// Set валидирует значение по ключу, пишет в базу и сбрасывает кэш.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := validate(key, value); err != nil {
		return err
	}
	if err := s.storage.Set(ctx, key, value); err != nil {
		return fmt.Errorf("ошибка записи настройки %s: %w", key, err)
	}

	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()

	log.WithFields(log.Fields{"key": key, "value": value}).Info("Настройка обновлена")
	return nil
}

// validate проверяет значение для известных ключей.
// Неизвестные ключи не принимаем, чтобы не копить мусор в таблице.
func validate(key, value string) error {
	switch key {
	case KeyCommissionPercent:
		d, err := decimal.NewFromString(value)
		if err != nil || d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("%w: %s=%q (ожидается 0..100)", ErrBadSettingValue, key, value)
		}
	case KeyDailySpinQuota, KeyReferralBonusSpins:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s=%q (ожидается целое >= 0)", ErrBadSettingValue, key, value)
		}
	case KeyQuotaResetHour:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 23 {
			return fmt.Errorf("%w: %s=%q (ожидается час 0..23)", ErrBadSettingValue, key, value)
		}
	default:
		return fmt.Errorf("%w: неизвестный ключ %q", ErrBadSettingValue, key)
	}
	return nil
}

// CommissionPercent возвращает процент комиссии на вывод средств.
func (s *Store) CommissionPercent(ctx context.Context) (decimal.Decimal, error) {
	v, err := s.get(ctx, KeyCommissionPercent)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("битое значение %s=%q: %w", KeyCommissionPercent, v, err)
	}
	return d, nil
}

// DailySpinQuota возвращает число бесплатных попыток в сутки.
func (s *Store) DailySpinQuota(ctx context.Context) (int, error) {
	return s.getInt(ctx, KeyDailySpinQuota)
}

// QuotaResetHour возвращает час (0-23), в который наступают новые «игровые сутки».
func (s *Store) QuotaResetHour(ctx context.Context) (int, error) {
	return s.getInt(ctx, KeyQuotaResetHour)
}

// ReferralBonusSpins возвращает число бонусных попыток за одного реферала.
func (s *Store) ReferralBonusSpins(ctx context.Context) (int, error) {
	return s.getInt(ctx, KeyReferralBonusSpins)
}

func (s *Store) getInt(ctx context.Context, key string) (int, error) {
	v, err := s.get(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("битое значение %s=%q: %w", key, v, err)
	}
	return n, nil
}
