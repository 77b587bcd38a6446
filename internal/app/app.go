// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики,
// фильтры и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"spinmarket.ru/telegram-bot/internal/bot"
	"spinmarket.ru/telegram-bot/internal/bot/filters"
	"spinmarket.ru/telegram-bot/internal/config"
	"spinmarket.ru/telegram-bot/internal/db/postgres"
	"spinmarket.ru/telegram-bot/internal/features/admin"
	"spinmarket.ru/telegram-bot/internal/features/casino"
	"spinmarket.ru/telegram-bot/internal/features/ledger"
	"spinmarket.ru/telegram-bot/internal/features/members"
	"spinmarket.ru/telegram-bot/internal/features/orders"
	"spinmarket.ru/telegram-bot/internal/features/quota"
	"spinmarket.ru/telegram-bot/internal/features/referral"
	"spinmarket.ru/telegram-bot/internal/jobs"
	"spinmarket.ru/telegram-bot/internal/settings"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	BotAPI    *tgbotapi.BotAPI
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Репозитории ===
	memberRepo := members.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)
	casinoRepo := casino.NewRepository(pool)
	quotaRepo := quota.NewRepository(pool)
	orderRepo := orders.NewRepository(pool)
	referralRepo := referral.NewRepository(pool)
	settingsRepo := settings.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === 4. Сервисы ===
	settingsStore := settings.NewStore(settingsRepo)
	memberService := members.NewService(memberRepo)
	ledgerService := ledger.NewService(ledgerRepo)
	quotaService := quota.NewService(quotaRepo, settingsStore)
	orderService := orders.NewService(orderRepo, ledgerService, settingsStore)
	casinoService := casino.NewService(casinoRepo, quotaService, orderService, casino.NewEngine())
	referralService := referral.NewService(referralRepo, memberService, quotaService, settingsStore)
	adminService := admin.NewService(adminRepo, orderService, settingsStore, quotaService, casinoRepo, casinoService, cfg, cfg.AdminPasswordHash)

	// === 5. Обработчики ===
	ledgerHandler := ledger.NewHandler(ledgerService, botAPI)
	casinoHandler := casino.NewHandler(casinoService, quotaService, botAPI)
	orderHandler := orders.NewHandler(orderService, botAPI)
	referralHandler := referral.NewHandler(referralService, botAPI, botAPI.Self.UserName)
	adminHandler := admin.NewHandler(adminService, botAPI)

	// === 6. Фильтры ===
	accessFilter := filters.NewAccessFilter(memberService)

	// === 7. Собираем бота ===
	b := bot.New(
		botAPI, cfg,
		memberService,
		ledgerHandler,
		casinoHandler,
		orderHandler,
		referralHandler,
		adminHandler,
		accessFilter,
	)

	// === 8. Планировщик задач ===
	scheduler := jobs.NewScheduler(quotaService)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		DB:        pool,
		BotAPI:    botAPI,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.InitMigrations(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Members},
		{2, migration002Ledger},
		{3, migration003Casino},
		{4, migration004Quota},
		{5, migration005Orders},
		{6, migration006Referral},
		{7, migration007Settings},
		{8, migration008Admin},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Members = `
CREATE TABLE IF NOT EXISTS members (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT UNIQUE NOT NULL,
    username VARCHAR(255),
    first_name VARCHAR(255) NOT NULL,
    last_name VARCHAR(255),
    invited_by BIGINT,
    is_banned BOOLEAN DEFAULT FALSE,
    joined_at TIMESTAMP DEFAULT NOW(),
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_members_user_id ON members(user_id);
CREATE INDEX IF NOT EXISTS idx_members_invited_by ON members(invited_by);
`

var migration002Ledger = `
CREATE TABLE IF NOT EXISTS accounts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT UNIQUE NOT NULL,
    available NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (available >= 0),
    frozen NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (frozen >= 0),
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS ledger_entries (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    entry_type VARCHAR(32) NOT NULL,
    amount NUMERIC(14,2) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_ledger_entries_user_id ON ledger_entries(user_id, created_at DESC);
`

var migration003Casino = `
CREATE TABLE IF NOT EXISTS reward_tiers (
    id BIGSERIAL PRIMARY KEY,
    combo_key VARCHAR(64) UNIQUE NOT NULL,
    reward_type VARCHAR(16) NOT NULL,
    reward_amount NUMERIC(14,2) NOT NULL,
    probability_percent DOUBLE PRECISION NOT NULL,
    display_name VARCHAR(255) NOT NULL,
    created_at TIMESTAMP DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS spins (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    combo VARCHAR(64) NOT NULL,
    won BOOLEAN NOT NULL,
    tier_id BIGINT REFERENCES reward_tiers(id),
    created_at TIMESTAMP DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_spins_user_id ON spins(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS spin_stats (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT UNIQUE NOT NULL,
    total_spins BIGINT NOT NULL DEFAULT 0,
    total_wins BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);

INSERT INTO reward_tiers (combo_key, reward_type, reward_amount, probability_percent, display_name)
VALUES
    ('🍒🍒🍒', 'money', 50.00, 5.0, 'Три вишни'),
    ('🍋🍋🍋', 'money', 100.00, 2.0, 'Три лимона'),
    ('💎💎💎', 'stars', 100, 0.5, 'Три алмаза'),
    ('⭐⭐⭐', 'ton', 1, 0.1, 'Три звезды')
ON CONFLICT (combo_key) DO NOTHING;
`

var migration004Quota = `
CREATE TABLE IF NOT EXISTS spin_quota (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT UNIQUE NOT NULL,
    attempts_used_today INT NOT NULL DEFAULT 0,
    bonus_attempts INT NOT NULL DEFAULT 0,
    last_reset_date DATE NOT NULL DEFAULT '1970-01-01',
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
`

var migration005Orders = `
CREATE TABLE IF NOT EXISTS orders (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    kind VARCHAR(32) NOT NULL,
    amount NUMERIC(14,2) NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'pending',
    extra JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status) WHERE status = 'pending';
`

var migration006Referral = `
CREATE TABLE IF NOT EXISTS referral_grants (
    id BIGSERIAL PRIMARY KEY,
    referrer_id BIGINT NOT NULL,
    referred_user_id BIGINT NOT NULL,
    attempts_granted INT NOT NULL,
    created_at TIMESTAMP DEFAULT NOW(),
    UNIQUE (referrer_id, referred_user_id)
);

CREATE INDEX IF NOT EXISTS idx_referral_grants_referrer ON referral_grants(referrer_id);
`

var migration007Settings = `
CREATE TABLE IF NOT EXISTS settings (
    key VARCHAR(64) PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT NOW()
);
`

var migration008Admin = `
CREATE TABLE IF NOT EXISTS admin_sessions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    session_token VARCHAR(128) NOT NULL,
    authenticated_at TIMESTAMP NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMP NOT NULL,
    last_activity TIMESTAMP NOT NULL DEFAULT NOW(),
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_admin_sessions_user ON admin_sessions(user_id, is_active);

CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    attempt_time TIMESTAMP NOT NULL DEFAULT NOW(),
    success BOOLEAN NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_admin_login_attempts_user ON admin_login_attempts(user_id, attempt_time DESC);
`
