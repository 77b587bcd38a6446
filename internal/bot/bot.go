// Package bot содержит главный модуль бота — инициализацию, запуск и остановку.
// bot.go принимает апдейты, фильтрует доступ и маршрутизирует команды.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"spinmarket.ru/telegram-bot/internal/bot/filters"
	"spinmarket.ru/telegram-bot/internal/bot/middleware"
	"spinmarket.ru/telegram-bot/internal/config"
	"spinmarket.ru/telegram-bot/internal/features/admin"
	"spinmarket.ru/telegram-bot/internal/features/casino"
	"spinmarket.ru/telegram-bot/internal/features/ledger"
	"spinmarket.ru/telegram-bot/internal/features/members"
	"spinmarket.ru/telegram-bot/internal/features/orders"
	"spinmarket.ru/telegram-bot/internal/features/referral"
)

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	accessFilter *filters.AccessFilter
	rateLimiter  *middleware.RateLimiter

	memberService *members.Service

	ledgerHandler   *ledger.Handler
	casinoHandler   *casino.Handler
	ordersHandler   *orders.Handler
	referralHandler *referral.Handler
	adminHandler    *admin.Handler

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	memberService *members.Service,
	ledgerHandler *ledger.Handler,
	casinoHandler *casino.Handler,
	ordersHandler *orders.Handler,
	referralHandler *referral.Handler,
	adminHandler *admin.Handler,
	accessFilter *filters.AccessFilter,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:             api,
		cfg:             cfg,
		accessFilter:    accessFilter,
		rateLimiter:     middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		memberService:   memberService,
		ledgerHandler:   ledgerHandler,
		casinoHandler:   casinoHandler,
		ordersHandler:   ordersHandler,
		referralHandler: referralHandler,
		adminHandler:    adminHandler,
		parser:          NewCommandParser(),
		inflight:        make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.rateLimiter.Close()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic()

	if update.Message == nil || update.Message.Text == "" {
		return
	}
	message := update.Message

	middleware.LogMessage(message)

	if !b.accessFilter.CheckAccess(ctx, message) {
		return
	}

	if !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if !isCommand {
		return
	}

	// /start регистрирует сам, остальные команды требуют регистрации
	if cmd != "start" {
		registered, err := b.memberService.IsRegistered(ctx, userID)
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("Проверка регистрации не удалась")
			return
		}
		if !registered {
			b.sendMessage(chatID, "Сначала запусти бота командой /start")
			return
		}
	}

	b.routeCommand(ctx, chatID, userID, message, cmd, args)
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, chatID, userID int64, message *tgbotapi.Message, cmd string, args []string) {
	rest := strings.Join(args, " ")

	switch cmd {
	case "start":
		b.handleStart(ctx, chatID, message, args)

	case "help":
		b.sendMessage(chatID, helpText)

	case "spin", "слоты":
		if b.cfg.FeatureCasinoEnabled {
			b.casinoHandler.HandleSpin(ctx, chatID, userID)
		} else {
			b.sendMessage(chatID, "🎰 Слот-машина временно отключена")
		}

	case "slotstats", "статслоты":
		if b.cfg.FeatureCasinoEnabled {
			b.casinoHandler.HandleStats(ctx, chatID, userID)
		}

	case "balance", "баланс":
		b.ledgerHandler.HandleBalance(ctx, chatID, userID)

	case "history", "история":
		b.ledgerHandler.HandleHistory(ctx, chatID, userID)

	case "withdraw", "вывод":
		b.ordersHandler.HandleWithdraw(ctx, chatID, userID, rest)

	case "orders", "заявки":
		b.ordersHandler.HandleOrders(ctx, chatID, userID)

	case "invite", "пригласить":
		if b.cfg.FeatureReferralsEnabled {
			b.referralHandler.HandleInvite(ctx, chatID, userID)
		}

	case "claim", "бонус":
		if b.cfg.FeatureReferralsEnabled {
			b.referralHandler.HandleClaim(ctx, chatID, userID)
		}

	case "admin":
		b.adminHandler.HandleLogin(ctx, chatID, userID, rest)

	case "logout":
		b.adminHandler.HandleLogout(ctx, chatID, userID)

	case "pending":
		b.adminHandler.HandlePending(ctx, chatID, userID)

	case "approve":
		b.adminHandler.HandleApprove(ctx, chatID, userID, rest)

	case "reject":
		b.adminHandler.HandleReject(ctx, chatID, userID, rest)

	case "set":
		b.adminHandler.HandleSet(ctx, chatID, userID, rest)

	case "grantspins":
		b.adminHandler.HandleGrantSpins(ctx, chatID, userID, rest)

	case "reward":
		b.adminHandler.HandleReward(ctx, chatID, userID, rest)

	case "tiers":
		b.adminHandler.HandleTiers(ctx, chatID, userID)

	case "addtier":
		b.adminHandler.HandleAddTier(ctx, chatID, userID, rest)

	case "tierprob":
		b.adminHandler.HandleTierProb(ctx, chatID, userID, rest)

	case "deltier":
		b.adminHandler.HandleDelTier(ctx, chatID, userID, rest)
	}
}

// handleStart регистрирует пользователя. Полезная нагрузка вида
// "ref_123456" связывает его с пригласившим.
func (b *Bot) handleStart(ctx context.Context, chatID int64, message *tgbotapi.Message, args []string) {
	userID := message.From.ID

	var invitedBy int64
	if len(args) > 0 && strings.HasPrefix(args[0], "ref_") {
		if id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "ref_"), 10, 64); err == nil {
			invitedBy = id
		}
	}

	if err := b.memberService.Register(ctx, userID,
		message.From.UserName, message.From.FirstName, message.From.LastName, invitedBy,
	); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка регистрации пользователя")
		b.sendMessage(chatID, "❌ Не получилось зарегистрироваться, попробуй позже")
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("Привет, %s! 🎰\n\n%s", message.From.FirstName, helpText))
}

const helpText = `Команды:
/spin — прокрутить слот-машину
/balance — баланс
/history — история операций
/withdraw <сумма> <реквизиты> — вывод средств
/orders — твои заявки
/invite — ссылка-приглашение
/claim — бонусы за рефералов`

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// SendMessageToUser отправляет личное сообщение (уведомления о заявках).
func (b *Bot) SendMessageToUser(userID int64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Не удалось отправить сообщение")
	}
}

// CommandParser парсит команды с префиксами / и !.
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"/", "!"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
// "/spin@spinmarket_bot" нормализуется в "spin".
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}
	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	return command, args, true
}
