// Package referral — handlers.go обрабатывает команды /invite и /claim.
package referral

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"spinmarket.ru/telegram-bot/internal/common"
)

// Handler обрабатывает реферальные команды.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
	botName string
}

// NewHandler создаёт обработчик реферальной программы.
// botName — username бота без @, для сборки ссылки-приглашения.
func NewHandler(service *Service, bot *tgbotapi.BotAPI, botName string) *Handler {
	return &Handler{service: service, bot: bot, botName: botName}
}

// HandleInvite обрабатывает команду /invite — личная ссылка-приглашение.
//
// Формат ответа:
//
//	🔗 Твоя ссылка: https://t.me/spinmarket_bot?start=ref_123456
//	Приглашено: 3 реферала
func (h *Handler) HandleInvite(ctx context.Context, chatID int64, userID int64) {
	count, err := h.service.ActivatedCount(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка подсчёта рефералов")
		h.sendMessage(chatID, "❌ Ошибка получения реферальной информации")
		return
	}

	link := fmt.Sprintf("https://t.me/%s?start=ref_%d", h.botName, userID)
	text := fmt.Sprintf("🔗 Твоя ссылка: %s\nПриглашено: %d %s",
		link, count, common.PluralizeReferrals(count))
	h.sendMessage(chatID, text)
}

// HandleClaim обрабатывает команду /claim — начисляет бонусные попытки
// за рефералов, по которым бонус ещё не выдавался. Повторный вызов
// безопасен: уже учтённые рефералы пропускаются.
func (h *Handler) HandleClaim(ctx context.Context, chatID int64, userID int64) {
	result, err := h.service.ClaimAllUnclaimed(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка начисления реферальных бонусов")
		h.sendMessage(chatID, "❌ Ошибка начисления бонусов, попробуй позже")
		return
	}

	if result.ActivatedCount == 0 {
		h.sendMessage(chatID, "Новых рефералов нет — все бонусы уже получены")
		return
	}

	text := fmt.Sprintf("🎁 Начислено %d %s за %d новых %s!",
		result.TotalAttemptsGranted, common.PluralizeAttempts(result.TotalAttemptsGranted),
		result.ActivatedCount, common.PluralizeReferrals(result.ActivatedCount))
	h.sendMessage(chatID, text)
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
