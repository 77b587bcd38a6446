// Package casino — handlers.go обрабатывает команды /spin и /slotstats.
package casino

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"spinmarket.ru/telegram-bot/internal/common"
)

// quotaViewer показывает остаток попыток для сообщения после спина.
type quotaViewer interface {
	Remaining(ctx context.Context, userID int64) (int, error)
}

// Handler обрабатывает команды слот-машины.
type Handler struct {
	service *Service
	quota   quotaViewer
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик слот-машины.
func NewHandler(service *Service, quota quotaViewer, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, quota: quota, bot: bot}
}

// HandleSpin обрабатывает команду /spin — одна прокрутка слот-машины.
//
// Формат ответа:
//
//	🎰 🍒 🍒 🍒
//
//	🎉 Выигрыш: Три вишни — 50.00 ₽!
//	Осталось попыток: 2
func (h *Handler) HandleSpin(ctx context.Context, chatID int64, userID int64) {
	outcome, err := h.service.Spin(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrQuotaExhausted):
			h.sendMessage(chatID, "❌ Попытки на сегодня закончились. Возвращайся завтра или пригласи друга!")
		case errors.Is(err, common.ErrConfigInvalid):
			log.WithError(err).Error("Таблица наград невалидна, спин отклонён")
			h.sendMessage(chatID, "❌ Слот-машина временно недоступна")
		default:
			log.WithError(err).Error("Ошибка спина")
			h.sendMessage(chatID, "❌ Ошибка при прокрутке, попробуй ещё раз")
		}
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎰 %s\n\n", strings.Join(outcome.Combo[:], " ")))

	if outcome.Won {
		switch outcome.RewardType {
		case RewardMoney:
			sb.WriteString(fmt.Sprintf("🎉 Выигрыш: %s — %s!\n", outcome.TierName, common.FormatAmount(outcome.RewardAmount)))
		case RewardStars:
			sb.WriteString(fmt.Sprintf("🎉 Выигрыш: %s — %s Stars!\nЗаявка #%d передана на выплату.\n",
				outcome.TierName, outcome.RewardAmount.String(), outcome.OrderID))
		case RewardTON:
			sb.WriteString(fmt.Sprintf("🎉 Выигрыш: %s — %s TON!\nЗаявка #%d передана на выплату.\n",
				outcome.TierName, outcome.RewardAmount.String(), outcome.OrderID))
		}
	} else {
		sb.WriteString("Не повезло, попробуй ещё раз!\n")
	}

	if remaining, err := h.quota.Remaining(ctx, userID); err == nil {
		sb.WriteString(fmt.Sprintf("Осталось попыток: %d", remaining))
	}

	h.sendMessage(chatID, sb.String())
}

// HandleStats обрабатывает команду /slotstats — личная статистика спинов.
//
// Формат ответа:
//
//	📊 Твоя статистика:
//	Спинов: 42
//	Выигрышей: 5
func (h *Handler) HandleStats(ctx context.Context, chatID int64, userID int64) {
	stats, err := h.service.GetStats(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения статистики спинов")
		h.sendMessage(chatID, "❌ Ошибка получения статистики")
		return
	}

	text := fmt.Sprintf("📊 Твоя статистика:\nСпинов: %d\nВыигрышей: %d", stats.TotalSpins, stats.TotalWins)
	h.sendMessage(chatID, text)
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
