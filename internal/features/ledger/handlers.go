// Package ledger — handlers.go обрабатывает команды /balance и /history.
package ledger

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"spinmarket.ru/telegram-bot/internal/common"
)

const historyLimit = 10

// Handler обрабатывает команды баланса.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик баланса.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleBalance обрабатывает команду /balance — показывает баланс.
//
// Формат ответа:
//
//	💰 Доступно: 150.00 ₽
//	🧊 Заморожено: 40.00 ₽
func (h *Handler) HandleBalance(ctx context.Context, chatID int64, userID int64) {
	available, frozen, err := h.service.GetBalance(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения баланса")
		h.sendMessage(chatID, "❌ Ошибка получения баланса")
		return
	}

	text := fmt.Sprintf("💰 Доступно: %s", common.FormatAmount(available))
	if frozen.IsPositive() {
		text += fmt.Sprintf("\n🧊 Заморожено: %s", common.FormatAmount(frozen))
	}
	h.sendMessage(chatID, text)
}

// HandleHistory обрабатывает команду /history — последние операции по счёту.
func (h *Handler) HandleHistory(ctx context.Context, chatID int64, userID int64) {
	entries, err := h.service.GetHistory(ctx, userID, historyLimit)
	if err != nil {
		log.WithError(err).Error("Ошибка получения истории операций")
		h.sendMessage(chatID, "❌ Ошибка получения истории")
		return
	}
	if len(entries) == 0 {
		h.sendMessage(chatID, "История операций пуста")
		return
	}

	var sb strings.Builder
	sb.WriteString("📜 Последние операции:\n\n")
	for _, e := range entries {
		sign := "+"
		if e.EntryType == EntryDebit || e.EntryType == EntryFreeze {
			sign = "-"
		}
		sb.WriteString(fmt.Sprintf("%s %s%s — %s\n",
			common.FormatDateTime(e.CreatedAt), sign, common.FormatAmount(e.Amount), e.Description))
	}
	h.sendMessage(chatID, sb.String())
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
