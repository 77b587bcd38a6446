// Package orders — handlers.go обрабатывает команды /withdraw и /orders.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"spinmarket.ru/telegram-bot/internal/common"
)

const ordersListLimit = 10

// Handler обрабатывает команды заявок.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик заявок.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleWithdraw обрабатывает команду /withdraw <сумма> <реквизиты>.
//
// Формат: /withdraw 500 2200700112345678
//
// Ответ при успехе:
//
//	📤 Заявка #42 на вывод создана
//	Сумма: 500.00 ₽
//	Комиссия: 50.00 ₽
//	К выплате: 450.00 ₽
func (h *Handler) HandleWithdraw(ctx context.Context, chatID int64, userID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		h.sendMessage(chatID, "Формат: /withdraw <сумма> <реквизиты>\nНапример: /withdraw 500 2200700112345678")
		return
	}

	amount, err := decimal.NewFromString(fields[0])
	if err != nil || !amount.IsPositive() {
		h.sendMessage(chatID, "❌ Некорректная сумма")
		return
	}
	requisites := strings.Join(fields[1:], " ")

	receipt, err := h.service.RequestWithdrawal(ctx, userID, amount, requisites)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInsufficientFunds):
			h.sendMessage(chatID, "❌ Недостаточно средств на балансе")
		case errors.Is(err, common.ErrInvalidAmount):
			h.sendMessage(chatID, "❌ Некорректная сумма")
		default:
			log.WithError(err).Error("Ошибка создания заявки на вывод")
			h.sendMessage(chatID, "❌ Не удалось создать заявку, попробуй позже")
		}
		return
	}

	text := fmt.Sprintf("📤 Заявка #%d на вывод создана\nСумма: %s\nКомиссия: %s\nК выплате: %s",
		receipt.OrderID,
		common.FormatAmount(receipt.Amount),
		common.FormatAmount(receipt.Commission),
		common.FormatAmount(receipt.FinalAmount))
	h.sendMessage(chatID, text)
}

// HandleOrders обрабатывает команду /orders — последние заявки пользователя.
func (h *Handler) HandleOrders(ctx context.Context, chatID int64, userID int64) {
	list, err := h.service.ListByUser(ctx, userID, ordersListLimit)
	if err != nil {
		log.WithError(err).Error("Ошибка получения заявок")
		h.sendMessage(chatID, "❌ Ошибка получения заявок")
		return
	}
	if len(list) == 0 {
		h.sendMessage(chatID, "У тебя пока нет заявок")
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 Твои заявки:\n\n")
	for _, o := range list {
		sb.WriteString(fmt.Sprintf("#%d %s %s — %s (%s)\n",
			o.ID, kindLabel(o.Kind), common.FormatAmount(o.Amount),
			statusLabel(o.Status), common.FormatDateTime(o.CreatedAt)))
	}
	h.sendMessage(chatID, sb.String())
}

func kindLabel(kind string) string {
	switch kind {
	case KindWithdraw:
		return "вывод"
	case KindSlotWin:
		return "выигрыш"
	case KindActivityReward:
		return "награда"
	case KindReferral:
		return "реферал"
	default:
		return kind
	}
}

func statusLabel(status string) string {
	switch status {
	case StatusPending:
		return "⏳ в обработке"
	case StatusCompleted:
		return "✅ выполнена"
	case StatusRejected:
		return "❌ отклонена"
	default:
		return status
	}
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
