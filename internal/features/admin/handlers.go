// Package admin — handlers.go обрабатывает админ-команды:
// /admin (вход), /pending, /approve, /reject, /set, /grantspins, /reward.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"spinmarket.ru/telegram-bot/internal/common"
	"spinmarket.ru/telegram-bot/internal/features/orders"
)

// Handler обрабатывает административные команды.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик админ-команд.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleLogin обрабатывает команду /admin <пароль>.
func (h *Handler) HandleLogin(ctx context.Context, chatID int64, userID int64, args string) {
	password := strings.TrimSpace(args)
	if password == "" {
		h.sendMessage(chatID, "Формат: /admin <пароль>")
		return
	}

	_, err := h.service.Login(ctx, userID, password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotAdmin):
			h.sendMessage(chatID, "❌ Команда доступна только администраторам")
		case errors.Is(err, common.ErrWrongPassword):
			h.sendMessage(chatID, "❌ Неверный пароль")
		case errors.Is(err, common.ErrTooManyAttempts):
			h.sendMessage(chatID, "❌ Слишком много попыток входа, подожди час")
		default:
			log.WithError(err).Error("Ошибка входа администратора")
			h.sendMessage(chatID, "❌ Ошибка входа")
		}
		return
	}

	h.sendMessage(chatID, "✅ Вход выполнен. Сессия действует 24 часа.")
}

// HandleLogout обрабатывает команду /logout.
func (h *Handler) HandleLogout(ctx context.Context, chatID int64, userID int64) {
	if err := h.service.Logout(ctx, userID); err != nil {
		log.WithError(err).Error("Ошибка выхода администратора")
		h.sendMessage(chatID, "❌ Ошибка выхода")
		return
	}
	h.sendMessage(chatID, "Сессия закрыта")
}

// HandlePending обрабатывает команду /pending — очередь заявок.
func (h *Handler) HandlePending(ctx context.Context, chatID int64, userID int64) {
	list, err := h.service.ListPendingOrders(ctx, userID)
	if err != nil {
		h.replyAuthError(chatID, err, "Ошибка получения очереди заявок")
		return
	}
	if len(list) == 0 {
		h.sendMessage(chatID, "Очередь пуста — заявок на обработку нет")
		return
	}

	var sb strings.Builder
	sb.WriteString("⏳ Заявки на обработку:\n\n")
	for _, o := range list {
		sb.WriteString(formatPendingOrder(o))
	}
	sb.WriteString("\n/approve <id> или /reject <id> [причина]")
	h.sendMessage(chatID, sb.String())
}

// HandleApprove обрабатывает команду /approve <id> [комментарий].
func (h *Handler) HandleApprove(ctx context.Context, chatID int64, userID int64, args string) {
	orderID, note, ok := parseOrderArgs(args)
	if !ok {
		h.sendMessage(chatID, "Формат: /approve <id заявки> [комментарий]")
		return
	}

	order, err := h.service.ApproveOrder(ctx, userID, orderID, note)
	if err != nil {
		h.replyOrderError(chatID, err, "Ошибка подтверждения заявки")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ Заявка #%d подтверждена (%s, %s)",
		order.ID, order.Kind, common.FormatAmount(order.Amount)))
}

// HandleReject обрабатывает команду /reject <id> [причина].
func (h *Handler) HandleReject(ctx context.Context, chatID int64, userID int64, args string) {
	orderID, note, ok := parseOrderArgs(args)
	if !ok {
		h.sendMessage(chatID, "Формат: /reject <id заявки> [причина]")
		return
	}

	order, err := h.service.RejectOrder(ctx, userID, orderID, note)
	if err != nil {
		h.replyOrderError(chatID, err, "Ошибка отклонения заявки")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("❌ Заявка #%d отклонена", order.ID))
}

// HandleSet обрабатывает команду /set <ключ> <значение>.
//
// Доступные ключи: commission_percent, daily_spin_quota,
// quota_reset_hour, referral_bonus_spins.
func (h *Handler) HandleSet(ctx context.Context, chatID int64, userID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		h.sendMessage(chatID, "Формат: /set <ключ> <значение>\nКлючи: commission_percent, daily_spin_quota, quota_reset_hour, referral_bonus_spins")
		return
	}

	if err := h.service.UpdateSetting(ctx, userID, fields[0], fields[1]); err != nil {
		switch {
		case errors.Is(err, common.ErrNotAdmin), errors.Is(err, common.ErrSessionExpired):
			h.replyAuthError(chatID, err, "")
		default:
			h.sendMessage(chatID, fmt.Sprintf("❌ Не удалось сохранить настройку: %v", err))
		}
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ %s = %s", fields[0], fields[1]))
}

// HandleGrantSpins обрабатывает команду /grantspins <user_id> <кол-во>.
func (h *Handler) HandleGrantSpins(ctx context.Context, chatID int64, userID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		h.sendMessage(chatID, "Формат: /grantspins <user_id> <количество>")
		return
	}
	targetID, err1 := strconv.ParseInt(fields[0], 10, 64)
	n, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil || n <= 0 {
		h.sendMessage(chatID, "❌ Некорректные аргументы")
		return
	}

	if err := h.service.GrantAttempts(ctx, userID, targetID, n); err != nil {
		h.replyAuthError(chatID, err, "Ошибка начисления попыток")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ Пользователю %d начислено %d %s",
		targetID, n, common.PluralizeAttempts(n)))
}

// HandleReward обрабатывает команду /reward <user_id> <сумма> [комментарий].
func (h *Handler) HandleReward(ctx context.Context, chatID int64, userID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		h.sendMessage(chatID, "Формат: /reward <user_id> <сумма> [комментарий]")
		return
	}
	targetID, err1 := strconv.ParseInt(fields[0], 10, 64)
	amount, err2 := decimal.NewFromString(fields[1])
	if err1 != nil || err2 != nil || !amount.IsPositive() {
		h.sendMessage(chatID, "❌ Некорректные аргументы")
		return
	}
	note := strings.Join(fields[2:], " ")

	order, err := h.service.RewardActivity(ctx, userID, targetID, amount, note)
	if err != nil {
		h.replyAuthError(chatID, err, "Ошибка начисления награды")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ Награда %s начислена пользователю %d (заявка #%d)",
		common.FormatAmount(order.Amount), targetID, order.ID))
}

// HandleTiers обрабатывает команду /tiers — текущая таблица наград.
func (h *Handler) HandleTiers(ctx context.Context, chatID int64, userID int64) {
	tiers, err := h.service.ListTiers(ctx, userID)
	if err != nil {
		h.replyAuthError(chatID, err, "Ошибка получения таблицы наград")
		return
	}
	if len(tiers) == 0 {
		h.sendMessage(chatID, "Таблица наград пуста — слоты всегда проигрывают")
		return
	}

	var sb strings.Builder
	sb.WriteString("🎰 Таблица наград:\n\n")
	total := 0.0
	for _, tier := range tiers {
		sb.WriteString(fmt.Sprintf("#%d %s — %s %s, %.2f%% (%s)\n",
			tier.ID, tier.ComboKey, tier.RewardAmount.String(), tier.RewardType,
			tier.ProbabilityPercent, tier.DisplayName))
		total += tier.ProbabilityPercent
	}
	sb.WriteString(fmt.Sprintf("\nСуммарная вероятность выигрыша: %.2f%%", total))
	h.sendMessage(chatID, sb.String())
}

// HandleAddTier обрабатывает команду
// /addtier <комбо> <money|stars|ton> <награда> <вероятность%> <название...>.
func (h *Handler) HandleAddTier(ctx context.Context, chatID int64, userID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) < 5 {
		h.sendMessage(chatID, "Формат: /addtier <комбо> <money|stars|ton> <награда> <вероятность> <название>\nНапример: /addtier 🍇🍇🍇 money 200 1.5 Три винограда")
		return
	}

	comboKey, rewardType := fields[0], fields[1]
	amount, err1 := decimal.NewFromString(fields[2])
	probability, err2 := strconv.ParseFloat(fields[3], 64)
	if err1 != nil || err2 != nil {
		h.sendMessage(chatID, "❌ Некорректные аргументы")
		return
	}
	displayName := strings.Join(fields[4:], " ")

	tierID, err := h.service.AddTier(ctx, userID, comboKey, rewardType, amount, probability, displayName)
	if err != nil {
		if errors.Is(err, common.ErrConfigInvalid) {
			h.sendMessage(chatID, fmt.Sprintf("⚠️ Тир #%d добавлен, но таблица стала невалидной и спины заблокированы:\n%v", tierID, err))
			return
		}
		h.replyAuthError(chatID, err, "Ошибка добавления тира")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ Тир #%d добавлен", tierID))
}

// HandleTierProb обрабатывает команду /tierprob <id> <вероятность%>.
func (h *Handler) HandleTierProb(ctx context.Context, chatID int64, userID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		h.sendMessage(chatID, "Формат: /tierprob <id тира> <вероятность>")
		return
	}
	tierID, err1 := strconv.ParseInt(fields[0], 10, 64)
	probability, err2 := strconv.ParseFloat(fields[1], 64)
	if err1 != nil || err2 != nil {
		h.sendMessage(chatID, "❌ Некорректные аргументы")
		return
	}

	if err := h.service.SetTierProbability(ctx, userID, tierID, probability); err != nil {
		if errors.Is(err, common.ErrConfigInvalid) {
			h.sendMessage(chatID, fmt.Sprintf("⚠️ Вероятность изменена, но таблица стала невалидной и спины заблокированы:\n%v", err))
			return
		}
		h.replyAuthError(chatID, err, "Ошибка изменения вероятности")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ Вероятность тира #%d: %.2f%%", tierID, probability))
}

// HandleDelTier обрабатывает команду /deltier <id>.
func (h *Handler) HandleDelTier(ctx context.Context, chatID int64, userID int64, args string) {
	tierID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil || tierID <= 0 {
		h.sendMessage(chatID, "Формат: /deltier <id тира>")
		return
	}

	if err := h.service.DeleteTier(ctx, userID, tierID); err != nil {
		h.replyAuthError(chatID, err, "Ошибка удаления тира")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ Тир #%d удалён", tierID))
}

func formatPendingOrder(o *orders.Order) string {
	line := fmt.Sprintf("#%d | %s | user %d | %s", o.ID, o.Kind, o.UserID, common.FormatAmount(o.Amount))
	if o.Kind == orders.KindWithdraw {
		line += fmt.Sprintf(" → %s ₽, реквизиты: %s", o.Extra.FinalAmount, o.Extra.Requisites)
	} else if o.Extra.RewardType != "" {
		line += " (" + o.Extra.RewardType + ")"
	}
	return line + "\n"
}

func parseOrderArgs(args string) (int64, string, bool) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, "", false
	}
	orderID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || orderID <= 0 {
		return 0, "", false
	}
	return orderID, strings.Join(fields[1:], " "), true
}

func (h *Handler) replyOrderError(chatID int64, err error, logMsg string) {
	switch {
	case errors.Is(err, common.ErrNotAdmin):
		h.sendMessage(chatID, "❌ Команда доступна только администраторам")
	case errors.Is(err, common.ErrSessionExpired):
		h.sendMessage(chatID, "❌ Сессия истекла, войди заново: /admin <пароль>")
	case errors.Is(err, common.ErrOrderNotFound):
		h.sendMessage(chatID, "❌ Заявка не найдена")
	case errors.Is(err, common.ErrOrderNotPending):
		h.sendMessage(chatID, "❌ Заявка уже обработана")
	default:
		log.WithError(err).Error(logMsg)
		h.sendMessage(chatID, "❌ "+logMsg)
	}
}

func (h *Handler) replyAuthError(chatID int64, err error, logMsg string) {
	switch {
	case errors.Is(err, common.ErrNotAdmin):
		h.sendMessage(chatID, "❌ Команда доступна только администраторам")
	case errors.Is(err, common.ErrSessionExpired):
		h.sendMessage(chatID, "❌ Сессия истекла, войди заново: /admin <пароль>")
	default:
		if logMsg == "" {
			logMsg = "Ошибка выполнения команды"
		}
		log.WithError(err).Error(logMsg)
		h.sendMessage(chatID, "❌ "+logMsg)
	}
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
