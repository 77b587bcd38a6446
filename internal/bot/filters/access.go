// Package filters решает, кому бот вообще отвечает.
package filters

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"spinmarket.ru/telegram-bot/internal/common"
	"spinmarket.ru/telegram-bot/internal/features/members"
)

// AccessFilter пропускает только личные сообщения от незабаненных
// пользователей. Магазин работает в DM, группы игнорируются.
type AccessFilter struct {
	memberService *members.Service
}

func NewAccessFilter(memberService *members.Service) *AccessFilter {
	return &AccessFilter{memberService: memberService}
}

func (f *AccessFilter) CheckAccess(ctx context.Context, message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil || message.From == nil {
		return false
	}
	if message.From.IsBot {
		return false
	}
	if !message.Chat.IsPrivate() {
		log.WithFields(log.Fields{
			"component": "AccessFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Debug("Сообщение не из личного чата, игнорируем")
		return false
	}

	member, err := f.memberService.GetByUserID(ctx, message.From.ID)
	if err != nil {
		// Незарегистрированный пользователь проходит: /start его зарегистрирует.
		if errors.Is(err, common.ErrUserNotFound) {
			return true
		}
		log.WithError(err).WithField("user_id", message.From.ID).Warn("Проверка пользователя не удалась")
		return false
	}
	if member.IsBanned {
		log.WithField("user_id", message.From.ID).Debug("Забаненный пользователь, игнорируем")
		return false
	}
	return true
}
