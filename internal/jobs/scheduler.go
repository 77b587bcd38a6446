// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ежечасный сброс дневных квот спинов.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"spinmarket.ru/telegram-bot/internal/features/quota"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron         *cron.Cron
	quotaService *quota.Service
}

// NewScheduler создаёт планировщик задач с московским часовым поясом.
func NewScheduler(quotaService *quota.Service) *Scheduler {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		log.WithError(err).Warn("Не удалось загрузить Europe/Moscow, используем UTC+3")
		loc = time.FixedZone("MSK", 3*60*60)
	}

	return &Scheduler{
		cron:         cron.New(cron.WithLocation(loc)),
		quotaService: quotaService,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Час сброса — настройка, которую админ может поменять на лету,
	// поэтому задача бежит каждый час, а SweepReset сам сравнивает
	// границу квотного дня. Запуск не в час сброса — дешёвый no-op.
	s.cron.AddFunc("5 * * * *", func() {
		log.Debug("[CRON] Сброс дневных квот спинов")
		if err := s.quotaService.SweepReset(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка сброса квот")
		}
	})

	s.cron.Start()
	log.Info("Планировщик задач запущен (Europe/Moscow)")
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
