// Package scheduler запускает периодический обход подписок: рассылает
// напоминания об истечении и отзывает доступ у просроченных.
//
// Обход идемпотентен по состоянию базы: просроченная подписка
// деактивируется ровно один раз, а если исключение из канала не
// удалось, строка остаётся активной и будет обработана на следующем
// проходе. Ошибки по отдельным подпискам не прерывают обход.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/clubpass/club-access-bot/internal/lib/rabbitmq"
	"github.com/clubpass/club-access-bot/internal/lib/sl"
	"github.com/clubpass/club-access-bot/internal/lib/timeutil"
	"github.com/clubpass/club-access-bot/internal/metrics"
	"github.com/clubpass/club-access-bot/internal/models"
)

// Storage определяет методы хранилища, нужные планировщику.
type Storage interface {
	// FindExpiring возвращает активные подписки с истечением в окне [start, end).
	FindExpiring(ctx context.Context, start, end time.Time) ([]*models.ExpiringEntry, error)
	// FindExpired возвращает активные подписки, истёкшие к моменту now.
	FindExpired(ctx context.Context, now time.Time) ([]*models.ExpiringEntry, error)
	// DeactivateAndClear деактивирует подписку и снимает флаг платного канала.
	DeactivateAndClear(ctx context.Context, subscriptionID, userID int64) error
	// GetSetting возвращает настройку бота по ключу.
	GetSetting(ctx context.Context, key string) (string, bool, error)
}

// Messenger отправляет сообщения и исключает пользователей из канала.
type Messenger interface {
	SendMessage(chatID int64, text string) error
	BanMember(chatID, userID int64) error
}

// EventPublisher публикует события обхода для внешних потребителей.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// Service фоновый планировщик подписок.
type Service struct {
	log           *slog.Logger
	db            Storage
	tg            Messenger
	events        EventPublisher
	paidChannelID int64
	leadTimes     []int
	interval      time.Duration
	defaultPrice  int64
}

// New создает планировщик. leadTimes — за сколько дней до истечения
// слать напоминания, interval — период обхода.
func New(log *slog.Logger, db Storage, tg Messenger, events EventPublisher,
	paidChannelID int64, leadTimes []int, interval time.Duration, defaultPrice int64) *Service {
	return &Service{
		log:           log,
		db:            db,
		tg:            tg,
		events:        events,
		paidChannelID: paidChannelID,
		leadTimes:     leadTimes,
		interval:      interval,
		defaultPrice:  defaultPrice,
	}
}

// Run выполняет обход сразу и затем по тикеру, пока не отменён контекст.
func (s *Service) Run(ctx context.Context) {
	s.log.Info("scheduler started", slog.Duration("interval", s.interval))

	s.Sweep(ctx, time.Now().UTC())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx, time.Now().UTC())
		}
	}
}

// Sweep один проход планировщика: напоминания, затем отзыв доступа.
func (s *Service) Sweep(ctx context.Context, now time.Time) {
	s.notifyExpiring(ctx, now)
	s.revokeExpired(ctx, now)
}

func (s *Service) notifyExpiring(ctx context.Context, now time.Time) {
	price := s.price(ctx)

	for _, lead := range s.leadTimes {
		start, end := timeutil.LeadWindow(now, lead)
		entries, err := s.db.FindExpiring(ctx, start, end)
		if err != nil {
			s.log.Error("failed to find expiring subscriptions", sl.Err(err), slog.Int("lead", lead))
			continue
		}

		for _, entry := range entries {
			if err := s.tg.SendMessage(entry.TelegramID, reminderText(lead, price)); err != nil {
				s.log.Error("failed to send reminder", sl.Err(err), sl.User(entry.TelegramID))
				continue
			}
			metrics.RemindersSent.Inc()
			s.log.Info("reminder sent", sl.User(entry.TelegramID), slog.Int("days_left", lead))

			err := s.events.Publish(rabbitmq.RouteSubscriptionReminder, rabbitmq.SubscriptionReminderEvent{
				SubscriptionID: entry.SubscriptionID,
				UserID:         entry.UserID,
				TelegramID:     entry.TelegramID,
				DaysLeft:       lead,
				EndDate:        entry.EndDate,
			})
			if err != nil {
				s.log.Warn("failed to publish reminder event", sl.Err(err))
			}
		}
	}
}

func (s *Service) revokeExpired(ctx context.Context, now time.Time) {
	entries, err := s.db.FindExpired(ctx, now)
	if err != nil {
		s.log.Error("failed to find expired subscriptions", sl.Err(err))
		return
	}

	for _, entry := range entries {
		// Сначала исключение из канала: если оно не удалось, подписка
		// остаётся активной и строка будет обработана на следующем проходе.
		if err := s.tg.BanMember(s.paidChannelID, entry.TelegramID); err != nil {
			metrics.ChannelRevokeFailures.Inc()
			s.log.Error("failed to remove member from paid channel",
				sl.Err(err), sl.User(entry.TelegramID))
			continue
		}

		if err := s.db.DeactivateAndClear(ctx, entry.SubscriptionID, entry.UserID); err != nil {
			s.log.Error("failed to deactivate subscription",
				sl.Err(err), slog.Int64("subscription_id", entry.SubscriptionID))
			continue
		}
		metrics.SubscriptionsRevoked.Inc()
		s.log.Info("subscription revoked",
			slog.Int64("subscription_id", entry.SubscriptionID), sl.User(entry.TelegramID))

		if err := s.tg.SendMessage(entry.TelegramID, textAccessRevoked); err != nil {
			s.log.Warn("failed to send removal notice", sl.Err(err), sl.User(entry.TelegramID))
		}

		err := s.events.Publish(rabbitmq.RouteSubscriptionRevoked, rabbitmq.SubscriptionRevokedEvent{
			SubscriptionID: entry.SubscriptionID,
			UserID:         entry.UserID,
			TelegramID:     entry.TelegramID,
			RevokedAt:      now,
		})
		if err != nil {
			s.log.Warn("failed to publish revoked event", sl.Err(err))
		}
	}
}

func (s *Service) price(ctx context.Context) int64 {
	value, found, err := s.db.GetSetting(ctx, "subscription_price")
	if err != nil || !found {
		return s.defaultPrice
	}
	price, err := strconv.ParseInt(value, 10, 64)
	if err != nil || price <= 0 {
		return s.defaultPrice
	}
	return price
}

const textAccessRevoked = "❌ Доступ к платному контенту закрыт\n\n" +
	"Ваша подписка истекла, и вы были удалены из платного канала.\n\n" +
	"Для восстановления доступа:\n" +
	"1. 💰 Оплатить подписку (Настройки → Оплата в боте)\n" +
	"2. ✅ Подписка активируется автоматически\n\n" +
	"Спасибо за использование нашего сервиса!"

// reminderText собирает текст напоминания: тон зависит от того,
// сколько дней осталось.
func reminderText(daysLeft int, price int64) string {
	switch daysLeft {
	case 1:
		return fmt.Sprintf("⚠️ ВНИМАНИЕ! ⚠️\n\n"+
			"Ваша подписка истекает ЗАВТРА!\n\n"+
			"Чтобы продолжить доступ к платному контенту, необходимо продлить подписку.\n\n"+
			"💰 Стоимость: %d руб.\n"+
			"Оплатите через раздел Настройки → Оплата в боте.\n\n"+
			"Подписка активируется автоматически после оплаты.", price)
	case 3:
		return fmt.Sprintf("📅 Напоминание о подписке\n\n"+
			"Ваша подписка истекает через %d дня.\n\n"+
			"💰 Стоимость: %d руб.\n"+
			"Оплатите через раздел Настройки → Оплата в боте.\n\n"+
			"Не забудьте продлить подписку, чтобы сохранить доступ!", daysLeft, price)
	default:
		return fmt.Sprintf("📅 Напоминание о подписке\n\n"+
			"Ваша подписка истекает через %d дней.\n\n"+
			"💰 Стоимость: %d руб.\n"+
			"Оплатите через раздел Настройки → Оплата в боте.\n\n"+
			"Рекомендуем продлить подписку заранее!", daysLeft, price)
	}
}
