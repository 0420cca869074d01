// Package reconciler сводит платёжный журнал с подписками.
//
// Единственный источник правды о доступе — запись подписки, поэтому
// перевод платежа в success и продление подписки выполняются одной
// транзакцией хранилища. Внешние побочные эффекты (приглашение в канал,
// уведомления, события брокера) выполняются после фиксации и при
// неудаче не откатывают её: доступ уже куплен, выдать его можно повторно.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clubpass/club-access-bot/internal/lib/rabbitmq"
	"github.com/clubpass/club-access-bot/internal/lib/sl"
	"github.com/clubpass/club-access-bot/internal/metrics"
	"github.com/clubpass/club-access-bot/internal/models"
)

// Storage определяет методы хранилища для сверки платежей.
type Storage interface {
	// ConfirmPaymentAndExtend атомарно проводит платёж и продлевает подписку.
	ConfirmPaymentAndExtend(ctx context.Context, paymentID string, duration time.Duration, now time.Time) (*models.ReconcileResult, error)
	// ExtendOrCreateSubscription продлевает или создаёт подписку вручную.
	ExtendOrCreateSubscription(ctx context.Context, userID int64, duration time.Duration, now time.Time) (time.Time, error)
	// FindSubscriptionEntry возвращает подписку с telegram id владельца.
	FindSubscriptionEntry(ctx context.Context, subscriptionID int64) (*models.ExpiringEntry, bool, error)
	// GetUserTelegramID возвращает telegram id по внутреннему id пользователя.
	GetUserTelegramID(ctx context.Context, id int64) (int64, bool, error)
	// DeactivateAndClear гасит подписку и снимает флаг платного канала.
	DeactivateAndClear(ctx context.Context, subscriptionID, userID int64) error
	// SetPaidChannelStatus отмечает нахождение пользователя в платном канале.
	SetPaidChannelStatus(ctx context.Context, userID int64, inChannel bool, at time.Time) error
}

// ChannelGate выдаёт доступ в платный канал.
type ChannelGate interface {
	// CreateInviteLink создает ссылку-приглашение с ограниченным сроком.
	CreateInviteLink(chatID int64, expireAt time.Time) (string, error)
	// SendMessage отправляет пользователю сообщение.
	SendMessage(chatID int64, text string) error
	// BanMember исключает пользователя из канала.
	BanMember(chatID, userID int64) error
}

// EventPublisher публикует события жизненного цикла в брокер.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// Service реализует сверку платежей и ручные операции с подписками.
type Service struct {
	log           *slog.Logger
	db            Storage
	gate          ChannelGate
	events        EventPublisher
	paidChannelID int64
	duration      time.Duration
	inviteTTL     time.Duration
}

// New создает сервис сверки. duration — срок, на который продлевает
// один успешный платёж; inviteTTL — время жизни ссылки-приглашения.
func New(log *slog.Logger, db Storage, gate ChannelGate, events EventPublisher, paidChannelID int64, duration, inviteTTL time.Duration) *Service {
	return &Service{
		log:           log,
		db:            db,
		gate:          gate,
		events:        events,
		paidChannelID: paidChannelID,
		duration:      duration,
		inviteTTL:     inviteTTL,
	}
}

const grantMessage = "🎉 Добро пожаловать в платный канал!\n\n" +
	"Ваша подписка активирована!\n" +
	"🔗 Приглашение: %s\n\n" +
	"Теперь у вас есть доступ к эксклюзивному контенту.\n" +
	"Приятного использования!"

// ApplySuccessfulPayment проводит успешный платёж: фиксирует его в журнале,
// продлевает подписку и выдаёт доступ в платный канал. Ошибка выдачи
// доступа не отменяет проведение платежа — она логируется, а доступ
// выдаётся повторно при следующем обращении пользователя.
func (s *Service) ApplySuccessfulPayment(ctx context.Context, paymentID string) (*models.ReconcileResult, error) {
	const op = "reconciler.ApplySuccessfulPayment"

	now := time.Now().UTC()
	result, err := s.db.ConfirmPaymentAndExtend(ctx, paymentID, s.duration, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.PaymentsConfirmed.Inc()
	s.log.Info("payment reconciled",
		slog.String("payment_id", paymentID),
		sl.User(result.TelegramID),
		slog.Time("end_date", result.EndDate),
		slog.Bool("extended", result.Extended))

	s.grantAccess(ctx, result, now)

	if err := s.events.Publish(rabbitmq.RoutePaymentSucceeded, rabbitmq.PaymentSucceededEvent{
		PaymentID:  paymentID,
		UserID:     result.UserID,
		TelegramID: result.TelegramID,
		Amount:     result.Amount,
		EndDate:    result.EndDate,
	}); err != nil {
		s.log.Warn("failed to publish payment event", sl.Err(err))
	}

	return result, nil
}

// grantAccess выдаёт доступ в платный канал после проведённого платежа.
func (s *Service) grantAccess(ctx context.Context, result *models.ReconcileResult, now time.Time) {
	link, err := s.gate.CreateInviteLink(s.paidChannelID, now.Add(s.inviteTTL))
	if err != nil {
		metrics.ChannelGrantFailures.Inc()
		s.log.Error("failed to create invite link", sl.Err(err), sl.User(result.TelegramID))
		return
	}

	if err := s.gate.SendMessage(result.TelegramID, fmt.Sprintf(grantMessage, link)); err != nil {
		metrics.ChannelGrantFailures.Inc()
		s.log.Error("failed to send invite", sl.Err(err), sl.User(result.TelegramID))
		return
	}

	if err := s.db.SetPaidChannelStatus(ctx, result.UserID, true, now); err != nil {
		s.log.Error("failed to mark paid channel status", sl.Err(err), sl.User(result.TelegramID))
	}
}

// Activate вручную продлевает или создаёт подписку пользователя на
// заданный срок и выдаёт доступ в канал. Используется панелью
// администратора и проходит через те же примитивы, что и оплата.
func (s *Service) Activate(ctx context.Context, userID int64, duration time.Duration) (time.Time, error) {
	const op = "reconciler.Activate"

	now := time.Now().UTC()
	endDate, err := s.db.ExtendOrCreateSubscription(ctx, userID, duration, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscription activated manually", slog.Int64("user_id", userID), slog.Time("end_date", endDate))

	telegramID, found, err := s.db.GetUserTelegramID(ctx, userID)
	if err != nil || !found {
		s.log.Error("failed to resolve user for manual grant", sl.Err(err), slog.Int64("user_id", userID))
		return endDate, nil
	}
	s.grantAccess(ctx, &models.ReconcileResult{UserID: userID, TelegramID: telegramID, EndDate: endDate}, now)
	return endDate, nil
}

// Deactivate вручную гасит подписку по её id: исключает пользователя
// из платного канала и снимает флаги. Неудачное исключение не
// останавливает деактивацию — решение администратора явное.
func (s *Service) Deactivate(ctx context.Context, subscriptionID int64) error {
	const op = "reconciler.Deactivate"

	entry, found, err := s.db.FindSubscriptionEntry(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return fmt.Errorf("%s: subscription not found", op)
	}

	if err := s.gate.BanMember(s.paidChannelID, entry.TelegramID); err != nil {
		metrics.ChannelRevokeFailures.Inc()
		s.log.Error("failed to remove member from paid channel", sl.Err(err), sl.User(entry.TelegramID))
	}

	if err := s.db.DeactivateAndClear(ctx, subscriptionID, entry.UserID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscription deactivated manually", slog.Int64("subscription_id", subscriptionID))

	if err := s.events.Publish(rabbitmq.RouteSubscriptionRevoked, rabbitmq.SubscriptionRevokedEvent{
		SubscriptionID: subscriptionID,
		UserID:         entry.UserID,
		TelegramID:     entry.TelegramID,
		RevokedAt:      time.Now().UTC(),
	}); err != nil {
		s.log.Warn("failed to publish revoked event", sl.Err(err))
	}
	return nil
}
