// Package payment реализует внешний платёжный цикл: выпуск платежа
// с токеном привязки, подтверждение по возврату со шлюза и отказ.
//
// Редирект шлюза неаутентифицирован, поэтому браузерная сессия
// связывается с конкретной строкой платежа подписанным токеном в cookie.
// Любая проблема проверки — подделка, истечение, повтор — сводится
// к одному ответу, чтобы не раскрывать причину отказа.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/clubpass/club-access-bot/internal/lib/sl"
	"github.com/clubpass/club-access-bot/internal/metrics"
	"github.com/clubpass/club-access-bot/internal/models"
	"github.com/clubpass/club-access-bot/internal/token"
)

// ErrSessionNotFound — единый наружный отказ подтверждения платежа:
// токен невалиден, истёк или платёж уже обработан.
var ErrSessionNotFound = errors.New("payment session not found")

// Storage определяет методы хранилища платёжного цикла.
type Storage interface {
	// GetUserByTelegramID возвращает пользователя по telegram id.
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, bool, error)
	// CreatePayment вставляет платёж в статусе pending.
	CreatePayment(ctx context.Context, payment models.Payment) (int64, error)
	// FindPendingPayment ищет ожидающий платёж в окне по времени создания.
	FindPendingPayment(ctx context.Context, paymentID string, notBefore time.Time) (*models.Payment, bool, error)
	// MarkPaymentFailed переводит ожидающий платёж в failed.
	MarkPaymentFailed(ctx context.Context, paymentID string, now time.Time) (int, error)
	// GetSetting возвращает настройку бота по ключу.
	GetSetting(ctx context.Context, key string) (string, bool, error)
}

// Reconciler проводит успешный платёж в подписку.
type Reconciler interface {
	ApplySuccessfulPayment(ctx context.Context, paymentID string) (*models.ReconcileResult, error)
}

// StartResult результат открытия платёжной сессии: данные для страницы
// оплаты и токен привязки для cookie.
type StartResult struct {
	PaymentID string
	Amount    int64
	Currency  string
	Token     string
}

// Service реализует платёжный цикл.
type Service struct {
	log          *slog.Logger
	db           Storage
	reconciler   Reconciler
	tokens       *token.Maker
	defaultPrice int64
	currency     string
}

// New создает платёжный сервис. defaultPrice — цена в рублях, применяется
// когда настройка subscription_price не задана.
func New(log *slog.Logger, db Storage, reconciler Reconciler, tokens *token.Maker, defaultPrice int64, currency string) *Service {
	return &Service{
		log:          log,
		db:           db,
		reconciler:   reconciler,
		tokens:       tokens,
		defaultPrice: defaultPrice,
		currency:     currency,
	}
}

// Start открывает платёжную сессию для пользователя: создает платёж
// в статусе pending и выпускает токен привязки.
func (s *Service) Start(ctx context.Context, telegramID int64) (*StartResult, error) {
	const op = "payment.Start"

	user, found, err := s.db.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, fmt.Errorf("%s: user not registered", op)
	}

	now := time.Now().UTC()
	paymentID := uuid.New().String()
	amount := s.price(ctx) * 100 // в копейках

	_, err = s.db.CreatePayment(ctx, models.Payment{
		UserID:        user.ID,
		PaymentID:     paymentID,
		Amount:        amount,
		Currency:      s.currency,
		PaymentMethod: "card",
		CreatedAt:     now,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("payment session started",
		slog.String("payment_id", paymentID),
		sl.User(telegramID),
		slog.Int64("amount", amount))

	return &StartResult{
		PaymentID: paymentID,
		Amount:    amount,
		Currency:  s.currency,
		Token:     s.tokens.Issue(paymentID, now),
	}, nil
}

// Confirm подтверждает оплату по токену привязки из cookie. Проверяет
// подпись и возраст токена, находит ожидающий платёж в пределах окна
// токена и проводит его через сверку. Все отказы сведены
// к ErrSessionNotFound.
func (s *Service) Confirm(ctx context.Context, tokenValue string) (*models.ReconcileResult, error) {
	const op = "payment.Confirm"

	now := time.Now().UTC()
	paymentID, err := s.tokens.Verify(tokenValue, now)
	if err != nil {
		s.log.Warn("payment token rejected", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
	}

	_, found, err := s.db.FindPendingPayment(ctx, paymentID, now.Add(-s.tokens.MaxAge()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		s.log.Warn("pending payment not found", slog.String("payment_id", paymentID))
		return nil, fmt.Errorf("%s: %w", op, ErrSessionNotFound)
	}

	result, err := s.reconciler.ApplySuccessfulPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// Fail помечает платёж из токена как неуспешный. Невалидный токен
// или отсутствующий платёж не считаются ошибкой: исход одинаковый.
func (s *Service) Fail(ctx context.Context, tokenValue string) {
	const op = "payment.Fail"

	now := time.Now().UTC()
	paymentID, err := s.tokens.Verify(tokenValue, now)
	if err != nil {
		s.log.Warn("payment token rejected on failure path", sl.Err(err))
		return
	}

	n, err := s.db.MarkPaymentFailed(ctx, paymentID, now)
	if err != nil {
		s.log.Error("failed to mark payment failed", sl.Err(err), slog.String("payment_id", paymentID))
		return
	}
	if n > 0 {
		metrics.PaymentsFailed.Inc()
		s.log.Info("payment marked failed", slog.String("payment_id", paymentID))
	}
}

// price возвращает цену подписки в рублях: настройка subscription_price
// побеждает значение из конфигурации.
func (s *Service) price(ctx context.Context) int64 {
	value, found, err := s.db.GetSetting(ctx, "subscription_price")
	if err != nil {
		s.log.Warn("failed to read price setting", sl.Err(err))
		return s.defaultPrice
	}
	if !found {
		return s.defaultPrice
	}
	price, err := strconv.ParseInt(value, 10, 64)
	if err != nil || price <= 0 {
		s.log.Warn("invalid price setting", slog.String("value", value))
		return s.defaultPrice
	}
	return price
}
