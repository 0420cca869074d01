// Package app собирает все компоненты сервиса: хранилище, кэш, брокер
// событий, телеграм-бота, платёжный цикл, планировщик и HTTP-сервер.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/clubpass/club-access-bot/internal/bot"
	"github.com/clubpass/club-access-bot/internal/cache"
	"github.com/clubpass/club-access-bot/internal/config"
	"github.com/clubpass/club-access-bot/internal/lib/jwt"
	"github.com/clubpass/club-access-bot/internal/lib/password"
	"github.com/clubpass/club-access-bot/internal/lib/rabbitmq"
	"github.com/clubpass/club-access-bot/internal/migrations"
	"github.com/clubpass/club-access-bot/internal/services/payment"
	"github.com/clubpass/club-access-bot/internal/services/reconciler"
	"github.com/clubpass/club-access-bot/internal/services/scheduler"
	"github.com/clubpass/club-access-bot/internal/session"
	"github.com/clubpass/club-access-bot/internal/storage/repository"
	"github.com/clubpass/club-access-bot/internal/telegram"
	"github.com/clubpass/club-access-bot/internal/token"
)

// Учётная запись админ-панели по умолчанию, создаётся только в пустой
// таблице. Пароль нужно сменить после первого входа.
const (
	defaultAdminUsername = "admin1"
	defaultAdminPassword = "admin123"
)

// App держит собранные компоненты сервиса.
type App struct {
	server    *http.Server
	logger    *slog.Logger
	db        *repository.Storage
	bot       *bot.Bot
	scheduler *scheduler.Service
	amqpConn  *amqp.Connection
}

// New собирает приложение из конфигурации: применяет миграции, заводит
// администратора по умолчанию и соединяет все сервисы.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	hash, err := password.GetHash(defaultAdminPassword)
	if err != nil {
		return nil, err
	}
	if err = db.CreateDefaultAdmin(ctx, defaultAdminUsername, hash); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	amqpConn, err := rabbitmq.Connect(cfg.RabbitMQ.Connection, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, err
	}
	amqpChannel, err := rabbitmq.SetupChannel(amqpConn, rabbitmq.GetEventQueues())
	if err != nil {
		return nil, err
	}
	events := rabbitmq.NewPublisher(amqpChannel)

	tg, err := telegram.New(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(cfg.Payment.DurationDays) * 24 * time.Hour
	subs := reconciler.New(logger, db, tg, events,
		cfg.Telegram.PaidChannelID, duration, cfg.Scheduler.InviteTTL)

	tokens := token.NewMaker(cfg.Payment.Secret, cfg.Payment.CookieMaxAge, cfg.Payment.ClockSkew)
	payments := payment.New(logger, db, subs, tokens, cfg.Payment.Price, cfg.Payment.Currency)

	sweeper := scheduler.New(logger, db, tg, events,
		cfg.Telegram.PaidChannelID, cfg.Scheduler.LeadTimes, cfg.Scheduler.Interval, cfg.Payment.Price)

	conv := bot.NewConversation(logger, db, tg, session.NewMemoryStore(), bot.Options{
		DefaultPrice:     cfg.Payment.Price,
		DurationDays:     cfg.Payment.DurationDays,
		PayPageBaseURL:   cfg.Payment.PageBaseURL,
		PrivateChatLink:  cfg.Telegram.PrivateChatLink,
		PrivacyPolicyURL: cfg.Telegram.PrivacyPolicyURL,
	})
	tracker := bot.NewMembershipTracker(logger, db, tg, cfg.Telegram.FreeChannelID)
	tgBot := bot.New(logger, tg.API(), conv, tracker)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL)

	router := chi.NewRouter()
	registerRoutes(router, logger, cfg, db, cacheRedis, tg, payments, subs, jwtMaker)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:    srv,
		logger:    logger,
		db:        db,
		bot:       tgBot,
		scheduler: sweeper,
		amqpConn:  amqpConn,
	}, nil
}

// Run запускает бота, планировщик и HTTP-сервер. Блокируется до отмены
// контекста или фатальной ошибки сервера.
func (a *App) Run(ctx context.Context) error {
	go a.bot.Run(ctx)
	go a.scheduler.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down gracefully")
		err := a.server.Shutdown(timeoutCtx)
		_ = a.amqpConn.Close()
		_ = a.db.DB.Close()
		return err
	}
}
