package app

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/clubpass/club-access-bot/internal/cache"
	"github.com/clubpass/club-access-bot/internal/config"
	"github.com/clubpass/club-access-bot/internal/http/handlers/admin/dashboard"
	"github.com/clubpass/club-access-bot/internal/http/handlers/admin/login"
	"github.com/clubpass/club-access-bot/internal/http/handlers/admin/paymentlist"
	"github.com/clubpass/club-access-bot/internal/http/handlers/admin/subextend"
	"github.com/clubpass/club-access-bot/internal/http/handlers/admin/sublist"
	"github.com/clubpass/club-access-bot/internal/http/handlers/admin/subremove"
	"github.com/clubpass/club-access-bot/internal/http/handlers/admin/userlist"
	"github.com/clubpass/club-access-bot/internal/http/handlers/admin/userremove"
	"github.com/clubpass/club-access-bot/internal/http/handlers/health"
	"github.com/clubpass/club-access-bot/internal/http/handlers/pay"
	"github.com/clubpass/club-access-bot/internal/http/middlewarectx"
	"github.com/clubpass/club-access-bot/internal/lib/jwt"
	"github.com/clubpass/club-access-bot/internal/services/payment"
	"github.com/clubpass/club-access-bot/internal/services/reconciler"
	"github.com/clubpass/club-access-bot/internal/storage/repository"
	"github.com/clubpass/club-access-bot/internal/telegram"
)

// registerRoutes регистрирует все маршруты приложения.
func registerRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config,
	db *repository.Storage, cacheRedis *cache.Cache, tg *telegram.Client,
	payments *payment.Service, subs *reconciler.Service, tokens jwt.Maker) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	// Платёжные страницы: без аутентификации, с ограничением частоты.
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger, 5, 10))
		r.Get("/pay", pay.NewStartHandler(logger, payments, cfg.Payment.CookieMaxAge).ServeHTTP)
		r.Get("/pay/success", pay.NewSuccessHandler(logger, payments).ServeHTTP)
		r.Get("/pay/fail", pay.NewFailHandler(logger, payments).ServeHTTP)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", login.New(logger, db, tokens).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(tokens, logger))
			r.Get("/users", userlist.New(logger, db).ServeHTTP)
			r.Delete("/users/{id}", userremove.New(logger, db).ServeHTTP)
			r.Get("/subscriptions", sublist.New(logger, db).ServeHTTP)
			r.Post("/subscriptions/extend", subextend.New(logger, subs).ServeHTTP)
			r.Delete("/subscriptions/{id}", subremove.New(logger, subs).ServeHTTP)
			r.Get("/payments", paymentlist.New(logger, db).ServeHTTP)
			r.Get("/dashboard", dashboard.New(logger, db, tg, cacheRedis,
				cfg.Telegram.FreeChannelID, cfg.Telegram.PaidChannelID).ServeHTTP)
		})
	})

	r.Get("/health", health.New(logger, func() error {
		return repository.CheckDatabaseReady(db)
	}).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
