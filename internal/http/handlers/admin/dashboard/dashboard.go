// Package dashboard реализует HTTP-обработчик сводной статистики
// админ-панели. Численность каналов запрашивается у Telegram и
// кэшируется в Redis, чтобы не дёргать Bot API на каждое открытие панели.
package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/clubpass/club-access-bot/internal/http/response"
	"github.com/clubpass/club-access-bot/internal/lib/sl"
	"github.com/clubpass/club-access-bot/internal/storage/repository"
)

const memberCountTTL = 5 * time.Minute

// Storage описывает доступ к сводной статистике.
type Storage interface {
	CountDashboardStats(ctx context.Context, now time.Time) (*repository.DashboardStats, error)
}

// Counter запрашивает численность канала у Telegram.
type Counter interface {
	GetMemberCount(chatID int64) (int, error)
}

// Cache кэширует численность каналов между открытиями панели.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
}

// Handler обрабатывает запросы сводной статистики.
type Handler struct {
	log           *slog.Logger
	db            Storage
	counter       Counter
	cache         Cache
	freeChannelID int64
	paidChannelID int64
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, db Storage, counter Counter, cache Cache, freeChannelID, paidChannelID int64) *Handler {
	return &Handler{
		log:           log,
		db:            db,
		counter:       counter,
		cache:         cache,
		freeChannelID: freeChannelID,
		paidChannelID: paidChannelID,
	}
}

// ServeHTTP godoc
// @Summary Сводная статистика
// @Description Возвращает агрегаты по пользователям, подпискам, платежам и каналам.
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Response
// @Failure 500 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/dashboard [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.dashboard"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	stats, err := h.db.CountDashboardStats(r.Context(), time.Now().UTC())
	if err != nil {
		log.Error("failed to count dashboard stats", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"total_users":          stats.TotalUsers,
		"active_subscriptions": stats.ActiveSubscriptions,
		"in_paid_channel":      stats.InPaidChannel,
		"pending_payments":     stats.PendingPayments,
		"succeeded_payments":   stats.SucceededPayments,
		"revenue_total":        stats.RevenueTotal,
		"free_channel_members": h.memberCount(log, "members:free", h.freeChannelID),
		"paid_channel_members": h.memberCount(log, "members:paid", h.paidChannelID),
	}))
}

// memberCount возвращает численность канала, при ошибках Telegram
// отдаёт -1 вместо отказа всей панели.
func (h *Handler) memberCount(log *slog.Logger, key string, chatID int64) int {
	var cached int
	if found, err := h.cache.Get(key, &cached); err == nil && found {
		return cached
	}

	count, err := h.counter.GetMemberCount(chatID)
	if err != nil {
		log.Warn("failed to get member count", sl.Err(err), slog.Int64("chat_id", chatID))
		return -1
	}
	if err := h.cache.Set(key, count, memberCountTTL); err != nil {
		log.Warn("failed to cache member count", sl.Err(err))
	}
	return count
}
