// Package sublist реализует HTTP-обработчик списка подписок для админ-панели.
package sublist

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/clubpass/club-access-bot/internal/http/response"
	"github.com/clubpass/club-access-bot/internal/lib/sl"
	"github.com/clubpass/club-access-bot/internal/models"
)

// Item — строка списка подписок в ответе.
type Item struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	IsActive      bool      `json:"is_active"`
	AutoRenewal   bool      `json:"auto_renewal"`
	PaymentAmount int64     `json:"payment_amount"`
	DaysLeft      int       `json:"days_left"`
}

// Storage описывает доступ к списку подписок.
type Storage interface {
	ListSubscriptions(ctx context.Context, limit, offset int) ([]*models.Subscription, error)
}

// Handler обрабатывает запросы списка подписок.
type Handler struct {
	log *slog.Logger
	db  Storage
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, db Storage) *Handler {
	return &Handler{log: log, db: db}
}

// ServeHTTP godoc
// @Summary Список подписок
// @Description Возвращает страницу списка подписок.
// @Tags Admin
// @Produce json
// @Param limit query int false "Размер страницы" default(50)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} response.Response
// @Failure 500 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/subscriptions [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.sublist"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, offset := pagination(r)
	subs, err := h.db.ListSubscriptions(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list subscriptions", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	now := time.Now().UTC()
	items := make([]Item, 0, len(subs))
	for _, s := range subs {
		items = append(items, Item{
			ID:            s.ID,
			UserID:        s.UserID,
			StartDate:     s.StartDate,
			EndDate:       s.EndDate,
			IsActive:      s.IsActive,
			AutoRenewal:   s.AutoRenewal,
			PaymentAmount: s.PaymentAmount,
			DaysLeft:      s.DaysLeft(now),
		})
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscriptions": items,
		"count":         len(items),
	}))
}

func pagination(r *http.Request) (int, int) {
	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
