// Package paymentlist реализует HTTP-обработчик списка платежей для админ-панели.
package paymentlist

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

// Item — строка списка платежей в ответе.
type Item struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	PaymentID   string     `json:"payment_id"`
	Amount      int64      `json:"amount"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Storage описывает доступ к списку платежей.
type Storage interface {
	ListPayments(ctx context.Context, limit, offset int) ([]*models.Payment, error)
}

// Handler обрабатывает запросы списка платежей.
type Handler struct {
	log *slog.Logger
	db  Storage
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, db Storage) *Handler {
	return &Handler{log: log, db: db}
}

// ServeHTTP godoc
// @Summary Список платежей
// @Description Возвращает страницу списка платежей, новые первыми.
// @Tags Admin
// @Produce json
// @Param limit query int false "Размер страницы" default(50)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} response.Response
// @Failure 500 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/payments [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.paymentlist"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, offset := pagination(r)
	payments, err := h.db.ListPayments(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list payments", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	items := make([]Item, 0, len(payments))
	for _, p := range payments {
		items = append(items, Item{
			ID:          p.ID,
			UserID:      p.UserID,
			PaymentID:   p.PaymentID,
			Amount:      p.Amount,
			Currency:    p.Currency,
			Status:      string(p.Status),
			CreatedAt:   p.CreatedAt,
			CompletedAt: p.CompletedAt,
		})
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"payments": items,
		"count":    len(items),
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
