// Package subremove реализует HTTP-обработчик ручной деактивации подписки
// из админ-панели. Исключением из платного канала займётся плановый обход.
package subremove

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/clubpass/club-access-bot/internal/http/response"
	"github.com/clubpass/club-access-bot/internal/lib/sl"
)

// Service описывает ручную деактивацию подписки.
type Service interface {
	Deactivate(ctx context.Context, subscriptionID int64) error
}

// Handler обрабатывает запросы деактивации подписки.
type Handler struct {
	log  *slog.Logger
	subs Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, subs Service) *Handler {
	return &Handler{log: log, subs: subs}
}

// ServeHTTP godoc
// @Summary Деактивация подписки
// @Description Гасит подписку по её идентификатору.
// @Tags Admin
// @Produce json
// @Param id path int true "ID подписки"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/subscriptions/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.subremove"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		log.Warn("invalid subscription id")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid subscription id"))
		return
	}

	if err := h.subs.Deactivate(r.Context(), id); err != nil {
		log.Error("failed to deactivate subscription", sl.Err(err), slog.Int64("subscription_id", id))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("subscription not found"))
		return
	}

	log.Info("subscription deactivated", slog.Int64("subscription_id", id))
	render.JSON(w, r, response.OK())
}
