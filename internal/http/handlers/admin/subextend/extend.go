// Package subextend реализует HTTP-обработчик ручного продления подписки
// из админ-панели. Продление проходит через ту же логику, что и оплата:
// активная подписка растягивается от текущей даты окончания, истёкшая
// заменяется новым окном.
package subextend

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/clubpass/club-access-bot/internal/http/response"
	"github.com/clubpass/club-access-bot/internal/lib/sl"
)

// Request — структура входных данных для продления подписки.
type Request struct {
	UserID int64 `json:"user_id" validate:"required,min=1"`
	Days   int   `json:"days" validate:"required,min=1,max=365"`
}

// Service описывает ручную активацию подписки.
type Service interface {
	Activate(ctx context.Context, userID int64, duration time.Duration) (time.Time, error)
}

// Handler обрабатывает запросы продления подписки.
type Handler struct {
	log      *slog.Logger
	subs     Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, subs Service) *Handler {
	return &Handler{
		log:      log,
		subs:     subs,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Продление подписки
// @Description Продлевает или создаёт подписку пользователя на указанное число дней.
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body Request true "Пользователь и срок продления"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/subscriptions/extend [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.subextend"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	endDate, err := h.subs.Activate(r.Context(), req.UserID, time.Duration(req.Days)*24*time.Hour)
	if err != nil {
		log.Error("failed to extend subscription", sl.Err(err), slog.Int64("user_id", req.UserID))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("subscription extended",
		slog.Int64("user_id", req.UserID), slog.Int("days", req.Days))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user_id":  req.UserID,
		"end_date": endDate,
	}))
}
