// Package userlist реализует HTTP-обработчик списка пользователей бота
// для админ-панели.
package userlist

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

// Item — строка списка пользователей в ответе.
type Item struct {
	ID               int64      `json:"id"`
	TelegramID       int64      `json:"telegram_id"`
	Username         string     `json:"username"`
	FullName         string     `json:"full_name"`
	ContactNumber    string     `json:"contact_number"`
	RegistrationDate time.Time  `json:"registration_date"`
	ConsentGiven     bool       `json:"consent_given"`
	IsInPaidChannel  bool       `json:"is_in_paid_channel"`
	ConsentDate      *time.Time `json:"consent_date,omitempty"`
}

// Storage описывает доступ к списку пользователей.
type Storage interface {
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// Handler обрабатывает запросы списка пользователей.
type Handler struct {
	log *slog.Logger
	db  Storage
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, db Storage) *Handler {
	return &Handler{log: log, db: db}
}

// ServeHTTP godoc
// @Summary Список пользователей
// @Description Возвращает страницу списка пользователей бота.
// @Tags Admin
// @Produce json
// @Param limit query int false "Размер страницы" default(50)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} response.Response
// @Failure 500 {object} response.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/users [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.userlist"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, offset := pagination(r)
	users, err := h.db.ListUsers(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list users", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	items := make([]Item, 0, len(users))
	for _, u := range users {
		items = append(items, Item{
			ID:               u.ID,
			TelegramID:       u.TelegramID,
			Username:         u.Username,
			FullName:         u.FullName,
			ContactNumber:    u.ContactNumber,
			RegistrationDate: u.RegistrationDate,
			ConsentGiven:     u.ConsentGiven,
			IsInPaidChannel:  u.IsInPaidChannel,
			ConsentDate:      u.ConsentDate,
		})
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"users": items,
		"count": len(items),
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
