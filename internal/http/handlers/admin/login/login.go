// Package login реализует HTTP-обработчик входа в админ-панель.
//
// В нём определяется структура Request для входных данных, выполняется
// декодирование JSON, валидация полей, проверка пароля по bcrypt-хэшу
// и выпуск JWT токена для доступа к остальным маршрутам панели.
package login

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/clubpass/club-access-bot/internal/http/response"
	"github.com/clubpass/club-access-bot/internal/lib/jwt"
	"github.com/clubpass/club-access-bot/internal/lib/password"
	"github.com/clubpass/club-access-bot/internal/lib/sl"
	"github.com/clubpass/club-access-bot/internal/models"
)

// Request — структура входных данных для авторизации администратора.
type Request struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
}

// Storage описывает доступ к учётным записям админ-панели.
type Storage interface {
	GetAdminByUsername(ctx context.Context, username string) (*models.AdminUser, bool, error)
}

// Handler обрабатывает HTTP-запросы для авторизации администраторов.
type Handler struct {
	log      *slog.Logger
	db       Storage
	tokens   jwt.Maker
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, db Storage, tokens jwt.Maker) *Handler {
	return &Handler{
		log:      log,
		db:       db,
		tokens:   tokens,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Авторизация администратора
// @Description Аутентифицирует администратора по имени и паролю. Возвращает JWT.
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body Request true "Учетные данные администратора"
// @Success 200 {object} map[string]any "Успешная авторизация"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Router /api/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.login"

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

	admin, found, err := h.db.GetAdminByUsername(r.Context(), req.Username)
	if err != nil {
		log.Error("failed to fetch admin", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	if !found || password.CompareHash(admin.PasswordHash, req.Password) != nil {
		log.Warn("invalid credentials", slog.String("username", req.Username))
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid credentials"))
		return
	}

	token, err := h.tokens.GenerateToken(admin.Username)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("admin logged in", slog.String("username", admin.Username))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"token":    token,
		"username": admin.Username,
	}))
}
