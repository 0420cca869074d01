// Package pay реализует HTTP-обработчики платёжных страниц: открытие
// платёжной сессии, подтверждение и отказ.
//
// Страницы открываются по ссылке из бота без аутентификации, поэтому
// браузерная сессия связывается с конкретным платежом подписанным
// токеном в cookie. Любая проблема проверки на стороне подтверждения
// сводится к одной нейтральной странице.
package pay

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/clubpass/club-access-bot/internal/lib/sl"
	"github.com/clubpass/club-access-bot/internal/models"
	"github.com/clubpass/club-access-bot/internal/services/payment"
)

// Service описывает платёжный цикл со стороны HTTP-обработчиков.
type Service interface {
	Start(ctx context.Context, telegramID int64) (*payment.StartResult, error)
	Confirm(ctx context.Context, tokenValue string) (*models.ReconcileResult, error)
	Fail(ctx context.Context, tokenValue string)
}

// StartHandler отдаёт страницу оплаты и открывает платёжную сессию.
type StartHandler struct {
	log          *slog.Logger
	payments     Service
	cookieMaxAge time.Duration
}

// NewStartHandler создает обработчик страницы оплаты.
func NewStartHandler(log *slog.Logger, payments Service, cookieMaxAge time.Duration) *StartHandler {
	return &StartHandler{
		log:          log,
		payments:     payments,
		cookieMaxAge: cookieMaxAge,
	}
}

// ServeHTTP godoc
// @Summary Страница оплаты подписки
// @Description Открывает платёжную сессию для пользователя и отдаёт страницу оплаты.
// @Tags Pay
// @Produce html
// @Param user_id query int true "Telegram ID пользователя"
// @Success 200 {string} string "Страница оплаты"
// @Failure 400 {string} string "Некорректный запрос"
// @Router /pay [get]
func (h *StartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.pay.start"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	telegramID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || telegramID <= 0 {
		log.Warn("invalid user_id query parameter")
		http.Error(w, "некорректная ссылка на оплату", http.StatusBadRequest)
		return
	}

	result, err := h.payments.Start(r.Context(), telegramID)
	if err != nil {
		log.Error("failed to start payment session", sl.Err(err), sl.User(telegramID))
		http.Error(w, "не удалось открыть платёжную сессию", http.StatusBadRequest)
		return
	}

	setBindingCookie(w, result.Token, h.cookieMaxAge)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = payPageTmpl.Execute(w, pageData{
		AmountRub:  result.Amount / 100,
		Currency:   result.Currency,
		SuccessURL: "/pay/success",
		FailURL:    "/pay/fail",
	})
	if err != nil {
		log.Error("failed to render pay page", sl.Err(err))
	}
}
