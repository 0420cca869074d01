package pay

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/clubpass/club-access-bot/internal/lib/sl"
)

// FailHandler помечает платёж неуспешным по токену привязки из cookie.
type FailHandler struct {
	log      *slog.Logger
	payments Service
}

// NewFailHandler создает обработчик страницы отказа от оплаты.
func NewFailHandler(log *slog.Logger, payments Service) *FailHandler {
	return &FailHandler{log: log, payments: payments}
}

// ServeHTTP godoc
// @Summary Отказ от оплаты
// @Description Помечает платёж из cookie неуспешным. Ответ одинаков при любом исходе.
// @Tags Pay
// @Produce html
// @Success 200 {string} string "Оплата не завершена"
// @Router /pay/fail [get]
func (h *FailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.pay.fail"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if cookie, err := r.Cookie(CookieName); err == nil {
		h.payments.Fail(r.Context(), cookie.Value)
		clearBindingCookie(w)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := resultTmpl.Execute(w, resultData{
		Title:   "Оплата не завершена",
		Message: "Платёж отменён. Вы можете начать оплату заново через бота.",
	})
	if err != nil {
		log.Error("failed to render fail page", sl.Err(err))
	}
}
