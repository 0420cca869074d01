package pay

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/clubpass/club-access-bot/internal/lib/sl"
)

// SuccessHandler подтверждает оплату по токену привязки из cookie.
type SuccessHandler struct {
	log      *slog.Logger
	payments Service
}

// NewSuccessHandler создает обработчик страницы успешной оплаты.
func NewSuccessHandler(log *slog.Logger, payments Service) *SuccessHandler {
	return &SuccessHandler{log: log, payments: payments}
}

// ServeHTTP godoc
// @Summary Подтверждение оплаты
// @Description Проводит платёж по токену привязки из cookie. Токен одноразовый.
// @Tags Pay
// @Produce html
// @Success 200 {string} string "Оплата прошла"
// @Failure 404 {string} string "Платёжная сессия не найдена"
// @Router /pay/success [get]
func (h *SuccessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.pay.success"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	cookie, err := r.Cookie(CookieName)
	if err != nil {
		log.Warn("binding cookie is missing")
		h.renderNotFound(w, log)
		return
	}
	clearBindingCookie(w)

	result, err := h.payments.Confirm(r.Context(), cookie.Value)
	if err != nil {
		// Причина не раскрывается: подделка, истечение и повтор
		// выглядят для клиента одинаково.
		log.Warn("payment confirmation rejected", sl.Err(err))
		h.renderNotFound(w, log)
		return
	}

	log.Info("payment confirmed", sl.User(result.TelegramID))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = resultTmpl.Execute(w, resultData{
		Title:   "Оплата прошла успешно",
		Message: "Подписка активирована. Ссылка на платный канал отправлена в боте.",
	})
	if err != nil {
		log.Error("failed to render success page", sl.Err(err))
	}
}

func (h *SuccessHandler) renderNotFound(w http.ResponseWriter, log *slog.Logger) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	err := resultTmpl.Execute(w, resultData{
		Title:   "Платёжная сессия не найдена",
		Message: "Ссылка устарела или уже была использована. Начните оплату заново через бота.",
	})
	if err != nil {
		log.Error("failed to render error page", sl.Err(err))
	}
}
