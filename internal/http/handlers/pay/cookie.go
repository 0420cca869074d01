package pay

import (
	"net/http"
	"time"
)

// CookieName имя cookie с токеном платёжной привязки.
const CookieName = "payment_token"

// setBindingCookie выставляет cookie привязки. Cookie ограничена путём
// платёжных страниц и недоступна скриптам.
func setBindingCookie(w http.ResponseWriter, token string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/pay",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearBindingCookie удаляет cookie привязки: токен одноразовый.
func clearBindingCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/pay",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
