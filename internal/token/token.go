// Package token реализует подписанный токен привязки платежа.
//
// Редирект платёжного шлюза не несёт аутентифицированных данных, поэтому
// сессия браузера привязывается к конкретной строке платежа cookie вида
// payment_id.issued_at.sig, где sig — HMAC-SHA256 от payment_id.issued_at,
// закодированный в base64url без паддинга. Токен ограничен по времени жизни
// и допускает небольшой рассинхрон часов в будущее.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Ошибки проверки токена. Наружу различие не раскрывается — обработчики
// сводят любую из них к одному ответу "сессия не найдена".
var (
	ErrInvalidToken = errors.New("invalid payment token")
	ErrTokenExpired = errors.New("payment token expired")
)

// Maker выпускает и проверяет токены привязки платежа.
type Maker struct {
	secret []byte
	maxAge time.Duration
	skew   time.Duration
}

// NewMaker создает Maker с секретом подписи, максимальным возрастом токена
// и допустимым рассинхроном часов в будущее.
func NewMaker(secret string, maxAge, skew time.Duration) *Maker {
	return &Maker{
		secret: []byte(secret),
		maxAge: maxAge,
		skew:   skew,
	}
}

// Issue выпускает токен для платежа paymentID, датированный моментом now.
func (m *Maker) Issue(paymentID string, now time.Time) string {
	payload := fmt.Sprintf("%s.%d", paymentID, now.Unix())
	return payload + "." + m.sign(payload)
}

// Verify разбирает токен, сверяет подпись за константное время и проверяет
// возраст. Возвращает payment_id, к которому привязан токен.
func (m *Maker) Verify(value string, now time.Time) (string, error) {
	const op = "token.Verify"

	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	paymentID, issuedRaw, sig := parts[0], parts[1], parts[2]
	if paymentID == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	expected := m.sign(paymentID + "." + issuedRaw)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	issuedUnix, err := strconv.ParseInt(issuedRaw, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	issuedAt := time.Unix(issuedUnix, 0)

	if now.Sub(issuedAt) > m.maxAge {
		return "", fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}
	if issuedAt.Sub(now) > m.skew {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return paymentID, nil
}

// MaxAge возвращает время жизни токена; им же ограничивается окно поиска
// ожидающего платежа и max-age самой cookie.
func (m *Maker) MaxAge() time.Duration {
	return m.maxAge
}

func (m *Maker) sign(payload string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
