package pay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/clubpass/club-access-bot/internal/models"
	"github.com/clubpass/club-access-bot/internal/services/payment"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Start(ctx context.Context, telegramID int64) (*payment.StartResult, error) {
	args := m.Called(ctx, telegramID)
	var result *payment.StartResult
	if args.Get(0) != nil {
		result = args.Get(0).(*payment.StartResult)
	}
	return result, args.Error(1)
}

func (m *ServiceMock) Confirm(ctx context.Context, tokenValue string) (*models.ReconcileResult, error) {
	args := m.Called(ctx, tokenValue)
	var result *models.ReconcileResult
	if args.Get(0) != nil {
		result = args.Get(0).(*models.ReconcileResult)
	}
	return result, args.Error(1)
}

func (m *ServiceMock) Fail(ctx context.Context, tokenValue string) {
	m.Called(ctx, tokenValue)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestStartHandler_SetsBindingCookie(t *testing.T) {
	payments := new(ServiceMock)
	handler := NewStartHandler(newNoopLogger(), payments, time.Hour)

	payments.On("Start", mock.Anything, int64(555)).Return(&payment.StartResult{
		PaymentID: "pay-123",
		Amount:    299900,
		Currency:  "RUB",
		Token:     "signed-token",
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/pay?user_id=555", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2999 RUB")

	cookie := findCookie(t, rec, CookieName)
	require.NotNil(t, cookie)
	assert.Equal(t, "signed-token", cookie.Value)
	assert.Equal(t, "/pay", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 3600, cookie.MaxAge)
}

func TestStartHandler_InvalidUserID(t *testing.T) {
	payments := new(ServiceMock)
	handler := NewStartHandler(newNoopLogger(), payments, time.Hour)

	for _, target := range []string{"/pay", "/pay?user_id=abc", "/pay?user_id=-5"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	payments.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestSuccessHandler_ConfirmsAndClearsCookie(t *testing.T) {
	payments := new(ServiceMock)
	handler := NewSuccessHandler(newNoopLogger(), payments)

	payments.On("Confirm", mock.Anything, "signed-token").
		Return(&models.ReconcileResult{TelegramID: 555}, nil)

	req := httptest.NewRequest(http.MethodGet, "/pay/success", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "signed-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Оплата прошла успешно")

	cookie := findCookie(t, rec, CookieName)
	require.NotNil(t, cookie)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestSuccessHandler_MissingCookie(t *testing.T) {
	payments := new(ServiceMock)
	handler := NewSuccessHandler(newNoopLogger(), payments)

	req := httptest.NewRequest(http.MethodGet, "/pay/success", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	payments.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything)
}

func TestSuccessHandler_RejectedConfirmationIsNeutral(t *testing.T) {
	payments := new(ServiceMock)
	handler := NewSuccessHandler(newNoopLogger(), payments)

	payments.On("Confirm", mock.Anything, "stale-token").
		Return(nil, errors.New("payment.Confirm: payment session not found"))

	req := httptest.NewRequest(http.MethodGet, "/pay/success", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "stale-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Платёжная сессия не найдена")
	assert.NotContains(t, rec.Body.String(), "payment.Confirm")
}

func TestFailHandler_MarksFailed(t *testing.T) {
	payments := new(ServiceMock)
	handler := NewFailHandler(newNoopLogger(), payments)

	payments.On("Fail", mock.Anything, "signed-token").Return()

	req := httptest.NewRequest(http.MethodGet, "/pay/fail", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "signed-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Оплата не завершена")
	payments.AssertExpectations(t)
}

func TestFailHandler_NoCookieIsNoop(t *testing.T) {
	payments := new(ServiceMock)
	handler := NewFailHandler(newNoopLogger(), payments)

	req := httptest.NewRequest(http.MethodGet, "/pay/fail", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	payments.AssertNotCalled(t, "Fail", mock.Anything, mock.Anything)
}
