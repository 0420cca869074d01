package dashboard

import (
	"context"
	"encoding/json"
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

	"github.com/clubpass/club-access-bot/internal/storage/repository"
)

type StorageMock struct {
	mock.Mock
}

func (m *StorageMock) CountDashboardStats(ctx context.Context, now time.Time) (*repository.DashboardStats, error) {
	args := m.Called(ctx, now)
	var stats *repository.DashboardStats
	if args.Get(0) != nil {
		stats = args.Get(0).(*repository.DashboardStats)
	}
	return stats, args.Error(1)
}

type CounterMock struct {
	mock.Mock
}

func (m *CounterMock) GetMemberCount(chatID int64) (int, error) {
	args := m.Called(chatID)
	return args.Int(0), args.Error(1)
}

type CacheMock struct {
	mock.Mock
}

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	if args.Bool(0) {
		*(result.(*int)) = args.Int(2)
	}
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDashboard_CombinesStatsAndCounts(t *testing.T) {
	db := new(StorageMock)
	counter := new(CounterMock)
	cache := new(CacheMock)
	handler := New(newNoopLogger(), db, counter, cache, -1001, -1002)

	db.On("CountDashboardStats", mock.Anything, mock.AnythingOfType("time.Time")).
		Return(&repository.DashboardStats{
			TotalUsers:          12,
			ActiveSubscriptions: 5,
			InPaidChannel:       4,
			PendingPayments:     2,
			SucceededPayments:   9,
			RevenueTotal:        2699100,
		}, nil)

	// free channel лежит в кэше, paid запрашивается у Telegram
	cache.On("Get", "members:free", mock.Anything).Return(true, nil, 150)
	cache.On("Get", "members:paid", mock.Anything).Return(false, nil, 0)
	counter.On("GetMemberCount", int64(-1002)).Return(42, nil)
	cache.On("Set", "members:paid", 42, memberCountTTL).Return(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	data := got["data"].(map[string]any)
	assert.Equal(t, float64(12), data["total_users"])
	assert.Equal(t, float64(150), data["free_channel_members"])
	assert.Equal(t, float64(42), data["paid_channel_members"])
	counter.AssertNotCalled(t, "GetMemberCount", int64(-1001))
}

func TestDashboard_TelegramFailureDoesNotBreakPanel(t *testing.T) {
	db := new(StorageMock)
	counter := new(CounterMock)
	cache := new(CacheMock)
	handler := New(newNoopLogger(), db, counter, cache, -1001, -1002)

	db.On("CountDashboardStats", mock.Anything, mock.AnythingOfType("time.Time")).
		Return(&repository.DashboardStats{}, nil)
	cache.On("Get", mock.Anything, mock.Anything).Return(false, nil, 0)
	counter.On("GetMemberCount", mock.Anything).Return(0, errors.New("telegram unavailable"))

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	data := got["data"].(map[string]any)
	assert.Equal(t, float64(-1), data["paid_channel_members"])
}
