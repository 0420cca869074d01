package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/clubpass/club-access-bot/internal/lib/timeutil"
	"github.com/clubpass/club-access-bot/internal/models"
)

type StorageMock struct {
	mock.Mock
}

func (m *StorageMock) FindExpiring(ctx context.Context, start, end time.Time) ([]*models.ExpiringEntry, error) {
	args := m.Called(ctx, start, end)
	var entries []*models.ExpiringEntry
	if args.Get(0) != nil {
		entries = args.Get(0).([]*models.ExpiringEntry)
	}
	return entries, args.Error(1)
}

func (m *StorageMock) FindExpired(ctx context.Context, now time.Time) ([]*models.ExpiringEntry, error) {
	args := m.Called(ctx, now)
	var entries []*models.ExpiringEntry
	if args.Get(0) != nil {
		entries = args.Get(0).([]*models.ExpiringEntry)
	}
	return entries, args.Error(1)
}

func (m *StorageMock) DeactivateAndClear(ctx context.Context, subscriptionID, userID int64) error {
	args := m.Called(ctx, subscriptionID, userID)
	return args.Error(0)
}

func (m *StorageMock) GetSetting(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

type MessengerMock struct {
	mock.Mock
}

func (m *MessengerMock) SendMessage(chatID int64, text string) error {
	args := m.Called(chatID, text)
	return args.Error(0)
}

func (m *MessengerMock) BanMember(chatID, userID int64) error {
	args := m.Called(chatID, userID)
	return args.Error(0)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(routingKey string, message any) error {
	args := m.Called(routingKey, message)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testPaidChannel = int64(-1001234)

func newService(db *StorageMock, tg *MessengerMock, events *PublisherMock) *Service {
	return New(newNoopLogger(), db, tg, events, testPaidChannel, []int{7, 3, 1}, time.Hour, 2999)
}

func noExpiring(db *StorageMock, ctx context.Context, now time.Time, leads ...int) {
	for _, lead := range leads {
		start, end := timeutil.LeadWindow(now, lead)
		db.On("FindExpiring", ctx, start, end).Return(nil, nil)
	}
}

func TestSweep_SendsTieredReminders(t *testing.T) {
	db := new(StorageMock)
	tg := new(MessengerMock)
	events := new(PublisherMock)
	svc := newService(db, tg, events)
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	db.On("GetSetting", ctx, "subscription_price").Return("", false, nil)

	start7, end7 := timeutil.LeadWindow(now, 7)
	db.On("FindExpiring", ctx, start7, end7).Return([]*models.ExpiringEntry{
		{SubscriptionID: 1, UserID: 10, TelegramID: 100, EndDate: start7},
	}, nil)
	start3, end3 := timeutil.LeadWindow(now, 3)
	db.On("FindExpiring", ctx, start3, end3).Return([]*models.ExpiringEntry{
		{SubscriptionID: 2, UserID: 20, TelegramID: 200, EndDate: start3},
	}, nil)
	start1, end1 := timeutil.LeadWindow(now, 1)
	db.On("FindExpiring", ctx, start1, end1).Return([]*models.ExpiringEntry{
		{SubscriptionID: 3, UserID: 30, TelegramID: 300, EndDate: start1},
	}, nil)
	db.On("FindExpired", ctx, now).Return(nil, nil)

	tg.On("SendMessage", int64(100), mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "через 7 дней")
	})).Return(nil)
	tg.On("SendMessage", int64(200), mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "через 3 дня")
	})).Return(nil)
	tg.On("SendMessage", int64(300), mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "ЗАВТРА")
	})).Return(nil)
	events.On("Publish", "subscription.reminder", mock.Anything).Return(nil).Times(3)

	svc.Sweep(ctx, now)

	tg.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestSweep_ReminderUsesPriceSetting(t *testing.T) {
	db := new(StorageMock)
	tg := new(MessengerMock)
	events := new(PublisherMock)
	svc := newService(db, tg, events)
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	db.On("GetSetting", ctx, "subscription_price").Return("4500", true, nil)
	noExpiring(db, ctx, now, 7, 3)
	start1, end1 := timeutil.LeadWindow(now, 1)
	db.On("FindExpiring", ctx, start1, end1).Return([]*models.ExpiringEntry{
		{SubscriptionID: 3, UserID: 30, TelegramID: 300, EndDate: start1},
	}, nil)
	db.On("FindExpired", ctx, now).Return(nil, nil)

	tg.On("SendMessage", int64(300), mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "4500 руб.")
	})).Return(nil)
	events.On("Publish", "subscription.reminder", mock.Anything).Return(nil)

	svc.Sweep(ctx, now)
	tg.AssertExpectations(t)
}

func TestSweep_RevokesExpired(t *testing.T) {
	db := new(StorageMock)
	tg := new(MessengerMock)
	events := new(PublisherMock)
	svc := newService(db, tg, events)
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	db.On("GetSetting", ctx, "subscription_price").Return("", false, nil)
	noExpiring(db, ctx, now, 7, 3, 1)
	db.On("FindExpired", ctx, now).Return([]*models.ExpiringEntry{
		{SubscriptionID: 5, UserID: 50, TelegramID: 500, EndDate: now.Add(-time.Hour)},
	}, nil)

	tg.On("BanMember", testPaidChannel, int64(500)).Return(nil)
	db.On("DeactivateAndClear", ctx, int64(5), int64(50)).Return(nil)
	tg.On("SendMessage", int64(500), mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "Доступ к платному контенту закрыт")
	})).Return(nil)
	events.On("Publish", "subscription.revoked", mock.Anything).Return(nil)

	svc.Sweep(ctx, now)

	db.AssertExpectations(t)
	tg.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestSweep_BanFailureKeepsSubscription(t *testing.T) {
	db := new(StorageMock)
	tg := new(MessengerMock)
	events := new(PublisherMock)
	svc := newService(db, tg, events)
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	db.On("GetSetting", ctx, "subscription_price").Return("", false, nil)
	noExpiring(db, ctx, now, 7, 3, 1)
	db.On("FindExpired", ctx, now).Return([]*models.ExpiringEntry{
		{SubscriptionID: 5, UserID: 50, TelegramID: 500, EndDate: now.Add(-time.Hour)},
	}, nil)

	tg.On("BanMember", testPaidChannel, int64(500)).Return(errors.New("telegram unavailable"))

	svc.Sweep(ctx, now)

	// Исключение не удалось: подписка не деактивируется и уведомление не шлётся.
	db.AssertNotCalled(t, "DeactivateAndClear", mock.Anything, mock.Anything, mock.Anything)
	tg.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
	events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestSweep_RevokeErrorDoesNotStopOthers(t *testing.T) {
	db := new(StorageMock)
	tg := new(MessengerMock)
	events := new(PublisherMock)
	svc := newService(db, tg, events)
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	db.On("GetSetting", ctx, "subscription_price").Return("", false, nil)
	noExpiring(db, ctx, now, 7, 3, 1)
	db.On("FindExpired", ctx, now).Return([]*models.ExpiringEntry{
		{SubscriptionID: 5, UserID: 50, TelegramID: 500},
		{SubscriptionID: 6, UserID: 60, TelegramID: 600},
	}, nil)

	tg.On("BanMember", testPaidChannel, int64(500)).Return(errors.New("telegram unavailable"))
	tg.On("BanMember", testPaidChannel, int64(600)).Return(nil)
	db.On("DeactivateAndClear", ctx, int64(6), int64(60)).Return(nil)
	tg.On("SendMessage", int64(600), mock.Anything).Return(nil)
	events.On("Publish", "subscription.revoked", mock.Anything).Return(nil)

	svc.Sweep(ctx, now)

	db.AssertExpectations(t)
	db.AssertNotCalled(t, "DeactivateAndClear", ctx, int64(5), int64(50))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	db := new(StorageMock)
	tg := new(MessengerMock)
	events := new(PublisherMock)
	svc := newService(db, tg, events)

	db.On("GetSetting", mock.Anything, "subscription_price").Return("", false, nil)
	db.On("FindExpiring", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	db.On("FindExpired", mock.Anything, mock.Anything).Return(nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after context cancel")
	}
}
