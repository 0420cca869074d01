package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/mock"

	"github.com/clubpass/club-access-bot/internal/models"
	"github.com/clubpass/club-access-bot/internal/session"
)

type StorageMock struct {
	mock.Mock
}

func (m *StorageMock) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, bool, error) {
	args := m.Called(ctx, telegramID)
	var user *models.User
	if args.Get(0) != nil {
		user = args.Get(0).(*models.User)
	}
	return user, args.Bool(1), args.Error(2)
}

func (m *StorageMock) UpsertUser(ctx context.Context, telegramID int64, username string, consentAt time.Time) (int64, error) {
	args := m.Called(ctx, telegramID, username, consentAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StorageMock) UpdateProfile(ctx context.Context, telegramID int64, profile models.Profile) error {
	args := m.Called(ctx, telegramID, profile)
	return args.Error(0)
}

func (m *StorageMock) TouchLastActivity(ctx context.Context, telegramID int64) error {
	args := m.Called(ctx, telegramID)
	return args.Error(0)
}

func (m *StorageMock) FindSubscriptionByUserID(ctx context.Context, userID int64) (*models.Subscription, bool, error) {
	args := m.Called(ctx, userID)
	var sub *models.Subscription
	if args.Get(0) != nil {
		sub = args.Get(0).(*models.Subscription)
	}
	return sub, args.Bool(1), args.Error(2)
}

func (m *StorageMock) SetAutoRenewal(ctx context.Context, userID int64, enabled bool) (int, error) {
	args := m.Called(ctx, userID, enabled)
	return args.Int(0), args.Error(1)
}

func (m *StorageMock) CancelSubscription(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
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

func (m *MessengerMock) SendWithMarkup(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	args := m.Called(chatID, text, markup)
	return args.Error(0)
}

func (m *MessengerMock) EditMessage(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	args := m.Called(chatID, messageID, text, markup)
	return args.Error(0)
}

func (m *MessengerMock) AnswerCallback(callbackID string) error {
	args := m.Called(callbackID)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newConversation(db *StorageMock, tg *MessengerMock) *Conversation {
	return NewConversation(newNoopLogger(), db, tg, session.NewMemoryStore(), Options{
		DefaultPrice:   2999,
		DurationDays:   30,
		PayPageBaseURL: "https://club.example.com",
	})
}

func registeredUser() *models.User {
	return &models.User{
		ID:           7,
		TelegramID:   100,
		Username:     "ivan",
		FullName:     "Иванов Иван",
		ConsentGiven: true,
	}
}

func autoRenewalCallback() *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 100, UserName: "ivan"},
		Data:    cbPayAutoRenewal,
		Message: &tgbotapi.Message{MessageID: 42},
	}
}

func TestConversation_AutoRenewalEnabled(t *testing.T) {
	ctx := context.Background()
	db := new(StorageMock)
	tg := new(MessengerMock)

	db.On("GetSetting", ctx, "subscription_price").Return("", false, nil)
	db.On("GetUserByTelegramID", ctx, int64(100)).Return(registeredUser(), true, nil)
	db.On("FindSubscriptionByUserID", ctx, int64(7)).Return(nil, false, nil)
	db.On("SetAutoRenewal", ctx, int64(7), true).Return(1, nil)
	db.On("TouchLastActivity", ctx, int64(100)).Return(nil)
	tg.On("AnswerCallback", "cb1").Return(nil)
	tg.On("EditMessage", int64(100), 42, mock.Anything, mock.Anything).Return(nil)

	newConversation(db, tg).HandleCallback(ctx, autoRenewalCallback())

	db.AssertExpectations(t)
	tg.AssertExpectations(t)
	tg.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestConversation_EffectFailureNotifiesUser(t *testing.T) {
	ctx := context.Background()
	db := new(StorageMock)
	tg := new(MessengerMock)

	db.On("GetSetting", ctx, "subscription_price").Return("", false, nil)
	db.On("GetUserByTelegramID", ctx, int64(100)).Return(registeredUser(), true, nil)
	db.On("FindSubscriptionByUserID", ctx, int64(7)).Return(nil, false, nil)
	db.On("SetAutoRenewal", ctx, int64(7), true).Return(0, errors.New("connection refused"))
	tg.On("AnswerCallback", "cb1").Return(nil)
	tg.On("SendMessage", int64(100), textInternalError).Return(nil)

	newConversation(db, tg).HandleCallback(ctx, autoRenewalCallback())

	tg.AssertExpectations(t)
	tg.AssertNotCalled(t, "EditMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	db.AssertNotCalled(t, "TouchLastActivity", mock.Anything, mock.Anything)
}

func TestConversation_ViewFailureNotifiesUser(t *testing.T) {
	ctx := context.Background()
	db := new(StorageMock)
	tg := new(MessengerMock)

	db.On("GetSetting", ctx, "subscription_price").Return("", false, nil)
	db.On("GetUserByTelegramID", ctx, int64(100)).Return(nil, false, errors.New("connection refused"))
	tg.On("SendMessage", int64(100), textInternalError).Return(nil)

	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: 100, UserName: "ivan"},
		Text: "привет",
		Chat: &tgbotapi.Chat{ID: 100, Type: "private"},
	}
	newConversation(db, tg).HandleMessage(ctx, msg)

	tg.AssertExpectations(t)
}
