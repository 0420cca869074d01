package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/clubpass/club-access-bot/internal/lib/sl"
	"github.com/clubpass/club-access-bot/internal/models"
	"github.com/clubpass/club-access-bot/internal/session"
)

// Storage определяет методы хранилища, нужные диалогу.
type Storage interface {
	// GetUserByTelegramID возвращает пользователя и признак его существования.
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, bool, error)
	// UpsertUser фиксирует согласие и возвращает id строки пользователя.
	UpsertUser(ctx context.Context, telegramID int64, username string, consentAt time.Time) (int64, error)
	// UpdateProfile записывает анкетные поля пользователя.
	UpdateProfile(ctx context.Context, telegramID int64, profile models.Profile) error
	// TouchLastActivity обновляет отметку последней активности.
	TouchLastActivity(ctx context.Context, telegramID int64) error
	// FindSubscriptionByUserID возвращает последнюю подписку пользователя.
	FindSubscriptionByUserID(ctx context.Context, userID int64) (*models.Subscription, bool, error)
	// SetAutoRenewal переключает автопродление последней подписки.
	SetAutoRenewal(ctx context.Context, userID int64, enabled bool) (int, error)
	// CancelSubscription гасит последнюю подписку пользователя.
	CancelSubscription(ctx context.Context, userID int64) (int, error)
	// GetSetting возвращает настройку бота по ключу.
	GetSetting(ctx context.Context, key string) (string, bool, error)
}

// Messenger определяет операции Telegram, нужные для исполнения эффектов.
type Messenger interface {
	SendMessage(chatID int64, text string) error
	SendWithMarkup(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) error
	EditMessage(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(callbackID string) error
}

// Options параметры диалога, приходящие из конфигурации.
type Options struct {
	DefaultPrice     int64
	DurationDays     int
	PayPageBaseURL   string
	PrivateChatLink  string
	PrivacyPolicyURL string
}

// Conversation ведёт диалог: хранит сессии, строит снимок данных,
// прогоняет событие через переходы и исполняет эффекты.
type Conversation struct {
	log   *slog.Logger
	db    Storage
	tg    Messenger
	store session.Store
	opts  Options
}

// NewConversation создает исполнитель диалога.
func NewConversation(log *slog.Logger, db Storage, tg Messenger, store session.Store, opts Options) *Conversation {
	return &Conversation{
		log:   log,
		db:    db,
		tg:    tg,
		store: store,
		opts:  opts,
	}
}

// HandleMessage обрабатывает текстовое сообщение или команду в личном чате.
func (c *Conversation) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	ev := Event{Kind: EventMessage, Text: msg.Text}
	if msg.IsCommand() {
		ev = Event{Kind: EventCommand, Text: msg.Command()}
	}
	c.dispatch(ctx, msg.From.ID, msg.From.UserName, ev, 0)
}

// HandleCallback обрабатывает нажатие inline-кнопки.
func (c *Conversation) HandleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if err := c.tg.AnswerCallback(cb.ID); err != nil {
		c.log.Warn("failed to answer callback", sl.Err(err), sl.User(cb.From.ID))
	}

	messageID := 0
	if cb.Message != nil {
		messageID = cb.Message.MessageID
	}
	c.dispatch(ctx, cb.From.ID, cb.From.UserName, Event{Kind: EventCallback, Text: cb.Data}, messageID)
}

func (c *Conversation) dispatch(ctx context.Context, telegramID int64, username string, ev Event, messageID int) {
	now := time.Now().UTC()

	view, user, err := c.buildView(ctx, telegramID)
	if err != nil {
		c.log.Error("failed to build view", sl.Err(err), sl.User(telegramID))
		c.notifyError(telegramID)
		return
	}

	sess, ok := c.store.Get(telegramID)
	if !ok {
		sess = session.Session{TelegramID: telegramID, State: session.StateIdle}
		if view.Registered {
			sess.State = session.StateCompleted
		}
	}

	next, effects := Next(sess, ev, view, now)
	c.store.Put(next)

	for _, eff := range effects {
		if err := c.apply(ctx, eff, telegramID, username, user, messageID, now); err != nil {
			c.log.Error("failed to apply effect", sl.Err(err), sl.User(telegramID))
			c.notifyError(telegramID)
			return
		}
	}

	if user != nil {
		if err := c.db.TouchLastActivity(ctx, telegramID); err != nil {
			c.log.Warn("failed to touch last activity", sl.Err(err), sl.User(telegramID))
		}
	}
}

// notifyError отправляет пользователю общее сообщение об ошибке,
// не раскрывая её причину.
func (c *Conversation) notifyError(telegramID int64) {
	if err := c.tg.SendMessage(telegramID, textInternalError); err != nil {
		c.log.Warn("failed to send error notice", sl.Err(err), sl.User(telegramID))
	}
}

func (c *Conversation) apply(ctx context.Context, eff Effect, telegramID int64, username string, user *models.User, messageID int, now time.Time) error {
	const op = "bot.apply"

	switch eff.Kind {
	case EffectReply:
		if len(eff.Keyboard) == 0 {
			return c.tg.SendMessage(telegramID, eff.Text)
		}
		return c.tg.SendWithMarkup(telegramID, eff.Text, toMarkup(eff.Keyboard))

	case EffectEdit:
		// Событие без исходного сообщения с кнопками редактировать нечего
		if messageID == 0 {
			if len(eff.Keyboard) == 0 {
				return c.tg.SendMessage(telegramID, eff.Text)
			}
			return c.tg.SendWithMarkup(telegramID, eff.Text, toMarkup(eff.Keyboard))
		}
		return c.tg.EditMessage(telegramID, messageID, eff.Text, toMarkup(eff.Keyboard))

	case EffectSaveUser:
		if _, err := c.db.UpsertUser(ctx, telegramID, username, now); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := c.db.UpdateProfile(ctx, telegramID, eff.Profile); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		c.log.Info("user registered", sl.User(telegramID))
		return nil

	case EffectUpdateProfile:
		if err := c.db.UpdateProfile(ctx, telegramID, eff.Profile); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		c.log.Info("profile updated", sl.User(telegramID))
		return nil

	case EffectEnableAutoRenewal:
		if user == nil {
			return fmt.Errorf("%s: user not registered", op)
		}
		if _, err := c.db.SetAutoRenewal(ctx, user.ID, true); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil

	case EffectCancelSubscription:
		if user == nil {
			return fmt.Errorf("%s: user not registered", op)
		}
		if _, err := c.db.CancelSubscription(ctx, user.ID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		c.log.Info("subscription cancelled by user", sl.User(telegramID))
		return nil
	}
	return nil
}

// buildView собирает снимок данных пользователя для перехода.
func (c *Conversation) buildView(ctx context.Context, telegramID int64) (View, *models.User, error) {
	const op = "bot.buildView"

	view := View{
		Price:            fmt.Sprintf("%d", c.opts.DefaultPrice),
		DurationDays:     c.opts.DurationDays,
		PayURL:           fmt.Sprintf("%s/pay?user_id=%d", c.opts.PayPageBaseURL, telegramID),
		PrivateChatLink:  c.opts.PrivateChatLink,
		PrivacyPolicyURL: c.opts.PrivacyPolicyURL,
	}

	if price, found, err := c.db.GetSetting(ctx, "subscription_price"); err != nil {
		c.log.Warn("failed to read price setting", sl.Err(err))
	} else if found {
		view.Price = price
	}

	user, found, err := c.db.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return View{}, nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return view, nil, nil
	}

	view.Registered = user.ConsentGiven
	view.RegisteredAt = user.RegistrationDate
	view.Profile = models.Profile{
		FullName:             user.FullName,
		ActivityField:        user.ActivityField,
		Company:              user.Company,
		RoleInCompany:        user.RoleInCompany,
		ContactNumber:        user.ContactNumber,
		ParticipationPurpose: user.ParticipationPurpose,
	}

	sub, found, err := c.db.FindSubscriptionByUserID(ctx, user.ID)
	if err != nil {
		return View{}, nil, fmt.Errorf("%s: %w", op, err)
	}
	if found {
		view.Subscription = sub
	}
	return view, user, nil
}

func toMarkup(rows [][]Button) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, r := range rows {
		var line []tgbotapi.InlineKeyboardButton
		for _, b := range r {
			if b.URL != "" {
				line = append(line, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
				continue
			}
			line = append(line, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		keyboard = append(keyboard, line)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}
