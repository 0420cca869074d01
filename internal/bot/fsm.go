// Package bot реализует диалог регистрации и меню подписки в Telegram.
//
// Ядро диалога — чистая функция Next: по текущей сессии, входящему событию
// и снимку данных пользователя она возвращает новую сессию и список
// эффектов. Сетевые и базовые операции выполняет исполнитель эффектов,
// поэтому переходы состояний тестируются без Telegram и БД.
package bot

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/clubpass/club-access-bot/internal/models"
	"github.com/clubpass/club-access-bot/internal/session"
)

var phonePattern = regexp.MustCompile(`^(\+7|8)\d{10}$`)

// EventKind вид входящего события диалога.
type EventKind int

const (
	EventCommand EventKind = iota
	EventMessage
	EventCallback
)

// Event входящее событие диалога: команда, текст или нажатие кнопки.
type Event struct {
	Kind EventKind
	// Text — имя команды без слеша, текст сообщения или callback data.
	Text string
}

// View снимок данных пользователя на момент события. Собирается
// исполнителем перед вызовом Next, внутри переходов БД не трогается.
type View struct {
	Registered       bool
	Profile          models.Profile
	RegisteredAt     time.Time
	Subscription     *models.Subscription
	Price            string
	DurationDays     int
	PayURL           string
	PrivateChatLink  string
	PrivacyPolicyURL string
}

// EffectKind вид эффекта, который должен выполнить исполнитель.
type EffectKind int

const (
	// EffectReply — отправить новое сообщение.
	EffectReply EffectKind = iota
	// EffectEdit — заменить текст и клавиатуру сообщения с кнопкой.
	EffectEdit
	// EffectSaveUser — зафиксировать согласие и сохранить анкету.
	EffectSaveUser
	// EffectUpdateProfile — обновить анкету без запроса согласия.
	EffectUpdateProfile
	// EffectEnableAutoRenewal — включить автопродление подписки.
	EffectEnableAutoRenewal
	// EffectCancelSubscription — отключить подписку по просьбе пользователя.
	EffectCancelSubscription
)

// Button кнопка inline-клавиатуры: либо callback data, либо внешний URL.
type Button struct {
	Text string
	Data string
	URL  string
}

// Effect единица работы для исполнителя. Эффекты выполняются по порядку.
type Effect struct {
	Kind     EffectKind
	Text     string
	Keyboard [][]Button
	Profile  models.Profile
}

func reply(text string, rows ...[]Button) Effect {
	return Effect{Kind: EffectReply, Text: text, Keyboard: rows}
}

func edit(text string, rows ...[]Button) Effect {
	return Effect{Kind: EffectEdit, Text: text, Keyboard: rows}
}

func row(buttons ...Button) []Button { return buttons }

func mainMenuKeyboard() [][]Button {
	return [][]Button{
		row(Button{Text: "💬 Приватный чат", Data: cbPrivateChat}),
		row(Button{Text: "⚙️ Настройки", Data: cbSettings}),
		row(Button{Text: "👤 Профиль", Data: cbProfile}),
	}
}

func backToMainRow() []Button {
	return row(Button{Text: "🏠 Вернуться в главное меню", Data: cbMainBack})
}

// Next вычисляет переход диалога. Возвращённая сессия заменяет текущую,
// эффекты исполняются в порядке следования. Неизвестное событие в любом
// состоянии даёт пустой список эффектов и неизменную сессию.
func Next(sess session.Session, ev Event, view View, now time.Time) (session.Session, []Effect) {
	switch ev.Kind {
	case EventCommand:
		return nextCommand(sess, ev, view)
	case EventMessage:
		return nextMessage(sess, ev, view)
	case EventCallback:
		return nextCallback(sess, ev, view, now)
	}
	return sess, nil
}

func nextCommand(sess session.Session, ev Event, view View) (session.Session, []Effect) {
	switch ev.Text {
	case "start":
		sess.Step = 0
		sess.Answers = nil
		if view.Registered {
			sess.State = session.StateCompleted
			return sess, []Effect{reply(textWelcomeBack,
				row(Button{Text: "🔄 Обновить данные", Data: cbUpdateProfile}),
				row(Button{Text: "🏠 Главное меню", Data: cbMainBack}),
			)}
		}
		sess.State = session.StateQuestionnaire
		sess.Answers = make(map[string]string)
		return sess, []Effect{reply(textWelcome + questions[0])}
	case "cancel":
		sess.State = session.StateIdle
		sess.Step = 0
		sess.Answers = nil
		return sess, []Effect{reply(textCancelled)}
	}
	return sess, nil
}

func nextMessage(sess session.Session, ev Event, view View) (session.Session, []Effect) {
	if sess.State != session.StateQuestionnaire && sess.State != session.StateEditingProfile {
		return sess, nil
	}
	if sess.Step >= len(questions) {
		return sess, nil
	}

	field := questionFields[sess.Step]
	value := strings.TrimSpace(ev.Text)

	if field == "full_name" && len(strings.Fields(value)) < 2 {
		return sess, []Effect{reply(textNameInvalid)}
	}
	if field == "contact_number" && !phonePattern.MatchString(value) {
		return sess, []Effect{reply(textPhoneInvalid)}
	}

	if sess.Answers == nil {
		sess.Answers = make(map[string]string)
	}
	sess.Answers[field] = value
	sess.Step++

	if sess.Step < len(questions) {
		return sess, []Effect{reply(questions[sess.Step])}
	}

	profile := profileFromAnswers(sess.Answers)

	if sess.State == session.StateEditingProfile && view.Registered {
		sess.State = session.StateCompleted
		sess.Step = 0
		sess.Answers = nil
		return sess, []Effect{
			{Kind: EffectUpdateProfile, Profile: profile},
			reply(textProfileUpdated),
			reply(textMainMenu, mainMenuKeyboard()...),
		}
	}

	sess.State = session.StateAwaitingConsent
	return sess, []Effect{reply(
		fmt.Sprintf(textConsentPrompt, view.PrivacyPolicyURL),
		row(
			Button{Text: "✅ Согласен", Data: cbConsentYes},
			Button{Text: "❌ Не согласен", Data: cbConsentNo},
		),
	)}
}

func nextCallback(sess session.Session, ev Event, view View, now time.Time) (session.Session, []Effect) {
	if sess.State == session.StateAwaitingConsent {
		switch ev.Text {
		case cbConsentYes:
			profile := profileFromAnswers(sess.Answers)
			sess.State = session.StateCompleted
			sess.Step = 0
			sess.Answers = nil
			return sess, []Effect{
				{Kind: EffectSaveUser, Profile: profile},
				edit(textRegistered),
				reply(textMainMenu, mainMenuKeyboard()...),
			}
		case cbConsentNo:
			sess.State = session.StateIdle
			sess.Step = 0
			sess.Answers = nil
			return sess, []Effect{edit(textConsentDeclined)}
		}
		return sess, nil
	}

	switch ev.Text {
	case cbMainBack, cbSettingsBack:
		sess.State = session.StateCompleted
		sess.Step = 0
		sess.Answers = nil
		return sess, []Effect{edit(textMainMenu, mainMenuKeyboard()...)}

	case cbSettings:
		return sess, []Effect{edit(textSettingsMenu,
			row(Button{Text: "📝 Заполнить анкету заново", Data: cbSettingsRefill}),
			row(Button{Text: "💳 Оплата", Data: cbSettingsPay}),
			row(Button{Text: "⬅️ Назад", Data: cbSettingsBack}),
		)}

	case cbProfile:
		return sess, []Effect{edit(profileText(view, now), backToMainRow())}

	case cbPrivateChat:
		if view.Subscription != nil && view.Subscription.Entitles(now) {
			return sess, []Effect{edit(textPrivateChatGranted,
				row(Button{Text: "🔗 Войти в приватный чат", URL: view.PrivateChatLink}),
				backToMainRow(),
			)}
		}
		return sess, []Effect{edit(textPrivateChatDenied, backToMainRow())}

	case cbUpdateProfile, cbSettingsRefill:
		sess.State = session.StateEditingProfile
		sess.Step = 0
		sess.Answers = make(map[string]string)
		return sess, []Effect{edit(textUpdateProfile + questions[0])}

	case cbSettingsPay, cbPayBack:
		if ev.Text == cbPayBack {
			// Из меню оплаты «назад» ведёт в настройки
			return sess, []Effect{edit(textSettingsMenu,
				row(Button{Text: "📝 Заполнить анкету заново", Data: cbSettingsRefill}),
				row(Button{Text: "💳 Оплата", Data: cbSettingsPay}),
				row(Button{Text: "⬅️ Назад", Data: cbSettingsBack}),
			)}
		}
		return sess, []Effect{edit(paymentMenuText(view, now), paymentMenuKeyboard(view, now)...)}

	case cbPaySubscribe:
		return sess, []Effect{edit(textPaymentSubscribe,
			row(Button{Text: "💳 Перейти к оплате", URL: view.PayURL}),
			row(Button{Text: "⬅️ Назад", Data: cbPayBack}),
		)}

	case cbPayAutoRenewal:
		return sess, []Effect{
			{Kind: EffectEnableAutoRenewal},
			edit(textAutoRenewalEnabled, row(Button{Text: "⬅️ Назад", Data: cbPayBack})),
		}

	case cbPayCancel:
		return sess, []Effect{
			{Kind: EffectCancelSubscription},
			edit(textSubscriptionCancelled, row(Button{Text: "⬅️ Назад", Data: cbPayBack})),
		}
	}

	return sess, nil
}

func profileFromAnswers(answers map[string]string) models.Profile {
	return models.Profile{
		FullName:             answers["full_name"],
		ActivityField:        answers["activity_field"],
		Company:              answers["company"],
		RoleInCompany:        answers["role_in_company"],
		ContactNumber:        answers["contact_number"],
		ParticipationPurpose: answers["participation_purpose"],
	}
}

func orDash(value string) string {
	if value == "" {
		return "Не указано"
	}
	return value
}

func profileText(view View, now time.Time) string {
	var b strings.Builder
	b.WriteString("👤 Профиль пользователя\n\n")
	fmt.Fprintf(&b, "📝 Фамилия и имя: %s\n", orDash(view.Profile.FullName))
	fmt.Fprintf(&b, "🏢 Сфера деятельности: %s\n", orDash(view.Profile.ActivityField))
	fmt.Fprintf(&b, "🏭 Компания: %s\n", orDash(view.Profile.Company))
	fmt.Fprintf(&b, "👔 Роль в компании: %s\n", orDash(view.Profile.RoleInCompany))
	fmt.Fprintf(&b, "📱 Контактный номер: %s\n", orDash(view.Profile.ContactNumber))
	fmt.Fprintf(&b, "🎯 Цель участия: %s\n", orDash(view.Profile.ParticipationPurpose))
	fmt.Fprintf(&b, "📅 Дата регистрации: %s\n\n", view.RegisteredAt.Format("02.01.2006"))

	if view.Subscription != nil && view.Subscription.Entitles(now) {
		sub := view.Subscription
		autoRenewal := "Отключено"
		if sub.AutoRenewal {
			autoRenewal = "Включено"
		}
		b.WriteString("💳 Статус подписки: ✅ Активна\n")
		fmt.Fprintf(&b, "📅 Действует до: %s\n", sub.EndDate.Format("02.01.2006"))
		fmt.Fprintf(&b, "⏰ Осталось дней: %d\n", sub.DaysLeft(now))
		fmt.Fprintf(&b, "🔄 Автопродление: %s", autoRenewal)
	} else {
		b.WriteString("💳 Статус подписки: ❌ Нет подписки")
	}
	return b.String()
}

func paymentMenuText(view View, now time.Time) string {
	if view.Subscription != nil && view.Subscription.Entitles(now) {
		return fmt.Sprintf("💳 Управление подпиской\n\n"+
			"✅ У вас активная подписка\n"+
			"📅 Действует до: %s\n"+
			"💰 Стоимость: %s ₽/месяц\n\n"+
			"Выберите действие:",
			view.Subscription.EndDate.Format("02.01.2006"), view.Price)
	}
	return fmt.Sprintf("💳 Оформление подписки\n\n"+
		"💰 Стоимость: %s ₽/месяц\n"+
		"📅 Срок действия: %d дней\n\n"+
		"Выберите действие:",
		view.Price, view.DurationDays)
}

func paymentMenuKeyboard(view View, now time.Time) [][]Button {
	if view.Subscription != nil && view.Subscription.Entitles(now) {
		return [][]Button{
			row(Button{Text: "🔄 Подключить автопродление", Data: cbPayAutoRenewal}),
			row(Button{Text: "❌ Отключить подписку", Data: cbPayCancel}),
			row(Button{Text: "⬅️ Назад", Data: cbPayBack}),
		}
	}
	return [][]Button{
		row(Button{Text: "💳 Оформить подписку", Data: cbPaySubscribe}),
		row(Button{Text: "⬅️ Назад", Data: cbPayBack}),
	}
}
