package bot

// Тексты и callback-данные диалога. Изменение callback-значений ломает
// уже отправленные клавиатуры, поэтому они зафиксированы константами.
const (
	cbConsentYes     = "consent_yes"
	cbConsentNo      = "consent_no"
	cbProfile        = "profile"
	cbSettings       = "settings"
	cbPrivateChat    = "private_chat"
	cbUpdateProfile  = "update_profile"
	cbMainBack       = "main_back"
	cbSettingsRefill = "settings_refill"
	cbSettingsPay    = "settings_payment"
	cbSettingsBack   = "settings_back"
	cbPaySubscribe   = "payment_subscribe"
	cbPayAutoRenewal = "payment_auto_renewal"
	cbPayCancel      = "payment_cancel"
	cbPayBack        = "payment_back"
)

// questions — вопросы анкеты в порядке заполнения.
var questions = []string{
	"Введите фамилию и имя (через пробел):",
	"Введите сферу деятельности:",
	"Введите название компании:",
	"Введите вашу роль в компании:",
	"Введите контактный номер телефона (+7XXXXXXXXX или 8XXXXXXXXX):",
	"Введите цель участия:",
}

// questionFields — ключи черновых ответов, позиция соответствует questions.
var questionFields = []string{
	"full_name",
	"activity_field",
	"company",
	"role_in_company",
	"contact_number",
	"participation_purpose",
}

const (
	textWelcome = "Добро пожаловать! Для регистрации необходимо заполнить анкету.\n\n"

	textWelcomeBack = "👋 С возвращением! Вы уже зарегистрированы в системе.\n\n" +
		"Выберите действие:"

	textNameInvalid = "Пожалуйста, введите фамилию и имя через пробел (например: Иванов Иван)"

	textPhoneInvalid = "Пожалуйста, введите корректный номер телефона в формате +7XXXXXXXXX или 8XXXXXXXXX"

	textConsentPrompt = "Анкета заполнена! Теперь необходимо дать согласие на обработку персональных данных.\n\n" +
		"📋 Ознакомьтесь с нашей политикой конфиденциальности:\n%s\n\n" +
		"Нажимая 'Согласен', вы подтверждаете, что даете согласие на обработку ваших персональных данных " +
		"в соответствии с указанной политикой."

	textConsentDeclined = "❌ Без согласия на обработку персональных данных регистрация невозможна.\n" +
		"Используйте /start для повторной попытки."

	textRegistered = "✅ Регистрация завершена! Добро пожаловать в систему!"

	textProfileUpdated = "✅ Данные профиля успешно обновлены!"

	textUpdateProfile = "📝 Обновление данных профиля\n\n"

	textMainMenu = "🏠 Главное меню\n\nВыберите нужный раздел:"

	textSettingsMenu = "⚙️ Настройки\n\nВыберите действие:"

	textCancelled = "❌ Регистрация отменена. Используйте /start для начала заново."

	textPrivateChatGranted = "🎉 Добро пожаловать в платный канал!\n\n" +
		"Ваша подписка активирована!\n\n" +
		"Нажмите кнопку ниже для входа в приватный чат:"

	textPrivateChatDenied = "❌ Для доступа к приватному чату необходима подписка.\n\n" +
		"Перейдите в раздел 'Настройки' → 'Оплата' для оформления подписки."

	textPaymentSubscribe = "💳 Оформление подписки\n\n" +
		"Нажмите кнопку ниже для перехода к оплате:\n\n" +
		"После успешной оплаты ваша подписка будет активирована автоматически."

	textAutoRenewalEnabled = "✅ Автопродление подключено!\n\n" +
		"Ваша подписка будет автоматически продлеваться каждый месяц."

	textSubscriptionCancelled = "❌ Подписка отключена!\n\n" +
		"Ваша подписка будет активна до конца оплаченного периода."

	textInternalError = "❌ Произошла ошибка. Попробуйте использовать команду /start для перезапуска."
)
