// Package models содержит доменные структуры клубного бота:
// пользователей, подписки, платежи и записи о членстве в каналах.
package models

import "time"

// User хранит анкету участника и флаги согласия на обработку данных.
// Запись создаётся при первом успешном согласии и далее только обновляется.
type User struct {
	ID                   int64
	TelegramID           int64
	Username             string
	FullName             string
	ActivityField        string
	Company              string
	RoleInCompany        string
	ContactNumber        string
	ParticipationPurpose string
	RegistrationDate     time.Time
	LastActivity         time.Time
	IsActive             bool
	ConsentGiven         bool
	ConsentDate          *time.Time
	IsInPaidChannel      bool
	PaidChannelJoinDate  *time.Time
}

// Profile набор анкетных полей, собираемых диалогом регистрации.
type Profile struct {
	FullName             string
	ActivityField        string
	Company              string
	RoleInCompany        string
	ContactNumber        string
	ParticipationPurpose string
}

// Subscription описывает окно доступа пользователя к платному каналу.
// EndDate — исключающая верхняя граница доступа.
type Subscription struct {
	ID            int64
	UserID        int64
	StartDate     time.Time
	EndDate       time.Time
	IsActive      bool
	AutoRenewal   bool
	PaymentAmount int64
}

// Entitles сообщает, даёт ли подписка доступ в момент now.
func (s *Subscription) Entitles(now time.Time) bool {
	return s.IsActive && now.Before(s.EndDate)
}

// DaysLeft возвращает число полных дней до конца подписки, 0 если доступ истёк.
func (s *Subscription) DaysLeft(now time.Time) int {
	if !s.Entitles(now) {
		return 0
	}
	return int(s.EndDate.Sub(now).Hours() / 24)
}

// PaymentStatus статус платежа. Переходы только pending -> success
// или pending -> failed, терминальный статус неизменяем.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Payment строка платёжного журнала. PaymentID — внешний корреляционный
// идентификатор, сумма хранится в копейках.
type Payment struct {
	ID            int64
	UserID        int64
	PaymentID     string
	Amount        int64
	Currency      string
	Status        PaymentStatus
	PaymentMethod string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// ChannelType тип канала, к которому относится запись о членстве.
type ChannelType string

const (
	ChannelFree ChannelType = "free"
	ChannelPaid ChannelType = "paid"
)

// ChannelMembership наблюдённая история членства в канале.
// Используется только для отчётности, не для выдачи доступа.
type ChannelMembership struct {
	ID           int64
	UserID       int64
	Username     string
	FullName     string
	ChannelType  ChannelType
	ChannelID    string
	ChannelTitle string
	Status       string
	JoinedAt     time.Time
	LeftAt       *time.Time
	IsCurrent    bool
	UpdatedAt    time.Time
}

// MembershipEvent входящее событие смены членства, снятое с канала.
type MembershipEvent struct {
	UserID       int64
	Username     string
	FullName     string
	ChannelType  ChannelType
	ChannelID    string
	ChannelTitle string
	Status       string
	Joined       bool
	OccurredAt   time.Time
}

// BotSetting изменяемая настройка бота вида ключ -> значение
// (цена подписки, ссылка-приглашение и т.п.). Побеждает последняя запись.
type BotSetting struct {
	Key   string
	Value string
}

// AdminUser учётная запись администратора панели управления.
type AdminUser struct {
	ID           int64
	Username     string
	PasswordHash string
	IsActive     bool
}

// ReconcileResult итог сверки платежа с подпиской: кому и до какой даты
// продлён доступ. TelegramID нужен для внешних побочных эффектов.
type ReconcileResult struct {
	UserID     int64
	TelegramID int64
	EndDate    time.Time
	Amount     int64
	Extended   bool
}

// ExpiringEntry строка выборки планировщика: активная подписка,
// истекающая в интересующем календарном дне.
type ExpiringEntry struct {
	SubscriptionID int64
	UserID         int64
	TelegramID     int64
	EndDate        time.Time
}
