package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// Publisher публикует события системы в обменник events.
type Publisher struct {
	ch *amqp.Channel
}

// NewPublisher создаёт Publisher поверх готового канала.
func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{ch: ch}
}

// Publish сериализует сообщение в JSON и публикует его с указанным ключом маршрутизации.
func (p *Publisher) Publish(routingKey string, message any) error {
	const op = "rabbitmq.Publish"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = p.ch.Publish(
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// PaymentSucceededEvent тело события успешного платежа.
type PaymentSucceededEvent struct {
	PaymentID  string    `json:"payment_id"`
	UserID     int64     `json:"user_id"`
	TelegramID int64     `json:"telegram_id"`
	Amount     int64     `json:"amount"`
	EndDate    time.Time `json:"end_date"`
}

// SubscriptionReminderEvent тело события напоминания об истечении.
type SubscriptionReminderEvent struct {
	SubscriptionID int64     `json:"subscription_id"`
	UserID         int64     `json:"user_id"`
	TelegramID     int64     `json:"telegram_id"`
	DaysLeft       int       `json:"days_left"`
	EndDate        time.Time `json:"end_date"`
}

// SubscriptionRevokedEvent тело события отзыва доступа.
type SubscriptionRevokedEvent struct {
	SubscriptionID int64     `json:"subscription_id"`
	UserID         int64     `json:"user_id"`
	TelegramID     int64     `json:"telegram_id"`
	RevokedAt      time.Time `json:"revoked_at"`
}
