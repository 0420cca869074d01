package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// QueueConfig описывает очередь и ключ маршрутизации, к которым она привязана.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// EventsExchange имя обменника, в который публикуются события системы.
const EventsExchange = "events"

// Ключи маршрутизации публикуемых событий.
const (
	RoutePaymentSucceeded     = "payment.succeeded"
	RouteSubscriptionRevoked  = "subscription.revoked"
	RouteSubscriptionReminder = "subscription.reminder"
)

// GetEventQueues возвращает очереди для внешних потребителей событий.
func GetEventQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "events.payment.succeeded", RoutingKey: RoutePaymentSucceeded},
		{QueueName: "events.subscription.revoked", RoutingKey: RouteSubscriptionRevoked},
		{QueueName: "events.subscription.reminder", RoutingKey: RouteSubscriptionReminder},
	}
}

// SetupChannel открывает канал, объявляет обменник событий и
// привязывает к нему очереди.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		EventsExchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			q.QueueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}

		err = ch.QueueBind(
			q.QueueName,
			q.RoutingKey,
			EventsExchange,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
