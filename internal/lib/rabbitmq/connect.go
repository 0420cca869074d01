// Package rabbitmq содержит подключение к брокеру и публикацию
// уведомительных событий системы (успешные платежи, отзыв доступа).
// События носят рекомендательный характер: журнал в базе — источник истины,
// поэтому ошибки публикации логируются и не прерывают основной поток.
package rabbitmq

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// Connect устанавливает соединение с RabbitMQ с повторными попытками.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	var conn *amqp.Connection
	var err error

	for range retries {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}
