// Package rabbitmq содержит подключение к брокеру, настройку обменников
// и очередей, публикацию и потребление сообщений.
//
// Сервис использует два обменника: "agents" — события запусков задач
// агентов, "notifications" — уведомления об истечении подписок.
package rabbitmq

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// Connect устанавливает соединение с RabbitMQ, повторяя попытку
// retries раз с паузой delay.
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
