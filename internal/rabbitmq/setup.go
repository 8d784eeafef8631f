package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// QueueConfig описывает очередь и ключ маршрутизации, по которому она
// привязывается к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Имена обменников сервиса.
const (
	AgentEventsExchange   = "agents"
	NotificationsExchange = "notifications"
)

// GetNotificationQueues возвращает очереди воркера отправки уведомлений.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notifications.expired", RoutingKey: "expired"},
	}
}

// GetAgentEventQueues возвращает очереди событий запусков агентов.
func GetAgentEventQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "agents.run.completed", RoutingKey: "run.completed"},
		{QueueName: "agents.run.failed", RoutingKey: "run.failed"},
	}
}

// SetupChannel открывает канал, объявляет обменник exchange типа direct
// и привязывает к нему очереди queues.
func SetupChannel(conn *amqp.Connection, exchange string, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		exchange,
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
			exchange,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
