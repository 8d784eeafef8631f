package services

import (
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/agent-dashboard/internal/rabbitmq"
)

// AMQPEventPublisher публикует события запусков в обменник RabbitMQ.
type AMQPEventPublisher struct {
	ch       *amqp.Channel
	exchange string
}

// NewAMQPEventPublisher создает издателя событий поверх канала ch.
func NewAMQPEventPublisher(ch *amqp.Channel, exchange string) *AMQPEventPublisher {
	return &AMQPEventPublisher{ch: ch, exchange: exchange}
}

// Publish отправляет событие в обменник с заданным ключом маршрутизации.
func (p *AMQPEventPublisher) Publish(routingKey string, message any) error {
	return rabbitmq.PublishMessage(p.ch, p.exchange, routingKey, message)
}
