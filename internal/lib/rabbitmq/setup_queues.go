// Package rabbitmq содержит подключение к RabbitMQ и настройку очередей
// для событий биллинга. Потребители очередей (уведомления, дожим оплаты)
// живут вне этого сервиса.
package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// QueueConfig описывает очередь и ключ маршрутизации для неё.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetBillingQueues возвращает очереди событий биллинга.
func GetBillingQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "billing.subscription_expired", RoutingKey: "subscription_expired"},
		{QueueName: "billing.payment_failed", RoutingKey: "payment_failed"},
	}
}

// Connect открывает соединение и канал, объявляет exchange "billing"
// и привязывает к нему очереди событий.
func Connect(addr string) (*amqp.Connection, *amqp.Channel, error) {
	const op = "rabbitmq.Connect"
	conn, err := amqp.Dial(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.ExchangeDeclare("billing", "direct", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, q := range GetBillingQueues() {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, "billing", false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return conn, ch, nil
}
