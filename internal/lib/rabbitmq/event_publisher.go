package rabbitmq

import "github.com/streadway/amqp"

// BillingExchange exchange событий биллинга.
const BillingExchange = "billing"

// Publisher публикует события биллинга в exchange "billing".
// Реализует интерфейсы EventPublisher сервисов.
type Publisher struct {
	ch *amqp.Channel
}

// NewPublisher создает новый Publisher поверх открытого канала.
func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{ch: ch}
}

// Publish публикует сообщение с заданным ключом маршрутизации.
func (p *Publisher) Publish(routingKey string, message any) error {
	return PublishMessage(p.ch, BillingExchange, routingKey, message)
}
