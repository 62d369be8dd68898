package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// Exchanges — имена обменников.
const (
	// ExchangeNodes — обменник по умолчанию для queue-узлов.
	// Узел может переопределить exchange в своей конфигурации.
	ExchangeNodes Exchange = "flowline.nodes"

	// ExchangeTriggers — обменник для входящих trigger-сообщений.
	ExchangeTriggers Exchange = "flowline.triggers"
)

// Queues — имена очередей.
const (
	// QueueTriggers — очередь, из которой consumer запускает workflows.
	QueueTriggers Queue = "triggers.incoming"
)

// SetupTopology декларирует обменники и очереди Flowline.
// Идемпотентно: повторный вызов на существующей топологии безопасен.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range []Exchange{ExchangeNodes, ExchangeTriggers} {
			if err := ch.ExchangeDeclare(
				string(ex),
				"topic",
				true,  // durable
				false, // auto-delete
				false, // internal
				false, // no-wait
				nil,
			); err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex, err)
			}
		}

		if _, err := ch.QueueDeclare(
			string(QueueTriggers),
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			nil,
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", QueueTriggers, err)
		}

		if err := ch.QueueBind(
			string(QueueTriggers),
			"#", // все routing keys
			string(ExchangeTriggers),
			false,
			nil,
		); err != nil {
			return fmt.Errorf("bind queue %s: %w", QueueTriggers, err)
		}

		return nil
	})
}
