package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher публикует сообщения в RabbitMQ.
// Используется queue-узлами для отправки сообщений из workflow.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Envelope — публикуемое сообщение.
type Envelope struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// WorkflowID — workflow, из которого отправлено сообщение.
	WorkflowID string `json:"workflow_id,omitempty"`

	// NodeID — узел, отправивший сообщение.
	NodeID string `json:"node_id,omitempty"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// Publish публикует сообщение в указанный exchange с routing key.
// Пустой exchange заменяется обменником узлов по умолчанию.
func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, env *Envelope) error {
	if exchange == "" {
		exchange = string(ExchangeNodes)
	}
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now()
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	err = p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		return ch.PublishWithContext(ctx,
			exchange,
			routingKey,
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    env.ID,
				Timestamp:    env.Timestamp,
				Body:         body,
			},
		)
	})
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
	}

	p.logger.Debug("published message",
		"exchange", exchange,
		"routing_key", routingKey,
		"message_id", env.ID,
	)

	return nil
}
