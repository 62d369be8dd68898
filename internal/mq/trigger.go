package mq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// TriggerFunc — запуск workflow по входящему сообщению.
// payload — полезная нагрузка сообщения, попадает в начальный контекст.
type TriggerFunc func(ctx context.Context, workflowID uuid.UUID, payload map[string]any) error

// NewTriggerConsumer создаёт consumer очереди триггеров.
//
// Каждое сообщение из QueueTriggers должно нести workflow_id; consumer
// вызывает trigger для соответствующего workflow. Сообщения без валидного
// workflow_id отбрасываются.
func NewTriggerConsumer(conn *Connection, logger *slog.Logger, trigger TriggerFunc) *Consumer {
	return NewConsumer(conn, logger, ConsumerConfig{
		Queue:    string(QueueTriggers),
		Prefetch: 5,
		Handler: func(ctx context.Context, msg *Delivery) error {
			workflowID, err := uuid.Parse(msg.Envelope.WorkflowID)
			if err != nil {
				logger.Warn("trigger message without valid workflow_id, dropping",
					"message_id", msg.Envelope.ID,
				)
				// Ошибку не возвращаем: requeue такого сообщения бессмысленен
				return nil
			}

			payload, _ := msg.Envelope.Payload.(map[string]any)

			if err := trigger(ctx, workflowID, payload); err != nil {
				return fmt.Errorf("trigger workflow %s: %w", workflowID, err)
			}
			return nil
		},
	})
}
