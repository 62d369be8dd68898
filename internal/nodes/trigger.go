package nodes

import (
	"context"
	"time"
)

// TriggerHandler — обработчик триггерных узлов.
//
// Триггер сам по себе side effect'а не имеет: к моменту его посещения
// запуск уже произошёл (планировщик, webhook, сообщение очереди).
// Узел лишь помечает контекст фактом срабатывания.
type TriggerHandler struct{}

// Execute возвращает фрагмент срабатывания.
func (h *TriggerHandler) Execute(ctx context.Context, req *Request) (*Response, error) {
	return ContinueWith(map[string]any{
		"triggered": true,
		"timestamp": time.Now().UnixMilli(),
	}), nil
}

// UnknownHandler — default-обработчик для неизвестных типов узлов.
//
// Неизвестный тип не валит запуск: узел помечается выполненным,
// downstream продолжается. Так графы с будущими типами узлов
// остаются исполнимыми на старых сборках.
type UnknownHandler struct{}

// Execute возвращает стаб-фрагмент.
func (h *UnknownHandler) Execute(ctx context.Context, req *Request) (*Response, error) {
	if req.Logger != nil {
		req.Logger.Warn("no handler for node type, passing through",
			"node_type", req.Node.Type,
		)
	}
	return ContinueWith(map[string]any{
		"executed":  true,
		"node_type": req.Node.Type.String(),
	}), nil
}
