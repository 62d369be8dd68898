package nodes

import (
	"log/slog"
	"sync"

	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/mq"
)

// Registry — реестр обработчиков узлов по типу.
//
// Диспатч закрытый: множество типов зафиксировано в domain.NodeType,
// добавление типа — это регистрация обработчика в DefaultRegistry.
// Для незарегистрированных типов Get возвращает default-обработчик,
// чтобы незнакомые/будущие типы узлов деградировали мягко, не валя запуск.
// Потокобезопасен.
type Registry struct {
	mu       sync.RWMutex
	handlers map[domain.NodeType]Handler
	fallback Handler
}

// NewRegistry создаёт пустой реестр с default-обработчиком.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[domain.NodeType]Handler),
		fallback: &UnknownHandler{},
	}
}

// DefaultRegistry создаёт реестр со всеми встроенными обработчиками.
//
// publisher может быть nil — тогда queue-узлы возвращают ошибку
// конфигурации при выполнении (брокер не подключён).
func DefaultRegistry(publisher *mq.Publisher, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	r := NewRegistry()

	trigger := &TriggerHandler{}
	for _, t := range []domain.NodeType{
		domain.NodeTypeCronTrigger,
		domain.NodeTypeWebhookTrigger,
		domain.NodeTypeManualTrigger,
		domain.NodeTypeMailTrigger,
		domain.NodeTypeFormTrigger,
		domain.NodeTypeQueueTrigger,
	} {
		r.Register(t, trigger)
	}

	r.Register(domain.NodeTypeHTTP, NewHTTPHandler())
	r.Register(domain.NodeTypeIf, &IfHandler{})
	r.Register(domain.NodeTypeSwitch, &SwitchHandler{})
	r.Register(domain.NodeTypeBatch, &BatchHandler{})
	r.Register(domain.NodeTypeChat, NewChatHandler())
	r.Register(domain.NodeTypeEmail, NewEmailHandler())
	r.Register(domain.NodeTypeQueue, &QueueHandler{Publisher: publisher})
	r.Register(domain.NodeTypeTransform, &TransformHandler{})
	r.Register(domain.NodeTypeCode, &CodeHandler{})

	return r
}

// Register регистрирует обработчик для типа узла.
// Существующий обработчик перезаписывается.
func (r *Registry) Register(nodeType domain.NodeType, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[nodeType] = handler
}

// Get возвращает обработчик для типа узла.
// Для незарегистрированного типа возвращает default-обработчик.
func (r *Registry) Get(nodeType domain.NodeType) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if handler, ok := r.handlers[nodeType]; ok {
		return handler
	}
	return r.fallback
}

// Has проверяет, зарегистрирован ли обработчик для типа.
func (r *Registry) Has(nodeType domain.NodeType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[nodeType]
	return ok
}

// Types возвращает зарегистрированные типы узлов.
func (r *Registry) Types() []domain.NodeType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]domain.NodeType, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}
