package domain

// NodeType — тип узла workflow.
//
// Закрытое множество: добавление нового типа — это явное расширение
// enum'а и регистрация обработчика, а не динамический диспатч по строке.
type NodeType string

// Триггеры — стартовые узлы без собственного side effect.
const (
	// NodeTypeCronTrigger — запуск по расписанию.
	NodeTypeCronTrigger NodeType = "cron_trigger"

	// NodeTypeWebhookTrigger — запуск входящим HTTP-запросом.
	NodeTypeWebhookTrigger NodeType = "webhook_trigger"

	// NodeTypeManualTrigger — запуск вручную (кнопка "Execute").
	NodeTypeManualTrigger NodeType = "manual_trigger"

	// NodeTypeMailTrigger — запуск входящим письмом.
	NodeTypeMailTrigger NodeType = "mail_trigger"

	// NodeTypeFormTrigger — запуск отправкой формы.
	NodeTypeFormTrigger NodeType = "form_trigger"

	// NodeTypeQueueTrigger — запуск сообщением из очереди.
	NodeTypeQueueTrigger NodeType = "queue_trigger"
)

// Действия и управление потоком.
const (
	// NodeTypeHTTP — HTTP-запрос к внешнему API.
	NodeTypeHTTP NodeType = "http"

	// NodeTypeIf — условное ветвление (выходы "true"/"false").
	NodeTypeIf NodeType = "if"

	// NodeTypeSwitch — ветвление по индексу (числовые выходы).
	NodeTypeSwitch NodeType = "switch"

	// NodeTypeBatch — разбиение items на батчи с циклом по downstream.
	NodeTypeBatch NodeType = "batch"

	// NodeTypeChat — отправка сообщения в чат (webhook провайдера).
	NodeTypeChat NodeType = "chat"

	// NodeTypeEmail — отправка письма через HTTP API провайдера.
	NodeTypeEmail NodeType = "email"

	// NodeTypeQueue — публикация сообщения в AMQP очередь.
	NodeTypeQueue NodeType = "queue"

	// NodeTypeTransform — трансформация данных через mappings.
	NodeTypeTransform NodeType = "transform"

	// NodeTypeCode — вычисление ограниченного выражения над контекстом.
	NodeTypeCode NodeType = "code"
)

// knownNodeTypes — все известные типы узлов.
var knownNodeTypes = map[NodeType]bool{
	NodeTypeCronTrigger:    true,
	NodeTypeWebhookTrigger: true,
	NodeTypeManualTrigger:  true,
	NodeTypeMailTrigger:    true,
	NodeTypeFormTrigger:    true,
	NodeTypeQueueTrigger:   true,
	NodeTypeHTTP:           true,
	NodeTypeIf:             true,
	NodeTypeSwitch:         true,
	NodeTypeBatch:          true,
	NodeTypeChat:           true,
	NodeTypeEmail:          true,
	NodeTypeQueue:          true,
	NodeTypeTransform:      true,
	NodeTypeCode:           true,
}

// IsKnown возвращает true, если тип узла известен этой сборке.
// Неизвестные типы не валят запуск — для них есть default-обработчик.
func (t NodeType) IsKnown() bool {
	return knownNodeTypes[t]
}

// IsTrigger возвращает true для триггерных типов.
func (t NodeType) IsTrigger() bool {
	switch t {
	case NodeTypeCronTrigger, NodeTypeWebhookTrigger, NodeTypeManualTrigger,
		NodeTypeMailTrigger, NodeTypeFormTrigger, NodeTypeQueueTrigger:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление типа.
func (t NodeType) String() string {
	return string(t)
}

// EmittableHandles возвращает handles, которые узел данного типа
// способен иметь на выходе. Для switch допустимы любые числовые
// handles, поэтому для него возвращается nil (проверка отдельная).
func (t NodeType) EmittableHandles() []string {
	switch t {
	case NodeTypeIf:
		return []string{HandleTrue, HandleFalse}
	case NodeTypeSwitch:
		return nil
	default:
		return []string{HandleMain}
	}
}
