package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus — статус выполнения workflow.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCESS
//	                  ↘ ERROR
//
// Промежуточных состояний, паузы и отмены начатого запуска нет.
type ExecutionStatus string

const (
	// ExecutionStatusPending — execution создан, но ещё не начался.
	ExecutionStatusPending ExecutionStatus = "PENDING"

	// ExecutionStatusRunning — execution в процессе выполнения.
	ExecutionStatusRunning ExecutionStatus = "RUNNING"

	// ExecutionStatusSuccess — все посещённые узлы выполнены успешно.
	ExecutionStatusSuccess ExecutionStatus = "SUCCESS"

	// ExecutionStatusError — выполнение прервано на упавшем узле.
	ExecutionStatusError ExecutionStatus = "ERROR"
)

// IsTerminal возвращает true, если статус финальный.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusSuccess || s == ExecutionStatusError
}

// LogEntryStatus — статус записи лога узла.
type LogEntryStatus string

const (
	// LogStatusPending — узел начал выполняться.
	LogStatusPending LogEntryStatus = "pending"

	// LogStatusSuccess — узел выполнен успешно.
	LogStatusSuccess LogEntryStatus = "success"

	// LogStatusError — узел упал; execution прерван на этой записи.
	LogStatusError LogEntryStatus = "error"
)

// LogEntry — запись лога о посещении одного узла.
type LogEntry struct {
	// NodeID — ID узла.
	NodeID string `json:"node_id"`

	// NodeName — имя узла (для читаемости лога).
	NodeName string `json:"node_name"`

	// NodeType — тип узла.
	NodeType NodeType `json:"node_type"`

	// Timestamp — время посещения узла.
	Timestamp time.Time `json:"timestamp"`

	// Status — статус выполнения узла.
	Status LogEntryStatus `json:"status"`

	// Data — фрагмент результата узла (при успехе).
	Data map[string]any `json:"data,omitempty"`

	// Error — текст ошибки (при падении).
	Error string `json:"error,omitempty"`
}

// Execution — один сквозной запуск workflow.
//
// Execution создаётся когда:
// - Планировщик срабатывает по cron-триггеру
// - Пользователь запускает workflow вручную или в test mode
// - Приходит webhook/сообщение из очереди
type Execution struct {
	// ID — уникальный идентификатор execution.
	ID uuid.UUID `json:"id"`

	// WorkflowID — ссылка на выполняемый workflow.
	WorkflowID uuid.UUID `json:"workflow_id"`

	// Status — текущий статус выполнения.
	Status ExecutionStatus `json:"status"`

	// StartedAt — время начала выполнения.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время завершения. Nil, если execution ещё идёт.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст ошибки, если execution завершился с ERROR.
	Error string `json:"error,omitempty"`

	// Log — упорядоченный лог посещённых узлов. Запись добавляется
	// со статусом pending перед запуском узла и переводится в итоговый
	// статус по завершении; завершённые записи не меняются.
	Log []LogEntry `json:"log"`
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если execution ещё не завершён.
func (e *Execution) Duration() time.Duration {
	if e.FinishedAt == nil {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// StartLog добавляет pending-запись о начале выполнения узла
// и возвращает её индекс для последующего FinishLog.
func (e *Execution) StartLog(entry LogEntry) int {
	entry.Status = LogStatusPending
	e.Log = append(e.Log, entry)
	return len(e.Log) - 1
}

// FinishLog переводит pending-запись в итоговый статус.
func (e *Execution) FinishLog(i int, status LogEntryStatus, data map[string]any, errText string) {
	e.Log[i].Status = status
	e.Log[i].Data = data
	e.Log[i].Error = errText
}

// MarkSuccess переводит execution в статус SUCCESS.
func (e *Execution) MarkSuccess() {
	now := time.Now()
	e.Status = ExecutionStatusSuccess
	e.FinishedAt = &now
}

// MarkError переводит execution в статус ERROR с ошибкой.
func (e *Execution) MarkError(err string) {
	now := time.Now()
	e.Status = ExecutionStatusError
	e.FinishedAt = &now
	e.Error = err
}
