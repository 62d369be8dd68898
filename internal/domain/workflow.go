package domain

import (
	"time"

	"github.com/google/uuid"
)

// Workflow — граф узлов, собранный пользователем в редакторе.
//
// Workflow — это "программа" для Flowline: набор типизированных узлов
// и направленных связей между ними. Движок выполняет граф как есть,
// никогда не мутируя его — изменяет workflow только редактор.
type Workflow struct {
	// ID — уникальный идентификатор workflow.
	ID uuid.UUID `json:"id"`

	// Name — имя workflow для удобной идентификации пользователем.
	Name string `json:"name"`

	// Active — флаг активности. Активный workflow зарегистрирован
	// в планировщике и запускается по расписанию своего cron-триггера.
	Active bool `json:"active"`

	// Nodes — узлы графа. Порядок сохраняется как задан редактором.
	Nodes []NodeInstance `json:"nodes"`

	// Connections — связи между узлами.
	// Порядок связей значим: движок обходит исходящие связи узла
	// именно в этом порядке.
	Connections []Connection `json:"connections"`

	// CreatedAt — время создания workflow.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}

// NodeByID возвращает узел по ID или nil, если узла нет.
func (w *Workflow) NodeByID(id string) *NodeInstance {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i]
		}
	}
	return nil
}

// OutgoingConnections возвращает исходящие связи узла с заданным handle
// в том порядке, в котором они объявлены в графе.
func (w *Workflow) OutgoingConnections(nodeID, sourceHandle string) []Connection {
	var out []Connection
	for _, conn := range w.Connections {
		if conn.Source == nodeID && conn.SourceHandle == sourceHandle {
			out = append(out, conn)
		}
	}
	return out
}

// IncomingCount возвращает количество входящих связей узла.
func (w *Workflow) IncomingCount(nodeID string) int {
	count := 0
	for _, conn := range w.Connections {
		if conn.Target == nodeID {
			count++
		}
	}
	return count
}

// NodeInstance — один узел workflow.
//
// Узел принадлежит графу и никогда не разделяется между запусками.
// Схема Config определяется типом узла.
type NodeInstance struct {
	// ID — уникальный в рамках графа идентификатор узла.
	ID string `json:"id"`

	// Type — тип узла из закрытого множества NodeType.
	Type NodeType `json:"type"`

	// Name — человекочитаемое имя узла (для логов и экспорта).
	Name string `json:"name"`

	// Config — конфигурация узла (ключ → строка/число/bool/объект).
	Config map[string]any `json:"config,omitempty"`
}

// Connection — направленная связь между узлами.
type Connection struct {
	// ID — уникальный идентификатор связи.
	ID string `json:"id"`

	// Source — ID узла-источника.
	Source string `json:"source"`

	// SourceHandle — именованный выход источника:
	// "main" для простого выхода, "true"/"false" для веток условия,
	// числовая строка ("0", "1", ...) для веток switch.
	SourceHandle string `json:"source_handle"`

	// Target — ID узла-приёмника.
	Target string `json:"target"`

	// TargetHandle — именованный вход приёмника (сейчас всегда "input").
	TargetHandle string `json:"target_handle"`
}

// Handles выходов узлов.
const (
	HandleMain  = "main"
	HandleTrue  = "true"
	HandleFalse = "false"
	HandleInput = "input"
)
