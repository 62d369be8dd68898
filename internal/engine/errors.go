package engine

import "errors"

// Ошибки валидации графа workflow.
var (
	// ErrEmptyGraph — workflow не содержит узлов.
	ErrEmptyGraph = errors.New("workflow graph has no nodes")

	// ErrEmptyNodeID — узел не имеет ID.
	ErrEmptyNodeID = errors.New("node has empty ID")

	// ErrDuplicateNodeID — несколько узлов с одинаковым ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownConnectionNode — связь ссылается на несуществующий узел.
	ErrUnknownConnectionNode = errors.New("connection references unknown node")

	// ErrInvalidSourceHandle — source handle не поддерживается типом узла.
	ErrInvalidSourceHandle = errors.New("source handle not emittable by node type")
)

// ValidationError — ошибка валидации графа с контекстом.
type ValidationError struct {
	NodeID  string // ID узла или связи, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(nodeID, field, message string, err error) *ValidationError {
	return &ValidationError{
		NodeID:  nodeID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
