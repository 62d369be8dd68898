package engine

import (
	"fmt"
	"strconv"

	"github.com/shaiso/Flowline/internal/domain"
)

// Validate выполняет полную валидацию графа workflow.
//
// Проверяет:
// - Наличие узлов
// - Уникальность ID узлов
// - Корректность ссылок связей (source/target существуют)
// - Что source handle каждой связи может быть выдан типом узла-источника
//
// Неизвестные типы узлов валидацию проходят: для них движок использует
// default-обработчик, handle "main".
func Validate(wf *domain.Workflow) error {
	if wf == nil || len(wf.Nodes) == 0 {
		return ErrEmptyGraph
	}

	nodeIDs := make(map[string]domain.NodeType, len(wf.Nodes))

	for i := range wf.Nodes {
		node := &wf.Nodes[i]

		if node.ID == "" {
			return NewValidationError("", "id", "node has empty ID", ErrEmptyNodeID)
		}

		if _, exists := nodeIDs[node.ID]; exists {
			return NewValidationError(node.ID, "id",
				fmt.Sprintf("duplicate node ID: %s", node.ID), ErrDuplicateNodeID)
		}
		nodeIDs[node.ID] = node.Type
	}

	for _, conn := range wf.Connections {
		sourceType, exists := nodeIDs[conn.Source]
		if !exists {
			return NewValidationError(conn.Source, "source",
				fmt.Sprintf("connection %s references unknown source node: %s", conn.ID, conn.Source),
				ErrUnknownConnectionNode)
		}

		if _, exists := nodeIDs[conn.Target]; !exists {
			return NewValidationError(conn.Target, "target",
				fmt.Sprintf("connection %s references unknown target node: %s", conn.ID, conn.Target),
				ErrUnknownConnectionNode)
		}

		if err := validateSourceHandle(conn, sourceType); err != nil {
			return err
		}
	}

	return nil
}

// validateSourceHandle проверяет, что handle связи выдаётся типом источника.
func validateSourceHandle(conn domain.Connection, sourceType domain.NodeType) error {
	// Для switch допустим любой числовой handle
	if sourceType == domain.NodeTypeSwitch {
		if _, err := strconv.Atoi(conn.SourceHandle); err != nil {
			return NewValidationError(conn.Source, "source_handle",
				fmt.Sprintf("switch node emits numeric handles, got %q", conn.SourceHandle),
				ErrInvalidSourceHandle)
		}
		return nil
	}

	handles := sourceType.EmittableHandles()
	for _, h := range handles {
		if conn.SourceHandle == h {
			return nil
		}
	}

	// Неизвестный тип узла: default-обработчик выдаёт только "main"
	if !sourceType.IsKnown() && conn.SourceHandle == domain.HandleMain {
		return nil
	}

	return NewValidationError(conn.Source, "source_handle",
		fmt.Sprintf("node type %s cannot emit handle %q", sourceType, conn.SourceHandle),
		ErrInvalidSourceHandle)
}

// StartNodes определяет стартовые узлы запуска.
//
// Если контекст несёт маркер триггера (TriggerKey), предпочитается узел,
// чей тип совпадает с маркером — так синхронный webhook-запуск попадает
// именно в webhook-узел. Иначе стартуют все узлы без входящих связей,
// в порядке объявления в графе.
func StartNodes(wf *domain.Workflow, ctx Context) []*domain.NodeInstance {
	if marker, ok := ctx.Lookup(TriggerKey); ok {
		if kind, ok := marker.(string); ok {
			for i := range wf.Nodes {
				if string(wf.Nodes[i].Type) == kind {
					return []*domain.NodeInstance{&wf.Nodes[i]}
				}
			}
		}
	}

	var starts []*domain.NodeInstance
	for i := range wf.Nodes {
		if wf.IncomingCount(wf.Nodes[i].ID) == 0 {
			starts = append(starts, &wf.Nodes[i])
		}
	}
	return starts
}
