package nodes

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/engine"
)

// Ключи конфигурации условных узлов.
const (
	configCondition  = "condition"
	configExpression = "expression"
)

// IfHandler — узел условного ветвления.
//
// Условие сначала интерполируется из контекста, затем вычисляется
// ограниченной грамматикой (сравнения, булевы операции, арифметика —
// без общего исполнения кода, это граница безопасности).
//
// По результату обходятся только связи с handle "true" либо "false";
// обе ветки из одного вычисления не посещаются никогда.
type IfHandler struct{}

// Execute вычисляет условие и обходит соответствующую ветку.
func (h *IfHandler) Execute(ctx context.Context, req *Request) (*Response, error) {
	condition, err := requireString(req.Config(), req.Node.Type, configCondition)
	if err != nil {
		return nil, err
	}

	rendered := engine.Interpolate(condition, req.Context)

	result, err := engine.EvalBool(rendered, req.Context)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEvaluation, err)
	}

	fragment := map[string]any{"condition": result}

	handle := domain.HandleFalse
	if result {
		handle = domain.HandleTrue
	}

	if err := req.Downstream(ctx, handle, req.Context.Merge(fragment)); err != nil {
		return nil, err
	}

	return Handled(fragment), nil
}

// SwitchHandler — узел ветвления по индексу.
//
// Выражение вычисляется в число; обходятся связи с числовым handle,
// равным результату ("0", "1", ...).
type SwitchHandler struct{}

// Execute вычисляет индекс ветки и обходит её.
func (h *SwitchHandler) Execute(ctx context.Context, req *Request) (*Response, error) {
	expression, err := requireString(req.Config(), req.Node.Type, configExpression)
	if err != nil {
		return nil, err
	}

	rendered := engine.Interpolate(expression, req.Context)

	value, err := engine.Eval(rendered, req.Context)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEvaluation, err)
	}

	branch, ok := toBranchIndex(value)
	if !ok {
		return nil, fmt.Errorf("%w: switch expression must yield an integer, got %v", ErrEvaluation, value)
	}

	fragment := map[string]any{"branch": branch}

	handle := strconv.Itoa(branch)
	if err := req.Downstream(ctx, handle, req.Context.Merge(fragment)); err != nil {
		return nil, err
	}

	return Handled(fragment), nil
}

// toBranchIndex приводит результат выражения к индексу ветки.
func toBranchIndex(value any) (int, bool) {
	switch v := value.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
