package nodes

import (
	"context"
	"fmt"

	"github.com/shaiso/Flowline/internal/engine"
)

// CodeHandler — узел вычисления выражения.
//
// Выполняет одно выражение ограниченной грамматики (арифметика,
// сравнения, булева логика над полями контекста) и кладёт результат
// в "result". Произвольный код не исполняется.
type CodeHandler struct{}

// Execute вычисляет выражение узла.
func (h *CodeHandler) Execute(ctx context.Context, req *Request) (*Response, error) {
	expression, err := requireString(req.Config(), req.Node.Type, configExpression)
	if err != nil {
		return nil, err
	}

	value, err := engine.Eval(expression, req.Context)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEvaluation, err)
	}

	return ContinueWith(map[string]any{"result": value}), nil
}
