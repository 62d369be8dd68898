package nodes

import (
	"context"
	"fmt"

	"github.com/shaiso/Flowline/internal/domain"
)

const (
	configBatchSize = "batch_size"

	defaultBatchSize = 10
)

// BatchHandler — узел разбиения данных на пачки.
//
// Берёт из контекста массив "items" и обходит последующие узлы отдельно
// для каждой пачки. Если "items" в контексте нет, весь контекст
// трактуется как единственный элемент.
type BatchHandler struct{}

// Execute разбивает элементы на пачки и обходит каждую.
func (h *BatchHandler) Execute(ctx context.Context, req *Request) (*Response, error) {
	config := req.Config()
	size := defaultBatchSize
	if _, ok := config[configBatchSize]; ok {
		size = GetConfigInt(config, configBatchSize)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: node %q: field %q must be positive", ErrConfiguration, req.Node.Type, configBatchSize)
	}

	items := extractItems(req.Context)
	total := (len(items) + size - 1) / size

	for i := 0; i < total; i++ {
		start := i * size
		end := start + size
		if end > len(items) {
			end = len(items)
		}

		batchCtx := req.Context.Merge(map[string]any{
			"items": items[start:end],
			"loop": map[string]any{
				"index":      i + 1,
				"total":      total,
				"batch_size": size,
			},
		})

		if err := req.Downstream(ctx, domain.HandleMain, batchCtx); err != nil {
			return nil, err
		}
	}

	return Handled(map[string]any{
		"batches":     total,
		"total_items": len(items),
	}), nil
}

func extractItems(ctx map[string]any) []any {
	if raw, ok := ctx["items"]; ok {
		if items, ok := raw.([]any); ok {
			return items
		}
	}
	// Нет массива — единственный элемент из всего контекста.
	single := make(map[string]any, len(ctx))
	for k, v := range ctx {
		single[k] = v
	}
	return []any{single}
}
