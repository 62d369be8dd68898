package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shaiso/Flowline/internal/engine"
)

const configMappings = "mappings"

// TransformHandler — узел преобразования контекста.
//
// Конфигурация:
//
//	{"mappings": {"full_name": "{{ first }} {{ last }}", "count": "{{ total }}"}}
//
// Каждое значение интерполируется из контекста; результат после
// интерполяции приводится к JSON-типу, если строка целиком им является
// ("42" -> число, "true" -> bool, "[1,2]" -> массив).
type TransformHandler struct{}

// Execute вычисляет маппинги и возвращает их фрагментом.
func (h *TransformHandler) Execute(ctx context.Context, req *Request) (*Response, error) {
	mappings := GetConfigMap(req.Config(), configMappings)
	if len(mappings) == 0 {
		return nil, fmt.Errorf("%w: %s: %s is required", ErrConfiguration, req.Node.Type, configMappings)
	}

	fragment := make(map[string]any, len(mappings))
	for key, raw := range mappings {
		template, ok := raw.(string)
		if !ok {
			// Нестроковые значения проходят без интерполяции.
			fragment[key] = raw
			continue
		}
		fragment[key] = coerceValue(engine.Interpolate(template, req.Context))
	}

	return ContinueWith(fragment), nil
}

// coerceValue приводит строку к JSON-типу, если она им является целиком.
func coerceValue(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}

	switch trimmed[0] {
	case '{', '[', '"', 't', 'f', 'n', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return s
}
