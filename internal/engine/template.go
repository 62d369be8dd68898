package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// placeholderRe — плейсхолдер вида {{ имя }}.
// Внутри скобок — один идентификатор, без путей и выражений.
var placeholderRe = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// Interpolate подставляет значения контекста в плейсхолдеры {{ имя }}.
//
// Имя ищется в контексте дословно (после обрезки пробелов). Отсутствующая
// переменная заменяется литералом "undefined" и логируется — это
// диагностика, а не ошибка. Других шаблонных конструкций (условий, циклов,
// фильтров) нет намеренно: расширение синтаксиса — вопрос совместимости.
func Interpolate(template string, ctx Context) string {
	if !strings.Contains(template, "{{") {
		return template
	}

	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])

		value, ok := ctx.Lookup(name)
		if !ok {
			slog.Warn("template variable not found in context", "variable", name)
			return "undefined"
		}

		return Stringify(value)
	})
}

// Stringify приводит значение контекста к строке для подстановки.
// Map и slice сериализуются в JSON, остальное — через %v.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return "undefined"
	case string:
		return v
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// InterpolateValue рекурсивно подставляет плейсхолдеры в произвольном
// значении: строки интерполируются, map и slice обрабатываются поэлементно,
// остальные типы возвращаются как есть.
func InterpolateValue(value any, ctx Context) any {
	switch v := value.(type) {
	case string:
		return Interpolate(v, ctx)

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = InterpolateValue(val, ctx)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = InterpolateValue(val, ctx)
		}
		return result

	case map[string]string:
		result := make(map[string]string, len(v))
		for key, val := range v {
			result[key] = Interpolate(val, ctx)
		}
		return result

	default:
		return value
	}
}

// InterpolateConfig подставляет контекст в конфигурацию узла.
// Обёртка над InterpolateValue для map[string]any.
func InterpolateConfig(config map[string]any, ctx Context) map[string]any {
	if config == nil {
		return make(map[string]any)
	}

	result, ok := InterpolateValue(config, ctx).(map[string]any)
	if !ok {
		return config
	}
	return result
}
