package nodes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/engine"
)

// Ошибки выполнения узлов.
var (
	// ErrConfiguration — отсутствующая или невалидная конфигурация узла.
	ErrConfiguration = errors.New("invalid node configuration")

	// ErrExternalCall — сбой внешнего вызова (сеть, провайдер, non-2xx).
	ErrExternalCall = errors.New("external call failed")

	// ErrEvaluation — сбой вычисления условия или выражения.
	ErrEvaluation = errors.New("evaluation failed")
)

// Signal — указание движку, что делать после выполнения узла.
type Signal int

const (
	// SignalContinue — движок сам обходит исходящие связи "main".
	SignalContinue Signal = iota

	// SignalHandledDownstream — обработчик уже выполнил downstream-обход
	// (ветвление, цикл); движок не должен обходить связи повторно.
	SignalHandledDownstream
)

// DownstreamFunc — обход исходящих связей узла с заданным handle.
// Предоставляется движком; execCtx передаётся целевым узлам как есть.
type DownstreamFunc func(ctx context.Context, handle string, execCtx engine.Context) error

// Request — входные данные для выполнения узла.
type Request struct {
	// Node — узел с уже расшифрованной конфигурацией.
	Node *domain.NodeInstance

	// Context — контекст выполнения, накопленный по ветке.
	Context engine.Context

	// Downstream — обход исходящих связей узла (для ветвлений и циклов).
	Downstream DownstreamFunc

	// Logger — логгер с привязанными execution_id/node_id.
	Logger *slog.Logger
}

// Config возвращает конфигурацию узла (никогда не nil).
func (r *Request) Config() map[string]any {
	if r.Node.Config == nil {
		return map[string]any{}
	}
	return r.Node.Config
}

// Response — результат выполнения узла.
type Response struct {
	// Fragment — фрагмент результата, вливаемый в контекст downstream-узлов
	// и записываемый в лог выполнения.
	Fragment map[string]any

	// Signal — указание движку после выполнения узла.
	Signal Signal
}

// ContinueWith возвращает Response c фрагментом и сигналом continue.
func ContinueWith(fragment map[string]any) *Response {
	if fragment == nil {
		fragment = map[string]any{}
	}
	return &Response{Fragment: fragment, Signal: SignalContinue}
}

// Handled возвращает Response c фрагментом и сигналом handled-downstream.
func Handled(fragment map[string]any) *Response {
	if fragment == nil {
		fragment = map[string]any{}
	}
	return &Response{Fragment: fragment, Signal: SignalHandledDownstream}
}

// Handler — обработчик одного типа узла.
//
// Каждый тип узла (http, if, batch, ...) реализует этот интерфейс.
type Handler interface {
	// Execute выполняет узел и возвращает результат.
	// Обработчик должен проверять ctx.Done() на блокирующих операциях.
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// requireString извлекает обязательное строковое поле конфига.
// Отсутствие поля — типизированная ошибка конфигурации, не паника.
func requireString(config map[string]any, nodeType domain.NodeType, key string) (string, error) {
	value := GetConfigString(config, key)
	if value == "" {
		return "", fmt.Errorf("%w: %s: %s is required", ErrConfiguration, nodeType, key)
	}
	return value, nil
}

// GetConfigString извлекает строковое значение из конфига.
func GetConfigString(config map[string]any, key string) string {
	if v, ok := config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetConfigInt извлекает числовое значение из конфига.
func GetConfigInt(config map[string]any, key string) int {
	if v, ok := config[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return 0
}

// GetConfigBool извлекает булево значение из конфига.
func GetConfigBool(config map[string]any, key string, defaultVal bool) bool {
	if v, ok := config[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// GetConfigMap извлекает map из конфига.
func GetConfigMap(config map[string]any, key string) map[string]any {
	if v, ok := config[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}

// GetConfigMapString извлекает map[string]string из конфига.
func GetConfigMapString(config map[string]any, key string) map[string]string {
	if v, ok := config[key]; ok {
		switch m := v.(type) {
		case map[string]string:
			return m
		case map[string]any:
			result := make(map[string]string)
			for k, val := range m {
				if s, ok := val.(string); ok {
					result[k] = s
				}
			}
			return result
		}
	}
	return nil
}
