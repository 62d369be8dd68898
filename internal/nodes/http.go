package nodes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/Flowline/internal/engine"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxResponseBody    = 10 * 1024 * 1024 // 10 MB
)

// Ключи конфигурации HTTP узла.
const (
	configMethod     = "method"
	configURL        = "url"
	configHeaders    = "headers"
	configBody       = "body"
	configTimeoutSec = "timeout_sec"
	configAuthToken  = "auth_token"
)

// HTTPHandler — узел HTTP-запроса.
//
// URL, заголовки и тело интерполируются из контекста выполнения.
//
// Конфигурация:
//
//	{
//	    "method": "POST",
//	    "url": "https://api.example.com/items/{{ item_id }}",
//	    "headers": {"X-Source": "flowline"},
//	    "body": {"value": "{{ value }}"},
//	    "auth_token": "...",        // опционально; Bearer, шифруется кодеком
//	    "timeout_sec": 30
//	}
//
// Фрагмент результата:
//
//	{"status": "ok", "status_code": 200, "data": {...}}
//
// Сетевые ошибки и статусы вне 2xx — типизированная ошибка внешнего
// вызова, никогда не молчаливый успех.
type HTTPHandler struct {
	client *http.Client
}

// NewHTTPHandler создаёт новый HTTPHandler.
func NewHTTPHandler() *HTTPHandler {
	return &HTTPHandler{
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// Execute выполняет HTTP-запрос.
func (h *HTTPHandler) Execute(ctx context.Context, req *Request) (*Response, error) {
	config := req.Config()

	rawURL, err := requireString(config, req.Node.Type, configURL)
	if err != nil {
		return nil, err
	}
	url := engine.Interpolate(rawURL, req.Context)

	method := strings.ToUpper(GetConfigString(config, configMethod))
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := h.buildRequest(ctx, method, url, config, req.Context)
	if err != nil {
		return nil, err
	}

	timeout := defaultHTTPTimeout
	if sec := GetConfigInt(config, configTimeoutSec); sec > 0 {
		timeout = time.Duration(sec) * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := h.client.Do(httpReq.WithContext(callCtx))
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrExternalCall, method, url, err)
	}
	defer resp.Body.Close()

	data, err := parseResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrExternalCall, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s: status %d", ErrExternalCall, method, url, resp.StatusCode)
	}

	return ContinueWith(map[string]any{
		"status":      "ok",
		"status_code": resp.StatusCode,
		"data":        data,
	}), nil
}

// buildRequest собирает HTTP-запрос с интерполированными заголовками и телом.
func (h *HTTPHandler) buildRequest(ctx context.Context, method, url string, config map[string]any, execCtx engine.Context) (*http.Request, error) {
	var bodyReader io.Reader
	hasBody := false

	if rawBody, ok := config[configBody]; ok && rawBody != nil {
		rendered := engine.InterpolateValue(rawBody, execCtx)

		bodyBytes, err := serializeBody(rendered)
		if err != nil {
			return nil, fmt.Errorf("%w: serialize body: %v", ErrConfiguration, err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
		hasBody = true
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrConfiguration, err)
	}

	for key, value := range GetConfigMapString(config, configHeaders) {
		httpReq.Header.Set(key, engine.Interpolate(value, execCtx))
	}

	if hasBody && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if token := GetConfigString(config, configAuthToken); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	return httpReq, nil
}

// serializeBody сериализует тело запроса в bytes.
func serializeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// parseResponseBody читает тело ответа с ограничением размера.
// JSON парсится, остальное возвращается строкой.
func parseResponseBody(resp *http.Response) (any, error) {
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		var data any
		if err := json.Unmarshal(bodyBytes, &data); err == nil {
			return data, nil
		}
	}

	return string(bodyBytes), nil
}
