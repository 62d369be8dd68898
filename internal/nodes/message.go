package nodes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shaiso/Flowline/internal/engine"
	"github.com/shaiso/Flowline/internal/mq"
)

// Ключи конфигурации узлов отправки сообщений.
const (
	configWebhookURL = "webhook_url"
	configMessage    = "message"
	configAPIURL     = "api_url"
	configAPIKey     = "api_key"
	configTo         = "to"
	configSubject    = "subject"
	configEmailBody  = "body"
	configRoutingKey = "routing_key"
	configExchange   = "exchange"
)

// ChatHandler — узел отправки сообщения в чат через входящий webhook
// (Slack/Mattermost-совместимый формат {"text": ...}).
//
// webhook_url хранится зашифрованным и расшифровывается движком перед
// выполнением. Текст сообщения интерполируется из контекста.
type ChatHandler struct {
	client *http.Client
}

// NewChatHandler создаёт новый ChatHandler.
func NewChatHandler() *ChatHandler {
	return &ChatHandler{
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// Execute отправляет сообщение в чат.
func (h *ChatHandler) Execute(ctx context.Context, req *Request) (*Response, error) {
	config := req.Config()

	webhookURL, err := requireString(config, req.Node.Type, configWebhookURL)
	if err != nil {
		return nil, err
	}

	message, err := requireString(config, req.Node.Type, configMessage)
	if err != nil {
		return nil, err
	}
	text := engine.Interpolate(message, req.Context)

	payload := map[string]any{"text": text}
	if err := postJSON(ctx, h.client, webhookURL, "", payload); err != nil {
		return nil, err
	}

	return ContinueWith(map[string]any{
		"sent":    true,
		"channel": "chat",
		"length":  len(text),
	}), nil
}

// EmailHandler — узел отправки письма через HTTP API почтового провайдера.
//
// api_key хранится зашифрованным. Адресат, тема и тело интерполируются
// из контекста.
type EmailHandler struct {
	client *http.Client
}

// NewEmailHandler создаёт новый EmailHandler.
func NewEmailHandler() *EmailHandler {
	return &EmailHandler{
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// Execute отправляет письмо.
func (h *EmailHandler) Execute(ctx context.Context, req *Request) (*Response, error) {
	config := req.Config()

	apiURL, err := requireString(config, req.Node.Type, configAPIURL)
	if err != nil {
		return nil, err
	}
	to, err := requireString(config, req.Node.Type, configTo)
	if err != nil {
		return nil, err
	}
	subject, err := requireString(config, req.Node.Type, configSubject)
	if err != nil {
		return nil, err
	}
	body, err := requireString(config, req.Node.Type, configEmailBody)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"to":      engine.Interpolate(to, req.Context),
		"subject": engine.Interpolate(subject, req.Context),
		"body":    engine.Interpolate(body, req.Context),
	}

	apiKey := GetConfigString(config, configAPIKey)
	if err := postJSON(ctx, h.client, apiURL, apiKey, payload); err != nil {
		return nil, err
	}

	return ContinueWith(map[string]any{
		"sent":    true,
		"channel": "email",
		"to":      payload["to"],
	}), nil
}

// QueueHandler — узел публикации сообщения в брокер.
//
// Публикует интерполированное сообщение в RabbitMQ с заданным
// routing_key; exchange опционален (по умолчанию exchange узлов).
type QueueHandler struct {
	Publisher *mq.Publisher
}

// Execute публикует сообщение в брокер.
func (h *QueueHandler) Execute(ctx context.Context, req *Request) (*Response, error) {
	if h.Publisher == nil {
		return nil, fmt.Errorf("%w: %s: message broker is not configured", ErrConfiguration, req.Node.Type)
	}

	config := req.Config()

	routingKey, err := requireString(config, req.Node.Type, configRoutingKey)
	if err != nil {
		return nil, err
	}

	message, err := requireString(config, req.Node.Type, configMessage)
	if err != nil {
		return nil, err
	}
	rendered := engine.Interpolate(message, req.Context)

	exchange := GetConfigString(config, configExchange)

	env := &mq.Envelope{
		NodeID: req.Node.ID,
		Payload: map[string]any{
			"message": rendered,
		},
		Timestamp: time.Now().UTC(),
	}

	if err := h.Publisher.Publish(ctx, exchange, routingKey, env); err != nil {
		return nil, fmt.Errorf("%w: publish to %q: %v", ErrExternalCall, routingKey, err)
	}

	return ContinueWith(map[string]any{
		"published":   true,
		"routing_key": routingKey,
	}), nil
}

// postJSON отправляет JSON-payload POST-запросом; непустой apiKey
// подставляется как Bearer-токен. Статусы вне 2xx — ошибка внешнего вызова.
func postJSON(ctx context.Context, client *http.Client, url, apiKey string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %v", ErrConfiguration, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrConfiguration, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: POST %s: %v", ErrExternalCall, url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: POST %s: status %d", ErrExternalCall, url, resp.StatusCode)
	}
	return nil
}
