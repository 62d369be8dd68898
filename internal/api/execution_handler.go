package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/engine"
	"github.com/shaiso/Flowline/internal/runner"
)

// maxWebhookBody — предел тела входящего webhook-запроса.
const maxWebhookBody = 1 * 1024 * 1024 // 1 MB

// ExecuteWorkflow запускает workflow немедленно и синхронно возвращает результат.
// POST /api/v1/workflows/{id}/execute
func (h *Handler) ExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req ExecuteRequest
	if r.Body != nil {
		// Пустое тело допустимо: запуск без начального контекста.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			BadRequest(w, "invalid request body")
			return
		}
	}

	wf, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	initial := req.Context
	if initial == nil {
		initial = map[string]any{}
	}
	initial[engine.TriggerKey] = string(domain.NodeTypeManualTrigger)

	result, err := h.scheduler.ExecuteNow(r.Context(), wf, initial)
	if err != nil {
		if errors.Is(err, runner.ErrNoStartNode) || isValidation(err) {
			BadRequest(w, err.Error())
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Success(w, ResultFromRunner(result))
}

// WebhookTrigger запускает workflow по входящему HTTP-вызову.
// Заголовки, query-параметры и тело запроса становятся начальным контекстом.
// POST /api/v1/webhook/{id}
func (h *Handler) WebhookTrigger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	wf, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	initial := webhookContext(r)
	initial[engine.TriggerKey] = string(domain.NodeTypeWebhookTrigger)

	result, err := h.scheduler.ExecuteNow(r.Context(), wf, initial)
	if err != nil {
		if errors.Is(err, runner.ErrNoStartNode) || isValidation(err) {
			BadRequest(w, err.Error())
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Success(w, ResultFromRunner(result))
}

// GetExecution возвращает сохранённый запуск по ID.
// GET /api/v1/executions/{id}
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	exec, err := h.executionRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	Success(w, ExecutionFromDomain(*exec))
}

// ListWorkflowExecutions возвращает запуски workflow, новые первыми.
// GET /api/v1/workflows/{id}/executions
func (h *Handler) ListWorkflowExecutions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	executions, err := h.executionRepo.ListByWorkflow(r.Context(), id, limit)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ExecutionResponse, len(executions))
	for i, exec := range executions {
		result[i] = ExecutionFromDomain(exec)
	}

	List(w, result, len(result))
}

// webhookContext собирает начальный контекст из входящего запроса.
func webhookContext(r *http.Request) map[string]any {
	headers := make(map[string]any, len(r.Header))
	for key := range r.Header {
		headers[key] = r.Header.Get(key)
	}

	query := make(map[string]any)
	for key, values := range r.URL.Query() {
		if len(values) == 1 {
			query[key] = values[0]
		} else {
			query[key] = values
		}
	}

	initial := map[string]any{
		"headers": headers,
		"query":   query,
		"method":  r.Method,
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err == nil && len(bodyBytes) > 0 {
		var body any
		if json.Unmarshal(bodyBytes, &body) == nil {
			initial["body"] = body
		} else {
			initial["body"] = string(bodyBytes)
		}
	}

	return initial
}

func isValidation(err error) bool {
	var vErr *engine.ValidationError
	return errors.As(err, &vErr) || errors.Is(err, engine.ErrEmptyGraph)
}
