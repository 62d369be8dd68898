package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/engine"
	"github.com/shaiso/Flowline/internal/scheduler"
)

// ListWorkflows возвращает список всех workflow.
// GET /api/v1/workflows
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := h.workflowRepo.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]WorkflowResponse, len(workflows))
	for i, wf := range workflows {
		result[i] = WorkflowFromDomain(wf)
	}

	List(w, result, len(result))
}

// CreateWorkflow создаёт новый workflow.
// POST /api/v1/workflows
func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	wf := &domain.Workflow{
		ID:          uuid.New(),
		Name:        req.Name,
		Nodes:       req.Nodes,
		Connections: req.Connections,
	}

	if err := engine.Validate(wf); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.workflowRepo.Create(r.Context(), wf); err != nil {
		if HandleRepoError(w, h.logger, err, "") {
			return
		}
	}

	Created(w, WorkflowFromDomain(*wf))
}

// GetWorkflow возвращает workflow по ID.
// GET /api/v1/workflows/{id}
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	wf, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	Success(w, WorkflowFromDomain(*wf))
}

// UpdateWorkflow обновляет имя и граф workflow.
// PUT /api/v1/workflows/{id}
func (h *Handler) UpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req UpdateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	wf, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	if req.Name != nil {
		wf.Name = *req.Name
	}
	if req.Nodes != nil {
		wf.Nodes = *req.Nodes
	}
	if req.Connections != nil {
		wf.Connections = *req.Connections
	}

	if err := engine.Validate(wf); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.workflowRepo.Update(r.Context(), wf); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, WorkflowFromDomain(*wf))
}

// DeleteWorkflow удаляет workflow. Активный workflow сначала деактивируется.
// DELETE /api/v1/workflows/{id}
func (h *Handler) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	if err := h.scheduler.Deactivate(r.Context(), id); err != nil {
		h.logger.Warn("deactivate before delete failed", "workflow_id", id, "error", err)
	}

	if err := h.workflowRepo.Delete(r.Context(), id); err != nil {
		HandleRepoError(w, h.logger, err, "workflow not found")
		return
	}

	NoContent(w)
}

// ActivateWorkflow активирует workflow в планировщике.
// POST /api/v1/workflows/{id}/activate
func (h *Handler) ActivateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	wf, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	if err := h.scheduler.Activate(r.Context(), wf); err != nil {
		// Ошибки активации (нет cron-узла, невалидное выражение) — вина запроса.
		BadRequest(w, err.Error())
		return
	}

	wf.Active = true
	Success(w, WorkflowFromDomain(*wf))
}

// DeactivateWorkflow деактивирует workflow.
// POST /api/v1/workflows/{id}/deactivate
func (h *Handler) DeactivateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	if err := h.scheduler.Deactivate(r.Context(), id); err != nil {
		if HandleRepoError(w, h.logger, err, "workflow not found") {
			return
		}
	}

	NoContent(w)
}

// ListActiveWorkflows возвращает workflow, зарегистрированные в планировщике.
// GET /api/v1/workflows/active
func (h *Handler) ListActiveWorkflows(w http.ResponseWriter, r *http.Request) {
	jobs := h.scheduler.ActiveWorkflows()
	List(w, jobs, len(jobs))
}

// StartTestMode запускает test-mode сессию workflow.
// POST /api/v1/workflows/{id}/test-mode
func (h *Handler) StartTestMode(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req TestModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Interval == "" || req.Duration == "" {
		BadRequest(w, "interval and duration are required")
		return
	}

	wf, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	session, err := h.scheduler.StartTestMode(r.Context(), wf, scheduler.TestOptions{
		Interval:      req.Interval,
		Duration:      req.Duration,
		MaxExecutions: req.MaxExecutions,
	})
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	Created(w, TestSessionResponse{
		WorkflowID:    session.WorkflowID,
		Interval:      session.Interval,
		Duration:      session.Duration,
		MaxExecutions: session.MaxExecutions,
		ExecCount:     session.ExecCount(),
		StartedAt:     session.StartedAt,
	})
}

// StopTestMode останавливает test-mode сессию workflow.
// DELETE /api/v1/workflows/{id}/test-mode
func (h *Handler) StopTestMode(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	h.scheduler.StopTestMode(id)
	NoContent(w)
}

// ListTestSessions возвращает живые test-mode сессии.
// GET /api/v1/test-sessions
func (h *Handler) ListTestSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.scheduler.TestSessions()

	result := make([]TestSessionResponse, len(sessions))
	for i, s := range sessions {
		result[i] = TestSessionFromInfo(s)
	}

	List(w, result, len(result))
}
