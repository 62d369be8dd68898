package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Workflows
	mux.Handle("GET /api/v1/workflows", chain(http.HandlerFunc(h.ListWorkflows)))
	mux.Handle("POST /api/v1/workflows", chain(http.HandlerFunc(h.CreateWorkflow)))
	mux.Handle("GET /api/v1/workflows/active", chain(http.HandlerFunc(h.ListActiveWorkflows)))
	mux.Handle("GET /api/v1/workflows/{id}", chain(http.HandlerFunc(h.GetWorkflow)))
	mux.Handle("PUT /api/v1/workflows/{id}", chain(http.HandlerFunc(h.UpdateWorkflow)))
	mux.Handle("DELETE /api/v1/workflows/{id}", chain(http.HandlerFunc(h.DeleteWorkflow)))

	// Scheduler operations
	mux.Handle("POST /api/v1/workflows/{id}/activate", chain(http.HandlerFunc(h.ActivateWorkflow)))
	mux.Handle("POST /api/v1/workflows/{id}/deactivate", chain(http.HandlerFunc(h.DeactivateWorkflow)))
	mux.Handle("POST /api/v1/workflows/{id}/test-mode", chain(http.HandlerFunc(h.StartTestMode)))
	mux.Handle("DELETE /api/v1/workflows/{id}/test-mode", chain(http.HandlerFunc(h.StopTestMode)))
	mux.Handle("GET /api/v1/test-sessions", chain(http.HandlerFunc(h.ListTestSessions)))

	// Execution
	mux.Handle("POST /api/v1/workflows/{id}/execute", chain(http.HandlerFunc(h.ExecuteWorkflow)))
	mux.Handle("POST /api/v1/webhook/{id}", chain(http.HandlerFunc(h.WebhookTrigger)))
	mux.Handle("GET /api/v1/executions/{id}", chain(http.HandlerFunc(h.GetExecution)))
	mux.Handle("GET /api/v1/workflows/{id}/executions", chain(http.HandlerFunc(h.ListWorkflowExecutions)))
}
