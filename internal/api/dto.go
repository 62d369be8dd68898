package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/runner"
	"github.com/shaiso/Flowline/internal/scheduler"
)

// Workflow DTOs

// CreateWorkflowRequest — запрос на создание workflow.
type CreateWorkflowRequest struct {
	Name        string                `json:"name"`
	Nodes       []domain.NodeInstance `json:"nodes"`
	Connections []domain.Connection   `json:"connections"`
}

// UpdateWorkflowRequest — запрос на обновление workflow.
type UpdateWorkflowRequest struct {
	Name        *string                `json:"name,omitempty"`
	Nodes       *[]domain.NodeInstance `json:"nodes,omitempty"`
	Connections *[]domain.Connection   `json:"connections,omitempty"`
}

// WorkflowResponse — ответ с workflow.
// Чувствительные поля конфигов узлов отдаются в зашифрованном виде.
type WorkflowResponse struct {
	ID          uuid.UUID             `json:"id"`
	Name        string                `json:"name"`
	Active      bool                  `json:"active"`
	Nodes       []domain.NodeInstance `json:"nodes"`
	Connections []domain.Connection   `json:"connections"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// WorkflowFromDomain конвертирует domain.Workflow в WorkflowResponse.
func WorkflowFromDomain(wf domain.Workflow) WorkflowResponse {
	return WorkflowResponse{
		ID:          wf.ID,
		Name:        wf.Name,
		Active:      wf.Active,
		Nodes:       wf.Nodes,
		Connections: wf.Connections,
		CreatedAt:   wf.CreatedAt,
		UpdatedAt:   wf.UpdatedAt,
	}
}

// Scheduler DTOs

// TestModeRequest — запрос на запуск test mode.
type TestModeRequest struct {
	Interval      string `json:"interval"`
	Duration      string `json:"duration"`
	MaxExecutions int    `json:"max_executions,omitempty"`
}

// TestSessionResponse — ответ с test-mode сессией.
type TestSessionResponse struct {
	WorkflowID    uuid.UUID `json:"workflow_id"`
	Interval      string    `json:"interval"`
	Duration      string    `json:"duration"`
	MaxExecutions int       `json:"max_executions"`
	ExecCount     int       `json:"exec_count"`
	StartedAt     time.Time `json:"started_at"`
}

// TestSessionFromInfo конвертирует scheduler.SessionInfo в TestSessionResponse.
func TestSessionFromInfo(info scheduler.SessionInfo) TestSessionResponse {
	return TestSessionResponse{
		WorkflowID:    info.WorkflowID,
		Interval:      info.Interval,
		Duration:      info.Duration,
		MaxExecutions: info.MaxExecutions,
		ExecCount:     info.ExecCount,
		StartedAt:     info.StartedAt,
	}
}

// Execution DTOs

// ExecuteRequest — запрос на немедленный запуск workflow.
type ExecuteRequest struct {
	Context map[string]any `json:"context,omitempty"`
}

// ResultResponse — результат синхронного запуска.
type ResultResponse struct {
	ExecutionID uuid.UUID         `json:"execution_id"`
	Success     bool              `json:"success"`
	DurationMs  int64             `json:"duration_ms"`
	Log         []domain.LogEntry `json:"log"`
	Error       string            `json:"error,omitempty"`
}

// ResultFromRunner конвертирует runner.Result в ResultResponse.
func ResultFromRunner(result *runner.Result) ResultResponse {
	resp := ResultResponse{
		ExecutionID: result.ExecutionID,
		Success:     result.Success,
		DurationMs:  result.Duration.Milliseconds(),
		Log:         result.Log,
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	return resp
}

// ExecutionResponse — ответ с сохранённым запуском.
type ExecutionResponse struct {
	ID         uuid.UUID              `json:"id"`
	WorkflowID uuid.UUID              `json:"workflow_id"`
	Status     domain.ExecutionStatus `json:"status"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
	DurationMs int64                  `json:"duration_ms"`
	Error      string                 `json:"error,omitempty"`
	Log        []domain.LogEntry      `json:"log"`
}

// ExecutionFromDomain конвертирует domain.Execution в ExecutionResponse.
func ExecutionFromDomain(exec domain.Execution) ExecutionResponse {
	return ExecutionResponse{
		ID:         exec.ID,
		WorkflowID: exec.WorkflowID,
		Status:     exec.Status,
		StartedAt:  exec.StartedAt,
		FinishedAt: exec.FinishedAt,
		DurationMs: exec.Duration().Milliseconds(),
		Error:      exec.Error,
		Log:        exec.Log,
	}
}
