package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// WorkflowResponse — workflow из API.
type WorkflowResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Active      bool             `json:"active"`
	Nodes       []map[string]any `json:"nodes"`
	Connections []map[string]any `json:"connections"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
}

// ActiveJobResponse — зарегистрированная задача планировщика из API.
type ActiveJobResponse struct {
	WorkflowID string `json:"workflow_id"`
	CronExpr   string `json:"cron_expr"`
}

// TestSessionResponse — test-mode сессия из API.
type TestSessionResponse struct {
	WorkflowID    string `json:"workflow_id"`
	Interval      string `json:"interval"`
	Duration      string `json:"duration"`
	MaxExecutions int    `json:"max_executions"`
	ExecCount     int    `json:"exec_count"`
	StartedAt     string `json:"started_at"`
}

// LogEntryResponse — запись лога запуска из API.
type LogEntryResponse struct {
	NodeID   string         `json:"node_id"`
	NodeName string         `json:"node_name"`
	NodeType string         `json:"node_type"`
	Status   string         `json:"status"`
	Data     map[string]any `json:"data,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// ResultResponse — результат синхронного запуска из API.
type ResultResponse struct {
	ExecutionID string             `json:"execution_id"`
	Success     bool               `json:"success"`
	DurationMs  int64              `json:"duration_ms"`
	Log         []LogEntryResponse `json:"log"`
	Error       string             `json:"error,omitempty"`
}

// ExecutionResponse — сохранённый запуск из API.
type ExecutionResponse struct {
	ID         string             `json:"id"`
	WorkflowID string             `json:"workflow_id"`
	Status     string             `json:"status"`
	StartedAt  string             `json:"started_at"`
	FinishedAt string             `json:"finished_at,omitempty"`
	DurationMs int64              `json:"duration_ms"`
	Error      string             `json:"error,omitempty"`
	Log        []LogEntryResponse `json:"log"`
}

// --- Request types ---

// CreateWorkflowRequest — создание workflow.
type CreateWorkflowRequest struct {
	Name        string           `json:"name"`
	Nodes       []map[string]any `json:"nodes"`
	Connections []map[string]any `json:"connections"`
}

// TestModeRequest — запуск test mode.
type TestModeRequest struct {
	Interval      string `json:"interval"`
	Duration      string `json:"duration"`
	MaxExecutions int    `json:"max_executions,omitempty"`
}

// ExecuteRequest — немедленный запуск.
type ExecuteRequest struct {
	Context map[string]any `json:"context,omitempty"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Flowline API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// --- Workflows ---

// ListWorkflows возвращает все workflow.
func (c *Client) ListWorkflows() ([]WorkflowResponse, error) {
	var workflows []WorkflowResponse
	err := c.list("/api/v1/workflows", nil, &workflows)
	return workflows, err
}

// CreateWorkflow создаёт новый workflow.
func (c *Client) CreateWorkflow(req CreateWorkflowRequest) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.post("/api/v1/workflows", req, &wf)
	return &wf, err
}

// GetWorkflow возвращает workflow по ID.
func (c *Client) GetWorkflow(id string) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.get("/api/v1/workflows/"+id, &wf)
	return &wf, err
}

// DeleteWorkflow удаляет workflow.
func (c *Client) DeleteWorkflow(id string) error {
	return c.delete("/api/v1/workflows/" + id)
}

// --- Scheduler operations ---

// ActivateWorkflow активирует workflow в планировщике.
func (c *Client) ActivateWorkflow(id string) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.post("/api/v1/workflows/"+id+"/activate", nil, &wf)
	return &wf, err
}

// DeactivateWorkflow деактивирует workflow.
func (c *Client) DeactivateWorkflow(id string) error {
	return c.post("/api/v1/workflows/"+id+"/deactivate", nil, nil)
}

// ListActiveWorkflows возвращает зарегистрированные задачи планировщика.
func (c *Client) ListActiveWorkflows() ([]ActiveJobResponse, error) {
	var jobs []ActiveJobResponse
	err := c.list("/api/v1/workflows/active", nil, &jobs)
	return jobs, err
}

// StartTestMode запускает test-mode сессию workflow.
func (c *Client) StartTestMode(id string, req TestModeRequest) (*TestSessionResponse, error) {
	var session TestSessionResponse
	err := c.post("/api/v1/workflows/"+id+"/test-mode", req, &session)
	return &session, err
}

// StopTestMode останавливает test-mode сессию workflow.
func (c *Client) StopTestMode(id string) error {
	return c.delete("/api/v1/workflows/" + id + "/test-mode")
}

// ListTestSessions возвращает живые test-mode сессии.
func (c *Client) ListTestSessions() ([]TestSessionResponse, error) {
	var sessions []TestSessionResponse
	err := c.list("/api/v1/test-sessions", nil, &sessions)
	return sessions, err
}

// --- Executions ---

// ExecuteWorkflow запускает workflow немедленно.
func (c *Client) ExecuteWorkflow(id string, req ExecuteRequest) (*ResultResponse, error) {
	var result ResultResponse
	err := c.post("/api/v1/workflows/"+id+"/execute", req, &result)
	return &result, err
}

// GetExecution возвращает запуск по ID.
func (c *Client) GetExecution(id string) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.get("/api/v1/executions/"+id, &exec)
	return &exec, err
}

// ListExecutions возвращает запуски workflow.
func (c *Client) ListExecutions(workflowID string, limit int) ([]ExecutionResponse, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var executions []ExecutionResponse
	err := c.list("/api/v1/workflows/"+workflowID+"/executions", params, &executions)
	return executions, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
