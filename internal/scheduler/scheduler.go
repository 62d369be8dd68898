package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/engine"
	"github.com/shaiso/Flowline/internal/runner"
	"github.com/shaiso/Flowline/internal/telemetry"
)

// Ошибки планировщика.
var (
	// ErrNoCronTrigger — у workflow нет cron-триггера.
	ErrNoCronTrigger = errors.New("workflow has no cron trigger node")

	// ErrMultipleCronTriggers — у workflow больше одного cron-триггера.
	ErrMultipleCronTriggers = errors.New("workflow has multiple cron trigger nodes")

	// ErrInvalidCron — невалидное cron-выражение.
	ErrInvalidCron = errors.New("invalid cron expression")

	// ErrUnknownInterval — интервал или длительность вне закрытого перечисления.
	ErrUnknownInterval = errors.New("unknown test mode interval")
)

// Ключ конфигурации cron-триггера.
const configCronExpression = "cron_expression"

// WorkflowStore — доступ планировщика к хранилищу workflow.
type WorkflowStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
	ListActive(ctx context.Context) ([]domain.Workflow, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// Runner — движок выполнения, которому планировщик отдаёт запуски.
type Runner interface {
	Run(ctx context.Context, wf *domain.Workflow, initial map[string]any) (*runner.Result, error)
}

// job — зарегистрированная периодическая задача одного workflow.
// У каждой задачи собственный экземпляр cron: остановка одного workflow
// не трогает расписания остальных.
type job struct {
	workflowID uuid.UUID
	spec       string
	cron       *cron.Cron
}

// TestSession — живая test-mode сессия одного workflow.
type TestSession struct {
	WorkflowID    uuid.UUID
	Interval      string
	Duration      string
	MaxExecutions int
	StartedAt     time.Time

	execCount atomic.Int64
	cron      *cron.Cron
	timer     *time.Timer
	stopOnce  sync.Once
}

// ExecCount возвращает число выполненных тиков сессии.
func (s *TestSession) ExecCount() int {
	return int(s.execCount.Load())
}

// Scheduler управляет периодическими запусками активных workflow
// и test-mode сессиями.
//
// Явный экземпляр без глобального состояния; все карты защищены мьютексом.
type Scheduler struct {
	store  WorkflowStore
	runner Runner
	logger *slog.Logger

	mu       sync.Mutex
	jobs     map[uuid.UUID]*job
	sessions map[uuid.UUID]*TestSession
}

// Config — конфигурация Scheduler.
type Config struct {
	Store  WorkflowStore
	Runner Runner
	Logger *slog.Logger
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		store:    cfg.Store,
		runner:   cfg.Runner,
		logger:   logger,
		jobs:     make(map[uuid.UUID]*job),
		sessions: make(map[uuid.UUID]*TestSession),
	}
}

// Initialize загружает активные workflow из хранилища и регистрирует
// задачи для каждого. Так активация переживает рестарт процесса.
//
// Ошибка одного workflow не блокирует регистрацию остальных.
func (s *Scheduler) Initialize(ctx context.Context) error {
	workflows, err := s.store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active workflows: %w", err)
	}

	var registered int
	for i := range workflows {
		wf := &workflows[i]
		if err := s.registerJob(wf); err != nil {
			s.logger.Error("failed to restore scheduled workflow",
				"workflow_id", wf.ID,
				"workflow_name", wf.Name,
				"error", err,
			)
			continue
		}
		registered++
	}

	s.logger.Info("scheduler initialized", "active", len(workflows), "registered", registered)
	return nil
}

// Activate активирует workflow: проверяет cron-триггер, регистрирует
// периодическую задачу и помечает workflow активным в хранилище.
//
// Невалидное расписание — ошибка без побочных эффектов: реестр задач
// не меняется. Повторная активация заменяет задачу атомарно.
func (s *Scheduler) Activate(ctx context.Context, wf *domain.Workflow) error {
	if err := s.registerJob(wf); err != nil {
		return err
	}

	if err := s.store.SetActive(ctx, wf.ID, true); err != nil {
		return fmt.Errorf("persist active flag: %w", err)
	}

	s.logger.Info("workflow activated", "workflow_id", wf.ID, "workflow_name", wf.Name)
	return nil
}

// registerJob валидирует график и регистрирует задачу; хранилище не трогает.
func (s *Scheduler) registerJob(wf *domain.Workflow) error {
	if err := engine.Validate(wf); err != nil {
		return fmt.Errorf("validate workflow: %w", err)
	}

	cronExpr, err := findCronExpression(wf)
	if err != nil {
		return err
	}
	if err := ValidateCronExpr(cronExpr); err != nil {
		return err
	}

	workflowID := wf.ID

	// Собираем новую задачу полностью до замены старой:
	// ошибка на этом этапе оставляет реестр нетронутым.
	c := cron.New(cron.WithParser(jobParser))
	if _, err := c.AddFunc(cronExpr, func() {
		s.runScheduled(workflowID)
	}); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidCron, cronExpr, err)
	}

	s.mu.Lock()
	if old, ok := s.jobs[workflowID]; ok {
		old.cron.Stop()
	} else {
		telemetry.ActiveWorkflows.Inc()
	}
	s.jobs[workflowID] = &job{workflowID: workflowID, spec: cronExpr, cron: c}
	s.mu.Unlock()

	c.Start()
	return nil
}

// Deactivate останавливает задачу workflow и помечает его неактивным.
// Живая test-mode сессия workflow останавливается неявно.
func (s *Scheduler) Deactivate(ctx context.Context, workflowID uuid.UUID) error {
	s.mu.Lock()
	if j, ok := s.jobs[workflowID]; ok {
		j.cron.Stop()
		delete(s.jobs, workflowID)
		telemetry.ActiveWorkflows.Dec()
	}
	session := s.sessions[workflowID]
	s.mu.Unlock()

	if session != nil {
		s.stopSession(session)
	}

	if err := s.store.SetActive(ctx, workflowID, false); err != nil {
		return fmt.Errorf("persist inactive flag: %w", err)
	}

	s.logger.Info("workflow deactivated", "workflow_id", workflowID)
	return nil
}

// TestOptions — параметры test-mode сессии.
type TestOptions struct {
	// Interval — период тиков, значение закрытого перечисления (1min…1day).
	Interval string

	// Duration — срок жизни сессии, то же перечисление.
	Duration string

	// MaxExecutions — потолок тиков; 0 — только по duration.
	MaxExecutions int
}

// StartTestMode запускает test-mode сессию workflow: периодические запуски
// до исчерпания MaxExecutions либо истечения Duration — что наступит раньше.
// Существующая сессия workflow заменяется.
func (s *Scheduler) StartTestMode(ctx context.Context, wf *domain.Workflow, opts TestOptions) (*TestSession, error) {
	if err := engine.Validate(wf); err != nil {
		return nil, fmt.Errorf("validate workflow: %w", err)
	}

	spec, err := IntervalSpec(opts.Interval)
	if err != nil {
		return nil, err
	}
	lifetime, err := IntervalDuration(opts.Duration)
	if err != nil {
		return nil, err
	}

	session := &TestSession{
		WorkflowID:    wf.ID,
		Interval:      opts.Interval,
		Duration:      opts.Duration,
		MaxExecutions: opts.MaxExecutions,
		StartedAt:     time.Now(),
	}

	workflow := wf
	c := cron.New(cron.WithParser(jobParser))
	if _, err := c.AddFunc(spec, func() {
		s.testTick(session, workflow)
	}); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidCron, spec, err)
	}
	session.cron = c
	session.timer = time.AfterFunc(lifetime, func() {
		s.logger.Info("test mode duration elapsed", "workflow_id", session.WorkflowID)
		s.stopSession(session)
	})

	s.mu.Lock()
	old := s.sessions[session.WorkflowID]
	s.sessions[session.WorkflowID] = session
	s.mu.Unlock()

	if old != nil {
		s.stopSession(old)
	}

	telemetry.TestSessions.Inc()
	c.Start()

	s.logger.Info("test mode started",
		"workflow_id", wf.ID,
		"interval", opts.Interval,
		"duration", opts.Duration,
		"max_executions", opts.MaxExecutions,
	)
	return session, nil
}

// StopTestMode останавливает test-mode сессию workflow.
// Идемпотентен: без живой сессии это no-op.
func (s *Scheduler) StopTestMode(workflowID uuid.UUID) {
	s.mu.Lock()
	session := s.sessions[workflowID]
	s.mu.Unlock()

	if session != nil {
		s.stopSession(session)
	}
}

// stopSession разбирает сессию ровно один раз: останавливает cron и таймер,
// убирает сессию из реестра.
func (s *Scheduler) stopSession(session *TestSession) {
	session.stopOnce.Do(func() {
		session.cron.Stop()
		session.timer.Stop()

		s.mu.Lock()
		if s.sessions[session.WorkflowID] == session {
			delete(s.sessions, session.WorkflowID)
		}
		s.mu.Unlock()

		telemetry.TestSessions.Dec()
		s.logger.Info("test mode stopped",
			"workflow_id", session.WorkflowID,
			"executions", session.ExecCount(),
		)
	})
}

// testTick — один тик test-mode сессии.
func (s *Scheduler) testTick(session *TestSession, wf *domain.Workflow) {
	count := session.execCount.Add(1)
	if session.MaxExecutions > 0 && count > int64(session.MaxExecutions) {
		// Гонка тика с остановкой: лимит уже исчерпан, запуск не делаем.
		s.stopSession(session)
		return
	}

	telemetry.SchedulerTicks.Inc()
	s.runWorkflow(wf, map[string]any{
		engine.TriggerKey: string(domain.NodeTypeCronTrigger),
		"test_mode":       true,
	})

	if session.MaxExecutions > 0 && count >= int64(session.MaxExecutions) {
		s.stopSession(session)
	}
}

// runScheduled — один тик обычной (не test mode) задачи.
// Workflow перечитывается из хранилища, чтобы тик исполнял актуальный граф.
func (s *Scheduler) runScheduled(workflowID uuid.UUID) {
	telemetry.SchedulerTicks.Inc()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	wf, err := s.store.GetByID(ctx, workflowID)
	if err != nil {
		s.logger.Error("scheduled tick: failed to load workflow",
			"workflow_id", workflowID,
			"error", err,
		)
		return
	}

	result, err := s.runner.Run(ctx, wf, map[string]any{
		engine.TriggerKey: string(domain.NodeTypeCronTrigger),
	})
	if err != nil {
		s.logger.Error("scheduled run failed to start",
			"workflow_id", workflowID,
			"error", err,
		)
		return
	}
	if !result.Success {
		// Упавший запуск не деактивирует workflow: следующая попытка —
		// на следующем естественном тике.
		s.logger.Warn("scheduled run finished with error",
			"workflow_id", workflowID,
			"execution_id", result.ExecutionID,
			"error", result.Err,
		)
	}
}

// runWorkflow выполняет workflow с заданным начальным контекстом (test mode).
func (s *Scheduler) runWorkflow(wf *domain.Workflow, initial map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := s.runner.Run(ctx, wf, initial)
	if err != nil {
		s.logger.Error("test run failed to start", "workflow_id", wf.ID, "error", err)
		return
	}
	if !result.Success {
		s.logger.Warn("test run finished with error",
			"workflow_id", wf.ID,
			"execution_id", result.ExecutionID,
			"error", result.Err,
		)
	}
}

// ExecuteNow выполняет workflow немедленно (ручной запуск или webhook),
// синхронно возвращая результат движка.
func (s *Scheduler) ExecuteNow(ctx context.Context, wf *domain.Workflow, initial map[string]any) (*runner.Result, error) {
	return s.runner.Run(ctx, wf, initial)
}

// ActiveJob — снимок одной зарегистрированной задачи.
type ActiveJob struct {
	WorkflowID uuid.UUID `json:"workflow_id"`
	CronExpr   string    `json:"cron_expr"`
}

// ActiveWorkflows возвращает снимок зарегистрированных задач.
func (s *Scheduler) ActiveWorkflows() []ActiveJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]ActiveJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, ActiveJob{WorkflowID: j.workflowID, CronExpr: j.spec})
	}
	return jobs
}

// SessionInfo — снимок одной test-mode сессии.
type SessionInfo struct {
	WorkflowID    uuid.UUID `json:"workflow_id"`
	Interval      string    `json:"interval"`
	Duration      string    `json:"duration"`
	MaxExecutions int       `json:"max_executions"`
	ExecCount     int       `json:"exec_count"`
	StartedAt     time.Time `json:"started_at"`
}

// TestSessions возвращает снимок живых test-mode сессий.
func (s *Scheduler) TestSessions() []SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, SessionInfo{
			WorkflowID:    sess.WorkflowID,
			Interval:      sess.Interval,
			Duration:      sess.Duration,
			MaxExecutions: sess.MaxExecutions,
			ExecCount:     sess.ExecCount(),
			StartedAt:     sess.StartedAt,
		})
	}
	return sessions
}

// Shutdown останавливает все задачи и сессии.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	jobs := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.jobs = make(map[uuid.UUID]*job)
	sessions := make([]*TestSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, j := range jobs {
		j.cron.Stop()
		telemetry.ActiveWorkflows.Dec()
	}
	for _, sess := range sessions {
		s.stopSession(sess)
	}

	s.logger.Info("scheduler stopped", "jobs", len(jobs), "sessions", len(sessions))
}

// findCronExpression возвращает cron-выражение единственного cron-триггера.
func findCronExpression(wf *domain.Workflow) (string, error) {
	var exprs []string
	for i := range wf.Nodes {
		node := &wf.Nodes[i]
		if node.Type != domain.NodeTypeCronTrigger {
			continue
		}
		expr, _ := node.Config[configCronExpression].(string)
		exprs = append(exprs, expr)
	}

	switch len(exprs) {
	case 0:
		return "", fmt.Errorf("workflow %s: %w", wf.ID, ErrNoCronTrigger)
	case 1:
		if exprs[0] == "" {
			return "", fmt.Errorf("workflow %s: %w: missing %s", wf.ID, ErrInvalidCron, configCronExpression)
		}
		return exprs[0], nil
	default:
		return "", fmt.Errorf("workflow %s: %w", wf.ID, ErrMultipleCronTriggers)
	}
}
