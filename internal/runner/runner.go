package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/engine"
	"github.com/shaiso/Flowline/internal/nodes"
	"github.com/shaiso/Flowline/internal/secrets"
	"github.com/shaiso/Flowline/internal/telemetry"
)

// Ошибки движка выполнения.
var (
	// ErrNoStartNode — в графе не нашлось ни одного стартового узла.
	ErrNoStartNode = errors.New("workflow has no start node")

	// ErrVisitLimit — превышен лимит посещений узлов за один запуск.
	// Срабатывает на циклах в графе и ошибках конфигурации batch-узлов.
	ErrVisitLimit = errors.New("node visit limit exceeded")
)

// maxNodeVisits — предохранитель от бесконечного обхода.
const maxNodeVisits = 10000

// ExecutionStore — персистентность запусков.
//
// Запись инкрементальная: Create при старте, Update после каждого узла
// и при завершении, чтобы упавший процесс оставлял восстановимый след.
type ExecutionStore interface {
	Create(ctx context.Context, exec *domain.Execution) error
	Update(ctx context.Context, exec *domain.Execution) error
}

// Engine — движок выполнения workflow.
//
// Выполняет один запуск синхронно: DFS-обход графа от стартовых узлов,
// fail-fast на первой ошибке узла. Stateless между запусками,
// безопасен для конкурентных Run.
type Engine struct {
	codec    *secrets.Codec
	registry *nodes.Registry
	store    ExecutionStore
	logger   *slog.Logger
}

// NewEngine создаёт движок выполнения.
// store может быть nil — тогда запуски не персистятся (тесты, dry-run).
func NewEngine(codec *secrets.Codec, registry *nodes.Registry, store ExecutionStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		codec:    codec,
		registry: registry,
		store:    store,
		logger:   logger,
	}
}

// Result — итог одного запуска workflow.
type Result struct {
	// ExecutionID — идентификатор запуска.
	ExecutionID uuid.UUID

	// Success — true, если все посещённые узлы выполнены успешно.
	Success bool

	// Duration — продолжительность запуска.
	Duration time.Duration

	// Log — упорядоченный лог посещённых узлов.
	Log []domain.LogEntry

	// Err — ошибка узла, прервавшая запуск. Nil при успехе.
	Err error
}

// walk — состояние одного запуска.
type walk struct {
	engine *Engine
	wf     *domain.Workflow
	exec   *domain.Execution
	logger *slog.Logger
	visits int
}

// Run выполняет один запуск workflow.
//
// Ошибка возвращается только при сбое до начала обхода (невалидный граф,
// нет стартовых узлов). Падение узла — это завершившийся запуск со
// статусом ERROR: Result.Success=false, Result.Err несёт причину.
func (e *Engine) Run(ctx context.Context, wf *domain.Workflow, initial map[string]any) (*Result, error) {
	if err := engine.Validate(wf); err != nil {
		return nil, fmt.Errorf("validate workflow: %w", err)
	}

	execCtx := engine.NewContext(initial)

	starts := engine.StartNodes(wf, execCtx)
	if len(starts) == 0 {
		return nil, fmt.Errorf("workflow %s: %w", wf.ID, ErrNoStartNode)
	}

	exec := &domain.Execution{
		ID:         uuid.New(),
		WorkflowID: wf.ID,
		Status:     domain.ExecutionStatusRunning,
		StartedAt:  time.Now(),
	}

	logger := telemetry.WithExecutionID(
		telemetry.WithWorkflowID(e.logger, wf.ID.String()),
		exec.ID.String(),
	)
	logger.Info("execution started", "workflow_name", wf.Name, "start_nodes", len(starts))

	if e.store != nil {
		if err := e.store.Create(ctx, exec); err != nil {
			return nil, fmt.Errorf("create execution record: %w", err)
		}
	}

	w := &walk{engine: e, wf: wf, exec: exec, logger: logger}

	var runErr error
	for _, start := range starts {
		if runErr = w.visit(ctx, start, execCtx.Clone()); runErr != nil {
			break
		}
	}

	if runErr != nil {
		exec.MarkError(runErr.Error())
		logger.Error("execution failed", "error", runErr)
	} else {
		exec.MarkSuccess()
		logger.Info("execution finished", "duration", exec.Duration(), "nodes_visited", len(exec.Log))
	}

	telemetry.ExecutionsTotal.WithLabelValues(string(exec.Status)).Inc()
	telemetry.ExecutionDuration.Observe(exec.Duration().Seconds())

	w.flush(ctx)

	return &Result{
		ExecutionID: exec.ID,
		Success:     runErr == nil,
		Duration:    exec.Duration(),
		Log:         exec.Log,
		Err:         runErr,
	}, nil
}

// visit выполняет один узел и, при сигнале continue, обходит его
// исходящие связи "main". Fail-fast: первая ошибка останавливает обход.
func (w *walk) visit(ctx context.Context, node *domain.NodeInstance, execCtx engine.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.visits++
	if w.visits > maxNodeVisits {
		return fmt.Errorf("workflow %s: %w", w.wf.ID, ErrVisitLimit)
	}

	nodeLogger := telemetry.WithNodeID(w.logger, node.ID)
	nodeLogger.Debug("executing node", "node_type", node.Type, "node_name", node.Name)

	// Узел получает runtime-копию с расшифрованными полями;
	// персистентный граф остаётся зашифрованным.
	runtimeNode := *node
	if w.engine.codec != nil {
		runtimeNode.Config = w.engine.codec.DecryptNodeConfig(node)
	}

	req := &nodes.Request{
		Node:    &runtimeNode,
		Context: execCtx,
		Logger:  nodeLogger,
		Downstream: func(ctx context.Context, handle string, downCtx engine.Context) error {
			return w.walkHandle(ctx, node.ID, handle, downCtx)
		},
	}

	// Pending-запись пишется до запуска узла: инкрементальный флаш
	// делает зависший узел видимым в персистентном логе.
	logIdx := w.exec.StartLog(domain.LogEntry{
		NodeID:    node.ID,
		NodeName:  node.Name,
		NodeType:  node.Type,
		Timestamp: time.Now(),
	})
	w.flush(ctx)

	handler := w.engine.registry.Get(node.Type)
	resp, err := handler.Execute(ctx, req)
	if err != nil {
		w.exec.FinishLog(logIdx, domain.LogStatusError, nil, err.Error())
		telemetry.NodesExecuted.WithLabelValues(string(node.Type), "error").Inc()
		w.flush(ctx)
		return fmt.Errorf("node %s (%s): %w", node.ID, node.Type, err)
	}

	w.exec.FinishLog(logIdx, domain.LogStatusSuccess, resp.Fragment, "")
	telemetry.NodesExecuted.WithLabelValues(string(node.Type), "success").Inc()
	w.flush(ctx)

	if resp.Signal == nodes.SignalHandledDownstream {
		return nil
	}

	return w.walkHandle(ctx, node.ID, domain.HandleMain, execCtx.Merge(resp.Fragment))
}

// walkHandle обходит исходящие связи узла с заданным handle в порядке
// объявления. Каждая ветка получает свою копию контекста.
func (w *walk) walkHandle(ctx context.Context, nodeID, handle string, execCtx engine.Context) error {
	for _, conn := range w.wf.OutgoingConnections(nodeID, handle) {
		target := w.wf.NodeByID(conn.Target)
		if target == nil {
			// Валидация графа исключает висячие связи; сюда попадать нельзя.
			return fmt.Errorf("connection %s targets unknown node %s", conn.ID, conn.Target)
		}
		if err := w.visit(ctx, target, execCtx.Clone()); err != nil {
			return err
		}
	}
	return nil
}

// flush записывает текущее состояние execution. Ошибка записи логируется,
// но не прерывает выполнение workflow.
func (w *walk) flush(ctx context.Context) {
	if w.engine.store == nil {
		return
	}
	if err := w.engine.store.Update(ctx, w.exec); err != nil {
		w.logger.Error("failed to persist execution state", "error", err)
	}
}
