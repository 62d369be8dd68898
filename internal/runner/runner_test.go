package runner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/engine"
	"github.com/shaiso/Flowline/internal/nodes"
)

// memStore — in-memory ExecutionStore для тестов.
type memStore struct {
	mu      sync.Mutex
	created int
	updated int
	last    *domain.Execution
}

func (s *memStore) Create(ctx context.Context, exec *domain.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created++
	s.last = exec
	return nil
}

func (s *memStore) Update(ctx context.Context, exec *domain.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated++
	s.last = exec
	return nil
}

// stubHandler — тестовый обработчик с настраиваемым поведением.
type stubHandler struct {
	fragment map[string]any
	err      error
	seen     []engine.Context
}

func (h *stubHandler) Execute(ctx context.Context, req *nodes.Request) (*nodes.Response, error) {
	h.seen = append(h.seen, req.Context)
	if h.err != nil {
		return nil, h.err
	}
	return nodes.ContinueWith(h.fragment), nil
}

const stubType = domain.NodeType("stub")

func linearWorkflow(ids ...string) *domain.Workflow {
	wf := &domain.Workflow{ID: uuid.New(), Name: "linear"}
	for _, id := range ids {
		wf.Nodes = append(wf.Nodes, domain.NodeInstance{ID: id, Type: stubType, Name: id})
	}
	for i := 0; i+1 < len(ids); i++ {
		wf.Connections = append(wf.Connections, domain.Connection{
			ID:           "c" + ids[i],
			Source:       ids[i],
			SourceHandle: domain.HandleMain,
			Target:       ids[i+1],
		})
	}
	return wf
}

func TestRun_LinearChain(t *testing.T) {
	handler := &stubHandler{fragment: map[string]any{"step": "done"}}
	registry := nodes.NewRegistry()
	registry.Register(stubType, handler)

	store := &memStore{}
	eng := NewEngine(nil, registry, store, nil)

	wf := linearWorkflow("a", "b", "c")
	result, err := eng.Run(context.Background(), wf, map[string]any{"input": 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !result.Success {
		t.Fatalf("run failed: %v", result.Err)
	}

	// Все три узла посещены в топологическом порядке
	if len(result.Log) != 3 {
		t.Fatalf("log length = %d", len(result.Log))
	}
	for i, id := range []string{"a", "b", "c"} {
		if result.Log[i].NodeID != id {
			t.Errorf("log[%d].NodeID = %q, want %q", i, result.Log[i].NodeID, id)
		}
		if result.Log[i].Status != domain.LogStatusSuccess {
			t.Errorf("log[%d].Status = %q", i, result.Log[i].Status)
		}
	}

	// Контекст накапливается вниз по цепочке
	if len(handler.seen) != 3 {
		t.Fatalf("handler invoked %d times", len(handler.seen))
	}
	if handler.seen[0]["input"] != 1 {
		t.Error("first node should see the initial context")
	}
	if handler.seen[2]["step"] != "done" {
		t.Error("third node should see merged upstream fragments")
	}

	// Создание записи + инкрементальные флаши
	if store.created != 1 {
		t.Errorf("store.created = %d", store.created)
	}
	if store.updated < 3 {
		t.Errorf("store.updated = %d, want >= 3", store.updated)
	}
	if store.last.Status != domain.ExecutionStatusSuccess {
		t.Errorf("final status = %q", store.last.Status)
	}
}

func TestRun_IfSingleBranch(t *testing.T) {
	taken := &stubHandler{fragment: map[string]any{}}
	skipped := &stubHandler{fragment: map[string]any{}}

	registry := nodes.NewRegistry()
	registry.Register(domain.NodeTypeIf, &nodes.IfHandler{})
	registry.Register(domain.NodeType("taken"), taken)
	registry.Register(domain.NodeType("skipped"), skipped)

	wf := &domain.Workflow{
		ID:   uuid.New(),
		Name: "branching",
		Nodes: []domain.NodeInstance{
			{ID: "cond", Type: domain.NodeTypeIf, Config: map[string]any{"condition": "x > 0"}},
			{ID: "yes", Type: domain.NodeType("taken")},
			{ID: "no", Type: domain.NodeType("skipped")},
		},
		Connections: []domain.Connection{
			{ID: "c1", Source: "cond", SourceHandle: domain.HandleTrue, Target: "yes"},
			{ID: "c2", Source: "cond", SourceHandle: domain.HandleFalse, Target: "no"},
		},
	}

	eng := NewEngine(nil, registry, nil, nil)
	result, err := eng.Run(context.Background(), wf, map[string]any{"x": 5})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Success {
		t.Fatalf("run failed: %v", result.Err)
	}

	// Из одного вычисления IF посещается ровно одна ветка
	if len(taken.seen) != 1 {
		t.Errorf("true branch visited %d times", len(taken.seen))
	}
	if len(skipped.seen) != 0 {
		t.Errorf("false branch visited %d times", len(skipped.seen))
	}
	if len(result.Log) != 2 {
		t.Errorf("log length = %d", len(result.Log))
	}
}

func TestRun_FailFast(t *testing.T) {
	ok := &stubHandler{fragment: map[string]any{}}
	failing := &stubHandler{err: nodes.ErrExternalCall}
	unreachable := &stubHandler{fragment: map[string]any{}}

	registry := nodes.NewRegistry()
	registry.Register(domain.NodeType("ok"), ok)
	registry.Register(domain.NodeType("failing"), failing)
	registry.Register(domain.NodeType("unreachable"), unreachable)

	wf := &domain.Workflow{
		ID:   uuid.New(),
		Name: "failing",
		Nodes: []domain.NodeInstance{
			{ID: "a", Type: domain.NodeType("ok")},
			{ID: "b", Type: domain.NodeType("failing")},
			{ID: "c", Type: domain.NodeType("unreachable")},
		},
		Connections: []domain.Connection{
			{ID: "c1", Source: "a", SourceHandle: domain.HandleMain, Target: "b"},
			{ID: "c2", Source: "b", SourceHandle: domain.HandleMain, Target: "c"},
		},
	}

	store := &memStore{}
	eng := NewEngine(nil, registry, store, nil)

	result, err := eng.Run(context.Background(), wf, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Success {
		t.Fatal("run should fail")
	}
	if !errors.Is(result.Err, nodes.ErrExternalCall) {
		t.Errorf("result.Err = %v", result.Err)
	}

	// Ровно две записи: успех первого узла и ошибка второго
	if len(result.Log) != 2 {
		t.Fatalf("log length = %d", len(result.Log))
	}
	if result.Log[0].Status != domain.LogStatusSuccess || result.Log[0].NodeID != "a" {
		t.Errorf("log[0] = %+v", result.Log[0])
	}
	if result.Log[1].Status != domain.LogStatusError || result.Log[1].NodeID != "b" {
		t.Errorf("log[1] = %+v", result.Log[1])
	}
	if result.Log[1].Error == "" {
		t.Error("error entry should carry the message")
	}

	// Третий узел не посещался
	if len(unreachable.seen) != 0 {
		t.Error("node after the failure must not execute")
	}
	if store.last.Status != domain.ExecutionStatusError {
		t.Errorf("final status = %q", store.last.Status)
	}
}

// snapshotStore записывает статусы лога на каждом Update.
type snapshotStore struct {
	memStore
	snapshots [][]domain.LogEntryStatus
}

func (s *snapshotStore) Update(ctx context.Context, exec *domain.Execution) error {
	statuses := make([]domain.LogEntryStatus, len(exec.Log))
	for i, entry := range exec.Log {
		statuses[i] = entry.Status
	}
	s.snapshots = append(s.snapshots, statuses)
	return s.memStore.Update(ctx, exec)
}

func TestRun_PendingEntriesVisible(t *testing.T) {
	registry := nodes.NewRegistry()
	registry.Register(stubType, &stubHandler{fragment: map[string]any{}})

	store := &snapshotStore{}
	eng := NewEngine(nil, registry, store, nil)

	result, err := eng.Run(context.Background(), linearWorkflow("a", "b"), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// До запуска узла в персистентный лог уходит pending-запись
	var sawPending bool
	for _, snapshot := range store.snapshots {
		for _, status := range snapshot {
			if status == domain.LogStatusPending {
				sawPending = true
			}
		}
	}
	if !sawPending {
		t.Error("no pending entry was ever persisted mid-run")
	}

	// Итоговый лог pending-записей не содержит
	for i, entry := range result.Log {
		if entry.Status != domain.LogStatusSuccess {
			t.Errorf("log[%d].Status = %q", i, entry.Status)
		}
	}
}

func TestRun_NoStartNode(t *testing.T) {
	registry := nodes.NewRegistry()
	registry.Register(stubType, &stubHandler{fragment: map[string]any{}})

	// Цикл: у каждого узла есть входящая связь
	wf := &domain.Workflow{
		ID:   uuid.New(),
		Name: "cycle",
		Nodes: []domain.NodeInstance{
			{ID: "a", Type: stubType},
			{ID: "b", Type: stubType},
		},
		Connections: []domain.Connection{
			{ID: "c1", Source: "a", SourceHandle: domain.HandleMain, Target: "b"},
			{ID: "c2", Source: "b", SourceHandle: domain.HandleMain, Target: "a"},
		},
	}

	eng := NewEngine(nil, registry, nil, nil)
	_, err := eng.Run(context.Background(), wf, nil)
	if !errors.Is(err, ErrNoStartNode) {
		t.Errorf("expected ErrNoStartNode, got %v", err)
	}
}

func TestRun_InvalidGraph(t *testing.T) {
	eng := NewEngine(nil, nodes.NewRegistry(), nil, nil)

	wf := &domain.Workflow{ID: uuid.New(), Name: "empty"}
	if _, err := eng.Run(context.Background(), wf, nil); !errors.Is(err, engine.ErrEmptyGraph) {
		t.Errorf("expected ErrEmptyGraph, got %v", err)
	}
}

func TestRun_SiblingBranchIsolation(t *testing.T) {
	left := &stubHandler{fragment: map[string]any{"left_done": true}}
	right := &stubHandler{fragment: map[string]any{}}
	root := &stubHandler{fragment: map[string]any{}}

	registry := nodes.NewRegistry()
	registry.Register(domain.NodeType("root"), root)
	registry.Register(domain.NodeType("left"), left)
	registry.Register(domain.NodeType("right"), right)

	wf := &domain.Workflow{
		ID:   uuid.New(),
		Name: "fanout",
		Nodes: []domain.NodeInstance{
			{ID: "r", Type: domain.NodeType("root")},
			{ID: "l", Type: domain.NodeType("left")},
			{ID: "x", Type: domain.NodeType("right")},
		},
		Connections: []domain.Connection{
			{ID: "c1", Source: "r", SourceHandle: domain.HandleMain, Target: "l"},
			{ID: "c2", Source: "r", SourceHandle: domain.HandleMain, Target: "x"},
		},
	}

	eng := NewEngine(nil, registry, nil, nil)
	result, err := eng.Run(context.Background(), wf, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Success {
		t.Fatalf("run failed: %v", result.Err)
	}

	// Ветки исполняются в порядке объявления связей
	if len(result.Log) != 3 || result.Log[1].NodeID != "l" || result.Log[2].NodeID != "x" {
		t.Fatalf("unexpected log order: %+v", result.Log)
	}

	// Сестринская ветка не видит фрагментов соседки
	if len(right.seen) != 1 {
		t.Fatalf("right branch visited %d times", len(right.seen))
	}
	if _, leaked := right.seen[0]["left_done"]; leaked {
		t.Error("sibling branch context leaked across the fan-out")
	}
}
