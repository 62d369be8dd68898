package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/runner"
)

// fakeStore — in-memory WorkflowStore для тестов.
type fakeStore struct {
	mu        sync.Mutex
	workflows map[uuid.UUID]*domain.Workflow
	active    map[uuid.UUID]bool
	setCalls  int
}

func newFakeStore(workflows ...*domain.Workflow) *fakeStore {
	s := &fakeStore{
		workflows: make(map[uuid.UUID]*domain.Workflow),
		active:    make(map[uuid.UUID]bool),
	}
	for _, wf := range workflows {
		s.workflows[wf.ID] = wf
	}
	return s
}

func (s *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.workflows[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return wf, nil
}

func (s *fakeStore) ListActive(ctx context.Context) ([]domain.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Workflow
	for id, wf := range s.workflows {
		if s.active[id] {
			out = append(out, *wf)
		}
	}
	return out, nil
}

func (s *fakeStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCalls++
	s.active[id] = active
	return nil
}

// fakeRunner считает запуски и всегда отвечает успехом.
type fakeRunner struct {
	mu   sync.Mutex
	runs int
}

func (r *fakeRunner) Run(ctx context.Context, wf *domain.Workflow, initial map[string]any) (*runner.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
	return &runner.Result{ExecutionID: uuid.New(), Success: true}, nil
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func cronWorkflow(expr string) *domain.Workflow {
	return &domain.Workflow{
		ID:   uuid.New(),
		Name: "cron wf",
		Nodes: []domain.NodeInstance{
			{
				ID:     "trigger",
				Type:   domain.NodeTypeCronTrigger,
				Name:   "schedule",
				Config: map[string]any{configCronExpression: expr},
			},
		},
	}
}

func newTestScheduler(store *fakeStore, r *fakeRunner) *Scheduler {
	return New(Config{Store: store, Runner: r})
}

func TestActivateDeactivate(t *testing.T) {
	wf := cronWorkflow("*/5 * * * *")
	store := newFakeStore(wf)
	s := newTestScheduler(store, &fakeRunner{})
	defer s.Shutdown()

	if err := s.Activate(context.Background(), wf); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	jobs := s.ActiveWorkflows()
	if len(jobs) != 1 {
		t.Fatalf("ActiveWorkflows() = %d jobs", len(jobs))
	}
	if jobs[0].WorkflowID != wf.ID || jobs[0].CronExpr != "*/5 * * * *" {
		t.Errorf("unexpected job snapshot: %+v", jobs[0])
	}
	if !store.active[wf.ID] {
		t.Error("active flag not persisted")
	}

	// Повторная активация заменяет задачу без дублей
	if err := s.Activate(context.Background(), wf); err != nil {
		t.Fatalf("re-Activate: %v", err)
	}
	if len(s.ActiveWorkflows()) != 1 {
		t.Error("re-activation must not duplicate the job")
	}

	if err := s.Deactivate(context.Background(), wf.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if len(s.ActiveWorkflows()) != 0 {
		t.Error("job survived deactivation")
	}
	if store.active[wf.ID] {
		t.Error("inactive flag not persisted")
	}
}

func TestActivate_InvalidCron(t *testing.T) {
	cases := []struct {
		name string
		expr string
	}{
		{"garbage", "not-a-cron"},
		{"six fields", "0 */5 * * * *"},
		{"descriptor", "@every 1m"},
		{"empty", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wf := cronWorkflow(tc.expr)
			store := newFakeStore(wf)
			s := newTestScheduler(store, &fakeRunner{})
			defer s.Shutdown()

			err := s.Activate(context.Background(), wf)
			if !errors.Is(err, ErrInvalidCron) {
				t.Fatalf("expected ErrInvalidCron, got %v", err)
			}

			// Ошибка не оставляет побочных эффектов
			if len(s.ActiveWorkflows()) != 0 {
				t.Error("invalid schedule must not register a job")
			}
			if store.setCalls != 0 {
				t.Error("invalid schedule must not touch the store")
			}
		})
	}
}

func TestActivate_TriggerErrors(t *testing.T) {
	s := newTestScheduler(newFakeStore(), &fakeRunner{})
	defer s.Shutdown()

	noTrigger := &domain.Workflow{
		ID:    uuid.New(),
		Name:  "no trigger",
		Nodes: []domain.NodeInstance{{ID: "n1", Type: domain.NodeTypeHTTP}},
	}
	if err := s.Activate(context.Background(), noTrigger); !errors.Is(err, ErrNoCronTrigger) {
		t.Errorf("expected ErrNoCronTrigger, got %v", err)
	}

	two := &domain.Workflow{
		ID:   uuid.New(),
		Name: "two triggers",
		Nodes: []domain.NodeInstance{
			{ID: "t1", Type: domain.NodeTypeCronTrigger, Config: map[string]any{configCronExpression: "* * * * *"}},
			{ID: "t2", Type: domain.NodeTypeCronTrigger, Config: map[string]any{configCronExpression: "* * * * *"}},
		},
	}
	if err := s.Activate(context.Background(), two); !errors.Is(err, ErrMultipleCronTriggers) {
		t.Errorf("expected ErrMultipleCronTriggers, got %v", err)
	}
}

func TestIntervalEnum(t *testing.T) {
	specs := map[string]string{
		"1min":  "@every 1m",
		"5min":  "@every 5m",
		"10min": "@every 10m",
		"15min": "@every 15m",
		"30min": "@every 30m",
		"1hour": "@every 1h",
		"1day":  "@every 24h",
	}
	for interval, want := range specs {
		got, err := IntervalSpec(interval)
		if err != nil {
			t.Errorf("IntervalSpec(%q): %v", interval, err)
			continue
		}
		if got != want {
			t.Errorf("IntervalSpec(%q) = %q, want %q", interval, got, want)
		}
		if _, err := IntervalDuration(interval); err != nil {
			t.Errorf("IntervalDuration(%q): %v", interval, err)
		}
	}

	if _, err := IntervalSpec("2min"); !errors.Is(err, ErrUnknownInterval) {
		t.Errorf("expected ErrUnknownInterval, got %v", err)
	}
	if _, err := IntervalDuration(""); !errors.Is(err, ErrUnknownInterval) {
		t.Errorf("expected ErrUnknownInterval, got %v", err)
	}
}

func TestStartTestMode_QuarterHourDuration(t *testing.T) {
	wf := cronWorkflow("* * * * *")
	s := newTestScheduler(newFakeStore(wf), &fakeRunner{})
	defer s.Shutdown()

	session, err := s.StartTestMode(context.Background(), wf, TestOptions{
		Interval:      "5min",
		Duration:      "15min",
		MaxExecutions: 2,
	})
	if err != nil {
		t.Fatalf("StartTestMode: %v", err)
	}
	if session.Interval != "5min" || session.Duration != "15min" || session.MaxExecutions != 2 {
		t.Errorf("unexpected session: %+v", session)
	}

	s.StopTestMode(wf.ID)
}

func TestStartTestMode_UnknownInterval(t *testing.T) {
	wf := cronWorkflow("* * * * *")
	s := newTestScheduler(newFakeStore(wf), &fakeRunner{})
	defer s.Shutdown()

	if _, err := s.StartTestMode(context.Background(), wf, TestOptions{Interval: "7min", Duration: "30min"}); !errors.Is(err, ErrUnknownInterval) {
		t.Fatalf("expected ErrUnknownInterval, got %v", err)
	}
	if len(s.TestSessions()) != 0 {
		t.Error("failed start must not register a session")
	}
}

func TestStartStopTestMode(t *testing.T) {
	wf := cronWorkflow("* * * * *")
	s := newTestScheduler(newFakeStore(wf), &fakeRunner{})
	defer s.Shutdown()

	session, err := s.StartTestMode(context.Background(), wf, TestOptions{
		Interval:      "1hour",
		Duration:      "1day",
		MaxExecutions: 3,
	})
	if err != nil {
		t.Fatalf("StartTestMode: %v", err)
	}

	sessions := s.TestSessions()
	if len(sessions) != 1 {
		t.Fatalf("TestSessions() = %d sessions", len(sessions))
	}
	if sessions[0].WorkflowID != wf.ID || sessions[0].Interval != "1hour" || sessions[0].MaxExecutions != 3 {
		t.Errorf("unexpected session snapshot: %+v", sessions[0])
	}

	// Повторный старт заменяет сессию
	replacement, err := s.StartTestMode(context.Background(), wf, TestOptions{Interval: "1min", Duration: "30min"})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	sessions = s.TestSessions()
	if len(sessions) != 1 || sessions[0].Interval != "1min" {
		t.Fatalf("restart must replace the session, got %+v", sessions)
	}

	s.StopTestMode(wf.ID)
	if len(s.TestSessions()) != 0 {
		t.Error("session survived StopTestMode")
	}

	// Повторная остановка — no-op
	s.StopTestMode(wf.ID)
	s.stopSession(session)
	s.stopSession(replacement)
}

func TestDeactivate_StopsTestSession(t *testing.T) {
	wf := cronWorkflow("* * * * *")
	store := newFakeStore(wf)
	s := newTestScheduler(store, &fakeRunner{})
	defer s.Shutdown()

	if err := s.Activate(context.Background(), wf); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if _, err := s.StartTestMode(context.Background(), wf, TestOptions{Interval: "1hour", Duration: "1day"}); err != nil {
		t.Fatalf("StartTestMode: %v", err)
	}

	if err := s.Deactivate(context.Background(), wf.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if len(s.TestSessions()) != 0 {
		t.Error("deactivation must stop the live test session")
	}
}

func TestTestTick_MaxExecutions(t *testing.T) {
	wf := cronWorkflow("* * * * *")
	r := &fakeRunner{}
	s := newTestScheduler(newFakeStore(wf), r)
	defer s.Shutdown()

	session, err := s.StartTestMode(context.Background(), wf, TestOptions{
		Interval:      "1hour",
		Duration:      "1day",
		MaxExecutions: 2,
	})
	if err != nil {
		t.Fatalf("StartTestMode: %v", err)
	}

	// Тики вызываем напрямую: интервал 1hour гарантирует,
	// что cron не успеет сработать сам.
	s.testTick(session, wf)
	if r.count() != 1 {
		t.Fatalf("after tick 1: runs = %d", r.count())
	}

	s.testTick(session, wf)
	if r.count() != 2 {
		t.Fatalf("after tick 2: runs = %d", r.count())
	}
	if len(s.TestSessions()) != 0 {
		t.Error("session must stop after reaching max executions")
	}

	// Тик после остановки не запускает workflow
	s.testTick(session, wf)
	if r.count() != 2 {
		t.Errorf("tick after stop ran the workflow: runs = %d", r.count())
	}
	if session.ExecCount() != 3 {
		t.Errorf("ExecCount() = %d", session.ExecCount())
	}
}

func TestInitialize(t *testing.T) {
	good := cronWorkflow("*/10 * * * *")
	bad := cronWorkflow("not-a-cron")

	store := newFakeStore(good, bad)
	store.active[good.ID] = true
	store.active[bad.ID] = true

	s := newTestScheduler(store, &fakeRunner{})
	defer s.Shutdown()

	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	// Невалидный workflow пропущен, валидный зарегистрирован
	jobs := s.ActiveWorkflows()
	if len(jobs) != 1 {
		t.Fatalf("ActiveWorkflows() = %d jobs", len(jobs))
	}
	if jobs[0].WorkflowID != good.ID {
		t.Errorf("registered job = %+v, want workflow %s", jobs[0], good.ID)
	}
}
