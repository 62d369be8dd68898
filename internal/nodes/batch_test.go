package nodes

import (
	"context"
	"errors"
	"testing"

	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/engine"
)

func TestBatchHandler_SplitsItems(t *testing.T) {
	items := make([]any, 7)
	for i := range items {
		items[i] = i
	}

	rec := &downstreamRecorder{}
	req := nodeRequest(domain.NodeTypeBatch,
		map[string]any{"batch_size": 3},
		engine.NewContext(map[string]any{"items": items}),
		rec,
	)

	resp, err := (&BatchHandler{}).Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Signal != SignalHandledDownstream {
		t.Error("batch node must handle downstream itself")
	}

	// ceil(7/3) = 3 пачки
	if len(rec.calls) != 3 {
		t.Fatalf("expected 3 downstream calls, got %d", len(rec.calls))
	}

	sizes := []int{3, 3, 1}
	for i, call := range rec.calls {
		if call.handle != domain.HandleMain {
			t.Errorf("call %d: handle = %q", i, call.handle)
		}

		batch, ok := call.ctx["items"].([]any)
		if !ok || len(batch) != sizes[i] {
			t.Errorf("call %d: items = %v, want len %d", i, call.ctx["items"], sizes[i])
		}

		loop, ok := call.ctx["loop"].(map[string]any)
		if !ok {
			t.Fatalf("call %d: loop missing", i)
		}
		// loop.index считается с единицы
		if loop["index"] != i+1 {
			t.Errorf("call %d: loop.index = %v", i, loop["index"])
		}
		if loop["total"] != 3 {
			t.Errorf("call %d: loop.total = %v", i, loop["total"])
		}
	}

	if resp.Fragment["batches"] != 3 || resp.Fragment["total_items"] != 7 {
		t.Errorf("fragment = %v", resp.Fragment)
	}
}

func TestBatchHandler_ExactDivision(t *testing.T) {
	rec := &downstreamRecorder{}
	req := nodeRequest(domain.NodeTypeBatch,
		map[string]any{"batch_size": 2},
		engine.NewContext(map[string]any{"items": []any{1, 2, 3, 4}}),
		rec,
	)

	if _, err := (&BatchHandler{}).Execute(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.calls) != 2 {
		t.Errorf("expected 2 downstream calls, got %d", len(rec.calls))
	}
}

func TestBatchHandler_NoItems(t *testing.T) {
	rec := &downstreamRecorder{}
	req := nodeRequest(domain.NodeTypeBatch,
		nil,
		engine.NewContext(map[string]any{"value": 42}),
		rec,
	)

	if _, err := (&BatchHandler{}).Execute(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Без массива items весь контекст — единственный элемент
	if len(rec.calls) != 1 {
		t.Fatalf("expected 1 downstream call, got %d", len(rec.calls))
	}
	batch, ok := rec.calls[0].ctx["items"].([]any)
	if !ok || len(batch) != 1 {
		t.Fatalf("items = %v", rec.calls[0].ctx["items"])
	}
	single, ok := batch[0].(map[string]any)
	if !ok || single["value"] != 42 {
		t.Errorf("single item = %v", batch[0])
	}
}

func TestBatchHandler_DefaultSize(t *testing.T) {
	items := make([]any, 25)
	for i := range items {
		items[i] = i
	}

	rec := &downstreamRecorder{}
	req := nodeRequest(domain.NodeTypeBatch,
		nil,
		engine.NewContext(map[string]any{"items": items}),
		rec,
	)

	if _, err := (&BatchHandler{}).Execute(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Без batch_size в конфиге действует размер по умолчанию 10
	if len(rec.calls) != 3 {
		t.Fatalf("expected 3 downstream calls, got %d", len(rec.calls))
	}
	sizes := []int{10, 10, 5}
	for i, call := range rec.calls {
		batch, ok := call.ctx["items"].([]any)
		if !ok || len(batch) != sizes[i] {
			t.Errorf("call %d: items len = %d, want %d", i, len(batch), sizes[i])
		}
	}
}

func TestBatchHandler_InvalidSize(t *testing.T) {
	// Явное неположительное значение — ошибка, а не откат к умолчанию
	for _, size := range []int{-1, 0} {
		rec := &downstreamRecorder{}
		req := nodeRequest(domain.NodeTypeBatch,
			map[string]any{"batch_size": size},
			engine.NewContext(map[string]any{"items": []any{1}}),
			rec,
		)

		if _, err := (&BatchHandler{}).Execute(context.Background(), req); !errors.Is(err, ErrConfiguration) {
			t.Errorf("batch_size=%d: expected ErrConfiguration, got %v", size, err)
		}
		if len(rec.calls) != 0 {
			t.Errorf("batch_size=%d: downstream must not run", size)
		}
	}
}
