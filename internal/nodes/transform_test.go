package nodes

import (
	"context"
	"errors"
	"testing"

	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/engine"
)

func TestTransformHandler_Mappings(t *testing.T) {
	rec := &downstreamRecorder{}
	req := nodeRequest(domain.NodeTypeTransform,
		map[string]any{
			"mappings": map[string]any{
				"full_name": "{{first}} {{last}}",
				"count":     "{{total}}",
				"flag":      "true",
				"raw":       42,
			},
		},
		engine.NewContext(map[string]any{"first": "Ada", "last": "L", "total": 3}),
		rec,
	)

	resp, err := (&TransformHandler{}).Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Fragment["full_name"] != "Ada L" {
		t.Errorf("full_name = %v", resp.Fragment["full_name"])
	}
	// Строка-число после интерполяции приводится к числу
	if resp.Fragment["count"] != float64(3) {
		t.Errorf("count = %v (%T)", resp.Fragment["count"], resp.Fragment["count"])
	}
	if resp.Fragment["flag"] != true {
		t.Errorf("flag = %v", resp.Fragment["flag"])
	}
	// Нестроковое значение проходит как есть
	if resp.Fragment["raw"] != 42 {
		t.Errorf("raw = %v", resp.Fragment["raw"])
	}
}

func TestTransformHandler_NonJSONStaysString(t *testing.T) {
	rec := &downstreamRecorder{}
	req := nodeRequest(domain.NodeTypeTransform,
		map[string]any{
			"mappings": map[string]any{"greeting": "hello {{name}}"},
		},
		engine.NewContext(map[string]any{"name": "world"}),
		rec,
	)

	resp, err := (&TransformHandler{}).Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Fragment["greeting"] != "hello world" {
		t.Errorf("greeting = %v", resp.Fragment["greeting"])
	}
}

func TestTransformHandler_MissingMappings(t *testing.T) {
	rec := &downstreamRecorder{}
	req := nodeRequest(domain.NodeTypeTransform, nil, engine.NewContext(nil), rec)

	if _, err := (&TransformHandler{}).Execute(context.Background(), req); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestCodeHandler_Expression(t *testing.T) {
	rec := &downstreamRecorder{}
	req := nodeRequest(domain.NodeTypeCode,
		map[string]any{"expression": "price * quantity"},
		engine.NewContext(map[string]any{"price": 2.5, "quantity": 4}),
		rec,
	)

	resp, err := (&CodeHandler{}).Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Fragment["result"] != float64(10) {
		t.Errorf("result = %v", resp.Fragment["result"])
	}
}

func TestCodeHandler_BadExpression(t *testing.T) {
	rec := &downstreamRecorder{}
	req := nodeRequest(domain.NodeTypeCode,
		map[string]any{"expression": "a +* b"},
		engine.NewContext(nil),
		rec,
	)

	if _, err := (&CodeHandler{}).Execute(context.Background(), req); !errors.Is(err, ErrEvaluation) {
		t.Errorf("expected ErrEvaluation, got %v", err)
	}
}
