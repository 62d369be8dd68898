package nodes

import (
	"context"
	"testing"

	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/engine"
)

func TestRegistry_UnknownFallback(t *testing.T) {
	r := NewRegistry()

	handler := r.Get(domain.NodeType("mystery"))
	if handler == nil {
		t.Fatal("Get must never return nil")
	}

	rec := &downstreamRecorder{}
	req := nodeRequest(domain.NodeType("mystery"), nil, engine.NewContext(nil), rec)

	resp, err := handler.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unknown node type should not fail: %v", err)
	}
	if resp.Fragment["executed"] != true || resp.Fragment["node_type"] != "mystery" {
		t.Errorf("fragment = %v", resp.Fragment)
	}
	if resp.Signal != SignalContinue {
		t.Error("fallback should signal continue")
	}
}

func TestDefaultRegistry_CoversKnownTypes(t *testing.T) {
	r := DefaultRegistry(nil, nil)

	types := []domain.NodeType{
		domain.NodeTypeCronTrigger,
		domain.NodeTypeWebhookTrigger,
		domain.NodeTypeManualTrigger,
		domain.NodeTypeMailTrigger,
		domain.NodeTypeFormTrigger,
		domain.NodeTypeQueueTrigger,
		domain.NodeTypeHTTP,
		domain.NodeTypeIf,
		domain.NodeTypeSwitch,
		domain.NodeTypeBatch,
		domain.NodeTypeChat,
		domain.NodeTypeEmail,
		domain.NodeTypeQueue,
		domain.NodeTypeTransform,
		domain.NodeTypeCode,
	}

	for _, nodeType := range types {
		if !r.Has(nodeType) {
			t.Errorf("no handler registered for %s", nodeType)
		}
	}
}

func TestRegistry_RegisterOverrides(t *testing.T) {
	r := NewRegistry()

	first := &TriggerHandler{}
	second := &UnknownHandler{}

	r.Register(domain.NodeTypeHTTP, first)
	r.Register(domain.NodeTypeHTTP, second)

	if r.Get(domain.NodeTypeHTTP) != Handler(second) {
		t.Error("second registration should replace the first")
	}
}

func TestTriggerHandler(t *testing.T) {
	rec := &downstreamRecorder{}
	req := nodeRequest(domain.NodeTypeCronTrigger, nil, engine.NewContext(nil), rec)

	resp, err := (&TriggerHandler{}).Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Fragment["triggered"] != true {
		t.Errorf("fragment = %v", resp.Fragment)
	}
	if resp.Signal != SignalContinue {
		t.Error("trigger should signal continue")
	}
}
