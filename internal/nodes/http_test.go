package nodes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shaiso/Flowline/internal/domain"
	"github.com/shaiso/Flowline/internal/engine"
)

func TestHTTPHandler_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/items/7" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": 7})
	}))
	defer server.Close()

	rec := &downstreamRecorder{}
	req := nodeRequest(domain.NodeTypeHTTP,
		map[string]any{"url": server.URL + "/items/{{id}}"},
		engine.NewContext(map[string]any{"id": 7}),
		rec,
	)

	resp, err := NewHTTPHandler().Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Signal != SignalContinue {
		t.Error("http node should signal continue")
	}
	if resp.Fragment["status"] != "ok" || resp.Fragment["status_code"] != 200 {
		t.Errorf("fragment = %v", resp.Fragment)
	}
	data, ok := resp.Fragment["data"].(map[string]any)
	if !ok || data["id"] != float64(7) {
		t.Errorf("data = %v", resp.Fragment["data"])
	}
}

func TestHTTPHandler_PostInterpolatedBody(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok-1" {
			t.Errorf("authorization = %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	rec := &downstreamRecorder{}
	req := nodeRequest(domain.NodeTypeHTTP,
		map[string]any{
			"method":     "POST",
			"url":        server.URL,
			"body":       map[string]any{"name": "{{name}}"},
			"auth_token": "tok-1",
		},
		engine.NewContext(map[string]any{"name": "flowline"}),
		rec,
	)

	resp, err := NewHTTPHandler().Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Fragment["status_code"] != 201 {
		t.Errorf("status_code = %v", resp.Fragment["status_code"])
	}
	if received["name"] != "flowline" {
		t.Errorf("body name = %v", received["name"])
	}
}

func TestHTTPHandler_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	rec := &downstreamRecorder{}
	req := nodeRequest(domain.NodeTypeHTTP,
		map[string]any{"url": server.URL},
		engine.NewContext(nil),
		rec,
	)

	_, err := NewHTTPHandler().Execute(context.Background(), req)
	if !errors.Is(err, ErrExternalCall) {
		t.Errorf("expected ErrExternalCall, got %v", err)
	}
}

func TestHTTPHandler_TransportError(t *testing.T) {
	rec := &downstreamRecorder{}
	req := nodeRequest(domain.NodeTypeHTTP,
		map[string]any{"url": "http://127.0.0.1:1"},
		engine.NewContext(nil),
		rec,
	)

	_, err := NewHTTPHandler().Execute(context.Background(), req)
	if !errors.Is(err, ErrExternalCall) {
		t.Errorf("expected ErrExternalCall, got %v", err)
	}
}

func TestHTTPHandler_MissingURL(t *testing.T) {
	rec := &downstreamRecorder{}
	req := nodeRequest(domain.NodeTypeHTTP, map[string]any{}, engine.NewContext(nil), rec)

	_, err := NewHTTPHandler().Execute(context.Background(), req)
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}
