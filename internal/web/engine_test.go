package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/gatewatch/internal/config"
	"github.com/kozaktomas/gatewatch/internal/events"
	"github.com/kozaktomas/gatewatch/internal/monitor"
)

type stubEngine struct{ running bool }

func (e *stubEngine) Start(ctx context.Context) (*monitor.Session, error) {
	e.running = true
	return nil, nil
}

func (e *stubEngine) Stop() error {
	e.running = false
	return nil
}

func (e *stubEngine) Status() monitor.Status {
	return monitor.Status{Running: e.running, Present: []monitor.PresentIdentity{{ID: "u1", Name: "Alice"}}}
}

func TestEngineServer(t *testing.T) {
	engine := &stubEngine{}
	s := NewEngineServer(config.WebConfig{APIKey: "k"}, EngineDeps{
		Engine:      engine,
		Broadcaster: events.NewBroadcaster(),
	}, nil)

	do := func(method, path, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		return rec
	}

	if rec := do(http.MethodGet, "/api/v1/status", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", rec.Code)
	}
	if rec := do(http.MethodPost, "/api/v1/monitor/start", "k"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on start, got %d", rec.Code)
	}

	rec := do(http.MethodGet, "/api/v1/status", "k")
	var st monitor.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !st.Running || len(st.Present) != 1 || st.Present[0].Name != "Alice" {
		t.Errorf("unexpected status %+v", st)
	}

	if rec := do(http.MethodPost, "/api/v1/monitor/stop", "k"); rec.Code != http.StatusOK {
		t.Errorf("expected 200 on stop, got %d", rec.Code)
	}
	if engine.running {
		t.Error("engine still running after stop")
	}
	if rec := do(http.MethodGet, "/api/v1/health", ""); rec.Code != http.StatusOK {
		t.Errorf("expected open health check, got %d", rec.Code)
	}
}
