package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	kafka_middleware "roombook/pkg/kafka/middleware"
	"roombook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type staticMetrics struct {
	snapshot kafka_middleware.Snapshot
}

func (s staticMetrics) Snapshot() kafka_middleware.Snapshot { return s.snapshot }

func newRouter(checks map[string]Pinger, metrics MetricsSource) *httprouter.Router {
	router := httprouter.New()
	NewHealthHandler(checks, metrics, logger.New(logger.Config{Level: "error", Output: io.Discard})).RegisterRoutes(router)
	return router
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(newRouter(nil, nil), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestReady(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantStatus int
		wantDeps   map[string]string
	}{
		{
			name:       "all reachable",
			checks:     map[string]Pinger{"mongo": ok, "redis": ok},
			wantStatus: http.StatusOK,
			wantDeps:   map[string]string{"mongo": "ok", "redis": "ok"},
		},
		{
			name:       "redis down",
			checks:     map[string]Pinger{"mongo": ok, "redis": down},
			wantStatus: http.StatusServiceUnavailable,
			wantDeps:   map[string]string{"mongo": "ok", "redis": "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(newRouter(tt.checks, nil), "/ready")
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			for name, want := range tt.wantDeps {
				if resp.Dependencies[name] != want {
					t.Errorf("%s: expected %s, got %s", name, want, resp.Dependencies[name])
				}
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	rec := get(newRouter(nil, staticMetrics{kafka_middleware.Snapshot{MessagesPublished: 3}}), "/metrics")
	var resp MetricsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Kafka == nil || resp.Kafka.MessagesPublished != 3 {
		t.Errorf("unexpected metrics %+v", resp.Kafka)
	}

	rec = get(newRouter(nil, nil), "/metrics")
	resp = MetricsResponse{}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Kafka != nil {
		t.Error("expected no kafka section without a metrics source")
	}
}
