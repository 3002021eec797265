package http

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		db     Pinger
		status int
		body   string
	}{
		{"no storage", nil, 200, "ok"},
		{"storage up", pingerFunc(func(context.Context) error { return nil }), 200, "ok"},
		{"storage down", pingerFunc(func(context.Context) error { return errors.New("refused") }), 503, "storage unavailable"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/health", nil)
			rec := httptest.NewRecorder()

			HealthHandler(tc.db)(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rec.Code)
			}
			if body := rec.Body.String(); body != tc.body {
				t.Fatalf("expected body %q, got %q", tc.body, body)
			}
		})
	}
}
