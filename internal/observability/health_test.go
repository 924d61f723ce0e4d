package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReadyHandler(t *testing.T) {
	tests := []struct {
		name   string
		pinger Pinger
		want   int
	}{
		{name: "No dependency", pinger: nil, want: http.StatusOK},
		{name: "Store reachable", pinger: pingFunc(func(context.Context) error { return nil }), want: http.StatusOK},
		{name: "Store down", pinger: pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") }), want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HealthReadyHandler(tt.pinger)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHealthLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthLiveHandler(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}
