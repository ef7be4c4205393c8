package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"testing"

	"fleet-monitor/alerting/internal/domain"
)

// mockSubmitter evaluates with the real rules but records what it was given.
type mockSubmitter struct {
	events []domain.TelemetryEvent
}

func (m *mockSubmitter) Handle(ctx context.Context, ev domain.TelemetryEvent) domain.AlertBatch {
	m.events = append(m.events, ev)
	return domain.NewBatch(ev, domain.Evaluate(ev))
}

type mockHistory struct {
	batches map[int64][]domain.AlertBatch
}

func (m *mockHistory) Query(driverID int64) iter.Seq[domain.AlertBatch] {
	return func(yield func(domain.AlertBatch) bool) {
		for _, b := range m.batches[driverID] {
			if !yield(b) {
				return
			}
		}
	}
}

func newTestRouter(s Submitter, h History, checks []HealthCheck) http.Handler {
	noSubscribers := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
	})
	return NewRouter(NewHandler(s, h, checks, nil), noSubscribers, NewMiddleware(nil))
}

func TestSubmitTelemetry(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantResult string
		wantAlerts int
		wantCalls  int
	}{
		{
			name:       "speeding",
			path:       "/telemetry",
			body:       `{"id":1,"driverId":7,"passengerId":3,"speed":95,"acceleration":1,"brakingForce":1,"deviation":0,"allowedSpeed":80}`,
			wantStatus: http.StatusOK,
			wantResult: "warning",
			wantAlerts: 1,
			wantCalls:  1,
		},
		{
			name:       "calm",
			path:       "/telemetry",
			body:       `{"id":2,"driverId":7,"passengerId":3,"speed":50,"acceleration":1,"brakingForce":1,"deviation":0,"allowedSpeed":80}`,
			wantStatus: http.StatusOK,
			wantResult: "ok",
			wantCalls:  1,
		},
		{
			name:       "legacy path and field names",
			path:       "/send_data/",
			body:       `{"id":3,"driverId":7,"passengerId":3,"speed":50,"acceleration":1,"braking_force":9,"deviation":0,"allowed_speed":80}`,
			wantStatus: http.StatusOK,
			wantResult: "warning",
			wantAlerts: 1,
			wantCalls:  1,
		},
		{
			name:       "missing field",
			path:       "/telemetry",
			body:       `{"id":4,"driverId":7,"passengerId":3,"speed":50}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "broken json",
			path:       "/telemetry",
			body:       `{broken`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &mockSubmitter{}
			router := newTestRouter(sub, &mockHistory{}, nil)

			req := httptest.NewRequest(http.MethodPost, tt.path, bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body)
			}
			if len(sub.events) != tt.wantCalls {
				t.Errorf("submitter called %d times, want %d", len(sub.events), tt.wantCalls)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp submitResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != tt.wantResult {
				t.Errorf("status field = %q, want %q", resp.Status, tt.wantResult)
			}
			if len(resp.Alerts) != tt.wantAlerts {
				t.Errorf("alerts = %d, want %d", len(resp.Alerts), tt.wantAlerts)
			}
		})
	}
}

func TestSubmitTelemetryWrongMethod(t *testing.T) {
	router := newTestRouter(&mockSubmitter{}, &mockHistory{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/telemetry", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestDriverAlerts(t *testing.T) {
	history := &mockHistory{batches: map[int64][]domain.AlertBatch{
		7: {
			{EventID: 1, DriverID: 7, Alerts: []domain.Alert{{Kind: domain.RuleSpeedExceeded}}},
			{EventID: 2, DriverID: 7, Alerts: []domain.Alert{{Kind: domain.RuleHardBraking}}},
		},
	}}
	router := newTestRouter(&mockSubmitter{}, history, nil)

	tests := []struct {
		path       string
		wantStatus int
		wantCount  int
	}{
		{"/alerts/7", http.StatusOK, 2},
		{"/alerts/99", http.StatusOK, 0},
		{"/alerts/seven", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

		if rec.Code != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d", tt.path, rec.Code, tt.wantStatus)
			continue
		}
		if tt.wantStatus != http.StatusOK {
			continue
		}
		var got []domain.AlertBatch
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("%s: %v", tt.path, err)
		}
		if got == nil {
			t.Errorf("%s: body should be a JSON array, not null", tt.path)
		}
		if len(got) != tt.wantCount {
			t.Errorf("%s: %d batches, want %d", tt.path, len(got), tt.wantCount)
		}
	}
}

func TestHealth(t *testing.T) {
	healthy := []HealthCheck{{Name: "redis", Ping: func(context.Context) error { return nil }}}
	broken := append(healthy, HealthCheck{Name: "archive", Ping: func(context.Context) error {
		return errors.New("connection refused")
	}})

	for _, tt := range []struct {
		checks []HealthCheck
		want   int
	}{
		{nil, http.StatusOK},
		{healthy, http.StatusOK},
		{broken, http.StatusServiceUnavailable},
	} {
		rec := httptest.NewRecorder()
		newTestRouter(&mockSubmitter{}, &mockHistory{}, tt.checks).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != tt.want {
			t.Errorf("checks %d: status = %d, want %d", len(tt.checks), rec.Code, tt.want)
		}
	}
}

func TestHomeAndMetrics(t *testing.T) {
	router := newTestRouter(&mockSubmitter{}, &mockHistory{}, nil)

	for _, path := range []string{"/", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /nope = %d, want 404", rec.Code)
	}
}

func TestMiddlewareRecoversPanic(t *testing.T) {
	mw := NewMiddleware(nil)
	h := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
