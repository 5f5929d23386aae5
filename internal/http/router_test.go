package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"ivr-voice-bridge-service/internal/models"
	"ivr-voice-bridge-service/internal/observability/metrics"
	"ivr-voice-bridge-service/internal/service/results"
	"ivr-voice-bridge-service/internal/service/session"
)

type fixture struct {
	registry *session.Registry
	results  *results.Log
	metrics  *metrics.Metrics
	handler  http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		registry: session.NewRegistry(),
		results:  results.New(10),
		metrics:  metrics.NewMetricsWith(prometheus.NewRegistry()),
	}
	f.handler = NewRouter(Deps{
		Registry: f.registry,
		Results:  f.results,
		Metrics:  f.metrics,
	})
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestWebhook_Variants(t *testing.T) {
	tests := []struct {
		name string
		req  func() *http.Request
	}{
		{"form post", func() *http.Request {
			form := url.Values{"ApiPhone": {"0501234567"}}
			req := httptest.NewRequest(http.MethodPost, "/api/ym", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return req
		}},
		{"query get", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/api/ym?ApiPhone=0501234567", nil)
		}},
		{"query post", func() *http.Request {
			return httptest.NewRequest(http.MethodPost, "/api/ym?ApiPhone=0501234567", nil)
		}},
		{"json post", func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/api/ym", strings.NewReader(`{"ApiPhone":"0501234567"}`))
			req.Header.Set("Content-Type", "application/json")
			return req
		}},
		{"json numeric", func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/api/ym", strings.NewReader(`{"ApiPhone":501234567}`))
			req.Header.Set("Content-Type", "application/json; charset=utf-8")
			return req
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			rec := f.do(tt.req())

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if body := decodeBody(t, rec); body["goto"] != "/5" {
				t.Errorf("expected goto /5, got %v", body)
			}
			if f.registry.Len() != 1 {
				t.Fatalf("expected 1 session, got %d", f.registry.Len())
			}
			s := f.registry.Snapshot()[0]
			if s.SequenceIndex != 0 || s.State != session.StatePending {
				t.Errorf("expected PENDING at index 0, got %v at %d", s.State, s.SequenceIndex)
			}
		})
	}
}

func TestWebhook_MissingOrInvalidIdentity(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"missing", "/api/ym"},
		{"empty", "/api/ym?ApiPhone="},
		{"blank", "/api/ym?ApiPhone=%20%20"},
		{"path traversal", "/api/ym?ApiPhone=..%2Fetc"},
		{"too long", "/api/ym?ApiPhone=" + strings.Repeat("1", 40)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			rec := f.do(httptest.NewRequest(http.MethodPost, tt.url, nil))

			if rec.Code != http.StatusOK {
				t.Errorf("expected 200, got %d", rec.Code)
			}
			if body := decodeBody(t, rec); len(body) != 0 {
				t.Errorf("expected empty object, got %v", body)
			}
			if f.registry.Len() != 0 {
				t.Errorf("expected no session, got %d", f.registry.Len())
			}
		})
	}
}

func TestWebhook_RepeatedCreatesOneSession(t *testing.T) {
	f := newFixture()

	for i := 0; i < 3; i++ {
		f.do(httptest.NewRequest(http.MethodGet, "/api/ym?ApiPhone=A", nil))
	}

	if f.registry.Len() != 1 {
		t.Errorf("expected 1 session, got %d", f.registry.Len())
	}
	if got := testutil.ToFloat64(f.metrics.SessionsCreated); got != 1 {
		t.Errorf("expected 1 created session, got %v", got)
	}
	if got := testutil.ToFloat64(f.metrics.WebhooksTotal.WithLabelValues("accepted")); got != 3 {
		t.Errorf("expected 3 accepted webhooks, got %v", got)
	}
}

func TestWebhook_DuringProcessing(t *testing.T) {
	f := newFixture()
	f.registry.GetOrCreate("A")
	f.registry.MarkRequested("A")
	f.registry.TryStart("A")

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/ym?ApiPhone=A", nil))
	if body := decodeBody(t, rec); body["goto"] != "/5" {
		t.Errorf("expected goto /5, got %v", body)
	}
	if s, _ := f.registry.Get("A"); s.State != session.StateProcessing {
		t.Errorf("expected session still PROCESSING, got %v", s.State)
	}
}

func TestWebhook_RouteTarget(t *testing.T) {
	h := NewRouter(Deps{
		Registry:    session.NewRegistry(),
		Results:     results.New(1),
		Metrics:     metrics.NewMetricsWith(prometheus.NewRegistry()),
		RouteTarget: "/7/1",
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ym?ApiPhone=A", nil))

	if body := decodeBody(t, rec); body["goto"] != "/7/1" {
		t.Errorf("expected configured route target, got %v", body)
	}
}

func TestResults(t *testing.T) {
	f := newFixture()

	rec := f.do(httptest.NewRequest(http.MethodGet, "/results", nil))
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty array, got %q", rec.Body.String())
	}

	f.results.Append(models.ExchangeRecord{Identity: "A", Index: "000", Transcription: "q1", Answer: "a1"})
	f.results.Append(models.ExchangeRecord{Identity: "A", Index: "001", Transcription: "q2", Answer: "a2"})

	rec = f.do(httptest.NewRequest(http.MethodGet, "/results", nil))
	var recs []models.ExchangeRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &recs); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(recs) != 2 || recs[0].Index != "000" || recs[1].Index != "001" {
		t.Errorf("expected records oldest first, got %+v", recs)
	}
	if !strings.Contains(rec.Body.String(), `"phone":"A"`) {
		t.Errorf("expected phone field in %s", rec.Body.String())
	}
}

func TestSessions(t *testing.T) {
	f := newFixture()
	f.registry.GetOrCreate("B")
	f.registry.GetOrCreate("A")
	f.registry.MarkRequested("A")

	rec := f.do(httptest.NewRequest(http.MethodGet, "/v1/sessions", nil))
	var sessions []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0]["identity"] != "A" || sessions[0]["state"] != "PENDING" {
		t.Errorf("unexpected first session %v", sessions[0])
	}
}

func TestHealthEndpoints(t *testing.T) {
	ready := true
	h := NewRouter(Deps{
		Registry: session.NewRegistry(),
		Results:  results.New(1),
		Metrics:  metrics.NewMetricsWith(prometheus.NewRegistry()),
		Ready:    func() bool { return ready },
	})

	tests := []struct {
		path string
		code int
		body string
	}{
		{"/", http.StatusOK, LivenessMessage},
		{"/v1/liveness", http.StatusOK, "ok"},
		{"/v1/readiness", http.StatusOK, "ready"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.code || rec.Body.String() != tt.body {
			t.Errorf("GET %s = %d %q, want %d %q", tt.path, rec.Code, rec.Body.String(), tt.code, tt.body)
		}
	}

	ready = false
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/readiness", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when not ready, got %d", rec.Code)
	}
}

func TestRequestMetrics(t *testing.T) {
	f := newFixture()
	f.do(httptest.NewRequest(http.MethodGet, "/results", nil))

	if got := testutil.ToFloat64(f.metrics.HTTPRequests.WithLabelValues("/results", "200")); got != 1 {
		t.Errorf("expected 1 request recorded for /results, got %v", got)
	}
}
