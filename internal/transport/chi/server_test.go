package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/expatscout/internal/domain/intent"
	"github.com/kailas-cloud/expatscout/internal/domain/provider"
	"github.com/kailas-cloud/expatscout/internal/domain/record"
	"github.com/kailas-cloud/expatscout/internal/metrics"
	chatuc "github.com/kailas-cloud/expatscout/internal/usecase/chat"
	healthuc "github.com/kailas-cloud/expatscout/internal/usecase/health"
	"github.com/kailas-cloud/expatscout/internal/usecase/pipeline"
	"github.com/kailas-cloud/expatscout/internal/usecase/summary"
)

func TestMain(m *testing.M) {
	metrics.RegisterSearchMetrics()
	os.Exit(m.Run())
}

// --- Fakes ---

type fakeProvider struct {
	name string
	recs []record.Record
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(context.Context, string, string) ([]record.Record, error) {
	return f.recs, nil
}

type fixedClock string

func (c fixedClock) Today() string { return string(c) }

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

func newTestRouter(t *testing.T, pingErr error) http.Handler {
	t.Helper()
	events := &fakeProvider{name: provider.Eventbrite, recs: []record.Record{
		{ID: "eb_1", Type: record.Events, Title: "Jazz Night", StartDate: "2026-03-14", StartTime: "19:30",
			Timezone: record.DefaultTimezone, URL: "https://www.eventbrite.co.uk/e/1", Source: "Eventbrite", Price: "Free"},
		{ID: "eb_2", Type: record.Events, Title: "Open Mic", StartDate: "2026-02-01",
			Timezone: record.DefaultTimezone, URL: "https://www.eventbrite.co.uk/e/2", Source: "Eventbrite"},
	}}
	chat := chatuc.New(
		intent.Default(),
		map[intent.Intent][]chatuc.Provider{intent.Event: {events}},
		pipeline.New(fixedClock("2026-01-15"), nil),
		summary.New(nil, nil, summary.Config{}),
		chatuc.Paging{},
	)
	srv := NewServer(chat, healthuc.New(&fakePinger{err: pingErr}, nil, nil), "ExpatScout", zap.NewNop())

	r := gochi.NewRouter()
	r.Use(CORSMiddleware([]string{"*"}))
	srv.Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// --- Tests ---

func TestChat_OK(t *testing.T) {
	h := newTestRouter(t, nil)
	rr := do(t, h, http.MethodPost, "/api/chat", `{"message":"jazz concerts in London","page":1,"page_size":1}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Intent != "event" || resp.Location != "London" || resp.TotalResults != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(resp.Results) != 1 || *resp.Results[0].Title != "Open Mic" {
		t.Fatalf("expected earliest event on page 1, got %+v", resp.Results)
	}
	if resp.Pagination != (Pagination{Page: 1, PageSize: 1, TotalPages: 2}) {
		t.Errorf("unexpected pagination: %+v", resp.Pagination)
	}
	if resp.AISummary != "🎉 Found 2 exciting events for you in London! Check them out below." {
		t.Errorf("unexpected summary: %q", resp.AISummary)
	}
	if len(resp.Providers) != 1 || resp.Providers[0].Status != "success" {
		t.Errorf("unexpected providers: %+v", resp.Providers)
	}
}

func TestChat_HugePageIsEmpty(t *testing.T) {
	h := newTestRouter(t, nil)
	rr := do(t, h, http.MethodPost, "/api/chat", `{"message":"jazz concerts in London","page":9223372036854775807,"page_size":10}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	var resp ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 0 || resp.TotalResults != 2 || resp.Pagination.TotalPages != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestChat_EmptyFieldsAreNull(t *testing.T) {
	h := newTestRouter(t, nil)
	rr := do(t, h, http.MethodPost, "/api/chat", `{"message":"events in London","page_size":1}`)

	var raw struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	item := raw.Results[0]
	for _, k := range []string{"start_time", "price", "venue", "poster"} {
		v, ok := item[k]
		if !ok || v != nil {
			t.Errorf("expected %s to be null, got %v (present=%v)", k, v, ok)
		}
	}
	if _, ok := item["company"]; ok {
		t.Error("company should be omitted for events")
	}
}

func TestChat_Validation(t *testing.T) {
	h := newTestRouter(t, nil)

	tests := []struct {
		name string
		body string
		code ErrorResponseCode
	}{
		{"blank message", `{"message":"   "}`, ErrorResponseCodeValidationFailed},
		{"missing message", `{}`, ErrorResponseCodeValidationFailed},
		{"malformed body", `{"message":`, ErrorResponseCodeBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/api/chat", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("got %d, want 400", rr.Code)
			}
			var errResp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if errResp.Code != tc.code {
				t.Errorf("code = %q, want %q", errResp.Code, tc.code)
			}
		})
	}
}

func TestSearch_QueryBinding(t *testing.T) {
	h := newTestRouter(t, nil)

	rr := do(t, h, http.MethodGet, "/api/search?message=events+in+London&page=2&page_size=1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	var resp ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Pagination.Page != 2 || len(resp.Results) != 1 || *resp.Results[0].Title != "Jazz Night" {
		t.Errorf("unexpected page: %+v", resp)
	}

	if rr := do(t, h, http.MethodGet, "/api/search", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("missing message: got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/api/search?message=x&page=abc", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad page: got %d", rr.Code)
	}
}

func TestStatus(t *testing.T) {
	rr := do(t, newTestRouter(t, nil), http.MethodGet, "/api/status", "")

	var resp StatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rr.Code != http.StatusOK || resp.Status != "ok" || resp.Service != "ExpatScout" {
		t.Errorf("unexpected status: %d %+v", rr.Code, resp)
	}
}

func TestChatMetrics(t *testing.T) {
	h := newTestRouter(t, nil)
	do(t, h, http.MethodPost, "/api/chat", `{"message":"events in Paris"}`)

	rr := do(t, h, http.MethodGet, "/api/metrics", "")
	var resp MetricsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rr.Code != http.StatusOK || resp.Status != "healthy" {
		t.Errorf("unexpected metrics: %d %+v", rr.Code, resp)
	}
	if resp.AvgResponseMs < 0 {
		t.Errorf("negative latency: %f", resp.AvgResponseMs)
	}
}

func TestHealthCheck(t *testing.T) {
	rr := do(t, newTestRouter(t, nil), http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("healthy: got %d", rr.Code)
	}

	rr = do(t, newTestRouter(t, errors.New("index closed")), http.MethodGet, "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("failing knowledge store: got %d", rr.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Checks["knowledge"] != "error" {
		t.Errorf("unexpected checks: %v", resp.Checks)
	}
}
