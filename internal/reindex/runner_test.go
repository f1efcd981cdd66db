package reindex

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/leonunix/docsearch/internal/backend"
	"github.com/leonunix/docsearch/internal/config"
	"github.com/leonunix/docsearch/internal/metrics"
	"github.com/leonunix/docsearch/internal/operations"
	"github.com/leonunix/docsearch/internal/query"
)

type fakeLock struct {
	mu       sync.Mutex
	held     bool
	acquired []string
	released []string
}

func (l *fakeLock) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.acquired = append(l.acquired, key)
	return true, nil
}

func (l *fakeLock) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released = append(l.released, key)
	return nil
}

type memRecorder struct {
	mu      sync.Mutex
	records []*RunRecord
}

func (m *memRecorder) Record(_ context.Context, rec *RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// fakeCluster answers _reindex with reindexBody and captures the request.
type fakeCluster struct {
	mu          sync.Mutex
	reindexBody string
	reindexes   int
	lastBody    []byte
	lastQuery   string
}

func (f *fakeCluster) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.Method != http.MethodPost || r.URL.Path != "/_reindex" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.reindexes++
		f.lastBody, _ = io.ReadAll(r.Body)
		f.lastQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, f.reindexBody)
	}
}

func newTestTemplate(t *testing.T, h http.HandlerFunc) *operations.Template {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	exec, err := backend.NewOpenSearch(backend.Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatalf("NewOpenSearch: %v", err)
	}
	return operations.New(exec)
}

var ordersJob = config.JobConfig{
	Name:              "orders-nightly",
	Schedule:          "0 3 * * *",
	Source:            []string{"orders-v1"},
	Dest:              "orders-v2",
	Query:             `{"range":{"created":{"gte":"now-1d"}}}`,
	Slices:            "auto",
	RequestsPerSecond: 500,
	Conflicts:         "proceed",
	MaxDocs:           1000,
}

func TestBuildRequest(t *testing.T) {
	q, err := BuildRequest(ordersJob)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	if q.Dest.Index != "orders-v2" || len(q.Source.Indices) != 1 || q.Source.Indices[0] != "orders-v1" {
		t.Errorf("indices = %+v -> %+v", q.Source, q.Dest)
	}
	if q.Conflicts != query.ConflictsProceed {
		t.Errorf("Conflicts = %q", q.Conflicts)
	}
	if q.RequestsPerSecond == nil || *q.RequestsPerSecond != 500 {
		t.Errorf("RequestsPerSecond = %v", q.RequestsPerSecond)
	}
	if q.MaxDocs == nil || *q.MaxDocs != 1000 {
		t.Errorf("MaxDocs = %v", q.MaxDocs)
	}
	if q.Source.Query == nil {
		t.Fatal("source query not set")
	}

	plain, err := BuildRequest(config.JobConfig{Name: "copy", Source: []string{"a"}, Dest: "b"})
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	if plain.Source.Query != nil || plain.RequestsPerSecond != nil || plain.MaxDocs != nil || plain.Conflicts != "" {
		t.Errorf("unset fields leaked into request: %+v", plain)
	}

	if _, err := BuildRequest(config.JobConfig{Name: "bad", Source: []string{"a"}, Dest: "b", Query: "{"}); err == nil {
		t.Error("expected error for invalid query JSON")
	}
}

func TestRunJob_Success(t *testing.T) {
	fc := &fakeCluster{reindexBody: `{"took":120,"total":10,"created":7,"updated":3,"version_conflicts":1,"failures":[]}`}
	tpl := newTestTemplate(t, fc.handler(t))
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		t.Fatal(err)
	}
	lk := &fakeLock{}
	rec := &memRecorder{}
	runner := NewRunner(tpl, WithLock(lk), WithRecorder(rec), WithMetrics(m))

	if err := runner.RunJob(context.Background(), ordersJob); err != nil {
		t.Fatalf("RunJob: %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal(fc.lastBody, &body); err != nil {
		t.Fatalf("invalid reindex body: %v", err)
	}
	if body["conflicts"] != "proceed" {
		t.Errorf("conflicts = %v", body["conflicts"])
	}
	src := body["source"].(map[string]any)
	if _, ok := src["query"].(map[string]any)["range"]; !ok {
		t.Errorf("source query = %v", src["query"])
	}
	if !strings.Contains(fc.lastQuery, "slices=auto") || !strings.Contains(fc.lastQuery, "requests_per_second=500") {
		t.Errorf("params = %q", fc.lastQuery)
	}

	if len(lk.acquired) != 1 || lk.acquired[0] != "reindex-orders-nightly" || len(lk.released) != 1 {
		t.Errorf("lock calls: acquired=%v released=%v", lk.acquired, lk.released)
	}
	if len(rec.records) != 1 {
		t.Fatalf("records = %d, want 1", len(rec.records))
	}
	r := rec.records[0]
	if r.Status != StatusSuccess || r.Created != 7 || r.Updated != 3 || r.VersionConflicts != 1 || r.Dest != "orders-v2" {
		t.Errorf("record = %+v", r)
	}
	if got := testutil.ToFloat64(m.ReindexRuns.WithLabelValues("orders-nightly", StatusSuccess)); got != 1 {
		t.Errorf("runs counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ReindexDocs.WithLabelValues("orders-nightly", "created")); got != 7 {
		t.Errorf("created counter = %v, want 7", got)
	}
}

func TestRunJob_FailuresAreReported(t *testing.T) {
	fc := &fakeCluster{reindexBody: `{"took":5,"total":2,"created":1,"failures":[{"index":"orders-v2","id":"9","status":400,"cause":{"type":"mapper_parsing_exception","reason":"failed to parse field [amount]"}}]}`}
	rec := &memRecorder{}
	runner := NewRunner(newTestTemplate(t, fc.handler(t)), WithRecorder(rec))

	err := runner.RunJob(context.Background(), ordersJob)
	if err == nil || !strings.Contains(err.Error(), "failed to parse field") {
		t.Fatalf("err = %v, want failure reason", err)
	}
	if len(rec.records) != 1 || rec.records[0].Status != StatusFailed || rec.records[0].Failures != 1 {
		t.Fatalf("records = %+v", rec.records)
	}
	if rec.records[0].Error == "" {
		t.Error("failed record carries no error")
	}
}

func TestRunJob_EngineErrorIsRecorded(t *testing.T) {
	tpl := newTestTemplate(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"type":"index_not_found_exception","reason":"no such index [orders-v1]","index":"orders-v1"},"status":404}`)
	})
	rec := &memRecorder{}
	runner := NewRunner(tpl, WithRecorder(rec))

	if err := runner.RunJob(context.Background(), ordersJob); err == nil {
		t.Fatal("expected error")
	}
	if len(rec.records) != 1 || rec.records[0].Status != StatusFailed || rec.records[0].Total != 0 {
		t.Fatalf("records = %+v", rec.records)
	}
}

func TestRunJob_SkipsWhenLockHeld(t *testing.T) {
	fc := &fakeCluster{reindexBody: `{}`}
	rec := &memRecorder{}
	runner := NewRunner(newTestTemplate(t, fc.handler(t)), WithLock(&fakeLock{held: true}), WithRecorder(rec))

	if err := runner.RunJob(context.Background(), ordersJob); err != nil {
		t.Fatalf("RunJob: %v", err)
	}
	if fc.reindexes != 0 {
		t.Errorf("reindex called %d times while lock held", fc.reindexes)
	}
	if len(rec.records) != 0 {
		t.Errorf("skipped run was recorded: %+v", rec.records)
	}
}

func TestRunAll_ContinuesAfterFailure(t *testing.T) {
	calls := 0
	tpl := newTestTemplate(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":{"type":"illegal_argument_exception","reason":"bad dest"},"status":400}`)
			return
		}
		io.WriteString(w, `{"total":1,"created":1}`)
	})
	runner := NewRunner(tpl)
	jobs := []config.JobConfig{
		{Name: "first", Source: []string{"a"}, Dest: "b"},
		{Name: "second", Source: []string{"c"}, Dest: "d"},
	}
	if err := runner.RunAll(context.Background(), jobs); err == nil {
		t.Fatal("expected first job error to be returned")
	}
	if calls != 2 {
		t.Fatalf("reindex calls = %d, want 2", calls)
	}
}
