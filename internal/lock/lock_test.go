package lock

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/leonunix/docsearch/internal/backend"
	"github.com/leonunix/docsearch/internal/metrics"
	"github.com/leonunix/docsearch/internal/operations"
)

const (
	lockIndex = ".docsearch-locks"
	notFound  = `{"_index":".docsearch-locks","_id":"orders-nightly","found":false}`
)

func newTestLock(t *testing.T, h http.HandlerFunc, m *metrics.Metrics) *DocumentLock {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	exec, err := backend.NewOpenSearch(backend.Config{Addresses: []string{srv.URL}, Username: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("NewOpenSearch: %v", err)
	}
	return New(operations.New(exec), lockIndex, m)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func lockGetBody(owner string, expiresAt time.Time) string {
	doc := map[string]any{
		"_index":        lockIndex,
		"_id":           "orders-nightly",
		"found":         true,
		"_seq_no":       5,
		"_primary_term": 1,
		"_source": map[string]any{
			"owner":       owner,
			"acquired_at": expiresAt.Add(-2 * time.Hour).Format(time.RFC3339),
			"expires_at":  expiresAt.Format(time.RFC3339),
		},
	}
	b, _ := json.Marshal(doc)
	return string(b)
}

func TestAcquire_Success(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		t.Fatal(err)
	}
	lock := newTestLock(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			writeJSON(w, http.StatusNotFound, notFound)
		case r.Method == http.MethodPut && r.URL.Query().Get("op_type") == "create":
			if r.URL.Query().Get("refresh") != "true" {
				t.Errorf("refresh = %q, want true", r.URL.Query().Get("refresh"))
			}
			writeJSON(w, http.StatusCreated, `{"_index":".docsearch-locks","_id":"orders-nightly","result":"created","_seq_no":0,"_primary_term":1}`)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	}, m)

	ok, err := lock.Acquire(context.Background(), "orders-nightly", time.Hour)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !ok {
		t.Fatal("expected lock to be acquired")
	}
	if got := testutil.ToFloat64(m.LockAcquire.WithLabelValues(ResultAcquired)); got != 1 {
		t.Errorf("acquired counter = %v, want 1", got)
	}
}

func TestAcquire_AlreadyHeld(t *testing.T) {
	lock := newTestLock(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, lockGetBody("other-host-999", time.Now().UTC().Add(time.Hour)))
		case http.MethodPut:
			writeJSON(w, http.StatusConflict, `{"error":{"type":"version_conflict_engine_exception","reason":"[orders-nightly]: version conflict, document already exists (current version [1])"},"status":409}`)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	}, nil)

	ok, err := lock.Acquire(context.Background(), "orders-nightly", time.Hour)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if ok {
		t.Fatal("expected lock NOT to be acquired (already held)")
	}
}

func TestAcquire_ExpiredLockCleanup(t *testing.T) {
	var mu sync.Mutex
	var deleteQuery string

	lock := newTestLock(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, lockGetBody("crashed-host-123", time.Now().UTC().Add(-time.Hour)))
		case http.MethodDelete:
			deleteQuery = r.URL.RawQuery
			writeJSON(w, http.StatusOK, `{"_index":".docsearch-locks","_id":"orders-nightly","result":"deleted"}`)
		case http.MethodPut:
			writeJSON(w, http.StatusCreated, `{"_index":".docsearch-locks","_id":"orders-nightly","result":"created"}`)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	}, nil)

	ok, err := lock.Acquire(context.Background(), "orders-nightly", time.Hour)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !ok {
		t.Fatal("expected lock to be acquired after cleanup")
	}

	mu.Lock()
	defer mu.Unlock()
	if deleteQuery == "" {
		t.Fatal("expected expired lock to be deleted")
	}
	q, _ := url.ParseQuery(deleteQuery)
	if q.Get("if_seq_no") != "5" || q.Get("if_primary_term") != "1" {
		t.Errorf("cleanup delete must be conditional, query = %q", deleteQuery)
	}
}

func TestAcquire_IndexMissing_AutoCreates(t *testing.T) {
	createAttempts := 0
	indexCreated := false
	lock := newTestLock(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			writeJSON(w, http.StatusNotFound, `{"error":{"type":"index_not_found_exception","reason":"no such index [.docsearch-locks]","index":".docsearch-locks"},"status":404}`)
		case r.Method == http.MethodPut && r.URL.Query().Get("op_type") == "create":
			createAttempts++
			if createAttempts == 1 {
				writeJSON(w, http.StatusNotFound, `{"error":{"type":"index_not_found_exception","reason":"no such index [.docsearch-locks]","index":".docsearch-locks"},"status":404}`)
				return
			}
			writeJSON(w, http.StatusCreated, `{"_index":".docsearch-locks","_id":"orders-nightly","result":"created"}`)
		case r.Method == http.MethodPut && r.URL.Path == "/"+lockIndex:
			indexCreated = true
			writeJSON(w, http.StatusOK, `{"acknowledged":true,"index":".docsearch-locks"}`)
		default:
			t.Errorf("unexpected request: %s %s %s", r.Method, r.URL.Path, r.URL.RawQuery)
			w.WriteHeader(http.StatusBadRequest)
		}
	}, nil)

	ok, err := lock.Acquire(context.Background(), "orders-nightly", time.Hour)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !ok {
		t.Fatal("expected lock to be acquired after index auto-creation")
	}
	if !indexCreated {
		t.Fatal("expected lock index to be created")
	}
	if createAttempts != 2 {
		t.Fatalf("expected 2 create attempts, got %d", createAttempts)
	}
}

func TestAcquire_IndexCreatedConcurrently(t *testing.T) {
	createAttempts := 0
	lock := newTestLock(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			writeJSON(w, http.StatusNotFound, notFound)
		case r.Method == http.MethodPut && r.URL.Query().Get("op_type") == "create":
			createAttempts++
			if createAttempts == 1 {
				writeJSON(w, http.StatusNotFound, `{"error":{"type":"index_not_found_exception","reason":"no such index [.docsearch-locks]"},"status":404}`)
				return
			}
			writeJSON(w, http.StatusCreated, `{"result":"created"}`)
		case r.Method == http.MethodPut:
			writeJSON(w, http.StatusBadRequest, `{"error":{"type":"resource_already_exists_exception","reason":"index [.docsearch-locks] already exists"},"status":400}`)
		}
	}, nil)

	ok, err := lock.Acquire(context.Background(), "orders-nightly", time.Hour)
	if err != nil || !ok {
		t.Fatalf("Acquire = %v, %v; want acquired", ok, err)
	}
}

func TestRelease_OwnLock(t *testing.T) {
	var lock *DocumentLock
	deleteCalled := false
	lock = newTestLock(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, lockGetBody(lock.Owner(), time.Now().UTC().Add(time.Hour)))
		case http.MethodDelete:
			deleteCalled = true
			writeJSON(w, http.StatusOK, `{"result":"deleted"}`)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	}, nil)

	if err := lock.Release(context.Background(), "orders-nightly"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if !deleteCalled {
		t.Fatal("expected DELETE to be called")
	}
}

func TestRelease_ForeignLockIsKept(t *testing.T) {
	lock := newTestLock(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			writeJSON(w, http.StatusOK, lockGetBody("other-host-999", time.Now().UTC().Add(time.Hour)))
			return
		}
		t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
	}, nil)

	if err := lock.Release(context.Background(), "orders-nightly"); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestRelease_NotFound_OK(t *testing.T) {
	lock := newTestLock(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, notFound)
	}, nil)
	if err := lock.Release(context.Background(), "orders-nightly"); err != nil {
		t.Fatalf("Release should not error on 404: %v", err)
	}
}

func TestAuth(t *testing.T) {
	var gotUser, gotPass string
	lock := newTestLock(t, func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		if r.Method == http.MethodGet {
			writeJSON(w, http.StatusNotFound, notFound)
			return
		}
		writeJSON(w, http.StatusCreated, `{"result":"created"}`)
	}, nil)
	lock.Acquire(context.Background(), "orders-nightly", time.Hour)

	if gotUser != "admin" || gotPass != "secret" {
		t.Fatalf("auth: got %s/%s, want admin/secret", gotUser, gotPass)
	}
}
