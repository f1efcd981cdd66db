package reindex

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestIndexRecorder_Record(t *testing.T) {
	var capturedPath string
	var capturedBody []byte
	tpl := newTestTemplate(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			capturedPath = r.URL.Path
			capturedBody, _ = io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"_index":".docsearch-reindex-runs","_id":"x","result":"created"}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	})
	store := NewIndexRecorder(tpl, ".docsearch-reindex-runs")

	start := time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)
	rec := &RunRecord{
		Timestamp:   start.Add(5 * time.Minute),
		Job:         "orders-nightly",
		Source:      []string{"orders-v1"},
		Dest:        "orders-v2",
		StartedAt:   start,
		CompletedAt: start.Add(5 * time.Minute),
		DurationSec: 300,
		Total:       150000,
		Created:     150000,
		Status:      StatusSuccess,
	}
	if err := store.Record(context.Background(), rec); err != nil {
		t.Fatalf("Record: %v", err)
	}

	want := "/.docsearch-reindex-runs/_doc/run-orders-nightly-" + "1770631200"
	if capturedPath != want {
		t.Fatalf("path = %s, want %s", capturedPath, want)
	}
	var doc map[string]any
	if err := json.Unmarshal(capturedBody, &doc); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if doc["job"] != "orders-nightly" || doc["status"] != "success" {
		t.Fatalf("doc = %v", doc)
	}
	if doc["created"] != float64(150000) {
		t.Fatalf("created = %v, want 150000", doc["created"])
	}
}

func TestIndexRecorder_Record_IndexAutoCreate(t *testing.T) {
	putCount := 0
	indexCreated := false
	tpl := newTestTemplate(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPut && strings.Contains(r.URL.Path, "/_doc/"):
			putCount++
			if putCount == 1 {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"error":{"type":"index_not_found_exception","reason":"no such index [.docsearch-reindex-runs]"},"status":404}`))
				return
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"result":"created"}`))
		case r.Method == http.MethodPut:
			indexCreated = true
			b, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(b), `"version_conflicts"`) {
				t.Errorf("index body lacks mappings: %s", b)
			}
			w.Write([]byte(`{"acknowledged":true}`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	store := NewIndexRecorder(tpl, ".docsearch-reindex-runs")

	rec := &RunRecord{Job: "copy", StartedAt: time.Now().UTC(), Status: StatusFailed, Error: "boom"}
	if err := store.Record(context.Background(), rec); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !indexCreated {
		t.Fatal("expected run index to be created")
	}
	if putCount != 2 {
		t.Fatalf("expected 2 document writes, got %d", putCount)
	}
}
