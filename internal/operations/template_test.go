package operations

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/leonunix/docsearch/internal/apierror"
	"github.com/leonunix/docsearch/internal/backend"
	"github.com/leonunix/docsearch/internal/compiler"
	"github.com/leonunix/docsearch/internal/document"
	"github.com/leonunix/docsearch/internal/metadata"
	"github.com/leonunix/docsearch/internal/query"
)

type product struct {
	ID   string                    `search:"id,id"`
	Name string                    `search:"name"`
	OCC  metadata.SeqNoPrimaryTerm `search:",seqno"`
}

func (product) SearchIndex() string { return "products" }

type recorded struct {
	method, path, rawQuery, body string
}

// fakeEngine answers requests by "METHOD /path" and records every call.
type fakeEngine struct {
	mu       sync.Mutex
	calls    []recorded
	handlers map[string]http.HandlerFunc
}

func (f *fakeEngine) on(route string, status int, body string) {
	f.handlers[route] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func (f *fakeEngine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, recorded{r.Method, r.URL.Path, r.URL.RawQuery, string(b)})
	h, ok := f.handlers[r.Method+" "+r.URL.Path]
	f.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"type":"unexpected","reason":"no handler for `+r.Method+" "+r.URL.Path+`"},"status":500}`)
		return
	}
	h(w, r)
}

func (f *fakeEngine) last(route string) (recorded, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].method+" "+f.calls[i].path == route {
			return f.calls[i], true
		}
	}
	return recorded{}, false
}

func newTestTemplate(t *testing.T) (*Template, *fakeEngine) {
	t.Helper()
	fe := &fakeEngine{handlers: make(map[string]http.HandlerFunc)}
	srv := httptest.NewServer(fe)
	t.Cleanup(srv.Close)
	exec, err := backend.NewOpenSearch(backend.Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatalf("NewOpenSearch: %v", err)
	}
	return New(exec), fe
}

func TestSave_WritesTokensBack(t *testing.T) {
	tpl, fe := newTestTemplate(t)
	fe.on("PUT /products/_doc/p1", http.StatusCreated,
		`{"_index":"products","_id":"p1","_version":1,"_seq_no":7,"_primary_term":2,"result":"created"}`)

	p := &product{ID: "p1", Name: "lamp"}
	info, err := tpl.Save(context.Background(), p, query.WriteOptions{})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if info.ID != "p1" || info.Index != "products" {
		t.Errorf("info = %+v", info)
	}
	if p.OCC.SeqNo != 7 || p.OCC.PrimaryTerm != 2 {
		t.Errorf("tokens not written back: %+v", p.OCC)
	}
	call, _ := fe.last("PUT /products/_doc/p1")
	if strings.Contains(call.rawQuery, "if_seq_no") {
		t.Errorf("first save must be unconditional, query = %q", call.rawQuery)
	}
	if !strings.Contains(call.body, `"name":"lamp"`) {
		t.Errorf("body = %s", call.body)
	}

	if _, err := tpl.Save(context.Background(), p, query.WriteOptions{}); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	call, _ = fe.last("PUT /products/_doc/p1")
	if !strings.Contains(call.rawQuery, "if_seq_no=7") || !strings.Contains(call.rawQuery, "if_primary_term=2") {
		t.Errorf("second save query = %q", call.rawQuery)
	}
}

func TestSave_ConflictIsOptimisticLockingFailure(t *testing.T) {
	tpl, fe := newTestTemplate(t)
	fe.on("PUT /products/_doc/p1", http.StatusConflict,
		`{"error":{"type":"version_conflict_engine_exception","reason":"[p1]: version conflict, required seqNo [1]"},"status":409}`)

	p := &product{ID: "p1", OCC: metadata.SeqNoPrimaryTerm{SeqNo: 1, PrimaryTerm: 1}}
	_, err := tpl.Save(context.Background(), p, query.WriteOptions{})
	if !errors.Is(err, apierror.ErrOptimisticLockingFailure) {
		t.Fatalf("err = %v, want optimistic locking failure", err)
	}
}

func TestGetEntity(t *testing.T) {
	tpl, fe := newTestTemplate(t)
	fe.on("GET /products/_doc/p1", http.StatusOK,
		`{"_index":"products","_id":"p1","_version":3,"_seq_no":4,"_primary_term":1,"found":true,"_source":{"name":"desk"}}`)
	fe.on("GET /products/_doc/absent", http.StatusNotFound,
		`{"_index":"products","_id":"absent","found":false}`)

	p, err := GetEntity[product](context.Background(), tpl, "p1")
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if p == nil || p.Name != "desk" || p.ID != "p1" {
		t.Fatalf("entity = %+v", p)
	}
	if p.OCC.SeqNo != 4 || p.OCC.PrimaryTerm != 1 {
		t.Errorf("tokens = %+v", p.OCC)
	}

	missing, err := GetEntity[product](context.Background(), tpl, "absent")
	if err != nil || missing != nil {
		t.Fatalf("missing document: entity = %+v, err = %v", missing, err)
	}
}

func TestGet_IndexMissingIsError(t *testing.T) {
	tpl, fe := newTestTemplate(t)
	fe.on("GET /gone/_doc/1", http.StatusNotFound,
		`{"error":{"type":"index_not_found_exception","reason":"no such index [gone]","index":"gone"},"status":404}`)

	_, err := tpl.Get(context.Background(), "1", nil, query.IndexCoordinatesOf("gone"), compiler.GetOptions{})
	if !errors.Is(err, apierror.ErrIndexNotFound) {
		t.Fatalf("err = %v, want index not found", err)
	}
}

func TestDelete_MissingDocument(t *testing.T) {
	tpl, fe := newTestTemplate(t)
	fe.on("DELETE /products/_doc/p9", http.StatusNotFound,
		`{"_index":"products","_id":"p9","_version":1,"result":"not_found","_seq_no":5,"_primary_term":1}`)

	resp, err := tpl.Delete(context.Background(), &query.DeleteQuery{ID: "p9"}, nil, query.IndexCoordinatesOf("products"))
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if resp.Result != document.ResultNotFound {
		t.Errorf("Result = %v, want not_found", resp.Result)
	}
}

func TestStream_ScrollsAndClears(t *testing.T) {
	tpl, fe := newTestTemplate(t)
	fe.on("POST /products/_search", http.StatusOK,
		`{"_scroll_id":"s1","hits":{"total":{"value":3,"relation":"eq"},"hits":[{"_index":"products","_id":"1","_source":{"name":"a"}},{"_index":"products","_id":"2","_source":{"name":"b"}}]}}`)
	var pages int
	fe.handlers["POST /_search/scroll"] = func(w http.ResponseWriter, r *http.Request) {
		pages++
		w.Header().Set("Content-Type", "application/json")
		if pages == 1 {
			io.WriteString(w, `{"_scroll_id":"s2","hits":{"hits":[{"_index":"products","_id":"3","_source":{"name":"c"}}]}}`)
			return
		}
		io.WriteString(w, `{"_scroll_id":"s2","hits":{"hits":[]}}`)
	}
	fe.on("DELETE /_search/scroll", http.StatusOK, `{"succeeded":true,"num_freed":1}`)

	var ids []string
	err := tpl.Stream(context.Background(), query.MatchAll(), nil, query.IndexCoordinatesOf("products"),
		func(h document.SearchHit[*document.Document]) error {
			ids = append(ids, h.ID)
			return nil
		})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if strings.Join(ids, ",") != "1,2,3" {
		t.Errorf("ids = %v", ids)
	}
	search, _ := fe.last("POST /products/_search")
	if !strings.Contains(search.rawQuery, "scroll=1m") {
		t.Errorf("initial search query = %q, want default keep-alive", search.rawQuery)
	}
	cleared, ok := fe.last("DELETE /_search/scroll")
	if !ok || !strings.Contains(cleared.body, "s2") {
		t.Errorf("scroll not cleared: %+v", cleared)
	}
}

func TestStream_CallbackErrorStillClears(t *testing.T) {
	tpl, fe := newTestTemplate(t)
	fe.on("POST /products/_search", http.StatusOK,
		`{"_scroll_id":"s1","hits":{"hits":[{"_index":"products","_id":"1","_source":{}}]}}`)
	fe.on("DELETE /_search/scroll", http.StatusOK, `{"succeeded":true}`)

	stop := errors.New("stop")
	err := tpl.Stream(context.Background(), query.MatchAll(), nil, query.IndexCoordinatesOf("products"),
		func(document.SearchHit[*document.Document]) error { return stop })
	if !errors.Is(err, stop) {
		t.Fatalf("err = %v, want callback error", err)
	}
	if _, ok := fe.last("DELETE /_search/scroll"); !ok {
		t.Error("scroll not cleared after callback error")
	}
}

func TestCountAndIndexAdministration(t *testing.T) {
	tpl, fe := newTestTemplate(t)
	fe.on("POST /products/_count", http.StatusOK, `{"count":42}`)
	fe.on("HEAD /products", http.StatusOK, ``)
	fe.on("HEAD /absent", http.StatusNotFound, ``)
	fe.on("DELETE /absent", http.StatusNotFound,
		`{"error":{"type":"index_not_found_exception","reason":"no such index [absent]","index":"absent"},"status":404}`)
	fe.on("PUT /products", http.StatusOK, `{"acknowledged":true,"shards_acknowledged":true,"index":"products"}`)
	ctx := context.Background()
	idx := query.IndexCoordinatesOf("products")

	n, err := tpl.Count(ctx, query.MatchAll(), nil, idx)
	if err != nil || n != 42 {
		t.Fatalf("Count = %d, %v", n, err)
	}
	if ok, err := tpl.IndexExists(ctx, idx); err != nil || !ok {
		t.Errorf("IndexExists(products) = %v, %v", ok, err)
	}
	if ok, err := tpl.IndexExists(ctx, query.IndexCoordinatesOf("absent")); err != nil || ok {
		t.Errorf("IndexExists(absent) = %v, %v", ok, err)
	}
	if ok, err := tpl.DeleteIndex(ctx, query.IndexCoordinatesOf("absent")); err != nil || ok {
		t.Errorf("DeleteIndex(absent) = %v, %v", ok, err)
	}
	if ok, err := tpl.CreateIndex(ctx, idx, query.IndexSpec{}, nil); err != nil || !ok {
		t.Errorf("CreateIndex = %v, %v", ok, err)
	}
}

func TestDeleteMatching_ForcesRefresh(t *testing.T) {
	tpl, fe := newTestTemplate(t)
	fe.on("POST /products/_delete_by_query", http.StatusOK,
		`{"took":12,"total":2,"deleted":2,"batches":1,"version_conflicts":0,"failures":[]}`)

	resp, err := tpl.DeleteMatching(context.Background(), query.NewCriteriaQuery(query.Where("name").Is("lamp")), nil, query.IndexCoordinatesOf("products"))
	if err != nil {
		t.Fatalf("DeleteMatching: %v", err)
	}
	if resp.Deleted != 2 {
		t.Errorf("Deleted = %d, want 2", resp.Deleted)
	}
	call, _ := fe.last("POST /products/_delete_by_query")
	if !strings.Contains(call.rawQuery, "refresh=true") {
		t.Errorf("query = %q, want refresh=true", call.rawQuery)
	}
}

func TestBulk_EntitiesUseTheirMetadata(t *testing.T) {
	tpl, fe := newTestTemplate(t)
	fe.on("POST /products/_bulk", http.StatusOK, `{"took":3,"errors":false,"items":[
		{"index":{"_index":"products","_id":"p1","_version":2,"_seq_no":8,"_primary_term":1,"result":"updated","status":200}},
		{"index":{"_index":"products","_id":"auto-1","_version":1,"_seq_no":9,"_primary_term":1,"result":"created","status":201}}
	]}`)

	existing := &product{ID: "p1", Name: "lamp", OCC: metadata.SeqNoPrimaryTerm{SeqNo: 3, PrimaryTerm: 1}}
	fresh := &product{Name: "desk"}
	infos, err := tpl.Bulk(context.Background(), []query.BulkItem{
		&query.IndexQuery{Object: existing},
		&query.IndexQuery{Object: fresh},
	}, nil, query.IndexCoordinatesOf("products"), query.WriteOptions{})
	if err != nil {
		t.Fatalf("Bulk: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d infos, want 2", len(infos))
	}

	call, _ := fe.last("POST /products/_bulk")
	lines := strings.Split(strings.TrimSuffix(call.body, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 bulk lines, got %d: %q", len(lines), call.body)
	}
	for _, want := range []string{`"_id":"p1"`, `"if_seq_no":3`, `"if_primary_term":1`} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("action line %q missing %s", lines[0], want)
		}
	}
	if !strings.Contains(lines[1], `"name":"lamp"`) || strings.Contains(lines[1], "SeqNo") || strings.Contains(lines[1], "OCC") {
		t.Errorf("document line = %q", lines[1])
	}
	if strings.Contains(lines[2], "_id") || strings.Contains(lines[2], "if_seq_no") {
		t.Errorf("new entity must get an engine id and no tokens: %q", lines[2])
	}

	if existing.OCC.SeqNo != 8 || existing.OCC.PrimaryTerm != 1 {
		t.Errorf("tokens not written back: %+v", existing.OCC)
	}
	if fresh.ID != "auto-1" || fresh.OCC.SeqNo != 9 {
		t.Errorf("new entity not written back: %+v", fresh)
	}
}

func TestBulk_PartialFailure(t *testing.T) {
	tpl, fe := newTestTemplate(t)
	fe.on("POST /products/_bulk", http.StatusOK, `{"took":3,"errors":true,"items":[
		{"index":{"_index":"products","_id":"p1","_version":2,"_seq_no":8,"_primary_term":1,"result":"updated","status":200}},
		{"index":{"_index":"products","_id":"p2","status":409,"error":{"type":"version_conflict_engine_exception","reason":"[p2]: version conflict"}}}
	]}`)

	first := &product{ID: "p1", Name: "lamp"}
	_, err := tpl.Bulk(context.Background(), []query.BulkItem{
		&query.IndexQuery{Object: first},
		&query.IndexQuery{Object: &product{ID: "p2", Name: "desk"}},
	}, nil, query.IndexCoordinatesOf("products"), query.WriteOptions{})

	var bf *apierror.BulkFailureError
	if !errors.As(err, &bf) {
		t.Fatalf("err = %v, want *apierror.BulkFailureError", err)
	}
	if len(bf.Failures) != 1 || !strings.Contains(bf.Failures["p2"], "version conflict") {
		t.Errorf("failures = %v", bf.Failures)
	}
	if first.OCC.SeqNo != 0 {
		t.Errorf("a failed batch must not write back, got %+v", first.OCC)
	}
}

func TestUpdate_ResolvesSourceFilter(t *testing.T) {
	tpl, fe := newTestTemplate(t)
	fe.on("POST /products/_update/p1", http.StatusOK,
		`{"_index":"products","_id":"p1","_version":2,"_seq_no":9,"_primary_term":1,"result":"updated"}`)

	e, err := tpl.Registry().Get(reflect.TypeOf(product{}))
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	doc := document.New()
	doc.Put("name", "desk")
	resp, err := tpl.Update(context.Background(), &query.UpdateQuery{
		ID:           "p1",
		Doc:          doc,
		SourceFilter: query.FetchSource("Name"),
	}, e, query.IndexCoordinatesOf("products"))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if resp.Result != document.ResultUpdated {
		t.Errorf("Result = %v, want updated", resp.Result)
	}
	call, _ := fe.last("POST /products/_update/p1")
	if !strings.Contains(call.rawQuery, "_source_includes=name") {
		t.Errorf("query = %q, want the wire field name", call.rawQuery)
	}
}

func TestStream_StopsAtMaxResults(t *testing.T) {
	tpl, fe := newTestTemplate(t)
	fe.on("POST /products/_search", http.StatusOK,
		`{"_scroll_id":"s1","hits":{"hits":[{"_index":"products","_id":"1","_source":{}},{"_index":"products","_id":"2","_source":{}}]}}`)
	var pages int
	fe.handlers["POST /_search/scroll"] = func(w http.ResponseWriter, r *http.Request) {
		pages++
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"_scroll_id":"s1","hits":{"hits":[{"_index":"products","_id":"3","_source":{}},{"_index":"products","_id":"4","_source":{}}]}}`)
	}
	fe.on("DELETE /_search/scroll", http.StatusOK, `{"succeeded":true}`)

	var ids []string
	err := tpl.Stream(context.Background(), query.MatchAll().WithMaxResults(3), nil, query.IndexCoordinatesOf("products"),
		func(h document.SearchHit[*document.Document]) error {
			ids = append(ids, h.ID)
			return nil
		})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if strings.Join(ids, ",") != "1,2,3" {
		t.Errorf("ids = %v, want 1,2,3", ids)
	}
	if pages != 1 {
		t.Errorf("scroll pages = %d, want 1", pages)
	}
	if _, ok := fe.last("DELETE /_search/scroll"); !ok {
		t.Error("scroll not cleared")
	}
}
