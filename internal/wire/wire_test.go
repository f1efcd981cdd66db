package wire

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		0:                       "",
		-time.Second:            "",
		2 * time.Hour:           "2h",
		90 * time.Minute:        "90m",
		time.Minute:             "1m",
		30 * time.Second:        "30s",
		1500 * time.Millisecond: "1500ms",
		1500 * time.Microsecond: "1500micros",
	}
	for d, want := range cases {
		if got := FormatDuration(d); got != want {
			t.Errorf("FormatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{"": Elasticsearch, "ES": Elasticsearch, "opensearch": OpenSearch, " os ": OpenSearch} {
		got, err := ParseDialect(in)
		if err != nil || got != want {
			t.Errorf("ParseDialect(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseDialect("solr"); err == nil {
		t.Fatalf("expected error for unknown dialect")
	}
}

func TestSearchRequest_PathAndParams(t *testing.T) {
	size := 20
	req, err := (&SearchRequest{
		Indices:    []string{"orders", "archive"},
		Source:     &SearchSource{Size: &size},
		Routing:    "r1",
		Scroll:     time.Minute,
		SearchType: "dfs_query_then_fetch",
	}).Encode(Elasticsearch)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if req.Method != http.MethodPost || req.Path != "/orders,archive/_search" {
		t.Fatalf("unexpected %s %s", req.Method, req.Path)
	}
	if req.Params.Get("scroll") != "1m" || req.Params.Get("routing") != "r1" || req.Params.Get("search_type") != "dfs_query_then_fetch" {
		t.Fatalf("unexpected params: %v", req.Params)
	}
	if string(req.Body) != `{"size":20}` {
		t.Fatalf("unexpected body: %s", req.Body)
	}
}

func TestSearchRequest_PointInTimeDropsIndices(t *testing.T) {
	req, err := (&SearchRequest{
		Indices: []string{"orders"},
		Source:  &SearchSource{PIT: &PointInTime{ID: "abc", KeepAlive: "1m"}},
	}).Encode(OpenSearch)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if req.Path != "/_search" {
		t.Fatalf("expected index-less path, got %s", req.Path)
	}
	if !strings.Contains(string(req.Body), `"pit":{"id":"abc","keep_alive":"1m"}`) {
		t.Fatalf("unexpected body: %s", req.Body)
	}
}

func TestPointInTime_DialectPaths(t *testing.T) {
	open := &OpenPointInTimeRequest{Indices: []string{"orders"}}

	es, err := open.Encode(Elasticsearch)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if es.Path != "/orders/_pit" || es.Params.Get("keep_alive") != "1m" {
		t.Fatalf("unexpected es open: %s %v", es.Path, es.Params)
	}
	os, err := open.Encode(OpenSearch)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if os.Path != "/orders/_search/point_in_time" {
		t.Fatalf("unexpected opensearch open: %s", os.Path)
	}

	closeReq := &ClosePointInTimeRequest{ID: "p1"}
	es, _ = closeReq.Encode(Elasticsearch)
	if es.Method != http.MethodDelete || es.Path != "/_pit" || string(es.Body) != `{"id":"p1"}` {
		t.Fatalf("unexpected es close: %s %s %s", es.Method, es.Path, es.Body)
	}
	os, _ = closeReq.Encode(OpenSearch)
	if os.Path != "/_search/point_in_time" || string(os.Body) != `{"pit_id":["p1"]}` {
		t.Fatalf("unexpected opensearch close: %s %s", os.Path, os.Body)
	}

	if _, err := (&OpenPointInTimeRequest{}).Encode(Elasticsearch); err == nil {
		t.Fatalf("expected error without indices")
	}
}

func TestBulkRequest_NDJSON(t *testing.T) {
	seq, term := int64(3), int64(1)
	req, err := (&BulkRequest{
		Index: "orders",
		Items: []BulkItem{
			{Action: BulkIndex, Meta: BulkMeta{ID: "1"}, Body: json.RawMessage("{\n  \"a\": 1\n}")},
			{Action: BulkUpdate, Meta: BulkMeta{ID: "2", IfSeqNo: &seq, IfPrimaryTerm: &term}, Body: json.RawMessage(`{"doc":{"b":2}}`)},
			{Action: BulkDelete, Meta: BulkMeta{ID: "3"}},
		},
		WriteParams: WriteParams{Refresh: "wait_for"},
	}).Encode(Elasticsearch)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"index":{"_id":"1"}}` + "\n" +
		`{"a":1}` + "\n" +
		`{"update":{"_id":"2","if_seq_no":3,"if_primary_term":1}}` + "\n" +
		`{"doc":{"b":2}}` + "\n" +
		`{"delete":{"_id":"3"}}` + "\n"
	if string(req.Body) != want {
		t.Fatalf("unexpected body:\n%s\nwant:\n%s", req.Body, want)
	}
	if req.Path != "/orders/_bulk" || req.ContentType != ContentTypeNDJSON || req.Params.Get("refresh") != "wait_for" {
		t.Fatalf("unexpected request: %s %s %v", req.Path, req.ContentType, req.Params)
	}
}

func TestBulkRequest_Errors(t *testing.T) {
	if _, err := (&BulkRequest{}).Encode(Elasticsearch); err == nil {
		t.Fatalf("expected error for empty bulk")
	}
	_, err := (&BulkRequest{Items: []BulkItem{{Action: BulkIndex, Meta: BulkMeta{ID: "1"}}}}).Encode(Elasticsearch)
	if err == nil {
		t.Fatalf("expected error for index item without body")
	}
}

func TestMultiSearchRequest(t *testing.T) {
	req, err := (&MultiSearchRequest{Searches: []*SearchRequest{
		{Indices: []string{"a"}},
		{Indices: []string{"b"}, Routing: "x", IndicesOptions: &IndicesOptions{ExpandWildcards: []string{"open"}}},
	}}).Encode(Elasticsearch)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(req.Body), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), req.Body)
	}
	if lines[0] != `{"index":["a"]}` || lines[2] != `{"index":["b"],"routing":"x","expand_wildcards":["open"]}` {
		t.Fatalf("unexpected headers: %q / %q", lines[0], lines[2])
	}
	if lines[1] != `{}` {
		t.Fatalf("unexpected body line: %q", lines[1])
	}
}

func TestTypedKeysParam(t *testing.T) {
	search, err := (&SearchRequest{Indices: []string{"songs"}, TypedKeys: true}).Encode(OpenSearch)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if search.Params.Get("typed_keys") != "true" {
		t.Errorf("search params = %v, want typed_keys=true", search.Params)
	}

	multi, err := (&MultiSearchRequest{Searches: []*SearchRequest{
		{Indices: []string{"a"}},
		{Indices: []string{"b"}, TypedKeys: true},
	}}).Encode(OpenSearch)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if multi.Params.Get("typed_keys") != "true" {
		t.Errorf("msearch params = %v, want typed_keys=true", multi.Params)
	}

	plain, _ := (&SearchRequest{Indices: []string{"songs"}}).Encode(OpenSearch)
	if plain.Params.Has("typed_keys") {
		t.Errorf("typed_keys sent without suggestions: %v", plain.Params)
	}
}

func TestDocumentRequests(t *testing.T) {
	seq, term := int64(7), int64(2)
	idx, err := (&IndexRequest{
		Index:       "orders",
		ID:          "_weird id",
		Source:      json.RawMessage(`{"x":1}`),
		OpType:      "create",
		Concurrency: Concurrency{IfSeqNo: &seq, IfPrimaryTerm: &term},
	}).Encode(Elasticsearch)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if idx.Method != http.MethodPut || idx.Path != "/orders/_doc/_weird%20id" {
		t.Fatalf("unexpected index request: %s %s", idx.Method, idx.Path)
	}
	if idx.URL() != "/orders/_doc/_weird%20id?if_primary_term=2&if_seq_no=7&op_type=create" {
		t.Fatalf("unexpected url: %s", idx.URL())
	}

	auto, _ := (&IndexRequest{Index: "orders", Source: json.RawMessage(`{}`)}).Encode(Elasticsearch)
	if auto.Method != http.MethodPost || auto.Path != "/orders/_doc" {
		t.Fatalf("unexpected auto-id request: %s %s", auto.Method, auto.Path)
	}

	get, _ := (&GetRequest{Index: "orders", ID: "1", Source: SourceParams{Includes: []string{"a", "b"}}}).Encode(Elasticsearch)
	if get.URL() != "/orders/_doc/1?_source_includes=a%2Cb" {
		t.Fatalf("unexpected get url: %s", get.URL())
	}

	upd, _ := (&UpdateRequest{Index: "orders", ID: "1", Body: UpdateBody{Doc: json.RawMessage(`{"y":2}`)}}).Encode(Elasticsearch)
	if upd.Path != "/orders/_update/1" || string(upd.Body) != `{"doc":{"y":2}}` {
		t.Fatalf("unexpected update: %s %s", upd.Path, upd.Body)
	}
}

func TestByQueryRequests(t *testing.T) {
	refresh := true
	dbq, err := (&DeleteByQueryRequest{
		Indices:       []string{"orders"},
		Query:         json.RawMessage(`{"match_all":{}}`),
		ScrollSize:    intPtr(500),
		ByQueryParams: ByQueryParams{Conflicts: "proceed", Refresh: &refresh},
	}).Encode(Elasticsearch)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if dbq.Path != "/orders/_delete_by_query" || dbq.Params.Get("conflicts") != "proceed" || dbq.Params.Get("scroll_size") != "500" || dbq.Params.Get("refresh") != "true" {
		t.Fatalf("unexpected dbq: %s", dbq.URL())
	}

	rx, err := (&ReindexRequest{
		Body: ReindexBody{
			Conflicts: "proceed",
			Source:    ReindexSource{Index: []string{"a"}},
			Dest:      ReindexDest{Index: "b"},
		},
		ByQueryParams: ByQueryParams{Conflicts: "proceed", Slices: "auto"},
	}).Encode(Elasticsearch)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if rx.Params.Has("conflicts") || rx.Params.Get("slices") != "auto" {
		t.Fatalf("unexpected reindex params: %v", rx.Params)
	}
	if string(rx.Body) != `{"conflicts":"proceed","source":{"index":["a"]},"dest":{"index":"b"}}` {
		t.Fatalf("unexpected reindex body: %s", rx.Body)
	}
	if _, err := (&ReindexRequest{}).Encode(Elasticsearch); err == nil {
		t.Fatalf("expected error without indices")
	}
}

func TestAliasAction_JSON(t *testing.T) {
	write := true
	b, err := json.Marshal([]AliasAction{
		{Type: "add", Indices: []string{"orders-1"}, Alias: "orders", Body: AliasBody{IsWriteIndex: &write, Routing: "1"}},
		{Type: "remove_index", Indices: []string{"orders-0"}, Alias: "ignored"},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[{"add":{"alias":"orders","indices":["orders-1"],"is_write_index":true,"routing":"1"}},{"remove_index":{"indices":["orders-0"]}}]`
	if string(b) != want {
		t.Fatalf("got %s\nwant %s", b, want)
	}
}

func TestTotalHits_Decode(t *testing.T) {
	var legacy, modern struct {
		Total TotalHits `json:"total"`
	}
	if err := json.Unmarshal([]byte(`{"total": 42}`), &legacy); err != nil {
		t.Fatalf("legacy: %v", err)
	}
	if legacy.Total.Value != 42 || legacy.Total.Relation != "eq" {
		t.Fatalf("unexpected legacy total: %+v", legacy.Total)
	}
	if err := json.Unmarshal([]byte(`{"total":{"value":10000,"relation":"gte"}}`), &modern); err != nil {
		t.Fatalf("modern: %v", err)
	}
	if modern.Total.Value != 10000 || modern.Total.Relation != "gte" {
		t.Fatalf("unexpected modern total: %+v", modern.Total)
	}
}

func TestPointInTimeResponse_ID(t *testing.T) {
	var es, os PointInTimeResponse
	_ = json.Unmarshal([]byte(`{"id":"e1"}`), &es)
	_ = json.Unmarshal([]byte(`{"pit_id":"o1","creation_time":1}`), &os)
	if es.ID() != "e1" || os.ID() != "o1" {
		t.Fatalf("unexpected ids: %q %q", es.ID(), os.ID())
	}
}

func TestErrorCause_Message(t *testing.T) {
	e := &ErrorCause{Type: "a", Reason: "b", CausedBy: &ErrorCause{Type: "c", Reason: "d"}}
	if got := e.Message(); got != "a: b (caused by c: d)" {
		t.Fatalf("unexpected message: %q", got)
	}
	var nilCause *ErrorCause
	if nilCause.Message() != "" {
		t.Fatalf("nil cause should render empty")
	}
}

func intPtr(v int) *int { return &v }
