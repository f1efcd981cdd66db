package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorCause is an engine error object.
type ErrorCause struct {
	Type     string      `json:"type"`
	Reason   string      `json:"reason"`
	Index    string      `json:"index,omitempty"`
	ID       string      `json:"id,omitempty"`
	CausedBy *ErrorCause `json:"caused_by,omitempty"`
}

// Message renders the cause chain as "type: reason (caused by ...)".
func (e *ErrorCause) Message() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Type)
	if e.Reason != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Reason)
	}
	if e.CausedBy != nil {
		b.WriteString(" (caused by ")
		b.WriteString(e.CausedBy.Message())
		b.WriteString(")")
	}
	return b.String()
}

// TotalHits is hits.total. Old engines send a plain integer which decodes
// as an "eq" relation.
type TotalHits struct {
	Value    int64  `json:"value"`
	Relation string `json:"relation"`
}

func (t *TotalHits) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] != '{' {
		var n int64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("decoding total hits: %w", err)
		}
		t.Value, t.Relation = n, "eq"
		return nil
	}
	type plain TotalHits
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*t = TotalHits(p)
	return nil
}

// ShardStats is the _shards section of a response.
type ShardStats struct {
	Total      int               `json:"total"`
	Successful int               `json:"successful"`
	Skipped    int               `json:"skipped"`
	Failed     int               `json:"failed"`
	Failures   []ShardFailureRaw `json:"failures,omitempty"`
}

// ShardFailureRaw is one failed shard of a search or by-query scroll.
type ShardFailureRaw struct {
	Index  string      `json:"index"`
	Shard  *int        `json:"shard"`
	Node   string      `json:"node"`
	Status string      `json:"status"`
	Reason *ErrorCause `json:"reason"`
}

// NestedIdentity is the _nested marker of a nested inner hit.
type NestedIdentity struct {
	Field  string          `json:"field"`
	Offset int             `json:"offset"`
	Nested *NestedIdentity `json:"_nested,omitempty"`
}

// Hit is one search hit.
type Hit struct {
	Index          string                     `json:"_index"`
	ID             string                     `json:"_id"`
	Score          *float64                   `json:"_score"`
	Routing        string                     `json:"_routing,omitempty"`
	Version        *int64                     `json:"_version,omitempty"`
	SeqNo          *int64                     `json:"_seq_no,omitempty"`
	PrimaryTerm    *int64                     `json:"_primary_term,omitempty"`
	Source         json.RawMessage            `json:"_source,omitempty"`
	Fields         map[string]json.RawMessage `json:"fields,omitempty"`
	Highlight      map[string][]string        `json:"highlight,omitempty"`
	Sort           []json.RawMessage          `json:"sort,omitempty"`
	InnerHits      map[string]InnerHits       `json:"inner_hits,omitempty"`
	Nested         *NestedIdentity            `json:"_nested,omitempty"`
	Explanation    json.RawMessage            `json:"_explanation,omitempty"`
	MatchedQueries json.RawMessage            `json:"matched_queries,omitempty"`
}

// InnerHits wraps the hits section of one named inner hit.
type InnerHits struct {
	Hits HitsSection `json:"hits"`
}

// HitsSection is the hits object of a search response.
type HitsSection struct {
	Total    *TotalHits `json:"total,omitempty"`
	MaxScore *float64   `json:"max_score"`
	Hits     []Hit      `json:"hits"`
}

// SuggestEntryRaw is one entry of a named suggestion. Options stay raw
// because their shape depends on the suggester.
type SuggestEntryRaw struct {
	Text    string            `json:"text"`
	Offset  int               `json:"offset"`
	Length  int               `json:"length"`
	Options []json.RawMessage `json:"options"`
}

// SearchResponse is the body of a search or scroll response.
type SearchResponse struct {
	Took         int64                        `json:"took"`
	TimedOut     bool                         `json:"timed_out"`
	ScrollID     string                       `json:"_scroll_id,omitempty"`
	PitID        string                       `json:"pit_id,omitempty"`
	Shards       *ShardStats                  `json:"_shards,omitempty"`
	Hits         HitsSection                  `json:"hits"`
	Aggregations map[string]json.RawMessage   `json:"aggregations,omitempty"`
	Suggest      map[string][]SuggestEntryRaw `json:"suggest,omitempty"`
	// TypedKeys is set by the caller when the request asked for typed keys.
	TypedKeys bool `json:"-"`
}

// MultiSearchItem is one response of a multi-search; Error is set when
// that search failed.
type MultiSearchItem struct {
	SearchResponse
	Status int         `json:"status"`
	Error  *ErrorCause `json:"error,omitempty"`
}

// MultiSearchResponse is the body of a multi-search response.
type MultiSearchResponse struct {
	Took      int64             `json:"took"`
	Responses []MultiSearchItem `json:"responses"`
}

// GetResponse is the body of a get and one doc of a multi-get.
type GetResponse struct {
	Index       string          `json:"_index"`
	ID          string          `json:"_id"`
	Version     *int64          `json:"_version,omitempty"`
	SeqNo       *int64          `json:"_seq_no,omitempty"`
	PrimaryTerm *int64          `json:"_primary_term,omitempty"`
	Routing     string          `json:"_routing,omitempty"`
	Found       bool            `json:"found"`
	Source      json.RawMessage `json:"_source,omitempty"`
	Error       *ErrorCause     `json:"error,omitempty"`
}

// MultiGetResponse is the body of a multi-get response.
type MultiGetResponse struct {
	Docs []GetResponse `json:"docs"`
}

// WriteResponse acknowledges an index, update or delete.
type WriteResponse struct {
	Index       string       `json:"_index"`
	ID          string       `json:"_id"`
	Version     *int64       `json:"_version,omitempty"`
	Result      string       `json:"result"`
	SeqNo       *int64       `json:"_seq_no,omitempty"`
	PrimaryTerm *int64       `json:"_primary_term,omitempty"`
	Shards      *ShardStats  `json:"_shards,omitempty"`
	Get         *GetResponse `json:"get,omitempty"`
}

// BulkItemResult is the outcome of one bulk item.
type BulkItemResult struct {
	Index       string      `json:"_index"`
	ID          string      `json:"_id"`
	Version     *int64      `json:"_version,omitempty"`
	Result      string      `json:"result,omitempty"`
	SeqNo       *int64      `json:"_seq_no,omitempty"`
	PrimaryTerm *int64      `json:"_primary_term,omitempty"`
	Status      int         `json:"status"`
	Error       *ErrorCause `json:"error,omitempty"`
}

// BulkResponseItem is one item of a bulk response, keyed by its action.
type BulkResponseItem map[string]BulkItemResult

// Result returns the item's outcome whatever its action.
func (i BulkResponseItem) Result() (string, BulkItemResult) {
	for action, r := range i {
		return action, r
	}
	return "", BulkItemResult{}
}

// BulkResponse is the body of a bulk response.
type BulkResponse struct {
	Took   int64              `json:"took"`
	Errors bool               `json:"errors"`
	Items  []BulkResponseItem `json:"items"`
}

// ByQueryFailureRaw is one bulk failure of a by-query or reindex run.
type ByQueryFailureRaw struct {
	Index  string      `json:"index"`
	ID     string      `json:"id"`
	Status int         `json:"status"`
	Cause  *ErrorCause `json:"cause,omitempty"`
	// Search failures carry the cause under "reason".
	Reason  *ErrorCause `json:"reason,omitempty"`
	Shard   *int        `json:"shard,omitempty"`
	Node    string      `json:"node,omitempty"`
	Aborted bool        `json:"aborted,omitempty"`
}

// ByQueryResponse is the body of update-by-query, delete-by-query and
// reindex responses. With wait_for_completion=false only Task is set.
type ByQueryResponse struct {
	Took                 int64   `json:"took"`
	TimedOut             bool    `json:"timed_out"`
	Total                int64   `json:"total"`
	Created              int64   `json:"created"`
	Updated              int64   `json:"updated"`
	Deleted              int64   `json:"deleted"`
	Batches              int     `json:"batches"`
	VersionConflicts     int64   `json:"version_conflicts"`
	Noops                int64   `json:"noops"`
	RequestsPerSecond    float64 `json:"requests_per_second"`
	ThrottledMillis      int64   `json:"throttled_millis"`
	ThrottledUntilMillis int64   `json:"throttled_until_millis"`
	Retries              struct {
		Bulk   int64 `json:"bulk"`
		Search int64 `json:"search"`
	} `json:"retries"`
	Failures []ByQueryFailureRaw `json:"failures"`
	Task     string              `json:"task,omitempty"`
}

// CountResponse is the body of a count response.
type CountResponse struct {
	Count int64 `json:"count"`
}

// PointInTimeResponse is the body of an open point-in-time response.
// Elasticsearch names the id "id" and OpenSearch "pit_id".
type PointInTimeResponse struct {
	ESID string `json:"id,omitempty"`
	OSID string `json:"pit_id,omitempty"`
}

// ID returns the point-in-time id for either dialect.
func (p PointInTimeResponse) ID() string {
	if p.OSID != "" {
		return p.OSID
	}
	return p.ESID
}

// AcknowledgedResponse is the body of index and alias administration calls.
type AcknowledgedResponse struct {
	Acknowledged       bool   `json:"acknowledged"`
	ShardsAcknowledged bool   `json:"shards_acknowledged,omitempty"`
	Index              string `json:"index,omitempty"`
}

// InfoResponse is the body of the root endpoint.
type InfoResponse struct {
	Name        string `json:"name"`
	ClusterName string `json:"cluster_name"`
	Version     struct {
		Number       string `json:"number"`
		Distribution string `json:"distribution,omitempty"`
	} `json:"version"`
}
