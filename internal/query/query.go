// Package query holds the engine-agnostic description of searches and
// writes. Values here carry no behavior beyond their invariants; the
// compiler package turns them into wire requests.
package query

import (
	"encoding/json"
	"time"
)

// Body is the query part of a Query. It is sealed: the only variants are
// *CriteriaQuery, *NativeQuery and *StringQuery.
type Body interface {
	body()
}

// CriteriaQuery is a query described by a criteria tree.
type CriteriaQuery struct {
	Criteria *Criteria
}

// NativeQuery passes a pre-built engine query through unchanged. Filter is
// applied as a post filter.
type NativeQuery struct {
	Query  json.RawMessage
	Filter json.RawMessage
	// HighlightFields is the legacy way of requesting highlighting on a
	// native query. It is used only when Query.Highlight is nil.
	HighlightFields []HighlightField
}

// StringQuery is a complete engine query given as JSON text. Placeholders
// must already be resolved.
type StringQuery struct {
	Source string
}

func (*CriteriaQuery) body() {}
func (*NativeQuery) body()   {}
func (*StringQuery) body()   {}

// SearchType selects the engine's scoring strategy.
type SearchType int

const (
	SearchTypeDefault SearchType = iota
	QueryThenFetch
	DfsQueryThenFetch
)

func (s SearchType) String() string {
	switch s {
	case QueryThenFetch:
		return "query_then_fetch"
	case DfsQueryThenFetch:
		return "dfs_query_then_fetch"
	default:
		return ""
	}
}

// Query describes a search. It is built per call, mutated by the caller and
// then only read by the compiler.
type Query struct {
	Body Body

	Sort       []Order
	Page       *Page
	MaxResults *int

	Highlight      *Highlight
	SourceFilter   *SourceFilter
	StoredFields   []string
	ScriptFields   []ScriptedField
	DocValueFields []string

	IndicesOptions *IndicesOptions
	Route          string
	Preference     string
	SearchType     SearchType

	MinScore           *float64
	TrackScores        bool
	TrackTotalHits     *bool
	TrackTotalHitsUpTo *int
	Timeout            time.Duration
	Explain            bool
	SearchAfter        []any
	RequestCache       *bool

	Rescorers []Rescorer

	Aggregations         []Aggregation
	PipelineAggregations []Aggregation
	Collapse             *Collapse
	IndicesBoost         []IndexBoost
	Suggest              *SuggestBuilder
	Ext                  map[string]json.RawMessage

	Scroll      time.Duration
	PointInTime *PointInTime

	// IDs restricts multi-get requests to these documents.
	IDs []string
}

// NewCriteriaQuery returns a query over the given criteria tree.
func NewCriteriaQuery(c *Criteria) *Query {
	return &Query{Body: &CriteriaQuery{Criteria: c}}
}

// NewNativeQuery returns a query that passes q through unchanged.
func NewNativeQuery(q json.RawMessage) *Query {
	return &Query{Body: &NativeQuery{Query: q}}
}

// NewStringQuery returns a query from JSON text.
func NewStringQuery(source string) *Query {
	return &Query{Body: &StringQuery{Source: source}}
}

// MatchAll returns a query matching every document.
func MatchAll() *Query {
	return NewCriteriaQuery(nil)
}

// IsLimiting reports whether MaxResults caps the returned hits.
func (q *Query) IsLimiting() bool { return q.MaxResults != nil }

// WithPage sets offset based pagination.
func (q *Query) WithPage(p Page) *Query {
	q.Page = &p
	return q
}

// WithSort appends sort orders.
func (q *Query) WithSort(orders ...Order) *Query {
	q.Sort = append(q.Sort, orders...)
	return q
}

// WithMaxResults caps the number of returned hits.
func (q *Query) WithMaxResults(n int) *Query {
	q.MaxResults = &n
	return q
}

// Aggregation is a named aggregation given in engine syntax.
type Aggregation struct {
	Name string
	Body json.RawMessage
}

// Collapse folds hits sharing a field value.
type Collapse struct {
	Field                      string
	InnerHits                  json.RawMessage
	MaxConcurrentGroupSearches int
}

// IndexBoost multiplies scores of hits from one index.
type IndexBoost struct {
	Index string
	Boost float64
}

// PointInTime continues a search on a point-in-time snapshot.
type PointInTime struct {
	ID        string
	KeepAlive time.Duration
}
