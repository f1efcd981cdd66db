package document

import (
	"encoding/json"
	"fmt"
	"math"
)

// TotalHitsRelation qualifies SearchHits.TotalHits.
type TotalHitsRelation int

const (
	// EqualTo means the total is exact.
	EqualTo TotalHitsRelation = iota
	// GreaterThanOrEqualTo means the engine stopped counting at a threshold.
	GreaterThanOrEqualTo
	// Off means the engine did not track totals; the count is the number of
	// returned hits.
	Off
)

func (r TotalHitsRelation) String() string {
	switch r {
	case EqualTo:
		return "eq"
	case GreaterThanOrEqualTo:
		return "gte"
	case Off:
		return "off"
	default:
		return "unknown"
	}
}

// NestedMetadata locates a nested hit inside its root document.
type NestedMetadata struct {
	Field  string
	Offset int
	Child  *NestedMetadata
}

// SearchHit is one hit of a search response.
type SearchHit[T any] struct {
	Index          string
	ID             string
	Routing        string
	Score          float64
	SortValues     []any
	Highlight      map[string][]string
	InnerHits      map[string]*SearchHits[T]
	Nested         *NestedMetadata
	Explanation    json.RawMessage
	MatchedQueries []string
	Content        T
}

// HasScore reports whether the engine computed a score for the hit.
func (h SearchHit[T]) HasScore() bool { return !math.IsNaN(h.Score) }

// HighlightField returns the fragments for field.
func (h SearchHit[T]) HighlightField(field string) []string {
	if h.Highlight == nil {
		return nil
	}
	return h.Highlight[field]
}

// SearchHits is the uniform result of one search (or one scroll/PIT page).
type SearchHits[T any] struct {
	TotalHits         int64
	TotalHitsRelation TotalHitsRelation
	MaxScore          float64
	ScrollID          string
	PointInTimeID     string
	Hits              []SearchHit[T]
	Aggregations      *Aggregations
	Suggest           *Suggest
}

// Len returns the number of returned hits.
func (s *SearchHits[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Hits)
}

// HasAggregations reports whether the response carried aggregations.
func (s *SearchHits[T]) HasAggregations() bool {
	return s != nil && s.Aggregations != nil && s.Aggregations.Len() > 0
}

// Contents returns the content of every hit in order.
func (s *SearchHits[T]) Contents() []T {
	out := make([]T, 0, s.Len())
	for _, h := range s.Hits {
		out = append(out, h.Content)
	}
	return out
}

// ConvertHits maps the document content of every hit (and of inner hits)
// through read. Hits keep their order.
func ConvertHits[T any](src *SearchHits[*Document], read func(*Document) (T, error)) (*SearchHits[T], error) {
	if src == nil {
		return nil, nil
	}
	out := &SearchHits[T]{
		TotalHits:         src.TotalHits,
		TotalHitsRelation: src.TotalHitsRelation,
		MaxScore:          src.MaxScore,
		ScrollID:          src.ScrollID,
		PointInTimeID:     src.PointInTimeID,
		Aggregations:      src.Aggregations,
		Suggest:           src.Suggest,
		Hits:              make([]SearchHit[T], 0, len(src.Hits)),
	}
	for i, h := range src.Hits {
		content, err := read(h.Content)
		if err != nil {
			return nil, fmt.Errorf("reading hit %d (id %q): %w", i, h.ID, err)
		}
		var inner map[string]*SearchHits[T]
		if len(h.InnerHits) > 0 {
			inner = make(map[string]*SearchHits[T], len(h.InnerHits))
			for name, ih := range h.InnerHits {
				converted, err := ConvertHits(ih, read)
				if err != nil {
					return nil, fmt.Errorf("reading inner hits %q: %w", name, err)
				}
				inner[name] = converted
			}
		}
		out.Hits = append(out.Hits, SearchHit[T]{
			Index:          h.Index,
			ID:             h.ID,
			Routing:        h.Routing,
			Score:          h.Score,
			SortValues:     h.SortValues,
			Highlight:      h.Highlight,
			InnerHits:      inner,
			Nested:         h.Nested,
			Explanation:    h.Explanation,
			MatchedQueries: h.MatchedQueries,
			Content:        content,
		})
	}
	return out, nil
}

// IndexedObjectInformation is the acknowledgement of a single write.
type IndexedObjectInformation struct {
	ID          string
	Index       string
	SeqNo       *int64
	PrimaryTerm *int64
	Version     *int64
}
