package wire

import (
	"encoding/json"
)

// SearchSource is the body of a search request.
type SearchSource struct {
	Query            json.RawMessage            `json:"query,omitempty"`
	PostFilter       json.RawMessage            `json:"post_filter,omitempty"`
	From             *int                       `json:"from,omitempty"`
	Size             *int                       `json:"size,omitempty"`
	Version          *bool                      `json:"version,omitempty"`
	SeqNoPrimaryTerm *bool                      `json:"seq_no_primary_term,omitempty"`
	TrackScores      *bool                      `json:"track_scores,omitempty"`
	TrackTotalHits   any                        `json:"track_total_hits,omitempty"`
	Source           *SourceFilter              `json:"_source,omitempty"`
	StoredFields     []string                   `json:"stored_fields,omitempty"`
	DocValueFields   []string                   `json:"docvalue_fields,omitempty"`
	Sort             []SortOption               `json:"sort,omitempty"`
	Highlight        *Highlight                 `json:"highlight,omitempty"`
	Rescore          []Rescore                  `json:"rescore,omitempty"`
	ScriptFields     map[string]ScriptField     `json:"script_fields,omitempty"`
	Aggregations     map[string]json.RawMessage `json:"aggs,omitempty"`
	Collapse         *Collapse                  `json:"collapse,omitempty"`
	IndicesBoost     []map[string]float64       `json:"indices_boost,omitempty"`
	Suggest          map[string]any             `json:"suggest,omitempty"`
	Ext              map[string]json.RawMessage `json:"ext,omitempty"`
	MinScore         *float64                   `json:"min_score,omitempty"`
	Timeout          string                     `json:"timeout,omitempty"`
	Explain          *bool                      `json:"explain,omitempty"`
	SearchAfter      []any                      `json:"search_after,omitempty"`
	PIT              *PointInTime               `json:"pit,omitempty"`
	Slice            *Slice                     `json:"slice,omitempty"`
}

// SourceFilter is the _source include/exclude object.
type SourceFilter struct {
	Includes []string `json:"includes,omitempty"`
	Excludes []string `json:"excludes,omitempty"`
}

// SortOption is one entry of a sort list, encoded as {Field: Spec}.
type SortOption struct {
	Field string
	Spec  any
}

func (s SortOption) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{s.Field: s.Spec})
}

// FieldSort sorts on a field value.
type FieldSort struct {
	Order        string      `json:"order,omitempty"`
	Missing      any         `json:"missing,omitempty"`
	UnmappedType string      `json:"unmapped_type,omitempty"`
	Mode         string      `json:"mode,omitempty"`
	Nested       *NestedSort `json:"nested,omitempty"`
}

// NestedSort sorts on a field inside nested objects.
type NestedSort struct {
	Path string `json:"path"`
}

// ScoreSort sorts on relevance.
type ScoreSort struct {
	Order string `json:"order,omitempty"`
}

// GeoDistanceSort sorts on distance between Field and Point. It is the
// Spec of a SortOption whose Field is "_geo_distance".
type GeoDistanceSort struct {
	Field          string
	Point          GeoPoint
	Order          string
	Unit           string
	DistanceType   string
	Mode           string
	IgnoreUnmapped *bool
}

func (g *GeoDistanceSort) MarshalJSON() ([]byte, error) {
	m := map[string]any{g.Field: g.Point}
	if g.Order != "" {
		m["order"] = g.Order
	}
	if g.Unit != "" {
		m["unit"] = g.Unit
	}
	if g.DistanceType != "" {
		m["distance_type"] = g.DistanceType
	}
	if g.Mode != "" {
		m["mode"] = g.Mode
	}
	if g.IgnoreUnmapped != nil {
		m["ignore_unmapped"] = *g.IgnoreUnmapped
	}
	return json.Marshal(m)
}

// GeoPoint is a lat/lon object.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Highlight is the highlight section of a search.
type Highlight struct {
	PreTags           []string        `json:"pre_tags,omitempty"`
	PostTags          []string        `json:"post_tags,omitempty"`
	FragmentSize      *int            `json:"fragment_size,omitempty"`
	NumberOfFragments *int            `json:"number_of_fragments,omitempty"`
	Encoder           string          `json:"encoder,omitempty"`
	Order             string          `json:"order,omitempty"`
	Type              string          `json:"type,omitempty"`
	TagsSchema        string          `json:"tags_schema,omitempty"`
	RequireFieldMatch *bool           `json:"require_field_match,omitempty"`
	NoMatchSize       *int            `json:"no_match_size,omitempty"`
	BoundaryScanner   string          `json:"boundary_scanner,omitempty"`
	BoundaryChars     string          `json:"boundary_chars,omitempty"`
	BoundaryMaxScan   *int            `json:"boundary_max_scan,omitempty"`
	Fragmenter        string          `json:"fragmenter,omitempty"`
	HighlightQuery    json.RawMessage `json:"highlight_query,omitempty"`
	Fields            HighlightFields `json:"fields"`
}

// HighlightField configures one highlighted field.
type HighlightField struct {
	Name                  string          `json:"-"`
	FragmentSize          *int            `json:"fragment_size,omitempty"`
	NumberOfFragments     *int            `json:"number_of_fragments,omitempty"`
	FragmentOffset        *int            `json:"fragment_offset,omitempty"`
	NoMatchSize           *int            `json:"no_match_size,omitempty"`
	MatchedFields         []string        `json:"matched_fields,omitempty"`
	Type                  string          `json:"type,omitempty"`
	PreTags               []string        `json:"pre_tags,omitempty"`
	PostTags              []string        `json:"post_tags,omitempty"`
	RequireFieldMatch     *bool           `json:"require_field_match,omitempty"`
	HighlightQuery        json.RawMessage `json:"highlight_query,omitempty"`
	ForceSource           *bool           `json:"force_source,omitempty"`
	Order                 string          `json:"order,omitempty"`
	BoundaryScanner       string          `json:"boundary_scanner,omitempty"`
	BoundaryScannerLocale string          `json:"boundary_scanner_locale,omitempty"`
	BoundaryChars         string          `json:"boundary_chars,omitempty"`
	BoundaryMaxScan       *int            `json:"boundary_max_scan,omitempty"`
	PhraseLimit           *int            `json:"phrase_limit,omitempty"`
}

// HighlightFields keeps field order by encoding as [{name: spec}, ...].
type HighlightFields []HighlightField

func (h HighlightFields) MarshalJSON() ([]byte, error) {
	out := make([]map[string]HighlightField, 0, len(h))
	for _, f := range h {
		out = append(out, map[string]HighlightField{f.Name: f})
	}
	return json.Marshal(out)
}

// Rescore is one rescorer.
type Rescore struct {
	WindowSize *int         `json:"window_size,omitempty"`
	Query      RescoreQuery `json:"query"`
}

// RescoreQuery is the query part of a rescorer.
type RescoreQuery struct {
	RescoreQuery       json.RawMessage `json:"rescore_query"`
	QueryWeight        *float64        `json:"query_weight,omitempty"`
	RescoreQueryWeight *float64        `json:"rescore_query_weight,omitempty"`
	ScoreMode          string          `json:"score_mode,omitempty"`
}

// Script is an inline or stored script.
type Script struct {
	ID     string         `json:"id,omitempty"`
	Source string         `json:"source,omitempty"`
	Lang   string         `json:"lang,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

// ScriptField computes a field per hit.
type ScriptField struct {
	Script Script `json:"script"`
}

// Collapse folds hits on a field.
type Collapse struct {
	Field                      string          `json:"field"`
	InnerHits                  json.RawMessage `json:"inner_hits,omitempty"`
	MaxConcurrentGroupSearches int             `json:"max_concurrent_group_searches,omitempty"`
}

// PointInTime continues a search on a point-in-time.
type PointInTime struct {
	ID        string `json:"id"`
	KeepAlive string `json:"keep_alive,omitempty"`
}

// Slice selects one slice of a scroll or reindex source.
type Slice struct {
	ID  int `json:"id"`
	Max int `json:"max"`
}
