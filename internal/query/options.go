package query

import "time"

// Page is offset based pagination. A nil *Page on a Query means unpaged.
type Page struct {
	Offset int
	Size   int
}

// PageRequest returns the page-th page (zero based) of the given size.
func PageRequest(page, size int) Page {
	return Page{Offset: page * size, Size: size}
}

// SourceFilter restricts the returned source fields.
type SourceFilter struct {
	Includes []string
	Excludes []string
}

// FetchSource returns a filter with the given include patterns.
func FetchSource(includes ...string) *SourceFilter {
	return &SourceFilter{Includes: includes}
}

// IsEmpty reports whether the filter has no patterns.
func (f *SourceFilter) IsEmpty() bool {
	return f == nil || (len(f.Includes) == 0 && len(f.Excludes) == 0)
}

// Script is an inline or stored script.
type Script struct {
	// ID names a stored script. When set, Source is ignored.
	ID     string
	Source string
	Lang   string
	Params map[string]any
}

// ScriptedField is a field computed per hit by a script.
type ScriptedField struct {
	Name   string
	Script Script
}

// ExpandWildcards controls which indices wildcard expressions match.
type ExpandWildcards string

const (
	ExpandOpen   ExpandWildcards = "open"
	ExpandClosed ExpandWildcards = "closed"
	ExpandHidden ExpandWildcards = "hidden"
	ExpandAll    ExpandWildcards = "all"
	ExpandNone   ExpandWildcards = "none"
)

// IndicesOptions controls how index names and wildcards are resolved.
type IndicesOptions struct {
	IgnoreUnavailable *bool
	AllowNoIndices    *bool
	IgnoreThrottled   *bool
	ExpandWildcards   []ExpandWildcards
}

// RescoreScoreMode combines original and rescore scores.
type RescoreScoreMode int

const (
	ScoreModeDefault RescoreScoreMode = iota
	ScoreModeAvg
	ScoreModeMax
	ScoreModeMin
	ScoreModeTotal
	ScoreModeMultiply
)

// Rescorer re-scores the top WindowSize hits of the first pass.
type Rescorer struct {
	Query              Body
	QueryWeight        *float64
	RescoreQueryWeight *float64
	WindowSize         *int
	ScoreMode          RescoreScoreMode
}

// HighlightField requests highlighting for one field. Zero values inherit
// the highlight-level parameters.
type HighlightField struct {
	Name                  string
	FragmentSize          *int
	NumberOfFragments     *int
	FragmentOffset        *int
	NoMatchSize           *int
	MatchedFields         []string
	Type                  string
	PreTags               []string
	PostTags              []string
	RequireFieldMatch     *bool
	HighlightQuery        Body
	ForceSource           *bool
	Order                 string
	BoundaryScanner       string
	BoundaryScannerLocale string
	BoundaryChars         string
	BoundaryMaxScan       *int
	PhraseLimit           *int
}

// Highlight configures highlighting for a search.
type Highlight struct {
	Fields            []HighlightField
	PreTags           []string
	PostTags          []string
	FragmentSize      *int
	NumberOfFragments *int
	Encoder           string
	Order             string
	Type              string
	TagsSchema        string
	RequireFieldMatch *bool
	NoMatchSize       *int
	BoundaryScanner   string
	BoundaryChars     string
	BoundaryMaxScan   *int
	Fragmenter        string
	HighlightQuery    Body
}

// RefreshPolicy controls when writes become visible to search.
type RefreshPolicy int

const (
	RefreshDefault RefreshPolicy = iota
	RefreshNone
	RefreshImmediate
	RefreshWaitFor
)

// Param returns the value of the refresh request parameter, "" for the
// engine default.
func (r RefreshPolicy) Param() string {
	switch r {
	case RefreshNone:
		return "false"
	case RefreshImmediate:
		return "true"
	case RefreshWaitFor:
		return "wait_for"
	default:
		return ""
	}
}

// ActiveShards is the wait_for_active_shards request value: "all" or a count.
type ActiveShards string

// WriteOptions are request-level settings shared by write operations.
type WriteOptions struct {
	Refresh             RefreshPolicy
	Timeout             time.Duration
	WaitForActiveShards ActiveShards
	Pipeline            string
	Routing             string
	RequireAlias        *bool
}
