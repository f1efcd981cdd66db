package compiler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/leonunix/docsearch/internal/metadata"
	"github.com/leonunix/docsearch/internal/query"
	"github.com/leonunix/docsearch/internal/wire"
)

// Search compiles q into a search on idx.
func (c *Compiler) Search(q *query.Query, r metadata.Resolver, idx query.IndexCoordinates) (*wire.SearchRequest, error) {
	if q == nil {
		return nil, invalid("search without query")
	}
	r = resolver(r)
	src, err := c.searchSource(q, r)
	if err != nil {
		return nil, err
	}
	req := &wire.SearchRequest{
		Indices:        idx.IndexNames(),
		Source:         src,
		Routing:        q.Route,
		Preference:     q.Preference,
		SearchType:     q.SearchType.String(),
		Scroll:         q.Scroll,
		RequestCache:   q.RequestCache,
		IndicesOptions: indicesOptions(q.IndicesOptions),
		TypedKeys:      src.Suggest != nil,
	}
	return req, nil
}

// SearchTarget is one search of a multi-search.
type SearchTarget struct {
	Query    *query.Query
	Resolver metadata.Resolver
	Index    query.IndexCoordinates
}

// MultiSearch compiles targets into one multi-search. Its searches are in
// targets order.
func (c *Compiler) MultiSearch(targets []SearchTarget) (*wire.MultiSearchRequest, error) {
	if len(targets) == 0 {
		return nil, invalid("multi search without queries")
	}
	req := &wire.MultiSearchRequest{Searches: make([]*wire.SearchRequest, 0, len(targets))}
	for i, t := range targets {
		s, err := c.Search(t.Query, t.Resolver, t.Index)
		if err != nil {
			return nil, fmt.Errorf("compiling search %d: %w", i, err)
		}
		// Scrolls cannot be opened from a multi-search.
		s.Scroll = 0
		req.Searches = append(req.Searches, s)
	}
	return req, nil
}

// Count compiles a count of the documents matching q.
func (c *Compiler) Count(q *query.Query, r metadata.Resolver, idx query.IndexCoordinates) (*wire.CountRequest, error) {
	if q == nil {
		return nil, invalid("count without query")
	}
	body, err := c.searchQuery(q, resolver(r))
	if err != nil {
		return nil, err
	}
	return &wire.CountRequest{
		Indices:        idx.IndexNames(),
		Query:          body,
		Routing:        q.Route,
		Preference:     q.Preference,
		IndicesOptions: indicesOptions(q.IndicesOptions),
	}, nil
}

// Scroll continues a scroll.
func (c *Compiler) Scroll(scrollID string, keepAlive time.Duration) (*wire.ScrollRequest, error) {
	if scrollID == "" {
		return nil, invalid("scroll without scroll id")
	}
	return &wire.ScrollRequest{ScrollID: scrollID, KeepAlive: keepAlive}, nil
}

// ClearScroll releases scroll contexts.
func (c *Compiler) ClearScroll(scrollIDs ...string) (*wire.ClearScrollRequest, error) {
	if len(scrollIDs) == 0 {
		return nil, invalid("clear scroll without scroll ids")
	}
	return &wire.ClearScrollRequest{ScrollIDs: scrollIDs}, nil
}

// OpenPointInTime opens a point-in-time on idx.
func (c *Compiler) OpenPointInTime(idx query.IndexCoordinates, keepAlive time.Duration) *wire.OpenPointInTimeRequest {
	return &wire.OpenPointInTimeRequest{Indices: idx.IndexNames(), KeepAlive: keepAlive}
}

// ClosePointInTime closes a point-in-time.
func (c *Compiler) ClosePointInTime(id string) (*wire.ClosePointInTimeRequest, error) {
	if id == "" {
		return nil, invalid("close point in time without id")
	}
	return &wire.ClosePointInTimeRequest{ID: id}, nil
}

// searchQuery renders the query of q, restricted to q.IDs when set.
func (c *Compiler) searchQuery(q *query.Query, r metadata.Resolver) (json.RawMessage, error) {
	body, err := c.QueryJSON(q.Body, r)
	if err != nil {
		return nil, err
	}
	if len(q.IDs) == 0 {
		return body, nil
	}
	return marshal(object{"bool": object{
		"must":   []json.RawMessage{body},
		"filter": []any{object{"ids": object{"values": q.IDs}}},
	}})
}

func (c *Compiler) searchSource(q *query.Query, r metadata.Resolver) (*wire.SearchSource, error) {
	body, err := c.searchQuery(q, r)
	if err != nil {
		return nil, err
	}
	src := &wire.SearchSource{
		Query:   body,
		Version: ptr(true),
	}
	if q.TrackScores {
		src.TrackScores = ptr(true)
	}
	if r.HasSeqNoPrimaryTerm() {
		src.SeqNoPrimaryTerm = ptr(true)
	}
	if nq, ok := q.Body.(*query.NativeQuery); ok && len(nq.Filter) > 0 {
		src.PostFilter = nq.Filter
	}

	if q.Page != nil {
		src.From, src.Size = ptr(q.Page.Offset), ptr(q.Page.Size)
	} else {
		src.From, src.Size = ptr(0), ptr(c.maxResultWindow)
	}
	src.Source, _ = sourceFilter(q.SourceFilter, nil, r)
	if q.IsLimiting() {
		src.Size = ptr(*q.MaxResults)
	}

	for _, o := range q.Sort {
		src.Sort = append(src.Sort, sortOption(o, r))
	}
	if src.Highlight, err = c.highlight(q, r); err != nil {
		return nil, err
	}
	for i, rs := range q.Rescorers {
		w, err := c.rescore(rs, r)
		if err != nil {
			return nil, fmt.Errorf("compiling rescorer %d: %w", i, err)
		}
		src.Rescore = append(src.Rescore, w)
	}

	switch {
	case q.TrackTotalHits != nil:
		src.TrackTotalHits = *q.TrackTotalHits
	case q.TrackTotalHitsUpTo != nil:
		src.TrackTotalHits = *q.TrackTotalHitsUpTo
	}
	src.MinScore = q.MinScore
	src.Timeout = wire.FormatDuration(q.Timeout)
	if q.Explain {
		src.Explain = ptr(true)
	}
	src.SearchAfter = q.SearchAfter
	src.StoredFields = fieldNames(r, q.StoredFields)
	src.DocValueFields = fieldNames(r, q.DocValueFields)
	if q.PointInTime != nil {
		src.PIT = &wire.PointInTime{ID: q.PointInTime.ID, KeepAlive: wire.FormatDuration(q.PointInTime.KeepAlive)}
	}

	if len(q.ScriptFields) > 0 {
		src.ScriptFields = make(map[string]wire.ScriptField, len(q.ScriptFields))
		for _, f := range q.ScriptFields {
			src.ScriptFields[f.Name] = wire.ScriptField{Script: *script(&f.Script)}
		}
	}
	if src.Aggregations, err = aggregations(q); err != nil {
		return nil, err
	}
	if q.Collapse != nil {
		src.Collapse = &wire.Collapse{
			Field:                      r.FieldName(q.Collapse.Field),
			InnerHits:                  q.Collapse.InnerHits,
			MaxConcurrentGroupSearches: q.Collapse.MaxConcurrentGroupSearches,
		}
	}
	for _, b := range q.IndicesBoost {
		src.IndicesBoost = append(src.IndicesBoost, map[string]float64{b.Index: b.Boost})
	}
	if !q.Suggest.IsEmpty() {
		src.Suggest = suggest(q.Suggest, r)
	}
	src.Ext = q.Ext
	return src, nil
}

func aggregations(q *query.Query) (map[string]json.RawMessage, error) {
	n := len(q.Aggregations) + len(q.PipelineAggregations)
	if n == 0 {
		return nil, nil
	}
	out := make(map[string]json.RawMessage, n)
	for _, list := range [][]query.Aggregation{q.Aggregations, q.PipelineAggregations} {
		for _, a := range list {
			if _, dup := out[a.Name]; dup {
				return nil, invalid("duplicate aggregation %q", a.Name)
			}
			if !json.Valid(a.Body) {
				return nil, invalid("aggregation %q is not valid JSON", a.Name)
			}
			out[a.Name] = a.Body
		}
	}
	return out, nil
}

func sortOption(o query.Order, r metadata.Resolver) wire.SortOption {
	order := o.Direction.String()
	if o.IsScore() {
		return wire.SortOption{Field: query.ScoreField, Spec: wire.ScoreSort{Order: order}}
	}
	field := r.FieldName(o.Property)
	if g := o.GeoDistance; g != nil {
		spec := &wire.GeoDistanceSort{
			Field:        field,
			Point:        wire.GeoPoint{Lat: g.Point.Lat, Lon: g.Point.Lon},
			Order:        order,
			Unit:         g.Unit,
			DistanceType: string(g.DistanceType),
			Mode:         string(o.Mode),
		}
		// false is the engine default.
		if g.IgnoreUnmapped {
			spec.IgnoreUnmapped = ptr(true)
		}
		return wire.SortOption{Field: "_geo_distance", Spec: spec}
	}
	spec := wire.FieldSort{
		Order:        order,
		Mode:         string(o.Mode),
		UnmappedType: o.UnmappedType,
		Missing:      o.Missing,
	}
	switch o.NullHandling {
	case query.NullsFirst:
		spec.Missing = "_first"
	case query.NullsLast:
		spec.Missing = "_last"
	}
	path := o.NestedPath
	if path != "" {
		path = r.FieldName(path)
	} else {
		path = nestedPath(r, o.Property)
	}
	if path != "" {
		spec.Nested = &wire.NestedSort{Path: path}
	}
	return wire.SortOption{Field: field, Spec: spec}
}

// highlight prefers the query's highlight and falls back to the highlight
// fields carried by a native query.
func (c *Compiler) highlight(q *query.Query, r metadata.Resolver) (*wire.Highlight, error) {
	if h := q.Highlight; h != nil {
		out := &wire.Highlight{
			PreTags:           h.PreTags,
			PostTags:          h.PostTags,
			FragmentSize:      h.FragmentSize,
			NumberOfFragments: h.NumberOfFragments,
			Encoder:           h.Encoder,
			Order:             h.Order,
			Type:              h.Type,
			TagsSchema:        h.TagsSchema,
			RequireFieldMatch: h.RequireFieldMatch,
			NoMatchSize:       h.NoMatchSize,
			BoundaryScanner:   h.BoundaryScanner,
			BoundaryChars:     h.BoundaryChars,
			BoundaryMaxScan:   h.BoundaryMaxScan,
			Fragmenter:        h.Fragmenter,
		}
		if h.HighlightQuery != nil {
			hq, err := c.QueryJSON(h.HighlightQuery, r)
			if err != nil {
				return nil, fmt.Errorf("compiling highlight query: %w", err)
			}
			out.HighlightQuery = hq
		}
		fields, err := c.highlightFields(h.Fields, r)
		if err != nil {
			return nil, err
		}
		out.Fields = fields
		return out, nil
	}
	if nq, ok := q.Body.(*query.NativeQuery); ok && len(nq.HighlightFields) > 0 {
		fields, err := c.highlightFields(nq.HighlightFields, r)
		if err != nil {
			return nil, err
		}
		return &wire.Highlight{Fields: fields}, nil
	}
	return nil, nil
}

func (c *Compiler) highlightFields(fields []query.HighlightField, r metadata.Resolver) (wire.HighlightFields, error) {
	out := make(wire.HighlightFields, 0, len(fields))
	for _, f := range fields {
		w := wire.HighlightField{
			Name:                  r.FieldName(f.Name),
			FragmentSize:          f.FragmentSize,
			NumberOfFragments:     f.NumberOfFragments,
			FragmentOffset:        f.FragmentOffset,
			NoMatchSize:           f.NoMatchSize,
			MatchedFields:         fieldNames(r, f.MatchedFields),
			Type:                  f.Type,
			PreTags:               f.PreTags,
			PostTags:              f.PostTags,
			RequireFieldMatch:     f.RequireFieldMatch,
			ForceSource:           f.ForceSource,
			Order:                 f.Order,
			BoundaryScanner:       f.BoundaryScanner,
			BoundaryScannerLocale: f.BoundaryScannerLocale,
			BoundaryChars:         f.BoundaryChars,
			BoundaryMaxScan:       f.BoundaryMaxScan,
			PhraseLimit:           f.PhraseLimit,
		}
		if f.HighlightQuery != nil {
			hq, err := c.QueryJSON(f.HighlightQuery, r)
			if err != nil {
				return nil, fmt.Errorf("compiling highlight query of %q: %w", f.Name, err)
			}
			w.HighlightQuery = hq
		}
		out = append(out, w)
	}
	return out, nil
}

var scoreModes = map[query.RescoreScoreMode]string{
	query.ScoreModeAvg:      "avg",
	query.ScoreModeMax:      "max",
	query.ScoreModeMin:      "min",
	query.ScoreModeTotal:    "total",
	query.ScoreModeMultiply: "multiply",
}

func (c *Compiler) rescore(rs query.Rescorer, r metadata.Resolver) (wire.Rescore, error) {
	q, err := c.QueryJSON(rs.Query, r)
	if err != nil {
		return wire.Rescore{}, err
	}
	return wire.Rescore{
		WindowSize: rs.WindowSize,
		Query: wire.RescoreQuery{
			RescoreQuery:       q,
			QueryWeight:        rs.QueryWeight,
			RescoreQueryWeight: rs.RescoreQueryWeight,
			ScoreMode:          scoreModes[rs.ScoreMode],
		},
	}, nil
}

func suggest(b *query.SuggestBuilder, r metadata.Resolver) map[string]any {
	out := make(map[string]any, len(b.Suggestions)+1)
	if b.GlobalText != "" {
		out["text"] = b.GlobalText
	}
	for _, s := range b.Suggestions {
		body := object{"field": r.FieldName(s.Field)}
		if s.Size != nil {
			body["size"] = *s.Size
		}
		if s.Analyzer != "" {
			body["analyzer"] = s.Analyzer
		}
		if s.Kind == query.SuggestCompletion {
			if s.SkipDuplicates {
				body["skip_duplicates"] = true
			}
			if f := s.Fuzzy; f != nil {
				fuzzy := object{}
				if f.Fuzziness != "" {
					fuzzy["fuzziness"] = f.Fuzziness
				}
				if f.Transpositions != nil {
					fuzzy["transpositions"] = *f.Transpositions
				}
				if f.MinLength != nil {
					fuzzy["min_length"] = *f.MinLength
				}
				if f.PrefixLength != nil {
					fuzzy["prefix_length"] = *f.PrefixLength
				}
				body["fuzzy"] = fuzzy
			}
			if len(s.Contexts) > 0 {
				body["contexts"] = s.Contexts
			}
		}
		entry := object{s.Kind.String(): body}
		switch {
		case s.Regex != "":
			entry["regex"] = s.Regex
		case s.Prefix != "":
			entry["prefix"] = s.Prefix
		case s.Text != "":
			entry["text"] = s.Text
		}
		out[s.Name] = entry
	}
	return out
}
