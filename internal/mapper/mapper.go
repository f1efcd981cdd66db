// Package mapper turns raw engine responses into the document package's
// result types. Like the compiler it performs no I/O and keeps no state.
package mapper

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/leonunix/docsearch/internal/apierror"
	"github.com/leonunix/docsearch/internal/document"
	"github.com/leonunix/docsearch/internal/wire"
)

// ErrResponseMismatch reports a response whose item count differs from the
// request's. Positional mapping is impossible, so it is never recoverable.
var ErrResponseMismatch = errors.New("mapper: response does not match request")

// SearchHits maps a search or scroll response. Without total hit tracking
// the total is the number of returned hits with relation Off.
func SearchHits(resp *wire.SearchResponse, factory EntityFactory) (*document.SearchHits[*document.Document], error) {
	if resp == nil {
		return nil, fmt.Errorf("mapper: nil search response")
	}
	out, err := hitsSection(resp.Hits)
	if err != nil {
		return nil, err
	}
	out.ScrollID = resp.ScrollID
	out.PointInTimeID = resp.PitID
	if len(resp.Aggregations) > 0 {
		if resp.TypedKeys {
			out.Aggregations = document.NewTypedAggregations(resp.Aggregations)
		} else {
			out.Aggregations = document.NewAggregations(resp.Aggregations)
		}
	}
	if len(resp.Suggest) > 0 {
		if out.Suggest, err = Suggest(resp.Suggest, resp.TypedKeys, factory); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func hitsSection(s wire.HitsSection) (*document.SearchHits[*document.Document], error) {
	out := &document.SearchHits[*document.Document]{
		MaxScore: score(s.MaxScore),
		Hits:     make([]document.SearchHit[*document.Document], 0, len(s.Hits)),
	}
	if t := s.Total; t != nil {
		out.TotalHits = t.Value
		out.TotalHitsRelation = document.EqualTo
		if t.Relation == "gte" {
			out.TotalHitsRelation = document.GreaterThanOrEqualTo
		}
	} else {
		out.TotalHits = int64(len(s.Hits))
		out.TotalHitsRelation = document.Off
	}
	for i := range s.Hits {
		h, err := hit(&s.Hits[i])
		if err != nil {
			return nil, fmt.Errorf("mapping hit %d: %w", i, err)
		}
		out.Hits = append(out.Hits, h)
	}
	return out, nil
}

func hit(h *wire.Hit) (document.SearchHit[*document.Document], error) {
	doc, err := hitDocument(h)
	if err != nil {
		return document.SearchHit[*document.Document]{}, err
	}
	out := document.SearchHit[*document.Document]{
		Index:       h.Index,
		ID:          h.ID,
		Routing:     h.Routing,
		Score:       score(h.Score),
		Highlight:   h.Highlight,
		Nested:      nested(h.Nested),
		Explanation: h.Explanation,
		Content:     doc,
	}
	if out.SortValues, err = sortValues(h.Sort); err != nil {
		return out, err
	}
	if out.MatchedQueries, err = matchedQueries(h.MatchedQueries); err != nil {
		return out, err
	}
	if len(h.InnerHits) > 0 {
		out.InnerHits = make(map[string]*document.SearchHits[*document.Document], len(h.InnerHits))
		for name, ih := range h.InnerHits {
			inner, err := hitsSection(ih.Hits)
			if err != nil {
				return out, fmt.Errorf("mapping inner hits %q: %w", name, err)
			}
			out.InnerHits[name] = inner
		}
	}
	return out, nil
}

// hitDocument reads _source, or the returned fields when the source was
// not fetched. Single-valued fields are unwrapped.
func hitDocument(h *wire.Hit) (*document.Document, error) {
	var (
		doc *document.Document
		err error
	)
	switch {
	case len(h.Source) > 0 && !bytes.Equal(h.Source, []byte("null")):
		if doc, err = document.Parse(h.Source); err != nil {
			return nil, err
		}
	default:
		doc = document.New()
		names := make([]string, 0, len(h.Fields))
		for name := range h.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v, err := decodeAny(h.Fields[name])
			if err != nil {
				return nil, fmt.Errorf("decoding field %q: %w", name, err)
			}
			if list, ok := v.([]any); ok && len(list) == 1 {
				v = list[0]
			}
			doc.Put(name, v)
		}
	}
	doc.ID = h.ID
	doc.Index = h.Index
	doc.Routing = h.Routing
	doc.Version = h.Version
	doc.SeqNo = h.SeqNo
	doc.PrimaryTerm = h.PrimaryTerm
	return doc, nil
}

func score(s *float64) float64 {
	if s == nil {
		return math.NaN()
	}
	return *s
}

func nested(n *wire.NestedIdentity) *document.NestedMetadata {
	if n == nil {
		return nil
	}
	return &document.NestedMetadata{Field: n.Field, Offset: n.Offset, Child: nested(n.Nested)}
}

func sortValues(raw []json.RawMessage) ([]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]any, 0, len(raw))
	for _, r := range raw {
		v, err := decodeAny(r)
		if err != nil {
			return nil, fmt.Errorf("decoding sort value: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// matchedQueries accepts the name list and the name to score object sent
// when scores are included.
func matchedQueries(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err == nil {
		return names, nil
	}
	var scored map[string]float64
	if err := json.Unmarshal(raw, &scored); err != nil {
		return nil, fmt.Errorf("decoding matched queries: %w", err)
	}
	for n := range scored {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func decodeAny(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// MultiSearch maps a multi-search response. want is the number of searches
// sent; responses are matched to them by position.
func MultiSearch(resp *wire.MultiSearchResponse, want int, factory EntityFactory) ([]*document.SearchHits[*document.Document], error) {
	if resp == nil || len(resp.Responses) != want {
		got := 0
		if resp != nil {
			got = len(resp.Responses)
		}
		return nil, fmt.Errorf("%w: %d searches, %d responses", ErrResponseMismatch, want, got)
	}
	out := make([]*document.SearchHits[*document.Document], 0, want)
	for i := range resp.Responses {
		item := &resp.Responses[i]
		if item.Error != nil {
			return nil, fmt.Errorf("search %d failed: %w", i, causeError(item.Status, item.Error))
		}
		hits, err := SearchHits(&item.SearchResponse, factory)
		if err != nil {
			return nil, fmt.Errorf("mapping search %d: %w", i, err)
		}
		out = append(out, hits)
	}
	return out, nil
}

func causeError(status int, c *wire.ErrorCause) *apierror.StatusError {
	return &apierror.StatusError{
		Status: status,
		Type:   c.Type,
		Reason: c.Reason,
		Index:  c.Index,
		Body:   c.Message(),
	}
}
