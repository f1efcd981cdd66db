package wire

import (
	"bytes"
	"fmt"
	"net/http"
	"time"
)

// SearchRequest is a search, optionally opening a scroll.
type SearchRequest struct {
	Indices        []string
	Source         *SearchSource
	Routing        string
	Preference     string
	SearchType     string
	Scroll         time.Duration
	RequestCache   *bool
	IndicesOptions *IndicesOptions
	// TypedKeys makes the engine prefix aggregation and suggestion names
	// with their type, as in "completion#song".
	TypedKeys bool
}

func (r *SearchRequest) Encode(_ Dialect) (*HTTPRequest, error) {
	// A point-in-time search names its indices through the PIT id.
	indices := r.Indices
	if r.Source != nil && r.Source.PIT != nil {
		indices = nil
	}
	req := newRequest(http.MethodPost, indexPath(indices...)+"/_search")
	setString(req.Params, "routing", r.Routing)
	setString(req.Params, "preference", r.Preference)
	setString(req.Params, "search_type", r.SearchType)
	setDuration(req.Params, "scroll", r.Scroll)
	setBool(req.Params, "request_cache", r.RequestCache)
	if r.TypedKeys {
		req.Params.Set("typed_keys", "true")
	}
	r.IndicesOptions.apply(req.Params)

	src := r.Source
	if src == nil {
		src = &SearchSource{}
	}
	if err := req.jsonBody(src); err != nil {
		return nil, fmt.Errorf("encoding search body: %w", err)
	}
	return req, nil
}

type msearchHeader struct {
	Index             []string `json:"index,omitempty"`
	Routing           string   `json:"routing,omitempty"`
	Preference        string   `json:"preference,omitempty"`
	SearchType        string   `json:"search_type,omitempty"`
	RequestCache      *bool    `json:"request_cache,omitempty"`
	IgnoreUnavailable *bool    `json:"ignore_unavailable,omitempty"`
	AllowNoIndices    *bool    `json:"allow_no_indices,omitempty"`
	ExpandWildcards   []string `json:"expand_wildcards,omitempty"`
}

// MultiSearchRequest runs searches in one round trip. Responses come back in
// the order of Searches.
type MultiSearchRequest struct {
	Searches []*SearchRequest
}

// TypedKeys reports whether any search asks for typed keys. The flag is a
// parameter of the whole multi-search.
func (r *MultiSearchRequest) TypedKeys() bool {
	for _, s := range r.Searches {
		if s.TypedKeys {
			return true
		}
	}
	return false
}

func (r *MultiSearchRequest) Encode(_ Dialect) (*HTTPRequest, error) {
	if len(r.Searches) == 0 {
		return nil, fmt.Errorf("multi search without searches")
	}
	var buf bytes.Buffer
	for i, s := range r.Searches {
		h := msearchHeader{
			Index:        s.Indices,
			Routing:      s.Routing,
			Preference:   s.Preference,
			SearchType:   s.SearchType,
			RequestCache: s.RequestCache,
		}
		if o := s.IndicesOptions; o != nil {
			h.IgnoreUnavailable = o.IgnoreUnavailable
			h.AllowNoIndices = o.AllowNoIndices
			h.ExpandWildcards = o.ExpandWildcards
		}
		if s.Source != nil && s.Source.PIT != nil {
			h.Index = nil
		}
		if err := ndjson(&buf, h); err != nil {
			return nil, fmt.Errorf("encoding msearch header %d: %w", i, err)
		}
		src := s.Source
		if src == nil {
			src = &SearchSource{}
		}
		if err := ndjson(&buf, src); err != nil {
			return nil, fmt.Errorf("encoding msearch body %d: %w", i, err)
		}
	}
	req := newRequest(http.MethodPost, "/_msearch")
	if r.TypedKeys() {
		req.Params.Set("typed_keys", "true")
	}
	req.Body = buf.Bytes()
	req.ContentType = ContentTypeNDJSON
	return req, nil
}

// ScrollRequest fetches the next page of a scroll.
type ScrollRequest struct {
	ScrollID  string
	KeepAlive time.Duration
}

func (r *ScrollRequest) Encode(_ Dialect) (*HTTPRequest, error) {
	req := newRequest(http.MethodPost, "/_search/scroll")
	body := map[string]string{"scroll_id": r.ScrollID}
	if ka := FormatDuration(r.KeepAlive); ka != "" {
		body["scroll"] = ka
	}
	if err := req.jsonBody(body); err != nil {
		return nil, err
	}
	return req, nil
}

// ClearScrollRequest releases scroll contexts.
type ClearScrollRequest struct {
	ScrollIDs []string
}

func (r *ClearScrollRequest) Encode(_ Dialect) (*HTTPRequest, error) {
	req := newRequest(http.MethodDelete, "/_search/scroll")
	if err := req.jsonBody(map[string][]string{"scroll_id": r.ScrollIDs}); err != nil {
		return nil, err
	}
	return req, nil
}

// OpenPointInTimeRequest opens a point-in-time on indices.
type OpenPointInTimeRequest struct {
	Indices    []string
	KeepAlive  time.Duration
	Routing    string
	Preference string
}

func (r *OpenPointInTimeRequest) Encode(d Dialect) (*HTTPRequest, error) {
	if len(r.Indices) == 0 {
		return nil, fmt.Errorf("point in time without indices")
	}
	endpoint := "/_pit"
	if d == OpenSearch {
		endpoint = "/_search/point_in_time"
	}
	req := newRequest(http.MethodPost, indexPath(r.Indices...)+endpoint)
	keepAlive := r.KeepAlive
	if keepAlive <= 0 {
		keepAlive = time.Minute
	}
	setDuration(req.Params, "keep_alive", keepAlive)
	setString(req.Params, "routing", r.Routing)
	setString(req.Params, "preference", r.Preference)
	return req, nil
}

// ClosePointInTimeRequest closes a point-in-time.
type ClosePointInTimeRequest struct {
	ID string
}

func (r *ClosePointInTimeRequest) Encode(d Dialect) (*HTTPRequest, error) {
	var (
		req *HTTPRequest
		err error
	)
	if d == OpenSearch {
		req = newRequest(http.MethodDelete, "/_search/point_in_time")
		err = req.jsonBody(map[string][]string{"pit_id": {r.ID}})
	} else {
		req = newRequest(http.MethodDelete, "/_pit")
		err = req.jsonBody(map[string]string{"id": r.ID})
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// CountRequest counts documents matching Query.
type CountRequest struct {
	Indices        []string
	Query          []byte
	Routing        string
	Preference     string
	IndicesOptions *IndicesOptions
}

func (r *CountRequest) Encode(_ Dialect) (*HTTPRequest, error) {
	req := newRequest(http.MethodPost, indexPath(r.Indices...)+"/_count")
	setString(req.Params, "routing", r.Routing)
	setString(req.Params, "preference", r.Preference)
	r.IndicesOptions.apply(req.Params)
	if len(r.Query) > 0 {
		req.Body = append(append([]byte(`{"query":`), r.Query...), '}')
		req.ContentType = ContentTypeJSON
	}
	return req, nil
}
