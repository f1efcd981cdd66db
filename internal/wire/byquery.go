package wire

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ByQueryParams are the parameters shared by update-by-query,
// delete-by-query and reindex.
type ByQueryParams struct {
	Conflicts           string
	Refresh             *bool
	WaitForCompletion   *bool
	Slices              string
	RequestsPerSecond   *float64
	Timeout             time.Duration
	WaitForActiveShards string
}

func (p ByQueryParams) apply(req *HTTPRequest) {
	setString(req.Params, "conflicts", p.Conflicts)
	setBool(req.Params, "refresh", p.Refresh)
	setBool(req.Params, "wait_for_completion", p.WaitForCompletion)
	setString(req.Params, "slices", p.Slices)
	setFloat(req.Params, "requests_per_second", p.RequestsPerSecond)
	setDuration(req.Params, "timeout", p.Timeout)
	setString(req.Params, "wait_for_active_shards", p.WaitForActiveShards)
}

type byQueryBody struct {
	Query   json.RawMessage `json:"query,omitempty"`
	Script  *Script         `json:"script,omitempty"`
	MaxDocs *int64          `json:"max_docs,omitempty"`
	Slice   *Slice          `json:"slice,omitempty"`
}

// DeleteByQueryRequest removes documents matching Query.
type DeleteByQueryRequest struct {
	Indices        []string
	Query          json.RawMessage
	MaxDocs        *int64
	Routing        string
	Scroll         time.Duration
	ScrollSize     *int
	IndicesOptions *IndicesOptions
	ByQueryParams
}

func (r *DeleteByQueryRequest) Encode(_ Dialect) (*HTTPRequest, error) {
	if len(r.Indices) == 0 {
		return nil, fmt.Errorf("delete by query without indices")
	}
	req := newRequest(http.MethodPost, indexPath(r.Indices...)+"/_delete_by_query")
	setString(req.Params, "routing", r.Routing)
	setDuration(req.Params, "scroll", r.Scroll)
	setInt(req.Params, "scroll_size", r.ScrollSize)
	r.IndicesOptions.apply(req.Params)
	r.ByQueryParams.apply(req)
	if err := req.jsonBody(byQueryBody{Query: r.Query, MaxDocs: r.MaxDocs}); err != nil {
		return nil, err
	}
	return req, nil
}

// UpdateByQueryRequest rewrites documents matching Query.
type UpdateByQueryRequest struct {
	Indices        []string
	Query          json.RawMessage
	Script         *Script
	MaxDocs        *int64
	Routing        string
	Pipeline       string
	Scroll         time.Duration
	ScrollSize     *int
	IndicesOptions *IndicesOptions
	ByQueryParams
}

func (r *UpdateByQueryRequest) Encode(_ Dialect) (*HTTPRequest, error) {
	if len(r.Indices) == 0 {
		return nil, fmt.Errorf("update by query without indices")
	}
	req := newRequest(http.MethodPost, indexPath(r.Indices...)+"/_update_by_query")
	setString(req.Params, "routing", r.Routing)
	setString(req.Params, "pipeline", r.Pipeline)
	setDuration(req.Params, "scroll", r.Scroll)
	setInt(req.Params, "scroll_size", r.ScrollSize)
	r.IndicesOptions.apply(req.Params)
	r.ByQueryParams.apply(req)
	if err := req.jsonBody(byQueryBody{Query: r.Query, Script: r.Script, MaxDocs: r.MaxDocs}); err != nil {
		return nil, err
	}
	return req, nil
}

// RemoteInfo reads a reindex source from another cluster.
type RemoteInfo struct {
	Host           string            `json:"host"`
	Username       string            `json:"username,omitempty"`
	Password       string            `json:"password,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	SocketTimeout  string            `json:"socket_timeout,omitempty"`
	ConnectTimeout string            `json:"connect_timeout,omitempty"`
}

// ReindexSource is the source section of a reindex.
type ReindexSource struct {
	Index  []string        `json:"index"`
	Query  json.RawMessage `json:"query,omitempty"`
	Remote *RemoteInfo     `json:"remote,omitempty"`
	Slice  *Slice          `json:"slice,omitempty"`
	Size   *int            `json:"size,omitempty"`
	Source *SourceFilter   `json:"_source,omitempty"`
}

// ReindexDest is the dest section of a reindex.
type ReindexDest struct {
	Index       string `json:"index"`
	Routing     string `json:"routing,omitempty"`
	Pipeline    string `json:"pipeline,omitempty"`
	VersionType string `json:"version_type,omitempty"`
	OpType      string `json:"op_type,omitempty"`
}

// ReindexBody is the body of a reindex.
type ReindexBody struct {
	Conflicts string        `json:"conflicts,omitempty"`
	MaxDocs   *int64        `json:"max_docs,omitempty"`
	Source    ReindexSource `json:"source"`
	Dest      ReindexDest   `json:"dest"`
	Script    *Script       `json:"script,omitempty"`
}

// ReindexRequest copies documents between indices.
type ReindexRequest struct {
	Body ReindexBody
	ByQueryParams
}

func (r *ReindexRequest) Encode(_ Dialect) (*HTTPRequest, error) {
	if len(r.Body.Source.Index) == 0 || r.Body.Dest.Index == "" {
		return nil, fmt.Errorf("reindex needs source and dest indices")
	}
	req := newRequest(http.MethodPost, "/_reindex")
	params := r.ByQueryParams
	// conflicts travels in the body.
	params.Conflicts = ""
	params.apply(req)
	if err := req.jsonBody(r.Body); err != nil {
		return nil, fmt.Errorf("encoding reindex body: %w", err)
	}
	return req, nil
}
