// Package wire holds the engine's request and response shapes. Requests
// encode into transport-neutral HTTPRequest values for a Dialect; responses
// are plain structs decoded from the engine's JSON.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Dialect is the wire protocol variant of the engine.
type Dialect int

const (
	Elasticsearch Dialect = iota
	OpenSearch
)

func (d Dialect) String() string {
	if d == OpenSearch {
		return "opensearch"
	}
	return "elasticsearch"
}

// ParseDialect accepts "elasticsearch" and "opensearch".
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "elasticsearch", "es":
		return Elasticsearch, nil
	case "opensearch", "os":
		return OpenSearch, nil
	}
	return 0, fmt.Errorf("unknown engine dialect %q", s)
}

// Content types of request bodies.
const (
	ContentTypeJSON   = "application/json"
	ContentTypeNDJSON = "application/x-ndjson"
)

// HTTPRequest is an encoded engine request.
type HTTPRequest struct {
	Method      string
	Path        string
	Params      url.Values
	Body        []byte
	ContentType string
}

// URL returns the path with its query string.
func (r *HTTPRequest) URL() string {
	if len(r.Params) == 0 {
		return r.Path
	}
	return r.Path + "?" + r.Params.Encode()
}

// Request is any engine request.
type Request interface {
	Encode(d Dialect) (*HTTPRequest, error)
}

func newRequest(method, path string) *HTTPRequest {
	return &HTTPRequest{Method: method, Path: path, Params: url.Values{}}
}

func (r *HTTPRequest) jsonBody(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.Body = b
	r.ContentType = ContentTypeJSON
	return nil
}

// esc escapes one path segment such as a document id.
func esc(s string) string { return url.PathEscape(s) }

// indexPath returns "/idx1,idx2" or "" for no indices.
func indexPath(indices ...string) string {
	if len(indices) == 0 {
		return ""
	}
	parts := make([]string, 0, len(indices))
	for _, i := range indices {
		if i != "" {
			parts = append(parts, url.PathEscape(i))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "/" + strings.Join(parts, ",")
}

// FormatDuration renders d in the engine's time unit syntax.
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return ""
	case d%time.Hour == 0:
		return strconv.FormatInt(int64(d/time.Hour), 10) + "h"
	case d%time.Minute == 0:
		return strconv.FormatInt(int64(d/time.Minute), 10) + "m"
	case d%time.Second == 0:
		return strconv.FormatInt(int64(d/time.Second), 10) + "s"
	case d%time.Millisecond == 0:
		return strconv.FormatInt(int64(d/time.Millisecond), 10) + "ms"
	default:
		return strconv.FormatInt(int64(d/time.Microsecond), 10) + "micros"
	}
}

func setString(p url.Values, k, v string) {
	if v != "" {
		p.Set(k, v)
	}
}

func setBool(p url.Values, k string, v *bool) {
	if v != nil {
		p.Set(k, strconv.FormatBool(*v))
	}
}

func setInt(p url.Values, k string, v *int) {
	if v != nil {
		p.Set(k, strconv.Itoa(*v))
	}
}

func setInt64(p url.Values, k string, v *int64) {
	if v != nil {
		p.Set(k, strconv.FormatInt(*v, 10))
	}
}

func setFloat(p url.Values, k string, v *float64) {
	if v != nil {
		p.Set(k, strconv.FormatFloat(*v, 'f', -1, 64))
	}
}

func setDuration(p url.Values, k string, d time.Duration) {
	setString(p, k, FormatDuration(d))
}

func ndjson(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	buf.WriteByte('\n')
	return nil
}

// WriteParams are the request parameters shared by single-document and bulk
// writes.
type WriteParams struct {
	Refresh             string
	Timeout             time.Duration
	WaitForActiveShards string
	RequireAlias        *bool
}

func (w WriteParams) apply(p url.Values) {
	setString(p, "refresh", w.Refresh)
	setDuration(p, "timeout", w.Timeout)
	setString(p, "wait_for_active_shards", w.WaitForActiveShards)
	setBool(p, "require_alias", w.RequireAlias)
}

// IndicesOptions are the index resolution parameters.
type IndicesOptions struct {
	IgnoreUnavailable *bool
	AllowNoIndices    *bool
	IgnoreThrottled   *bool
	ExpandWildcards   []string
}

func (o *IndicesOptions) apply(p url.Values) {
	if o == nil {
		return
	}
	setBool(p, "ignore_unavailable", o.IgnoreUnavailable)
	setBool(p, "allow_no_indices", o.AllowNoIndices)
	setBool(p, "ignore_throttled", o.IgnoreThrottled)
	if len(o.ExpandWildcards) > 0 {
		p.Set("expand_wildcards", strings.Join(o.ExpandWildcards, ","))
	}
}

// SourceParams filter the returned source of get, multi-get and update
// calls.
type SourceParams struct {
	Fetch    *bool
	Includes []string
	Excludes []string
}

func (s SourceParams) apply(p url.Values) {
	setBool(p, "_source", s.Fetch)
	if len(s.Includes) > 0 {
		p.Set("_source_includes", strings.Join(s.Includes, ","))
	}
	if len(s.Excludes) > 0 {
		p.Set("_source_excludes", strings.Join(s.Excludes, ","))
	}
}
