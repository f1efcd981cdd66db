// Package compiler turns the engine-agnostic query model into wire
// requests. It performs no I/O and keeps no state between calls, so one
// Compiler can be shared by any number of goroutines.
package compiler

import (
	"encoding/json"
	"fmt"

	"github.com/leonunix/docsearch/internal/apierror"
	"github.com/leonunix/docsearch/internal/metadata"
	"github.com/leonunix/docsearch/internal/occ"
	"github.com/leonunix/docsearch/internal/query"
	"github.com/leonunix/docsearch/internal/wire"
)

// DefaultMaxResultWindow is the size of an unpaged search, the engine's
// default index.max_result_window.
const DefaultMaxResultWindow = 10000

// Compiler builds wire requests.
type Compiler struct {
	maxResultWindow int
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithMaxResultWindow sets the size used for unpaged searches.
func WithMaxResultWindow(n int) Option {
	return func(c *Compiler) {
		if n > 0 {
			c.maxResultWindow = n
		}
	}
}

// New returns a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{maxResultWindow: DefaultMaxResultWindow}
	for _, o := range opts {
		o(c)
	}
	return c
}

// MaxResultWindow is the size used for unpaged searches.
func (c *Compiler) MaxResultWindow() int { return c.maxResultWindow }

// nestedResolver is implemented by resolvers that know which properties
// live inside nested objects.
type nestedResolver interface {
	NestedPath(property string) string
}

func resolver(r metadata.Resolver) metadata.Resolver {
	if r == nil {
		return metadata.Raw
	}
	return r
}

func nestedPath(r metadata.Resolver, property string) string {
	if nr, ok := r.(nestedResolver); ok {
		return nr.NestedPath(property)
	}
	return ""
}

func fieldNames(r metadata.Resolver, properties []string) []string {
	if len(properties) == 0 {
		return nil
	}
	out := make([]string, len(properties))
	for i, p := range properties {
		out[i] = r.FieldName(p)
	}
	return out
}

func concurrency(p occ.WritePlan) wire.Concurrency {
	return wire.Concurrency{
		IfSeqNo:       p.SeqNo,
		IfPrimaryTerm: p.PrimaryTerm,
		Version:       p.Version,
		VersionType:   p.VersionType.String(),
	}
}

func writeParams(o query.WriteOptions) wire.WriteParams {
	return wire.WriteParams{
		Refresh:             o.Refresh.Param(),
		Timeout:             o.Timeout,
		WaitForActiveShards: string(o.WaitForActiveShards),
		RequireAlias:        o.RequireAlias,
	}
}

func indicesOptions(o *query.IndicesOptions) *wire.IndicesOptions {
	if o == nil {
		return nil
	}
	out := &wire.IndicesOptions{
		IgnoreUnavailable: o.IgnoreUnavailable,
		AllowNoIndices:    o.AllowNoIndices,
		IgnoreThrottled:   o.IgnoreThrottled,
	}
	for _, w := range o.ExpandWildcards {
		out.ExpandWildcards = append(out.ExpandWildcards, string(w))
	}
	return out
}

func script(s *query.Script) *wire.Script {
	if s == nil {
		return nil
	}
	return &wire.Script{ID: s.ID, Source: s.Source, Lang: s.Lang, Params: s.Params}
}

// sourceFilter renders a source filter for both places the engine reads
// one: the _source object of search and bulk update bodies, and the
// _source parameters of get, multi-get and update calls.
func sourceFilter(f *query.SourceFilter, fetch *bool, r metadata.Resolver) (*wire.SourceFilter, wire.SourceParams) {
	params := wire.SourceParams{Fetch: fetch}
	if f.IsEmpty() {
		return nil, params
	}
	body := &wire.SourceFilter{
		Includes: fieldNames(r, f.Includes),
		Excludes: fieldNames(r, f.Excludes),
	}
	params.Includes = body.Includes
	params.Excludes = body.Excludes
	return body, params
}

func marshal(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	return b, nil
}

func invalid(format string, args ...any) error {
	return apierror.InvalidUsage(format, args...)
}

func ptr[T any](v T) *T { return &v }
