package compiler

import (
	"fmt"
	"time"

	"github.com/leonunix/docsearch/internal/metadata"
	"github.com/leonunix/docsearch/internal/query"
	"github.com/leonunix/docsearch/internal/wire"
)

// Remote reindex timeouts used when the caller sets none.
const (
	DefaultRemoteSocketTimeout  = 30 * time.Second
	DefaultRemoteConnectTimeout = 30 * time.Second
)

func byQueryParams(o query.ByQueryOptions) wire.ByQueryParams {
	p := wire.ByQueryParams{
		Refresh:             o.Refresh,
		WaitForCompletion:   o.WaitForCompletion,
		Slices:              o.Slices,
		RequestsPerSecond:   o.RequestsPerSecond,
		Timeout:             o.Timeout,
		WaitForActiveShards: string(o.WaitForActiveShards),
	}
	if v := o.AbortOnVersionConflict; v != nil {
		if *v {
			p.Conflicts = string(query.ConflictsAbort)
		} else {
			p.Conflicts = string(query.ConflictsProceed)
		}
	}
	return p
}

// batchSize is the scroll size of a limiting query.
func batchSize(q *query.Query) *int {
	if q.IsLimiting() {
		return ptr(*q.MaxResults)
	}
	return nil
}

// DeleteByQuery compiles a delete of every document matching q.Query.
func (c *Compiler) DeleteByQuery(q *query.DeleteByQuery, r metadata.Resolver, idx query.IndexCoordinates) (*wire.DeleteByQueryRequest, error) {
	if q == nil || q.Query == nil {
		return nil, invalid("delete by query without query")
	}
	body, err := c.searchQuery(q.Query, resolver(r))
	if err != nil {
		return nil, err
	}
	return &wire.DeleteByQueryRequest{
		Indices:        idx.IndexNames(),
		Query:          body,
		MaxDocs:        q.MaxDocs,
		Routing:        q.Query.Route,
		Scroll:         q.Query.Scroll,
		ScrollSize:     batchSize(q.Query),
		IndicesOptions: indicesOptions(q.Query.IndicesOptions),
		ByQueryParams:  byQueryParams(q.ByQueryOptions),
	}, nil
}

// UpdateByQuery compiles an update of every document matching q.Query.
func (c *Compiler) UpdateByQuery(q *query.UpdateByQuery, r metadata.Resolver, idx query.IndexCoordinates) (*wire.UpdateByQueryRequest, error) {
	if q == nil || q.Query == nil {
		return nil, invalid("update by query without query")
	}
	body, err := c.searchQuery(q.Query, resolver(r))
	if err != nil {
		return nil, err
	}
	return &wire.UpdateByQueryRequest{
		Indices:        idx.IndexNames(),
		Query:          body,
		Script:         script(q.Script),
		MaxDocs:        q.MaxDocs,
		Routing:        q.Query.Route,
		Pipeline:       q.Pipeline,
		Scroll:         q.Query.Scroll,
		ScrollSize:     batchSize(q.Query),
		IndicesOptions: indicesOptions(q.Query.IndicesOptions),
		ByQueryParams:  byQueryParams(q.ByQueryOptions),
	}, nil
}

// Reindex compiles a server-side copy. A remote source always carries a
// query, match_all when none is given.
func (c *Compiler) Reindex(q *query.Reindex, r metadata.Resolver) (*wire.ReindexRequest, error) {
	if q == nil || len(q.Source.Indices) == 0 {
		return nil, invalid("reindex without source indices")
	}
	if q.Dest.Index == "" {
		return nil, invalid("reindex without destination index")
	}
	r = resolver(r)
	src := wire.ReindexSource{
		Index: q.Source.Indices,
		Size:  q.Source.Size,
	}
	if q.Source.Query != nil {
		body, err := c.searchQuery(q.Source.Query, r)
		if err != nil {
			return nil, fmt.Errorf("compiling reindex source query: %w", err)
		}
		src.Query = body
	}
	if rm := q.Source.Remote; rm != nil {
		if rm.Host == "" {
			return nil, invalid("reindex remote without host")
		}
		socket, connect := rm.SocketTimeout, rm.ConnectTimeout
		if socket <= 0 {
			socket = DefaultRemoteSocketTimeout
		}
		if connect <= 0 {
			connect = DefaultRemoteConnectTimeout
		}
		src.Remote = &wire.RemoteInfo{
			Host:           rm.Host,
			Username:       rm.Username,
			Password:       rm.Password,
			Headers:        rm.Headers,
			SocketTimeout:  wire.FormatDuration(socket),
			ConnectTimeout: wire.FormatDuration(connect),
		}
		if src.Query == nil {
			src.Query = matchAll
		}
	}
	if s := q.Source.Slice; s != nil {
		src.Slice = &wire.Slice{ID: s.ID, Max: s.Max}
	}
	src.Source, _ = sourceFilter(q.Source.SourceFilter, nil, r)

	return &wire.ReindexRequest{
		Body: wire.ReindexBody{
			Conflicts: string(q.Conflicts),
			MaxDocs:   q.MaxDocs,
			Source:    src,
			Dest: wire.ReindexDest{
				Index:       q.Dest.Index,
				Routing:     q.Dest.Routing,
				Pipeline:    q.Dest.Pipeline,
				VersionType: q.Dest.VersionType.String(),
				OpType:      q.Dest.OpType.String(),
			},
			Script: script(q.Script),
		},
		ByQueryParams: wire.ByQueryParams{
			Refresh:             q.Refresh,
			WaitForCompletion:   q.WaitForCompletion,
			Slices:              q.Slices,
			RequestsPerSecond:   q.RequestsPerSecond,
			Timeout:             q.Timeout,
			WaitForActiveShards: string(q.WaitForActiveShards),
		},
	}, nil
}
