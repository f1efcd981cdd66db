package operations

import (
	"context"
	"fmt"

	"github.com/leonunix/docsearch/internal/document"
	"github.com/leonunix/docsearch/internal/mapper"
	"github.com/leonunix/docsearch/internal/metadata"
	"github.com/leonunix/docsearch/internal/query"
	"github.com/leonunix/docsearch/internal/wire"
)

// DeleteByQuery removes every document matching q.Query.
func (t *Template) DeleteByQuery(ctx context.Context, q *query.DeleteByQuery, r metadata.Resolver, idx query.IndexCoordinates) (*document.ByQueryResponse, error) {
	req, err := t.compiler.DeleteByQuery(q, r, idx)
	if err != nil {
		return nil, fmt.Errorf("compiling delete by query request: %w", err)
	}
	return t.byQuery(ctx, "delete_by_query", req)
}

// DeleteMatching removes every document matching q and refreshes the
// affected shards so the deletion is visible to the next search.
func (t *Template) DeleteMatching(ctx context.Context, q *query.Query, r metadata.Resolver, idx query.IndexCoordinates) (*document.ByQueryResponse, error) {
	refresh := true
	return t.DeleteByQuery(ctx, &query.DeleteByQuery{
		Query:          q,
		ByQueryOptions: query.ByQueryOptions{Refresh: &refresh},
	}, r, idx)
}

// UpdateByQuery rewrites every document matching q.Query.
func (t *Template) UpdateByQuery(ctx context.Context, q *query.UpdateByQuery, r metadata.Resolver, idx query.IndexCoordinates) (*document.ByQueryResponse, error) {
	req, err := t.compiler.UpdateByQuery(q, r, idx)
	if err != nil {
		return nil, fmt.Errorf("compiling update by query request: %w", err)
	}
	return t.byQuery(ctx, "update_by_query", req)
}

// Reindex copies documents server-side. With WaitForCompletion false only
// the task id of the result is set.
func (t *Template) Reindex(ctx context.Context, q *query.Reindex, r metadata.Resolver) (*document.ByQueryResponse, error) {
	req, err := t.compiler.Reindex(q, r)
	if err != nil {
		return nil, fmt.Errorf("compiling reindex request: %w", err)
	}
	return t.byQuery(ctx, "reindex", req)
}

func (t *Template) byQuery(ctx context.Context, op string, req wire.Request) (*document.ByQueryResponse, error) {
	var resp wire.ByQueryResponse
	if _, err := t.execute(ctx, op, req, &resp); err != nil {
		return nil, err
	}
	return mapper.ByQuery(&resp), nil
}
