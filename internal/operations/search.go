package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leonunix/docsearch/internal/compiler"
	"github.com/leonunix/docsearch/internal/document"
	"github.com/leonunix/docsearch/internal/mapper"
	"github.com/leonunix/docsearch/internal/metadata"
	"github.com/leonunix/docsearch/internal/query"
	"github.com/leonunix/docsearch/internal/wire"
)

// Hits is the document form of a search result.
type Hits = document.SearchHits[*document.Document]

// Search runs q on idx. r resolves logical property names; nil passes
// them through. factory builds completion suggestion entities and may be
// nil.
func (t *Template) Search(ctx context.Context, q *query.Query, r metadata.Resolver, idx query.IndexCoordinates, factory mapper.EntityFactory) (*Hits, error) {
	req, err := t.compiler.Search(q, r, idx)
	if err != nil {
		return nil, fmt.Errorf("compiling search request: %w", err)
	}
	return t.search(ctx, "search", req, factory)
}

func (t *Template) search(ctx context.Context, op string, req wire.Request, factory mapper.EntityFactory) (*Hits, error) {
	var resp wire.SearchResponse
	if _, err := t.execute(ctx, op, req, &resp); err != nil {
		return nil, err
	}
	if sr, ok := req.(*wire.SearchRequest); ok {
		resp.TypedKeys = sr.TypedKeys
	}
	return mapper.SearchHits(&resp, factory)
}

// SearchEntities runs q on the index of T and reads every hit into a T.
func SearchEntities[T any](ctx context.Context, t *Template, q *query.Query) (*document.SearchHits[*T], error) {
	e, err := entityFor[T](t)
	if err != nil {
		return nil, err
	}
	read := func(doc *document.Document) (*T, error) {
		var v T
		if err := e.Read(doc, &v); err != nil {
			return nil, err
		}
		return &v, nil
	}
	factory := func(doc *document.Document) (any, error) { return read(doc) }
	hits, err := t.Search(ctx, q, e, Coordinates(e), factory)
	if err != nil {
		return nil, err
	}
	return document.ConvertHits(hits, read)
}

// MultiSearch runs every target in one round trip. Results are in targets
// order.
func (t *Template) MultiSearch(ctx context.Context, targets []compiler.SearchTarget) ([]*Hits, error) {
	req, err := t.compiler.MultiSearch(targets)
	if err != nil {
		return nil, fmt.Errorf("compiling multi search request: %w", err)
	}
	var resp wire.MultiSearchResponse
	if _, err := t.execute(ctx, "msearch", req, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Responses {
		resp.Responses[i].TypedKeys = req.TypedKeys()
	}
	return mapper.MultiSearch(&resp, len(targets), nil)
}

// Count returns the number of documents matching q.
func (t *Template) Count(ctx context.Context, q *query.Query, r metadata.Resolver, idx query.IndexCoordinates) (int64, error) {
	req, err := t.compiler.Count(q, r, idx)
	if err != nil {
		return 0, fmt.Errorf("compiling count request: %w", err)
	}
	var resp wire.CountResponse
	if _, err := t.execute(ctx, "count", req, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// ScrollStart opens a scroll over q. The first page is returned together
// with the scroll id to continue from.
func (t *Template) ScrollStart(ctx context.Context, q *query.Query, r metadata.Resolver, idx query.IndexCoordinates) (*Hits, error) {
	if q == nil {
		return nil, fmt.Errorf("compiling search request: nil query")
	}
	scrolled := *q
	if scrolled.Scroll <= 0 {
		scrolled.Scroll = t.keepAlive
	}
	req, err := t.compiler.Search(&scrolled, r, idx)
	if err != nil {
		return nil, fmt.Errorf("compiling search request: %w", err)
	}
	return t.search(ctx, "search", req, nil)
}

// ScrollNext returns the page after scrollID.
func (t *Template) ScrollNext(ctx context.Context, scrollID string, keepAlive time.Duration) (*Hits, error) {
	if keepAlive <= 0 {
		keepAlive = t.keepAlive
	}
	req, err := t.compiler.Scroll(scrollID, keepAlive)
	if err != nil {
		return nil, fmt.Errorf("compiling scroll request: %w", err)
	}
	return t.search(ctx, "scroll", req, nil)
}

// ClearScroll releases scroll contexts.
func (t *Template) ClearScroll(ctx context.Context, scrollIDs ...string) error {
	req, err := t.compiler.ClearScroll(scrollIDs...)
	if err != nil {
		return fmt.Errorf("compiling clear scroll request: %w", err)
	}
	_, err = t.execute(ctx, "clear_scroll", req, nil)
	return err
}

// Stream scrolls through every hit of q and calls fn for each one in order,
// stopping after q.MaxResults hits when set. The scroll is cleared when
// Stream returns, also on error.
func (t *Template) Stream(ctx context.Context, q *query.Query, r metadata.Resolver, idx query.IndexCoordinates, fn func(document.SearchHit[*document.Document]) error) error {
	page, err := t.ScrollStart(ctx, q, r, idx)
	if err != nil {
		return fmt.Errorf("initiating scroll: %w", err)
	}
	scrollID := page.ScrollID
	defer func() {
		if scrollID == "" {
			return
		}
		if err := t.ClearScroll(context.WithoutCancel(ctx), scrollID); err != nil {
			slog.Warn("failed to clear scroll", "index", idx.String(), "error", err)
		}
	}()

	remaining := -1
	if q.IsLimiting() {
		remaining = *q.MaxResults
	}
	for len(page.Hits) > 0 {
		for _, h := range page.Hits {
			if remaining == 0 {
				return nil
			}
			if err := fn(h); err != nil {
				return err
			}
			if remaining > 0 {
				remaining--
			}
		}
		if remaining == 0 {
			return nil
		}
		if scrollID == "" {
			return nil
		}
		page, err = t.ScrollNext(ctx, scrollID, q.Scroll)
		if err != nil {
			return fmt.Errorf("continuing scroll: %w", err)
		}
		if page.ScrollID != "" {
			scrollID = page.ScrollID
		}
	}
	return nil
}

// OpenPointInTime opens a point-in-time on idx and returns its id.
func (t *Template) OpenPointInTime(ctx context.Context, idx query.IndexCoordinates, keepAlive time.Duration) (string, error) {
	if keepAlive <= 0 {
		keepAlive = t.keepAlive
	}
	var resp wire.PointInTimeResponse
	if _, err := t.execute(ctx, "open_pit", t.compiler.OpenPointInTime(idx, keepAlive), &resp); err != nil {
		return "", err
	}
	if resp.ID() == "" {
		return "", fmt.Errorf("open_pit: response carries no point-in-time id")
	}
	return resp.ID(), nil
}

// ClosePointInTime releases a point-in-time.
func (t *Template) ClosePointInTime(ctx context.Context, id string) error {
	req, err := t.compiler.ClosePointInTime(id)
	if err != nil {
		return fmt.Errorf("compiling close point in time request: %w", err)
	}
	_, err = t.execute(ctx, "close_pit", req, nil)
	return err
}
