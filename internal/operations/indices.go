package operations

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/leonunix/docsearch/internal/apierror"
	"github.com/leonunix/docsearch/internal/metadata"
	"github.com/leonunix/docsearch/internal/query"
	"github.com/leonunix/docsearch/internal/wire"
)

// CreateIndex creates the primary index of idx together with its aliases.
func (t *Template) CreateIndex(ctx context.Context, idx query.IndexCoordinates, spec query.IndexSpec, r metadata.Resolver) (bool, error) {
	req, err := t.compiler.CreateIndex(idx, spec, r)
	if err != nil {
		return false, fmt.Errorf("compiling create index request: %w", err)
	}
	var resp wire.AcknowledgedResponse
	if _, err := t.execute(ctx, "create_index", req, &resp); err != nil {
		return false, err
	}
	return resp.Acknowledged, nil
}

// DeleteIndex deletes every index of idx. A missing index reports false
// without error.
func (t *Template) DeleteIndex(ctx context.Context, idx query.IndexCoordinates) (bool, error) {
	var resp wire.AcknowledgedResponse
	if _, err := t.execute(ctx, "delete_index", t.compiler.DeleteIndex(idx), &resp); err != nil {
		if errors.Is(err, apierror.ErrIndexNotFound) {
			return false, nil
		}
		return false, err
	}
	return resp.Acknowledged, nil
}

// IndexExists reports whether every index of idx exists.
func (t *Template) IndexExists(ctx context.Context, idx query.IndexCoordinates) (bool, error) {
	resp, err := t.execute(ctx, "index_exists", t.compiler.IndexExists(idx), nil)
	if err != nil {
		return false, err
	}
	return resp.Status == http.StatusOK, nil
}

// Refresh makes recent writes to idx visible to search.
func (t *Template) Refresh(ctx context.Context, idx query.IndexCoordinates) error {
	_, err := t.execute(ctx, "refresh", t.compiler.Refresh(idx), nil)
	return err
}

// UpdateAliases applies actions atomically.
func (t *Template) UpdateAliases(ctx context.Context, actions []query.AliasAction, r metadata.Resolver) (bool, error) {
	req, err := t.compiler.Aliases(actions, r)
	if err != nil {
		return false, fmt.Errorf("compiling aliases request: %w", err)
	}
	var resp wire.AcknowledgedResponse
	if _, err := t.execute(ctx, "aliases", req, &resp); err != nil {
		return false, err
	}
	return resp.Acknowledged, nil
}
