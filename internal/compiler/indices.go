package compiler

import (
	"fmt"

	"github.com/leonunix/docsearch/internal/metadata"
	"github.com/leonunix/docsearch/internal/query"
	"github.com/leonunix/docsearch/internal/wire"
)

func (c *Compiler) aliasBody(a query.Alias, r metadata.Resolver) (wire.AliasBody, error) {
	body := wire.AliasBody{
		IndexRouting:  a.IndexRouting(),
		SearchRouting: a.SearchRouting(),
		Routing:       a.Routing(),
		IsHidden:      a.IsHidden(),
		IsWriteIndex:  a.IsWriteIndex(),
	}
	if f := a.Filter(); f != nil {
		q, err := c.QueryJSON(f, r)
		if err != nil {
			return wire.AliasBody{}, fmt.Errorf("compiling filter of alias %q: %w", a.Name(), err)
		}
		body.Filter = q
	}
	return body, nil
}

// CreateIndex compiles the creation of idx's primary index with the
// aliases bound to idx.
func (c *Compiler) CreateIndex(idx query.IndexCoordinates, spec query.IndexSpec, r metadata.Resolver) (*wire.CreateIndexRequest, error) {
	r = resolver(r)
	req := &wire.CreateIndexRequest{
		Index:    idx.IndexName(),
		Settings: spec.Settings,
		Mappings: spec.Mappings,
	}
	for _, a := range idx.Aliases() {
		body, err := c.aliasBody(a, r)
		if err != nil {
			return nil, err
		}
		if req.Aliases == nil {
			req.Aliases = make(map[string]wire.AliasBody)
		}
		req.Aliases[a.Name()] = body
	}
	return req, nil
}

// DeleteIndex compiles the deletion of every index of idx.
func (c *Compiler) DeleteIndex(idx query.IndexCoordinates) *wire.DeleteIndexRequest {
	return &wire.DeleteIndexRequest{Indices: idx.IndexNames()}
}

// IndexExists compiles an existence check of idx.
func (c *Compiler) IndexExists(idx query.IndexCoordinates) *wire.IndexExistsRequest {
	return &wire.IndexExistsRequest{Indices: idx.IndexNames()}
}

// Refresh compiles a refresh of idx.
func (c *Compiler) Refresh(idx query.IndexCoordinates) *wire.RefreshRequest {
	return &wire.RefreshRequest{Indices: idx.IndexNames()}
}

var aliasActionTypes = map[query.AliasActionType]string{
	query.AliasAdd:         "add",
	query.AliasRemove:      "remove",
	query.AliasRemoveIndex: "remove_index",
}

// Aliases compiles an atomic alias update.
func (c *Compiler) Aliases(actions []query.AliasAction, r metadata.Resolver) (*wire.AliasesRequest, error) {
	if len(actions) == 0 {
		return nil, invalid("alias update without actions")
	}
	r = resolver(r)
	req := &wire.AliasesRequest{Actions: make([]wire.AliasAction, 0, len(actions))}
	for i, a := range actions {
		typ, ok := aliasActionTypes[a.Type]
		if !ok {
			return nil, invalid("unknown alias action %d", a.Type)
		}
		if len(a.Indices) == 0 {
			return nil, invalid("alias action %d without indices", i)
		}
		w := wire.AliasAction{Type: typ, Indices: a.Indices, MustExist: a.MustExist}
		if a.Type != query.AliasRemoveIndex {
			if a.Alias.Name() == "" {
				return nil, invalid("alias action %d without alias", i)
			}
			w.Alias = a.Alias.Name()
		}
		if a.Type == query.AliasAdd {
			body, err := c.aliasBody(a.Alias, r)
			if err != nil {
				return nil, err
			}
			w.Body = body
		}
		req.Actions = append(req.Actions, w)
	}
	return req, nil
}
