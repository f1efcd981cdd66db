package operations

import (
	"context"
	"fmt"

	"github.com/leonunix/docsearch/internal/compiler"
	"github.com/leonunix/docsearch/internal/document"
	"github.com/leonunix/docsearch/internal/mapper"
	"github.com/leonunix/docsearch/internal/metadata"
	"github.com/leonunix/docsearch/internal/occ"
	"github.com/leonunix/docsearch/internal/query"
	"github.com/leonunix/docsearch/internal/wire"
)

// Index stores one document. When q.Object is an entity or a document, the
// assigned id and concurrency tokens are written back into it.
func (t *Template) Index(ctx context.Context, q *query.IndexQuery, idx query.IndexCoordinates, opts query.WriteOptions) (document.IndexedObjectInformation, error) {
	var object any
	if q != nil {
		object = q.Object
	}
	r, e, err := t.resolverFor(object)
	if err != nil {
		return document.IndexedObjectInformation{}, err
	}
	req, err := t.compiler.Index(q, r, idx, opts)
	if err != nil {
		return document.IndexedObjectInformation{}, fmt.Errorf("compiling index request: %w", err)
	}
	var resp wire.WriteResponse
	if _, err := t.execute(ctx, "index", req, &resp); err != nil {
		return document.IndexedObjectInformation{}, err
	}
	info := mapper.IndexedObject(&resp)
	writeBack(e, object, info)
	return info, nil
}

func writeBack(e *metadata.Entity, object any, info document.IndexedObjectInformation) {
	if e != nil {
		e.UpdateIndexedObject(object, info)
		return
	}
	doc, ok := object.(*document.Document)
	if !ok || doc == nil {
		return
	}
	if info.ID != "" {
		doc.ID = info.ID
	}
	doc.Index = info.Index
	doc.SeqNo, doc.PrimaryTerm, doc.Version = info.SeqNo, info.PrimaryTerm, info.Version
}

// Save indexes entity into the index of its type, sending the version or
// seq_no/primary_term it carries.
func (t *Template) Save(ctx context.Context, entity any, opts query.WriteOptions) (document.IndexedObjectInformation, error) {
	_, e, err := t.resolverFor(entity)
	if err != nil {
		return document.IndexedObjectInformation{}, err
	}
	if e == nil {
		return document.IndexedObjectInformation{}, fmt.Errorf("save: %T is not an entity type", entity)
	}
	plan := occ.ForEntity(e, entity)
	q := &query.IndexQuery{
		Object:      entity,
		Version:     plan.Version,
		SeqNo:       plan.SeqNo,
		PrimaryTerm: plan.PrimaryTerm,
	}
	return t.Index(ctx, q, Coordinates(e), opts)
}

// Get reads one document. A missing document is returned as nil without
// error.
func (t *Template) Get(ctx context.Context, id string, r metadata.Resolver, idx query.IndexCoordinates, opts compiler.GetOptions) (*document.Document, error) {
	req, err := t.compiler.Get(id, r, idx, opts)
	if err != nil {
		return nil, fmt.Errorf("compiling get request: %w", err)
	}
	var resp wire.GetResponse
	raw, err := t.execute(ctx, "get", req, &resp)
	if err != nil {
		if notFoundDocument(raw, err) {
			return nil, nil
		}
		return nil, err
	}
	return mapper.Get(&resp)
}

// GetEntity reads the document id from the index of T.
func GetEntity[T any](ctx context.Context, t *Template, id string) (*T, error) {
	e, err := entityFor[T](t)
	if err != nil {
		return nil, err
	}
	doc, err := t.Get(ctx, id, e, Coordinates(e), compiler.GetOptions{})
	if err != nil || doc == nil {
		return nil, err
	}
	var v T
	if err := e.Read(doc, &v); err != nil {
		return nil, fmt.Errorf("reading %s %q: %w", e.Type, id, err)
	}
	return &v, nil
}

// MultiGet reads q.IDs in order.
func (t *Template) MultiGet(ctx context.Context, q *query.Query, r metadata.Resolver, idx query.IndexCoordinates) ([]document.MultiGetItem, error) {
	req, err := t.compiler.MultiGet(q, r, idx)
	if err != nil {
		return nil, fmt.Errorf("compiling multi get request: %w", err)
	}
	var resp wire.MultiGetResponse
	if _, err := t.execute(ctx, "mget", req, &resp); err != nil {
		return nil, err
	}
	return mapper.MultiGet(&resp, len(req.Docs))
}

// Update changes one document. r resolves the properties of the source
// filter; nil passes them through.
func (t *Template) Update(ctx context.Context, q *query.UpdateQuery, r metadata.Resolver, idx query.IndexCoordinates) (*document.UpdateResponse, error) {
	req, err := t.compiler.Update(q, r, idx)
	if err != nil {
		return nil, fmt.Errorf("compiling update request: %w", err)
	}
	var resp wire.WriteResponse
	if _, err := t.execute(ctx, "update", req, &resp); err != nil {
		return nil, err
	}
	return mapper.Update(&resp)
}

// Delete removes one document. Deleting a missing document is not an error;
// the result is then document.ResultNotFound.
func (t *Template) Delete(ctx context.Context, q *query.DeleteQuery, r metadata.Resolver, idx query.IndexCoordinates) (*document.UpdateResponse, error) {
	req, err := t.compiler.Delete(q, r, idx)
	if err != nil {
		return nil, fmt.Errorf("compiling delete request: %w", err)
	}
	var resp wire.WriteResponse
	raw, err := t.execute(ctx, "delete", req, &resp)
	if err != nil {
		if !notFoundDocument(raw, err) {
			return nil, err
		}
		resp = wire.WriteResponse{Index: req.Index, ID: req.ID, Result: "not_found"}
	}
	return mapper.Update(&resp)
}

// DeleteEntity removes entity from the index of its type, guarded by the
// concurrency tokens it carries.
func (t *Template) DeleteEntity(ctx context.Context, entity any, opts query.WriteOptions) (*document.UpdateResponse, error) {
	_, e, err := t.resolverFor(entity)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("delete: %T is not an entity type", entity)
	}
	id, ok := e.IDOf(entity)
	if !ok {
		return nil, fmt.Errorf("delete: %T has no id", entity)
	}
	plan := occ.ForEntity(e, entity)
	return t.Delete(ctx, &query.DeleteQuery{
		ID:          id,
		Version:     plan.Version,
		VersionType: plan.VersionType,
		SeqNo:       plan.SeqNo,
		PrimaryTerm: plan.PrimaryTerm,
		Options:     opts,
	}, e, Coordinates(e))
}

// Bulk writes items in one request. Index items carrying an entity are
// compiled with the metadata of its type and send the version or
// seq_no/primary_term it holds unless the command sets its own. Entities and
// documents of index items receive their acknowledgement on success. When
// any item fails the whole batch is reported as an *apierror.BulkFailureError.
func (t *Template) Bulk(ctx context.Context, items []query.BulkItem, r metadata.Resolver, idx query.IndexCoordinates, opts query.WriteOptions) ([]document.IndexedObjectInformation, error) {
	compiled := make([]query.BulkItem, len(items))
	entities := make([]*metadata.Entity, len(items))
	for i, item := range items {
		compiled[i] = item
		iq, ok := item.(*query.IndexQuery)
		if !ok || iq == nil || iq.Object == nil {
			continue
		}
		_, e, err := t.resolverFor(iq.Object)
		if err != nil {
			return nil, fmt.Errorf("compiling bulk request: item %d: %w", i, err)
		}
		if e == nil {
			continue
		}
		entities[i] = e
		compiled[i] = entityIndexQuery(iq, e, idx)
	}

	req, err := t.compiler.BulkEach(compiled, func(i int) metadata.Resolver {
		if entities[i] != nil {
			return entities[i]
		}
		return r
	}, idx, opts)
	if err != nil {
		return nil, fmt.Errorf("compiling bulk request: %w", err)
	}
	var resp wire.BulkResponse
	if _, err := t.execute(ctx, "bulk", req, &resp); err != nil {
		return nil, err
	}
	infos, err := mapper.Bulk(&resp, len(items))
	if err != nil {
		return nil, err
	}
	for i, item := range items {
		iq, ok := item.(*query.IndexQuery)
		if !ok || iq == nil || iq.Object == nil {
			continue
		}
		writeBack(entities[i], iq.Object, infos[i])
	}
	return infos, nil
}

// entityIndexQuery returns a copy of q with the concurrency tokens of its
// entity filled in. Without a batch index the entity's own index is used.
func entityIndexQuery(q *query.IndexQuery, e *metadata.Entity, idx query.IndexCoordinates) *query.IndexQuery {
	cp := *q
	if cp.Version == nil && cp.SeqNo == nil && cp.PrimaryTerm == nil {
		plan := occ.ForEntity(e, q.Object)
		cp.Version, cp.SeqNo, cp.PrimaryTerm = plan.Version, plan.SeqNo, plan.PrimaryTerm
	}
	if cp.IndexName == "" && idx.IndexName() == "" {
		cp.IndexName = e.IndexName
	}
	return &cp
}
