package compiler

import (
	"encoding/json"
	"fmt"

	"github.com/leonunix/docsearch/internal/metadata"
	"github.com/leonunix/docsearch/internal/occ"
	"github.com/leonunix/docsearch/internal/query"
	"github.com/leonunix/docsearch/internal/wire"
)

// indexDoc is the compiled form of an IndexQuery shared by single and bulk
// index requests.
type indexDoc struct {
	index  string
	id     string
	source json.RawMessage
	plan   occ.WritePlan
}

func (c *Compiler) indexDoc(q *query.IndexQuery, r metadata.Resolver, idx query.IndexCoordinates) (indexDoc, error) {
	if q == nil {
		return indexDoc{}, invalid("index without query")
	}
	d := indexDoc{index: q.IndexName, id: q.ID}
	if d.index == "" {
		d.index = idx.IndexName()
	}
	if d.index == "" {
		return indexDoc{}, invalid("index query without index name")
	}
	switch {
	case q.Object != nil:
		if d.id == "" {
			d.id, _ = r.IDOf(q.Object)
		}
		doc, err := r.ToDocument(q.Object)
		if err != nil {
			return indexDoc{}, fmt.Errorf("converting %T: %w", q.Object, err)
		}
		occ.Strip(doc)
		if d.source, err = marshal(doc); err != nil {
			return indexDoc{}, err
		}
	case len(q.Source) > 0:
		d.source = q.Source
	default:
		return indexDoc{}, invalid("object or source is missing, failed to index the document [id: %s]", q.ID)
	}
	d.plan = occ.Plan(q.Version, q.SeqNo, q.PrimaryTerm, r.VersionType())
	return d, nil
}

// Index compiles q into a single-document index request. An explicit id
// wins over the id of q.Object; without either the engine assigns one.
func (c *Compiler) Index(q *query.IndexQuery, r metadata.Resolver, idx query.IndexCoordinates, opts query.WriteOptions) (*wire.IndexRequest, error) {
	r = resolver(r)
	d, err := c.indexDoc(q, r, idx)
	if err != nil {
		return nil, err
	}
	req := &wire.IndexRequest{
		Index:       d.index,
		ID:          d.id,
		Source:      d.source,
		Routing:     q.Routing,
		Pipeline:    q.Pipeline,
		OpType:      q.OpType.String(),
		Concurrency: concurrency(d.plan),
		WriteParams: writeParams(opts),
	}
	if req.Routing == "" {
		req.Routing = opts.Routing
	}
	if req.Pipeline == "" {
		req.Pipeline = opts.Pipeline
	}
	return req, nil
}

// Bulk compiles items into one bulk request. Items keep their order, which
// the response mapper relies on. Options apply to every item that does not
// set its own routing or pipeline.
func (c *Compiler) Bulk(items []query.BulkItem, r metadata.Resolver, idx query.IndexCoordinates, opts query.WriteOptions) (*wire.BulkRequest, error) {
	return c.BulkEach(items, func(int) metadata.Resolver { return r }, idx, opts)
}

// ItemResolver returns the metadata of the i-th bulk item. A nil result
// treats the item as a raw document.
type ItemResolver func(i int) metadata.Resolver

// BulkEach is Bulk with the metadata picked per item, for batches mixing
// entity types.
func (c *Compiler) BulkEach(items []query.BulkItem, resolve ItemResolver, idx query.IndexCoordinates, opts query.WriteOptions) (*wire.BulkRequest, error) {
	if len(items) == 0 {
		return nil, invalid("bulk without items")
	}
	req := &wire.BulkRequest{
		Index:       idx.IndexName(),
		Items:       make([]wire.BulkItem, 0, len(items)),
		Pipeline:    opts.Pipeline,
		Routing:     opts.Routing,
		WriteParams: writeParams(opts),
	}
	for i, item := range items {
		var (
			w   wire.BulkItem
			err error
			r   metadata.Resolver
		)
		if resolve != nil {
			r = resolve(i)
		}
		r = resolver(r)
		switch q := item.(type) {
		case *query.IndexQuery:
			w, err = c.bulkIndex(q, r, idx)
		case *query.UpdateQuery:
			w, err = c.bulkUpdate(q, r, idx)
		default:
			err = invalid("unsupported bulk item %T", item)
		}
		if err != nil {
			return nil, fmt.Errorf("compiling bulk item %d: %w", i, err)
		}
		req.Items = append(req.Items, w)
	}
	return req, nil
}

func (c *Compiler) bulkIndex(q *query.IndexQuery, r metadata.Resolver, idx query.IndexCoordinates) (wire.BulkItem, error) {
	if q == nil {
		return wire.BulkItem{}, invalid("nil index query")
	}
	d, err := c.indexDoc(q, r, idx)
	if err != nil {
		return wire.BulkItem{}, err
	}
	action := wire.BulkIndex
	if q.OpType == query.OpTypeCreate {
		action = wire.BulkCreate
	}
	cc := concurrency(d.plan)
	return wire.BulkItem{
		Action: action,
		Meta: wire.BulkMeta{
			Index:         d.index,
			ID:            d.id,
			Routing:       q.Routing,
			Pipeline:      q.Pipeline,
			IfSeqNo:       cc.IfSeqNo,
			IfPrimaryTerm: cc.IfPrimaryTerm,
			Version:       cc.Version,
			VersionType:   cc.VersionType,
		},
		Body: d.source,
	}, nil
}

func (c *Compiler) bulkUpdate(q *query.UpdateQuery, r metadata.Resolver, idx query.IndexCoordinates) (wire.BulkItem, error) {
	if q == nil {
		return wire.BulkItem{}, invalid("nil update query")
	}
	body, err := c.updateBody(q, r)
	if err != nil {
		return wire.BulkItem{}, err
	}
	if f, params := sourceFilter(q.SourceFilter, q.FetchSource, r); f != nil {
		body.Source = f
	} else if params.Fetch != nil {
		body.Source = *params.Fetch
	}
	raw, err := marshal(body)
	if err != nil {
		return wire.BulkItem{}, err
	}
	index := q.IndexName
	if index == "" {
		index = idx.IndexName()
	}
	plan := occ.Plan(nil, q.SeqNo, q.PrimaryTerm, query.VersionTypeUnset)
	return wire.BulkItem{
		Action: wire.BulkUpdate,
		Meta: wire.BulkMeta{
			Index:           index,
			ID:              q.ID,
			Routing:         q.Routing,
			IfSeqNo:         plan.SeqNo,
			IfPrimaryTerm:   plan.PrimaryTerm,
			RetryOnConflict: q.RetryOnConflict,
			RequireAlias:    q.RequireAlias,
		},
		Body: raw,
	}, nil
}

func (c *Compiler) updateBody(q *query.UpdateQuery, r metadata.Resolver) (wire.UpdateBody, error) {
	if q.ID == "" {
		return wire.UpdateBody{}, invalid("update without id")
	}
	if q.Doc == nil && q.Script == nil {
		return wire.UpdateBody{}, invalid("update of %q has neither document nor script", q.ID)
	}
	body := wire.UpdateBody{
		Script:         script(q.Script),
		DocAsUpsert:    q.DocAsUpsert,
		ScriptedUpsert: q.ScriptedUpsert,
		DetectNoop:     q.DetectNoop,
	}
	var err error
	if q.Doc != nil {
		if body.Doc, err = marshal(q.Doc); err != nil {
			return wire.UpdateBody{}, err
		}
	}
	if q.Upsert != nil {
		if body.Upsert, err = marshal(q.Upsert); err != nil {
			return wire.UpdateBody{}, err
		}
	}
	return body, nil
}

// Update compiles q into a single-document update.
func (c *Compiler) Update(q *query.UpdateQuery, r metadata.Resolver, idx query.IndexCoordinates) (*wire.UpdateRequest, error) {
	if q == nil {
		return nil, invalid("update without query")
	}
	r = resolver(r)
	body, err := c.updateBody(q, r)
	if err != nil {
		return nil, err
	}
	_, params := sourceFilter(q.SourceFilter, q.FetchSource, r)
	index := q.IndexName
	if index == "" {
		index = idx.IndexName()
	}
	return &wire.UpdateRequest{
		Index:           index,
		ID:              q.ID,
		Body:            body,
		Routing:         q.Routing,
		RetryOnConflict: q.RetryOnConflict,
		Source:          params,
		Concurrency:     concurrency(occ.Plan(nil, q.SeqNo, q.PrimaryTerm, query.VersionTypeUnset)),
		WriteParams: wire.WriteParams{
			Refresh:             q.Refresh.Param(),
			Timeout:             q.Timeout,
			WaitForActiveShards: string(q.WaitForActiveShards),
			RequireAlias:        q.RequireAlias,
		},
	}, nil
}

// Delete compiles q into a single-document delete. A version without a
// version type uses the resolver's.
func (c *Compiler) Delete(q *query.DeleteQuery, r metadata.Resolver, idx query.IndexCoordinates) (*wire.DeleteRequest, error) {
	if q == nil || q.ID == "" {
		return nil, invalid("delete without id")
	}
	r = resolver(r)
	vt := q.VersionType
	if vt == query.VersionTypeUnset {
		vt = r.VersionType()
	}
	routing := q.Routing
	if routing == "" {
		routing = q.Options.Routing
	}
	return &wire.DeleteRequest{
		Index:       idx.IndexName(),
		ID:          q.ID,
		Routing:     routing,
		Concurrency: concurrency(occ.Plan(q.Version, q.SeqNo, q.PrimaryTerm, vt)),
		WriteParams: writeParams(q.Options),
	}, nil
}

// GetOptions tune a get.
type GetOptions struct {
	Routing      string
	Preference   string
	Realtime     *bool
	FetchSource  *bool
	SourceFilter *query.SourceFilter
}

// Get compiles a read of one document.
func (c *Compiler) Get(id string, r metadata.Resolver, idx query.IndexCoordinates, opts GetOptions) (*wire.GetRequest, error) {
	if id == "" {
		return nil, invalid("get without id")
	}
	_, params := sourceFilter(opts.SourceFilter, opts.FetchSource, resolver(r))
	return &wire.GetRequest{
		Index:      idx.IndexName(),
		ID:         id,
		Routing:    opts.Routing,
		Preference: opts.Preference,
		Realtime:   opts.Realtime,
		Source:     params,
	}, nil
}

// MultiGet compiles a read of q.IDs. Route, preference and source filter
// are taken from q.
func (c *Compiler) MultiGet(q *query.Query, r metadata.Resolver, idx query.IndexCoordinates) (*wire.MultiGetRequest, error) {
	if q == nil || len(q.IDs) == 0 {
		return nil, invalid("multi get without ids")
	}
	_, params := sourceFilter(q.SourceFilter, nil, resolver(r))
	index := idx.IndexName()
	docs := make([]wire.MultiGetDoc, 0, len(q.IDs))
	for _, id := range q.IDs {
		docs = append(docs, wire.MultiGetDoc{Index: index, ID: id, Routing: q.Route})
	}
	return &wire.MultiGetRequest{
		Docs:       docs,
		Preference: q.Preference,
		Source:     params,
	}, nil
}
