package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// Concurrency is the optimistic concurrency control of a write. The
// compiler sets either the seq_no/primary_term pair or Version.
type Concurrency struct {
	IfSeqNo       *int64
	IfPrimaryTerm *int64
	Version       *int64
	VersionType   string
}

func (c Concurrency) apply(req *HTTPRequest) {
	setInt64(req.Params, "if_seq_no", c.IfSeqNo)
	setInt64(req.Params, "if_primary_term", c.IfPrimaryTerm)
	setInt64(req.Params, "version", c.Version)
	setString(req.Params, "version_type", c.VersionType)
}

// IndexRequest stores one document.
type IndexRequest struct {
	Index    string
	ID       string
	Source   json.RawMessage
	Routing  string
	Pipeline string
	OpType   string
	Concurrency
	WriteParams
}

func (r *IndexRequest) Encode(_ Dialect) (*HTTPRequest, error) {
	if r.Index == "" {
		return nil, fmt.Errorf("index request without index")
	}
	var req *HTTPRequest
	if r.ID == "" {
		req = newRequest(http.MethodPost, indexPath(r.Index)+"/_doc")
	} else {
		req = newRequest(http.MethodPut, indexPath(r.Index)+"/_doc/"+esc(r.ID))
	}
	setString(req.Params, "routing", r.Routing)
	setString(req.Params, "pipeline", r.Pipeline)
	setString(req.Params, "op_type", r.OpType)
	r.Concurrency.apply(req)
	r.WriteParams.apply(req.Params)
	req.Body = r.Source
	req.ContentType = ContentTypeJSON
	return req, nil
}

// GetRequest reads one document.
type GetRequest struct {
	Index      string
	ID         string
	Routing    string
	Preference string
	Realtime   *bool
	Source     SourceParams
}

func (r *GetRequest) Encode(_ Dialect) (*HTTPRequest, error) {
	req := newRequest(http.MethodGet, indexPath(r.Index)+"/_doc/"+esc(r.ID))
	setString(req.Params, "routing", r.Routing)
	setString(req.Params, "preference", r.Preference)
	setBool(req.Params, "realtime", r.Realtime)
	r.Source.apply(req.Params)
	return req, nil
}

// MultiGetDoc addresses one document of a multi-get.
type MultiGetDoc struct {
	Index   string `json:"_index,omitempty"`
	ID      string `json:"_id"`
	Routing string `json:"routing,omitempty"`
}

// MultiGetRequest reads several documents. Items come back in Docs order.
type MultiGetRequest struct {
	Index      string
	Docs       []MultiGetDoc
	Preference string
	Realtime   *bool
	Source     SourceParams
}

func (r *MultiGetRequest) Encode(_ Dialect) (*HTTPRequest, error) {
	req := newRequest(http.MethodPost, indexPath(r.Index)+"/_mget")
	setString(req.Params, "preference", r.Preference)
	setBool(req.Params, "realtime", r.Realtime)
	r.Source.apply(req.Params)
	if err := req.jsonBody(map[string][]MultiGetDoc{"docs": r.Docs}); err != nil {
		return nil, err
	}
	return req, nil
}

// UpdateBody is the body of an update, also used by bulk update items.
type UpdateBody struct {
	Doc            json.RawMessage `json:"doc,omitempty"`
	Script         *Script         `json:"script,omitempty"`
	Upsert         json.RawMessage `json:"upsert,omitempty"`
	DocAsUpsert    *bool           `json:"doc_as_upsert,omitempty"`
	ScriptedUpsert *bool           `json:"scripted_upsert,omitempty"`
	DetectNoop     *bool           `json:"detect_noop,omitempty"`
	// Source is a bool or *SourceFilter. Only bulk items carry it in the
	// body; single updates use SourceParams.
	Source any `json:"_source,omitempty"`
}

// UpdateRequest changes one document.
type UpdateRequest struct {
	Index           string
	ID              string
	Body            UpdateBody
	Routing         string
	RetryOnConflict *int
	Source          SourceParams
	Concurrency
	WriteParams
}

func (r *UpdateRequest) Encode(_ Dialect) (*HTTPRequest, error) {
	req := newRequest(http.MethodPost, indexPath(r.Index)+"/_update/"+esc(r.ID))
	setString(req.Params, "routing", r.Routing)
	setInt(req.Params, "retry_on_conflict", r.RetryOnConflict)
	r.Source.apply(req.Params)
	r.Concurrency.apply(req)
	r.WriteParams.apply(req.Params)
	if err := req.jsonBody(r.Body); err != nil {
		return nil, fmt.Errorf("encoding update body: %w", err)
	}
	return req, nil
}

// DeleteRequest removes one document.
type DeleteRequest struct {
	Index   string
	ID      string
	Routing string
	Concurrency
	WriteParams
}

func (r *DeleteRequest) Encode(_ Dialect) (*HTTPRequest, error) {
	req := newRequest(http.MethodDelete, indexPath(r.Index)+"/_doc/"+esc(r.ID))
	setString(req.Params, "routing", r.Routing)
	r.Concurrency.apply(req)
	r.WriteParams.apply(req.Params)
	return req, nil
}

// Bulk actions.
const (
	BulkIndex  = "index"
	BulkCreate = "create"
	BulkUpdate = "update"
	BulkDelete = "delete"
)

// BulkMeta is the action line of a bulk item. Unset fields fall back to the
// request level parameters.
type BulkMeta struct {
	Index           string `json:"_index,omitempty"`
	ID              string `json:"_id,omitempty"`
	Routing         string `json:"routing,omitempty"`
	Pipeline        string `json:"pipeline,omitempty"`
	IfSeqNo         *int64 `json:"if_seq_no,omitempty"`
	IfPrimaryTerm   *int64 `json:"if_primary_term,omitempty"`
	Version         *int64 `json:"version,omitempty"`
	VersionType     string `json:"version_type,omitempty"`
	RetryOnConflict *int   `json:"retry_on_conflict,omitempty"`
	RequireAlias    *bool  `json:"require_alias,omitempty"`
}

// BulkItem is one action of a bulk request. Body is the source for index
// and create, an UpdateBody for update and empty for delete.
type BulkItem struct {
	Action string
	Meta   BulkMeta
	Body   json.RawMessage
}

// BulkRequest sends many writes at once. Response items come back in Items
// order.
type BulkRequest struct {
	// Index is the default index of items without one.
	Index    string
	Items    []BulkItem
	Pipeline string
	Routing  string
	WriteParams
}

func (r *BulkRequest) Encode(_ Dialect) (*HTTPRequest, error) {
	if len(r.Items) == 0 {
		return nil, fmt.Errorf("bulk request without items")
	}
	var buf bytes.Buffer
	for i, item := range r.Items {
		if err := ndjson(&buf, map[string]BulkMeta{item.Action: item.Meta}); err != nil {
			return nil, fmt.Errorf("encoding bulk action %d: %w", i, err)
		}
		if item.Action == BulkDelete {
			continue
		}
		if len(item.Body) == 0 {
			return nil, fmt.Errorf("bulk %s item %d without body", item.Action, i)
		}
		// Each document must sit on one line.
		var compact bytes.Buffer
		if err := json.Compact(&compact, item.Body); err != nil {
			return nil, fmt.Errorf("encoding bulk body %d: %w", i, err)
		}
		buf.Write(compact.Bytes())
		buf.WriteByte('\n')
	}
	req := newRequest(http.MethodPost, indexPath(r.Index)+"/_bulk")
	setString(req.Params, "pipeline", r.Pipeline)
	setString(req.Params, "routing", r.Routing)
	r.WriteParams.apply(req.Params)
	req.Body = buf.Bytes()
	req.ContentType = ContentTypeNDJSON
	return req, nil
}
