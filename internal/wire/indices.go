package wire

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// AliasBody is an alias definition inside create-index and alias actions.
type AliasBody struct {
	Filter        json.RawMessage `json:"filter,omitempty"`
	IndexRouting  string          `json:"index_routing,omitempty"`
	SearchRouting string          `json:"search_routing,omitempty"`
	Routing       string          `json:"routing,omitempty"`
	IsHidden      *bool           `json:"is_hidden,omitempty"`
	IsWriteIndex  *bool           `json:"is_write_index,omitempty"`
}

// CreateIndexRequest creates an index.
type CreateIndexRequest struct {
	Index    string
	Settings json.RawMessage
	Mappings json.RawMessage
	Aliases  map[string]AliasBody
}

func (r *CreateIndexRequest) Encode(_ Dialect) (*HTTPRequest, error) {
	if r.Index == "" {
		return nil, fmt.Errorf("create index without name")
	}
	req := newRequest(http.MethodPut, indexPath(r.Index))
	body := struct {
		Settings json.RawMessage      `json:"settings,omitempty"`
		Mappings json.RawMessage      `json:"mappings,omitempty"`
		Aliases  map[string]AliasBody `json:"aliases,omitempty"`
	}{r.Settings, r.Mappings, r.Aliases}
	if err := req.jsonBody(body); err != nil {
		return nil, err
	}
	return req, nil
}

// DeleteIndexRequest deletes indices.
type DeleteIndexRequest struct {
	Indices []string
}

func (r *DeleteIndexRequest) Encode(_ Dialect) (*HTTPRequest, error) {
	if len(r.Indices) == 0 {
		return nil, fmt.Errorf("delete index without names")
	}
	return newRequest(http.MethodDelete, indexPath(r.Indices...)), nil
}

// IndexExistsRequest checks index existence; the engine answers 200 or 404.
type IndexExistsRequest struct {
	Indices []string
}

func (r *IndexExistsRequest) Encode(_ Dialect) (*HTTPRequest, error) {
	if len(r.Indices) == 0 {
		return nil, fmt.Errorf("index exists without names")
	}
	return newRequest(http.MethodHead, indexPath(r.Indices...)), nil
}

// RefreshRequest makes recent writes searchable.
type RefreshRequest struct {
	Indices []string
}

func (r *RefreshRequest) Encode(_ Dialect) (*HTTPRequest, error) {
	return newRequest(http.MethodPost, indexPath(r.Indices...)+"/_refresh"), nil
}

// AliasAction is one entry of an alias update, encoded as {Type: {...}}.
type AliasAction struct {
	Type      string // add, remove or remove_index
	Indices   []string
	Alias     string
	Body      AliasBody
	MustExist *bool
}

func (a AliasAction) MarshalJSON() ([]byte, error) {
	inner := map[string]any{"indices": a.Indices}
	if a.Type != "remove_index" {
		inner["alias"] = a.Alias
	}
	if a.MustExist != nil {
		inner["must_exist"] = *a.MustExist
	}
	if a.Type == "add" {
		b := a.Body
		if len(b.Filter) > 0 {
			inner["filter"] = b.Filter
		}
		for k, v := range map[string]string{
			"index_routing":  b.IndexRouting,
			"search_routing": b.SearchRouting,
			"routing":        b.Routing,
		} {
			if v != "" {
				inner[k] = v
			}
		}
		if b.IsHidden != nil {
			inner["is_hidden"] = *b.IsHidden
		}
		if b.IsWriteIndex != nil {
			inner["is_write_index"] = *b.IsWriteIndex
		}
	}
	return json.Marshal(map[string]any{a.Type: inner})
}

// AliasesRequest applies alias actions atomically.
type AliasesRequest struct {
	Actions []AliasAction
}

func (r *AliasesRequest) Encode(_ Dialect) (*HTTPRequest, error) {
	if len(r.Actions) == 0 {
		return nil, fmt.Errorf("alias update without actions")
	}
	req := newRequest(http.MethodPost, "/_aliases")
	if err := req.jsonBody(map[string][]AliasAction{"actions": r.Actions}); err != nil {
		return nil, err
	}
	return req, nil
}

// InfoRequest reads cluster information.
type InfoRequest struct{}

func (InfoRequest) Encode(_ Dialect) (*HTTPRequest, error) {
	return newRequest(http.MethodGet, "/"), nil
}
