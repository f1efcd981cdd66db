package metadata

import (
	"encoding/json"
	"fmt"

	"github.com/leonunix/docsearch/internal/document"
	"github.com/leonunix/docsearch/internal/query"
)

// Raw resolves documents without an entity type: field names pass through,
// ids come from *document.Document and values use the default converters.
var Raw Resolver = raw{}

type raw struct{}

func (raw) FieldName(property string) string { return property }

func (raw) IDOf(entity any) (string, bool) {
	if doc, ok := entity.(*document.Document); ok && doc != nil {
		return doc.ID, doc.ID != ""
	}
	return "", false
}

func (raw) VersionType() query.VersionType { return query.VersionExternal }
func (raw) HasSeqNoPrimaryTerm() bool      { return false }

func (raw) ConvertForWrite(_ string, value any) (any, error) { return defaultWrite(value) }
func (raw) ConvertForRead(_ string, wire any) (any, error)   { return wire, nil }

func (raw) ToDocument(entity any) (*document.Document, error) {
	switch src := entity.(type) {
	case *document.Document:
		return src.Clone(), nil
	case map[string]any:
		return document.FromMap(src), nil
	case json.RawMessage:
		return document.Parse(src)
	case []byte:
		return document.Parse(src)
	}
	b, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("metadata: encoding %T: %w", entity, err)
	}
	return document.Parse(b)
}
