package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Document is a JSON object whose keys keep their insertion order. It also
// carries the metadata the engine returns alongside a source document.
type Document struct {
	keys   []string
	values map[string]any

	ID          string
	Index       string
	Routing     string
	Version     *int64
	SeqNo       *int64
	PrimaryTerm *int64
}

// New returns an empty document.
func New() *Document {
	return &Document{values: make(map[string]any)}
}

// FromMap builds a document from m. Keys are sorted because map iteration
// order is random.
func FromMap(m map[string]any) *Document {
	d := New()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d.Put(k, m[k])
	}
	return d
}

// Parse decodes a JSON object preserving key order.
func Parse(data []byte) (*Document, error) {
	d := New()
	if err := d.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return d, nil
}

// Put sets key to value. Existing keys keep their position.
func (d *Document) Put(key string, value any) {
	if d.values == nil {
		d.values = make(map[string]any)
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the raw value for key.
func (d *Document) Get(key string) (any, bool) {
	if d == nil || d.values == nil {
		return nil, false
	}
	v, ok := d.values[key]
	return v, ok
}

// Has reports whether key is present.
func (d *Document) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Remove deletes key and returns its previous value.
func (d *Document) Remove(key string) (any, bool) {
	v, ok := d.Get(key)
	if !ok {
		return nil, false
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// Keys returns the keys in insertion order.
func (d *Document) Keys() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Len returns the number of keys.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// IsEmpty reports whether the document has no keys.
func (d *Document) IsEmpty() bool { return d.Len() == 0 }

// HasID reports whether the engine id is set.
func (d *Document) HasID() bool { return d != nil && d.ID != "" }

// Range calls fn for every key in order until fn returns false.
func (d *Document) Range(fn func(key string, value any) bool) {
	if d == nil {
		return
	}
	for _, k := range d.keys {
		if !fn(k, d.values[k]) {
			return
		}
	}
}

// Map returns a shallow copy of the document content.
func (d *Document) Map() map[string]any {
	out := make(map[string]any, d.Len())
	d.Range(func(k string, v any) bool {
		out[k] = v
		return true
	})
	return out
}

// Clone returns a shallow copy including metadata.
func (d *Document) Clone() *Document {
	c := New()
	d.Range(func(k string, v any) bool {
		c.Put(k, v)
		return true
	})
	c.ID = d.ID
	c.Index = d.Index
	c.Routing = d.Routing
	c.Version = d.Version
	c.SeqNo = d.SeqNo
	c.PrimaryTerm = d.PrimaryTerm
	return c
}

// MarshalJSON writes the keys in insertion order. Metadata is not part of
// the JSON form.
func (d *Document) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(d.values[k])
		if err != nil {
			return nil, fmt.Errorf("encoding key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping key order at every nesting
// level. Numbers are decoded as json.Number.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decoding document: expected object, got %v", tok)
	}
	d.keys = nil
	d.values = make(map[string]any)
	if err := d.decodeObject(dec); err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}
	return nil
}

func (d *Document) decodeObject(dec *json.Decoder) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return err
		}
		d.Put(key, v)
	}
	_, err := dec.Token() // '}'
	return err
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		child := New()
		if err := child.decodeObject(dec); err != nil {
			return nil, err
		}
		return child, nil
	case '[':
		list := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}

// Decode converts the document into v via its JSON form.
func (d *Document) Decode(v any) error {
	data, err := d.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
