package document

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Aggregations wraps the aggregation results of a search response. Each
// aggregation is kept as raw JSON so callers decode the shape they asked for.
type Aggregations struct {
	raw   map[string]json.RawMessage
	types map[string]string
}

// NewAggregations wraps raw aggregation results.
func NewAggregations(raw map[string]json.RawMessage) *Aggregations {
	if raw == nil {
		raw = map[string]json.RawMessage{}
	}
	return &Aggregations{raw: raw}
}

// NewTypedAggregations wraps results whose names carry their type, as in
// "sterms#by_status". The type is split off the top-level names; names of
// sub-aggregations inside the raw results keep it.
func NewTypedAggregations(raw map[string]json.RawMessage) *Aggregations {
	a := &Aggregations{raw: make(map[string]json.RawMessage, len(raw)), types: make(map[string]string, len(raw))}
	for key, v := range raw {
		typ, name, ok := strings.Cut(key, "#")
		if !ok {
			a.raw[key] = v
			continue
		}
		a.raw[name] = v
		a.types[name] = typ
	}
	return a
}

// Type returns the type of the aggregation name, such as "sterms". It is
// empty unless the response carried typed keys.
func (a *Aggregations) Type(name string) string {
	if a == nil {
		return ""
	}
	return a.types[name]
}

// Len returns the number of aggregations.
func (a *Aggregations) Len() int {
	if a == nil {
		return 0
	}
	return len(a.raw)
}

// Names returns the aggregation names in sorted order.
func (a *Aggregations) Names() []string {
	if a == nil {
		return nil
	}
	names := make([]string, 0, len(a.raw))
	for n := range a.raw {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get returns the raw result for name.
func (a *Aggregations) Get(name string) (json.RawMessage, bool) {
	if a == nil {
		return nil, false
	}
	v, ok := a.raw[name]
	return v, ok
}

// Decode unmarshals the aggregation name into v.
func (a *Aggregations) Decode(name string, v any) error {
	raw, ok := a.Get(name)
	if !ok {
		return fmt.Errorf("aggregation %q not present", name)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding aggregation %q: %w", name, err)
	}
	return nil
}

// Raw returns the underlying map.
func (a *Aggregations) Raw() map[string]json.RawMessage {
	if a == nil {
		return nil
	}
	return a.raw
}

// MarshalJSON writes the raw aggregations object.
func (a *Aggregations) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Raw())
}

// TermsBucket is a bucket of a terms aggregation.
type TermsBucket struct {
	Key      any   `json:"key"`
	DocCount int64 `json:"doc_count"`
}

// Terms is the result shape of a terms aggregation.
type Terms struct {
	DocCountErrorUpperBound int64         `json:"doc_count_error_upper_bound"`
	SumOtherDocCount        int64         `json:"sum_other_doc_count"`
	Buckets                 []TermsBucket `json:"buckets"`
}

// Terms decodes name as a terms aggregation.
func (a *Aggregations) Terms(name string) (*Terms, error) {
	var t Terms
	if err := a.Decode(name, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
