package document

import (
	"encoding/json"
	"fmt"
	"math"
)

// ClassCastError reports a typed getter call on a value of another type.
type ClassCastError struct {
	Key      string
	Expected string
	Actual   any
}

func (e *ClassCastError) Error() string {
	return fmt.Sprintf("value of key %q is %T, not %s", e.Key, e.Actual, e.Expected)
}

// GetString returns the string value of key. A missing key yields "" and
// no error.
func (d *Document) GetString(key string) (string, error) {
	v, ok := d.Get(key)
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &ClassCastError{Key: key, Expected: "string", Actual: v}
	}
	return s, nil
}

// GetBool returns the boolean value of key.
func (d *Document) GetBool(key string) (bool, error) {
	v, ok := d.Get(key)
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, &ClassCastError{Key: key, Expected: "bool", Actual: v}
	}
	return b, nil
}

// GetInt64 returns the integer value of key. Floating point values with a
// fractional part are rejected.
func (d *Document) GetInt64(key string) (int64, error) {
	v, ok := d.Get(key)
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, &ClassCastError{Key: key, Expected: "int64", Actual: v}
		}
		return i, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, &ClassCastError{Key: key, Expected: "int64", Actual: v}
		}
		return int64(n), nil
	default:
		return 0, &ClassCastError{Key: key, Expected: "int64", Actual: v}
	}
}

// GetInt returns the integer value of key.
func (d *Document) GetInt(key string) (int, error) {
	n, err := d.GetInt64(key)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, &ClassCastError{Key: key, Expected: "int", Actual: n}
	}
	return int(n), nil
}

// GetFloat64 returns the numeric value of key.
func (d *Document) GetFloat64(key string) (float64, error) {
	v, ok := d.Get(key)
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, &ClassCastError{Key: key, Expected: "float64", Actual: v}
		}
		return f, nil
	default:
		return 0, &ClassCastError{Key: key, Expected: "float64", Actual: v}
	}
}

// GetDocument returns the nested object stored at key.
func (d *Document) GetDocument(key string) (*Document, error) {
	v, ok := d.Get(key)
	if !ok || v == nil {
		return nil, nil
	}
	switch n := v.(type) {
	case *Document:
		return n, nil
	case map[string]any:
		return FromMap(n), nil
	default:
		return nil, &ClassCastError{Key: key, Expected: "object", Actual: v}
	}
}

// GetList returns the array stored at key.
func (d *Document) GetList(key string) ([]any, error) {
	v, ok := d.Get(key)
	if !ok || v == nil {
		return nil, nil
	}
	l, ok := v.([]any)
	if !ok {
		return nil, &ClassCastError{Key: key, Expected: "array", Actual: v}
	}
	return l, nil
}

// GetOrDefault returns the raw value of key or def when absent.
func (d *Document) GetOrDefault(key string, def any) any {
	if v, ok := d.Get(key); ok {
		return v
	}
	return def
}
