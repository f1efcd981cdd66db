package metadata

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/leonunix/docsearch/internal/document"
	"github.com/leonunix/docsearch/internal/query"
)

// Converter maps a property value to and from its wire form.
type Converter interface {
	Write(value any) (any, error)
	// Read converts a decoded JSON value into a value of target, the
	// property type with pointers removed.
	Read(wire any, target reflect.Type) (any, error)
}

// Date formats understood by DateConverter besides Go layouts.
const (
	FormatDateOptionalTime = "date_optional_time"
	FormatDate             = "date"
	FormatBasicDate        = "basic_date"
	FormatEpochMillis      = "epoch_millis"
	FormatEpochSecond      = "epoch_second"
)

var (
	timeType        = reflect.TypeOf(time.Time{})
	geoPointType    = reflect.TypeOf(query.GeoPoint{})
	rangeType       = reflect.TypeOf(Range{})
	seqNoType       = reflect.TypeOf(SeqNoPrimaryTerm{})
	textMarshaler   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	textUnmarshaler = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// DateConverter writes time.Time values in an engine date format.
type DateConverter struct {
	// Format is a named format or a Go layout. Empty means
	// date_optional_time, written as RFC 3339.
	Format string
}

func (c DateConverter) layout() string {
	switch c.Format {
	case "", FormatDateOptionalTime, "strict_date_optional_time":
		return time.RFC3339Nano
	case FormatDate:
		return "2006-01-02"
	case FormatBasicDate:
		return "20060102"
	default:
		return c.Format
	}
}

func (c DateConverter) Write(value any) (any, error) {
	var t time.Time
	switch v := value.(type) {
	case time.Time:
		t = v
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		t = *v
	default:
		return nil, fmt.Errorf("date converter: unsupported value %T", value)
	}
	switch c.Format {
	case FormatEpochMillis:
		return t.UnixMilli(), nil
	case FormatEpochSecond:
		return t.Unix(), nil
	}
	return t.Format(c.layout()), nil
}

func (c DateConverter) Read(wire any, _ reflect.Type) (any, error) {
	switch c.Format {
	case FormatEpochMillis:
		n, err := toInt64(wire)
		if err != nil {
			return nil, err
		}
		return time.UnixMilli(n).UTC(), nil
	case FormatEpochSecond:
		n, err := toInt64(wire)
		if err != nil {
			return nil, err
		}
		return time.Unix(n, 0).UTC(), nil
	}
	s, ok := wire.(string)
	if !ok {
		return nil, fmt.Errorf("date converter: expected string, got %T", wire)
	}
	t, err := time.Parse(c.layout(), s)
	if err != nil {
		return nil, fmt.Errorf("date converter: %w", err)
	}
	return t, nil
}

// TextConverter writes enum-like values through encoding.TextMarshaler (or
// fmt.Stringer) and reads them back through encoding.TextUnmarshaler.
type TextConverter struct{}

func (TextConverter) Write(value any) (any, error) {
	switch v := value.(type) {
	case encoding.TextMarshaler:
		b, err := v.MarshalText()
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return nil, fmt.Errorf("text converter: unsupported value %T", value)
}

func (TextConverter) Read(wire any, target reflect.Type) (any, error) {
	s, ok := wire.(string)
	if !ok {
		return nil, fmt.Errorf("text converter: expected string, got %T", wire)
	}
	pv := reflect.New(target)
	u, ok := pv.Interface().(encoding.TextUnmarshaler)
	if !ok {
		return nil, fmt.Errorf("text converter: %s does not implement encoding.TextUnmarshaler", target)
	}
	if err := u.UnmarshalText([]byte(s)); err != nil {
		return nil, err
	}
	return pv.Elem().Interface(), nil
}

// Range is the value of a range field. A nil bound is open.
type Range struct {
	Lower        any
	Upper        any
	IncludeLower bool
	IncludeUpper bool
}

// RangeConverter writes Range values as gt/gte/lt/lte objects.
type RangeConverter struct {
	// Bound converts each bound, typically a DateConverter for date ranges.
	Bound Converter
}

func (c RangeConverter) Write(value any) (any, error) {
	var r Range
	switch v := value.(type) {
	case Range:
		r = v
	case *Range:
		if v == nil {
			return nil, nil
		}
		r = *v
	default:
		return nil, fmt.Errorf("range converter: unsupported value %T", value)
	}
	doc := document.New()
	put := func(inclusive, exclusive string, include bool, bound any) error {
		if bound == nil {
			return nil
		}
		if c.Bound != nil {
			var err error
			if bound, err = c.Bound.Write(bound); err != nil {
				return err
			}
		}
		key := exclusive
		if include {
			key = inclusive
		}
		doc.Put(key, bound)
		return nil
	}
	if err := put("gte", "gt", r.IncludeLower, r.Lower); err != nil {
		return nil, err
	}
	if err := put("lte", "lt", r.IncludeUpper, r.Upper); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c RangeConverter) Read(wire any, _ reflect.Type) (any, error) {
	doc, ok := asDocument(wire)
	if !ok {
		return nil, fmt.Errorf("range converter: expected object, got %T", wire)
	}
	var r Range
	read := func(v any) (any, error) {
		if c.Bound == nil {
			return v, nil
		}
		return c.Bound.Read(v, nil)
	}
	for _, key := range doc.Keys() {
		v, _ := doc.Get(key)
		bound, err := read(v)
		if err != nil {
			return nil, err
		}
		switch key {
		case "gte":
			r.Lower, r.IncludeLower = bound, true
		case "gt":
			r.Lower = bound
		case "lte":
			r.Upper, r.IncludeUpper = bound, true
		case "lt":
			r.Upper = bound
		}
	}
	return r, nil
}

// GeoPointConverter writes query.GeoPoint values as {"lat","lon"} objects.
// It reads objects, "lat,lon" strings and [lon, lat] arrays.
type GeoPointConverter struct{}

func (GeoPointConverter) Write(value any) (any, error) {
	var p query.GeoPoint
	switch v := value.(type) {
	case query.GeoPoint:
		p = v
	case *query.GeoPoint:
		if v == nil {
			return nil, nil
		}
		p = *v
	default:
		return nil, fmt.Errorf("geo point converter: unsupported value %T", value)
	}
	doc := document.New()
	doc.Put("lat", p.Lat)
	doc.Put("lon", p.Lon)
	return doc, nil
}

func (GeoPointConverter) Read(wire any, _ reflect.Type) (any, error) {
	switch v := wire.(type) {
	case string:
		lat, lon, ok := strings.Cut(v, ",")
		if !ok {
			return nil, fmt.Errorf("geo point converter: malformed point %q", v)
		}
		la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
		if err != nil {
			return nil, fmt.Errorf("geo point converter: %w", err)
		}
		lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
		if err != nil {
			return nil, fmt.Errorf("geo point converter: %w", err)
		}
		return query.GeoPoint{Lat: la, Lon: lo}, nil
	case []any:
		if len(v) != 2 {
			return nil, fmt.Errorf("geo point converter: expected [lon, lat], got %d values", len(v))
		}
		lo, err := toFloat64(v[0])
		if err != nil {
			return nil, err
		}
		la, err := toFloat64(v[1])
		if err != nil {
			return nil, err
		}
		return query.GeoPoint{Lat: la, Lon: lo}, nil
	}
	doc, ok := asDocument(wire)
	if !ok {
		return nil, fmt.Errorf("geo point converter: unsupported value %T", wire)
	}
	lat, err := doc.GetFloat64("lat")
	if err != nil {
		return nil, err
	}
	lon, err := doc.GetFloat64("lon")
	if err != nil {
		return nil, err
	}
	return query.GeoPoint{Lat: lat, Lon: lon}, nil
}

// converterFor picks the converter of a property type, nil for identity.
func converterFor(t reflect.Type, format string) Converter {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case t == timeType:
		return DateConverter{Format: format}
	case t == geoPointType:
		return GeoPointConverter{}
	case t == rangeType:
		if format != "" {
			return RangeConverter{Bound: DateConverter{Format: format}}
		}
		return RangeConverter{}
	case t.Implements(textMarshaler) && reflect.PointerTo(t).Implements(textUnmarshaler):
		return TextConverter{}
	}
	return nil
}

// defaultWrite converts values of properties without metadata.
func defaultWrite(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time, *time.Time:
		return DateConverter{}.Write(v)
	case query.GeoPoint, *query.GeoPoint:
		return GeoPointConverter{}.Write(v)
	case Range, *Range:
		return RangeConverter{}.Write(v)
	case encoding.TextMarshaler:
		return TextConverter{}.Write(v)
	}
	return value, nil
}

func asDocument(v any) (*document.Document, bool) {
	switch d := v.(type) {
	case *document.Document:
		return d, d != nil
	case map[string]any:
		return document.FromMap(d), true
	}
	return nil, false
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		return int64(f), err
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}
