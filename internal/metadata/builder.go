package metadata

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// TagKey is the struct tag read by FromStruct:
//
//	ID      string           `search:"id,id"`
//	Created time.Time        `search:"created_at,format=epoch_millis"`
//	Version *int64           `search:",version"`
//	OCC     SeqNoPrimaryTerm `search:",seqno"`
//	Lines   []Line           `search:"lines,nested"`
//	Secret  string           `search:"-"`
//
// Without a name the json tag name is used, then the field name with a
// lower-case first letter.
const TagKey = "search"

// Diagnostic reports a questionable but accepted entity declaration.
type Diagnostic struct {
	Type    reflect.Type
	Message string
}

func (d Diagnostic) String() string { return d.Type.String() + ": " + d.Message }

type tagOptions struct {
	name    string
	skip    bool
	id      bool
	version bool
	seqNo   bool
	nested  bool
	format  string
}

func parseTag(f reflect.StructField) tagOptions {
	var opts tagOptions
	tag, ok := f.Tag.Lookup(TagKey)
	if !ok {
		if js, ok := f.Tag.Lookup("json"); ok {
			name, _, _ := strings.Cut(js, ",")
			if name == "-" {
				opts.skip = true
			}
			opts.name = name
		}
	} else {
		parts := strings.Split(tag, ",")
		if parts[0] == "-" && len(parts) == 1 {
			opts.skip = true
		}
		opts.name = parts[0]
		for _, p := range parts[1:] {
			switch {
			case p == "id":
				opts.id = true
			case p == "version":
				opts.version = true
			case p == "seqno":
				opts.seqNo = true
			case p == "nested":
				opts.nested = true
			case strings.HasPrefix(p, "format="):
				opts.format = strings.TrimPrefix(p, "format=")
			}
		}
	}
	if opts.name == "" || opts.name == "-" {
		opts.name = lowerCamel(f.Name)
	}
	return opts
}

// lowerCamel lower-cases the leading capitals of s: ID -> id, URLPath ->
// urlPath, Customer -> customer.
func lowerCamel(s string) string {
	r := []rune(s)
	for i := 0; i < len(r) && unicode.IsUpper(r[i]); i++ {
		if i > 0 && i+1 < len(r) && unicode.IsLower(r[i+1]) {
			break
		}
		r[i] = unicode.ToLower(r[i])
	}
	return string(r)
}

// FromStruct builds the metadata of the struct type t (or a pointer to it).
// Diagnostics describe declarations that are accepted with a caveat.
func FromStruct(t reflect.Type) (*Entity, []Diagnostic, error) {
	return build(t, map[reflect.Type]*Entity{})
}

func build(t reflect.Type, seen map[reflect.Type]*Entity) (*Entity, []Diagnostic, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("metadata: %s is not a struct type", t)
	}
	if e, ok := seen[t]; ok {
		return e, nil, nil
	}
	e := &Entity{
		Type:      t,
		IndexName: defaultIndexName(t),
		byName:    make(map[string]*Property),
	}
	seen[t] = e

	zero := reflect.New(t).Interface()
	if n, ok := zero.(IndexNamer); ok {
		e.IndexName = n.SearchIndex()
	}
	if v, ok := zero.(VersionTyper); ok {
		e.versionType = v.SearchVersionType()
	}

	var diags []Diagnostic
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		opts := parseTag(f)
		if opts.skip {
			continue
		}
		p := &Property{
			Name:      f.Name,
			FieldName: opts.name,
			Converter: converterFor(f.Type, opts.format),
			index:     f.Index,
			typ:       f.Type,
		}
		switch {
		case opts.id:
			if e.id != nil {
				return nil, nil, fmt.Errorf("metadata: %s declares more than one id property", t)
			}
			e.id = p
		case opts.version:
			if !isInt64(f.Type) {
				return nil, nil, fmt.Errorf("metadata: version property %s.%s must be int64 or *int64", t, f.Name)
			}
			e.version = p
		case opts.seqNo:
			if deref(f.Type) != seqNoType {
				return nil, nil, fmt.Errorf("metadata: seqno property %s.%s must be SeqNoPrimaryTerm", t, f.Name)
			}
			e.seqNo = p
			p.Converter = nil
		}
		if p.Converter == nil && p != e.seqNo {
			if nt := nestedType(f.Type); nt != nil {
				nested, nd, err := build(nt, seen)
				if err != nil {
					return nil, nil, err
				}
				p.nested = nested
				p.Nested = opts.nested
				diags = append(diags, nd...)
			}
		}
		e.properties = append(e.properties, p)
		e.byName[f.Name] = p
		if _, taken := e.byName[p.FieldName]; !taken {
			e.byName[p.FieldName] = p
		}
	}

	if e.id == nil {
		for _, name := range []string{"ID", "Id"} {
			if p, ok := e.byName[name]; ok && p.Name == name {
				e.id = p
				break
			}
		}
	}
	if e.version != nil && e.seqNo != nil {
		diags = append(diags, Diagnostic{
			Type: t,
			Message: fmt.Sprintf("both version property %s and seq_no/primary_term property %s are declared; "+
				"seq_no/primary_term is used for optimistic locking", e.version.Name, e.seqNo.Name),
		})
	}
	return e, diags, nil
}

func defaultIndexName(t reflect.Type) string {
	var b strings.Builder
	for i, r := range t.Name() {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func isInt64(t reflect.Type) bool {
	return deref(t).Kind() == reflect.Int64
}

// nestedType returns the struct type of a nested object or object list.
func nestedType(t reflect.Type) reflect.Type {
	t = deref(t)
	if t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = deref(t.Elem())
	}
	if t.Kind() != reflect.Struct || t == timeType {
		return nil
	}
	return t
}
