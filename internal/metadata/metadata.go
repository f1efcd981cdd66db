// Package metadata describes how entity types map to engine documents:
// wire field names, id, version and seq_no/primary_term accessors, and
// per-property value converters.
package metadata

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/leonunix/docsearch/internal/document"
	"github.com/leonunix/docsearch/internal/query"
)

// Resolver is what the request compiler needs to know about an entity type.
type Resolver interface {
	// FieldName returns the wire field for a logical property. Unknown
	// properties are returned unchanged.
	FieldName(property string) string
	// IDOf returns the identifier of entity, if it has one.
	IDOf(entity any) (string, bool)
	// VersionType is the version type sent with external versions.
	VersionType() query.VersionType
	// HasSeqNoPrimaryTerm reports whether the type uses seq_no/primary_term
	// for optimistic locking.
	HasSeqNoPrimaryTerm() bool
	ConvertForWrite(property string, value any) (any, error)
	ConvertForRead(property string, wire any) (any, error)
	// ToDocument serializes entity into a source document.
	ToDocument(entity any) (*document.Document, error)
}

// SeqNoPrimaryTerm is the engine's optimistic concurrency token pair. An
// entity field of this type (or a pointer to it) enables conditional writes.
type SeqNoPrimaryTerm struct {
	SeqNo       int64
	PrimaryTerm int64
}

// IndexNamer lets an entity type choose its index.
type IndexNamer interface {
	SearchIndex() string
}

// VersionTyper lets an entity type choose the version type of its writes.
type VersionTyper interface {
	SearchVersionType() query.VersionType
}

// Property is one persisted field of an entity.
type Property struct {
	// Name is the Go field name, the logical property.
	Name      string
	FieldName string
	Converter Converter
	// Nested marks an object mapped with the engine's nested type.
	Nested bool

	index  []int
	typ    reflect.Type
	nested *Entity
}

// Entity is the eagerly built metadata of one struct type.
type Entity struct {
	Type      reflect.Type
	IndexName string

	versionType query.VersionType
	properties  []*Property
	byName      map[string]*Property
	id          *Property
	version     *Property
	seqNo       *Property

	fieldNames sync.Map // property path -> wire field path
}

var _ Resolver = (*Entity)(nil)

// Properties returns the persisted properties in declaration order.
func (e *Entity) Properties() []*Property { return e.properties }

// Property returns a property by Go field name or wire field name.
func (e *Entity) Property(name string) (*Property, bool) {
	p, ok := e.byName[name]
	return p, ok
}

func (e *Entity) FieldName(property string) string {
	if v, ok := e.fieldNames.Load(property); ok {
		return v.(string)
	}
	v, _ := e.fieldNames.LoadOrStore(property, e.resolveFieldName(property))
	return v.(string)
}

func (e *Entity) resolveFieldName(path string) string {
	segments := strings.Split(path, ".")
	cur := e
	for i, s := range segments {
		if cur == nil {
			break
		}
		p, ok := cur.byName[s]
		if !ok {
			break
		}
		segments[i] = p.FieldName
		cur = p.nested
	}
	return strings.Join(segments, ".")
}

// NestedPath returns the wire path of the outermost nested object holding
// the property path, or "" when the path crosses no nested object.
func (e *Entity) NestedPath(property string) string {
	segments := strings.Split(property, ".")
	cur := e
	for i, s := range segments[:len(segments)-1] {
		if cur == nil {
			return ""
		}
		p, ok := cur.byName[s]
		if !ok {
			return ""
		}
		if p.Nested {
			return e.FieldName(strings.Join(segments[:i+1], "."))
		}
		cur = p.nested
	}
	return ""
}

func (e *Entity) VersionType() query.VersionType {
	if e.versionType == query.VersionTypeUnset {
		return query.VersionExternal
	}
	return e.versionType
}

func (e *Entity) HasSeqNoPrimaryTerm() bool { return e.seqNo != nil }

// HasVersion reports whether the type declares a version property.
func (e *Entity) HasVersion() bool { return e.version != nil }

// IDProperty returns the id property, nil when the type has none.
func (e *Entity) IDProperty() *Property { return e.id }

func (e *Entity) IDOf(entity any) (string, bool) {
	if doc, ok := entity.(*document.Document); ok {
		return doc.ID, doc.ID != ""
	}
	if e.id == nil {
		return "", false
	}
	v, ok := e.structValue(entity)
	if !ok {
		return "", false
	}
	return formatID(v.FieldByIndex(e.id.index))
}

// formatID renders an id field. A zero number counts as unset so that new
// entities get an engine-assigned id; a pointer to zero is an explicit id.
func formatID(v reflect.Value) (string, bool) {
	explicit := false
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", false
		}
		v = v.Elem()
		explicit = true
	}
	switch v.Kind() {
	case reflect.String:
		return v.String(), v.String() != ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), explicit || v.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), explicit || v.Uint() != 0
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		str := s.String()
		return str, str != ""
	}
	return "", false
}

// VersionOf returns the version held by entity.
func (e *Entity) VersionOf(entity any) *int64 {
	if e.version == nil {
		return nil
	}
	v, ok := e.structValue(entity)
	if !ok {
		return nil
	}
	f := v.FieldByIndex(e.version.index)
	if f.Kind() == reflect.Pointer {
		if f.IsNil() {
			return nil
		}
		f = f.Elem()
	}
	n := f.Int()
	return &n
}

// SeqNoPrimaryTermOf returns the token pair held by entity, nil when unset.
func (e *Entity) SeqNoPrimaryTermOf(entity any) *SeqNoPrimaryTerm {
	if e.seqNo == nil {
		return nil
	}
	v, ok := e.structValue(entity)
	if !ok {
		return nil
	}
	f := v.FieldByIndex(e.seqNo.index)
	if f.Kind() == reflect.Pointer {
		if f.IsNil() {
			return nil
		}
		f = f.Elem()
	}
	t := f.Interface().(SeqNoPrimaryTerm)
	if t.PrimaryTerm <= 0 {
		return nil
	}
	return &t
}

// UpdateIndexedObject writes the acknowledgement of a write back into
// entity, which must be a pointer.
func (e *Entity) UpdateIndexedObject(entity any, info document.IndexedObjectInformation) {
	if doc, ok := entity.(*document.Document); ok {
		if info.ID != "" {
			doc.ID = info.ID
		}
		doc.Index = info.Index
		doc.SeqNo, doc.PrimaryTerm, doc.Version = info.SeqNo, info.PrimaryTerm, info.Version
		return
	}
	rv := reflect.ValueOf(entity)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return
	}
	v := rv.Elem()
	if v.Type() != e.Type {
		return
	}
	if e.id != nil && info.ID != "" {
		f := v.FieldByIndex(e.id.index)
		if f.Kind() == reflect.String && f.String() == "" {
			f.SetString(info.ID)
		}
	}
	if e.version != nil && info.Version != nil {
		setInt(v.FieldByIndex(e.version.index), *info.Version)
	}
	if e.seqNo != nil && info.SeqNo != nil && info.PrimaryTerm != nil {
		setSeqNo(v.FieldByIndex(e.seqNo.index), SeqNoPrimaryTerm{SeqNo: *info.SeqNo, PrimaryTerm: *info.PrimaryTerm})
	}
}

func (e *Entity) ConvertForWrite(property string, value any) (any, error) {
	if p := e.lookup(property); p != nil && p.Converter != nil && value != nil {
		return p.Converter.Write(value)
	}
	return defaultWrite(value)
}

func (e *Entity) ConvertForRead(property string, wire any) (any, error) {
	if p := e.lookup(property); p != nil && p.Converter != nil && wire != nil {
		base := p.typ
		if base.Kind() == reflect.Pointer {
			base = base.Elem()
		}
		return p.Converter.Read(wire, base)
	}
	return wire, nil
}

func (e *Entity) lookup(path string) *Property {
	segments := strings.Split(path, ".")
	cur := e
	var p *Property
	for _, s := range segments {
		if cur == nil {
			return nil
		}
		next, ok := cur.byName[s]
		if !ok {
			return nil
		}
		p, cur = next, next.nested
	}
	return p
}

func (e *Entity) ToDocument(entity any) (*document.Document, error) {
	switch src := entity.(type) {
	case *document.Document:
		return src.Clone(), nil
	case map[string]any:
		return document.FromMap(src), nil
	}
	v, ok := e.structValue(entity)
	if !ok {
		return nil, fmt.Errorf("metadata: %T is not a %s", entity, e.Type)
	}
	doc, err := e.writeStruct(v)
	if err != nil {
		return nil, err
	}
	doc.ID, _ = e.IDOf(entity)
	return doc, nil
}

func (e *Entity) writeStruct(v reflect.Value) (*document.Document, error) {
	doc := document.New()
	for _, p := range e.properties {
		if p == e.seqNo {
			continue
		}
		f := v.FieldByIndex(p.index)
		if isNil(f) {
			continue
		}
		wire, err := p.write(f)
		if err != nil {
			return nil, fmt.Errorf("writing property %s: %w", p.Name, err)
		}
		doc.Put(p.FieldName, wire)
	}
	return doc, nil
}

func (p *Property) write(f reflect.Value) (any, error) {
	if p.Converter != nil {
		return p.Converter.Write(f.Interface())
	}
	if p.nested != nil {
		return p.nested.writeNested(f)
	}
	return f.Interface(), nil
}

func (e *Entity) writeNested(f reflect.Value) (any, error) {
	for f.Kind() == reflect.Pointer {
		f = f.Elem()
	}
	if f.Kind() == reflect.Slice || f.Kind() == reflect.Array {
		out := make([]any, 0, f.Len())
		for i := 0; i < f.Len(); i++ {
			item := f.Index(i)
			if isNil(item) {
				out = append(out, nil)
				continue
			}
			w, err := e.writeNested(item)
			if err != nil {
				return nil, err
			}
			out = append(out, w)
		}
		return out, nil
	}
	return e.writeStruct(f)
}

// Read populates target, a pointer to the entity type, from doc.
func (e *Entity) Read(doc *document.Document, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Type() != e.Type {
		return fmt.Errorf("metadata: read target must be *%s, got %T", e.Type, target)
	}
	v := rv.Elem()
	if err := e.readStruct(doc, v); err != nil {
		return err
	}
	if e.id != nil && doc.ID != "" {
		f := v.FieldByIndex(e.id.index)
		if f.Kind() == reflect.String && f.String() == "" {
			f.SetString(doc.ID)
		}
	}
	if e.version != nil && doc.Version != nil {
		setInt(v.FieldByIndex(e.version.index), *doc.Version)
	}
	if e.seqNo != nil && doc.SeqNo != nil && doc.PrimaryTerm != nil {
		setSeqNo(v.FieldByIndex(e.seqNo.index), SeqNoPrimaryTerm{SeqNo: *doc.SeqNo, PrimaryTerm: *doc.PrimaryTerm})
	}
	return nil
}

func (e *Entity) readStruct(doc *document.Document, v reflect.Value) error {
	for _, p := range e.properties {
		if p == e.seqNo {
			continue
		}
		wire, ok := doc.Get(p.FieldName)
		if !ok || wire == nil {
			continue
		}
		if err := p.read(wire, v.FieldByIndex(p.index)); err != nil {
			return fmt.Errorf("reading property %s: %w", p.Name, err)
		}
	}
	return nil
}

func (p *Property) read(wire any, dst reflect.Value) error {
	if p.Converter != nil {
		base := p.typ
		if base.Kind() == reflect.Pointer {
			base = base.Elem()
		}
		out, err := p.Converter.Read(wire, base)
		if err != nil {
			return err
		}
		ov := reflect.ValueOf(out)
		if !ov.Type().AssignableTo(base) {
			if !ov.Type().ConvertibleTo(base) {
				return fmt.Errorf("cannot assign %s to %s", ov.Type(), p.typ)
			}
			ov = ov.Convert(base)
		}
		if p.typ.Kind() == reflect.Pointer {
			pv := reflect.New(base)
			pv.Elem().Set(ov)
			ov = pv
		}
		dst.Set(ov)
		return nil
	}
	if nd, ok := wire.(*document.Document); ok && p.nested != nil {
		t := p.typ
		ptr := t.Kind() == reflect.Pointer
		if ptr {
			t = t.Elem()
		}
		if t == p.nested.Type {
			nv := reflect.New(t)
			if err := p.nested.readStruct(nd, nv.Elem()); err != nil {
				return err
			}
			if ptr {
				dst.Set(nv)
			} else {
				dst.Set(nv.Elem())
			}
			return nil
		}
	}
	return decodeInto(wire, dst)
}

// decodeInto assigns a decoded JSON value to dst through a JSON round trip.
func decodeInto(wire any, dst reflect.Value) error {
	b, err := json.Marshal(wire)
	if err != nil {
		return err
	}
	nv := reflect.New(dst.Type())
	if err := json.Unmarshal(b, nv.Interface()); err != nil {
		return err
	}
	dst.Set(nv.Elem())
	return nil
}

func (e *Entity) structValue(entity any) (reflect.Value, bool) {
	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, false
		}
		v = v.Elem()
	}
	if !v.IsValid() || v.Type() != e.Type {
		return reflect.Value{}, false
	}
	return v, true
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	}
	return false
}

func setInt(f reflect.Value, n int64) {
	if f.Kind() == reflect.Pointer {
		nv := reflect.New(f.Type().Elem())
		nv.Elem().SetInt(n)
		f.Set(nv)
		return
	}
	f.SetInt(n)
}

func setSeqNo(f reflect.Value, t SeqNoPrimaryTerm) {
	if f.Kind() == reflect.Pointer {
		f.Set(reflect.ValueOf(&t))
		return
	}
	f.Set(reflect.ValueOf(t))
}
