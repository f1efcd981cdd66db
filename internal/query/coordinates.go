package query

import (
	"errors"
	"strings"
)

// IndexCoordinates names the indices an operation targets. The first name is
// the primary index used for single-document writes.
type IndexCoordinates struct {
	names   []string
	aliases []Alias
}

// IndexCoordinatesOf returns coordinates for names. It panics when names is
// empty.
func IndexCoordinatesOf(names ...string) IndexCoordinates {
	if len(names) == 0 {
		panic("query: index coordinates need at least one index name")
	}
	return IndexCoordinates{names: append([]string(nil), names...)}
}

// WithAliases returns a copy of c bound to aliases.
func (c IndexCoordinates) WithAliases(aliases ...Alias) IndexCoordinates {
	return IndexCoordinates{
		names:   c.names,
		aliases: append(append([]Alias(nil), c.aliases...), aliases...),
	}
}

// IndexName returns the primary index.
func (c IndexCoordinates) IndexName() string {
	if len(c.names) == 0 {
		return ""
	}
	return c.names[0]
}

// IndexNames returns a copy of all index names.
func (c IndexCoordinates) IndexNames() []string {
	return append([]string(nil), c.names...)
}

// Aliases returns a copy of the alias bindings.
func (c IndexCoordinates) Aliases() []Alias {
	return append([]Alias(nil), c.aliases...)
}

// Path returns the comma separated index list used in request paths.
func (c IndexCoordinates) Path() string { return strings.Join(c.names, ",") }

func (c IndexCoordinates) String() string { return c.Path() }

// Alias binds a name to one or more indices. Build it with NewAlias.
type Alias struct {
	name          string
	filter        Body
	indexRouting  string
	searchRouting string
	routing       string
	hidden        *bool
	writeIndex    *bool
}

func (a Alias) Name() string          { return a.name }
func (a Alias) Filter() Body          { return a.filter }
func (a Alias) IndexRouting() string  { return a.indexRouting }
func (a Alias) SearchRouting() string { return a.searchRouting }
func (a Alias) Routing() string       { return a.routing }
func (a Alias) IsHidden() *bool       { return a.hidden }
func (a Alias) IsWriteIndex() *bool   { return a.writeIndex }

// AliasBuilder builds an immutable Alias.
type AliasBuilder struct {
	a Alias
}

// NewAlias starts an alias named name.
func NewAlias(name string) *AliasBuilder {
	return &AliasBuilder{a: Alias{name: name}}
}

func (b *AliasBuilder) Filter(f Body) *AliasBuilder          { b.a.filter = f; return b }
func (b *AliasBuilder) IndexRouting(r string) *AliasBuilder  { b.a.indexRouting = r; return b }
func (b *AliasBuilder) SearchRouting(r string) *AliasBuilder { b.a.searchRouting = r; return b }
func (b *AliasBuilder) Routing(r string) *AliasBuilder       { b.a.routing = r; return b }

func (b *AliasBuilder) Hidden(v bool) *AliasBuilder {
	b.a.hidden = &v
	return b
}

func (b *AliasBuilder) WriteIndex(v bool) *AliasBuilder {
	b.a.writeIndex = &v
	return b
}

// Build returns the alias. The name is required.
func (b *AliasBuilder) Build() (Alias, error) {
	if strings.TrimSpace(b.a.name) == "" {
		return Alias{}, errors.New("alias name is required")
	}
	return b.a, nil
}

// AliasActionType is an alias change.
type AliasActionType int

const (
	AliasAdd AliasActionType = iota
	AliasRemove
	AliasRemoveIndex
)

// AliasAction is one entry of an atomic alias update.
type AliasAction struct {
	Type      AliasActionType
	Indices   []string
	Alias     Alias // ignored for AliasRemoveIndex
	MustExist *bool
}
