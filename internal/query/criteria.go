package query

// Operator is the comparison of a criteria entry.
type Operator int

const (
	OpEquals Operator = iota
	OpContains
	OpStartsWith
	OpEndsWith
	OpExpression
	OpFuzzy
	OpRegexp
	OpMatches
	OpMatchesAll
	OpBetween
	OpLessThan
	OpLessThanEqual
	OpGreaterThan
	OpGreaterThanEqual
	OpIn
	OpNotIn
	OpExists
	OpEmpty
	OpNotEmpty
	OpWithin
	OpBoundedBy
)

// IsGeo reports whether the operator belongs in filter context.
func (o Operator) IsGeo() bool { return o == OpWithin || o == OpBoundedBy }

// Entry is one comparison on the field of a leaf criteria.
type Entry struct {
	Op    Operator
	Value any
	// Upper is the upper bound of OpBetween; Value is the lower bound. A nil
	// bound is open.
	Upper any
}

// Distance is the radius of an OpWithin entry, e.g. "10km".
type Distance struct {
	Point  GeoPoint
	Radius string
}

type nodeKind int

const (
	leafNode nodeKind = iota
	andNode
	orNode
)

// Criteria is a node of a boolean expression over field comparisons. Leaf
// nodes carry a field and entries that must all hold; inner nodes combine
// their children with AND or OR.
type Criteria struct {
	kind     nodeKind
	field    string
	entries  []Entry
	children []*Criteria
	boost    float64
	negated  bool
}

// Where starts a leaf criteria on the logical property field.
func Where(field string) *Criteria {
	return &Criteria{kind: leafNode, field: field}
}

// And combines criteria so all must hold.
func And(cs ...*Criteria) *Criteria { return combine(andNode, cs) }

// Or combines criteria so at least one must hold.
func Or(cs ...*Criteria) *Criteria { return combine(orNode, cs) }

func combine(kind nodeKind, cs []*Criteria) *Criteria {
	n := &Criteria{kind: kind}
	for _, c := range cs {
		if c == nil {
			continue
		}
		if c.kind == kind && !c.negated && c.boost == 0 {
			n.children = append(n.children, c.children...)
			continue
		}
		n.children = append(n.children, c)
	}
	return n
}

// And returns c AND other.
func (c *Criteria) And(other *Criteria) *Criteria { return And(c, other) }

// Or returns c OR other.
func (c *Criteria) Or(other *Criteria) *Criteria { return Or(c, other) }

// Not negates c.
func (c *Criteria) Not() *Criteria {
	c.negated = !c.negated
	return c
}

// Boost sets the score boost of c.
func (c *Criteria) Boost(b float64) *Criteria {
	c.boost = b
	return c
}

func (c *Criteria) add(e Entry) *Criteria {
	c.entries = append(c.entries, e)
	return c
}

func (c *Criteria) Is(v any) *Criteria               { return c.add(Entry{Op: OpEquals, Value: v}) }
func (c *Criteria) Contains(s string) *Criteria      { return c.add(Entry{Op: OpContains, Value: s}) }
func (c *Criteria) StartsWith(s string) *Criteria    { return c.add(Entry{Op: OpStartsWith, Value: s}) }
func (c *Criteria) EndsWith(s string) *Criteria      { return c.add(Entry{Op: OpEndsWith, Value: s}) }
func (c *Criteria) Expression(s string) *Criteria    { return c.add(Entry{Op: OpExpression, Value: s}) }
func (c *Criteria) Fuzzy(s string) *Criteria         { return c.add(Entry{Op: OpFuzzy, Value: s}) }
func (c *Criteria) Regexp(s string) *Criteria        { return c.add(Entry{Op: OpRegexp, Value: s}) }
func (c *Criteria) Matches(v any) *Criteria          { return c.add(Entry{Op: OpMatches, Value: v}) }
func (c *Criteria) MatchesAll(v any) *Criteria       { return c.add(Entry{Op: OpMatchesAll, Value: v}) }
func (c *Criteria) LessThan(v any) *Criteria         { return c.add(Entry{Op: OpLessThan, Value: v}) }
func (c *Criteria) LessThanEqual(v any) *Criteria    { return c.add(Entry{Op: OpLessThanEqual, Value: v}) }
func (c *Criteria) GreaterThan(v any) *Criteria      { return c.add(Entry{Op: OpGreaterThan, Value: v}) }
func (c *Criteria) GreaterThanEqual(v any) *Criteria { return c.add(Entry{Op: OpGreaterThanEqual, Value: v}) }
func (c *Criteria) Exists() *Criteria                { return c.add(Entry{Op: OpExists}) }
func (c *Criteria) Empty() *Criteria                 { return c.add(Entry{Op: OpEmpty}) }
func (c *Criteria) NotEmpty() *Criteria              { return c.add(Entry{Op: OpNotEmpty}) }

// Between matches values in [lower, upper]. Either bound may be nil.
func (c *Criteria) Between(lower, upper any) *Criteria {
	return c.add(Entry{Op: OpBetween, Value: lower, Upper: upper})
}

// In matches any of values.
func (c *Criteria) In(values ...any) *Criteria { return c.add(Entry{Op: OpIn, Value: values}) }

// NotIn matches none of values.
func (c *Criteria) NotIn(values ...any) *Criteria { return c.add(Entry{Op: OpNotIn, Value: values}) }

// Within matches geo points within radius of p.
func (c *Criteria) Within(p GeoPoint, radius string) *Criteria {
	return c.add(Entry{Op: OpWithin, Value: Distance{Point: p, Radius: radius}})
}

// BoundedBy matches geo points inside box.
func (c *Criteria) BoundedBy(box GeoBox) *Criteria {
	return c.add(Entry{Op: OpBoundedBy, Value: box})
}

// Field returns the logical property of a leaf.
func (c *Criteria) Field() string { return c.field }

// Entries returns the comparisons of a leaf.
func (c *Criteria) Entries() []Entry { return c.entries }

// Children returns the operands of an AND/OR node.
func (c *Criteria) Children() []*Criteria { return c.children }

// BoostValue returns the boost, 0 when unset.
func (c *Criteria) BoostValue() float64 { return c.boost }

// IsNegated reports whether the node is negated.
func (c *Criteria) IsNegated() bool { return c.negated }

// IsLeaf reports whether c compares a field.
func (c *Criteria) IsLeaf() bool { return c.kind == leafNode }

// IsAnd reports whether c is an AND node.
func (c *Criteria) IsAnd() bool { return c.kind == andNode }

// IsOr reports whether c is an OR node.
func (c *Criteria) IsOr() bool { return c.kind == orNode }

// IsEmpty reports whether c has nothing to compare.
func (c *Criteria) IsEmpty() bool {
	if c == nil {
		return true
	}
	if c.kind == leafNode {
		return len(c.entries) == 0
	}
	for _, ch := range c.children {
		if !ch.IsEmpty() {
			return false
		}
	}
	return true
}
