package compiler

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leonunix/docsearch/internal/metadata"
	"github.com/leonunix/docsearch/internal/query"
)

type object = map[string]any

var matchAll = json.RawMessage(`{"match_all":{}}`)

// QueryJSON renders the query part of b: a criteria tree is translated, a
// native query passes through and a string query must already be JSON.
func (c *Compiler) QueryJSON(b query.Body, r metadata.Resolver) (json.RawMessage, error) {
	r = resolver(r)
	switch q := b.(type) {
	case *query.CriteriaQuery:
		if q.Criteria.IsEmpty() {
			return matchAll, nil
		}
		node, err := criteriaNode(q.Criteria, r)
		if err != nil {
			return nil, err
		}
		return marshal(node)
	case *query.NativeQuery:
		if len(q.Query) == 0 {
			return matchAll, nil
		}
		return q.Query, nil
	case *query.StringQuery:
		src := strings.TrimSpace(q.Source)
		if src == "" {
			return matchAll, nil
		}
		if !json.Valid([]byte(src)) {
			return nil, invalid("string query is not valid JSON: %.80s", src)
		}
		return json.RawMessage(src), nil
	}
	return nil, invalid("unhandled query implementation %T", b)
}

func criteriaNode(c *query.Criteria, r metadata.Resolver) (object, error) {
	var (
		q   object
		err error
	)
	switch {
	case c.IsLeaf():
		q, err = leaf(c, r)
	case c.IsAnd():
		q, err = group(c, r, "must")
	default:
		q, err = group(c, r, "should")
	}
	if err != nil {
		return nil, err
	}
	if b := c.BoostValue(); b != 0 {
		q = object{"bool": object{"must": []any{q}, "boost": b}}
	}
	if c.IsNegated() {
		q = object{"bool": object{"must_not": []any{q}}}
	}
	return q, nil
}

func group(c *query.Criteria, r metadata.Resolver, occur string) (object, error) {
	var clauses []any
	for _, ch := range c.Children() {
		if ch.IsEmpty() {
			continue
		}
		q, err := criteriaNode(ch, r)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, q)
	}
	if len(clauses) == 0 {
		return object{"match_all": object{}}, nil
	}
	b := object{occur: clauses}
	if occur == "should" {
		b["minimum_should_match"] = 1
	}
	return object{"bool": b}, nil
}

func leaf(c *query.Criteria, r metadata.Resolver) (object, error) {
	property := c.Field()
	if property == "" {
		return nil, invalid("criteria without a field")
	}
	field := r.FieldName(property)
	var (
		queries []any
		filters []any
	)
	for _, e := range c.Entries() {
		q, err := entryQuery(field, property, e, r)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", property, err)
		}
		if e.Op.IsGeo() {
			filters = append(filters, q)
		} else {
			queries = append(queries, q)
		}
	}
	var q object
	switch {
	case len(queries) == 1 && len(filters) == 0:
		q = queries[0].(object)
	default:
		b := object{}
		if len(queries) > 0 {
			b["must"] = queries
		}
		if len(filters) > 0 {
			b["filter"] = filters
		}
		q = object{"bool": b}
	}
	if path := nestedPath(r, property); path != "" {
		q = object{"nested": object{"path": path, "query": q}}
	}
	return q, nil
}

func entryQuery(field, property string, e query.Entry, r metadata.Resolver) (object, error) {
	conv := func(v any) (any, error) { return r.ConvertForWrite(property, v) }

	switch e.Op {
	case query.OpExists:
		return object{"exists": object{"field": field}}, nil
	case query.OpNotEmpty:
		return object{"wildcard": object{field: object{"wildcard": "*"}}}, nil
	case query.OpEmpty:
		return object{"bool": object{
			"must":     []any{object{"exists": object{"field": field}}},
			"must_not": []any{object{"wildcard": object{field: object{"wildcard": "*"}}}},
		}}, nil
	case query.OpWithin:
		d, ok := e.Value.(query.Distance)
		if !ok {
			return nil, invalid("within expects a distance, got %T", e.Value)
		}
		return object{"geo_distance": object{"distance": d.Radius, field: d.Point}}, nil
	case query.OpBoundedBy:
		box, ok := e.Value.(query.GeoBox)
		if !ok {
			return nil, invalid("bounded by expects a box, got %T", e.Value)
		}
		return object{"geo_bounding_box": object{field: object{
			"top_left":     box.TopLeft,
			"bottom_right": box.BottomRight,
		}}}, nil
	case query.OpIn, query.OpNotIn:
		values, ok := e.Value.([]any)
		if !ok {
			return nil, invalid("in expects a value list, got %T", e.Value)
		}
		terms := make([]any, 0, len(values))
		for _, v := range values {
			w, err := conv(v)
			if err != nil {
				return nil, err
			}
			terms = append(terms, w)
		}
		q := object{"terms": object{field: terms}}
		if e.Op == query.OpNotIn {
			q = object{"bool": object{"must_not": []any{q}}}
		}
		return q, nil
	case query.OpBetween:
		bounds := object{}
		if e.Value != nil {
			lo, err := conv(e.Value)
			if err != nil {
				return nil, err
			}
			bounds["gte"] = lo
		}
		if e.Upper != nil {
			hi, err := conv(e.Upper)
			if err != nil {
				return nil, err
			}
			bounds["lte"] = hi
		}
		return object{"range": object{field: bounds}}, nil
	}

	v, err := conv(e.Value)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case query.OpLessThan:
		return rangeQuery(field, "lt", v), nil
	case query.OpLessThanEqual:
		return rangeQuery(field, "lte", v), nil
	case query.OpGreaterThan:
		return rangeQuery(field, "gt", v), nil
	case query.OpGreaterThanEqual:
		return rangeQuery(field, "gte", v), nil
	case query.OpFuzzy:
		return object{"fuzzy": object{field: object{"value": v}}}, nil
	case query.OpRegexp:
		return object{"regexp": object{field: object{"value": v}}}, nil
	case query.OpMatches:
		return object{"match": object{field: object{"query": v, "operator": "or"}}}, nil
	case query.OpMatchesAll:
		return object{"match": object{field: object{"query": v, "operator": "and"}}}, nil
	case query.OpExpression:
		return queryString(field, fmt.Sprint(v), false), nil
	case query.OpEquals:
		s, ok := v.(string)
		if !ok {
			return object{"term": object{field: v}}, nil
		}
		return queryString(field, escape(s), false), nil
	case query.OpContains:
		return queryString(field, "*"+escape(fmt.Sprint(v))+"*", true), nil
	case query.OpStartsWith:
		return queryString(field, escape(fmt.Sprint(v))+"*", true), nil
	case query.OpEndsWith:
		return queryString(field, "*"+escape(fmt.Sprint(v)), true), nil
	}
	return nil, invalid("unsupported criteria operator %d", e.Op)
}

func rangeQuery(field, op string, v any) object {
	return object{"range": object{field: object{op: v}}}
}

func queryString(field, text string, wildcard bool) object {
	q := object{
		"query":            text,
		"fields":           []string{field},
		"default_operator": "and",
	}
	if wildcard {
		q["analyze_wildcard"] = true
	}
	return object{"query_string": q}
}

// escape quotes the query_string reserved characters of s.
func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\+-!():^[]"{}~*?|&/=<>`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
