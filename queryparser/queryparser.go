// Package queryparser implements the query-string grammar of spec.md §4.H/§6:
// an "&"-separated set of label=value pairs decoded into a query.Query
// against a shape. Grounded on the teacher's internal/parser/universal.go
// cursor-based token scanning, retargeted from its AST DSL to this
// label/value grammar.
package queryparser

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/oxhq/mesh/expr"
	"github.com/oxhq/mesh/query"
	"github.com/oxhq/mesh/shape"
	"github.com/oxhq/mesh/value"
)

// Parse decodes qs into a Query over model, validated against s. Recognised
// forms, per spec.md §4.H:
//
//	path=v        add v to the path's `any` set ("*" is an existence test;
//	              an absent/empty value is a Nil member)
//	path<=v       inclusive upper bound
//	path>=v       inclusive lower bound
//	path< / path> alone (no "=value") are reserved parse errors
//	~path=v       like v
//	^path=v       sort order: "increasing"/empty = +1, "decreasing" = -1,
//	              a signed integer is an explicit priority
//	@=n           offset
//	#=n           limit
func Parse(qs string, model value.Value, s *shape.Shape) (*query.Query, error) {
	offset, limit := 0, 0
	var clauses []query.Clause

	var anyOrder []string
	anyExprs := make(map[string]*expr.Expression)
	anyVals := make(map[string][]value.Value)
	anyExistence := make(map[string]bool)

	if qs != "" {
		for _, raw := range strings.Split(qs, "&") {
			if raw == "" {
				continue
			}
			label, lit, hasValue := cutFirst(raw, '=')

			switch {
			case label == "@":
				n, err := requireInt(raw, lit, hasValue, "@")
				if err != nil {
					return nil, err
				}
				offset = n

			case label == "#":
				n, err := requireInt(raw, lit, hasValue, "#")
				if err != nil {
					return nil, err
				}
				limit = n

			case strings.HasPrefix(label, "~"):
				e, _, err := resolveExpr(label[1:], s)
				if err != nil {
					return nil, fmt.Errorf("queryparser: %q: %w", raw, err)
				}
				decoded, err := url.QueryUnescape(lit)
				if err != nil {
					return nil, fmt.Errorf("queryparser: %q: malformed percent-encoding", raw)
				}
				clauses = append(clauses, query.Clause{Expr: e, Criterion: query.Criterion{}.WithLike(decoded)})

			case strings.HasPrefix(label, "^"):
				e, _, err := resolveExpr(label[1:], s)
				if err != nil {
					return nil, fmt.Errorf("queryparser: %q: %w", raw, err)
				}
				priority, err := parseOrder(lit)
				if err != nil {
					return nil, fmt.Errorf("queryparser: %q: %w", raw, err)
				}
				clauses = append(clauses, query.Clause{Expr: e, Criterion: query.Criterion{}.WithOrder(priority)})

			case strings.HasSuffix(label, "<"):
				if !hasValue {
					return nil, fmt.Errorf("queryparser: %q: bare %q is a reserved parse error", raw, label)
				}
				e, leaf, err := resolveExpr(strings.TrimSuffix(label, "<"), s)
				if err != nil {
					return nil, fmt.Errorf("queryparser: %q: %w", raw, err)
				}
				v, err := decodeLiteral(leaf, lit)
				if err != nil {
					return nil, fmt.Errorf("queryparser: %q: %w", raw, err)
				}
				clauses = append(clauses, query.Clause{Expr: e, Criterion: query.Criterion{}.WithLessEqual(v)})

			case strings.HasSuffix(label, ">"):
				if !hasValue {
					return nil, fmt.Errorf("queryparser: %q: bare %q is a reserved parse error", raw, label)
				}
				e, leaf, err := resolveExpr(strings.TrimSuffix(label, ">"), s)
				if err != nil {
					return nil, fmt.Errorf("queryparser: %q: %w", raw, err)
				}
				v, err := decodeLiteral(leaf, lit)
				if err != nil {
					return nil, fmt.Errorf("queryparser: %q: %w", raw, err)
				}
				clauses = append(clauses, query.Clause{Expr: e, Criterion: query.Criterion{}.WithGreaterEqual(v)})

			default:
				e, leaf, err := resolveExpr(label, s)
				if err != nil {
					return nil, fmt.Errorf("queryparser: %q: %w", raw, err)
				}
				key := e.String()
				if _, seen := anyExprs[key]; !seen {
					anyOrder = append(anyOrder, key)
					anyExprs[key] = e
				}
				switch {
				case !hasValue || lit == "":
					anyVals[key] = append(anyVals[key], value.NilValue())
				case lit == "*":
					anyExistence[key] = true
				default:
					v, err := decodeLiteral(leaf, lit)
					if err != nil {
						return nil, fmt.Errorf("queryparser: %q: %w", raw, err)
					}
					anyVals[key] = append(anyVals[key], v)
				}
			}
		}
	}

	for _, key := range anyOrder {
		e := anyExprs[key]
		c := query.Criterion{}
		if anyExistence[key] {
			c = c.WithAny()
		} else {
			c = c.WithAny(anyVals[key]...)
		}
		clauses = append(clauses, query.Clause{Expr: e, Criterion: c})
	}

	return query.New(model, s, offset, limit, clauses...)
}

func cutFirst(s string, sep byte) (label, value string, hasValue bool) {
	i := strings.IndexByte(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+1:], true
}

func requireInt(raw, lit string, hasValue bool, label string) (int, error) {
	if !hasValue {
		return 0, fmt.Errorf("queryparser: %q: %q requires a value", raw, label)
	}
	n, err := strconv.Atoi(lit)
	if err != nil {
		return 0, fmt.Errorf("queryparser: %q: malformed integer %q", raw, lit)
	}
	return n, nil
}

func parseOrder(lit string) (int, error) {
	switch lit {
	case "", "increasing":
		return 1, nil
	case "decreasing":
		return -1, nil
	default:
		n, err := strconv.Atoi(lit)
		if err != nil {
			return 0, fmt.Errorf("malformed order %q", lit)
		}
		return n, nil
	}
}

// resolveExpr parses path and walks it through s to find the leaf property
// shape, whose Datatype selects the literal decoder for values targeting it.
func resolveExpr(path string, s *shape.Shape) (*expr.Expression, *shape.Shape, error) {
	e, err := expr.Parse(path)
	if err != nil {
		return nil, nil, err
	}
	cur := s
	for _, step := range e.Path() {
		p, ok := cur.Property(step)
		if !ok {
			return nil, nil, fmt.Errorf("unknown property %q in path %q", step, path)
		}
		cur = p.Shape()
	}
	return e, cur, nil
}

func decodeLiteral(leaf *shape.Shape, lit string) (value.Value, error) {
	decoded, err := url.QueryUnescape(lit)
	if err != nil {
		return value.Value{}, fmt.Errorf("malformed percent-encoding in %q", lit)
	}
	datatype := value.String
	if leaf.HasDatatype() {
		datatype = leaf.Datatype
	}
	v, err := value.Decode(datatype, decoded, "")
	if err != nil {
		return value.Value{}, fmt.Errorf("malformed %s value %q: %w", datatype, decoded, err)
	}
	return v, nil
}
