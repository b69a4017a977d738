package value

import (
	"fmt"
	"strconv"
	"strings"
)

type stepKind uint8

const (
	stepField stepKind = iota
	stepIndex
	stepWildcard
)

type selStep struct {
	kind  stepKind
	name  string
	index int
}

// ParseSelector parses the JSON-pointer-like selector grammar of spec.md
// §4.A: an optional leading "$", then any sequence of ".name", "['name']",
// "[index]", or "*" steps. Step names may backslash-escape '.', ':', '\\'.
func ParseSelector(selector string) ([]selStep, error) {
	s := selector
	s = strings.TrimPrefix(s, "$")

	var steps []selStep
	for len(s) > 0 {
		switch {
		case s[0] == '.':
			s = s[1:]
			name, rest, err := readEscapedName(s)
			if err != nil {
				return nil, err
			}
			if name == "*" {
				steps = append(steps, selStep{kind: stepWildcard})
			} else {
				steps = append(steps, selStep{kind: stepField, name: name})
			}
			s = rest
		case s[0] == '*':
			steps = append(steps, selStep{kind: stepWildcard})
			s = s[1:]
		case s[0] == '[':
			end := strings.IndexByte(s, ']')
			if end < 0 {
				return nil, fmt.Errorf("value: malformed selector %q: unterminated '['", selector)
			}
			inner := s[1:end]
			s = s[end+1:]
			if len(inner) >= 2 && (inner[0] == '\'' || inner[0] == '"') && inner[len(inner)-1] == inner[0] {
				steps = append(steps, selStep{kind: stepField, name: inner[1 : len(inner)-1]})
			} else {
				idx, err := strconv.Atoi(inner)
				if err != nil {
					return nil, fmt.Errorf("value: malformed selector %q: bad index %q", selector, inner)
				}
				steps = append(steps, selStep{kind: stepIndex, index: idx})
			}
		default:
			return nil, fmt.Errorf("value: malformed selector %q: unexpected %q", selector, s[0])
		}
	}
	return steps, nil
}

func readEscapedName(s string) (name, rest string, err error) {
	var b strings.Builder
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '\\' {
			if i+1 >= len(s) {
				return "", "", fmt.Errorf("value: malformed selector: trailing escape")
			}
			b.WriteByte(s[i+1])
			i += 2
			continue
		}
		if c == '.' || c == '[' {
			break
		}
		b.WriteByte(c)
		i++
	}
	if b.Len() == 0 {
		return "", "", fmt.Errorf("value: malformed selector: empty step name")
	}
	return b.String(), s[i:], nil
}

// Select applies a selector to v, per spec.md §4.A. Non-matching steps yield
// Nil rather than an error; only a malformed selector string is an error.
func Select(v Value, selector string) (Value, error) {
	steps, err := ParseSelector(selector)
	if err != nil {
		return Value{}, err
	}
	return applySteps(v, steps), nil
}

func applySteps(v Value, steps []selStep) Value {
	if len(steps) == 0 {
		return v
	}
	s, rest := steps[0], steps[1:]
	switch s.kind {
	case stepField:
		o, ok := v.Obj()
		if !ok {
			return NilValue()
		}
		fv, ok := o.Get(s.name)
		if !ok {
			return NilValue()
		}
		return applySteps(fv, rest)
	case stepIndex:
		arr, ok := v.Array()
		if !ok || s.index < 0 || s.index >= len(arr) {
			return NilValue()
		}
		return applySteps(arr[s.index], rest)
	case stepWildcard:
		switch v.kind {
		case Object:
			o, _ := v.Obj()
			vals := make([]Value, 0, o.Len())
			for _, f := range o.Fields() {
				vals = append(vals, applySteps(f.Value, rest))
			}
			return ArrayValue(vals...)
		case Array:
			arr, _ := v.Array()
			vals := make([]Value, 0, len(arr))
			for _, e := range arr {
				vals = append(vals, applySteps(e, rest))
			}
			return ArrayValue(vals...)
		default:
			return NilValue()
		}
	default:
		return NilValue()
	}
}
