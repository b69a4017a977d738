// Package validate implements the Shape-against-Value validator of
// spec.md §4.E: given a Shape and a Value, it emits a set of structured
// violation records rather than raising on the first failure.
package validate

import (
	"fmt"
	"regexp"

	"github.com/oxhq/mesh/shape"
	"github.com/oxhq/mesh/value"
)

// Violation is one constraint failure, naming the field path (empty at the
// root), the facet that failed, and a human-readable detail.
type Violation struct {
	Path   string
	Rule   string
	Detail string
}

func (v Violation) String() string {
	if v.Path == "" {
		return fmt.Sprintf("%s: %s", v.Rule, v.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", v.Path, v.Rule, v.Detail)
}

// Validate checks v against s and returns every violation found. In delta
// mode, absent fields do not violate minCount/required constraints; present
// fields are still validated normally.
func Validate(s *shape.Shape, v value.Value, delta bool) []Violation {
	return validateAt("", s, v, delta)
}

func validateAt(path string, s *shape.Shape, v value.Value, delta bool) []Violation {
	out := leafChecks(path, s, v, delta)
	out = append(out, checkProperties(path, s, v, delta)...)
	return out
}

// leafChecks runs every facet check except recursion into nested
// properties: the set applied both at an embedded property (where recursion
// happens afterward, in validateAt) and at a non-embedded property (a
// reference, whose referent's own properties are never checked).
func leafChecks(path string, s *shape.Shape, v value.Value, delta bool) []Violation {
	var out []Violation
	out = append(out, checkDatatype(path, s, v)...)
	out = append(out, checkClazz(path, s, v)...)
	out = append(out, checkRangeLengthPattern(path, s, v)...)
	out = append(out, checkLanguageIn(path, s, v)...)
	out = append(out, checkUniqueLang(path, s, v)...)
	out = append(out, checkCardinality(path, s, v, delta)...)
	out = append(out, checkHasValue(path, s, v)...)
	out = append(out, checkConstraints(path, s, v)...)
	return out
}

// elements returns v's multi-cardinality elements: a scalar value is one
// element, an Array's elements are each one, and Nil is zero elements.
func elements(v value.Value) []value.Value {
	if v.IsNil() {
		return nil
	}
	if arr, ok := v.Array(); ok {
		return arr
	}
	return []value.Value{v}
}

func joinPath(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

func checkDatatype(path string, s *shape.Shape, v value.Value) []Violation {
	if !s.HasDatatype() {
		return nil
	}
	var out []Violation
	for _, el := range elements(v) {
		if el.IsNil() {
			continue
		}
		if !s.Datatype.Witnesses(el.Kind()) {
			out = append(out, Violation{Path: path, Rule: "datatype",
				Detail: fmt.Sprintf("expected %s, got %s", s.Datatype, el.Kind())})
		}
	}
	return out
}

func checkClazz(path string, s *shape.Shape, v value.Value) []Violation {
	required := s.Clazzes
	if s.HasClazz() {
		required = append(append([]string(nil), required...), s.Clazz)
	}
	if len(required) == 0 {
		return nil
	}
	var out []Violation
	for _, el := range elements(v) {
		if el.IsNil() {
			continue
		}
		sm, ok := el.ShapeOf()
		if !ok {
			out = append(out, Violation{Path: path, Rule: "clazz", Detail: "value carries no @shape"})
			continue
		}
		elShape, ok := sm.(*shape.Shape)
		if !ok {
			out = append(out, Violation{Path: path, Rule: "clazz", Detail: "embedded @shape is not a shape.Shape"})
			continue
		}
		have := make(map[string]bool, len(elShape.Clazzes)+1)
		for _, c := range elShape.Clazzes {
			have[c] = true
		}
		if elShape.HasClazz() {
			have[elShape.Clazz] = true
		}
		for _, req := range required {
			if !have[req] {
				out = append(out, Violation{Path: path, Rule: "clazz",
					Detail: fmt.Sprintf("missing required class %q", req)})
			}
		}
	}
	return out
}

func checkRangeLengthPattern(path string, s *shape.Shape, v value.Value) []Violation {
	var out []Violation
	for _, el := range elements(v) {
		if el.IsNil() {
			continue
		}
		out = append(out, checkRangeOne(path, s, el)...)
		out = append(out, checkLengthOne(path, s, el)...)
		out = append(out, checkPatternOne(path, s, el)...)
	}
	return out
}

func checkRangeOne(path string, s *shape.Shape, el value.Value) []Violation {
	var out []Violation
	check := func(bound *value.Value, rule string, wantPositive bool, orEqual bool) {
		if bound == nil {
			return
		}
		cmp, err := value.Compare(el, *bound)
		if err != nil {
			out = append(out, Violation{Path: path, Rule: rule, Detail: "value not comparable to bound"})
			return
		}
		ok := false
		switch {
		case wantPositive && orEqual:
			ok = cmp >= 0
		case wantPositive && !orEqual:
			ok = cmp > 0
		case !wantPositive && orEqual:
			ok = cmp <= 0
		default:
			ok = cmp < 0
		}
		if !ok {
			out = append(out, Violation{Path: path, Rule: rule, Detail: "value outside required range"})
		}
	}
	check(s.MinInclusive, "minInclusive", true, true)
	check(s.MinExclusive, "minExclusive", true, false)
	check(s.MaxInclusive, "maxInclusive", false, true)
	check(s.MaxExclusive, "maxExclusive", false, false)
	return out
}

func checkLengthOne(path string, s *shape.Shape, el value.Value) []Violation {
	if s.MinLength == nil && s.MaxLength == nil {
		return nil
	}
	text, ok := el.Text()
	if !ok {
		text, ok = el.String_()
	}
	if !ok {
		return []Violation{{Path: path, Rule: "length", Detail: "value is not a length-bearing string"}}
	}
	n := len([]rune(text))
	var out []Violation
	if s.MinLength != nil && n < *s.MinLength {
		out = append(out, Violation{Path: path, Rule: "minLength", Detail: fmt.Sprintf("length %d < %d", n, *s.MinLength)})
	}
	if s.MaxLength != nil && n > *s.MaxLength {
		out = append(out, Violation{Path: path, Rule: "maxLength", Detail: fmt.Sprintf("length %d > %d", n, *s.MaxLength)})
	}
	return out
}

func checkPatternOne(path string, s *shape.Shape, el value.Value) []Violation {
	if !s.HasPattern() {
		return nil
	}
	text, ok := el.Text()
	if !ok {
		text, ok = el.String_()
	}
	if !ok {
		return []Violation{{Path: path, Rule: "pattern", Detail: "value is not a pattern-matchable string"}}
	}
	re, err := regexp.Compile(s.Pattern)
	if err != nil {
		return []Violation{{Path: path, Rule: "pattern", Detail: fmt.Sprintf("invalid pattern %q", s.Pattern)}}
	}
	if !re.MatchString(text) {
		return []Violation{{Path: path, Rule: "pattern", Detail: fmt.Sprintf("value does not match %q", s.Pattern)}}
	}
	return nil
}

func checkLanguageIn(path string, s *shape.Shape, v value.Value) []Violation {
	if len(s.LanguageIn) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(s.LanguageIn))
	for _, l := range s.LanguageIn {
		allowed[l] = true
	}
	var out []Violation
	for _, el := range elements(v) {
		if el.IsNil() {
			continue
		}
		locale, ok := el.Locale()
		if !ok {
			out = append(out, Violation{Path: path, Rule: "languageIn", Detail: "value is not Text"})
			continue
		}
		if !allowed[locale] && !allowed[value.WildcardLocale] {
			out = append(out, Violation{Path: path, Rule: "languageIn", Detail: fmt.Sprintf("locale %q not permitted", locale)})
		}
	}
	return out
}

func checkUniqueLang(path string, s *shape.Shape, v value.Value) []Violation {
	if !s.UniqueLang {
		return nil
	}
	seen := make(map[string]bool)
	for _, el := range elements(v) {
		locale, ok := el.Locale()
		if !ok {
			continue
		}
		if seen[locale] {
			return []Violation{{Path: path, Rule: "uniqueLang", Detail: fmt.Sprintf("locale %q repeated", locale)}}
		}
		seen[locale] = true
	}
	return nil
}

func checkCardinality(path string, s *shape.Shape, v value.Value, delta bool) []Violation {
	if s.MinCount == nil && s.MaxCount == nil {
		return nil
	}
	n := len(elements(v))
	if delta && v.IsNil() {
		return nil
	}
	var out []Violation
	if s.MinCount != nil && n < *s.MinCount {
		out = append(out, Violation{Path: path, Rule: "minCount", Detail: fmt.Sprintf("count %d < %d", n, *s.MinCount)})
	}
	if s.MaxCount != nil && n > *s.MaxCount {
		out = append(out, Violation{Path: path, Rule: "maxCount", Detail: fmt.Sprintf("count %d > %d", n, *s.MaxCount)})
	}
	return out
}

func checkHasValue(path string, s *shape.Shape, v value.Value) []Violation {
	if len(s.HasValue) == 0 {
		return nil
	}
	present := elements(v)
	var out []Violation
	for _, required := range s.HasValue {
		found := false
		for _, el := range present {
			if value.Equal(el, required) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, Violation{Path: path, Rule: "hasValue", Detail: "required value absent"})
		}
	}
	return out
}

func checkConstraints(path string, s *shape.Shape, v value.Value) []Violation {
	var out []Violation
	for _, c := range s.Constraints {
		result := c(v)
		if result.IsNil() {
			continue
		}
		out = append(out, Violation{Path: path, Rule: "constraint", Detail: describe(result)})
	}
	return out
}

func describe(v value.Value) string {
	if s, ok := v.String_(); ok {
		return s
	}
	if s, ok := v.Text(); ok {
		return s
	}
	return v.Kind().String()
}

// checkProperties validates an Object's properties and flags unknown
// fields, per spec.md §4.E. Only fields whose property is marked embedded
// are recursively descended into; non-embedded properties are reference
// checks only (the field's presence/shape is checked, not its referent).
func checkProperties(path string, s *shape.Shape, v value.Value, delta bool) []Violation {
	obj, ok := v.Obj()
	if !ok {
		return nil
	}
	var out []Violation
	for _, p := range s.Properties {
		fieldPath := joinPath(path, p.Name)
		fv, present := obj.Get(p.Name)
		if !present {
			out = append(out, leafChecks(fieldPath, p.Shape(), value.NilValue(), delta)...)
			continue
		}
		if p.Embedded {
			out = append(out, validateAt(fieldPath, p.Shape(), fv, delta)...)
		} else {
			out = append(out, leafChecks(fieldPath, p.Shape(), fv, delta)...)
		}
	}
	out = append(out, checkUnknownFields(s, obj)...)
	return out
}

func checkUnknownFields(s *shape.Shape, obj *value.Obj) []Violation {
	known := make(map[string]bool, len(s.Properties))
	for _, p := range s.Properties {
		known[p.Name] = true
	}
	var out []Violation
	for _, f := range obj.Fields() {
		if value.IsReserved(f.Name) || known[f.Name] {
			continue
		}
		if f.Value.Kind() == value.Query || f.Value.Kind() == value.Specs {
			continue
		}
		out = append(out, Violation{Path: f.Name, Rule: "unknownField",
			Detail: fmt.Sprintf("field %q is not declared in the shape", f.Name)})
	}
	return out
}
