package shape

import (
	"fmt"

	"github.com/oxhq/mesh/value"
)

// Merge composes two shapes as the intersection of their constraints, per
// spec.md §4.B. Facets that admit a unique value (id, type, explicit clazz,
// datatype, pattern) conflict — and Merge returns an error — on mismatch.
// Range and length/count limits merge to the tighter bound. Set-valued
// facets (in, hasValue, languageIn, clazzes, constraints) union. virtual and
// uniqueLang OR. Properties union by name, with same-named properties
// recursively Extended (not merged) per spec.md §4.B.
func Merge(a, b *Shape) (*Shape, error) {
	out := New()
	out.Virtual = a.Virtual || b.Virtual

	id, err := mergeUniqueString(a.IDField, b.IDField, "id")
	if err != nil {
		return nil, err
	}
	out.IDField = id

	typ, err := mergeUniqueString(a.TypeField, b.TypeField, "type")
	if err != nil {
		return nil, err
	}
	out.TypeField = typ

	if a.hasDatatype || b.hasDatatype {
		switch {
		case a.hasDatatype && b.hasDatatype && a.Datatype != b.Datatype:
			return nil, fmt.Errorf("shape: merge conflict on datatype: %s vs %s", a.Datatype, b.Datatype)
		case a.hasDatatype:
			out.Datatype, out.hasDatatype = a.Datatype, true
		default:
			out.Datatype, out.hasDatatype = b.Datatype, true
		}
	}

	switch {
	case a.hasClazz && b.hasClazz && a.Clazz != b.Clazz:
		return nil, fmt.Errorf("shape: merge conflict on class: %q vs %q", a.Clazz, b.Clazz)
	case a.hasClazz:
		out.Clazz, out.hasClazz = a.Clazz, true
	case b.hasClazz:
		out.Clazz, out.hasClazz = b.Clazz, true
	}
	out.Clazzes = unionStrings(a.Clazzes, b.Clazzes)

	if err := mergeRanges(out, a, b); err != nil {
		return nil, err
	}
	if err := mergeLengths(out, a, b); err != nil {
		return nil, err
	}
	if err := mergeCounts(out, a, b); err != nil {
		return nil, err
	}

	pattern, err := mergeUniqueString(conditional(a.hasPattern, a.Pattern), conditional(b.hasPattern, b.Pattern), "pattern")
	if err != nil {
		return nil, err
	}
	if pattern != "" {
		out.Pattern, out.hasPattern = pattern, true
	}

	out.In = unionValues(a.In, b.In)
	out.LanguageIn = unionStrings(a.LanguageIn, b.LanguageIn)
	out.UniqueLang = a.UniqueLang || b.UniqueLang
	out.HasValue = unionValues(a.HasValue, b.HasValue)
	out.Constraints = append(append([]Constraint(nil), a.Constraints...), b.Constraints...)

	props, err := mergeProperties(a.Properties, b.Properties, false)
	if err != nil {
		return nil, err
	}
	out.Properties = props

	return out, nil
}

func conditional(has bool, s string) string {
	if has {
		return s
	}
	return ""
}

func mergeUniqueString(a, b, facet string) (string, error) {
	switch {
	case a == "":
		return b, nil
	case b == "":
		return a, nil
	case a != b:
		return "", fmt.Errorf("shape: merge conflict on %s: %q vs %q", facet, a, b)
	default:
		return a, nil
	}
}

func mergeRanges(out, a, b *Shape) error {
	min, minErr := tighterBound(a.MinInclusive, a.MinExclusive, b.MinInclusive, b.MinExclusive, true)
	if minErr != nil {
		return minErr
	}
	out.MinInclusive, out.MinExclusive = min.incl, min.excl

	max, maxErr := tighterBound(a.MaxInclusive, a.MaxExclusive, b.MaxInclusive, b.MaxExclusive, false)
	if maxErr != nil {
		return maxErr
	}
	out.MaxInclusive, out.MaxExclusive = max.incl, max.excl

	return checkRangeConsistency(out)
}

type bound struct {
	incl, excl *value.Value
}

// tighterBound picks the tighter of two (inclusive, exclusive) bound pairs.
// isMin selects "tighter" to mean "larger" (for a minimum) or, when isMin is
// false, "smaller" (for a maximum).
func tighterBound(aIncl, aExcl, bIncl, bExcl *value.Value, isMin bool) (bound, error) {
	av, aIsIncl, aHas := pick(aIncl, aExcl)
	bv, bIsIncl, bHas := pick(bIncl, bExcl)
	switch {
	case !aHas && !bHas:
		return bound{}, nil
	case !aHas:
		return boundFrom(bv, bIsIncl), nil
	case !bHas:
		return boundFrom(av, aIsIncl), nil
	}
	c, err := value.Compare(av, bv)
	if err != nil {
		return bound{}, fmt.Errorf("shape: range bounds not comparable: %w", err)
	}
	switch {
	case c == 0:
		// Equal values: exclusive is tighter than inclusive.
		if aIsIncl && bIsIncl {
			return boundFrom(av, true), nil
		}
		return boundFrom(av, false), nil
	case isMin:
		if c > 0 {
			return boundFrom(av, aIsIncl), nil
		}
		return boundFrom(bv, bIsIncl), nil
	default:
		if c < 0 {
			return boundFrom(av, aIsIncl), nil
		}
		return boundFrom(bv, bIsIncl), nil
	}
}

func pick(incl, excl *value.Value) (value.Value, bool, bool) {
	if incl != nil {
		return *incl, true, true
	}
	if excl != nil {
		return *excl, false, true
	}
	return value.Value{}, false, false
}

func boundFrom(v value.Value, inclusive bool) bound {
	if inclusive {
		return bound{incl: &v}
	}
	return bound{excl: &v}
}

func mergeLengths(out, a, b *Shape) error {
	out.MinLength = tighterIntMin(a.MinLength, b.MinLength)
	out.MaxLength = tighterIntMax(a.MaxLength, b.MaxLength)
	if out.MinLength != nil && out.MaxLength != nil && *out.MinLength > *out.MaxLength {
		return fmt.Errorf("shape: merge produces minLength > maxLength")
	}
	return nil
}

func mergeCounts(out, a, b *Shape) error {
	out.MinCount = tighterIntMin(a.MinCount, b.MinCount)
	out.MaxCount = tighterIntMax(a.MaxCount, b.MaxCount)
	if out.MinCount != nil && out.MaxCount != nil && *out.MinCount > *out.MaxCount {
		return fmt.Errorf("shape: merge produces minCount > maxCount")
	}
	return nil
}

func tighterIntMin(a, b *int) *int {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *a > *b:
		return a
	default:
		return b
	}
}

func tighterIntMax(a, b *int) *int {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *a < *b:
		return a
	default:
		return b
	}
}

// mergeProperties unions two property lists by name, in first-seen order.
// Colliding properties must agree on each forward/reverse IRI that both set
// (an IRI set on one side only is kept), otherwise it fails; their embedded
// flags are OR-ed and their nested shapes are recursively Extended, a's as
// the subtype. authoritative is passed on to combineProperty, where it only
// selects which side's IRIs are read first; Merge and Extend both pass false.
func mergeProperties(a, b []Property, authoritative bool) ([]Property, error) {
	byName := make(map[string]Property, len(a))
	order := make([]string, 0, len(a)+len(b))
	for _, p := range a {
		byName[p.Name] = p
		order = append(order, p.Name)
	}
	for _, p := range b {
		existing, ok := byName[p.Name]
		if !ok {
			byName[p.Name] = p
			order = append(order, p.Name)
			continue
		}
		combined, err := combineProperty(existing, p, authoritative)
		if err != nil {
			return nil, err
		}
		byName[p.Name] = combined
	}
	out := make([]Property, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out, nil
}

func combineProperty(a, b Property, bAuthoritative bool) (Property, error) {
	winner := a
	other := b
	if bAuthoritative {
		winner = b
		other = a
	}
	forward := winner.Forward
	if forward == "" {
		forward = other.Forward
	} else if other.Forward != "" && other.Forward != forward {
		return Property{}, fmt.Errorf("shape: property %q has conflicting forward IRIs", a.Name)
	}
	reverse := winner.Reverse
	if reverse == "" {
		reverse = other.Reverse
	} else if other.Reverse != "" && other.Reverse != reverse {
		return Property{}, fmt.Errorf("shape: property %q has conflicting reverse IRIs", a.Name)
	}
	embedded := winner.Embedded || other.Embedded

	nested, err := Extend(a.Shape(), b.Shape())
	if err != nil {
		return Property{}, fmt.Errorf("shape: property %q: %w", a.Name, err)
	}
	return newProperty(a.Name, forward, reverse, embedded, NewLazy(nested))
}
