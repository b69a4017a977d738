// Package shape implements the Shape constraint algebra described in
// spec.md §4.B: an all-optional facet record combining SHACL-style
// constraints, class hierarchy, datatype witnessing, and named typed
// properties, composable via Merge (intersection) and Extend (inheritance).
package shape

import (
	"fmt"
	"regexp"

	"github.com/oxhq/mesh/value"
)

// Constraint is an arbitrary Value predicate: Nil means pass, any other
// Value describes the violation. Per spec.md §9, two Shapes are equal only
// if their Constraint slices are pointer-identical element-wise; constraints
// are never compared structurally.
type Constraint func(value.Value) value.Value

// Property is a named edge of a Shape: at least one of Forward/Reverse must
// be set. The nested Shape is lazy to support recursive and mutually
// recursive shape graphs.
type Property struct {
	Name     string
	Forward  string // "" if unset
	Reverse  string // "" if unset
	Embedded bool
	shape    *Lazy
}

// NewProperty builds a Property with an eagerly-known shape.
func NewProperty(name, forward, reverse string, embedded bool, s *Shape) (Property, error) {
	return newProperty(name, forward, reverse, embedded, NewLazy(s))
}

// NewLazyProperty builds a Property whose shape is resolved lazily, for
// recursive shape graphs.
func NewLazyProperty(name, forward, reverse string, embedded bool, thunk func() *Shape) (Property, error) {
	return newProperty(name, forward, reverse, embedded, NewLazyThunk(thunk))
}

func newProperty(name, forward, reverse string, embedded bool, lazy *Lazy) (Property, error) {
	if name == "" {
		return Property{}, fmt.Errorf("shape: property name must not be empty")
	}
	if value.IsReservedPrefix(name) {
		return Property{}, fmt.Errorf("shape: property name %q must not start with '@'", name)
	}
	if forward == "" && reverse == "" {
		return Property{}, fmt.Errorf("shape: property %q must set forward or reverse", name)
	}
	return Property{Name: name, Forward: forward, Reverse: reverse, Embedded: embedded, shape: lazy}, nil
}

// Shape returns the property's nested shape, forcing the lazy thunk if
// needed.
func (p Property) Shape() *Shape { return p.shape.Get() }

// Shape is the immutable constraint record of spec.md §4.B. The zero value is
// the unconstrained shape (matches anything). Use the With* builders to
// derive new shapes; use Merge/Extend to compose two shapes.
type Shape struct {
	Virtual bool

	IDField   string // "" if unset
	TypeField string // "" if unset

	Datatype    value.Kind
	hasDatatype bool

	Clazz    string // "" if unset
	hasClazz bool
	Clazzes  []string

	MinInclusive, MaxInclusive *value.Value
	MinExclusive, MaxExclusive *value.Value

	MinLength, MaxLength *int
	Pattern              string
	hasPattern           bool

	In []value.Value

	LanguageIn []string
	UniqueLang bool

	MinCount, MaxCount *int

	HasValue []value.Value

	Constraints []Constraint

	Properties []Property
}

// New returns the unconstrained shape.
func New() *Shape { return &Shape{} }

func (s *Shape) clone() *Shape {
	c := *s
	c.Clazzes = append([]string(nil), s.Clazzes...)
	c.In = append([]value.Value(nil), s.In...)
	c.LanguageIn = append([]string(nil), s.LanguageIn...)
	c.HasValue = append([]value.Value(nil), s.HasValue...)
	c.Constraints = append([]Constraint(nil), s.Constraints...)
	c.Properties = append([]Property(nil), s.Properties...)
	return &c
}

// HasDatatype reports whether the datatype facet is set.
func (s *Shape) HasDatatype() bool { return s.hasDatatype }

// HasClazz reports whether the explicit class facet is set.
func (s *Shape) HasClazz() bool { return s.hasClazz }

// HasPattern reports whether the pattern facet is set.
func (s *Shape) HasPattern() bool { return s.hasPattern }

// WithVirtual sets the virtual facet.
func (s *Shape) WithVirtual(v bool) *Shape {
	c := s.clone()
	c.Virtual = v
	return c
}

// WithID sets the field name carrying the resource identity.
func (s *Shape) WithID(field string) *Shape {
	c := s.clone()
	c.IDField = field
	return c
}

// WithType sets the field name carrying the resource type.
func (s *Shape) WithType(field string) *Shape {
	c := s.clone()
	c.TypeField = field
	return c
}

// WithDatatype sets the datatype witness. Object-implying and text-implying
// facet builders do not call it: they set datatype=Object / datatype=Text
// through forceDatatype, which leaves an already-set datatype unchanged.
func (s *Shape) WithDatatype(k value.Kind) (*Shape, error) {
	if k == value.Array {
		return nil, fmt.Errorf("shape: datatype must not itself be Array")
	}
	if s.hasDatatype && s.Datatype != k {
		return nil, fmt.Errorf("shape: conflicting datatype %s vs %s", s.Datatype, k)
	}
	c := s.clone()
	c.Datatype = k
	c.hasDatatype = true
	return c, nil
}

func (s *Shape) forceDatatype(k value.Kind) *Shape {
	c := s.clone()
	if !c.hasDatatype {
		c.Datatype = k
		c.hasDatatype = true
	}
	return c
}

// WithClazz sets the single explicit class.
func (s *Shape) WithClazz(name string) (*Shape, error) {
	if s.hasClazz && s.Clazz != name {
		return nil, fmt.Errorf("shape: conflicting class %q vs %q", s.Clazz, name)
	}
	c := s.forceDatatype(value.Object)
	c.Clazz = name
	c.hasClazz = true
	return c, nil
}

// WithClazzes adds implicit classes, unioning with any already present.
func (s *Shape) WithClazzes(names ...string) *Shape {
	c := s.forceDatatype(value.Object)
	c.Clazzes = unionStrings(c.Clazzes, names)
	return c
}

// WithRange sets one of the four range facets. kind must be one of
// "minInclusive", "maxInclusive", "minExclusive", "maxExclusive".
func (s *Shape) WithRange(kind string, limit value.Value) (*Shape, error) {
	c := s.clone()
	switch kind {
	case "minInclusive":
		c.MinInclusive = &limit
	case "maxInclusive":
		c.MaxInclusive = &limit
	case "minExclusive":
		c.MinExclusive = &limit
	case "maxExclusive":
		c.MaxExclusive = &limit
	default:
		return nil, fmt.Errorf("shape: unknown range facet %q", kind)
	}
	if err := checkRangeConsistency(c); err != nil {
		return nil, err
	}
	return c, nil
}

func checkRangeConsistency(s *Shape) error {
	min, minIncl, hasMin := effectiveMin(s)
	max, maxIncl, hasMax := effectiveMax(s)
	if !hasMin || !hasMax {
		return nil
	}
	c, err := value.Compare(min, max)
	if err != nil {
		return fmt.Errorf("shape: range limits not comparable: %w", err)
	}
	if c > 0 {
		return fmt.Errorf("shape: min > max in range facets")
	}
	if c == 0 && !(minIncl && maxIncl) {
		return fmt.Errorf("shape: min == max but not both inclusive")
	}
	return nil
}

func effectiveMin(s *Shape) (value.Value, bool, bool) {
	if s.MinInclusive != nil {
		return *s.MinInclusive, true, true
	}
	if s.MinExclusive != nil {
		return *s.MinExclusive, false, true
	}
	return value.Value{}, false, false
}

func effectiveMax(s *Shape) (value.Value, bool, bool) {
	if s.MaxInclusive != nil {
		return *s.MaxInclusive, true, true
	}
	if s.MaxExclusive != nil {
		return *s.MaxExclusive, false, true
	}
	return value.Value{}, false, false
}

// WithLength sets minLength/maxLength; kind is "minLength" or "maxLength".
func (s *Shape) WithLength(kind string, n int) (*Shape, error) {
	c := s.clone()
	switch kind {
	case "minLength":
		c.MinLength = &n
	case "maxLength":
		c.MaxLength = &n
	default:
		return nil, fmt.Errorf("shape: unknown length facet %q", kind)
	}
	if c.MinLength != nil && c.MaxLength != nil && *c.MinLength > *c.MaxLength {
		return nil, fmt.Errorf("shape: minLength > maxLength")
	}
	c = c.forceDatatype(value.Text)
	return c, nil
}

// WithPattern sets the regex pattern facet, compiling it eagerly so a
// malformed regex fails at construction time per spec.md §7.
func (s *Shape) WithPattern(pattern string) (*Shape, error) {
	if s.hasPattern && s.Pattern != pattern {
		return nil, fmt.Errorf("shape: conflicting pattern %q vs %q", s.Pattern, pattern)
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, fmt.Errorf("shape: invalid regex %q: %w", pattern, err)
	}
	c := s.forceDatatype(value.Text)
	c.Pattern = pattern
	c.hasPattern = true
	return c, nil
}

// WithIn sets the enumerated permitted values, unioning with any existing
// set. No element may be an Array.
func (s *Shape) WithIn(values ...value.Value) (*Shape, error) {
	for _, v := range values {
		if v.Kind() == value.Array {
			return nil, fmt.Errorf("shape: 'in' must not contain arrays")
		}
	}
	c := s.clone()
	c.In = unionValues(c.In, values)
	return c, nil
}

// WithLanguageIn sets the allowed locale set, unioning with any existing set.
func (s *Shape) WithLanguageIn(locales ...string) *Shape {
	c := s.forceDatatype(value.Text)
	c.LanguageIn = unionStrings(c.LanguageIn, locales)
	return c
}

// WithUniqueLang sets the uniqueLang facet.
func (s *Shape) WithUniqueLang(v bool) *Shape {
	c := s.forceDatatype(value.Text)
	c.UniqueLang = c.UniqueLang || v
	return c
}

// WithCount sets minCount/maxCount; kind is "minCount" or "maxCount".
func (s *Shape) WithCount(kind string, n int) (*Shape, error) {
	c := s.clone()
	switch kind {
	case "minCount":
		c.MinCount = &n
	case "maxCount":
		c.MaxCount = &n
	default:
		return nil, fmt.Errorf("shape: unknown count facet %q", kind)
	}
	if c.MinCount != nil && c.MaxCount != nil && *c.MinCount > *c.MaxCount {
		return nil, fmt.Errorf("shape: minCount > maxCount")
	}
	return c, nil
}

// WithHasValue sets the required-values facet, unioning with any existing
// set. No element may be an Array.
func (s *Shape) WithHasValue(values ...value.Value) (*Shape, error) {
	for _, v := range values {
		if v.Kind() == value.Array {
			return nil, fmt.Errorf("shape: 'hasValue' must not contain arrays")
		}
	}
	c := s.clone()
	c.HasValue = unionValues(c.HasValue, values)
	return c, nil
}

// WithConstraint appends an arbitrary predicate function.
func (s *Shape) WithConstraint(fn Constraint) *Shape {
	c := s.clone()
	c.Constraints = append(c.Constraints, fn)
	return c
}

// WithProperty adds a property. Construction fails if any existing property
// shares the new property's name, forward, or reverse IRI.
func (s *Shape) WithProperty(p Property) (*Shape, error) {
	for _, existing := range s.Properties {
		if existing.Name == p.Name {
			return nil, fmt.Errorf("shape: duplicate property name %q", p.Name)
		}
		if p.Forward != "" && existing.Forward == p.Forward {
			return nil, fmt.Errorf("shape: duplicate forward IRI %q", p.Forward)
		}
		if p.Reverse != "" && existing.Reverse == p.Reverse {
			return nil, fmt.Errorf("shape: duplicate reverse IRI %q", p.Reverse)
		}
	}
	c := s.forceDatatype(value.Object)
	c.Properties = append(c.Properties, p)
	return c, nil
}

// Property looks up a property by name.
func (s *Shape) Property(name string) (Property, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

func unionStrings(existing, add []string) []string {
	seen := make(map[string]bool, len(existing))
	out := append([]string(nil), existing...)
	for _, s := range existing {
		seen[s] = true
	}
	for _, s := range add {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func unionValues(existing, add []value.Value) []value.Value {
	out := append([]value.Value(nil), existing...)
	for _, v := range add {
		found := false
		for _, e := range existing {
			if value.Equal(e, v) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, v)
		}
	}
	return out
}

// EmbeddedTag implements value.Embedded so a Shape can be wrapped as a
// Value's "@shape" field.
func (s *Shape) EmbeddedTag() string { return "shape" }

// MergeEmbedded implements value.ShapeMerger.
func (s *Shape) MergeEmbedded(other value.Embedded) (value.Embedded, error) {
	os, ok := other.(*Shape)
	if !ok {
		return nil, fmt.Errorf("shape: cannot merge non-shape embedded value")
	}
	return Merge(s, os)
}
