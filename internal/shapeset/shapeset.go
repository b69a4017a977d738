// Package shapeset loads a directory of "*.shape.json" shape definitions,
// discovered by doublestar glob matching, into a named set of shape.Shape
// values for the CLI's --shapes flag. Grounded on the teacher's
// core.FileWalker, whose doublestar-driven directory walk is repurposed here
// from source-file discovery to shape-file discovery.
package shapeset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/oxhq/mesh/shape"
	"github.com/oxhq/mesh/value"
)

var kindByName = buildKindByName()

func buildKindByName() map[string]value.Kind {
	m := make(map[string]value.Kind)
	for k := value.Nil; k <= value.TemporalAmount; k++ {
		if k == value.Array {
			continue
		}
		m[k.String()] = k
	}
	return m
}

// rawShape is the "*.shape.json" wire format: a direct JSON projection of the
// shape.Shape builder facets.
type rawShape struct {
	Virtual    bool          `json:"virtual"`
	IDField    string        `json:"idField"`
	TypeField  string        `json:"typeField"`
	Datatype   string        `json:"datatype"`
	Clazz      string        `json:"clazz"`
	Clazzes    []string      `json:"clazzes"`
	MinLength  *int          `json:"minLength"`
	MaxLength  *int          `json:"maxLength"`
	Pattern    string        `json:"pattern"`
	MinCount   *int          `json:"minCount"`
	MaxCount   *int          `json:"maxCount"`
	LanguageIn []string      `json:"languageIn"`
	UniqueLang bool          `json:"uniqueLang"`
	In         []rawLiteral  `json:"in"`
	HasValue   []rawLiteral  `json:"hasValue"`
	MinIncl    *rawLiteral   `json:"minInclusive"`
	MaxIncl    *rawLiteral   `json:"maxInclusive"`
	MinExcl    *rawLiteral   `json:"minExclusive"`
	MaxExcl    *rawLiteral   `json:"maxExclusive"`
	Properties []rawProperty `json:"properties"`
}

type rawLiteral struct {
	Datatype string `json:"datatype"`
	Value    string `json:"value"`
	Locale   string `json:"locale"`
}

// rawProperty is a named edge. Exactly one of Ref (a reference to another
// shape file's name, resolved lazily to support recursive shape graphs) or
// Shape (an inline nested definition) may be set; neither set means an
// unconstrained nested shape.
type rawProperty struct {
	Name     string    `json:"name"`
	Forward  string    `json:"forward"`
	Reverse  string    `json:"reverse"`
	Embedded bool      `json:"embedded"`
	Ref      string    `json:"ref"`
	Shape    *rawShape `json:"shape"`
}

// Set is a named collection of shapes loaded from a directory, with lazy
// cross-file reference resolution.
type Set struct {
	mu    sync.RWMutex
	raw   map[string]rawShape
	built map[string]*shape.Shape
}

// Load discovers every "*.shape.json" file under dir (recursively, via "**")
// and builds a Set from them. Every shape is built eagerly except property
// references ("ref"), which resolve lazily so that self- and mutually
// recursive shape graphs (e.g. employee.supervisor : employee) do not loop
// during construction.
func Load(dir string) (*Set, error) {
	pattern := filepath.Join(filepath.ToSlash(dir), "**", "*.shape.json")
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("shapeset: glob %q: %w", pattern, err)
	}

	s := &Set{raw: make(map[string]rawShape, len(matches)), built: make(map[string]*shape.Shape, len(matches))}
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("shapeset: read %s: %w", path, err)
		}
		var rs rawShape
		if err := json.Unmarshal(data, &rs); err != nil {
			return nil, fmt.Errorf("shapeset: decode %s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), ".shape.json")
		if _, dup := s.raw[name]; dup {
			return nil, fmt.Errorf("shapeset: duplicate shape name %q", name)
		}
		s.raw[name] = rs
	}

	if err := s.validateRefs(); err != nil {
		return nil, err
	}
	for name := range s.raw {
		if _, err := s.ensure(name); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) validateRefs() error {
	var walk func(rs rawShape) error
	walk = func(rs rawShape) error {
		for _, p := range rs.Properties {
			if p.Ref != "" {
				if _, ok := s.raw[p.Ref]; !ok {
					return fmt.Errorf("shapeset: property %q references unknown shape %q", p.Name, p.Ref)
				}
				continue
			}
			if p.Shape != nil {
				if err := walk(*p.Shape); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, rs := range s.raw {
		if err := walk(rs); err != nil {
			return err
		}
	}
	return nil
}

// Shape returns the named shape, failing if name was not among the loaded
// files.
func (s *Set) Shape(name string) (*shape.Shape, error) {
	s.mu.RLock()
	built, ok := s.built[name]
	s.mu.RUnlock()
	if ok {
		return built, nil
	}
	return s.ensure(name)
}

// Names lists every shape name discovered by Load, in no particular order.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.raw))
	for name := range s.raw {
		names = append(names, name)
	}
	return names
}

func (s *Set) ensure(name string) (*shape.Shape, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if built, ok := s.built[name]; ok {
		return built, nil
	}
	rs, ok := s.raw[name]
	if !ok {
		return nil, fmt.Errorf("shapeset: unknown shape %q", name)
	}
	built, err := s.buildShape(name, rs)
	if err != nil {
		return nil, fmt.Errorf("shapeset: %s: %w", name, err)
	}
	s.built[name] = built
	return built, nil
}

// buildShape must be called with s.mu held.
func (s *Set) buildShape(name string, rs rawShape) (*shape.Shape, error) {
	sh := shape.New().WithVirtual(rs.Virtual)
	if rs.IDField != "" {
		sh = sh.WithID(rs.IDField)
	}
	if rs.TypeField != "" {
		sh = sh.WithType(rs.TypeField)
	}

	var err error
	if rs.Datatype != "" {
		k, ok := kindByName[rs.Datatype]
		if !ok {
			return nil, fmt.Errorf("unknown datatype %q", rs.Datatype)
		}
		if sh, err = sh.WithDatatype(k); err != nil {
			return nil, err
		}
	}
	if rs.Clazz != "" {
		if sh, err = sh.WithClazz(rs.Clazz); err != nil {
			return nil, err
		}
	}
	if len(rs.Clazzes) > 0 {
		sh = sh.WithClazzes(rs.Clazzes...)
	}
	if rs.MinLength != nil {
		if sh, err = sh.WithLength("minLength", *rs.MinLength); err != nil {
			return nil, err
		}
	}
	if rs.MaxLength != nil {
		if sh, err = sh.WithLength("maxLength", *rs.MaxLength); err != nil {
			return nil, err
		}
	}
	if rs.Pattern != "" {
		if sh, err = sh.WithPattern(rs.Pattern); err != nil {
			return nil, err
		}
	}
	if rs.MinCount != nil {
		if sh, err = sh.WithCount("minCount", *rs.MinCount); err != nil {
			return nil, err
		}
	}
	if rs.MaxCount != nil {
		if sh, err = sh.WithCount("maxCount", *rs.MaxCount); err != nil {
			return nil, err
		}
	}
	if len(rs.LanguageIn) > 0 {
		sh = sh.WithLanguageIn(rs.LanguageIn...)
	}
	if rs.UniqueLang {
		sh = sh.WithUniqueLang(true)
	}
	if len(rs.In) > 0 {
		vals, err := decodeLiterals(rs.In)
		if err != nil {
			return nil, err
		}
		if sh, err = sh.WithIn(vals...); err != nil {
			return nil, err
		}
	}
	if len(rs.HasValue) > 0 {
		vals, err := decodeLiterals(rs.HasValue)
		if err != nil {
			return nil, err
		}
		if sh, err = sh.WithHasValue(vals...); err != nil {
			return nil, err
		}
	}
	for kind, lit := range map[string]*rawLiteral{
		"minInclusive": rs.MinIncl, "maxInclusive": rs.MaxIncl,
		"minExclusive": rs.MinExcl, "maxExclusive": rs.MaxExcl,
	} {
		if lit == nil {
			continue
		}
		v, err := decodeLiteral(*lit)
		if err != nil {
			return nil, err
		}
		if sh, err = sh.WithRange(kind, v); err != nil {
			return nil, err
		}
	}

	for _, jp := range rs.Properties {
		prop, err := s.buildProperty(name, jp)
		if err != nil {
			return nil, err
		}
		if sh, err = sh.WithProperty(prop); err != nil {
			return nil, err
		}
	}
	return sh, nil
}

func (s *Set) buildProperty(owner string, jp rawProperty) (shape.Property, error) {
	switch {
	case jp.Ref != "":
		ref := jp.Ref
		return shape.NewLazyProperty(jp.Name, jp.Forward, jp.Reverse, jp.Embedded, func() *shape.Shape {
			sh, err := s.ensure(ref)
			if err != nil {
				panic(fmt.Sprintf("shapeset: resolving %s.%s ref %q: %v", owner, jp.Name, ref, err))
			}
			return sh
		})
	case jp.Shape != nil:
		nested, err := s.buildShape(owner+"."+jp.Name, *jp.Shape)
		if err != nil {
			return shape.Property{}, err
		}
		return shape.NewProperty(jp.Name, jp.Forward, jp.Reverse, jp.Embedded, nested)
	default:
		return shape.NewProperty(jp.Name, jp.Forward, jp.Reverse, jp.Embedded, shape.New())
	}
}

func decodeLiterals(lits []rawLiteral) ([]value.Value, error) {
	out := make([]value.Value, 0, len(lits))
	for _, lit := range lits {
		v, err := decodeLiteral(lit)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeLiteral(lit rawLiteral) (value.Value, error) {
	datatype := value.String
	if lit.Datatype != "" {
		k, ok := kindByName[lit.Datatype]
		if !ok {
			return value.Value{}, fmt.Errorf("unknown literal datatype %q", lit.Datatype)
		}
		datatype = k
	}
	v, err := value.Decode(datatype, lit.Value, lit.Locale)
	if err != nil {
		return value.Value{}, fmt.Errorf("malformed %s literal %q: %w", datatype, lit.Value, err)
	}
	return v, nil
}
