package query

import (
	"fmt"

	"github.com/oxhq/mesh/expr"
	"github.com/oxhq/mesh/shape"
	"github.com/oxhq/mesh/value"
)

// Probe is a named column of a Specs projection: a name, the Expression
// computing its value, and the model Value it is computed from.
type Probe struct {
	Name  string
	Expr  *expr.Expression
	Model value.Value
}

// Specs is a tabular-projection spec: a Shape plus an ordered list of Probes
// with unique names, per spec.md §3/§4.D.
type Specs struct {
	shape  *shape.Shape
	probes []Probe
}

// NewSpecs builds a Specs, asserting probe-name uniqueness.
func NewSpecs(s *shape.Shape, probes ...Probe) (*Specs, error) {
	seen := make(map[string]bool, len(probes))
	for _, p := range probes {
		if p.Name == "" {
			return nil, fmt.Errorf("query: specs probe must have a name")
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("query: duplicate probe name %q", p.Name)
		}
		seen[p.Name] = true
		if p.Expr == nil {
			return nil, fmt.Errorf("query: probe %q has nil expression", p.Name)
		}
	}
	return &Specs{shape: s, probes: append([]Probe(nil), probes...)}, nil
}

// Shape returns the specs' shape.
func (s *Specs) Shape() *shape.Shape { return s.shape }

// Probes returns the specs' probes in order.
func (s *Specs) Probes() []Probe { return append([]Probe(nil), s.probes...) }

// Probe looks up a probe by name.
func (s *Specs) Probe(name string) (Probe, bool) {
	for _, p := range s.probes {
		if p.Name == name {
			return p, true
		}
	}
	return Probe{}, false
}

// EmbeddedTag implements value.Embedded so a Specs can be wrapped as a
// Value's Specs-kind variant.
func (s *Specs) EmbeddedTag() string { return "specs" }
