// Package expr implements the Expression/Transform component of spec.md
// §4.C: a parsed path of property-name steps with a transform pipeline,
// applied against a Shape to compute the shape of the expression's result.
package expr

import (
	"fmt"
	"strings"

	"github.com/oxhq/mesh/shape"
	"github.com/oxhq/mesh/value"
)

// Transform is one stage of an expression's pipeline, per the table in
// spec.md §4.C.
type Transform uint8

const (
	Count Transform = iota
	Min
	Max
	Sum
	Avg
	Abs
	Round
	Year
)

var transformNames = map[Transform]string{
	Count: "COUNT", Min: "MIN", Max: "MAX", Sum: "SUM",
	Avg: "AVG", Abs: "ABS", Round: "ROUND", Year: "YEAR",
}

func (t Transform) String() string { return transformNames[t] }

// IsAggregate reports whether t collapses an array into a scalar.
func (t Transform) IsAggregate() bool {
	switch t {
	case Count, Min, Max, Sum, Avg:
		return true
	default:
		return false
	}
}

func parseTransform(name string) (Transform, error) {
	switch strings.ToUpper(name) {
	case "COUNT":
		return Count, nil
	case "MIN":
		return Min, nil
	case "MAX":
		return Max, nil
	case "SUM":
		return Sum, nil
	case "AVG":
		return Avg, nil
	case "ABS":
		return Abs, nil
	case "ROUND":
		return Round, nil
	case "YEAR":
		return Year, nil
	default:
		return 0, fmt.Errorf("expr: unknown transform %q", name)
	}
}

// apply maps an input shape S through t to the transform's output shape, per
// the table in spec.md §4.C. COUNT's output is required (minCount=maxCount=1);
// every other transform's output is optional (no count constraint imposed).
func (t Transform) apply(s *shape.Shape) (*shape.Shape, error) {
	switch t {
	case Count:
		out, err := shape.New().WithDatatype(value.Integral)
		if err != nil {
			return nil, err
		}
		out, err = out.WithCount("minCount", 1)
		if err != nil {
			return nil, err
		}
		return out.WithCount("maxCount", 1)
	case Min, Max, Sum:
		if !s.HasDatatype() {
			return shape.New(), nil
		}
		return shape.New().WithDatatype(s.Datatype)
	case Avg:
		// spec.md §9 flags AVG's output as "review": Decimal, optional.
		return shape.New().WithDatatype(value.Decimal)
	case Abs:
		if !s.HasDatatype() {
			return shape.New(), nil
		}
		return shape.New().WithDatatype(s.Datatype)
	case Round:
		return shape.New().WithDatatype(value.Integer)
	case Year:
		return shape.New().WithDatatype(value.Integral)
	default:
		return nil, fmt.Errorf("expr: unhandled transform %v", t)
	}
}

// PromoteNumeric implements the MIN/MAX mixed-numeric-variant rule noted as
// underspecified in spec.md §9: when aggregating across both Integer and
// Decimal values, the safe interpretation is to return Decimal.
func PromoteNumeric(kinds ...value.Kind) value.Kind {
	hasInteger, hasDecimal := false, false
	for _, k := range kinds {
		switch k {
		case value.Integer:
			hasInteger = true
		case value.Decimal:
			hasDecimal = true
		}
	}
	if hasInteger && hasDecimal {
		return value.Decimal
	}
	if len(kinds) > 0 {
		return kinds[0]
	}
	return value.Decimal
}
