// Package model implements the request-model normalisation operators of
// spec.md §4.F: expand (fill shape-inferred defaults) and populate (overlay
// a user payload onto a model under type-aware rules).
package model

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/oxhq/mesh/query"
	"github.com/oxhq/mesh/shape"
	"github.com/oxhq/mesh/value"
)

// Expand walks v and fills in shape-inferred defaults, per spec.md §4.F:
// arrays expand element-wise; objects gain an empty "@shape" and a fresh
// "@id" if missing, then every non-virtual property absent from the object
// is set to its shape-inferred default; a Text property whose value is an
// empty array is replaced with the single-element wildcard-Text array;
// fields left Nil are dropped; nested objects are expanded recursively.
// base is used to construct fresh "@id" URIs for injected identity.
func Expand(v value.Value, base string) (value.Value, error) {
	switch {
	case v.IsNil():
		return v, nil
	case v.Kind() == value.Array:
		elems, _ := v.Array()
		out := make([]value.Value, len(elems))
		for i, el := range elems {
			expanded, err := Expand(el, base)
			if err != nil {
				return value.Value{}, err
			}
			out[i] = expanded
		}
		return value.ArrayValue(out...), nil
	case v.Kind() == value.Query:
		embedded, _ := v.Embedded()
		q, ok := embedded.(*query.Query)
		if !ok {
			return v, nil
		}
		expandedModel, err := Expand(q.Model(), base)
		if err != nil {
			return value.Value{}, err
		}
		next, err := q.WithModel(expandedModel)
		if err != nil {
			return value.Value{}, err
		}
		return value.EmbedValue(next)
	case v.Kind() == value.Object:
		return expandObject(v, base)
	default:
		return v, nil
	}
}

func expandObject(v value.Value, base string) (value.Value, error) {
	obj, ok := v.Obj()
	if !ok {
		// An embedded Specs (or other non-plain Object) is passed through.
		return v, nil
	}

	if _, has := obj.Get(value.FieldShape); !has {
		obj = obj.With(value.FieldShape, value.EmbedShapeValue(shape.New()))
	}
	if _, has := obj.Get(value.FieldID); !has {
		obj = obj.With(value.FieldID, value.URIValue(freshID(base)))
	}

	sm, _ := obj.Get(value.FieldShape)
	objShape, ok := sm.Shape()
	if !ok {
		return value.Value{}, fmt.Errorf("model: expand: @shape field is not a shape")
	}
	s, ok := objShape.(*shape.Shape)
	if !ok {
		return value.Value{}, fmt.Errorf("model: expand: embedded @shape is not a *shape.Shape")
	}

	for _, p := range s.Properties {
		if p.Shape().Virtual {
			continue
		}
		fv, present := obj.Get(p.Name)
		if !present {
			def, err := defaultFor(p.Shape(), base)
			if err != nil {
				return value.Value{}, err
			}
			obj = obj.With(p.Name, def)
			fv = def
		}
		fv = applyTextWildcardArrayRule(p.Shape(), fv)
		obj = obj.With(p.Name, fv)
	}

	fields := obj.Fields()
	kept := make([]value.Field, 0, len(fields))
	for _, f := range fields {
		if f.Value.IsNil() {
			continue
		}
		expanded, err := Expand(f.Value, base)
		if err != nil {
			return value.Value{}, err
		}
		f.Value = expanded
		kept = append(kept, f)
	}
	next, err := value.NewObj(kept...)
	if err != nil {
		return value.Value{}, err
	}
	return value.ObjectValue(next), nil
}

func applyTextWildcardArrayRule(s *shape.Shape, v value.Value) value.Value {
	if !s.HasDatatype() || s.Datatype != value.Text {
		return v
	}
	arr, ok := v.Array()
	if !ok || len(arr) != 0 {
		return v
	}
	return value.ArrayValue(value.TextValue(value.WildcardLocale, ""))
}

func isMultiValued(s *shape.Shape) bool {
	return s.MaxCount == nil || *s.MaxCount > 1
}

// defaultFor computes the shape-inferred default model value for a missing
// property, per spec.md §4.F: an Object-datatype property defaults to a
// fresh identified object carrying the property's own shape; any other
// datatype defaults to its witness value; a multi-valued property's default
// is array-wrapped.
func defaultFor(s *shape.Shape, base string) (value.Value, error) {
	var scalar value.Value
	if s.HasDatatype() && s.Datatype == value.Object {
		obj, err := value.NewObj(
			value.Field{Name: value.FieldShape, Value: value.EmbedShapeValue(s)},
			value.Field{Name: value.FieldID, Value: value.URIValue(freshID(base))},
		)
		if err != nil {
			return value.Value{}, err
		}
		scalar = value.ObjectValue(obj)
	} else {
		scalar = witnessValue(s)
	}
	if isMultiValued(s) {
		return value.ArrayValue(scalar), nil
	}
	return scalar, nil
}

// witnessValue returns the canonical zero value for a shape's datatype
// witness, used to populate a not-yet-filled scalar field.
func witnessValue(s *shape.Shape) value.Value {
	if !s.HasDatatype() {
		return value.NilValue()
	}
	switch s.Datatype {
	case value.Bit:
		return value.BitValue(false)
	case value.Integral:
		return value.IntegralValue(0)
	case value.Floating:
		return value.FloatingValue(0)
	case value.Integer:
		return value.IntegerValue(big.NewInt(0))
	case value.Decimal:
		d, _ := value.ParseDec("0")
		return value.DecimalValue(d)
	case value.String:
		return value.StringValue("")
	case value.URI:
		return value.URIValue("")
	case value.Text:
		return value.TextValue(value.WildcardLocale, "")
	default:
		return value.NilValue()
	}
}

func freshID(base string) string {
	id := uuid.New().String()
	if base == "" {
		return "urn:uuid:" + id
	}
	return base + id
}
