package model

import (
	"fmt"

	"github.com/oxhq/mesh/query"
	"github.com/oxhq/mesh/shape"
	"github.com/oxhq/mesh/value"
)

// Populate overlays y onto x using the type-aware rules of spec.md §4.F.
// Specs values in x are preserved verbatim wherever they occur as a field;
// a direct top-level call with x itself a Specs returns x unchanged unless
// y is also a Specs, in which case y wins (an explicit Open Question
// resolution — see DESIGN.md).
func Populate(x, y value.Value) (value.Value, error) {
	return populateWithBase(x, y, "")
}

func populateWithBase(x, y value.Value, base string) (value.Value, error) {
	switch x.Kind() {
	case value.Specs:
		if y.Kind() == value.Specs {
			return y, nil
		}
		return x, nil
	case value.Object:
		return populateObject(x, y, base)
	case value.Array:
		return populateArray(x, y, base)
	case value.Query:
		return populateQuery(x, y, base)
	default:
		return y, nil
	}
}

func populateObject(x, y value.Value, base string) (value.Value, error) {
	switch y.Kind() {
	case value.Object:
		return populateObjectObject(x, y, base)
	case value.Array:
		return y, nil
	case value.Query:
		model, err := unwrapQueryModel(y)
		if err != nil {
			return value.Value{}, err
		}
		return populateWithBase(x, model, base)
	default:
		return y, nil
	}
}

func populateObjectObject(x, y value.Value, base string) (value.Value, error) {
	xo, ok := x.Obj()
	if !ok {
		return y, nil
	}
	yo, ok := y.Obj()
	if !ok {
		return y, nil
	}

	xShape := objectShape(xo)

	fields := make([]value.Field, 0, xo.Len())
	for _, f := range xo.Fields() {
		if value.IsReserved(f.Name) {
			merged, err := populateReservedField(f.Name, f.Value, yo)
			if err != nil {
				return value.Value{}, err
			}
			fields = append(fields, value.Field{Name: f.Name, Value: merged})
			continue
		}
		if f.Value.Kind() == value.Specs {
			fields = append(fields, f)
			continue
		}
		if yv, present := yo.Get(f.Name); present {
			pv, err := populateWithBase(f.Value, yv, base)
			if err != nil {
				return value.Value{}, err
			}
			fields = append(fields, value.Field{Name: f.Name, Value: pv})
			continue
		}
		if xShape != nil {
			if p, ok := xShape.Property(f.Name); ok {
				def, err := defaultFor(p.Shape(), base)
				if err != nil {
					return value.Value{}, err
				}
				fields = append(fields, value.Field{Name: f.Name, Value: def})
				continue
			}
		}
		fields = append(fields, f)
	}

	obj, err := value.NewObj(fields...)
	if err != nil {
		return value.Value{}, err
	}
	return value.ObjectValue(obj), nil
}

func populateReservedField(name string, xv value.Value, yo *value.Obj) (value.Value, error) {
	yv, present := yo.Get(name)
	if !present {
		return xv, nil
	}
	if name == value.FieldShape {
		return value.Merge(xv, yv)
	}
	return yv, nil
}

func objectShape(o *value.Obj) *shape.Shape {
	sv, ok := o.Get(value.FieldShape)
	if !ok {
		return nil
	}
	sm, ok := sv.Shape()
	if !ok {
		return nil
	}
	s, ok := sm.(*shape.Shape)
	if !ok {
		return nil
	}
	return s
}

func populateArray(x, y value.Value, base string) (value.Value, error) {
	xs, _ := x.Array()
	switch y.Kind() {
	case value.Array:
		ys, _ := y.Array()
		var merged []value.Value
		var err error
		switch {
		case len(xs) > 0 && allText(xs) && allText(ys):
			merged = populateTextArray(xs, ys)
		case len(xs) > 0 && allData(xs) && allData(ys):
			merged = populateDataArray(xs, ys)
		default:
			merged, err = populateArrayPairwise(xs, ys, base)
		}
		if err != nil {
			return value.Value{}, err
		}
		return value.ArrayValue(merged...), nil
	case value.Query:
		model, err := unwrapQueryModel(y)
		if err != nil {
			return value.Value{}, err
		}
		return populateWithBase(x, model, base)
	default:
		return populateWithBase(firstOrNil(xs), y, base)
	}
}

func populateArrayPairwise(xs, ys []value.Value, base string) ([]value.Value, error) {
	n := len(xs)
	if len(ys) > n {
		n = len(ys)
	}
	out := make([]value.Value, n)
	for i := 0; i < n; i++ {
		hasX := i < len(xs)
		hasY := i < len(ys)
		switch {
		case hasX && hasY:
			pv, err := populateWithBase(xs[i], ys[i], base)
			if err != nil {
				return nil, err
			}
			out[i] = pv
		case hasX:
			out[i] = xs[i]
		default:
			out[i] = ys[i]
		}
	}
	return out, nil
}

func allText(vs []value.Value) bool {
	for _, v := range vs {
		if _, ok := v.Text(); !ok {
			return false
		}
	}
	return true
}

func allData(vs []value.Value) bool {
	for _, v := range vs {
		if _, ok := v.Datatype(); !ok {
			return false
		}
	}
	return true
}

// populateTextArray implements the Text-array key-matching rule of
// spec.md §4.F: elements are keyed by locale rather than position. A
// wildcard locale in the model (x) matches any key in y; a wildcard locale
// in y broadcasts its text to every key in x. Keys present only in y are
// dropped, matching the "only x's keys survive" principle used for Object
// populate.
func populateTextArray(xs, ys []value.Value) []value.Value {
	out := make([]value.Value, 0, len(xs))
	for _, xv := range xs {
		xLocale, _ := xv.Locale()
		if xLocale == value.WildcardLocale && len(ys) > 0 {
			yLocale, yText := textOf(ys[0])
			out = append(out, value.TextValue(yLocale, yText))
			continue
		}
		if yv, ok := findByLocale(ys, xLocale); ok {
			_, yText := textOf(yv)
			out = append(out, value.TextValue(xLocale, yText))
			continue
		}
		if yv, ok := findByLocale(ys, value.WildcardLocale); ok {
			_, yText := textOf(yv)
			out = append(out, value.TextValue(xLocale, yText))
			continue
		}
		out = append(out, xv)
	}
	return out
}

func textOf(v value.Value) (string, string) {
	locale, _ := v.Locale()
	text, _ := v.Text()
	return locale, text
}

func findByLocale(vs []value.Value, locale string) (value.Value, bool) {
	for _, v := range vs {
		if l, _ := v.Locale(); l == locale {
			return v, true
		}
	}
	return value.Value{}, false
}

// populateDataArray mirrors populateTextArray, keyed by datatype URI instead
// of locale.
func populateDataArray(xs, ys []value.Value) []value.Value {
	out := make([]value.Value, 0, len(xs))
	for _, xv := range xs {
		xType, _ := xv.Datatype()
		if xType == value.WildcardLocale && len(ys) > 0 {
			yType, yLex := dataOf(ys[0])
			out = append(out, value.DataValue(yType, yLex))
			continue
		}
		if yv, ok := findByDatatype(ys, xType); ok {
			_, yLex := dataOf(yv)
			out = append(out, value.DataValue(xType, yLex))
			continue
		}
		if yv, ok := findByDatatype(ys, value.WildcardLocale); ok {
			_, yLex := dataOf(yv)
			out = append(out, value.DataValue(xType, yLex))
			continue
		}
		out = append(out, xv)
	}
	return out
}

func dataOf(v value.Value) (string, string) {
	datatype, _ := v.Datatype()
	lexical, _ := v.Lexical()
	return datatype, lexical
}

func findByDatatype(vs []value.Value, datatype string) (value.Value, bool) {
	for _, v := range vs {
		if d, _ := v.Datatype(); d == datatype {
			return v, true
		}
	}
	return value.Value{}, false
}

func populateQuery(x, y value.Value, base string) (value.Value, error) {
	embedded, ok := x.Embedded()
	if !ok {
		return value.Value{}, fmt.Errorf("model: populate: x is Query-kind but carries no embedded query")
	}
	qx, ok := embedded.(*query.Query)
	if !ok {
		return value.Value{}, fmt.Errorf("model: populate: x's embedded value is not a *query.Query")
	}

	switch y.Kind() {
	case value.Query:
		yEmbedded, _ := y.Embedded()
		qy, ok := yEmbedded.(*query.Query)
		if !ok {
			return value.Value{}, fmt.Errorf("model: populate: y's embedded value is not a *query.Query")
		}
		mergedModel, err := populateWithBase(qx.Model(), qy.Model(), base)
		if err != nil {
			return value.Value{}, err
		}
		nq, err := qx.WithModel(mergedModel)
		if err != nil {
			return value.Value{}, err
		}
		nq, err = nq.MergeClauses(qy)
		if err != nil {
			return value.Value{}, err
		}
		nq, err = nq.WithOffsetLimit(qx.Offset(), minNonZero(qx.Limit(), qy.Limit()))
		if err != nil {
			return value.Value{}, err
		}
		return value.EmbedValue(nq)
	case value.Object:
		populated, err := populateWithBase(qx.Model(), y, base)
		if err != nil {
			return value.Value{}, err
		}
		nq, err := qx.WithModel(populated)
		if err != nil {
			return value.Value{}, err
		}
		return value.EmbedValue(nq)
	case value.Array:
		ys, _ := y.Array()
		populated, err := populateWithBase(qx.Model(), firstOrNil(ys), base)
		if err != nil {
			return value.Value{}, err
		}
		nq, err := qx.WithModel(populated)
		if err != nil {
			return value.Value{}, err
		}
		return value.EmbedValue(nq)
	default:
		populated, err := populateWithBase(qx.Model(), y, base)
		if err != nil {
			return value.Value{}, err
		}
		nq, err := qx.WithModel(populated)
		if err != nil {
			return value.Value{}, err
		}
		return value.EmbedValue(nq)
	}
}

func unwrapQueryModel(v value.Value) (value.Value, error) {
	embedded, ok := v.Embedded()
	if !ok {
		return value.Value{}, fmt.Errorf("model: populate: value is Query-kind but carries no embedded query")
	}
	q, ok := embedded.(*query.Query)
	if !ok {
		return value.Value{}, fmt.Errorf("model: populate: embedded value is not a *query.Query")
	}
	return q.Model(), nil
}

func firstOrNil(xs []value.Value) value.Value {
	if len(xs) == 0 {
		return value.NilValue()
	}
	return xs[0]
}

// minNonZero returns the smaller of a, b, treating 0 ("unlimited") as
// losing to any non-zero value, per spec.md §4.F's Query/Query limit rule.
func minNonZero(a, b int) int {
	switch {
	case a == 0:
		return b
	case b == 0:
		return a
	case a < b:
		return a
	default:
		return b
	}
}
