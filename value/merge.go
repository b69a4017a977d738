package value

// Merge implements Value-level composition per spec.md §4.A: Objects union by
// key with y's value winning, Arrays concatenate, and any other kind pair has
// y simply override x — except that two "@shape" fields merge their wrapped
// shapes instead of y silently discarding x's constraints.
func Merge(x, y Value) (Value, error) {
	if x.kind == Object && y.kind == Object && x.embedded == nil && y.embedded == nil {
		return mergeObjects(x, y)
	}
	if x.kind == Array && y.kind == Array {
		merged := append(append([]Value(nil), x.array...), y.array...)
		return ArrayValue(merged...), nil
	}
	if x.kind == Object && x.embedded != nil && y.kind == Object && y.embedded != nil {
		return mergeShapeValues(x, y)
	}
	return y, nil
}

func mergeObjects(x, y Value) (Value, error) {
	xo, _ := x.Obj()
	yo, _ := y.Obj()

	fields := make([]Field, 0, xo.Len()+yo.Len())
	seen := make(map[string]bool, xo.Len())

	for _, f := range xo.Fields() {
		seen[f.Name] = true
		yv, inY := yo.Get(f.Name)
		if !inY {
			fields = append(fields, f)
			continue
		}
		if f.Name == FieldShape {
			merged, err := mergeShapeValues(f.Value, yv)
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, Field{Name: f.Name, Value: merged})
			continue
		}
		fields = append(fields, Field{Name: f.Name, Value: yv})
	}
	for _, f := range yo.Fields() {
		if !seen[f.Name] {
			fields = append(fields, f)
		}
	}
	obj, err := NewObj(fields...)
	if err != nil {
		return Value{}, err
	}
	return ObjectValue(obj), nil
}

func mergeShapeValues(x, y Value) (Value, error) {
	xs, xok := x.Shape()
	ys, yok := y.Shape()
	if !xok || !yok {
		return y, nil
	}
	merged, err := xs.MergeEmbedded(ys)
	if err != nil {
		return Value{}, err
	}
	return EmbedShapeValue(merged.(ShapeMerger)), nil
}

// Extend implements the inheritance-flavoured composition of spec.md §4.A:
// Objects keep only x's keys, recursively extending values present in both;
// any other kind pair falls back to Merge's override rule. Arrays are not
// given special intersection semantics by the spec at the Value level, so
// they concatenate exactly like Merge.
func Extend(x, y Value) (Value, error) {
	if x.kind == Object && y.kind == Object && x.embedded == nil && y.embedded == nil {
		return extendObjects(x, y)
	}
	return Merge(x, y)
}

func extendObjects(x, y Value) (Value, error) {
	xo, _ := x.Obj()
	yo, _ := y.Obj()

	fields := make([]Field, 0, xo.Len())
	for _, f := range xo.Fields() {
		yv, inY := yo.Get(f.Name)
		if !inY {
			fields = append(fields, f)
			continue
		}
		if f.Name == FieldShape {
			merged, err := mergeShapeValues(f.Value, yv)
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, Field{Name: f.Name, Value: merged})
			continue
		}
		extended, err := Extend(f.Value, yv)
		if err != nil {
			return Value{}, err
		}
		fields = append(fields, Field{Name: f.Name, Value: extended})
	}
	obj, err := NewObj(fields...)
	if err != nil {
		return Value{}, err
	}
	return ObjectValue(obj), nil
}
