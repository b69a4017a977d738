package main

import (
	"fmt"
	"os"

	"github.com/oxhq/mesh/internal/shapeset"
	"github.com/oxhq/mesh/internal/sqlstore"
	"github.com/oxhq/mesh/model"
	"github.com/oxhq/mesh/shape"
	"github.com/oxhq/mesh/value"
)

// loadShape opens the shape definitions under shapesDir and resolves name.
func loadShape(shapesDir, name string) (*shape.Shape, error) {
	set, err := shapeset.Load(shapesDir)
	if err != nil {
		return nil, fmt.Errorf("loading shapes from %s: %w", shapesDir, err)
	}
	s, err := set.Shape(name)
	if err != nil {
		return nil, fmt.Errorf("shape %q: %w", name, err)
	}
	return s, nil
}

// blankModel builds the shape-inferred default model for s: a fresh "@id"
// object carrying every non-virtual property's zero value, per spec.md §4.F.
func blankModel(s *shape.Shape) (value.Value, error) {
	obj, err := value.NewObj(value.Field{Name: value.FieldShape, Value: value.EmbedShapeValue(s)})
	if err != nil {
		return value.Value{}, err
	}
	return model.Expand(value.ObjectValue(obj), "")
}

// readValueFile decodes path's contents with sqlstore's canonical
// Kind-tagged JSON wire format, the same one records are persisted in.
func readValueFile(path string) (value.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return value.Value{}, fmt.Errorf("reading %s: %w", path, err)
	}
	v, err := sqlstore.UnmarshalValue(data)
	if err != nil {
		return value.Value{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return v, nil
}
