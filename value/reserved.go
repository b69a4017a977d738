package value

import "strings"

// Reserved field names, exact spelling, per spec.md §6.
const (
	FieldID    = "@id"
	FieldType  = "@type"
	FieldShape = "@shape"
)

// IsReserved reports whether name is one of the three reserved field names.
func IsReserved(name string) bool {
	return name == FieldID || name == FieldType || name == FieldShape
}

// IsReservedPrefix reports whether name begins with "@", the guard that
// shape/expression builders use to reject property and path-step names.
func IsReservedPrefix(name string) bool {
	return strings.HasPrefix(name, "@")
}

// ID returns the object's "@id" field, if present and a URI.
func (v Value) ID() (string, bool) {
	o, ok := v.Obj()
	if !ok {
		return "", false
	}
	f, ok := o.Get(FieldID)
	if !ok {
		return "", false
	}
	return f.URI()
}

// Type returns the object's "@type" field, if present and a String.
func (v Value) Type() (string, bool) {
	o, ok := v.Obj()
	if !ok {
		return "", false
	}
	f, ok := o.Get(FieldType)
	if !ok {
		return "", false
	}
	return f.String_()
}

// ShapeOf returns the ShapeMerger embedded in the object's "@shape" field, if
// present.
func (v Value) ShapeOf() (ShapeMerger, bool) {
	o, ok := v.Obj()
	if !ok {
		return nil, false
	}
	f, ok := o.Get(FieldShape)
	if !ok {
		return nil, false
	}
	return f.Shape()
}
