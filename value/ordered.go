package value

import "fmt"

// Field is one (name, Value) pair of an Object or Tuple.
type Field struct {
	Name  string
	Value Value
}

// Obj is an ordered, unique-keyed mapping from field name to Value. Field
// order is preserved across every operation in this module (merge, extend,
// populate, codec, selection) per the ordering guarantees of the spec.
type Obj struct {
	fields []Field
	index  map[string]int
}

// NewObj builds an Obj from fields given in the desired order. A duplicate
// name is a construction error.
func NewObj(fields ...Field) (*Obj, error) {
	o := &Obj{fields: make([]Field, 0, len(fields)), index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if _, exists := o.index[f.Name]; exists {
			return nil, fmt.Errorf("value: duplicate object field %q", f.Name)
		}
		o.index[f.Name] = len(o.fields)
		o.fields = append(o.fields, f)
	}
	return o, nil
}

// Fields returns the fields in insertion order. The slice must not be
// mutated by callers.
func (o *Obj) Fields() []Field {
	if o == nil {
		return nil
	}
	return o.fields
}

// Get looks up a field by name.
func (o *Obj) Get(name string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	i, ok := o.index[name]
	if !ok {
		return Value{}, false
	}
	return o.fields[i].Value, true
}

// Names returns the field names in order.
func (o *Obj) Names() []string {
	if o == nil {
		return nil
	}
	names := make([]string, len(o.fields))
	for i, f := range o.fields {
		names[i] = f.Name
	}
	return names
}

// Len reports the number of fields.
func (o *Obj) Len() int {
	if o == nil {
		return 0
	}
	return len(o.fields)
}

// With returns a new Obj with name set to v, preserving the position of an
// existing field or appending a new one at the end.
func (o *Obj) With(name string, v Value) *Obj {
	fields := append([]Field(nil), o.Fields()...)
	if i, ok := o.index[name]; ok {
		fields[i] = Field{Name: name, Value: v}
	} else {
		fields = append(fields, Field{Name: name, Value: v})
	}
	next, err := NewObj(fields...)
	if err != nil {
		// Cannot happen: fields were already unique and With never
		// introduces a duplicate name.
		panic(err)
	}
	return next
}

// Without returns a new Obj with name removed, if present.
func (o *Obj) Without(name string) *Obj {
	if _, ok := o.index[name]; !ok {
		return o
	}
	fields := make([]Field, 0, o.Len())
	for _, f := range o.Fields() {
		if f.Name != name {
			fields = append(fields, f)
		}
	}
	next, _ := NewObj(fields...)
	return next
}

// Tup is an ordered, unique-named row of fields, the element type of Tab.
type Tup struct {
	fields []Field
	index  map[string]int
}

// NewTup builds a Tup from fields given in the desired order.
func NewTup(fields ...Field) (*Tup, error) {
	t := &Tup{fields: make([]Field, 0, len(fields)), index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if _, exists := t.index[f.Name]; exists {
			return nil, fmt.Errorf("value: duplicate tuple field %q", f.Name)
		}
		t.index[f.Name] = len(t.fields)
		t.fields = append(t.fields, f)
	}
	return t, nil
}

// Fields returns the tuple's fields in order.
func (t *Tup) Fields() []Field {
	if t == nil {
		return nil
	}
	return t.fields
}

// Value returns the first field matching name, per spec.md §4.D.
func (t *Tup) Value(name string) (Value, bool) {
	if t == nil {
		return Value{}, false
	}
	i, ok := t.index[name]
	if !ok {
		return Value{}, false
	}
	return t.fields[i].Value, true
}

// Len reports the number of fields in the tuple.
func (t *Tup) Len() int {
	if t == nil {
		return 0
	}
	return len(t.fields)
}

// Tab is an ordered list of Tup rows, the result of a tabular projection.
type Tab struct {
	rows []*Tup
}

// NewTab builds a Tab from rows in order.
func NewTab(rows ...*Tup) *Tab {
	return &Tab{rows: append([]*Tup(nil), rows...)}
}

// Rows returns the table's rows in order.
func (t *Tab) Rows() []*Tup {
	if t == nil {
		return nil
	}
	return t.rows
}

// Len reports the number of rows.
func (t *Tab) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}
