package sqlstore

import (
	"encoding/json"
	"fmt"

	"github.com/oxhq/mesh/value"
)

// node is the JSON wire shape a Value is flattened to before it is stored in
// a record's Data column. Scalar and temporal kinds reuse value.Encode's
// canonical lexical form directly (Text and Data's "@locale"/"^^datatype"
// suffixes round-trip through value.Decode unchanged); Object and Array
// recurse. A record's own "@shape" field is never persisted — sqlstore is
// handed the requesting model's shape on every call and reattaches it rather
// than serialising a Shape value, which has no lexical codec of its own.
type node struct {
	Kind     string      `json:"kind"`
	Lexical  string      `json:"lexical,omitempty"`
	Elements []node      `json:"elements,omitempty"`
	Fields   []fieldNode `json:"fields,omitempty"`
}

type fieldNode struct {
	Name  string `json:"name"`
	Value node   `json:"value"`
}

var kindsByName = func() map[string]value.Kind {
	names := []value.Kind{
		value.Nil, value.Bit, value.Integral, value.Floating, value.Integer, value.Decimal,
		value.String, value.URI, value.Year, value.YearMonth, value.LocalDate, value.LocalTime,
		value.OffsetTime, value.LocalDateTime, value.OffsetDateTime, value.ZonedDateTime,
		value.Instant, value.Period, value.Duration, value.Text, value.Data,
	}
	m := make(map[string]value.Kind, len(names))
	for _, k := range names {
		m[k.String()] = k
	}
	return m
}()

func encodeNode(v value.Value) (node, error) {
	switch v.Kind() {
	case value.Nil:
		return node{Kind: "Nil"}, nil
	case value.Array:
		elems, _ := v.Array()
		out := make([]node, len(elems))
		for i, e := range elems {
			n, err := encodeNode(e)
			if err != nil {
				return node{}, err
			}
			out[i] = n
		}
		return node{Kind: "Array", Elements: out}, nil
	case value.Object:
		o, ok := v.Obj()
		if !ok {
			return node{}, fmt.Errorf("sqlstore: cannot persist an embedded %s value directly", v.Kind())
		}
		fields := make([]fieldNode, 0, o.Len())
		for _, f := range o.Fields() {
			if f.Name == value.FieldShape {
				continue
			}
			fv, err := encodeNode(f.Value)
			if err != nil {
				return node{}, fmt.Errorf("sqlstore: field %q: %w", f.Name, err)
			}
			fields = append(fields, fieldNode{Name: f.Name, Value: fv})
		}
		return node{Kind: "Object", Fields: fields}, nil
	default:
		lex, err := value.Encode(v, "")
		if err != nil {
			return node{}, err
		}
		return node{Kind: v.Kind().String(), Lexical: lex}, nil
	}
}

func decodeNode(n node) (value.Value, error) {
	switch n.Kind {
	case "Nil":
		return value.NilValue(), nil
	case "Array":
		elems := make([]value.Value, len(n.Elements))
		for i, e := range n.Elements {
			ev, err := decodeNode(e)
			if err != nil {
				return value.Value{}, err
			}
			elems[i] = ev
		}
		return value.ArrayValue(elems...), nil
	case "Object":
		fields := make([]value.Field, 0, len(n.Fields))
		for _, f := range n.Fields {
			fv, err := decodeNode(f.Value)
			if err != nil {
				return value.Value{}, fmt.Errorf("sqlstore: field %q: %w", f.Name, err)
			}
			fields = append(fields, value.Field{Name: f.Name, Value: fv})
		}
		o, err := value.NewObj(fields...)
		if err != nil {
			return value.Value{}, err
		}
		return value.ObjectValue(o), nil
	default:
		k, ok := kindsByName[n.Kind]
		if !ok {
			return value.Value{}, fmt.Errorf("sqlstore: unknown persisted kind %q", n.Kind)
		}
		return value.Decode(k, n.Lexical, "")
	}
}

func marshalValue(v value.Value) ([]byte, error) {
	n, err := encodeNode(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(n)
}

func unmarshalValue(data []byte) (value.Value, error) {
	var n node
	if err := json.Unmarshal(data, &n); err != nil {
		return value.Value{}, err
	}
	return decodeNode(n)
}

// MarshalValue encodes v as the package's canonical Kind-tagged JSON wire
// format. Exported so cmd/mesh can read and write the same value.json shape
// this store persists, rather than inventing a second on-disk convention.
func MarshalValue(v value.Value) ([]byte, error) { return marshalValue(v) }

// UnmarshalValue decodes the package's canonical Kind-tagged JSON wire
// format, the counterpart to MarshalValue.
func UnmarshalValue(data []byte) (value.Value, error) { return unmarshalValue(data) }
