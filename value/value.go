package value

import (
	"fmt"
	"math/big"
	"time"
)

// Period is a calendar-based amount (years, months, days), the Decimal
// analogue for temporal amounts that Duration cannot express exactly.
type Period struct {
	Years, Months, Days int
}

// Embedded is satisfied by the two object tags that a Value can wrap instead
// of ordinary payload fields: a Query and a Specs. Both types live in the
// query package; Value only needs to know how to carry and tag them, which
// keeps this package free of a dependency on query (which itself depends on
// Value for its model field). Shapes embedded under the reserved "@shape"
// field implement the same interface so that Value.Merge can special-case
// shape-to-shape merging without importing the shape package either.
type Embedded interface {
	// EmbeddedTag names the wrapped kind: "query", "specs", or "shape".
	EmbeddedTag() string
}

// ShapeMerger is implemented by shape.Shape so Value.Merge can merge two
// "@shape" fields without this package depending on the shape package.
type ShapeMerger interface {
	Embedded
	MergeEmbedded(other Embedded) (Embedded, error)
}

// Value is the universal tagged value. The zero Value is Nil.
type Value struct {
	kind Kind

	bit      bool
	integral int64
	floating float64
	integer  *big.Int
	decimal  Dec
	str      string // String, URI, Year-less lexical payloads
	year     int
	month    int // 1-12 for YearMonth, 0 = unset
	time     time.Time
	zone     string // ZonedDateTime zone name; OffsetTime/OffsetDateTime keep offset in time.Time's Location
	period   Period
	duration time.Duration
	locale   string // Text
	datatype string // Data
	array    []Value
	obj      *Obj
	table    *Tab
	tuple    *Tup
	embedded Embedded
}

// WildcardLocale is the distinguished Text locale that matches any locale.
const WildcardLocale = "*"

func NilValue() Value { return Value{kind: Nil} }

func BitValue(b bool) Value { return Value{kind: Bit, bit: b} }

func IntegralValue(i int64) Value { return Value{kind: Integral, integral: i} }

func FloatingValue(f float64) Value { return Value{kind: Floating, floating: f} }

func IntegerValue(i *big.Int) Value { return Value{kind: Integer, integer: new(big.Int).Set(i)} }

func DecimalValue(d Dec) Value { return Value{kind: Decimal, decimal: d} }

func StringValue(s string) Value { return Value{kind: String, str: s} }

func URIValue(s string) Value { return Value{kind: URI, str: s} }

func YearValue(y int) Value { return Value{kind: Year, year: y} }

func YearMonthValue(y, m int) Value { return Value{kind: YearMonth, year: y, month: m} }

func LocalDateValue(t time.Time) Value { return Value{kind: LocalDate, time: t} }

func LocalTimeValue(t time.Time) Value { return Value{kind: LocalTime, time: t} }

func OffsetTimeValue(t time.Time) Value { return Value{kind: OffsetTime, time: t} }

func LocalDateTimeValue(t time.Time) Value { return Value{kind: LocalDateTime, time: t} }

func OffsetDateTimeValue(t time.Time) Value { return Value{kind: OffsetDateTime, time: t} }

func ZonedDateTimeValue(t time.Time, zone string) Value {
	return Value{kind: ZonedDateTime, time: t, zone: zone}
}

func InstantValue(t time.Time) Value { return Value{kind: Instant, time: t.UTC()} }

func PeriodValue(p Period) Value { return Value{kind: Period, period: p} }

func DurationValue(d time.Duration) Value { return Value{kind: Duration, duration: d} }

func TextValue(locale, text string) Value { return Value{kind: Text, locale: locale, str: text} }

func DataValue(datatype, lexical string) Value {
	return Value{kind: Data, datatype: datatype, str: lexical}
}

func ArrayValue(elems ...Value) Value {
	return Value{kind: Array, array: append([]Value(nil), elems...)}
}

func ObjectValue(o *Obj) Value { return Value{kind: Object, obj: o} }

func TableValue(t *Tab) Value { return Value{kind: Table, table: t} }

func TupleValue(t *Tup) Value { return Value{kind: Tuple, tuple: t} }

// EmbedValue wraps a Query or Specs as a Value, per spec.md §3's "two further
// tag values" rule. The embedded value's tag selects the Kind.
func EmbedValue(e Embedded) (Value, error) {
	switch e.EmbeddedTag() {
	case "query":
		return Value{kind: Query, embedded: e}, nil
	case "specs":
		return Value{kind: Specs, embedded: e}, nil
	default:
		return Value{}, fmt.Errorf("value: cannot embed tag %q as a value", e.EmbeddedTag())
	}
}

// EmbedShapeValue wraps a Shape (ShapeMerger) to be stored under the "@shape"
// reserved field.
func EmbedShapeValue(s ShapeMerger) Value {
	return Value{kind: Object, embedded: s}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNil() bool { return v.kind == Nil }

func (v Value) Bit() (bool, bool)          { return v.bit, v.kind == Bit }
func (v Value) Integral() (int64, bool)    { return v.integral, v.kind == Integral }
func (v Value) Floating() (float64, bool)  { return v.floating, v.kind == Floating }
func (v Value) Integer() (*big.Int, bool)  { return v.integer, v.kind == Integer }
func (v Value) Decimal() (Dec, bool)       { return v.decimal, v.kind == Decimal }
func (v Value) String_() (string, bool)    { return v.str, v.kind == String }
func (v Value) URI() (string, bool)        { return v.str, v.kind == URI }
func (v Value) Year_() (int, bool)         { return v.year, v.kind == Year }
func (v Value) YearMonth_() (int, int, bool) {
	return v.year, v.month, v.kind == YearMonth
}
func (v Value) Time() (time.Time, bool) {
	switch v.kind {
	case LocalDate, LocalTime, OffsetTime, LocalDateTime, OffsetDateTime, ZonedDateTime, Instant:
		return v.time, true
	default:
		return time.Time{}, false
	}
}
func (v Value) Zone() string                { return v.zone }
func (v Value) Period_() (Period, bool)     { return v.period, v.kind == Period }
func (v Value) Duration_() (time.Duration, bool) {
	return v.duration, v.kind == Duration
}
func (v Value) Locale() (string, bool) { return v.locale, v.kind == Text }
func (v Value) Text() (string, bool)   { return v.str, v.kind == Text }
func (v Value) Datatype() (string, bool) {
	return v.datatype, v.kind == Data
}
func (v Value) Lexical() (string, bool) { return v.str, v.kind == Data }
func (v Value) Array() ([]Value, bool)  { return v.array, v.kind == Array }
func (v Value) Obj() (*Obj, bool) {
	if v.kind != Object || v.embedded != nil {
		return nil, false
	}
	return v.obj, true
}
func (v Value) Table_() (*Tab, bool) { return v.table, v.kind == Table }
func (v Value) Tuple_() (*Tup, bool) { return v.tuple, v.kind == Tuple }

// Embedded returns the wrapped Query, Specs, or Shape, if any.
func (v Value) Embedded() (Embedded, bool) { return v.embedded, v.embedded != nil }

// Shape returns the embedded shape of an Object's "@shape" reserved field
// value, if v itself is that wrapped value (see ShapeOf in reserved.go for
// the usual entry point via an owning Object).
func (v Value) Shape() (ShapeMerger, bool) {
	if v.kind != Object || v.embedded == nil {
		return nil, false
	}
	sm, ok := v.embedded.(ShapeMerger)
	return sm, ok
}
