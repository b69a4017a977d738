package value

import (
	"fmt"
	"math/big"
)

// ErrIncomparable is returned when a comparison is attempted on a kind that
// has no ordering (Array, Object, Table, Tuple, Query, Specs).
var ErrIncomparable = fmt.Errorf("value: incomparable values")

// ErrIncompatible is returned when two Values from different comparable
// families are compared against each other.
var ErrIncompatible = fmt.Errorf("value: incompatible values")

// Compare implements the total ordering described in spec.md §4.A:
//   - Bit: false < true
//   - the four numeric kinds are mutually comparable by mathematical value
//   - String/URI: lexical (code-point) order
//   - each temporal kind is comparable only with the same kind
//   - Array, Object, Table, Tuple, Query, Specs are never comparable
//
// Compare returns -1, 0, or 1, or an error naming which family rule was
// violated.
func Compare(a, b Value) (int, error) {
	if !comparableKind(a.kind) {
		return 0, fmt.Errorf("%w: %s", ErrIncomparable, a.kind)
	}
	if !comparableKind(b.kind) {
		return 0, fmt.Errorf("%w: %s", ErrIncomparable, b.kind)
	}

	switch {
	case a.kind == Bit && b.kind == Bit:
		return compareBool(a.bit, b.bit), nil
	case a.kind.IsNumeric() && b.kind.IsNumeric():
		return compareNumeric(a, b), nil
	case a.kind == String && b.kind == String:
		return compareString(a.str, b.str), nil
	case a.kind == URI && b.kind == URI:
		return compareString(a.str, b.str), nil
	case a.kind.IsTemporal() && b.kind.IsTemporal():
		if a.kind != b.kind {
			return 0, fmt.Errorf("%w: %s vs %s", ErrIncompatible, a.kind, b.kind)
		}
		return compareTemporal(a, b)
	default:
		return 0, fmt.Errorf("%w: %s vs %s", ErrIncompatible, a.kind, b.kind)
	}
}

func comparableKind(k Kind) bool {
	switch k {
	case Array, Object, Table, Tuple, Query, Specs:
		return false
	default:
		return true
	}
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func numericRat(v Value) *big.Rat {
	switch v.kind {
	case Integral:
		return new(big.Rat).SetInt64(v.integral)
	case Floating:
		r := new(big.Rat)
		r.SetFloat64(v.floating)
		return r
	case Integer:
		return new(big.Rat).SetInt(v.integer)
	case Decimal:
		return v.decimal.Rat()
	default:
		return nil
	}
}

func compareNumeric(a, b Value) int {
	return numericRat(a).Cmp(numericRat(b))
}

func compareTemporal(a, b Value) (int, error) {
	switch a.kind {
	case Year:
		return intCmp(a.year, b.year), nil
	case YearMonth:
		if c := intCmp(a.year, b.year); c != 0 {
			return c, nil
		}
		return intCmp(a.month, b.month), nil
	default:
		if a.time.Before(b.time) {
			return -1, nil
		}
		if a.time.After(b.time) {
			return 1, nil
		}
		return 0, nil
	}
}

func intCmp(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
