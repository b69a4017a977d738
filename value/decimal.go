package value

import (
	"fmt"
	"math/big"
	"strings"
)

// Dec is an arbitrary-precision decimal: unscaled * 10^-scale. No ecosystem
// decimal library is part of this module's dependency tree (see DESIGN.md),
// so this is built directly on math/big, the same way the rest of the
// numeric tower (Int) is.
type Dec struct {
	unscaled *big.Int
	scale    int32
}

// ParseDec parses a canonical decimal literal such as "12.50" or "-0.3".
func ParseDec(s string) (Dec, error) {
	if s == "" {
		return Dec{}, fmt.Errorf("value: empty decimal literal")
	}
	neg := false
	rest := s
	if strings.HasPrefix(rest, "-") {
		neg = true
		rest = rest[1:]
	} else if strings.HasPrefix(rest, "+") {
		rest = rest[1:]
	}
	intPart, fracPart, hasFrac := strings.Cut(rest, ".")
	if intPart == "" {
		intPart = "0"
	}
	digits := intPart + fracPart
	if digits == "" || strings.ContainsAny(digits, "eE") {
		return Dec{}, fmt.Errorf("value: malformed decimal literal %q", s)
	}
	unscaled, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Dec{}, fmt.Errorf("value: malformed decimal literal %q", s)
	}
	if neg {
		unscaled.Neg(unscaled)
	}
	scale := int32(0)
	if hasFrac {
		scale = int32(len(fracPart))
	}
	return Dec{unscaled: unscaled, scale: scale}, nil
}

// DecFromInt wraps an integer as a zero-scale decimal.
func DecFromInt(i *big.Int) Dec {
	return Dec{unscaled: new(big.Int).Set(i), scale: 0}
}

// String renders the canonical form: always contains a decimal point.
func (d Dec) String() string {
	unscaled := new(big.Int).Set(d.unscaled)
	neg := unscaled.Sign() < 0
	if neg {
		unscaled.Neg(unscaled)
	}
	digits := unscaled.String()
	scale := int(d.scale)
	if scale <= 0 {
		if scale < 0 {
			digits += strings.Repeat("0", -scale)
		}
		digits += ".0"
	} else {
		for len(digits) <= scale {
			digits = "0" + digits
		}
		point := len(digits) - scale
		digits = digits[:point] + "." + digits[point:]
	}
	if neg {
		digits = "-" + digits
	}
	return digits
}

// Rat converts d to an exact big.Rat for cross-type comparison.
func (d Dec) Rat() *big.Rat {
	r := new(big.Rat).SetInt(d.unscaled)
	if d.scale > 0 {
		den := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d.scale)), nil)
		r.Quo(r, new(big.Rat).SetInt(den))
	} else if d.scale < 0 {
		mul := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-d.scale)), nil)
		r.Mul(r, new(big.Rat).SetInt(mul))
	}
	return r
}

// Cmp compares two decimals exactly.
func (d Dec) Cmp(other Dec) int {
	return d.Rat().Cmp(other.Rat())
}
