package value

import (
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// RootLocale is the distinguished Text locale that renders bare (no "@tag"
// suffix) in canonical form, per spec.md §6.
const RootLocale = ""

// CanonicalLocale normalises a BCP-47 locale tag, leaving the wildcard and
// root locales untouched.
func CanonicalLocale(tag string) (string, error) {
	if tag == WildcardLocale || tag == RootLocale {
		return tag, nil
	}
	t, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("value: malformed locale %q: %w", tag, err)
	}
	return t.String(), nil
}

// Encode renders v in the canonical string form of spec.md §6. base is used
// to relativise URI and Data-datatype literals; pass "" for no relativisation.
func Encode(v Value, base string) (string, error) {
	switch v.kind {
	case Nil:
		return "null", nil
	case Bit:
		return strconv.FormatBool(v.bit), nil
	case Integral:
		return strconv.FormatInt(v.integral, 10), nil
	case Integer:
		return v.integer.String(), nil
	case Decimal:
		return v.decimal.String(), nil
	case Floating:
		return encodeFloat(v.floating), nil
	case String:
		return v.str, nil
	case URI:
		return relativize(v.str, base), nil
	case Year:
		return fmt.Sprintf("%04d", v.year), nil
	case YearMonth:
		return fmt.Sprintf("%04d-%02d", v.year, v.month), nil
	case LocalDate:
		return v.time.Format("2006-01-02"), nil
	case LocalTime:
		return v.time.Format("15:04:05"), nil
	case OffsetTime:
		return v.time.Format("15:04:05Z07:00"), nil
	case LocalDateTime:
		return v.time.Format("2006-01-02T15:04:05"), nil
	case OffsetDateTime:
		return v.time.Format("2006-01-02T15:04:05Z07:00"), nil
	case ZonedDateTime:
		s := v.time.Format("2006-01-02T15:04:05Z07:00")
		if v.zone != "" {
			s += "[" + v.zone + "]"
		}
		return s, nil
	case Instant:
		return v.time.UTC().Format("2006-01-02T15:04:05Z"), nil
	case Period:
		return encodePeriod(v.period), nil
	case Duration:
		return encodeDuration(v.duration), nil
	case Text:
		if v.locale == RootLocale {
			return v.str, nil
		}
		return v.str + "@" + v.locale, nil
	case Data:
		return v.str + "^^" + relativize(v.datatype, base), nil
	case Object:
		return encodeObject(v, base)
	default:
		return "", fmt.Errorf("value: %s has no lexical codec", v.kind)
	}
}

func encodeObject(v Value, base string) (string, error) {
	if sm, ok := v.Shape(); ok {
		_ = sm
		return "", fmt.Errorf("value: embedded shape has no lexical codec")
	}
	o, _ := v.Obj()
	if o.Len() == 0 {
		return "", nil
	}
	if id, ok := v.ID(); ok && o.Len() == 1 {
		return relativize(id, base), nil
	}
	return "", fmt.Errorf("value: object has no lexical codec unless empty or id-only")
}

func encodeFloat(f float64) string {
	s := strconv.FormatFloat(f, 'e', -1, 64)
	// Go renders "e+05"/"e-05"; canonical form drops the leading zero but
	// keeps the sign, e.g. "1.5e5", "1.5e-5".
	mantissa, exp, ok := strings.Cut(s, "e")
	if !ok {
		return s
	}
	sign := "+"
	if strings.HasPrefix(exp, "-") {
		sign = "-"
		exp = exp[1:]
	} else {
		exp = strings.TrimPrefix(exp, "+")
	}
	exp = strings.TrimLeft(exp, "0")
	if exp == "" {
		exp = "0"
	}
	if sign == "-" {
		exp = "-" + exp
	}
	return mantissa + "e" + exp
}

func encodePeriod(p Period) string {
	if p.Years == 0 && p.Months == 0 && p.Days == 0 {
		return "P0D"
	}
	var b strings.Builder
	b.WriteByte('P')
	if p.Years != 0 {
		fmt.Fprintf(&b, "%dY", p.Years)
	}
	if p.Months != 0 {
		fmt.Fprintf(&b, "%dM", p.Months)
	}
	if p.Days != 0 {
		fmt.Fprintf(&b, "%dD", p.Days)
	}
	return b.String()
}

func encodeDuration(d time.Duration) string {
	if d == 0 {
		return "PT0S"
	}
	neg := d < 0
	if neg {
		d = -d
	}
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	secs := d.Seconds()

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("PT")
	if hours > 0 {
		fmt.Fprintf(&b, "%dH", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&b, "%dM", minutes)
	}
	if secs != 0 || (hours == 0 && minutes == 0) {
		if secs == float64(int64(secs)) {
			fmt.Fprintf(&b, "%dS", int64(secs))
		} else {
			fmt.Fprintf(&b, "%gS", secs)
		}
	}
	return b.String()
}

func relativize(uri, base string) string {
	if base == "" || uri == "" {
		return uri
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return uri
	}
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	rel := baseURL.ResolveReference(u)
	if rel.Scheme == baseURL.Scheme && rel.Host == baseURL.Host && strings.HasPrefix(uri, base) {
		return strings.TrimPrefix(uri, base)
	}
	return uri
}

func resolve(lexical, base string) string {
	if base == "" || lexical == "" {
		return lexical
	}
	if u, err := url.Parse(lexical); err == nil && u.IsAbs() {
		return lexical
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return lexical
	}
	ref, err := url.Parse(lexical)
	if err != nil {
		return lexical
	}
	return baseURL.ResolveReference(ref).String()
}

// Decode parses a canonical lexical form into a Value of the given Kind. base
// resolves relative URI and Data-datatype literals.
func Decode(k Kind, lexical, base string) (Value, error) {
	switch k {
	case Nil:
		if lexical == "null" || lexical == "" {
			return NilValue(), nil
		}
		return Value{}, fmt.Errorf("value: malformed Nil literal %q", lexical)
	case Bit:
		b, err := strconv.ParseBool(lexical)
		if err != nil {
			return Value{}, fmt.Errorf("value: malformed Bit literal %q", lexical)
		}
		return BitValue(b), nil
	case Integral:
		i, err := strconv.ParseInt(lexical, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("value: malformed Integral literal %q", lexical)
		}
		return IntegralValue(i), nil
	case Integer:
		i, ok := new(big.Int).SetString(lexical, 10)
		if !ok {
			return Value{}, fmt.Errorf("value: malformed Integer literal %q", lexical)
		}
		return IntegerValue(i), nil
	case Decimal:
		d, err := ParseDec(lexical)
		if err != nil {
			return Value{}, err
		}
		return DecimalValue(d), nil
	case Floating:
		f, err := strconv.ParseFloat(lexical, 64)
		if err != nil {
			return Value{}, fmt.Errorf("value: malformed Floating literal %q", lexical)
		}
		return FloatingValue(f), nil
	case String:
		return StringValue(lexical), nil
	case URI:
		return URIValue(resolve(lexical, base)), nil
	case Year:
		y, err := strconv.Atoi(lexical)
		if err != nil {
			return Value{}, fmt.Errorf("value: malformed Year literal %q", lexical)
		}
		return YearValue(y), nil
	case YearMonth:
		parts := strings.SplitN(lexical, "-", 2)
		if len(parts) != 2 {
			return Value{}, fmt.Errorf("value: malformed YearMonth literal %q", lexical)
		}
		y, err1 := strconv.Atoi(parts[0])
		m, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return Value{}, fmt.Errorf("value: malformed YearMonth literal %q", lexical)
		}
		return YearMonthValue(y, m), nil
	case LocalDate:
		t, err := time.Parse("2006-01-02", lexical)
		if err != nil {
			return Value{}, fmt.Errorf("value: malformed LocalDate literal %q", lexical)
		}
		return LocalDateValue(t), nil
	case LocalTime:
		t, err := time.Parse("15:04:05", lexical)
		if err != nil {
			return Value{}, fmt.Errorf("value: malformed LocalTime literal %q", lexical)
		}
		return LocalTimeValue(t), nil
	case OffsetTime:
		t, err := time.Parse("15:04:05Z07:00", lexical)
		if err != nil {
			return Value{}, fmt.Errorf("value: malformed OffsetTime literal %q", lexical)
		}
		return OffsetTimeValue(t), nil
	case LocalDateTime:
		t, err := time.Parse("2006-01-02T15:04:05", lexical)
		if err != nil {
			return Value{}, fmt.Errorf("value: malformed LocalDateTime literal %q", lexical)
		}
		return LocalDateTimeValue(t), nil
	case OffsetDateTime:
		t, err := time.Parse("2006-01-02T15:04:05Z07:00", lexical)
		if err != nil {
			return Value{}, fmt.Errorf("value: malformed OffsetDateTime literal %q", lexical)
		}
		return OffsetDateTimeValue(t), nil
	case ZonedDateTime:
		zone := ""
		lex := lexical
		if i := strings.IndexByte(lexical, '['); i >= 0 && strings.HasSuffix(lexical, "]") {
			zone = lexical[i+1 : len(lexical)-1]
			lex = lexical[:i]
		}
		t, err := time.Parse("2006-01-02T15:04:05Z07:00", lex)
		if err != nil {
			return Value{}, fmt.Errorf("value: malformed ZonedDateTime literal %q", lexical)
		}
		return ZonedDateTimeValue(t, zone), nil
	case Instant:
		t, err := time.Parse(time.RFC3339, lexical)
		if err != nil {
			return Value{}, fmt.Errorf("value: malformed Instant literal %q", lexical)
		}
		return InstantValue(t), nil
	case Period:
		p, err := decodePeriod(lexical)
		if err != nil {
			return Value{}, err
		}
		return PeriodValue(p), nil
	case Duration:
		d, err := decodeDuration(lexical)
		if err != nil {
			return Value{}, err
		}
		return DurationValue(d), nil
	case Text:
		at := strings.LastIndexByte(lexical, '@')
		if at < 0 {
			return TextValue(RootLocale, lexical), nil
		}
		locale, err := CanonicalLocale(lexical[at+1:])
		if err != nil {
			return Value{}, err
		}
		return TextValue(locale, lexical[:at]), nil
	case Data:
		sep := strings.LastIndex(lexical, "^^")
		if sep < 0 {
			return Value{}, fmt.Errorf("value: malformed Data literal %q", lexical)
		}
		return DataValue(resolve(lexical[sep+2:], base), lexical[:sep]), nil
	default:
		return Value{}, fmt.Errorf("value: %s has no lexical codec", k)
	}
}

func decodePeriod(s string) (Period, error) {
	if !strings.HasPrefix(s, "P") {
		return Period{}, fmt.Errorf("value: malformed Period literal %q", s)
	}
	rest := s[1:]
	var p Period
	num := ""
	for _, r := range rest {
		switch {
		case r >= '0' && r <= '9' || r == '-':
			num += string(r)
		case r == 'Y':
			n, err := strconv.Atoi(num)
			if err != nil {
				return Period{}, fmt.Errorf("value: malformed Period literal %q", s)
			}
			p.Years = n
			num = ""
		case r == 'M':
			n, err := strconv.Atoi(num)
			if err != nil {
				return Period{}, fmt.Errorf("value: malformed Period literal %q", s)
			}
			p.Months = n
			num = ""
		case r == 'D':
			n, err := strconv.Atoi(num)
			if err != nil {
				return Period{}, fmt.Errorf("value: malformed Period literal %q", s)
			}
			p.Days = n
			num = ""
		default:
			return Period{}, fmt.Errorf("value: malformed Period literal %q", s)
		}
	}
	if num != "" {
		return Period{}, fmt.Errorf("value: malformed Period literal %q", s)
	}
	return p, nil
}

func decodeDuration(s string) (time.Duration, error) {
	neg := false
	rest := s
	if strings.HasPrefix(rest, "-") {
		neg = true
		rest = rest[1:]
	}
	if !strings.HasPrefix(rest, "PT") {
		return 0, fmt.Errorf("value: malformed Duration literal %q", s)
	}
	rest = rest[2:]
	var total time.Duration
	num := ""
	for _, r := range rest {
		switch {
		case r >= '0' && r <= '9' || r == '.':
			num += string(r)
		case r == 'H':
			f, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return 0, fmt.Errorf("value: malformed Duration literal %q", s)
			}
			total += time.Duration(f * float64(time.Hour))
			num = ""
		case r == 'M':
			f, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return 0, fmt.Errorf("value: malformed Duration literal %q", s)
			}
			total += time.Duration(f * float64(time.Minute))
			num = ""
		case r == 'S':
			f, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return 0, fmt.Errorf("value: malformed Duration literal %q", s)
			}
			total += time.Duration(f * float64(time.Second))
			num = ""
		default:
			return 0, fmt.Errorf("value: malformed Duration literal %q", s)
		}
	}
	if num != "" {
		return 0, fmt.Errorf("value: malformed Duration literal %q", s)
	}
	if neg {
		total = -total
	}
	return total, nil
}
