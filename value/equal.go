package value

// Equal implements structural equality: field order is irrelevant for
// Object equality (keys compared as a set), but relevant for Array equality
// (positional). Query, Specs and embedded Shapes are compared by identity of
// their embedded payload via a best-effort type assertion, since constraint
// functions inside a Shape are identity-only per spec.md §9.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Nil:
		return true
	case Bit:
		return a.bit == b.bit
	case Integral, Floating, Integer, Decimal:
		c, err := Compare(a, b)
		return err == nil && c == 0
	case String, URI:
		return a.str == b.str
	case Year:
		return a.year == b.year
	case YearMonth:
		return a.year == b.year && a.month == b.month
	case LocalDate, LocalTime, OffsetTime, LocalDateTime, OffsetDateTime, Instant:
		return a.time.Equal(b.time)
	case ZonedDateTime:
		return a.time.Equal(b.time) && a.zone == b.zone
	case Period:
		return a.period == b.period
	case Duration:
		return a.duration == b.duration
	case Text:
		return a.locale == b.locale && a.str == b.str
	case Data:
		return a.datatype == b.datatype && a.str == b.str
	case Array:
		if len(a.array) != len(b.array) {
			return false
		}
		for i := range a.array {
			if !Equal(a.array[i], b.array[i]) {
				return false
			}
		}
		return true
	case Object:
		if a.embedded != nil || b.embedded != nil {
			return a.embedded == b.embedded
		}
		return objEqual(a.obj, b.obj)
	case Table:
		return tabEqual(a.table, b.table)
	case Tuple:
		return tupEqual(a.tuple, b.tuple)
	case Query, Specs:
		return a.embedded == b.embedded
	default:
		return false
	}
}

func objEqual(a, b *Obj) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, f := range a.Fields() {
		ov, ok := b.Get(f.Name)
		if !ok || !Equal(f.Value, ov) {
			return false
		}
	}
	return true
}

func tupEqual(a, b *Tup) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, f := range a.Fields() {
		ov, ok := b.Value(f.Name)
		if !ok || !Equal(f.Value, ov) {
			return false
		}
	}
	return true
}

func tabEqual(a, b *Tab) bool {
	if a.Len() != b.Len() {
		return false
	}
	ra, rb := a.Rows(), b.Rows()
	for i := range ra {
		if !tupEqual(ra[i], rb[i]) {
			return false
		}
	}
	return true
}
