package shape

import "fmt"

// Extend composes sub (the subtype) with base: like Merge, except that sub's
// explicit class is retained rather than merged with base's (base's class is
// used only when sub has none), so differing classes are not a conflict. On a
// property name collision the two properties are combined as Merge combines
// them: a forward or reverse IRI set on both sides must be equal or Extend
// fails, an IRI set on one side only is kept, the embedded flags are OR-ed,
// and the nested shapes are recursively Extended. sub's property does not
// override a differing forward or reverse IRI of base's property.
// Extend is associative but not commutative.
func Extend(sub, base *Shape) (*Shape, error) {
	subNoClazz, baseNoClazz := sub.clone(), base.clone()
	subNoClazz.Clazz, subNoClazz.hasClazz = "", false
	baseNoClazz.Clazz, baseNoClazz.hasClazz = "", false
	merged, err := Merge(subNoClazz, baseNoClazz)
	if err != nil {
		return nil, err
	}
	if sub.hasClazz {
		merged.Clazz, merged.hasClazz = sub.Clazz, true
	} else if base.hasClazz {
		merged.Clazz, merged.hasClazz = base.Clazz, true
	}

	props, err := mergeProperties(sub.Properties, base.Properties, false)
	if err != nil {
		return nil, fmt.Errorf("shape: extend: %w", err)
	}
	merged.Properties = props
	return merged, nil
}

// Merge composes s with other via Merge(s, other).
func (s *Shape) Merge(other *Shape) (*Shape, error) { return Merge(s, other) }

// Extend composes s (as subtype) with base via Extend(s, base).
func (s *Shape) Extend(base *Shape) (*Shape, error) { return Extend(s, base) }
