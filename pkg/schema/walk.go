package schema

// Walk calls fn for every named field of s, depth first in field order,
// descending into objects, list elements and optional wrappers. path holds
// the field names from the top of s; list elements add no name of their own.
// Walk stops at the first error fn returns.
func Walk(s Schema, fn func(path []string, t Type) error) error {
	return walk(s, nil, fn)
}

func walk(s Schema, prefix []string, fn func(path []string, t Type) error) error {
	for _, name := range s.Fields() {
		path := append(append([]string(nil), prefix...), name)
		t := s[name]
		if err := fn(path, t); err != nil {
			return err
		}
		if inner := nested(t); inner != nil {
			if err := walk(inner, path, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func nested(t Type) Schema {
	for {
		switch v := t.(type) {
		case *OptionalType:
			t = v.inner
		case *SliceType:
			t = v.elemType
		case *ObjectType:
			return v.schema
		default:
			return nil
		}
	}
}
