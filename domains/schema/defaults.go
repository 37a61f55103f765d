package schema

// ResolveDefault returns the declared default value for a field. Category
// fields without an explicit default resolve to a nested object built from
// their children's defaults.
func ResolveDefault(f *Field) any {
	if f == nil {
		return nil
	}
	if f.Type == KindCategory {
		if f.Default != nil {
			return f.Default
		}
		nested := Values{}
		if f.Fields != nil {
			for pair := f.Fields.Oldest(); pair != nil; pair = pair.Next() {
				nested[pair.Key] = ResolveDefault(pair.Value)
			}
		}
		return nested
	}
	return f.Default
}

// MergeWithDefaults combines stored values with schema defaults. It walks the
// schema keys, never the stored keys: the schema defines the universe of
// valid values and stray stored keys are dropped, which keeps old persisted
// files harmless after a schema changes. Category fields merge recursively,
// one level at a time.
func MergeWithDefaults(s *Schema, stored Values) Values {
	result := Values{}
	if s == nil {
		return result
	}
	for pair := s.Oldest(); pair != nil; pair = pair.Next() {
		key, field := pair.Key, pair.Value

		if field.Type == KindCategory {
			nested, ok := stored[key].(map[string]any)
			if !ok && field.Default != nil {
				// Nothing stored and the category declares its own default:
				// agree with ResolveDefault instead of rebuilding from children.
				result[key] = ResolveDefault(field)
				continue
			}
			result[key] = MergeWithDefaults(field.Fields, nested)
			continue
		}

		if v, ok := stored[key]; ok && v != nil {
			result[key] = v
			continue
		}
		result[key] = ResolveDefault(field)
	}
	return result
}
