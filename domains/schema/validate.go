package schema

import (
	"encoding/json"
	"fmt"

	pkgError "github.com/AzielCF/az-overlay/pkg/error"
)

// ValidateValue checks that a value matches the declared shape of its field.
// Rejected values never reach the pending update buffer, the caller keeps
// its previous value.
func ValidateValue(name string, f *Field, value any) error {
	if f == nil {
		return pkgError.ValidationError(fmt.Sprintf("unknown setting %q", name))
	}

	switch f.Type {
	case KindString, KindColor, KindKeybind:
		if _, ok := value.(string); !ok {
			return pkgError.ValidationError(fmt.Sprintf("setting %q expects a string", name))
		}
		return nil

	case KindSelect:
		s, ok := value.(string)
		if !ok {
			return pkgError.ValidationError(fmt.Sprintf("setting %q expects a string", name))
		}
		if !f.HasOption(s) {
			return pkgError.ValidationError(fmt.Sprintf("setting %q has no option %q", name, s))
		}
		return nil

	case KindNumber, KindSlider:
		n, ok := toFloat(value)
		if !ok {
			return pkgError.ValidationError(fmt.Sprintf("setting %q expects a number", name))
		}
		if f.Min != nil && n < *f.Min {
			return pkgError.ValidationError(fmt.Sprintf("setting %q must be >= %v", name, *f.Min))
		}
		if f.Max != nil && n > *f.Max {
			return pkgError.ValidationError(fmt.Sprintf("setting %q must be <= %v", name, *f.Max))
		}
		return nil

	case KindBoolean:
		if _, ok := value.(bool); !ok {
			return pkgError.ValidationError(fmt.Sprintf("setting %q expects a boolean", name))
		}
		return nil

	case KindMultiChoice, KindOrderedList:
		items, ok := toStringSlice(value)
		if !ok {
			return pkgError.ValidationError(fmt.Sprintf("setting %q expects a list of strings", name))
		}
		seen := map[string]bool{}
		for _, item := range items {
			if !f.HasOption(item) {
				return pkgError.ValidationError(fmt.Sprintf("setting %q has no option %q", name, item))
			}
			if seen[item] {
				return pkgError.ValidationError(fmt.Sprintf("setting %q contains duplicate %q", name, item))
			}
			seen[item] = true
		}
		return nil

	case KindCategory:
		m, ok := value.(map[string]any)
		if !ok {
			return pkgError.ValidationError(fmt.Sprintf("setting %q expects an object", name))
		}
		for subKey, subValue := range m {
			var subField *Field
			if f.Fields != nil {
				subField, _ = f.Fields.Get(subKey)
			}
			if subField == nil {
				return pkgError.ValidationError(fmt.Sprintf("setting %q has no field %q", name, subKey))
			}
			if err := ValidateValue(name+"."+subKey, subField, subValue); err != nil {
				return err
			}
		}
		return nil
	}

	return pkgError.ValidationError(fmt.Sprintf("setting %q has unsupported kind %q", name, f.Type))
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		n, err := v.Float64()
		return n, err == nil
	}
	return 0, false
}

func toStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
