package schema

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind identifies the type of a setting field. The set is closed: consumers
// dispatch on it with exhaustive switches and reject anything else.
type Kind string

const (
	KindString      Kind = "string"
	KindNumber      Kind = "number"
	KindBoolean     Kind = "boolean"
	KindSelect      Kind = "select"
	KindColor       Kind = "color"
	KindSlider      Kind = "slider"
	KindKeybind     Kind = "keybind"
	KindMultiChoice Kind = "multiChoice"
	KindOrderedList Kind = "orderedList"
	KindCategory    Kind = "category"
)

// Option is a selectable entry for select, multiChoice and orderedList fields.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field is a single entry in a plugin's settings schema. Which members are
// meaningful depends on Type: Options for the select-like kinds, Min/Max/Step
// for number and slider, Fields for category.
type Field struct {
	Type        Kind     `json:"type"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Default     any      `json:"default,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []Option `json:"options,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Step        *float64 `json:"step,omitempty"`
	Fields      *Schema  `json:"fields,omitempty"`
}

// Schema is an ordered mapping from field name to field definition. Order is
// display order only, persistence does not depend on it.
type Schema = orderedmap.OrderedMap[string, *Field]

// Values holds concrete setting values keyed by field name. Category fields
// nest another Values one level down.
type Values = map[string]any

// New returns an empty schema.
func New() *Schema {
	return orderedmap.New[string, *Field]()
}

// HasOption reports whether v is one of the field's declared option values.
func (f *Field) HasOption(v string) bool {
	for _, opt := range f.Options {
		if opt.Value == v {
			return true
		}
	}
	return false
}
