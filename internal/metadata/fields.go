package metadata

import "strings"

// FieldType enumerates the supported metadata field input types.
type FieldType string

const (
	TypeText        FieldType = "text"
	TypeTextarea    FieldType = "textarea"
	TypeSelect      FieldType = "select"
	TypeMultiselect FieldType = "multiselect"
	TypeNumber      FieldType = "number"
	TypeDate        FieldType = "date"
	TypeBoolean     FieldType = "boolean"
)

var fieldTypes = map[FieldType]struct{}{
	TypeText:        {},
	TypeTextarea:    {},
	TypeSelect:      {},
	TypeMultiselect: {},
	TypeNumber:      {},
	TypeDate:        {},
	TypeBoolean:     {},
}

// ParseFieldType converts a string into a known FieldType.
func ParseFieldType(value string) (FieldType, bool) {
	normalized := FieldType(strings.ToLower(strings.TrimSpace(value)))
	_, ok := fieldTypes[normalized]
	return normalized, ok
}

// Field describes one per-category metadata field definition.
type Field struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Options  []string  `json:"options,omitempty"`
	System   bool      `json:"system"`
	Required bool      `json:"required"`
	Default  string    `json:"default,omitempty"`
}

// FieldSet is the ordered collection of fields active for one category.
type FieldSet struct {
	fields []Field
	byKey  map[string]int
}

// NewFieldSet builds a FieldSet preserving definition order. Later
// duplicates of a key are dropped.
func NewFieldSet(fields []Field) FieldSet {
	set := FieldSet{byKey: make(map[string]int, len(fields))}
	for _, f := range fields {
		if _, exists := set.byKey[f.Key]; exists {
			continue
		}
		set.byKey[f.Key] = len(set.fields)
		set.fields = append(set.fields, f)
	}
	return set
}

// Fields returns the ordered field definitions.
func (s FieldSet) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Has reports whether a field key exists in the set.
func (s FieldSet) Has(key string) bool {
	_, ok := s.byKey[key]
	return ok
}

// Get returns the field definition for a key.
func (s FieldSet) Get(key string) (Field, bool) {
	idx, ok := s.byKey[key]
	if !ok {
		return Field{}, false
	}
	return s.fields[idx], true
}

// Required returns the fields flagged required, in definition order.
func (s FieldSet) Required() []Field {
	var out []Field
	for _, f := range s.fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

// Len returns the number of fields in the set.
func (s FieldSet) Len() int {
	return len(s.fields)
}

// MissingKeys returns the keys present in the supplied map that do not exist
// in this field set, in the map-independent order of the provided keys slice
// when given, or sorted insertion order otherwise. Used to reconcile
// overrides after a category change.
func (s FieldSet) MissingKeys(keys []string) []string {
	var missing []string
	for _, key := range keys {
		if !s.Has(key) {
			missing = append(missing, key)
		}
	}
	return missing
}
