package types

import "fmt"

// ChangeType classifies a single concrete change produced by a run
type ChangeType string

const (
	ChangeTypeUpsertMeta   ChangeType = "upsert_meta"
	ChangeTypeAddAltText   ChangeType = "add_alt_text"
	ChangeTypeInjectSchema ChangeType = "inject_schema"
	ChangeTypeSetCanonical ChangeType = "set_canonical"
	ChangeTypeGeneric      ChangeType = "generic"
)

// AllChangeTypes returns all valid change types
func AllChangeTypes() []ChangeType {
	return []ChangeType{
		ChangeTypeUpsertMeta,
		ChangeTypeAddAltText,
		ChangeTypeInjectSchema,
		ChangeTypeSetCanonical,
		ChangeTypeGeneric,
	}
}

// IsValid checks if the change type is valid
func (t ChangeType) IsValid() bool {
	switch t {
	case ChangeTypeUpsertMeta, ChangeTypeAddAltText, ChangeTypeInjectSchema,
		ChangeTypeSetCanonical, ChangeTypeGeneric:
		return true
	default:
		return false
	}
}

// String returns the string representation of the change type
func (t ChangeType) String() string {
	return string(t)
}

// ParseChangeType parses a string into a ChangeType
func ParseChangeType(s string) (ChangeType, error) {
	t := ChangeType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid change type: %s", s)
	}
	return t, nil
}
