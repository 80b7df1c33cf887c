// Package id provides UUIDv7 generation for all stored records.
// UUIDv7 is time-ordered, so schedules and ledger rows sort by creation time.
package id

import (
	"fmt"

	"github.com/google/uuid"
)

// ID is a type alias for UUID, used across all records.
type ID = uuid.UUID

// New generates a new UUIDv7 (time-ordered UUID).
func New() ID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// IsNil checks if ID is zero-value.
func IsNil(id ID) bool {
	return id == uuid.Nil
}

// FromAny decodes an id read back from a row store. Drivers hand back
// uuid.UUID, [16]byte or the textual form depending on column type.
func FromAny(v any) (ID, error) {
	switch t := v.(type) {
	case nil:
		return uuid.Nil, nil
	case uuid.UUID:
		return t, nil
	case [16]byte:
		return uuid.UUID(t), nil
	case []byte:
		if len(t) == 16 {
			return uuid.FromBytes(t)
		}
		return uuid.ParseBytes(t)
	case string:
		if t == "" {
			return uuid.Nil, nil
		}
		return uuid.Parse(t)
	case fmt.Stringer:
		return uuid.Parse(t.String())
	default:
		return uuid.Nil, fmt.Errorf("unsupported id type %T", v)
	}
}
