package record

import (
	"fmt"
	"strings"
)

// RawRecord is one logical row produced by an adapter, before any validation.
type RawRecord struct {
	// EntityType names the schema the record should be validated against
	// (e.g., "course", "user").
	EntityType string

	// Row is the 1-based position of the record in its source, as the adapter saw it.
	Row int

	// Fields maps source field names to loosely typed values.
	Fields map[string]any
}

// KeyPart is one component of a natural key.
type KeyPart struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// NaturalKey identifies an entity within an institution by business data
// (e.g., course number) rather than by storage id.
type NaturalKey []KeyPart

// String renders the key as "field=value" pairs, e.g. "course_number=CS101".
func (k NaturalKey) String() string {
	parts := make([]string, len(k))
	for i, p := range k {
		parts[i] = p.Field + "=" + p.Value
	}
	return strings.Join(parts, ",")
}

// IsZero reports whether the key is missing or has an empty component.
func (k NaturalKey) IsZero() bool {
	if len(k) == 0 {
		return true
	}
	for _, p := range k {
		if strings.TrimSpace(p.Value) == "" {
			return true
		}
	}
	return false
}

// CanonicalRecord is a validated, typed record ready for reconciliation.
type CanonicalRecord struct {
	EntityType string
	Row        int
	Key        NaturalKey

	// Fields holds every schema field, key fields included, coerced to
	// string, int or bool.
	Fields map[string]any

	// Watched lists the fields compared against the persisted entity,
	// in schema order.
	Watched []string
}

// ValidationFailure describes why a raw record could not become canonical.
// It is returned by value from the validator; it never aborts a batch.
type ValidationFailure struct {
	Row        int    `json:"row"`
	EntityType string `json:"entity_type"`
	Field      string `json:"field"`
	Reason     string `json:"reason"`
}

// Error implements the error interface.
func (f ValidationFailure) Error() string {
	if f.EntityType == "" {
		return fmt.Sprintf("row %d: %s: %s", f.Row, f.Field, f.Reason)
	}
	return fmt.Sprintf("row %d (%s): %s: %s", f.Row, f.EntityType, f.Field, f.Reason)
}
