package record

import (
	"fmt"
	"slices"
	"strings"

	"course-importer/core/utils"
)

// Kind is the canonical Go type of a field.
type Kind int

const (
	// KindString fields are trimmed strings.
	KindString Kind = iota
	// KindInt fields are ints; whole-number floats and numeric strings are accepted.
	KindInt
	// KindBool fields accept true/false, yes/no, y/n and 1/0.
	KindBool
	// KindEmail fields are lowercased strings with a local part and a domain.
	KindEmail
)

// FieldSpec declares one field of an entity schema.
type FieldSpec struct {
	// Name is the canonical field name (snake_case).
	Name string

	Kind Kind

	// Key marks the field as part of the natural key. Key fields are
	// implicitly required and never watched.
	Key bool

	Required bool

	// Default is used when an optional field is missing or blank.
	Default any

	// OneOf restricts string values to the listed (lowercase) choices.
	OneOf []string

	// Normalize post-processes string values, e.g. strings.ToUpper.
	Normalize func(string) string

	// Aliases are alternative source header spellings, already in
	// canonical form (see CanonicalName).
	Aliases []string
}

// Schema describes how raw records of one entity type are validated.
type Schema struct {
	EntityType string
	Fields     []FieldSpec
}

// KeyFields returns the natural key field names in schema order.
func (s Schema) KeyFields() []string {
	var keys []string
	for _, f := range s.Fields {
		if f.Key {
			keys = append(keys, f.Name)
		}
	}
	return keys
}

// Watched returns the names of the fields compared during reconciliation.
func (s Schema) Watched() []string {
	var watched []string
	for _, f := range s.Fields {
		if !f.Key {
			watched = append(watched, f.Name)
		}
	}
	return watched
}

// Field returns the spec for a canonical field name.
func (s Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Resolve maps a source header to its canonical field name.
func (s Schema) Resolve(header string) (string, bool) {
	name := CanonicalName(header)
	for _, f := range s.Fields {
		if f.Name == name || slices.Contains(f.Aliases, name) {
			return f.Name, true
		}
	}
	return "", false
}

// Coerce converts a non-blank value to the field's canonical type.
func (s Schema) Coerce(spec FieldSpec, val any) (any, error) {
	switch spec.Kind {
	case KindInt:
		return utils.ParseInt(val)
	case KindBool:
		return utils.ParseBool(val)
	case KindEmail:
		email := strings.ToLower(strings.TrimSpace(utils.ToString(val)))
		at := strings.LastIndex(email, "@")
		if at < 1 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
			return nil, fmt.Errorf("%q is not an email address", email)
		}
		return email, nil
	default:
		str := strings.TrimSpace(utils.ToString(val))
		if spec.Normalize != nil {
			str = spec.Normalize(str)
		}
		if len(spec.OneOf) > 0 {
			str = strings.ToLower(str)
			if !slices.Contains(spec.OneOf, str) {
				return nil, fmt.Errorf("%q is not one of %s", str, strings.Join(spec.OneOf, ", "))
			}
		}
		return str, nil
	}
}

// Normalize coerces persisted values (keyed by canonical field name) into
// the same types the validator produces, so that stored and incoming values
// compare exactly. Values that cannot be coerced are kept as-is.
func (s Schema) Normalize(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for name, val := range fields {
		spec, ok := s.Field(name)
		if !ok {
			out[name] = val
			continue
		}
		if utils.IsBlank(val) {
			out[name] = zeroValue(spec.Kind)
			continue
		}
		if coerced, err := s.Coerce(spec, val); err == nil {
			out[name] = coerced
		} else {
			out[name] = val
		}
	}
	return out
}

// CanonicalName lowercases a header and folds spaces, dashes and dots to
// underscores: "Course Number" -> "course_number".
func CanonicalName(header string) string {
	name := strings.ToLower(strings.TrimSpace(header))
	name = strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(name)
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	return strings.Trim(name, "_")
}

func zeroValue(kind Kind) any {
	switch kind {
	case KindInt:
		return 0
	case KindBool:
		return false
	default:
		return ""
	}
}
