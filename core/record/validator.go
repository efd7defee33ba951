package record

import (
	"maps"
	"slices"
	"sort"
	"strings"

	"course-importer/core/utils"
)

// Validator turns raw records into canonical records using per-entity schemas.
// It is safe for concurrent use once constructed.
type Validator struct {
	schemas map[string]Schema
}

// NewValidator creates a validator for the given schemas.
func NewValidator(schemas ...Schema) *Validator {
	v := &Validator{schemas: make(map[string]Schema, len(schemas))}
	for _, s := range schemas {
		v.schemas[s.EntityType] = s
	}
	return v
}

// Schema returns the schema registered for an entity type.
func (v *Validator) Schema(entityType string) (Schema, bool) {
	s, ok := v.schemas[canonicalEntityType(entityType)]
	return s, ok
}

// EntityTypes returns the registered entity types in sorted order.
func (v *Validator) EntityTypes() []string {
	types := make([]string, 0, len(v.schemas))
	for t := range v.schemas {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Validate coerces, checks and defaults a raw record. On failure it returns
// a non-nil *ValidationFailure naming the first offending field in schema order.
func (v *Validator) Validate(raw RawRecord) (CanonicalRecord, *ValidationFailure) {
	entityType := canonicalEntityType(raw.EntityType)
	schema, ok := v.schemas[entityType]
	if !ok {
		return CanonicalRecord{}, &ValidationFailure{
			Row:        raw.Row,
			EntityType: raw.EntityType,
			Field:      "entity_type",
			Reason:     "unknown entity type (expected one of " + strings.Join(v.EntityTypes(), ", ") + ")",
		}
	}

	byName := indexByCanonicalName(raw.Fields)

	rec := CanonicalRecord{
		EntityType: entityType,
		Row:        raw.Row,
		Fields:     make(map[string]any, len(schema.Fields)),
		Watched:    schema.Watched(),
	}

	for _, spec := range schema.Fields {
		fail := func(reason string) (CanonicalRecord, *ValidationFailure) {
			return CanonicalRecord{}, &ValidationFailure{
				Row:        raw.Row,
				EntityType: entityType,
				Field:      spec.Name,
				Reason:     reason,
			}
		}

		val := sourceValue(spec, byName)
		if utils.IsBlank(val) {
			switch {
			case spec.Key || spec.Required:
				return fail("is required")
			case spec.Default != nil:
				rec.Fields[spec.Name] = spec.Default
			default:
				rec.Fields[spec.Name] = zeroValue(spec.Kind)
			}
			continue
		}

		coerced, err := schema.Coerce(spec, val)
		if err != nil {
			return fail(err.Error())
		}
		rec.Fields[spec.Name] = coerced

		if spec.Key {
			rec.Key = append(rec.Key, KeyPart{Field: spec.Name, Value: utils.ToString(coerced)})
		}
	}

	return rec, nil
}

// UnknownFields returns the source headers of raw that do not map to any
// schema field, sorted. Unknown entity types report nothing here; Validate
// flags them instead.
func (v *Validator) UnknownFields(raw RawRecord) []string {
	schema, ok := v.schemas[canonicalEntityType(raw.EntityType)]
	if !ok {
		return nil
	}
	var unknown []string
	for header := range raw.Fields {
		if _, ok := schema.Resolve(header); !ok {
			unknown = append(unknown, header)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// indexByCanonicalName keys source values by canonical header. Headers that
// fold to the same name are visited in sorted order and the first non-blank
// value wins, so the outcome never depends on map iteration order.
func indexByCanonicalName(fields map[string]any) map[string]any {
	byName := make(map[string]any, len(fields))
	for _, header := range slices.Sorted(maps.Keys(fields)) {
		name := CanonicalName(header)
		if existing, seen := byName[name]; seen && !utils.IsBlank(existing) {
			continue
		}
		byName[name] = fields[header]
	}
	return byName
}

// sourceValue picks the value for spec: the canonical header when it is
// non-blank, otherwise the first non-blank alias in declared order.
func sourceValue(spec FieldSpec, byName map[string]any) any {
	val := byName[spec.Name]
	if !utils.IsBlank(val) {
		return val
	}
	for _, alias := range spec.Aliases {
		if v := byName[alias]; !utils.IsBlank(v) {
			return v
		}
	}
	return val
}

// canonicalEntityType folds sheet names such as "Courses" to "course".
func canonicalEntityType(entityType string) string {
	name := CanonicalName(entityType)
	if strings.HasSuffix(name, "s") && len(name) > 1 {
		return strings.TrimSuffix(name, "s")
	}
	return name
}
