// Package adapters contains the built-in document formats.
//
//   - xlsx_v1 (default): one sheet per entity type, header in the first row.
//   - csv_v1: header row; an optional entity_type column, otherwise courses.
//   - yaml_v1: a mapping from entity type to a list of records.
//
// Adapters only split documents into raw records. Header spelling, types
// and defaults are resolved by the record validator.
package adapters
