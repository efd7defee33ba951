// Package record defines the records that flow through an import and the
// schema-driven validator that produces them.
//
// Adapters emit RawRecord values: an entity type, a source row number and an
// untyped field mapping. The Validator resolves source headers to canonical
// field names (case, spacing and declared aliases are folded), coerces values
// to string, int or bool, applies defaults and checks required fields. A
// record that passes becomes a CanonicalRecord with a non-empty NaturalKey and
// the list of watched fields the reconcile engine diffs.
//
// Failures are values, not panics or aggregated error strings: Validate
// returns a *ValidationFailure that names the offending field so a caller can
// collect failures across a whole document and decide whether to continue.
package record
