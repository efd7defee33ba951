package reconcile

import (
	"context"

	"course-importer/core/record"
)

// ExistingRecord is the persisted counterpart of a canonical record.
type ExistingRecord struct {
	// ID is the repository identifier used for updates.
	ID string

	// Fields holds the persisted values keyed by canonical field name,
	// normalized to the same types the validator produces.
	Fields map[string]any
}

// Repository is the persistence contract the engine depends on.
// Implementations must enforce uniqueness of the natural key within an
// institution so that concurrent imports cannot create duplicates.
type Repository interface {
	// FindByNaturalKey returns the entity matching key within the institution,
	// or nil when none exists.
	FindByNaturalKey(ctx context.Context, entityType string, key record.NaturalKey, institutionID string) (*ExistingRecord, error)

	// Create persists a new entity scoped to the institution and returns its id.
	Create(ctx context.Context, entityType, institutionID string, fields map[string]any) (string, error)

	// Update writes the given fields to an existing entity.
	Update(ctx context.Context, entityType, id string, fields map[string]any) error
}

// ActionType is the decision staged for one record.
type ActionType string

const (
	// ActionCreate inserts a new entity.
	ActionCreate ActionType = "CREATE"
	// ActionUpdate writes changed fields to an existing entity.
	ActionUpdate ActionType = "UPDATE"
	// ActionSkip leaves the existing entity untouched.
	ActionSkip ActionType = "SKIP"
)

// Action is the staged decision for one canonical record.
type Action struct {
	Type       ActionType
	EntityType string
	Key        record.NaturalKey
	Row        int

	// ExistingID is set for UPDATE and for SKIP of an existing entity.
	ExistingID string

	// Fields are the values to write: the full record for CREATE, only the
	// changed fields for UPDATE, nil for SKIP.
	Fields map[string]any

	// Conflicts lists one entry per differing watched field.
	Conflicts []ConflictEntry
}

// ConflictEntry describes one watched field whose incoming value differs
// from the persisted value.
type ConflictEntry struct {
	EntityType    string     `json:"entity_type"`
	EntityKey     string     `json:"entity_key"`
	FieldName     string     `json:"field_name"`
	ExistingValue any        `json:"existing_value"`
	IncomingValue any        `json:"incoming_value"`
	Resolution    Resolution `json:"resolution"`
}

// Options controls a reconcile run.
type Options struct {
	// InstitutionID scopes every lookup and create. Required.
	InstitutionID string

	// Strategy resolves conflicts. Empty means DefaultStrategy.
	Strategy Strategy

	// DryRun computes every decision and counter without writing anything.
	DryRun bool

	// Verbose logs every staged decision at info level instead of debug.
	Verbose bool

	// Progress, if set, is called after each record with the number of
	// records handled so far and the total.
	Progress func(done, total int)
}

// ImportResult is the report of one run. It is built by the engine and is
// not modified once returned, except that callers may prepend validation
// failures and extend the execution time to cover parsing.
type ImportResult struct {
	RecordsProcessed  int `json:"records_processed"`
	RecordsCreated    int `json:"records_created"`
	RecordsUpdated    int `json:"records_updated"`
	RecordsSkipped    int `json:"records_skipped"`
	ConflictsDetected int `json:"conflicts_detected"`
	ConflictsResolved int `json:"conflicts_resolved"`

	Conflicts []ConflictEntry `json:"conflicts"`
	Errors    []string        `json:"errors"`
	Warnings  []string        `json:"warnings"`

	ExecutionTimeSeconds float64  `json:"execution_time_seconds"`
	Strategy             Strategy `json:"conflict_strategy"`
	DryRun               bool     `json:"dry_run"`
	Success              bool     `json:"success"`
}

// NewImportResult returns an empty result with non-nil slices so that JSON
// output always carries arrays.
func NewImportResult(strategy Strategy, dryRun bool) *ImportResult {
	return &ImportResult{
		Conflicts: []ConflictEntry{},
		Errors:    []string{},
		Warnings:  []string{},
		Strategy:  strategy,
		DryRun:    dryRun,
		Success:   true,
	}
}

// AddValidationFailures records per-record validation failures as errors.
// They do not affect Success.
func (r *ImportResult) AddValidationFailures(failures []record.ValidationFailure) {
	for _, f := range failures {
		r.Errors = append(r.Errors, "validation: "+f.Error())
	}
}

// FlaggedConflicts returns the conflicts left for manual review.
func (r *ImportResult) FlaggedConflicts() []ConflictEntry {
	var flagged []ConflictEntry
	for _, c := range r.Conflicts {
		if c.Resolution == FlaggedForReview {
			flagged = append(flagged, c)
		}
	}
	return flagged
}
