package reconcile

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrInstitutionRequired is returned when a run is not scoped to an institution.
var ErrInstitutionRequired = errors.New("institution id is required")

// StrategyError reports an unrecognized conflict strategy. It is returned
// before the repository is touched.
type StrategyError struct {
	Value string
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("unknown conflict strategy %q", e.Value)
}

// PersistenceError reports a repository failure for a single record.
// The engine records it and moves on to the next record.
type PersistenceError struct {
	// Op is the repository operation that failed: "find", "create" or "update".
	Op         string
	EntityType string
	Key        string
	Row        int
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("row %d (%s %s): %s failed: %v", e.Row, e.EntityType, e.Key, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// KeyError reports a canonical record without a complete natural key. Such a
// record is never looked up or written.
type KeyError struct {
	EntityType string
	Row        int
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("row %d (%s): natural key is missing", e.Row, e.EntityType)
}
