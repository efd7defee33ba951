package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when updating a run id that does not exist.
var ErrNotFound = errors.New("progress entry not found")

// Fields is the free-form state of one import run.
type Fields map[string]any

// Well-known field names.
const (
	FieldStatus    = "status"
	FieldPhase     = "phase"
	FieldProcessed = "processed"
	FieldTotal     = "total"
	FieldResult    = "result"
	FieldError     = "error"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// Phases reported under FieldPhase.
const (
	PhasePending     = "pending"
	PhaseParsing     = "parsing"
	PhaseReconciling = "reconciling"
	PhaseCompleted   = "completed"
	PhaseFailed      = "failed"
)

// Store tracks the progress of running imports by id. Implementations
// synchronize internally; callers never access the underlying state directly.
type Store interface {
	// Create registers a new run and returns its id.
	Create(ctx context.Context) (string, error)

	// Update merges fields into the run's state.
	Update(ctx context.Context, id string, fields Fields) error

	// Get returns a copy of the run's state. The boolean is false when the
	// id is unknown or has expired.
	Get(ctx context.Context, id string) (Fields, bool, error)

	// Cleanup forgets the run. Unknown ids are not an error.
	Cleanup(ctx context.Context, id string) error
}

// New creates the store selected by cfg.Backend.
func New(cfg Config) (Store, error) {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second

	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(ttl), nil
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedisStore(client, cfg.KeyPrefix, ttl), nil
	default:
		return nil, fmt.Errorf("unknown progress backend %q", cfg.Backend)
	}
}

func initialFields(now time.Time) Fields {
	return Fields{
		FieldStatus:    PhasePending,
		FieldPhase:     PhasePending,
		FieldCreatedAt: now.UTC().Format(time.RFC3339),
		FieldUpdatedAt: now.UTC().Format(time.RFC3339),
	}
}
