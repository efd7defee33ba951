package reconcile

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"time"

	"course-importer/core/record"
	"course-importer/core/utils"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Engine diffs canonical records against persisted entities and applies the
// decision chosen by a conflict strategy. It holds no per-run state and can
// serve concurrent runs.
type Engine struct {
	repo   Repository
	logger *zap.Logger
}

// NewEngine creates an engine over a repository.
func NewEngine(repo Repository, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{repo: repo, logger: logger}
}

// Reconcile processes records sequentially, in input order.
//
// Configuration errors (unknown strategy, missing institution) are returned
// before any repository call and without a result. Per-record repository
// failures are recorded in the result and processing continues.
//
// If ctx is cancelled the run stops before the next record and returns the
// partial result together with the context error. Records already applied
// stay applied; there is no rollback.
func (e *Engine) Reconcile(ctx context.Context, records []record.CanonicalRecord, opts Options) (*ImportResult, error) {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = DefaultStrategy
	}
	if !strategy.Valid() {
		return nil, strategyError(string(opts.Strategy))
	}
	if opts.InstitutionID == "" {
		return nil, errors.WithHint(ErrInstitutionRequired, "every import is scoped to one institution")
	}

	start := time.Now()
	result := NewImportResult(strategy, opts.DryRun)
	run := &run{
		engine:   e,
		opts:     opts,
		strategy: strategy,
		result:   result,
		staged:   make(map[string]stagedState),
	}

	log := e.logger.Debug
	if opts.Verbose {
		log = e.logger.Info
	}

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			result.Success = false
			msg := fmt.Sprintf("import interrupted after %d of %d records", i, len(records))
			if !opts.DryRun && i > 0 {
				msg += "; records already applied were kept"
			}
			result.Warnings = append(result.Warnings, msg)
			result.ExecutionTimeSeconds = time.Since(start).Seconds()
			return result, err
		}

		action, err := run.process(ctx, rec)
		if err != nil {
			result.Success = false
			result.Errors = append(result.Errors, err.Error())
			e.logger.Warn("Record failed",
				zap.Int("row", rec.Row),
				zap.String("entity_type", rec.EntityType),
				zap.String("key", rec.Key.String()),
				zap.Error(err),
			)
		} else {
			log("Staged record",
				zap.String("action", string(action.Type)),
				zap.Int("row", rec.Row),
				zap.String("entity_type", rec.EntityType),
				zap.String("key", rec.Key.String()),
				zap.Int("conflicts", len(action.Conflicts)),
				zap.Bool("dry_run", opts.DryRun),
			)
		}

		if opts.Progress != nil {
			opts.Progress(i+1, len(records))
		}
	}

	result.ExecutionTimeSeconds = time.Since(start).Seconds()
	return result, nil
}

// stagedState is the state of an entity as the run left it. Later records
// with the same natural key are diffed against it instead of the repository,
// so a dry run sees exactly what a real run would.
type stagedState struct {
	id     string
	fields map[string]any
}

// run holds the mutable state of one Reconcile call.
type run struct {
	engine   *Engine
	opts     Options
	strategy Strategy
	result   *ImportResult
	staged   map[string]stagedState
}

// process stages and (unless dry run) applies the decision for one record.
func (r *run) process(ctx context.Context, rec record.CanonicalRecord) (*Action, error) {
	r.result.RecordsProcessed++

	if rec.Key.IsZero() {
		return nil, &KeyError{EntityType: rec.EntityType, Row: rec.Row}
	}

	existing, err := r.lookup(ctx, rec)
	if err != nil {
		return nil, err
	}

	action := r.stage(rec, existing)

	// Conflicts are reported even when applying the record fails; they only
	// count as resolved once the resolution has been applied.
	r.result.Conflicts = append(r.result.Conflicts, action.Conflicts...)
	r.result.ConflictsDetected += len(action.Conflicts)

	if err := r.apply(ctx, action); err != nil {
		return nil, err
	}

	for _, c := range action.Conflicts {
		if c.Resolution != FlaggedForReview {
			r.result.ConflictsResolved++
		}
	}

	switch action.Type {
	case ActionCreate:
		r.result.RecordsCreated++
	case ActionUpdate:
		r.result.RecordsUpdated++
	case ActionSkip:
		r.result.RecordsSkipped++
	}

	r.remember(rec, existing, action)
	return action, nil
}

// lookup returns the staged state for the record's key if an earlier record
// in this run touched it, otherwise asks the repository.
func (r *run) lookup(ctx context.Context, rec record.CanonicalRecord) (*ExistingRecord, error) {
	if st, ok := r.staged[stagedKey(rec)]; ok {
		r.result.Warnings = append(r.result.Warnings, fmt.Sprintf(
			"row %d: duplicate %s %s in document; compared against the earlier row",
			rec.Row, rec.EntityType, rec.Key.String(),
		))
		return &ExistingRecord{ID: st.id, Fields: st.fields}, nil
	}

	existing, err := r.engine.repo.FindByNaturalKey(ctx, rec.EntityType, rec.Key, r.opts.InstitutionID)
	if err != nil {
		return nil, &PersistenceError{Op: "find", EntityType: rec.EntityType, Key: rec.Key.String(), Row: rec.Row, Err: err}
	}
	return existing, nil
}

// stage decides what to do with a record. It performs no I/O.
func (r *run) stage(rec record.CanonicalRecord, existing *ExistingRecord) *Action {
	action := &Action{
		EntityType: rec.EntityType,
		Key:        rec.Key,
		Row:        rec.Row,
	}

	if existing == nil {
		action.Type = ActionCreate
		action.Fields = maps.Clone(rec.Fields)
		return action
	}

	action.ExistingID = existing.ID
	differing := diff(rec, existing)
	if len(differing) == 0 {
		action.Type = ActionSkip
		return action
	}

	resolution := resolutionFor(r.strategy)
	changes := make(map[string]any)
	for _, field := range differing {
		incoming := rec.Fields[field]
		current := existing.Fields[field]

		switch r.strategy {
		case UseTheirs:
			changes[field] = incoming
		case Merge:
			if merged := mergeValue(current, incoming); !reflect.DeepEqual(merged, current) {
				changes[field] = merged
			}
		}

		action.Conflicts = append(action.Conflicts, ConflictEntry{
			EntityType:    rec.EntityType,
			EntityKey:     rec.Key.String(),
			FieldName:     field,
			ExistingValue: current,
			IncomingValue: incoming,
			Resolution:    resolution,
		})
	}

	if len(changes) == 0 {
		action.Type = ActionSkip
		return action
	}
	action.Type = ActionUpdate
	action.Fields = changes
	return action
}

// apply writes a staged action through the repository. Dry runs and skips
// never reach the repository.
func (r *run) apply(ctx context.Context, action *Action) error {
	if r.opts.DryRun {
		return nil
	}

	switch action.Type {
	case ActionCreate:
		id, err := r.engine.repo.Create(ctx, action.EntityType, r.opts.InstitutionID, action.Fields)
		if err != nil {
			return &PersistenceError{Op: "create", EntityType: action.EntityType, Key: action.Key.String(), Row: action.Row, Err: err}
		}
		action.ExistingID = id
	case ActionUpdate:
		if err := r.engine.repo.Update(ctx, action.EntityType, action.ExistingID, action.Fields); err != nil {
			return &PersistenceError{Op: "update", EntityType: action.EntityType, Key: action.Key.String(), Row: action.Row, Err: err}
		}
	}
	return nil
}

// remember records the post-action state of the entity for later duplicates.
func (r *run) remember(rec record.CanonicalRecord, existing *ExistingRecord, action *Action) {
	key := stagedKey(rec)
	switch action.Type {
	case ActionCreate:
		r.staged[key] = stagedState{id: action.ExistingID, fields: maps.Clone(rec.Fields)}
	case ActionUpdate:
		fields := maps.Clone(existing.Fields)
		maps.Copy(fields, action.Fields)
		r.staged[key] = stagedState{id: existing.ID, fields: fields}
	default:
		r.staged[key] = stagedState{id: existing.ID, fields: existing.Fields}
	}
}

// diff returns the watched fields whose values differ, in watched order.
// Comparison is exact.
func diff(rec record.CanonicalRecord, existing *ExistingRecord) []string {
	var differing []string
	for _, field := range rec.Watched {
		if !reflect.DeepEqual(rec.Fields[field], existing.Fields[field]) {
			differing = append(differing, field)
		}
	}
	return differing
}

// mergeValue prefers a non-empty incoming value and otherwise keeps the
// existing one. Empty means nil or a blank string.
func mergeValue(existing, incoming any) any {
	if utils.IsBlank(incoming) {
		return existing
	}
	return incoming
}

func stagedKey(rec record.CanonicalRecord) string {
	return rec.EntityType + "\x00" + rec.Key.String()
}
