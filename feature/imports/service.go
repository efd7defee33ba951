package imports

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"course-importer/core/adapter"
	"course-importer/core/progress"
	"course-importer/core/reconcile"
	"course-importer/core/record"
	"course-importer/core/storage"

	"github.com/cockroachdb/errors"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Request describes one import.
type Request struct {
	Document      adapter.Document
	AdapterID     string
	InstitutionID string
	Strategy      string
	DryRun        bool
	Verbose       bool

	// ProgressID, when set, receives phase and counter updates.
	ProgressID string

	// Batch, when set, is the already parsed Document and parsing is skipped.
	Batch *adapter.Batch
}

// ValidationSummary is the outcome of validating a document without
// committing to a conflict strategy.
type ValidationSummary struct {
	// Valid is true when every record passed validation.
	Valid         bool                       `json:"valid"`
	RecordCount   int                        `json:"record_count"`
	ValidRecords  int                        `json:"valid_records"`
	Failures      []record.ValidationFailure `json:"failures"`
	Warnings      []string                   `json:"warnings"`
	WouldCreate   int                        `json:"would_create"`
	WouldUpdate   int                        `json:"would_update"`
	Unchanged     int                        `json:"unchanged"`
	Conflicts     []reconcile.ConflictEntry  `json:"potential_conflicts"`
	ConflictCount int                        `json:"potential_conflict_count"`
	Errors        []string                   `json:"errors"`
}

// Archive is where imported documents are copied after a successful live run.
type Archive struct {
	Client storage.Client
	Bucket string
	Region string
	Prefix string
}

func (a *Archive) enabled() bool {
	return a != nil && a.Client != nil && a.Bucket != "" && a.Prefix != ""
}

// Service runs imports: parse, validate, reconcile, report.
type Service struct {
	dispatcher *adapter.Dispatcher
	engine     *reconcile.Engine
	progress   progress.Store
	archive    *Archive
	cfg        Config
	logger     *zap.Logger

	wg  sync.WaitGroup
	now func() time.Time
}

// NewService creates a new import service. archive may be nil.
func NewService(dispatcher *adapter.Dispatcher, engine *reconcile.Engine, store progress.Store, archive *Archive, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 25
	}
	return &Service{
		dispatcher: dispatcher,
		engine:     engine,
		progress:   store,
		archive:    archive,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Adapters lists the registered adapters.
func (s *Service) Adapters() []adapter.Info {
	return s.dispatcher.Adapters()
}

// DefaultAdapter returns the adapter id used when none is requested.
func (s *Service) DefaultAdapter() string {
	return s.cfg.DefaultAdapter
}

// CheckAdapter reports whether the adapter can handle a document named name.
// It reads nothing, so callers can reject a request before storing an upload.
func (s *Service) CheckAdapter(adapterID, name string) error {
	_, err := s.dispatcher.Resolve(s.adapterID(adapterID), adapter.NamedFileDocument(name, name))
	return err
}

func (s *Service) adapterID(id string) string {
	if id == "" {
		return s.cfg.DefaultAdapter
	}
	return id
}

// Validate parses and validates the document, then previews reconciliation
// as a use_theirs dry run. Nothing is written.
func (s *Service) Validate(ctx context.Context, doc adapter.Document, adapterID, institutionID string) (*ValidationSummary, error) {
	if institutionID == "" {
		return nil, errors.WithHint(reconcile.ErrInstitutionRequired, "pass institution_id")
	}

	batch, err := s.dispatcher.ParseAndValidate(ctx, s.adapterID(adapterID), doc)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Reconcile(ctx, batch.Records, reconcile.Options{
		InstitutionID: institutionID,
		Strategy:      reconcile.UseTheirs,
		DryRun:        true,
	})
	if err != nil {
		return nil, err
	}

	summary := &ValidationSummary{
		Valid:         len(batch.Failures) == 0,
		RecordCount:   batch.Total,
		ValidRecords:  len(batch.Records),
		Failures:      batch.Failures,
		Warnings:      append(batch.Warnings, result.Warnings...),
		WouldCreate:   result.RecordsCreated,
		WouldUpdate:   result.RecordsUpdated,
		Unchanged:     result.RecordsSkipped,
		Conflicts:     result.Conflicts,
		ConflictCount: result.ConflictsDetected,
		Errors:        result.Errors,
	}
	if summary.Failures == nil {
		summary.Failures = []record.ValidationFailure{}
	}
	if summary.Warnings == nil {
		summary.Warnings = []string{}
	}

	s.logger.Info("Validated document",
		zap.String("document", doc.Name()),
		zap.Int("records", summary.RecordCount),
		zap.Int("failures", len(summary.Failures)),
		zap.Int("potential_conflicts", summary.ConflictCount),
	)
	return summary, nil
}

// Import runs one import synchronously. Fatal errors (unknown adapter or
// strategy, unreadable document, missing institution) are returned without
// a result. An interrupted run returns its partial result and ctx.Err().
func (s *Service) Import(ctx context.Context, req Request) (*reconcile.ImportResult, error) {
	start := s.now()

	result, err := s.run(ctx, req)
	if result != nil {
		result.ExecutionTimeSeconds = s.now().Sub(start).Seconds()
	}

	if req.ProgressID != "" {
		// The final state is recorded even when ctx was cancelled.
		ctx := context.WithoutCancel(ctx)
		if err != nil && result == nil {
			s.report(ctx, req.ProgressID, progress.Fields{
				progress.FieldStatus: progress.PhaseFailed,
				progress.FieldPhase:  progress.PhaseFailed,
				progress.FieldError:  err.Error(),
			})
		} else {
			status := progress.PhaseCompleted
			if err != nil {
				status = progress.PhaseFailed
			}
			fields := progress.Fields{
				progress.FieldStatus: status,
				progress.FieldPhase:  status,
				progress.FieldResult: result,
			}
			if err != nil {
				fields[progress.FieldError] = err.Error()
			}
			s.report(ctx, req.ProgressID, fields)
		}
	}

	return result, err
}

func (s *Service) run(ctx context.Context, req Request) (*reconcile.ImportResult, error) {
	strategy, err := reconcile.ParseStrategy(req.Strategy)
	if err != nil {
		return nil, err
	}
	if req.InstitutionID == "" {
		return nil, errors.WithHint(reconcile.ErrInstitutionRequired, "pass institution_id")
	}

	l := s.logger.With(
		zap.String("document", req.Document.Name()),
		zap.String("institution_id", req.InstitutionID),
		zap.String("strategy", string(strategy)),
		zap.Bool("dry_run", req.DryRun),
	)

	s.report(ctx, req.ProgressID, progress.Fields{
		progress.FieldStatus: "running",
		progress.FieldPhase:  progress.PhaseParsing,
	})

	batch := req.Batch
	if batch == nil {
		var err error
		if batch, err = s.dispatcher.ParseAndValidate(ctx, s.adapterID(req.AdapterID), req.Document); err != nil {
			return nil, err
		}
	}
	if len(batch.Failures) > 0 {
		l.Warn("Records failed validation", zap.Int("failures", len(batch.Failures)), zap.Int("total", batch.Total))
	}

	s.report(ctx, req.ProgressID, progress.Fields{
		progress.FieldPhase:     progress.PhaseReconciling,
		progress.FieldProcessed: 0,
		progress.FieldTotal:     len(batch.Records),
	})

	opts := reconcile.Options{
		InstitutionID: req.InstitutionID,
		Strategy:      strategy,
		DryRun:        req.DryRun,
		Verbose:       req.Verbose,
	}
	if req.ProgressID != "" {
		opts.Progress = func(done, total int) {
			if done%s.cfg.ProgressEvery == 0 || done == total {
				s.report(ctx, req.ProgressID, progress.Fields{
					progress.FieldProcessed: done,
					progress.FieldTotal:     total,
				})
			}
		}
	}

	result, err := s.engine.Reconcile(ctx, batch.Records, opts)
	if result == nil {
		return nil, err
	}

	result.AddValidationFailures(batch.Failures)
	result.Warnings = append(append([]string{}, batch.Warnings...), result.Warnings...)

	if err == nil && !req.DryRun && result.Success && s.archive.enabled() {
		if key, archiveErr := s.archiveDocument(ctx, req); archiveErr != nil {
			l.Warn("Failed to archive document", zap.Error(archiveErr))
			result.Warnings = append(result.Warnings, fmt.Sprintf("document was not archived: %v", archiveErr))
		} else {
			l.Info("Archived document", zap.String("key", key))
		}
	}

	l.Info("Import finished",
		zap.Bool("success", result.Success),
		zap.Int("processed", result.RecordsProcessed),
		zap.Int("created", result.RecordsCreated),
		zap.Int("updated", result.RecordsUpdated),
		zap.Int("skipped", result.RecordsSkipped),
		zap.Int("conflicts", result.ConflictsDetected),
		zap.Int("errors", len(result.Errors)),
	)
	return result, err
}

// archiveDocument copies the imported document to object storage under
// <prefix>/<institution>/<timestamp>-<name>.
func (s *Service) archiveDocument(ctx context.Context, req Request) (string, error) {
	if err := storage.EnsureBucket(ctx, s.archive.Client, s.archive.Bucket, s.archive.Region); err != nil {
		return "", err
	}

	rc, err := req.Document.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	key := path.Join(s.archive.Prefix, req.InstitutionID,
		s.now().UTC().Format("20060102T150405Z")+"-"+path.Base(req.Document.Name()))

	if _, err := s.archive.Client.PutObject(ctx, s.archive.Bucket, key, rc, -1, minio.PutObjectOptions{}); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, nil
}

// StartImport creates a progress entry and runs the import in the
// background. release is called once the run no longer needs the document.
func (s *Service) StartImport(req Request, release func()) (string, error) {
	id, err := s.progress.Create(context.Background())
	if err != nil {
		release()
		return "", fmt.Errorf("failed to create progress entry: %w", err)
	}
	req.ProgressID = id

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer release()
		if _, err := s.Import(context.Background(), req); err != nil {
			s.logger.Warn("Background import failed", zap.String("progress_id", id), zap.Error(err))
		}
	}()
	return id, nil
}

// Wait blocks until every background import has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// CreateProgress registers a new progress entry.
func (s *Service) CreateProgress(ctx context.Context) (string, error) {
	return s.progress.Create(ctx)
}

// UpdateProgress merges fields into a progress entry.
func (s *Service) UpdateProgress(ctx context.Context, id string, fields progress.Fields) error {
	return s.progress.Update(ctx, id, fields)
}

// GetProgress returns the state of a progress entry.
func (s *Service) GetProgress(ctx context.Context, id string) (progress.Fields, bool, error) {
	return s.progress.Get(ctx, id)
}

// CleanupProgress forgets a progress entry.
func (s *Service) CleanupProgress(ctx context.Context, id string) error {
	return s.progress.Cleanup(ctx, id)
}

// report updates progress when id is set. Failures are logged only; progress
// is advisory and never fails an import.
func (s *Service) report(ctx context.Context, id string, fields progress.Fields) {
	if id == "" {
		return
	}
	if err := s.progress.Update(ctx, id, fields); err != nil {
		s.logger.Warn("Failed to update progress", zap.String("progress_id", id), zap.Error(err))
	}
}
