package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"

	"course-importer/core/adapter"
	"course-importer/core/config"
	"course-importer/core/database"
	"course-importer/core/logger"
	"course-importer/core/progress"
	"course-importer/core/reconcile"
	"course-importer/core/storage"
	"course-importer/core/upload"
	"course-importer/feature/courses"
	"course-importer/feature/courses/adapters"
	"course-importer/feature/imports"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// importOptions holds the flags of the import command.
type importOptions struct {
	file          string
	institutionID string
	adapterID     string
	reportFile    string

	useMine      bool
	useTheirs    bool
	merge        bool
	manualReview bool

	dryRun           bool
	verbose          bool
	validateOnly     bool
	deleteExistingDB bool
	yes              bool
}

// strategy returns the strategy selected by the flags; use_theirs when none is set.
func (o *importOptions) strategy() reconcile.Strategy {
	switch {
	case o.useMine:
		return reconcile.UseMine
	case o.merge:
		return reconcile.Merge
	case o.manualReview:
		return reconcile.ManualReview
	default:
		return reconcile.UseTheirs
	}
}

func newImportCmd() *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import courses and users from a document",
		Long: `Parses a document with an adapter, validates every record and reconciles it
with the records stored for the institution.

Exit codes: 0 success, 1 validation or import failure, 130 interrupted.
An interrupted live import keeps the records applied before the interruption.

Examples:
  # Preview an import without writing anything
  import --file courses.xlsx --institution-id 42 --dry-run

  # Keep stored values when they differ from the file
  import --file courses.xlsx --institution-id 42 --use-mine

  # Import a CSV file stored in object storage
  import --file s3://uploads/courses.csv --adapter csv_v1 --institution-id 42

  # Only check that the file parses and validates
  import --file users.yaml --adapter yaml_v1 --institution-id 42 --validate-only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts, cmd.OutOrStdout(), cmd.InOrStdin())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.file, "file", "", "Document to import (local path or s3://bucket/key)")
	f.StringVar(&opts.institutionID, "institution-id", "", "Institution the records belong to")
	f.StringVar(&opts.adapterID, "adapter", adapters.DefaultID, "Adapter used to parse the document")
	f.StringVar(&opts.reportFile, "report-file", "", "Write the full plain-text report to this path")
	f.BoolVar(&opts.useMine, "use-mine", false, "Keep stored values on conflict")
	f.BoolVar(&opts.useTheirs, "use-theirs", false, "Use incoming values on conflict (default)")
	f.BoolVar(&opts.merge, "merge", false, "Use incoming values unless they are empty")
	f.BoolVar(&opts.manualReview, "manual-review", false, "Change nothing on conflict and flag it for review")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Compute the full report without writing anything")
	f.BoolVar(&opts.verbose, "verbose", false, "Log every staged decision")
	f.BoolVar(&opts.validateOnly, "validate-only", false, "Parse and validate only, never reconcile")
	f.BoolVar(&opts.deleteExistingDB, "delete-existing-db", false, "Drop and recreate the entity tables before importing")
	f.BoolVar(&opts.yes, "yes", false, "Auto-confirm destructive actions (non-interactive)")

	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("institution-id")
	cmd.MarkFlagsMutuallyExclusive("use-mine", "use-theirs", "merge", "manual-review")
	cmd.MarkFlagsMutuallyExclusive("delete-existing-db", "dry-run")
	cmd.MarkFlagsMutuallyExclusive("delete-existing-db", "validate-only")

	return cmd
}

func init() {
	RootCmd.AddCommand(newImportCmd())
}

func runImport(ctx context.Context, opts *importOptions, out io.Writer, in io.Reader) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	dispatcher := adapter.NewDispatcher(adapters.NewRegistry(), courses.NewValidator())

	// Unknown adapters and extensions fail before anything is downloaded or read.
	if _, err := dispatcher.Resolve(opts.adapterID, adapter.NamedFileDocument(opts.file, path.Base(opts.file))); err != nil {
		return err
	}

	var client storage.Client
	if _, _, isRemote := storage.ParseURI(opts.file); isRemote || cfg.Storage.ArchivePrefix != "" {
		if client, err = storage.NewClient(cfg.Storage); err != nil {
			return fmt.Errorf("failed to connect to storage: %w", err)
		}
	}

	doc, release, err := upload.NewFetcher(client, cfg.Importer.TempDir, l).Resolve(ctx, opts.file)
	if err != nil {
		return err
	}
	defer release()

	// The document is parsed before the database is touched so a broken file
	// never costs the existing rows.
	batch, err := dispatcher.ParseAndValidate(ctx, opts.adapterID, doc)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return &ExitError{Code: ExitInterrupted, Err: err}
		}
		return err
	}

	if opts.validateOnly {
		return printValidation(batch, doc.Name(), out)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return errors.WithHint(fmt.Errorf("failed to connect to database: %w", err),
			"check the DATABASE_* settings in the environment or .env")
	}
	repo := courses.NewRepository(db)

	switch {
	case opts.deleteExistingDB:
		if !confirmDestructiveAction(in, out, opts.yes, "drop and recreate the course and user tables") {
			l.Warn("Operation cancelled by user. No changes were made.")
			return &ExitError{Code: ExitFailure}
		}
		if err := repo.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset database: %w", err)
		}
		l.Info("Entity tables recreated")
	case cfg.Database.AutoMigrate:
		if err := repo.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	default:
		if err := repo.VerifySchema(ctx); err != nil {
			return errors.WithHint(err, "enable DATABASE_AUTO_MIGRATE or migrate the schema manually")
		}
	}

	var archive *imports.Archive
	if client != nil && cfg.Storage.ArchivePrefix != "" {
		archive = &imports.Archive{
			Client: client,
			Bucket: cfg.Storage.Bucket,
			Region: cfg.Storage.Region,
			Prefix: cfg.Storage.ArchivePrefix,
		}
	}

	svc := imports.NewService(dispatcher, reconcile.NewEngine(repo, l), progress.NewMemoryStore(0), archive, cfg.Importer, l)

	l.Info("Starting import",
		zap.String("file", opts.file),
		zap.String("adapter", opts.adapterID),
		zap.String("institution_id", opts.institutionID),
		zap.String("strategy", string(opts.strategy())),
		zap.Bool("dry_run", opts.dryRun),
	)

	result, err := svc.Import(ctx, imports.Request{
		Document:      doc,
		AdapterID:     opts.adapterID,
		InstitutionID: opts.institutionID,
		Strategy:      string(opts.strategy()),
		DryRun:        opts.dryRun,
		Verbose:       opts.verbose,
		Batch:         batch,
	})
	if result == nil {
		return err
	}

	if writeErr := result.WriteSummary(out); writeErr != nil {
		return writeErr
	}
	if opts.reportFile != "" {
		if reportErr := writeReportFile(opts.reportFile, result); reportErr != nil {
			return reportErr
		}
		fmt.Fprintf(out, "Full report written to %s\n", opts.reportFile)
	}

	switch {
	case errors.Is(err, context.Canceled):
		return &ExitError{Code: ExitInterrupted}
	case err != nil:
		return err
	case !result.Success || len(result.Errors) > 0:
		return &ExitError{Code: ExitFailure}
	}
	return nil
}

// printValidation prints the validation failures of a parsed document.
func printValidation(batch *adapter.Batch, name string, out io.Writer) error {
	status := "VALID"
	if len(batch.Failures) > 0 {
		status = "INVALID"
	}
	fmt.Fprintf(out, "%s\n%s: %s\n", strings.Repeat("=", 60), status, name)
	fmt.Fprintf(out, "  Records:   %d\n", batch.Total)
	fmt.Fprintf(out, "  Valid:     %d\n", len(batch.Records))
	fmt.Fprintf(out, "  Invalid:   %d\n", len(batch.Failures))
	for _, f := range batch.Failures {
		fmt.Fprintf(out, "  - %s\n", f.Error())
	}
	for _, w := range batch.Warnings {
		fmt.Fprintf(out, "  ! %s\n", w)
	}
	fmt.Fprintln(out, strings.Repeat("=", 60))

	if len(batch.Failures) > 0 {
		return &ExitError{Code: ExitFailure}
	}
	return nil
}

func writeReportFile(name string, result *reconcile.ImportResult) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := result.WriteReport(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return f.Close()
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction(in io.Reader, out io.Writer, yes bool, action string) bool {
	if yes {
		fmt.Fprintln(out, "\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Fprintf(out, "\n⚠️  This will %s. Type 'yes' to confirm: ", action)
	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return false
	}

	response = strings.TrimSpace(response)
	return response == "yes"
}
