package cmd

import (
	"context"
	"fmt"
	"os"

	"course-importer/core/logger"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130
)

// ExitError makes a command exit with Code. A nil Err means the command has
// already reported the failure itself.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "course-importer",
	Short: "Course and user import service",
	Long: `Course Importer reconciles course and user records from spreadsheets,
CSV and YAML documents with the records already stored for an institution.
It runs as a batch command or as an HTTP service.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		code := exitCode(err)

		var exitErr *ExitError
		if errors.As(err, &exitErr) && exitErr.Err == nil {
			os.Exit(code)
		}

		// Console format with ISO8601 timestamps for CLI users.
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			fields := []zap.Field{zap.Error(err)}
			if hint := errors.FlattenHints(err); hint != "" {
				fields = append(fields, zap.String("hint", hint))
			}
			l.Error("command failed", fields...)
			_ = l.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(code)
	}
}

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	return ExitFailure
}
