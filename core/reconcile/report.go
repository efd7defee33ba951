package reconcile

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Console summary limits.
const (
	summaryConflicts = 10
	summaryErrors    = 5
	summaryWarnings  = 3
)

const rule = "============================================================"

// WriteSummary writes the console summary: a status banner, mode, timing,
// statistics and the first few conflicts, errors and warnings.
func (r *ImportResult) WriteSummary(w io.Writer) error {
	return r.write(w, summaryConflicts, summaryErrors, summaryWarnings)
}

// WriteReport writes the full plain-text report with every conflict,
// error and warning.
func (r *ImportResult) WriteReport(w io.Writer) error {
	return r.write(w, -1, -1, -1)
}

// Summary returns the console summary as a string.
func (r *ImportResult) Summary() string {
	var sb strings.Builder
	_ = r.WriteSummary(&sb)
	return sb.String()
}

func (r *ImportResult) write(w io.Writer, maxConflicts, maxErrors, maxWarnings int) error {
	var b strings.Builder

	status := "IMPORT SUCCEEDED"
	if !r.Success {
		status = "IMPORT FAILED"
	}
	mode := "LIVE"
	if r.DryRun {
		mode = "DRY RUN (no changes written)"
	}

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, status)
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Mode:      %s\n", mode)
	fmt.Fprintf(&b, "Strategy:  %s\n", r.Strategy)
	fmt.Fprintf(&b, "Time:      %s\n", time.Duration(r.ExecutionTimeSeconds*float64(time.Second)).Round(time.Millisecond))
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Statistics:")
	fmt.Fprintf(&b, "  Records processed:   %d\n", r.RecordsProcessed)
	fmt.Fprintf(&b, "  Created:             %d\n", r.RecordsCreated)
	fmt.Fprintf(&b, "  Updated:             %d\n", r.RecordsUpdated)
	fmt.Fprintf(&b, "  Skipped:             %d\n", r.RecordsSkipped)
	fmt.Fprintf(&b, "  Conflicts detected:  %d\n", r.ConflictsDetected)
	fmt.Fprintf(&b, "  Conflicts resolved:  %d\n", r.ConflictsResolved)
	fmt.Fprintf(&b, "  Errors:              %d\n", len(r.Errors))
	fmt.Fprintf(&b, "  Warnings:            %d\n", len(r.Warnings))

	conflicts := make([]string, len(r.Conflicts))
	for i, c := range r.Conflicts {
		conflicts[i] = fmt.Sprintf("%s %s: %s %v -> %v [%s]",
			c.EntityType, c.EntityKey, c.FieldName, formatValue(c.ExistingValue), formatValue(c.IncomingValue), c.Resolution)
	}
	writeSection(&b, "Conflicts", conflicts, maxConflicts)
	writeSection(&b, "Errors", r.Errors, maxErrors)
	writeSection(&b, "Warnings", r.Warnings, maxWarnings)

	fmt.Fprintln(&b, rule)

	_, err := io.WriteString(w, b.String())
	return err
}

// writeSection writes up to limit items (all when limit < 0) followed by a
// "+N more" notice when items were left out.
func writeSection(b *strings.Builder, title string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	shown := len(items)
	if limit >= 0 && shown > limit {
		shown = limit
	}

	fmt.Fprintln(b)
	fmt.Fprintf(b, "%s (%d):\n", title, len(items))
	for _, item := range items[:shown] {
		fmt.Fprintf(b, "  - %s\n", item)
	}
	if rest := len(items) - shown; rest > 0 {
		fmt.Fprintf(b, "  ... +%d more\n", rest)
	}
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	if v == nil {
		return "<empty>"
	}
	return fmt.Sprintf("%v", v)
}
