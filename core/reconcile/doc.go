// Package reconcile implements the import reconciliation engine.
//
// Given canonical records and a conflict strategy, the engine looks up each
// record by natural key within an institution, compares the watched fields
// against the persisted values and stages one of three decisions:
//
//   - CREATE when nothing is persisted under the key, whatever the strategy.
//   - SKIP when every watched field matches exactly.
//   - UPDATE or SKIP when fields differ, depending on the strategy.
//
// # Strategies
//
//   - use_theirs (default): incoming values overwrite existing ones.
//   - use_mine: existing values are kept; the record is skipped.
//   - merge: per field, a non-empty incoming value wins, otherwise the
//     existing value is kept. Nil and blank strings count as empty.
//   - manual_review: nothing is written; each differing field is flagged.
//
// Every differing field produces one ConflictEntry whose Resolution records
// which rule applied.
//
// # Dry runs and failures
//
// With DryRun set the engine computes the same decisions, counters and
// conflicts but never calls Create or Update. A later record with the same
// natural key as an earlier one is compared against the earlier record's
// staged state, so dry-run and live results agree even for documents with
// duplicate keys.
//
// A repository failure on one record becomes a *PersistenceError in the
// result's Errors and marks the run unsuccessful; the remaining records are
// still processed. An unknown strategy is a *StrategyError returned before
// the repository is touched. Cancelling the context stops the run between
// records. Records already written are not rolled back.
//
// # Reporting
//
// ImportResult serializes to JSON for API responses. WriteSummary renders
// the console summary and WriteReport the full plain-text report from the
// same fields.
package reconcile
