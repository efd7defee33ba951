// Package database handles database connections and schema inspection.
//
// Connect opens a GORM connection for the configured driver: MySQL for
// deployments, SQLite for local runs and tests.
//
// # Schema Inspection
//
// GetTableColumns lists a table's columns for either dialect, and
// MissingColumns compares them with the columns an entity profile expects.
// The import command uses it to refuse running against an outdated schema
// when auto-migration is disabled.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    return fmt.Errorf("failed to connect to database: %w", err)
//	}
//
//	missing, err := database.MissingColumns(db, "courses", []string{"course_number"})
package database
