// Package logger builds the zap loggers used across the importer.
//
// New returns a development logger for the debug level and a production
// logger otherwise, encoded as console or json. WithRayID tags a logger with
// the request id set by the rayid middleware so all lines of one HTTP import
// can be correlated.
//
//	log, _ := logger.New(&logger.Config{Level: "info", Format: "json"})
//	l := logger.WithRayID(log, c)
//	l.Error("Import failed", zap.Error(err))
package logger
