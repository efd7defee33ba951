// Package utils provides common utility functions for the course importer.
// It includes loose and strict value conversion helpers shared by the record
// validator and the repository, which both need to turn spreadsheet cells and
// database columns into the same canonical Go types.
package utils
