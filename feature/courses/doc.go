// Package courses holds the importable entities: their record schemas,
// GORM models and the Repository the reconcile engine writes through.
//
// Two entity types are supported. Courses are keyed by course number and
// users by email, both unique within an institution. Table and column
// names come from an EntityProfile so the repository can follow a schema
// whose names differ from the canonical field names.
package courses
