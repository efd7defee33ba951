package courses

import (
	"sort"

	"course-importer/core/record"
)

// EntityProfile maps an entity schema onto its database table.
type EntityProfile struct {
	// TableName is the table holding the entity.
	TableName string

	// Schema is the record schema the profile persists.
	Schema record.Schema

	// Columns maps canonical field names to column names.
	Columns map[string]string

	// NewModel builds a row for insertion from canonical fields.
	NewModel func(institutionID string, fields map[string]any) Model
}

// Column name constants shared by every table.
const (
	ColID            = "id"
	ColInstitutionID = "institution_id"
	ColUpdatedAt     = "updated_at"
)

// CourseProfile returns the profile for the courses table.
func CourseProfile() EntityProfile {
	return EntityProfile{
		TableName: "courses",
		Schema:    CourseSchema(),
		Columns: map[string]string{
			"course_number": "course_number",
			"course_title":  "course_title",
			"department":    "department",
			"credit_hours":  "credit_hours",
			"active":        "active",
		},
		NewModel: newCourse,
	}
}

// UserProfile returns the profile for the users table.
func UserProfile() EntityProfile {
	return EntityProfile{
		TableName: "users",
		Schema:    UserSchema(),
		Columns: map[string]string{
			"email":      "email",
			"first_name": "first_name",
			"last_name":  "last_name",
			"role":       "role",
			"department": "department",
		},
		NewModel: newUser,
	}
}

// Profiles returns every profile keyed by entity type.
func Profiles() map[string]EntityProfile {
	return map[string]EntityProfile{
		EntityCourse: CourseProfile(),
		EntityUser:   UserProfile(),
	}
}

// SelectColumns returns the id column followed by every mapped column, sorted.
func (p EntityProfile) SelectColumns() []string {
	cols := make([]string, 0, len(p.Columns)+1)
	for _, col := range p.Columns {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return append([]string{ColID}, cols...)
}

// fieldFor returns the canonical field stored in a column.
func (p EntityProfile) fieldFor(column string) (string, bool) {
	for field, col := range p.Columns {
		if col == column {
			return field, true
		}
	}
	return "", false
}
