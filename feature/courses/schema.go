package courses

import (
	"strings"

	"course-importer/core/record"
)

// Entity types handled by the importer.
const (
	EntityCourse = "course"
	EntityUser   = "user"
)

// User roles.
const (
	RoleInstructor       = "instructor"
	RoleProgramAdmin     = "program_admin"
	RoleInstitutionAdmin = "institution_admin"
)

// CourseSchema describes course rows. Course numbers are compared
// case-insensitively by normalizing them to upper case.
func CourseSchema() record.Schema {
	return record.Schema{
		EntityType: EntityCourse,
		Fields: []record.FieldSpec{
			{Name: "course_number", Kind: record.KindString, Key: true, Normalize: strings.ToUpper, Aliases: []string{"course", "number", "course_no", "course_code"}},
			{Name: "course_title", Kind: record.KindString, Required: true, Aliases: []string{"title", "name", "course_name"}},
			{Name: "department", Kind: record.KindString, Aliases: []string{"dept"}},
			{Name: "credit_hours", Kind: record.KindInt, Default: 3, Aliases: []string{"credits", "hours"}},
			{Name: "active", Kind: record.KindBool, Default: true, Aliases: []string{"is_active", "enabled"}},
		},
	}
}

// UserSchema describes user rows, keyed by lower-cased email.
func UserSchema() record.Schema {
	return record.Schema{
		EntityType: EntityUser,
		Fields: []record.FieldSpec{
			{Name: "email", Kind: record.KindEmail, Key: true, Aliases: []string{"email_address", "e_mail"}},
			{Name: "first_name", Kind: record.KindString, Required: true, Aliases: []string{"first", "given_name"}},
			{Name: "last_name", Kind: record.KindString, Required: true, Aliases: []string{"last", "surname", "family_name"}},
			{Name: "role", Kind: record.KindString, Default: RoleInstructor, OneOf: []string{RoleInstructor, RoleProgramAdmin, RoleInstitutionAdmin}},
			{Name: "department", Kind: record.KindString, Aliases: []string{"dept"}},
		},
	}
}

// Schemas returns every entity schema.
func Schemas() []record.Schema {
	return []record.Schema{CourseSchema(), UserSchema()}
}

// NewValidator returns a validator for every entity type.
func NewValidator() *record.Validator {
	return record.NewValidator(Schemas()...)
}
