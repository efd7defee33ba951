package courses

import (
	"time"

	"course-importer/core/utils"
)

// Model is a persisted entity row.
type Model interface {
	PrimaryKey() uint
}

// Course is a course offered by an institution. The course number is unique
// within an institution.
type Course struct {
	ID            uint   `gorm:"primaryKey"`
	InstitutionID string `gorm:"size:64;not null;uniqueIndex:idx_courses_institution_number"`
	CourseNumber  string `gorm:"size:32;not null;uniqueIndex:idx_courses_institution_number"`
	CourseTitle   string `gorm:"size:255;not null"`
	Department    string `gorm:"size:128"`
	CreditHours   int    `gorm:"not null"`
	Active        bool   `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName overrides the table name used by Course.
func (Course) TableName() string { return "courses" }

func (c *Course) PrimaryKey() uint { return c.ID }

// User is a person with a role at an institution. The email is unique
// within an institution.
type User struct {
	ID            uint   `gorm:"primaryKey"`
	InstitutionID string `gorm:"size:64;not null;uniqueIndex:idx_users_institution_email"`
	Email         string `gorm:"size:255;not null;uniqueIndex:idx_users_institution_email"`
	FirstName     string `gorm:"size:128;not null"`
	LastName      string `gorm:"size:128;not null"`
	Role          string `gorm:"size:32;not null"`
	Department    string `gorm:"size:128"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName overrides the table name used by User.
func (User) TableName() string { return "users" }

func (u *User) PrimaryKey() uint { return u.ID }

func newCourse(institutionID string, f map[string]any) Model {
	return &Course{
		InstitutionID: institutionID,
		CourseNumber:  utils.ToString(f["course_number"]),
		CourseTitle:   utils.ToString(f["course_title"]),
		Department:    utils.ToString(f["department"]),
		CreditHours:   utils.ToInt(f["credit_hours"]),
		Active:        utils.ToBool(f["active"]),
	}
}

func newUser(institutionID string, f map[string]any) Model {
	return &User{
		InstitutionID: institutionID,
		Email:         utils.ToString(f["email"]),
		FirstName:     utils.ToString(f["first_name"]),
		LastName:      utils.ToString(f["last_name"]),
		Role:          utils.ToString(f["role"]),
		Department:    utils.ToString(f["department"]),
	}
}

// Models returns an empty instance of every model, for migrations.
func Models() []any {
	return []any{&Course{}, &User{}}
}
