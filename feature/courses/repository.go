package courses

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"course-importer/core/database"
	"course-importer/core/reconcile"
	"course-importer/core/record"
	"course-importer/core/utils"

	"gorm.io/gorm"
)

// Repository persists courses and users with GORM. It implements
// reconcile.Repository; natural-key uniqueness is enforced by unique indexes.
type Repository struct {
	db       *gorm.DB
	profiles map[string]EntityProfile
}

var _ reconcile.Repository = (*Repository)(nil)

// NewRepository creates a repository using the default profiles.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, profiles: Profiles()}
}

func (r *Repository) profile(entityType string) (EntityProfile, error) {
	p, ok := r.profiles[entityType]
	if !ok {
		return EntityProfile{}, fmt.Errorf("no table mapping for entity type %q", entityType)
	}
	return p, nil
}

// FindByNaturalKey loads the entity matching key within the institution.
// It returns nil, nil when there is none.
func (r *Repository) FindByNaturalKey(ctx context.Context, entityType string, key record.NaturalKey, institutionID string) (*reconcile.ExistingRecord, error) {
	p, err := r.profile(entityType)
	if err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx).
		Table(p.TableName).
		Select(p.SelectColumns()).
		Where(ColInstitutionID+" = ?", institutionID)
	for _, part := range key {
		col, ok := p.Columns[part.Field]
		if !ok {
			return nil, fmt.Errorf("no column for key field %q", part.Field)
		}
		q = q.Where(col+" = ?", part.Value)
	}

	var rows []map[string]any
	if err := q.Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", p.TableName, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	fields := make(map[string]any, len(p.Columns))
	for col, val := range row {
		if field, ok := p.fieldFor(strings.ToLower(col)); ok {
			fields[field] = val
		}
	}

	return &reconcile.ExistingRecord{
		ID:     utils.ToString(row[ColID]),
		Fields: p.Schema.Normalize(fields),
	}, nil
}

// Create inserts a new entity and returns its id.
func (r *Repository) Create(ctx context.Context, entityType, institutionID string, fields map[string]any) (string, error) {
	p, err := r.profile(entityType)
	if err != nil {
		return "", err
	}

	model := p.NewModel(institutionID, fields)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", p.TableName, err)
	}
	return strconv.FormatUint(uint64(model.PrimaryKey()), 10), nil
}

// Update writes the given canonical fields to the entity with id.
func (r *Repository) Update(ctx context.Context, entityType, id string, fields map[string]any) error {
	p, err := r.profile(entityType)
	if err != nil {
		return err
	}

	values := make(map[string]any, len(fields)+1)
	for field, val := range fields {
		col, ok := p.Columns[field]
		if !ok {
			return fmt.Errorf("no column for field %q", field)
		}
		values[col] = val
	}
	values[ColUpdatedAt] = time.Now()

	result := r.db.WithContext(ctx).
		Table(p.TableName).
		Where(ColID+" = ?", id).
		Updates(values)
	if result.Error != nil {
		return fmt.Errorf("failed to update %s %s: %w", p.TableName, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s %s not found", p.TableName, id)
	}
	return nil
}

// Migrate creates or updates every entity table.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Reset drops every entity table and creates it again. All imported data is lost.
func (r *Repository) Reset(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Migrator().DropTable(Models()...); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	return r.Migrate(ctx)
}

// VerifySchema checks that every mapped column exists.
func (r *Repository) VerifySchema(ctx context.Context) error {
	db := r.db.WithContext(ctx)

	var problems []string
	for _, entityType := range []string{EntityCourse, EntityUser} {
		p := r.profiles[entityType]
		expected := append(p.SelectColumns(), ColInstitutionID)
		missing, err := database.MissingColumns(db, p.TableName, expected)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			problems = append(problems, fmt.Sprintf("%s: missing %s", p.TableName, strings.Join(missing, ", ")))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("database schema is out of date (%s)", strings.Join(problems, "; "))
	}
	return nil
}
