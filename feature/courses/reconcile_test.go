package courses

import (
	"context"
	"testing"

	"course-importer/core/reconcile"
	"course-importer/core/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func validCourses(t *testing.T) []record.CanonicalRecord {
	t.Helper()
	v := NewValidator()
	raws := []record.RawRecord{
		{EntityType: "Courses", Row: 2, Fields: map[string]any{"Course Number": "cs101", "Title": "Intro to CS", "Credits": 3.0}},
		{EntityType: "Courses", Row: 3, Fields: map[string]any{"Course Number": "cs102", "Title": "Data Structures", "Dept": "CS"}},
		{EntityType: "Courses", Row: 4, Fields: map[string]any{"Course Number": "ma200", "Title": "Calculus", "Active": "no"}},
	}
	out := make([]record.CanonicalRecord, 0, len(raws))
	for _, raw := range raws {
		rec, failure := v.Validate(raw)
		require.Nil(t, failure)
		out = append(out, rec)
	}
	return out
}

func TestImportScenarios(t *testing.T) {
	db, repo := setupSQLite(t)
	engine := reconcile.NewEngine(repo, zap.NewNop())
	ctx := context.Background()
	opts := reconcile.Options{InstitutionID: "inst-1", Strategy: reconcile.UseTheirs}

	// New rows are created.
	result, err := engine.Reconcile(ctx, validCourses(t), opts)
	require.NoError(t, err)
	assert.Equal(t, 3, result.RecordsCreated)
	assert.Equal(t, 0, result.RecordsUpdated)
	assert.Equal(t, 0, result.ConflictsDetected)

	// The same file again changes nothing.
	result, err = engine.Reconcile(ctx, validCourses(t), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, result.RecordsCreated)
	assert.Equal(t, 3, result.RecordsSkipped)

	changeTitle := func() {
		require.NoError(t, db.Model(&Course{}).Where("course_number = ?", "CS101").Update("course_title", "Changed Elsewhere").Error)
	}
	titleOf := func() string {
		var c Course
		require.NoError(t, db.Where("course_number = ?", "CS101").Take(&c).Error)
		return c.CourseTitle
	}

	// use_mine keeps the external change.
	changeTitle()
	opts.Strategy = reconcile.UseMine
	result, err = engine.Reconcile(ctx, validCourses(t), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, result.RecordsUpdated)
	assert.Equal(t, 3, result.RecordsSkipped)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, reconcile.KeptExisting, result.Conflicts[0].Resolution)
	assert.Equal(t, "Changed Elsewhere", titleOf())

	// A dry run with use_theirs reports the update without writing it.
	opts.Strategy = reconcile.UseTheirs
	opts.DryRun = true
	result, err = engine.Reconcile(ctx, validCourses(t), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RecordsUpdated)
	assert.Equal(t, "Changed Elsewhere", titleOf())

	// use_theirs restores the file's value.
	opts.DryRun = false
	result, err = engine.Reconcile(ctx, validCourses(t), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RecordsUpdated)
	assert.Equal(t, 1, result.ConflictsDetected)
	assert.Equal(t, reconcile.UsedIncoming, result.Conflicts[0].Resolution)
	assert.Equal(t, "Intro to CS", titleOf())
	assert.True(t, result.Success)
}
