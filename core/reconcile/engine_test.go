package reconcile

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"testing"

	"course-importer/core/record"

	crdb "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const institution = "inst-1"

// memoryRepo is an in-memory Repository keyed by entity type and natural key.
type memoryRepo struct {
	rows   map[string]*ExistingRecord
	nextID int

	finds, creates, updates int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[string]*ExistingRecord)}
}

func repoKey(entityType, key, institutionID string) string {
	return institutionID + "|" + entityType + "|" + key
}

func (m *memoryRepo) FindByNaturalKey(_ context.Context, entityType string, key record.NaturalKey, institutionID string) (*ExistingRecord, error) {
	m.finds++
	row, ok := m.rows[repoKey(entityType, key.String(), institutionID)]
	if !ok {
		return nil, nil
	}
	return &ExistingRecord{ID: row.ID, Fields: maps.Clone(row.Fields)}, nil
}

func (m *memoryRepo) Create(_ context.Context, entityType, institutionID string, fields map[string]any) (string, error) {
	m.creates++
	m.nextID++
	id := fmt.Sprintf("%d", m.nextID)
	key := record.NaturalKey{{Field: "course_number", Value: fields["course_number"].(string)}}
	m.rows[repoKey(entityType, key.String(), institutionID)] = &ExistingRecord{ID: id, Fields: maps.Clone(fields)}
	return id, nil
}

func (m *memoryRepo) Update(_ context.Context, _ string, id string, fields map[string]any) error {
	m.updates++
	for _, row := range m.rows {
		if row.ID == id {
			maps.Copy(row.Fields, fields)
			return nil
		}
	}
	return fmt.Errorf("id %s not found", id)
}

func (m *memoryRepo) snapshot() map[string]map[string]any {
	out := make(map[string]map[string]any, len(m.rows))
	for k, row := range m.rows {
		out[k] = maps.Clone(row.Fields)
	}
	return out
}

func (m *memoryRepo) title(number string) any {
	return m.rows[repoKey("course", "course_number="+number, institution)].Fields["course_title"]
}

// mockRepo is a testify mock for failure paths.
type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) FindByNaturalKey(ctx context.Context, entityType string, key record.NaturalKey, institutionID string) (*ExistingRecord, error) {
	args := m.Called(ctx, entityType, key, institutionID)
	existing, _ := args.Get(0).(*ExistingRecord)
	return existing, args.Error(1)
}

func (m *mockRepo) Create(ctx context.Context, entityType, institutionID string, fields map[string]any) (string, error) {
	args := m.Called(ctx, entityType, institutionID, fields)
	return args.String(0), args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, entityType, id string, fields map[string]any) error {
	args := m.Called(ctx, entityType, id, fields)
	return args.Error(0)
}

func course(row int, number, title string, credits int) record.CanonicalRecord {
	return record.CanonicalRecord{
		EntityType: "course",
		Row:        row,
		Key:        record.NaturalKey{{Field: "course_number", Value: number}},
		Fields: map[string]any{
			"course_number": number,
			"course_title":  title,
			"credit_hours":  credits,
		},
		Watched: []string{"course_title", "credit_hours"},
	}
}

func threeCourses() []record.CanonicalRecord {
	return []record.CanonicalRecord{
		course(2, "CS101", "Intro to CS", 3),
		course(3, "CS102", "Data Structures", 4),
		course(4, "MA200", "Calculus", 4),
	}
}

func reconcile(t *testing.T, repo Repository, records []record.CanonicalRecord, strategy Strategy, dryRun bool) *ImportResult {
	t.Helper()
	engine := NewEngine(repo, zap.NewNop())
	result, err := engine.Reconcile(context.Background(), records, Options{
		InstitutionID: institution,
		Strategy:      strategy,
		DryRun:        dryRun,
	})
	require.NoError(t, err)
	return result
}

func TestReconcile_CreatesNewRecords(t *testing.T) {
	repo := newMemoryRepo()

	result := reconcile(t, repo, threeCourses(), UseTheirs, false)

	assert.Equal(t, 3, result.RecordsProcessed)
	assert.Equal(t, 3, result.RecordsCreated)
	assert.Equal(t, 0, result.RecordsUpdated)
	assert.Equal(t, 0, result.ConflictsDetected)
	assert.True(t, result.Success)
	assert.Len(t, repo.rows, 3)
}

func TestReconcile_CreateIndependentOfStrategy(t *testing.T) {
	for _, strategy := range Strategies() {
		t.Run(string(strategy), func(t *testing.T) {
			repo := newMemoryRepo()
			result := reconcile(t, repo, threeCourses(), strategy, false)
			assert.Equal(t, 3, result.RecordsCreated)
			assert.Empty(t, result.Conflicts)
		})
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	repo := newMemoryRepo()
	reconcile(t, repo, threeCourses(), UseTheirs, false)

	result := reconcile(t, repo, threeCourses(), UseTheirs, false)

	assert.Equal(t, 0, result.RecordsCreated)
	assert.Equal(t, 0, result.RecordsUpdated)
	assert.Equal(t, result.RecordsProcessed, result.RecordsSkipped)
	assert.Equal(t, 3, result.RecordsSkipped)
	assert.Empty(t, result.Conflicts)
	assert.Equal(t, 3, repo.creates)
	assert.Equal(t, 0, repo.updates)
}

func TestReconcile_ChangedTitle(t *testing.T) {
	tests := []struct {
		strategy       Strategy
		wantUpdated    int
		wantSkipped    int
		wantResolution Resolution
		wantTitle      string
		wantResolved   int
	}{
		{UseTheirs, 1, 2, UsedIncoming, "Intro to CS", 1},
		{UseMine, 0, 3, KeptExisting, "Changed Elsewhere", 1},
		{Merge, 1, 2, Merged, "Intro to CS", 1},
		{ManualReview, 0, 3, FlaggedForReview, "Changed Elsewhere", 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			repo := newMemoryRepo()
			reconcile(t, repo, threeCourses(), UseTheirs, false)
			repo.rows[repoKey("course", "course_number=CS101", institution)].Fields["course_title"] = "Changed Elsewhere"

			result := reconcile(t, repo, threeCourses(), tt.strategy, false)

			assert.Equal(t, tt.wantUpdated, result.RecordsUpdated)
			assert.Equal(t, tt.wantSkipped, result.RecordsSkipped)
			assert.Equal(t, 1, result.ConflictsDetected)
			assert.Equal(t, tt.wantResolved, result.ConflictsResolved)
			require.Len(t, result.Conflicts, 1)
			assert.Equal(t, ConflictEntry{
				EntityType:    "course",
				EntityKey:     "course_number=CS101",
				FieldName:     "course_title",
				ExistingValue: "Changed Elsewhere",
				IncomingValue: "Intro to CS",
				Resolution:    tt.wantResolution,
			}, result.Conflicts[0])
			assert.Equal(t, tt.wantTitle, repo.title("CS101"))
			assert.True(t, result.Success)
		})
	}
}

func TestReconcile_NonMutatingStrategies(t *testing.T) {
	for _, strategy := range []Strategy{UseMine, ManualReview} {
		t.Run(string(strategy), func(t *testing.T) {
			repo := newMemoryRepo()
			reconcile(t, repo, threeCourses(), UseTheirs, false)

			changed := []record.CanonicalRecord{
				course(2, "CS101", "New Title", 3),
				course(3, "CS102", "Data Structures", 5),
				course(4, "MA200", "Calculus", 4),
			}
			before := repo.snapshot()
			updatesBefore := repo.updates

			result := reconcile(t, repo, changed, strategy, false)

			assert.Equal(t, before, repo.snapshot())
			assert.Equal(t, updatesBefore, repo.updates)
			assert.Equal(t, 2, result.ConflictsDetected)
			for _, c := range result.Conflicts {
				assert.Equal(t, resolutionFor(strategy), c.Resolution)
			}
		})
	}
}

func TestReconcile_DryRunMatchesRealRun(t *testing.T) {
	seed := func(t *testing.T) *memoryRepo {
		repo := newMemoryRepo()
		reconcile(t, repo, threeCourses()[:2], UseTheirs, false)
		repo.rows[repoKey("course", "course_number=CS102", institution)].Fields["credit_hours"] = 2
		return repo
	}
	input := append(threeCourses(), course(5, "CS101", "Intro to Computing", 3))

	for _, strategy := range Strategies() {
		t.Run(string(strategy), func(t *testing.T) {
			dryRepo := seed(t)
			before := dryRepo.snapshot()
			creates, updates := dryRepo.creates, dryRepo.updates

			dry := reconcile(t, dryRepo, input, strategy, true)
			assert.Equal(t, before, dryRepo.snapshot())
			assert.Equal(t, creates, dryRepo.creates)
			assert.Equal(t, updates, dryRepo.updates)
			assert.True(t, dry.DryRun)

			live := reconcile(t, seed(t), input, strategy, false)

			assert.Equal(t, live.RecordsProcessed, dry.RecordsProcessed)
			assert.Equal(t, live.RecordsCreated, dry.RecordsCreated)
			assert.Equal(t, live.RecordsUpdated, dry.RecordsUpdated)
			assert.Equal(t, live.RecordsSkipped, dry.RecordsSkipped)
			assert.Equal(t, live.ConflictsDetected, dry.ConflictsDetected)
			assert.Equal(t, live.Conflicts, dry.Conflicts)
			assert.Equal(t, live.Warnings, dry.Warnings)
		})
	}
}

func TestReconcile_DuplicateKeyUsesStagedState(t *testing.T) {
	repo := newMemoryRepo()
	records := []record.CanonicalRecord{
		course(2, "CS101", "Intro", 3),
		course(3, "CS101", "Intro Revised", 3),
	}

	result := reconcile(t, repo, records, UseTheirs, false)

	assert.Equal(t, 1, result.RecordsCreated)
	assert.Equal(t, 1, result.RecordsUpdated)
	assert.Equal(t, 1, repo.finds)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "Intro", result.Conflicts[0].ExistingValue)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "row 3: duplicate course course_number=CS101")
	assert.Equal(t, "Intro Revised", repo.title("CS101"))
}

func TestReconcile_MergeRule(t *testing.T) {
	repo := newMemoryRepo()
	existing := course(2, "CS101", "Intro", 3)
	existing.Fields["department"] = "Computer Science"
	existing.Watched = append(existing.Watched, "department")
	reconcile(t, repo, []record.CanonicalRecord{existing}, UseTheirs, false)

	t.Run("blank incoming keeps existing", func(t *testing.T) {
		incoming := course(2, "CS101", "Intro", 3)
		incoming.Fields["department"] = ""
		incoming.Watched = existing.Watched

		result := reconcile(t, repo, []record.CanonicalRecord{incoming}, Merge, false)

		assert.Equal(t, 1, result.RecordsSkipped)
		assert.Equal(t, 0, result.RecordsUpdated)
		require.Len(t, result.Conflicts, 1)
		assert.Equal(t, Merged, result.Conflicts[0].Resolution)
		assert.Equal(t, "Computer Science", repo.rows[repoKey("course", "course_number=CS101", institution)].Fields["department"])
	})

	t.Run("non-empty incoming wins", func(t *testing.T) {
		incoming := course(2, "CS101", "Intro II", 3)
		incoming.Fields["department"] = ""
		incoming.Watched = existing.Watched

		result := reconcile(t, repo, []record.CanonicalRecord{incoming}, Merge, false)

		assert.Equal(t, 1, result.RecordsUpdated)
		assert.Len(t, result.Conflicts, 2)
		row := repo.rows[repoKey("course", "course_number=CS101", institution)]
		assert.Equal(t, "Intro II", row.Fields["course_title"])
		assert.Equal(t, "Computer Science", row.Fields["department"])
	})
}

func TestReconcile_UnknownStrategyTouchesNothing(t *testing.T) {
	repo := new(mockRepo)
	engine := NewEngine(repo, zap.NewNop())

	result, err := engine.Reconcile(context.Background(), threeCourses(), Options{
		InstitutionID: institution,
		Strategy:      "theirs_please",
	})

	assert.Nil(t, result)
	var strategyErr *StrategyError
	require.True(t, errors.As(err, &strategyErr))
	assert.Equal(t, "theirs_please", strategyErr.Value)
	assert.Contains(t, crdb.FlattenHints(err), "use_theirs")
	repo.AssertNotCalled(t, "FindByNaturalKey", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_RequiresInstitution(t *testing.T) {
	repo := new(mockRepo)
	_, err := NewEngine(repo, nil).Reconcile(context.Background(), threeCourses(), Options{})
	assert.ErrorIs(t, err, ErrInstitutionRequired)
	repo.AssertNotCalled(t, "FindByNaturalKey", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_PersistenceFailureContinues(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindByNaturalKey", mock.Anything, "course", mock.Anything, institution).Return(nil, nil)
	repo.On("Create", mock.Anything, "course", institution, mock.MatchedBy(func(f map[string]any) bool {
		return f["course_number"] == "CS102"
	})).Return("", errors.New("duplicate entry"))
	repo.On("Create", mock.Anything, "course", institution, mock.Anything).Return("42", nil)

	engine := NewEngine(repo, zap.NewNop())
	result, err := engine.Reconcile(context.Background(), threeCourses(), Options{InstitutionID: institution})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.RecordsProcessed)
	assert.Equal(t, 2, result.RecordsCreated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "row 3 (course course_number=CS102): create failed: duplicate entry")
	repo.AssertNumberOfCalls(t, "Create", 3)
}

func TestReconcile_FailedUpdateLeavesConflictsUnresolved(t *testing.T) {
	tests := []struct {
		name     string
		dryRun   bool
		resolved int
	}{
		{"live", false, 0},
		{"dry run", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRepo)
			repo.On("FindByNaturalKey", mock.Anything, "course", mock.Anything, institution).Return(&ExistingRecord{
				ID:     "7",
				Fields: map[string]any{"course_number": "CS101", "course_title": "Old title", "credit_hours": 3},
			}, nil)
			repo.On("Update", mock.Anything, "course", "7", mock.Anything).Return(errors.New("lock wait timeout"))

			result := reconcile(t, repo, []record.CanonicalRecord{course(2, "CS101", "Intro to CS", 3)}, UseTheirs, tt.dryRun)

			assert.Equal(t, 1, result.ConflictsDetected)
			assert.Len(t, result.Conflicts, 1)
			assert.Equal(t, tt.resolved, result.ConflictsResolved)
			assert.Equal(t, !tt.dryRun, len(result.Errors) == 1)
		})
	}
}

func TestReconcile_MissingKeyNeverReachesRepository(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindByNaturalKey", mock.Anything, "course", mock.Anything, institution).Return(nil, nil)
	repo.On("Create", mock.Anything, "course", institution, mock.Anything).Return("1", nil)

	blank := course(3, "", "No number", 3)
	noKey := course(4, "CS999", "No key", 3)
	noKey.Key = nil

	result := reconcile(t, repo, []record.CanonicalRecord{course(2, "CS101", "Intro to CS", 3), blank, noKey}, UseTheirs, false)

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.RecordsProcessed)
	assert.Equal(t, 1, result.RecordsCreated)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "row 3 (course): natural key is missing", result.Errors[0])
	assert.Equal(t, "row 4 (course): natural key is missing", result.Errors[1])
	repo.AssertNumberOfCalls(t, "FindByNaturalKey", 1)
	repo.AssertNumberOfCalls(t, "Create", 1)
}

func TestReconcile_LookupFailureContinues(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindByNaturalKey", mock.Anything, "course", record.NaturalKey{{Field: "course_number", Value: "CS101"}}, institution).
		Return(nil, errors.New("connection reset"))
	repo.On("FindByNaturalKey", mock.Anything, "course", mock.Anything, institution).Return(nil, nil)
	repo.On("Create", mock.Anything, "course", institution, mock.Anything).Return("1", nil)

	result, err := NewEngine(repo, zap.NewNop()).Reconcile(context.Background(), threeCourses(), Options{InstitutionID: institution})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 2, result.RecordsCreated)
	assert.Contains(t, result.Errors[0], "find failed")
}

func TestReconcile_Interrupted(t *testing.T) {
	repo := newMemoryRepo()
	ctx, cancel := context.WithCancel(context.Background())
	engine := NewEngine(repo, zap.NewNop())

	result, err := engine.Reconcile(ctx, threeCourses(), Options{
		InstitutionID: institution,
		Progress: func(done, total int) {
			if done == 1 {
				cancel()
			}
		},
	})

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.RecordsCreated)
	assert.Len(t, repo.rows, 1, "applied records are kept")
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "interrupted after 1 of 3")
}

func TestReconcile_ProgressCallback(t *testing.T) {
	var calls [][2]int
	_, err := NewEngine(newMemoryRepo(), zap.NewNop()).Reconcile(context.Background(), threeCourses(), Options{
		InstitutionID: institution,
		DryRun:        true,
		Progress:      func(done, total int) { calls = append(calls, [2]int{done, total}) },
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, calls)
}
