//go:build integration

package sqlxrepos

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grading"
	"github.com/trezcool/gradebook/core/instance"
	"github.com/trezcool/gradebook/core/results"
	"github.com/trezcool/gradebook/core/setup"
	"github.com/trezcool/gradebook/storage/database"
	testutil "github.com/trezcool/gradebook/tests"
)

// run with: TEST_DATABASE_DSN=postgres://... go test -tags integration ./storage/database/sqlx/...

// openTestDB connects to TEST_DATABASE_DSN, migrates it and empties every table.
func openTestDB(t *testing.T) *sqlx.DB {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN is not set")
	}
	db, err := database.OpenDSN(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db.DB))
	_, err = db.Exec("TRUNCATE grading_scale, student, student_result, results_instance, results_setup_session")
	require.NoError(t, err)
	return db
}

// uniqueScope keeps runs against a shared database apart.
func uniqueScope() results.Scope {
	scope := testutil.Scope()
	scope.SchoolID = "school-" + uuid.New().String()[:8]
	return scope
}

func TestScaleRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewScaleRepository(openTestDB(t))
	scope := uniqueScope()

	first := testutil.Scale(scope.SchoolID)
	first.ID = uuid.New().String()
	_, err := repo.CreateScale(ctx, first)
	require.NoError(t, err)

	second := testutil.Scale(scope.SchoolID)
	second.ID = uuid.New().String()
	second.Name = "Strict"
	second.IsDefault = false
	_, err = repo.CreateScale(ctx, second)
	require.NoError(t, err)

	def, err := repo.GetDefaultScale(ctx, scope.SchoolID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, def.ID)
	assert.Equal(t, testutil.Bands(), def.Bands)

	require.NoError(t, repo.SetDefaultScale(ctx, scope.SchoolID, second.ID))
	def, err = repo.GetDefaultScale(ctx, scope.SchoolID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, def.ID)

	scales, err := repo.QueryScales(ctx, scope.SchoolID)
	require.NoError(t, err)
	assert.Len(t, scales, 2)

	_, err = repo.GetScale(ctx, "other-school", first.ID)
	assert.Equal(t, grading.ErrNotFound, err)
	_, err = repo.GetScale(ctx, scope.SchoolID, "not-a-uuid")
	assert.Equal(t, grading.ErrNotFound, err)
}

func TestResultRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewResultRepository(db)
	scope := uniqueScope()
	created := time.Date(2023, 9, 11, 8, 0, 0, 0, time.UTC)

	first, err := repo.UpsertResult(ctx, results.StudentResult{
		Scope:           scope,
		StudentID:       "stu-1",
		AdmissionNumber: "ADM-1",
		StudentName:     "Ada",
		Attendance:      results.Attendance{DaysPresent: 55, DaysSchoolOpen: 60},
		Subjects:        map[string]results.SubjectOutcome{"Mathematics": {Total: 73, Grade: "B"}},
		Affective:       map[string]results.TraitValue{"Honesty": results.TraitScore(5)},
		OverallAverage:  73,
		CreatedAt:       created,
		UpdatedAt:       created,
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := repo.UpsertResult(ctx, results.StudentResult{
		Scope:           scope,
		StudentID:       "stu-1",
		AdmissionNumber: "ADM-1",
		StudentName:     "Ada",
		OverallAverage:  80,
		CreatedAt:       created.Add(time.Hour),
		UpdatedAt:       created.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, created.Equal(second.CreatedAt))

	got, err := repo.GetResult(ctx, scope, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 80.0, got.OverallAverage)
	assert.Empty(t, got.Subjects)
	assert.NotNil(t, got.Psychomotor)

	got.OverallPosition = 1
	got.Subjects = map[string]results.SubjectOutcome{"Mathematics": {Total: 80, PositionInClass: 1}}
	require.NoError(t, repo.UpdateStatistics(ctx, []results.StudentResult{got}))

	records, err := repo.QueryResults(ctx, scope)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].OverallPosition)
	assert.Equal(t, 1, records[0].Subjects["Mathematics"].PositionInClass)

	missing := got
	missing.StudentID = "stu-9"
	assert.Equal(t, results.ErrNotFound, repo.UpdateStatistics(ctx, []results.StudentResult{missing}))

	t.Run("rolled back with the transaction", func(t *testing.T) {
		errBoom := errors.New("boom")
		err := database.NewTxRunner(db).RunInTx(ctx, func(exec core.DBExecutor) error {
			if _, err := repo.UpsertResult(ctx, results.StudentResult{Scope: scope, StudentID: "stu-2", AdmissionNumber: "ADM-2"}, exec); err != nil {
				return err
			}
			return errBoom
		})
		assert.Equal(t, errBoom, err)

		_, err = repo.GetResult(ctx, scope, "stu-2")
		assert.Equal(t, results.ErrNotFound, err)
	})
}

func TestRoster(t *testing.T) {
	ctx := context.Background()
	roster := NewRoster(openTestDB(t))
	scope := uniqueScope()

	students := testutil.CreateStudents(t, roster, scope, "ADM-1")
	got, err := roster.FindStudent(ctx, scope.SchoolID, scope.ClassID, "ADM-1")
	require.NoError(t, err)
	assert.Equal(t, students[0], got)

	_, err = roster.FindStudent(ctx, scope.SchoolID, "jss2", "ADM-1")
	assert.Equal(t, results.ErrStudentNotFound, err)
}

func TestInstanceRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewInstanceRepository(openTestDB(t))
	scope := uniqueScope()
	now := time.Date(2023, 9, 11, 8, 0, 0, 0, time.UTC)

	newInst := func(name string, at time.Time) instance.Instance {
		return instance.Instance{
			ID:         uuid.New().String(),
			Scope:      scope,
			Name:       name,
			Subjects:   []string{"Mathematics", "English Language"},
			ExamConfig: results.DefaultExamConfig(),
			Traits:     results.TraitSet{AffectiveTraits: []string{"Honesty"}, PsychomotorSkills: []string{}},
			CreatedAt:  at,
		}
	}

	first, err := repo.CreateActiveInstance(ctx, newInst("First term", now), now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)

	later := now.Add(time.Hour)
	second, err := repo.CreateActiveInstance(ctx, newInst("First term v2", later), later)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)

	active, err := repo.GetActiveInstance(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
	assert.Equal(t, results.DefaultExamConfig(), active.ExamConfig)
	assert.Nil(t, active.SourceFile)

	old, err := repo.GetInstance(ctx, scope.SchoolID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, instance.StatusArchived, old.Status)
	require.NotNil(t, old.ArchivedAt)
	assert.True(t, later.Equal(*old.ArchivedAt))

	archived, err := repo.QueryInstances(ctx, instance.QueryFilter{SchoolID: scope.SchoolID, Status: instance.StatusArchived})
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, first.ID, archived[0].ID)

	// archiving twice keeps the first timestamp
	done, err := repo.ArchiveInstance(ctx, scope.SchoolID, second.ID, later.Add(time.Hour))
	require.NoError(t, err)
	again, err := repo.ArchiveInstance(ctx, scope.SchoolID, second.ID, later.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, done.ArchivedAt, again.ArchivedAt)

	_, err = repo.GetActiveInstance(ctx, scope)
	assert.Equal(t, instance.ErrNotFound, err)

	require.NoError(t, repo.DeleteInstance(ctx, scope.SchoolID, first.ID))
	assert.Equal(t, instance.ErrNotFound, repo.DeleteInstance(ctx, scope.SchoolID, first.ID))
	_, err = repo.ArchiveInstance(ctx, scope.SchoolID, uuid.New().String(), later)
	assert.Equal(t, instance.ErrNotFound, err)
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(openTestDB(t))
	schoolID := uniqueScope().SchoolID

	_, err := repo.GetSession(ctx, schoolID)
	assert.Equal(t, setup.ErrNotFound, err)

	cfg := results.DefaultExamConfig()
	saved, err := repo.SaveSession(ctx, setup.Session{
		SchoolID:       schoolID,
		CurrentStep:    setup.StepAffectiveTraits,
		CompletedSteps: []setup.Step{setup.StepExamConfig},
		ExamConfig:     &cfg,
		Traits:         results.TraitSet{AffectiveTraits: []string{}, PsychomotorSkills: []string{}},
		UpdatedAt:      time.Now().UTC(),
	})
	require.NoError(t, err)

	got, err := repo.GetSession(ctx, schoolID)
	require.NoError(t, err)
	assert.Equal(t, saved.CurrentStep, got.CurrentStep)
	assert.Equal(t, []setup.Step{setup.StepExamConfig}, got.CompletedSteps)
	assert.Equal(t, &cfg, got.ExamConfig)
	assert.Nil(t, got.SignOff)

	require.NoError(t, repo.DeleteSession(ctx, schoolID))
	_, err = repo.GetSession(ctx, schoolID)
	assert.Equal(t, setup.ErrNotFound, err)
}
