package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/instance"
	"github.com/trezcool/gradebook/core/results"
	testutil "github.com/trezcool/gradebook/tests"
)

var errBoom = errors.New("boom")

func TestDB_RunInTx(t *testing.T) {
	ctx := context.Background()
	db := NewDB()
	scope := testutil.Scope()
	resultRepo := NewResultRepository(db)
	instanceRepo := NewInstanceRepository(db)

	kept, err := resultRepo.UpsertResult(ctx, results.StudentResult{Scope: scope, StudentID: "stu-1", AdmissionNumber: "ADM-1"})
	require.NoError(t, err)

	t.Run("rollback", func(t *testing.T) {
		err := db.RunInTx(ctx, func(exec core.DBExecutor) error {
			if _, err := resultRepo.UpsertResult(ctx, results.StudentResult{Scope: scope, StudentID: "stu-2", AdmissionNumber: "ADM-2"}, exec); err != nil {
				return err
			}
			if _, err := instanceRepo.CreateActiveInstance(ctx, instance.Instance{ID: "inst-1", Scope: scope}, time.Now(), exec); err != nil {
				return err
			}
			return errBoom
		})
		assert.Equal(t, errBoom, err)

		records, err := resultRepo.QueryResults(ctx, scope)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, kept.ID, records[0].ID)

		_, err = instanceRepo.GetInstance(ctx, scope.SchoolID, "inst-1")
		assert.Equal(t, instance.ErrNotFound, err)
	})

	t.Run("commit", func(t *testing.T) {
		err := db.RunInTx(ctx, func(exec core.DBExecutor) error {
			_, err := resultRepo.UpsertResult(ctx, results.StudentResult{Scope: scope, StudentID: "stu-2", AdmissionNumber: "ADM-2"}, exec)
			return err
		})
		require.NoError(t, err)

		records, err := resultRepo.QueryResults(ctx, scope)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		called := false
		err := db.RunInTx(cctx, func(core.DBExecutor) error {
			called = true
			return nil
		})
		assert.Equal(t, context.Canceled, err)
		assert.False(t, called)
	})

	t.Run("reset", func(t *testing.T) {
		db.Reset()
		records, err := resultRepo.QueryResults(ctx, scope)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestResultRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewResultRepository(NewDB())
	scope := testutil.Scope()

	created := time.Date(2023, 9, 11, 8, 0, 0, 0, time.UTC)
	first, err := repo.UpsertResult(ctx, results.StudentResult{
		Scope:    scope, StudentID: "stu-1", AdmissionNumber: "ADM-1", OverallAverage: 50, CreatedAt: created,
		Subjects: map[string]results.SubjectOutcome{"Mathematics": {Total: 50}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	// callers never share the stored maps
	first.Subjects["Mathematics"] = results.SubjectOutcome{Total: 1}

	second, err := repo.UpsertResult(ctx, results.StudentResult{
		Scope: scope, StudentID: "stu-1", AdmissionNumber: "ADM-1", OverallAverage: 70, CreatedAt: created.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, created, second.CreatedAt)

	got, err := repo.GetResult(ctx, scope, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 70.0, got.OverallAverage)

	err = repo.UpdateStatistics(ctx, []results.StudentResult{{Scope: scope, StudentID: "stu-1", OverallPosition: 1}})
	require.NoError(t, err)
	got, err = repo.GetResult(ctx, scope, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.OverallPosition)

	err = repo.UpdateStatistics(ctx, []results.StudentResult{{Scope: scope, StudentID: "stu-9"}})
	assert.Equal(t, results.ErrNotFound, err)

	other := scope
	other.ClassID = "jss2"
	_, err = repo.GetResult(ctx, other, "stu-1")
	assert.Equal(t, results.ErrNotFound, err)
}
