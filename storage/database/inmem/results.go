package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/results"
)

type resultKey struct {
	results.Scope
	StudentID string
}

func keyOf(res results.StudentResult) resultKey {
	return resultKey{Scope: res.Scope, StudentID: res.StudentID}
}

func cloneResult(res results.StudentResult) results.StudentResult {
	subjects := make(map[string]results.SubjectOutcome, len(res.Subjects))
	for k, v := range res.Subjects {
		subjects[k] = v
	}
	affective := make(map[string]results.TraitValue, len(res.Affective))
	for k, v := range res.Affective {
		affective[k] = v
	}
	psychomotor := make(map[string]results.TraitValue, len(res.Psychomotor))
	for k, v := range res.Psychomotor {
		psychomotor[k] = v
	}
	res.Subjects, res.Affective, res.Psychomotor = subjects, affective, psychomotor
	return res
}

type resultRepository struct {
	db *resultTable
}

var _ results.Repository = (*resultRepository)(nil) // interface compliance check

func NewResultRepository(db *DB) results.Repository {
	return &resultRepository{db: db.result}
}

func (repo *resultRepository) UpsertResult(_ context.Context, res results.StudentResult, _ ...core.DBExecutor) (results.StudentResult, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := keyOf(res)
	if orig, ok := repo.db.table[key]; ok {
		res.ID = orig.ID
		res.CreatedAt = orig.CreatedAt
	} else if res.ID == "" {
		res.ID = uuid.New().String()
	}
	res = cloneResult(res)
	repo.db.table[key] = res
	return cloneResult(res), nil
}

func (repo *resultRepository) QueryResults(_ context.Context, scope results.Scope, _ ...core.DBExecutor) ([]results.StudentResult, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]results.StudentResult, 0)
	for k, r := range repo.db.table {
		if k.Scope == scope {
			records = append(records, cloneResult(r))
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].AdmissionNumber < records[j].AdmissionNumber })
	return records, nil
}

func (repo *resultRepository) GetResult(_ context.Context, scope results.Scope, studentID string, _ ...core.DBExecutor) (results.StudentResult, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if r, ok := repo.db.table[resultKey{Scope: scope, StudentID: studentID}]; ok {
		return cloneResult(r), nil
	}
	return results.StudentResult{}, results.ErrNotFound
}

func (repo *resultRepository) UpdateStatistics(_ context.Context, records []results.StudentResult, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, rec := range records {
		key := keyOf(rec)
		orig, ok := repo.db.table[key]
		if !ok {
			return results.ErrNotFound
		}
		orig.Subjects = rec.Subjects
		orig.OverallPosition = rec.OverallPosition
		repo.db.table[key] = cloneResult(orig)
	}
	return nil
}

type rosterRepository struct {
	db *studentTable
}

var _ results.Roster = (*rosterRepository)(nil) // interface compliance check

// NewRoster returns the in-memory class roster; students are added with AddStudent.
func NewRoster(db *DB) *rosterRepository {
	return &rosterRepository{db: db.student}
}

func (repo *rosterRepository) AddStudent(_ context.Context, s results.Student) (results.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	repo.db.table[s.ID] = s
	return s, nil
}

func (repo *rosterRepository) FindStudent(_ context.Context, schoolID, classID, admissionNumber string) (results.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.table {
		if s.SchoolID == schoolID && s.ClassID == classID && s.AdmissionNumber == admissionNumber {
			return s, nil
		}
	}
	return results.Student{}, results.ErrStudentNotFound
}
