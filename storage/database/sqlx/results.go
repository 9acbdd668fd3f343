package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/results"
)

const resultColumns = `id, school_id, class_id, session_id, term_id, student_id, admission_number, student_name,
	demographics, days_present, days_school_open, subjects, affective, psychomotor,
	overall_average, overall_position, overall_remark, principal_comment, tutor_comment, created_at, updated_at`

type resultRow struct {
	ID string `db:"id"`
	results.Scope
	StudentID        string         `db:"student_id"`
	AdmissionNumber  string         `db:"admission_number"`
	StudentName      string         `db:"student_name"`
	Demographics     types.JSONText `db:"demographics"`
	DaysPresent      int            `db:"days_present"`
	DaysSchoolOpen   int            `db:"days_school_open"`
	Subjects         types.JSONText `db:"subjects"`
	Affective        types.JSONText `db:"affective"`
	Psychomotor      types.JSONText `db:"psychomotor"`
	OverallAverage   float64        `db:"overall_average"`
	OverallPosition  int            `db:"overall_position"`
	OverallRemark    string         `db:"overall_remark"`
	PrincipalComment null.String    `db:"principal_comment"`
	TutorComment     null.String    `db:"tutor_comment"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func newResultRow(res results.StudentResult) (resultRow, error) {
	row := resultRow{
		ID:               res.ID,
		Scope:            res.Scope,
		StudentID:        res.StudentID,
		AdmissionNumber:  res.AdmissionNumber,
		StudentName:      res.StudentName,
		DaysPresent:      res.Attendance.DaysPresent,
		DaysSchoolOpen:   res.Attendance.DaysSchoolOpen,
		OverallAverage:   res.OverallAverage,
		OverallPosition:  res.OverallPosition,
		OverallRemark:    res.OverallRemark,
		PrincipalComment: null.NewString(res.PrincipalComment, res.PrincipalComment != ""),
		TutorComment:     null.NewString(res.TutorComment, res.TutorComment != ""),
		CreatedAt:        res.CreatedAt.UTC(),
		UpdatedAt:        res.UpdatedAt.UTC(),
	}
	var err error
	if row.Demographics, err = toJSON(res.Demographics); err != nil {
		return resultRow{}, err
	}
	if row.Subjects, err = toJSON(nonNilSubjects(res.Subjects)); err != nil {
		return resultRow{}, err
	}
	if row.Affective, err = toJSON(nonNilTraits(res.Affective)); err != nil {
		return resultRow{}, err
	}
	if row.Psychomotor, err = toJSON(nonNilTraits(res.Psychomotor)); err != nil {
		return resultRow{}, err
	}
	return row, nil
}

func (r resultRow) result() (results.StudentResult, error) {
	res := results.StudentResult{
		ID:               r.ID,
		Scope:            r.Scope,
		StudentID:        r.StudentID,
		AdmissionNumber:  r.AdmissionNumber,
		StudentName:      r.StudentName,
		Attendance:       results.Attendance{DaysPresent: r.DaysPresent, DaysSchoolOpen: r.DaysSchoolOpen},
		OverallAverage:   r.OverallAverage,
		OverallPosition:  r.OverallPosition,
		OverallRemark:    r.OverallRemark,
		PrincipalComment: r.PrincipalComment.String,
		TutorComment:     r.TutorComment.String,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
	for _, col := range []struct {
		data types.JSONText
		dest interface{}
	}{
		{r.Demographics, &res.Demographics},
		{r.Subjects, &res.Subjects},
		{r.Affective, &res.Affective},
		{r.Psychomotor, &res.Psychomotor},
	} {
		if err := fromJSON(col.data, col.dest); err != nil {
			return results.StudentResult{}, err
		}
	}
	res.Subjects = nonNilSubjects(res.Subjects)
	res.Affective = nonNilTraits(res.Affective)
	res.Psychomotor = nonNilTraits(res.Psychomotor)
	return res, nil
}

func nonNilSubjects(m map[string]results.SubjectOutcome) map[string]results.SubjectOutcome {
	if m == nil {
		return map[string]results.SubjectOutcome{}
	}
	return m
}

func nonNilTraits(m map[string]results.TraitValue) map[string]results.TraitValue {
	if m == nil {
		return map[string]results.TraitValue{}
	}
	return m
}

type resultRepository struct {
	repository
}

var _ results.Repository = (*resultRepository)(nil) // interface compliance check

func NewResultRepository(db *sqlx.DB) *resultRepository {
	return &resultRepository{repository{db: db}}
}

func (repo resultRepository) UpsertResult(ctx context.Context, res results.StudentResult, exec ...core.DBExecutor) (results.StudentResult, error) {
	ext, err := repo.getExec(exec)
	if err != nil {
		return results.StudentResult{}, err
	}
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	row, err := newResultRow(res)
	if err != nil {
		return results.StudentResult{}, err
	}

	query, args, err := sqlx.Named(`
		INSERT INTO student_result (`+resultColumns+`)
		VALUES (:id, :school_id, :class_id, :session_id, :term_id, :student_id, :admission_number, :student_name,
			:demographics, :days_present, :days_school_open, :subjects, :affective, :psychomotor,
			:overall_average, :overall_position, :overall_remark, :principal_comment, :tutor_comment, :created_at, :updated_at)
		ON CONFLICT ON CONSTRAINT student_result_uniq DO UPDATE SET
			admission_number = EXCLUDED.admission_number,
			student_name = EXCLUDED.student_name,
			demographics = EXCLUDED.demographics,
			days_present = EXCLUDED.days_present,
			days_school_open = EXCLUDED.days_school_open,
			subjects = EXCLUDED.subjects,
			affective = EXCLUDED.affective,
			psychomotor = EXCLUDED.psychomotor,
			overall_average = EXCLUDED.overall_average,
			overall_position = EXCLUDED.overall_position,
			overall_remark = EXCLUDED.overall_remark,
			principal_comment = EXCLUDED.principal_comment,
			tutor_comment = EXCLUDED.tutor_comment,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`, row)
	if err != nil {
		return results.StudentResult{}, errors.Wrap(err, "binding result")
	}

	var stored struct {
		ID        string    `db:"id"`
		CreatedAt time.Time `db:"created_at"`
	}
	if err = sqlx.GetContext(ctx, ext, &stored, ext.Rebind(query), args...); err != nil {
		return results.StudentResult{}, errors.Wrap(err, "upserting result")
	}
	res.ID = stored.ID
	res.CreatedAt = stored.CreatedAt.UTC()
	return res, nil
}

func (repo resultRepository) QueryResults(ctx context.Context, scope results.Scope, exec ...core.DBExecutor) ([]results.StudentResult, error) {
	ext, err := repo.getExec(exec)
	if err != nil {
		return nil, err
	}
	var rows []resultRow
	err = sqlx.SelectContext(ctx, ext, &rows,
		"SELECT "+resultColumns+` FROM student_result
		WHERE school_id = $1 AND class_id = $2 AND session_id = $3 AND term_id = $4
		ORDER BY admission_number`,
		scope.SchoolID, scope.ClassID, scope.SessionID, scope.TermID)
	if err != nil {
		return nil, errors.Wrap(err, "querying results")
	}

	records := make([]results.StudentResult, 0, len(rows))
	for _, r := range rows {
		res, err := r.result()
		if err != nil {
			return nil, err
		}
		records = append(records, res)
	}
	return records, nil
}

func (repo resultRepository) GetResult(ctx context.Context, scope results.Scope, studentID string, exec ...core.DBExecutor) (results.StudentResult, error) {
	ext, err := repo.getExec(exec)
	if err != nil {
		return results.StudentResult{}, err
	}
	var row resultRow
	err = sqlx.GetContext(ctx, ext, &row,
		"SELECT "+resultColumns+` FROM student_result
		WHERE school_id = $1 AND class_id = $2 AND session_id = $3 AND term_id = $4 AND student_id = $5`,
		scope.SchoolID, scope.ClassID, scope.SessionID, scope.TermID, studentID)
	if err != nil {
		return results.StudentResult{}, trapNoRowsErr(err, results.ErrNotFound, "finding result")
	}
	return row.result()
}

func (repo resultRepository) UpdateStatistics(ctx context.Context, records []results.StudentResult, exec ...core.DBExecutor) error {
	ext, err := repo.getExec(exec)
	if err != nil {
		return err
	}
	now := core.NowFunc().UTC()
	for _, rec := range records {
		subjects, err := toJSON(nonNilSubjects(rec.Subjects))
		if err != nil {
			return err
		}
		res, err := ext.ExecContext(ctx, `
			UPDATE student_result SET subjects = $1, overall_position = $2, updated_at = $3
			WHERE school_id = $4 AND class_id = $5 AND session_id = $6 AND term_id = $7 AND student_id = $8`,
			subjects, rec.OverallPosition, now,
			rec.SchoolID, rec.ClassID, rec.SessionID, rec.TermID, rec.StudentID,
		)
		if err != nil {
			return errors.Wrap(err, "updating result statistics")
		}
		if err = checkAffected(res, results.ErrNotFound, "updating result statistics"); err != nil {
			return err
		}
	}
	return nil
}

type rosterRepository struct {
	repository
}

var _ results.Roster = (*rosterRepository)(nil) // interface compliance check

func NewRoster(db *sqlx.DB) *rosterRepository {
	return &rosterRepository{repository{db: db}}
}

func (repo rosterRepository) AddStudent(ctx context.Context, s results.Student) (results.Student, error) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	_, err := sqlx.NamedExecContext(ctx, repo.db,
		`INSERT INTO student (id, school_id, class_id, admission_number, name)
		VALUES (:id, :school_id, :class_id, :admission_number, :name)`, s)
	if err != nil {
		return results.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo rosterRepository) FindStudent(ctx context.Context, schoolID, classID, admissionNumber string) (results.Student, error) {
	var s results.Student
	err := sqlx.GetContext(ctx, repo.db, &s,
		`SELECT id, school_id, class_id, admission_number, name FROM student
		WHERE school_id = $1 AND class_id = $2 AND admission_number = $3`,
		schoolID, classID, admissionNumber)
	if err != nil {
		return results.Student{}, trapNoRowsErr(err, results.ErrStudentNotFound, "finding student")
	}
	return s, nil
}
