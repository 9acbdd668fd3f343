package results

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grading"
)

var (
	// errors
	ErrNotFound         = errors.New("result not found")
	ErrStudentNotFound  = errors.New("student not found")
	ErrUnknownStudent   = errors.New("student is not enrolled in this class")
	ErrDuplicateStudent = errors.New("student is listed more than once")
	ErrMalformedFile    = errors.New("malformed import file")
	ErrScopeBusy        = errors.New("another import is running for this class, session and term")
)

// UnknownStudentError aborts an import: the file lists a student the class roster does not have.
type UnknownStudentError struct {
	Row             int
	AdmissionNumber string
}

func (err *UnknownStudentError) Error() string {
	return fmt.Sprintf("row %d: %s: %q", err.Row, ErrUnknownStudent, err.AdmissionNumber)
}

// DuplicateStudentError aborts an import: two rows carry the same admission number.
type DuplicateStudentError struct {
	Row             int
	FirstRow        int
	AdmissionNumber string
}

func (err *DuplicateStudentError) Error() string {
	return fmt.Sprintf("row %d: %s: %q (first listed on row %d)", err.Row, ErrDuplicateStudent, err.AdmissionNumber, err.FirstRow)
}

type (
	Repository interface {
		// UpsertResult inserts or fully replaces the result keyed by its scope and student.
		UpsertResult(ctx context.Context, res StudentResult, exec ...core.DBExecutor) (StudentResult, error)
		QueryResults(ctx context.Context, scope Scope, exec ...core.DBExecutor) ([]StudentResult, error)
		GetResult(ctx context.Context, scope Scope, studentID string, exec ...core.DBExecutor) (StudentResult, error)
		// UpdateStatistics persists positions, class averages and subject outcomes of records.
		UpdateStatistics(ctx context.Context, records []StudentResult, exec ...core.DBExecutor) error
	}

	// Roster returns ErrStudentNotFound for unknown admission numbers.
	Roster interface {
		FindStudent(ctx context.Context, schoolID, classID, admissionNumber string) (Student, error)
	}

	// ScaleFinder returns grading.ErrNoGradingScale when the school has no default scale.
	ScaleFinder interface {
		GetDefault(ctx context.Context, schoolID string) (grading.Scale, error)
	}

	ServiceDeps struct {
		Repo           Repository
		Roster         Roster
		Scales         ScaleFinder
		Tx             core.TxRunner
		Locker         core.Locker
		Logger         core.Logger
		Validate       *validator.Validate
		PlaceholderIDs []string
	}

	Service struct {
		ServiceDeps
	}
)

func NewService(deps ServiceDeps) *Service {
	return &Service{ServiceDeps: deps}
}

// Import ingests one gradebook file into req's scope, then recomputes the scope statistics.
// Either every row is stored and ranked, or nothing is.
func (svc *Service) Import(ctx context.Context, req ImportRequest, file io.Reader) (ImportSummary, error) {
	if err := req.Validate(svc.Validate); err != nil {
		return ImportSummary{}, err
	}
	scope := req.Scope
	svc.Logger.Info("import.started", scope.LogFields())

	scale, err := svc.scaleFor(ctx, req)
	if err != nil {
		return ImportSummary{}, err
	}

	rows, err := ReadRows(req.Format, file)
	if err != nil {
		return ImportSummary{}, err
	}
	if len(rows) < FirstDataRow {
		return ImportSummary{}, errors.Wrap(ErrMalformedFile, "missing header rows")
	}

	schema := MapSchema(rows[0], rows[1], req.Subjects, req.Traits, svc.Logger)
	parsed, skipped, rowNotes := ParseRows(rows, schema, ParseOptions{
		PlaceholderIDs: svc.PlaceholderIDs,
		DaysSchoolOpen: req.DaysSchoolOpen,
	})
	notes := append(schema.Notes, rowNotes...)

	// every student must be listed once and exist before anything is written
	built := make([]StudentResult, 0, len(parsed))
	seen := make(map[string]int, len(parsed))
	for _, row := range parsed {
		if first, ok := seen[row.AdmissionNumber]; ok {
			return ImportSummary{}, &DuplicateStudentError{Row: row.Row, FirstRow: first, AdmissionNumber: row.AdmissionNumber}
		}
		seen[row.AdmissionNumber] = row.Row

		student, err := svc.Roster.FindStudent(ctx, scope.SchoolID, scope.ClassID, row.AdmissionNumber)
		if err != nil {
			if errors.Cause(err) == ErrStudentNotFound {
				return ImportSummary{}, &UnknownStudentError{Row: row.Row, AdmissionNumber: row.AdmissionNumber}
			}
			return ImportSummary{}, errors.Wrap(err, "finding student")
		}
		built = append(built, BuildResult(scope, student, row, scale))
	}

	err = svc.withScopeLock(ctx, scope, func() error {
		return svc.Tx.RunInTx(ctx, func(exec core.DBExecutor) error {
			now := core.NowFunc().UTC()
			for _, res := range built {
				res.ID = uuid.New().String()
				res.CreatedAt = now
				res.UpdatedAt = now
				if _, err := svc.Repo.UpsertResult(ctx, res, exec); err != nil {
					return errors.Wrap(err, "upserting result")
				}
			}
			_, err := svc.recompute(ctx, scope, exec)
			return err
		})
	})
	if err != nil {
		return ImportSummary{}, err
	}

	summary := newImportSummary(scope, len(built), skipped, notes)
	fields := scope.LogFields()
	fields["imported"] = summary.ImportedCount
	fields["skipped"] = summary.SkippedCount
	fields["notes"] = len(summary.Notes)
	svc.Logger.Info("import.finished", fields)
	return summary, nil
}

// Recompute rewrites the statistics of every result in scope.
func (svc *Service) Recompute(ctx context.Context, scope Scope) ([]StudentResult, error) {
	if err := svc.Validate.Struct(scope); err != nil {
		return nil, err
	}
	var records []StudentResult
	err := svc.withScopeLock(ctx, scope, func() error {
		return svc.Tx.RunInTx(ctx, func(exec core.DBExecutor) error {
			var err error
			records, err = svc.recompute(ctx, scope, exec)
			return err
		})
	})
	return records, err
}

func (svc *Service) recompute(ctx context.Context, scope Scope, exec core.DBExecutor) ([]StudentResult, error) {
	current, err := svc.Repo.QueryResults(ctx, scope, exec)
	if err != nil {
		return nil, errors.Wrap(err, "querying scope results")
	}
	records := Recompute(current)
	if err = svc.Repo.UpdateStatistics(ctx, records, exec); err != nil {
		return nil, errors.Wrap(err, "updating statistics")
	}

	fields := scope.LogFields()
	fields["records"] = len(records)
	svc.Logger.Info("recompute.finished", fields)
	return records, nil
}

// Query returns every result of scope ordered by overall position, then admission number.
func (svc *Service) Query(ctx context.Context, scope Scope) ([]StudentResult, error) {
	records, err := svc.Repo.QueryResults(ctx, scope)
	if err != nil {
		return nil, errors.Wrap(err, "querying results")
	}
	sortByPosition(records)
	return records, nil
}

func (svc *Service) Get(ctx context.Context, scope Scope, studentID string) (StudentResult, error) {
	return svc.Repo.GetResult(ctx, scope, studentID)
}

// Broadsheet writes the scope's results as an xlsx workbook.
func (svc *Service) Broadsheet(ctx context.Context, scope Scope, w io.Writer) error {
	records, err := svc.Query(ctx, scope)
	if err != nil {
		return err
	}
	return WriteBroadsheet(w, records)
}

func (svc *Service) scaleFor(ctx context.Context, req ImportRequest) (grading.Scale, error) {
	if req.Scale != nil {
		return *req.Scale, nil
	}
	scale, err := svc.Scales.GetDefault(ctx, req.SchoolID)
	if err != nil {
		if errors.Cause(err) == grading.ErrNoGradingScale {
			return grading.Scale{}, grading.ErrNoGradingScale
		}
		return grading.Scale{}, errors.Wrap(err, "finding default grading scale")
	}
	return scale, nil
}

func (svc *Service) withScopeLock(ctx context.Context, scope Scope, fn func() error) error {
	unlock, err := svc.Locker.TryLock(ctx, "results:"+scope.Key())
	if err != nil {
		if errors.Cause(err) == core.ErrLockHeld {
			return core.NewConflictError(ErrScopeBusy)
		}
		return errors.Wrap(err, "locking scope")
	}
	defer unlock()
	return fn()
}

func sortByPosition(records []StudentResult) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].OverallPosition != records[j].OverallPosition {
			return records[i].OverallPosition < records[j].OverallPosition
		}
		return records[i].AdmissionNumber < records[j].AdmissionNumber
	})
}
