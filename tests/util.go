package testutil

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/gradebook/core/grading"
	"github.com/trezcool/gradebook/core/results"
)

var (
	fixedHeaders = []string{"ID", "Name", "Attendance", "Sex", "DOB", "Age", "Height", "Weight", "Favourite Color"}
	subHeaders   = []string{"CA1", "CA2", "Project", "Exam"}
)

// Scope returns a valid scope of school "school-1".
func Scope(classID ...string) results.Scope {
	class := "jss1"
	if len(classID) > 0 {
		class = classID[0]
	}
	return results.Scope{SchoolID: "school-1", ClassID: class, SessionID: "2023-2024", TermID: "first"}
}

// Bands returns the usual A-F scale.
func Bands() []grading.Band {
	return []grading.Band{
		{Label: "A", MinScore: 80, MaxScore: 100},
		{Label: "B", MinScore: 70, MaxScore: 79},
		{Label: "C", MinScore: 60, MaxScore: 69},
		{Label: "D", MinScore: 50, MaxScore: 59},
		{Label: "E", MinScore: 40, MaxScore: 49},
		{Label: "F", MinScore: 0, MaxScore: 39},
	}
}

func Scale(schoolID string) grading.Scale {
	now := time.Now().UTC()
	return grading.Scale{
		ID:        "scale-" + schoolID,
		SchoolID:  schoolID,
		Name:      "Standard",
		IsDefault: true,
		Bands:     Bands(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Roster is implemented by the in-memory and postgres rosters.
type Roster interface {
	AddStudent(ctx context.Context, s results.Student) (results.Student, error)
}

// CreateStudents enrolls admissionNumbers in scope's class.
func CreateStudents(t *testing.T, roster Roster, scope results.Scope, admissionNumbers ...string) []results.Student {
	students := make([]results.Student, 0, len(admissionNumbers))
	for _, adm := range admissionNumbers {
		s, err := roster.AddStudent(context.Background(), results.Student{
			SchoolID:        scope.SchoolID,
			ClassID:         scope.ClassID,
			AdmissionNumber: adm,
			Name:            "Student " + adm,
		})
		require.NoError(t, err, "CreateStudents()")
		students = append(students, s)
	}
	return students
}

// Sheet builds gradebook files in the import layout: two header rows, the example row, then students.
type Sheet struct {
	Subjects    []string
	Affective   []string
	Psychomotor []string
	Comments    bool

	students [][]string
}

func NewSheet(subjects, affective, psychomotor []string) *Sheet {
	return &Sheet{Subjects: subjects, Affective: affective, Psychomotor: psychomotor, Comments: true}
}

func (s *Sheet) width() int {
	w := len(fixedHeaders) + len(s.Subjects)*len(subHeaders)
	w += len(s.Affective) + len(s.Psychomotor)
	if s.Comments {
		w += 2
	}
	return w
}

// Header returns the category and detail rows.
func (s *Sheet) Header() (category, detail []string) {
	category = make([]string, 0, s.width())
	detail = make([]string, 0, s.width())

	category = append(category, fixedHeaders...)
	detail = append(detail, make([]string, len(fixedHeaders))...)
	for _, subject := range s.Subjects {
		category = append(category, subject, "", "", "")
		detail = append(detail, subHeaders...)
	}
	section := func(marker string, names []string) {
		for i, name := range names {
			if i == 0 {
				category = append(category, marker)
			} else {
				category = append(category, "")
			}
			detail = append(detail, name)
		}
	}
	section("Affective Domains", s.Affective)
	section("Psychomotor Domains", s.Psychomotor)
	if s.Comments {
		category = append(category, "Comments", "")
		detail = append(detail, "Principal", "Tutor")
	}
	return category, detail
}

// StudentRow is one data row. Scores are the 4 sub-scores of a subject; missing subjects stay blank.
type StudentRow struct {
	ID         string
	Name       string
	Attendance string
	Sex        string
	Scores     map[string][4]string
	Traits     map[string]string
	Principal  string
	Tutor      string
}

func (s *Sheet) row(r StudentRow) []string {
	row := []string{r.ID, r.Name, r.Attendance, r.Sex, "", "", "", "", ""}
	for _, subject := range s.Subjects {
		scores := r.Scores[subject]
		row = append(row, scores[0], scores[1], scores[2], scores[3])
	}
	for _, name := range s.Affective {
		row = append(row, r.Traits[name])
	}
	for _, name := range s.Psychomotor {
		row = append(row, r.Traits[name])
	}
	if s.Comments {
		row = append(row, r.Principal, r.Tutor)
	}
	return row
}

func (s *Sheet) Add(rows ...StudentRow) *Sheet {
	for _, r := range rows {
		s.students = append(s.students, s.row(r))
	}
	return s
}

// Rows returns the whole sheet, example row included.
func (s *Sheet) Rows() [][]string {
	category, detail := s.Header()
	example := StudentRow{ID: "EX-001", Name: "Example Student", Attendance: "60/60", Scores: map[string][4]string{}}
	for _, subject := range s.Subjects {
		example.Scores[subject] = [4]string{"10", "10", "20", "60"}
	}
	rows := [][]string{category, detail, s.row(example)}
	return append(rows, s.students...)
}

func (s *Sheet) CSV(t *testing.T) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.WriteAll(s.Rows()), "Sheet.CSV()")
	return buf.Bytes()
}

func (s *Sheet) XLSX(t *testing.T) []byte {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, row := range s.Rows() {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err, "Sheet.XLSX()")
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &values), "Sheet.XLSX()")
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err, "Sheet.XLSX()")
	return buf.Bytes()
}
