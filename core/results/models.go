package results

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grading"
)

// Scope bounds every ranking and averaging computation.
type Scope struct {
	SchoolID  string `json:"school_id" db:"school_id" validate:"required"`
	ClassID   string `json:"class_id" db:"class_id" validate:"required"`
	SessionID string `json:"session_id" db:"session_id" validate:"required"`
	TermID    string `json:"term_id" db:"term_id" validate:"required"`
}

func (s Scope) Key() string {
	return strings.Join([]string{s.SchoolID, s.ClassID, s.SessionID, s.TermID}, ":")
}

func (s Scope) LogFields() core.LogFields {
	return core.LogFields{
		"school_id":  s.SchoolID,
		"class_id":   s.ClassID,
		"session_id": s.SessionID,
		"term_id":    s.TermID,
	}
}

func (s Scope) String() string { return s.Key() }

type (
	Component struct {
		Name   string `json:"name" validate:"required,notblank"`
		Weight int    `json:"weight" validate:"min=0,max=100"`
	}

	// ExamConfig describes the four sub-scores of a subject block (CA1, CA2, Project, Exam).
	// Weights are descriptive: raw sub-scores are summed as is.
	ExamConfig struct {
		Components []Component `json:"components" validate:"required,len=4,dive"`
	}

	TraitSet struct {
		AffectiveTraits   []string `json:"affective_traits" validate:"dive,required,notblank"`
		PsychomotorSkills []string `json:"psychomotor_skills" validate:"dive,required,notblank"`
	}
)

func DefaultExamConfig() ExamConfig {
	return ExamConfig{Components: []Component{
		{Name: "CA1", Weight: 10},
		{Name: "CA2", Weight: 10},
		{Name: "Project", Weight: 20},
		{Name: "Exam", Weight: 60},
	}}
}

func (ec ExamConfig) TotalWeight() int {
	var total int
	for _, c := range ec.Components {
		total += c.Weight
	}
	return total
}

func (ec *ExamConfig) Validate(validate *validator.Validate) error {
	for i := range ec.Components {
		ec.Components[i].Name = core.CleanString(ec.Components[i].Name)
	}
	return validate.Struct(ec)
}

func (ts *TraitSet) Clean() {
	for i := range ts.AffectiveTraits {
		ts.AffectiveTraits[i] = core.CleanString(ts.AffectiveTraits[i])
	}
	for i := range ts.PsychomotorSkills {
		ts.PsychomotorSkills[i] = core.CleanString(ts.PsychomotorSkills[i])
	}
}

type (
	Student struct {
		ID              string `json:"id" db:"id"`
		SchoolID        string `json:"school_id" db:"school_id"`
		ClassID         string `json:"class_id" db:"class_id"`
		AdmissionNumber string `json:"admission_number" db:"admission_number"`
		Name            string `json:"name" db:"name"`
	}

	Attendance struct {
		DaysPresent    int `json:"days_present"`
		DaysSchoolOpen int `json:"days_school_open"`
	}

	Demographics struct {
		Sex            string `json:"sex,omitempty"`
		DateOfBirth    string `json:"date_of_birth,omitempty"`
		Age            string `json:"age,omitempty"`
		Height         string `json:"height,omitempty"`
		Weight         string `json:"weight,omitempty"`
		FavouriteColor string `json:"favourite_color,omitempty"`
	}

	SubjectScores struct {
		CA1     float64 `json:"ca1"`
		CA2     float64 `json:"ca2"`
		Project float64 `json:"project"`
		Exam    float64 `json:"exam"`
	}

	SubjectOutcome struct {
		SubjectScores
		Total           float64 `json:"total"`
		Grade           string  `json:"grade"`
		ClassAverage    float64 `json:"class_average"`
		PositionInClass int     `json:"position_in_class"`
		Remark          string  `json:"remark"`
	}
)

func (s SubjectScores) Total() float64 {
	return s.CA1 + s.CA2 + s.Project + s.Exam
}

// TraitValue is either a 1-5 score or a qualitative label kept verbatim.
type TraitValue struct {
	Score *int
	Label string
}

func TraitScore(score int) TraitValue { return TraitValue{Score: &score} }

func TraitLabel(label string) TraitValue { return TraitValue{Label: label} }

func (tv TraitValue) String() string {
	if tv.Score != nil {
		return fmt.Sprint(*tv.Score)
	}
	return tv.Label
}

func (tv TraitValue) MarshalJSON() ([]byte, error) {
	if tv.Score != nil {
		return json.Marshal(*tv.Score)
	}
	return json.Marshal(tv.Label)
}

func (tv *TraitValue) UnmarshalJSON(data []byte) error {
	var score int
	if err := json.Unmarshal(data, &score); err == nil {
		*tv = TraitScore(score)
		return nil
	}
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	*tv = TraitLabel(label)
	return nil
}

// StudentResult is unique per (school, class, session, term, student).
type StudentResult struct {
	ID string `json:"id"`
	Scope
	StudentID        string                    `json:"student_id"`
	AdmissionNumber  string                    `json:"admission_number"`
	StudentName      string                    `json:"student_name"`
	Demographics     Demographics              `json:"demographics"`
	Attendance       Attendance                `json:"attendance"`
	Subjects         map[string]SubjectOutcome `json:"subjects"`
	Affective        map[string]TraitValue     `json:"affective"`
	Psychomotor      map[string]TraitValue     `json:"psychomotor"`
	OverallAverage   float64                   `json:"overall_average"`
	OverallPosition  int                       `json:"overall_position"`
	OverallRemark    string                    `json:"overall_remark"`
	PrincipalComment string                    `json:"principal_comment"`
	TutorComment     string                    `json:"tutor_comment"`
	CreatedAt        time.Time                 `json:"created_at"` // UTC
	UpdatedAt        time.Time                 `json:"updated_at"` // UTC
}

// ParsedStudentRow is one data row of an import file. Row is the 1-based line number in the file.
type ParsedStudentRow struct {
	Row              int
	AdmissionNumber  string
	Name             string
	Attendance       Attendance
	Demographics     Demographics
	Scores           map[string]SubjectScores
	Affective        map[string]TraitValue
	Psychomotor      map[string]TraitValue
	PrincipalComment string
	TutorComment     string
}

type NoteKind string

const (
	NoteSchemaMappingMiss NoteKind = "schema_mapping_miss"
	NoteMalformedCell     NoteKind = "malformed_cell"
)

// Note records a recovered problem. Row is 0 for header level notes.
type Note struct {
	Row     int      `json:"row,omitempty"`
	Field   string   `json:"field"`
	Kind    NoteKind `json:"kind"`
	Message string   `json:"message"`
}

func (n Note) String() string {
	if n.Row > 0 {
		return fmt.Sprintf("row %d: %s: %s", n.Row, n.Field, n.Message)
	}
	return fmt.Sprintf("%s: %s", n.Field, n.Message)
}

type ImportSummary struct {
	Scope
	ImportedCount int      `json:"imported_count"`
	SkippedCount  int      `json:"skipped_count"`
	Notes         []Note   `json:"notes"`
	Errors        []string `json:"errors"`
}

func newImportSummary(scope Scope, imported, skipped int, notes []Note) ImportSummary {
	errs := make([]string, 0, len(notes))
	for _, n := range notes {
		errs = append(errs, n.String())
	}
	if notes == nil {
		notes = []Note{}
	}
	return ImportSummary{
		Scope:         scope,
		ImportedCount: imported,
		SkippedCount:  skipped,
		Notes:         notes,
		Errors:        errs,
	}
}

// ImportRequest carries everything an import needs besides the file itself.
// Scale is the school's default scale when nil.
type ImportRequest struct {
	Scope
	ExamConfig     ExamConfig     `json:"exam_config"`
	Subjects       []string       `json:"subjects" validate:"required,min=1,unique,dive,required,notblank"`
	Traits         TraitSet       `json:"traits"`
	Format         string         `json:"format" validate:"omitempty,oneof=csv xlsx"`
	DaysSchoolOpen int            `json:"days_school_open" validate:"min=0"`
	Scale          *grading.Scale `json:"-"`
}

func (req *ImportRequest) Validate(validate *validator.Validate) error {
	for i := range req.Subjects {
		req.Subjects[i] = core.CleanString(req.Subjects[i])
	}
	req.Traits.Clean()
	req.Format = core.CleanString(req.Format, true /* lower */)
	for i := range req.ExamConfig.Components {
		req.ExamConfig.Components[i].Name = core.CleanString(req.ExamConfig.Components[i].Name)
	}
	return validate.Struct(req)
}
