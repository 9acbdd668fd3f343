package setup

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/results"
)

type Step string

const (
	StepExamConfig        Step = "exam_config"
	StepAffectiveTraits   Step = "affective_traits"
	StepPsychomotorSkills Step = "psychomotor_skills"
	StepSignOff           Step = "sign_off"
)

// Steps in wizard order.
var Steps = []Step{StepExamConfig, StepAffectiveTraits, StepPsychomotorSkills, StepSignOff}

type SignOff struct {
	PrincipalName  string `json:"principal_name" validate:"required,notblank"`
	TutorName      string `json:"tutor_name"`
	NextTermBegins string `json:"next_term_begins"`
}

// Session is a school's work-in-progress results configuration.
type Session struct {
	SchoolID       string              `json:"school_id"`
	CurrentStep    Step                `json:"current_step"`
	CompletedSteps []Step              `json:"completed_steps"`
	ExamConfig     *results.ExamConfig `json:"exam_config"`
	Traits         results.TraitSet    `json:"traits"`
	SignOff        *SignOff            `json:"sign_off"`
	UpdatedAt      time.Time           `json:"updated_at"` // UTC
}

func newSession(schoolID string) Session {
	return Session{
		SchoolID:       schoolID,
		CurrentStep:    StepExamConfig,
		CompletedSteps: []Step{},
		Traits:         results.TraitSet{AffectiveTraits: []string{}, PsychomotorSkills: []string{}},
	}
}

func (s Session) IsCompleted(step Step) bool {
	for _, st := range s.CompletedSteps {
		if st == step {
			return true
		}
	}
	return false
}

// complete marks step as done and moves CurrentStep to the first step not done yet.
func (s *Session) complete(step Step) {
	if !s.IsCompleted(step) {
		s.CompletedSteps = append(s.CompletedSteps, step)
	}
	for _, st := range Steps {
		if !s.IsCompleted(st) {
			s.CurrentStep = st
			return
		}
	}
	s.CurrentStep = step
}

// TraitList is the body of the trait and skill steps.
type TraitList struct {
	Items []string `json:"items" validate:"unique,dive,required,notblank"`
}

func (tl *TraitList) Validate(validate *validator.Validate) error {
	for i := range tl.Items {
		tl.Items[i] = core.CleanString(tl.Items[i])
	}
	if tl.Items == nil {
		tl.Items = []string{}
	}
	return validate.Struct(tl)
}

func (so *SignOff) Validate(validate *validator.Validate) error {
	so.PrincipalName = core.CleanString(so.PrincipalName)
	so.TutorName = core.CleanString(so.TutorName)
	so.NextTermBegins = core.CleanString(so.NextTermBegins)
	return validate.Struct(so)
}

// FinalizeRequest turns the session into a results instance for one class, session and term.
type FinalizeRequest struct {
	ClassID   string   `json:"class_id" validate:"required"`
	SessionID string   `json:"session_id" validate:"required"`
	TermID    string   `json:"term_id" validate:"required"`
	Name      string   `json:"name" validate:"required,notblank"`
	Subjects  []string `json:"subjects" validate:"required,min=1,unique,dive,required,notblank"`
}
