package instance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/results"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

type SourceFile struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Format     string    `json:"format"`
	UploadedAt time.Time `json:"uploaded_at"` // UTC
}

// Instance is one versioned gradebook configuration of a scope. At most one instance per scope is active.
type Instance struct {
	ID string `json:"id"`
	results.Scope
	Name       string             `json:"name"`
	Version    int                `json:"version"`
	Subjects   []string           `json:"subjects"`
	ExamConfig results.ExamConfig `json:"exam_config"`
	Traits     results.TraitSet   `json:"traits"`
	SourceFile *SourceFile        `json:"source_file"`
	Status     Status             `json:"status"`
	CreatedAt  time.Time          `json:"created_at"`  // UTC
	ArchivedAt *time.Time         `json:"archived_at"` // UTC
}

func (inst Instance) IsActive() bool { return inst.Status == StatusActive }

// ImportRequest builds the import request frozen by this instance.
func (inst Instance) ImportRequest(format string, daysSchoolOpen int) results.ImportRequest {
	return results.ImportRequest{
		Scope:          inst.Scope,
		ExamConfig:     inst.ExamConfig,
		Subjects:       append([]string(nil), inst.Subjects...),
		Traits:         inst.Traits,
		Format:         format,
		DaysSchoolOpen: daysSchoolOpen,
	}
}

// NewInstance contains information needed to create a new Instance.
type NewInstance struct {
	results.Scope
	Name       string             `json:"name" validate:"required,notblank"`
	Subjects   []string           `json:"subjects" validate:"required,min=1,unique,dive,required,notblank"`
	ExamConfig results.ExamConfig `json:"exam_config"`
	Traits     results.TraitSet   `json:"traits"`
	SourceFile *SourceFile        `json:"source_file"`
}

func (ni *NewInstance) Validate(validate *validator.Validate) error {
	ni.Name = core.CleanString(ni.Name)
	for i := range ni.Subjects {
		ni.Subjects[i] = core.CleanString(ni.Subjects[i])
	}
	for i := range ni.ExamConfig.Components {
		ni.ExamConfig.Components[i].Name = core.CleanString(ni.ExamConfig.Components[i].Name)
	}
	ni.Traits.Clean()
	return validate.Struct(ni)
}

// QueryFilter applies AND on its set fields.
type QueryFilter struct {
	SchoolID  string `query:"-"`
	ClassID   string `query:"class_id"`
	SessionID string `query:"session_id"`
	TermID    string `query:"term_id"`
	Status    Status `query:"status"`
}

func (f *QueryFilter) Clean() {
	f.ClassID = core.CleanString(f.ClassID)
	f.SessionID = core.CleanString(f.SessionID)
	f.TermID = core.CleanString(f.TermID)
	f.Status = Status(core.CleanString(string(f.Status), true /* lower */))
}

func (f QueryFilter) Match(inst Instance) bool {
	return (f.SchoolID == "" || inst.SchoolID == f.SchoolID) &&
		(f.ClassID == "" || inst.ClassID == f.ClassID) &&
		(f.SessionID == "" || inst.SessionID == f.SessionID) &&
		(f.TermID == "" || inst.TermID == f.TermID) &&
		(f.Status == "" || inst.Status == f.Status)
}
