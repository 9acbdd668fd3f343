package grading

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
)

const defaultRemark = "Good"

var remarks = map[string]string{
	"A": "Excellent",
	"B": "Very Good",
	"C": "Good",
	"D": "Fair",
	"E": "Poor",
	"F": "Poor",
}

// Remark returns the fixed subject remark for a grade label.
func Remark(grade string) string {
	if r, ok := remarks[grade]; ok {
		return r
	}
	return defaultRemark
}

// Band maps the inclusive score range [MinScore, MaxScore] to Label.
type Band struct {
	Label    string  `json:"label" validate:"required,notblank"`
	MinScore float64 `json:"min_score" validate:"min=0,max=100"`
	MaxScore float64 `json:"max_score" validate:"min=0,max=100,gtefield=MinScore"`
}

func (b Band) Contains(score float64) bool {
	return b.MinScore <= score && score <= b.MaxScore
}

type Scale struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"is_default"`
	Bands     []Band    `json:"bands"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Resolve returns the label of the first band containing score.
// Bands are assumed valid (see ValidateBands), which only checks integer scores: a fractional
// score in [0,100] between two bands (79.5 with B at 70-79 and A at 80-100) takes the band it lies
// above. The lowest band is the fallback when nothing matches.
func (s Scale) Resolve(score float64) string {
	for _, b := range s.Bands {
		if b.Contains(score) {
			return b.Label
		}
	}
	if score >= 0 && score <= 100 {
		var (
			below Band
			found bool
		)
		for _, b := range s.Bands {
			if b.MinScore <= score && (!found || b.MinScore > below.MinScore) {
				below, found = b, true
			}
		}
		if found {
			return below.Label
		}
	}
	return s.LowestBand().Label
}

// LowestBand returns the band with the smallest MinScore.
func (s Scale) LowestBand() Band {
	var lowest Band
	for i, b := range s.Bands {
		if i == 0 || b.MinScore < lowest.MinScore {
			lowest = b
		}
	}
	return lowest
}

// NewScale contains information needed to create a new Scale.
type NewScale struct {
	SchoolID  string `json:"school_id" validate:"required"`
	Name      string `json:"name" validate:"required,notblank"`
	IsDefault bool   `json:"is_default"`
	Bands     []Band `json:"bands" validate:"required,min=1,dive"`
}

func (ns *NewScale) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	for i := range ns.Bands {
		ns.Bands[i].Label = core.CleanString(ns.Bands[i].Label)
	}
	return validate.Struct(ns)
}
