package grading

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core"
)

func waecScale() Scale {
	return Scale{
		Name: "WAEC",
		Bands: []Band{
			{Label: "A", MinScore: 80, MaxScore: 100},
			{Label: "B", MinScore: 70, MaxScore: 79},
			{Label: "C", MinScore: 60, MaxScore: 69},
			{Label: "D", MinScore: 50, MaxScore: 59},
			{Label: "E", MinScore: 40, MaxScore: 49},
			{Label: "F", MinScore: 0, MaxScore: 39},
		},
	}
}

func TestScale_Resolve(t *testing.T) {
	scale := waecScale()

	tests := []struct {
		name  string
		score float64
		want  string
	}{
		{name: "lower bound", score: 0, want: "F"},
		{name: "upper bound", score: 100, want: "A"},
		{name: "band min", score: 80, want: "A"},
		{name: "band max", score: 79, want: "B"},
		{name: "73 is B", score: 73, want: "B"},
		{name: "fraction between bands takes the band below", score: 79.5, want: "B"},
		{name: "fraction just under the top band", score: 79.99, want: "B"},
		{name: "fraction between E and F", score: 39.5, want: "F"},
		{name: "fraction between C and B", score: 69.4, want: "C"},
		{name: "above range falls back to lowest", score: 140, want: "F"},
		{name: "negative falls back to lowest", score: -3, want: "F"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scale.Resolve(tt.score))
		})
	}
}

func TestScale_Resolve_total(t *testing.T) {
	scale := waecScale()
	require.NoError(t, ValidateBands(scale.Bands))

	for score := 0; score <= 100; score++ {
		matches := 0
		for _, b := range scale.Bands {
			if b.Contains(float64(score)) {
				matches++
			}
		}
		if matches != 1 {
			t.Fatalf("score %d matched %d bands", score, matches)
		}
		if label := scale.Resolve(float64(score)); label == "" {
			t.Fatalf("Resolve(%d) returned no label", score)
		}
	}
}

func TestScale_LowestBand(t *testing.T) {
	assert.Equal(t, "F", waecScale().LowestBand().Label)
	assert.Equal(t, Band{}, Scale{}.LowestBand())
	assert.Equal(t, "", Scale{}.Resolve(50))
}

func TestRemark(t *testing.T) {
	tests := map[string]string{
		"A": "Excellent",
		"B": "Very Good",
		"C": "Good",
		"D": "Fair",
		"E": "Poor",
		"F": "Poor",
		"P": "Good",
		"":  "Good",
	}
	for grade, want := range tests {
		assert.Equal(t, want, Remark(grade), "Remark(%q)", grade)
	}
}

func TestValidateBands(t *testing.T) {
	tests := []struct {
		name    string
		bands   []Band
		wantErr error
	}{
		{name: "valid", bands: waecScale().Bands},
		{
			name:    "overlap",
			bands:   []Band{{Label: "P", MinScore: 50, MaxScore: 100}, {Label: "F", MinScore: 0, MaxScore: 50}},
			wantErr: errBandsOverlap,
		},
		{
			name:    "gap",
			bands:   []Band{{Label: "P", MinScore: 51, MaxScore: 100}, {Label: "F", MinScore: 0, MaxScore: 49}},
			wantErr: errBandsCoverage,
		},
		{
			name:    "does not reach 100",
			bands:   []Band{{Label: "P", MinScore: 50, MaxScore: 99}, {Label: "F", MinScore: 0, MaxScore: 49}},
			wantErr: errBandsCoverage,
		},
		{name: "empty", wantErr: errBandsCoverage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBands(tt.bands)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantErr, errors.Cause(err))
		})
	}
}

func TestNewScale_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	tests := []struct {
		name      string
		scale     NewScale
		wantField string
	}{
		{name: "valid", scale: NewScale{SchoolID: "s1", Name: " WAEC ", Bands: waecScale().Bands}},
		{name: "blank name", scale: NewScale{SchoolID: "s1", Name: "  ", Bands: waecScale().Bands}, wantField: "name"},
		{name: "no bands", scale: NewScale{SchoolID: "s1", Name: "x"}, wantField: "bands"},
		{
			name: "gap in bands",
			scale: NewScale{SchoolID: "s1", Name: "x", Bands: []Band{
				{Label: "P", MinScore: 60, MaxScore: 100}, {Label: "F", MinScore: 0, MaxScore: 49},
			}},
			wantField: "bands",
		},
		{
			name: "inverted band",
			scale: NewScale{SchoolID: "s1", Name: "x", Bands: []Band{
				{Label: "P", MinScore: 100, MaxScore: 0},
			}},
			wantField: "max_score",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scale.Validate(validate)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, "WAEC", tt.scale.Name)
				return
			}
			require.Error(t, err)
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "want validator.ValidationErrors, got %T", err)
			fields := make([]string, 0, len(vErrs))
			for _, fe := range vErrs {
				fields = append(fields, fe.Field())
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}
