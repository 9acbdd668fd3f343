package grading

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
)

var (
	bandsOverlapTag  = "bandsoverlap"
	bandsOverlapText = "grade bands must not overlap"

	bandsCoverageTag  = "bandscoverage"
	bandsCoverageText = "grade bands must cover every score from 0 to 100"

	errBandsOverlap  = errors.New(bandsOverlapText)
	errBandsCoverage = errors.New(bandsCoverageText)
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(scaleStructValidation, NewScale{})
	core.RegisterCustomTranslation(validate, translator, bandsOverlapTag, bandsOverlapText)
	core.RegisterCustomTranslation(validate, translator, bandsCoverageTag, bandsCoverageText)
}

// ValidateBands checks that no two bands overlap and that every integer score in [0,100] falls in a band.
func ValidateBands(bands []Band) error {
	for i := 0; i < len(bands); i++ {
		for j := i + 1; j < len(bands); j++ {
			a, b := bands[i], bands[j]
			if a.MinScore <= b.MaxScore && b.MinScore <= a.MaxScore {
				return errors.Wrap(errBandsOverlap, fmt.Sprintf("%q and %q", a.Label, b.Label))
			}
		}
	}
	for score := 0; score <= 100; score++ {
		covered := false
		for _, b := range bands {
			if b.Contains(float64(score)) {
				covered = true
				break
			}
		}
		if !covered {
			return errors.Wrap(errBandsCoverage, fmt.Sprintf("no band for %d", score))
		}
	}
	return nil
}

func scaleStructValidation(sl validator.StructLevel) {
	ns, ok := sl.Current().Interface().(NewScale)
	if !ok || len(ns.Bands) == 0 {
		return
	}
	switch errors.Cause(ValidateBands(ns.Bands)) {
	case errBandsOverlap:
		sl.ReportError(ns.Bands, "bands", "Bands", bandsOverlapTag, "")
	case errBandsCoverage:
		sl.ReportError(ns.Bands, "bands", "Bands", bandsCoverageTag, "")
	}
}
