package results

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
)

var (
	weightSumTag  = "weightsum"
	weightSumText = "component weights must add up to 100"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(examConfigStructValidation, ExamConfig{})
	core.RegisterCustomTranslation(validate, translator, weightSumTag, weightSumText)
}

// examConfigStructValidation checks that component weights sum to exactly 100.
func examConfigStructValidation(sl validator.StructLevel) {
	ec, ok := sl.Current().Interface().(ExamConfig)
	if !ok || len(ec.Components) == 0 {
		return
	}
	if ec.TotalWeight() != 100 {
		sl.ReportError(ec.Components, "components", "Components", weightSumTag, "")
	}
}
