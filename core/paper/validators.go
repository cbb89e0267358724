package paper

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/gradewise/gradewise/core"
)

var (
	difficultyTag  = "difficulty"
	difficultyText = "must be one of: " + strings.Join(Difficulties, ", ")
)

// InitValidators registers the paper specific validation tags and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(difficultyTag, difficultyValidation)
	core.RegisterCustomTranslation(validate, translator, difficultyTag, difficultyText)
}

// Custom Validators

// difficultyValidation checks that the value is one of Difficulties
func difficultyValidation(fl validator.FieldLevel) bool {
	if d, ok := fl.Field().Interface().(string); ok {
		for _, known := range Difficulties {
			if d == known {
				return true
			}
		}
	}
	return false
}
