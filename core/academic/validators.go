package academic

import (
	"regexp"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
)

var (
	classLevelTag  = "classlevel"
	classLevelText = "unknown class level"

	academicYearTag   = "academicyear"
	academicYearText  = "academic year must look like 2024/2025"
	academicYearRegex = regexp.MustCompile(`^(\d{4})/(\d{4})$`)

	termDatesTag  = "termdates"
	termDatesText = "term cannot end before it starts"
)

// InitValidators registers the academic validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(classLevelTag, classLevelValidation)
	core.RegisterCustomTranslation(validate, translator, classLevelTag, classLevelText)

	_ = validate.RegisterValidation(academicYearTag, academicYearValidation)
	core.RegisterCustomTranslation(validate, translator, academicYearTag, academicYearText)

	validate.RegisterStructValidation(termStructValidation, NewTerm{})
	core.RegisterCustomTranslation(validate, translator, termDatesTag, termDatesText)
}

func classLevelValidation(fl validator.FieldLevel) bool {
	return IsClassLevel(fl.Field().String())
}

// academicYearValidation accepts consecutive years: "2024/2025".
func academicYearValidation(fl validator.FieldLevel) bool {
	m := academicYearRegex.FindStringSubmatch(fl.Field().String())
	if m == nil {
		return false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	return end == start+1
}

func termStructValidation(sl validator.StructLevel) {
	nt, ok := sl.Current().Interface().(NewTerm)
	if !ok {
		return
	}
	if nt.StartsOn.Valid && nt.EndsOn.Valid && nt.EndsOn.Time.Before(nt.StartsOn.Time) {
		sl.ReportError(nt.EndsOn, "ends_on", "EndsOn", termDatesTag, "")
	}
}
