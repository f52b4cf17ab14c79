package plan

import (
	"sort"
	"strconv"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/dtsmedt/PlanOfStudy/core"
	"github.com/dtsmedt/PlanOfStudy/core/catalog"
	"github.com/dtsmedt/PlanOfStudy/core/term"
)

var (
	termIDTag  = "termid"
	termIDText = "{0} must be a valid term"

	transferGradeTag  = "transfergrade"
	transferGradeText = "grade must be 'A' or 'B'"
	transferGrades    = map[string]bool{"A": true, "B": true}

	// MaxUserCreditHours bounds the credit hours a student may enter for a variable-credit course.
	MaxUserCreditHours = 18
)

// InitValidators registers the plan validation rules.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(termIDTag, termIDValidation)
	core.RegisterCustomTranslation(validate, translator, termIDTag, termIDText)

	_ = validate.RegisterValidation(transferGradeTag, transferGradeValidation)
	core.RegisterCustomTranslation(validate, translator, transferGradeTag, transferGradeText)
}

// Custom Validators

func termIDValidation(fl validator.FieldLevel) bool {
	return term.ID(fl.Field().Int()).Valid()
}

func transferGradeValidation(fl validator.FieldLevel) bool {
	return transferGrades[strings.ToUpper(strings.TrimSpace(fl.Field().String()))]
}

// Resolution rules shared by every write of a planned course.

// ResolveCreditHours uses the catalog credits for fixed-credit courses. Variable-credit
// (zero credit) courses take the provided value when it is within [0, MaxUserCreditHours], else 0.
func ResolveCreditHours(course catalog.Course, provided *int) int {
	if course.Credits > 0 {
		return course.Credits
	}
	if provided != nil && *provided >= 0 && *provided <= MaxUserCreditHours {
		return *provided
	}
	return 0
}

// ResolveArea picks the area a planned course counts toward.
// An explicit area wins if the course is mapped to it; otherwise the course's only area is used.
// A course with no area is a validation error, one with several areas is an ambiguous-input error.
func ResolveArea(course catalog.Course, provided *int) (int, error) {
	if provided != nil {
		if !course.HasArea(*provided) {
			return 0, core.NewValidationError(
				errors.Errorf("Invalid course_area=%d for course %d. Allowed: %s", *provided, course.ID, joinAreas(course.Areas)),
				core.FieldError{Field: "course_area", Error: "course is not mapped to this area"},
			)
		}
		return *provided, nil
	}

	switch len(course.Areas) {
	case 1:
		return course.Areas[0], nil
	case 0:
		return 0, core.NewValidationError(
			errors.New("course_area is required: course has no mapped areas."),
			core.FieldError{Field: "course_area", Error: "course has no mapped areas"},
		)
	default:
		candidates := append([]int(nil), course.Areas...)
		sort.Ints(candidates)
		return 0, core.NewAmbiguousError(
			"course_area",
			errors.New("course_area is ambiguous: course maps to multiple areas. Provide course_area explicitly."),
			candidates...,
		)
	}
}

func joinAreas(areas []int) string {
	if len(areas) == 0 {
		return "none"
	}
	strs := make([]string, 0, len(areas))
	for _, a := range areas {
		strs = append(strs, strconv.Itoa(a))
	}
	return strings.Join(strs, ", ")
}
