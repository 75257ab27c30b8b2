package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odunayomike/report-card-generator-sub003/internal/config"
	"github.com/odunayomike/report-card-generator-sub003/internal/models"
)

// Validator combines struct tag validation with exam and question business rules
type Validator struct {
	structValidator   *validator.Validate
	businessValidator *BusinessValidator
	questionValidator *QuestionValidator
}

// New creates the validator and registers custom tags once
func New(settings config.ExamSettings) *Validator {
	structValidator := validator.New()

	registerCustomValidators(structValidator, settings)

	return &Validator{
		structValidator:   structValidator,
		businessValidator: NewBusinessValidator(settings),
		questionValidator: NewQuestionValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate runs struct tags and returns ValidationErrors on failure
func (v *Validator) Validate(s interface{}) error {
	err := v.ValidateStruct(s)
	if err == nil {
		return nil
	}
	if verrs, ok := tagErrors(err); ok {
		return verrs
	}
	return err
}

// ValidateQuestionDraft checks tags and the single-correct-option rule together
// so the caller sees every problem at once.
func (v *Validator) ValidateQuestionDraft(d *models.QuestionDraft) error {
	var errs ValidationErrors
	if err := v.ValidateStruct(d); err != nil {
		verrs, ok := tagErrors(err)
		if !ok {
			return err
		}
		errs = append(errs, verrs...)
	}
	errs = append(errs, v.questionValidator.Validate(d)...)
	return errs.OrNil()
}

func (v *Validator) Question() *QuestionValidator {
	return v.questionValidator
}

func (v *Validator) Business() *BusinessValidator {
	return v.businessValidator
}

func registerCustomValidators(validate *validator.Validate, settings config.ExamSettings) {
	validate.RegisterValidation("difficulty", validateDifficulty)
	validate.RegisterValidation("assessment_type", func(fl validator.FieldLevel) bool {
		return settings.IsAssessmentType(fl.Field().String())
	})

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateDifficulty(fl validator.FieldLevel) bool {
	switch models.DifficultyLevel(fl.Field().String()) {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		return true
	}
	return false
}
