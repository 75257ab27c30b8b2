package validator

import (
	"fmt"
	"strings"

	"github.com/odunayomike/report-card-generator-sub003/internal/errors"
	"github.com/odunayomike/report-card-generator-sub003/internal/models"
)

// QuestionValidator enforces rules struct tags cannot express
type QuestionValidator struct{}

func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// Validate reports whitespace-only text and anything other than exactly one correct option.
func (v *QuestionValidator) Validate(d *models.QuestionDraft) ValidationErrors {
	var errs ValidationErrors

	if d.Text != "" && strings.TrimSpace(d.Text) == "" {
		errs.Add("question_text", "must not be blank", d.Text)
	}

	correct := 0
	for i, o := range d.Options {
		if o.IsCorrect {
			correct++
		}
		if o.Text != "" && strings.TrimSpace(o.Text) == "" {
			errs.Add(fmt.Sprintf("options[%d].text", i), "must not be blank", o.Text)
		}
	}
	if len(d.Options) > 0 && correct != 1 {
		errs = append(errs, *errors.NewValidationErrorWithRule(
			"options",
			fmt.Sprintf("must have exactly one correct option, got %d", correct),
			"single_correct",
			correct,
		))
	}

	return errs
}

// ValidateBatch validates every draft and prefixes fields with the draft index.
func (v *Validator) ValidateBatch(drafts []models.QuestionDraft) error {
	if len(drafts) == 0 {
		return ValidationErrors{{Field: "questions", Message: "must not be empty"}}
	}

	var errs ValidationErrors
	for i := range drafts {
		err := v.ValidateQuestionDraft(&drafts[i])
		if err == nil {
			continue
		}
		verrs, ok := err.(ValidationErrors)
		if !ok {
			return fmt.Errorf("validation failed for question %d: %w", i+1, err)
		}
		errs = append(errs, prefixed(fmt.Sprintf("questions[%d]", i), verrs)...)
	}
	return errs.OrNil()
}
