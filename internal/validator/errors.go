package validator

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/odunayomike/report-card-generator-sub003/internal/errors"
)

type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// tagErrors converts a struct-tag failure. ok is false for any other error,
// such as an invalid argument to Struct.
func tagErrors(err error) (ValidationErrors, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	return apperrors.ToValidationErrors(verrs), true
}

// prefixed moves errs under prefix, e.g. "options[1].text" becomes
// "questions[3].options[1].text".
func prefixed(prefix string, errs ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, len(errs))
	for i, e := range errs {
		e.Field = fmt.Sprintf("%s.%s", prefix, e.Field)
		out[i] = e
	}
	return out
}
