package errors

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("marks", "must be greater than 0", 0)

	assert.Equal(t, "marks", err.Field)
	assert.Equal(t, "must be greater than 0", err.Message)
	assert.Equal(t, 0, err.Value)
	assert.Equal(t, "validation error on field 'marks': must be greater than 0", err.Error())
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "validation failed", errs.Error())
	assert.NoError(t, errs.OrNil())

	errs.Add("options", "must have exactly one correct option", 2)
	assert.Equal(t, "validation failed: options must have exactly one correct option", errs.Error())

	errs.Add("question_text", "is required", "")
	assert.Equal(t, "validation failed: 2 field errors", errs.Error())
	assert.Error(t, errs.OrNil())
}

func TestNewValidationErrorWithRule(t *testing.T) {
	err := NewValidationErrorWithRule("difficulty", "must be easy, medium, or hard", "difficulty", "extreme")

	assert.Equal(t, "difficulty", err.Rule)
	assert.Equal(t, "difficulty", err.Field)
}

func TestToValidationErrors(t *testing.T) {
	type option struct {
		Text string `validate:"required"`
	}
	type draft struct {
		Marks   int      `validate:"min=1"`
		Options []option `validate:"min=2,dive"`
	}

	v := validator.New()
	err := v.Struct(draft{Marks: 0, Options: []option{{Text: "4"}, {Text: ""}}})
	require.Error(t, err)

	errs := ToValidationErrors(err)
	require.Len(t, errs, 2)

	fields := map[string]string{}
	for _, e := range errs {
		fields[e.Field] = e.Rule
	}
	assert.Equal(t, "min", fields["Marks"])
	assert.Equal(t, "required", fields["Options[1].Text"])
}

func TestToValidationErrorsIgnoresOtherErrors(t *testing.T) {
	assert.Empty(t, ToValidationErrors(assert.AnError))
}
