package services

import (
	"errors"
	"fmt"

	apperrors "github.com/odunayomike/report-card-generator-sub003/internal/errors"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")

	// Question errors
	ErrQuestionNotFound = errors.New("question not found")

	// Exam errors
	ErrExamNotFound     = errors.New("exam not found")
	ErrExamNotEditable  = errors.New("exam cannot be edited in current status")
	ErrExamNotDeletable = errors.New("published exam can only be deleted with force")
	ErrNotPublished     = errors.New("exam is not published")
	ErrNotAssigned      = errors.New("student is not assigned to this exam")
	ErrOutsideWindow    = errors.New("exam is outside its availability window")

	// Attempt errors
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrAttemptNotActive = errors.New("attempt is not active")

	// Result errors
	ErrResultNotFound = errors.New("result not found")
	ErrResultsHidden  = errors.New("results are hidden for this exam")
)

// Rule names carried by BusinessRuleError
const (
	RulePublishRequirements = "publish_requirements"
	RuleImportEmpty         = "import_empty"
)

// ===== CUSTOM ERROR TYPES =====

type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

// ===== ERROR HELPERS =====

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

// mapNotFound swaps the repository sentinel for a domain one and wraps anything else.
func mapNotFound(err error, notFound error, action string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return notFound
	}
	return fmt.Errorf("%s: %w", action, err)
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrExamNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrResultNotFound)
}

// IsForbidden checks if error represents an authorization failure
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrNotAssigned) ||
		errors.Is(err, ErrResultsHidden)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a state conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrAttemptNotActive) ||
		errors.Is(err, ErrExamNotEditable) ||
		errors.Is(err, ErrExamNotDeletable) ||
		errors.Is(err, ErrNotPublished) ||
		errors.Is(err, ErrOutsideWindow)
}
