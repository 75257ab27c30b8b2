package validator

import (
	"fmt"
	"time"

	"github.com/odunayomike/report-card-generator-sub003/internal/config"
	"github.com/odunayomike/report-card-generator-sub003/internal/models"
)

// BusinessValidator checks exam rules that depend on school settings or on several fields
type BusinessValidator struct {
	settings config.ExamSettings
}

func NewBusinessValidator(settings config.ExamSettings) *BusinessValidator {
	return &BusinessValidator{settings: settings}
}

func (v *BusinessValidator) ValidateExamCreate(req *models.CreateExamRequest) ValidationErrors {
	var errs ValidationErrors
	v.checkDuration(&errs, req.DurationMinutes)
	checkWindow(&errs, req.StartAt, req.EndAt)
	return errs
}

// ValidateExamUpdate checks the exam as it would look after the patch.
func (v *BusinessValidator) ValidateExamUpdate(req *models.UpdateExamRequest, exam *models.Exam) ValidationErrors {
	var errs ValidationErrors
	if req.DurationMinutes != nil {
		v.checkDuration(&errs, *req.DurationMinutes)
	}

	start, end := exam.StartAt, exam.EndAt
	if req.StartAt != nil {
		start = req.StartAt
	}
	if req.EndAt != nil {
		end = req.EndAt
	}
	checkWindow(&errs, start, end)
	return errs
}

func (v *BusinessValidator) checkDuration(errs *ValidationErrors, minutes int) {
	if minutes < v.settings.MinDurationMinutes || minutes > v.settings.MaxDurationMinutes {
		errs.Add("duration_minutes",
			fmt.Sprintf("must be between %d and %d minutes", v.settings.MinDurationMinutes, v.settings.MaxDurationMinutes),
			minutes)
	}
}

func checkWindow(errs *ValidationErrors, start, end *time.Time) {
	if start != nil && end != nil && !end.After(*start) {
		errs.Add("end_at", "must be after start_at", end)
	}
}
