// Package scheduling resolves what a student currently sees for an exam.
package scheduling

import (
	"time"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
)

type Status string

const (
	StatusUpcoming   Status = "upcoming"
	StatusAvailable  Status = "available"
	StatusInProgress Status = "in_progress"
	StatusExpired    Status = "expired"
	StatusCompleted  Status = "completed"
)

// ResolveStatus is pure; attempt may be nil when the student has not started.
// Checks run in a fixed order: completed, expired, in_progress, upcoming, available.
func ResolveStatus(exam *models.Exam, attempt *models.Attempt, now time.Time) Status {
	if attempt != nil {
		switch attempt.Status {
		case models.AttemptSubmitted:
			return StatusCompleted
		case models.AttemptExpired:
			return StatusExpired
		case models.AttemptInProgress:
			if attempt.IsOverdue(now) {
				return StatusExpired
			}
			return StatusInProgress
		}
	}

	if exam.EndAt != nil && now.After(*exam.EndAt) {
		return StatusExpired
	}
	if exam.StartAt != nil && now.Before(*exam.StartAt) {
		return StatusUpcoming
	}
	return StatusAvailable
}

// InWindow reports whether a new attempt may start at now.
func InWindow(exam *models.Exam, now time.Time) bool {
	if exam.StartAt != nil && now.Before(*exam.StartAt) {
		return false
	}
	if exam.EndAt != nil && now.After(*exam.EndAt) {
		return false
	}
	return true
}

// SecondsRemaining is the whole seconds left on an in-progress attempt.
func SecondsRemaining(attempt *models.Attempt, now time.Time) int64 {
	if attempt == nil {
		return 0
	}
	return int64(attempt.Remaining(now) / time.Second)
}
