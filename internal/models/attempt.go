package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptNotStarted AttemptStatus = "not_started"
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptExpired    AttemptStatus = "expired"
)

func (s AttemptStatus) IsTerminal() bool {
	return s == AttemptSubmitted || s == AttemptExpired
}

type Attempt struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	ExamID    uint          `json:"exam_id" gorm:"not null;uniqueIndex:idx_attempt_exam_student"`
	StudentID string        `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_attempt_exam_student;index"`
	Status    AttemptStatus `json:"status" gorm:"not null;size:20;default:not_started;index"`

	StartedAt   *time.Time `json:"started_at"`
	Deadline    *time.Time `json:"deadline" gorm:"index"`
	SubmittedAt *time.Time `json:"submitted_at"`

	ShuffleSeed   int64                                 `json:"-"`
	QuestionOrder datatypes.JSONSlice[uint]             `json:"question_order" gorm:"type:jsonb"`
	OptionOrder   datatypes.JSONSlice[OptionOrderEntry] `json:"option_order" gorm:"type:jsonb"`

	Score      float64 `json:"score"`
	TotalMarks float64 `json:"total_marks"`
	Percentage float64 `json:"percentage"`
	Grade      string  `json:"grade" gorm:"size:5"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// OptionOrderEntry records the display order of one question's options.
type OptionOrderEntry struct {
	QuestionID uint   `json:"question_id"`
	OptionIDs  []uint `json:"option_ids"`
}

// IsOverdue reports whether an in-progress attempt has passed its deadline.
func (a *Attempt) IsOverdue(now time.Time) bool {
	return a.Status == AttemptInProgress && a.Deadline != nil && now.After(*a.Deadline)
}

// Remaining is the time left before the deadline, never negative.
func (a *Attempt) Remaining(now time.Time) time.Duration {
	if a.Status != AttemptInProgress || a.Deadline == nil {
		return 0
	}
	if d := a.Deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

// AttemptAnswer is keyed by (attempt, question) so saves upsert a single row.
type AttemptAnswer struct {
	AttemptID        uint      `json:"attempt_id" gorm:"primaryKey"`
	QuestionID       uint      `json:"question_id" gorm:"primaryKey"`
	SelectedOptionID uint      `json:"selected_option_id" gorm:"not null"`
	AnsweredAt       time.Time `json:"answered_at" gorm:"not null"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}
