package models

import (
	"time"

	"gorm.io/datatypes"
)

type ResultReason string

const (
	ReasonSubmitted ResultReason = "submitted"
	ReasonExpired   ResultReason = "expired"
)

// Result is written once when an attempt reaches a terminal state.
type Result struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	AttemptID uint   `json:"attempt_id" gorm:"not null;uniqueIndex"`
	ExamID    uint   `json:"exam_id" gorm:"not null;index"`
	StudentID string `json:"student_id" gorm:"not null;size:255;index"`

	TotalScore      float64 `json:"total_score"`
	TotalMarks      float64 `json:"total_marks"`
	Percentage      float64 `json:"percentage"`
	Grade           string  `json:"grade" gorm:"size:5"`
	CorrectCount    int     `json:"correct_count"`
	WrongCount      int     `json:"wrong_count"`
	UnansweredCount int     `json:"unanswered_count"`

	Details datatypes.JSONSlice[QuestionOutcome] `json:"details" gorm:"type:jsonb"`

	TimeTakenSeconds int64        `json:"time_taken_seconds"`
	Reason           ResultReason `json:"reason" gorm:"size:20"`
	GradedAt         time.Time    `json:"graded_at"`
}

func (Result) TableName() string {
	return "results"
}

type QuestionOutcome struct {
	QuestionID       uint    `json:"question_id"`
	SelectedOptionID *uint   `json:"selected_option_id"`
	CorrectOptionID  uint    `json:"correct_option_id"`
	IsCorrect        bool    `json:"is_correct"`
	Marks            float64 `json:"marks"`
	Awarded          float64 `json:"awarded"`
}
