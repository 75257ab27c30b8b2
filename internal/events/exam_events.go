package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType names an exam-engine domain event
type EventType string

const (
	EventExamPublished    EventType = "exam.published"
	EventAttemptStarted   EventType = "attempt.started"
	EventAttemptSubmitted EventType = "attempt.submitted"
	EventExamGraded       EventType = "exam.graded"
)

const (
	eventSource  = "cbt-exam-engine"
	eventVersion = "1.0"
)

// Event is the envelope for every published message
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

type ExamPublishedEvent struct {
	ExamID          uint       `json:"exam_id"`
	Title           string     `json:"title"`
	Subject         string     `json:"subject"`
	Class           string     `json:"class"`
	DurationMinutes int        `json:"duration_minutes"`
	StartAt         *time.Time `json:"start_at,omitempty"`
	EndAt           *time.Time `json:"end_at,omitempty"`
	QuestionCount   int        `json:"question_count"`
	StudentIDs      []string   `json:"student_ids"`
	PublishedBy     string     `json:"published_by"`
}

type AttemptStartedEvent struct {
	AttemptID uint      `json:"attempt_id"`
	ExamID    uint      `json:"exam_id"`
	StudentID string    `json:"student_id"`
	StartedAt time.Time `json:"started_at"`
	Deadline  time.Time `json:"deadline"`
}

type AttemptSubmittedEvent struct {
	AttemptID   uint      `json:"attempt_id"`
	ExamID      uint      `json:"exam_id"`
	StudentID   string    `json:"student_id"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
	Score       float64   `json:"score"`
	TotalMarks  float64   `json:"total_marks"`
	Percentage  float64   `json:"percentage"`
	Grade       string    `json:"grade"`
}

// ExamGradedEvent is the report-card writeback payload.
type ExamGradedEvent struct {
	StudentID      string  `json:"student_id"`
	ExamID         uint    `json:"exam_id"`
	Score          float64 `json:"score"`
	Percentage     float64 `json:"percentage"`
	Term           string  `json:"term"`
	Session        string  `json:"session"`
	Subject        string  `json:"subject"`
	AssessmentType string  `json:"assessment_type"`
}
