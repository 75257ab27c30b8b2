package models

import (
	"time"

	"gorm.io/datatypes"
)

type ExamStatus string

const (
	ExamDraft     ExamStatus = "draft"
	ExamPublished ExamStatus = "published"
)

type Exam struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	Title          string `json:"title" gorm:"not null;size:200"`
	Subject        string `json:"subject" gorm:"not null;size:100;index"`
	Class          string `json:"class" gorm:"not null;size:50;index"`
	Session        string `json:"session" gorm:"size:20;index"`
	Term           string `json:"term" gorm:"size:20;index"`
	AssessmentType string `json:"assessment_type" gorm:"size:50"`

	DurationMinutes int     `json:"duration_minutes" gorm:"not null"`
	TotalScore      float64 `json:"total_score" gorm:"not null"`
	Instructions    string  `json:"instructions" gorm:"type:text"`

	ShuffleQuestions           bool `json:"shuffle_questions" gorm:"default:false"`
	ShuffleOptions             bool `json:"shuffle_options" gorm:"default:false"`
	HideResultsAfterSubmission bool `json:"hide_results_after_submission" gorm:"default:false"`

	// Availability window; nil bounds are open.
	StartAt *time.Time `json:"start_at"`
	EndAt   *time.Time `json:"end_at"`

	Status      ExamStatus `json:"status" gorm:"not null;size:20;default:draft;index"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedBy   string     `json:"created_by" gorm:"size:255;index"`

	// Live question ids while draft. Published exams read Questions instead.
	QuestionIDs datatypes.JSONSlice[uint] `json:"question_ids" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Questions []ExamQuestion `json:"-" gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE"`
	Students  []ExamStudent  `json:"-" gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE"`

	// Computed fields (not stored)
	QuestionCount int      `json:"question_count" gorm:"-"`
	StudentIDs    []string `json:"student_ids,omitempty" gorm:"-"`
}

func (Exam) TableName() string {
	return "exams"
}

func (e *Exam) IsPublished() bool {
	return e.Status == ExamPublished
}

// MarkPerQuestion splits TotalScore evenly; fractional marks are allowed.
func (e *Exam) MarkPerQuestion(questionCount int) float64 {
	if questionCount <= 0 {
		return 0
	}
	return e.TotalScore / float64(questionCount)
}

// Duration returns the attempt time limit.
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// ExamQuestion is one row of the frozen snapshot taken when an exam is published.
// It copies the question and option content so later bank edits cannot leak in.
type ExamQuestion struct {
	ExamID          uint                                `json:"exam_id" gorm:"primaryKey"`
	QuestionID      uint                                `json:"question_id" gorm:"primaryKey"`
	Position        int                                 `json:"position" gorm:"not null"`
	Text            string                              `json:"question_text" gorm:"type:text;not null"`
	Marks           float64                             `json:"marks" gorm:"not null"`
	Options         datatypes.JSONSlice[SnapshotOption] `json:"options" gorm:"type:jsonb"`
	CorrectOptionID uint                                `json:"-" gorm:"not null"`
}

func (ExamQuestion) TableName() string {
	return "exam_questions"
}

type SnapshotOption struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// HasOption reports whether optionID belongs to this snapshot question.
func (q *ExamQuestion) HasOption(optionID uint) bool {
	for _, o := range q.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

type ExamStudent struct {
	ExamID    uint   `json:"exam_id" gorm:"primaryKey"`
	StudentID string `json:"student_id" gorm:"primaryKey;size:255;index"`
}

func (ExamStudent) TableName() string {
	return "exam_students"
}

// Enrollment is the roster row used to assign a whole class to an exam.
type Enrollment struct {
	StudentID string `json:"student_id" gorm:"primaryKey;size:255"`
	Class     string `json:"class" gorm:"primaryKey;size:50"`
	Session   string `json:"session" gorm:"primaryKey;size:20"`
	Term      string `json:"term" gorm:"primaryKey;size:20"`
}

func (Enrollment) TableName() string {
	return "class_enrollments"
}
