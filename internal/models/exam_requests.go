package models

import "time"

type CreateExamRequest struct {
	Title          string `json:"title" validate:"required,max=200"`
	Subject        string `json:"subject" validate:"required,max=100"`
	Class          string `json:"class" validate:"required,max=50"`
	Session        string `json:"session" validate:"max=20"`
	Term           string `json:"term" validate:"max=20"`
	AssessmentType string `json:"assessment_type" validate:"omitempty,assessment_type"`

	DurationMinutes int     `json:"duration_minutes" validate:"required,min=1"`
	TotalScore      float64 `json:"total_score" validate:"required,gt=0"`
	Instructions    string  `json:"instructions"`

	ShuffleQuestions           bool  `json:"shuffle_questions"`
	ShuffleOptions             bool  `json:"shuffle_options"`
	HideResultsAfterSubmission *bool `json:"hide_results_after_submission"`
	// Deprecated: inverse of HideResultsAfterSubmission, accepted for older clients.
	ShowResultsImmediately *bool `json:"show_results_immediately"`

	StartAt *time.Time `json:"start_at"`
	EndAt   *time.Time `json:"end_at"`

	QuestionIDs []uint   `json:"question_ids"`
	StudentIDs  []string `json:"student_ids"`
}

// HideResults resolves the visibility flag, preferring the current field over the legacy one.
func (r *CreateExamRequest) HideResults() bool {
	return resolveHideResults(r.HideResultsAfterSubmission, r.ShowResultsImmediately, false)
}

// UpdateExamRequest is a partial update; nil fields are left unchanged.
type UpdateExamRequest struct {
	Title          *string `json:"title" validate:"omitempty,min=1,max=200"`
	Subject        *string `json:"subject" validate:"omitempty,min=1,max=100"`
	Class          *string `json:"class" validate:"omitempty,min=1,max=50"`
	Session        *string `json:"session" validate:"omitempty,max=20"`
	Term           *string `json:"term" validate:"omitempty,max=20"`
	AssessmentType *string `json:"assessment_type" validate:"omitempty,assessment_type"`

	DurationMinutes *int     `json:"duration_minutes" validate:"omitempty,min=1"`
	TotalScore      *float64 `json:"total_score" validate:"omitempty,gt=0"`
	Instructions    *string  `json:"instructions"`

	ShuffleQuestions           *bool `json:"shuffle_questions"`
	ShuffleOptions             *bool `json:"shuffle_options"`
	HideResultsAfterSubmission *bool `json:"hide_results_after_submission"`
	ShowResultsImmediately     *bool `json:"show_results_immediately"`

	StartAt *time.Time `json:"start_at"`
	EndAt   *time.Time `json:"end_at"`
}

// TouchesFrozenFields reports whether the patch changes fields that are fixed once published.
func (r *UpdateExamRequest) TouchesFrozenFields() bool {
	return r.Subject != nil || r.Class != nil || r.Session != nil || r.Term != nil ||
		r.AssessmentType != nil || r.TotalScore != nil
}

func resolveHideResults(hide, show *bool, fallback bool) bool {
	if hide != nil {
		return *hide
	}
	if show != nil {
		return !*show
	}
	return fallback
}

// ApplyTo copies the set fields onto exam.
func (r *UpdateExamRequest) ApplyTo(exam *Exam) {
	if r.Title != nil {
		exam.Title = *r.Title
	}
	if r.Subject != nil {
		exam.Subject = *r.Subject
	}
	if r.Class != nil {
		exam.Class = *r.Class
	}
	if r.Session != nil {
		exam.Session = *r.Session
	}
	if r.Term != nil {
		exam.Term = *r.Term
	}
	if r.AssessmentType != nil {
		exam.AssessmentType = *r.AssessmentType
	}
	if r.DurationMinutes != nil {
		exam.DurationMinutes = *r.DurationMinutes
	}
	if r.TotalScore != nil {
		exam.TotalScore = *r.TotalScore
	}
	if r.Instructions != nil {
		exam.Instructions = *r.Instructions
	}
	if r.ShuffleQuestions != nil {
		exam.ShuffleQuestions = *r.ShuffleQuestions
	}
	if r.ShuffleOptions != nil {
		exam.ShuffleOptions = *r.ShuffleOptions
	}
	exam.HideResultsAfterSubmission = resolveHideResults(r.HideResultsAfterSubmission, r.ShowResultsImmediately, exam.HideResultsAfterSubmission)
	if r.StartAt != nil {
		exam.StartAt = r.StartAt
	}
	if r.EndAt != nil {
		exam.EndAt = r.EndAt
	}
}

// QuestionFilter narrows ListQuestions.
type QuestionFilter struct {
	Subject    string          `form:"subject"`
	Class      string          `form:"class"`
	Difficulty DifficultyLevel `form:"difficulty"`
	Topic      string          `form:"topic"`
	CreatedBy  string          `form:"created_by"`
	Limit      int             `form:"limit"`
	Offset     int             `form:"offset"`
}

type ExamFilter struct {
	Subject   string     `form:"subject"`
	Class     string     `form:"class"`
	Session   string     `form:"session"`
	Term      string     `form:"term"`
	Status    ExamStatus `form:"status"`
	CreatedBy string     `form:"created_by"`
	Limit     int        `form:"limit"`
	Offset    int        `form:"offset"`
}

type ListResponse[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}
