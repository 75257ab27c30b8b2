package services

import (
	"context"
	"time"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/scheduling"
)

// Every operation takes the authenticated caller explicitly; services never read
// identity from the context.

type QuestionService interface {
	Create(ctx context.Context, caller models.Caller, draft *models.QuestionDraft) (*models.Question, error)
	// CreateBatch stores every draft or none of them.
	CreateBatch(ctx context.Context, caller models.Caller, drafts []models.QuestionDraft) ([]*models.Question, error)
	GetByID(ctx context.Context, caller models.Caller, id uint) (*models.Question, error)
	Update(ctx context.Context, caller models.Caller, id uint, draft *models.QuestionDraft) (*models.Question, error)
	Delete(ctx context.Context, caller models.Caller, id uint) error
	DeleteBatch(ctx context.Context, caller models.Caller, ids []uint) (int64, error)
	List(ctx context.Context, caller models.Caller, filter models.QuestionFilter) (*models.ListResponse[*models.Question], error)
}

type ImportExportService interface {
	// ImportText parses a question sheet and stores the questions that parsed cleanly.
	ImportText(ctx context.Context, caller models.Caller, text string) (*models.ImportSummary, error)
	ExportQuestionsToExcel(ctx context.Context, caller models.Caller, filter models.QuestionFilter) ([]byte, error)
	ExportExamResults(ctx context.Context, caller models.Caller, examID uint) ([]byte, error)
}

type ExamService interface {
	Create(ctx context.Context, caller models.Caller, req *models.CreateExamRequest) (*models.Exam, error)
	Update(ctx context.Context, caller models.Caller, id uint, req *models.UpdateExamRequest) (*models.Exam, error)
	AssignQuestions(ctx context.Context, caller models.Caller, id uint, questionIDs []uint) (*models.Exam, error)
	AssignStudents(ctx context.Context, caller models.Caller, id uint, studentIDs []string) (*models.Exam, error)
	// AssignClass assigns every student enrolled in the exam's class, session and term.
	AssignClass(ctx context.Context, caller models.Caller, id uint) (*models.Exam, error)
	Publish(ctx context.Context, caller models.Caller, id uint) (*models.Exam, error)
	Delete(ctx context.Context, caller models.Caller, id uint, force bool) error
	GetByID(ctx context.Context, caller models.Caller, id uint) (*models.Exam, error)
	List(ctx context.Context, caller models.Caller, filter models.ExamFilter) (*models.ListResponse[*models.Exam], error)
	// GetQuestions returns the frozen snapshot of a published exam or the live
	// questions of a draft.
	GetQuestions(ctx context.Context, caller models.Caller, id uint) ([]models.ExamQuestion, error)
	ListResults(ctx context.Context, caller models.Caller, id uint) ([]*models.Result, error)
}

type AttemptService interface {
	Start(ctx context.Context, caller models.Caller, examID uint) (*models.Attempt, error)
	GetPaper(ctx context.Context, caller models.Caller, attemptID uint) (*AttemptPaper, error)
	SaveAnswer(ctx context.Context, caller models.Caller, attemptID, questionID, optionID uint) error
	// Submit grades the attempt. finalAnswers maps question id to option id and
	// wins over answers saved earlier.
	Submit(ctx context.Context, caller models.Caller, attemptID uint, finalAnswers map[uint]uint) (*models.Result, error)
	// ExpireOverdue force-submits every in-progress attempt whose deadline is before now.
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}

type StudentExamService interface {
	ListForStudent(ctx context.Context, caller models.Caller) ([]StudentExam, error)
	GetResult(ctx context.Context, caller models.Caller, examID uint) (*models.Result, error)
}

// ServiceManager hands out the wired services and owns background work.
type ServiceManager interface {
	Question() QuestionService
	ImportExport() ImportExportService
	Exam() ExamService
	Attempt() AttemptService
	StudentExam() StudentExamService

	// Start launches the deadline sweeper; Stop halts it and drains result dispatch.
	Start(ctx context.Context)
	Stop(ctx context.Context) error
	Ping(ctx context.Context) error
}

// ===== VIEW TYPES =====

// AttemptPaper is what a student sees while sitting an exam: no correctness data.
type AttemptPaper struct {
	AttemptID        uint                 `json:"attempt_id"`
	ExamID           uint                 `json:"exam_id"`
	Title            string               `json:"title"`
	Instructions     string               `json:"instructions"`
	Status           models.AttemptStatus `json:"status"`
	StartedAt        *time.Time           `json:"started_at"`
	Deadline         *time.Time           `json:"deadline"`
	SecondsRemaining int64                `json:"seconds_remaining"`
	Questions        []PaperQuestion      `json:"questions"`
}

type PaperQuestion struct {
	QuestionID       uint          `json:"question_id"`
	Number           int           `json:"number"`
	Text             string        `json:"question_text"`
	Marks            float64       `json:"marks"`
	Options          []PaperOption `json:"options"`
	SelectedOptionID *uint         `json:"selected_option_id"`
}

type PaperOption struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

// StudentExam is one row of a student's exam list.
type StudentExam struct {
	ExamID           uint                  `json:"exam_id"`
	Title            string                `json:"title"`
	Subject          string                `json:"subject"`
	Class            string                `json:"class"`
	AssessmentType   string                `json:"assessment_type"`
	DurationMinutes  int                   `json:"duration_minutes"`
	StartAt          *time.Time            `json:"start_at"`
	EndAt            *time.Time            `json:"end_at"`
	QuestionCount    int                   `json:"question_count"`
	Status           scheduling.Status     `json:"status"`
	AttemptID        *uint                 `json:"attempt_id,omitempty"`
	AttemptStatus    *models.AttemptStatus `json:"attempt_status,omitempty"`
	SecondsRemaining int64                 `json:"seconds_remaining"`
}
