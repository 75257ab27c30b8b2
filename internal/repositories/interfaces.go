package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")

	// ErrStatusChanged means the row no longer has the status the write was based on.
	ErrStatusChanged = errors.New("record status changed")
)

// QuestionRepository stores the question bank. Options are always loaded and
// saved together with their question.
type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	CreateBatch(ctx context.Context, questions []*models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	// GetByIDs skips ids that do not exist and keeps the requested order.
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error)
	// Update replaces the question row and its full option list.
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error
	DeleteBatch(ctx context.Context, ids []uint) (int64, error)
	List(ctx context.Context, filter models.QuestionFilter) ([]*models.Question, int64, error)
}

type ExamRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	// GetByIDForUpdate row-locks the exam for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Exam, error)
	// Update writes the editable columns while the stored status still equals
	// exam.Status, else ErrStatusChanged. Status and PublishedAt are never written.
	Update(ctx context.Context, exam *models.Exam) error
	// Delete removes the exam with its snapshot, assignments, attempts, answers and results.
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter models.ExamFilter) ([]*models.Exam, int64, error)

	// MarkPublished flips draft to published; false when the exam was not a draft.
	MarkPublished(ctx context.Context, id uint, at time.Time) (bool, error)

	// SetStudents replaces the roster of a draft exam; ErrStatusChanged once published.
	SetStudents(ctx context.Context, examID uint, studentIDs []string) error
	GetStudentIDs(ctx context.Context, examID uint) ([]string, error)
	IsAssigned(ctx context.Context, examID uint, studentID string) (bool, error)
	ListPublishedForStudent(ctx context.Context, studentID string) ([]*models.Exam, error)
}

// ExamQuestionRepository holds the frozen paper of published exams.
type ExamQuestionRepository interface {
	SaveSnapshot(ctx context.Context, examID uint, questions []models.ExamQuestion) error
	// GetSnapshot returns rows ordered by Position.
	GetSnapshot(ctx context.Context, examID uint) ([]models.ExamQuestion, error)
	Count(ctx context.Context, examID uint) (int64, error)
}

type AttemptRepository interface {
	// Create returns ErrDuplicate when the student already has an attempt on the exam.
	Create(ctx context.Context, attempt *models.Attempt) error
	GetByID(ctx context.Context, id uint) (*models.Attempt, error)
	// GetByIDForUpdate row-locks the attempt for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Attempt, error)
	GetByExamAndStudent(ctx context.Context, examID uint, studentID string) (*models.Attempt, error)
	ListByStudent(ctx context.Context, studentID string) ([]*models.Attempt, error)
	ListByExam(ctx context.Context, examID uint) ([]*models.Attempt, error)
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]*models.Attempt, error)

	// Finalize writes the terminal state only while the stored status is still from.
	// It returns false when another writer got there first.
	Finalize(ctx context.Context, attempt *models.Attempt, from models.AttemptStatus) (bool, error)

	UpsertAnswer(ctx context.Context, answer *models.AttemptAnswer) error
	GetAnswers(ctx context.Context, attemptID uint) ([]models.AttemptAnswer, error)
}

type ResultRepository interface {
	Create(ctx context.Context, result *models.Result) error
	GetByAttempt(ctx context.Context, attemptID uint) (*models.Result, error)
	ListByExam(ctx context.Context, examID uint) ([]*models.Result, error)
}

// RosterSource lists the students enrolled in a class for a session and term.
type RosterSource interface {
	StudentsInClass(ctx context.Context, class, session, term string) ([]string, error)
}

type RosterRepository interface {
	RosterSource
	Enroll(ctx context.Context, enrollments []models.Enrollment) error
}

// Repository groups every store behind one transaction boundary.
type Repository interface {
	Question() QuestionRepository
	Exam() ExamRepository
	ExamQuestion() ExamQuestionRepository
	Attempt() AttemptRepository
	Result() ResultRepository
	Roster() RosterRepository

	// WithTransaction runs fn against a transactional view; any error rolls back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}
