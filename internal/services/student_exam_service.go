package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
	"github.com/odunayomike/report-card-generator-sub003/internal/scheduling"
)

// overdueCloser is implemented by the attempt service.
type overdueCloser interface {
	ensureActive(ctx context.Context, attempt *models.Attempt) error
}

type studentExamService struct {
	repo   repositories.Repository
	closer overdueCloser
	logger *ServiceLogger
	now    func() time.Time
}

// NewStudentExamService shares the attempt service so reading a result can close
// an overdue attempt first.
func NewStudentExamService(repo repositories.Repository, attempts AttemptService, logger *slog.Logger, now func() time.Time) StudentExamService {
	if now == nil {
		now = time.Now
	}
	closer, _ := attempts.(overdueCloser)
	return &studentExamService{
		repo:   repo,
		closer: closer,
		logger: NewServiceLogger(logger, "student_exam_service"),
		now:    now,
	}
}

// ListForStudent returns every published exam assigned to the caller with what
// the caller can currently do with it.
func (s *studentExamService) ListForStudent(ctx context.Context, caller models.Caller) ([]StudentExam, error) {
	if !caller.IsStudent() {
		return nil, ErrForbidden
	}

	exams, err := s.repo.Exam().ListPublishedForStudent(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	attempts, err := s.repo.Attempt().ListByStudent(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	byExam := make(map[uint]*models.Attempt, len(attempts))
	for _, a := range attempts {
		byExam[a.ExamID] = a
	}

	now := s.now()
	out := make([]StudentExam, 0, len(exams))
	for _, exam := range exams {
		attempt := byExam[exam.ID]
		item := StudentExam{
			ExamID:           exam.ID,
			Title:            exam.Title,
			Subject:          exam.Subject,
			Class:            exam.Class,
			AssessmentType:   exam.AssessmentType,
			DurationMinutes:  exam.DurationMinutes,
			StartAt:          exam.StartAt,
			EndAt:            exam.EndAt,
			QuestionCount:    exam.QuestionCount,
			Status:           scheduling.ResolveStatus(exam, attempt, now),
			SecondsRemaining: scheduling.SecondsRemaining(attempt, now),
		}
		if attempt != nil {
			id, status := attempt.ID, attempt.Status
			item.AttemptID = &id
			item.AttemptStatus = &status
		}
		out = append(out, item)
	}
	return out, nil
}

// GetResult returns the caller's own result. Students are refused while the exam
// hides results.
func (s *studentExamService) GetResult(ctx context.Context, caller models.Caller, examID uint) (*models.Result, error) {
	exam, err := s.repo.Exam().GetByID(ctx, examID)
	if err != nil {
		return nil, mapNotFound(err, ErrExamNotFound, "failed to get exam")
	}

	attempt, err := s.repo.Attempt().GetByExamAndStudent(ctx, examID, caller.ID)
	if err != nil {
		return nil, mapNotFound(err, ErrResultNotFound, "failed to get attempt")
	}
	if attempt.IsOverdue(s.now()) && s.closer != nil {
		if err := s.closer.ensureActive(ctx, attempt); err != nil && !errors.Is(err, ErrAttemptNotActive) {
			return nil, err
		}
	}

	result, err := s.repo.Result().GetByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, mapNotFound(err, ErrResultNotFound, "failed to get result")
	}
	if caller.IsStudent() && exam.HideResultsAfterSubmission {
		return nil, ErrResultsHidden
	}
	return result, nil
}
