package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odunayomike/report-card-generator-sub003/internal/cache"
	"github.com/odunayomike/report-card-generator-sub003/internal/events"
	"github.com/odunayomike/report-card-generator-sub003/internal/lock"
	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/reportcard"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
	"github.com/odunayomike/report-card-generator-sub003/internal/scheduling"
	"github.com/odunayomike/report-card-generator-sub003/internal/shuffle"
)

// sweepBatchSize bounds how many overdue attempts one sweep pass loads.
const sweepBatchSize = 100

// ResultDispatcher queues graded results for the report-card collaborator.
type ResultDispatcher interface {
	Dispatch(result reportcard.ExamGraded) error
}

type attemptService struct {
	repo       repositories.Repository
	locker     lock.Locker
	snapshots  snapshotLoader
	dispatcher ResultDispatcher
	publisher  events.EventPublisher
	bands      models.GradeBands
	logger     *ServiceLogger
	now        func() time.Time
}

type AttemptServiceConfig struct {
	Repo       repositories.Repository
	Locker     lock.Locker
	Snapshots  *cache.SnapshotCache
	Dispatcher ResultDispatcher
	Publisher  events.EventPublisher
	GradeBands models.GradeBands
	Logger     *slog.Logger
	Now        func() time.Time
}

func NewAttemptService(cfg AttemptServiceConfig) AttemptService {
	if cfg.Locker == nil {
		cfg.Locker = lock.NewKeyedMutex()
	}
	if len(cfg.GradeBands) == 0 {
		cfg.GradeBands = models.DefaultGradeBands()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &attemptService{
		repo:       cfg.Repo,
		locker:     cfg.Locker,
		snapshots:  snapshotLoader{repo: cfg.Repo, cache: cfg.Snapshots},
		dispatcher: cfg.Dispatcher,
		publisher:  cfg.Publisher,
		bands:      cfg.GradeBands,
		logger:     NewServiceLogger(cfg.Logger, "attempt_service"),
		now:        cfg.Now,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

// Start opens the caller's attempt, or returns the one already in progress.
// An exam allows one attempt per student.
func (s *attemptService) Start(ctx context.Context, caller models.Caller, examID uint) (attempt *models.Attempt, err error) {
	op := s.logger.WithOperation(ctx, "start_attempt", caller.ID)
	defer func() { op.LogResult(examID, "exam", err) }()

	if !caller.IsStudent() {
		return nil, ErrForbidden
	}

	exam, err := s.repo.Exam().GetByID(ctx, examID)
	if err != nil {
		return nil, mapNotFound(err, ErrExamNotFound, "failed to get exam")
	}
	if !exam.IsPublished() {
		return nil, ErrNotPublished
	}
	assigned, err := s.repo.Exam().IsAssigned(ctx, examID, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check assignment: %w", err)
	}
	if !assigned {
		return nil, ErrNotAssigned
	}

	existing, err := s.repo.Attempt().GetByExamAndStudent(ctx, examID, caller.ID)
	switch {
	case err == nil:
		return s.resume(ctx, existing)
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	now := s.now()
	if !scheduling.InWindow(exam, now) {
		return nil, ErrOutsideWindow
	}

	snapshot, err := s.snapshots.load(ctx, examID)
	if err != nil {
		return nil, err
	}

	seed := shuffle.Seed(examID, caller.ID)
	plan := shuffle.Build(snapshot, seed, exam.ShuffleQuestions, exam.ShuffleOptions)
	deadline := now.Add(exam.Duration())
	attempt = &models.Attempt{
		ExamID:        examID,
		StudentID:     caller.ID,
		Status:        models.AttemptInProgress,
		StartedAt:     &now,
		Deadline:      &deadline,
		ShuffleSeed:   seed,
		QuestionOrder: plan.QuestionOrder,
		OptionOrder:   plan.OptionOrder,
	}

	if err := s.repo.Attempt().Create(ctx, attempt); err != nil {
		if !errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("failed to create attempt: %w", err)
		}
		// A concurrent start won; continue with its row.
		winner, err := s.repo.Attempt().GetByExamAndStudent(ctx, examID, caller.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload attempt: %w", err)
		}
		return s.resume(ctx, winner)
	}

	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.EventAttemptStarted, events.AttemptStartedEvent{
		AttemptID: attempt.ID,
		ExamID:    examID,
		StudentID: caller.ID,
		StartedAt: now,
		Deadline:  deadline,
	}))
	return attempt, nil
}

// GetPaper renders the attempt in its stored order with the caller's saved answers.
func (s *attemptService) GetPaper(ctx context.Context, caller models.Caller, attemptID uint) (*AttemptPaper, error) {
	attempt, err := s.getOwned(ctx, caller, attemptID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureActive(ctx, attempt); err != nil {
		return nil, err
	}

	exam, err := s.repo.Exam().GetByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, mapNotFound(err, ErrExamNotFound, "failed to get exam")
	}
	snapshot, err := s.snapshots.load(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}
	answers, err := s.repo.Attempt().GetAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}

	return buildPaper(exam, attempt, snapshot, answers, s.now()), nil
}

// SaveAnswer records one selection. Saving again for the same question replaces it.
func (s *attemptService) SaveAnswer(ctx context.Context, caller models.Caller, attemptID, questionID, optionID uint) (err error) {
	op := s.logger.WithOperation(ctx, "save_answer", caller.ID)
	defer func() { op.LogResult(attemptID, "attempt", err) }()

	unlock, err := s.locker.Lock(ctx, lock.AttemptKey(attemptID))
	if err != nil {
		return fmt.Errorf("failed to lock attempt: %w", err)
	}
	defer unlock()

	attempt, err := s.getOwned(ctx, caller, attemptID)
	if err != nil {
		return err
	}
	if err := s.ensureActive(ctx, attempt); err != nil {
		return err
	}

	snapshot, err := s.snapshots.load(ctx, attempt.ExamID)
	if err != nil {
		return err
	}
	if errs := checkSelection(snapshot, questionID, optionID); len(errs) > 0 {
		return errs
	}

	answer := &models.AttemptAnswer{
		AttemptID:        attempt.ID,
		QuestionID:       questionID,
		SelectedOptionID: optionID,
		AnsweredAt:       s.now(),
	}
	if err := s.repo.Attempt().UpsertAnswer(ctx, answer); err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}
	return nil
}

// Submit closes the attempt and grades it. After the deadline the attempt is
// closed as expired instead and finalAnswers are ignored.
func (s *attemptService) Submit(ctx context.Context, caller models.Caller, attemptID uint, finalAnswers map[uint]uint) (result *models.Result, err error) {
	op := s.logger.WithOperation(ctx, "submit_attempt", caller.ID)
	defer func() { op.LogResult(attemptID, "attempt", err) }()

	unlock, err := s.locker.Lock(ctx, lock.AttemptKey(attemptID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock attempt: %w", err)
	}
	defer unlock()

	attempt, err := s.getOwned(ctx, caller, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptNotActive
	}
	if attempt.IsOverdue(s.now()) {
		return s.finish(ctx, attempt, models.AttemptExpired, nil)
	}

	if len(finalAnswers) > 0 {
		snapshot, err := s.snapshots.load(ctx, attempt.ExamID)
		if err != nil {
			return nil, err
		}
		var errs ValidationErrors
		for questionID, optionID := range finalAnswers {
			errs = append(errs, checkSelection(snapshot, questionID, optionID)...)
		}
		if len(errs) > 0 {
			return nil, errs
		}
	}

	return s.finish(ctx, attempt, models.AttemptSubmitted, finalAnswers)
}

// ExpireOverdue closes every overdue attempt. It keeps going past individual
// failures and reports them together.
func (s *attemptService) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	expired := 0
	var errs []error

	for {
		overdue, err := s.repo.Attempt().ListOverdue(ctx, now, sweepBatchSize)
		if err != nil {
			return expired, fmt.Errorf("failed to list overdue attempts: %w", err)
		}

		progressed := false
		for _, attempt := range overdue {
			if err := ctx.Err(); err != nil {
				return expired, err
			}
			ok, err := s.expireLocked(ctx, attempt.ID, now)
			if err != nil {
				errs = append(errs, fmt.Errorf("attempt %d: %w", attempt.ID, err))
				continue
			}
			if ok {
				expired++
				progressed = true
			}
		}

		if len(overdue) < sweepBatchSize || !progressed {
			break
		}
	}

	if expired > 0 {
		s.logger.logger.InfoContext(ctx, "Expired overdue attempts", "count", expired)
	}
	return expired, errors.Join(errs...)
}
