package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odunayomike/report-card-generator-sub003/internal/cache"
	"github.com/odunayomike/report-card-generator-sub003/internal/events"
	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
	"github.com/odunayomike/report-card-generator-sub003/internal/validator"
)

// errPublishLost rolls back a publish that lost the race to a concurrent one.
var errPublishLost = errors.New("exam already published")

type examService struct {
	repo      repositories.Repository
	roster    repositories.RosterSource
	snapshots snapshotLoader
	publisher events.EventPublisher
	logger    *ServiceLogger
	validator *validator.Validator
	now       func() time.Time
}

type ExamServiceConfig struct {
	Repo      repositories.Repository
	// Roster defaults to the repository's own enrollment table.
	Roster    repositories.RosterSource
	Snapshots *cache.SnapshotCache
	Publisher events.EventPublisher
	Validator *validator.Validator
	Logger    *slog.Logger
	Now       func() time.Time
}

func NewExamService(cfg ExamServiceConfig) ExamService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &examService{
		repo:      cfg.Repo,
		roster:    cfg.Roster,
		snapshots: snapshotLoader{repo: cfg.Repo, cache: cfg.Snapshots},
		publisher: cfg.Publisher,
		logger:    NewServiceLogger(cfg.Logger, "exam_service"),
		validator: cfg.Validator,
		now:       cfg.Now,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *examService) Create(ctx context.Context, caller models.Caller, req *models.CreateExamRequest) (exam *models.Exam, err error) {
	op := s.logger.WithOperation(ctx, "create_exam", caller.ID)
	defer func() { op.LogResult(examID(exam), "exam", err) }()

	if !caller.IsStaff() {
		return nil, ErrForbidden
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if errs := s.validator.Business().ValidateExamCreate(req); len(errs) > 0 {
		return nil, errs
	}

	questionIDs := uniqueIDs(req.QuestionIDs)
	if err := checkQuestionsExist(ctx, s.repo, questionIDs); err != nil {
		return nil, err
	}

	exam = &models.Exam{
		Title:                      req.Title,
		Subject:                    req.Subject,
		Class:                      req.Class,
		Session:                    req.Session,
		Term:                       req.Term,
		AssessmentType:             req.AssessmentType,
		DurationMinutes:            req.DurationMinutes,
		TotalScore:                 req.TotalScore,
		Instructions:               req.Instructions,
		ShuffleQuestions:           req.ShuffleQuestions,
		ShuffleOptions:             req.ShuffleOptions,
		HideResultsAfterSubmission: req.HideResults(),
		StartAt:                    req.StartAt,
		EndAt:                      req.EndAt,
		Status:                     models.ExamDraft,
		CreatedBy:                  caller.ID,
		QuestionIDs:                questionIDs,
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Exam().Create(ctx, exam); err != nil {
			return err
		}
		if students := uniqueStrings(req.StudentIDs); len(students) > 0 {
			return tx.Exam().SetStudents(ctx, exam.ID, students)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}

	return s.load(ctx, exam.ID)
}

// Update applies a partial patch. Once published only presentation and timing
// fields may change.
func (s *examService) Update(ctx context.Context, caller models.Caller, id uint, req *models.UpdateExamRequest) (exam *models.Exam, err error) {
	op := s.logger.WithOperation(ctx, "update_exam", caller.ID)
	defer func() { op.LogResult(id, "exam", err) }()

	if !caller.IsStaff() {
		return nil, ErrForbidden
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		current, err := tx.Exam().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.IsPublished() && req.TouchesFrozenFields() {
			return ErrExamNotEditable
		}
		if errs := s.validator.Business().ValidateExamUpdate(req, current); len(errs) > 0 {
			return errs
		}

		req.ApplyTo(current)
		return tx.Exam().Update(ctx, current)
	})
	if err != nil {
		return nil, examWriteError(err, "failed to update exam")
	}
	return s.load(ctx, id)
}

func (s *examService) Delete(ctx context.Context, caller models.Caller, id uint, force bool) (err error) {
	op := s.logger.WithOperation(ctx, "delete_exam", caller.ID)
	defer func() { op.LogResult(id, "exam", err) }()

	if !caller.IsStaff() {
		return ErrForbidden
	}
	exam, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if exam.IsPublished() && !force {
		return ErrExamNotDeletable
	}

	if err := s.repo.Exam().Delete(ctx, id); err != nil {
		return mapNotFound(err, ErrExamNotFound, "failed to delete exam")
	}
	s.snapshots.cache.Invalidate(ctx, id)

	s.logger.LogAudit(ctx, AuditExamDeleted, caller.ID, id, map[string]interface{}{
		"status": exam.Status,
		"force":  force,
	})
	return nil
}

// GetByID lets staff see any exam. A student only sees published exams they are
// assigned to, and never the roster.
func (s *examService) GetByID(ctx context.Context, caller models.Caller, id uint) (*models.Exam, error) {
	exam, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.IsStaff() {
		return exam, nil
	}

	if !exam.IsPublished() {
		return nil, ErrExamNotFound
	}
	assigned, err := s.repo.Exam().IsAssigned(ctx, id, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check assignment: %w", err)
	}
	if !assigned {
		return nil, ErrNotAssigned
	}
	exam.StudentIDs = nil
	return exam, nil
}

func (s *examService) List(ctx context.Context, caller models.Caller, filter models.ExamFilter) (*models.ListResponse[*models.Exam], error) {
	if !caller.IsStaff() {
		return nil, ErrForbidden
	}
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)

	items, total, err := s.repo.Exam().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	if items == nil {
		items = []*models.Exam{}
	}
	return &models.ListResponse[*models.Exam]{
		Items:  items,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// ===== ASSIGNMENT =====

func (s *examService) AssignQuestions(ctx context.Context, caller models.Caller, id uint, questionIDs []uint) (exam *models.Exam, err error) {
	op := s.logger.WithOperation(ctx, "assign_questions", caller.ID)
	defer func() { op.LogResult(id, "exam", err) }()

	if !caller.IsStaff() {
		return nil, ErrForbidden
	}

	ids := uniqueIDs(questionIDs)
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		draft, err := lockDraft(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := checkQuestionsExist(ctx, tx, ids); err != nil {
			return err
		}
		draft.QuestionIDs = ids
		return tx.Exam().Update(ctx, draft)
	})
	if err != nil {
		return nil, examWriteError(err, "failed to assign questions")
	}
	return s.load(ctx, id)
}

func (s *examService) AssignStudents(ctx context.Context, caller models.Caller, id uint, studentIDs []string) (exam *models.Exam, err error) {
	op := s.logger.WithOperation(ctx, "assign_students", caller.ID)
	defer func() { op.LogResult(id, "exam", err) }()

	if !caller.IsStaff() {
		return nil, ErrForbidden
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if _, err := lockDraft(ctx, tx, id); err != nil {
			return err
		}
		return tx.Exam().SetStudents(ctx, id, uniqueStrings(studentIDs))
	})
	if err != nil {
		return nil, examWriteError(err, "failed to assign students")
	}
	return s.load(ctx, id)
}

func (s *examService) AssignClass(ctx context.Context, caller models.Caller, id uint) (exam *models.Exam, err error) {
	op := s.logger.WithOperation(ctx, "assign_class", caller.ID)
	defer func() { op.LogResult(id, "exam", err) }()

	if !caller.IsStaff() {
		return nil, ErrForbidden
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		draft, err := lockDraft(ctx, tx, id)
		if err != nil {
			return err
		}
		students, err := s.rosterFor(tx).StudentsInClass(ctx, draft.Class, draft.Session, draft.Term)
		if err != nil {
			return fmt.Errorf("failed to read class roster: %w", err)
		}
		return tx.Exam().SetStudents(ctx, id, uniqueStrings(students))
	})
	if err != nil {
		return nil, examWriteError(err, "failed to assign class")
	}
	return s.load(ctx, id)
}

// ===== PUBLISHING =====

// Publish freezes the paper. Publishing an exam that is already published
// returns it unchanged.
func (s *examService) Publish(ctx context.Context, caller models.Caller, id uint) (exam *models.Exam, err error) {
	op := s.logger.WithOperation(ctx, "publish_exam", caller.ID)
	defer func() { op.LogResult(id, "exam", err) }()

	if !caller.IsStaff() {
		return nil, ErrForbidden
	}

	var snapshot []models.ExamQuestion
	var students []string
	published := false

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		current, err := tx.Exam().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.IsPublished() {
			return nil
		}

		questions, err := tx.Question().GetByIDs(ctx, current.QuestionIDs)
		if err != nil {
			return err
		}
		students, err = tx.Exam().GetStudentIDs(ctx, id)
		if err != nil {
			return err
		}
		if len(questions) == 0 || len(students) == 0 {
			return NewBusinessRuleError(RulePublishRequirements,
				"an exam needs at least one question and one assigned student before publishing",
				map[string]interface{}{
					"question_count": len(questions),
					"student_count":  len(students),
				})
		}

		snapshot = buildSnapshot(current, questions)
		if err := tx.ExamQuestion().SaveSnapshot(ctx, id, snapshot); err != nil {
			return err
		}
		ok, err := tx.Exam().MarkPublished(ctx, id, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return errPublishLost
		}
		published = true
		return nil
	})

	switch {
	case errors.Is(err, errPublishLost):
		return s.load(ctx, id)
	case IsBusinessRule(err):
		return nil, err
	case err != nil:
		return nil, mapNotFound(err, ErrExamNotFound, "failed to publish exam")
	}

	exam, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !published {
		return exam, nil
	}

	s.snapshots.cache.Put(ctx, id, snapshot)
	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.EventExamPublished, events.ExamPublishedEvent{
		ExamID:          exam.ID,
		Title:           exam.Title,
		Subject:         exam.Subject,
		Class:           exam.Class,
		DurationMinutes: exam.DurationMinutes,
		StartAt:         exam.StartAt,
		EndAt:           exam.EndAt,
		QuestionCount:   len(snapshot),
		StudentIDs:      students,
		PublishedBy:     caller.ID,
	}))
	s.logger.LogAudit(ctx, AuditExamPublished, caller.ID, id, map[string]interface{}{
		"question_count": len(snapshot),
		"student_count":  len(students),
	})
	return exam, nil
}

// ===== QUESTIONS & RESULTS =====

func (s *examService) GetQuestions(ctx context.Context, caller models.Caller, id uint) ([]models.ExamQuestion, error) {
	if !caller.IsStaff() {
		return nil, ErrForbidden
	}
	exam, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if exam.IsPublished() {
		return s.snapshots.load(ctx, id)
	}

	questions, err := s.repo.Question().GetByIDs(ctx, exam.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve exam questions: %w", err)
	}
	return buildSnapshot(exam, questions), nil
}

func (s *examService) ListResults(ctx context.Context, caller models.Caller, id uint) ([]*models.Result, error) {
	if !caller.IsStaff() {
		return nil, ErrForbidden
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	results, err := s.repo.Result().ListByExam(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	if results == nil {
		results = []*models.Result{}
	}
	return results, nil
}
