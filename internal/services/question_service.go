package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
	"github.com/odunayomike/report-card-generator-sub003/internal/validator"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type questionService struct {
	repo      repositories.Repository
	logger    *ServiceLogger
	validator *validator.Validator
}

func NewQuestionService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) QuestionService {
	return &questionService{
		repo:      repo,
		logger:    NewServiceLogger(logger, "question_service"),
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *questionService) Create(ctx context.Context, caller models.Caller, draft *models.QuestionDraft) (q *models.Question, err error) {
	op := s.logger.WithOperation(ctx, "create_question", caller.ID)
	defer func() { op.LogResult(questionID(q), "question", err) }()

	if !caller.IsStaff() {
		return nil, ErrForbidden
	}
	if err := s.validator.ValidateQuestionDraft(draft); err != nil {
		return nil, err
	}

	q = draft.ToQuestion(caller.ID)
	if err := s.repo.Question().Create(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	return q, nil
}

func (s *questionService) CreateBatch(ctx context.Context, caller models.Caller, drafts []models.QuestionDraft) (out []*models.Question, err error) {
	op := s.logger.WithOperation(ctx, "create_questions_batch", caller.ID)
	defer func() { op.LogResult(0, "question", err) }()

	if !caller.IsStaff() {
		return nil, ErrForbidden
	}
	if err := s.validator.ValidateBatch(drafts); err != nil {
		return nil, err
	}

	out = make([]*models.Question, len(drafts))
	for i := range drafts {
		out[i] = drafts[i].ToQuestion(caller.ID)
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		return tx.Question().CreateBatch(ctx, out)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create questions: %w", err)
	}
	return out, nil
}

func (s *questionService) GetByID(ctx context.Context, caller models.Caller, id uint) (*models.Question, error) {
	if !caller.IsStaff() {
		return nil, ErrForbidden
	}
	q, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrQuestionNotFound, "failed to get question")
	}
	return q, nil
}

// Update replaces the question and its options. Published exams keep their
// snapshot, so only drafts see the change.
func (s *questionService) Update(ctx context.Context, caller models.Caller, id uint, draft *models.QuestionDraft) (q *models.Question, err error) {
	op := s.logger.WithOperation(ctx, "update_question", caller.ID)
	defer func() { op.LogResult(id, "question", err) }()

	if !caller.IsStaff() {
		return nil, ErrForbidden
	}
	if err := s.validator.ValidateQuestionDraft(draft); err != nil {
		return nil, err
	}

	q = draft.ToQuestion(caller.ID)
	q.ID = id
	if err := s.repo.Question().Update(ctx, q); err != nil {
		return nil, mapNotFound(err, ErrQuestionNotFound, "failed to update question")
	}
	return q, nil
}

// Delete removes a question from the bank. Draft exams that still list it drop it
// when they resolve their questions.
func (s *questionService) Delete(ctx context.Context, caller models.Caller, id uint) (err error) {
	op := s.logger.WithOperation(ctx, "delete_question", caller.ID)
	defer func() { op.LogResult(id, "question", err) }()

	if !caller.IsStaff() {
		return ErrForbidden
	}
	if err := s.repo.Question().Delete(ctx, id); err != nil {
		return mapNotFound(err, ErrQuestionNotFound, "failed to delete question")
	}
	return nil
}

func (s *questionService) DeleteBatch(ctx context.Context, caller models.Caller, ids []uint) (n int64, err error) {
	op := s.logger.WithOperation(ctx, "delete_questions_batch", caller.ID)
	defer func() { op.LogResult(0, "question", err) }()

	if !caller.IsStaff() {
		return 0, ErrForbidden
	}
	if len(ids) == 0 {
		return 0, ValidationErrors{*NewValidationError("ids", "at least one id is required", 0)}
	}
	n, err = s.repo.Question().DeleteBatch(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete questions: %w", err)
	}
	return n, nil
}

func (s *questionService) List(ctx context.Context, caller models.Caller, filter models.QuestionFilter) (*models.ListResponse[*models.Question], error) {
	if !caller.IsStaff() {
		return nil, ErrForbidden
	}
	if filter.Difficulty != "" {
		if _, ok := models.ParseDifficulty(string(filter.Difficulty)); !ok {
			return nil, ValidationErrors{*NewValidationError("difficulty", "must be one of easy, medium, hard", filter.Difficulty)}
		}
	}
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)

	items, total, err := s.repo.Question().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	if items == nil {
		items = []*models.Question{}
	}
	return &models.ListResponse[*models.Question]{
		Items:  items,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// ===== HELPERS =====

func questionID(q *models.Question) uint {
	if q == nil {
		return 0
	}
	return q.ID
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
