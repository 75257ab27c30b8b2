package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/odunayomike/report-card-generator-sub003/internal/events"
	"github.com/odunayomike/report-card-generator-sub003/internal/grading"
	"github.com/odunayomike/report-card-generator-sub003/internal/lock"
	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/reportcard"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
	"github.com/odunayomike/report-card-generator-sub003/internal/scheduling"
)

func (s *attemptService) getOwned(ctx context.Context, caller models.Caller, attemptID uint) (*models.Attempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		return nil, mapNotFound(err, ErrAttemptNotFound, "failed to get attempt")
	}
	if attempt.StudentID != caller.ID {
		return nil, ErrForbidden
	}
	return attempt, nil
}

// resume returns an existing attempt to a second Start call. An attempt found
// past its deadline is closed on the spot.
func (s *attemptService) resume(ctx context.Context, attempt *models.Attempt) (*models.Attempt, error) {
	if err := s.ensureActive(ctx, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// ensureActive rejects attempts that are closed or out of time. Overdue attempts
// are expired lazily here so the sweeper is not the only path that closes them.
func (s *attemptService) ensureActive(ctx context.Context, attempt *models.Attempt) error {
	if attempt.Status != models.AttemptInProgress {
		return ErrAttemptNotActive
	}
	if !attempt.IsOverdue(s.now()) {
		return nil
	}
	if _, err := s.finish(ctx, attempt, models.AttemptExpired, nil); err != nil && !errors.Is(err, ErrAttemptNotActive) {
		return err
	}
	return ErrAttemptNotActive
}

// expireLocked closes one overdue attempt for the sweeper. It reports false when
// the attempt was already closed by someone else.
func (s *attemptService) expireLocked(ctx context.Context, attemptID uint, now time.Time) (bool, error) {
	unlock, err := s.locker.Lock(ctx, lock.AttemptKey(attemptID))
	if err != nil {
		return false, fmt.Errorf("failed to lock attempt: %w", err)
	}
	defer unlock()

	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !attempt.IsOverdue(now) {
		return false, nil
	}

	if _, err := s.finish(ctx, attempt, models.AttemptExpired, nil); err != nil {
		if errors.Is(err, ErrAttemptNotActive) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// finish moves an in-progress attempt to status, grades it and stores the result
// in one transaction. The status change is compare-and-set, so only one of a
// racing submit and expiry gets through; the other sees ErrAttemptNotActive.
func (s *attemptService) finish(ctx context.Context, attempt *models.Attempt, status models.AttemptStatus, finalAnswers map[uint]uint) (*models.Result, error) {
	exam, err := s.repo.Exam().GetByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, mapNotFound(err, ErrExamNotFound, "failed to get exam")
	}
	snapshot, err := s.snapshots.load(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var result *models.Result
	var closed *models.Attempt

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		current, err := tx.Attempt().GetByIDForUpdate(ctx, attempt.ID)
		if err != nil {
			return err
		}
		if current.Status != models.AttemptInProgress {
			return ErrAttemptNotActive
		}

		for questionID, optionID := range finalAnswers {
			answer := &models.AttemptAnswer{
				AttemptID:        current.ID,
				QuestionID:       questionID,
				SelectedOptionID: optionID,
				AnsweredAt:       now,
			}
			if err := tx.Attempt().UpsertAnswer(ctx, answer); err != nil {
				return err
			}
		}

		saved, err := tx.Attempt().GetAnswers(ctx, current.ID)
		if err != nil {
			return err
		}
		answers := make(map[uint]uint, len(saved))
		for _, a := range saved {
			answers[a.QuestionID] = a.SelectedOptionID
		}

		outcome := grading.Grade(snapshot, answers, s.bands)
		current.Status = status
		current.SubmittedAt = &now
		current.Score = outcome.TotalScore
		current.TotalMarks = outcome.TotalMarks
		current.Percentage = outcome.Percentage
		current.Grade = outcome.Grade

		ok, err := tx.Attempt().Finalize(ctx, current, models.AttemptInProgress)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAttemptNotActive
		}

		result = &models.Result{
			AttemptID:        current.ID,
			ExamID:           current.ExamID,
			StudentID:        current.StudentID,
			TotalScore:       outcome.TotalScore,
			TotalMarks:       outcome.TotalMarks,
			Percentage:       outcome.Percentage,
			Grade:            outcome.Grade,
			CorrectCount:     outcome.CorrectCount,
			WrongCount:       outcome.WrongCount,
			UnansweredCount:  outcome.UnansweredCount,
			Details:          outcome.Details,
			TimeTakenSeconds: timeTaken(current, now),
			Reason:           reasonFor(status),
			GradedAt:         now,
		}
		if err := tx.Result().Create(ctx, result); err != nil {
			return err
		}
		closed = current
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAttemptNotActive) {
			return nil, err
		}
		return nil, mapNotFound(err, ErrAttemptNotFound, "failed to finalize attempt")
	}

	s.afterFinish(ctx, exam, closed, result)
	return result, nil
}

// afterFinish runs the notifications for a closed attempt. None of them can undo it.
func (s *attemptService) afterFinish(ctx context.Context, exam *models.Exam, attempt *models.Attempt, result *models.Result) {
	if s.dispatcher != nil {
		err := s.dispatcher.Dispatch(reportcard.ExamGraded{
			StudentID:      result.StudentID,
			ExamID:         exam.ID,
			Score:          result.TotalScore,
			Percentage:     result.Percentage,
			Term:           exam.Term,
			Session:        exam.Session,
			Subject:        exam.Subject,
			AssessmentType: exam.AssessmentType,
		})
		if err != nil {
			s.logger.logger.WarnContext(ctx, "Result not queued for report card",
				"attempt_id", attempt.ID,
				"error", err)
		}
	}

	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.EventAttemptSubmitted, events.AttemptSubmittedEvent{
		AttemptID:   attempt.ID,
		ExamID:      attempt.ExamID,
		StudentID:   attempt.StudentID,
		Status:      string(attempt.Status),
		SubmittedAt: result.GradedAt,
		Score:       result.TotalScore,
		TotalMarks:  result.TotalMarks,
		Percentage:  result.Percentage,
		Grade:       result.Grade,
	}))

	s.logger.LogAudit(ctx, AuditAttemptFinished, attempt.StudentID, attempt.ID, map[string]interface{}{
		"exam_id": attempt.ExamID,
		"status":  attempt.Status,
		"score":   result.TotalScore,
	})
}

// checkSelection verifies the question is on the paper and the option belongs to it.
func checkSelection(snapshot []models.ExamQuestion, questionID, optionID uint) ValidationErrors {
	var errs ValidationErrors
	q := findQuestion(snapshot, questionID)
	if q == nil {
		errs.Add("question_id", fmt.Sprintf("question %d is not part of this exam", questionID), questionID)
		return errs
	}
	if !q.HasOption(optionID) {
		errs.Add("option_id", fmt.Sprintf("option %d does not belong to question %d", optionID, questionID), optionID)
	}
	return errs
}

// timeTaken is capped at the deadline so a late close does not inflate it.
func timeTaken(attempt *models.Attempt, end time.Time) int64 {
	if attempt.StartedAt == nil {
		return 0
	}
	if attempt.Deadline != nil && end.After(*attempt.Deadline) {
		end = *attempt.Deadline
	}
	if d := end.Sub(*attempt.StartedAt); d > 0 {
		return int64(d / time.Second)
	}
	return 0
}

func reasonFor(status models.AttemptStatus) models.ResultReason {
	if status == models.AttemptExpired {
		return models.ReasonExpired
	}
	return models.ReasonSubmitted
}

func buildPaper(exam *models.Exam, attempt *models.Attempt, snapshot []models.ExamQuestion, answers []models.AttemptAnswer, now time.Time) *AttemptPaper {
	byID := make(map[uint]*models.ExamQuestion, len(snapshot))
	for i := range snapshot {
		byID[snapshot[i].QuestionID] = &snapshot[i]
	}

	order := []uint(attempt.QuestionOrder)
	if len(order) == 0 {
		for _, q := range snapshot {
			order = append(order, q.QuestionID)
		}
	}

	optionOrder := make(map[uint][]uint, len(attempt.OptionOrder))
	for _, entry := range attempt.OptionOrder {
		optionOrder[entry.QuestionID] = entry.OptionIDs
	}

	selected := make(map[uint]uint, len(answers))
	for _, a := range answers {
		selected[a.QuestionID] = a.SelectedOptionID
	}

	paper := &AttemptPaper{
		AttemptID:        attempt.ID,
		ExamID:           exam.ID,
		Title:            exam.Title,
		Instructions:     exam.Instructions,
		Status:           attempt.Status,
		StartedAt:        attempt.StartedAt,
		Deadline:         attempt.Deadline,
		SecondsRemaining: scheduling.SecondsRemaining(attempt, now),
		Questions:        make([]PaperQuestion, 0, len(order)),
	}

	for _, questionID := range order {
		q, ok := byID[questionID]
		if !ok {
			continue
		}
		pq := PaperQuestion{
			QuestionID: q.QuestionID,
			Number:     len(paper.Questions) + 1,
			Text:       q.Text,
			Marks:      q.Marks,
			Options:    paperOptions(q, optionOrder[questionID]),
		}
		if optionID, ok := selected[questionID]; ok {
			id := optionID
			pq.SelectedOptionID = &id
		}
		paper.Questions = append(paper.Questions, pq)
	}
	return paper
}

func paperOptions(q *models.ExamQuestion, order []uint) []PaperOption {
	text := make(map[uint]string, len(q.Options))
	for _, o := range q.Options {
		text[o.ID] = o.Text
	}

	if len(order) == 0 {
		for _, o := range q.Options {
			order = append(order, o.ID)
		}
	}

	out := make([]PaperOption, 0, len(order))
	for _, id := range order {
		if t, ok := text[id]; ok {
			out = append(out, PaperOption{ID: id, Text: t})
		}
	}
	return out
}
