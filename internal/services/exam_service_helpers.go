package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
)

// load reads an exam with its assigned students filled in.
func (s *examService) load(ctx context.Context, id uint) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrExamNotFound, "failed to get exam")
	}
	students, err := s.repo.Exam().GetStudentIDs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get exam students: %w", err)
	}
	exam.StudentIDs = students
	return exam, nil
}

// lockDraft is the guard shared by the assignment operations. It must run inside
// the transaction that performs the write, so a concurrent Publish either
// finishes first or waits for the write.
func lockDraft(ctx context.Context, tx repositories.Repository, id uint) (*models.Exam, error) {
	exam, err := tx.Exam().GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if exam.IsPublished() {
		return nil, ErrExamNotEditable
	}
	return exam, nil
}

// examWriteError maps the outcome of a guarded exam write. A status change seen
// by the repository means the exam was published underneath the write.
func examWriteError(err error, action string) error {
	switch {
	case errors.Is(err, repositories.ErrStatusChanged):
		return ErrExamNotEditable
	case errors.Is(err, ErrExamNotEditable), IsValidation(err):
		return err
	}
	return mapNotFound(err, ErrExamNotFound, action)
}

// rosterFor reads enrollments through tx unless an external roster is configured.
func (s *examService) rosterFor(tx repositories.Repository) repositories.RosterSource {
	if s.roster != nil {
		return s.roster
	}
	return tx.Roster()
}

func checkQuestionsExist(ctx context.Context, repo repositories.Repository, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := repo.Question().GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to look up questions: %w", err)
	}
	if len(found) == len(ids) {
		return nil
	}

	present := make(map[uint]bool, len(found))
	for _, q := range found {
		present[q.ID] = true
	}
	var errs ValidationErrors
	for _, id := range ids {
		if !present[id] {
			errs.Add("question_ids", fmt.Sprintf("question %d does not exist", id), id)
		}
	}
	return errs.OrNil()
}

func examID(exam *models.Exam) uint {
	if exam == nil {
		return 0
	}
	return exam.ID
}

// uniqueIDs drops zero and repeated ids, keeping first-seen order.
func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
