package memory

import (
	"context"
	"sort"
	"time"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
)

type attemptRepo struct {
	r *Repository
}

func (a *attemptRepo) Create(ctx context.Context, attempt *models.Attempt) error {
	defer a.r.lock()()
	st := a.r.data()
	key := examStudent{attempt.ExamID, attempt.StudentID}
	if _, exists := st.attemptIndex[key]; exists {
		return repositories.ErrDuplicate
	}

	now := time.Now()
	st.nextAttemptID++
	attempt.ID = st.nextAttemptID
	attempt.CreatedAt = now
	attempt.UpdatedAt = now
	st.attempts[attempt.ID] = copyAttempt(*attempt)
	st.attemptIndex[key] = attempt.ID
	return nil
}

func (a *attemptRepo) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	defer a.r.lock()()
	attempt, ok := a.r.data().attempts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := copyAttempt(attempt)
	return &out, nil
}

// GetByIDForUpdate needs no row lock: transactions already hold the store lock.
func (a *attemptRepo) GetByIDForUpdate(ctx context.Context, id uint) (*models.Attempt, error) {
	return a.GetByID(ctx, id)
}

func (a *attemptRepo) GetByExamAndStudent(ctx context.Context, examID uint, studentID string) (*models.Attempt, error) {
	defer a.r.lock()()
	st := a.r.data()
	id, ok := st.attemptIndex[examStudent{examID, studentID}]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := copyAttempt(st.attempts[id])
	return &out, nil
}

func (a *attemptRepo) ListByStudent(ctx context.Context, studentID string) ([]*models.Attempt, error) {
	return a.list(func(at models.Attempt) bool { return at.StudentID == studentID })
}

func (a *attemptRepo) ListByExam(ctx context.Context, examID uint) ([]*models.Attempt, error) {
	return a.list(func(at models.Attempt) bool { return at.ExamID == examID })
}

func (a *attemptRepo) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*models.Attempt, error) {
	out, err := a.list(func(at models.Attempt) bool {
		return at.Status == models.AttemptInProgress && at.Deadline != nil && at.Deadline.Before(now)
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Deadline.Before(*out[j].Deadline) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (a *attemptRepo) list(keep func(models.Attempt) bool) ([]*models.Attempt, error) {
	defer a.r.lock()()
	var out []*models.Attempt
	for _, attempt := range a.r.data().attempts {
		if keep(attempt) {
			c := copyAttempt(attempt)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (a *attemptRepo) Finalize(ctx context.Context, attempt *models.Attempt, from models.AttemptStatus) (bool, error) {
	defer a.r.lock()()
	st := a.r.data()
	stored, ok := st.attempts[attempt.ID]
	if !ok || stored.Status != from {
		return false, nil
	}
	stored.Status = attempt.Status
	stored.SubmittedAt = copyTime(attempt.SubmittedAt)
	stored.Score = attempt.Score
	stored.TotalMarks = attempt.TotalMarks
	stored.Percentage = attempt.Percentage
	stored.Grade = attempt.Grade
	stored.UpdatedAt = time.Now()
	st.attempts[attempt.ID] = stored
	return true, nil
}

func (a *attemptRepo) UpsertAnswer(ctx context.Context, answer *models.AttemptAnswer) error {
	defer a.r.lock()()
	st := a.r.data()
	byQuestion, ok := st.answers[answer.AttemptID]
	if !ok {
		byQuestion = make(map[uint]models.AttemptAnswer)
		st.answers[answer.AttemptID] = byQuestion
	}
	byQuestion[answer.QuestionID] = *answer
	return nil
}

func (a *attemptRepo) GetAnswers(ctx context.Context, attemptID uint) ([]models.AttemptAnswer, error) {
	defer a.r.lock()()
	byQuestion := a.r.data().answers[attemptID]
	out := make([]models.AttemptAnswer, 0, len(byQuestion))
	for _, ans := range byQuestion {
		out = append(out, ans)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}
