package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
)

type resultRepo struct {
	r *Repository
}

func (r *resultRepo) Create(ctx context.Context, result *models.Result) error {
	defer r.r.lock()()
	st := r.r.data()
	if _, exists := st.resultByAttempt[result.AttemptID]; exists {
		return repositories.ErrDuplicate
	}
	st.nextResultID++
	result.ID = st.nextResultID
	st.results[result.ID] = copyResult(*result)
	st.resultByAttempt[result.AttemptID] = result.ID
	return nil
}

func (r *resultRepo) GetByAttempt(ctx context.Context, attemptID uint) (*models.Result, error) {
	defer r.r.lock()()
	st := r.r.data()
	id, ok := st.resultByAttempt[attemptID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := copyResult(st.results[id])
	return &out, nil
}

func (r *resultRepo) ListByExam(ctx context.Context, examID uint) ([]*models.Result, error) {
	defer r.r.lock()()
	var out []*models.Result
	for _, result := range r.r.data().results {
		if result.ExamID == examID {
			c := copyResult(result)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

type rosterRepo struct {
	r *Repository
}

func (r *rosterRepo) StudentsInClass(ctx context.Context, class, session, term string) ([]string, error) {
	defer r.r.lock()()
	seen := map[string]bool{}
	var ids []string
	for e := range r.r.data().enrollments {
		if !strings.EqualFold(e.Class, class) {
			continue
		}
		if (session != "" && e.Session != session) || (term != "" && e.Term != term) {
			continue
		}
		if !seen[e.StudentID] {
			seen[e.StudentID] = true
			ids = append(ids, e.StudentID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *rosterRepo) Enroll(ctx context.Context, enrollments []models.Enrollment) error {
	defer r.r.lock()()
	for _, e := range enrollments {
		r.r.data().enrollments[e] = struct{}{}
	}
	return nil
}
