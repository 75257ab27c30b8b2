package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
)

type questionRepo struct {
	r *Repository
}

func (q *questionRepo) insert(st *state, question *models.Question) {
	now := time.Now()
	st.nextQuestionID++
	question.ID = st.nextQuestionID
	question.CreatedAt = now
	question.UpdatedAt = now
	for i := range question.Options {
		st.nextOptionID++
		question.Options[i].ID = st.nextOptionID
		question.Options[i].QuestionID = question.ID
	}
	st.questions[question.ID] = copyQuestion(*question)
}

func (q *questionRepo) Create(ctx context.Context, question *models.Question) error {
	defer q.r.lock()()
	q.insert(q.r.data(), question)
	return nil
}

func (q *questionRepo) CreateBatch(ctx context.Context, questions []*models.Question) error {
	defer q.r.lock()()
	st := q.r.data()
	for _, question := range questions {
		q.insert(st, question)
	}
	return nil
}

func (q *questionRepo) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	defer q.r.lock()()
	question, ok := q.r.data().questions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := copyQuestion(question)
	return &out, nil
}

func (q *questionRepo) GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error) {
	defer q.r.lock()()
	st := q.r.data()
	seen := make(map[uint]bool, len(ids))
	var out []*models.Question
	for _, id := range ids {
		question, ok := st.questions[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		c := copyQuestion(question)
		out = append(out, &c)
	}
	return out, nil
}

func (q *questionRepo) Update(ctx context.Context, question *models.Question) error {
	defer q.r.lock()()
	st := q.r.data()
	existing, ok := st.questions[question.ID]
	if !ok {
		return repositories.ErrNotFound
	}

	question.CreatedAt = existing.CreatedAt
	question.CreatedBy = existing.CreatedBy
	question.UpdatedAt = time.Now()
	for i := range question.Options {
		st.nextOptionID++
		question.Options[i].ID = st.nextOptionID
		question.Options[i].QuestionID = question.ID
		question.Options[i].Position = i
	}
	st.questions[question.ID] = copyQuestion(*question)
	return nil
}

func (q *questionRepo) Delete(ctx context.Context, id uint) error {
	defer q.r.lock()()
	st := q.r.data()
	if _, ok := st.questions[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(st.questions, id)
	return nil
}

func (q *questionRepo) DeleteBatch(ctx context.Context, ids []uint) (int64, error) {
	defer q.r.lock()()
	st := q.r.data()
	var n int64
	for _, id := range ids {
		if _, ok := st.questions[id]; ok {
			delete(st.questions, id)
			n++
		}
	}
	return n, nil
}

func (q *questionRepo) List(ctx context.Context, filter models.QuestionFilter) ([]*models.Question, int64, error) {
	defer q.r.lock()()

	var matched []models.Question
	for _, question := range q.r.data().questions {
		if matchesQuestion(question, filter) {
			matched = append(matched, question)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	matched = paginate(matched, filter.Limit, filter.Offset)

	out := make([]*models.Question, len(matched))
	for i := range matched {
		c := copyQuestion(matched[i])
		out[i] = &c
	}
	return out, total, nil
}

func matchesQuestion(q models.Question, f models.QuestionFilter) bool {
	if f.Subject != "" && !strings.EqualFold(q.Subject, f.Subject) {
		return false
	}
	if f.Class != "" && !strings.EqualFold(q.Class, f.Class) {
		return false
	}
	if f.Difficulty != "" && q.Difficulty != f.Difficulty {
		return false
	}
	if f.Topic != "" {
		if q.Topic == nil || !strings.Contains(strings.ToLower(*q.Topic), strings.ToLower(f.Topic)) {
			return false
		}
	}
	if f.CreatedBy != "" && q.CreatedBy != f.CreatedBy {
		return false
	}
	return true
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
