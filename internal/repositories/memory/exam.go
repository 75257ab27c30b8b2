package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
)

type examRepo struct {
	r *Repository
}

func (e *examRepo) Create(ctx context.Context, exam *models.Exam) error {
	defer e.r.lock()()
	st := e.r.data()
	now := time.Now()
	st.nextExamID++
	exam.ID = st.nextExamID
	exam.CreatedAt = now
	exam.UpdatedAt = now
	st.exams[exam.ID] = copyExam(*exam)
	return nil
}

func (e *examRepo) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	defer e.r.lock()()
	st := e.r.data()
	exam, ok := st.exams[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := withComputed(st, exam)
	return &out, nil
}

// GetByIDForUpdate needs no row lock: transactions already hold the store lock.
func (e *examRepo) GetByIDForUpdate(ctx context.Context, id uint) (*models.Exam, error) {
	return e.GetByID(ctx, id)
}

func (e *examRepo) Update(ctx context.Context, exam *models.Exam) error {
	defer e.r.lock()()
	st := e.r.data()
	stored, ok := st.exams[exam.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	if stored.Status != exam.Status {
		return repositories.ErrStatusChanged
	}

	exam.UpdatedAt = time.Now()
	next := copyExam(*exam)
	next.Status = stored.Status
	next.PublishedAt = stored.PublishedAt
	next.CreatedAt = stored.CreatedAt
	st.exams[exam.ID] = next
	return nil
}

func (e *examRepo) Delete(ctx context.Context, id uint) error {
	defer e.r.lock()()
	st := e.r.data()
	if _, ok := st.exams[id]; !ok {
		return repositories.ErrNotFound
	}

	for attemptID, attempt := range st.attempts {
		if attempt.ExamID != id {
			continue
		}
		delete(st.answers, attemptID)
		if resultID, ok := st.resultByAttempt[attemptID]; ok {
			delete(st.results, resultID)
			delete(st.resultByAttempt, attemptID)
		}
		delete(st.attemptIndex, examStudent{attempt.ExamID, attempt.StudentID})
		delete(st.attempts, attemptID)
	}
	delete(st.snapshots, id)
	delete(st.examStudents, id)
	delete(st.exams, id)
	return nil
}

func (e *examRepo) List(ctx context.Context, filter models.ExamFilter) ([]*models.Exam, int64, error) {
	defer e.r.lock()()
	st := e.r.data()

	var matched []models.Exam
	for _, exam := range st.exams {
		if matchesExam(exam, filter) {
			matched = append(matched, exam)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	matched = paginate(matched, filter.Limit, filter.Offset)

	out := make([]*models.Exam, len(matched))
	for i := range matched {
		c := withComputed(st, matched[i])
		out[i] = &c
	}
	return out, total, nil
}

func (e *examRepo) MarkPublished(ctx context.Context, id uint, at time.Time) (bool, error) {
	defer e.r.lock()()
	st := e.r.data()
	exam, ok := st.exams[id]
	if !ok || exam.Status != models.ExamDraft {
		return false, nil
	}
	exam.Status = models.ExamPublished
	exam.PublishedAt = copyTime(&at)
	exam.UpdatedAt = at
	st.exams[id] = exam
	return true, nil
}

func (e *examRepo) SetStudents(ctx context.Context, examID uint, studentIDs []string) error {
	defer e.r.lock()()
	exam, ok := e.r.data().exams[examID]
	if !ok {
		return repositories.ErrNotFound
	}
	if exam.Status != models.ExamDraft {
		return repositories.ErrStatusChanged
	}

	set := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		set[id] = struct{}{}
	}
	e.r.data().examStudents[examID] = set
	return nil
}

func (e *examRepo) GetStudentIDs(ctx context.Context, examID uint) ([]string, error) {
	defer e.r.lock()()
	return studentIDs(e.r.data(), examID), nil
}

func (e *examRepo) IsAssigned(ctx context.Context, examID uint, studentID string) (bool, error) {
	defer e.r.lock()()
	_, ok := e.r.data().examStudents[examID][studentID]
	return ok, nil
}

func (e *examRepo) ListPublishedForStudent(ctx context.Context, studentID string) ([]*models.Exam, error) {
	defer e.r.lock()()
	st := e.r.data()

	var out []*models.Exam
	for examID, students := range st.examStudents {
		if _, ok := students[studentID]; !ok {
			continue
		}
		exam, ok := st.exams[examID]
		if !ok || exam.Status != models.ExamPublished {
			continue
		}
		c := withComputed(st, exam)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func studentIDs(st *state, examID uint) []string {
	ids := make([]string, 0, len(st.examStudents[examID]))
	for id := range st.examStudents[examID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func withComputed(st *state, exam models.Exam) models.Exam {
	out := copyExam(exam)
	if out.IsPublished() {
		out.QuestionCount = len(st.snapshots[exam.ID])
	} else {
		out.QuestionCount = len(out.QuestionIDs)
	}
	return out
}

func matchesExam(e models.Exam, f models.ExamFilter) bool {
	if f.Subject != "" && !strings.EqualFold(e.Subject, f.Subject) {
		return false
	}
	if f.Class != "" && !strings.EqualFold(e.Class, f.Class) {
		return false
	}
	if f.Session != "" && e.Session != f.Session {
		return false
	}
	if f.Term != "" && e.Term != f.Term {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.CreatedBy != "" && e.CreatedBy != f.CreatedBy {
		return false
	}
	return true
}

type examQuestionRepo struct {
	r *Repository
}

func (e *examQuestionRepo) SaveSnapshot(ctx context.Context, examID uint, questions []models.ExamQuestion) error {
	defer e.r.lock()()
	rows := copySnapshot(questions)
	for i := range rows {
		rows[i].ExamID = examID
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })
	e.r.data().snapshots[examID] = rows
	return nil
}

func (e *examQuestionRepo) GetSnapshot(ctx context.Context, examID uint) ([]models.ExamQuestion, error) {
	defer e.r.lock()()
	return copySnapshot(e.r.data().snapshots[examID]), nil
}

func (e *examQuestionRepo) Count(ctx context.Context, examID uint) (int64, error) {
	defer e.r.lock()()
	return int64(len(e.r.data().snapshots[examID])), nil
}
