// Package memory is an in-process implementation of the repositories used for
// development and tests. A transaction holds the store lock for its whole run
// and restores a copy of the data when it fails.
//
// Every transaction deep-copies the whole store before running, so its cost
// grows with the amount of stored data and all writers are serialized. That is
// fine for local runs and tests; use the postgres repository for real load.
package memory

import (
	"context"
	"sync"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
)

type examStudent struct {
	examID    uint
	studentID string
}

type state struct {
	nextQuestionID uint
	nextOptionID   uint
	nextExamID     uint
	nextAttemptID  uint
	nextResultID   uint

	questions       map[uint]models.Question
	exams           map[uint]models.Exam
	examStudents    map[uint]map[string]struct{}
	snapshots       map[uint][]models.ExamQuestion
	attempts        map[uint]models.Attempt
	attemptIndex    map[examStudent]uint
	answers         map[uint]map[uint]models.AttemptAnswer
	results         map[uint]models.Result
	resultByAttempt map[uint]uint
	enrollments     map[models.Enrollment]struct{}
}

func newState() *state {
	return &state{
		questions:       make(map[uint]models.Question),
		exams:           make(map[uint]models.Exam),
		examStudents:    make(map[uint]map[string]struct{}),
		snapshots:       make(map[uint][]models.ExamQuestion),
		attempts:        make(map[uint]models.Attempt),
		attemptIndex:    make(map[examStudent]uint),
		answers:         make(map[uint]map[uint]models.AttemptAnswer),
		results:         make(map[uint]models.Result),
		resultByAttempt: make(map[uint]uint),
		enrollments:     make(map[models.Enrollment]struct{}),
	}
}

func (s *state) clone() *state {
	c := newState()
	c.nextQuestionID = s.nextQuestionID
	c.nextOptionID = s.nextOptionID
	c.nextExamID = s.nextExamID
	c.nextAttemptID = s.nextAttemptID
	c.nextResultID = s.nextResultID

	for k, v := range s.questions {
		c.questions[k] = copyQuestion(v)
	}
	for k, v := range s.exams {
		c.exams[k] = copyExam(v)
	}
	for k, v := range s.examStudents {
		set := make(map[string]struct{}, len(v))
		for id := range v {
			set[id] = struct{}{}
		}
		c.examStudents[k] = set
	}
	for k, v := range s.snapshots {
		c.snapshots[k] = copySnapshot(v)
	}
	for k, v := range s.attempts {
		c.attempts[k] = copyAttempt(v)
	}
	for k, v := range s.attemptIndex {
		c.attemptIndex[k] = v
	}
	for k, v := range s.answers {
		m := make(map[uint]models.AttemptAnswer, len(v))
		for q, a := range v {
			m[q] = a
		}
		c.answers[k] = m
	}
	for k, v := range s.results {
		c.results[k] = copyResult(v)
	}
	for k, v := range s.resultByAttempt {
		c.resultByAttempt[k] = v
	}
	for k := range s.enrollments {
		c.enrollments[k] = struct{}{}
	}
	return c
}

// Store owns the data shared by every Repository handed out from it.
type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

// Repository implements repositories.Repository over a Store.
type Repository struct {
	store *Store
	inTx  bool
}

func NewRepository() *Repository {
	return &Repository{store: NewStore()}
}

func (r *Repository) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.store.mu.Lock()
	return r.store.mu.Unlock
}

func (r *Repository) data() *state {
	return r.store.st
}

func (r *Repository) Question() repositories.QuestionRepository {
	return &questionRepo{r}
}

func (r *Repository) Exam() repositories.ExamRepository {
	return &examRepo{r}
}

func (r *Repository) ExamQuestion() repositories.ExamQuestionRepository {
	return &examQuestionRepo{r}
}

func (r *Repository) Attempt() repositories.AttemptRepository {
	return &attemptRepo{r}
}

func (r *Repository) Result() repositories.ResultRepository {
	return &resultRepo{r}
}

func (r *Repository) Roster() repositories.RosterRepository {
	return &rosterRepo{r}
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	backup := r.store.st.clone()
	if err := fn(&Repository{store: r.store, inTx: true}); err != nil {
		r.store.st = backup
		return err
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *Repository) Close() error {
	return nil
}
