package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/odunayomike/report-card-generator-sub003/internal/cache"
	"github.com/odunayomike/report-card-generator-sub003/internal/config"
	"github.com/odunayomike/report-card-generator-sub003/internal/events"
	"github.com/odunayomike/report-card-generator-sub003/internal/lock"
	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/reportcard"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories/memory"
	"github.com/odunayomike/report-card-generator-sub003/internal/textimport"
	"github.com/odunayomike/report-card-generator-sub003/internal/validator"
)

var (
	teacher = models.Caller{ID: "teacher-1", Role: models.RoleTeacher}
	alice   = models.Caller{ID: "alice", Role: models.RoleStudent}
	bob     = models.Caller{ID: "bob", Role: models.RoleStudent}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockDispatcher records results handed to the report-card queue.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(result reportcard.ExamGraded) error {
	args := m.Called(result)
	return args.Error(0)
}

type fixture struct {
	ctx        context.Context
	repo       *memory.Repository
	clock      *fakeClock
	publisher  *events.MockEventPublisher
	dispatcher *MockDispatcher

	questions    QuestionService
	exams        ExamService
	attempts     AttemptService
	students     StudentExamService
	importExport ImportExportService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := discardLogger()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := &fixture{
		ctx:        context.Background(),
		repo:       memory.NewRepository(),
		clock:      &fakeClock{now: time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)},
		publisher:  events.NewMockEventPublisher(logger),
		dispatcher: &MockDispatcher{},
	}
	f.dispatcher.On("Dispatch", mock.Anything).Return(nil)

	settings := config.DefaultExamSettings()
	v := validator.New(settings)
	snapshots := cache.NewSnapshotCache(cache.NewRedisCache(client, "cbt", logger), time.Hour, logger)

	f.questions = NewQuestionService(f.repo, logger, v)
	f.exams = NewExamService(ExamServiceConfig{
		Repo:      f.repo,
		Snapshots: snapshots,
		Publisher: f.publisher,
		Validator: v,
		Logger:    logger,
		Now:       f.clock.Now,
	})
	f.attempts = NewAttemptService(AttemptServiceConfig{
		Repo:       f.repo,
		Locker:     lock.NewKeyedMutex(),
		Snapshots:  snapshots,
		Dispatcher: f.dispatcher,
		Publisher:  f.publisher,
		GradeBands: settings.GradeBands,
		Logger:     logger,
		Now:        f.clock.Now,
	})
	f.students = NewStudentExamService(f.repo, f.attempts, logger, f.clock.Now)
	f.importExport = NewImportExportService(f.repo, f.questions, textimport.DefaultPolicy(), logger, v)
	return f
}

func draft(text string) *models.QuestionDraft {
	return &models.QuestionDraft{
		Subject:    "Mathematics",
		Class:      "JSS1",
		Difficulty: models.DifficultyEasy,
		Marks:      1,
		Text:       text,
		Options: []models.OptionDraft{
			{Text: "right", IsCorrect: true},
			{Text: "wrong"},
			{Text: "also wrong"},
		},
	}
}

func (f *fixture) createQuestions(t *testing.T, n int) []*models.Question {
	t.Helper()
	out := make([]*models.Question, n)
	for i := range out {
		q, err := f.questions.Create(f.ctx, teacher, draft(fmt.Sprintf("Question %d", i+1)))
		require.NoError(t, err)
		out[i] = q
	}
	return out
}

func examRequest(questions []*models.Question, students ...string) *models.CreateExamRequest {
	ids := make([]uint, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	total := float64(len(questions))
	if total == 0 {
		total = 1
	}
	return &models.CreateExamRequest{
		Title:           "First term CA",
		Subject:         "Mathematics",
		Class:           "JSS1",
		Session:         "2025/2026",
		Term:            "first",
		AssessmentType:  "ca",
		DurationMinutes: 1,
		TotalScore:      total,
		QuestionIDs:     ids,
		StudentIDs:      students,
	}
}

// publishedExam creates and publishes an exam over n fresh questions.
func (f *fixture) publishedExam(t *testing.T, n int, mutate func(*models.CreateExamRequest), students ...string) (*models.Exam, []*models.Question) {
	t.Helper()
	questions := f.createQuestions(t, n)
	req := examRequest(questions, students...)
	if mutate != nil {
		mutate(req)
	}
	exam, err := f.exams.Create(f.ctx, teacher, req)
	require.NoError(t, err)
	exam, err = f.exams.Publish(f.ctx, teacher, exam.ID)
	require.NoError(t, err)
	return exam, questions
}

func correctOption(q *models.Question) uint {
	return q.CorrectOption().ID
}

func wrongOption(q *models.Question) uint {
	for _, o := range q.Options {
		if !o.IsCorrect {
			return o.ID
		}
	}
	return 0
}
