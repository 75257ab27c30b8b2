package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/scheduling"
)

func TestStudentExamService_ListForStudent(t *testing.T) {
	f := newFixture(t)

	open, _ := f.publishedExam(t, 2, func(req *models.CreateExamRequest) {
		req.DurationMinutes = 30
	}, "alice")
	start := f.clock.Now().Add(2 * time.Hour)
	upcoming, _ := f.publishedExam(t, 1, func(req *models.CreateExamRequest) {
		req.StartAt = &start
	}, "alice")
	done, _ := f.publishedExam(t, 1, nil, "alice")
	f.publishedExam(t, 1, nil, "bob")

	questions := f.createQuestions(t, 1)
	_, err := f.exams.Create(f.ctx, teacher, examRequest(questions, "alice"))
	require.NoError(t, err)

	_, err = f.attempts.Start(f.ctx, alice, open.ID)
	require.NoError(t, err)
	finished, err := f.attempts.Start(f.ctx, alice, done.ID)
	require.NoError(t, err)
	_, err = f.attempts.Submit(f.ctx, alice, finished.ID, nil)
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)
	list, err := f.students.ListForStudent(f.ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 3)

	byExam := make(map[uint]StudentExam, len(list))
	for _, item := range list {
		byExam[item.ExamID] = item
	}

	assert.Equal(t, scheduling.StatusInProgress, byExam[open.ID].Status)
	assert.Equal(t, int64(25*60), byExam[open.ID].SecondsRemaining)
	require.NotNil(t, byExam[open.ID].AttemptStatus)
	assert.Equal(t, models.AttemptInProgress, *byExam[open.ID].AttemptStatus)
	assert.Equal(t, 2, byExam[open.ID].QuestionCount)

	assert.Equal(t, scheduling.StatusUpcoming, byExam[upcoming.ID].Status)
	assert.Nil(t, byExam[upcoming.ID].AttemptID)

	assert.Equal(t, scheduling.StatusCompleted, byExam[done.ID].Status)
	assert.Zero(t, byExam[done.ID].SecondsRemaining)

	_, err = f.students.ListForStudent(f.ctx, teacher)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestStudentExamService_GetResult(t *testing.T) {
	f := newFixture(t)

	t.Run("no attempt yet", func(t *testing.T) {
		exam, _ := f.publishedExam(t, 1, nil, "alice")
		_, err := f.students.GetResult(f.ctx, alice, exam.ID)
		assert.ErrorIs(t, err, ErrResultNotFound)
	})

	t.Run("attempt still running", func(t *testing.T) {
		exam, _ := f.publishedExam(t, 1, nil, "alice")
		_, err := f.attempts.Start(f.ctx, alice, exam.ID)
		require.NoError(t, err)

		_, err = f.students.GetResult(f.ctx, alice, exam.ID)
		assert.ErrorIs(t, err, ErrResultNotFound)
	})

	t.Run("hidden from students, visible to staff", func(t *testing.T) {
		hide := true
		exam, _ := f.publishedExam(t, 1, func(req *models.CreateExamRequest) {
			req.HideResultsAfterSubmission = &hide
		}, "alice")
		attempt, err := f.attempts.Start(f.ctx, alice, exam.ID)
		require.NoError(t, err)
		_, err = f.attempts.Submit(f.ctx, alice, attempt.ID, nil)
		require.NoError(t, err)

		_, err = f.students.GetResult(f.ctx, alice, exam.ID)
		assert.ErrorIs(t, err, ErrResultsHidden)

		results, err := f.exams.ListResults(f.ctx, teacher, exam.ID)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "alice", results[0].StudentID)
	})

	t.Run("unknown exam", func(t *testing.T) {
		_, err := f.students.GetResult(f.ctx, alice, 4040)
		assert.ErrorIs(t, err, ErrExamNotFound)
	})
}
