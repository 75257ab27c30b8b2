package services

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/odunayomike/report-card-generator-sub003/internal/events"
	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/reportcard"
)

func TestAttemptService_StartGuards(t *testing.T) {
	f := newFixture(t)

	t.Run("draft exam", func(t *testing.T) {
		questions := f.createQuestions(t, 1)
		exam, err := f.exams.Create(f.ctx, teacher, examRequest(questions, "alice"))
		require.NoError(t, err)

		_, err = f.attempts.Start(f.ctx, alice, exam.ID)
		assert.ErrorIs(t, err, ErrNotPublished)
	})

	t.Run("not assigned", func(t *testing.T) {
		exam, _ := f.publishedExam(t, 1, nil, "alice")
		_, err := f.attempts.Start(f.ctx, bob, exam.ID)
		assert.ErrorIs(t, err, ErrNotAssigned)
		assert.True(t, IsForbidden(err))
	})

	t.Run("before the window opens", func(t *testing.T) {
		start := f.clock.Now().Add(time.Hour)
		exam, _ := f.publishedExam(t, 1, func(req *models.CreateExamRequest) {
			req.StartAt = &start
		}, "alice")

		_, err := f.attempts.Start(f.ctx, alice, exam.ID)
		assert.ErrorIs(t, err, ErrOutsideWindow)
	})

	t.Run("after the window closes", func(t *testing.T) {
		end := f.clock.Now().Add(-time.Minute)
		exam, _ := f.publishedExam(t, 1, func(req *models.CreateExamRequest) {
			req.EndAt = &end
		}, "alice")

		_, err := f.attempts.Start(f.ctx, alice, exam.ID)
		assert.ErrorIs(t, err, ErrOutsideWindow)
	})

	t.Run("staff cannot sit exams", func(t *testing.T) {
		exam, _ := f.publishedExam(t, 1, nil, "alice")
		_, err := f.attempts.Start(f.ctx, teacher, exam.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown exam", func(t *testing.T) {
		_, err := f.attempts.Start(f.ctx, alice, 31337)
		assert.ErrorIs(t, err, ErrExamNotFound)
	})
}

func TestAttemptService_StartResumes(t *testing.T) {
	f := newFixture(t)
	exam, _ := f.publishedExam(t, 4, func(req *models.CreateExamRequest) {
		req.ShuffleQuestions = true
		req.ShuffleOptions = true
	}, "alice")

	first, err := f.attempts.Start(f.ctx, alice, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptInProgress, first.Status)
	require.NotNil(t, first.Deadline)
	assert.Equal(t, first.StartedAt.Add(time.Minute), *first.Deadline)
	assert.Len(t, first.QuestionOrder, 4)

	f.clock.Advance(10 * time.Second)
	second, err := f.attempts.Start(f.ctx, alice, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.QuestionOrder, second.QuestionOrder)
	assert.Equal(t, first.Deadline, second.Deadline)

	assert.Len(t, f.publisher.EventsOfType(events.EventAttemptStarted), 1)
}

func TestAttemptService_GetPaper(t *testing.T) {
	f := newFixture(t)
	exam, questions := f.publishedExam(t, 3, func(req *models.CreateExamRequest) {
		req.ShuffleQuestions = true
		req.ShuffleOptions = true
		req.Instructions = "Answer all questions"
	}, "alice")

	attempt, err := f.attempts.Start(f.ctx, alice, exam.ID)
	require.NoError(t, err)
	require.NoError(t, f.attempts.SaveAnswer(f.ctx, alice, attempt.ID, questions[1].ID, wrongOption(questions[1])))

	paper, err := f.attempts.GetPaper(f.ctx, alice, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, "Answer all questions", paper.Instructions)
	assert.Equal(t, int64(60), paper.SecondsRemaining)
	require.Len(t, paper.Questions, 3)

	for i, q := range paper.Questions {
		assert.Equal(t, attempt.QuestionOrder[i], q.QuestionID)
		assert.Equal(t, i+1, q.Number)
		assert.Len(t, q.Options, 3)
		if q.QuestionID == questions[1].ID {
			require.NotNil(t, q.SelectedOptionID)
			assert.Equal(t, wrongOption(questions[1]), *q.SelectedOptionID)
		} else {
			assert.Nil(t, q.SelectedOptionID)
		}
	}

	again, err := f.attempts.GetPaper(f.ctx, alice, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, paper.Questions, again.Questions)

	body, err := json.Marshal(paper)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "is_correct")
	assert.NotContains(t, string(body), "correct_option")

	_, err = f.attempts.GetPaper(f.ctx, bob, attempt.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAttemptService_SaveAnswer(t *testing.T) {
	f := newFixture(t)
	exam, questions := f.publishedExam(t, 2, nil, "alice")
	other := f.createQuestions(t, 1)[0]

	attempt, err := f.attempts.Start(f.ctx, alice, exam.ID)
	require.NoError(t, err)

	t.Run("last write wins", func(t *testing.T) {
		q := questions[0]
		require.NoError(t, f.attempts.SaveAnswer(f.ctx, alice, attempt.ID, q.ID, wrongOption(q)))
		require.NoError(t, f.attempts.SaveAnswer(f.ctx, alice, attempt.ID, q.ID, correctOption(q)))

		answers, err := f.repo.Attempt().GetAnswers(f.ctx, attempt.ID)
		require.NoError(t, err)
		require.Len(t, answers, 1)
		assert.Equal(t, correctOption(q), answers[0].SelectedOptionID)
	})

	t.Run("option from another question", func(t *testing.T) {
		err := f.attempts.SaveAnswer(f.ctx, alice, attempt.ID, questions[0].ID, correctOption(questions[1]))
		assert.True(t, IsValidation(err))
	})

	t.Run("question outside the exam", func(t *testing.T) {
		err := f.attempts.SaveAnswer(f.ctx, alice, attempt.ID, other.ID, correctOption(other))
		assert.True(t, IsValidation(err))
	})

	t.Run("someone else's attempt", func(t *testing.T) {
		err := f.attempts.SaveAnswer(f.ctx, bob, attempt.ID, questions[0].ID, correctOption(questions[0]))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown attempt", func(t *testing.T) {
		err := f.attempts.SaveAnswer(f.ctx, alice, 999, questions[0].ID, correctOption(questions[0]))
		assert.ErrorIs(t, err, ErrAttemptNotFound)
	})
}

func TestAttemptService_ConcurrentSaves(t *testing.T) {
	f := newFixture(t)
	const n = 20
	exam, questions := f.publishedExam(t, n, nil, "alice")

	attempt, err := f.attempts.Start(f.ctx, alice, exam.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, q := range questions {
		wg.Add(1)
		go func(i int, q *models.Question) {
			defer wg.Done()
			errs[i] = f.attempts.SaveAnswer(f.ctx, alice, attempt.ID, q.ID, correctOption(q))
		}(i, q)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "question %d", i)
	}

	answers, err := f.repo.Attempt().GetAnswers(f.ctx, attempt.ID)
	require.NoError(t, err)
	require.Len(t, answers, n)
	byQuestion := make(map[uint]uint, n)
	for _, a := range answers {
		byQuestion[a.QuestionID] = a.SelectedOptionID
	}
	for _, q := range questions {
		assert.Equal(t, correctOption(q), byQuestion[q.ID])
	}

	q := questions[0]
	require.NoError(t, f.attempts.SaveAnswer(f.ctx, alice, attempt.ID, q.ID, wrongOption(q)))
	require.NoError(t, f.attempts.SaveAnswer(f.ctx, alice, attempt.ID, q.ID, correctOption(q)))

	answers, err = f.repo.Attempt().GetAnswers(f.ctx, attempt.ID)
	require.NoError(t, err)
	require.Len(t, answers, n)
	for _, a := range answers {
		if a.QuestionID == q.ID {
			assert.Equal(t, correctOption(q), a.SelectedOptionID)
		}
	}
}

func TestAttemptService_Submit(t *testing.T) {
	f := newFixture(t)
	exam, questions := f.publishedExam(t, 2, nil, "alice")

	attempt, err := f.attempts.Start(f.ctx, alice, exam.ID)
	require.NoError(t, err)
	require.NoError(t, f.attempts.SaveAnswer(f.ctx, alice, attempt.ID, questions[0].ID, wrongOption(questions[0])))

	f.clock.Advance(20 * time.Second)
	result, err := f.attempts.Submit(f.ctx, alice, attempt.ID, map[uint]uint{
		questions[0].ID: correctOption(questions[0]),
		questions[1].ID: correctOption(questions[1]),
	})
	require.NoError(t, err)

	assert.Equal(t, models.ReasonSubmitted, result.Reason)
	assert.InDelta(t, 2.0, result.TotalScore, 1e-9)
	assert.InDelta(t, 100.0, result.Percentage, 1e-9)
	assert.Equal(t, "A", result.Grade)
	assert.Equal(t, 2, result.CorrectCount)
	assert.Equal(t, int64(20), result.TimeTakenSeconds)

	f.dispatcher.AssertCalled(t, "Dispatch", reportcard.ExamGraded{
		StudentID:      "alice",
		ExamID:         exam.ID,
		Score:          2,
		Percentage:     100,
		Term:           "first",
		Session:        "2025/2026",
		Subject:        "Mathematics",
		AssessmentType: "ca",
	})
	assert.Len(t, f.publisher.EventsOfType(events.EventAttemptSubmitted), 1)

	_, err = f.attempts.Submit(f.ctx, alice, attempt.ID, nil)
	assert.ErrorIs(t, err, ErrAttemptNotActive)
	assert.True(t, IsConflict(err))

	err = f.attempts.SaveAnswer(f.ctx, alice, attempt.ID, questions[0].ID, correctOption(questions[0]))
	assert.ErrorIs(t, err, ErrAttemptNotActive)

	_, err = f.attempts.Start(f.ctx, alice, exam.ID)
	assert.ErrorIs(t, err, ErrAttemptNotActive)

	f.dispatcher.AssertNumberOfCalls(t, "Dispatch", 1)
}

func TestAttemptService_SubmitRejectsBadFinalAnswers(t *testing.T) {
	f := newFixture(t)
	exam, questions := f.publishedExam(t, 2, nil, "alice")

	attempt, err := f.attempts.Start(f.ctx, alice, exam.ID)
	require.NoError(t, err)

	_, err = f.attempts.Submit(f.ctx, alice, attempt.ID, map[uint]uint{
		questions[0].ID: correctOption(questions[1]),
	})
	require.True(t, IsValidation(err))

	stored, err := f.repo.Attempt().GetByID(f.ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptInProgress, stored.Status)
}

func TestAttemptService_DeadlinePassesMidExam(t *testing.T) {
	f := newFixture(t)
	exam, questions := f.publishedExam(t, 2, nil, "alice")

	attempt, err := f.attempts.Start(f.ctx, alice, exam.ID)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Second)
	require.NoError(t, f.attempts.SaveAnswer(f.ctx, alice, attempt.ID, questions[0].ID, correctOption(questions[0])))

	f.clock.Advance(51 * time.Second)
	err = f.attempts.SaveAnswer(f.ctx, alice, attempt.ID, questions[1].ID, correctOption(questions[1]))
	require.ErrorIs(t, err, ErrAttemptNotActive)

	result, err := f.students.GetResult(f.ctx, alice, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReasonExpired, result.Reason)
	assert.InDelta(t, 1.0, result.TotalScore, 1e-9)
	assert.InDelta(t, 2.0, result.TotalMarks, 1e-9)
	assert.InDelta(t, 50.0, result.Percentage, 1e-9)
	assert.Equal(t, "C", result.Grade)
	assert.Equal(t, 1, result.CorrectCount)
	assert.Equal(t, 1, result.UnansweredCount)
	assert.Equal(t, int64(60), result.TimeTakenSeconds)

	stored, err := f.repo.Attempt().GetByID(f.ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptExpired, stored.Status)
}

func TestAttemptService_SubmitAfterDeadlineExpires(t *testing.T) {
	f := newFixture(t)
	exam, questions := f.publishedExam(t, 1, nil, "alice")

	attempt, err := f.attempts.Start(f.ctx, alice, exam.ID)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	result, err := f.attempts.Submit(f.ctx, alice, attempt.ID, map[uint]uint{
		questions[0].ID: correctOption(questions[0]),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReasonExpired, result.Reason)
	assert.Zero(t, result.TotalScore)
	assert.Equal(t, 1, result.UnansweredCount)
}

func TestAttemptService_ExpireOverdue(t *testing.T) {
	f := newFixture(t)
	exam, _ := f.publishedExam(t, 1, nil, "alice", "bob")
	later, _ := f.publishedExam(t, 1, func(req *models.CreateExamRequest) {
		req.DurationMinutes = 30
	}, "alice")

	_, err := f.attempts.Start(f.ctx, alice, exam.ID)
	require.NoError(t, err)
	_, err = f.attempts.Start(f.ctx, bob, exam.ID)
	require.NoError(t, err)
	_, err = f.attempts.Start(f.ctx, alice, later.ID)
	require.NoError(t, err)

	n, err := f.attempts.ExpireOverdue(f.ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(90 * time.Second)
	n, err = f.attempts.ExpireOverdue(f.ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.attempts.ExpireOverdue(f.ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	results, err := f.exams.ListResults(f.ctx, teacher, exam.ID)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	f.dispatcher.AssertNumberOfCalls(t, "Dispatch", 2)
}

func TestAttemptService_SubmitRacesSweeper(t *testing.T) {
	f := newFixture(t)
	exam, _ := f.publishedExam(t, 1, nil, "alice")

	attempt, err := f.attempts.Start(f.ctx, alice, exam.ID)
	require.NoError(t, err)
	f.clock.Advance(61 * time.Second)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = f.attempts.Submit(f.ctx, alice, attempt.ID, nil)
	}()
	go func() {
		defer wg.Done()
		_, _ = f.attempts.ExpireOverdue(f.ctx, f.clock.Now())
	}()
	wg.Wait()

	results, err := f.exams.ListResults(f.ctx, teacher, exam.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.ReasonExpired, results[0].Reason)
	f.dispatcher.AssertNumberOfCalls(t, "Dispatch", 1)
}

func TestAttemptService_DispatchFailureDoesNotUndoSubmit(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.ExpectedCalls = nil
	f.dispatcher.On("Dispatch", mock.Anything).Return(reportcard.ErrDispatcherClosed)

	exam, _ := f.publishedExam(t, 1, nil, "alice")
	attempt, err := f.attempts.Start(f.ctx, alice, exam.ID)
	require.NoError(t, err)

	result, err := f.attempts.Submit(f.ctx, alice, attempt.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ReasonSubmitted, result.Reason)
}
