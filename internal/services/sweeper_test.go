package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odunayomike/report-card-generator-sub003/internal/config"
	"github.com/odunayomike/report-card-generator-sub003/internal/events"
	"github.com/odunayomike/report-card-generator-sub003/internal/validator"
)

func TestSweeper_RunOnce(t *testing.T) {
	f := newFixture(t)
	exam, _ := f.publishedExam(t, 1, nil, "alice", "bob")

	_, err := f.attempts.Start(f.ctx, alice, exam.ID)
	require.NoError(t, err)
	_, err = f.attempts.Start(f.ctx, bob, exam.ID)
	require.NoError(t, err)

	sweeper := NewSweeper(f.attempts, time.Hour, discardLogger(), f.clock.Now)
	assert.Zero(t, sweeper.RunOnce(f.ctx))

	f.clock.Advance(2 * time.Minute)
	assert.Equal(t, 2, sweeper.RunOnce(f.ctx))
	assert.Zero(t, sweeper.RunOnce(f.ctx))
}

func TestSweeper_StartStop(t *testing.T) {
	f := newFixture(t)
	sweeper := NewSweeper(f.attempts, 5*time.Millisecond, discardLogger(), f.clock.Now)

	sweeper.Start(context.Background())
	sweeper.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	sweeper.Stop()
	sweeper.Stop()
}

func TestServiceManager_Lifecycle(t *testing.T) {
	f := newFixture(t)
	publisher := events.NewMockEventPublisher(discardLogger())

	manager := NewServiceManager(Dependencies{
		Repo:      f.repo,
		Publisher: publisher,
		Validator: validator.New(config.DefaultExamSettings()),
		Settings:  config.DefaultExamSettings(),
		Logger:    discardLogger(),
		Now:       f.clock.Now,
	})

	require.NoError(t, manager.Ping(f.ctx))

	q, err := manager.Question().Create(f.ctx, teacher, draft("Wired"))
	require.NoError(t, err)
	exam, err := manager.Exam().Create(f.ctx, teacher, examRequest(nil, "alice"))
	require.NoError(t, err)
	_, err = manager.Exam().AssignQuestions(f.ctx, teacher, exam.ID, []uint{q.ID})
	require.NoError(t, err)
	_, err = manager.Exam().Publish(f.ctx, teacher, exam.ID)
	require.NoError(t, err)

	attempt, err := manager.Attempt().Start(f.ctx, alice, exam.ID)
	require.NoError(t, err)
	_, err = manager.Attempt().Submit(f.ctx, alice, attempt.ID, nil)
	require.NoError(t, err)

	result, err := manager.StudentExam().GetResult(f.ctx, alice, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, attempt.ID, result.AttemptID)

	manager.Start(context.Background())
	require.NoError(t, manager.Stop(context.Background()))
	assert.Len(t, publisher.EventsOfType(events.EventAttemptSubmitted), 1)
}
