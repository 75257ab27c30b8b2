package reportcard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/odunayomike/report-card-generator-sub003/internal/events"
)

type MockSink struct {
	mock.Mock
}

func (m *MockSink) OnExamGraded(ctx context.Context, result ExamGraded) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

type recordingSink struct {
	mu      sync.Mutex
	results []ExamGraded
	block   chan struct{}
}

func (s *recordingSink) OnExamGraded(ctx context.Context, result ExamGraded) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	s.results = append(s.results, result)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcher_DeliversAll(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, DispatcherConfig{Workers: 3, QueueSize: 50}, discardLogger())

	for i := 0; i < 20; i++ {
		require.NoError(t, d.Dispatch(ExamGraded{ExamID: uint(i), StudentID: "stu"}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	assert.Equal(t, 20, sink.count())
	assert.ErrorIs(t, d.Dispatch(ExamGraded{}), ErrDispatcherClosed)
}

func TestDispatcher_SinkErrorDoesNotStopWorkers(t *testing.T) {
	sink := new(MockSink)
	sink.On("OnExamGraded", mock.Anything, mock.MatchedBy(func(r ExamGraded) bool { return r.ExamID == 1 })).
		Return(errors.New("report card unavailable"))
	sink.On("OnExamGraded", mock.Anything, mock.MatchedBy(func(r ExamGraded) bool { return r.ExamID == 2 })).
		Return(nil)

	d := NewDispatcher(sink, DispatcherConfig{Workers: 1}, discardLogger())
	require.NoError(t, d.Dispatch(ExamGraded{ExamID: 1}))
	require.NoError(t, d.Dispatch(ExamGraded{ExamID: 2}))
	require.NoError(t, d.Close(context.Background()))

	sink.AssertNumberOfCalls(t, "OnExamGraded", 2)
}

func TestDispatcher_FullQueueDoesNotBlock(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(sink, DispatcherConfig{Workers: 1, QueueSize: 1}, discardLogger())

	var rejected int
	for i := 0; i < 5; i++ {
		if err := d.Dispatch(ExamGraded{ExamID: uint(i)}); err != nil {
			rejected++
		}
	}
	assert.GreaterOrEqual(t, rejected, 3)

	close(sink.block)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_CloseHonoursContext(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(sink, DispatcherConfig{Workers: 1}, discardLogger())
	require.NoError(t, d.Dispatch(ExamGraded{ExamID: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)

	close(sink.block)
}

func TestPublisherSink(t *testing.T) {
	pub := events.NewMockEventPublisher(discardLogger())
	sink := NewPublisherSink(pub)

	require.NoError(t, sink.OnExamGraded(context.Background(), ExamGraded{StudentID: "stu-1", ExamID: 4, Percentage: 50}))

	published := pub.EventsOfType(events.EventExamGraded)
	require.Len(t, published, 1)
	payload, ok := published[0].Data.(events.ExamGradedEvent)
	require.True(t, ok)
	assert.Equal(t, "stu-1", payload.StudentID)
}
