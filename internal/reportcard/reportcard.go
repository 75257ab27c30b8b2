// Package reportcard delivers graded exam scores to the report-card system.
package reportcard

import (
	"context"
	"log/slog"

	"github.com/odunayomike/report-card-generator-sub003/internal/events"
)

// ExamGraded is the score handed to the report card for one student and exam.
type ExamGraded = events.ExamGradedEvent

// Sink receives graded results. Implementations must be safe for concurrent use.
type Sink interface {
	OnExamGraded(ctx context.Context, result ExamGraded) error
}

// PublisherSink forwards results as exam.graded events.
type PublisherSink struct {
	publisher events.EventPublisher
}

func NewPublisherSink(publisher events.EventPublisher) *PublisherSink {
	return &PublisherSink{publisher: publisher}
}

func (s *PublisherSink) OnExamGraded(ctx context.Context, result ExamGraded) error {
	return s.publisher.Publish(ctx, events.NewEvent(events.EventExamGraded, result))
}

// LogSink only logs; used when no report-card integration is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) OnExamGraded(ctx context.Context, result ExamGraded) error {
	s.logger.InfoContext(ctx, "Exam graded",
		"student_id", result.StudentID,
		"exam_id", result.ExamID,
		"score", result.Score,
		"percentage", result.Percentage)
	return nil
}
