package services

import (
	"context"
	"fmt"

	"github.com/odunayomike/report-card-generator-sub003/internal/cache"
	"github.com/odunayomike/report-card-generator-sub003/internal/events"
	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
)

// snapshotLoader reads frozen papers, going through the cache when one is configured.
type snapshotLoader struct {
	repo  repositories.Repository
	cache *cache.SnapshotCache
}

func (l snapshotLoader) load(ctx context.Context, examID uint) ([]models.ExamQuestion, error) {
	if questions, ok := l.cache.Get(ctx, examID); ok {
		return questions, nil
	}
	questions, err := l.repo.ExamQuestion().GetSnapshot(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to load exam snapshot: %w", err)
	}
	l.cache.Put(ctx, examID, questions)
	return questions, nil
}

// buildSnapshot freezes question and option content in the given order. Every
// question carries an even share of the exam total.
func buildSnapshot(exam *models.Exam, questions []*models.Question) []models.ExamQuestion {
	marks := exam.MarkPerQuestion(len(questions))
	rows := make([]models.ExamQuestion, 0, len(questions))
	for i, q := range questions {
		row := models.ExamQuestion{
			ExamID:     exam.ID,
			QuestionID: q.ID,
			Position:   i + 1,
			Text:       q.Text,
			Marks:      marks,
			Options:    make([]models.SnapshotOption, len(q.Options)),
		}
		for j, o := range q.Options {
			row.Options[j] = models.SnapshotOption{ID: o.ID, Text: o.Text, IsCorrect: o.IsCorrect}
		}
		if correct := q.CorrectOption(); correct != nil {
			row.CorrectOptionID = correct.ID
		}
		rows = append(rows, row)
	}
	return rows
}

func findQuestion(snapshot []models.ExamQuestion, questionID uint) *models.ExamQuestion {
	for i := range snapshot {
		if snapshot[i].QuestionID == questionID {
			return &snapshot[i]
		}
	}
	return nil
}

// publishEvent is best effort; a broker outage never fails the operation.
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *ServiceLogger, event *events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", event.Type,
			"event_id", event.ID,
			"error", err)
	}
}
