package memory

import (
	"time"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
)

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyQuestion(q models.Question) models.Question {
	if q.Topic != nil {
		topic := *q.Topic
		q.Topic = &topic
	}
	q.Options = append([]models.Option(nil), q.Options...)
	return q
}

func copyExam(e models.Exam) models.Exam {
	e.StartAt = copyTime(e.StartAt)
	e.EndAt = copyTime(e.EndAt)
	e.PublishedAt = copyTime(e.PublishedAt)
	e.QuestionIDs = append([]uint(nil), e.QuestionIDs...)
	e.StudentIDs = append([]string(nil), e.StudentIDs...)
	e.Questions = nil
	e.Students = nil
	return e
}

func copySnapshot(rows []models.ExamQuestion) []models.ExamQuestion {
	out := make([]models.ExamQuestion, len(rows))
	for i, row := range rows {
		row.Options = append([]models.SnapshotOption(nil), row.Options...)
		out[i] = row
	}
	return out
}

func copyAttempt(a models.Attempt) models.Attempt {
	a.StartedAt = copyTime(a.StartedAt)
	a.Deadline = copyTime(a.Deadline)
	a.SubmittedAt = copyTime(a.SubmittedAt)
	a.QuestionOrder = append([]uint(nil), a.QuestionOrder...)
	order := make([]models.OptionOrderEntry, len(a.OptionOrder))
	for i, entry := range a.OptionOrder {
		order[i] = models.OptionOrderEntry{
			QuestionID: entry.QuestionID,
			OptionIDs:  append([]uint(nil), entry.OptionIDs...),
		}
	}
	a.OptionOrder = order
	return a
}

func copyResult(r models.Result) models.Result {
	r.Details = append([]models.QuestionOutcome(nil), r.Details...)
	return r
}
