// Package grading scores a submitted attempt against the frozen exam snapshot.
package grading

import (
	"math"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
)

// Outcome is the scored result of one attempt.
type Outcome struct {
	TotalScore      float64
	TotalMarks      float64
	Percentage      float64
	Grade           string
	CorrectCount    int
	WrongCount      int
	UnansweredCount int
	Details         []models.QuestionOutcome
}

// Grade awards each question's marks when the selected option is the snapshot's
// correct option. answers maps question id to selected option id; unanswered
// questions score zero and count as wrong as well as unanswered.
func Grade(questions []models.ExamQuestion, answers map[uint]uint, bands models.GradeBands) Outcome {
	if len(bands) == 0 {
		bands = models.DefaultGradeBands()
	}

	out := Outcome{Details: make([]models.QuestionOutcome, 0, len(questions))}
	for _, q := range questions {
		out.TotalMarks += q.Marks

		detail := models.QuestionOutcome{
			QuestionID:      q.QuestionID,
			CorrectOptionID: q.CorrectOptionID,
			Marks:           q.Marks,
		}

		selected, answered := answers[q.QuestionID]
		switch {
		case !answered:
			out.UnansweredCount++
			out.WrongCount++
		case selected == q.CorrectOptionID:
			sel := selected
			detail.SelectedOptionID = &sel
			detail.IsCorrect = true
			detail.Awarded = q.Marks
			out.CorrectCount++
			out.TotalScore += q.Marks
		default:
			sel := selected
			detail.SelectedOptionID = &sel
			out.WrongCount++
		}
		out.Details = append(out.Details, detail)
	}

	out.TotalScore = Round2(out.TotalScore)
	out.TotalMarks = Round2(out.TotalMarks)
	if out.TotalMarks > 0 {
		out.Percentage = Round2(100 * out.TotalScore / out.TotalMarks)
	}
	out.Grade = bands.Letter(out.Percentage)
	return out
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
