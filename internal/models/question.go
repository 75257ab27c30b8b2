package models

import (
	"strings"
	"time"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// ParseDifficulty accepts any casing of easy, medium or hard.
func ParseDifficulty(s string) (DifficultyLevel, bool) {
	switch DifficultyLevel(strings.ToLower(strings.TrimSpace(s))) {
	case DifficultyEasy:
		return DifficultyEasy, true
	case DifficultyMedium:
		return DifficultyMedium, true
	case DifficultyHard:
		return DifficultyHard, true
	}
	return "", false
}

type Question struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	Subject    string          `json:"subject" gorm:"not null;size:100;index"`
	Class      string          `json:"class" gorm:"not null;size:50;index"`
	Topic      *string         `json:"topic,omitempty" gorm:"size:200"`
	Difficulty DifficultyLevel `json:"difficulty" gorm:"not null;size:10;default:medium;index"`
	Marks      int             `json:"marks" gorm:"not null;default:1"`
	Text       string          `json:"question_text" gorm:"type:text;not null"`
	CreatedBy  string          `json:"created_by" gorm:"size:255;index"`

	Options []Option `json:"options" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

type Option struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"type:text;not null"`
	IsCorrect  bool   `json:"is_correct" gorm:"not null;default:false"`
	Position   int    `json:"position" gorm:"not null;default:0"`
}

func (Option) TableName() string {
	return "question_options"
}

// CorrectOption returns the option flagged correct, or nil when the question is malformed.
func (q *Question) CorrectOption() *Option {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}

// QuestionDraft is the author-supplied shape of a question, used by create, update,
// batch create and the text importer.
type QuestionDraft struct {
	Subject    string          `json:"subject" validate:"required,max=100"`
	Class      string          `json:"class" validate:"required,max=50"`
	Topic      *string         `json:"topic" validate:"omitempty,max=200"`
	Difficulty DifficultyLevel `json:"difficulty" validate:"required,difficulty"`
	Marks      int             `json:"marks" validate:"min=1,max=100"`
	Text       string          `json:"question_text" validate:"required"`
	Options    []OptionDraft   `json:"options" validate:"required,min=2,max=10,dive"`
}

type OptionDraft struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

// ToQuestion builds an unsaved Question from the draft, keeping option order.
func (d QuestionDraft) ToQuestion(createdBy string) *Question {
	q := &Question{
		Subject:    strings.TrimSpace(d.Subject),
		Class:      strings.TrimSpace(d.Class),
		Topic:      d.Topic,
		Difficulty: d.Difficulty,
		Marks:      d.Marks,
		Text:       strings.TrimSpace(d.Text),
		CreatedBy:  createdBy,
		Options:    make([]Option, len(d.Options)),
	}
	for i, o := range d.Options {
		q.Options[i] = Option{
			Text:      strings.TrimSpace(o.Text),
			IsCorrect: o.IsCorrect,
			Position:  i,
		}
	}
	return q
}
