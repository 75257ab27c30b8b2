package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
)

type ExamQuestionPostgreSQL struct {
	db *gorm.DB
}

func NewExamQuestionPostgreSQL(db *gorm.DB) repositories.ExamQuestionRepository {
	return &ExamQuestionPostgreSQL{db: db}
}

// SaveSnapshot replaces the exam's frozen paper.
func (e *ExamQuestionPostgreSQL) SaveSnapshot(ctx context.Context, examID uint, questions []models.ExamQuestion) error {
	return translateError(e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("exam_id = ?", examID).Delete(&models.ExamQuestion{}).Error; err != nil {
			return err
		}
		if len(questions) == 0 {
			return nil
		}
		for i := range questions {
			questions[i].ExamID = examID
		}
		return tx.Create(&questions).Error
	}))
}

func (e *ExamQuestionPostgreSQL) GetSnapshot(ctx context.Context, examID uint) ([]models.ExamQuestion, error) {
	var questions []models.ExamQuestion
	err := e.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("position ASC").
		Find(&questions).Error
	return questions, translateError(err)
}

func (e *ExamQuestionPostgreSQL) Count(ctx context.Context, examID uint) (int64, error) {
	var count int64
	err := e.db.WithContext(ctx).
		Model(&models.ExamQuestion{}).
		Where("exam_id = ?", examID).
		Count(&count).Error
	return count, translateError(err)
}
