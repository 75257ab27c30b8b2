package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
)

type ResultPostgreSQL struct {
	db *gorm.DB
}

func NewResultPostgreSQL(db *gorm.DB) repositories.ResultRepository {
	return &ResultPostgreSQL{db: db}
}

func (r *ResultPostgreSQL) Create(ctx context.Context, result *models.Result) error {
	return translateError(r.db.WithContext(ctx).Create(result).Error)
}

func (r *ResultPostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) (*models.Result, error) {
	var result models.Result
	if err := r.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		First(&result).Error; err != nil {
		return nil, translateError(err)
	}
	return &result, nil
}

func (r *ResultPostgreSQL) ListByExam(ctx context.Context, examID uint) ([]*models.Result, error) {
	var results []*models.Result
	err := r.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("student_id ASC").
		Find(&results).Error
	return results, translateError(err)
}
