package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.Attempt) error {
	return translateError(a.db.WithContext(ctx).Create(attempt).Error)
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDForUpdate(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&attempt, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByExamAndStudent(ctx context.Context, examID uint, studentID string) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		First(&attempt).Error; err != nil {
		return nil, translateError(err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) ListByStudent(ctx context.Context, studentID string) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	err := a.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("id ASC").
		Find(&attempts).Error
	return attempts, translateError(err)
}

func (a *AttemptPostgreSQL) ListByExam(ctx context.Context, examID uint) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	err := a.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("student_id ASC").
		Find(&attempts).Error
	return attempts, translateError(err)
}

func (a *AttemptPostgreSQL) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	query := a.db.WithContext(ctx).
		Where("status = ? AND deadline < ?", models.AttemptInProgress, now).
		Order("deadline ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&attempts).Error
	return attempts, translateError(err)
}

// Finalize is a compare-and-set on status; RowsAffected tells who won.
func (a *AttemptPostgreSQL) Finalize(ctx context.Context, attempt *models.Attempt, from models.AttemptStatus) (bool, error) {
	res := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("id = ? AND status = ?", attempt.ID, from).
		Updates(map[string]interface{}{
			"status":       attempt.Status,
			"submitted_at": attempt.SubmittedAt,
			"score":        attempt.Score,
			"total_marks":  attempt.TotalMarks,
			"percentage":   attempt.Percentage,
			"grade":        attempt.Grade,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (a *AttemptPostgreSQL) UpsertAnswer(ctx context.Context, answer *models.AttemptAnswer) error {
	return translateError(a.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"selected_option_id", "answered_at"}),
		}).
		Create(answer).Error)
}

func (a *AttemptPostgreSQL) GetAnswers(ctx context.Context, attemptID uint) ([]models.AttemptAnswer, error) {
	var answers []models.AttemptAnswer
	err := a.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("question_id ASC").
		Find(&answers).Error
	return answers, translateError(err)
}
