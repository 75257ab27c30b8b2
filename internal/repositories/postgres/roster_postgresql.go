package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
)

type RosterPostgreSQL struct {
	db *gorm.DB
}

func NewRosterPostgreSQL(db *gorm.DB) repositories.RosterRepository {
	return &RosterPostgreSQL{db: db}
}

// StudentsInClass ignores session or term when they are empty.
func (r *RosterPostgreSQL) StudentsInClass(ctx context.Context, class, session, term string) ([]string, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Distinct("student_id").
		Where("LOWER(class) = LOWER(?)", class)
	if session != "" {
		query = query.Where("session = ?", session)
	}
	if term != "" {
		query = query.Where("term = ?", term)
	}

	var ids []string
	err := query.Order("student_id").Pluck("student_id", &ids).Error
	return ids, translateError(err)
}

func (r *RosterPostgreSQL) Enroll(ctx context.Context, enrollments []models.Enrollment) error {
	if len(enrollments) == 0 {
		return nil
	}
	return translateError(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&enrollments).Error)
}
