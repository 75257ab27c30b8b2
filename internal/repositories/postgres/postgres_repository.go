package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
)

// PostgreSQLRepository implements repositories.Repository on gorm
type PostgreSQLRepository struct {
	db *gorm.DB

	question     repositories.QuestionRepository
	exam         repositories.ExamRepository
	examQuestion repositories.ExamQuestionRepository
	attempt      repositories.AttemptRepository
	result       repositories.ResultRepository
	roster       repositories.RosterRepository
}

func NewPostgreSQLRepository(db *gorm.DB) repositories.Repository {
	return newRepository(db)
}

func newRepository(db *gorm.DB) *PostgreSQLRepository {
	return &PostgreSQLRepository{
		db:           db,
		question:     NewQuestionPostgreSQL(db),
		exam:         NewExamPostgreSQL(db),
		examQuestion: NewExamQuestionPostgreSQL(db),
		attempt:      NewAttemptPostgreSQL(db),
		result:       NewResultPostgreSQL(db),
		roster:       NewRosterPostgreSQL(db),
	}
}

func (r *PostgreSQLRepository) Question() repositories.QuestionRepository {
	return r.question
}

func (r *PostgreSQLRepository) Exam() repositories.ExamRepository {
	return r.exam
}

func (r *PostgreSQLRepository) ExamQuestion() repositories.ExamQuestionRepository {
	return r.examQuestion
}

func (r *PostgreSQLRepository) Attempt() repositories.AttemptRepository {
	return r.attempt
}

func (r *PostgreSQLRepository) Result() repositories.ResultRepository {
	return r.result
}

func (r *PostgreSQLRepository) Roster() repositories.RosterRepository {
	return r.roster
}

// WithTransaction executes fn with every sub-repository bound to one transaction
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepository(tx))
	})
}

func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
