package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) Create(ctx context.Context, question *models.Question) error {
	return translateError(q.db.WithContext(ctx).Create(question).Error)
}

// CreateBatch inserts all questions or none.
func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return translateError(q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&questions).Error
	}))
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	if err := q.db.WithContext(ctx).
		Preload("Options", orderedOptions).
		First(&question, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var found []*models.Question
	if err := q.db.WithContext(ctx).
		Preload("Options", orderedOptions).
		Where("id IN ?", ids).
		Find(&found).Error; err != nil {
		return nil, translateError(err)
	}

	byID := make(map[uint]*models.Question, len(found))
	for _, question := range found {
		byID[question.ID] = question
	}
	ordered := make([]*models.Question, 0, len(found))
	for _, id := range ids {
		if question, ok := byID[id]; ok {
			ordered = append(ordered, question)
			delete(byID, id)
		}
	}
	return ordered, nil
}

func (q *QuestionPostgreSQL) Update(ctx context.Context, question *models.Question) error {
	return translateError(q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Question{}).
			Where("id = ?", question.ID).
			Select("subject", "class", "topic", "difficulty", "marks", "text").
			Updates(question)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Where("question_id = ?", question.ID).Delete(&models.Option{}).Error; err != nil {
			return err
		}
		for i := range question.Options {
			question.Options[i].ID = 0
			question.Options[i].QuestionID = question.ID
			question.Options[i].Position = i
		}
		if len(question.Options) > 0 {
			if err := tx.Create(&question.Options).Error; err != nil {
				return err
			}
		}
		return nil
	}))
}

func (q *QuestionPostgreSQL) Delete(ctx context.Context, id uint) error {
	res := q.db.WithContext(ctx).Delete(&models.Question{}, id)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (q *QuestionPostgreSQL) DeleteBatch(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := q.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Question{})
	return res.RowsAffected, translateError(res.Error)
}

func (q *QuestionPostgreSQL) List(ctx context.Context, filter models.QuestionFilter) ([]*models.Question, int64, error) {
	var (
		questions []*models.Question
		total     int64
	)

	query := q.applyFilters(q.db.WithContext(ctx).Model(&models.Question{}), filter)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	query = applyPagination(query.Order("created_at DESC, id DESC"), filter.Limit, filter.Offset)
	if err := query.Preload("Options", orderedOptions).Find(&questions).Error; err != nil {
		return nil, 0, translateError(err)
	}
	return questions, total, nil
}

func (q *QuestionPostgreSQL) applyFilters(query *gorm.DB, filter models.QuestionFilter) *gorm.DB {
	if filter.Subject != "" {
		query = query.Where("LOWER(subject) = LOWER(?)", filter.Subject)
	}
	if filter.Class != "" {
		query = query.Where("LOWER(class) = LOWER(?)", filter.Class)
	}
	if filter.Difficulty != "" {
		query = query.Where("difficulty = ?", filter.Difficulty)
	}
	if filter.Topic != "" {
		query = query.Where("topic ILIKE ?", "%"+filter.Topic+"%")
	}
	if filter.CreatedBy != "" {
		query = query.Where("created_by = ?", filter.CreatedBy)
	}
	return query
}
