package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
)

type ExamPostgreSQL struct {
	db *gorm.DB
}

func NewExamPostgreSQL(db *gorm.DB) repositories.ExamRepository {
	return &ExamPostgreSQL{db: db}
}

func (e *ExamPostgreSQL) Create(ctx context.Context, exam *models.Exam) error {
	return translateError(e.db.WithContext(ctx).Omit(clause.Associations).Create(exam).Error)
}

func (e *ExamPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	if err := e.db.WithContext(ctx).First(&exam, id).Error; err != nil {
		return nil, translateError(err)
	}
	if err := e.calculateComputedFields(ctx, &exam); err != nil {
		return nil, err
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) GetByIDForUpdate(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	if err := e.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&exam, id).Error; err != nil {
		return nil, translateError(err)
	}
	if err := e.calculateComputedFields(ctx, &exam); err != nil {
		return nil, err
	}
	return &exam, nil
}

// Update is conditional on the status the caller read. Status and published_at
// only ever move through MarkPublished.
func (e *ExamPostgreSQL) Update(ctx context.Context, exam *models.Exam) error {
	exam.UpdatedAt = time.Now()
	res := e.db.WithContext(ctx).
		Model(&models.Exam{}).
		Where("id = ? AND status = ?", exam.ID, exam.Status).
		Select("*").
		Omit("id", "status", "published_at", "created_at", clause.Associations).
		Updates(exam)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return e.missingOrChanged(ctx, exam.ID)
	}
	return nil
}

func (e *ExamPostgreSQL) missingOrChanged(ctx context.Context, id uint) error {
	var count int64
	if err := e.db.WithContext(ctx).Model(&models.Exam{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return translateError(err)
	}
	if count == 0 {
		return repositories.ErrNotFound
	}
	return repositories.ErrStatusChanged
}

// Delete cascades by hand so it also works where FK constraints were not migrated.
func (e *ExamPostgreSQL) Delete(ctx context.Context, id uint) error {
	return translateError(e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attemptIDs := tx.Model(&models.Attempt{}).Select("id").Where("exam_id = ?", id)

		if err := tx.Where("attempt_id IN (?)", attemptIDs).Delete(&models.AttemptAnswer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("exam_id = ?", id).Delete(&models.Result{}).Error; err != nil {
			return err
		}
		if err := tx.Where("exam_id = ?", id).Delete(&models.Attempt{}).Error; err != nil {
			return err
		}
		if err := tx.Where("exam_id = ?", id).Delete(&models.ExamQuestion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("exam_id = ?", id).Delete(&models.ExamStudent{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.Exam{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	}))
}

func (e *ExamPostgreSQL) List(ctx context.Context, filter models.ExamFilter) ([]*models.Exam, int64, error) {
	var (
		exams []*models.Exam
		total int64
	)

	query := e.applyFilters(e.db.WithContext(ctx).Model(&models.Exam{}), filter)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	query = applyPagination(query.Order("created_at DESC, id DESC"), filter.Limit, filter.Offset)
	if err := query.Find(&exams).Error; err != nil {
		return nil, 0, translateError(err)
	}
	for _, exam := range exams {
		if err := e.calculateComputedFields(ctx, exam); err != nil {
			return nil, 0, err
		}
	}
	return exams, total, nil
}

func (e *ExamPostgreSQL) MarkPublished(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := e.db.WithContext(ctx).
		Model(&models.Exam{}).
		Where("id = ? AND status = ?", id, models.ExamDraft).
		Updates(map[string]interface{}{
			"status":       models.ExamPublished,
			"published_at": at,
			"updated_at":   at,
		})
	return res.RowsAffected == 1, translateError(res.Error)
}

func (e *ExamPostgreSQL) SetStudents(ctx context.Context, examID uint, studentIDs []string) error {
	return translateError(e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exam models.Exam
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "status").
			First(&exam, examID).Error; err != nil {
			return err
		}
		if exam.Status != models.ExamDraft {
			return repositories.ErrStatusChanged
		}

		if err := tx.Where("exam_id = ?", examID).Delete(&models.ExamStudent{}).Error; err != nil {
			return err
		}
		if len(studentIDs) == 0 {
			return nil
		}
		rows := make([]models.ExamStudent, len(studentIDs))
		for i, id := range studentIDs {
			rows[i] = models.ExamStudent{ExamID: examID, StudentID: id}
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	}))
}

func (e *ExamPostgreSQL) GetStudentIDs(ctx context.Context, examID uint) ([]string, error) {
	var ids []string
	err := e.db.WithContext(ctx).
		Model(&models.ExamStudent{}).
		Where("exam_id = ?", examID).
		Order("student_id").
		Pluck("student_id", &ids).Error
	return ids, translateError(err)
}

func (e *ExamPostgreSQL) IsAssigned(ctx context.Context, examID uint, studentID string) (bool, error) {
	var count int64
	err := e.db.WithContext(ctx).
		Model(&models.ExamStudent{}).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		Count(&count).Error
	return count > 0, translateError(err)
}

func (e *ExamPostgreSQL) ListPublishedForStudent(ctx context.Context, studentID string) ([]*models.Exam, error) {
	var exams []*models.Exam
	err := e.db.WithContext(ctx).
		Joins("JOIN exam_students ON exam_students.exam_id = exams.id").
		Where("exam_students.student_id = ? AND exams.status = ?", studentID, models.ExamPublished).
		Order("exams.start_at ASC NULLS FIRST, exams.id ASC").
		Find(&exams).Error
	if err != nil {
		return nil, translateError(err)
	}
	for _, exam := range exams {
		if err := e.calculateComputedFields(ctx, exam); err != nil {
			return nil, err
		}
	}
	return exams, nil
}

func (e *ExamPostgreSQL) calculateComputedFields(ctx context.Context, exam *models.Exam) error {
	if !exam.IsPublished() {
		exam.QuestionCount = len(exam.QuestionIDs)
		return nil
	}
	var count int64
	if err := e.db.WithContext(ctx).
		Model(&models.ExamQuestion{}).
		Where("exam_id = ?", exam.ID).
		Count(&count).Error; err != nil {
		return translateError(err)
	}
	exam.QuestionCount = int(count)
	return nil
}

func (e *ExamPostgreSQL) applyFilters(query *gorm.DB, filter models.ExamFilter) *gorm.DB {
	if filter.Subject != "" {
		query = query.Where("LOWER(subject) = LOWER(?)", filter.Subject)
	}
	if filter.Class != "" {
		query = query.Where("LOWER(class) = LOWER(?)", filter.Class)
	}
	if filter.Session != "" {
		query = query.Where("session = ?", filter.Session)
	}
	if filter.Term != "" {
		query = query.Where("term = ?", filter.Term)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedBy != "" {
		query = query.Where("created_by = ?", filter.CreatedBy)
	}
	return query
}
