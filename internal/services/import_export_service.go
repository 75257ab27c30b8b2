package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories"
	"github.com/odunayomike/report-card-generator-sub003/internal/textimport"
	"github.com/odunayomike/report-card-generator-sub003/internal/validator"
)

const timestampLayout = "2006-01-02 15:04:05"

type importExportService struct {
	repo      repositories.Repository
	questions QuestionService
	policy    textimport.Policy
	logger    *ServiceLogger
	validator *validator.Validator
}

func NewImportExportService(repo repositories.Repository, questions QuestionService, policy textimport.Policy, logger *slog.Logger, validator *validator.Validator) ImportExportService {
	return &importExportService{
		repo:      repo,
		questions: questions,
		policy:    policy,
		logger:    NewServiceLogger(logger, "import_export_service"),
		validator: validator,
	}
}

// ===== IMPORT OPERATIONS =====

// ImportText stores the clean subset of a question sheet in one transaction.
// Questions that fail parsing or field validation are reported, not stored.
func (s *importExportService) ImportText(ctx context.Context, caller models.Caller, text string) (summary *models.ImportSummary, err error) {
	op := s.logger.WithOperation(ctx, "import_questions", caller.ID)
	defer func() { op.LogResult(0, "question", err) }()

	if !caller.IsStaff() {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(text) == "" {
		return nil, NewBusinessRuleError(RuleImportEmpty, "the import file is empty", nil)
	}

	parsed := textimport.Parse(text, s.policy)
	summary = &models.ImportSummary{
		CreatedIDs: []uint{},
		Errors:     make([]models.ImportError, 0, len(parsed.Errors)),
	}

	failed := make(map[int]bool)
	for _, e := range parsed.Errors {
		summary.Errors = append(summary.Errors, models.ImportError(e))
		if e.QuestionIndex > 0 {
			failed[e.QuestionIndex] = true
		}
	}

	drafts := make([]models.QuestionDraft, 0, len(parsed.Questions))
	for _, pq := range parsed.Questions {
		draft := pq.Draft
		if err := s.validator.ValidateQuestionDraft(&draft); err != nil {
			summary.Errors = append(summary.Errors, models.ImportError{
				Line:          pq.Line,
				QuestionIndex: pq.Index,
				Message:       err.Error(),
			})
			failed[pq.Index] = true
			continue
		}
		drafts = append(drafts, draft)
	}
	summary.Total = len(parsed.Questions) + countOutside(failed, parsed.Questions)

	if len(drafts) == 0 {
		if len(summary.Errors) == 0 {
			return nil, NewBusinessRuleError(RuleImportEmpty, "no questions found in the import file", nil)
		}
		return summary, nil
	}

	created, err := s.questions.CreateBatch(ctx, caller, drafts)
	if err != nil {
		return nil, err
	}
	for _, q := range created {
		summary.CreatedIDs = append(summary.CreatedIDs, q.ID)
	}

	s.logger.LogAudit(ctx, AuditQuestionsImport, caller.ID, 0, map[string]interface{}{
		"created": len(summary.CreatedIDs),
		"errors":  len(summary.Errors),
	})
	return summary, nil
}

// countOutside counts failed question indexes that never made it into parsed.
func countOutside(failed map[int]bool, parsed []textimport.ParsedQuestion) int {
	inParsed := make(map[int]bool, len(parsed))
	for _, pq := range parsed {
		inParsed[pq.Index] = true
	}
	n := 0
	for idx := range failed {
		if !inParsed[idx] {
			n++
		}
	}
	return n
}

// ===== EXPORT OPERATIONS =====

func (s *importExportService) ExportQuestionsToExcel(ctx context.Context, caller models.Caller, filter models.QuestionFilter) ([]byte, error) {
	if !caller.IsStaff() {
		return nil, ErrForbidden
	}
	filter.Limit, filter.Offset = maxListLimit, 0

	questions, _, err := s.repo.Question().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	headers := []string{
		"ID", "Subject", "Class", "Topic", "Difficulty", "Marks", "Question Text",
		"Option A", "Option B", "Option C", "Option D", "Option E", "Correct Answer",
	}
	rows := make([][]interface{}, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, questionRow(q))
	}
	return writeWorkbook("Questions", headers, rows)
}

func (s *importExportService) ExportExamResults(ctx context.Context, caller models.Caller, examID uint) (data []byte, err error) {
	op := s.logger.WithOperation(ctx, "export_results", caller.ID)
	defer func() { op.LogResult(examID, "exam", err) }()

	if !caller.IsStaff() {
		return nil, ErrForbidden
	}
	exam, err := s.repo.Exam().GetByID(ctx, examID)
	if err != nil {
		return nil, mapNotFound(err, ErrExamNotFound, "failed to get exam")
	}
	results, err := s.repo.Result().ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	headers := []string{
		"Student ID", "Exam", "Subject", "Class", "Term", "Session", "Assessment Type",
		"Score", "Total Marks", "Percentage", "Grade", "Correct", "Wrong", "Unanswered",
		"Time Taken (seconds)", "Reason", "Graded At",
	}
	rows := make([][]interface{}, 0, len(results))
	for _, r := range results {
		rows = append(rows, []interface{}{
			r.StudentID,
			exam.Title,
			exam.Subject,
			exam.Class,
			exam.Term,
			exam.Session,
			exam.AssessmentType,
			r.TotalScore,
			r.TotalMarks,
			r.Percentage,
			r.Grade,
			r.CorrectCount,
			r.WrongCount,
			r.UnansweredCount,
			r.TimeTakenSeconds,
			string(r.Reason),
			r.GradedAt.Format(timestampLayout),
		})
	}
	return writeWorkbook("Results", headers, rows)
}

// ===== WORKBOOK HELPERS =====

func writeWorkbook(sheetName string, headers []string, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for rowIndex, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIndex+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", rowIndex+1, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func questionRow(q *models.Question) []interface{} {
	row := []interface{}{q.ID, q.Subject, q.Class, "", string(q.Difficulty), q.Marks, q.Text}
	if q.Topic != nil {
		row[3] = *q.Topic
	}

	const optionColumns = 5
	correct := ""
	for i := 0; i < optionColumns; i++ {
		if i >= len(q.Options) {
			row = append(row, "")
			continue
		}
		row = append(row, q.Options[i].Text)
		if q.Options[i].IsCorrect {
			correct = string(rune('A' + i))
		}
	}
	return append(row, correct)
}
