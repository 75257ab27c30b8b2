package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/services"
	"github.com/odunayomike/report-card-generator-sub003/internal/utils"
)

// Exam update actions carried in the PUT body.
const (
	ExamActionUpdate          = "update"
	ExamActionPublish         = "publish"
	ExamActionAssignQuestions = "assign_questions"
	ExamActionAssignStudents  = "assign_students"
	ExamActionAssignClass     = "assign_class"
)

// ExamActionRequest is the PUT /exams/:id body. Patch fields are only read for
// the update action.
type ExamActionRequest struct {
	Action string `json:"action"`
	models.UpdateExamRequest

	QuestionIDs []uint   `json:"question_ids"`
	StudentIDs  []string `json:"student_ids"`
}

type ExamHandler struct {
	BaseHandler
	examService   services.ExamService
	exportService services.ImportExportService
}

func NewExamHandler(examService services.ExamService, exportService services.ImportExportService, logger utils.Logger) *ExamHandler {
	return &ExamHandler{
		BaseHandler:   NewBaseHandler(logger),
		examService:   examService,
		exportService: exportService,
	}
}

// CreateExam creates a draft exam
// @Router /exams [post]
func (h *ExamHandler) CreateExam(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req models.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	h.LogRequest(c, "Creating exam", "title", req.Title)
	exam, err := h.examService.Create(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, exam)
}

// ListExams lists exams for staff
// @Router /exams [get]
func (h *ExamHandler) ListExams(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var filter models.ExamFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.badRequest(c, "Invalid query parameters", err)
		return
	}

	list, err := h.examService.List(c.Request.Context(), caller, filter)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetExam returns one exam
// @Router /exams/{id} [get]
func (h *ExamHandler) GetExam(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), caller, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, exam)
}

// UpdateExam dispatches on the body's action. An empty action is an update.
// @Router /exams/{id} [put]
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req ExamActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	h.LogRequest(c, "Updating exam", "exam_id", id, "action", req.Action)

	ctx := c.Request.Context()
	var (
		exam *models.Exam
		err  error
	)
	switch req.Action {
	case "", ExamActionUpdate:
		exam, err = h.examService.Update(ctx, caller, id, &req.UpdateExamRequest)
	case ExamActionPublish:
		exam, err = h.examService.Publish(ctx, caller, id)
	case ExamActionAssignQuestions:
		exam, err = h.examService.AssignQuestions(ctx, caller, id, req.QuestionIDs)
	case ExamActionAssignStudents:
		exam, err = h.examService.AssignStudents(ctx, caller, id, req.StudentIDs)
	case ExamActionAssignClass:
		exam, err = h.examService.AssignClass(ctx, caller, id)
	default:
		h.badRequest(c, fmt.Sprintf("Unknown action %q", req.Action), nil)
		return
	}
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, exam)
}

// DeleteExam removes a draft, or a published exam when force=true
// @Router /exams/{id} [delete]
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}
	force, _ := strconv.ParseBool(c.Query("force"))

	if err := h.examService.Delete(c.Request.Context(), caller, id, force); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Exam deleted", nil)
}

// GetExamQuestions returns the exam's questions with answers, for staff
// @Router /exams/{id}/questions [get]
func (h *ExamHandler) GetExamQuestions(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	questions, err := h.examService.GetQuestions(c.Request.Context(), caller, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": staffQuestions(questions)})
}

// ListExamResults returns every stored result of the exam
// @Router /exams/{id}/results [get]
func (h *ExamHandler) ListExamResults(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	results, err := h.examService.ListResults(c.Request.Context(), caller, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// ExportExamResults streams the results workbook
// @Router /exams/{id}/results/export [get]
func (h *ExamHandler) ExportExamResults(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	data, err := h.exportService.ExportExamResults(c.Request.Context(), caller, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	sendWorkbook(c, fmt.Sprintf("exam-%d-results.xlsx", id), data)
}

// staffQuestion exposes the correct option, which ExamQuestion hides from JSON.
type staffQuestion struct {
	models.ExamQuestion
	CorrectOptionID uint `json:"correct_option_id"`
}

func staffQuestions(questions []models.ExamQuestion) []staffQuestion {
	out := make([]staffQuestion, len(questions))
	for i, q := range questions {
		out[i] = staffQuestion{ExamQuestion: q, CorrectOptionID: q.CorrectOptionID}
	}
	return out
}
