package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/services"
	"github.com/odunayomike/report-card-generator-sub003/internal/utils"
)

// maxImportBytes caps an uploaded question sheet.
const maxImportBytes = 2 << 20

// BatchCreateQuestionsRequest is the POST /questions/batch body.
type BatchCreateQuestionsRequest struct {
	Questions []models.QuestionDraft `json:"questions"`
}

// DeleteQuestionsRequest is the DELETE /questions body.
type DeleteQuestionsRequest struct {
	IDs []uint `json:"ids"`
}

type QuestionHandler struct {
	BaseHandler
	questionService services.QuestionService
	importService   services.ImportExportService
}

func NewQuestionHandler(questionService services.QuestionService, importService services.ImportExportService, logger utils.Logger) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:     NewBaseHandler(logger),
		questionService: questionService,
		importService:   importService,
	}
}

// CreateQuestion creates a new question
// @Router /questions [post]
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var draft models.QuestionDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), caller, &draft)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

// CreateQuestionsBatch stores all questions or none
// @Router /questions/batch [post]
func (h *QuestionHandler) CreateQuestionsBatch(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req BatchCreateQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	h.LogRequest(c, "Creating questions batch", "count", len(req.Questions))
	questions, err := h.questionService.CreateBatch(c.Request.Context(), caller, req.Questions)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"questions": questions})
}

// GetQuestion retrieves a question by ID
// @Router /questions/{id} [get]
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	question, err := h.questionService.GetByID(c.Request.Context(), caller, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// UpdateQuestion replaces a question's content and options
// @Router /questions/{id} [put]
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var draft models.QuestionDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	question, err := h.questionService.Update(c.Request.Context(), caller, id, &draft)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// DeleteQuestion deletes one question
// @Router /questions/{id} [delete]
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	id := parseIDParam(c, "id")
	if id == 0 {
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), caller, id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Question deleted", nil)
}

// DeleteQuestions deletes the questions listed in the body
// @Router /questions [delete]
func (h *QuestionHandler) DeleteQuestions(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req DeleteQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	deleted, err := h.questionService.DeleteBatch(c.Request.Context(), caller, req.IDs)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "Questions deleted", gin.H{"deleted": deleted})
}

// ListQuestions lists the bank with optional filters
// @Router /questions [get]
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var filter models.QuestionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.badRequest(c, "Invalid query parameters", err)
		return
	}

	list, err := h.questionService.List(c.Request.Context(), caller, filter)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ImportQuestions accepts a question sheet as a multipart "file" or as the raw body
// @Router /questions/import [post]
func (h *QuestionHandler) ImportQuestions(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	text, err := readImportText(c)
	if err != nil {
		h.badRequest(c, "Could not read import file", err)
		return
	}

	summary, err := h.importService.ImportText(c.Request.Context(), caller, text)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if len(summary.CreatedIDs) == 0 {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, summary)
}

// ExportQuestions streams the filtered bank as a workbook
// @Router /questions/export [get]
func (h *QuestionHandler) ExportQuestions(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var filter models.QuestionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.badRequest(c, "Invalid query parameters", err)
		return
	}

	data, err := h.importService.ExportQuestionsToExcel(c.Request.Context(), caller, filter)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	sendWorkbook(c, "questions.xlsx", data)
}

func readImportText(c *gin.Context) (string, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			return c.PostForm("text"), nil
		}
		f, err := header.Open()
		if err != nil {
			return "", err
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxImportBytes))
		return string(data), err
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	return string(data), err
}
