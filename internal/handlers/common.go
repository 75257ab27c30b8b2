package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/services"
	"github.com/odunayomike/report-card-generator-sub003/internal/utils"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Reason codes let clients tell apart the refusals that share a status.
const (
	CodeValidation     = "validation_failed"
	CodeForbidden      = "forbidden"
	CodeNotAssigned    = "not_assigned"
	CodeResultsHidden  = "results_hidden"
	CodeNotPublished   = "not_published"
	CodeOutsideWindow  = "outside_window"
	CodeNotActive      = "attempt_not_active"
	CodeNotEditable    = "exam_not_editable"
	CodeNotDeletable   = "exam_not_deletable"
	CodeNotFound       = "not_found"
	CodeUnauthorized   = "unauthorized"
	CodeInternal       = "internal_error"
	CodeInvalidPayload = "invalid_payload"
)

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging functionality for all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) log(c *gin.Context) utils.Logger {
	return utils.GetLoggerFromContext(c, h.logger)
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := append([]interface{}{"user_id", c.GetString("user_id")}, additionalFields...)
	h.log(c).Debug(message, fields...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := append([]interface{}{"user_id", c.GetString("user_id")}, additionalFields...)
	h.log(c).LogError(err, message, fields...)
}

// caller reads the identity the auth middleware stored. It writes a 401 and
// returns false when there is none.
func (h *BaseHandler) caller(c *gin.Context) (models.Caller, bool) {
	caller, ok := CallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
			Code:    CodeUnauthorized,
		})
		return models.Caller{}, false
	}
	return caller, true
}

// RespondWithSuccess sends a consistent success response
func (h *BaseHandler) RespondWithSuccess(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, SuccessResponse{
		Message: message,
		Data:    data,
	})
}

func (h *BaseHandler) badRequest(c *gin.Context, message string, err error) {
	resp := ErrorResponse{Message: message, Code: CodeInvalidPayload}
	if err != nil {
		resp.Details = err.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}

// handleServiceError maps service errors onto HTTP statuses.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
			Code:    CodeValidation,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: businessRuleError.Context,
			Code:    businessRuleError.Rule,
		})
		return
	}

	status, resp := classify(err)
	if status == http.StatusInternalServerError {
		h.LogError(c, err, "Unexpected service error")
	}
	c.JSON(status, resp)
}

func classify(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, services.ErrNotAssigned):
		return http.StatusForbidden, ErrorResponse{Message: "You are not assigned to this exam", Code: CodeNotAssigned}
	case errors.Is(err, services.ErrResultsHidden):
		return http.StatusForbidden, ErrorResponse{Message: "Results for this exam are not released", Code: CodeResultsHidden}
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Message: "Forbidden - insufficient permissions", Code: CodeForbidden}
	case errors.Is(err, services.ErrNotPublished):
		return http.StatusConflict, ErrorResponse{Message: "Exam is not published", Code: CodeNotPublished}
	case errors.Is(err, services.ErrOutsideWindow):
		return http.StatusConflict, ErrorResponse{Message: "Exam is not open at this time", Code: CodeOutsideWindow}
	case errors.Is(err, services.ErrAttemptNotActive):
		return http.StatusConflict, ErrorResponse{Message: "Attempt is no longer active", Code: CodeNotActive}
	case errors.Is(err, services.ErrExamNotEditable):
		return http.StatusConflict, ErrorResponse{Message: "Exam cannot be edited once published", Code: CodeNotEditable}
	case errors.Is(err, services.ErrExamNotDeletable):
		return http.StatusConflict, ErrorResponse{Message: "Published exams can only be deleted with force=true", Code: CodeNotDeletable}
	case services.IsValidation(err):
		return http.StatusBadRequest, ErrorResponse{Message: "Validation failed", Details: err.Error(), Code: CodeValidation}
	case services.IsNotFound(err):
		return http.StatusNotFound, ErrorResponse{Message: notFoundMessage(err), Code: CodeNotFound}
	default:
		return http.StatusInternalServerError, ErrorResponse{Message: "Internal server error", Code: CodeInternal}
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrExamNotFound):
		return "Exam not found"
	case errors.Is(err, services.ErrQuestionNotFound):
		return "Question not found"
	case errors.Is(err, services.ErrAttemptNotFound):
		return "Attempt not found"
	case errors.Is(err, services.ErrResultNotFound):
		return "Result not found"
	default:
		return "Resource not found"
	}
}
