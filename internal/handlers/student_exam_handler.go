package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/odunayomike/report-card-generator-sub003/internal/services"
	"github.com/odunayomike/report-card-generator-sub003/internal/utils"
)

// Student exam actions, read from ?action= on GET and from the body on POST.
const (
	StudentActionList       = "list"
	StudentActionStart      = "start"
	StudentActionPaper      = "paper"
	StudentActionResults    = "results"
	StudentActionSaveAnswer = "save_answer"
	StudentActionSubmit     = "submit"
)

type AnswerInput struct {
	QuestionID uint `json:"question_id"`
	OptionID   uint `json:"option_id"`
}

// StudentExamRequest is the POST /student-exams body.
type StudentExamRequest struct {
	Action     string        `json:"action"`
	AttemptID  uint          `json:"attempt_id"`
	QuestionID uint          `json:"question_id"`
	OptionID   uint          `json:"option_id"`
	Answers    []AnswerInput `json:"answers"`
}

type StudentExamHandler struct {
	BaseHandler
	studentExams services.StudentExamService
	attempts     services.AttemptService
}

func NewStudentExamHandler(studentExams services.StudentExamService, attempts services.AttemptService, logger utils.Logger) *StudentExamHandler {
	return &StudentExamHandler{
		BaseHandler:  NewBaseHandler(logger),
		studentExams: studentExams,
		attempts:     attempts,
	}
}

// Get serves the read side of the student portal
// @Router /student-exams [get]
func (h *StudentExamHandler) Get(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	switch action := c.DefaultQuery("action", StudentActionList); action {
	case StudentActionList:
		exams, err := h.studentExams.ListForStudent(ctx, caller)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"exams": exams})

	case StudentActionStart:
		examID := parseIDQuery(c, "exam_id")
		if examID == 0 {
			return
		}
		h.LogRequest(c, "Starting attempt", "exam_id", examID)
		attempt, err := h.attempts.Start(ctx, caller, examID)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		paper, err := h.attempts.GetPaper(ctx, caller, attempt.ID)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, paper)

	case StudentActionPaper:
		attemptID := parseIDQuery(c, "attempt_id")
		if attemptID == 0 {
			return
		}
		paper, err := h.attempts.GetPaper(ctx, caller, attemptID)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, paper)

	case StudentActionResults:
		examID := parseIDQuery(c, "exam_id")
		if examID == 0 {
			return
		}
		result, err := h.studentExams.GetResult(ctx, caller, examID)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)

	default:
		h.badRequest(c, fmt.Sprintf("Unknown action %q", action), nil)
	}
}

// Post serves answer saving and submission
// @Router /student-exams [post]
func (h *StudentExamHandler) Post(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req StudentExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}
	if req.AttemptID == 0 {
		h.badRequest(c, "attempt_id is required", nil)
		return
	}
	ctx := c.Request.Context()

	switch req.Action {
	case StudentActionSaveAnswer:
		if err := h.attempts.SaveAnswer(ctx, caller, req.AttemptID, req.QuestionID, req.OptionID); err != nil {
			h.handleServiceError(c, err)
			return
		}
		h.RespondWithSuccess(c, http.StatusOK, "Answer saved", nil)

	case StudentActionSubmit:
		h.LogRequest(c, "Submitting attempt", "attempt_id", req.AttemptID)
		var final map[uint]uint
		if len(req.Answers) > 0 {
			final = make(map[uint]uint, len(req.Answers))
			for _, a := range req.Answers {
				final[a.QuestionID] = a.OptionID
			}
		}
		result, err := h.attempts.Submit(ctx, caller, req.AttemptID, final)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		// Hidden results still confirm the submission, without the score.
		if _, err := h.studentExams.GetResult(ctx, caller, result.ExamID); err != nil {
			h.RespondWithSuccess(c, http.StatusOK, "Attempt submitted", gin.H{"reason": result.Reason})
			return
		}
		h.RespondWithSuccess(c, http.StatusOK, "Attempt submitted", result)

	default:
		h.badRequest(c, fmt.Sprintf("Unknown action %q", req.Action), nil)
	}
}
