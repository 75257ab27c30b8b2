package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/odunayomike/report-card-generator-sub003/internal/services"
	"github.com/odunayomike/report-card-generator-sub003/internal/utils"
)

const serviceName = "cbt-exam-service"

type HandlerManager struct {
	examHandler        *ExamHandler
	questionHandler    *QuestionHandler
	studentExamHandler *StudentExamHandler

	services services.ServiceManager
	auth     gin.HandlerFunc
}

// NewHandlerManager wires the handlers. auth authenticates every /api/v1 route.
func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger, auth gin.HandlerFunc) *HandlerManager {
	return &HandlerManager{
		examHandler:        NewExamHandler(serviceManager.Exam(), serviceManager.ImportExport(), logger),
		questionHandler:    NewQuestionHandler(serviceManager.Question(), serviceManager.ImportExport(), logger),
		studentExamHandler: NewStudentExamHandler(serviceManager.StudentExam(), serviceManager.Attempt(), logger),
		services:           serviceManager,
		auth:               auth,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(hm.auth)
	{
		exams := v1.Group("/exams")
		{
			exams.POST("", hm.examHandler.CreateExam)
			exams.GET("", hm.examHandler.ListExams)
			exams.GET("/:id", hm.examHandler.GetExam)
			exams.PUT("/:id", hm.examHandler.UpdateExam)
			exams.DELETE("/:id", hm.examHandler.DeleteExam)
			exams.GET("/:id/questions", hm.examHandler.GetExamQuestions)
			exams.GET("/:id/results", hm.examHandler.ListExamResults)
			exams.GET("/:id/results/export", hm.examHandler.ExportExamResults)
		}

		questions := v1.Group("/questions")
		{
			questions.POST("", hm.questionHandler.CreateQuestion)
			questions.GET("", hm.questionHandler.ListQuestions)
			questions.DELETE("", hm.questionHandler.DeleteQuestions)
			questions.POST("/batch", hm.questionHandler.CreateQuestionsBatch)
			questions.POST("/import", hm.questionHandler.ImportQuestions)
			questions.GET("/export", hm.questionHandler.ExportQuestions)
			questions.GET("/:id", hm.questionHandler.GetQuestion)
			questions.PUT("/:id", hm.questionHandler.UpdateQuestion)
			questions.DELETE("/:id", hm.questionHandler.DeleteQuestion)
		}

		studentExams := v1.Group("/student-exams")
		{
			studentExams.GET("", hm.studentExamHandler.Get)
			studentExams.POST("", hm.studentExamHandler.Post)
		}
	}
}

// HealthCheck reports whether storage answers.
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	if err := hm.services.Ping(ctx); err != nil {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
