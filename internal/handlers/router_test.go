package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odunayomike/report-card-generator-sub003/internal/config"
	"github.com/odunayomike/report-card-generator-sub003/internal/events"
	"github.com/odunayomike/report-card-generator-sub003/internal/models"
	"github.com/odunayomike/report-card-generator-sub003/internal/repositories/memory"
	"github.com/odunayomike/report-card-generator-sub003/internal/services"
	"github.com/odunayomike/report-card-generator-sub003/internal/utils"
	"github.com/odunayomike/report-card-generator-sub003/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	logger := utils.NewSlogLogger(slogger)
	settings := config.DefaultExamSettings()

	manager := services.NewServiceManager(services.Dependencies{
		Repo:      memory.NewRepository(),
		Publisher: events.NewMockEventPublisher(slogger),
		Validator: validator.New(settings),
		Settings:  settings,
		Logger:    slogger,
	})

	router := gin.New()
	SetupMiddleware(router, logger)
	NewHandlerManager(manager, logger, HeaderAuthMiddleware()).SetupRoutes(router)
	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path string, caller *models.Caller, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if _, isJSON := body.(string); body != nil && !isJSON {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != nil {
		req.Header.Set(HeaderUserID, caller.ID)
		req.Header.Set(HeaderUserRole, string(caller.Role))
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

var (
	staff   = &models.Caller{ID: "teacher-1", Role: models.RoleTeacher}
	student = &models.Caller{ID: "alice", Role: models.RoleStudent}
	other   = &models.Caller{ID: "bob", Role: models.RoleStudent}
)

func questionBody(text string) map[string]interface{} {
	return map[string]interface{}{
		"subject":       "Mathematics",
		"class":         "JSS1",
		"difficulty":    "easy",
		"marks":         1,
		"question_text": text,
		"options": []map[string]interface{}{
			{"text": "right", "is_correct": true},
			{"text": "wrong"},
		},
	}
}

// publishExam creates two questions and a published exam assigned to alice.
func (s *testServer) publishExam() (uint, []models.Question) {
	s.t.Helper()

	var questions []models.Question
	for i := 1; i <= 2; i++ {
		w := s.do(http.MethodPost, "/api/v1/questions", staff, questionBody(fmt.Sprintf("Q%d", i)))
		require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
		questions = append(questions, decode[models.Question](s.t, w))
	}

	w := s.do(http.MethodPost, "/api/v1/exams", staff, map[string]interface{}{
		"title":            "Mid-term",
		"subject":          "Mathematics",
		"class":            "JSS1",
		"duration_minutes": 30,
		"total_score":      10,
		"question_ids":     []uint{questions[0].ID, questions[1].ID},
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	exam := decode[models.Exam](s.t, w)

	w = s.do(http.MethodPut, fmt.Sprintf("/api/v1/exams/%d", exam.ID), staff, map[string]interface{}{
		"action":      ExamActionAssignStudents,
		"student_ids": []string{"alice"},
	})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPut, fmt.Sprintf("/api/v1/exams/%d", exam.ID), staff, map[string]interface{}{
		"action": ExamActionPublish,
	})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(s.t, models.ExamPublished, decode[models.Exam](s.t, w).Status)

	return exam.ID, questions
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode[map[string]interface{}](t, w)["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_RequiresIdentity(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/v1/exams", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/v1/exams", &models.Caller{ID: "x", Role: "janitor"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_StudentFlow(t *testing.T) {
	s := newTestServer(t)
	examID, questions := s.publishExam()

	w := s.do(http.MethodGet, "/api/v1/student-exams", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Exams []services.StudentExam `json:"exams"`
	}](t, w)
	require.Len(t, list.Exams, 1)
	assert.Equal(t, examID, list.Exams[0].ExamID)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/student-exams?action=start&exam_id=%d", examID), student, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "is_correct")
	paper := decode[services.AttemptPaper](t, w)
	require.Len(t, paper.Questions, 2)
	assert.InDelta(t, 1800, paper.SecondsRemaining, 2)

	w = s.do(http.MethodPost, "/api/v1/student-exams", student, StudentExamRequest{
		Action:     StudentActionSaveAnswer,
		AttemptID:  paper.AttemptID,
		QuestionID: questions[0].ID,
		OptionID:   questions[0].Options[0].ID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/student-exams", student, StudentExamRequest{
		Action:     StudentActionSaveAnswer,
		AttemptID:  paper.AttemptID,
		QuestionID: questions[0].ID,
		OptionID:   questions[1].Options[0].ID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeValidation, decode[ErrorResponse](t, w).Code)

	w = s.do(http.MethodPost, "/api/v1/student-exams", student, StudentExamRequest{
		Action:    StudentActionSubmit,
		AttemptID: paper.AttemptID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/student-exams?action=results&exam_id=%d", examID), student, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[models.Result](t, w)
	assert.InDelta(t, 5.0, result.TotalScore, 1e-9)
	assert.InDelta(t, 50.0, result.Percentage, 1e-9)

	w = s.do(http.MethodPost, "/api/v1/student-exams", student, StudentExamRequest{
		Action:    StudentActionSubmit,
		AttemptID: paper.AttemptID,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, CodeNotActive, decode[ErrorResponse](t, w).Code)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/exams/%d/results/export", examID), staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "results.xlsx")
}

func TestRouter_ErrorMapping(t *testing.T) {
	s := newTestServer(t)
	examID, _ := s.publishExam()

	t.Run("not assigned", func(t *testing.T) {
		w := s.do(http.MethodGet, fmt.Sprintf("/api/v1/student-exams?action=start&exam_id=%d", examID), other, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, CodeNotAssigned, decode[ErrorResponse](t, w).Code)
	})

	t.Run("unknown exam", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/v1/exams/9999", staff, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/v1/exams/abc", staff, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("frozen field", func(t *testing.T) {
		w := s.do(http.MethodPut, fmt.Sprintf("/api/v1/exams/%d", examID), staff, map[string]interface{}{
			"subject": "Physics",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, CodeNotEditable, decode[ErrorResponse](t, w).Code)
	})

	t.Run("delete without force", func(t *testing.T) {
		w := s.do(http.MethodDelete, fmt.Sprintf("/api/v1/exams/%d", examID), staff, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown action", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/v1/student-exams?action=dance", student, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("students cannot manage questions", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/v1/questions", student, questionBody("nope"))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("publish without students", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/v1/exams", staff, map[string]interface{}{
			"title":            "Empty",
			"subject":          "Mathematics",
			"class":            "JSS1",
			"duration_minutes": 10,
			"total_score":      10,
		})
		require.Equal(t, http.StatusCreated, w.Code)
		exam := decode[models.Exam](t, w)

		w = s.do(http.MethodPut, fmt.Sprintf("/api/v1/exams/%d", exam.ID), staff, map[string]interface{}{
			"action": ExamActionPublish,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, services.RulePublishRequirements, decode[ErrorResponse](t, w).Code)
	})
}

const importSheet = `Subject: English
Class: JSS2

1. Choose the noun
A. run
B. table (correct)

2. Choose the verb
A. jump
B. chair
`

func TestRouter_ImportQuestions(t *testing.T) {
	s := newTestServer(t)

	t.Run("raw body", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/v1/questions/import", staff, importSheet)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		summary := decode[models.ImportSummary](t, w)
		assert.Len(t, summary.CreatedIDs, 1)
		assert.Len(t, summary.Errors, 1)
		assert.Equal(t, 2, summary.Total)
	})

	t.Run("multipart file", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "questions.txt")
		require.NoError(t, err)
		_, err = part.Write([]byte(importSheet))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/questions/import", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set(HeaderUserID, staff.ID)
		req.Header.Set(HeaderUserRole, string(staff.Role))
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	t.Run("empty body", func(t *testing.T) {
		w := s.do(http.MethodPost, "/api/v1/questions/import", staff, "  ")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, services.RuleImportEmpty, decode[ErrorResponse](t, w).Code)
	})

	t.Run("list after import", func(t *testing.T) {
		w := s.do(http.MethodGet, "/api/v1/questions?subject=English", staff, nil)
		require.Equal(t, http.StatusOK, w.Code)
		list := decode[models.ListResponse[models.Question]](t, w)
		assert.Equal(t, int64(2), list.Total)
	})
}

type fakeParser struct {
	claims *casdoorsdk.Claims
	err    error
}

func (p fakeParser) ParseJwtToken(string) (*casdoorsdk.Claims, error) {
	return p.claims, p.err
}

func TestCasdoorAuthMiddleware(t *testing.T) {
	serve := func(parser TokenParser, header string) (*httptest.ResponseRecorder, models.Caller) {
		var seen models.Caller
		router := gin.New()
		router.GET("/me", CasdoorAuthMiddleware(parser), func(c *gin.Context) {
			seen, _ = CallerFromContext(c)
			c.Status(http.StatusNoContent)
		})

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w, seen
	}

	t.Run("teacher token", func(t *testing.T) {
		claims := &casdoorsdk.Claims{User: casdoorsdk.User{Id: "u-1", Type: "Teacher"}}
		w, caller := serve(fakeParser{claims: claims}, "Bearer abc")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, models.Caller{ID: "u-1", Role: models.RoleTeacher}, caller)
	})

	t.Run("unknown type is a student", func(t *testing.T) {
		claims := &casdoorsdk.Claims{User: casdoorsdk.User{Id: "u-2", Type: "normal-user"}}
		_, caller := serve(fakeParser{claims: claims}, "bearer abc")
		assert.Equal(t, models.RoleStudent, caller.Role)
	})

	t.Run("admin by role name", func(t *testing.T) {
		claims := &casdoorsdk.Claims{User: casdoorsdk.User{
			Name:  "root",
			Roles: []*casdoorsdk.Role{{Name: "Administrator"}},
		}}
		_, caller := serve(fakeParser{claims: claims}, "Bearer abc")
		assert.Equal(t, models.Caller{ID: "root", Role: models.RoleAdmin}, caller)
	})

	t.Run("missing header", func(t *testing.T) {
		w, _ := serve(fakeParser{}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejected token", func(t *testing.T) {
		w, _ := serve(fakeParser{err: errors.New("bad signature")}, "Bearer abc")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
