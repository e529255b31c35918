//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/DanixMP/Azmooneh/internal/apitest"
	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	defaultStudentUser = "STU001"
	defaultProfUser    = "prof_test"
)

var (
	baseURL      string
	studentUser  string
	studentPass  string
	profUser     string
	profPass     string
	studentToken string
	profToken    string
	examID       int64
	sessionID    int64
)

func TestMain(m *testing.M) {
	// Load .env if present (ignore error)
	_ = godotenv.Load("../../.env")

	studentUser = envOr("E2E_STUDENT_USERNAME", defaultStudentUser)
	studentPass = envOr("E2E_STUDENT_PASSWORD", apitest.DemoStudentPassword)
	profUser = envOr("E2E_PROFESSOR_USERNAME", defaultProfUser)
	profPass = envOr("E2E_PROFESSOR_PASSWORD", apitest.DemoProfessorPassword)

	// Without BASE_URL the suite runs against the in-process fake backend.
	baseURL = os.Getenv("BASE_URL")
	if baseURL == "" {
		gin.SetMode(gin.TestMode)
		b := apitest.New(apitest.Options{})
		b.SeedDemo()
		srv := b.Serve()
		baseURL = srv.URL + "/api"
		code := m.Run()
		srv.Close()
		os.Exit(code)
	}

	os.Exit(m.Run())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestE2EFlow(t *testing.T) {
	// Step 1: Login on both portals
	t.Run("ProfessorLogin", func(t *testing.T) {
		profToken = login(t, "/auth/professor/login/", profUser, profPass)
	})

	t.Run("StudentLogin", func(t *testing.T) {
		studentToken = login(t, "/auth/student/login/", studentUser, studentPass)
	})

	t.Run("WrongPortalRejected", func(t *testing.T) {
		resp, err := post("/auth/student/login/", model.LoginRequest{Username: profUser, Password: profPass}, "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d: %s", resp.StatusCode, readBody(resp))
		}
	})

	// Step 2: Professor creates a published exam
	t.Run("CreateExam", func(t *testing.T) {
		req := model.CreateExamRequest{
			Title:           fmt.Sprintf("E2E Exam %d", time.Now().Unix()),
			Description:     "Created by the e2e suite",
			DurationMinutes: 30,
			IsPublished:     true,
			Questions: []model.CreateQuestionRequest{
				{
					QuestionType: model.QuestionTypeSingleChoice,
					QuestionText: "2 + 2 = ?",
					Marks:        decimal.NewFromInt(5),
					Choices: []model.CreateChoiceRequest{
						{ChoiceText: "3"},
						{ChoiceText: "4", IsCorrect: true},
					},
				},
				{
					QuestionType: model.QuestionTypeLongAnswer,
					QuestionText: "Describe a closure.",
					Marks:        decimal.NewFromInt(10),
				},
			},
		}
		resp, err := post("/exams/", req, profToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
		var e model.Exam
		decodeJSON(t, resp, &e)
		if e.ID == 0 || len(e.Questions) != 2 {
			t.Fatalf("created exam = %+v", e)
		}
		examID = e.ID
	})

	// Step 3: Student sees the exam without answers
	var exam model.Exam
	t.Run("GetExamRedacted", func(t *testing.T) {
		resp, err := get(fmt.Sprintf("/exams/%d/", examID), studentToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
		decodeJSON(t, resp, &exam)
		for _, q := range exam.Questions {
			for _, c := range q.Choices {
				if c.IsCorrect != nil {
					t.Fatalf("choice %d exposes is_correct", c.ID)
				}
			}
		}
	})

	// Step 4: Start is idempotent
	t.Run("StartExam", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			resp, err := post("/student-exams/start_exam/", model.StartExamRequest{ExamID: examID}, studentToken)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			var s model.Session
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
			}
			decodeJSON(t, resp, &s)
			resp.Body.Close()

			if s.Status != model.SessionStatusInProgress {
				t.Errorf("status = %s, want in_progress", s.Status)
			}
			if sessionID != 0 && s.ID != sessionID {
				t.Errorf("second start created session %d, want %d", s.ID, sessionID)
			}
			sessionID = s.ID
		}
	})

	// Step 5: Answer, overwrite, submit
	t.Run("SubmitAnswers", func(t *testing.T) {
		if len(exam.Questions) != 2 {
			t.Skip("exam not loaded")
		}
		mc, essay := exam.Questions[0], exam.Questions[1]
		answers := []model.SubmitAnswerRequest{
			{QuestionID: mc.ID, SelectedChoices: []int64{mc.Choices[0].ID}},
			{QuestionID: mc.ID, SelectedChoices: []int64{mc.Choices[1].ID}},
			{QuestionID: essay.ID, TextAnswer: "A function bundled with its environment."},
		}
		for _, a := range answers {
			resp, err := post(fmt.Sprintf("/student-exams/%d/submit_answer/", sessionID), a, studentToken)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
			}
			resp.Body.Close()
		}
	})

	t.Run("SubmitExam", func(t *testing.T) {
		resp, err := post(fmt.Sprintf("/student-exams/%d/submit_exam/", sessionID), nil, studentToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
	})

	t.Run("SubmitTwiceFails", func(t *testing.T) {
		resp, err := post(fmt.Sprintf("/student-exams/%d/submit_exam/", sessionID), nil, studentToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", resp.StatusCode, readBody(resp))
		}
	})

	// Step 6: Professor marks the essay
	t.Run("GradeEssay", func(t *testing.T) {
		resp, err := get(fmt.Sprintf("/student-exams/%d/", sessionID), profToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		var s model.Session
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
		decodeJSON(t, resp, &s)
		resp.Body.Close()

		if s.Status != model.SessionStatusSubmitted {
			t.Fatalf("status = %s, want submitted", s.Status)
		}
		var marks []model.MarkEntry
		for _, a := range s.Answers {
			if a.MarksObtained == nil {
				marks = append(marks, model.MarkEntry{ID: a.ID, MarksObtained: decimal.NewFromInt(8)})
			}
		}
		if len(marks) != 1 {
			t.Fatalf("unmarked answers = %d, want 1", len(marks))
		}

		resp, err = patch(fmt.Sprintf("/student-exams/%d/", sessionID), model.SetMarksRequest{Answers: marks}, profToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
		decodeJSON(t, resp, &s)
		if s.Status != model.SessionStatusGraded {
			t.Errorf("status = %s, want graded", s.Status)
		}
		if s.Score == nil || !s.Score.Equal(decimal.NewFromInt(13)) {
			t.Errorf("score = %v, want 13", s.Score)
		}
	})

	t.Run("StudentCannotGrade", func(t *testing.T) {
		resp, err := patch(fmt.Sprintf("/student-exams/%d/", sessionID), model.SetMarksRequest{
			Answers: []model.MarkEntry{{ID: 1, MarksObtained: decimal.NewFromInt(1)}},
		}, studentToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("expected 403, got %d: %s", resp.StatusCode, readBody(resp))
		}
	})
}

// Helpers

func login(t *testing.T, path, username, password string) string {
	t.Helper()
	resp, err := post(path, model.LoginRequest{Username: username, Password: password}, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
	}
	var pair model.TokenPair
	decodeJSON(t, resp, &pair)
	if pair.Access == "" {
		t.Fatal("access token missing")
	}
	return pair.Access
}

func post(path string, body interface{}, token string) (*http.Response, error) {
	return send(http.MethodPost, path, body, token)
}

func patch(path string, body interface{}, token string) (*http.Response, error) {
	return send(http.MethodPatch, path, body, token)
}

func send(method, path string, body interface{}, token string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

func get(path string, token string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("json decode: %v", err)
	}
}
