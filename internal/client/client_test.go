package client

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/DanixMP/Azmooneh/internal/apitest"
	"github.com/DanixMP/Azmooneh/internal/auth"
	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/DanixMP/Azmooneh/internal/response"
	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fixture struct {
	backend *apitest.Backend
	demo    apitest.Demo
	anon    *Client
	student *Client
	prof    *Client
}

func newFixture(t *testing.T, opts apitest.Options) *fixture {
	t.Helper()
	b := apitest.New(opts)
	demo := b.SeedDemo()
	srv := b.Serve()
	t.Cleanup(srv.Close)

	anon := New(srv.URL + "/api")
	return &fixture{
		backend: b,
		demo:    demo,
		anon:    anon,
		student: anon.As(auth.Static(b.Tokens(demo.Student).Access)),
		prof:    anon.As(auth.Static(b.Tokens(demo.Professor).Access)),
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t, apitest.Options{})
	ctx := context.Background()

	t.Run("StudentLogin", func(t *testing.T) {
		pair, err := f.anon.StudentLogin(ctx, model.LoginRequest{Username: "STU001", Password: apitest.DemoStudentPassword})
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		if pair.Access == "" || pair.Refresh == "" || pair.User.Role != model.RoleStudent {
			t.Fatalf("pair = %+v", pair)
		}
		me, err := f.anon.As(auth.Static(pair.Access)).Me(ctx)
		if err != nil {
			t.Fatalf("me: %v", err)
		}
		if me.ID != f.demo.Student.ID {
			t.Errorf("me = %+v", me)
		}
	})

	t.Run("WrongPortal", func(t *testing.T) {
		_, err := f.anon.StudentLogin(ctx, model.LoginRequest{Username: "prof_test", Password: apitest.DemoProfessorPassword})
		if !errors.Is(err, response.ErrUnauthorized) {
			t.Fatalf("err = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("MissingPassword", func(t *testing.T) {
		_, err := f.anon.ProfessorLogin(ctx, model.LoginRequest{Username: "prof_test"})
		var apiErr *response.Error
		if !errors.As(err, &apiErr) || apiErr.Code != response.ErrValidation {
			t.Fatalf("err = %v, want validation error", err)
		}
		if _, ok := apiErr.Fields["password"]; !ok {
			t.Errorf("fields = %v, want password", apiErr.Fields)
		}
		if n := f.backend.Calls(apitest.RouteProfessorLogin); n != 0 {
			t.Errorf("invalid payload reached the server %d times", n)
		}
	})

	t.Run("DuplicateSignup", func(t *testing.T) {
		_, err := f.anon.StudentSignup(ctx, model.SignupRequest{
			Username: "STU001", Password: "secret1", StudentID: "STU009", FullName: "Someone",
		})
		var apiErr *response.Error
		if !errors.As(err, &apiErr) || apiErr.Fields["username"] == "" {
			t.Fatalf("err = %v, want username field error", err)
		}
	})
}

func TestStudentExamFlow(t *testing.T) {
	f := newFixture(t, apitest.Options{})
	ctx := context.Background()

	exams, err := f.student.ListExams(ctx)
	if err != nil {
		t.Fatalf("list exams: %v", err)
	}
	if len(exams) != 1 {
		t.Fatalf("exams = %d, want 1", len(exams))
	}
	for _, q := range exams[0].Questions {
		for _, c := range q.Choices {
			if c.IsCorrect != nil {
				t.Fatalf("student sees correctness of choice %d", c.ID)
			}
		}
	}

	sess, err := f.student.StartExam(ctx, f.demo.Exam.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	again, err := f.student.StartExam(ctx, f.demo.Exam.ID)
	if err != nil || again.ID != sess.ID {
		t.Fatalf("restart = %+v, %v; want session %d", again, err, sess.ID)
	}

	q1, essay := f.demo.Exam.Questions[0], f.demo.Exam.Questions[3]
	if err := f.student.SubmitAnswer(ctx, sess.ID, model.SubmitAnswerRequest{QuestionID: q1.ID, SelectedChoices: []int64{q1.Choices[1].ID}}); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := f.student.SubmitAnswer(ctx, sess.ID, model.SubmitAnswerRequest{QuestionID: essay.ID, TextAnswer: "Lists are mutable."}); err != nil {
		t.Fatalf("answer: %v", err)
	}

	sealed, err := f.student.SubmitExam(ctx, sess.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sealed.Score == nil || sealed.Score.IntPart() != 5 {
		t.Errorf("score = %v, want 5", sealed.Score)
	}

	_, err = f.student.SubmitExam(ctx, sess.ID)
	if !errors.Is(err, response.ErrExamAlreadySubmitted) {
		t.Errorf("second submit err = %v, want ErrExamAlreadySubmitted", err)
	}
	err = f.student.SubmitAnswer(ctx, sess.ID, model.SubmitAnswerRequest{QuestionID: q1.ID})
	if !errors.Is(err, response.ErrExamAlreadySubmitted) {
		t.Errorf("answer after submit err = %v, want ErrExamAlreadySubmitted", err)
	}

	got, err := f.prof.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("professor get session: %v", err)
	}
	if got.Status != model.SessionStatusSubmitted || len(got.Answers) != 2 {
		t.Fatalf("session = %+v", got)
	}
	essayAnswer, _ := got.Answer(essay.ID)

	marked, err := f.prof.SetMarks(ctx, sess.ID, model.SetMarksRequest{Answers: []model.MarkEntry{
		{ID: essayAnswer.ID, MarksObtained: essay.Marks},
	}})
	if err != nil {
		t.Fatalf("set marks: %v", err)
	}
	if marked.Status != model.SessionStatusGraded || marked.Score.IntPart() != 20 {
		t.Errorf("after marks: status %s score %v", marked.Status, marked.Score)
	}
}

func TestStartExamNotAvailable(t *testing.T) {
	f := newFixture(t, apitest.Options{})
	ctx := context.Background()

	if err := f.prof.UnpublishExam(ctx, f.demo.Exam.ID); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	_, err := f.student.StartExam(ctx, f.demo.Exam.ID)
	if !errors.Is(err, response.ErrExamNotAvailable) {
		t.Fatalf("err = %v, want ErrExamNotAvailable", err)
	}

	_, err = f.student.StartExam(ctx, 0)
	if !errors.Is(err, response.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestMessagesAndSWOT(t *testing.T) {
	f := newFixture(t, apitest.Options{})
	ctx := context.Background()

	profID := f.demo.Professor.ID
	if _, err := f.student.SendMessage(ctx, model.SendMessageRequest{ProfessorID: &profID, Title: "Exam", Message: "When are grades out?"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	n, err := f.prof.UnreadCount(ctx)
	if err != nil || n != 1 {
		t.Fatalf("unread = %d, %v; want 1", n, err)
	}
	msgs, err := f.prof.ListMessages(ctx)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("messages = %+v, %v", msgs, err)
	}
	if err := f.prof.MarkMessageRead(ctx, msgs[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if n, _ := f.prof.UnreadCount(ctx); n != 0 {
		t.Errorf("unread after mark = %d, want 0", n)
	}
	if _, err := f.student.UnreadCount(ctx); !errors.Is(err, response.ErrForbidden) {
		t.Errorf("student unread err = %v, want ErrForbidden", err)
	}

	qs, err := f.student.SWOTQuestions(ctx)
	if err != nil || len(qs) != 8 {
		t.Fatalf("swot questions = %d, %v", len(qs), err)
	}
	if qs[0].Category != model.SWOTStrength || qs[7].Category != model.SWOTThreat {
		t.Errorf("questions not grouped by category: %v .. %v", qs[0].Category, qs[7].Category)
	}
	analysis, err := f.student.SubmitSWOT(ctx, model.SubmitSWOTRequest{Answers: []model.SWOTAnswerInput{
		{QuestionID: qs[0].ID, AnswerText: "Maths"},
		{QuestionID: 99999, AnswerText: "ignored"},
	}})
	if err != nil {
		t.Fatalf("submit swot: %v", err)
	}
	if len(analysis.Answers) != 1 {
		t.Errorf("stored answers = %d, want 1", len(analysis.Answers))
	}
	mine, err := f.student.MyAnalyses(ctx)
	if err != nil || len(mine) != 1 {
		t.Errorf("my analyses = %d, %v", len(mine), err)
	}
}

func TestRequestIDs(t *testing.T) {
	f := newFixture(t, apitest.Options{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.student.ListExams(ctx); err != nil {
			t.Fatal(err)
		}
	}
	ids := f.backend.RequestIDs(apitest.RouteListExams)
	if len(ids) != 2 || ids[0] == "" || ids[0] == ids[1] {
		t.Errorf("request ids = %v, want two distinct", ids)
	}

	f.backend.FailNext(apitest.RouteListExams, http.StatusServiceUnavailable, 1)
	_, err := f.student.ListExams(ctx)
	var apiErr *response.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *response.Error", err)
	}
	if apiErr.RequestID == "" || !apiErr.Retryable() {
		t.Errorf("error = %+v, want request id and retryable", apiErr)
	}
}

func TestBrotliResponses(t *testing.T) {
	f := newFixture(t, apitest.Options{BrotliMinLength: 1})

	exam, err := f.prof.GetExam(context.Background(), f.demo.Exam.ID)
	if err != nil {
		t.Fatalf("get exam: %v", err)
	}
	if exam.Title != f.demo.Exam.Title || len(exam.Questions) != 4 {
		t.Errorf("exam = %+v", exam)
	}
	if exam.Questions[0].Choices[1].IsCorrect == nil {
		t.Error("professor view lost correctness")
	}
}

func TestMissingCredentials(t *testing.T) {
	f := newFixture(t, apitest.Options{})
	ctx := context.Background()

	if _, err := f.anon.ListExams(ctx); !errors.Is(err, response.ErrUnauthorized) {
		t.Errorf("no token source err = %v, want ErrUnauthorized", err)
	}
	if n := f.backend.Calls(apitest.RouteListExams); n != 0 {
		t.Errorf("calls = %d, want 0", n)
	}

	if _, err := f.anon.As(auth.Static("garbage")).ListExams(ctx); !errors.Is(err, response.ErrTokenExpired) {
		t.Errorf("bad token err = %v, want ErrTokenExpired", err)
	}
}

func TestRefreshingTokenSource(t *testing.T) {
	f := newFixture(t, apitest.Options{AccessTTL: time.Minute})
	ctx := context.Background()

	pair := f.backend.Tokens(f.demo.Student)
	var rotated string
	src := auth.NewRefreshing(pair.Access, pair.Refresh, f.anon,
		auth.WithNow(func() time.Time { return time.Now().Add(2 * time.Minute) }),
		auth.OnRotate(func(access, _ string) { rotated = access }),
	)

	if _, err := f.anon.As(src).ListExams(ctx); err != nil {
		t.Fatalf("list exams: %v", err)
	}
	if n := f.backend.Calls(apitest.RouteRefresh); n != 1 {
		t.Errorf("refresh calls = %d, want 1", n)
	}
	if rotated == "" {
		t.Error("rotation callback not called")
	}
	if access, _ := src.Tokens(); access != rotated {
		t.Error("source does not hold the rotated token")
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  response.ErrCode
		wantMsg   string
		wantField string
	}{
		{"field errors", 400, `{"title":["This field is required."]}`, response.ErrValidation, "", "title"},
		{"already submitted", 400, `{"error":"Exam already submitted"}`, response.ErrExamAlreadySubmitted, "Exam already submitted", ""},
		{"expired token", 401, `{"detail":"Given token not valid for any token type","code":"token_not_valid"}`, response.ErrTokenExpired, "Given token not valid for any token type", ""},
		{"forbidden", 403, `{"error":"Not authorized"}`, response.ErrForbidden, "Not authorized", ""},
		{"not found", 404, `{"detail":"Not found."}`, response.ErrNotFound, "Not found.", ""},
		{"rate limited", 429, `{"detail":"Request was throttled."}`, response.ErrRateLimited, "", ""},
		{"html error page", 502, `<html>Bad Gateway</html>`, response.ErrServer, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set(response.HeaderRequestID, "req-fixed")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL).As(auth.Static("t")).ListExams(context.Background())
			var apiErr *response.Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *response.Error", err)
			}
			if apiErr.Code != tt.wantCode || apiErr.StatusCode != tt.status {
				t.Errorf("code = %s status = %d, want %s %d", apiErr.Code, apiErr.StatusCode, tt.wantCode, tt.status)
			}
			if tt.wantMsg != "" && apiErr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
			if tt.wantField != "" && apiErr.Fields[tt.wantField] == "" {
				t.Errorf("fields = %v, want %s", apiErr.Fields, tt.wantField)
			}
			if apiErr.RequestID != "req-fixed" {
				t.Errorf("request id = %q", apiErr.RequestID)
			}
		})
	}
}

func TestCompressedBodies(t *testing.T) {
	const payload = `[{"id":3,"title":"Compressed","questions":[]}]`

	encode := map[string]func([]byte) []byte{
		"gzip": func(b []byte) []byte {
			var buf bytes.Buffer
			zw := gzip.NewWriter(&buf)
			_, _ = zw.Write(b)
			_ = zw.Close()
			return buf.Bytes()
		},
		"br": func(b []byte) []byte {
			var buf bytes.Buffer
			bw := brotli.NewWriter(&buf)
			_, _ = bw.Write(b)
			_ = bw.Close()
			return buf.Bytes()
		},
	}

	for enc, fn := range encode {
		t.Run(enc, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !strings.Contains(r.Header.Get("Accept-Encoding"), enc) {
					t.Errorf("Accept-Encoding = %q", r.Header.Get("Accept-Encoding"))
				}
				w.Header().Set("Content-Encoding", enc)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write(fn([]byte(payload)))
			}))
			defer srv.Close()

			exams, err := New(srv.URL).As(auth.Static("t")).ListExams(context.Background())
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(exams) != 1 || exams[0].Title != "Compressed" {
				t.Errorf("exams = %+v", exams)
			}
		})
	}

	t.Run("unsupported", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Encoding", "compress")
			_, _ = w.Write([]byte(payload))
		}))
		defer srv.Close()

		_, err := New(srv.URL).As(auth.Static("t")).ListExams(context.Background())
		if !errors.Is(err, response.ErrDecode) {
			t.Fatalf("err = %v, want ErrDecode", err)
		}
	})
}

func TestTransportFailures(t *testing.T) {
	t.Run("ServerGone", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := New(url).As(auth.Static("t")).ListExams(context.Background())
		if !errors.Is(err, response.ErrNetwork) || !response.IsRetryable(err) {
			t.Fatalf("err = %v, want retryable network error", err)
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		_, err := New(srv.URL, WithTimeout(50*time.Millisecond)).As(auth.Static("t")).ListExams(context.Background())
		if !errors.Is(err, response.ErrTimeout) {
			t.Fatalf("err = %v, want ErrTimeout", err)
		}
	})

	t.Run("Canceled", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(srv.URL).As(auth.Static("t")).ListExams(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	})
}
