package session_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/DanixMP/Azmooneh/internal/apitest"
	"github.com/DanixMP/Azmooneh/internal/auth"
	"github.com/DanixMP/Azmooneh/internal/client"
	"github.com/DanixMP/Azmooneh/internal/draft"
	"github.com/DanixMP/Azmooneh/internal/grading"
	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/DanixMP/Azmooneh/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// TestAttemptAgainstBackend takes the demo exam through the REST client:
// answers are buffered, the countdown seals the session, and the professor
// marks the essay.
func TestAttemptAgainstBackend(t *testing.T) {
	ctx := context.Background()

	b := apitest.New(apitest.Options{})
	demo := b.SeedDemo()
	srv := b.Serve()
	defer srv.Close()

	api := client.New(srv.URL + "/api")
	student := api.As(auth.Static(b.Tokens(demo.Student).Access))
	prof := api.As(auth.Static(b.Tokens(demo.Professor).Access))

	exam, err := student.GetExam(ctx, demo.Exam.ID)
	if err != nil {
		t.Fatalf("get exam: %v", err)
	}
	if _, known := exam.Questions[0].CorrectChoiceIDs(); known {
		t.Fatal("student exam is not redacted")
	}

	var autoRes *session.Result
	var autoErr error
	ctl := session.New(student, session.Options{
		TickInterval: 5 * time.Second,
		// Ten seconds left on the clock.
		Now:    func() time.Time { return time.Now().Add(59*time.Minute + 50*time.Second) },
		Drafts: draft.NewMemory(),
		OnAutoSubmit: func(res *session.Result, err error) {
			autoRes, autoErr = res, err
		},
	})

	t.Run("Begin", func(t *testing.T) {
		sess, err := ctl.Begin(ctx, exam)
		if err != nil {
			t.Fatalf("begin: %v", err)
		}
		if sess.Status != model.SessionStatusInProgress {
			t.Errorf("status = %s", sess.Status)
		}
		if r := ctl.Remaining(); r <= 0 || r > 10*time.Second {
			t.Errorf("remaining = %v, want (0, 10s]", r)
		}
	})

	q1, q2, essay := exam.Questions[0], exam.Questions[1], exam.Questions[3]
	t.Run("RecordAnswer", func(t *testing.T) {
		steps := []struct {
			questionID int64
			choices    []int64
			text       string
		}{
			{q1.ID, []int64{q1.Choices[0].ID}, ""},
			{q1.ID, []int64{q1.Choices[1].ID}, ""},
			{q2.ID, []int64{q2.Choices[2].ID, q2.Choices[0].ID}, ""},
			{essay.ID, nil, "Lists are mutable, tuples are not."},
		}
		for _, s := range steps {
			if err := ctl.RecordAnswer(s.questionID, s.choices, s.text); err != nil {
				t.Fatalf("record %d: %v", s.questionID, err)
			}
		}
		if n := b.Calls(apitest.RouteSubmitAnswer); n != 0 {
			t.Errorf("answers sent before submit: %d", n)
		}
	})

	t.Run("AutoSubmit", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			ctl.Tick(ctx)
		}
		select {
		case <-ctl.Done():
		default:
			t.Fatalf("state = %s, want closed", ctl.State())
		}
		if autoErr != nil {
			t.Fatalf("auto submit: %v", autoErr)
		}
		if autoRes == nil || autoRes.Persisted != 3 {
			t.Fatalf("result = %+v", autoRes)
		}
		if n := b.Calls(apitest.RouteSubmitAnswer); n != 3 {
			t.Errorf("answer calls = %d, want 3", n)
		}
		if n := b.Calls(apitest.RouteSubmitExam); n != 1 {
			t.Errorf("seal calls = %d, want 1", n)
		}
		stored, _ := b.Session(ctl.SessionID())
		if stored.Status != model.SessionStatusSubmitted {
			t.Errorf("server status = %s, want submitted", stored.Status)
		}
	})

	t.Run("Grade", func(t *testing.T) {
		sess, err := prof.GetSession(ctx, ctl.SessionID())
		if err != nil {
			t.Fatalf("get session: %v", err)
		}
		full, err := prof.GetExam(ctx, demo.Exam.ID)
		if err != nil {
			t.Fatalf("get exam: %v", err)
		}

		rows := grading.Reconcile(full, sess)
		var essayAnswer *model.Answer
		for _, r := range rows {
			switch r.Question.ID {
			case q1.ID, q2.ID:
				if r.Verdict != grading.Correct {
					t.Errorf("question %d verdict = %v", r.Question.ID, r.Verdict)
				}
			case essay.ID:
				essayAnswer = r.Answer
				if !r.NeedsMarks() {
					t.Error("essay does not need marks")
				}
			}
		}
		if essayAnswer == nil {
			t.Fatal("essay answer missing")
		}

		gb, err := grading.NewGradebook(full, sess)
		if err != nil {
			t.Fatalf("gradebook: %v", err)
		}
		if err := gb.SetMarks(essayAnswer.ID, decimal.NewFromInt(16)); err == nil {
			t.Error("marks above the question maximum accepted")
		}
		if err := gb.SetMarks(essayAnswer.ID, decimal.NewFromInt(12)); err != nil {
			t.Fatalf("set marks: %v", err)
		}
		graded, err := gb.Commit(ctx, prof)
		if err != nil {
			t.Fatalf("commit: %v", err)
		}
		if graded.Status != model.SessionStatusGraded {
			t.Errorf("status = %s, want graded", graded.Status)
		}
		if graded.Score == nil || !graded.Score.Equal(decimal.NewFromInt(27)) {
			t.Errorf("score = %v, want 27", graded.Score)
		}
	})
}
