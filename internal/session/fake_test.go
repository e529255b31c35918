package session

import (
	"context"
	"sync"
	"time"

	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/DanixMP/Azmooneh/internal/response"
	"github.com/shopspring/decimal"
)

// fakeAPI is an in-memory backend for one student's session.
type fakeAPI struct {
	mu      sync.Mutex
	session model.Session

	startCalls  int
	answerCalls []model.SubmitAnswerRequest
	sealCalls   int

	startErr  error
	answerErr func(n int, req model.SubmitAnswerRequest) error
	sealErr   []error
	// sealStatus overrides the status reported by SubmitExam.
	sealStatus model.SessionStatus
	// sealGate, when set, blocks SubmitExam until it is closed.
	sealGate chan struct{}
	sealSeen chan struct{}
}

func newFakeAPI(examID int64, startedAt time.Time) *fakeAPI {
	return &fakeAPI{session: model.Session{
		ID:        100,
		ExamID:    examID,
		StudentID: 7,
		Status:    model.SessionStatusInProgress,
		StartedAt: &startedAt,
	}}
}

func (f *fakeAPI) StartExam(_ context.Context, examID int64) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	if f.startErr != nil {
		return nil, f.startErr
	}
	s := f.session
	s.Answers = append([]model.Answer(nil), f.session.Answers...)
	return &s, nil
}

func (f *fakeAPI) SubmitAnswer(_ context.Context, _ int64, req model.SubmitAnswerRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.answerCalls)
	f.answerCalls = append(f.answerCalls, req)
	if f.answerErr != nil {
		if err := f.answerErr(n, req); err != nil {
			return err
		}
	}
	if f.session.Status.Sealed() {
		return response.New(response.ErrExamAlreadySubmitted)
	}
	return nil
}

func (f *fakeAPI) SubmitExam(ctx context.Context, _ int64) (*model.SubmitExamResponse, error) {
	f.mu.Lock()
	f.sealCalls++
	gate, seen := f.sealGate, f.sealSeen
	f.mu.Unlock()

	if seen != nil {
		seen <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sealErr) > 0 {
		err := f.sealErr[0]
		f.sealErr = f.sealErr[1:]
		if err != nil {
			return nil, err
		}
	}
	if f.session.Status.Sealed() {
		return nil, response.New(response.ErrExamAlreadySubmitted)
	}
	f.session.Status = model.SessionStatusSubmitted
	score := decimal.NewFromInt(5)
	status := f.sealStatus
	if status == "" {
		status = "Exam submitted"
	}
	return &model.SubmitExamResponse{Status: status, Score: &score}, nil
}

func (f *fakeAPI) counts() (start, answers, seals int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls, len(f.answerCalls), f.sealCalls
}

func (f *fakeAPI) sentQuestions() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, len(f.answerCalls))
	for i, a := range f.answerCalls {
		ids[i] = a.QuestionID
	}
	return ids
}

// testExam has a single choice, a multiple choice and a long answer question.
func testExam(minutes int) *model.Exam {
	return &model.Exam{
		ID:              1,
		Title:           "Networks",
		DurationMinutes: minutes,
		IsPublished:     true,
		TotalMarks:      decimal.NewFromInt(20),
		Questions: []model.Question{
			{
				ID: 11, QuestionType: model.QuestionTypeSingleChoice, Marks: decimal.NewFromInt(5),
				Choices: []model.Choice{{ID: 111}, {ID: 112}, {ID: 113}},
			},
			{
				ID: 12, QuestionType: model.QuestionTypeMultipleChoice, Marks: decimal.NewFromInt(5),
				Choices: []model.Choice{{ID: 121}, {ID: 122}, {ID: 123}},
			},
			{
				ID: 13, QuestionType: model.QuestionTypeLongAnswer, Marks: decimal.NewFromInt(10),
			},
		},
	}
}

// fixedClock returns a settable clock.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}
