package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus enumerates the server-side states of a student's attempt.
type SessionStatus string

const (
	SessionStatusNotStarted SessionStatus = "not_started"
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusSubmitted  SessionStatus = "submitted"
	SessionStatusGraded     SessionStatus = "graded"
)

func (s SessionStatus) rank() int {
	switch s {
	case SessionStatusNotStarted:
		return 0
	case SessionStatusInProgress:
		return 1
	case SessionStatusSubmitted:
		return 2
	case SessionStatusGraded:
		return 3
	}
	return -1
}

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	return s.rank() >= 0
}

// CanAdvanceTo reports whether moving from s to next keeps the lifecycle
// forward-only. Staying in the same status is allowed.
func (s SessionStatus) CanAdvanceTo(next SessionStatus) bool {
	return next.Valid() && next.rank() >= s.rank()
}

// Sealed reports whether answers are frozen for the student.
func (s SessionStatus) Sealed() bool {
	return s == SessionStatusSubmitted || s == SessionStatusGraded
}

// Session represents a student's attempt at one exam ("student exam").
type Session struct {
	ID          int64            `json:"id"`
	ExamID      int64            `json:"exam"`
	ExamTitle   string           `json:"exam_title,omitempty"`
	StudentID   int64            `json:"student"`
	StudentName string           `json:"student_name,omitempty"`
	Status      SessionStatus    `json:"status"`
	StartedAt   *time.Time       `json:"started_at"`
	SubmittedAt *time.Time       `json:"submitted_at"`
	Score       *decimal.Decimal `json:"score"`
	Answers     []Answer         `json:"answers"`
}

// Answer looks up the answer recorded for a question.
func (s *Session) Answer(questionID int64) (*Answer, bool) {
	for i := range s.Answers {
		if s.Answers[i].QuestionID == questionID {
			return &s.Answers[i], true
		}
	}
	return nil, false
}

// AnswerByID looks up an answer by its own ID.
func (s *Session) AnswerByID(id int64) (*Answer, bool) {
	for i := range s.Answers {
		if s.Answers[i].ID == id {
			return &s.Answers[i], true
		}
	}
	return nil, false
}

// Answer is a student's response to one question.
type Answer struct {
	ID              int64            `json:"id"`
	QuestionID      int64            `json:"question"`
	SelectedChoices []int64          `json:"selected_choices"`
	TextAnswer      string           `json:"text_answer"`
	MarksObtained   *decimal.Decimal `json:"marks_obtained"`
}

// StartExamRequest is the payload for starting (or resuming) a session.
type StartExamRequest struct {
	ExamID int64 `json:"exam_id" binding:"required,gt=0"`
}

// SubmitAnswerRequest persists one answer. Resending overwrites.
type SubmitAnswerRequest struct {
	QuestionID      int64   `json:"question_id" binding:"required,gt=0"`
	SelectedChoices []int64 `json:"selected_choices" binding:"dive,gt=0"`
	TextAnswer      string  `json:"text_answer" binding:"max=20000"`
}

// SubmitExamResponse is returned when a session is sealed.
type SubmitExamResponse struct {
	Status SessionStatus    `json:"status"`
	Score  *decimal.Decimal `json:"score"`
}

// SetMarksRequest is the professor's PATCH payload for manual marks.
type SetMarksRequest struct {
	Answers []MarkEntry `json:"answers" binding:"required,min=1,dive"`
}

// MarkEntry assigns marks to one answer.
type MarkEntry struct {
	ID            int64           `json:"id" binding:"required,gt=0"`
	MarksObtained decimal.Decimal `json:"marks_obtained" binding:"gte=0"`
}
