package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Exam represents an exam definition as served by the backend.
type Exam struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	ProfessorID     int64           `json:"professor,omitempty"`
	ProfessorName   string          `json:"professor_name,omitempty"`
	DurationMinutes int             `json:"duration_minutes"`
	TotalMarks      decimal.Decimal `json:"total_marks"`
	IsPublished     bool            `json:"is_published"`
	CreatedAt       *time.Time      `json:"created_at,omitempty"`
	UpdatedAt       *time.Time      `json:"updated_at,omitempty"`
	Questions       []Question      `json:"questions"`
}

// Duration returns the time limit of the exam.
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// Question looks up a question by ID.
func (e *Exam) Question(id int64) (*Question, bool) {
	for i := range e.Questions {
		if e.Questions[i].ID == id {
			return &e.Questions[i], true
		}
	}
	return nil, false
}

// SumMarks adds up the marks of every question.
func (e *Exam) SumMarks() decimal.Decimal {
	total := decimal.Zero
	for _, q := range e.Questions {
		total = total.Add(q.Marks)
	}
	return total
}

// Fingerprint identifies the parts of an exam that must not change while a
// session is running: the duration and the question/choice set.
func (e *Exam) Fingerprint() string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(e.ID, 10))
	b.WriteByte('/')
	b.WriteString(strconv.Itoa(e.DurationMinutes))
	for _, q := range e.Questions {
		b.WriteByte('|')
		b.WriteString(strconv.FormatInt(q.ID, 10))
		b.WriteByte(':')
		b.WriteString(string(q.QuestionType))
		b.WriteByte(':')
		b.WriteString(q.Marks.String())
		for _, c := range q.Choices {
			b.WriteByte(',')
			b.WriteString(strconv.FormatInt(c.ID, 10))
		}
	}
	return b.String()
}

// Clone returns a deep copy of the exam.
func (e *Exam) Clone() Exam {
	out := *e
	out.Questions = make([]Question, len(e.Questions))
	for i, q := range e.Questions {
		out.Questions[i] = q.clone()
	}
	return out
}

// Redacted returns a copy of the exam with choice correctness removed.
// This is the shape a student may see while an attempt is ungraded.
func (e *Exam) Redacted() Exam {
	out := e.Clone()
	for i := range out.Questions {
		for j := range out.Questions[i].Choices {
			out.Questions[i].Choices[j].IsCorrect = nil
		}
	}
	return out
}

// CreateExamRequest is the payload for creating a new exam with its questions.
type CreateExamRequest struct {
	Title           string                  `json:"title" binding:"required,min=3,max=255"`
	Description     string                  `json:"description" binding:"max=5000"`
	DurationMinutes int                     `json:"duration_minutes" binding:"required,min=1,max=480"`
	IsPublished     bool                    `json:"is_published"`
	Questions       []CreateQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// CreateQuestionRequest is one question inside CreateExamRequest.
type CreateQuestionRequest struct {
	QuestionType QuestionType          `json:"question_type" binding:"required,oneof=single_choice multiple_choice true_false long_answer"`
	QuestionText string                `json:"question_text" binding:"required,min=1,max=2000"`
	Marks        decimal.Decimal       `json:"marks" binding:"gte=0"`
	Choices      []CreateChoiceRequest `json:"choices" binding:"dive"`
}

// CreateChoiceRequest is one choice inside CreateQuestionRequest.
type CreateChoiceRequest struct {
	ChoiceText string `json:"choice_text" binding:"required,max=500"`
	IsCorrect  bool   `json:"is_correct"`
}

// StatusMessage is the small acknowledgement body returned by action endpoints.
type StatusMessage struct {
	Status string `json:"status"`
}
