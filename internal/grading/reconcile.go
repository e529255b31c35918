// Package grading reconciles submitted answers against the exam's correct
// choices and collects manual marks for professor review.
package grading

import (
	"slices"

	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/shopspring/decimal"
)

// Verdict is the outcome of checking one answer.
type Verdict int

const (
	// Unknown means the answer needs human judgment or correctness is hidden.
	Unknown Verdict = iota
	Correct
	Incorrect
)

func (v Verdict) String() string {
	switch v {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	}
	return "unknown"
}

// IsCorrect checks an answer against a question. A nil answer is an
// unanswered question.
//
//   - single_choice, true_false: correct iff exactly one choice is selected
//     and it is the unique correct choice.
//   - multiple_choice: correct iff the selected set equals the correct set.
//   - long_answer: always Unknown.
//
// When the question's choices carry no correctness flags the verdict is
// Unknown.
func IsCorrect(q *model.Question, a *model.Answer) Verdict {
	if !q.QuestionType.HasChoices() {
		return Unknown
	}
	correct, known := q.CorrectChoiceIDs()
	if !known {
		return Unknown
	}

	var selected []int64
	if a != nil {
		selected = uniqueSorted(a.SelectedChoices)
	}

	if q.QuestionType.SingleSelect() {
		if len(correct) == 1 && len(selected) == 1 && selected[0] == correct[0] {
			return Correct
		}
		return Incorrect
	}

	if slices.Equal(selected, uniqueSorted(correct)) {
		return Correct
	}
	return Incorrect
}

// AutoMarks is what the server's auto-grader awards: full marks when
// correct, zero when incorrect, nil when a human must decide.
func AutoMarks(q *model.Question, a *model.Answer) *decimal.Decimal {
	switch IsCorrect(q, a) {
	case Correct:
		m := q.Marks
		return &m
	case Incorrect:
		z := decimal.Zero
		return &z
	}
	return nil
}

// Row is one question of a professor's review.
type Row struct {
	Question model.Question
	// Answer is nil when the student did not answer.
	Answer   *model.Answer
	Verdict  Verdict
	Marks    *decimal.Decimal
	MaxMarks decimal.Decimal
}

// NeedsMarks reports whether the row still waits for manual marks.
func (r Row) NeedsMarks() bool {
	return r.Answer != nil && r.Marks == nil
}

// Reconcile lines up the session's answers with the exam's questions, in
// exam order.
func Reconcile(exam *model.Exam, sess *model.Session) []Row {
	rows := make([]Row, 0, len(exam.Questions))
	for i := range exam.Questions {
		q := exam.Questions[i]
		row := Row{Question: q, MaxMarks: q.Marks}
		if a, ok := sess.Answer(q.ID); ok {
			ac := *a
			row.Answer = &ac
			row.Marks = a.MarksObtained
		}
		row.Verdict = IsCorrect(&q, row.Answer)
		rows = append(rows, row)
	}
	return rows
}

// Summary totals a session's marks.
type Summary struct {
	Score    decimal.Decimal
	MaxScore decimal.Decimal
	// Pending counts answers without marks.
	Pending int
	// Graded is true when every answer has marks.
	Graded bool
	// WithinTotal is false when the score exceeds the exam's total marks.
	WithinTotal bool
}

// Summarize adds up the marks obtained so far.
func Summarize(exam *model.Exam, sess *model.Session) Summary {
	return summarize(exam, Reconcile(exam, sess))
}

func summarize(exam *model.Exam, rows []Row) Summary {
	s := Summary{Score: decimal.Zero, MaxScore: exam.TotalMarks}
	if s.MaxScore.IsZero() {
		s.MaxScore = exam.SumMarks()
	}
	for _, r := range rows {
		if r.Answer == nil {
			continue
		}
		if r.Marks == nil {
			s.Pending++
			continue
		}
		s.Score = s.Score.Add(*r.Marks)
	}
	s.Graded = s.Pending == 0
	s.WithinTotal = s.Score.LessThanOrEqual(s.MaxScore)
	return s
}

func uniqueSorted(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
