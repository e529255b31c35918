package model

import "github.com/shopspring/decimal"

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeSingleChoice   QuestionType = "single_choice"
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeTrueFalse      QuestionType = "true_false"
	QuestionTypeLongAnswer     QuestionType = "long_answer"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultipleChoice, QuestionTypeTrueFalse, QuestionTypeLongAnswer:
		return true
	}
	return false
}

// HasChoices reports whether answers to t are expressed as selected choices.
func (t QuestionType) HasChoices() bool {
	return t.Valid() && t != QuestionTypeLongAnswer
}

// SingleSelect reports whether at most one choice may be selected.
func (t QuestionType) SingleSelect() bool {
	return t == QuestionTypeSingleChoice || t == QuestionTypeTrueFalse
}

// Question represents a single exam question.
type Question struct {
	ID           int64           `json:"id"`
	QuestionType QuestionType    `json:"question_type"`
	QuestionText string          `json:"question_text"`
	Marks        decimal.Decimal `json:"marks"`
	Order        int             `json:"order"`
	Choices      []Choice        `json:"choices"`
}

// Choice is one selectable option of a question.
// IsCorrect is nil when the backend redacted it (student views).
type Choice struct {
	ID         int64  `json:"id"`
	ChoiceText string `json:"choice_text"`
	IsCorrect  *bool  `json:"is_correct,omitempty"`
}

// HasChoice reports whether id belongs to one of the question's choices.
func (q *Question) HasChoice(id int64) bool {
	for _, c := range q.Choices {
		if c.ID == id {
			return true
		}
	}
	return false
}

// CorrectChoiceIDs returns the IDs of the correct choices. The second result
// is false when correctness is not known for any choice.
func (q *Question) CorrectChoiceIDs() ([]int64, bool) {
	known := false
	var ids []int64
	for _, c := range q.Choices {
		if c.IsCorrect == nil {
			continue
		}
		known = true
		if *c.IsCorrect {
			ids = append(ids, c.ID)
		}
	}
	return ids, known
}

func (q Question) clone() Question {
	out := q
	out.Choices = make([]Choice, len(q.Choices))
	for i, c := range q.Choices {
		if c.IsCorrect != nil {
			v := *c.IsCorrect
			c.IsCorrect = &v
		}
		out.Choices[i] = c
	}
	return out
}

// Bool returns a pointer to v, for building choices in code.
func Bool(v bool) *bool {
	return &v
}
