package model

import "time"

// SWOTCategory groups self-assessment questions.
type SWOTCategory string

const (
	SWOTStrength    SWOTCategory = "strength"
	SWOTWeakness    SWOTCategory = "weakness"
	SWOTOpportunity SWOTCategory = "opportunity"
	SWOTThreat      SWOTCategory = "threat"
)

// SWOTQuestion is one predefined self-assessment prompt.
type SWOTQuestion struct {
	ID           int64        `json:"id"`
	QuestionText string       `json:"question_text"`
	Category     SWOTCategory `json:"category"`
	Order        int          `json:"order"`
}

// SWOTAnswer is a stored answer inside an analysis.
type SWOTAnswer struct {
	ID         int64        `json:"id"`
	Question   SWOTQuestion `json:"question"`
	AnswerText string       `json:"answer_text"`
	CreatedAt  time.Time    `json:"created_at"`
}

// SWOTAnalysis is one completed questionnaire.
type SWOTAnalysis struct {
	ID          int64        `json:"id"`
	StudentID   int64        `json:"student"`
	StudentName string       `json:"student_name"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt *time.Time   `json:"completed_at"`
	IsCompleted bool         `json:"is_completed"`
	Answers     []SWOTAnswer `json:"answers"`
}

// ByCategory groups the analysis answers by question category.
func (a *SWOTAnalysis) ByCategory() map[SWOTCategory][]SWOTAnswer {
	out := make(map[SWOTCategory][]SWOTAnswer, 4)
	for _, ans := range a.Answers {
		out[ans.Question.Category] = append(out[ans.Question.Category], ans)
	}
	return out
}

// SubmitSWOTRequest submits a complete analysis in one call.
type SubmitSWOTRequest struct {
	Answers []SWOTAnswerInput `json:"answers" binding:"required,min=1,dive"`
}

// SWOTAnswerInput answers one question.
type SWOTAnswerInput struct {
	QuestionID int64  `json:"question_id" binding:"required,gt=0"`
	AnswerText string `json:"answer_text" binding:"required"`
}
