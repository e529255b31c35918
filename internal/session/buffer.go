package session

import (
	"fmt"
	"slices"

	"github.com/DanixMP/Azmooneh/internal/draft"
	"github.com/DanixMP/Azmooneh/internal/model"
)

// buffer holds the latest answer per question and what the server has.
type buffer struct {
	answers   map[int64]model.SubmitAnswerRequest
	persisted map[int64]string
}

func newBuffer() *buffer {
	return &buffer{
		answers:   make(map[int64]model.SubmitAnswerRequest),
		persisted: make(map[int64]string),
	}
}

// seedServer records answers the server already holds.
func (b *buffer) seedServer(answers []model.Answer) {
	for _, a := range answers {
		req := model.SubmitAnswerRequest{
			QuestionID:      a.QuestionID,
			SelectedChoices: slices.Clone(a.SelectedChoices),
			TextAnswer:      a.TextAnswer,
		}
		b.answers[a.QuestionID] = req
		b.persisted[a.QuestionID] = draft.Digest(req)
	}
}

// seedDraft layers a local checkpoint over the server state. Must run after
// seedServer: a persisted digest from the draft is kept only when the server
// reports no answer for the question or the same one.
func (b *buffer) seedDraft(d *draft.Draft) {
	for qid, a := range d.Answers {
		a.SelectedChoices = slices.Clone(a.SelectedChoices)
		b.answers[qid] = a
	}
	for qid, digest := range d.Persisted {
		if server, ok := b.persisted[qid]; ok && server != digest {
			continue
		}
		b.persisted[qid] = digest
	}
}

func (b *buffer) put(a model.SubmitAnswerRequest) {
	a.SelectedChoices = slices.Clone(a.SelectedChoices)
	b.answers[a.QuestionID] = a
}

func (b *buffer) get(questionID int64) (model.SubmitAnswerRequest, bool) {
	a, ok := b.answers[questionID]
	if !ok {
		return a, false
	}
	a.SelectedChoices = slices.Clone(a.SelectedChoices)
	return a, true
}

// outstanding lists answers the server does not hold yet, in exam order.
func (b *buffer) outstanding(exam *model.Exam) []model.SubmitAnswerRequest {
	var out []model.SubmitAnswerRequest
	for _, q := range exam.Questions {
		a, ok := b.answers[q.ID]
		if !ok {
			continue
		}
		if b.persisted[q.ID] == draft.Digest(a) {
			continue
		}
		a.SelectedChoices = slices.Clone(a.SelectedChoices)
		out = append(out, a)
	}
	return out
}

func (b *buffer) snapshot(key draft.Key, fingerprint string, current int) *draft.Draft {
	d := draft.New(key)
	d.ExamFingerprint = fingerprint
	d.Current = current
	for qid, a := range b.answers {
		a.SelectedChoices = slices.Clone(a.SelectedChoices)
		d.Answers[qid] = a
	}
	for qid, digest := range b.persisted {
		d.Persisted[qid] = digest
	}
	return d
}

// validateAnswer checks an answer against the question's type and choices.
func validateAnswer(q *model.Question, choices []int64) error {
	if !q.QuestionType.HasChoices() {
		if len(choices) > 0 {
			return fmt.Errorf("question %d: %w", q.ID, ErrChoicesOnText)
		}
		return nil
	}

	seen := make(map[int64]struct{}, len(choices))
	for _, id := range choices {
		if !q.HasChoice(id) {
			return fmt.Errorf("question %d, choice %d: %w", q.ID, id, ErrUnknownChoice)
		}
		seen[id] = struct{}{}
	}
	if q.QuestionType.SingleSelect() && len(seen) > 1 {
		return fmt.Errorf("question %d: %w", q.ID, ErrTooManyChoices)
	}
	return nil
}
