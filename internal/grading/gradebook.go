package grading

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/shopspring/decimal"
)

// Grading errors.
var (
	ErrMarksOutOfRange = errors.New("marks out of range")
	ErrUnknownAnswer   = errors.New("answer does not belong to the session")
	ErrNotSubmitted    = errors.New("session is not submitted")
	ErrNothingToCommit = errors.New("no pending marks")
)

// MarksSetter sends manual marks to the server.
type MarksSetter interface {
	SetMarks(ctx context.Context, sessionID int64, req model.SetMarksRequest) (*model.Session, error)
}

// Gradebook collects a professor's marks for one session before sending
// them in one request. Out-of-range marks are rejected, never clamped.
// The session status is left to the server.
type Gradebook struct {
	mu      sync.Mutex
	exam    model.Exam
	session model.Session
	pending map[int64]decimal.Decimal
}

// NewGradebook creates a gradebook for a submitted session.
func NewGradebook(exam *model.Exam, sess *model.Session) (*Gradebook, error) {
	if !sess.Status.Sealed() {
		return nil, fmt.Errorf("session %d is %s: %w", sess.ID, sess.Status, ErrNotSubmitted)
	}
	s := *sess
	s.Answers = append([]model.Answer(nil), sess.Answers...)
	return &Gradebook{
		exam:    exam.Clone(),
		session: s,
		pending: make(map[int64]decimal.Decimal),
	}, nil
}

// SetMarks stages marks for an answer. marks must lie in [0, question.marks].
func (g *Gradebook) SetMarks(answerID int64, marks decimal.Decimal) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	a, ok := g.session.AnswerByID(answerID)
	if !ok {
		return fmt.Errorf("answer %d: %w", answerID, ErrUnknownAnswer)
	}
	q, ok := g.exam.Question(a.QuestionID)
	if !ok {
		return fmt.Errorf("answer %d, question %d: %w", answerID, a.QuestionID, ErrUnknownAnswer)
	}
	if marks.IsNegative() || marks.GreaterThan(q.Marks) {
		return fmt.Errorf("answer %d: %s not in [0, %s]: %w", answerID, marks, q.Marks, ErrMarksOutOfRange)
	}
	g.pending[answerID] = marks
	return nil
}

// FillAuto stages auto-grader marks for objective answers that have none
// yet and returns how many were staged.
func (g *Gradebook) FillAuto() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for i := range g.session.Answers {
		a := &g.session.Answers[i]
		if a.MarksObtained != nil {
			continue
		}
		if _, staged := g.pending[a.ID]; staged {
			continue
		}
		q, ok := g.exam.Question(a.QuestionID)
		if !ok {
			continue
		}
		if m := AutoMarks(q, a); m != nil {
			g.pending[a.ID] = *m
			n++
		}
	}
	return n
}

// Pending returns the staged marks ordered by answer ID.
func (g *Gradebook) Pending() []model.MarkEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pendingLocked()
}

func (g *Gradebook) pendingLocked() []model.MarkEntry {
	out := make([]model.MarkEntry, 0, len(g.pending))
	for id, m := range g.pending {
		out = append(out, model.MarkEntry{ID: id, MarksObtained: m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Rows reconciles the session with staged marks applied.
func (g *Gradebook) Rows() []Row {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rowsLocked()
}

func (g *Gradebook) rowsLocked() []Row {
	rows := Reconcile(&g.exam, &g.session)
	for i := range rows {
		if rows[i].Answer == nil {
			continue
		}
		if m, ok := g.pending[rows[i].Answer.ID]; ok {
			mc := m
			rows[i].Marks = &mc
		}
	}
	return rows
}

// Preview totals the session as if the staged marks were committed.
func (g *Gradebook) Preview() Summary {
	g.mu.Lock()
	defer g.mu.Unlock()
	return summarize(&g.exam, g.rowsLocked())
}

// Session returns the session as last returned by the server.
func (g *Gradebook) Session() model.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.session
	s.Answers = append([]model.Answer(nil), g.session.Answers...)
	return s
}

// Commit sends the staged marks in one PATCH and adopts the server's
// session. On failure the marks stay staged.
func (g *Gradebook) Commit(ctx context.Context, api MarksSetter) (*model.Session, error) {
	g.mu.Lock()
	entries := g.pendingLocked()
	sessionID := g.session.ID
	g.mu.Unlock()

	if len(entries) == 0 {
		return nil, ErrNothingToCommit
	}

	updated, err := api.SetMarks(ctx, sessionID, model.SetMarksRequest{Answers: entries})
	if err != nil {
		return nil, fmt.Errorf("set marks for session %d: %w", sessionID, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session.Status.CanAdvanceTo(updated.Status) {
		g.session = *updated
	} else {
		// Keep our status; take the server's marks.
		status := g.session.Status
		g.session = *updated
		g.session.Status = status
	}
	for _, e := range entries {
		if cur, ok := g.pending[e.ID]; ok && cur.Equal(e.MarksObtained) {
			delete(g.pending, e.ID)
		}
	}
	out := g.session
	out.Answers = append([]model.Answer(nil), g.session.Answers...)
	return &out, nil
}
