// Package draft checkpoints a session's buffered answers so an interrupted
// attempt can be resumed with nothing lost and nothing resent twice.
package draft

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/DanixMP/Azmooneh/internal/model"
)

// ErrNotFound is returned by Load when no draft exists for the key.
var ErrNotFound = errors.New("draft not found")

// Key identifies one student's draft for one session.
type Key struct {
	StudentID int64
	SessionID int64
}

// Draft is the locally buffered state of an attempt.
type Draft struct {
	Key             Key
	ExamFingerprint string
	Current         int
	// Answers holds the latest buffered answer per question.
	Answers map[int64]model.SubmitAnswerRequest
	// Persisted maps a question to the Digest of the answer the server holds.
	Persisted map[int64]string
	SavedAt   time.Time
}

// New returns an empty draft for key.
func New(key Key) *Draft {
	return &Draft{
		Key:       key,
		Answers:   make(map[int64]model.SubmitAnswerRequest),
		Persisted: make(map[int64]string),
	}
}

// Clone returns a deep copy.
func (d *Draft) Clone() *Draft {
	out := *d
	out.Answers = make(map[int64]model.SubmitAnswerRequest, len(d.Answers))
	for k, v := range d.Answers {
		v.SelectedChoices = slices.Clone(v.SelectedChoices)
		out.Answers[k] = v
	}
	out.Persisted = make(map[int64]string, len(d.Persisted))
	for k, v := range d.Persisted {
		out.Persisted[k] = v
	}
	return &out
}

// Store persists drafts.
type Store interface {
	Load(ctx context.Context, key Key) (*Draft, error)
	Save(ctx context.Context, d *Draft) error
	MarkPersisted(ctx context.Context, key Key, questionID int64, digest string) error
	Clear(ctx context.Context, key Key) error
}

// Digest identifies an answer's content. Choice order and duplicates do not
// matter.
func Digest(a model.SubmitAnswerRequest) string {
	ids := slices.Clone(a.SelectedChoices)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	b.WriteByte('|')
	b.WriteString(a.TextAnswer)
	return b.String()
}
