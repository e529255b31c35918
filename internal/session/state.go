package session

import (
	"errors"
	"time"

	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/shopspring/decimal"
)

// State is the controller's local view, layered on the server status.
type State int

const (
	StateLoading State = iota
	StateReady
	StateSubmitting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSubmitting:
		return "submitting"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Controller errors.
var (
	ErrNotReady         = errors.New("session is not ready")
	ErrClosed           = errors.New("session is closed")
	ErrSubmitInFlight   = errors.New("submission in progress")
	ErrExamNotPublished = errors.New("exam is not published")
	ErrAlreadySubmitted = errors.New("exam already submitted")
	ErrUnknownQuestion  = errors.New("question does not belong to the exam")
	ErrUnknownChoice    = errors.New("choice does not belong to the question")
	ErrTooManyChoices   = errors.New("question accepts a single choice")
	ErrChoicesOnText    = errors.New("long answer questions take no choices")
	ErrExamChanged      = errors.New("exam changed during the attempt")
)

// Result describes a sealed session.
type Result struct {
	SessionID   int64
	Status      model.SessionStatus
	Score       *decimal.Decimal
	SubmittedAt time.Time
	// Persisted counts the answers sent by the submit that sealed the session.
	Persisted int
	// AlreadySubmitted is set when the server reported the session sealed
	// by an earlier attempt whose response was lost.
	AlreadySubmitted bool
}
