// Package session drives one student's timed attempt at one exam: it
// acquires or resumes the server session, buffers answers locally, counts
// down the time limit and submits exactly once when time runs out.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DanixMP/Azmooneh/internal/config"
	"github.com/DanixMP/Azmooneh/internal/draft"
	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/DanixMP/Azmooneh/internal/response"
	"github.com/rs/zerolog"
)

// API is the part of the REST client the controller depends on.
type API interface {
	StartExam(ctx context.Context, examID int64) (*model.Session, error)
	SubmitAnswer(ctx context.Context, sessionID int64, req model.SubmitAnswerRequest) error
	SubmitExam(ctx context.Context, sessionID int64) (*model.SubmitExamResponse, error)
}

// Options configures a Controller. The zero value is usable.
type Options struct {
	// ResumePolicy defaults to config.ResumeElapsed.
	ResumePolicy config.ResumePolicy
	// TickInterval is both the Run ticker period and the amount each Tick
	// removes from the countdown. Defaults to one second.
	TickInterval time.Duration
	Now          func() time.Time
	// Drafts, when set, checkpoints buffered answers for resume.
	Drafts draft.Store
	Logger zerolog.Logger

	// OnTick runs after every counted tick with the remaining time.
	OnTick func(remaining time.Duration)
	// OnAutoSubmit runs after a submit triggered by the countdown.
	OnAutoSubmit func(res *Result, err error)
}

// Controller owns one attempt. It is safe for concurrent use.
type Controller struct {
	api  API
	opts Options
	log  zerolog.Logger

	mu          sync.Mutex
	state       State
	beginning   bool
	exam        model.Exam
	fingerprint string
	session     model.Session
	buf         *buffer
	current     int
	timer       countdown
	flight      *flight
	result      *Result

	done     chan struct{}
	doneOnce sync.Once
}

// flight is the single in-progress submit that later callers join.
type flight struct {
	done   chan struct{}
	result *Result
	err    error
}

func (f *flight) wait(ctx context.Context) (*Result, error) {
	select {
	case <-f.done:
		return copyResult(f.result), f.err
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for submit: %w", ctx.Err())
	}
}

// New creates a controller in the Loading state.
func New(api API, opts Options) *Controller {
	if opts.ResumePolicy == "" {
		opts.ResumePolicy = config.ResumeElapsed
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		api:   api,
		opts:  opts,
		log:   opts.Logger.With().Str("component", "exam_session").Logger(),
		state: StateLoading,
		buf:   newBuffer(),
		timer: countdown{step: opts.TickInterval},
		done:  make(chan struct{}),
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ────────────────────────────────────────────────────────────────────────────

// Begin starts or resumes the student's session for exam and arms the
// countdown. On failure the controller stays in Loading and Begin may be
// called again.
func (c *Controller) Begin(ctx context.Context, exam *model.Exam) (*model.Session, error) {
	c.mu.Lock()
	if c.state != StateLoading || c.beginning {
		st := c.state
		c.mu.Unlock()
		if st == StateClosed {
			return nil, fmt.Errorf("begin: %w", ErrClosed)
		}
		return nil, fmt.Errorf("begin in state %s: %w", st, ErrNotReady)
	}
	c.beginning = true
	c.mu.Unlock()

	p, err := c.prepare(ctx, exam)

	c.mu.Lock()
	c.beginning = false
	if err != nil {
		c.mu.Unlock()
		c.log.Error().Err(err).Msg("Failed to begin session")
		return nil, err
	}
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil, fmt.Errorf("begin: %w", ErrClosed)
	}
	c.exam = p.exam
	c.fingerprint = p.fingerprint
	c.session = p.session
	c.buf = p.buf
	c.current = p.current
	c.timer.remaining = p.remaining
	c.state = StateReady
	c.timer.arm(c.Tick)
	sess := c.sessionLocked()
	c.mu.Unlock()

	c.log.Info().
		Int64("session_id", sess.ID).
		Int64("exam_id", sess.ExamID).
		Str("status", string(sess.Status)).
		Dur("remaining", p.remaining).
		Bool("draft_restored", p.restored).
		Msg("Session ready")

	return &sess, nil
}

type prepared struct {
	exam        model.Exam
	fingerprint string
	session     model.Session
	buf         *buffer
	current     int
	remaining   time.Duration
	restored    bool
}

func (c *Controller) prepare(ctx context.Context, exam *model.Exam) (*prepared, error) {
	if exam == nil {
		return nil, fmt.Errorf("begin: no exam: %w", ErrExamNotPublished)
	}
	if !exam.IsPublished {
		return nil, fmt.Errorf("begin exam %d: %w", exam.ID, ErrExamNotPublished)
	}
	snapshot := exam.Clone()

	sess, err := c.api.StartExam(ctx, snapshot.ID)
	if err != nil {
		return nil, fmt.Errorf("start exam %d: %w", snapshot.ID, err)
	}
	if sess.Status.Sealed() {
		return nil, fmt.Errorf("start exam %d: session %d is %s: %w", snapshot.ID, sess.ID, sess.Status, ErrAlreadySubmitted)
	}
	if !sess.Status.Valid() {
		return nil, fmt.Errorf("start exam %d: unexpected session status %q", snapshot.ID, sess.Status)
	}
	if sess.ExamID != 0 && sess.ExamID != snapshot.ID {
		return nil, fmt.Errorf("start exam %d: session %d belongs to exam %d", snapshot.ID, sess.ID, sess.ExamID)
	}

	p := &prepared{
		exam:        snapshot,
		fingerprint: snapshot.Fingerprint(),
		session:     *sess,
		buf:         newBuffer(),
		remaining:   c.remainingFor(&snapshot, sess),
	}
	p.buf.seedServer(sess.Answers)

	if c.opts.Drafts != nil {
		d, err := c.opts.Drafts.Load(ctx, keyFor(sess))
		switch {
		case err == nil:
			if d.ExamFingerprint != "" && d.ExamFingerprint != p.fingerprint {
				return nil, fmt.Errorf("restore draft for session %d: %w", sess.ID, ErrExamChanged)
			}
			p.buf.seedDraft(d)
			p.current = d.Current
			p.restored = true
		case errors.Is(err, draft.ErrNotFound):
		default:
			c.log.Warn().Err(err).Int64("session_id", sess.ID).Msg("Failed to load draft, resuming from server answers")
		}
	}
	p.current = clamp(p.current, len(snapshot.Questions))
	return p, nil
}

// remainingFor derives the countdown for a fresh or resumed session.
func (c *Controller) remainingFor(exam *model.Exam, sess *model.Session) time.Duration {
	total := exam.Duration()
	if c.opts.ResumePolicy == config.ResumeRestart || sess.StartedAt == nil {
		return total
	}
	elapsed := c.opts.Now().Sub(*sess.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= total {
		return 0
	}
	return total - elapsed
}

// Tick counts one interval down. On the tick that exhausts the time it
// submits, exactly once, and stops counting. Ticks outside Ready or after
// the countdown stopped do nothing.
func (c *Controller) Tick(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateReady || !c.timer.armed {
		c.mu.Unlock()
		return
	}
	expired := c.timer.decrement()
	remaining := c.timer.remaining
	if expired {
		c.timer.disarm()
	}
	onTick := c.opts.OnTick
	c.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
	if !expired {
		return
	}

	c.log.Info().Int64("session_id", c.SessionID()).Msg("Time is up, submitting")
	res, err := c.Submit(ctx)
	if c.opts.OnAutoSubmit != nil {
		c.opts.OnAutoSubmit(res, err)
	}
}

// Submit persists every answer the server does not hold yet, one request
// per question, then seals the session. Concurrent callers share a single
// submission. On failure the controller returns to Ready for a retry; the
// countdown resumes only if time is left. After success Submit returns the
// same result without network calls.
func (c *Controller) Submit(ctx context.Context) (*Result, error) {
	c.mu.Lock()
	switch c.state {
	case StateLoading:
		c.mu.Unlock()
		return nil, fmt.Errorf("submit: %w", ErrNotReady)
	case StateClosed:
		res := c.result
		c.mu.Unlock()
		if res == nil {
			return nil, fmt.Errorf("submit: %w", ErrClosed)
		}
		return copyResult(res), nil
	case StateSubmitting:
		f := c.flight
		c.mu.Unlock()
		return f.wait(ctx)
	}

	c.state = StateSubmitting
	c.timer.disarm()
	f := &flight{done: make(chan struct{})}
	c.flight = f
	pending := c.buf.outstanding(&c.exam)
	sessionID := c.session.ID
	key := keyFor(&c.session)
	c.mu.Unlock()

	c.log.Info().Int64("session_id", sessionID).Int("pending_answers", len(pending)).Msg("Submitting session")
	res, err := c.submit(ctx, sessionID, key, pending)

	c.mu.Lock()
	if err != nil {
		c.state = StateReady
		if c.timer.remaining > 0 {
			c.timer.arm(c.Tick)
		}
	} else {
		c.state = StateClosed
		c.result = res
		if c.session.Status.CanAdvanceTo(res.Status) {
			c.session.Status = res.Status
		}
		c.session.Score = res.Score
		submittedAt := res.SubmittedAt
		c.session.SubmittedAt = &submittedAt
		c.closeDoneLocked()
	}
	c.flight = nil
	f.result, f.err = res, err
	close(f.done)
	c.mu.Unlock()

	if err != nil {
		c.log.Error().Err(err).Int64("session_id", sessionID).Bool("retryable", response.IsRetryable(err)).Msg("Submit failed")
		return nil, err
	}
	c.log.Info().
		Int64("session_id", sessionID).
		Str("status", string(res.Status)).
		Int("persisted", res.Persisted).
		Bool("already_submitted", res.AlreadySubmitted).
		Msg("Session submitted")
	return copyResult(res), nil
}

func (c *Controller) submit(ctx context.Context, sessionID int64, key draft.Key, pending []model.SubmitAnswerRequest) (*Result, error) {
	res := &Result{SessionID: sessionID}

	for _, a := range pending {
		err := c.api.SubmitAnswer(ctx, sessionID, a)
		if errors.Is(err, response.ErrExamAlreadySubmitted) {
			// Sealed by an earlier attempt; the seal below confirms it.
			break
		}
		if err != nil {
			return nil, fmt.Errorf("persist answer for question %d: %w", a.QuestionID, err)
		}

		digest := draft.Digest(a)
		c.mu.Lock()
		c.buf.persisted[a.QuestionID] = digest
		c.mu.Unlock()
		res.Persisted++

		if c.opts.Drafts != nil {
			if err := c.opts.Drafts.MarkPersisted(ctx, key, a.QuestionID, digest); err != nil {
				c.log.Warn().Err(err).Int64("question_id", a.QuestionID).Msg("Failed to checkpoint persisted answer")
			}
		}
	}

	sealed, err := c.api.SubmitExam(ctx, sessionID)
	switch {
	case errors.Is(err, response.ErrExamAlreadySubmitted):
		res.AlreadySubmitted = true
		res.Status = model.SessionStatusSubmitted
	case err != nil:
		return nil, fmt.Errorf("seal session %d: %w", sessionID, err)
	default:
		// The backend may answer with a message instead of a status.
		res.Status = model.SessionStatusSubmitted
		if model.SessionStatusSubmitted.CanAdvanceTo(sealed.Status) {
			res.Status = sealed.Status
		}
		res.Score = sealed.Score
	}
	res.SubmittedAt = c.opts.Now()

	if c.opts.Drafts != nil {
		if err := c.opts.Drafts.Clear(ctx, key); err != nil {
			c.log.Warn().Err(err).Int64("session_id", sessionID).Msg("Failed to clear draft")
		}
	}
	return res, nil
}

// Close stops the countdown and checkpoints the buffered answers without
// submitting. The server session stays in progress for a later resume.
// Closing twice is a no-op.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return nil
	case StateSubmitting:
		c.mu.Unlock()
		return fmt.Errorf("close: %w", ErrSubmitInFlight)
	}
	wasReady := c.state == StateReady
	c.timer.disarm()
	c.state = StateClosed
	c.closeDoneLocked()
	var snap *draft.Draft
	if wasReady && c.opts.Drafts != nil {
		snap = c.buf.snapshot(keyFor(&c.session), c.fingerprint, c.current)
		snap.SavedAt = c.opts.Now()
	}
	c.mu.Unlock()

	c.log.Info().Int64("session_id", c.SessionID()).Msg("Session closed")
	if snap != nil {
		if err := c.opts.Drafts.Save(ctx, snap); err != nil {
			return fmt.Errorf("checkpoint draft: %w", err)
		}
	}
	return nil
}

// Checkpoint saves the buffered answers to the draft store now.
func (c *Controller) Checkpoint(ctx context.Context) error {
	c.mu.Lock()
	if c.opts.Drafts == nil || (c.state != StateReady && c.state != StateSubmitting) {
		c.mu.Unlock()
		return nil
	}
	snap := c.buf.snapshot(keyFor(&c.session), c.fingerprint, c.current)
	snap.SavedAt = c.opts.Now()
	c.mu.Unlock()

	if err := c.opts.Drafts.Save(ctx, snap); err != nil {
		return fmt.Errorf("checkpoint draft: %w", err)
	}
	return nil
}

// Run drives Tick from a real ticker until ctx is done or the controller
// closes. Run may start before Begin; ticking begins once the session is
// ready.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.timer.runCtx != nil {
		c.mu.Unlock()
		return errors.New("session: Run already active")
	}
	c.timer.runCtx = ctx
	if c.state == StateReady && c.timer.armed {
		c.timer.arm(c.Tick)
	}
	done := c.done
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.timer.cancel != nil {
			c.timer.cancel()
			c.timer.cancel = nil
		}
		c.timer.runCtx = nil
		c.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Answers & navigation
// ────────────────────────────────────────────────────────────────────────────

// RecordAnswer overwrites the buffered answer for a question. Nothing is
// sent until Submit.
func (c *Controller) RecordAnswer(questionID int64, selectedChoiceIDs []int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateReady:
	case StateClosed:
		return fmt.Errorf("record answer: %w", ErrClosed)
	default:
		return fmt.Errorf("record answer in state %s: %w", c.state, ErrNotReady)
	}

	q, ok := c.exam.Question(questionID)
	if !ok {
		return fmt.Errorf("question %d: %w", questionID, ErrUnknownQuestion)
	}
	if err := validateAnswer(q, selectedChoiceIDs); err != nil {
		return err
	}

	c.buf.put(model.SubmitAnswerRequest{
		QuestionID:      questionID,
		SelectedChoices: selectedChoiceIDs,
		TextAnswer:      text,
	})
	return nil
}

// Answer returns the buffered answer for a question.
func (c *Controller) Answer(questionID int64) (model.SubmitAnswerRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.get(questionID)
}

// Answered counts the questions that have a buffered answer.
func (c *Controller) Answered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, q := range c.exam.Questions {
		if _, ok := c.buf.answers[q.ID]; ok {
			n++
		}
	}
	return n
}

// Navigate moves to the question at index, clamped to the exam's range,
// and returns the resulting index.
func (c *Controller) Navigate(index int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = clamp(index, len(c.exam.Questions))
	return c.current
}

// Current returns the displayed question and its index.
func (c *Controller) Current() (int, *model.Question, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.exam.Questions) == 0 {
		return 0, nil, false
	}
	q := c.exam.Questions[c.current]
	q.Choices = append([]model.Choice(nil), q.Choices...)
	return c.current, &q, true
}

// ────────────────────────────────────────────────────────────────────────────
// Accessors
// ────────────────────────────────────────────────────────────────────────────

// State returns the local lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Remaining returns the time left on the countdown.
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer.remaining
}

// Ticking reports whether the countdown is armed.
func (c *Controller) Ticking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer.armed
}

// Session returns a copy of the server session as last known.
func (c *Controller) Session() model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionLocked()
}

// SessionID returns the server session ID, or 0 before Begin.
func (c *Controller) SessionID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.ID
}

// Exam returns a copy of the exam snapshot taken at Begin.
func (c *Controller) Exam() model.Exam {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exam.Clone()
}

// Result returns the submission result once the session is sealed.
func (c *Controller) Result() (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return nil, false
	}
	return copyResult(c.result), true
}

// Done is closed when the controller reaches Closed.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ────────────────────────────────────────────────────────────────────────────

func (c *Controller) sessionLocked() model.Session {
	s := c.session
	s.Answers = append([]model.Answer(nil), c.session.Answers...)
	return s
}

func (c *Controller) closeDoneLocked() {
	c.doneOnce.Do(func() { close(c.done) })
}

func keyFor(s *model.Session) draft.Key {
	return draft.Key{StudentID: s.StudentID, SessionID: s.ID}
}

func copyResult(r *Result) *Result {
	if r == nil {
		return nil
	}
	out := *r
	return &out
}

func clamp(index, n int) int {
	if n <= 0 || index < 0 {
		return 0
	}
	if index >= n {
		return n - 1
	}
	return index
}
