// Package apitest is an in-memory stand-in for the exam platform's REST
// backend. It serves the same routes, payload shapes and error bodies, and
// lets tests count calls and inject failures.
package apitest

import (
	"net/http/httptest"
	"sort"
	"sync"
	"time"

	"github.com/DanixMP/Azmooneh/internal/auth"
	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/DanixMP/Azmooneh/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Routes as counted by Calls. The key is the method and Gin route pattern.
const (
	RouteStudentLogin   = "POST /api/auth/student/login/"
	RouteProfessorLogin = "POST /api/auth/professor/login/"
	RouteStudentSignup  = "POST /api/auth/student/signup/"
	RouteRefresh        = "POST /api/token/refresh/"
	RouteMe             = "GET /api/auth/me/"

	RouteListExams     = "GET /api/exams/"
	RouteGetExam       = "GET /api/exams/:id/"
	RouteCreateExam    = "POST /api/exams/"
	RoutePublishExam   = "POST /api/exams/:id/publish/"
	RouteUnpublishExam = "POST /api/exams/:id/unpublish/"

	RouteStartExam    = "POST /api/student-exams/start_exam/"
	RouteSubmitAnswer = "POST /api/student-exams/:id/submit_answer/"
	RouteSubmitExam   = "POST /api/student-exams/:id/submit_exam/"
	RouteListSessions = "GET /api/student-exams/"
	RouteGetSession   = "GET /api/student-exams/:id/"
	RouteSetMarks     = "PATCH /api/student-exams/:id/"

	RouteListMessages = "GET /api/messages/"
	RouteSendMessage  = "POST /api/messages/"
	RouteMarkRead     = "POST /api/messages/:id/mark_read/"
	RouteUnreadCount  = "GET /api/messages/unread_count/"

	RouteSWOTQuestions = "GET /api/swot/questions/"
	RouteSubmitSWOT    = "POST /api/swot/analyses/submit/"
	RouteMyAnalyses    = "GET /api/swot/analyses/my_analyses/"
)

// Options configures a Backend.
type Options struct {
	JWTSecret  string
	AccessTTL  time.Duration
	BcryptCost int
	Now        func() time.Time
	Logger     zerolog.Logger
	// BrotliMinLength is the body size from which responses are compressed
	// for clients that accept br.
	BrotliMinLength int
	// LoginRate limits login and signup requests per client IP and minute.
	// Zero disables the limit.
	LoginRate int
}

type user struct {
	model.User
	passwordHash string
}

type failure struct {
	status int
	body   gin.H
}

// Backend holds all state of the fake platform.
type Backend struct {
	opts     Options
	issuer   *auth.Issuer
	log      zerolog.Logger
	throttle *throttle

	mu        sync.Mutex
	nextID    int64
	users     map[int64]*user
	exams     map[int64]*model.Exam
	owners    map[int64]int64 // exam → professor
	sessions  map[int64]*model.Session
	messages  map[int64]*model.Message
	swotQs    map[int64]*model.SWOTQuestion
	analyses  map[int64]*model.SWOTAnalysis
	calls     map[string]int
	failures  map[string][]failure
	requestID map[string][]string
}

// New creates an empty backend.
func New(opts Options) *Backend {
	if opts.JWTSecret == "" {
		opts.JWTSecret = "apitest-secret-key-0123456789"
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BrotliMinLength <= 0 {
		opts.BrotliMinLength = DefaultBrotliConfig.MinLength
	}

	validator.Setup()

	return &Backend{
		opts:      opts,
		issuer:    auth.NewIssuer(opts.JWTSecret, opts.AccessTTL, 24*time.Hour).WithClock(opts.Now),
		log:       opts.Logger.With().Str("component", "apitest").Logger(),
		throttle:  newThrottle(opts.LoginRate, time.Minute, opts.Now),
		users:     make(map[int64]*user),
		exams:     make(map[int64]*model.Exam),
		owners:    make(map[int64]int64),
		sessions:  make(map[int64]*model.Session),
		messages:  make(map[int64]*model.Message),
		swotQs:    make(map[int64]*model.SWOTQuestion),
		analyses:  make(map[int64]*model.SWOTAnalysis),
		calls:     make(map[string]int),
		failures:  make(map[string][]failure),
		requestID: make(map[string][]string),
	}
}

// Serve starts an httptest server. The API root is URL + "/api".
func (b *Backend) Serve() *httptest.Server {
	return httptest.NewServer(b.Router())
}

// Issuer exposes the token issuer, e.g. to mint expired tokens.
func (b *Backend) Issuer() *auth.Issuer { return b.issuer }

// ────────────────────────────────────────────────────────────────────────────
// Seeding
// ────────────────────────────────────────────────────────────────────────────

// AddUser creates an account and returns it.
func (b *Backend) AddUser(username, password string, role model.Role, fullName string) model.User {
	hash, err := auth.HashPassword(password, b.opts.BcryptCost)
	if err != nil {
		panic(err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u := &user{
		User: model.User{
			ID:       b.id(),
			Username: username,
			Role:     role,
			FullName: fullName,
		},
		passwordHash: hash,
	}
	b.users[u.ID] = u
	return u.User
}

// Tokens logs a user in without going through HTTP.
func (b *Backend) Tokens(u model.User) model.TokenPair {
	pair, err := b.issuer.IssuePair(u)
	if err != nil {
		panic(err)
	}
	return pair
}

// AddExam stores an exam owned by professorID, assigning IDs to the exam,
// its questions and choices where missing. Total marks default to the sum
// of question marks.
func (b *Backend) AddExam(professorID int64, e model.Exam) model.Exam {
	b.mu.Lock()
	defer b.mu.Unlock()
	stored := e.Clone()
	if stored.ID == 0 {
		stored.ID = b.id()
	}
	for i := range stored.Questions {
		q := &stored.Questions[i]
		if q.ID == 0 {
			q.ID = b.id()
		}
		if q.Order == 0 {
			q.Order = i + 1
		}
		for j := range q.Choices {
			if q.Choices[j].ID == 0 {
				q.Choices[j].ID = b.id()
			}
			if q.Choices[j].IsCorrect == nil {
				q.Choices[j].IsCorrect = model.Bool(false)
			}
		}
	}
	if stored.TotalMarks.IsZero() {
		stored.TotalMarks = stored.SumMarks()
	}
	stored.ProfessorID = professorID
	if p, ok := b.users[professorID]; ok {
		stored.ProfessorName = p.DisplayName()
	}
	now := b.opts.Now()
	stored.CreatedAt, stored.UpdatedAt = &now, &now
	b.exams[stored.ID] = &stored
	b.owners[stored.ID] = professorID
	return stored.Clone()
}

// SetExamDuration changes an exam's time limit, e.g. to simulate an edit
// made while a session is running.
func (b *Backend) SetExamDuration(examID int64, minutes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.exams[examID]; ok {
		e.DurationMinutes = minutes
	}
}

// AddSWOTQuestion stores an active self-assessment question.
func (b *Backend) AddSWOTQuestion(category model.SWOTCategory, text string, order int) model.SWOTQuestion {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := &model.SWOTQuestion{ID: b.id(), QuestionText: text, Category: category, Order: order}
	b.swotQs[q.ID] = q
	return *q
}

// Session returns a copy of a stored session.
func (b *Backend) Session(id int64) (model.Session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[id]
	if !ok {
		return model.Session{}, false
	}
	return b.sessionView(s), true
}

// SetStartedAt rewrites a session's start time, e.g. to simulate a resume
// long after the first start.
func (b *Backend) SetStartedAt(sessionID int64, t time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.sessions[sessionID]; ok {
		s.StartedAt = &t
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Call accounting & failure injection
// ────────────────────────────────────────────────────────────────────────────

// Calls returns how many requests reached route, including failed ones.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// RequestIDs returns the X-Request-ID values seen on route, in order.
func (b *Backend) RequestIDs(route string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requestID[route]...)
}

// FailNext makes the next n requests to route answer with status and a
// {"detail": ...} body, without touching any state.
func (b *Backend) FailNext(route string, status, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := 0; i < n; i++ {
		b.failures[route] = append(b.failures[route], failure{
			status: status,
			body:   gin.H{"detail": "injected failure"},
		})
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Internal helpers (callers hold b.mu)
// ────────────────────────────────────────────────────────────────────────────

func (b *Backend) id() int64 {
	b.nextID++
	return b.nextID
}

func (b *Backend) sessionView(s *model.Session) model.Session {
	out := *s
	out.Answers = make([]model.Answer, len(s.Answers))
	copy(out.Answers, s.Answers)
	if e, ok := b.exams[s.ExamID]; ok {
		out.ExamTitle = e.Title
	}
	if u, ok := b.users[s.StudentID]; ok {
		out.StudentName = u.DisplayName()
	}
	return out
}

func (b *Backend) findSession(studentID, examID int64) *model.Session {
	for _, s := range b.sessions {
		if s.StudentID == studentID && s.ExamID == examID {
			return s
		}
	}
	return nil
}

// scoreOf sums the marks of graded answers.
func scoreOf(s *model.Session) decimal.Decimal {
	total := decimal.Zero
	for _, a := range s.Answers {
		if a.MarksObtained != nil {
			total = total.Add(*a.MarksObtained)
		}
	}
	return total
}

// allMarked reports whether every answer has marks.
func allMarked(s *model.Session) bool {
	for _, a := range s.Answers {
		if a.MarksObtained == nil {
			return false
		}
	}
	return true
}

func sortedIDs[T any](m map[int64]T) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
