package apitest

import (
	"net/http"

	"github.com/DanixMP/Azmooneh/internal/grading"
	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/DanixMP/Azmooneh/internal/validator"
	"github.com/gin-gonic/gin"
)

var alreadySubmitted = gin.H{"error": "Exam already submitted"}

// sessionVisible mirrors the backend's queryset. Callers hold b.mu.
func (b *Backend) sessionVisible(u model.User, s *model.Session) bool {
	switch u.Role {
	case model.RoleStudent:
		return s.StudentID == u.ID
	case model.RoleProfessor:
		return b.owners[s.ExamID] == u.ID
	}
	return false
}

// ListSessions godoc
// GET /api/student-exams/
func (b *Backend) ListSessions(c *gin.Context) {
	u := currentUser(c)

	b.mu.Lock()
	out := []model.Session{}
	for _, id := range sortedIDs(b.sessions) {
		if s := b.sessions[id]; b.sessionVisible(u, s) {
			out = append(out, b.sessionView(s))
		}
	}
	b.mu.Unlock()

	c.JSON(http.StatusOK, out)
}

// GetSession godoc
// GET /api/student-exams/:id/
func (b *Backend) GetSession(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	u := currentUser(c)

	b.mu.Lock()
	s, found := b.sessions[id]
	if !found || !b.sessionVisible(u, s) {
		b.mu.Unlock()
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	view := b.sessionView(s)
	b.mu.Unlock()

	c.JSON(http.StatusOK, view)
}

// StartExam godoc
// POST /api/student-exams/start_exam/
// Creates the student's session or returns the existing one.
func (b *Backend) StartExam(c *gin.Context) {
	u := currentUser(c)
	if u.Role != model.RoleStudent {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only students can start exams"})
		return
	}

	var req model.StartExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		c.JSON(http.StatusBadRequest, fields)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	e, found := b.exams[req.ExamID]
	if !found || !e.IsPublished {
		c.JSON(http.StatusNotFound, gin.H{"error": "Exam not found"})
		return
	}

	s := b.findSession(u.ID, e.ID)
	if s == nil {
		now := b.opts.Now()
		s = &model.Session{
			ID:        b.id(),
			ExamID:    e.ID,
			StudentID: u.ID,
			Status:    model.SessionStatusInProgress,
			StartedAt: &now,
			Answers:   []model.Answer{},
		}
		b.sessions[s.ID] = s
	} else if s.Status == model.SessionStatusSubmitted {
		c.JSON(http.StatusBadRequest, alreadySubmitted)
		return
	}

	c.JSON(http.StatusOK, b.sessionView(s))
}

// ownSession loads the caller's session or writes the error response.
// Callers hold b.mu.
func (b *Backend) ownSession(c *gin.Context, u model.User) (*model.Session, bool) {
	id, ok := paramID(c)
	if !ok {
		return nil, false
	}
	s, found := b.sessions[id]
	if !found || !b.sessionVisible(u, s) {
		c.JSON(http.StatusNotFound, notFound)
		return nil, false
	}
	if s.StudentID != u.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized"})
		return nil, false
	}
	return s, true
}

// SubmitAnswer godoc
// POST /api/student-exams/:id/submit_answer/
// Stores one answer, overwriting any earlier answer to the question.
func (b *Backend) SubmitAnswer(c *gin.Context) {
	u := currentUser(c)

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		c.JSON(http.StatusBadRequest, fields)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.ownSession(c, u)
	if !ok {
		return
	}
	if s.Status.Sealed() {
		c.JSON(http.StatusBadRequest, alreadySubmitted)
		return
	}
	if _, found := b.exams[s.ExamID].Question(req.QuestionID); !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
		return
	}

	selected := append([]int64{}, req.SelectedChoices...)
	if a, found := s.Answer(req.QuestionID); found {
		a.SelectedChoices = selected
		a.TextAnswer = req.TextAnswer
	} else {
		s.Answers = append(s.Answers, model.Answer{
			ID:              b.id(),
			QuestionID:      req.QuestionID,
			SelectedChoices: selected,
			TextAnswer:      req.TextAnswer,
		})
	}

	c.JSON(http.StatusOK, model.StatusMessage{Status: "Answer saved"})
}

// SubmitExam godoc
// POST /api/student-exams/:id/submit_exam/
// Seals the session and auto-grades objective answers. The session becomes
// graded only when no answer is left for manual marking.
func (b *Backend) SubmitExam(c *gin.Context) {
	u := currentUser(c)

	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.ownSession(c, u)
	if !ok {
		return
	}
	if s.Status.Sealed() {
		c.JSON(http.StatusBadRequest, alreadySubmitted)
		return
	}

	now := b.opts.Now()
	s.Status = model.SessionStatusSubmitted
	s.SubmittedAt = &now

	exam := b.exams[s.ExamID]
	for i := range s.Answers {
		a := &s.Answers[i]
		if q, found := exam.Question(a.QuestionID); found {
			a.MarksObtained = grading.AutoMarks(q, a)
		}
	}
	score := scoreOf(s)
	s.Score = &score
	if allMarked(s) {
		s.Status = model.SessionStatusGraded
	}

	c.JSON(http.StatusOK, gin.H{"status": "Exam submitted", "score": score})
}

// SetMarks godoc
// PATCH /api/student-exams/:id/
// Applies manual marks, recomputes the score and grades the session once
// every answer is marked.
func (b *Backend) SetMarks(c *gin.Context) {
	u := currentUser(c)
	id, ok := paramID(c)
	if !ok {
		return
	}

	b.mu.Lock()
	s, found := b.sessions[id]
	if !found || !b.sessionVisible(u, s) {
		b.mu.Unlock()
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	b.mu.Unlock()

	if u.Role != model.RoleProfessor {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized"})
		return
	}

	var req model.SetMarksRequest
	if fields := validator.Bind(c, &req); fields != nil {
		c.JSON(http.StatusBadRequest, fields)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Stored as sent, like the platform: unknown ids are skipped and marks are
	// not range checked. grading.Gradebook is the only range check.
	for _, entry := range req.Answers {
		a, found := s.AnswerByID(entry.ID)
		if !found {
			continue
		}
		m := entry.MarksObtained
		a.MarksObtained = &m
	}
	score := scoreOf(s)
	s.Score = &score
	if s.Status.Sealed() && allMarked(s) && s.Status.CanAdvanceTo(model.SessionStatusGraded) {
		s.Status = model.SessionStatusGraded
	}

	c.JSON(http.StatusOK, b.sessionView(s))
}
