package apitest

import (
	"net/http"
	"strconv"

	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/DanixMP/Azmooneh/internal/validator"
	"github.com/gin-gonic/gin"
)

var notFound = gin.H{"detail": "Not found."}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, notFound)
		return 0, false
	}
	return id, true
}

// examVisible mirrors the backend's queryset: professors see their own
// exams, students see published ones. Callers hold b.mu.
func (b *Backend) examVisible(u model.User, e *model.Exam) bool {
	switch u.Role {
	case model.RoleProfessor:
		return b.owners[e.ID] == u.ID
	case model.RoleStudent:
		return e.IsPublished
	}
	return false
}

// examView hides choice correctness from students.
func examView(u model.User, e *model.Exam) model.Exam {
	if u.Role == model.RoleStudent {
		return e.Redacted()
	}
	return e.Clone()
}

// ListExams godoc
// GET /api/exams/
func (b *Backend) ListExams(c *gin.Context) {
	u := currentUser(c)

	b.mu.Lock()
	out := []model.Exam{}
	for _, id := range sortedIDs(b.exams) {
		e := b.exams[id]
		if b.examVisible(u, e) {
			out = append(out, examView(u, e))
		}
	}
	b.mu.Unlock()

	c.JSON(http.StatusOK, out)
}

// GetExam godoc
// GET /api/exams/:id/
func (b *Backend) GetExam(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	u := currentUser(c)

	b.mu.Lock()
	e, found := b.exams[id]
	if !found || !b.examVisible(u, e) {
		b.mu.Unlock()
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	view := examView(u, e)
	b.mu.Unlock()

	c.JSON(http.StatusOK, view)
}

// CreateExam godoc
// POST /api/exams/
func (b *Backend) CreateExam(c *gin.Context) {
	u := currentUser(c)
	if u.Role != model.RoleProfessor {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only professors can create exams"})
		return
	}

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		c.JSON(http.StatusBadRequest, fields)
		return
	}

	e := model.Exam{
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		IsPublished:     req.IsPublished,
	}
	for _, rq := range req.Questions {
		q := model.Question{
			QuestionType: rq.QuestionType,
			QuestionText: rq.QuestionText,
			Marks:        rq.Marks,
		}
		for _, rc := range rq.Choices {
			q.Choices = append(q.Choices, model.Choice{ChoiceText: rc.ChoiceText, IsCorrect: model.Bool(rc.IsCorrect)})
		}
		e.Questions = append(e.Questions, q)
	}

	c.JSON(http.StatusCreated, b.AddExam(u.ID, e))
}

// PublishExam godoc
// POST /api/exams/:id/publish/
func (b *Backend) PublishExam(c *gin.Context) {
	b.setPublished(c, true, "Exam published")
}

// UnpublishExam godoc
// POST /api/exams/:id/unpublish/
func (b *Backend) UnpublishExam(c *gin.Context) {
	b.setPublished(c, false, "Exam unpublished")
}

func (b *Backend) setPublished(c *gin.Context, published bool, status string) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	u := currentUser(c)

	b.mu.Lock()
	defer b.mu.Unlock()
	e, found := b.exams[id]
	if !found || !b.examVisible(u, e) {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	if b.owners[id] != u.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized"})
		return
	}
	e.IsPublished = published
	now := b.opts.Now()
	e.UpdatedAt = &now
	c.JSON(http.StatusOK, model.StatusMessage{Status: status})
}
