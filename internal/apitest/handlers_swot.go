package apitest

import (
	"net/http"
	"sort"

	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/DanixMP/Azmooneh/internal/validator"
	"github.com/gin-gonic/gin"
)

var categoryOrder = map[model.SWOTCategory]int{
	model.SWOTStrength:    0,
	model.SWOTWeakness:    1,
	model.SWOTOpportunity: 2,
	model.SWOTThreat:      3,
}

// SWOTQuestions godoc
// GET /api/swot/questions/
func (b *Backend) SWOTQuestions(c *gin.Context) {
	b.mu.Lock()
	out := make([]model.SWOTQuestion, 0, len(b.swotQs))
	for _, q := range b.swotQs {
		out = append(out, *q)
	}
	b.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		ci, cj := categoryOrder[out[i].Category], categoryOrder[out[j].Category]
		if ci != cj {
			return ci < cj
		}
		return out[i].Order < out[j].Order
	})
	c.JSON(http.StatusOK, out)
}

// SubmitSWOT godoc
// POST /api/swot/analyses/submit/
// Answers to unknown questions are skipped.
func (b *Backend) SubmitSWOT(c *gin.Context) {
	u := currentUser(c)

	var req model.SubmitSWOTRequest
	if fields := validator.Bind(c, &req); fields != nil {
		c.JSON(http.StatusBadRequest, fields)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.opts.Now()
	a := &model.SWOTAnalysis{
		ID:          b.id(),
		StudentID:   u.ID,
		StudentName: u.DisplayName(),
		CreatedAt:   now,
		CompletedAt: &now,
		IsCompleted: true,
	}
	for _, in := range req.Answers {
		q, ok := b.swotQs[in.QuestionID]
		if !ok {
			continue
		}
		a.Answers = append(a.Answers, model.SWOTAnswer{
			ID:         b.id(),
			Question:   *q,
			AnswerText: in.AnswerText,
			CreatedAt:  now,
		})
	}
	b.analyses[a.ID] = a
	c.JSON(http.StatusCreated, *a)
}

// MyAnalyses godoc
// GET /api/swot/analyses/my_analyses/
func (b *Backend) MyAnalyses(c *gin.Context) {
	u := currentUser(c)

	b.mu.Lock()
	out := []model.SWOTAnalysis{}
	for _, id := range sortedIDs(b.analyses) {
		if a := b.analyses[id]; a.StudentID == u.ID && a.IsCompleted {
			out = append(out, *a)
		}
	}
	b.mu.Unlock()

	c.JSON(http.StatusOK, out)
}
