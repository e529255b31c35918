package apitest

import (
	"net/http"

	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/DanixMP/Azmooneh/internal/validator"
	"github.com/gin-gonic/gin"
)

// messageVisible mirrors the backend's queryset: students see what they
// sent, professors see messages addressed to them or to nobody.
func messageVisible(u model.User, m *model.Message) bool {
	switch u.Role {
	case model.RoleStudent:
		return m.StudentID == u.ID
	case model.RoleProfessor:
		return m.ProfessorID == nil || *m.ProfessorID == u.ID
	}
	return false
}

// ListMessages godoc
// GET /api/messages/
func (b *Backend) ListMessages(c *gin.Context) {
	u := currentUser(c)

	b.mu.Lock()
	out := []model.Message{}
	for _, id := range sortedIDs(b.messages) {
		if m := b.messages[id]; messageVisible(u, m) {
			out = append(out, *m)
		}
	}
	b.mu.Unlock()

	c.JSON(http.StatusOK, out)
}

// SendMessage godoc
// POST /api/messages/
func (b *Backend) SendMessage(c *gin.Context) {
	u := currentUser(c)
	if u.Role != model.RoleStudent {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only students can send messages"})
		return
	}

	var req model.SendMessageRequest
	if fields := validator.Bind(c, &req); fields != nil {
		c.JSON(http.StatusBadRequest, fields)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if req.ProfessorID != nil {
		if p, ok := b.users[*req.ProfessorID]; !ok || p.Role != model.RoleProfessor {
			c.JSON(http.StatusBadRequest, gin.H{"professor": []string{"Invalid pk - object does not exist."}})
			return
		}
	}

	m := &model.Message{
		ID:          b.id(),
		StudentID:   u.ID,
		StudentName: u.DisplayName(),
		ProfessorID: req.ProfessorID,
		Title:       req.Title,
		Message:     req.Message,
		CreatedAt:   b.opts.Now(),
	}
	b.messages[m.ID] = m
	c.JSON(http.StatusCreated, *m)
}

// MarkRead godoc
// POST /api/messages/:id/mark_read/
func (b *Backend) MarkRead(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	u := currentUser(c)

	b.mu.Lock()
	defer b.mu.Unlock()

	m, found := b.messages[id]
	if !found || !messageVisible(u, m) {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	if u.Role != model.RoleProfessor {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only professors can mark messages as read"})
		return
	}
	m.IsRead = true
	c.JSON(http.StatusOK, model.StatusMessage{Status: "Message marked as read"})
}

// UnreadCount godoc
// GET /api/messages/unread_count/
func (b *Backend) UnreadCount(c *gin.Context) {
	u := currentUser(c)
	if u.Role != model.RoleProfessor {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only professors can check unread count"})
		return
	}

	b.mu.Lock()
	n := 0
	for _, m := range b.messages {
		if messageVisible(u, m) && !m.IsRead {
			n++
		}
	}
	b.mu.Unlock()

	c.JSON(http.StatusOK, model.UnreadCount{Count: n})
}
