package apitest

import (
	"net/http"

	"github.com/DanixMP/Azmooneh/internal/auth"
	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/DanixMP/Azmooneh/internal/validator"
	"github.com/gin-gonic/gin"
)

// StudentLogin godoc
// POST /api/auth/student/login/
func (b *Backend) StudentLogin(c *gin.Context) {
	b.login(c, model.RoleStudent, "Invalid credentials or not a student")
}

// ProfessorLogin godoc
// POST /api/auth/professor/login/
func (b *Backend) ProfessorLogin(c *gin.Context) {
	b.login(c, model.RoleProfessor, "Invalid credentials or not a professor")
}

func (b *Backend) login(c *gin.Context, role model.Role, failMsg string) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		c.JSON(http.StatusBadRequest, fields)
		return
	}

	b.mu.Lock()
	var found *user
	for _, u := range b.users {
		if u.Username == req.Username {
			found = u
			break
		}
	}
	b.mu.Unlock()

	if found == nil || found.Role != role || auth.CheckPassword(found.passwordHash, req.Password) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": failMsg})
		return
	}

	pair, err := b.issuer.IssuePair(found.User)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// StudentSignup godoc
// POST /api/auth/student/signup/
func (b *Backend) StudentSignup(c *gin.Context) {
	var req model.SignupRequest
	if fields := validator.Bind(c, &req); fields != nil {
		c.JSON(http.StatusBadRequest, fields)
		return
	}

	b.mu.Lock()
	for _, u := range b.users {
		if u.Username == req.Username {
			b.mu.Unlock()
			c.JSON(http.StatusBadRequest, gin.H{"username": []string{"A user with that username already exists."}})
			return
		}
	}
	b.mu.Unlock()

	u := b.AddUser(req.Username, req.Password, model.RoleStudent, req.FullName)
	b.mu.Lock()
	b.users[u.ID].StudentID = req.StudentID
	b.users[u.ID].Email = req.Email
	u = b.users[u.ID].User
	b.mu.Unlock()

	pair, err := b.issuer.IssuePair(u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusCreated, pair)
}

// RefreshToken godoc
// POST /api/token/refresh/
func (b *Backend) RefreshToken(c *gin.Context) {
	var req model.RefreshRequest
	if fields := validator.Bind(c, &req); fields != nil {
		c.JSON(http.StatusBadRequest, fields)
		return
	}

	claims, err := b.issuer.Verify(req.Refresh, auth.TokenTypeRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}

	access, err := b.issuer.IssueAccess(claims)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, model.RefreshResponse{Access: access})
}

// Me godoc
// GET /api/auth/me/
func (b *Backend) Me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}
