package model

// User is the authenticated account as returned by the backend.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Role      Role   `json:"role"`
	StudentID string `json:"student_id,omitempty"`
	FullName  string `json:"full_name,omitempty"`
}

// DisplayName returns the full name when known, the username otherwise.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// LoginRequest is the payload for student and professor login.
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=150"`
	Password string `json:"password" binding:"required"`
}

// SignupRequest registers a new student account.
type SignupRequest struct {
	Username  string `json:"username" binding:"required,max=150"`
	Password  string `json:"password" binding:"required,min=6"`
	StudentID string `json:"student_id" binding:"required,max=50"`
	FullName  string `json:"full_name" binding:"required,max=255"`
	Email     string `json:"email,omitempty" binding:"omitempty,email"`
}

// TokenPair is returned by login and signup.
type TokenPair struct {
	User    User   `json:"user"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// RefreshResponse carries the new access token. Refresh is set only when the
// backend rotates refresh tokens.
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}
