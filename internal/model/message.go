package model

import "time"

// Message is a note sent by a student to a professor. A nil ProfessorID
// addresses every professor.
type Message struct {
	ID          int64     `json:"id"`
	StudentID   int64     `json:"student"`
	StudentName string    `json:"student_name,omitempty"`
	ProfessorID *int64    `json:"professor"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// SendMessageRequest is the payload for a new message.
type SendMessageRequest struct {
	ProfessorID *int64 `json:"professor,omitempty" binding:"omitempty,gt=0"`
	Title       string `json:"title" binding:"required,max=255"`
	Message     string `json:"message" binding:"required"`
}

// UnreadCount is the professor's unread message counter.
type UnreadCount struct {
	Count int `json:"count"`
}
