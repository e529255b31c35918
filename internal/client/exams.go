package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/DanixMP/Azmooneh/internal/model"
)

// ListExams returns the exams visible to the caller: published exams for a
// student, the professor's own exams for a professor.
func (c *Client) ListExams(ctx context.Context) ([]model.Exam, error) {
	var out []model.Exam
	if err := c.do(ctx, call{method: http.MethodGet, path: "/exams/", out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

// GetExam fetches one exam with its questions.
func (c *Client) GetExam(ctx context.Context, id int64) (*model.Exam, error) {
	var out model.Exam
	if err := c.do(ctx, call{method: http.MethodGet, path: fmt.Sprintf("/exams/%d/", id), out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateExam creates an exam with nested questions and choices.
func (c *Client) CreateExam(ctx context.Context, req model.CreateExamRequest) (*model.Exam, error) {
	if err := check(req); err != nil {
		return nil, err
	}
	var out model.Exam
	if err := c.do(ctx, call{method: http.MethodPost, path: "/exams/", body: req, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// PublishExam makes an exam visible to students.
func (c *Client) PublishExam(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodPost, path: fmt.Sprintf("/exams/%d/publish/", id), out: &model.StatusMessage{}})
}

// UnpublishExam hides an exam from students.
func (c *Client) UnpublishExam(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodPost, path: fmt.Sprintf("/exams/%d/unpublish/", id), out: &model.StatusMessage{}})
}
