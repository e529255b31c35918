package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/DanixMP/Azmooneh/internal/model"
	"github.com/DanixMP/Azmooneh/internal/response"
)

// StartExam creates the caller's session for an exam, or returns the
// existing one. A missing or unpublished exam is ErrExamNotAvailable.
func (c *Client) StartExam(ctx context.Context, examID int64) (*model.Session, error) {
	req := model.StartExamRequest{ExamID: examID}
	if err := check(req); err != nil {
		return nil, err
	}
	var out model.Session
	err := c.do(ctx, call{method: http.MethodPost, path: "/student-exams/start_exam/", body: req, out: &out})
	if err != nil {
		var apiErr *response.Error
		if errors.As(err, &apiErr) && apiErr.Code == response.ErrNotFound {
			apiErr.Code = response.ErrExamNotAvailable
		}
		return nil, err
	}
	return &out, nil
}

// SubmitAnswer persists one answer. Resending for the same question
// overwrites the stored answer.
func (c *Client) SubmitAnswer(ctx context.Context, sessionID int64, req model.SubmitAnswerRequest) error {
	if err := check(req); err != nil {
		return err
	}
	if req.SelectedChoices == nil {
		req.SelectedChoices = []int64{}
	}
	path := fmt.Sprintf("/student-exams/%d/submit_answer/", sessionID)
	return c.do(ctx, call{method: http.MethodPost, path: path, body: req, out: &model.StatusMessage{}})
}

// SubmitExam seals the session. The status in the result may be a human
// message rather than a lifecycle value.
func (c *Client) SubmitExam(ctx context.Context, sessionID int64) (*model.SubmitExamResponse, error) {
	var out model.SubmitExamResponse
	path := fmt.Sprintf("/student-exams/%d/submit_exam/", sessionID)
	if err := c.do(ctx, call{method: http.MethodPost, path: path, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSession fetches a session with its answers.
func (c *Client) GetSession(ctx context.Context, sessionID int64) (*model.Session, error) {
	var out model.Session
	if err := c.do(ctx, call{method: http.MethodGet, path: fmt.Sprintf("/student-exams/%d/", sessionID), out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSessions returns the caller's sessions, or every session of the
// professor's exams.
func (c *Client) ListSessions(ctx context.Context) ([]model.Session, error) {
	var out []model.Session
	if err := c.do(ctx, call{method: http.MethodGet, path: "/student-exams/", out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

// SetMarks sends manual marks for answers of one session. The server
// recomputes the score and moves the session to graded.
func (c *Client) SetMarks(ctx context.Context, sessionID int64, req model.SetMarksRequest) (*model.Session, error) {
	if err := check(req); err != nil {
		return nil, err
	}
	var out model.Session
	path := fmt.Sprintf("/student-exams/%d/", sessionID)
	if err := c.do(ctx, call{method: http.MethodPatch, path: path, body: req, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}
