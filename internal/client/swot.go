package client

import (
	"context"
	"net/http"

	"github.com/DanixMP/Azmooneh/internal/model"
)

// SWOTQuestions lists the active self-assessment questions.
func (c *Client) SWOTQuestions(ctx context.Context) ([]model.SWOTQuestion, error) {
	var out []model.SWOTQuestion
	if err := c.do(ctx, call{method: http.MethodGet, path: "/swot/questions/", out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitSWOT stores a completed analysis in one call.
func (c *Client) SubmitSWOT(ctx context.Context, req model.SubmitSWOTRequest) (*model.SWOTAnalysis, error) {
	if err := check(req); err != nil {
		return nil, err
	}
	var out model.SWOTAnalysis
	if err := c.do(ctx, call{method: http.MethodPost, path: "/swot/analyses/submit/", body: req, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyAnalyses returns the student's completed analyses.
func (c *Client) MyAnalyses(ctx context.Context) ([]model.SWOTAnalysis, error) {
	var out []model.SWOTAnalysis
	if err := c.do(ctx, call{method: http.MethodGet, path: "/swot/analyses/my_analyses/", out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}
