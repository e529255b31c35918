package client

import (
	"context"
	"net/http"

	"github.com/DanixMP/Azmooneh/internal/model"
)

// StudentLogin authenticates a student and returns the user with a token pair.
func (c *Client) StudentLogin(ctx context.Context, req model.LoginRequest) (*model.TokenPair, error) {
	return c.login(ctx, "/auth/student/login/", req)
}

// ProfessorLogin authenticates a professor.
func (c *Client) ProfessorLogin(ctx context.Context, req model.LoginRequest) (*model.TokenPair, error) {
	return c.login(ctx, "/auth/professor/login/", req)
}

func (c *Client) login(ctx context.Context, path string, req model.LoginRequest) (*model.TokenPair, error) {
	if err := check(req); err != nil {
		return nil, err
	}
	var out model.TokenPair
	if err := c.do(ctx, call{method: http.MethodPost, path: path, body: req, out: &out, anon: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

// StudentSignup registers a student account and logs it in.
func (c *Client) StudentSignup(ctx context.Context, req model.SignupRequest) (*model.TokenPair, error) {
	if err := check(req); err != nil {
		return nil, err
	}
	var out model.TokenPair
	if err := c.do(ctx, call{method: http.MethodPost, path: "/auth/student/signup/", body: req, out: &out, anon: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new access token.
// It satisfies auth.Refresher.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*model.RefreshResponse, error) {
	req := model.RefreshRequest{Refresh: refreshToken}
	if err := check(req); err != nil {
		return nil, err
	}
	var out model.RefreshResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: "/token/refresh/", body: req, out: &out, anon: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the user the client's credentials belong to.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, call{method: http.MethodGet, path: "/auth/me/", out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}
