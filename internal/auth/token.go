package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DanixMP/Azmooneh/internal/model"
)

// ErrNoToken is returned by a source that holds no credentials.
var ErrNoToken = errors.New("no access token")

// TokenSource supplies the bearer token for one request. Credentials are
// carried explicitly by each client value, never read from globals.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Static is a fixed access token.
type Static string

// Token implements TokenSource.
func (s Static) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*model.RefreshResponse, error)
}

// DefaultLeeway is how long before expiry a token is refreshed.
const DefaultLeeway = 30 * time.Second

// Refreshing keeps an access token fresh by inspecting its exp claim and
// calling the refresh endpoint shortly before it lapses.
type Refreshing struct {
	mu        sync.Mutex
	access    string
	refresh   string
	refresher Refresher
	leeway    time.Duration
	now       func() time.Time
	onRotate  func(access, refresh string)
}

// RefreshingOption configures a Refreshing source.
type RefreshingOption func(*Refreshing)

// WithLeeway sets how long before expiry the token is renewed.
func WithLeeway(d time.Duration) RefreshingOption {
	return func(r *Refreshing) { r.leeway = d }
}

// WithNow replaces the clock.
func WithNow(now func() time.Time) RefreshingOption {
	return func(r *Refreshing) { r.now = now }
}

// OnRotate registers a callback run after every successful refresh, e.g. to
// persist the new tokens.
func OnRotate(fn func(access, refresh string)) RefreshingOption {
	return func(r *Refreshing) { r.onRotate = fn }
}

// NewRefreshing creates a source from a login result.
func NewRefreshing(access, refresh string, refresher Refresher, opts ...RefreshingOption) *Refreshing {
	r := &Refreshing{
		access:    access,
		refresh:   refresh,
		refresher: refresher,
		leeway:    DefaultLeeway,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Token implements TokenSource. Concurrent callers share one refresh.
func (r *Refreshing) Token(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.access != "" && !r.expiring(r.access) {
		return r.access, nil
	}
	if r.refresh == "" {
		if r.access == "" {
			return "", ErrNoToken
		}
		// Nothing to refresh with; let the server decide.
		return r.access, nil
	}

	res, err := r.refresher.Refresh(ctx, r.refresh)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	r.access = res.Access
	if res.Refresh != "" {
		r.refresh = res.Refresh
	}
	if r.onRotate != nil {
		r.onRotate(r.access, r.refresh)
	}
	return r.access, nil
}

// Tokens returns the current access and refresh tokens.
func (r *Refreshing) Tokens() (access, refresh string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.access, r.refresh
}

// expiring reports whether tok lapses within the leeway. Tokens whose
// claims cannot be read are treated as opaque and never refreshed early.
func (r *Refreshing) expiring(tok string) bool {
	claims, err := ParseUnverified(tok)
	if err != nil {
		return false
	}
	exp := claims.Expiry()
	if exp.IsZero() {
		return false
	}
	return !r.now().Add(r.leeway).Before(exp)
}
