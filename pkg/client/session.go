// Package client is the Go companion of the pokeguide auth endpoints. A
// Session holds one access/refresh pair, logs out when the access token
// expires, and silently refreshes once when a call comes back 401.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrLoggedOut          = errors.New("client: not logged in")
	ErrInvalidCredentials = errors.New("client: invalid credentials")
	ErrSessionExpired     = errors.New("client: session expired")
	// ErrInvalidAccessToken means an access token was empty or carried no
	// expiry, so no logout could be scheduled for it.
	ErrInvalidAccessToken = errors.New("client: access token is missing or has no expiry")
	// ErrBodyNotReplayable means a request with a body lacks GetBody and
	// could not be retried after a refresh.
	ErrBodyNotReplayable = errors.New("client: request body cannot be replayed")
)

type State int

const (
	StateLoggedOut State = iota
	StateAuthenticated
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "logged_out"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Timer is the handle of a scheduled logout.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler func(d time.Duration, f func()) Timer

func afterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type authResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
}

type Option func(*Session)

func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) { s.http = c }
}

// WithOnLogout registers f to run once every time the session logs out.
func WithOnLogout(f func()) Option {
	return func(s *Session) { s.onLogout = f }
}

func WithScheduler(schedule Scheduler) Option {
	return func(s *Session) { s.schedule = schedule }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

type Session struct {
	baseURL  string
	http     *http.Client
	schedule Scheduler
	now      func() time.Time
	onLogout func()

	mu           sync.Mutex
	state        State
	accessToken  string
	refreshToken string
	user         *User
	timer        Timer
	// generation changes on every logout so late refresh results are dropped.
	generation uint64
	inflight   chan struct{}
	refreshErr error
}

func New(baseURL string, opts ...Option) *Session {
	s := &Session{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     http.DefaultClient,
		schedule: afterFunc,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken
}

func (s *Session) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	resp, err := s.post(ctx, "/auth/login", map[string]string{"email": email, "password": password})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return ErrInvalidCredentials
	default:
		return statusError("login", resp)
	}

	var body authResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("client: decode login response: %w", err)
	}
	if accessTokenExpiry(body.AccessToken).IsZero() {
		return ErrInvalidAccessToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.adopt(&body)
	return nil
}

// Restore resumes a session from tokens kept elsewhere, e.g. on disk. Any
// current session is replaced; on error the session is logged out.
func (s *Session) Restore(accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if accessTokenExpiry(accessToken).IsZero() {
		s.logoutLocked()
		return ErrInvalidAccessToken
	}
	s.adopt(&authResponse{AccessToken: accessToken, RefreshToken: refreshToken})
	if s.state == StateLoggedOut {
		return ErrSessionExpired
	}
	return nil
}

// Logout revokes the refresh token server-side and clears the session. The
// local session is cleared even when the server cannot be reached.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	refresh := s.refreshToken
	s.logoutLocked()
	s.mu.Unlock()

	if refresh == "" {
		return nil
	}
	resp, err := s.post(ctx, "/auth/logout", map[string]string{"refreshToken": refresh})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError("logout", resp)
	}
	return nil
}

// Do sends req with the current access token. On 401 it refreshes once and
// retries once; if either step fails the session logs out.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	if s.state == StateLoggedOut {
		s.mu.Unlock()
		return nil, ErrLoggedOut
	}
	token := s.accessToken
	s.mu.Unlock()

	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return nil, ErrBodyNotReplayable
	}

	resp, err := s.send(req, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	token, err = s.refresh(req.Context(), token)
	if err != nil {
		return nil, err
	}

	retry, err := s.send(req, token)
	if err != nil {
		return nil, err
	}
	if retry.StatusCode == http.StatusUnauthorized {
		drain(retry)
		s.mu.Lock()
		s.logoutLocked()
		s.mu.Unlock()
		return nil, ErrSessionExpired
	}
	return retry, nil
}

// refresh rotates the refresh token. Concurrent callers that saw the same
// stale access token share one rotation.
func (s *Session) refresh(ctx context.Context, stale string) (string, error) {
	s.mu.Lock()
	if s.state == StateLoggedOut {
		s.mu.Unlock()
		return "", ErrSessionExpired
	}
	if s.accessToken != stale && s.state == StateAuthenticated {
		token := s.accessToken
		s.mu.Unlock()
		return token, nil
	}
	if s.state == StateRefreshing {
		wait := s.inflight
		s.mu.Unlock()
		<-wait
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.refreshErr != nil || s.state != StateAuthenticated {
			return "", ErrSessionExpired
		}
		return s.accessToken, nil
	}

	refresh := s.refreshToken
	if refresh == "" {
		s.logoutLocked()
		s.mu.Unlock()
		return "", ErrSessionExpired
	}
	s.state = StateRefreshing
	done := make(chan struct{})
	s.inflight = done
	gen := s.generation
	s.mu.Unlock()

	body, err := s.rotate(ctx, refresh)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(done)

	if gen != s.generation {
		s.refreshErr = ErrSessionExpired
		return "", ErrSessionExpired
	}
	if err != nil {
		s.refreshErr = err
		s.logoutLocked()
		return "", ErrSessionExpired
	}
	s.refreshErr = nil
	s.adopt(body)
	return s.accessToken, nil
}

func (s *Session) rotate(ctx context.Context, refresh string) (*authResponse, error) {
	resp, err := s.post(ctx, "/auth/refresh", map[string]string{"refreshToken": refresh})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("refresh", resp)
	}

	var body authResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("client: decode refresh response: %w", err)
	}
	if body.RefreshToken == "" || accessTokenExpiry(body.AccessToken).IsZero() {
		return nil, errors.New("client: refresh response missing tokens")
	}
	return &body, nil
}

// adopt installs a fresh pair and re-arms the expiry timer. mu must be held.
func (s *Session) adopt(body *authResponse) {
	s.accessToken = body.AccessToken
	s.refreshToken = body.RefreshToken
	if body.User != nil {
		s.user = body.User
	}
	s.state = StateAuthenticated
	s.arm(accessTokenExpiry(body.AccessToken))
}

// arm replaces any pending logout with one at exp. A zero exp logs out at
// once. mu must be held.
func (s *Session) arm(exp time.Time) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	d := exp.Sub(s.now())
	if d <= 0 {
		s.logoutLocked()
		return
	}
	gen := s.generation
	access := s.accessToken
	s.timer = s.schedule(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.generation == gen && s.accessToken == access {
			s.logoutLocked()
		}
	})
}

// logoutLocked clears the session and fires onLogout if it was not already
// logged out. mu must be held; onLogout runs on its own goroutine.
func (s *Session) logoutLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	wasLoggedIn := s.state != StateLoggedOut
	s.state = StateLoggedOut
	s.accessToken = ""
	s.refreshToken = ""
	s.user = nil
	s.generation++

	if wasLoggedIn && s.onLogout != nil {
		go s.onLogout()
	}
}

// accessTokenExpiry reads exp without checking the signature. The value only
// schedules a local logout; the server still verifies every token.
func accessTokenExpiry(token string) time.Time {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func (s *Session) send(req *http.Request, token string) (*http.Response, error) {
	out := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("client: replay body: %w", err)
		}
		out.Body = body
	}
	out.Header.Set("Authorization", "Bearer "+token)
	return s.http.Do(out)
}

func (s *Session) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.http.Do(req)
}

type apiError struct {
	Error string `json:"error"`
}

func statusError(op string, resp *http.Response) error {
	var body apiError
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)
	if body.Error != "" {
		return fmt.Errorf("client: %s: %d %s", op, resp.StatusCode, body.Error)
	}
	return fmt.Errorf("client: %s: status %d", op, resp.StatusCode)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
