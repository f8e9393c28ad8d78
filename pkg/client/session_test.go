package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) schedule(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) live() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

// authServer mimics the auth endpoints and one protected route.
type authServer struct {
	*httptest.Server

	mu        sync.Mutex
	seq       int
	access    map[string]bool
	refresh   map[string]bool
	accessTTL time.Duration

	rejectRefresh atomic.Bool
	rejectAll     atomic.Bool
	refreshDelay  atomic.Int64

	refreshCalls   atomic.Int32
	protectedCalls atomic.Int32
	logoutCalls    atomic.Int32
	lastBody       atomic.Value
}

func newAuthServer(t *testing.T) *authServer {
	t.Helper()
	s := &authServer{access: map[string]bool{}, refresh: map[string]bool{}, accessTTL: 15 * time.Minute}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "pokeball123" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, s.mint())
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		s.refreshCalls.Add(1)
		time.Sleep(time.Duration(s.refreshDelay.Load()))
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)

		s.mu.Lock()
		ok := s.refresh[req["refreshToken"]] && !s.rejectRefresh.Load()
		delete(s.refresh, req["refreshToken"])
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
			return
		}
		writeJSON(w, http.StatusOK, s.mint())
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		s.logoutCalls.Add(1)
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})
	mux.HandleFunc("/api/protected", func(w http.ResponseWriter, r *http.Request) {
		s.protectedCalls.Add(1)
		body, _ := io.ReadAll(r.Body)
		s.lastBody.Store(string(body))

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		ok := s.access[token] && !s.rejectAll.Load()
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"echo": string(body)})
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *authServer) mint() authResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	access := signToken(fmt.Sprintf("jti-%d", s.seq), time.Now().Add(s.accessTTL))
	refresh := fmt.Sprintf("refresh-%d", s.seq)
	s.access[access] = true
	s.refresh[refresh] = true
	return authResponse{AccessToken: access, RefreshToken: refresh, User: &User{ID: "ash", Role: "player"}}
}

// expireAccess invalidates every issued access token server-side.
func (s *authServer) expireAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = map[string]bool{}
}

func signToken(id string, exp time.Time) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        id,
		Subject:   "ash",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("server-only-secret"))
	if err != nil {
		panic(err)
	}
	return token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type logoutCounter struct{ n atomic.Int32 }

func (c *logoutCounter) inc() { c.n.Add(1) }

func newSession(t *testing.T, srv *authServer) (*Session, *fakeScheduler, *logoutCounter) {
	t.Helper()
	sched := &fakeScheduler{}
	logouts := &logoutCounter{}
	s := New(srv.URL+"/", WithScheduler(sched.schedule), WithOnLogout(logouts.inc), WithHTTPClient(srv.Client()))
	return s, sched, logouts
}

func protected(t *testing.T, srv *authServer, body string) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/protected", reader)
	require.NoError(t, err)
	return req
}

func TestSession_LoginArmsExpiryTimer(t *testing.T) {
	srv := newAuthServer(t)
	s, sched, logouts := newSession(t, srv)

	require.NoError(t, s.Login(context.Background(), "ash@example.com", "pokeball123"))
	assert.Equal(t, StateAuthenticated, s.State())
	assert.Equal(t, "ash", s.User().ID)

	live := sched.live()
	require.Len(t, live, 1)
	assert.InDelta(t, (15 * time.Minute).Seconds(), live[0].d.Seconds(), 2)

	live[0].f()
	assert.Equal(t, StateLoggedOut, s.State())
	assert.Empty(t, s.AccessToken())
	assert.Eventually(t, func() bool { return logouts.n.Load() == 1 }, time.Second, time.Millisecond)
}

func TestSession_LoginRejected(t *testing.T) {
	srv := newAuthServer(t)
	s, sched, _ := newSession(t, srv)

	err := s.Login(context.Background(), "ash@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, StateLoggedOut, s.State())
	assert.Empty(t, sched.timers)
}

func TestSession_RearmKeepsOneTimer(t *testing.T) {
	srv := newAuthServer(t)
	s, sched, logouts := newSession(t, srv)
	require.NoError(t, s.Login(context.Background(), "ash@example.com", "pokeball123"))
	first := sched.live()[0]

	srv.expireAccess()
	resp, err := s.Do(protected(t, srv, ""))
	require.NoError(t, err)
	resp.Body.Close()

	assert.True(t, first.stopped)
	assert.Len(t, sched.live(), 1)

	// A stale timer firing late must not end the new session.
	first.f()
	assert.Equal(t, StateAuthenticated, s.State())
	assert.Zero(t, logouts.n.Load())
}

func TestSession_DoRefreshesAndRetriesOnce(t *testing.T) {
	srv := newAuthServer(t)
	s, _, _ := newSession(t, srv)
	require.NoError(t, s.Login(context.Background(), "ash@example.com", "pokeball123"))
	oldRefresh := s.RefreshToken()

	srv.expireAccess()
	resp, err := s.Do(protected(t, srv, `{"move":"thunderbolt"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, srv.refreshCalls.Load())
	assert.EqualValues(t, 2, srv.protectedCalls.Load())
	assert.Equal(t, `{"move":"thunderbolt"}`, srv.lastBody.Load())
	assert.NotEqual(t, oldRefresh, s.RefreshToken())
	assert.Equal(t, StateAuthenticated, s.State())
}

func TestSession_DoPassesThroughSuccess(t *testing.T) {
	srv := newAuthServer(t)
	s, _, _ := newSession(t, srv)
	require.NoError(t, s.Login(context.Background(), "ash@example.com", "pokeball123"))

	resp, err := s.Do(protected(t, srv, ""))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, srv.refreshCalls.Load())
}

func TestSession_RefreshRejectedLogsOut(t *testing.T) {
	srv := newAuthServer(t)
	s, sched, logouts := newSession(t, srv)
	require.NoError(t, s.Login(context.Background(), "ash@example.com", "pokeball123"))

	srv.expireAccess()
	srv.rejectRefresh.Store(true)
	resp, err := s.Do(protected(t, srv, ""))

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, StateLoggedOut, s.State())
	assert.EqualValues(t, 1, srv.protectedCalls.Load())
	assert.Empty(t, sched.live())
	assert.Eventually(t, func() bool { return logouts.n.Load() == 1 }, time.Second, time.Millisecond)
}

func TestSession_RetryCappedAtOne(t *testing.T) {
	srv := newAuthServer(t)
	s, _, logouts := newSession(t, srv)
	require.NoError(t, s.Login(context.Background(), "ash@example.com", "pokeball123"))

	srv.rejectAll.Store(true)
	resp, err := s.Do(protected(t, srv, ""))

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.EqualValues(t, 2, srv.protectedCalls.Load())
	assert.EqualValues(t, 1, srv.refreshCalls.Load())
	assert.Equal(t, StateLoggedOut, s.State())
	assert.Eventually(t, func() bool { return logouts.n.Load() == 1 }, time.Second, time.Millisecond)
}

func TestSession_MissingRefreshTokenLogsOutWithoutRotation(t *testing.T) {
	srv := newAuthServer(t)
	s, _, _ := newSession(t, srv)
	require.NoError(t, s.Restore(signToken("restored", time.Now().Add(time.Hour)), ""))

	resp, err := s.Do(protected(t, srv, ""))
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Zero(t, srv.refreshCalls.Load())
	assert.Equal(t, StateLoggedOut, s.State())
}

func TestSession_RestoreExpiredLogsOut(t *testing.T) {
	srv := newAuthServer(t)
	s, sched, _ := newSession(t, srv)

	err := s.Restore(signToken("old", time.Now().Add(-time.Minute)), "refresh-old")
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, StateLoggedOut, s.State())
	assert.Empty(t, sched.live())

	_, err = s.Do(protected(t, srv, ""))
	assert.ErrorIs(t, err, ErrLoggedOut)
}

func TestSession_RestoreRejectsUnusableAccessToken(t *testing.T) {
	srv := newAuthServer(t)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "ash"}).
		SignedString([]byte("server-only-secret"))
	require.NoError(t, err)

	for name, access := range map[string]string{"empty": "", "no expiry": noExpiry, "garbage": "not.a.jwt"} {
		t.Run(name, func(t *testing.T) {
			s, sched, _ := newSession(t, srv)
			require.NoError(t, s.Login(context.Background(), "ash@example.com", "pokeball123"))

			err := s.Restore(access, "refresh-1")
			assert.ErrorIs(t, err, ErrInvalidAccessToken)
			assert.Equal(t, StateLoggedOut, s.State())
			assert.Empty(t, s.AccessToken())
			assert.Empty(t, sched.live())

			_, err = s.Do(protected(t, srv, ""))
			assert.ErrorIs(t, err, ErrLoggedOut)
		})
	}
}

func TestSession_ConcurrentCallsShareOneRefresh(t *testing.T) {
	srv := newAuthServer(t)
	srv.refreshDelay.Store(int64(20 * time.Millisecond))
	s, _, _ := newSession(t, srv)
	require.NoError(t, s.Login(context.Background(), "ash@example.com", "pokeball123"))
	srv.expireAccess()

	const callers = 5
	var wg sync.WaitGroup
	statuses := make(chan int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := s.Do(protected(t, srv, ""))
			if err != nil {
				statuses <- 0
				return
			}
			resp.Body.Close()
			statuses <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(statuses)

	for status := range statuses {
		assert.Equal(t, http.StatusOK, status)
	}
	assert.EqualValues(t, 1, srv.refreshCalls.Load())
}

func TestSession_Logout(t *testing.T) {
	srv := newAuthServer(t)
	s, sched, logouts := newSession(t, srv)
	require.NoError(t, s.Login(context.Background(), "ash@example.com", "pokeball123"))

	require.NoError(t, s.Logout(context.Background()))
	require.NoError(t, s.Logout(context.Background()))

	assert.Equal(t, StateLoggedOut, s.State())
	assert.EqualValues(t, 1, srv.logoutCalls.Load())
	assert.Empty(t, sched.live())
	assert.Eventually(t, func() bool { return logouts.n.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.EqualValues(t, 1, logouts.n.Load())
}

func TestSession_RejectsUnreplayableBody(t *testing.T) {
	srv := newAuthServer(t)
	s, _, _ := newSession(t, srv)
	require.NoError(t, s.Login(context.Background(), "ash@example.com", "pokeball123"))

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/protected", io.NopCloser(strings.NewReader("x")))
	require.NoError(t, err)

	_, err = s.Do(req)
	assert.ErrorIs(t, err, ErrBodyNotReplayable)
}

func TestAccessTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	assert.Equal(t, exp.Unix(), accessTokenExpiry(signToken("x", exp)).Unix())
	assert.True(t, accessTokenExpiry("garbage").IsZero())
}
