package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-for-tests"

type fakeGoTrue struct {
	t         *testing.T
	refreshes atomic.Int32
	userCalls atomic.Int32
	refreshFn func(w http.ResponseWriter, refreshToken string)
	userFn    func(w http.ResponseWriter, bearer string)
}

func (f *fakeGoTrue) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("apikey") != "anon-key" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth/v1/token" && r.URL.Query().Get("grant_type") == "refresh_token":
		f.refreshes.Add(1)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.refreshFn(w, body["refresh_token"])
	case r.Method == http.MethodPost && r.URL.Path == "/auth/v1/token" && r.URL.Query().Get("grant_type") == "password":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "hunter22" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`))
			return
		}
		writeJSON(w, tokenResponse{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 3600, User: User{ID: "u1", Email: body["email"]}})
	case r.Method == http.MethodGet && r.URL.Path == "/auth/v1/user":
		f.userCalls.Add(1)
		f.userFn(w, r.Header.Get("Authorization"))
	case r.Method == http.MethodPost && r.URL.Path == "/auth/v1/signup":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] == "confirm@b.com" {
			writeJSON(w, map[string]string{"id": "u9", "email": body["email"]})
			return
		}
		writeJSON(w, tokenResponse{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 3600, User: User{ID: "u2", Email: body["email"]}})
	case r.Method == http.MethodPost && r.URL.Path == "/auth/v1/logout":
		w.WriteHeader(http.StatusNoContent)
	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.String())
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, f *fakeGoTrue) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "anon-key", testSecret)
}

func accessToken(t *testing.T, exp time.Time) string {
	t.Helper()
	return signToken(t, testSecret, AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(exp)},
		Email:            "a@b.com",
	})
}

func TestSetSession_LiveTokenChecksUser(t *testing.T) {
	f := &fakeGoTrue{t: t, userFn: func(w http.ResponseWriter, bearer string) {
		writeJSON(w, User{ID: "u1", Email: "a@b.com"})
	}}
	c := newTestClient(t, f)

	at := accessToken(t, time.Now().Add(time.Hour))
	s, err := c.SetSession(context.Background(), TokenPair{AccessToken: at, RefreshToken: "rt-1"})
	require.NoError(t, err)

	assert.Equal(t, at, s.AccessToken)
	assert.Equal(t, "rt-1", s.RefreshToken)
	assert.Equal(t, User{ID: "u1", Email: "a@b.com"}, s.User)
	assert.EqualValues(t, 1, f.userCalls.Load())
	assert.EqualValues(t, 0, f.refreshes.Load())
}

func TestSetSession_ExpiredTokenRefreshes(t *testing.T) {
	f := &fakeGoTrue{t: t, refreshFn: func(w http.ResponseWriter, refreshToken string) {
		if refreshToken != "rt-old" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		writeJSON(w, tokenResponse{AccessToken: "at-new", RefreshToken: "rt-new", ExpiresAt: 1900000000, User: User{ID: "u1", Email: "a@b.com"}})
	}}
	c := newTestClient(t, f)

	at := accessToken(t, time.Now().Add(-time.Minute))
	s, err := c.SetSession(context.Background(), TokenPair{AccessToken: at, RefreshToken: "rt-old"})
	require.NoError(t, err)

	assert.Equal(t, TokenPair{AccessToken: "at-new", RefreshToken: "rt-new"}, s.Tokens())
	assert.EqualValues(t, 1900000000, s.ExpiresAt)
	assert.EqualValues(t, 1, f.refreshes.Load())
	assert.EqualValues(t, 0, f.userCalls.Load())
}

func TestSetSession_RefreshRejected(t *testing.T) {
	f := &fakeGoTrue{t: t, refreshFn: func(w http.ResponseWriter, _ string) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid Refresh Token: Already Used"}`))
	}}
	c := newTestClient(t, f)

	_, err := c.SetSession(context.Background(), TokenPair{AccessToken: accessToken(t, time.Now().Add(-time.Minute)), RefreshToken: "used"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "invalid_grant", apiErr.Code)
	assert.Contains(t, apiErr.Message, "Already Used")
}

func TestSetSession_MalformedResponses(t *testing.T) {
	f := &fakeGoTrue{t: t,
		refreshFn: func(w http.ResponseWriter, _ string) { writeJSON(w, map[string]string{"access_token": "only"}) },
		userFn:    func(w http.ResponseWriter, _ string) { _, _ = w.Write([]byte(`not json`)) },
	}
	c := newTestClient(t, f)

	_, err := c.SetSession(context.Background(), TokenPair{AccessToken: accessToken(t, time.Now().Add(-time.Minute)), RefreshToken: "rt"})
	assert.ErrorIs(t, err, ErrMalformedSession)

	_, err = c.SetSession(context.Background(), TokenPair{AccessToken: accessToken(t, time.Now().Add(time.Hour)), RefreshToken: "rt"})
	assert.ErrorIs(t, err, ErrMalformedSession)
}

func TestSetSession_InputErrors(t *testing.T) {
	c := newTestClient(t, &fakeGoTrue{t: t})

	_, err := c.SetSession(context.Background(), TokenPair{AccessToken: "x"})
	assert.ErrorIs(t, err, ErrMissingTokens)

	_, err = c.SetSession(context.Background(), TokenPair{AccessToken: "garbage", RefreshToken: "rt"})
	assert.ErrorIs(t, err, ErrMalformedToken)

	var unconfigured Client
	_, err = unconfigured.RefreshSession(context.Background(), "rt")
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestSignInWithPassword(t *testing.T) {
	c := newTestClient(t, &fakeGoTrue{t: t})

	s, err := c.SignInWithPassword(context.Background(), "a@b.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "u1", s.User.ID)
	assert.NotZero(t, s.ExpiresAt)

	_, err = c.SignInWithPassword(context.Background(), "a@b.com", "nope")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid_credentials", apiErr.Code)
	assert.Equal(t, "Invalid login credentials", apiErr.Message)
}

func TestSignUp(t *testing.T) {
	c := newTestClient(t, &fakeGoTrue{t: t})

	u, s, err := c.SignUp(context.Background(), "new@b.com", "pw")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "u2", u.ID)

	u, s, err = c.SignUp(context.Background(), "confirm@b.com", "pw")
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Equal(t, "u9", u.ID)
}

func TestSignOut(t *testing.T) {
	c := newTestClient(t, &fakeGoTrue{t: t})
	require.NoError(t, c.SignOut(context.Background(), "at"))
}
