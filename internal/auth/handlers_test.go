package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"storefront/internal/session"
	"storefront/pkg/supabase"
)

type fakeAuth struct {
	session    *supabase.Session
	err        error
	signedOut  []string
	signOutErr error
}

func (f *fakeAuth) SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error) {
	return f.session, f.err
}

func (f *fakeAuth) SignUp(ctx context.Context, email, password string) (*supabase.User, *supabase.Session, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return &supabase.User{ID: "u1", Email: email}, f.session, nil
}

func (f *fakeAuth) SignOut(ctx context.Context, accessToken string) error {
	f.signedOut = append(f.signedOut, accessToken)
	return f.signOutErr
}

var okSession = &supabase.Session{AccessToken: "a", RefreshToken: "r", User: supabase.User{ID: "u1"}}

func post(h http.HandlerFunc, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func cookieValues(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

var creds = url.Values{"email": {" A@B.com "}, "password": {"secret"}}

func TestSignIn(t *testing.T) {
	h := Handlers{Auth: &fakeAuth{session: okSession}, Cookie: session.DefaultCookieAttributes}
	rec := post(h.SignIn, creds)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	cs := cookieValues(rec)
	if cs[session.AccessTokenCookie].Value != "a" || cs[session.RefreshTokenCookie].Value != "r" {
		t.Fatalf("tokens not written: %+v", cs)
	}
	if !cs[session.AccessTokenCookie].Secure || cs[session.AccessTokenCookie].SameSite != http.SameSiteStrictMode {
		t.Fatalf("unexpected cookie attributes")
	}
}

func TestSignIn_Failures(t *testing.T) {
	h := Handlers{Auth: &fakeAuth{err: &supabase.APIError{Status: 400, Code: "invalid_credentials"}}, Cookie: session.DefaultCookieAttributes}

	rec := post(h.SignIn, creds)
	if rec.Header().Get("Location") != "/signin?error=invalid-credentials" || len(rec.Result().Cookies()) != 0 {
		t.Fatalf("got %q", rec.Header().Get("Location"))
	}

	rec = post(h.SignIn, url.Values{"email": {"a@b.com"}})
	if rec.Header().Get("Location") != "/signin?error=missing-credentials" {
		t.Fatalf("got %q", rec.Header().Get("Location"))
	}
}

func TestRegister(t *testing.T) {
	h := Handlers{Auth: &fakeAuth{}, Cookie: session.DefaultCookieAttributes}
	rec := post(h.Register, creds)
	if rec.Header().Get("Location") != "/signin?notice=confirm-email" || len(rec.Result().Cookies()) != 0 {
		t.Fatalf("confirmation flow: got %q", rec.Header().Get("Location"))
	}

	h.Auth = &fakeAuth{session: okSession}
	rec = post(h.Register, creds)
	if rec.Header().Get("Location") != "/" || len(rec.Result().Cookies()) != 2 {
		t.Fatalf("auto-confirm flow: got %q", rec.Header().Get("Location"))
	}

	h.Auth = &fakeAuth{err: errors.New("weak password")}
	rec = post(h.Register, creds)
	if rec.Header().Get("Location") != "/register?error=registration-failed" {
		t.Fatalf("failure: got %q", rec.Header().Get("Location"))
	}
}

func TestSignOut(t *testing.T) {
	fa := &fakeAuth{signOutErr: errors.New("network")}
	h := Handlers{Auth: fa, Cookie: session.DefaultCookieAttributes}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/signout", nil)
	req.AddCookie(&http.Cookie{Name: session.AccessTokenCookie, Value: "a"})
	req.AddCookie(&http.Cookie{Name: session.RefreshTokenCookie, Value: "r"})
	rec := httptest.NewRecorder()
	h.SignOut(rec, req)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if len(fa.signedOut) != 1 || fa.signedOut[0] != "a" {
		t.Fatalf("expected remote sign out with access token, got %v", fa.signedOut)
	}
	cs := cookieValues(rec)
	if len(cs) != 2 || cs[session.AccessTokenCookie].MaxAge != -1 || cs[session.RefreshTokenCookie].MaxAge != -1 {
		t.Fatalf("cookies not cleared: %+v", cs)
	}

	// anonymous sign out still clears and skips the remote call
	fa.signedOut = nil
	rec = httptest.NewRecorder()
	h.SignOut(rec, httptest.NewRequest(http.MethodGet, "/api/auth/signout", nil))
	if len(fa.signedOut) != 0 || len(cookieValues(rec)) != 2 {
		t.Fatalf("unexpected anonymous sign out behaviour")
	}
}
