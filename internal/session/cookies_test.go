package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/pkg/supabase"
)

func TestHTTPCookies_ReadsRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "a"})
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: ""})
	c := NewHTTPCookies(httptest.NewRecorder(), req)

	if v, ok := c.Get(AccessTokenCookie); !ok || v != "a" {
		t.Fatalf("got %q %v", v, ok)
	}
	if _, ok := c.Get(RefreshTokenCookie); ok {
		t.Fatalf("empty cookie must read as absent")
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("missing cookie must read as absent")
	}
}

func TestHTTPCookies_WritesAreVisible(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "old"})
	c := NewHTTPCookies(rec, req)

	WriteTokens(c, supabase.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, DefaultCookieAttributes)
	pair, ok := ReadTokens(c)
	if !ok || pair.AccessToken != "a2" || pair.RefreshToken != "r2" {
		t.Fatalf("got %+v %v", pair, ok)
	}

	ClearTokens(c, DefaultCookieAttributes)
	if _, ok := ReadTokens(c); ok {
		t.Fatalf("cleared tokens still readable")
	}

	set := rec.Result().Cookies()
	if len(set) != 4 {
		t.Fatalf("expected 4 Set-Cookie headers, got %d", len(set))
	}
	for _, ck := range set[2:] {
		if ck.MaxAge != -1 || ck.Path != "/" {
			t.Fatalf("unexpected delete cookie %+v", ck)
		}
	}
}

func TestRequestCookies_FallsBackOutsideGatekeeper(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "a"})
	c := RequestCookies(httptest.NewRecorder(), req)
	if v, ok := c.Get(AccessTokenCookie); !ok || v != "a" {
		t.Fatalf("got %q %v", v, ok)
	}

	attached := NewHTTPCookies(httptest.NewRecorder(), req)
	req = req.WithContext(WithCookies(req.Context(), attached))
	if RequestCookies(httptest.NewRecorder(), req) != CookieStore(attached) {
		t.Fatalf("expected the attached store")
	}
}
