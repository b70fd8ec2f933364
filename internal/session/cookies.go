package session

import (
	"context"
	"net/http"

	"storefront/pkg/supabase"
)

const (
	AccessTokenCookie  = "sb-access-token"
	RefreshTokenCookie = "sb-refresh-token"
)

type CookieAttributes struct {
	Path     string
	Secure   bool
	SameSite http.SameSite
}

var DefaultCookieAttributes = CookieAttributes{
	Path:     "/",
	Secure:   true,
	SameSite: http.SameSiteStrictMode,
}

// CookieStore is the cookie jar of one request/response exchange.
type CookieStore interface {
	// Get reports false for missing and empty cookies.
	Get(name string) (string, bool)
	Set(name, value string, attrs CookieAttributes)
	Delete(name string, attrs CookieAttributes)
}

// HTTPCookies reads request cookies and emits Set-Cookie headers on the response.
// Writes are visible to later Get calls on the same value.
type HTTPCookies struct {
	w       http.ResponseWriter
	r       *http.Request
	pending map[string]string
}

func NewHTTPCookies(w http.ResponseWriter, r *http.Request) *HTTPCookies {
	return &HTTPCookies{w: w, r: r, pending: map[string]string{}}
}

func (c *HTTPCookies) Get(name string) (string, bool) {
	if v, ok := c.pending[name]; ok {
		return v, v != ""
	}
	ck, err := c.r.Cookie(name)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return ck.Value, true
}

func (c *HTTPCookies) Set(name, value string, attrs CookieAttributes) {
	http.SetCookie(c.w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     attrs.Path,
		Secure:   attrs.Secure,
		SameSite: attrs.SameSite,
	})
	c.pending[name] = value
}

func (c *HTTPCookies) Delete(name string, attrs CookieAttributes) {
	http.SetCookie(c.w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     attrs.Path,
		Secure:   attrs.Secure,
		SameSite: attrs.SameSite,
		MaxAge:   -1,
	})
	c.pending[name] = ""
}

type ctxKeyCookies struct{}

// WithCookies attaches the store that already holds this request's cookie writes.
func WithCookies(ctx context.Context, store CookieStore) context.Context {
	return context.WithValue(ctx, ctxKeyCookies{}, store)
}

// RequestCookies returns the store the gatekeeper attached to r, so reads see a rotated pair.
// Outside the gatekeeper it falls back to a fresh store over w and r.
func RequestCookies(w http.ResponseWriter, r *http.Request) CookieStore {
	if store, ok := r.Context().Value(ctxKeyCookies{}).(CookieStore); ok && store != nil {
		return store
	}
	return NewHTTPCookies(w, r)
}

// ReadTokens returns whatever tokens are present; ok is true only when both are.
func ReadTokens(store CookieStore) (pair supabase.TokenPair, ok bool) {
	access, hasAccess := store.Get(AccessTokenCookie)
	refresh, hasRefresh := store.Get(RefreshTokenCookie)
	return supabase.TokenPair{AccessToken: access, RefreshToken: refresh}, hasAccess && hasRefresh
}

func WriteTokens(store CookieStore, pair supabase.TokenPair, attrs CookieAttributes) {
	store.Set(AccessTokenCookie, pair.AccessToken, attrs)
	store.Set(RefreshTokenCookie, pair.RefreshToken, attrs)
}

func ClearTokens(store CookieStore, attrs CookieAttributes) {
	store.Delete(AccessTokenCookie, attrs)
	store.Delete(RefreshTokenCookie, attrs)
}
