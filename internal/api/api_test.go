package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestIdentityFromContext(t *testing.T) {
	if IdentityFromContext(context.Background()) != nil {
		t.Fatalf("expected nil identity on empty context")
	}
	ctx := WithIdentity(context.Background(), &Identity{Email: "a@b.com", UserID: "u1"})
	got := IdentityFromContext(ctx)
	if got == nil || got.UserID != "u1" || got.Email != "a@b.com" {
		t.Fatalf("unexpected identity %+v", got)
	}
}

func TestWriteError_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusBadRequest, "VALIDATION_FAILED", "bad")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "VALIDATION_FAILED" || env.Error.Message != "bad" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestAdminKeyAuth(t *testing.T) {
	cases := []struct {
		name   string
		key    string
		header string
		want   int
	}{
		{"disabled", "", "Bearer anything", http.StatusNotFound},
		{"missing", "k3y", "", http.StatusUnauthorized},
		{"wrong", "k3y", "Bearer nope", http.StatusUnauthorized},
		{"ok", "k3y", "Bearer k3y", http.StatusOK},
		{"case-insensitive scheme", "k3y", "bearer k3y", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/admin/products/p1", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			AdminKeyAuth(tc.key)(okHandler()).ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("got %d want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	h := CORSMiddleware(CORSOptions{AllowedOrigins: []string{"https://shop.example"}})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	req.Header.Set("Origin", "https://shop.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://shop.example" {
		t.Fatalf("missing allow-origin")
	}
	if rec.Header().Get("Access-Control-Max-Age") != "600" {
		t.Fatalf("unexpected max-age %q", rec.Header().Get("Access-Control-Max-Age"))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("foreign origin must not be allowed")
	}
}

func TestRequireIdentity(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireIdentity(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req = req.WithContext(WithIdentity(req.Context(), &Identity{UserID: "u1"}))
	rec = httptest.NewRecorder()
	RequireIdentity(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
