package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"storefront/internal/session"
	"storefront/pkg/supabase"
)

// Authenticator is the part of the auth service the sign-in pages need.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error)
	SignUp(ctx context.Context, email, password string) (*supabase.User, *supabase.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

type Handlers struct {
	Auth   Authenticator
	Cookie session.CookieAttributes
	Logger *slog.Logger
}

func (h Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	email, password, ok := readCredentials(r)
	if !ok {
		http.Redirect(w, r, "/signin?error=missing-credentials", http.StatusSeeOther)
		return
	}

	s, err := h.Auth.SignInWithPassword(r.Context(), email, password)
	if err != nil {
		h.logger().Info("sign in rejected", "err", err)
		http.Redirect(w, r, "/signin?error=invalid-credentials", http.StatusSeeOther)
		return
	}

	session.WriteTokens(session.RequestCookies(w, r), s.Tokens(), h.Cookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Register signs the user up. Projects with email confirmation return no session; the user
// is sent to sign in once confirmed.
func (h Handlers) Register(w http.ResponseWriter, r *http.Request) {
	email, password, ok := readCredentials(r)
	if !ok {
		http.Redirect(w, r, "/register?error=missing-credentials", http.StatusSeeOther)
		return
	}

	user, s, err := h.Auth.SignUp(r.Context(), email, password)
	if err != nil {
		h.logger().Info("sign up rejected", "err", err)
		http.Redirect(w, r, "/register?error=registration-failed", http.StatusSeeOther)
		return
	}
	h.logger().Info("user registered", "user_id", user.ID)

	if s == nil {
		http.Redirect(w, r, "/signin?notice=confirm-email", http.StatusSeeOther)
		return
	}
	session.WriteTokens(session.RequestCookies(w, r), s.Tokens(), h.Cookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SignOut revokes the session upstream when possible and always clears the cookies.
func (h Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	cookies := session.RequestCookies(w, r)
	if access, ok := cookies.Get(session.AccessTokenCookie); ok {
		if err := h.Auth.SignOut(r.Context(), access); err != nil {
			h.logger().Warn("remote sign out failed", "err", err)
		}
	}
	session.ClearTokens(cookies, h.Cookie)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func readCredentials(r *http.Request) (email, password string, ok bool) {
	if err := r.ParseForm(); err != nil {
		return "", "", false
	}
	email = strings.ToLower(strings.TrimSpace(r.PostForm.Get("email")))
	password = r.PostForm.Get("password")
	return email, password, email != "" && password != ""
}

func (h Handlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
