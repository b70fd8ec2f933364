package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"storefront/internal/api"
	"storefront/pkg/supabase"
)

const (
	SignInPath           = "/signin"
	HomePath             = "/"
	CredentialsErrorPath = "/error/credentials-error"
)

var (
	errAuthPanic      = errors.New("auth service panicked")
	errInvalidSession = errors.New("auth service returned no usable session")
)

// AuthService validates a token pair and returns the current (possibly rotated) session.
type AuthService interface {
	SetSession(ctx context.Context, pair supabase.TokenPair) (*supabase.Session, error)
}

type ActionKind int

const (
	ActionContinue ActionKind = iota
	ActionRedirect
	ActionFail
)

func (k ActionKind) String() string {
	switch k {
	case ActionContinue:
		return "continue"
	case ActionRedirect:
		return "redirect"
	case ActionFail:
		return "fail"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// Action is the outcome of gating one request. Location is empty for Continue.
type Action struct {
	Kind     ActionKind
	Location string
}

func Continue() Action { return Action{Kind: ActionContinue} }
func RedirectTo(location string) Action { return Action{Kind: ActionRedirect, Location: location} }
func Fail(errorPage string) Action { return Action{Kind: ActionFail, Location: errorPage} }

// Gatekeeper gates every request on the session carried in the token cookies.
// It holds no per-request state and is safe for concurrent use.
type Gatekeeper struct {
	Auth   AuthService
	Routes Routes
	Cookie CookieAttributes

	// RefreshTimeout bounds the auth round trip. Zero means no bound beyond the request context.
	RefreshTimeout time.Duration

	Logger *slog.Logger
}

// Handle decides what to do with a request for path.
//
// The returned error is non-nil only when ctx was cancelled while the auth service was being
// consulted. No cookies are written in that case and the caller must not write a response.
func (g *Gatekeeper) Handle(ctx context.Context, reqPath string, cookies CookieStore) (Action, *api.Identity, error) {
	p := cleanPath(reqPath)
	pair, hasTokens := ReadTokens(cookies)

	if g.Routes.IsProtected(p) && !hasTokens {
		return RedirectTo(SignInPath), nil, nil
	}
	if g.Routes.IsRedirectIfAuthenticated(p) && hasTokens {
		return RedirectTo(HomePath), nil, nil
	}
	if !hasTokens {
		return Continue(), nil, nil
	}

	sess, err := g.setSession(ctx, pair)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Action{}, nil, ctxErr
		}
		g.logger().Warn("session rejected", "path", p, "err", err)
		ClearTokens(cookies, g.Cookie)
		return Fail(CredentialsErrorPath), nil, nil
	}

	WriteTokens(cookies, sess.Tokens(), g.Cookie)
	return Continue(), &api.Identity{Email: sess.User.Email, UserID: sess.User.ID}, nil
}

type setSessionResult struct {
	sess *supabase.Session
	err  error
}

// setSession calls the auth service under the refresh timeout. A panic or a session without
// tokens or user id is reported as an error.
func (g *Gatekeeper) setSession(ctx context.Context, pair supabase.TokenPair) (*supabase.Session, error) {
	if g.Auth == nil {
		return nil, errors.New("no auth service configured")
	}
	if g.RefreshTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.RefreshTimeout)
		defer cancel()
	}

	done := make(chan setSessionResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- setSessionResult{err: fmt.Errorf("%w: %v", errAuthPanic, rec)}
			}
		}()
		s, err := g.Auth.SetSession(ctx, pair)
		done <- setSessionResult{sess: s, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		s := res.sess
		if !s.Valid() {
			return nil, errInvalidSession
		}
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *Gatekeeper) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

// Middleware applies Handle to every request. Redirects and failures answer 302; Continue
// passes the request on with the Identity attached when there is one, and with the cookie
// store so handlers read the rotated pair.
func (g *Gatekeeper) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookies := NewHTTPCookies(w, r)
		action, id, err := g.Handle(r.Context(), r.URL.Path, cookies)
		if err != nil {
			g.logger().Debug("request cancelled during session check", "path", r.URL.Path, "err", err)
			return
		}

		switch action.Kind {
		case ActionRedirect, ActionFail:
			http.Redirect(w, r, action.Location, http.StatusFound)
			return
		}

		ctx := WithCookies(r.Context(), cookies)
		if id != nil {
			ctx = api.WithIdentity(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cleanPath resolves dot segments and duplicate slashes, keeping a trailing slash.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	c := path.Clean(p)
	if strings.HasSuffix(p, "/") && c != "/" {
		c += "/"
	}
	return c
}
