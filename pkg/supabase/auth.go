package supabase

import (
	"context"
	"fmt"
	"net/http"
)

// TokenPair is the session handle carried in the browser cookies.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	User         User   `json:"user"`
}

// Tokens returns the pair to write back to the client.
func (s *Session) Tokens() TokenPair {
	return TokenPair{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
}

// Valid reports whether s carries both tokens and a user id. A nil session is not valid.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != "" && s.RefreshToken != "" && s.User.ID != ""
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	TokenType    string `json:"token_type"`
	User         User   `json:"user"`
}

func (r tokenResponse) session(c *Client) *Session {
	expiresAt := r.ExpiresAt
	if expiresAt == 0 && r.ExpiresIn > 0 {
		expiresAt = c.now().Unix() + r.ExpiresIn
	}
	return &Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    expiresAt,
		User:         r.User,
	}
}

// SetSession validates the pair and returns the current session, refreshing it when the access
// token has expired. A live access token is checked against /user and returned unchanged.
func (c *Client) SetSession(ctx context.Context, pair TokenPair) (*Session, error) {
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return nil, ErrMissingTokens
	}

	claims, err := ParseAccessToken(pair.AccessToken, c.JWTSecret)
	if err != nil {
		return nil, err
	}

	now := c.now()
	if claims.Expired(now) {
		return c.RefreshSession(ctx, pair.RefreshToken)
	}

	user, err := c.GetUser(ctx, pair.AccessToken)
	if err != nil {
		return nil, err
	}
	s := &Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    claims.ExpiresAt.Unix(),
		User:         *user,
	}
	if !s.Valid() {
		return nil, ErrMalformedSession
	}
	return s, nil
}

// RefreshSession exchanges a refresh token for a new (rotated) session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	var resp tokenResponse
	if _, err := c.doJSON(ctx, http.MethodPost, "/token?grant_type=refresh_token", "",
		map[string]string{"refresh_token": refreshToken}, &resp); err != nil {
		return nil, err
	}
	s := resp.session(c)
	if !s.Valid() {
		return nil, ErrMalformedSession
	}
	return s, nil
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var u User
	if _, err := c.doJSON(ctx, http.MethodGet, "/user", accessToken, nil, &u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, ErrMalformedSession
	}
	return &u, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var resp tokenResponse
	if _, err := c.doJSON(ctx, http.MethodPost, "/token?grant_type=password", "",
		map[string]string{"email": email, "password": password}, &resp); err != nil {
		return nil, err
	}
	s := resp.session(c)
	if !s.Valid() {
		return nil, ErrMalformedSession
	}
	return s, nil
}

type signUpResponse struct {
	tokenResponse

	// Without auto-confirm GoTrue answers with the bare user object.
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SignUp registers a user. The returned session is nil when the project requires email
// confirmation before the first sign-in.
func (c *Client) SignUp(ctx context.Context, email, password string) (*User, *Session, error) {
	var resp signUpResponse
	if _, err := c.doJSON(ctx, http.MethodPost, "/signup", "",
		map[string]string{"email": email, "password": password}, &resp); err != nil {
		return nil, nil, err
	}

	if resp.AccessToken != "" {
		s := resp.tokenResponse.session(c)
		if !s.Valid() {
			return nil, nil, ErrMalformedSession
		}
		return &s.User, s, nil
	}
	if resp.ID == "" {
		return nil, nil, fmt.Errorf("%w: signup returned no user", ErrMalformedSession)
	}
	return &User{ID: resp.ID, Email: resp.Email}, nil, nil
}

// SignOut revokes the refresh tokens of the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.doJSON(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
	return err
}
