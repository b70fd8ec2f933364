package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNotConfigured is returned when the client has no project URL or API key.
	ErrNotConfigured = errors.New("supabase client not configured")

	// ErrMissingTokens is returned by SetSession when either token is empty.
	ErrMissingTokens = errors.New("auth session missing")

	// ErrMalformedToken is returned when the access token cannot be decoded.
	ErrMalformedToken = errors.New("malformed access token")

	// ErrMalformedSession is returned when the auth server answers 2xx without a usable session.
	ErrMalformedSession = errors.New("malformed session in auth response")
)

// APIError is a non-2xx answer from the auth server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("supabase auth error: status=%d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("supabase auth error: status=%d code=%s %s", e.Status, e.Code, e.Message)
}

// Client talks to the GoTrue auth API of one Supabase project.
// It holds no per-user state and is safe for concurrent use.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string // e.g. https://<ref>.supabase.co
	APIKey     string // anon key

	// JWTSecret, when set, is used to verify access tokens before they are trusted for exp.
	JWTSecret string

	// Now is overridable in tests.
	Now func() time.Time
}

func NewClient(baseURL, apiKey, jwtSecret string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		JWTSecret:  jwtSecret,
	}
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// errorBody covers both GoTrue error shapes (current and legacy OAuth style).
type errorBody struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (c *Client) doJSON(ctx context.Context, method, path, bearer string, reqBody any, respBody any) (int, error) {
	if c.BaseURL == "" || c.APIKey == "" {
		return 0, ErrNotConfigured
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	var body io.Reader
	if reqBody != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
			return 0, err
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+"/auth/v1"+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.APIKey)
	if bearer == "" {
		bearer = c.APIKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("supabase auth request: %w", err)
	}
	defer resp.Body.Close()

	b, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return resp.StatusCode, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, parseAPIError(resp.StatusCode, b)
	}

	if respBody != nil && len(b) > 0 {
		if err := json.Unmarshal(b, respBody); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: %v", ErrMalformedSession, err)
		}
	}

	return resp.StatusCode, nil
}

func parseAPIError(status int, b []byte) *APIError {
	apiErr := &APIError{Status: status}
	var eb errorBody
	if len(b) == 0 || json.Unmarshal(b, &eb) != nil {
		apiErr.Message = strings.TrimSpace(string(b))
		return apiErr
	}

	switch {
	case eb.ErrorCode != "":
		apiErr.Code = eb.ErrorCode
	case eb.Error != "":
		apiErr.Code = eb.Error
	default:
		if s, ok := eb.Code.(string); ok {
			apiErr.Code = s
		}
	}
	for _, m := range []string{eb.Msg, eb.Message, eb.ErrorDescription} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	return apiErr
}
