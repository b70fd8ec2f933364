package supabase

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims are the GoTrue access token claims we rely on.
type AccessTokenClaims struct {
	jwt.RegisteredClaims

	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// ParseAccessToken decodes a GoTrue access token.
//
// With a secret the HS256 signature is verified; without one the token is only decoded, which is
// enough to read exp because the auth server validates the token again on use. Expiry is NOT an
// error here: callers inspect Expired to decide whether a refresh is due.
func ParseAccessToken(tokenString, secret string) (*AccessTokenClaims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}

	claims := &AccessTokenClaims{}
	if secret == "" {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
		return claims, nil
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	tok, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if !tok.Valid {
		return nil, fmt.Errorf("%w: invalid signature", ErrMalformedToken)
	}
	return claims, nil
}

// Expired reports whether the token must be refreshed at now.
// A token without exp is treated as expired.
func (c *AccessTokenClaims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !c.ExpiresAt.Time.After(now)
}
