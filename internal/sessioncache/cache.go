package sessioncache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"storefront/internal/session"
	"storefront/pkg/supabase"
)

// Store is a byte cache with per-entry expiry.
type Store interface {
	// Get reports false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache remembers validated sessions so repeated requests with the same cookies skip the
// auth round trip. Only successful results are stored.
type Cache struct {
	Next   session.AuthService
	Store  Store
	TTL    time.Duration
	Logger *slog.Logger

	// Now is overridable in tests.
	Now func() time.Time
}

var _ session.AuthService = (*Cache)(nil)

func (c *Cache) SetSession(ctx context.Context, pair supabase.TokenPair) (*supabase.Session, error) {
	key := cacheKey(pair)

	if b, ok, err := c.Store.Get(ctx, key); err != nil {
		c.logger().Warn("session cache get failed", "err", err)
	} else if ok {
		var s supabase.Session
		if err := json.Unmarshal(b, &s); err == nil && s.Valid() {
			return &s, nil
		}
		c.logger().Warn("session cache entry unreadable, ignoring")
	}

	s, err := c.Next.SetSession(ctx, pair)
	if err != nil || s == nil {
		return s, err
	}

	ttl := c.ttlFor(s)
	if ttl <= 0 {
		return s, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return s, nil
	}
	if err := c.Store.Set(ctx, key, b, ttl); err != nil {
		c.logger().Warn("session cache set failed", "err", err)
	}
	return s, nil
}

// ttlFor caps the configured TTL at the session's own expiry.
func (c *Cache) ttlFor(s *supabase.Session) time.Duration {
	ttl := c.TTL
	if s.ExpiresAt > 0 {
		untilExpiry := time.Unix(s.ExpiresAt, 0).Sub(c.now())
		if untilExpiry < ttl {
			ttl = untilExpiry
		}
	}
	return ttl
}

func (c *Cache) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Cache) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// cacheKey never exposes the raw tokens to the backing store.
func cacheKey(pair supabase.TokenPair) string {
	h := sha256.New()
	h.Write([]byte(pair.AccessToken))
	h.Write([]byte{0})
	h.Write([]byte(pair.RefreshToken))
	return hex.EncodeToString(h.Sum(nil))
}
