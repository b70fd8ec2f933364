package sessioncache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

const memcachedKeyPrefix = "sfsess:"

type MemcachedStore struct {
	client *memcache.Client
	prefix string
}

// NewMemcachedStore uses a 1s operation timeout so a down cache cannot stall requests.
func NewMemcachedStore(servers ...string) *MemcachedStore {
	client := memcache.New(servers...)
	client.Timeout = 1 * time.Second
	return &MemcachedStore{client: client, prefix: memcachedKeyPrefix}
}

// Get ignores ctx; the client only supports its own timeout.
func (s *MemcachedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	item, err := s.client.Get(s.prefix + key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("memcached get: %w", err)
	}
	return item.Value, true, nil
}

func (s *MemcachedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.client.Set(&memcache.Item{
		Key:        s.prefix + key,
		Value:      value,
		Expiration: memcachedExpiration(ttl),
	})
	if err != nil {
		return fmt.Errorf("memcached set: %w", err)
	}
	return nil
}

func (s *MemcachedStore) Ping(ctx context.Context) error {
	return s.client.Ping()
}

// memcachedExpiration converts ttl to whole seconds. Zero means "never" to memcached, so
// sub-second TTLs round up to one second. Session TTLs stay far below the 30 day delta limit.
func memcachedExpiration(ttl time.Duration) int32 {
	secs := int32(ttl / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
