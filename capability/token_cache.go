package capability

import (
	"context"
	"sync"
	"time"
)

// TokenCache caches an upstream auth token for capability implementations
// that talk to authenticated APIs, avoiding redundant authentication calls.
// It is an explicitly owned object passed into a capability at construction,
// not shared global state.
//
// The fetch function is invoked at most once per expiry window even under
// concurrent access.
type TokenCache struct {
	mu      sync.Mutex
	token   string
	expires time.Time

	// Skew subtracted from the reported lifetime so a token is refreshed
	// slightly before the upstream deadline.
	skew  time.Duration
	fetch func(ctx context.Context) (token string, ttl time.Duration, err error)
}

// NewTokenCache creates a cache around the given fetch function. fetch must
// return the token and its lifetime.
func NewTokenCache(fetch func(ctx context.Context) (string, time.Duration, error)) *TokenCache {
	return &TokenCache{
		skew:  30 * time.Second,
		fetch: fetch,
	}
}

// Token returns the cached token, fetching a fresh one when absent or
// expired.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expires) {
		return c.token, nil
	}

	token, ttl, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expires = time.Now().Add(ttl - c.skew)
	return token, nil
}

// Invalidate discards the cached token, forcing a refresh on next use.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expires = time.Time{}
}
