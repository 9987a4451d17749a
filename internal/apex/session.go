package apex

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// SessionCache holds one login token per (host, username) pair so a
// fleet of pollers logs into each controller once per process. A miss
// under concurrent callers is single-flighted: only one login request
// goes out, the rest wait for its result.
type SessionCache struct {
	mu     sync.RWMutex
	tokens map[string]string
	group  singleflight.Group
}

// NewSessionCache constructs an empty cache.
func NewSessionCache() *SessionCache {
	return &SessionCache{tokens: make(map[string]string)}
}

// LoginFunc performs a device login and returns the session token.
type LoginFunc func(ctx context.Context) (string, error)

// Token returns the cached token for (host, username), invoking login
// on a miss. Login failures are not cached.
func (c *SessionCache) Token(ctx context.Context, host, username string, login LoginFunc) (string, error) {
	key := host + "|" + username

	c.mu.RLock()
	token, ok := c.tokens[key]
	c.mu.RUnlock()
	if ok {
		return token, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		cached, ok := c.tokens[key]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}
		token, err := login(ctx)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.tokens[key] = token
		c.mu.Unlock()
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Invalidate drops the cached token for (host, username), forcing the
// next call to log in again. Used when the device rejects a session.
func (c *SessionCache) Invalidate(host, username string) {
	key := host + "|" + username
	c.mu.Lock()
	delete(c.tokens, key)
	c.mu.Unlock()
}
