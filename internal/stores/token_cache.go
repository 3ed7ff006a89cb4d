package stores

import (
	"sync"
	"time"

	"github.com/systmms/secretctl/internal/secure"
)

// tokenExpiryBuffer is subtracted from the token deadline so a token is
// refreshed before it can expire mid-request.
const tokenExpiryBuffer = 5 * time.Second

// TokenCache holds a short-lived authentication token together with its
// expiry. The token bytes sit in an encrypted enclave between uses; Get
// hands out a transient plain-string copy for the Authorization header.
// Safe for concurrent use.
type TokenCache struct {
	mu        sync.RWMutex
	token     *secure.Buffer
	expiresAt time.Time
}

// NewTokenCache creates an empty token cache.
func NewTokenCache() *TokenCache {
	return &TokenCache{}
}

// Get returns the cached token if one is present and still valid.
func (tc *TokenCache) Get() (string, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	if tc.token == nil {
		return "", false
	}
	if time.Now().After(tc.expiresAt.Add(-tokenExpiryBuffer)) {
		return "", false
	}

	token, err := tc.token.Reveal()
	if err != nil {
		return "", false
	}
	return token, true
}

// Set stores a token with its time-to-live, replacing any previous one.
func (tc *TokenCache) Set(token string, ttl time.Duration) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.token != nil {
		tc.token.Destroy()
	}
	tc.token = secure.NewBuffer([]byte(token))
	tc.expiresAt = time.Now().Add(ttl)
}

// Clear destroys the cached token.
func (tc *TokenCache) Clear() {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.token != nil {
		tc.token.Destroy()
		tc.token = nil
	}
	tc.expiresAt = time.Time{}
}

// IsExpired reports whether the cache holds no usable token.
func (tc *TokenCache) IsExpired() bool {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	if tc.token == nil {
		return true
	}
	return time.Now().After(tc.expiresAt.Add(-tokenExpiryBuffer))
}

// ExpiresAt returns the deadline of the cached token, zero when empty.
func (tc *TokenCache) ExpiresAt() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.expiresAt
}

// TTL returns the remaining lifetime of the cached token.
func (tc *TokenCache) TTL() time.Duration {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	if tc.token == nil {
		return 0
	}
	remaining := time.Until(tc.expiresAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}
