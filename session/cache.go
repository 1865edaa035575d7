package session

import (
	"sync"

	"github.com/sessiongate/sessiongate/backend"
)

// Scope separates the end-user and admin surfaces; each caches its own
// identity snapshot.
type Scope string

const (
	ScopeUser  Scope = "user"
	ScopeAdmin Scope = "admin"
)

// Cache holds identity snapshots keyed by scope. Every entry remembers the
// token it was fetched with and is never returned for a different token, so
// a re-login invalidates it even if no hook fired.
type Cache struct {
	mu      sync.RWMutex
	entries map[Scope]cacheEntry
}

type cacheEntry struct {
	token    string
	identity *backend.Identity
}

func NewCache() *Cache {
	return &Cache{entries: make(map[Scope]cacheEntry)}
}

func (c *Cache) Get(scope Scope, token string) (*backend.Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[scope]
	if !ok || entry.token != token {
		return nil, false
	}
	return entry.identity, true
}

func (c *Cache) Put(scope Scope, token string, identity *backend.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[scope] = cacheEntry{token: token, identity: identity}
}

func (c *Cache) Invalidate(scope Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, scope)
}

func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Scope]cacheEntry)
}
