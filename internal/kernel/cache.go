package kernel

import (
	"fmt"
	"sync"
	"time"

	"github.com/hookflow/hookflow/internal/agent"
	"github.com/hookflow/hookflow/internal/event"
)

// DefaultCacheTTL bounds how long a cached dispatch result stays valid.
const DefaultCacheTTL = 30 * time.Second

type cacheEntry struct {
	result  agent.Result
	expires time.Time
}

// resultCache holds hook dispatch results keyed by hook and event shape.
// Expired entries are dropped lazily on lookup.
type resultCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

func newResultCache(ttl time.Duration) *resultCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &resultCache{entries: make(map[string]cacheEntry), ttl: ttl}
}

func cacheKey(hookID string, evt event.Event) string {
	return fmt.Sprintf("%s|%s|%s|%s", hookID, evt.Kind, evt.Phase, evt.Operation)
}

func (c *resultCache) get(key string) (agent.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return agent.Result{}, false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, key)
		return agent.Result{}, false
	}
	return e.result, true
}

func (c *resultCache) put(key string, res agent.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{result: res, expires: time.Now().Add(c.ttl)}
}

func (c *resultCache) invalidateHook(hookID string) {
	prefix := hookID + "|"
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
