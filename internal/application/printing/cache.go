package printing

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/docforge/backend/internal/infrastructure/templating"
)

const defaultCacheSize = 256

// compiledCache holds parsed template bodies keyed by template version ID.
// A version's markup never changes, so entries never go stale; the cache is
// bounded and evicts an arbitrary entry when full.
type compiledCache struct {
	mu      sync.RWMutex
	entries map[string]*templating.Template
	limit   int
	group   singleflight.Group
}

func newCompiledCache(limit int) *compiledCache {
	if limit <= 0 {
		limit = defaultCacheSize
	}
	return &compiledCache{entries: make(map[string]*templating.Template), limit: limit}
}

// get returns the cached template or compiles it once, however many callers ask concurrently
func (c *compiledCache) get(key string, compile func() (*templating.Template, error)) (*templating.Template, error) {
	c.mu.RLock()
	t, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return t, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		t, err := compile()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if len(c.entries) >= c.limit {
			for k := range c.entries {
				delete(c.entries, k)
				break
			}
		}
		c.entries[key] = t
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*templating.Template), nil
}

func (c *compiledCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
