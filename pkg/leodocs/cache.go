package leodocs

import (
	"container/list"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CacheConfig contains configuration options for the template cache
type CacheConfig struct {
	// MaxSize is the maximum number of templates to cache. 0 disables caching.
	MaxSize int
	// TTL is the time-to-live for cached templates. 0 means no expiration.
	TTL time.Duration
}

// TemplateCache holds prepared templates by key with LRU eviction and an
// optional TTL. Cached templates are immutable, so they are shared between
// concurrent renders without copying.
type TemplateCache struct {
	mu     sync.Mutex
	cache  map[string]*cacheEntry
	lru    *list.List
	config CacheConfig
	loads  singleflight.Group
	now    func() time.Time
}

type cacheEntry struct {
	key      string
	template *PreparedTemplate
	expiry   time.Time
	element  *list.Element
}

// NewTemplateCache creates a template cache with the given configuration.
func NewTemplateCache(config CacheConfig) *TemplateCache {
	return &TemplateCache{
		cache:  make(map[string]*cacheEntry),
		lru:    list.New(),
		config: config,
		now:    time.Now,
	}
}

// Get retrieves a template from the cache.
func (tc *TemplateCache) Get(key string) (*PreparedTemplate, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.getLocked(key)
}

func (tc *TemplateCache) getLocked(key string) (*PreparedTemplate, bool) {
	entry, exists := tc.cache[key]
	if !exists {
		return nil, false
	}
	if tc.config.TTL > 0 && tc.now().After(entry.expiry) {
		tc.removeLocked(entry)
		return nil, false
	}
	tc.lru.MoveToFront(entry.element)
	return entry.template, true
}

// Set adds a template to the cache, evicting the least recently used entry when full.
func (tc *TemplateCache) Set(key string, template *PreparedTemplate) {
	if tc.config.MaxSize <= 0 {
		return
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	var expiry time.Time
	if tc.config.TTL > 0 {
		expiry = tc.now().Add(tc.config.TTL)
	}

	if existing, exists := tc.cache[key]; exists {
		existing.template = template
		existing.expiry = expiry
		tc.lru.MoveToFront(existing.element)
		return
	}

	for tc.lru.Len() >= tc.config.MaxSize {
		oldest := tc.lru.Back()
		tc.removeLocked(oldest.Value.(*cacheEntry))
	}

	entry := &cacheEntry{key: key, template: template, expiry: expiry}
	entry.element = tc.lru.PushFront(entry)
	tc.cache[key] = entry
}

// GetOrLoad returns the cached template for key, or runs load and caches its
// result. Concurrent callers missing the same key share one load. The
// boolean reports whether the template came from the cache.
func (tc *TemplateCache) GetOrLoad(key string, load func() (*PreparedTemplate, error)) (*PreparedTemplate, bool, error) {
	if pt, ok := tc.Get(key); ok {
		return pt, true, nil
	}

	v, err, _ := tc.loads.Do(key, func() (interface{}, error) {
		// Another load may have finished between the miss above and this call.
		if pt, ok := tc.Get(key); ok {
			return pt, nil
		}
		pt, err := load()
		if err != nil {
			return nil, err
		}
		tc.Set(key, pt)
		return pt, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*PreparedTemplate), false, nil
}

// Remove removes a template from the cache and reports whether it was present.
func (tc *TemplateCache) Remove(key string) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	entry, exists := tc.cache[key]
	if !exists {
		return false
	}
	tc.removeLocked(entry)
	return true
}

func (tc *TemplateCache) removeLocked(entry *cacheEntry) {
	delete(tc.cache, entry.key)
	tc.lru.Remove(entry.element)
}

// Clear removes all templates from the cache.
func (tc *TemplateCache) Clear() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.cache = make(map[string]*cacheEntry)
	tc.lru = list.New()
}

// Size returns the current number of cached templates.
func (tc *TemplateCache) Size() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return len(tc.cache)
}

// Keys returns the cached keys in sorted order.
func (tc *TemplateCache) Keys() []string {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	keys := make([]string, 0, len(tc.cache))
	for k := range tc.cache {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close clears the cache.
func (tc *TemplateCache) Close() error {
	tc.Clear()
	return nil
}
