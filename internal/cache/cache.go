package cache

import (
	"container/list"
	"crypto/md5"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/monitoring"
)

// Namespaces used by the metric adapters.
const (
	NamespacePageSpeed = "pagespeed"
	NamespaceSERP      = "serp"
	NamespaceWHOIS     = "whois"
	NamespaceAuthority = "authority"
)

const (
	DefaultMaxSize = 1000
	DefaultTTL     = 6 * time.Hour
)

// cacheItem represents a cached value with expiration
type cacheItem struct {
	key       string
	value     any
	expiresAt time.Time
}

func (i *cacheItem) isExpired(now time.Time) bool {
	return !now.Before(i.expiresAt)
}

// Stats is the snapshot reported for one namespace.
type Stats struct {
	Exists     bool    `json:"exists"`
	Size       int     `json:"size,omitempty"`
	MaxSize    int     `json:"maxsize,omitempty"`
	TTLSeconds float64 `json:"ttl,omitempty"`
	Hits       int64   `json:"hits,omitempty"`
	Misses     int64   `json:"misses,omitempty"`
	Evictions  int64   `json:"evictions,omitempty"`
}

// Cache is a bounded, thread-safe TTL cache. When full, the least recently
// used entry is evicted.
type Cache struct {
	mu      sync.Mutex
	name    string
	items   map[string]*list.Element
	order   *list.List
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	hits      int64
	misses    int64
	evictions int64

	metrics *monitoring.Metrics
	logger  *monitoring.Logger
}

// NewCache creates a cache holding at most maxSize entries for ttl each.
func NewCache(name string, maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		name:    name,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get retrieves a live value and marks it as recently used.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if ok && el.Value.(*cacheItem).isExpired(c.now()) {
		c.removeElement(el)
		ok = false
	}

	if !ok {
		c.misses++
		c.record(key, false)
		return nil, false
	}

	c.order.MoveToFront(el)
	c.hits++
	c.record(key, true)
	return el.Value.(*cacheItem).value, true
}

// Set stores a value, replacing any previous entry under key.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if el, ok := c.items[key]; ok {
		item := el.Value.(*cacheItem)
		item.value = value
		item.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	c.purgeExpired()
	for c.order.Len() >= c.maxSize {
		c.removeElement(c.order.Back())
		c.evictions++
	}

	c.items[key] = c.order.PushFront(&cacheItem{key: key, value: value, expiresAt: expiresAt})
}

// Delete removes an item from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Clear removes all items from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeExpired()
	return c.order.Len()
}

// Stats returns cache statistics
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeExpired()
	return Stats{
		Exists:     true,
		Size:       c.order.Len(),
		MaxSize:    c.maxSize,
		TTLSeconds: c.ttl.Seconds(),
		Hits:       c.hits,
		Misses:     c.misses,
		Evictions:  c.evictions,
	}
}

func (c *Cache) purgeExpired() {
	now := c.now()
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*cacheItem).isExpired(now) {
			c.removeElement(el)
		}
		el = prev
	}
}

func (c *Cache) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*cacheItem).key)
}

func (c *Cache) record(key string, hit bool) {
	if c.metrics != nil {
		if hit {
			c.metrics.IncrementCacheHit()
		} else {
			c.metrics.IncrementCacheMiss()
		}
	}
	if c.logger != nil {
		short := key
		if len(short) > 8 {
			short = short[:8] + "..."
		}
		c.logger.CacheLogger(c.name, short, hit, c.order.Len())
	}
}

// GetOrCompute returns the cached value for key, reporting true, or runs fn
// and stores its result. Failed computations are not cached. Concurrent
// misses on the same key may each run fn.
func GetOrCompute[T any](c *Cache, key string, fn func() (T, error)) (T, bool, error) {
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, true, nil
		}
	}

	result, err := fn()
	if err != nil {
		return result, false, err
	}

	c.Set(key, result)
	return result, false, nil
}

// Key builds a deterministic cache key: prefix followed by the md5 of the
// "|"-joined arguments and the sorted k=v pairs of kwargs.
func Key(prefix string, args []any, kwargs map[string]any) string {
	parts := make([]string, 0, len(args)+len(kwargs))
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}

	names := make([]string, 0, len(kwargs))
	for k := range kwargs {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		parts = append(parts, fmt.Sprintf("%s=%v", k, kwargs[k]))
	}

	hash := md5.Sum([]byte(strings.Join(parts, "|")))
	return prefix + fmt.Sprintf("%x", hash)
}

// Registry hands out one Cache per namespace, creating it on first use.
type Registry struct {
	mu      sync.Mutex
	caches  map[string]*Cache
	maxSize int
	ttl     time.Duration
	metrics *monitoring.Metrics
	logger  *monitoring.Logger
}

// NewRegistry creates a registry whose caches share size and TTL defaults.
// metrics and logger may be nil.
func NewRegistry(maxSize int, ttl time.Duration, metrics *monitoring.Metrics, logger *monitoring.Logger) *Registry {
	var l *monitoring.Logger
	if logger != nil {
		l = logger.WithComponent("cache")
	}
	return &Registry{
		caches:  make(map[string]*Cache),
		maxSize: maxSize,
		ttl:     ttl,
		metrics: metrics,
		logger:  l,
	}
}

// Get returns the namespace's cache, creating it if needed.
func (r *Registry) Get(name string) *Cache {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.caches[name]; ok {
		return c
	}
	c := NewCache(name, r.maxSize, r.ttl)
	c.metrics = r.metrics
	c.logger = r.logger
	r.caches[name] = c
	return c
}

// ClearAll empties one namespace, or every namespace when name is empty.
func (r *Registry) ClearAll(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name != "" {
		if c, ok := r.caches[name]; ok {
			c.Clear()
		}
		return
	}
	for _, c := range r.caches {
		c.Clear()
	}
}

// Stats reports on one namespace. Unknown namespaces report Exists=false.
func (r *Registry) Stats(name string) Stats {
	r.mu.Lock()
	c, ok := r.caches[name]
	r.mu.Unlock()

	if !ok {
		return Stats{Exists: false}
	}
	return c.Stats()
}

// AllStats reports on every namespace created so far.
func (r *Registry) AllStats() map[string]Stats {
	r.mu.Lock()
	names := make([]string, 0, len(r.caches))
	for name := range r.caches {
		names = append(names, name)
	}
	r.mu.Unlock()

	out := make(map[string]Stats, len(names))
	for _, name := range names {
		out[name] = r.Stats(name)
	}
	return out
}
