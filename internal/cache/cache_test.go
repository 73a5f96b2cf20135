package cache

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/monitoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(maxSize int, ttl time.Duration) (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCache("test", maxSize, ttl)
	c.now = clock.Now
	return c, clock
}

func TestCacheSetGet(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Set("a", 2)
	v, _ = c.Get("a")
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}

func TestCacheExpiry(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", "value")

	clock.Advance(59 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCacheLRUEviction(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)

	// touch a so b becomes least recently used
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	_, okC := c.Get("c")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.True(t, okC)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCacheExpiredEntriesMakeRoomBeforeEviction(t *testing.T) {
	c, clock := newTestCache(2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	clock.Advance(2 * time.Minute)

	c.Set("c", 3)
	assert.Equal(t, int64(0), c.Stats().Evictions)
	assert.Equal(t, 1, c.Len())
}

func TestCacheDeleteAndClear(t *testing.T) {
	c, _ := newTestCache(10, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestGetOrCompute(t *testing.T) {
	c, _ := newTestCache(10, time.Hour)
	calls := 0
	fn := func() (string, error) {
		calls++
		return "computed", nil
	}

	v, hit, err := GetOrCompute(c, "k", fn)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "computed", v)

	v, hit, err = GetOrCompute(c, "k", fn)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "computed", v)
	assert.Equal(t, 1, calls)
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	c, _ := newTestCache(10, time.Hour)
	calls := 0
	boom := errors.New("boom")

	_, _, err := GetOrCompute(c, "k", func() (int, error) {
		calls++
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)

	v, _, err := GetOrCompute(c, "k", func() (int, error) {
		calls++
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 2, calls)
}

func TestKey(t *testing.T) {
	tests := []struct {
		name   string
		a      string
		b      string
		wantEq bool
	}{
		{
			name:   "kwargs order does not matter",
			a:      Key("psi:", []any{"https://example.com/"}, map[string]any{"strategy": "mobile", "lang": "en"}),
			b:      Key("psi:", []any{"https://example.com/"}, map[string]any{"lang": "en", "strategy": "mobile"}),
			wantEq: true,
		},
		{
			name:   "different args differ",
			a:      Key("psi:", []any{"https://a.com/"}, nil),
			b:      Key("psi:", []any{"https://b.com/"}, nil),
			wantEq: false,
		},
		{
			name:   "different prefixes differ",
			a:      Key("serp:", []any{"x"}, nil),
			b:      Key("whois:", []any{"x"}, nil),
			wantEq: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantEq {
				assert.Equal(t, tt.a, tt.b)
			} else {
				assert.NotEqual(t, tt.a, tt.b)
			}
		})
	}

	// md5 of "a|b|k=v"
	assert.Equal(t, "p:9b0be85f148269eebd025dfbcb236787", Key("p:", []any{"a", "b"}, map[string]any{"k": "v"}))
	assert.Len(t, Key("", []any{"x"}, nil), 32)
}

func TestRegistry(t *testing.T) {
	metrics := monitoring.NewMetrics()
	r := NewRegistry(5, time.Hour, metrics, nil)

	assert.False(t, r.Stats(NamespaceSERP).Exists)

	c := r.Get(NamespaceSERP)
	assert.Same(t, c, r.Get(NamespaceSERP))

	c.Set("k", 1)
	_, _ = c.Get("k")
	_, _ = c.Get("other")

	stats := r.Stats(NamespaceSERP)
	assert.True(t, stats.Exists)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 5, stats.MaxSize)
	assert.Equal(t, float64(3600), stats.TTLSeconds)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), metrics.CacheHits)
	assert.Equal(t, int64(1), metrics.CacheMisses)

	r.Get(NamespaceWHOIS).Set("w", 2)
	assert.Len(t, r.AllStats(), 2)

	r.ClearAll(NamespaceSERP)
	assert.Equal(t, 0, r.Stats(NamespaceSERP).Size)
	assert.Equal(t, 1, r.Stats(NamespaceWHOIS).Size)

	r.ClearAll("")
	assert.Equal(t, 0, r.Stats(NamespaceWHOIS).Size)
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache("concurrent", 50, time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i*j)%80)
				c.Set(key, j)
				_, _ = c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
}
