package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[string, string](2, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	// "b" is now least recently used.
	c.Set("c", "3")
	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Size())

	c.Set("a", "updated")
	v, _ = c.Get("a")
	assert.Equal(t, "updated", v)

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestLRUCache_Expiry(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string, int](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("x", 1)
	c.Set("y", 2)
	now = now.Add(2 * time.Minute)
	c.Set("z", 3)

	_, ok := c.Get("x")
	assert.False(t, ok, "expired entries are not served")
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 1, c.Size())

	v, ok := c.Get("z")
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

type pair struct{ from, to string }

func TestLRUCache_StructKeys(t *testing.T) {
	c := NewLRUCache[pair, int](10, time.Minute)
	c.Set(pair{"USD", "CNY"}, 1)
	c.Set(pair{"CNY", "USD"}, 2)
	c.Set(pair{"EUR", "CNY"}, 3)

	v, ok := c.Get(pair{"CNY", "USD"})
	require.True(t, ok)
	assert.Equal(t, 2, v)

	removed := c.DeleteFunc(func(k pair) bool { return k.from == "USD" || k.to == "USD" })
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Size())
	_, ok = c.Get(pair{"EUR", "CNY"})
	assert.True(t, ok)
}

func TestLRUCache_Purge(t *testing.T) {
	c := NewLRUCache[int, int](10, time.Minute)
	for i := 0; i < 5; i++ {
		c.Set(i, i)
	}
	c.Purge()
	assert.Zero(t, c.Size())

	c.Set(7, 1)
	assert.Equal(t, 1, c.Size())
}

func TestLRUCache_Concurrent(t *testing.T) {
	c := NewLRUCache[string, int](50, time.Minute)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("%d-%d", g, i%20)
				c.Set(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Size(), 50)
}

type countingCleaner struct {
	mu    sync.Mutex
	calls int
}

func (c *countingCleaner) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 1
}

func (c *countingCleaner) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestManager(t *testing.T) {
	first, second := &countingCleaner{}, &countingCleaner{}
	m := NewManager()
	m.Register(first)
	m.Register(second)

	assert.Equal(t, 2, m.Sweep())

	m.StartCleanup(5 * time.Millisecond)
	require.Eventually(t, func() bool { return first.Calls() >= 3 }, time.Second, 5*time.Millisecond)
	m.Stop()
	m.Stop()

	calls := first.Calls()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, first.Calls())
	assert.Equal(t, first.Calls(), second.Calls())
}
