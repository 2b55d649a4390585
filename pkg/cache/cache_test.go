package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetGetAndExpire(t *testing.T) {
	c := New(10, 0)
	now := time.Now()
	c.now = func() time.Time { return now }

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k", "hello", time.Minute)
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "hello", v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok, "expired value should be gone")
	assert.Equal(t, 0, c.Len())
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2, 0)
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	_, _ = c.Get("a") // a becomes MRU
	c.Set("c", 3, 0)

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestDeleteAndPurge(t *testing.T) {
	c := New(0, time.Millisecond)
	defer c.Close()
	c.Set("x", 42, time.Second)
	c.Set("y", 43, time.Second)
	c.Delete("x")
	_, ok := c.Get("x")
	assert.False(t, ok)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestKeyFromStringsStability(t *testing.T) {
	assert.Equal(t, KeyFromStrings("a", "b", "c"), KeyFromStrings("a", "b", "c"))
	assert.NotEqual(t, KeyFromStrings("a", "b", "c"), KeyFromStrings("a", "b", "d"))
	assert.NotEqual(t, KeyFromStrings("ab", "c"), KeyFromStrings("a", "bc"))
}
