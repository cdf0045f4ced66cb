// file: internal/cache/cache_test.go
// version: 2.0.0
// guid: b2c3d4e5-f6a7-8b9c-0d1e-2f3a4b5c6d7e

package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/manga-organizer/internal/matcher"
)

func TestGetSet(t *testing.T) {
	c := New[string](time.Minute)
	c.Set("k", "v")
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewWithClock[int](time.Minute, clock)
	c.Set("k", 42)

	clock.Advance(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry expires at exactly the TTL")
}

func TestInvalidate(t *testing.T) {
	c := New[string](time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Invalidate("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestInvalidateAll(t *testing.T) {
	c := New[int](time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.InvalidateAll()
	assert.Zero(t, c.Len())
}

func TestGetOrLoad(t *testing.T) {
	c := New[int](time.Minute)
	var calls atomic.Int32
	load := func() (int, error) {
		calls.Add(1)
		return 7, nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrLoad("k", load)
			assert.NoError(t, err)
			assert.Equal(t, 7, v)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOrLoad_ErrorNotCached(t *testing.T) {
	c := New[int](time.Minute)
	boom := errors.New("boom")

	_, err := c.GetOrLoad("k", func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	v, err := c.GetOrLoad("k", func() (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestCatalogCache(t *testing.T) {
	clock := clockwork.NewFakeClock()
	loads := 0
	catalog := []matcher.Candidate{{ID: "a", TitleCanonical: "Blue Period"}}
	cc := NewCatalogCacheWithClock(func() ([]matcher.Candidate, error) {
		loads++
		return catalog, nil
	}, 30*time.Second, clock)

	got, err := cc.Get()
	require.NoError(t, err)
	assert.Equal(t, catalog, got)
	_, _ = cc.Get()
	assert.Equal(t, 1, loads)

	cc.Invalidate()
	_, _ = cc.Get()
	assert.Equal(t, 2, loads)

	clock.Advance(31 * time.Second)
	_, _ = cc.Get()
	assert.Equal(t, 3, loads)
}

func TestCatalogCache_ZeroTTL(t *testing.T) {
	loads := 0
	cc := NewCatalogCache(func() ([]matcher.Candidate, error) {
		loads++
		return nil, nil
	}, 0)
	_, _ = cc.Get()
	_, _ = cc.Get()
	assert.Equal(t, 2, loads)
}
