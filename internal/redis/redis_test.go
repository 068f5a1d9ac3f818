package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*CalendarCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := NewClient(mr.Addr(), "", "")
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCalendarCache(rdb, 5*time.Minute), mr
}

func TestCalendarCacheRoundTrip(t *testing.T) {
	cache, mr := newCache(t)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "2024-01-01:2024-02-01:UTC")
	assert.False(t, ok)

	cache.Set(ctx, "2024-01-01:2024-02-01:UTC", []byte(`[]`))
	got, ok := cache.Get(ctx, "2024-01-01:2024-02-01:UTC")
	require.True(t, ok)
	assert.Equal(t, `[]`, string(got))

	assert.True(t, mr.Exists("calendar:2024-01-01:2024-02-01:UTC"))
	assert.Equal(t, 5*time.Minute, mr.TTL("calendar:2024-01-01:2024-02-01:UTC"))

	mr.FastForward(6 * time.Minute)
	_, ok = cache.Get(ctx, "2024-01-01:2024-02-01:UTC")
	assert.False(t, ok)
}

func TestCalendarCacheInvalidateKeepsOtherKeys(t *testing.T) {
	cache, mr := newCache(t)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		cache.Set(ctx, k, []byte(k))
	}
	require.NoError(t, mr.Set("session:1", "keep"))

	cache.Invalidate(ctx)

	for _, k := range []string{"a", "b", "c"} {
		_, ok := cache.Get(ctx, k)
		assert.False(t, ok, k)
	}
	assert.True(t, mr.Exists("session:1"))
}

func TestCalendarCacheGeneration(t *testing.T) {
	cache, mr := newCache(t)
	ctx := context.Background()

	gen, ok := cache.Generation(ctx)
	require.True(t, ok)
	assert.Equal(t, "0", gen)

	cache.Invalidate(ctx)
	cache.Invalidate(ctx)
	gen, ok = cache.Generation(ctx)
	require.True(t, ok)
	assert.Equal(t, "2", gen)
	assert.True(t, mr.Exists("calendar-generation"))
}

func TestCalendarCacheDownIsAMiss(t *testing.T) {
	cache, mr := newCache(t)
	mr.Close()

	_, ok := cache.Generation(context.Background())
	assert.False(t, ok)
	_, ok = cache.Get(context.Background(), "a")
	assert.False(t, ok)
	cache.Set(context.Background(), "a", []byte("x"))
	cache.Invalidate(context.Background())
}
