package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, New(rdb, "test", ttl)
}

func Test_SetGetDelete(t *testing.T) {
	_, c := newTestCache(t, time.Minute)
	ctx := context.Background()

	var got []string
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrMiss)

	require.NoError(t, c.Set(ctx, "k", []string{"a", "b"}))
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, []string{"a", "b"}, got)

	require.NoError(t, c.Delete(ctx, "k"))
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrMiss)
}

func Test_EntriesExpire(t *testing.T) {
	mr, c := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", 42))
	mr.FastForward(2 * time.Minute)

	var got int
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrMiss)
}

func Test_GetOrLoadCachesValue(t *testing.T) {
	_, c := newTestCache(t, time.Minute)
	ctx := context.Background()

	var calls atomic.Int32
	load := func(context.Context) ([]int, error) {
		calls.Add(1)
		return []int{1, 2, 3}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := GetOrLoad(ctx, c, "ids", load)
			assert.NoError(t, err)
			assert.Equal(t, []int{1, 2, 3}, v)
		}()
	}
	wg.Wait()
	before := calls.Load()
	assert.GreaterOrEqual(t, before, int32(1))

	v, err := GetOrLoad(ctx, c, "ids", load)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, v)
	assert.Equal(t, before, calls.Load(), "second read must be served from redis")
}

func Test_GetOrLoadDoesNotCacheErrors(t *testing.T) {
	_, c := newTestCache(t, time.Minute)
	ctx := context.Background()

	boom := errors.New("db down")
	_, err := GetOrLoad(ctx, c, "k", func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	v, err := GetOrLoad(ctx, c, "k", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
