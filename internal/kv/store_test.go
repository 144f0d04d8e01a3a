package kv

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) (Store, func(time.Duration))

func memoryFactory(t *testing.T) (Store, func(time.Duration)) {
	var mu sync.Mutex
	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}
	return NewMemoryStoreWithClock(clock), advance
}

func redisFactory(t *testing.T) (Store, func(time.Duration)) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(rdb, "test:")
	t.Cleanup(func() { _ = store.Close() })
	return store, mr.FastForward
}

func TestStores(t *testing.T) {
	factories := map[string]storeFactory{
		"memory": memoryFactory,
		"redis":  redisFactory,
	}
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			runStoreSuite(t, factory)
		})
	}
}

func runStoreSuite(t *testing.T, factory storeFactory) {
	ctx := context.Background()

	t.Run("get returns not found for missing keys", func(t *testing.T) {
		s, _ := factory(t)

		_, err := s.Get(ctx, "missing")

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set with ttl expires", func(t *testing.T) {
		s, advance := factory(t)
		require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))

		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)

		advance(61 * time.Second)

		_, err = s.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrNotFound)
		exists, err := s.Exists(ctx, "k")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("setnx only succeeds once until expiry", func(t *testing.T) {
		s, advance := factory(t)

		ok, err := s.SetNX(ctx, "lock", []byte("a"), time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.SetNX(ctx, "lock", []byte("b"), time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		advance(2 * time.Minute)

		ok, err = s.SetNX(ctx, "lock", []byte("c"), time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("setnx admits exactly one concurrent writer", func(t *testing.T) {
		s, _ := factory(t)
		var winners atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.SetNX(ctx, "race", []byte("x"), time.Minute)
				assert.NoError(t, err)
				if ok {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), winners.Load())
	})

	t.Run("del if equal only removes the matching value", func(t *testing.T) {
		s, _ := factory(t)
		require.NoError(t, s.Set(ctx, "owner", []byte("token-1"), 0))

		ok, err := s.DelIfEqual(ctx, "owner", []byte("token-2"))
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = s.DelIfEqual(ctx, "owner", []byte("token-1"))
		require.NoError(t, err)
		assert.True(t, ok)

		exists, err := s.Exists(ctx, "owner")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("lists keep the newest entries after trim", func(t *testing.T) {
		s, _ := factory(t)
		for _, v := range []string{"1", "2", "3", "4"} {
			require.NoError(t, s.LPush(ctx, "history", []byte(v)))
			require.NoError(t, s.LTrim(ctx, "history", 0, 2))
		}

		got, err := s.LRange(ctx, "history", 0, -1)
		require.NoError(t, err)
		assert.Equal(t, [][]byte{[]byte("4"), []byte("3"), []byte("2")}, got)

		got, err = s.LRange(ctx, "history", 0, 0)
		require.NoError(t, err)
		assert.Equal(t, [][]byte{[]byte("4")}, got)
	})

	t.Run("keys lists by prefix", func(t *testing.T) {
		s, _ := factory(t)
		require.NoError(t, s.Set(ctx, "sync_lock:all", []byte("1"), time.Minute))
		require.NoError(t, s.Set(ctx, "sync_lock:repo:acme/widgets", []byte("2"), time.Minute))
		require.NoError(t, s.Set(ctx, "cache:x", []byte("3"), time.Minute))

		keys, err := s.Keys(ctx, "sync_lock:")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"sync_lock:all", "sync_lock:repo:acme/widgets"}, keys)

		require.NoError(t, s.Del(ctx, "sync_lock:all", "cache:x"))
		keys, err = s.Keys(ctx, "sync_lock:")
		require.NoError(t, err)
		assert.Equal(t, []string{"sync_lock:repo:acme/widgets"}, keys)
	})
}
