package lock

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-dashboard-sync/internal/kv"
	"github-dashboard-sync/internal/model"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLocker() (*Locker, *clock) {
	c := &clock{now: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	l := NewLocker(kv.NewMemoryStoreWithClock(c.Now), logger)
	l.now = c.Now
	return l, c
}

func TestLocker_AcquireRelease(t *testing.T) {
	ctx := context.Background()

	t.Run("second acquire reports already held with holder info", func(t *testing.T) {
		l, _ := newTestLocker()

		tok, ok, err := l.Acquire(ctx, ClassAll, time.Minute, Meta{RunID: "run-1", Type: model.SyncTypeFull})
		require.NoError(t, err)
		require.True(t, ok)

		_, ok, err = l.Acquire(ctx, ClassAll, time.Minute, Meta{RunID: "run-2"})
		require.NoError(t, err)
		assert.False(t, ok)

		holder, held, err := l.Holder(ctx, ClassAll)
		require.NoError(t, err)
		require.True(t, held)
		assert.Equal(t, "run-1", holder.RunID)
		assert.Equal(t, model.SyncTypeFull, holder.Type)

		require.NoError(t, l.Release(ctx, tok))
		_, ok, err = l.Acquire(ctx, ClassAll, time.Minute, Meta{RunID: "run-3"})
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("lock self expires after ttl", func(t *testing.T) {
		l, c := newTestLocker()

		_, ok, err := l.Acquire(ctx, ClassAll, 30*time.Minute, Meta{})
		require.NoError(t, err)
		require.True(t, ok)

		c.Advance(31 * time.Minute)

		_, ok, err = l.Acquire(ctx, ClassAll, 30*time.Minute, Meta{})
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("stale token cannot release a newer holder", func(t *testing.T) {
		l, c := newTestLocker()

		stale, ok, err := l.Acquire(ctx, ClassAll, time.Minute, Meta{RunID: "old"})
		require.NoError(t, err)
		require.True(t, ok)
		c.Advance(2 * time.Minute)
		_, ok, err = l.Acquire(ctx, ClassAll, time.Minute, Meta{RunID: "new"})
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, l.Release(ctx, stale))

		holder, held, err := l.Holder(ctx, ClassAll)
		require.NoError(t, err)
		assert.True(t, held)
		assert.Equal(t, "new", holder.RunID)
	})

	t.Run("exactly one concurrent acquirer wins", func(t *testing.T) {
		l, _ := newTestLocker()
		var winners atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, ok, err := l.Acquire(ctx, ClassAll, time.Minute, Meta{})
				assert.NoError(t, err)
				if ok {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), winners.Load())
	})

	t.Run("held lists class and repository locks", func(t *testing.T) {
		l, _ := newTestLocker()
		_, _, err := l.Acquire(ctx, ClassAll, time.Minute, Meta{RunID: "r"})
		require.NoError(t, err)
		_, _, err = l.Acquire(ctx, RepoLockName("acme/widgets"), time.Minute, Meta{RunID: "r"})
		require.NoError(t, err)

		holders, err := l.Held(ctx)
		require.NoError(t, err)
		names := make([]string, 0, len(holders))
		for _, h := range holders {
			names = append(names, h.Name)
		}
		assert.ElementsMatch(t, []string{"all", "repo:acme/widgets"}, names)
	})
}
