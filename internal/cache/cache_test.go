package cache

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-dashboard-sync/internal/kv"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache() (*Cache, *testClock) {
	clock := &testClock{now: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(kv.NewMemoryStoreWithClock(clock.Now), DefaultPolicy(), logger), clock
}

func TestKey(t *testing.T) {
	a := Key("/repos/acme/widgets/issues", "GET", url.Values{"state": {"all"}, "page": {"2"}, "labels": {"b", "a"}})
	b := Key("/repos/acme/widgets/issues", "get", url.Values{"page": {"2"}, "labels": {"a", "b"}, "state": {"all"}})
	c := Key("/repos/acme/widgets/issues", "GET", url.Values{"state": {"open"}, "page": {"2"}})
	d := Key("/repos/acme/widgets/pulls", "GET", url.Values{"state": {"all"}, "page": {"2"}, "labels": {"b", "a"}})

	assert.Equal(t, a, b, "parameter order must not matter")
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		endpoint string
		want     Class
	}{
		{"/v1/sync/status", ClassStatus},
		{"/rate_limit", ClassStatus},
		{"/repos/acme/widgets/issues", ClassListing},
		{"/repos/acme/widgets/pulls", ClassListing},
		{"/v1/repositories", ClassListing},
		{"/repos/acme/widgets", ClassListing},
		{"/repos/acme/widgets/languages", ClassStats},
		{"/v1/repositories/acme/widgets/stats/top-committers", ClassStats},
		{"/repos/acme/stats/issues", ClassListing},
		{"/repos/acme/sync/commits", ClassListing},
		{"/repos/acme/widgets/readme", ClassDefault},
		{"/health", ClassDefault},
	}
	for _, tc := range tests {
		t.Run(tc.endpoint, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.endpoint))
		})
	}
}

func TestCache_TTLHonored(t *testing.T) {
	c, clock := newTestCache()
	ctx := context.Background()
	key := Key("/repos/acme/widgets/issues", "GET", nil)
	ttl := c.Policy().TTL("/repos/acme/widgets/issues")
	require.Equal(t, 10*time.Minute, ttl)

	_, ok := c.Get(ctx, key)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, key, []byte("payload"), ttl))
	clock.Advance(9 * time.Minute)
	got, ok := c.Get(ctx, key)
	assert.True(t, ok)
	assert.Equal(t, []byte("payload"), got)

	clock.Advance(2 * time.Minute)
	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
}

func TestCache_Middleware(t *testing.T) {
	c, clock := newTestCache()
	var calls atomic.Int32
	handler := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("fail") != "" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	do := func(method, target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
		return rec
	}

	first := do(http.MethodGet, "/v1/sync/status")
	assert.Equal(t, "MISS", first.Header().Get(HeaderCache))

	second := do(http.MethodGet, "/v1/sync/status")
	assert.Equal(t, "HIT", second.Header().Get(HeaderCache))
	assert.Equal(t, `{"ok":true}`, second.Body.String())
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(61 * time.Second)
	do(http.MethodGet, "/v1/sync/status")
	assert.Equal(t, int32(2), calls.Load(), "status class expires after a minute")

	do(http.MethodPost, "/v1/sync/status")
	do(http.MethodPost, "/v1/sync/status")
	assert.Equal(t, int32(4), calls.Load(), "writes are never cached")

	do(http.MethodGet, "/v1/repositories?fail=1")
	do(http.MethodGet, "/v1/repositories?fail=1")
	assert.Equal(t, int32(6), calls.Load(), "errors are never cached")
}
