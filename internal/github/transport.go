package github

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github-dashboard-sync/internal/cache"
	"github-dashboard-sync/internal/ratelimit"
	"github-dashboard-sync/internal/telemetry"
)

// headerFromCache makes go-github skip rate-limit bookkeeping for replayed responses.
const headerFromCache = "X-From-Cache"

// limitTransport consults the shared limiter before a request leaves the
// process and feeds response headers back into it.
type limitTransport struct {
	next    http.RoundTripper
	limiter *ratelimit.Limiter
	metrics *telemetry.UpstreamMetrics
	logger  *slog.Logger
}

func (t *limitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if d := t.limiter.CheckBudget(); !d.Allowed {
		t.metrics.RecordBudgetDenied(req.Context())
		t.logger.Warn("Upstream call refused, rate limit budget exhausted",
			"path", req.URL.Path, "retry_after", d.RetryAfter.String())
		return nil, d.Err()
	}

	resp, err := t.next.RoundTrip(req)
	if resp != nil && t.limiter.RecordHeaders(resp.Header) {
		t.metrics.RecordRemaining(req.Context(), t.limiter.Snapshot().Remaining)
	}
	return resp, err
}

type cachedResponse struct {
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
}

// cacheTransport answers idempotent requests from the response cache and
// stores successful responses on the way back.
type cacheTransport struct {
	next    http.RoundTripper
	cache   *cache.Cache
	metrics *telemetry.UpstreamMetrics
	logger  *slog.Logger
}

func (t *cacheTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		resp, err := t.next.RoundTrip(req)
		if resp != nil {
			t.metrics.RecordRequest(ctx, "bypass", resp.StatusCode)
		}
		return resp, err
	}

	key := cache.Key(req.URL.Path, req.Method, req.URL.Query())
	if raw, ok := t.cache.Get(ctx, key); ok {
		var cached cachedResponse
		if err := json.Unmarshal(raw, &cached); err == nil {
			t.metrics.RecordRequest(ctx, "hit", cached.StatusCode)
			return cached.toResponse(req), nil
		}
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	t.metrics.RecordRequest(ctx, "miss", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	raw, err := json.Marshal(cachedResponse{
		StatusCode: resp.StatusCode,
		Header:     withoutRateLimitHeaders(resp.Header),
		Body:       body,
	})
	if err == nil {
		if err := t.cache.Put(ctx, key, raw, t.cache.Policy().TTL(req.URL.Path)); err != nil {
			t.logger.Warn("Failed to cache upstream response", "path", req.URL.Path, "error", err)
		}
	}
	return resp, nil
}

func (c cachedResponse) toResponse(req *http.Request) *http.Response {
	header := c.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set(headerFromCache, "1")
	return &http.Response{
		Status:        http.StatusText(c.StatusCode),
		StatusCode:    c.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(c.Body)),
		ContentLength: int64(len(c.Body)),
		Request:       req,
	}
}

// withoutRateLimitHeaders drops budget headers so replayed responses never
// overwrite the live rate-limit state.
func withoutRateLimitHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		if strings.HasPrefix(strings.ToLower(k), "x-ratelimit-") {
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	return out
}
