// Package ratelimit tracks the upstream API call budget shared by every sync worker.
package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	custom_errors "github-dashboard-sync/internal/errors"
	"github-dashboard-sync/internal/model"
)

const (
	// DefaultLowWaterMark is the remaining budget at which calls are refused until reset.
	DefaultLowWaterMark = 10
	// DefaultHourlyBudget is the local budget used when upstream headers are unavailable.
	DefaultHourlyBudget = 5000

	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
	HeaderLimit     = "X-RateLimit-Limit"

	sourceUpstream = "upstream"
	sourceLocal    = "local"
)

// Decision is the outcome of a budget check.
type Decision struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Err returns nil for allowed decisions and a *QuotaExceededError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &custom_errors.QuotaExceededError{
		Remaining:  d.Remaining,
		ResetAt:    d.ResetAt,
		RetryAfter: d.RetryAfter,
	}
}

// Limiter holds the process-wide rate-limit state. Upstream headers are the
// source of truth; a rolling-hour token bucket covers the gaps.
type Limiter struct {
	mu        sync.Mutex
	limit     int
	remaining int
	resetAt   time.Time
	updatedAt time.Time
	known     bool

	lowWater int
	budget   int
	fallback *rate.Limiter
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Limiter)

func WithLowWaterMark(n int) Option {
	return func(l *Limiter) { l.lowWater = n }
}

func WithHourlyBudget(n int) Option {
	return func(l *Limiter) { l.budget = n }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// New creates a Limiter with no upstream signal yet.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		lowWater: DefaultLowWaterMark,
		budget:   DefaultHourlyBudget,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.budget <= 0 {
		l.budget = DefaultHourlyBudget
	}
	l.fallback = newHourlyBucket(l.budget)
	return l
}

// newHourlyBucket splits budget between burst and hourly refill so that no
// rolling hour admits more than budget calls.
func newHourlyBucket(budget int) *rate.Limiter {
	burst := (budget + 1) / 2
	refill := budget - burst
	if refill == 0 {
		return rate.NewLimiter(rate.Every(time.Hour), burst)
	}
	return rate.NewLimiter(rate.Every(time.Hour/time.Duration(refill)), burst)
}

// CheckBudget decides whether one upstream call may be issued and, if so,
// consumes one unit of budget in the same critical section.
func (l *Limiter) CheckBudget() Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.decide(true)
}

// Peek reports what CheckBudget would decide without consuming budget.
func (l *Limiter) Peek() Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.decide(false)
}

func (l *Limiter) decide(consume bool) Decision {
	now := l.now()
	if l.known && now.Before(l.resetAt) {
		if l.remaining <= l.lowWater {
			return Decision{
				Remaining:  l.remaining,
				ResetAt:    l.resetAt,
				RetryAfter: l.resetAt.Sub(now),
			}
		}
		if consume {
			l.remaining--
		}
		return Decision{Allowed: true, Remaining: l.remaining, ResetAt: l.resetAt}
	}

	// No upstream signal, or its window has elapsed.
	r := l.fallback.ReserveN(now, 1)
	if !r.OK() {
		return Decision{ResetAt: now.Add(time.Hour), RetryAfter: time.Hour}
	}
	delay := r.DelayFrom(now)
	if delay > 0 || !consume {
		r.CancelAt(now)
	}
	tokens := int(l.fallback.TokensAt(now))
	if delay > 0 {
		return Decision{Remaining: tokens, ResetAt: now.Add(delay), RetryAfter: delay}
	}
	return Decision{Allowed: true, Remaining: tokens, ResetAt: now.Add(time.Hour)}
}

// RecordUsage overwrites the state with values reported by upstream.
func (l *Limiter) RecordUsage(remaining int, resetEpoch int64, limit int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.remaining = remaining
	l.resetAt = time.Unix(resetEpoch, 0)
	if limit > 0 {
		l.limit = limit
	}
	l.known = true
	l.updatedAt = l.now()

	if remaining <= l.lowWater {
		l.logger.Warn("Upstream rate limit budget is low", "remaining", remaining, "reset_at", l.resetAt)
	}
}

// RecordHeaders applies rate-limit response headers. It reports false when
// the response carried no usable rate-limit information.
func (l *Limiter) RecordHeaders(h http.Header) bool {
	remaining, err := strconv.Atoi(h.Get(HeaderRemaining))
	if err != nil {
		return false
	}
	reset, err := strconv.ParseInt(h.Get(HeaderReset), 10, 64)
	if err != nil {
		return false
	}
	limit, _ := strconv.Atoi(h.Get(HeaderLimit))
	l.RecordUsage(remaining, reset, limit)
	return true
}

// Snapshot returns a copy of the current state.
func (l *Limiter) Snapshot() model.RateLimitState {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.known && now.Before(l.resetAt) {
		return model.RateLimitState{
			Limit:     l.limit,
			Remaining: l.remaining,
			ResetAt:   l.resetAt,
			Source:    sourceUpstream,
			UpdatedAt: l.updatedAt,
		}
	}
	return model.RateLimitState{
		Limit:     l.budget,
		Remaining: int(l.fallback.TokensAt(now)),
		ResetAt:   now.Add(time.Hour),
		Source:    sourceLocal,
		UpdatedAt: l.updatedAt,
	}
}
