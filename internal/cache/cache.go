// Package cache stores upstream and API responses in the shared KV store with
// endpoint-class dependent TTLs.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github-dashboard-sync/internal/kv"
)

const keyPrefix = "cache:"

// Class groups endpoints that share a TTL.
type Class string

const (
	ClassStatus  Class = "status"
	ClassListing Class = "listing"
	ClassStats   Class = "stats"
	ClassDefault Class = "default"
)

// Policy maps endpoint classes to TTLs.
type Policy struct {
	Status  time.Duration
	Listing time.Duration
	Stats   time.Duration
	Default time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		Status:  time.Minute,
		Listing: 10 * time.Minute,
		Stats:   time.Hour,
		Default: 5 * time.Minute,
	}
}

// TTL returns the lifetime for responses of endpoint.
func (p Policy) TTL(endpoint string) time.Duration {
	switch Classify(endpoint) {
	case ClassStatus:
		return p.Status
	case ClassListing:
		return p.Listing
	case ClassStats:
		return p.Stats
	default:
		return p.Default
	}
}

// Classify inspects the path segments of endpoint. The owner and name that
// follow a repos or repositories segment are skipped so a repository called
// "stats" does not change the class.
func Classify(endpoint string) Class {
	var segments []string
	parts := strings.Split(strings.Trim(endpoint, "/"), "/")
	for i := 0; i < len(parts); i++ {
		segments = append(segments, parts[i])
		if parts[i] == "repos" || parts[i] == "repositories" {
			i += 2
		}
	}

	class := ClassDefault
	for _, s := range segments {
		switch s {
		case "sync", "rate_limit", "rate-limit":
			return ClassStatus
		case "stats", "languages", "contributors":
			class = ClassStats
		case "readme":
			if class != ClassStats {
				class = ClassDefault
			}
		case "issues", "pulls", "commits", "repos", "repositories":
			if class == ClassDefault {
				class = ClassListing
			}
		}
	}
	return class
}

// Key derives a cache key from the logical endpoint, method and query
// parameters. Parameter order never affects the result.
func Key(endpoint, method string, params url.Values) string {
	sorted := make(url.Values, len(params))
	for k, vs := range params {
		cp := append([]string(nil), vs...)
		sort.Strings(cp)
		sorted[k] = cp
	}
	sum := sha256.Sum256([]byte(sorted.Encode()))
	return keyPrefix + strings.ToUpper(method) + ":" + endpoint + ":" + hex.EncodeToString(sum[:8])
}

// Cache is a TTL cache over a kv.Store. Store failures degrade to misses.
type Cache struct {
	store  kv.Store
	policy Policy
	logger *slog.Logger
}

func New(store kv.Store, policy Policy, logger *slog.Logger) *Cache {
	return &Cache{store: store, policy: policy, logger: logger}
}

func (c *Cache) Policy() Policy { return c.policy }

// Get returns the cached value and true, or nil and false on a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			c.logger.Warn("Cache read failed, treating as miss", "key", key, "error", err)
		}
		return nil, false
	}
	return b, true
}

// Put stores value for ttl. Non-positive ttls are ignored.
func (c *Cache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.store.Set(ctx, key, value, ttl)
}
