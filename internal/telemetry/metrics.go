// Package telemetry provides OpenTelemetry instrumentation for the sync engine.
package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the name used for the sync metrics meter
	SyncMetricsMeterName = "github-dashboard-sync/sync"

	// UpstreamMetricsMeterName is the name used for the upstream API metrics meter
	UpstreamMetricsMeterName = "github-dashboard-sync/upstream"
)

// SyncMetrics holds the OpenTelemetry instruments for sync runs
type SyncMetrics struct {
	runDuration  metric.Float64Histogram
	repoOutcomes metric.Int64Counter
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	runDuration, err := meter.Float64Histogram(
		"ghdash_sync_run_duration_seconds",
		metric.WithDescription("Duration of sync runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800),
	)
	if err != nil {
		return nil, err
	}

	repoOutcomes, err := meter.Int64Counter(
		"ghdash_sync_repository_outcomes_total",
		metric.WithDescription("Per-repository sync outcomes"),
		metric.WithUnit("{repository}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		runDuration:  runDuration,
		repoOutcomes: repoOutcomes,
	}, nil
}

// RecordRun records the duration of a completed sync run
func (m *SyncMetrics) RecordRun(ctx context.Context, syncType string, duration time.Duration, succeeded, total int) {
	if m == nil || m.runDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("type", syncType),
		attribute.Bool("success", succeeded == total),
	}

	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRepoOutcome counts the outcome of one repository within a run
func (m *SyncMetrics) RecordRepoOutcome(ctx context.Context, repo, syncType string, success bool, errorKind string) {
	if m == nil || m.repoOutcomes == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("repository", repo),
		attribute.String("type", syncType),
		attribute.Bool("success", success),
		attribute.String("error_kind", errorKind),
	}

	m.repoOutcomes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// UpstreamMetrics holds the instruments for calls to the upstream API
type UpstreamMetrics struct {
	requests  metric.Int64Counter
	denied    metric.Int64Counter
	remaining metric.Int64Gauge
}

// NewUpstreamMetrics creates a new UpstreamMetrics instance.
// If provider is nil, it returns nil (no-op metrics).
func NewUpstreamMetrics(provider metric.MeterProvider) (*UpstreamMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(UpstreamMetricsMeterName)

	requests, err := meter.Int64Counter(
		"ghdash_upstream_requests_total",
		metric.WithDescription("Upstream API requests by cache result and status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	denied, err := meter.Int64Counter(
		"ghdash_upstream_budget_denied_total",
		metric.WithDescription("Upstream calls refused locally because the rate limit budget was exhausted"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	remaining, err := meter.Int64Gauge(
		"ghdash_upstream_rate_limit_remaining",
		metric.WithDescription("Remaining upstream call budget reported by the last response"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &UpstreamMetrics{
		requests:  requests,
		denied:    denied,
		remaining: remaining,
	}, nil
}

// RecordRequest counts one upstream request. cacheResult is hit, miss or bypass.
func (m *UpstreamMetrics) RecordRequest(ctx context.Context, cacheResult string, status int) {
	if m == nil || m.requests == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("cache", cacheResult),
		attribute.String("status", strconv.Itoa(status)),
	}

	m.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBudgetDenied counts a call refused by the local budget check
func (m *UpstreamMetrics) RecordBudgetDenied(ctx context.Context) {
	if m == nil || m.denied == nil {
		return
	}
	m.denied.Add(ctx, 1)
}

// RecordRemaining records the remaining budget reported upstream
func (m *UpstreamMetrics) RecordRemaining(ctx context.Context, remaining int) {
	if m == nil || m.remaining == nil {
		return
	}
	m.remaining.Record(ctx, int64(remaining))
}
