package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectNames(t *testing.T, reader *sdkmetric.ManualReader) []string {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var names []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names = append(names, m.Name)
		}
	}
	return names
}

func TestMetrics_NilProvider(t *testing.T) {
	syncMetrics, err := NewSyncMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, syncMetrics)

	upstream, err := NewUpstreamMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, upstream)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		syncMetrics.RecordRun(ctx, "full", time.Second, 1, 1)
		syncMetrics.RecordRepoOutcome(ctx, "acme/widgets", "full", true, "")
		upstream.RecordRequest(ctx, "miss", 200)
		upstream.RecordBudgetDenied(ctx)
		upstream.RecordRemaining(ctx, 10)
	})
}

func TestMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	ctx := context.Background()

	syncMetrics, err := NewSyncMetrics(provider)
	require.NoError(t, err)
	upstream, err := NewUpstreamMetrics(provider)
	require.NoError(t, err)

	syncMetrics.RecordRun(ctx, "incremental", 3*time.Second, 4, 5)
	syncMetrics.RecordRepoOutcome(ctx, "acme/widgets", "incremental", false, "quota_exceeded")
	upstream.RecordRequest(ctx, "hit", 200)
	upstream.RecordBudgetDenied(ctx)
	upstream.RecordRemaining(ctx, 4200)

	assert.ElementsMatch(t, []string{
		"ghdash_sync_run_duration_seconds",
		"ghdash_sync_repository_outcomes_total",
		"ghdash_upstream_requests_total",
		"ghdash_upstream_budget_denied_total",
		"ghdash_upstream_rate_limit_remaining",
	}, collectNames(t, reader))
}
