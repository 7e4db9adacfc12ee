package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/storefront/widget/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	want := attribute.NewSet(attrs...)
	var total int64
	for _, dp := range sum.DataPoints {
		if len(attrs) == 0 || dp.Attributes.Equals(&want) {
			total += dp.Value
		}
	}
	return total
}

func TestStorefrontMetrics_Records(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := telemetry.NewStorefrontMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordRefresh(ctx, 2*time.Millisecond)
	m.RecordRefresh(ctx, time.Millisecond)
	m.RecordCartOperation(ctx, "add", telemetry.OutcomeSuccess)
	m.RecordCartOperation(ctx, "add", telemetry.OutcomeFailure)
	m.RecordCartOperation(ctx, "add", telemetry.OutcomeFailure)
	m.RecordPromotionTick(ctx, "discount", telemetry.OutcomeSkipped)
	m.RecordPromotion(ctx, "suggestion", "p2")
	m.RecordRenderPanic(ctx, "summary")

	metrics := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, metrics["storefront_refresh_total"]))
	assert.Equal(t, int64(2), sumOf(t, metrics["storefront_cart_operation_total"],
		telemetry.AttrOperation.String("add"), telemetry.AttrOutcome.String(telemetry.OutcomeFailure)))
	assert.Equal(t, int64(1), sumOf(t, metrics["storefront_promotion_tick_total"],
		telemetry.AttrProcess.String("discount"), telemetry.AttrOutcome.String(telemetry.OutcomeSkipped)))
	assert.Equal(t, int64(1), sumOf(t, metrics["storefront_promotion_applied_total"]))
	assert.Equal(t, int64(1), sumOf(t, metrics["storefront_render_panic_total"],
		telemetry.AttrComponent.String("summary")))

	hist, ok := metrics["storefront_refresh_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
}

func TestStorefrontMetrics_NilSafe(t *testing.T) {
	var m *telemetry.StorefrontMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordRefresh(ctx, time.Millisecond)
		m.RecordCartOperation(ctx, "add", telemetry.OutcomeSuccess)
		m.RecordPromotionTick(ctx, "discount", telemetry.OutcomeSuccess)
		m.RecordPromotion(ctx, "discount", "p1")
		m.RecordRenderPanic(ctx, "cart")
	})
}

func TestNewStorefrontMetrics(t *testing.T) {
	_, err := telemetry.NewStorefrontMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)

	m, err := telemetry.NewStorefrontMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	assert.NotNil(t, m)
}
