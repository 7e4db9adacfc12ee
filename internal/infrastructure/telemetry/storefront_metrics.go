package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Outcome attribute values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// StorefrontMetrics records storefront activity. A nil *StorefrontMetrics is
// valid and records nothing.
type StorefrontMetrics struct {
	refreshes       *Counter
	refreshDuration *Histogram
	renderPanics    *Counter
	cartOperations  *Counter
	promotionTicks  *Counter
	promotions      *Counter
}

// NewStorefrontMetrics registers the storefront instruments on meter
func NewStorefrontMetrics(meter metric.Meter) (*StorefrontMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &StorefrontMetrics{}
	var err error
	if m.refreshes, err = NewCounter(meter, "storefront_refresh_total", "Full view refreshes", "{refreshes}"); err != nil {
		return nil, err
	}
	if m.refreshDuration, err = NewHistogram(meter, "storefront_refresh_duration_seconds", "Duration of a full view refresh", "s", RefreshDurationBuckets...); err != nil {
		return nil, err
	}
	if m.renderPanics, err = NewCounter(meter, "storefront_render_panic_total", "Display components that panicked while rendering", "{panics}"); err != nil {
		return nil, err
	}
	if m.cartOperations, err = NewCounter(meter, "storefront_cart_operation_total", "Cart operations by outcome", "{operations}"); err != nil {
		return nil, err
	}
	if m.promotionTicks, err = NewCounter(meter, "storefront_promotion_tick_total", "Promotion timer ticks by process and outcome", "{ticks}"); err != nil {
		return nil, err
	}
	if m.promotions, err = NewCounter(meter, "storefront_promotion_applied_total", "Products flagged by a promotion", "{promotions}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordRefresh records one full refresh
func (m *StorefrontMetrics) RecordRefresh(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.refreshes.Inc(ctx)
	m.refreshDuration.RecordDuration(ctx, d)
}

// RecordRenderPanic records a component that panicked during render
func (m *StorefrontMetrics) RecordRenderPanic(ctx context.Context, component string) {
	if m == nil {
		return
	}
	m.renderPanics.Inc(ctx, AttrComponent.String(component))
}

// RecordCartOperation records a cart operation such as "add" or "remove"
func (m *StorefrontMetrics) RecordCartOperation(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	m.cartOperations.Inc(ctx, AttrOperation.String(operation), AttrOutcome.String(outcome))
}

// RecordPromotionTick records one timer tick of a promotion process
func (m *StorefrontMetrics) RecordPromotionTick(ctx context.Context, process, outcome string) {
	if m == nil {
		return
	}
	m.promotionTicks.Inc(ctx, AttrProcess.String(process), AttrOutcome.String(outcome))
}

// RecordPromotion records a product flagged by a promotion process
func (m *StorefrontMetrics) RecordPromotion(ctx context.Context, process, productID string) {
	if m == nil {
		return
	}
	m.promotions.Inc(ctx, AttrProcess.String(process), AttrProductID.String(productID))
}
