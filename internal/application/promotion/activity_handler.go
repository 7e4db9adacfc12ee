package promotion

import (
	"context"
	"fmt"

	"github.com/storefront/widget/internal/domain/cart"
	"github.com/storefront/widget/internal/domain/catalog"
	"github.com/storefront/widget/internal/domain/shared"
	"github.com/storefront/widget/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ActivityHandler logs promotion and cart activity published on the event bus
// and counts applied promotions
type ActivityHandler struct {
	metrics *telemetry.StorefrontMetrics
	logger  *zap.Logger
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(metrics *telemetry.StorefrontMetrics, logger *zap.Logger) *ActivityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityHandler{metrics: metrics, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *ActivityHandler) EventTypes() []string {
	return []string{
		catalog.EventTypeProductDiscounted,
		catalog.EventTypeProductSuggested,
		catalog.EventTypeProductStockChanged,
		cart.EventTypeCartItemAdded,
		cart.EventTypeCartItemQuantityChanged,
		cart.EventTypeCartItemRemoved,
	}
}

// Handle processes one event
func (h *ActivityHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *catalog.ProductDiscountedEvent:
		h.metrics.RecordPromotion(ctx, ProcessDiscount, e.ProductID.String())
		h.logger.Info("product on special discount",
			zap.String("product_id", e.ProductID.String()),
			zap.String("name", e.Name),
			zap.Time("until", e.Until),
		)
	case *catalog.ProductSuggestedEvent:
		h.metrics.RecordPromotion(ctx, ProcessSuggestion, e.ProductID.String())
		h.logger.Info("product suggested",
			zap.String("product_id", e.ProductID.String()),
			zap.String("name", e.Name),
			zap.Time("until", e.Until),
		)
	case *catalog.ProductStockChangedEvent:
		fields := []zap.Field{
			zap.String("product_id", e.ProductID.String()),
			zap.Int("old_stock", e.OldStock),
			zap.Int("new_stock", e.NewStock),
		}
		if e.NewStock == 0 {
			h.logger.Info("product sold out", fields...)
			return nil
		}
		h.logger.Debug("stock changed", fields...)
	case *cart.CartItemAddedEvent:
		h.logger.Debug("cart item added",
			zap.String("product_id", e.ProductID.String()),
			zap.Int("quantity", e.Quantity),
		)
	case *cart.CartItemQuantityChangedEvent:
		h.logger.Debug("cart quantity changed",
			zap.String("product_id", e.ProductID.String()),
			zap.Int("old_quantity", e.OldQuantity),
			zap.Int("new_quantity", e.NewQuantity),
		)
	case *cart.CartItemRemovedEvent:
		h.logger.Debug("cart item removed",
			zap.String("product_id", e.ProductID.String()),
			zap.Int("quantity", e.Quantity),
		)
	default:
		h.logger.Error("unexpected event type", zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	return nil
}

var _ shared.EventHandler = (*ActivityHandler)(nil)
