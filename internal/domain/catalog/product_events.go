package catalog

import (
	"time"

	"github.com/storefront/widget/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeProduct = "Product"

// Event type constants
const (
	EventTypeProductDiscounted   = "ProductDiscounted"
	EventTypeProductSuggested    = "ProductSuggested"
	EventTypeProductStockChanged = "ProductStockChanged"
)

// ProductDiscountedEvent is published when a product is put on special discount
type ProductDiscountedEvent struct {
	shared.BaseDomainEvent
	ProductID ProductID `json:"product_id"`
	Name      string    `json:"name"`
	Until     time.Time `json:"until"`
}

// NewProductDiscountedEvent creates a new ProductDiscountedEvent
func NewProductDiscountedEvent(product *Product, now time.Time) *ProductDiscountedEvent {
	return &ProductDiscountedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductDiscounted, AggregateTypeProduct, product.ID.String(), now),
		ProductID:       product.ID,
		Name:            product.Name,
		Until:           product.DiscountedUntil,
	}
}

// ProductSuggestedEvent is published when a product becomes the suggestion
type ProductSuggestedEvent struct {
	shared.BaseDomainEvent
	ProductID ProductID `json:"product_id"`
	Name      string    `json:"name"`
	Until     time.Time `json:"until"`
}

// NewProductSuggestedEvent creates a new ProductSuggestedEvent
func NewProductSuggestedEvent(product *Product, now time.Time) *ProductSuggestedEvent {
	return &ProductSuggestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductSuggested, AggregateTypeProduct, product.ID.String(), now),
		ProductID:       product.ID,
		Name:            product.Name,
		Until:           product.SuggestedUntil,
	}
}

// ProductStockChangedEvent is published when stock goes up or down
type ProductStockChangedEvent struct {
	shared.BaseDomainEvent
	ProductID ProductID `json:"product_id"`
	OldStock  int       `json:"old_stock"`
	NewStock  int       `json:"new_stock"`
}

// NewProductStockChangedEvent creates a new ProductStockChangedEvent
func NewProductStockChangedEvent(product *Product, oldStock int, now time.Time) *ProductStockChangedEvent {
	return &ProductStockChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductStockChanged, AggregateTypeProduct, product.ID.String(), now),
		ProductID:       product.ID,
		OldStock:        oldStock,
		NewStock:        product.Stock,
	}
}
