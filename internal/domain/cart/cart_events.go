package cart

import (
	"time"

	"github.com/storefront/widget/internal/domain/catalog"
	"github.com/storefront/widget/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeCart = "Cart"

// Event type constants
const (
	EventTypeCartItemAdded           = "CartItemAdded"
	EventTypeCartItemQuantityChanged = "CartItemQuantityChanged"
	EventTypeCartItemRemoved         = "CartItemRemoved"
)

// CartItemAddedEvent is published after one unit of a product is added
type CartItemAddedEvent struct {
	shared.BaseDomainEvent
	ProductID catalog.ProductID `json:"product_id"`
	Quantity  int               `json:"quantity"`
}

// NewCartItemAddedEvent creates a new CartItemAddedEvent
func NewCartItemAddedEvent(productID catalog.ProductID, quantity int, now time.Time) *CartItemAddedEvent {
	return &CartItemAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCartItemAdded, AggregateTypeCart, productID.String(), now),
		ProductID:       productID,
		Quantity:        quantity,
	}
}

// CartItemQuantityChangedEvent is published when a line quantity changes
type CartItemQuantityChangedEvent struct {
	shared.BaseDomainEvent
	ProductID   catalog.ProductID `json:"product_id"`
	OldQuantity int               `json:"old_quantity"`
	NewQuantity int               `json:"new_quantity"`
}

// NewCartItemQuantityChangedEvent creates a new CartItemQuantityChangedEvent
func NewCartItemQuantityChangedEvent(productID catalog.ProductID, oldQuantity, newQuantity int, now time.Time) *CartItemQuantityChangedEvent {
	return &CartItemQuantityChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCartItemQuantityChanged, AggregateTypeCart, productID.String(), now),
		ProductID:       productID,
		OldQuantity:     oldQuantity,
		NewQuantity:     newQuantity,
	}
}

// CartItemRemovedEvent is published when a line is removed
type CartItemRemovedEvent struct {
	shared.BaseDomainEvent
	ProductID catalog.ProductID `json:"product_id"`
	Quantity  int               `json:"quantity"`
}

// NewCartItemRemovedEvent creates a new CartItemRemovedEvent
func NewCartItemRemovedEvent(productID catalog.ProductID, quantity int, now time.Time) *CartItemRemovedEvent {
	return &CartItemRemovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCartItemRemoved, AggregateTypeCart, productID.String(), now),
		ProductID:       productID,
		Quantity:        quantity,
	}
}
