package cart

import (
	"math"
	"time"

	"github.com/storefront/widget/internal/domain/catalog"
	"github.com/storefront/widget/internal/domain/shared"
)

// Item is one cart line
type Item struct {
	ProductID catalog.ProductID
	Quantity  int
}

// Cart holds the shopper's lines in the order they were first added
type Cart struct {
	shared.BaseAggregateRoot
	items []Item
}

// NewCart creates an empty cart
func NewCart() *Cart {
	return &Cart{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		items:             make([]Item, 0),
	}
}

// Add puts one unit of the product in the cart
func (c *Cart) Add(productID catalog.ProductID, now time.Time) error {
	if productID.IsZero() {
		return shared.NewDomainError("INVALID_PRODUCT", "product id cannot be empty")
	}

	quantity := 1
	if i := c.indexOf(productID); i >= 0 {
		c.items[i].Quantity++
		quantity = c.items[i].Quantity
	} else {
		c.items = append(c.items, Item{ProductID: productID, Quantity: 1})
	}

	c.IncrementVersion()
	c.AddDomainEvent(NewCartItemAddedEvent(productID, quantity, now))
	return nil
}

// ChangeQuantity adds delta to an existing line. A line that drops to zero
// is removed.
func (c *Cart) ChangeQuantity(productID catalog.ProductID, delta int, now time.Time) error {
	i := c.indexOf(productID)
	if i < 0 {
		return shared.ErrNotFound
	}
	if delta == 0 {
		return nil
	}

	oldQuantity := c.items[i].Quantity
	if delta > math.MaxInt-oldQuantity {
		return shared.ErrInvalidInput
	}
	newQuantity := 0
	if delta <= -oldQuantity {
		c.items = append(c.items[:i], c.items[i+1:]...)
	} else {
		newQuantity = oldQuantity + delta
		c.items[i].Quantity = newQuantity
	}

	c.IncrementVersion()
	c.AddDomainEvent(NewCartItemQuantityChangedEvent(productID, oldQuantity, newQuantity, now))
	return nil
}

// Remove drops the line for the product and returns the removed quantity
func (c *Cart) Remove(productID catalog.ProductID, now time.Time) (int, error) {
	i := c.indexOf(productID)
	if i < 0 {
		return 0, shared.ErrNotFound
	}

	quantity := c.items[i].Quantity
	c.items = append(c.items[:i], c.items[i+1:]...)

	c.IncrementVersion()
	c.AddDomainEvent(NewCartItemRemovedEvent(productID, quantity, now))
	return quantity, nil
}

// Quantity returns the quantity held for a product
func (c *Cart) Quantity(productID catalog.ProductID) int {
	if i := c.indexOf(productID); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

// Items returns a copy of the cart lines
func (c *Cart) Items() []Item {
	items := make([]Item, len(c.items))
	copy(items, c.items)
	return items
}

// TotalQuantity returns the number of units across all lines
func (c *Cart) TotalQuantity() int {
	total := 0
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

func (c *Cart) indexOf(productID catalog.ProductID) int {
	for i, item := range c.items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}
