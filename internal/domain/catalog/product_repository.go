package catalog

import (
	"context"
	"time"
)

// ProductRepository is the catalog provider consumed by the storefront core.
// Implementations must allow concurrent writes to different products.
type ProductRepository interface {
	// ListProducts returns copies of all products in catalog order
	ListProducts(ctx context.Context) ([]Product, error)

	// FindByID returns a copy of a single product
	FindByID(ctx context.Context, id ProductID) (*Product, error)

	// IsEligible reports whether the product exists and is not out of stock
	IsEligible(ctx context.Context, id ProductID) (bool, error)

	// MarkDiscounted puts the product on special discount for duration
	MarkDiscounted(ctx context.Context, id ProductID, duration time.Duration) error

	// MarkSuggested flags the product as suggested for duration
	MarkSuggested(ctx context.Context, id ProductID, duration time.Duration) error

	// AdjustStock changes the stock level by delta
	AdjustStock(ctx context.Context, id ProductID, delta int) error
}
