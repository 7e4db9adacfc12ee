package cart

import (
	"context"

	"github.com/storefront/widget/internal/domain/catalog"
)

// Store is the cart store consumed by the storefront core. A non-nil error
// means the mutation was rejected and nothing changed; its message is meant
// for the shopper.
type Store interface {
	// Add puts one unit of the product in the cart
	Add(ctx context.Context, productID catalog.ProductID) error

	// ChangeQuantity adds delta (possibly negative) to an existing line
	ChangeQuantity(ctx context.Context, productID catalog.ProductID, delta int) error

	// Remove drops the line for the product
	Remove(ctx context.Context, productID catalog.ProductID) error

	// Items returns a copy of the current cart lines
	Items(ctx context.Context) ([]Item, error)
}
