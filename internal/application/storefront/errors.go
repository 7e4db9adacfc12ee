package storefront

import (
	"github.com/storefront/widget/internal/domain/catalog"
	"github.com/storefront/widget/internal/domain/shared"
)

// Errors returned by the orchestrator
var (
	ErrNoSelection = shared.NewDomainError("NO_SELECTION", "no product selected")
	ErrClosed      = shared.NewDomainError("STOREFRONT_CLOSED", "storefront is closed")
)

// StoreFailure is a cart mutation rejected by the cart store. Its message is
// the store's message unchanged, so it can be shown to the shopper as is.
type StoreFailure struct {
	Op        string
	ProductID catalog.ProductID
	Err       error
}

func (e *StoreFailure) Error() string {
	return e.Err.Error()
}

func (e *StoreFailure) Unwrap() error {
	return e.Err
}
