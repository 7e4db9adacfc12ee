package storefront

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/widget/internal/domain/cart"
	"github.com/storefront/widget/internal/domain/catalog"
	"github.com/storefront/widget/internal/domain/shared/valueobject"
)

// State is the orchestrator-owned part of the session
type State struct {
	Selection catalog.ProductID
	LastAdded catalog.ProductID

	// RenderedAt is the clock instant the views were last rendered at, zero
	// before the first refresh. In a Snapshot it is the instant time-bound
	// flags are resolved at.
	RenderedAt time.Time
}

// ProductView is a product as seen at snapshot time. Time-bound flags are
// already resolved against the snapshot clock.
type ProductView struct {
	ID         catalog.ProductID
	Name       string
	Price      valueobject.Money
	Stock      int
	Discounted bool
	Suggested  bool
	SoldOut    bool
	LowStock   bool
}

// CartLine is one priced cart entry
type CartLine struct {
	ProductID       catalog.ProductID
	Name            string
	Quantity        int
	ListPrice       valueobject.Money
	UnitPrice       valueobject.Money
	LineTotal       valueobject.Money
	DiscountPercent decimal.Decimal
	AppliedRules    []string
}

// OrderSummary totals the cart. Subtotal is at list prices; Total includes
// promotions and the Tuesday special.
type OrderSummary struct {
	Lines           []CartLine
	ItemCount       int
	Subtotal        valueobject.Money
	Total           valueobject.Money
	Savings         valueobject.Money
	DiscountPercent decimal.Decimal
	TuesdayApplied  bool
	TuesdayRate     decimal.Decimal
}

// Snapshot is the consistent view handed to every display component during
// one refresh. Components must treat it as read-only.
type Snapshot struct {
	State
	Products []ProductView
	Cart     []cart.Item
	Summary  OrderSummary
}

// Product looks up a product view by id
func (s Snapshot) Product(id catalog.ProductID) (ProductView, bool) {
	for _, p := range s.Products {
		if p.ID == id {
			return p, true
		}
	}
	return ProductView{}, false
}

// Selected returns the view of the selected product, if any
func (s Snapshot) Selected() (ProductView, bool) {
	if s.Selection.IsZero() {
		return ProductView{}, false
	}
	return s.Product(s.Selection)
}
