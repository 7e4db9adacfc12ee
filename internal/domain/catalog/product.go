package catalog

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/widget/internal/domain/shared"
)

// LowStockThreshold is the stock level below which a product is reported as running low
const LowStockThreshold = 5

// ProductID identifies a catalog item. The zero value means "no product".
type ProductID string

// IsZero reports whether the id is empty
func (id ProductID) IsZero() bool {
	return id == ""
}

// String returns the id as a string
func (id ProductID) String() string {
	return string(id)
}

// Product represents a sellable item with its stock level and promotional flags.
// Promotional flags are independent per product and expire on their own.
type Product struct {
	shared.BaseAggregateRoot
	ID              ProductID
	Name            string
	Price           decimal.Decimal
	Stock           int
	DiscountedUntil time.Time
	SuggestedUntil  time.Time
	UpdatedAt       time.Time
}

// NewProduct creates a new product
func NewProduct(id ProductID, name string, price decimal.Decimal, stock int) (*Product, error) {
	if err := validateProductID(id); err != nil {
		return nil, err
	}
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "price cannot be negative")
	}
	if stock < 0 {
		return nil, shared.NewDomainError("INVALID_STOCK", "stock cannot be negative")
	}

	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ID:                id,
		Name:              strings.TrimSpace(name),
		Price:             price,
		Stock:             stock,
	}, nil
}

// IsEligible reports whether the product can be sold or promoted (nonzero stock)
func (p *Product) IsEligible() bool {
	return p.Stock > 0
}

// IsSoldOut reports whether the product has no stock left
func (p *Product) IsSoldOut() bool {
	return p.Stock <= 0
}

// IsLowStock reports whether stock is positive but below LowStockThreshold
func (p *Product) IsLowStock() bool {
	return p.Stock > 0 && p.Stock < LowStockThreshold
}

// IsDiscounted reports whether a special discount is active at now
func (p *Product) IsDiscounted(now time.Time) bool {
	return now.Before(p.DiscountedUntil)
}

// IsSuggested reports whether the product is the active suggestion at now
func (p *Product) IsSuggested(now time.Time) bool {
	return now.Before(p.SuggestedUntil)
}

// MarkDiscounted flags the product as on special discount for duration.
// Re-flagging an already discounted product replaces the expiry.
func (p *Product) MarkDiscounted(now time.Time, duration time.Duration) error {
	if duration <= 0 {
		return shared.NewDomainError("INVALID_DURATION", "discount duration must be positive")
	}

	p.DiscountedUntil = now.Add(duration)
	p.touch(now)
	p.AddDomainEvent(NewProductDiscountedEvent(p, now))

	return nil
}

// MarkSuggested flags the product as suggested for duration
func (p *Product) MarkSuggested(now time.Time, duration time.Duration) error {
	if duration <= 0 {
		return shared.NewDomainError("INVALID_DURATION", "suggestion duration must be positive")
	}

	p.SuggestedUntil = now.Add(duration)
	p.touch(now)
	p.AddDomainEvent(NewProductSuggestedEvent(p, now))

	return nil
}

// AdjustStock changes stock by delta. A change that would make stock negative
// fails with shared.ErrInsufficientStock and leaves the product untouched.
func (p *Product) AdjustStock(now time.Time, delta int) error {
	if delta == 0 {
		return nil
	}
	if delta < -p.Stock {
		return shared.ErrInsufficientStock
	}
	if delta > math.MaxInt-p.Stock {
		return shared.ErrInvalidInput
	}

	oldStock := p.Stock
	p.Stock += delta
	p.touch(now)
	p.AddDomainEvent(NewProductStockChangedEvent(p, oldStock, now))

	return nil
}

// Clone returns a copy of the product without pending domain events
func (p *Product) Clone() Product {
	c := *p
	c.BaseAggregateRoot = shared.BaseAggregateRoot{Version: p.Version}
	return c
}

func (p *Product) touch(now time.Time) {
	p.UpdatedAt = now
	p.IncrementVersion()
}

func validateProductID(id ProductID) error {
	if id.IsZero() {
		return shared.NewDomainError("INVALID_ID", "product id cannot be empty")
	}
	if len(id) > 50 {
		return shared.NewDomainError("INVALID_ID", "product id cannot exceed 50 characters")
	}
	return nil
}

func validateProductName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "product name cannot exceed 200 characters")
	}
	return nil
}
