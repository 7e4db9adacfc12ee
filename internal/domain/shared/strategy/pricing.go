package strategy

import (
	"context"

	"github.com/shopspring/decimal"
)

// PricingContext provides context for pricing one cart line
type PricingContext struct {
	ProductID  string
	Quantity   decimal.Decimal
	BasePrice  decimal.Decimal
	Discounted bool // product is on a timed special discount
	Suggested  bool // product is the current suggestion
}

// PricingResult contains the result of pricing calculation
type PricingResult struct {
	UnitPrice       decimal.Decimal
	TotalPrice      decimal.Decimal
	DiscountAmount  decimal.Decimal
	DiscountPercent decimal.Decimal
	AppliedRules    []string
}

// PricingStrategy defines the interface for pricing calculation
type PricingStrategy interface {
	Strategy
	// CalculatePrice calculates the final price for a given pricing context
	CalculatePrice(ctx context.Context, pricingCtx PricingContext) (PricingResult, error)
	// SupportsPromotion returns true if the strategy honours promotional flags
	SupportsPromotion() bool
}
