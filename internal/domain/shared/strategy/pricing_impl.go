package strategy

import (
	"context"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// StandardPricingStrategy uses the base product price directly
type StandardPricingStrategy struct {
	BaseStrategy
}

// NewStandardPricingStrategy creates a new standard pricing strategy
func NewStandardPricingStrategy() *StandardPricingStrategy {
	return &StandardPricingStrategy{
		BaseStrategy: NewBaseStrategy(
			"standard",
			"Standard pricing uses the product's list price",
		),
	}
}

// CalculatePrice calculates the final price using standard pricing
func (s *StandardPricingStrategy) CalculatePrice(ctx context.Context, pricingCtx PricingContext) (PricingResult, error) {
	return PricingResult{
		UnitPrice:       pricingCtx.BasePrice,
		TotalPrice:      pricingCtx.BasePrice.Mul(pricingCtx.Quantity),
		DiscountAmount:  decimal.Zero,
		DiscountPercent: decimal.Zero,
		AppliedRules:    []string{"standard_pricing"},
	}, nil
}

// SupportsPromotion returns false for standard pricing
func (s *StandardPricingStrategy) SupportsPromotion() bool {
	return false
}

// PromotionalPricingStrategy lowers the unit price of products that carry
// promotional flags. Rates are percentages (0-100); when both flags are set
// the rates are added and capped at 100.
type PromotionalPricingStrategy struct {
	BaseStrategy
	DiscountRate   decimal.Decimal
	SuggestionRate decimal.Decimal
}

// NewPromotionalPricingStrategy creates a promotional pricing strategy
func NewPromotionalPricingStrategy(discountRate, suggestionRate decimal.Decimal) *PromotionalPricingStrategy {
	return &PromotionalPricingStrategy{
		BaseStrategy: NewBaseStrategy(
			"promotional",
			"Promotional pricing applies timed special and suggestion discounts",
		),
		DiscountRate:   discountRate,
		SuggestionRate: suggestionRate,
	}
}

// CalculatePrice calculates the final price for a line, honouring promotion flags
func (s *PromotionalPricingStrategy) CalculatePrice(ctx context.Context, pricingCtx PricingContext) (PricingResult, error) {
	rate := decimal.Zero
	appliedRules := []string{"promotional_pricing"}
	if pricingCtx.Discounted && s.DiscountRate.IsPositive() {
		rate = rate.Add(s.DiscountRate)
		appliedRules = append(appliedRules, "special_discount")
	}
	if pricingCtx.Suggested && s.SuggestionRate.IsPositive() {
		rate = rate.Add(s.SuggestionRate)
		appliedRules = append(appliedRules, "suggestion_discount")
	}
	if rate.GreaterThan(hundred) {
		rate = hundred
	}

	originalTotal := pricingCtx.BasePrice.Mul(pricingCtx.Quantity)
	unitPrice := pricingCtx.BasePrice.Mul(hundred.Sub(rate)).Div(hundred)
	totalPrice := unitPrice.Mul(pricingCtx.Quantity)

	return PricingResult{
		UnitPrice:       unitPrice,
		TotalPrice:      totalPrice,
		DiscountAmount:  originalTotal.Sub(totalPrice),
		DiscountPercent: rate,
		AppliedRules:    appliedRules,
	}, nil
}

// SupportsPromotion returns true for promotional pricing
func (s *PromotionalPricingStrategy) SupportsPromotion() bool {
	return true
}

var (
	_ PricingStrategy = (*StandardPricingStrategy)(nil)
	_ PricingStrategy = (*PromotionalPricingStrategy)(nil)
)
