package storefront

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/widget/internal/domain/cart"
	"github.com/storefront/widget/internal/domain/catalog"
	"github.com/storefront/widget/internal/domain/shared"
	"github.com/storefront/widget/internal/domain/shared/strategy"
	"github.com/storefront/widget/internal/domain/shared/valueobject"
)

var hundred = decimal.NewFromInt(100)

// SummaryCalculator prices cart lines with a pricing strategy and applies the
// Tuesday special to the whole order
type SummaryCalculator struct {
	pricing     strategy.PricingStrategy
	currency    valueobject.Currency
	tuesdayRate decimal.Decimal
}

// NewSummaryCalculator creates a calculator. tuesdayRate is a percentage;
// zero disables the Tuesday special.
func NewSummaryCalculator(pricing strategy.PricingStrategy, currency valueobject.Currency, tuesdayRate decimal.Decimal) *SummaryCalculator {
	if pricing == nil {
		pricing = strategy.NewStandardPricingStrategy()
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	return &SummaryCalculator{
		pricing:     pricing,
		currency:    currency,
		tuesdayRate: decimal.Max(decimal.Zero, decimal.Min(tuesdayRate, hundred)),
	}
}

// Currency returns the currency summaries are expressed in
func (c *SummaryCalculator) Currency() valueobject.Currency {
	return c.currency
}

// Calculate prices items against the product views
func (c *SummaryCalculator) Calculate(ctx context.Context, items []cart.Item, products []ProductView, now time.Time) (OrderSummary, error) {
	byID := make(map[catalog.ProductID]ProductView, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	summary := OrderSummary{
		Lines:           make([]CartLine, 0, len(items)),
		Subtotal:        valueobject.Zero(c.currency),
		Total:           valueobject.Zero(c.currency),
		Savings:         valueobject.Zero(c.currency),
		DiscountPercent: decimal.Zero,
		TuesdayRate:     decimal.Zero,
	}

	promoted := valueobject.Zero(c.currency)
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok {
			return OrderSummary{}, fmt.Errorf("price cart line %s: %w", item.ProductID, shared.ErrNotFound)
		}

		result, err := c.pricing.CalculatePrice(ctx, strategy.PricingContext{
			ProductID:  item.ProductID.String(),
			Quantity:   decimal.NewFromInt(int64(item.Quantity)),
			BasePrice:  product.Price.Amount(),
			Discounted: product.Discounted,
			Suggested:  product.Suggested,
		})
		if err != nil {
			return OrderSummary{}, fmt.Errorf("price cart line %s: %w", item.ProductID, err)
		}

		unitPrice, err := valueobject.NewMoney(result.UnitPrice, c.currency)
		if err != nil {
			return OrderSummary{}, fmt.Errorf("price cart line %s: %w", item.ProductID, err)
		}
		lineTotal, err := valueobject.NewMoney(result.TotalPrice, c.currency)
		if err != nil {
			return OrderSummary{}, fmt.Errorf("price cart line %s: %w", item.ProductID, err)
		}

		line := CartLine{
			ProductID:       item.ProductID,
			Name:            product.Name,
			Quantity:        item.Quantity,
			ListPrice:       product.Price,
			UnitPrice:       unitPrice.Round(),
			LineTotal:       lineTotal.Round(),
			DiscountPercent: result.DiscountPercent,
			AppliedRules:    result.AppliedRules,
		}
		summary.Lines = append(summary.Lines, line)
		summary.ItemCount += item.Quantity

		if summary.Subtotal, err = summary.Subtotal.Add(product.Price.MultiplyByInt(int64(item.Quantity))); err != nil {
			return OrderSummary{}, fmt.Errorf("subtotal cart line %s: %w", item.ProductID, err)
		}
		if promoted, err = promoted.Add(line.LineTotal); err != nil {
			return OrderSummary{}, fmt.Errorf("total cart line %s: %w", item.ProductID, err)
		}
	}

	total := promoted
	if now.Weekday() == time.Tuesday && c.tuesdayRate.IsPositive() && summary.ItemCount > 0 {
		total = promoted.Multiply(hundred.Sub(c.tuesdayRate).Div(hundred))
		summary.TuesdayApplied = true
		summary.TuesdayRate = c.tuesdayRate
	}

	summary.Total = total.Round()
	savings, err := summary.Subtotal.Subtract(summary.Total)
	if err != nil {
		return OrderSummary{}, fmt.Errorf("savings: %w", err)
	}
	summary.Savings = savings
	if summary.Subtotal.IsPositive() {
		summary.DiscountPercent = summary.Savings.Amount().Mul(hundred).Div(summary.Subtotal.Amount()).Round(1)
	}
	return summary, nil
}
