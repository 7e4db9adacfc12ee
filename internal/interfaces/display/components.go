package display

import (
	"fmt"
	"strings"

	"github.com/storefront/widget/internal/application/storefront"
)

// Region names, in the order the storefront renders them
const (
	RegionSelection = "selection"
	RegionStock     = "stock"
	RegionCart      = "cart"
	RegionSummary   = "summary"
	RegionDiscount  = "discount"
	RegionTotal     = "total"
	RegionSpecial   = "special"
)

type base struct {
	surface Surface
	format  *Formatter
}

func (b base) show(region string, lines []string) {
	b.surface.Show(region, strings.Join(lines, "\n"))
}

// SelectionControl lists every product as a selectable option. The selected
// option is marked with ">", promotions with tags and sold out items are
// flagged as unavailable.
type SelectionControl struct{ base }

// Render implements storefront.Component
func (c SelectionControl) Render(s storefront.Snapshot) {
	lines := make([]string, 0, len(s.Products))
	for _, p := range s.Products {
		cursor := " "
		if p.ID == s.Selection {
			cursor = ">"
		}
		line := fmt.Sprintf("%s %s%s - %s", cursor, promotionTag(p), p.Name, c.format.Money(p.Price))
		if p.SoldOut {
			line += " (sold out)"
		}
		lines = append(lines, line)
	}
	c.show(RegionSelection, lines)
}

func promotionTag(p storefront.ProductView) string {
	switch {
	case p.Discounted && p.Suggested:
		return "[SUPER SALE] "
	case p.Discounted:
		return "[SALE] "
	case p.Suggested:
		return "[PICK] "
	default:
		return ""
	}
}

// StockInfo lists products that are running low or sold out
type StockInfo struct{ base }

// Render implements storefront.Component
func (c StockInfo) Render(s storefront.Snapshot) {
	var lines []string
	for _, p := range s.Products {
		switch {
		case p.SoldOut:
			lines = append(lines, p.Name+": sold out")
		case p.LowStock:
			lines = append(lines, fmt.Sprintf("%s: low stock (%s left)", p.Name, c.format.Int(p.Stock)))
		}
	}
	c.show(RegionStock, lines)
}

// CartDisplay lists cart lines with their effective unit price
type CartDisplay struct{ base }

// Render implements storefront.Component
func (c CartDisplay) Render(s storefront.Snapshot) {
	if len(s.Summary.Lines) == 0 {
		c.show(RegionCart, []string{"cart is empty"})
		return
	}
	lines := make([]string, 0, len(s.Summary.Lines))
	for _, l := range s.Summary.Lines {
		price := c.format.Money(l.UnitPrice)
		if !l.UnitPrice.Equals(l.ListPrice) {
			price = c.format.Money(l.ListPrice) + " -> " + price
		}
		lines = append(lines, fmt.Sprintf("%s x%s @ %s = %s",
			l.Name, c.format.Int(l.Quantity), price, c.format.Money(l.LineTotal)))
	}
	c.show(RegionCart, lines)
}

// SummaryDetails shows list-price lines and the subtotal
type SummaryDetails struct{ base }

// Render implements storefront.Component
func (c SummaryDetails) Render(s storefront.Snapshot) {
	if s.Summary.ItemCount == 0 {
		c.show(RegionSummary, nil)
		return
	}
	lines := make([]string, 0, len(s.Summary.Lines)+1)
	for _, l := range s.Summary.Lines {
		lines = append(lines, fmt.Sprintf("%s x %s  %s",
			l.Name, c.format.Int(l.Quantity), c.format.Money(l.ListPrice.MultiplyByInt(int64(l.Quantity)))))
	}
	lines = append(lines, "Subtotal  "+c.format.Money(s.Summary.Subtotal))
	if s.Summary.TuesdayApplied {
		lines = append(lines, "Tuesday special  -"+c.format.Percent(s.Summary.TuesdayRate))
	}
	c.show(RegionSummary, lines)
}

// DiscountInfo shows the total savings rate when anything is discounted
type DiscountInfo struct{ base }

// Render implements storefront.Component
func (c DiscountInfo) Render(s storefront.Snapshot) {
	if !s.Summary.Savings.IsPositive() {
		c.show(RegionDiscount, nil)
		return
	}
	c.show(RegionDiscount, []string{fmt.Sprintf("%s off, %s saved",
		c.format.Percent(s.Summary.DiscountPercent), c.format.Money(s.Summary.Savings))})
}

// TotalDisplay shows the amount due
type TotalDisplay struct{ base }

// Render implements storefront.Component
func (c TotalDisplay) Render(s storefront.Snapshot) {
	c.show(RegionTotal, []string{
		"Total  " + c.format.Money(s.Summary.Total),
		"Items  " + c.format.Int(s.Summary.ItemCount),
	})
}

// TuesdaySpecial is visible only while the Tuesday special applies
type TuesdaySpecial struct{ base }

// Render implements storefront.Component
func (c TuesdaySpecial) Render(s storefront.Snapshot) {
	if !s.Summary.TuesdayApplied {
		c.show(RegionSpecial, nil)
		return
	}
	c.show(RegionSpecial, []string{"Tuesday special " + c.format.Percent(s.Summary.TuesdayRate) + " off applied"})
}

// Entries returns the seven display components in render order
func Entries(surface Surface, format *Formatter) []storefront.Entry {
	b := base{surface: surface, format: format}
	return []storefront.Entry{
		{Name: RegionSelection, Component: SelectionControl{b}},
		{Name: RegionStock, Component: StockInfo{b}},
		{Name: RegionCart, Component: CartDisplay{b}},
		{Name: RegionSummary, Component: SummaryDetails{b}},
		{Name: RegionDiscount, Component: DiscountInfo{b}},
		{Name: RegionTotal, Component: TotalDisplay{b}},
		{Name: RegionSpecial, Component: TuesdaySpecial{b}},
	}
}

// NewRegistry builds the storefront registry of all display components
func NewRegistry(surface Surface, format *Formatter) (*storefront.Registry, error) {
	return storefront.NewRegistry(Entries(surface, format)...)
}
