package display

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/storefront/widget/internal/domain/shared/valueobject"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale is used when no locale is configured
const DefaultLocale = "ko-KR"

var currencySymbols = map[valueobject.Currency]string{
	valueobject.KRW: "₩",
	valueobject.USD: "$",
	valueobject.EUR: "€",
	valueobject.JPY: "¥",
}

// Formatter renders numbers and money with locale-aware digit grouping
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// NewFormatter creates a formatter for a BCP 47 locale such as "ko-KR"
func NewFormatter(locale string) (*Formatter, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	return &Formatter{tag: tag, printer: message.NewPrinter(tag)}, nil
}

// Locale returns the formatter's language tag
func (f *Formatter) Locale() language.Tag {
	return f.tag
}

// Money formats an amount with its currency symbol, e.g. "₩10,000"
func (f *Formatter) Money(m valueobject.Money) string {
	symbol, ok := currencySymbols[m.Currency()]
	if !ok {
		symbol = string(m.Currency()) + " "
	}
	amount := m.Amount()
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}
	scale := int(m.Currency().MinorUnits())
	return sign + symbol + f.printer.Sprint(number.Decimal(amount.InexactFloat64(), number.Scale(scale)))
}

// Int formats an integer with digit grouping
func (f *Formatter) Int(n int) string {
	return f.printer.Sprintf("%d", n)
}

// Percent formats a percentage with one fractional digit, e.g. "20.0%"
func (f *Formatter) Percent(p decimal.Decimal) string {
	return p.StringFixed(1) + "%"
}
