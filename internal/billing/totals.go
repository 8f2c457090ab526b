// Package billing computes sale totals from line items.
//
// Amounts are integer cents. Tax is computed with decimal arithmetic and
// rounded to the nearest cent, halves away from zero.
package billing

import (
	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the sales tax applied when no rate is configured.
var DefaultTaxRate = decimal.RequireFromString("0.08")

type LineItem struct {
	Quantity       int   `json:"quantity"`
	UnitPriceCents int64 `json:"unit_price_cents"`
}

// LineTotal is Quantity × UnitPriceCents. Negative inputs count as zero.
func (l LineItem) LineTotal() int64 {
	if l.Quantity <= 0 || l.UnitPriceCents <= 0 {
		return 0
	}
	return int64(l.Quantity) * l.UnitPriceCents
}

type Totals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	TaxCents      int64 `json:"tax_cents"`
	DiscountCents int64 `json:"discount_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// Recompute applies DefaultTaxRate. See RecomputeAtRate.
func Recompute(items []LineItem, discountCents int64) Totals {
	return RecomputeAtRate(items, discountCents, DefaultTaxRate)
}

// RecomputeAtRate returns subtotal, tax and total for items. The total is
// subtotal + tax - discount and is not floored; callers that must not accept
// a negative total check it themselves.
func RecomputeAtRate(items []LineItem, discountCents int64, rate decimal.Decimal) Totals {
	subtotal := int64(0)
	for _, item := range items {
		subtotal += item.LineTotal()
	}

	tax := TaxCents(subtotal, rate)
	return Totals{
		SubtotalCents: subtotal,
		TaxCents:      tax,
		DiscountCents: discountCents,
		TotalCents:    subtotal + tax - discountCents,
	}
}

// TaxCents rounds subtotalCents × rate to a whole cent.
func TaxCents(subtotalCents int64, rate decimal.Decimal) int64 {
	if subtotalCents == 0 || rate.IsZero() {
		return 0
	}
	return decimal.NewFromInt(subtotalCents).Mul(rate).Round(0).IntPart()
}

// RateFromPercent converts a percentage such as 8 or 8.5 to a rate.
func RateFromPercent(percent float64) decimal.Decimal {
	if percent <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(percent).Div(decimal.NewFromInt(100))
}

// FormatCents renders cents as a fixed two-place amount, e.g. 2500 -> "25.00".
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// ParseAmount converts a decimal amount string such as "12.50" to cents.
func ParseAmount(raw string) (int64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, err
	}
	return d.Shift(2).Round(0).IntPart(), nil
}
