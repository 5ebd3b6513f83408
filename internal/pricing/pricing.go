// Package pricing derives order totals from a line-item list. Money is
// integer minor units (cents) end to end; the tax rate is a decimal percent
// so fractional rates (e.g. 8.25) don't drift through float arithmetic.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-pos-gateway.git/internal/pos"
)

var hundred = decimal.NewFromInt(100)

// LineSubtotal = unit price * qty.
func LineSubtotal(it pos.LineItem) int {
	return it.UnitPriceCents * it.Qty
}

// Compute is a pure full recompute: subtotal over all items, discount
// clamped so the taxable base never goes negative, tax ceiled (fiscal
// policy: never under-collect), total = taxable + tax. Input sizes are
// bounded by one order's item count, so no incremental caching.
func Compute(items []pos.LineItem, discountCents int, taxRatePercent decimal.Decimal) pos.Pricing {
	subtotal := 0
	for _, it := range items {
		subtotal += LineSubtotal(it)
	}

	taxable := subtotal - discountCents
	if taxable < 0 {
		taxable = 0
	}

	tax := decimal.NewFromInt(int64(taxable)).
		Mul(taxRatePercent).
		Div(hundred).
		Ceil().
		IntPart()

	return pos.Pricing{
		SubtotalCents: subtotal,
		DiscountCents: discountCents,
		TaxCents:      int(tax),
		TotalCents:    taxable + int(tax),
	}
}
