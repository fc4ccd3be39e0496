package pricing

import "github.com/shopspring/decimal"

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int
	UnitPrice decimal.Decimal
}

// Totals aggregates computed pricing components.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// LineTotal is unit price times quantity. Non-positive quantities contribute nothing.
func LineTotal(it Item) decimal.Decimal {
	if it.Qty <= 0 {
		return decimal.Zero
	}
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty)))
}

// Compute calculates cart totals given the line items and shipping cost.
func Compute(items []Item, shipping decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(LineTotal(it))
	}
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal.Add(shipping),
	}
}
