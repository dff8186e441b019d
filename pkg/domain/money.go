package domain

import "math"

// Pricing constants applied when order totals are recomputed server-side.
// Caller-supplied totals are never trusted.
const (
	// TaxRate is applied to the order subtotal.
	TaxRate = 0.08
	// FlatShipping is the flat shipping charge per order.
	FlatShipping = 10.00
)

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// OrderTotals holds the server-computed money fields of an order.
type OrderTotals struct {
	Subtotal float64
	Tax      float64
	Shipping float64
	Total    float64
}

// CalculateOrderTotals recomputes subtotal, tax, shipping and total from the
// line items. Each component is rounded to two decimal places.
func CalculateOrderTotals(items []OrderItem) OrderTotals {
	var subtotal float64
	for _, item := range items {
		subtotal += item.Price * float64(item.Quantity)
	}
	subtotal = Round2(subtotal)
	tax := Round2(subtotal * TaxRate)
	total := Round2(subtotal + tax + FlatShipping)
	return OrderTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: FlatShipping,
		Total:    total,
	}
}
