package pricing

import (
	"math"

	"ms-marketplace/internal/models"
)

// ComputeSubtotal sums item prices. Prices that are negative or not finite
// count as zero.
func ComputeSubtotal(items []models.LineItem) float64 {
	var subtotal float64
	for _, item := range items {
		subtotal += sanitize(item.Price.Float())
	}
	return subtotal
}

// ComputeDiscount returns the amount a coupon takes off the subtotal. The
// result is never negative and never above the subtotal.
func ComputeDiscount(subtotal float64, coupon *models.Coupon) float64 {
	subtotal = sanitize(subtotal)
	if coupon == nil {
		return 0
	}

	var discount float64
	switch coupon.Type {
	case models.CouponPercentage:
		// percentage applies to the whole cart, not per item
		discount = subtotal * sanitize(coupon.Value) / 100
	case models.CouponFixed:
		discount = sanitize(coupon.Value)
	default:
		return 0
	}

	if discount > subtotal {
		discount = subtotal
	}
	return discount
}

func ComputeTotal(subtotal, discount float64) float64 {
	return math.Max(0, subtotal-discount)
}

// Round rounds half away from zero to whole cents.
func Round(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// Summarize prices a cart with an optional coupon.
func Summarize(items []models.LineItem, coupon *models.Coupon) models.PriceSummary {
	subtotal := ComputeSubtotal(items)
	discount := ComputeDiscount(subtotal, coupon)

	if items == nil {
		items = []models.LineItem{}
	}
	return models.PriceSummary{
		Items:      items,
		ItemCount:  len(items),
		Subtotal:   Round(subtotal),
		Discount:   Round(discount),
		Total:      Round(ComputeTotal(subtotal, discount)),
		Coupon:     coupon,
		CanProceed: len(items) > 0,
	}
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
