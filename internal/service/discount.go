package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

var hundred = decimal.NewFromInt(100)

// ComputeDiscount returns the amount v takes off subtotal.
// The result is rounded half-up to cents and then clamped, so it never
// exceeds subtotal even when subtotal carries sub-cent digits.
func ComputeDiscount(v *model.Voucher, subtotal decimal.Decimal) decimal.Decimal {
	if v == nil || !subtotal.IsPositive() {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch v.DiscountType {
	case model.DiscountPercentage:
		discount = subtotal.Mul(v.DiscountValue).Div(hundred)
		if v.MaxDiscount.Valid && discount.GreaterThan(v.MaxDiscount.Decimal) {
			discount = v.MaxDiscount.Decimal
		}
	case model.DiscountFixed:
		discount = v.DiscountValue
	default:
		return decimal.Zero
	}

	discount = discount.Round(2)
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}

// NormalizeCode canonicalises a voucher code for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
