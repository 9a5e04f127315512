package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType tells how a voucher's DiscountValue is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

// Voucher represents a discount code with eligibility rules and a usage cap.
type Voucher struct {
	ID            int64               `json:"id"`
	Code          string              `json:"code"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	DiscountType  DiscountType        `json:"discount_type"`
	DiscountValue decimal.Decimal     `json:"discount_value"`
	MinPurchase   decimal.Decimal     `json:"min_purchase"`
	MaxDiscount   decimal.NullDecimal `json:"max_discount"`
	UsageLimit    int                 `json:"usage_limit"`
	UsageCount    int                 `json:"usage_count"`
	Active        bool                `json:"active"`
	StartsAt      time.Time           `json:"starts_at"`
	EndsAt        time.Time           `json:"ends_at"`
	CreatedBy     string              `json:"created_by,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// InWindow reports whether now falls inside [StartsAt, EndsAt].
func (v *Voucher) InWindow(now time.Time) bool {
	return !now.Before(v.StartsAt) && !now.After(v.EndsAt)
}

// Exhausted reports whether the usage limit has been reached.
func (v *Voucher) Exhausted() bool {
	return v.UsageCount >= v.UsageLimit
}

// Redeemable reports whether the voucher can be applied at now, ignoring per-user history.
func (v *Voucher) Redeemable(now time.Time) bool {
	return v.Active && v.InWindow(now) && !v.Exhausted()
}

// VoucherUsage records that a user applied a voucher to an order.
type VoucherUsage struct {
	ID             int64           `json:"id"`
	VoucherID      int64           `json:"voucher_id"`
	VoucherCode    string          `json:"voucher_code,omitempty"`
	UserID         string          `json:"user_id"`
	OrderID        int64           `json:"order_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	UsedAt         time.Time       `json:"used_at"`
}

// VoucherValidation is the outcome of a successful voucher check.
type VoucherValidation struct {
	Voucher        *Voucher        `json:"voucher"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
}

// VoucherStats summarises voucher activity for the admin panel.
type VoucherStats struct {
	TotalVouchers      int             `json:"total_vouchers"`
	ActiveVouchers     int             `json:"active_vouchers"`
	TotalUsage         int             `json:"total_usage"`
	TotalDiscountGiven decimal.Decimal `json:"total_discount_given"`
}

// ValidateVoucherRequest is the DTO for POST /api/vouchers/validate.
type ValidateVoucherRequest struct {
	Code     string          `json:"code" validate:"required,notblank,max=64"`
	Subtotal decimal.Decimal `json:"subtotal" validate:"dgte0"`
}

// VoucherRequest is the DTO for creating or updating a voucher.
type VoucherRequest struct {
	Code          string              `json:"code" validate:"required,notblank,max=64"`
	Name          string              `json:"name" validate:"required,notblank,max=255"`
	Description   string              `json:"description" validate:"max=2000"`
	DiscountType  DiscountType        `json:"discount_type" validate:"required,oneof=PERCENTAGE FIXED"`
	DiscountValue decimal.Decimal     `json:"discount_value" validate:"dgt0"`
	MinPurchase   decimal.Decimal     `json:"min_purchase" validate:"dgte0"`
	MaxDiscount   decimal.NullDecimal `json:"max_discount"`
	UsageLimit    *int                `json:"usage_limit" validate:"required,gte=1"`
	Active        *bool               `json:"active"`
	StartsAt      time.Time           `json:"starts_at" validate:"required"`
	EndsAt        time.Time           `json:"ends_at" validate:"required,gtefield=StartsAt"`
}

// SetVoucherStatusRequest toggles a voucher on or off.
type SetVoucherStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}
