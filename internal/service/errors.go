package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrVoucherExists is returned when creating a voucher whose code is taken
	ErrVoucherExists = errors.New("voucher code already exists")

	// ErrVoucherNotFound is returned when no voucher matches the code or id
	ErrVoucherNotFound = errors.New("voucher not found")

	// ErrVoucherInactive is returned when the voucher has been switched off
	ErrVoucherInactive = errors.New("voucher is not active")

	// ErrVoucherExpired is returned when now is outside the voucher's validity window
	ErrVoucherExpired = errors.New("voucher is expired or not yet valid")

	// ErrVoucherUsageLimitReached is returned when usage_count has reached usage_limit
	ErrVoucherUsageLimitReached = errors.New("voucher usage limit reached")

	// ErrMinimumPurchaseNotMet is matched by *MinimumPurchaseError
	ErrMinimumPurchaseNotMet = errors.New("minimum purchase not met")

	// ErrVoucherAlreadyUsed is returned when the user has redeemed this voucher before
	ErrVoucherAlreadyUsed = errors.New("voucher already used by user")

	// ErrVoucherInUse is returned when deleting a voucher that has usage records
	ErrVoucherInUse = errors.New("voucher has been used and cannot be deleted")

	// ErrProductNotFound is returned when a product id does not exist
	ErrProductNotFound = errors.New("product not found")

	// ErrInsufficientStock is matched by *InsufficientStockError
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrEmptyCart is returned when checkout has nothing to order
	ErrEmptyCart = errors.New("cart is empty")

	// ErrCartItemNotFound is returned when a cart line does not belong to the user
	ErrCartItemNotFound = errors.New("cart item not found")

	// ErrDuplicateRequest is returned when an idempotency key has already been used
	ErrDuplicateRequest = errors.New("duplicate checkout request")

	// ErrCheckoutFailed wraps unclassified failures after the stock pre-check passed
	ErrCheckoutFailed = errors.New("checkout failed")

	// ErrOrderNotFound is returned when the order does not exist for the caller
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderNotCancellable is returned when the order status no longer allows cancellation
	ErrOrderNotCancellable = errors.New("order cannot be cancelled in its current status")

	// ErrCancellationFailed wraps unclassified failures during cancellation
	ErrCancellationFailed = errors.New("order cancellation failed")

	// ErrInvalidStatusTransition is returned when changing the status of a finished order
	ErrInvalidStatusTransition = errors.New("order status cannot be changed")

	// ErrOrderNumberTaken is returned when a generated order number already exists.
	ErrOrderNumberTaken = errors.New("order number already taken")

	// ErrReviewNotFound is returned when the review does not exist for the caller
	ErrReviewNotFound = errors.New("review not found")

	// ErrReviewExists is returned when the user has already reviewed the order
	ErrReviewExists = errors.New("order has already been reviewed")

	// ErrOrderNotReviewable is returned when reviewing an order that has not been delivered
	ErrOrderNotReviewable = errors.New("only delivered orders can be reviewed")
)

// MinimumPurchaseError reports the threshold a subtotal failed to reach.
type MinimumPurchaseError struct {
	Minimum decimal.Decimal
}

func (e *MinimumPurchaseError) Error() string {
	return fmt.Sprintf("minimum purchase for this voucher is %s", e.Minimum.StringFixed(2))
}

// Is makes errors.Is(err, ErrMinimumPurchaseNotMet) succeed.
func (e *MinimumPurchaseError) Is(target error) bool {
	return target == ErrMinimumPurchaseNotMet
}

// InsufficientStockError reports the first cart line that exceeds stock.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ProductName, e.Requested, e.Available)
}

// Is makes errors.Is(err, ErrInsufficientStock) succeed.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
