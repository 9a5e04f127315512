package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Order status identifiers as seeded in the order_status table.
const (
	StatusPending    = 1
	StatusConfirmed  = 2
	StatusProcessing = 3
	StatusShipped    = 4
	StatusDelivered  = 5
	StatusCancelled  = 6
)

// Tracking notes written by checkout and cancellation. The wording matches
// what storefront clients already display.
const (
	NoteOrderCreated = "Pesanan dibuat"
	noteCancelled    = "Dibatalkan: %s. Stok telah dikembalikan."
)

// CancellationNote is the tracking note recorded when an order is cancelled for reason.
func CancellationNote(reason string) string {
	return fmt.Sprintf(noteCancelled, strings.TrimSpace(reason))
}

// OrderStatus is a row of the order_status lookup table.
type OrderStatus struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

var statusNames = map[int]string{
	StatusPending:    "pending",
	StatusConfirmed:  "confirmed",
	StatusProcessing: "processing",
	StatusShipped:    "shipped",
	StatusDelivered:  "delivered",
	StatusCancelled:  "cancelled",
}

// OrderStatuses returns the seeded statuses ordered by id.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, 0, len(statusNames))
	for id := StatusPending; id <= StatusCancelled; id++ {
		out = append(out, OrderStatus{ID: id, Name: statusNames[id]})
	}
	return out
}

// StatusName returns the name for a status id, or "" if unknown.
func StatusName(id int) string {
	return statusNames[id]
}

// KnownStatus reports whether id is a seeded status.
func KnownStatus(id int) bool {
	_, ok := statusNames[id]
	return ok
}

// Cancellable reports whether an order in this status may still be cancelled.
func Cancellable(statusID int) bool {
	return statusID == StatusPending || statusID == StatusConfirmed || statusID == StatusProcessing
}

// Terminal reports whether no further status change is allowed.
func Terminal(statusID int) bool {
	return statusID == StatusDelivered || statusID == StatusCancelled
}

// Order is a persisted checkout.
type Order struct {
	ID                int64           `json:"id"`
	OrderNumber       string          `json:"order_number"`
	UserID            string          `json:"user_id"`
	OriginalAmount    decimal.Decimal `json:"original_amount"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	VoucherID         *int64          `json:"voucher_id,omitempty"`
	VoucherCode       *string         `json:"voucher_code,omitempty"`
	ShippingAddressID int64           `json:"shipping_address_id"`
	StatusID          int             `json:"status_id"`
	Status            string          `json:"status"`
	Notes             string          `json:"notes,omitempty"`
	Items             []OrderItem     `json:"items"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// OrderItem is one line of an order. Price is snapshotted at checkout time.
type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// OrderTracking is an entry of an order's status history.
type OrderTracking struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	StatusID  int       `json:"status_id"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// CartLine is a product and quantity requested at checkout.
type CartLine struct {
	ProductID int64 `json:"product_id" validate:"required,gte=1"`
	Quantity  int   `json:"quantity" validate:"required,gte=1"`
}

// CheckoutRequest carries everything needed to turn a cart into an order.
type CheckoutRequest struct {
	UserID            string     `json:"-"`
	Items             []CartLine `json:"items" validate:"omitempty,dive"`
	ShippingAddressID int64      `json:"shipping_address_id" validate:"required,gte=1"`
	VoucherCode       string     `json:"voucher_code" validate:"max=64"`
	Notes             string     `json:"notes" validate:"max=2000"`
	IdempotencyKey    string     `json:"-"`
}

// CheckoutResult is returned to the buyer after a successful checkout.
type CheckoutResult struct {
	Order           *Order          `json:"order"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
	VoucherCode     string          `json:"voucher_code,omitempty"`
	VoucherRedeemed bool            `json:"voucher_redeemed"`
}

// CancelOrderRequest is the DTO for POST /api/orders/:id/cancel.
type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=500"`
}

// CancellationResult reports a completed cancellation.
type CancellationResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	RestoredItems int    `json:"restored_items"`
}

// OrderFilter narrows the admin order list. Zero values mean no restriction.
type OrderFilter struct {
	StatusID *int
	// Search matches anywhere in the order number, case-insensitively.
	Search string
}

// UpdateOrderStatusRequest is the admin DTO for changing an order's status.
type UpdateOrderStatusRequest struct {
	StatusID int    `json:"status_id" validate:"required,gte=1"`
	Notes    string `json:"notes" validate:"max=500"`
}
