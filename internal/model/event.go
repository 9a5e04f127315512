package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order lifecycle event types.
const (
	EventOrderCreated       = "order.created"
	EventOrderCancelled     = "order.cancelled"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is published after an order-changing transaction commits.
type OrderEvent struct {
	ID          string          `json:"event_id"`
	Type        string          `json:"event_type"`
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      string          `json:"user_id"`
	StatusID    int             `json:"status_id"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	VoucherCode string          `json:"voucher_code,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// NewOrderEvent describes o as an event of the given type.
func NewOrderEvent(eventType string, o *Order, notes string, at time.Time) OrderEvent {
	evt := OrderEvent{
		Type:        eventType,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		StatusID:    o.StatusID,
		Status:      StatusName(o.StatusID),
		TotalAmount: o.TotalAmount,
		Notes:       notes,
		OccurredAt:  at,
	}
	if o.VoucherCode != nil {
		evt.VoucherCode = *o.VoucherCode
	}
	return evt
}
