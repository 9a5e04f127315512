package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

// OrderRepositoryInterface defines the interface for order data access.
type OrderRepositoryInterface interface {
	GetForUpdate(ctx context.Context, tx database.TxQuerier, orderID int64, userID string) (*model.Order, error)
	GetByID(ctx context.Context, orderID int64, userID string) (*model.Order, error)
	ListByUser(ctx context.Context, userID string) ([]model.Order, error)
	ListAll(ctx context.Context, f model.OrderFilter) ([]model.Order, error)
	UpdateStatus(ctx context.Context, tx database.TxQuerier, orderID int64, statusID int) error
	InsertTracking(ctx context.Context, tx database.TxQuerier, t *model.OrderTracking) error
	Tracking(ctx context.Context, orderID int64) ([]model.OrderTracking, error)
}

// StockRestorer puts quantities back on the shelf.
type StockRestorer interface {
	IncrementStock(ctx context.Context, tx database.TxQuerier, id int64, qty int) (bool, error)
}

// OrderService provides order history, cancellation and status administration.
type OrderService struct {
	pool      TxBeginner
	orders    OrderRepositoryInterface
	products  StockRestorer
	publisher EventPublisher
	now       func() time.Time
}

// NewOrderService creates a new OrderService with the given pool and repositories.
func NewOrderService(pool *pgxpool.Pool, orders OrderRepositoryInterface, products StockRestorer) *OrderService {
	return NewOrderServiceWithTxBeginner(pool, orders, products)
}

// NewOrderServiceWithTxBeginner creates an OrderService with a custom TxBeginner.
// Primarily used for testing.
func NewOrderServiceWithTxBeginner(pool TxBeginner, orders OrderRepositoryInterface, products StockRestorer) *OrderService {
	return &OrderService{
		pool:     pool,
		orders:   orders,
		products: products,
		now:      time.Now,
	}
}

// WithPublisher sets where order.cancelled and order.status_changed events go.
func (s *OrderService) WithPublisher(p EventPublisher) *OrderService {
	s.publisher = p
	return s
}

// Cancel cancels userID's order and returns its items to stock.
// Voucher usage is left as is.
func (s *OrderService) Cancel(ctx context.Context, orderID int64, userID, reason string) (*model.CancellationResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidRequest
	}
	return s.cancel(ctx, orderID, userID, userID, reason)
}

// cancel runs the compensation in one transaction. An empty owner skips the
// ownership check; actor is recorded on the tracking entry.
func (s *OrderService) cancel(ctx context.Context, orderID int64, owner, actor, reason string) (*model.CancellationResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx: %w", ErrCancellationFailed, err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	order, err := s.orders.GetForUpdate(ctx, tx, orderID, owner)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrCancellationFailed, err)
	}

	if !model.Cancellable(order.StatusID) {
		return nil, ErrOrderNotCancellable
	}

	restored := 0
	for _, it := range order.Items {
		ok, err := s.products.IncrementStock(ctx, tx, it.ProductID, it.Quantity)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCancellationFailed, err)
		}
		if !ok {
			log.Warn().
				Int64("order_id", order.ID).
				Int64("product_id", it.ProductID).
				Int("quantity", it.Quantity).
				Msg("product no longer exists, stock not restored")
			continue
		}
		restored++
	}

	if err := s.orders.UpdateStatus(ctx, tx, order.ID, model.StatusCancelled); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancellationFailed, err)
	}

	notes := model.CancellationNote(reason)
	if err := s.orders.InsertTracking(ctx, tx, &model.OrderTracking{
		OrderID:   order.ID,
		StatusID:  model.StatusCancelled,
		Notes:     notes,
		CreatedBy: actor,
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancellationFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", ErrCancellationFailed, err)
	}

	order.StatusID = model.StatusCancelled
	order.Status = model.StatusName(model.StatusCancelled)
	publishEvent(ctx, s.publisher, model.NewOrderEvent(model.EventOrderCancelled, order, reason, s.now()))

	return &model.CancellationResult{
		Success:       true,
		Message:       "Order cancelled successfully and stock has been restored",
		RestoredItems: restored,
	}, nil
}

// UpdateStatus moves an order to statusID on behalf of an administrator.
// Cancellation goes through the same path as Cancel so stock is restored.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, statusID int, notes, by string) (*model.Order, error) {
	if !model.KnownStatus(statusID) {
		return nil, fmt.Errorf("%w: unknown status %d", ErrInvalidRequest, statusID)
	}

	if statusID == model.StatusCancelled {
		reason := notes
		if strings.TrimSpace(reason) == "" {
			reason = "oleh admin"
		}
		if _, err := s.cancel(ctx, orderID, "", by, reason); err != nil {
			if errors.Is(err, ErrOrderNotCancellable) {
				return nil, ErrInvalidStatusTransition
			}
			return nil, err
		}
		return s.GetByID(ctx, orderID, "")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	order, err := s.orders.GetForUpdate(ctx, tx, orderID, "")
	if err != nil {
		return nil, err
	}
	if model.Terminal(order.StatusID) || order.StatusID == statusID {
		return nil, ErrInvalidStatusTransition
	}

	if err := s.orders.UpdateStatus(ctx, tx, orderID, statusID); err != nil {
		return nil, err
	}

	if strings.TrimSpace(notes) == "" {
		notes = "Status changed to " + model.StatusName(statusID)
	}
	if err := s.orders.InsertTracking(ctx, tx, &model.OrderTracking{
		OrderID:   orderID,
		StatusID:  statusID,
		Notes:     notes,
		CreatedBy: by,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit status change: %w", err)
	}

	order.StatusID = statusID
	order.Status = model.StatusName(statusID)
	publishEvent(ctx, s.publisher, model.NewOrderEvent(model.EventOrderStatusChanged, order, notes, s.now()))

	return s.GetByID(ctx, orderID, "")
}

// GetByID returns an order with its items. A non-empty userID restricts the
// lookup to that user's orders.
func (s *OrderService) GetByID(ctx context.Context, orderID int64, userID string) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID, userID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListByUser returns userID's orders, newest first.
func (s *OrderService) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ListAll returns every order matching f.
func (s *OrderService) ListAll(ctx context.Context, f model.OrderFilter) ([]model.Order, error) {
	if f.StatusID != nil && !model.KnownStatus(*f.StatusID) {
		return nil, fmt.Errorf("%w: unknown status %d", ErrInvalidRequest, *f.StatusID)
	}
	f.Search = strings.TrimSpace(f.Search)
	return s.orders.ListAll(ctx, f)
}

// Tracking returns an order's status history, newest first.
func (s *OrderService) Tracking(ctx context.Context, orderID int64, userID string) ([]model.OrderTracking, error) {
	if _, err := s.GetByID(ctx, orderID, userID); err != nil {
		return nil, err
	}
	return s.orders.Tracking(ctx, orderID)
}

// Statuses returns the order status table.
func (s *OrderService) Statuses() []model.OrderStatus {
	return model.OrderStatuses()
}
