package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/internal/service"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

const orderColumns = `o.id, o.order_number, o.user_id, o.original_amount, o.discount_amount, o.total_amount,
	o.voucher_id, o.voucher_code, o.shipping_address_id, o.status_id, s.name, o.notes, o.created_at, o.updated_at`

const orderFrom = ` FROM orders o JOIN order_status s ON s.id = o.status_id`

// OrderRepository provides data access for orders, their items and tracking history.
type OrderRepository struct {
	pool PoolInterface
}

// NewOrderRepository creates a new OrderRepository with the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// NewOrderRepositoryWithPool creates a new OrderRepository with a custom pool interface.
func NewOrderRepositoryWithPool(pool PoolInterface) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.OriginalAmount,
		&o.DiscountAmount,
		&o.TotalAmount,
		&o.VoucherID,
		&o.VoucherCode,
		&o.ShippingAddressID,
		&o.StatusID,
		&o.Status,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Items = []model.OrderItem{}
	return &o, nil
}

// Insert creates the order row and fills its id and timestamps.
// Returns service.ErrOrderNumberTaken without aborting tx if the number exists.
func (r *OrderRepository) Insert(ctx context.Context, tx database.TxQuerier, o *model.Order) error {
	query := `INSERT INTO orders (order_number, user_id, original_amount, discount_amount, total_amount,
			voucher_id, voucher_code, shipping_address_id, status_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (order_number) DO NOTHING
		RETURNING id, created_at, updated_at`

	err := tx.QueryRow(ctx, query,
		o.OrderNumber, o.UserID, o.OriginalAmount, o.DiscountAmount, o.TotalAmount,
		o.VoucherID, o.VoucherCode, o.ShippingAddressID, o.StatusID, o.Notes,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return service.ErrOrderNumberTaken
	}
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.OrderNumber, err)
	}
	return nil
}

// InsertItems stores the order lines, setting each item's id and order id.
func (r *OrderRepository) InsertItems(ctx context.Context, tx database.TxQuerier, orderID int64, items []model.OrderItem) error {
	query := `INSERT INTO order_items (order_id, product_id, product_name, quantity, price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	for i := range items {
		it := &items[i]
		it.OrderID = orderID
		if err := tx.QueryRow(ctx, query, orderID, it.ProductID, it.ProductName, it.Quantity, it.Price, it.Subtotal).
			Scan(&it.ID); err != nil {
			return fmt.Errorf("insert order item for product %d: %w", it.ProductID, err)
		}
	}
	return nil
}

// InsertTracking appends a status history entry.
func (r *OrderRepository) InsertTracking(ctx context.Context, tx database.TxQuerier, t *model.OrderTracking) error {
	query := `INSERT INTO order_tracking (order_id, status_id, notes, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	if err := tx.QueryRow(ctx, query, t.OrderID, t.StatusID, t.Notes, t.CreatedBy).Scan(&t.ID, &t.CreatedAt); err != nil {
		return fmt.Errorf("insert tracking for order %d: %w", t.OrderID, err)
	}
	t.Status = model.StatusName(t.StatusID)
	return nil
}

// UpdateStatus moves an order to statusID.
func (r *OrderRepository) UpdateStatus(ctx context.Context, tx database.TxQuerier, orderID int64, statusID int) error {
	tag, err := tx.Exec(ctx, `UPDATE orders SET status_id = $2, updated_at = NOW() WHERE id = $1`, orderID, statusID)
	if err != nil {
		return fmt.Errorf("update status of order %d: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrOrderNotFound
	}
	return nil
}

// GetForUpdate locks the order row and loads its items inside tx.
// An empty userID skips the ownership filter.
// Returns service.ErrOrderNotFound if no matching order exists.
func (r *OrderRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, orderID int64, userID string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + orderFrom + `
		WHERE o.id = $1 AND ($2 = '' OR o.user_id = $2)
		FOR UPDATE OF o`

	o, err := scanOrder(tx.QueryRow(ctx, query, orderID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order for update %d: %w", orderID, err)
	}

	if err := loadItems(ctx, tx, []*model.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// GetByID returns the order with its items, or nil, nil when not found.
// An empty userID skips the ownership filter.
func (r *OrderRepository) GetByID(ctx context.Context, orderID int64, userID string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + orderFrom + ` WHERE o.id = $1 AND ($2 = '' OR o.user_id = $2)`

	o, err := scanOrder(r.pool.QueryRow(ctx, query, orderID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}

	if err := loadItems(ctx, r.pool, []*model.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// ListByUser returns a user's orders newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + orderFrom + ` WHERE o.user_id = $1 ORDER BY o.created_at DESC, o.id DESC`
	return r.list(ctx, query, userID)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListAll returns every order newest first, narrowed by status and order number.
func (r *OrderRepository) ListAll(ctx context.Context, f model.OrderFilter) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + orderFrom + `
		WHERE ($1::INTEGER IS NULL OR o.status_id = $1)
		AND ($2 = '' OR o.order_number ILIKE '%' || $2 || '%')
		ORDER BY o.created_at DESC, o.id DESC`
	return r.list(ctx, query, f.StatusID, likeEscaper.Replace(f.Search))
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	var ptrs []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		ptrs = append(ptrs, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	if err := loadItems(ctx, r.pool, ptrs); err != nil {
		return nil, err
	}

	orders := make([]model.Order, 0, len(ptrs))
	for _, o := range ptrs {
		orders = append(orders, *o)
	}
	return orders, nil
}

// loadItems fetches the lines of all given orders in one query.
func loadItems(ctx context.Context, q database.TxQuerier, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(orders))
	byID := make(map[int64]*model.Order, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		byID[o.ID] = o
	}

	query := `SELECT id, order_id, product_id, product_name, quantity, price, subtotal
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, id`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price, &it.Subtotal); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order item rows: %w", err)
	}
	return nil
}

// Tracking returns an order's status history newest first.
func (r *OrderRepository) Tracking(ctx context.Context, orderID int64) ([]model.OrderTracking, error) {
	query := `SELECT t.id, t.order_id, t.status_id, s.name, t.notes, t.created_by, t.created_at
		FROM order_tracking t
		JOIN order_status s ON s.id = t.status_id
		WHERE t.order_id = $1
		ORDER BY t.created_at DESC, t.id DESC`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("get tracking for order %d: %w", orderID, err)
	}
	defer rows.Close()

	history := []model.OrderTracking{}
	for rows.Next() {
		var t model.OrderTracking
		if err := rows.Scan(&t.ID, &t.OrderID, &t.StatusID, &t.Status, &t.Notes, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tracking: %w", err)
		}
		history = append(history, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracking rows: %w", err)
	}
	return history, nil
}
