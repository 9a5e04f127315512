package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/internal/service"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

// CartRepository provides data access for per-user carts.
type CartRepository struct {
	pool PoolInterface
}

// NewCartRepository creates a new CartRepository with the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// NewCartRepositoryWithPool creates a new CartRepository with a custom pool interface.
func NewCartRepositoryWithPool(pool PoolInterface) *CartRepository {
	return &CartRepository{pool: pool}
}

// ensureCart returns the id of the user's cart, creating it on first use.
func (r *CartRepository) ensureCart(ctx context.Context, userID string) (int64, error) {
	query := `INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id`

	var id int64
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&id); err != nil {
		return 0, fmt.Errorf("ensure cart for %s: %w", userID, err)
	}
	return id, nil
}

// Items returns the user's cart lines joined with current product data.
// On success, returns an empty slice (not nil) when the cart is empty or missing.
func (r *CartRepository) Items(ctx context.Context, userID string) ([]model.CartItem, error) {
	query := `SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity,
			p.id, p.name, p.description, p.price, p.stock, p.created_at, p.updated_at
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		JOIN products p ON p.id = ci.product_id
		WHERE c.user_id = $1
		ORDER BY ci.created_at, ci.id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart items for %s: %w", userID, err)
	}
	defer rows.Close()

	items := []model.CartItem{}
	for rows.Next() {
		var it model.CartItem
		p := &it.Product
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart item rows: %w", err)
	}
	return items, nil
}

// AddItem adds qty of a product, merging into an existing line for the same product.
// Returns service.ErrProductNotFound if the product does not exist.
func (r *CartRepository) AddItem(ctx context.Context, userID string, productID int64, qty int) error {
	cartID, err := r.ensureCart(ctx, userID)
	if err != nil {
		return err
	}

	query := `INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`

	if _, err := r.pool.Exec(ctx, query, cartID, productID, qty); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == database.ForeignKeyViolation {
			return service.ErrProductNotFound
		}
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

// UpdateQuantity sets the quantity of a line owned by userID.
// Returns service.ErrCartItemNotFound if the line is not in the user's cart.
func (r *CartRepository) UpdateQuantity(ctx context.Context, userID string, itemID int64, qty int) error {
	query := `UPDATE cart_items ci SET quantity = $3
		FROM carts c
		WHERE ci.id = $2 AND ci.cart_id = c.id AND c.user_id = $1`

	tag, err := r.pool.Exec(ctx, query, userID, itemID, qty)
	if err != nil {
		return fmt.Errorf("update cart item %d: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCartItemNotFound
	}
	return nil
}

// RemoveItem deletes a line owned by userID.
// Returns service.ErrCartItemNotFound if the line is not in the user's cart.
func (r *CartRepository) RemoveItem(ctx context.Context, userID string, itemID int64) error {
	query := `DELETE FROM cart_items ci USING carts c
		WHERE ci.id = $2 AND ci.cart_id = c.id AND c.user_id = $1`

	tag, err := r.pool.Exec(ctx, query, userID, itemID)
	if err != nil {
		return fmt.Errorf("remove cart item %d: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCartItemNotFound
	}
	return nil
}

// Clear empties the user's cart. Clearing an absent cart is not an error.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	return clearCart(ctx, r.pool, userID)
}

// ClearTx is Clear inside a transaction.
func (r *CartRepository) ClearTx(ctx context.Context, tx database.TxQuerier, userID string) error {
	return clearCart(ctx, tx, userID)
}

func clearCart(ctx context.Context, q database.TxQuerier, userID string) error {
	query := `DELETE FROM cart_items WHERE cart_id IN (SELECT id FROM carts WHERE user_id = $1)`
	if _, err := q.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("clear cart for %s: %w", userID, err)
	}
	return nil
}
