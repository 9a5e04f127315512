package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/internal/service"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

const productColumns = `id, name, description, price, stock, created_at, updated_at`

// ProductRepository provides data access for products using pgx.
type ProductRepository struct {
	pool PoolInterface
}

// NewProductRepository creates a new ProductRepository with the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// NewProductRepositoryWithPool creates a new ProductRepository with a custom pool interface.
func NewProductRepositoryWithPool(pool PoolInterface) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var p model.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func collectProducts(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// Insert adds a product and fills its generated fields.
func (r *ProductRepository) Insert(ctx context.Context, p *model.Product) error {
	query := `INSERT INTO products (name, description, price, stock)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	if err := r.pool.QueryRow(ctx, query, p.Name, p.Description, p.Price, p.Stock).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when the product does not exist.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// List returns all products ordered by name.
func (r *ProductRepository) List(ctx context.Context) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return collectProducts(rows)
}

// Update replaces a product's catalog fields.
// Returns service.ErrProductNotFound if the product does not exist.
func (r *ProductRepository) Update(ctx context.Context, p *model.Product) error {
	query := `UPDATE products SET name = $2, description = $3, price = $4, stock = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, p.ID, p.Name, p.Description, p.Price, p.Stock).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.ErrProductNotFound
		}
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	return nil
}

// Delete removes a product. Order items keep their name and price snapshot.
// Returns service.ErrProductNotFound if nothing was deleted.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrProductNotFound
	}
	return nil
}

// SetStock overwrites a product's stock. Administrative use only.
func (r *ProductRepository) SetStock(ctx context.Context, id int64, stock int) (*model.Product, error) {
	query := `UPDATE products SET stock = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + productColumns

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id, stock))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrProductNotFound
		}
		return nil, fmt.Errorf("set stock for product %d: %w", id, err)
	}
	return p, nil
}

// LockForCheckout reads the given products with row locks held until the transaction ends.
// Rows are locked in id order so concurrent checkouts cannot deadlock on each other.
func (r *ProductRepository) LockForCheckout(ctx context.Context, tx database.TxQuerier, ids []int64) ([]model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	return collectProducts(rows)
}

// DecrementStock subtracts qty only if enough stock remains.
// Returns false when the guard rejected the update.
func (r *ProductRepository) DecrementStock(ctx context.Context, tx database.TxQuerier, id int64, qty int) (bool, error) {
	query := `UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2`

	tag, err := tx.Exec(ctx, query, id, qty)
	if err != nil {
		return false, fmt.Errorf("decrement stock for product %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// IncrementStock adds qty back to a product. Returns false if the product no longer exists.
func (r *ProductRepository) IncrementStock(ctx context.Context, tx database.TxQuerier, id int64, qty int) (bool, error) {
	query := `UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`

	tag, err := tx.Exec(ctx, query, id, qty)
	if err != nil {
		return false, fmt.Errorf("increment stock for product %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}
