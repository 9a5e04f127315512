package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/internal/service"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

const reviewColumns = `r.id, r.order_id, o.order_number, r.user_id, r.rating, r.comment, r.created_at, r.updated_at`

const reviewFrom = ` FROM order_reviews r JOIN orders o ON o.id = r.order_id`

// ReviewRepository provides data access for order reviews.
type ReviewRepository struct {
	pool PoolInterface
}

// NewReviewRepository creates a new ReviewRepository with the given pool.
func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// NewReviewRepositoryWithPool creates a new ReviewRepository with a custom pool interface.
func NewReviewRepositoryWithPool(pool PoolInterface) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

func scanReview(row rowScanner) (*model.Review, error) {
	var r model.Review
	if err := row.Scan(&r.ID, &r.OrderID, &r.OrderNumber, &r.UserID, &r.Rating, &r.Comment, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// Insert stores a review. Returns service.ErrReviewExists if the user already
// reviewed the order.
func (r *ReviewRepository) Insert(ctx context.Context, rv *model.Review) error {
	query := `INSERT INTO order_reviews (order_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, rv.OrderID, rv.UserID, rv.Rating, rv.Comment).
		Scan(&rv.ID, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == database.UniqueViolation {
			return service.ErrReviewExists
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// Update changes the rating and comment of a review the user owns.
func (r *ReviewRepository) Update(ctx context.Context, rv *model.Review) error {
	query := `UPDATE order_reviews SET rating = $3, comment = $4, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING order_id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, rv.ID, rv.UserID, rv.Rating, rv.Comment).
		Scan(&rv.OrderID, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.ErrReviewNotFound
		}
		return fmt.Errorf("update review %d: %w", rv.ID, err)
	}
	return nil
}

// Delete removes a review the user owns.
func (r *ReviewRepository) Delete(ctx context.Context, id int64, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM order_reviews WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete review %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrReviewNotFound
	}
	return nil
}

// GetByOrder returns the user's review of an order, or nil, nil.
func (r *ReviewRepository) GetByOrder(ctx context.Context, orderID int64, userID string) (*model.Review, error) {
	query := `SELECT ` + reviewColumns + reviewFrom + ` WHERE r.order_id = $1 AND r.user_id = $2`

	rv, err := scanReview(r.pool.QueryRow(ctx, query, orderID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review for order %d: %w", orderID, err)
	}
	return rv, nil
}

// ListByUser returns a user's reviews newest first.
func (r *ReviewRepository) ListByUser(ctx context.Context, userID string) ([]model.Review, error) {
	query := `SELECT ` + reviewColumns + reviewFrom + ` WHERE r.user_id = $1 ORDER BY r.created_at DESC, r.id DESC`
	return r.list(ctx, query, userID)
}

// ListByProduct returns, newest first, the reviews of every order containing the product.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID int64) ([]model.Review, error) {
	query := `SELECT ` + reviewColumns + reviewFrom + `
		WHERE EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = r.order_id AND i.product_id = $1)
		ORDER BY r.created_at DESC, r.id DESC`
	return r.list(ctx, query, productID)
}

func (r *ReviewRepository) list(ctx context.Context, query string, args ...any) ([]model.Review, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []model.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}
	return reviews, nil
}
