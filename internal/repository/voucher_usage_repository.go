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

// VoucherUsageRepository provides data access for voucher redemption records.
type VoucherUsageRepository struct {
	pool PoolInterface
}

// NewVoucherUsageRepository creates a new VoucherUsageRepository with the given pool.
func NewVoucherUsageRepository(pool *pgxpool.Pool) *VoucherUsageRepository {
	return &VoucherUsageRepository{pool: pool}
}

// NewVoucherUsageRepositoryWithPool creates a new VoucherUsageRepository with a custom pool interface.
// This is primarily used for testing.
func NewVoucherUsageRepositoryWithPool(pool PoolInterface) *VoucherUsageRepository {
	return &VoucherUsageRepository{pool: pool}
}

// HasUsed reports whether userID already redeemed the voucher.
func (r *VoucherUsageRepository) HasUsed(ctx context.Context, voucherID int64, userID string) (bool, error) {
	return hasUsed(ctx, r.pool, voucherID, userID)
}

// HasUsedTx is HasUsed inside a transaction.
func (r *VoucherUsageRepository) HasUsedTx(ctx context.Context, tx database.TxQuerier, voucherID int64, userID string) (bool, error) {
	return hasUsed(ctx, tx, voucherID, userID)
}

func hasUsed(ctx context.Context, q database.TxQuerier, voucherID int64, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM voucher_usage WHERE voucher_id = $1 AND user_id = $2)`

	var exists bool
	if err := q.QueryRow(ctx, query, voucherID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check voucher usage %d for %s: %w", voucherID, userID, err)
	}
	return exists, nil
}

// Insert records a redemption within a transaction.
// Returns service.ErrVoucherAlreadyUsed if the user already has a record for this voucher.
func (r *VoucherUsageRepository) Insert(ctx context.Context, tx database.TxQuerier, usage *model.VoucherUsage) error {
	query := `INSERT INTO voucher_usage (voucher_id, user_id, order_id, discount_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, used_at`

	err := tx.QueryRow(ctx, query, usage.VoucherID, usage.UserID, usage.OrderID, usage.DiscountAmount).
		Scan(&usage.ID, &usage.UsedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == database.UniqueViolation {
			return service.ErrVoucherAlreadyUsed
		}
		return fmt.Errorf("insert voucher usage: %w", err)
	}
	return nil
}

// CountByVoucher returns how many redemption records reference the voucher.
func (r *VoucherUsageRepository) CountByVoucher(ctx context.Context, voucherID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM voucher_usage WHERE voucher_id = $1`, voucherID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count voucher usage %d: %w", voucherID, err)
	}
	return n, nil
}

// List returns redemption records newest first, optionally for a single voucher.
// On success, returns an empty slice (not nil) when no records exist.
func (r *VoucherUsageRepository) List(ctx context.Context, voucherID *int64) ([]model.VoucherUsage, error) {
	query := `SELECT u.id, u.voucher_id, v.code, u.user_id, u.order_id, u.discount_amount, u.used_at
		FROM voucher_usage u
		JOIN vouchers v ON v.id = u.voucher_id
		WHERE ($1::BIGINT IS NULL OR u.voucher_id = $1)
		ORDER BY u.used_at DESC, u.id DESC`

	rows, err := r.pool.Query(ctx, query, voucherID)
	if err != nil {
		return nil, fmt.Errorf("list voucher usage: %w", err)
	}
	defer rows.Close()

	usages := []model.VoucherUsage{}
	for rows.Next() {
		var u model.VoucherUsage
		if err := rows.Scan(&u.ID, &u.VoucherID, &u.VoucherCode, &u.UserID, &u.OrderID, &u.DiscountAmount, &u.UsedAt); err != nil {
			return nil, fmt.Errorf("scan voucher usage: %w", err)
		}
		usages = append(usages, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voucher usage rows: %w", err)
	}
	return usages, nil
}
