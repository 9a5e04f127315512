package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/internal/service"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const voucherColumns = `id, code, name, description, discount_type, discount_value, min_purchase,
	max_discount, usage_limit, usage_count, active, starts_at, ends_at, created_by, created_at, updated_at`

// VoucherRepository provides data access for vouchers using pgx.
type VoucherRepository struct {
	pool PoolInterface
}

// NewVoucherRepository creates a new VoucherRepository with the given pool.
func NewVoucherRepository(pool *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

// NewVoucherRepositoryWithPool creates a new VoucherRepository with a custom pool interface.
// This is primarily used for testing.
func NewVoucherRepositoryWithPool(pool PoolInterface) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

func scanVoucher(row rowScanner) (*model.Voucher, error) {
	var v model.Voucher
	var discountType string
	err := row.Scan(
		&v.ID,
		&v.Code,
		&v.Name,
		&v.Description,
		&discountType,
		&v.DiscountValue,
		&v.MinPurchase,
		&v.MaxDiscount,
		&v.UsageLimit,
		&v.UsageCount,
		&v.Active,
		&v.StartsAt,
		&v.EndsAt,
		&v.CreatedBy,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.DiscountType = model.DiscountType(discountType)
	return &v, nil
}

func collectVouchers(rows pgx.Rows) ([]model.Voucher, error) {
	defer rows.Close()

	vouchers := []model.Voucher{}
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, fmt.Errorf("scan voucher: %w", err)
		}
		vouchers = append(vouchers, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voucher rows: %w", err)
	}
	return vouchers, nil
}

// Insert inserts a new voucher and fills its generated fields.
// Returns service.ErrVoucherExists if the code is already taken.
func (r *VoucherRepository) Insert(ctx context.Context, v *model.Voucher) error {
	query := `INSERT INTO vouchers (code, name, description, discount_type, discount_value, min_purchase,
			max_discount, usage_limit, usage_count, active, starts_at, ends_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		v.Code, v.Name, v.Description, string(v.DiscountType), v.DiscountValue, v.MinPurchase,
		v.MaxDiscount, v.UsageLimit, v.Active, v.StartsAt, v.EndsAt, v.CreatedBy,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == database.UniqueViolation {
			return service.ErrVoucherExists
		}
		return fmt.Errorf("insert voucher: %w", err)
	}
	v.UsageCount = 0
	return nil
}

// Update overwrites the editable fields of a voucher. usage_count is never touched here.
// Returns service.ErrVoucherNotFound when no row matches and service.ErrVoucherExists on a code clash.
func (r *VoucherRepository) Update(ctx context.Context, v *model.Voucher) error {
	query := `UPDATE vouchers SET code = $2, name = $3, description = $4, discount_type = $5,
			discount_value = $6, min_purchase = $7, max_discount = $8, usage_limit = $9,
			active = $10, starts_at = $11, ends_at = $12, updated_at = NOW()
		WHERE id = $1
		RETURNING usage_count, created_by, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		v.ID, v.Code, v.Name, v.Description, string(v.DiscountType), v.DiscountValue, v.MinPurchase,
		v.MaxDiscount, v.UsageLimit, v.Active, v.StartsAt, v.EndsAt,
	).Scan(&v.UsageCount, &v.CreatedBy, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.ErrVoucherNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == database.UniqueViolation {
			return service.ErrVoucherExists
		}
		return fmt.Errorf("update voucher %d: %w", v.ID, err)
	}
	return nil
}

// Delete removes a voucher. Returns service.ErrVoucherNotFound if nothing was deleted.
func (r *VoucherRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM vouchers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete voucher %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrVoucherNotFound
	}
	return nil
}

// SetActive switches a voucher on or off and returns the updated row.
func (r *VoucherRepository) SetActive(ctx context.Context, id int64, active bool) (*model.Voucher, error) {
	query := `UPDATE vouchers SET active = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + voucherColumns

	v, err := scanVoucher(r.pool.QueryRow(ctx, query, id, active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrVoucherNotFound
		}
		return nil, fmt.Errorf("set voucher %d active: %w", id, err)
	}
	return v, nil
}

// GetByID retrieves a voucher by id.
// Returns nil, nil if the voucher is not found (service layer handles this).
func (r *VoucherRepository) GetByID(ctx context.Context, id int64) (*model.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE id = $1`

	v, err := scanVoucher(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher by id %d: %w", id, err)
	}
	return v, nil
}

// GetByCode retrieves a voucher by its normalised code.
// Returns nil, nil if the voucher is not found (service layer handles this).
func (r *VoucherRepository) GetByCode(ctx context.Context, code string) (*model.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE code = $1`

	v, err := scanVoucher(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher by code %s: %w", code, err)
	}
	return v, nil
}

// GetByCodeForUpdate retrieves a voucher with a row lock (SELECT FOR UPDATE).
// This locks the row until the transaction completes.
// Returns service.ErrVoucherNotFound if the voucher doesn't exist.
func (r *VoucherRepository) GetByCodeForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE code = $1 FOR UPDATE`

	v, err := scanVoucher(tx.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrVoucherNotFound
		}
		return nil, fmt.Errorf("get voucher for update %s: %w", code, err)
	}
	return v, nil
}

// List returns every voucher, newest first.
func (r *VoucherRepository) List(ctx context.Context) ([]model.Voucher, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+voucherColumns+` FROM vouchers ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	return collectVouchers(rows)
}

// ListActive returns vouchers that are switched on and whose window contains now.
func (r *VoucherRepository) ListActive(ctx context.Context, now time.Time) ([]model.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers
		WHERE active = TRUE AND starts_at <= $1 AND ends_at >= $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list active vouchers: %w", err)
	}
	return collectVouchers(rows)
}

// IncrementUsage adds one to usage_count, guarded so the count never exceeds usage_limit.
// Returns service.ErrVoucherUsageLimitReached when the guard rejects the update.
func (r *VoucherRepository) IncrementUsage(ctx context.Context, tx database.TxQuerier, id int64) error {
	query := `UPDATE vouchers SET usage_count = usage_count + 1, updated_at = NOW()
		WHERE id = $1 AND usage_count < usage_limit`

	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment voucher usage %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrVoucherUsageLimitReached
	}
	return nil
}

// Stats aggregates voucher and usage counters.
func (r *VoucherRepository) Stats(ctx context.Context) (*model.VoucherStats, error) {
	query := `SELECT
			(SELECT COUNT(*) FROM vouchers),
			(SELECT COUNT(*) FROM vouchers WHERE active = TRUE),
			(SELECT COUNT(*) FROM voucher_usage),
			(SELECT COALESCE(SUM(discount_amount), 0) FROM voucher_usage)`

	var stats model.VoucherStats
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalVouchers,
		&stats.ActiveVouchers,
		&stats.TotalUsage,
		&stats.TotalDiscountGiven,
	)
	if err != nil {
		return nil, fmt.Errorf("voucher stats: %w", err)
	}
	return &stats, nil
}
