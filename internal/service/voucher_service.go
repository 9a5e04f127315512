package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

// VoucherRepositoryInterface defines the interface for voucher data access.
type VoucherRepositoryInterface interface {
	Insert(ctx context.Context, v *model.Voucher) error
	Update(ctx context.Context, v *model.Voucher) error
	Delete(ctx context.Context, id int64) error
	SetActive(ctx context.Context, id int64, active bool) (*model.Voucher, error)
	GetByID(ctx context.Context, id int64) (*model.Voucher, error)
	GetByCode(ctx context.Context, code string) (*model.Voucher, error)
	GetByCodeForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Voucher, error)
	List(ctx context.Context) ([]model.Voucher, error)
	ListActive(ctx context.Context, now time.Time) ([]model.Voucher, error)
	IncrementUsage(ctx context.Context, tx database.TxQuerier, id int64) error
	Stats(ctx context.Context) (*model.VoucherStats, error)
}

// VoucherUsageRepositoryInterface defines the interface for redemption records.
type VoucherUsageRepositoryInterface interface {
	HasUsed(ctx context.Context, voucherID int64, userID string) (bool, error)
	HasUsedTx(ctx context.Context, tx database.TxQuerier, voucherID int64, userID string) (bool, error)
	Insert(ctx context.Context, tx database.TxQuerier, usage *model.VoucherUsage) error
	CountByVoucher(ctx context.Context, voucherID int64) (int, error)
	List(ctx context.Context, voucherID *int64) ([]model.VoucherUsage, error)
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// VoucherService provides voucher validation, redemption and administration.
type VoucherService struct {
	pool     TxBeginner
	vouchers VoucherRepositoryInterface
	usages   VoucherUsageRepositoryInterface
	now      func() time.Time
}

// NewVoucherService creates a new VoucherService with the given pool and repositories.
func NewVoucherService(pool *pgxpool.Pool, vouchers VoucherRepositoryInterface, usages VoucherUsageRepositoryInterface) *VoucherService {
	return NewVoucherServiceWithTxBeginner(pool, vouchers, usages)
}

// NewVoucherServiceWithTxBeginner creates a VoucherService with a custom TxBeginner.
// Primarily used for testing.
func NewVoucherServiceWithTxBeginner(pool TxBeginner, vouchers VoucherRepositoryInterface, usages VoucherUsageRepositoryInterface) *VoucherService {
	return &VoucherService{
		pool:     pool,
		vouchers: vouchers,
		usages:   usages,
		now:      time.Now,
	}
}

// WithClock replaces the time source used for validity windows.
func (s *VoucherService) WithClock(now func() time.Time) *VoucherService {
	s.now = now
	return s
}

// checkEligibility applies the voucher-level rules in order; the first failure wins.
func checkEligibility(v *model.Voucher, subtotal decimal.Decimal, now time.Time) error {
	switch {
	case !v.Active:
		return ErrVoucherInactive
	case !v.InWindow(now):
		return ErrVoucherExpired
	case v.Exhausted():
		return ErrVoucherUsageLimitReached
	case subtotal.LessThan(v.MinPurchase):
		return &MinimumPurchaseError{Minimum: v.MinPurchase}
	}
	return nil
}

func buildValidation(v *model.Voucher, subtotal decimal.Decimal) *model.VoucherValidation {
	discount := ComputeDiscount(v, subtotal)
	return &model.VoucherValidation{
		Voucher:        v,
		DiscountAmount: discount,
		FinalAmount:    subtotal.Sub(discount),
	}
}

// Validate checks whether userID may apply code to a cart worth subtotal and
// computes the resulting discount. It never writes.
func (s *VoucherService) Validate(ctx context.Context, code string, subtotal decimal.Decimal, userID string) (*model.VoucherValidation, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrVoucherNotFound
	}

	v, err := s.vouchers.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	if v == nil {
		return nil, ErrVoucherNotFound
	}

	if err := checkEligibility(v, subtotal, s.now()); err != nil {
		return nil, err
	}

	used, err := s.usages.HasUsed(ctx, v.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("check voucher usage: %w", err)
	}
	if used {
		return nil, ErrVoucherAlreadyUsed
	}

	return buildValidation(v, subtotal), nil
}

// ValidateTx is Validate against a row-locked voucher inside tx.
// The lock is held until tx ends, so concurrent checkouts using the same code serialise here.
func (s *VoucherService) ValidateTx(ctx context.Context, tx database.TxQuerier, code string, subtotal decimal.Decimal, userID string) (*model.VoucherValidation, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrVoucherNotFound
	}

	v, err := s.vouchers.GetByCodeForUpdate(ctx, tx, code)
	if err != nil {
		if errors.Is(err, ErrVoucherNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, fmt.Errorf("get voucher for update: %w", err)
	}

	if err := checkEligibility(v, subtotal, s.now()); err != nil {
		return nil, err
	}

	used, err := s.usages.HasUsedTx(ctx, tx, v.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("check voucher usage: %w", err)
	}
	if used {
		return nil, ErrVoucherAlreadyUsed
	}

	return buildValidation(v, subtotal), nil
}

// Redeem records the usage and increments usage_count as one unit inside tx.
// Returns ErrVoucherAlreadyUsed or ErrVoucherUsageLimitReached when a concurrent
// redemption won the race.
func (s *VoucherService) Redeem(ctx context.Context, tx database.TxQuerier, voucherID int64, userID string, orderID int64, discount decimal.Decimal) (*model.VoucherUsage, error) {
	usage := &model.VoucherUsage{
		VoucherID:      voucherID,
		UserID:         userID,
		OrderID:        orderID,
		DiscountAmount: discount,
	}

	if err := s.usages.Insert(ctx, tx, usage); err != nil {
		if errors.Is(err, ErrVoucherAlreadyUsed) {
			return nil, ErrVoucherAlreadyUsed
		}
		return nil, fmt.Errorf("insert voucher usage: %w", err)
	}

	if err := s.vouchers.IncrementUsage(ctx, tx, voucherID); err != nil {
		if errors.Is(err, ErrVoucherUsageLimitReached) {
			return nil, ErrVoucherUsageLimitReached
		}
		return nil, fmt.Errorf("increment voucher usage: %w", err)
	}

	return usage, nil
}

// RedeemStandalone runs Redeem in its own transaction.
func (s *VoucherService) RedeemStandalone(ctx context.Context, voucherID int64, userID string, orderID int64, discount decimal.Decimal) (*model.VoucherUsage, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	usage, err := s.Redeem(ctx, tx, voucherID, userID, orderID, discount)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit redemption: %w", err)
	}
	return usage, nil
}

// voucherFromRequest maps the admin DTO onto a Voucher.
// max_discount only applies to percentage vouchers and is dropped otherwise.
func voucherFromRequest(req *model.VoucherRequest) (*model.Voucher, error) {
	if req == nil || req.UsageLimit == nil {
		return nil, ErrInvalidRequest
	}
	if req.DiscountType == model.DiscountPercentage && req.DiscountValue.GreaterThan(hundred) {
		return nil, fmt.Errorf("%w: percentage discount cannot exceed 100", ErrInvalidRequest)
	}
	if req.MaxDiscount.Valid && !req.MaxDiscount.Decimal.IsPositive() {
		return nil, fmt.Errorf("%w: max_discount must be greater than 0", ErrInvalidRequest)
	}
	if req.EndsAt.Before(req.StartsAt) {
		return nil, fmt.Errorf("%w: ends_at is before starts_at", ErrInvalidRequest)
	}

	v := &model.Voucher{
		Code:          NormalizeCode(req.Code),
		Name:          req.Name,
		Description:   req.Description,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		MinPurchase:   req.MinPurchase,
		UsageLimit:    *req.UsageLimit,
		Active:        true,
		StartsAt:      req.StartsAt,
		EndsAt:        req.EndsAt,
	}
	if req.DiscountType == model.DiscountPercentage {
		v.MaxDiscount = req.MaxDiscount
	}
	if req.Active != nil {
		v.Active = *req.Active
	}
	return v, nil
}

// Create adds a voucher. Returns ErrVoucherExists if the code is taken.
func (s *VoucherService) Create(ctx context.Context, req *model.VoucherRequest, createdBy string) (*model.Voucher, error) {
	v, err := voucherFromRequest(req)
	if err != nil {
		return nil, err
	}
	v.CreatedBy = createdBy

	if err := s.vouchers.Insert(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Update overwrites a voucher's editable fields. The usage limit cannot drop
// below the number of redemptions already made. An omitted active flag keeps
// the voucher's current state.
func (s *VoucherService) Update(ctx context.Context, id int64, req *model.VoucherRequest) (*model.Voucher, error) {
	v, err := voucherFromRequest(req)
	if err != nil {
		return nil, err
	}

	existing, err := s.vouchers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	if existing == nil {
		return nil, ErrVoucherNotFound
	}
	if v.UsageLimit < existing.UsageCount {
		return nil, fmt.Errorf("%w: usage_limit %d is below current usage %d", ErrInvalidRequest, v.UsageLimit, existing.UsageCount)
	}

	if req.Active == nil {
		v.Active = existing.Active
	}

	v.ID = id
	if err := s.vouchers.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Delete removes a voucher that has never been redeemed.
func (s *VoucherService) Delete(ctx context.Context, id int64) error {
	n, err := s.usages.CountByVoucher(ctx, id)
	if err != nil {
		return fmt.Errorf("count voucher usage: %w", err)
	}
	if n > 0 {
		return ErrVoucherInUse
	}
	return s.vouchers.Delete(ctx, id)
}

// SetActive switches a voucher on or off.
func (s *VoucherService) SetActive(ctx context.Context, id int64, active bool) (*model.Voucher, error) {
	return s.vouchers.SetActive(ctx, id, active)
}

// Get returns a voucher by id.
func (s *VoucherService) Get(ctx context.Context, id int64) (*model.Voucher, error) {
	v, err := s.vouchers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	if v == nil {
		return nil, ErrVoucherNotFound
	}
	return v, nil
}

// List returns all vouchers, newest first.
func (s *VoucherService) List(ctx context.Context) ([]model.Voucher, error) {
	return s.vouchers.List(ctx)
}

// ListActive returns the vouchers a buyer could apply right now, ignoring per-user history.
func (s *VoucherService) ListActive(ctx context.Context) ([]model.Voucher, error) {
	vouchers, err := s.vouchers.ListActive(ctx, s.now())
	if err != nil {
		return nil, err
	}

	available := make([]model.Voucher, 0, len(vouchers))
	for _, v := range vouchers {
		if !v.Exhausted() {
			available = append(available, v)
		}
	}
	return available, nil
}

// ListUsage returns redemption history, optionally for one voucher.
func (s *VoucherService) ListUsage(ctx context.Context, voucherID *int64) ([]model.VoucherUsage, error) {
	return s.usages.List(ctx, voucherID)
}

// Stats returns aggregate voucher counters.
func (s *VoucherService) Stats(ctx context.Context) (*model.VoucherStats, error) {
	return s.vouchers.Stats(ctx)
}
