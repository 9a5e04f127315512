package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

// ProductStockRepository is the product access checkout needs.
type ProductStockRepository interface {
	LockForCheckout(ctx context.Context, tx database.TxQuerier, ids []int64) ([]model.Product, error)
	DecrementStock(ctx context.Context, tx database.TxQuerier, id int64, qty int) (bool, error)
}

// OrderWriter persists a new order with its lines and first tracking entry.
type OrderWriter interface {
	Insert(ctx context.Context, tx database.TxQuerier, o *model.Order) error
	InsertItems(ctx context.Context, tx database.TxQuerier, orderID int64, items []model.OrderItem) error
	InsertTracking(ctx context.Context, tx database.TxQuerier, t *model.OrderTracking) error
}

// CartStore reads and clears a user's stored cart.
type CartStore interface {
	Items(ctx context.Context, userID string) ([]model.CartItem, error)
	ClearTx(ctx context.Context, tx database.TxQuerier, userID string) error
}

// VoucherApplier validates and redeems vouchers inside a checkout transaction.
type VoucherApplier interface {
	ValidateTx(ctx context.Context, tx database.TxQuerier, code string, subtotal decimal.Decimal, userID string) (*model.VoucherValidation, error)
	Redeem(ctx context.Context, tx database.TxQuerier, voucherID int64, userID string, orderID int64, discount decimal.Decimal) (*model.VoucherUsage, error)
}

// IdempotencyGuard rejects replays of a checkout request key.
type IdempotencyGuard interface {
	// Acquire returns false if key was already taken.
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// EventPublisher announces committed order changes.
type EventPublisher interface {
	Publish(ctx context.Context, evt model.OrderEvent) error
}

// CheckoutService turns a cart into an order.
type CheckoutService struct {
	pool      TxBeginner
	products  ProductStockRepository
	orders    OrderWriter
	carts     CartStore
	vouchers  VoucherApplier
	guard     IdempotencyGuard
	publisher EventPublisher
	now       func() time.Time
	loc       *time.Location
}

// NewCheckoutService creates a new CheckoutService with the given pool and collaborators.
func NewCheckoutService(pool *pgxpool.Pool, products ProductStockRepository, orders OrderWriter, carts CartStore, vouchers VoucherApplier) *CheckoutService {
	return NewCheckoutServiceWithTxBeginner(pool, products, orders, carts, vouchers)
}

// NewCheckoutServiceWithTxBeginner creates a CheckoutService with a custom TxBeginner.
// Primarily used for testing.
func NewCheckoutServiceWithTxBeginner(pool TxBeginner, products ProductStockRepository, orders OrderWriter, carts CartStore, vouchers VoucherApplier) *CheckoutService {
	return &CheckoutService{
		pool:     pool,
		products: products,
		orders:   orders,
		carts:    carts,
		vouchers: vouchers,
		now:      time.Now,
		loc:      time.UTC,
	}
}

// WithIdempotency enables duplicate-request protection for keyed checkouts.
func (s *CheckoutService) WithIdempotency(guard IdempotencyGuard) *CheckoutService {
	s.guard = guard
	return s
}

// WithPublisher sets where order.created events go.
func (s *CheckoutService) WithPublisher(p EventPublisher) *CheckoutService {
	s.publisher = p
	return s
}

// WithClock sets the time source and the zone order numbers are stamped in.
func (s *CheckoutService) WithClock(now func() time.Time, loc *time.Location) *CheckoutService {
	if now != nil {
		s.now = now
	}
	if loc != nil {
		s.loc = loc
	}
	return s
}

// newOrderNumber formats ORD-YYYYMMDD-HHMMSS-XXXX with a random hex suffix.
func newOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102-150405"), suffix)
}

// mergeLines folds duplicate products together and orders lines by product id,
// which is also the order rows get locked in.
func mergeLines(lines []model.CartLine) ([]model.CartLine, error) {
	qty := make(map[int64]int, len(lines))
	for _, l := range lines {
		if l.ProductID < 1 || l.Quantity < 1 {
			return nil, fmt.Errorf("%w: product_id and quantity must be positive", ErrInvalidRequest)
		}
		qty[l.ProductID] += l.Quantity
	}

	merged := make([]model.CartLine, 0, len(qty))
	for id, q := range qty {
		merged = append(merged, model.CartLine{ProductID: id, Quantity: q})
	}
	slices.SortFunc(merged, func(a, b model.CartLine) int { return cmp.Compare(a.ProductID, b.ProductID) })
	return merged, nil
}

// Checkout places an order for req.UserID.
//
// Everything from the stock check to clearing the cart runs in one transaction,
// so a failure leaves no partial order behind. A voucher redemption that fails
// after the order row exists is rolled back to a savepoint and logged; the
// order is kept with its discount.
func (s *CheckoutService) Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error) {
	if req == nil || strings.TrimSpace(req.UserID) == "" {
		return nil, ErrInvalidRequest
	}

	lines := req.Items
	if len(lines) == 0 {
		items, err := s.carts.Items(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("load cart: %w", err)
		}
		lines = model.NewCart(req.UserID, items).Lines()
	}
	lines, err := mergeLines(lines)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	key := ""
	if req.IdempotencyKey != "" && s.guard != nil {
		key = req.UserID + ":" + req.IdempotencyKey
		acquired, err := s.guard.Acquire(ctx, key)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("user_id", req.UserID).Msg("idempotency guard unavailable, continuing without it")
			key = ""
		case !acquired:
			return nil, ErrDuplicateRequest
		}
	}

	result, err := s.placeOrder(ctx, req, lines)
	if err != nil {
		if key != "" {
			if relErr := s.guard.Release(ctx, key); relErr != nil {
				log.Warn().Err(relErr).Str("user_id", req.UserID).Msg("failed to release idempotency key")
			}
		}
		return nil, err
	}

	publishEvent(ctx, s.publisher, model.NewOrderEvent(model.EventOrderCreated, result.Order, req.Notes, s.now()))
	return result, nil
}

func (s *CheckoutService) placeOrder(ctx context.Context, req *model.CheckoutRequest, lines []model.CartLine) (*model.CheckoutResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx: %w", ErrCheckoutFailed, err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}

	// 1. Lock product rows and re-read price and stock.
	locked, err := s.products.LockForCheckout(ctx, tx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: lock products: %w", ErrCheckoutFailed, err)
	}
	byID := make(map[int64]model.Product, len(locked))
	for _, p := range locked {
		byID[p.ID] = p
	}

	// 2. Stock check, no writes yet.
	subtotal := decimal.Zero
	items := make([]model.OrderItem, 0, len(lines))
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, l.ProductID)
		}
		if l.Quantity > p.Stock {
			return nil, &InsufficientStockError{ProductID: p.ID, ProductName: p.Name, Requested: l.Quantity, Available: p.Stock}
		}
		lineTotal := p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		items = append(items, model.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    l.Quantity,
			Price:       p.Price,
			Subtotal:    lineTotal,
		})
	}

	// 3. Voucher, validated against the locked row.
	var validation *model.VoucherValidation
	if code := NormalizeCode(req.VoucherCode); code != "" {
		validation, err = s.vouchers.ValidateTx(ctx, tx, code, subtotal, req.UserID)
		if err != nil {
			return nil, err
		}
	}

	discount := decimal.Zero
	if validation != nil {
		discount = validation.DiscountAmount
	}

	// 4. Order row.
	order := &model.Order{
		OrderNumber:       newOrderNumber(s.now().In(s.loc)),
		UserID:            req.UserID,
		OriginalAmount:    subtotal,
		DiscountAmount:    discount,
		TotalAmount:       subtotal.Sub(discount),
		ShippingAddressID: req.ShippingAddressID,
		StatusID:          model.StatusPending,
		Status:            model.StatusName(model.StatusPending),
		Notes:             req.Notes,
	}
	if validation != nil {
		voucherID, code := validation.Voucher.ID, validation.Voucher.Code
		order.VoucherID = &voucherID
		order.VoucherCode = &code
	}
	if err := s.insertOrder(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}

	// 5. Lines with price snapshots.
	if err := s.orders.InsertItems(ctx, tx, order.ID, items); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}
	order.Items = items

	// 6. Initial tracking entry.
	if err := s.orders.InsertTracking(ctx, tx, &model.OrderTracking{
		OrderID:   order.ID,
		StatusID:  model.StatusPending,
		Notes:     model.NoteOrderCreated,
		CreatedBy: req.UserID,
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}

	// 7. Redemption, isolated so its failure cannot undo the order.
	redeemed := false
	if validation != nil && discount.IsPositive() {
		redeemed = s.redeem(ctx, tx, order, validation)
	}

	// 8. Guarded stock decrement.
	for _, it := range items {
		ok, err := s.products.DecrementStock(ctx, tx, it.ProductID, it.Quantity)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
		}
		if !ok {
			return nil, &InsufficientStockError{
				ProductID:   it.ProductID,
				ProductName: it.ProductName,
				Requested:   it.Quantity,
				Available:   byID[it.ProductID].Stock,
			}
		}
	}

	// 9. Empty the stored cart.
	if err := s.carts.ClearTx(ctx, tx, req.UserID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", ErrCheckoutFailed, err)
	}

	result := &model.CheckoutResult{
		Order:           order,
		Subtotal:        subtotal,
		Discount:        discount,
		Total:           order.TotalAmount,
		VoucherRedeemed: redeemed,
	}
	if order.VoucherCode != nil {
		result.VoucherCode = *order.VoucherCode
	}
	return result, nil
}

// orderNumberAttempts bounds how often a colliding order number is regenerated.
const orderNumberAttempts = 5

// insertOrder stores order, drawing a fresh number when the suffix collides
// with an order placed in the same second.
func (s *CheckoutService) insertOrder(ctx context.Context, tx database.TxQuerier, order *model.Order) error {
	var err error
	for i := 0; i < orderNumberAttempts; i++ {
		if i > 0 {
			log.Warn().Str("order_number", order.OrderNumber).Msg("order number collision, regenerating")
			order.OrderNumber = newOrderNumber(s.now().In(s.loc))
		}
		if err = s.orders.Insert(ctx, tx, order); !errors.Is(err, ErrOrderNumberTaken) {
			return err
		}
	}
	return err
}

// redeem applies the voucher inside a savepoint of tx. It reports whether the
// redemption was recorded.
func (s *CheckoutService) redeem(ctx context.Context, tx TxBeginner, order *model.Order, v *model.VoucherValidation) bool {
	logger := log.With().
		Int64("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Int64("voucher_id", v.Voucher.ID).
		Str("user_id", order.UserID).
		Logger()

	sp, err := tx.Begin(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("voucher redemption failed after order creation: savepoint")
		return false
	}

	if _, err := s.vouchers.Redeem(ctx, sp, v.Voucher.ID, order.UserID, order.ID, v.DiscountAmount); err != nil {
		_ = sp.Rollback(ctx)
		logger.Error().Err(err).Msg("voucher redemption failed after order creation")
		return false
	}

	if err := sp.Commit(ctx); err != nil {
		logger.Error().Err(err).Msg("voucher redemption failed after order creation: release savepoint")
		return false
	}
	return true
}

// publishEvent sends evt if a publisher is configured. Failures are logged only;
// the database change has already committed.
func publishEvent(ctx context.Context, p EventPublisher, evt model.OrderEvent) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, evt); err != nil {
		log.Error().Err(err).
			Str("event_type", evt.Type).
			Int64("order_id", evt.OrderID).
			Str("order_number", evt.OrderNumber).
			Msg("failed to publish order event")
	}
}

// IsVoucherError reports whether err is one of the voucher validation failures.
func IsVoucherError(err error) bool {
	for _, target := range []error{
		ErrVoucherNotFound,
		ErrVoucherInactive,
		ErrVoucherExpired,
		ErrVoucherUsageLimitReached,
		ErrMinimumPurchaseNotMet,
		ErrVoucherAlreadyUsed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
