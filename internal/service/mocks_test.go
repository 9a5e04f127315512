package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	"github.com/fairyhunter13/storefront-checkout/pkg/database"
)

// mockTx is a mock implementation of pgx.Tx for testing transactions.
// Begin returns a savepoint mock unless beginFn says otherwise.
type mockTx struct {
	beginFn    func(ctx context.Context) (pgx.Tx, error)
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error

	committed  bool
	rolledBack bool
	savepoints []*mockTx
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginFn != nil {
		return m.beginFn(ctx)
	}
	sp := &mockTx{}
	m.savepoints = append(m.savepoints, sp)
	return sp, nil
}

func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitFn != nil {
		return m.commitFn(ctx)
	}
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	if m.rollbackFn != nil {
		return m.rollbackFn(ctx)
	}
	if !m.committed {
		m.rolledBack = true
	}
	return nil
}

func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *mockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *mockTx) Conn() *pgx.Conn {
	return nil
}

// mockTxBeginner is a mock implementation of TxBeginner.
type mockTxBeginner struct {
	beginFn func(ctx context.Context) (pgx.Tx, error)
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginFn != nil {
		return m.beginFn(ctx)
	}
	return &mockTx{}, nil
}

func beginnerFor(tx *mockTx) *mockTxBeginner {
	return &mockTxBeginner{beginFn: func(ctx context.Context) (pgx.Tx, error) { return tx, nil }}
}

// mockVoucherRepository is a mock implementation of VoucherRepositoryInterface.
type mockVoucherRepository struct {
	insertFn             func(ctx context.Context, v *model.Voucher) error
	updateFn             func(ctx context.Context, v *model.Voucher) error
	deleteFn             func(ctx context.Context, id int64) error
	setActiveFn          func(ctx context.Context, id int64, active bool) (*model.Voucher, error)
	getByIDFn            func(ctx context.Context, id int64) (*model.Voucher, error)
	getByCodeFn          func(ctx context.Context, code string) (*model.Voucher, error)
	getByCodeForUpdateFn func(ctx context.Context, tx database.TxQuerier, code string) (*model.Voucher, error)
	listFn               func(ctx context.Context) ([]model.Voucher, error)
	listActiveFn         func(ctx context.Context, now time.Time) ([]model.Voucher, error)
	incrementUsageFn     func(ctx context.Context, tx database.TxQuerier, id int64) error
	statsFn              func(ctx context.Context) (*model.VoucherStats, error)
}

func (m *mockVoucherRepository) Insert(ctx context.Context, v *model.Voucher) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, v)
	}
	return nil
}

func (m *mockVoucherRepository) Update(ctx context.Context, v *model.Voucher) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, v)
	}
	return nil
}

func (m *mockVoucherRepository) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockVoucherRepository) SetActive(ctx context.Context, id int64, active bool) (*model.Voucher, error) {
	if m.setActiveFn != nil {
		return m.setActiveFn(ctx, id, active)
	}
	return &model.Voucher{ID: id, Active: active}, nil
}

func (m *mockVoucherRepository) GetByID(ctx context.Context, id int64) (*model.Voucher, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockVoucherRepository) GetByCode(ctx context.Context, code string) (*model.Voucher, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, code)
	}
	return nil, nil
}

func (m *mockVoucherRepository) GetByCodeForUpdate(ctx context.Context, tx database.TxQuerier, code string) (*model.Voucher, error) {
	if m.getByCodeForUpdateFn != nil {
		return m.getByCodeForUpdateFn(ctx, tx, code)
	}
	return nil, ErrVoucherNotFound
}

func (m *mockVoucherRepository) List(ctx context.Context) ([]model.Voucher, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []model.Voucher{}, nil
}

func (m *mockVoucherRepository) ListActive(ctx context.Context, now time.Time) ([]model.Voucher, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, now)
	}
	return []model.Voucher{}, nil
}

func (m *mockVoucherRepository) IncrementUsage(ctx context.Context, tx database.TxQuerier, id int64) error {
	if m.incrementUsageFn != nil {
		return m.incrementUsageFn(ctx, tx, id)
	}
	return nil
}

func (m *mockVoucherRepository) Stats(ctx context.Context) (*model.VoucherStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return &model.VoucherStats{}, nil
}

// mockVoucherUsageRepository is a mock implementation of VoucherUsageRepositoryInterface.
type mockVoucherUsageRepository struct {
	hasUsedFn        func(ctx context.Context, voucherID int64, userID string) (bool, error)
	hasUsedTxFn      func(ctx context.Context, tx database.TxQuerier, voucherID int64, userID string) (bool, error)
	insertFn         func(ctx context.Context, tx database.TxQuerier, usage *model.VoucherUsage) error
	countByVoucherFn func(ctx context.Context, voucherID int64) (int, error)
	listFn           func(ctx context.Context, voucherID *int64) ([]model.VoucherUsage, error)
}

func (m *mockVoucherUsageRepository) HasUsed(ctx context.Context, voucherID int64, userID string) (bool, error) {
	if m.hasUsedFn != nil {
		return m.hasUsedFn(ctx, voucherID, userID)
	}
	return false, nil
}

func (m *mockVoucherUsageRepository) HasUsedTx(ctx context.Context, tx database.TxQuerier, voucherID int64, userID string) (bool, error) {
	if m.hasUsedTxFn != nil {
		return m.hasUsedTxFn(ctx, tx, voucherID, userID)
	}
	return false, nil
}

func (m *mockVoucherUsageRepository) Insert(ctx context.Context, tx database.TxQuerier, usage *model.VoucherUsage) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, tx, usage)
	}
	return nil
}

func (m *mockVoucherUsageRepository) CountByVoucher(ctx context.Context, voucherID int64) (int, error) {
	if m.countByVoucherFn != nil {
		return m.countByVoucherFn(ctx, voucherID)
	}
	return 0, nil
}

func (m *mockVoucherUsageRepository) List(ctx context.Context, voucherID *int64) ([]model.VoucherUsage, error) {
	if m.listFn != nil {
		return m.listFn(ctx, voucherID)
	}
	return []model.VoucherUsage{}, nil
}

// fakeStock is an in-memory product table implementing ProductStockRepository
// and StockRestorer with the same guards as the SQL.
type fakeStock struct {
	mu       sync.Mutex
	products map[int64]*model.Product
	lockErr  error
}

func newFakeStock(products ...model.Product) *fakeStock {
	f := &fakeStock{products: make(map[int64]*model.Product)}
	for i := range products {
		p := products[i]
		f.products[p.ID] = &p
	}
	return f
}

func (f *fakeStock) stock(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].Stock
}

func (f *fakeStock) LockForCheckout(ctx context.Context, tx database.TxQuerier, ids []int64) ([]model.Product, error) {
	if f.lockErr != nil {
		return nil, f.lockErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Product{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStock) DecrementStock(ctx context.Context, tx database.TxQuerier, id int64, qty int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	return true, nil
}

func (f *fakeStock) IncrementStock(ctx context.Context, tx database.TxQuerier, id int64, qty int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return false, nil
	}
	p.Stock += qty
	return true, nil
}

// fakeOrders is an in-memory order store implementing OrderWriter and
// OrderRepositoryInterface.
type fakeOrders struct {
	mu        sync.Mutex
	nextID    int64
	orders    map[int64]*model.Order
	tracking  []model.OrderTracking
	insertErr error
	// numbersTaken makes that many Insert calls report a colliding order number.
	numbersTaken int
	numbersSeen  []string
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: make(map[int64]*model.Order)}
}

func (f *fakeOrders) Insert(ctx context.Context, tx database.TxQuerier, o *model.Order) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.numbersSeen = append(f.numbersSeen, o.OrderNumber)
	if f.numbersTaken > 0 {
		f.numbersTaken--
		return ErrOrderNumberTaken
	}
	f.nextID++
	o.ID = f.nextID
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	stored := *o
	f.orders[o.ID] = &stored
	return nil
}

func (f *fakeOrders) InsertItems(ctx context.Context, tx database.TxQuerier, orderID int64, items []model.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range items {
		items[i].ID = int64(i + 1)
		items[i].OrderID = orderID
	}
	f.orders[orderID].Items = append([]model.OrderItem(nil), items...)
	return nil
}

func (f *fakeOrders) InsertTracking(ctx context.Context, tx database.TxQuerier, t *model.OrderTracking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = int64(len(f.tracking) + 1)
	t.Status = model.StatusName(t.StatusID)
	f.tracking = append(f.tracking, *t)
	return nil
}

func (f *fakeOrders) GetForUpdate(ctx context.Context, tx database.TxQuerier, orderID int64, userID string) (*model.Order, error) {
	o, _ := f.GetByID(ctx, orderID, userID)
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrders) GetByID(ctx context.Context, orderID int64, userID string) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || (userID != "" && o.UserID != userID) {
		return nil, nil
	}
	cp := *o
	cp.Items = append([]model.OrderItem(nil), o.Items...)
	return &cp, nil
}

func (f *fakeOrders) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Order{}
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrders) ListAll(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Order{}
	for _, o := range f.orders {
		if filter.StatusID != nil && o.StatusID != *filter.StatusID {
			continue
		}
		if !strings.Contains(strings.ToUpper(o.OrderNumber), strings.ToUpper(filter.Search)) {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeOrders) UpdateStatus(ctx context.Context, tx database.TxQuerier, orderID int64, statusID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	o.StatusID = statusID
	o.Status = model.StatusName(statusID)
	return nil
}

func (f *fakeOrders) Tracking(ctx context.Context, orderID int64) ([]model.OrderTracking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.OrderTracking{}
	for i := len(f.tracking) - 1; i >= 0; i-- {
		if f.tracking[i].OrderID == orderID {
			out = append(out, f.tracking[i])
		}
	}
	return out, nil
}

func (f *fakeOrders) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

// mockCartRepository is a mock implementation of CartRepositoryInterface and CartStore.
type mockCartRepository struct {
	itemsFn          func(ctx context.Context, userID string) ([]model.CartItem, error)
	addItemFn        func(ctx context.Context, userID string, productID int64, qty int) error
	updateQuantityFn func(ctx context.Context, userID string, itemID int64, qty int) error
	removeItemFn     func(ctx context.Context, userID string, itemID int64) error
	clearFn          func(ctx context.Context, userID string) error
	clearTxFn        func(ctx context.Context, tx database.TxQuerier, userID string) error
}

func (m *mockCartRepository) Items(ctx context.Context, userID string) ([]model.CartItem, error) {
	if m.itemsFn != nil {
		return m.itemsFn(ctx, userID)
	}
	return []model.CartItem{}, nil
}

func (m *mockCartRepository) AddItem(ctx context.Context, userID string, productID int64, qty int) error {
	if m.addItemFn != nil {
		return m.addItemFn(ctx, userID, productID, qty)
	}
	return nil
}

func (m *mockCartRepository) UpdateQuantity(ctx context.Context, userID string, itemID int64, qty int) error {
	if m.updateQuantityFn != nil {
		return m.updateQuantityFn(ctx, userID, itemID, qty)
	}
	return nil
}

func (m *mockCartRepository) RemoveItem(ctx context.Context, userID string, itemID int64) error {
	if m.removeItemFn != nil {
		return m.removeItemFn(ctx, userID, itemID)
	}
	return nil
}

func (m *mockCartRepository) Clear(ctx context.Context, userID string) error {
	if m.clearFn != nil {
		return m.clearFn(ctx, userID)
	}
	return nil
}

func (m *mockCartRepository) ClearTx(ctx context.Context, tx database.TxQuerier, userID string) error {
	if m.clearTxFn != nil {
		return m.clearTxFn(ctx, tx, userID)
	}
	return nil
}

// mockVoucherApplier is a mock implementation of VoucherApplier.
type mockVoucherApplier struct {
	validateTxFn func(ctx context.Context, tx database.TxQuerier, code string, subtotal decimal.Decimal, userID string) (*model.VoucherValidation, error)
	redeemFn     func(ctx context.Context, tx database.TxQuerier, voucherID int64, userID string, orderID int64, discount decimal.Decimal) (*model.VoucherUsage, error)
}

func (m *mockVoucherApplier) ValidateTx(ctx context.Context, tx database.TxQuerier, code string, subtotal decimal.Decimal, userID string) (*model.VoucherValidation, error) {
	if m.validateTxFn != nil {
		return m.validateTxFn(ctx, tx, code, subtotal, userID)
	}
	return nil, ErrVoucherNotFound
}

func (m *mockVoucherApplier) Redeem(ctx context.Context, tx database.TxQuerier, voucherID int64, userID string, orderID int64, discount decimal.Decimal) (*model.VoucherUsage, error) {
	if m.redeemFn != nil {
		return m.redeemFn(ctx, tx, voucherID, userID, orderID, discount)
	}
	return &model.VoucherUsage{VoucherID: voucherID, UserID: userID, OrderID: orderID, DiscountAmount: discount}, nil
}

// mockGuard is a mock implementation of IdempotencyGuard backed by a set.
type mockGuard struct {
	mu         sync.Mutex
	keys       map[string]bool
	acquireErr error
	released   []string
}

func newMockGuard() *mockGuard {
	return &mockGuard{keys: make(map[string]bool)}
}

func (m *mockGuard) Acquire(ctx context.Context, key string) (bool, error) {
	if m.acquireErr != nil {
		return false, m.acquireErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *mockGuard) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	m.released = append(m.released, key)
	return nil
}

// mockPublisher records published events.
type mockPublisher struct {
	mu     sync.Mutex
	events []model.OrderEvent
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, evt model.OrderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, evt)
	return nil
}

// mockProductRepository is a mock implementation of ProductRepositoryInterface.
type mockProductRepository struct {
	insertFn   func(ctx context.Context, p *model.Product) error
	getByIDFn  func(ctx context.Context, id int64) (*model.Product, error)
	listFn     func(ctx context.Context) ([]model.Product, error)
	setStockFn func(ctx context.Context, id int64, stock int) (*model.Product, error)
	updateFn   func(ctx context.Context, p *model.Product) error
	deleteFn   func(ctx context.Context, id int64) error
}

func (m *mockProductRepository) Update(ctx context.Context, p *model.Product) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, p)
	}
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockProductRepository) Insert(ctx context.Context, p *model.Product) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, p)
	}
	return nil
}

func (m *mockProductRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockProductRepository) List(ctx context.Context) ([]model.Product, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []model.Product{}, nil
}

func (m *mockProductRepository) SetStock(ctx context.Context, id int64, stock int) (*model.Product, error) {
	if m.setStockFn != nil {
		return m.setStockFn(ctx, id, stock)
	}
	return &model.Product{ID: id, Stock: stock}, nil
}

var errDB = errors.New("database connection failed")

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(i int) *int {
	return &i
}

// mockReviewRepository is a mock implementation of ReviewRepositoryInterface.
type mockReviewRepository struct {
	insertFn        func(ctx context.Context, rv *model.Review) error
	updateFn        func(ctx context.Context, rv *model.Review) error
	deleteFn        func(ctx context.Context, id int64, userID string) error
	getByOrderFn    func(ctx context.Context, orderID int64, userID string) (*model.Review, error)
	listByUserFn    func(ctx context.Context, userID string) ([]model.Review, error)
	listByProductFn func(ctx context.Context, productID int64) ([]model.Review, error)
}

func (m *mockReviewRepository) Insert(ctx context.Context, rv *model.Review) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, rv)
	}
	rv.ID = 1
	return nil
}

func (m *mockReviewRepository) Update(ctx context.Context, rv *model.Review) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, rv)
	}
	return nil
}

func (m *mockReviewRepository) Delete(ctx context.Context, id int64, userID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, userID)
	}
	return nil
}

func (m *mockReviewRepository) GetByOrder(ctx context.Context, orderID int64, userID string) (*model.Review, error) {
	if m.getByOrderFn != nil {
		return m.getByOrderFn(ctx, orderID, userID)
	}
	return nil, nil
}

func (m *mockReviewRepository) ListByUser(ctx context.Context, userID string) ([]model.Review, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return []model.Review{}, nil
}

func (m *mockReviewRepository) ListByProduct(ctx context.Context, productID int64) ([]model.Review, error) {
	if m.listByProductFn != nil {
		return m.listByProductFn(ctx, productID)
	}
	return []model.Review{}, nil
}
