package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
	appvalidator "github.com/fairyhunter13/storefront-checkout/internal/validator"
)

// mockVoucherService is a mock implementation of VoucherServiceInterface.
type mockVoucherService struct {
	validateFn   func(ctx context.Context, code string, subtotal decimal.Decimal, userID string) (*model.VoucherValidation, error)
	listActiveFn func(ctx context.Context) ([]model.Voucher, error)
	listFn       func(ctx context.Context) ([]model.Voucher, error)
	getFn        func(ctx context.Context, id int64) (*model.Voucher, error)
	createFn     func(ctx context.Context, req *model.VoucherRequest, createdBy string) (*model.Voucher, error)
	updateFn     func(ctx context.Context, id int64, req *model.VoucherRequest) (*model.Voucher, error)
	deleteFn     func(ctx context.Context, id int64) error
	setActiveFn  func(ctx context.Context, id int64, active bool) (*model.Voucher, error)
	listUsageFn  func(ctx context.Context, voucherID *int64) ([]model.VoucherUsage, error)
	statsFn      func(ctx context.Context) (*model.VoucherStats, error)
}

func (m *mockVoucherService) Validate(ctx context.Context, code string, subtotal decimal.Decimal, userID string) (*model.VoucherValidation, error) {
	if m.validateFn != nil {
		return m.validateFn(ctx, code, subtotal, userID)
	}
	return &model.VoucherValidation{Voucher: &model.Voucher{Code: code}}, nil
}

func (m *mockVoucherService) ListActive(ctx context.Context) ([]model.Voucher, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return []model.Voucher{}, nil
}

func (m *mockVoucherService) List(ctx context.Context) ([]model.Voucher, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []model.Voucher{}, nil
}

func (m *mockVoucherService) Get(ctx context.Context, id int64) (*model.Voucher, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &model.Voucher{ID: id}, nil
}

func (m *mockVoucherService) Create(ctx context.Context, req *model.VoucherRequest, createdBy string) (*model.Voucher, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req, createdBy)
	}
	return &model.Voucher{ID: 1, Code: req.Code}, nil
}

func (m *mockVoucherService) Update(ctx context.Context, id int64, req *model.VoucherRequest) (*model.Voucher, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, req)
	}
	return &model.Voucher{ID: id, Code: req.Code}, nil
}

func (m *mockVoucherService) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockVoucherService) SetActive(ctx context.Context, id int64, active bool) (*model.Voucher, error) {
	if m.setActiveFn != nil {
		return m.setActiveFn(ctx, id, active)
	}
	return &model.Voucher{ID: id, Active: active}, nil
}

func (m *mockVoucherService) ListUsage(ctx context.Context, voucherID *int64) ([]model.VoucherUsage, error) {
	if m.listUsageFn != nil {
		return m.listUsageFn(ctx, voucherID)
	}
	return []model.VoucherUsage{}, nil
}

func (m *mockVoucherService) Stats(ctx context.Context) (*model.VoucherStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return &model.VoucherStats{}, nil
}

// mockCartService is a mock implementation of CartServiceInterface.
type mockCartService struct {
	getFn            func(ctx context.Context, userID string) (*model.Cart, error)
	addItemFn        func(ctx context.Context, userID string, req *model.AddCartItemRequest) (*model.Cart, error)
	updateQuantityFn func(ctx context.Context, userID string, itemID int64, qty int) (*model.Cart, error)
	removeItemFn     func(ctx context.Context, userID string, itemID int64) (*model.Cart, error)
	clearFn          func(ctx context.Context, userID string) (*model.Cart, error)
}

func (m *mockCartService) Get(ctx context.Context, userID string) (*model.Cart, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return model.NewCart(userID, nil), nil
}

func (m *mockCartService) AddItem(ctx context.Context, userID string, req *model.AddCartItemRequest) (*model.Cart, error) {
	if m.addItemFn != nil {
		return m.addItemFn(ctx, userID, req)
	}
	return model.NewCart(userID, nil), nil
}

func (m *mockCartService) UpdateQuantity(ctx context.Context, userID string, itemID int64, qty int) (*model.Cart, error) {
	if m.updateQuantityFn != nil {
		return m.updateQuantityFn(ctx, userID, itemID, qty)
	}
	return model.NewCart(userID, nil), nil
}

func (m *mockCartService) RemoveItem(ctx context.Context, userID string, itemID int64) (*model.Cart, error) {
	if m.removeItemFn != nil {
		return m.removeItemFn(ctx, userID, itemID)
	}
	return model.NewCart(userID, nil), nil
}

func (m *mockCartService) Clear(ctx context.Context, userID string) (*model.Cart, error) {
	if m.clearFn != nil {
		return m.clearFn(ctx, userID)
	}
	return model.NewCart(userID, nil), nil
}

// mockCheckoutService is a mock implementation of CheckoutServiceInterface.
type mockCheckoutService struct {
	checkoutFn func(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error)
}

func (m *mockCheckoutService) Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error) {
	if m.checkoutFn != nil {
		return m.checkoutFn(ctx, req)
	}
	return &model.CheckoutResult{Order: &model.Order{ID: 1}}, nil
}

// mockOrderService is a mock implementation of OrderServiceInterface.
type mockOrderService struct {
	getByIDFn      func(ctx context.Context, orderID int64, userID string) (*model.Order, error)
	listByUserFn   func(ctx context.Context, userID string) ([]model.Order, error)
	listAllFn      func(ctx context.Context, f model.OrderFilter) ([]model.Order, error)
	trackingFn     func(ctx context.Context, orderID int64, userID string) ([]model.OrderTracking, error)
	cancelFn       func(ctx context.Context, orderID int64, userID, reason string) (*model.CancellationResult, error)
	updateStatusFn func(ctx context.Context, orderID int64, statusID int, notes, by string) (*model.Order, error)
}

func (m *mockOrderService) GetByID(ctx context.Context, orderID int64, userID string) (*model.Order, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, orderID, userID)
	}
	return &model.Order{ID: orderID, UserID: userID}, nil
}

func (m *mockOrderService) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return []model.Order{}, nil
}

func (m *mockOrderService) ListAll(ctx context.Context, f model.OrderFilter) ([]model.Order, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx, f)
	}
	return []model.Order{}, nil
}

func (m *mockOrderService) Tracking(ctx context.Context, orderID int64, userID string) ([]model.OrderTracking, error) {
	if m.trackingFn != nil {
		return m.trackingFn(ctx, orderID, userID)
	}
	return []model.OrderTracking{}, nil
}

func (m *mockOrderService) Cancel(ctx context.Context, orderID int64, userID, reason string) (*model.CancellationResult, error) {
	if m.cancelFn != nil {
		return m.cancelFn(ctx, orderID, userID, reason)
	}
	return &model.CancellationResult{Success: true}, nil
}

func (m *mockOrderService) UpdateStatus(ctx context.Context, orderID int64, statusID int, notes, by string) (*model.Order, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, orderID, statusID, notes, by)
	}
	return &model.Order{ID: orderID, StatusID: statusID}, nil
}

func (m *mockOrderService) Statuses() []model.OrderStatus {
	return model.OrderStatuses()
}

// mockProductService is a mock implementation of ProductServiceInterface.
type mockProductService struct {
	listFn        func(ctx context.Context) ([]model.Product, error)
	getFn         func(ctx context.Context, id int64) (*model.Product, error)
	createFn      func(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error)
	updateStockFn func(ctx context.Context, id int64, stock int) (*model.Product, error)
	updateFn      func(ctx context.Context, id int64, req *model.UpdateProductRequest) (*model.Product, error)
	deleteFn      func(ctx context.Context, id int64) error
}

func (m *mockProductService) Update(ctx context.Context, id int64, req *model.UpdateProductRequest) (*model.Product, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, req)
	}
	return &model.Product{ID: id, Name: req.Name}, nil
}

func (m *mockProductService) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockProductService) List(ctx context.Context) ([]model.Product, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []model.Product{}, nil
}

func (m *mockProductService) Get(ctx context.Context, id int64) (*model.Product, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &model.Product{ID: id}, nil
}

func (m *mockProductService) Create(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return &model.Product{ID: 1, Name: req.Name}, nil
}

func (m *mockProductService) UpdateStock(ctx context.Context, id int64, stock int) (*model.Product, error) {
	if m.updateStockFn != nil {
		return m.updateStockFn(ctx, id, stock)
	}
	return &model.Product{ID: id, Stock: stock}, nil
}

type mockReviewService struct {
	createFn     func(ctx context.Context, orderID int64, userID string, req *model.ReviewRequest) (*model.Review, error)
	updateFn     func(ctx context.Context, reviewID int64, userID string, req *model.ReviewRequest) (*model.Review, error)
	deleteFn     func(ctx context.Context, reviewID int64, userID string) error
	forOrderFn   func(ctx context.Context, orderID int64, userID string) (*model.Review, error)
	listByUserFn func(ctx context.Context, userID string) ([]model.Review, error)
	forProductFn func(ctx context.Context, productID int64) (*model.ProductReviews, error)
}

func (m *mockReviewService) Create(ctx context.Context, orderID int64, userID string, req *model.ReviewRequest) (*model.Review, error) {
	if m.createFn != nil {
		return m.createFn(ctx, orderID, userID, req)
	}
	return &model.Review{ID: 1, OrderID: orderID, UserID: userID, Rating: req.Rating}, nil
}

func (m *mockReviewService) Update(ctx context.Context, reviewID int64, userID string, req *model.ReviewRequest) (*model.Review, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, reviewID, userID, req)
	}
	return &model.Review{ID: reviewID, UserID: userID, Rating: req.Rating, Comment: req.Comment}, nil
}

func (m *mockReviewService) Delete(ctx context.Context, reviewID int64, userID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, reviewID, userID)
	}
	return nil
}

func (m *mockReviewService) ForOrder(ctx context.Context, orderID int64, userID string) (*model.Review, error) {
	if m.forOrderFn != nil {
		return m.forOrderFn(ctx, orderID, userID)
	}
	return &model.Review{ID: 1, OrderID: orderID, UserID: userID}, nil
}

func (m *mockReviewService) ListByUser(ctx context.Context, userID string) ([]model.Review, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return []model.Review{}, nil
}

func (m *mockReviewService) ForProduct(ctx context.Context, productID int64) (*model.ProductReviews, error) {
	if m.forProductFn != nil {
		return m.forProductFn(ctx, productID)
	}
	return model.NewProductReviews(productID, nil), nil
}

// services bundles the mocks behind one test app.
type services struct {
	voucher  *mockVoucherService
	cart     *mockCartService
	checkout *mockCheckoutService
	order    *mockOrderService
	product  *mockProductService
	review   *mockReviewService
}

func newServices() *services {
	return &services{
		voucher:  &mockVoucherService{},
		cart:     &mockCartService{},
		checkout: &mockCheckoutService{},
		order:    &mockOrderService{},
		product:  &mockProductService{},
		review:   &mockReviewService{},
	}
}

func setupTestApp(s *services) *fiber.App {
	app := fiber.New()
	v := appvalidator.New()
	RegisterRoutes(app, Handlers{
		Health:   NewHealthHandler(&mockPool{}),
		Product:  NewProductHandler(s.product, v),
		Voucher:  NewVoucherHandler(s.voucher, v),
		Cart:     NewCartHandler(s.cart, v),
		Checkout: NewCheckoutHandler(s.checkout, v),
		Order:    NewOrderHandler(s.order, v),
		Review:   NewReviewHandler(s.review, v),
	})
	return app
}

// request builds a request with the given identity; empty user or role headers are omitted.
func request(method, path, body, user, role string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	if role != "" {
		req.Header.Set(HeaderUserRole, role)
	}
	return req
}

// do runs req and decodes the JSON body into a map (nil for empty bodies).
func do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp.StatusCode, body
}
