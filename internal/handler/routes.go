package handler

import "github.com/gofiber/fiber/v2"

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Health   *HealthHandler
	Product  *ProductHandler
	Voucher  *VoucherHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Order    *OrderHandler
	Review   *ReviewHandler
}

// RegisterRoutes mounts the public, buyer and admin routes on app.
func RegisterRoutes(app *fiber.App, h Handlers) {
	app.Get("/health", h.Health.Check)

	api := app.Group("/api")

	// Catalog and status table are public.
	api.Get("/products", h.Product.List)
	api.Get("/products/:id", h.Product.Get)
	api.Get("/products/:id/reviews", h.Review.ForProduct)
	api.Get("/order-statuses", h.Order.Statuses)
	api.Get("/vouchers/active", h.Voucher.ListActive)

	// Everything below requires X-User-ID.
	buyer := api.Group("", RequireUser)
	buyer.Post("/vouchers/validate", h.Voucher.Validate)

	buyer.Get("/cart", h.Cart.Get)
	buyer.Delete("/cart", h.Cart.Clear)
	buyer.Post("/cart/items", h.Cart.AddItem)
	buyer.Patch("/cart/items/:id", h.Cart.UpdateItem)
	buyer.Delete("/cart/items/:id", h.Cart.RemoveItem)

	buyer.Post("/checkout", h.Checkout.Checkout)

	buyer.Get("/orders", h.Order.List)
	buyer.Get("/orders/:id", h.Order.Get)
	buyer.Get("/orders/:id/tracking", h.Order.Tracking)
	buyer.Post("/orders/:id/cancel", h.Order.Cancel)
	buyer.Get("/orders/:id/review", h.Review.ForOrder)
	buyer.Post("/orders/:id/review", h.Review.Create)

	buyer.Get("/reviews", h.Review.List)
	buyer.Put("/reviews/:id", h.Review.Update)
	buyer.Delete("/reviews/:id", h.Review.Delete)

	admin := api.Group("/admin", RequireAdmin)
	admin.Get("/vouchers", h.Voucher.List)
	admin.Post("/vouchers", h.Voucher.Create)
	admin.Get("/vouchers/usage", h.Voucher.Usage)
	admin.Get("/vouchers/stats", h.Voucher.Stats)
	admin.Get("/vouchers/:id", h.Voucher.Get)
	admin.Put("/vouchers/:id", h.Voucher.Update)
	admin.Delete("/vouchers/:id", h.Voucher.Delete)
	admin.Patch("/vouchers/:id/status", h.Voucher.SetStatus)

	admin.Get("/orders", h.Order.ListAll)
	admin.Patch("/orders/:id/status", h.Order.UpdateStatus)

	admin.Post("/products", h.Product.Create)
	admin.Put("/products/:id", h.Product.Update)
	admin.Delete("/products/:id", h.Product.Delete)
	admin.Patch("/products/:id/stock", h.Product.UpdateStock)
}
