package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fairyhunter13/storefront-checkout/internal/model"
)

// ProductServiceInterface defines the catalog operations exposed over HTTP.
type ProductServiceInterface interface {
	List(ctx context.Context) ([]model.Product, error)
	Get(ctx context.Context, id int64) (*model.Product, error)
	Create(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error)
	UpdateStock(ctx context.Context, id int64, stock int) (*model.Product, error)
	Update(ctx context.Context, id int64, req *model.UpdateProductRequest) (*model.Product, error)
	Delete(ctx context.Context, id int64) error
}

// ProductHandler serves the catalog.
type ProductHandler struct {
	service   ProductServiceInterface
	validator *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(svc ProductServiceInterface, v *validator.Validate) *ProductHandler {
	return &ProductHandler{service: svc, validator: v}
}

// List handles GET /api/products.
func (h *ProductHandler) List(c *fiber.Ctx) error {
	products, err := h.service.List(c.Context())
	if err != nil {
		return respondError(c, err, "list products")
	}
	return c.JSON(products)
}

// Get handles GET /api/products/:id.
func (h *ProductHandler) Get(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid product id")
	}

	p, err := h.service.Get(c.Context(), id)
	if err != nil {
		return respondError(c, err, "get product")
	}
	return c.JSON(p)
}

// Create handles POST /api/admin/products.
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var req model.CreateProductRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	p, err := h.service.Create(c.Context(), &req)
	if err != nil {
		return respondError(c, err, "create product")
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// UpdateStock handles PATCH /api/admin/products/:id/stock.
func (h *ProductHandler) UpdateStock(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid product id")
	}

	var req model.UpdateStockRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	p, err := h.service.UpdateStock(c.Context(), id, *req.Stock)
	if err != nil {
		return respondError(c, err, "update product stock")
	}
	return c.JSON(p)
}

// Update handles PUT /api/admin/products/:id.
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid product id")
	}

	var req model.UpdateProductRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	p, err := h.service.Update(c.Context(), id, &req)
	if err != nil {
		return respondError(c, err, "update product")
	}
	return c.JSON(p)
}

// Delete handles DELETE /api/admin/products/:id.
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid product id")
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return respondError(c, err, "delete product")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
