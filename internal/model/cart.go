package model

import "github.com/shopspring/decimal"

// CartItem is a line in a user's cart joined with its product.
type CartItem struct {
	ID        int64           `json:"id"`
	CartID    int64           `json:"cart_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Product   Product         `json:"product"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Cart is the authoritative view of a user's cart.
type Cart struct {
	UserID    string          `json:"user_id"`
	Items     []CartItem      `json:"items"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

// NewCart builds a Cart and its totals from items.
func NewCart(userID string, items []CartItem) *Cart {
	if items == nil {
		items = []CartItem{}
	}
	total := decimal.Zero
	for i := range items {
		items[i].Subtotal = items[i].Product.Price.Mul(decimal.NewFromInt(int64(items[i].Quantity)))
		total = total.Add(items[i].Subtotal)
	}
	return &Cart{UserID: userID, Items: items, ItemCount: len(items), Total: total}
}

// Lines converts the cart into checkout lines.
func (c *Cart) Lines() []CartLine {
	lines := make([]CartLine, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, CartLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

// AddCartItemRequest is the DTO for POST /api/cart/items.
type AddCartItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gte=1"`
	Quantity  int   `json:"quantity" validate:"required,gte=1"`
}

// UpdateCartItemRequest is the DTO for PATCH /api/cart/items/:id.
// A quantity below 1 removes the line.
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}
