package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Review is a buyer's rating of a delivered order.
type Review struct {
	ID          int64     `json:"id"`
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number,omitempty"`
	UserID      string    `json:"user_id"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ReviewRequest is the DTO for creating or editing a review.
type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// ProductReviews aggregates the reviews of every order that contained a product.
type ProductReviews struct {
	ProductID     int64           `json:"product_id"`
	ReviewCount   int             `json:"review_count"`
	AverageRating decimal.Decimal `json:"average_rating"`
	Reviews       []Review        `json:"reviews"`
}

// NewProductReviews computes the count and the average rating, rounded to one place.
func NewProductReviews(productID int64, reviews []Review) *ProductReviews {
	if reviews == nil {
		reviews = []Review{}
	}
	pr := &ProductReviews{ProductID: productID, ReviewCount: len(reviews), AverageRating: decimal.Zero, Reviews: reviews}
	if len(reviews) == 0 {
		return pr
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	pr.AverageRating = decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(len(reviews)))).Round(1)
	return pr
}
