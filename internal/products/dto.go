package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopora-backend/pkg/db/models"
	"github.com/angelmondragon/shopora-backend/pkg/pagination"
)

// ProductDTO represents the catalog payload returned to clients.
type ProductDTO struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Image           string          `json:"image"`
	Images          []string        `json:"images"`
	Brand           string          `json:"brand"`
	Category        string          `json:"category"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	DiscountedPrice decimal.Decimal `json:"discountedPrice"`
	Discount        int             `json:"discount"`
	CountInStock    int             `json:"countInStock"`
	Rating          float64         `json:"rating"`
	NumReviews      int             `json:"numReviews"`
	Featured        bool            `json:"featured"`
	Reviews         []ReviewDTO     `json:"reviews,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ReviewDTO is a single review as shown on the product page.
type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProductListResult is one catalog page plus its paging metadata.
type ProductListResult struct {
	Products []ProductDTO `json:"products"`
	pagination.Page
}

// NewProductDTO builds a DTO from the persisted model. Reviews are only included
// on detail reads.
func NewProductDTO(product *models.Product, withReviews bool) *ProductDTO {
	dto := &ProductDTO{
		ID:              product.ID,
		Name:            product.Name,
		Image:           product.Image,
		Images:          append([]string{}, product.Images...),
		Brand:           product.Brand,
		Category:        string(product.Category),
		Description:     product.Description,
		Price:           product.Price,
		DiscountedPrice: product.DiscountedPrice().Round(2),
		Discount:        product.Discount,
		CountInStock:    product.CountInStock,
		Rating:          product.Rating,
		NumReviews:      product.NumReviews,
		Featured:        product.Featured,
		CreatedAt:       product.CreatedAt,
		UpdatedAt:       product.UpdatedAt,
	}

	if withReviews && len(product.Reviews) > 0 {
		dto.Reviews = make([]ReviewDTO, len(product.Reviews))
		for i, review := range product.Reviews {
			dto.Reviews[i] = ReviewDTO{
				ID:        review.ID,
				UserID:    review.UserID,
				Name:      review.Name,
				Rating:    review.Rating,
				Comment:   review.Comment,
				CreatedAt: review.CreatedAt,
			}
		}
	}

	return dto
}

func newProductDTOs(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewProductDTO(&rows[i], false))
	}
	return out
}
