package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopora-backend/pkg/enums"
	"github.com/angelmondragon/shopora-backend/pkg/types"
)

// Product is the catalog document. Reviews live inline so rating and
// numReviews are always rewritten together with the list they summarize.
type Product struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string                `gorm:"column:name;not null"`
	Image        string                `gorm:"column:image;not null"`
	Images       pq.StringArray        `gorm:"column:images;type:text[];not null;default:'{}'"`
	Brand        string                `gorm:"column:brand;not null"`
	Category     enums.ProductCategory `gorm:"column:category;not null"`
	Description  string                `gorm:"column:description;not null"`
	Price        decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	CountInStock int                   `gorm:"column:count_in_stock;not null;default:0"`
	Rating       float64               `gorm:"column:rating;not null;default:0"`
	NumReviews   int                   `gorm:"column:num_reviews;not null;default:0"`
	Reviews      types.Reviews         `gorm:"column:reviews;type:jsonb;not null"`
	Featured     bool                  `gorm:"column:featured;not null;default:false"`
	Discount     int                   `gorm:"column:discount;not null;default:0"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// DiscountedPrice applies the percentage discount to the list price.
func (p Product) DiscountedPrice() decimal.Decimal {
	if p.Discount <= 0 {
		return p.Price
	}
	off := p.Price.Mul(decimal.NewFromInt(int64(p.Discount))).Div(decimal.NewFromInt(100))
	return p.Price.Sub(off)
}
