package product

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopora-backend/pkg/enums"
	"github.com/angelmondragon/shopora-backend/pkg/pagination"
)

// ProductListFilters describe the supported filter knobs for the browse endpoint.
type ProductListFilters struct {
	Keyword   string                 `json:"keyword,omitempty"`
	Category  *enums.ProductCategory `json:"category,omitempty"`
	MinPrice  *decimal.Decimal       `json:"minPrice,omitempty"`
	MaxPrice  *decimal.Decimal       `json:"maxPrice,omitempty"`
	MinRating *float64               `json:"rating,omitempty"`
}

// ListProductsInput captures the inputs needed to filter, sort and page the catalog.
type ListProductsInput struct {
	Filters ProductListFilters
	Sort    enums.ProductSort
	Page    int
}

type productListQuery struct {
	filters ProductListFilters
	sort    enums.ProductSort
	page    pagination.Params
}
