package cart

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopora-backend/pkg/pricing"
)

// CartItemDTO is a cart line populated with the product data needed for display.
type CartItemDTO struct {
	ProductID    uuid.UUID       `json:"productId"`
	Name         string          `json:"name"`
	Image        string          `json:"image"`
	Price        decimal.Decimal `json:"price"`
	CountInStock int             `json:"countInStock"`
	Quantity     int             `json:"quantity"`
	LineTotal    decimal.Decimal `json:"lineTotal"`
}

// CartDTO is the populated cart with its checkout totals.
type CartDTO struct {
	Items []CartItemDTO `json:"items"`
	// Unavailable lists products that are still in the stored cart but no longer
	// exist in the catalog. They are excluded from Items and Totals.
	Unavailable []uuid.UUID       `json:"unavailable,omitempty"`
	ItemCount   int               `json:"itemCount"`
	Totals      pricing.Breakdown `json:"totals"`
	Working     pricing.Breakdown `json:"-"`
}

// Warning reasons reported for skipped guest lines.
const (
	ReasonProductNotFound   = "product_not_found"
	ReasonInsufficientStock = "insufficient_stock"
	ReasonInvalidQuantity   = "invalid_quantity"
	ReasonInvalidProduct    = "invalid_product"
)

// MergeWarning reports one guest line that could not be merged.
// Quantity echoes the value the client sent.
type MergeWarning struct {
	ProductID uuid.UUID   `json:"productId"`
	Quantity  json.Number `json:"quantity"`
	Reason    string      `json:"reason"`
	Message   string      `json:"message"`
}

// MergeResult is the reconciled cart plus every skipped line.
type MergeResult struct {
	Cart     *CartDTO       `json:"cart"`
	Warnings []MergeWarning `json:"warnings"`
}
