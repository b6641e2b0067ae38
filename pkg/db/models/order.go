package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopora-backend/pkg/enums"
	"github.com/angelmondragon/shopora-backend/pkg/types"
)

// Order is the immutable checkout snapshot plus its payment and delivery flags.
// StockDecremented records whether placement took the items out of stock, so a
// cancel restores only what was actually taken.
type Order struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	Items            types.OrderItems      `gorm:"column:items;type:jsonb;serializer:json;not null"`
	ShippingAddress  types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;not null"`
	PaymentMethod    enums.PaymentMethod   `gorm:"column:payment_method;not null"`
	PaymentResult    *types.PaymentResult  `gorm:"column:payment_result;type:jsonb"`
	ItemsPrice       decimal.Decimal       `gorm:"column:items_price;type:numeric(12,2);not null"`
	ShippingPrice    decimal.Decimal       `gorm:"column:shipping_price;type:numeric(12,2);not null"`
	TaxPrice         decimal.Decimal       `gorm:"column:tax_price;type:numeric(12,2);not null"`
	TotalPrice       decimal.Decimal       `gorm:"column:total_price;type:numeric(12,2);not null"`
	Status           enums.OrderStatus     `gorm:"column:status;not null;default:pending"`
	IsPaid           bool                  `gorm:"column:is_paid;not null;default:false"`
	PaidAt           *time.Time            `gorm:"column:paid_at"`
	IsDelivered      bool                  `gorm:"column:is_delivered;not null;default:false"`
	DeliveredAt      *time.Time            `gorm:"column:delivered_at"`
	CancelledAt      *time.Time            `gorm:"column:cancelled_at"`
	StockDecremented bool                  `gorm:"column:stock_decremented;not null;default:false"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
