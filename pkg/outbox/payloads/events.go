package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopora-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once the order row and stock decrements commit.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        uuid.UUID           `json:"user_id"`
	ItemCount     int                 `json:"item_count"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	ItemsPrice    decimal.Decimal     `json:"items_price"`
	ShippingPrice decimal.Decimal     `json:"shipping_price"`
	TaxPrice      decimal.Decimal     `json:"tax_price"`
	TotalPrice    decimal.Decimal     `json:"total_price"`
}

// OrderPaidEvent records the payment confirmation attached to an order.
type OrderPaidEvent struct {
	OrderID    uuid.UUID       `json:"order_id"`
	UserID     uuid.UUID       `json:"user_id"`
	PaymentID  string          `json:"payment_id,omitempty"`
	TotalPrice decimal.Decimal `json:"total_price"`
	PaidAt     time.Time       `json:"paid_at"`
}

// OrderDeliveredEvent is emitted when an admin marks the order delivered.
type OrderDeliveredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	UserID      uuid.UUID `json:"user_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// OrderCancelledEvent carries the stock returned to the catalog, if any.
type OrderCancelledEvent struct {
	OrderID       uuid.UUID         `json:"order_id"`
	UserID        uuid.UUID         `json:"user_id"`
	PreviousState enums.OrderStatus `json:"previous_status"`
	StockRestored bool              `json:"stock_restored"`
	CancelledAt   time.Time         `json:"cancelled_at"`
}

// OrderStatusChangedEvent covers admin transitions that have no dedicated event.
type OrderStatusChangedEvent struct {
	OrderID uuid.UUID         `json:"order_id"`
	UserID  uuid.UUID         `json:"user_id"`
	From    enums.OrderStatus `json:"from"`
	To      enums.OrderStatus `json:"to"`
}
