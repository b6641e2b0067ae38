package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopora-backend/pkg/db/models"
	"github.com/angelmondragon/shopora-backend/pkg/enums"
	"github.com/angelmondragon/shopora-backend/pkg/pagination"
	"github.com/angelmondragon/shopora-backend/pkg/types"
)

// OrderListFilters narrow the admin order list.
type OrderListFilters struct {
	UserID *uuid.UUID
	Status *enums.OrderStatus
	IsPaid *bool
}

// OrderItemDTO is one snapshot line with its line total.
type OrderItemDTO struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// OrderDTO is the public view of an order snapshot.
type OrderDTO struct {
	ID              uuid.UUID             `json:"id"`
	UserID          uuid.UUID             `json:"userId"`
	Items           []OrderItemDTO        `json:"items"`
	ShippingAddress types.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   enums.PaymentMethod   `json:"paymentMethod"`
	PaymentResult   *types.PaymentResult  `json:"paymentResult,omitempty"`
	ItemsPrice      decimal.Decimal       `json:"itemsPrice"`
	ShippingPrice   decimal.Decimal       `json:"shippingPrice"`
	TaxPrice        decimal.Decimal       `json:"taxPrice"`
	TotalPrice      decimal.Decimal       `json:"totalPrice"`
	Status          enums.OrderStatus     `json:"status"`
	IsPaid          bool                  `json:"isPaid"`
	PaidAt          *time.Time            `json:"paidAt,omitempty"`
	IsDelivered     bool                  `json:"isDelivered"`
	DeliveredAt     *time.Time            `json:"deliveredAt,omitempty"`
	CancelledAt     *time.Time            `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

// OrderListResult wraps one page of orders.
type OrderListResult struct {
	Orders []OrderDTO `json:"orders"`
	pagination.Page
}

// NewOrderDTO maps the stored snapshot into its response shape.
func NewOrderDTO(order *models.Order) *OrderDTO {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Price:     item.Price,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
		})
	}
	return &OrderDTO{
		ID:              order.ID,
		UserID:          order.UserID,
		Items:           items,
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   order.PaymentMethod,
		PaymentResult:   order.PaymentResult,
		ItemsPrice:      order.ItemsPrice,
		ShippingPrice:   order.ShippingPrice,
		TaxPrice:        order.TaxPrice,
		TotalPrice:      order.TotalPrice,
		Status:          order.Status,
		IsPaid:          order.IsPaid,
		PaidAt:          order.PaidAt,
		IsDelivered:     order.IsDelivered,
		DeliveredAt:     order.DeliveredAt,
		CancelledAt:     order.CancelledAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

func newOrderDTOs(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewOrderDTO(&rows[i]))
	}
	return out
}
