package orders

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopora-backend/internal/cart"
	"github.com/angelmondragon/shopora-backend/pkg/checkout"
	"github.com/angelmondragon/shopora-backend/pkg/db/models"
	"github.com/angelmondragon/shopora-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
	"github.com/angelmondragon/shopora-backend/pkg/metrics"
	"github.com/angelmondragon/shopora-backend/pkg/outbox"
	"github.com/angelmondragon/shopora-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/shopora-backend/pkg/pagination"
	"github.com/angelmondragon/shopora-backend/pkg/pricing"
	"github.com/angelmondragon/shopora-backend/pkg/types"
)

// Service manages order placement and the order lifecycle.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListResult, error)
	ListAll(ctx context.Context, filters OrderListFilters, params pagination.Params) (*OrderListResult, error)
	MarkPaid(ctx context.Context, actor Actor, orderID uuid.UUID, result types.PaymentResult) (*OrderDTO, error)
	MarkDelivered(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error)
}

// Actor is the authenticated caller performing an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// IsAdmin reports whether the actor may act on any order.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// PlaceOrderInput is the checkout request. The lines always come from the stored cart.
// Role is the caller's role as recorded on the order.created event; empty means customer.
type PlaceOrderInput struct {
	UserID          uuid.UUID
	Role            enums.UserRole
	ShippingAddress types.ShippingAddress
	PaymentMethod   enums.PaymentMethod
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups the collaborators of the order service.
type ServiceParams struct {
	Repo           Repository
	Carts          cart.CartRepository
	Inventory      Inventory
	Tx             txRunner
	Outbox         outboxPublisher
	Policy         pricing.Policy
	DecrementStock bool
	Metrics        *metrics.OrderMetrics
	Logger         *logger.Logger
	Now            func() time.Time
}

type service struct {
	repo           Repository
	carts          cart.CartRepository
	inventory      Inventory
	tx             txRunner
	outbox         outboxPublisher
	policy         pricing.Policy
	decrementStock bool
	metrics        *metrics.OrderMetrics
	logg           *logger.Logger
	now            func() time.Time
}

// NewService builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:           params.Repo,
		carts:          params.Carts,
		inventory:      params.Inventory,
		tx:             params.Tx,
		outbox:         params.Outbox,
		policy:         params.Policy,
		decrementStock: params.DecrementStock,
		metrics:        params.Metrics,
		logg:           params.Logger,
		now:            now,
	}, nil
}

// PlaceOrder snapshots the stored cart into a pending order. Stock is re-checked and
// then decremented with a conditional update in the transaction that also writes the
// order and queues order.created. The cart is emptied only when that commits.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	address := input.ShippingAddress.Normalize()
	if err := validateAddress(address); err != nil {
		s.metrics.ObservePlaced(outcomeOf(err), 0)
		return nil, err
	}
	if !input.PaymentMethod.IsValid() {
		err := pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").WithDetails(map[string]any{
			"payment_method": input.PaymentMethod,
		})
		s.metrics.ObservePlaced(outcomeOf(err), 0)
		return nil, err
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		lines, err := carts.LoadCart(ctx, input.UserID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		ids := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.ProductID)
		}
		products, err := s.inventory.Lookup(ctx, tx, ids)
		if err != nil {
			return err
		}

		items := make(types.OrderItems, 0, len(lines))
		priced := make([]pricing.Line, 0, len(lines))
		stock := make([]checkout.StockValidationInput, 0, len(lines))
		missing := make([]uuid.UUID, 0)
		for _, line := range lines {
			product, ok := products[line.ProductID]
			if !ok {
				missing = append(missing, line.ProductID)
				continue
			}
			stock = append(stock, checkout.StockValidationInput{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   line.Quantity,
				Available:   product.CountInStock,
			})
			items = append(items, types.OrderItem{
				ProductID: product.ID,
				Name:      product.Name,
				Image:     product.Image,
				Price:     product.Price,
				Quantity:  line.Quantity,
			})
			priced = append(priced, pricing.Line{UnitPrice: product.Price, Quantity: line.Quantity})
		}
		if len(missing) > 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithDetails(map[string]any{
				"product_ids": missing,
			})
		}
		if err := checkout.ValidateStockLines(stock); err != nil {
			return err
		}

		if s.decrementStock {
			for _, item := range items {
				if err := s.inventory.Decrement(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}

		totals := s.policy.Calculate(priced).Rounded
		now := s.now().UTC()
		order := &models.Order{
			ID:               uuid.New(),
			UserID:           input.UserID,
			Items:            items,
			ShippingAddress:  address,
			PaymentMethod:    input.PaymentMethod,
			ItemsPrice:       totals.ItemsPrice,
			ShippingPrice:    totals.ShippingPrice,
			TaxPrice:         totals.TaxPrice,
			TotalPrice:       totals.TotalPrice,
			Status:           enums.OrderStatusPending,
			StockDecremented: s.decrementStock,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		created, err = s.repo.WithTx(tx).Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if err := carts.SaveCart(ctx, input.UserID, types.CartLines{}); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   created.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: string(cmp.Or(input.Role, enums.UserRoleCustomer))},
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:       created.ID,
				UserID:        created.UserID,
				ItemCount:     lines.TotalQuantity(),
				PaymentMethod: created.PaymentMethod,
				ItemsPrice:    created.ItemsPrice,
				ShippingPrice: created.ShippingPrice,
				TaxPrice:      created.TaxPrice,
				TotalPrice:    created.TotalPrice,
			},
		})
	})
	if err != nil {
		s.metrics.ObservePlaced(outcomeOf(err), 0)
		return nil, err
	}

	total, _ := created.TotalPrice.Float64()
	s.metrics.ObservePlaced(metrics.OutcomeSuccess, total)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":    created.ID.String(),
		"user_id":     created.UserID.String(),
		"total_price": created.TotalPrice.String(),
		"line_count":  len(created.Items),
	})
	s.logg.Info(logCtx, "order placed")
	return NewOrderDTO(created), nil
}

func (s *service) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	order, err := s.load(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, order); err != nil {
		return nil, err
	}
	return NewOrderDTO(order), nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	params = params.Normalize()
	rows, total, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return &OrderListResult{Orders: newOrderDTOs(rows), Page: pagination.NewPage(params, total)}, nil
}

func (s *service) ListAll(ctx context.Context, filters OrderListFilters, params pagination.Params) (*OrderListResult, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	params = params.Normalize()
	rows, total, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return &OrderListResult{Orders: newOrderDTOs(rows), Page: pagination.NewPage(params, total)}, nil
}

// MarkPaid attaches the provider confirmation. A pending order moves to processing.
func (s *service) MarkPaid(ctx context.Context, actor Actor, orderID uuid.UUID, result types.PaymentResult) (*OrderDTO, error) {
	return s.apply(ctx, actor, orderID, func(order *models.Order, now time.Time) (*transition, error) {
		if order.Status == enums.OrderStatusCancelled {
			return nil, stateConflict("cancelled order cannot be paid", order.Status, order.Status)
		}
		if order.IsPaid {
			return nil, stateConflict("order already paid", order.Status, order.Status)
		}
		target := order.Status
		if target == enums.OrderStatusPending {
			target = enums.OrderStatusProcessing
		}
		payment := result
		return &transition{
			status: target,
			updates: map[string]any{
				"status":         target,
				"is_paid":        true,
				"paid_at":        now,
				"payment_result": &payment,
			},
			once: true,
			event: outbox.DomainEvent{
				EventType: enums.EventOrderPaid,
				Data: payloads.OrderPaidEvent{
					OrderID:    order.ID,
					UserID:     order.UserID,
					PaymentID:  payment.ID,
					TotalPrice: order.TotalPrice,
					PaidAt:     now,
				},
			},
		}, nil
	})
}

// MarkDelivered is admin only. Delivering an already delivered order is a no-op.
func (s *service) MarkDelivered(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.apply(ctx, actor, orderID, s.deliverPlan)
}

// Cancel is open to the owner and admins while the order has not shipped. Stock
// taken at checkout goes back to the catalog when decrements are enabled.
func (s *service) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	return s.apply(ctx, actor, orderID, s.cancelPlan)
}

// UpdateStatus is the admin transition endpoint. Delivered and cancelled reuse the
// dedicated flows so their side effects stay identical.
func (s *service) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").WithDetails(map[string]any{
			"status": status,
		})
	}
	switch status {
	case enums.OrderStatusDelivered:
		return s.apply(ctx, actor, orderID, s.deliverPlan)
	case enums.OrderStatusCancelled:
		return s.apply(ctx, actor, orderID, s.cancelPlan)
	}
	return s.apply(ctx, actor, orderID, func(order *models.Order, now time.Time) (*transition, error) {
		if order.Status == status {
			return nil, nil
		}
		if !order.Status.CanTransitionTo(status) {
			return nil, stateConflict("order status transition not allowed", order.Status, status)
		}
		return &transition{
			status:  status,
			updates: map[string]any{"status": status},
			event: outbox.DomainEvent{
				EventType: enums.EventOrderStatus,
				Data: payloads.OrderStatusChangedEvent{
					OrderID: order.ID,
					UserID:  order.UserID,
					From:    order.Status,
					To:      status,
				},
			},
		}, nil
	})
}

func (s *service) deliverPlan(order *models.Order, now time.Time) (*transition, error) {
	if order.Status == enums.OrderStatusDelivered {
		return nil, nil
	}
	if !order.Status.CanTransitionTo(enums.OrderStatusDelivered) {
		return nil, stateConflict("order cannot be delivered", order.Status, enums.OrderStatusDelivered)
	}
	return &transition{
		status: enums.OrderStatusDelivered,
		updates: map[string]any{
			"status":       enums.OrderStatusDelivered,
			"is_delivered": true,
			"delivered_at": now,
		},
		once: true,
		event: outbox.DomainEvent{
			EventType: enums.EventOrderDelivered,
			Data: payloads.OrderDeliveredEvent{
				OrderID:     order.ID,
				UserID:      order.UserID,
				DeliveredAt: now,
			},
		},
	}, nil
}

func (s *service) cancelPlan(order *models.Order, now time.Time) (*transition, error) {
	if order.Status == enums.OrderStatusCancelled {
		return nil, nil
	}
	if !order.Status.CanTransitionTo(enums.OrderStatusCancelled) {
		return nil, stateConflict("order can no longer be cancelled", order.Status, enums.OrderStatusCancelled)
	}
	return &transition{
		status: enums.OrderStatusCancelled,
		updates: map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		},
		restore: order.StockDecremented,
		once:    true,
		event: outbox.DomainEvent{
			EventType: enums.EventOrderCancelled,
			Data: payloads.OrderCancelledEvent{
				OrderID:       order.ID,
				UserID:        order.UserID,
				PreviousState: order.Status,
				StockRestored: order.StockDecremented,
				CancelledAt:   now,
			},
		},
	}, nil
}

// transition is the planned change for one lifecycle step. A nil plan means the
// order is already where the caller wants it. once marks events an order can only
// ever raise a single time.
type transition struct {
	status  enums.OrderStatus
	updates map[string]any
	event   outbox.DomainEvent
	restore bool
	once    bool
}

type planner func(order *models.Order, now time.Time) (*transition, error)

// apply loads the order, plans the step and writes it with a status compare-and-swap
// so two concurrent transitions cannot both succeed from the same state.
func (s *service) apply(ctx context.Context, actor Actor, orderID uuid.UUID, plan planner) (*OrderDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var (
		result  *models.Order
		changed *transition
		from    enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := authorize(actor, order); err != nil {
			return err
		}
		now := s.now().UTC()
		step, err := plan(order, now)
		if err != nil {
			return err
		}
		if step == nil {
			result = order
			return nil
		}

		ok, err := repo.UpdateFromStatus(ctx, order.ID, order.Status, step.updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently, retry").WithDetails(map[string]any{
				"order_id": order.ID,
			})
		}

		if step.restore {
			for _, item := range order.Items {
				if err := s.inventory.Restore(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}

		event := step.event
		event.AggregateType = enums.AggregateOrder
		event.AggregateID = order.ID
		event.Actor = &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
		event.OccurredAt = now
		emit := s.outbox.Emit
		if step.once {
			emit = s.outbox.EmitIfNotExists
		}
		if err := emit(ctx, tx, event); err != nil {
			return err
		}

		result, err = s.load(ctx, repo, order.ID)
		if err != nil {
			return err
		}
		changed = step
		from = order.Status
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed != nil {
		s.metrics.ObserveTransition(string(changed.status))
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":   result.ID.String(),
			"actor_id":   actor.UserID.String(),
			"from":       string(from),
			"to":         string(result.Status),
			"event_type": string(changed.event.EventType),
		})
		s.logg.Info(logCtx, "order updated")
	}
	return NewOrderDTO(result), nil
}

func (s *service) load(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func requireActor(actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

func requireAdmin(actor Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

func authorize(actor Actor, order *models.Order) error {
	if actor.IsAdmin() || order.UserID == actor.UserID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
}

func validateAddress(address types.ShippingAddress) error {
	missing := make([]string, 0, 4)
	if address.Address == "" {
		missing = append(missing, "address")
	}
	if address.City == "" {
		missing = append(missing, "city")
	}
	if address.PostalCode == "" {
		missing = append(missing, "postalCode")
	}
	if address.Country == "" {
		missing = append(missing, "country")
	}
	if len(missing) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "shipping address incomplete").WithDetails(map[string]any{
		"missing_fields": missing,
	})
}

func stateConflict(message string, from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, message).WithDetails(map[string]any{
		"from": from,
		"to":   to,
	})
}

func outcomeOf(err error) string {
	if code, ok := pkgerrors.CodeOf(err); ok {
		return string(code)
	}
	return metrics.OutcomeFailure
}
