package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopora-backend/api/middleware"
	"github.com/angelmondragon/shopora-backend/api/responses"
	"github.com/angelmondragon/shopora-backend/api/validators"
	internalorders "github.com/angelmondragon/shopora-backend/internal/orders"
	"github.com/angelmondragon/shopora-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
	"github.com/angelmondragon/shopora-backend/pkg/pagination"
	"github.com/angelmondragon/shopora-backend/pkg/types"
)

type placeOrderRequest struct {
	ShippingAddress types.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                `json:"paymentMethod" validate:"required"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type actionFunc func(r *http.Request, actor internalorders.Actor, orderID uuid.UUID) (*internalorders.OrderDTO, error)

// Create places an order from the caller's stored cart.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(strings.ToLower(strings.TrimSpace(payload.PaymentMethod)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method").
				WithDetails(map[string]any{"field": "paymentMethod"}))
			return
		}

		order, err := svc.PlaceOrder(r.Context(), internalorders.PlaceOrderInput{
			UserID:          actor.UserID,
			Role:            actor.Role,
			ShippingAddress: payload.ShippingAddress.Normalize(),
			PaymentMethod:   method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			ctx := logg.WithOrderID(r.Context(), order.ID.String())
			logg.Info(logg.WithField(ctx, "total", order.TotalPrice.StringFixed(2)), "order placed")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// ListMine returns the caller's orders, newest first.
func ListMine(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListMine(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminList returns every order, optionally narrowed by owner, status or payment.
func AdminList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		params, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := parseListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListAll(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one order. Customers only see their own.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc, logg, func(r *http.Request, actor internalorders.Actor, orderID uuid.UUID) (*internalorders.OrderDTO, error) {
		return svc.GetOrder(r.Context(), actor, orderID)
	})
}

// Pay records a payment result and marks the order paid.
func Pay(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc, logg, func(r *http.Request, actor internalorders.Actor, orderID uuid.UUID) (*internalorders.OrderDTO, error) {
		var payload types.PaymentResult
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		return svc.MarkPaid(r.Context(), actor, orderID, payload)
	})
}

func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc, logg, func(r *http.Request, actor internalorders.Actor, orderID uuid.UUID) (*internalorders.OrderDTO, error) {
		return svc.Cancel(r.Context(), actor, orderID)
	})
}

func Deliver(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc, logg, func(r *http.Request, actor internalorders.Actor, orderID uuid.UUID) (*internalorders.OrderDTO, error) {
		return svc.MarkDelivered(r.Context(), actor, orderID)
	})
}

// UpdateStatus moves an order along the fulfilment lifecycle.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(svc, logg, func(r *http.Request, actor internalorders.Actor, orderID uuid.UUID) (*internalorders.OrderDTO, error) {
		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return nil, err
		}
		status, err := enums.ParseOrderStatus(strings.ToLower(strings.TrimSpace(payload.Status)))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status").
				WithDetails(map[string]any{"field": "status"})
		}
		return svc.UpdateStatus(r.Context(), actor, orderID, status)
	})
}

func orderAction(svc internalorders.Service, logg *logger.Logger, fn actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := fn(r, actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		return internalorders.Actor{}, err
	}
	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		role = enums.UserRoleCustomer
	}
	return internalorders.Actor{UserID: userID, Role: role}, nil
}

func parsePageParams(r *http.Request) (pagination.Params, error) {
	page, err := validators.ParseQueryInt(r, "pageNumber", 1, 1, 100000)
	if err != nil {
		return pagination.Params{}, err
	}
	size, err := validators.ParseQueryInt(r, "pageSize", pagination.DefaultPageSize, 1, pagination.MaxPageSize)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Page: page, PageSize: size}, nil
}

func parseListFilters(r *http.Request) (internalorders.OrderListFilters, error) {
	var filters internalorders.OrderListFilters
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("userId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid userId").
				WithDetails(map[string]any{"field": "userId"})
		}
		filters.UserID = &id
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(strings.ToLower(raw))
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
				WithDetails(map[string]any{"field": "status"})
		}
		filters.Status = &status
	}
	isPaid, err := validators.ParseQueryBool(r, "isPaid")
	if err != nil {
		return filters, err
	}
	filters.IsPaid = isPaid
	return filters, nil
}
