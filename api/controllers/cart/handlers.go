package cart

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopora-backend/api/middleware"
	"github.com/angelmondragon/shopora-backend/api/responses"
	"github.com/angelmondragon/shopora-backend/api/validators"
	cartsvc "github.com/angelmondragon/shopora-backend/internal/cart"
	"github.com/angelmondragon/shopora-backend/pkg/checkout"
	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
	"github.com/angelmondragon/shopora-backend/pkg/types"
)

// Quantity is decoded as a raw number so fractional values are reported as
// INVALID_QUANTITY rather than a body type error.
type addItemRequest struct {
	ProductID uuid.UUID   `json:"productId" validate:"required"`
	Quantity  json.Number `json:"quantity"`
}

type updateItemRequest struct {
	Quantity json.Number `json:"quantity"`
}

// guestCartRequest is a client-held cart. The line cap bounds catalog lookups
// per request.
type guestCartRequest struct {
	Items []types.GuestLine `json:"items" validate:"guestcart"`
}

// CartFetch returns the caller's populated cart with totals.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withUser(svc, logg, func(r *http.Request, userID uuid.UUID) (any, error) {
		return svc.GetCart(r.Context(), userID)
	})
}

// CartAddItem adds quantity to a line, creating it when absent.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withUser(svc, logg, func(r *http.Request, userID uuid.UUID) (any, error) {
		var body addItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		quantity, err := checkout.ParseQuantity(body.Quantity)
		if err != nil {
			return nil, err
		}
		return svc.AddItem(r.Context(), userID, body.ProductID, quantity)
	})
}

// CartUpdateItem sets the quantity of an existing line.
func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withUser(svc, logg, func(r *http.Request, userID uuid.UUID) (any, error) {
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			return nil, err
		}
		var body updateItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		quantity, err := checkout.ParseQuantity(body.Quantity)
		if err != nil {
			return nil, err
		}
		return svc.UpdateItem(r.Context(), userID, productID, quantity)
	})
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withUser(svc, logg, func(r *http.Request, userID uuid.UUID) (any, error) {
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			return nil, err
		}
		return svc.RemoveItem(r.Context(), userID, productID)
	})
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withUser(svc, logg, func(r *http.Request, userID uuid.UUID) (any, error) {
		return svc.Clear(r.Context(), userID)
	})
}

// CartMerge folds a guest cart into the caller's stored cart. Lines that cannot
// be merged come back as warnings rather than failing the request.
func CartMerge(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withUser(svc, logg, func(r *http.Request, userID uuid.UUID) (any, error) {
		var body guestCartRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		result, err := svc.Merge(r.Context(), userID, body.Items)
		if err != nil {
			return nil, err
		}
		if len(result.Warnings) > 0 && logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{"warnings": len(result.Warnings)})
			logg.Warn(ctx, "cart merge skipped lines")
		}
		return result, nil
	})
}

// CartQuote prices a guest cart without persisting anything. It is public so
// anonymous shoppers see the same totals they will see after logging in.
func CartQuote(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		var body guestCartRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Quote(r.Context(), body.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func withUser(svc cartsvc.Service, logg *logger.Logger, fn func(r *http.Request, userID uuid.UUID) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := fn(r, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
