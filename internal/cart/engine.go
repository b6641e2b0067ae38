package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopora-backend/pkg/checkout"
	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
	"github.com/angelmondragon/shopora-backend/pkg/types"
)

// Engine applies cart mutations to a snapshot of cart lines. It keeps every line at a
// positive quantity no larger than the product's stock at the time of the call.
//
// Operations never modify the slice they are given: on success they return a new
// slice, on failure they return the error and the caller still holds the untouched
// original.
type Engine struct {
	catalog ProductLookup
}

// NewEngine builds an engine that checks stock through catalog.
func NewEngine(catalog ProductLookup) (*Engine, error) {
	if catalog == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	return &Engine{catalog: catalog}, nil
}

// AddItem adds quantity units of productID. An existing line grows by quantity and the
// combined amount is checked against stock again.
func (e *Engine) AddItem(ctx context.Context, cart types.CartLines, productID uuid.UUID, quantity int) (types.CartLines, error) {
	if err := requireProductID(productID); err != nil {
		return nil, err
	}
	if err := checkout.ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	product, err := e.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := checkout.ValidateProductStock(productID, quantity, product.CountInStock); err != nil {
		return nil, err
	}

	next := cart.Clone()
	if idx := next.IndexOf(productID); idx >= 0 {
		combined := next[idx].Quantity + quantity
		if err := checkout.ValidateProductStock(productID, combined, product.CountInStock); err != nil {
			return nil, err
		}
		next[idx].Quantity = combined
		return next, nil
	}
	return append(next, types.CartLine{ProductID: productID, Quantity: quantity}), nil
}

// UpdateItem sets the quantity of an existing line outright.
// Quantities below one are rejected rather than treated as a removal.
func (e *Engine) UpdateItem(ctx context.Context, cart types.CartLines, productID uuid.UUID, quantity int) (types.CartLines, error) {
	if err := requireProductID(productID); err != nil {
		return nil, err
	}
	if err := checkout.ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	product, err := e.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := checkout.ValidateProductStock(productID, quantity, product.CountInStock); err != nil {
		return nil, err
	}

	idx := cart.IndexOf(productID)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart").
			WithDetails(map[string]any{"product_id": productID})
	}
	next := cart.Clone()
	next[idx].Quantity = quantity
	return next, nil
}

// RemoveItem drops the line for productID. Removing an absent product is a no-op.
func (e *Engine) RemoveItem(_ context.Context, cart types.CartLines, productID uuid.UUID) (types.CartLines, error) {
	next := make(types.CartLines, 0, len(cart))
	for _, line := range cart {
		if line.ProductID != productID {
			next = append(next, line)
		}
	}
	return next, nil
}

// Clear empties the cart.
func (e *Engine) Clear(_ context.Context, _ types.CartLines) (types.CartLines, error) {
	return types.CartLines{}, nil
}

func requireProductID(productID uuid.UUID) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	return nil
}
