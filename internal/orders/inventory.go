package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	product "github.com/angelmondragon/shopora-backend/internal/products"
	"github.com/angelmondragon/shopora-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
)

type catalogInventory struct {
	products *product.Repository
}

// NewInventory exposes the catalog repository as the stock keeper for orders.
func NewInventory(products *product.Repository) Inventory {
	return &catalogInventory{products: products}
}

func (c *catalogInventory) Lookup(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	found, err := c.products.WithTx(tx).FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order products")
	}
	return found, nil
}

// Decrement takes qty from stock only if that much is still available.
func (c *catalogInventory) Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock decrement")
	}
	ok, err := c.products.WithTx(tx).DecrementStock(ctx, productID, qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").WithDetails(map[string]any{
			"product_id":    productID,
			"requested_qty": qty,
		})
	}
	return nil
}

func (c *catalogInventory) Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock restore")
	}
	if err := c.products.WithTx(tx).RestoreStock(ctx, productID, qty); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
	}
	return nil
}
