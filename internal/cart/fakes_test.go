package cart

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopora-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
	"github.com/angelmondragon/shopora-backend/pkg/types"
)

type fakeCatalog struct {
	products map[uuid.UUID]*models.Product
	err      error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: map[uuid.UUID]*models.Product{}}
}

func (f *fakeCatalog) add(price string, stock int) uuid.UUID {
	id := uuid.New()
	f.products[id] = &models.Product{
		ID:           id,
		Name:         "product-" + id.String()[:8],
		Price:        decimal.RequireFromString(price),
		CountInStock: stock,
	}
	return id
}

func (f *fakeCatalog) GetProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	product, ok := f.products[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	copied := *product
	return &copied, nil
}

func (f *fakeCatalog) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := map[uuid.UUID]models.Product{}
	for _, id := range ids {
		if product, ok := f.products[id]; ok {
			out[id] = *product
		}
	}
	return out, nil
}

type memoryRepo struct {
	carts map[uuid.UUID]types.CartLines
	saves int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{carts: map[uuid.UUID]types.CartLines{}}
}

func (m *memoryRepo) WithTx(*gorm.DB) CartRepository { return m }

func (m *memoryRepo) LoadCart(_ context.Context, userID uuid.UUID) (types.CartLines, error) {
	lines, ok := m.carts[userID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return lines.Clone(), nil
}

func (m *memoryRepo) SaveCart(_ context.Context, userID uuid.UUID, lines types.CartLines) error {
	m.saves++
	m.carts[userID] = lines.Clone()
	return nil
}

func discardLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cart-test", Output: io.Discard})
}
