package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopora-backend/pkg/db/models"
	"github.com/angelmondragon/shopora-backend/pkg/types"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	LoadCart(ctx context.Context, userID uuid.UUID) (types.CartLines, error)
	SaveCart(ctx context.Context, userID uuid.UUID, lines types.CartLines) error
}

// ProductLookup resolves a single product. Missing products must surface as a
// NOT_FOUND typed error.
type ProductLookup interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// ProductCatalog adds the batch read used to populate cart views.
type ProductCatalog interface {
	ProductLookup
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}
