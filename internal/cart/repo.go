package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopora-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
	"github.com/angelmondragon/shopora-backend/pkg/types"
)

// Repository reads and writes the cart column on the user row.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// LoadCart returns the user's cart lines; a user with no cart yields an empty slice.
func (r *Repository) LoadCart(ctx context.Context, userID uuid.UUID) (types.CartLines, error) {
	var row struct {
		Cart types.CartLines
	}
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("cart").
		Where("id = ?", userID).
		Take(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if row.Cart == nil {
		return types.CartLines{}, nil
	}
	return row.Cart, nil
}

// SaveCart overwrites the user's cart lines.
func (r *Repository) SaveCart(ctx context.Context, userID uuid.UUID, lines types.CartLines) error {
	if lines == nil {
		lines = types.CartLines{}
	}
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("cart", lines)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "save cart")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return nil
}
