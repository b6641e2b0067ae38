package product

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopora-backend/pkg/db/models"
	"github.com/angelmondragon/shopora-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
	"github.com/angelmondragon/shopora-backend/pkg/types"
)

// Repository wires together the catalog persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads the product row.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProduct is the catalog lookup used by the cart and checkout. Missing rows
// surface as NOT_FOUND.
func (r *Repository) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := r.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": id.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

// FindByIDs loads every listed product in one query, keyed by ID. Unknown IDs are absent.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// CreateProduct inserts a new product row.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.Reviews == nil {
		product.Reviews = types.Reviews{}
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct saves every column of an existing product row.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes a product by ID and reports whether a row was deleted.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SaveReviews rewrites the review list and its aggregates, guarded by the review
// count the caller read. It returns false when another writer got there first.
func (r *Repository) SaveReviews(ctx context.Context, product *models.Product, expectedCount int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND num_reviews = ?", product.ID, expectedCount).
		Updates(map[string]any{
			"reviews":     product.Reviews,
			"rating":      product.Rating,
			"num_reviews": product.NumReviews,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DecrementStock removes qty units only when at least qty remain.
// A false result means the stock moved underneath the caller.
func (r *Repository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND count_in_stock >= ?", id, qty).
		UpdateColumn("count_in_stock", gorm.Expr("count_in_stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RestoreStock returns units to the shelf, used when an order is cancelled.
func (r *Repository) RestoreStock(ctx context.Context, id uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("count_in_stock", gorm.Expr("count_in_stock + ?", qty)).
		Error
}

// ListProducts applies the browse filters, returning one page plus the unpaged total.
func (r *Repository) ListProducts(ctx context.Context, query productListQuery) ([]models.Product, int64, error) {
	filtered := func() *gorm.DB {
		return applyListFilters(r.db.WithContext(ctx).Model(&models.Product{}), query.filters)
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Product
	err := applySort(filtered(), query.sort).
		Offset(query.page.Offset()).
		Limit(query.page.Limit()).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListFeatured returns up to limit featured products, newest first.
func (r *Repository) ListFeatured(ctx context.Context, limit int) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("featured = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).
		Error
	return rows, err
}

// ListTopRated returns up to limit products by rating.
func (r *Repository) ListTopRated(ctx context.Context, limit int) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Order("rating DESC").
		Order("num_reviews DESC").
		Limit(limit).
		Find(&rows).
		Error
	return rows, err
}

// ListCategories returns the distinct categories currently in use.
func (r *Repository) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).
		Error
	return categories, err
}

func applyListFilters(qb *gorm.DB, filters ProductListFilters) *gorm.DB {
	if keyword := strings.TrimSpace(filters.Keyword); keyword != "" {
		like := "%" + escapeLike(strings.ToLower(keyword)) + "%"
		qb = qb.Where(
			"(LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\' OR LOWER(brand) LIKE ? ESCAPE '\\')",
			like, like, like,
		)
	}
	if filters.Category != nil {
		qb = qb.Where("category = ?", string(*filters.Category))
	}
	if filters.MinPrice != nil {
		qb = qb.Where("price >= ?", *filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		qb = qb.Where("price <= ?", *filters.MaxPrice)
	}
	if filters.MinRating != nil {
		qb = qb.Where("rating >= ?", *filters.MinRating)
	}
	return qb
}

func applySort(qb *gorm.DB, sort enums.ProductSort) *gorm.DB {
	switch sort {
	case enums.ProductSortPriceAsc:
		return qb.Order("price ASC").Order("id ASC")
	case enums.ProductSortPriceDesc:
		return qb.Order("price DESC").Order("id ASC")
	case enums.ProductSortRating:
		return qb.Order("rating DESC").Order("id ASC")
	default:
		return qb.Order("created_at DESC").Order("id DESC")
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
