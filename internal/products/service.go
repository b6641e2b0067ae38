package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopora-backend/pkg/config"
	"github.com/angelmondragon/shopora-backend/pkg/db/models"
	"github.com/angelmondragon/shopora-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
	"github.com/angelmondragon/shopora-backend/pkg/pagination"
	"github.com/angelmondragon/shopora-backend/pkg/types"
)

// DefaultImage is used when a product is created without an image.
const DefaultImage = "https://via.placeholder.com/400"

// Service exposes catalog browsing, admin product management and reviews.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListFeatured(ctx context.Context) ([]ProductDTO, error)
	ListTopRated(ctx context.Context) ([]ProductDTO, error)
	ListCategories(ctx context.Context) ([]string, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	AddReview(ctx context.Context, productID uuid.UUID, input ReviewInput) (*ProductDTO, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name         string
	Image        string
	Images       []string
	Brand        string
	Category     enums.ProductCategory
	Description  string
	Price        decimal.Decimal
	CountInStock int
	Featured     bool
	Discount     int
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name         *string
	Image        *string
	Images       *[]string
	Brand        *string
	Category     *enums.ProductCategory
	Description  *string
	Price        *decimal.Decimal
	CountInStock *int
	Featured     *bool
	Discount     *int
}

// ReviewInput is a review submitted by an authenticated user.
type ReviewInput struct {
	UserID   uuid.UUID
	UserName string
	Rating   int
	Comment  string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo    *Repository
	tx      txRunner
	catalog config.CatalogConfig
	now     func() time.Time
}

// NewService constructs a product service instance.
func NewService(repo *Repository, tx txRunner, catalog config.CatalogConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		catalog: catalog,
		now:     time.Now,
	}, nil
}

// ListProducts pages through the catalog with the requested filters.
func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	if err := validateListFilters(input.Filters); err != nil {
		return nil, err
	}
	page := pagination.Params{Page: input.Page, PageSize: s.catalog.PageSize}.Normalize()

	rows, total, err := s.repo.ListProducts(ctx, productListQuery{
		filters: input.Filters,
		sort:    input.Sort,
		page:    page,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return &ProductListResult{
		Products: newProductDTOs(rows),
		Page:     pagination.NewPage(page, total),
	}, nil
}

// GetProduct returns a product with its reviews.
func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewProductDTO(product, true), nil
}

func (s *service) ListFeatured(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.ListFeatured(ctx, limitOr(s.catalog.FeaturedLimit, 8))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list featured products")
	}
	return newProductDTOs(rows), nil
}

func (s *service) ListTopRated(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.ListTopRated(ctx, limitOr(s.catalog.TopLimit, 5))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list top products")
	}
	return newProductDTOs(rows), nil
}

func (s *service) ListCategories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

// CreateProduct inserts a new catalog entry with no reviews.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	product := &models.Product{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(input.Name),
		Image:        strings.TrimSpace(input.Image),
		Images:       append([]string{}, input.Images...),
		Brand:        strings.TrimSpace(input.Brand),
		Category:     input.Category,
		Description:  strings.TrimSpace(input.Description),
		Price:        input.Price,
		CountInStock: input.CountInStock,
		Featured:     input.Featured,
		Discount:     input.Discount,
		Reviews:      types.Reviews{},
	}
	if product.Image == "" {
		product.Image = DefaultImage
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	return NewProductDTO(created, true), nil
}

// UpdateProduct applies the provided fields. Reviews and their aggregates are never touched here.
func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	var updated *models.Product
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := txRepo.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		applyUpdateToProduct(product, input)
		if err := validateProduct(product); err != nil {
			return err
		}
		saved, err := txRepo.UpdateProduct(ctx, product)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}
		updated = saved
		return nil
	}); err != nil {
		return nil, err
	}
	return NewProductDTO(updated, true), nil
}

// DeleteProduct removes a product. Carts that still reference it drop the line on next read.
func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.DeleteProduct(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

// AddReview appends a review and recomputes rating and numReviews from the full list.
// A user may review a product once.
func (s *service) AddReview(ctx context.Context, productID uuid.UUID, input ReviewInput) (*ProductDTO, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5").
			WithDetails(map[string]any{"rating": input.Rating})
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "reviewer required")
	}

	var reviewed *models.Product
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		product, err := txRepo.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if product.Reviews.ByUser(input.UserID) {
			return pkgerrors.New(pkgerrors.CodeConflict, "product already reviewed")
		}

		expected := product.NumReviews
		product.Reviews = append(product.Reviews.Clone(), types.Review{
			ID:        uuid.New(),
			UserID:    input.UserID,
			Name:      strings.TrimSpace(input.UserName),
			Rating:    input.Rating,
			Comment:   strings.TrimSpace(input.Comment),
			CreatedAt: s.now().UTC(),
		})
		product.NumReviews = len(product.Reviews)
		product.Rating = product.Reviews.AverageRating()

		saved, err := txRepo.SaveReviews(ctx, product, expected)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save reviews")
		}
		if !saved {
			return pkgerrors.New(pkgerrors.CodeConflict, "product was reviewed concurrently, retry")
		}
		reviewed = product
		return nil
	}); err != nil {
		return nil, err
	}
	return NewProductDTO(reviewed, true), nil
}

func validateListFilters(filters ProductListFilters) error {
	if filters.Category != nil && !filters.Category.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid category").
			WithDetails(map[string]any{"category": filters.Category.String()})
	}
	if filters.MinPrice != nil && filters.MaxPrice != nil && filters.MinPrice.GreaterThan(*filters.MaxPrice) {
		return pkgerrors.New(pkgerrors.CodeValidation, "minPrice cannot exceed maxPrice")
	}
	if filters.MinRating != nil && (*filters.MinRating < 0 || *filters.MinRating > 5) {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating filter must be between 0 and 5")
	}
	return nil
}

func validateProduct(product *models.Product) error {
	switch {
	case product.Name == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case product.Brand == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "brand is required")
	case product.Description == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	case !product.Category.IsValid():
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid category").
			WithDetails(map[string]any{"category": product.Category.String()})
	case product.Price.IsNegative():
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	case product.CountInStock < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "countInStock cannot be negative")
	case product.Discount < 0 || product.Discount > 100:
		return pkgerrors.New(pkgerrors.CodeValidation, "discount must be between 0 and 100")
	}
	return nil
}

func applyUpdateToProduct(product *models.Product, input UpdateProductInput) {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Image != nil {
		if image := strings.TrimSpace(*input.Image); image != "" {
			product.Image = image
		}
	}
	if input.Images != nil {
		product.Images = append([]string{}, (*input.Images)...)
	}
	if input.Brand != nil {
		product.Brand = strings.TrimSpace(*input.Brand)
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.CountInStock != nil {
		product.CountInStock = *input.CountInStock
	}
	if input.Featured != nil {
		product.Featured = *input.Featured
	}
	if input.Discount != nil {
		product.Discount = *input.Discount
	}
}

func limitOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

// IsNotFound reports whether err is the catalog's missing-product error.
func IsNotFound(err error) bool {
	return pkgerrors.Is(err, pkgerrors.CodeNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
