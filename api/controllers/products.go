package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopora-backend/api/middleware"
	"github.com/angelmondragon/shopora-backend/api/responses"
	"github.com/angelmondragon/shopora-backend/api/validators"
	productsvc "github.com/angelmondragon/shopora-backend/internal/products"
	"github.com/angelmondragon/shopora-backend/internal/users"
	"github.com/angelmondragon/shopora-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
)

const maxCatalogPage = 10000

// ProductList serves the paged, filtered catalog browse.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		input, err := parseProductListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListProducts(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseProductListQuery(r *http.Request) (productsvc.ListProductsInput, error) {
	query := r.URL.Query()

	page, err := validators.ParseQueryInt(r, "pageNumber", 1, 1, maxCatalogPage)
	if err != nil {
		return productsvc.ListProductsInput{}, err
	}

	filters := productsvc.ProductListFilters{
		Keyword: validators.SanitizeString(query.Get("keyword"), 100),
	}
	if raw := strings.TrimSpace(query.Get("category")); raw != "" {
		category, err := enums.ParseProductCategory(raw)
		if err != nil {
			return productsvc.ListProductsInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category").
				WithDetails(map[string]any{"field": "category", "allowed": enums.ProductCategories()})
		}
		filters.Category = &category
	}
	if filters.MinPrice, err = validators.ParseQueryDecimal(r, "minPrice"); err != nil {
		return productsvc.ListProductsInput{}, err
	}
	if filters.MaxPrice, err = validators.ParseQueryDecimal(r, "maxPrice"); err != nil {
		return productsvc.ListProductsInput{}, err
	}
	rating, err := validators.ParseQueryDecimal(r, "rating")
	if err != nil {
		return productsvc.ListProductsInput{}, err
	}
	if rating != nil {
		value := rating.InexactFloat64()
		filters.MinRating = &value
	}

	return productsvc.ListProductsInput{
		Filters: filters,
		Sort:    enums.ParseProductSort(strings.TrimSpace(query.Get("sort"))),
		Page:    page,
	}, nil
}

// ProductDetail returns one product with its reviews.
func ProductDetail(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ProductFeatured serves the home page carousel.
func ProductFeatured(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return listHandler(logg, func(ctx context.Context) (any, error) { return svc.ListFeatured(ctx) })
}

// ProductTopRated lists the best rated products.
func ProductTopRated(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return listHandler(logg, func(ctx context.Context) (any, error) { return svc.ListTopRated(ctx) })
}

func ProductCategories(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return listHandler(logg, func(ctx context.Context) (any, error) { return svc.ListCategories(ctx) })
}

func listHandler(logg *logger.Logger, fetch func(ctx context.Context) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := fetch(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type createProductRequest struct {
	Name         string          `json:"name" validate:"required,max=200"`
	Image        string          `json:"image" validate:"omitempty,max=500"`
	Images       []string        `json:"images" validate:"omitempty,max=10,dive,max=500"`
	Brand        string          `json:"brand" validate:"required,max=100"`
	Category     string          `json:"category" validate:"required"`
	Description  string          `json:"description" validate:"required,max=5000"`
	Price        decimal.Decimal `json:"price"`
	CountInStock int             `json:"countInStock" validate:"gte=0"`
	Featured     bool            `json:"featured"`
	Discount     int             `json:"discount" validate:"gte=0,max=100"`
}

func (r createProductRequest) toInput() (productsvc.CreateProductInput, error) {
	category, err := enums.ParseProductCategory(strings.TrimSpace(r.Category))
	if err != nil {
		return productsvc.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
	}
	if err := checkPrice(r.Price); err != nil {
		return productsvc.CreateProductInput{}, err
	}
	return productsvc.CreateProductInput{
		Name:         validators.SanitizeString(r.Name, 200),
		Image:        strings.TrimSpace(r.Image),
		Images:       r.Images,
		Brand:        validators.SanitizeString(r.Brand, 100),
		Category:     category,
		Description:  validators.SanitizeString(r.Description, 5000),
		Price:        r.Price,
		CountInStock: r.CountInStock,
		Featured:     r.Featured,
		Discount:     r.Discount,
	}, nil
}

type updateProductRequest struct {
	Name         *string          `json:"name" validate:"omitempty,max=200"`
	Image        *string          `json:"image" validate:"omitempty,max=500"`
	Images       *[]string        `json:"images" validate:"omitempty,max=10"`
	Brand        *string          `json:"brand" validate:"omitempty,max=100"`
	Category     *string          `json:"category"`
	Description  *string          `json:"description" validate:"omitempty,max=5000"`
	Price        *decimal.Decimal `json:"price"`
	CountInStock *int             `json:"countInStock" validate:"omitempty,gte=0"`
	Featured     *bool            `json:"featured"`
	Discount     *int             `json:"discount" validate:"omitempty,gte=0,max=100"`
}

func (r updateProductRequest) toInput() (productsvc.UpdateProductInput, error) {
	input := productsvc.UpdateProductInput{
		Name:         r.Name,
		Image:        r.Image,
		Images:       r.Images,
		Brand:        r.Brand,
		Description:  r.Description,
		CountInStock: r.CountInStock,
		Featured:     r.Featured,
		Discount:     r.Discount,
	}
	if r.Category != nil {
		category, err := enums.ParseProductCategory(strings.TrimSpace(*r.Category))
		if err != nil {
			return productsvc.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category")
		}
		input.Category = &category
	}
	if r.Price != nil {
		if err := checkPrice(*r.Price); err != nil {
			return productsvc.UpdateProductInput{}, err
		}
		input.Price = r.Price
	}
	return input, nil
}

func checkPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative").
			WithDetails(map[string]any{"field": "price"})
	}
	return nil
}

// AdminCreateProduct adds a product to the catalog.
func AdminCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithProductID(r.Context(), product.ID.String()), "product created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// AdminUpdateProduct applies a partial update.
func AdminUpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminDeleteProduct removes a product. Carts still holding it report the
// product as unavailable on their next read.
func AdminDeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithProductID(r.Context(), id.String()), "product deleted")
		}
		responses.WriteNoContent(w)
	}
}

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required,max=2000"`
}

type profileReader interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error)
}

// ProductReview records the caller's review. The reviewer name is taken from
// the stored profile, not from the request.
func ProductReview(svc productsvc.Service, profiles profileReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || profiles == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		userID, err := middleware.RequireUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body reviewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := profiles.GetProfile(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.AddReview(r.Context(), productID, productsvc.ReviewInput{
			UserID:   userID,
			UserName: profile.Name,
			Rating:   body.Rating,
			Comment:  validators.SanitizeString(body.Comment, 2000),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}
