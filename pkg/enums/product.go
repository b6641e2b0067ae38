package enums

import "slices"

// ProductCategory is the fixed catalog taxonomy.
type ProductCategory string

const (
	ProductCategoryElectronics ProductCategory = "Electronics"
	ProductCategoryFashion     ProductCategory = "Fashion"
	ProductCategoryHomeKitchen ProductCategory = "Home & Kitchen"
	ProductCategoryBeauty      ProductCategory = "Beauty"
	ProductCategorySports      ProductCategory = "Sports"
	ProductCategoryBooks       ProductCategory = "Books"
	ProductCategoryToys        ProductCategory = "Toys"
	ProductCategoryAutomotive  ProductCategory = "Automotive"
	ProductCategoryHealth      ProductCategory = "Health"
	ProductCategoryOther       ProductCategory = "Other"
)

var productCategories = []ProductCategory{
	ProductCategoryElectronics,
	ProductCategoryFashion,
	ProductCategoryHomeKitchen,
	ProductCategoryBeauty,
	ProductCategorySports,
	ProductCategoryBooks,
	ProductCategoryToys,
	ProductCategoryAutomotive,
	ProductCategoryHealth,
	ProductCategoryOther,
}

// ProductCategories returns the categories in display order.
func ProductCategories() []ProductCategory {
	return slices.Clone(productCategories)
}

func (c ProductCategory) String() string { return string(c) }

func (c ProductCategory) IsValid() bool { return slices.Contains(productCategories, c) }

// ParseProductCategory matches the display spelling exactly, "Home & Kitchen" included.
func ParseProductCategory(value string) (ProductCategory, error) {
	return parseEnum(productCategories, "product category", value)
}

// ProductSort is the catalog ordering requested by a listing.
type ProductSort string

const (
	ProductSortNewest    ProductSort = "newest"
	ProductSortPriceAsc  ProductSort = "price_asc"
	ProductSortPriceDesc ProductSort = "price_desc"
	ProductSortRating    ProductSort = "rating"
)

// ParseProductSort maps raw input to a sort, falling back to newest for unknown values.
func ParseProductSort(value string) ProductSort {
	switch ProductSort(value) {
	case ProductSortPriceAsc, ProductSortPriceDesc, ProductSortRating, ProductSortNewest:
		return ProductSort(value)
	default:
		return ProductSortNewest
	}
}
