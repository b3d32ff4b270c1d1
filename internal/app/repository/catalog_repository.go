package repository

import (
	"sort"
	"strings"

	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogFilter is the set of criteria a catalog query narrows by.
// Attributes maps an attribute slug to the value slugs selected for it.
type CatalogFilter struct {
	CategorySlug string
	BrandSlug    string
	Search       string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	IsSale       *bool
	Attributes   map[string][]string
}

type ProductSort string

const (
	SortNewest     ProductSort = "-created_at"
	SortOldest     ProductSort = "created_at"
	SortPriceAsc   ProductSort = "price"
	SortPriceDesc  ProductSort = "-price"
	SortPopular    ProductSort = "-views_count"
	SortBestseller ProductSort = "-sales_count"
)

var productSortClauses = map[ProductSort]string{
	SortNewest:     "products.created_at DESC, products.id DESC",
	SortOldest:     "products.created_at ASC, products.id ASC",
	SortPriceAsc:   "products.price ASC, products.id ASC",
	SortPriceDesc:  "products.price DESC, products.id DESC",
	SortPopular:    "products.views_count DESC, products.id DESC",
	SortBestseller: "products.sales_count DESC, products.id DESC",
}

func (s ProductSort) Valid() bool {
	_, ok := productSortClauses[s]
	return ok
}

// FeaturedTab names a storefront shelf
type FeaturedTab string

const (
	TabPopular    FeaturedTab = "popular"
	TabBestseller FeaturedTab = "bestseller"
	TabNew        FeaturedTab = "new"
)

type ListOptions struct {
	Sort   ProductSort
	Limit  int
	Offset int
}

type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// FacetValueRow is one attribute value reachable from the matched product set
type FacetValueRow struct {
	ID          uint
	AttributeID uint
	Value       string
	Slug        string
	Sort        int
}

type CatalogRepository interface {
	MatchingIDs(filter CatalogFilter) ([]uint, error)
	ListMatching(filter CatalogFilter, opts ListOptions) ([]model.Product, int64, error)
	BrandsFor(filter CatalogFilter) ([]model.Brand, error)
	PriceRangeFor(filter CatalogFilter) (PriceRange, error)
	VariantFacetValues(filter CatalogFilter, attributeIDs []uint) ([]FacetValueRow, error)
	OfferedFacetValues(filter CatalogFilter, attributeIDs []uint) ([]FacetValueRow, error)
	VariantPriceRanges(productIDs []uint) (map[uint]PriceRange, error)
	Featured(tab FeaturedTab, categorySlug string, limit int) ([]model.Product, error)
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

const variantMatchSQL = `EXISTS (
	SELECT 1 FROM product_variants pv
	JOIN product_variant_attribute_values pvav ON pvav.product_variant_id = pv.id
	JOIN attribute_values av ON av.id = pvav.attribute_value_id
	JOIN attributes a ON a.id = av.attribute_id
	WHERE pv.product_id = products.id AND pv.is_active = ? AND pv.stock > 0
	AND a.slug = ? AND av.slug IN ?)`

const offeredMatchSQL = `EXISTS (
	SELECT 1 FROM product_attribute_values pav
	JOIN attributes a ON a.id = pav.attribute_id
	JOIN attribute_values av ON av.id = pav.attribute_value_id
	WHERE pav.product_id = products.id
	AND a.slug = ? AND av.slug IN ?)`

// likeEscaper makes user input literal inside a LIKE pattern
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// matching builds a fresh query over products satisfying every criterion.
// Values within one attribute group are OR'd, groups are AND'd.
func (r *catalogRepository) matching(filter CatalogFilter) *gorm.DB {
	query := r.db.Model(&model.Product{}).Where("products.is_active = ?", true)

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		query = query.Where(`(LOWER(products.name) LIKE ? ESCAPE '\' OR LOWER(products.slug) LIKE ? ESCAPE '\')`, like, like)
	}
	if filter.CategorySlug != "" {
		query = query.Where("products.category_id IN (SELECT id FROM categories WHERE slug = ?)", filter.CategorySlug)
	}
	if filter.BrandSlug != "" {
		query = query.Where("products.brand_id IN (SELECT id FROM brands WHERE slug = ?)", filter.BrandSlug)
	}
	if filter.MinPrice != nil {
		query = query.Where("products.price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("products.price <= ?", *filter.MaxPrice)
	}
	if filter.IsSale != nil {
		query = query.Where("products.is_sale = ?", *filter.IsSale)
	}

	slugs := make([]string, 0, len(filter.Attributes))
	for slug, values := range filter.Attributes {
		if len(values) > 0 {
			slugs = append(slugs, slug)
		}
	}
	sort.Strings(slugs)
	for _, slug := range slugs {
		values := filter.Attributes[slug]
		query = query.Where("("+variantMatchSQL+" OR "+offeredMatchSQL+")", true, slug, values, slug, values)
	}

	return query
}

func (r *catalogRepository) MatchingIDs(filter CatalogFilter) ([]uint, error) {
	var ids []uint
	if err := r.matching(filter).Order("products.id ASC").Pluck("products.id", &ids).Error; err != nil {
		logger.Error("Failed to resolve matching product IDs", err, map[string]interface{}{
			"category": filter.CategorySlug,
			"brand":    filter.BrandSlug,
		})
		return nil, err
	}
	return ids, nil
}

func (r *catalogRepository) ListMatching(filter CatalogFilter, opts ListOptions) ([]model.Product, int64, error) {
	var total int64
	if err := r.matching(filter).Count(&total).Error; err != nil {
		logger.Error("Failed to count matching products", err)
		return nil, 0, err
	}

	order, ok := productSortClauses[opts.Sort]
	if !ok {
		order = productSortClauses[SortNewest]
	}

	var products []model.Product
	query := r.matching(filter).
		Preload("Category").
		Preload("Brand").
		Order(order)
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit).Offset(opts.Offset)
	}
	if err := query.Find(&products).Error; err != nil {
		logger.Error("Failed to list matching products", err)
		return nil, 0, err
	}
	return products, total, nil
}

func (r *catalogRepository) BrandsFor(filter CatalogFilter) ([]model.Brand, error) {
	var brands []model.Brand
	if err := r.db.Where("id IN (?)", r.matching(filter).Select("products.brand_id")).
		Order("name ASC").
		Find(&brands).Error; err != nil {
		logger.Error("Failed to load brands for matched products", err)
		return nil, err
	}
	return brands, nil
}

func (r *catalogRepository) PriceRangeFor(filter CatalogFilter) (PriceRange, error) {
	var row struct {
		MinPrice decimal.NullDecimal
		MaxPrice decimal.NullDecimal
	}
	if err := r.matching(filter).
		Select("MIN(products.price) AS min_price, MAX(products.price) AS max_price").
		Scan(&row).Error; err != nil {
		logger.Error("Failed to aggregate price range", err)
		return PriceRange{}, err
	}
	return PriceRange{Min: row.MinPrice.Decimal, Max: row.MaxPrice.Decimal}, nil
}

// VariantFacetValues collects values carried by active in-stock variants of matched products
func (r *catalogRepository) VariantFacetValues(filter CatalogFilter, attributeIDs []uint) ([]FacetValueRow, error) {
	var rows []FacetValueRow
	if len(attributeIDs) == 0 {
		return rows, nil
	}
	err := r.db.Table("attribute_values AS av").
		Select("DISTINCT av.id, av.attribute_id, av.value, av.slug, av.sort").
		Joins("JOIN product_variant_attribute_values pvav ON pvav.attribute_value_id = av.id").
		Joins("JOIN product_variants pv ON pv.id = pvav.product_variant_id").
		Where("av.attribute_id IN ?", attributeIDs).
		Where("pv.is_active = ? AND pv.stock > 0", true).
		Where("pv.product_id IN (?)", r.matching(filter).Select("products.id")).
		Scan(&rows).Error
	if err != nil {
		logger.Error("Failed to aggregate variant facet values", err)
		return nil, err
	}
	return rows, nil
}

// OfferedFacetValues collects values declared as offered for matched products
func (r *catalogRepository) OfferedFacetValues(filter CatalogFilter, attributeIDs []uint) ([]FacetValueRow, error) {
	var rows []FacetValueRow
	if len(attributeIDs) == 0 {
		return rows, nil
	}
	err := r.db.Table("attribute_values AS av").
		Select("DISTINCT av.id, av.attribute_id, av.value, av.slug, av.sort").
		Joins("JOIN product_attribute_values pav ON pav.attribute_value_id = av.id").
		Where("av.attribute_id IN ?", attributeIDs).
		Where("pav.product_id IN (?)", r.matching(filter).Select("products.id")).
		Scan(&rows).Error
	if err != nil {
		logger.Error("Failed to aggregate offered facet values", err)
		return nil, err
	}
	return rows, nil
}

// VariantPriceRanges returns min/max effective price over active in-stock variants per product
func (r *catalogRepository) VariantPriceRanges(productIDs []uint) (map[uint]PriceRange, error) {
	ranges := make(map[uint]PriceRange)
	if len(productIDs) == 0 {
		return ranges, nil
	}

	var rows []struct {
		ProductID uint
		MinPrice  decimal.NullDecimal
		MaxPrice  decimal.NullDecimal
	}
	err := r.db.Table("product_variants AS pv").
		Select("pv.product_id, MIN(COALESCE(pv.price, p.price)) AS min_price, MAX(COALESCE(pv.price, p.price)) AS max_price").
		Joins("JOIN products p ON p.id = pv.product_id").
		Where("pv.product_id IN ? AND pv.is_active = ? AND pv.stock > 0", productIDs, true).
		Group("pv.product_id").
		Scan(&rows).Error
	if err != nil {
		logger.Error("Failed to aggregate variant price ranges", err)
		return nil, err
	}

	for _, row := range rows {
		ranges[row.ProductID] = PriceRange{Min: row.MinPrice.Decimal, Max: row.MaxPrice.Decimal}
	}
	return ranges, nil
}

// Featured lists active products for a storefront shelf. Flagged products come first;
// popular and bestseller shelves also take unflagged products with views or sales.
// An unknown tab lists newest first.
func (r *catalogRepository) Featured(tab FeaturedTab, categorySlug string, limit int) ([]model.Product, error) {
	query := r.db.Model(&model.Product{}).
		Preload("Category").
		Preload("Brand").
		Where("products.is_active = ?", true)
	if categorySlug != "" {
		query = query.Where("products.category_id IN (SELECT id FROM categories WHERE slug = ?)", categorySlug)
	}

	switch tab {
	case TabPopular:
		query = query.Where("(products.is_popular = ? OR products.views_count > 0)", true).
			Order("products.is_popular DESC, products.views_count DESC, products.id DESC")
	case TabBestseller:
		query = query.Where("(products.is_bestseller = ? OR products.sales_count > 0)", true).
			Order("products.is_bestseller DESC, products.sales_count DESC, products.id DESC")
	case TabNew:
		query = query.Order("products.is_new DESC, products.created_at DESC, products.id DESC")
	default:
		query = query.Order(productSortClauses[SortNewest])
	}

	var products []model.Product
	if err := query.Limit(limit).Find(&products).Error; err != nil {
		logger.Error("Failed to list featured products", err, map[string]interface{}{
			"tab":      string(tab),
			"category": categorySlug,
		})
		return nil, err
	}
	return products, nil
}
