package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/internal/app/repository"
	"github.com/opticplace/opticplace-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DefaultPageSize      = 24
	MaxPageSize          = 100
	DefaultFeaturedLimit = 8
)

// FacetSettings controls how facets and the category tree are presented
type FacetSettings struct {
	ShowCounts bool
	MaxValues  int // per facet, 0 means unlimited
}

type FacetValue struct {
	Slug  string `json:"slug"`
	Value string `json:"value"`
}

type Facet struct {
	AttributeSlug string       `json:"attribute_slug"`
	AttributeName string       `json:"attribute_name"`
	Values        []FacetValue `json:"values"`
}

type CategoryNode struct {
	ID           uint           `json:"id"`
	Name         string         `json:"name"`
	Slug         string         `json:"slug"`
	ProductCount *int64         `json:"product_count,omitempty"`
	Children     []CategoryNode `json:"children,omitempty"`
}

type BrandSummary struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	IsFeatured bool   `json:"is_featured"`
}

type CatalogResult struct {
	ProductIDs []uint                `json:"product_ids"`
	Facets     []Facet               `json:"facets"`
	Categories []CategoryNode        `json:"categories"`
	Brands     []BrandSummary        `json:"brands"`
	PriceRange repository.PriceRange `json:"price_range"`
}

type ProductSummary struct {
	model.Product
	PriceRange repository.PriceRange `json:"price_range"`
}

type ProductPage struct {
	Items    []ProductSummary `json:"items"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

type ListProductsInput struct {
	Filter   repository.CatalogFilter
	Sort     repository.ProductSort
	Page     int
	PageSize int
}

type CatalogService interface {
	QueryCatalog(ctx context.Context, filter repository.CatalogFilter) (*CatalogResult, error)
	ListProducts(input ListProductsInput) (*ProductPage, error)
	FeaturedProducts(tab repository.FeaturedTab, limit int, categorySlug string) ([]ProductSummary, error)
}

type catalogService struct {
	catalogRepo   repository.CatalogRepository
	categoryRepo  repository.CategoryRepository
	attributeRepo repository.AttributeRepository
	settings      FacetSettings
	cache         CatalogCache
}

func NewCatalogService(
	catalogRepo repository.CatalogRepository,
	categoryRepo repository.CategoryRepository,
	attributeRepo repository.AttributeRepository,
	settings FacetSettings,
	cache CatalogCache,
) CatalogService {
	return &catalogService{
		catalogRepo:   catalogRepo,
		categoryRepo:  categoryRepo,
		attributeRepo: attributeRepo,
		settings:      settings,
		cache:         cache,
	}
}

// QueryCatalog resolves the matched product set and everything needed to narrow it further.
// An empty match is a normal result, never an error.
func (s *catalogService) QueryCatalog(ctx context.Context, filter repository.CatalogFilter) (*CatalogResult, error) {
	filter, err := NormalizeFilter(filter)
	if err != nil {
		return nil, err
	}

	fingerprint := Fingerprint(filter, s.settings)
	cached, version := s.fromCache(ctx, fingerprint)
	if cached != nil {
		return cached, nil
	}

	ids, err := s.catalogRepo.MatchingIDs(filter)
	if err != nil {
		return nil, err
	}

	result := &CatalogResult{
		ProductIDs: ids,
		Facets:     []Facet{},
		Brands:     []BrandSummary{},
	}
	if result.ProductIDs == nil {
		result.ProductIDs = []uint{}
	}

	if result.Categories, err = s.categoryTree(); err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		brands, err := s.catalogRepo.BrandsFor(filter)
		if err != nil {
			return nil, err
		}
		for _, b := range brands {
			result.Brands = append(result.Brands, BrandSummary{
				ID:         b.ID,
				Name:       b.Name,
				Slug:       b.Slug,
				IsFeatured: b.IsFeatured,
			})
		}

		if result.PriceRange, err = s.catalogRepo.PriceRangeFor(filter); err != nil {
			return nil, err
		}

		if result.Facets, err = s.facets(filter); err != nil {
			return nil, err
		}
	}

	logger.Debug("Catalog query resolved", map[string]interface{}{
		"matched": len(ids),
		"facets":  len(result.Facets),
		"brands":  len(result.Brands),
	})

	s.toCache(ctx, version, fingerprint, result)
	return result, nil
}

func (s *catalogService) ListProducts(input ListProductsInput) (*ProductPage, error) {
	filter, err := NormalizeFilter(input.Filter)
	if err != nil {
		return nil, err
	}

	sortBy := input.Sort
	if sortBy == "" {
		sortBy = repository.SortNewest
	}
	if !sortBy.Valid() {
		return nil, fmt.Errorf("%w: unknown sort %q", ErrInvalidFilter, sortBy)
	}

	page := input.Page
	if page < 1 {
		page = 1
	}
	pageSize := input.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	products, total, err := s.catalogRepo.ListMatching(filter, repository.ListOptions{
		Sort:   sortBy,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		return nil, err
	}

	items, err := s.summarize(products)
	if err != nil {
		return nil, err
	}

	return &ProductPage{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// FeaturedProducts fills a storefront shelf, optionally within one category
func (s *catalogService) FeaturedProducts(tab repository.FeaturedTab, limit int, categorySlug string) ([]ProductSummary, error) {
	if tab == "" {
		tab = repository.TabPopular
	}
	if limit < 1 {
		limit = DefaultFeaturedLimit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	products, err := s.catalogRepo.Featured(tab, strings.TrimSpace(categorySlug), limit)
	if err != nil {
		return nil, err
	}
	return s.summarize(products)
}

// summarize attaches variant price ranges, falling back to the product price
func (s *catalogService) summarize(products []model.Product) ([]ProductSummary, error) {
	ids := make([]uint, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	ranges, err := s.catalogRepo.VariantPriceRanges(ids)
	if err != nil {
		return nil, err
	}

	items := make([]ProductSummary, 0, len(products))
	for _, p := range products {
		priceRange, ok := ranges[p.ID]
		if !ok {
			priceRange = repository.PriceRange{Min: p.Price, Max: p.Price}
		}
		items = append(items, ProductSummary{Product: p, PriceRange: priceRange})
	}
	return items, nil
}

// facets unions variant-based and offered values for every eligible attribute.
// Attributes left without values are dropped.
func (s *catalogService) facets(filter repository.CatalogFilter) ([]Facet, error) {
	attrs, err := s.eligibleAttributes(filter.CategorySlug)
	if err != nil {
		return nil, err
	}
	if len(attrs) == 0 {
		return []Facet{}, nil
	}

	attrIDs := make([]uint, len(attrs))
	for i, a := range attrs {
		attrIDs[i] = a.ID
	}

	variantRows, err := s.catalogRepo.VariantFacetValues(filter, attrIDs)
	if err != nil {
		return nil, err
	}
	offeredRows, err := s.catalogRepo.OfferedFacetValues(filter, attrIDs)
	if err != nil {
		return nil, err
	}

	byAttr := make(map[uint]map[uint]repository.FacetValueRow, len(attrs))
	for _, row := range append(variantRows, offeredRows...) {
		if byAttr[row.AttributeID] == nil {
			byAttr[row.AttributeID] = make(map[uint]repository.FacetValueRow)
		}
		byAttr[row.AttributeID][row.ID] = row
	}

	facets := make([]Facet, 0, len(attrs))
	for _, attr := range attrs {
		rows := byAttr[attr.ID]
		if len(rows) == 0 {
			continue
		}

		sorted := make([]repository.FacetValueRow, 0, len(rows))
		for _, row := range rows {
			sorted = append(sorted, row)
		}
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].Sort != sorted[j].Sort {
				return sorted[i].Sort < sorted[j].Sort
			}
			if sorted[i].Value != sorted[j].Value {
				return sorted[i].Value < sorted[j].Value
			}
			return sorted[i].ID < sorted[j].ID
		})
		if s.settings.MaxValues > 0 && len(sorted) > s.settings.MaxValues {
			sorted = sorted[:s.settings.MaxValues]
		}

		facet := Facet{
			AttributeSlug: attr.Slug,
			AttributeName: attr.Name,
			Values:        make([]FacetValue, 0, len(sorted)),
		}
		for _, row := range sorted {
			facet.Values = append(facet.Values, FacetValue{Slug: row.Slug, Value: row.Value})
		}
		facets = append(facets, facet)
	}
	return facets, nil
}

// eligibleAttributes uses the category's explicit filter set when one is configured
func (s *catalogService) eligibleAttributes(categorySlug string) ([]model.Attribute, error) {
	if categorySlug != "" {
		category, err := s.categoryRepo.FindBySlug(categorySlug)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if category != nil {
			attrs, err := s.categoryRepo.FilterAttributes(category.ID)
			if err != nil {
				return nil, err
			}
			if len(attrs) > 0 {
				return attrs, nil
			}
		}
	}
	return s.attributeRepo.FindFilterable()
}

// categoryTree returns every category reachable from an active root through active parents
func (s *catalogService) categoryTree() ([]CategoryNode, error) {
	categories, err := s.categoryRepo.FindActive()
	if err != nil {
		return nil, err
	}

	var counts map[uint]int64
	if s.settings.ShowCounts {
		if counts, err = s.categoryRepo.ActiveProductCounts(); err != nil {
			return nil, err
		}
	}

	children := make(map[uint][]model.Category)
	var roots []model.Category
	for _, c := range categories {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}

	var build func(c model.Category) CategoryNode
	build = func(c model.Category) CategoryNode {
		node := CategoryNode{ID: c.ID, Name: c.Name, Slug: c.Slug}
		if counts != nil {
			count := counts[c.ID]
			node.ProductCount = &count
		}
		for _, child := range children[c.ID] {
			node.Children = append(node.Children, build(child))
		}
		return node
	}

	tree := make([]CategoryNode, 0, len(roots))
	for _, root := range roots {
		tree = append(tree, build(root))
	}
	return tree, nil
}

func (s *catalogService) fromCache(ctx context.Context, fingerprint string) (*CatalogResult, int64) {
	if s.cache == nil {
		return nil, -1
	}
	payload, version, ok := s.cache.Get(ctx, fingerprint)
	if !ok {
		return nil, version
	}
	var result CatalogResult
	if err := json.Unmarshal(payload, &result); err != nil {
		logger.Warn("Discarding undecodable cached catalog result", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, version
	}
	return &result, version
}

func (s *catalogService) toCache(ctx context.Context, version int64, fingerprint string, result *CatalogResult) {
	if s.cache == nil || version < 0 {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		logger.Warn("Failed to encode catalog result for cache", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	s.cache.Set(ctx, version, fingerprint, payload)
}

// NormalizeFilter trims slugs, drops empty attribute groups and rejects inverted or
// negative price bounds. Slugs keep their case since they are matched exactly.
func NormalizeFilter(filter repository.CatalogFilter) (repository.CatalogFilter, error) {
	normalized := repository.CatalogFilter{
		CategorySlug: strings.TrimSpace(filter.CategorySlug),
		BrandSlug:    strings.TrimSpace(filter.BrandSlug),
		Search:       strings.TrimSpace(filter.Search),
		MinPrice:     filter.MinPrice,
		MaxPrice:     filter.MaxPrice,
		IsSale:       filter.IsSale,
	}

	if normalized.MinPrice != nil && normalized.MinPrice.IsNegative() {
		return normalized, fmt.Errorf("%w: min_price must not be negative", ErrInvalidFilter)
	}
	if normalized.MaxPrice != nil && normalized.MaxPrice.IsNegative() {
		return normalized, fmt.Errorf("%w: max_price must not be negative", ErrInvalidFilter)
	}
	if normalized.MinPrice != nil && normalized.MaxPrice != nil && normalized.MinPrice.GreaterThan(*normalized.MaxPrice) {
		return normalized, fmt.Errorf("%w: min_price exceeds max_price", ErrInvalidFilter)
	}

	for slug, values := range filter.Attributes {
		slug = strings.TrimSpace(slug)
		if slug == "" {
			continue
		}
		seen := make(map[string]bool, len(values))
		for _, v := range values {
			v = strings.TrimSpace(v)
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
		}
		if len(seen) == 0 {
			continue
		}
		if normalized.Attributes == nil {
			normalized.Attributes = make(map[string][]string)
		}
		merged := normalized.Attributes[slug]
		for v := range seen {
			merged = append(merged, v)
		}
		sort.Strings(merged)
		normalized.Attributes[slug] = dedupeSorted(merged)
	}
	return normalized, nil
}

// Fingerprint renders a normalized filter and the settings canonically
func Fingerprint(filter repository.CatalogFilter, settings FacetSettings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "c=%s|b=%s|q=%s", filter.CategorySlug, filter.BrandSlug, strings.ToLower(filter.Search))
	fmt.Fprintf(&b, "|min=%s|max=%s", decimalKey(filter.MinPrice), decimalKey(filter.MaxPrice))
	if filter.IsSale != nil {
		fmt.Fprintf(&b, "|sale=%t", *filter.IsSale)
	}

	slugs := make([]string, 0, len(filter.Attributes))
	for slug := range filter.Attributes {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	for _, slug := range slugs {
		fmt.Fprintf(&b, "|a:%s=%s", slug, strings.Join(filter.Attributes[slug], ","))
	}

	fmt.Fprintf(&b, "|counts=%t|max_values=%d", settings.ShowCounts, settings.MaxValues)
	return b.String()
}

func decimalKey(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func dedupeSorted(values []string) []string {
	out := values[:0]
	for i, v := range values {
		if i == 0 || v != values[i-1] {
			out = append(out, v)
		}
	}
	return out
}
