package service

import (
	"context"
	"testing"

	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type catalogFixture struct {
	db         *gorm.DB
	service    CatalogService
	cache      *memoryCache
	frames     model.Category
	sunglasses model.Category
	p1         model.Product
	p2         model.Product
	p3         model.Product
}

// p1: frames, red/s in stock, blue/s sold out
// p2: sunglasses, offers green with no variants
// p3: frames, inactive, red/m in stock
func setupCatalogServiceTest(t *testing.T, settings FacetSettings) *catalogFixture {
	testDB := setupTestDB(t)
	cache := newMemoryCache()

	service := NewCatalogService(
		repository.NewCatalogRepository(testDB),
		repository.NewCategoryRepository(testDB),
		repository.NewAttributeRepository(testDB),
		settings,
		cache,
	)

	_, colors := createAttribute(t, testDB, "color", true, "red", "blue", "green")
	_, sizes := createAttribute(t, testDB, "size", true, "s", "m")
	_, materials := createAttribute(t, testDB, "material", false, "metal")

	frames := createCategory(t, testDB, "frames", nil)
	sunglasses := createCategory(t, testDB, "sunglasses", &frames.ID)

	p1 := createProduct(t, testDB, "p1", frames.ID, "100.00")
	createVariant(t, testDB, p1.ID, 2, colors["red"], sizes["s"])
	createVariant(t, testDB, p1.ID, 0, colors["blue"], sizes["s"])
	offerValues(t, testDB, p1.ID, materials["metal"])

	p2 := createProduct(t, testDB, "p2", sunglasses.ID, "200.00")
	offerValues(t, testDB, p2.ID, colors["green"])

	p3 := createProduct(t, testDB, "p3", frames.ID, "300.00")
	createVariant(t, testDB, p3.ID, 5, colors["red"], sizes["m"])
	require.NoError(t, testDB.Model(&model.Product{}).Where("id = ?", p3.ID).Update("is_active", false).Error)

	return &catalogFixture{
		db:         testDB,
		service:    service,
		cache:      cache,
		frames:     frames,
		sunglasses: sunglasses,
		p1:         p1,
		p2:         p2,
		p3:         p3,
	}
}

func facetValues(result *CatalogResult, attributeSlug string) []string {
	for _, facet := range result.Facets {
		if facet.AttributeSlug == attributeSlug {
			slugs := make([]string, 0, len(facet.Values))
			for _, v := range facet.Values {
				slugs = append(slugs, v.Slug)
			}
			return slugs
		}
	}
	return nil
}

func TestCatalogService_QueryCatalog_Unfiltered(t *testing.T) {
	f := setupCatalogServiceTest(t, FacetSettings{ShowCounts: true})

	result, err := f.service.QueryCatalog(context.Background(), repository.CatalogFilter{})
	require.NoError(t, err)

	assert.ElementsMatch(t, []uint{f.p1.ID, f.p2.ID}, result.ProductIDs)
	assert.Equal(t, []string{"red", "green"}, facetValues(result, "color"))
	assert.Equal(t, []string{"s"}, facetValues(result, "size"))
	assert.Nil(t, facetValues(result, "material"))
	assert.Equal(t, "100.00", result.PriceRange.Min.StringFixed(2))
	assert.Equal(t, "200.00", result.PriceRange.Max.StringFixed(2))
}

func TestCatalogService_QueryCatalog_Narrowing(t *testing.T) {
	f := setupCatalogServiceTest(t, FacetSettings{})
	ctx := context.Background()

	all, err := f.service.QueryCatalog(ctx, repository.CatalogFilter{})
	require.NoError(t, err)

	green, err := f.service.QueryCatalog(ctx, repository.CatalogFilter{
		Attributes: map[string][]string{"color": {"green"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{f.p2.ID}, green.ProductIDs)
	assert.Equal(t, []string{"green"}, facetValues(green, "color"))
	assert.Nil(t, facetValues(green, "size"))

	for _, facet := range green.Facets {
		assert.NotEmpty(t, facet.Values)
		assert.Subset(t, facetValues(all, facet.AttributeSlug), facetValues(green, facet.AttributeSlug))
	}
	assert.Subset(t, all.ProductIDs, green.ProductIDs)
}

func TestCatalogService_QueryCatalog_OrWithinGroupAndAcrossGroups(t *testing.T) {
	f := setupCatalogServiceTest(t, FacetSettings{})
	ctx := context.Background()

	either, err := f.service.QueryCatalog(ctx, repository.CatalogFilter{
		Attributes: map[string][]string{"color": {"red", "green"}},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{f.p1.ID, f.p2.ID}, either.ProductIDs)

	both, err := f.service.QueryCatalog(ctx, repository.CatalogFilter{
		Attributes: map[string][]string{
			"color": {"red", "green"},
			"size":  {"s"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{f.p1.ID}, both.ProductIDs)
}

func TestCatalogService_QueryCatalog_EmptyMatch(t *testing.T) {
	f := setupCatalogServiceTest(t, FacetSettings{})

	// blue only exists on a sold-out variant
	result, err := f.service.QueryCatalog(context.Background(), repository.CatalogFilter{
		Attributes: map[string][]string{"color": {"blue"}},
	})
	require.NoError(t, err)
	assert.Empty(t, result.ProductIDs)
	assert.Empty(t, result.Facets)
	assert.Empty(t, result.Brands)
	assert.NotEmpty(t, result.Categories)
}

func TestCatalogService_QueryCatalog_CategoryTree(t *testing.T) {
	f := setupCatalogServiceTest(t, FacetSettings{ShowCounts: true})
	hidden := createCategory(t, f.db, "hidden", nil)
	createCategory(t, f.db, "under-hidden", &hidden.ID)
	require.NoError(t, f.db.Model(&model.Category{}).Where("id = ?", hidden.ID).Update("is_active", false).Error)

	result, err := f.service.QueryCatalog(context.Background(), repository.CatalogFilter{})
	require.NoError(t, err)

	require.Len(t, result.Categories, 1)
	root := result.Categories[0]
	assert.Equal(t, "frames", root.Slug)
	require.NotNil(t, root.ProductCount)
	assert.Equal(t, int64(1), *root.ProductCount)

	require.Len(t, root.Children, 1)
	assert.Equal(t, "sunglasses", root.Children[0].Slug)
	require.NotNil(t, root.Children[0].ProductCount)
	assert.Equal(t, int64(1), *root.Children[0].ProductCount)
}

func TestCatalogService_QueryCatalog_CountsHidden(t *testing.T) {
	f := setupCatalogServiceTest(t, FacetSettings{ShowCounts: false})

	result, err := f.service.QueryCatalog(context.Background(), repository.CatalogFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, result.Categories)
	assert.Nil(t, result.Categories[0].ProductCount)
}

func TestCatalogService_QueryCatalog_MaxValues(t *testing.T) {
	f := setupCatalogServiceTest(t, FacetSettings{MaxValues: 1})

	result, err := f.service.QueryCatalog(context.Background(), repository.CatalogFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"red"}, facetValues(result, "color"))
}

func TestCatalogService_QueryCatalog_CategoryFilterAttributes(t *testing.T) {
	f := setupCatalogServiceTest(t, FacetSettings{})

	var size model.Attribute
	require.NoError(t, f.db.Where("slug = ?", "size").First(&size).Error)
	require.NoError(t, f.db.Model(&f.frames).Association("FilterAttributes").Append(&size))

	result, err := f.service.QueryCatalog(context.Background(), repository.CatalogFilter{CategorySlug: "frames"})
	require.NoError(t, err)
	assert.Equal(t, []uint{f.p1.ID}, result.ProductIDs)
	require.Len(t, result.Facets, 1)
	assert.Equal(t, "size", result.Facets[0].AttributeSlug)
}

func TestCatalogService_QueryCatalog_UsesCacheUntilInvalidated(t *testing.T) {
	f := setupCatalogServiceTest(t, FacetSettings{})
	ctx := context.Background()

	first, err := f.service.QueryCatalog(ctx, repository.CatalogFilter{})
	require.NoError(t, err)
	require.Len(t, first.ProductIDs, 2)

	require.NoError(t, f.db.Model(&model.Product{}).Where("id = ?", f.p2.ID).Update("is_active", false).Error)

	cached, err := f.service.QueryCatalog(ctx, repository.CatalogFilter{})
	require.NoError(t, err)
	assert.Len(t, cached.ProductIDs, 2)

	f.cache.Invalidate(ctx)

	fresh, err := f.service.QueryCatalog(ctx, repository.CatalogFilter{})
	require.NoError(t, err)
	assert.Equal(t, []uint{f.p1.ID}, fresh.ProductIDs)
}

func TestCatalogService_QueryCatalog_MutationDuringComputeIsNotCached(t *testing.T) {
	f := setupCatalogServiceTest(t, FacetSettings{})
	ctx := context.Background()

	// a product is withdrawn after the result was computed but before it is stored
	f.cache.beforeSet = func() {
		f.cache.beforeSet = nil
		require.NoError(t, f.db.Model(&model.Product{}).Where("id = ?", f.p2.ID).Update("is_active", false).Error)
		f.cache.Invalidate(ctx)
	}

	stale, err := f.service.QueryCatalog(ctx, repository.CatalogFilter{})
	require.NoError(t, err)
	assert.Len(t, stale.ProductIDs, 2)

	fresh, err := f.service.QueryCatalog(ctx, repository.CatalogFilter{})
	require.NoError(t, err)
	assert.Equal(t, []uint{f.p1.ID}, fresh.ProductIDs)
}

func TestCatalogService_QueryCatalog_InvalidPriceBounds(t *testing.T) {
	f := setupCatalogServiceTest(t, FacetSettings{})
	lo := dec("500")
	hi := dec("100")

	_, err := f.service.QueryCatalog(context.Background(), repository.CatalogFilter{MinPrice: &lo, MaxPrice: &hi})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestCatalogService_ListProducts(t *testing.T) {
	f := setupCatalogServiceTest(t, FacetSettings{})

	page, err := f.service.ListProducts(ListProductsInput{Sort: repository.SortPriceDesc})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, DefaultPageSize, page.PageSize)
	require.Len(t, page.Items, 2)
	assert.Equal(t, f.p2.ID, page.Items[0].ID)
	assert.Equal(t, "200.00", page.Items[0].PriceRange.Min.StringFixed(2))
	assert.Equal(t, f.p1.ID, page.Items[1].ID)
	assert.Equal(t, "100.00", page.Items[1].PriceRange.Max.StringFixed(2))

	second, err := f.service.ListProducts(ListProductsInput{Sort: repository.SortPriceAsc, Page: 2, PageSize: 1})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, f.p2.ID, second.Items[0].ID)

	_, err = f.service.ListProducts(ListProductsInput{Sort: "random"})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestNormalizeFilterAndFingerprint(t *testing.T) {
	a, err := NormalizeFilter(repository.CatalogFilter{
		CategorySlug: " frames ",
		Attributes: map[string][]string{
			"color": {"red", "blue", " red", ""},
			"size":  {" "},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "frames", a.CategorySlug)
	assert.Equal(t, map[string][]string{"color": {"blue", "red"}}, a.Attributes)

	mixed, err := NormalizeFilter(repository.CatalogFilter{
		CategorySlug: "Frames",
		Attributes:   map[string][]string{"size": {"S", "s"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Frames", mixed.CategorySlug)
	assert.Equal(t, map[string][]string{"size": {"S", "s"}}, mixed.Attributes)

	b, err := NormalizeFilter(repository.CatalogFilter{
		CategorySlug: "frames",
		Attributes:   map[string][]string{"color": {"red", "blue"}},
	})
	require.NoError(t, err)

	settings := FacetSettings{ShowCounts: true}
	assert.Equal(t, Fingerprint(a, settings), Fingerprint(b, settings))
	assert.NotEqual(t, Fingerprint(a, settings), Fingerprint(a, FacetSettings{}))

	coarse := dec("10.00")
	fine := dec("10.001")
	assert.NotEqual(t,
		Fingerprint(repository.CatalogFilter{MinPrice: &coarse}, settings),
		Fingerprint(repository.CatalogFilter{MinPrice: &fine}, settings),
	)

	sale := true
	assert.NotEqual(t, Fingerprint(b, settings), Fingerprint(repository.CatalogFilter{
		CategorySlug: b.CategorySlug,
		Attributes:   b.Attributes,
		IsSale:       &sale,
	}, settings))
}

func TestCatalogService_QueryCatalog_MixedCaseSlugs(t *testing.T) {
	testDB := setupTestDB(t)
	service := NewCatalogService(
		repository.NewCatalogRepository(testDB),
		repository.NewCategoryRepository(testDB),
		repository.NewAttributeRepository(testDB),
		FacetSettings{},
		nil,
	)
	ctx := context.Background()

	_, sizes := createAttribute(t, testDB, "size", true, "S", "M")
	frames := createCategory(t, testDB, "Frames", nil)
	frameX := createProduct(t, testDB, "frame-x", frames.ID, "100.00")
	offerValues(t, testDB, frameX.ID, sizes["S"])

	byCategory, err := service.QueryCatalog(ctx, repository.CatalogFilter{CategorySlug: "Frames"})
	require.NoError(t, err)
	assert.Equal(t, []uint{frameX.ID}, byCategory.ProductIDs)

	bySize, err := service.QueryCatalog(ctx, repository.CatalogFilter{
		Attributes: map[string][]string{"size": {"S"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{frameX.ID}, bySize.ProductIDs)
	require.Len(t, bySize.Facets, 1)
	require.Len(t, bySize.Facets[0].Values, 1)
	assert.Equal(t, "S", bySize.Facets[0].Values[0].Slug)

	unoffered, err := service.QueryCatalog(ctx, repository.CatalogFilter{
		Attributes: map[string][]string{"size": {"M"}},
	})
	require.NoError(t, err)
	assert.Empty(t, unoffered.ProductIDs)
}

func TestCatalogService_FeaturedProducts(t *testing.T) {
	f := setupCatalogServiceTest(t, FacetSettings{})

	require.NoError(t, f.db.Model(&model.Product{}).Where("id = ?", f.p2.ID).
		Updates(map[string]interface{}{"is_popular": true, "is_new": true}).Error)
	require.NoError(t, f.db.Model(&model.Product{}).Where("id = ?", f.p1.ID).
		Update("views_count", 5).Error)

	popular, err := f.service.FeaturedProducts(repository.TabPopular, 0, "")
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, f.p2.ID, popular[0].ID)
	assert.Equal(t, f.p1.ID, popular[1].ID)
	assert.Equal(t, "100.00", popular[1].PriceRange.Min.StringFixed(2))

	bestsellers, err := f.service.FeaturedProducts(repository.TabBestseller, 0, "")
	require.NoError(t, err)
	assert.Empty(t, bestsellers)

	newest, err := f.service.FeaturedProducts(repository.TabNew, 1, "")
	require.NoError(t, err)
	require.Len(t, newest, 1)
	assert.Equal(t, f.p2.ID, newest[0].ID)

	inFrames, err := f.service.FeaturedProducts(repository.TabPopular, 0, "frames")
	require.NoError(t, err)
	require.Len(t, inFrames, 1)
	assert.Equal(t, f.p1.ID, inFrames[0].ID)
}
