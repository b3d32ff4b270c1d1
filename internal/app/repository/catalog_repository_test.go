package repository

import (
	"testing"

	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type catalogFixture struct {
	repo     CatalogRepository
	color    model.Attribute
	size     model.Attribute
	products map[string]model.Product
}

// p1: in-stock red/S and black/M variants, out-of-stock blue/M
// p2: offered black only, no variants, on sale
// p3: inactive blue/S variant
// p4: inactive product offering red
func setupCatalogFixture(t *testing.T) (*gorm.DB, catalogFixture) {
	testDB := setupTestDB(t)

	frames := createCategory(t, testDB, "frames", nil)
	lenses := createCategory(t, testDB, "lenses", nil)
	ray := createBrand(t, testDB, "ray")
	oak := createBrand(t, testDB, "oak")

	color, colors := createAttribute(t, testDB, "color", true, "red", "blue", "black")
	size, sizes := createAttribute(t, testDB, "size", true, "s", "m")

	p1 := createProduct(t, testDB, "p1", frames.ID, &ray.ID, "100")
	p2 := createProduct(t, testDB, "p2", frames.ID, &oak.ID, "200")
	p3 := createProduct(t, testDB, "p3", lenses.ID, nil, "300")
	p4 := createProduct(t, testDB, "p4", frames.ID, &ray.ID, "50")
	require.NoError(t, testDB.Model(&model.Product{}).Where("id = ?", p4.ID).Update("is_active", false).Error)

	createVariant(t, testDB, p1.ID, 2, true, colors["red"], sizes["s"])
	createVariant(t, testDB, p1.ID, 0, true, colors["blue"], sizes["m"])
	v3 := createVariant(t, testDB, p1.ID, 1, true, colors["black"], sizes["m"])
	require.NoError(t, testDB.Model(&model.ProductVariant{}).Where("id = ?", v3.ID).
		Update("price", decimal.RequireFromString("120")).Error)

	offerValues(t, testDB, p2.ID, colors["black"])
	require.NoError(t, testDB.Model(&model.Product{}).Where("id = ?", p2.ID).Update("is_sale", true).Error)
	createVariant(t, testDB, p3.ID, 5, false, colors["blue"], sizes["s"])
	offerValues(t, testDB, p4.ID, colors["red"])

	return testDB, catalogFixture{
		repo:  NewCatalogRepository(testDB),
		color: color,
		size:  size,
		products: map[string]model.Product{
			"p1": p1,
			"p2": p2,
			"p3": p3,
			"p4": p4,
		},
	}
}

func (f catalogFixture) ids(names ...string) []uint {
	ids := make([]uint, 0, len(names))
	for _, name := range names {
		ids = append(ids, f.products[name].ID)
	}
	return ids
}

func slugsOf(rows []FacetValueRow) []string {
	slugs := make([]string, 0, len(rows))
	for _, row := range rows {
		slugs = append(slugs, row.Slug)
	}
	return slugs
}

func TestCatalogRepository_MatchingIDs(t *testing.T) {
	_, f := setupCatalogFixture(t)
	minPrice := decimal.RequireFromString("150")
	onSale, notOnSale := true, false

	tests := []struct {
		name   string
		filter CatalogFilter
		want   []string
	}{
		{
			name:   "no criteria matches active products",
			filter: CatalogFilter{},
			want:   []string{"p1", "p2", "p3"},
		},
		{
			name:   "in-stock variant value",
			filter: CatalogFilter{Attributes: map[string][]string{"color": {"red"}}},
			want:   []string{"p1"},
		},
		{
			name:   "out of stock and inactive variants do not match",
			filter: CatalogFilter{Attributes: map[string][]string{"color": {"blue"}}},
			want:   []string{},
		},
		{
			name:   "values within a group are OR'd and offered values match",
			filter: CatalogFilter{Attributes: map[string][]string{"color": {"red", "black"}}},
			want:   []string{"p1", "p2"},
		},
		{
			name: "groups are AND'd",
			filter: CatalogFilter{Attributes: map[string][]string{
				"color": {"black"},
				"size":  {"m"},
			}},
			want: []string{"p1"},
		},
		{
			name:   "category and brand",
			filter: CatalogFilter{CategorySlug: "frames", BrandSlug: "oak"},
			want:   []string{"p2"},
		},
		{
			name:   "case-insensitive search",
			filter: CatalogFilter{Search: "P2"},
			want:   []string{"p2"},
		},
		{
			name:   "search wildcards are literal",
			filter: CatalogFilter{Search: "p_"},
			want:   []string{},
		},
		{
			name:   "percent sign is literal",
			filter: CatalogFilter{Search: "%"},
			want:   []string{},
		},
		{
			name:   "on sale",
			filter: CatalogFilter{IsSale: &onSale},
			want:   []string{"p2"},
		},
		{
			name:   "not on sale",
			filter: CatalogFilter{IsSale: &notOnSale},
			want:   []string{"p1", "p3"},
		},
		{
			name:   "mixed-case slug does not match a lower-case one",
			filter: CatalogFilter{Attributes: map[string][]string{"color": {"Red"}}},
			want:   []string{},
		},
		{
			name:   "price floor",
			filter: CatalogFilter{MinPrice: &minPrice},
			want:   []string{"p2", "p3"},
		},
		{
			name:   "unknown category",
			filter: CatalogFilter{CategorySlug: "sunglasses"},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := f.repo.MatchingIDs(tt.filter)
			require.NoError(t, err)
			assert.ElementsMatch(t, f.ids(tt.want...), ids)
		})
	}
}

func TestCatalogRepository_FacetValues(t *testing.T) {
	_, f := setupCatalogFixture(t)
	attrIDs := []uint{f.color.ID, f.size.ID}

	variantRows, err := f.repo.VariantFacetValues(CatalogFilter{}, attrIDs)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"red", "black", "s", "m"}, slugsOf(variantRows))

	offeredRows, err := f.repo.OfferedFacetValues(CatalogFilter{}, attrIDs)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"black"}, slugsOf(offeredRows))

	narrowed, err := f.repo.VariantFacetValues(CatalogFilter{BrandSlug: "oak"}, attrIDs)
	require.NoError(t, err)
	assert.Empty(t, narrowed)

	none, err := f.repo.VariantFacetValues(CatalogFilter{}, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCatalogRepository_BrandsAndPriceRange(t *testing.T) {
	_, f := setupCatalogFixture(t)

	brands, err := f.repo.BrandsFor(CatalogFilter{})
	require.NoError(t, err)
	require.Len(t, brands, 2)
	assert.Equal(t, "oak", brands[0].Slug)
	assert.Equal(t, "ray", brands[1].Slug)

	brands, err = f.repo.BrandsFor(CatalogFilter{CategorySlug: "lenses"})
	require.NoError(t, err)
	assert.Empty(t, brands)

	priceRange, err := f.repo.PriceRangeFor(CatalogFilter{})
	require.NoError(t, err)
	assert.Equal(t, "100.00", priceRange.Min.StringFixed(2))
	assert.Equal(t, "300.00", priceRange.Max.StringFixed(2))

	priceRange, err = f.repo.PriceRangeFor(CatalogFilter{CategorySlug: "sunglasses"})
	require.NoError(t, err)
	assert.True(t, priceRange.Min.IsZero())
	assert.True(t, priceRange.Max.IsZero())
}

func TestCatalogRepository_ListMatching(t *testing.T) {
	_, f := setupCatalogFixture(t)

	products, total, err := f.repo.ListMatching(CatalogFilter{}, ListOptions{Sort: SortPriceDesc, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, products, 2)
	assert.Equal(t, "p3", products[0].Slug)
	assert.Equal(t, "p2", products[1].Slug)
	require.NotNil(t, products[1].Brand)
	assert.Equal(t, "oak", products[1].Brand.Slug)

	products, _, err = f.repo.ListMatching(CatalogFilter{}, ListOptions{Sort: SortPriceDesc, Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].Slug)
}

func TestCatalogRepository_VariantPriceRanges(t *testing.T) {
	_, f := setupCatalogFixture(t)

	ranges, err := f.repo.VariantPriceRanges(f.ids("p1", "p2", "p3"))
	require.NoError(t, err)

	require.Contains(t, ranges, f.products["p1"].ID)
	assert.Equal(t, "100.00", ranges[f.products["p1"].ID].Min.StringFixed(2))
	assert.Equal(t, "120.00", ranges[f.products["p1"].ID].Max.StringFixed(2))
	assert.NotContains(t, ranges, f.products["p2"].ID)
	assert.NotContains(t, ranges, f.products["p3"].ID)
}

func TestProductSort_Valid(t *testing.T) {
	assert.True(t, SortPriceAsc.Valid())
	assert.True(t, SortNewest.Valid())
	assert.False(t, ProductSort("name").Valid())
}
