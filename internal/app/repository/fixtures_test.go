package repository

import (
	"testing"

	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

// createAttribute creates an attribute with values named after their slugs, in sort order
func createAttribute(t *testing.T, testDB *gorm.DB, slug string, filterable bool, values ...string) (model.Attribute, map[string]model.AttributeValue) {
	attr := model.Attribute{
		Name:              slug,
		Slug:              slug,
		IsFilterable:      filterable,
		ShowInProductCard: true,
	}
	require.NoError(t, testDB.Create(&attr).Error)

	created := make(map[string]model.AttributeValue, len(values))
	for i, v := range values {
		av := model.AttributeValue{
			AttributeID: attr.ID,
			Value:       v,
			Slug:        v,
			Sort:        i,
		}
		require.NoError(t, testDB.Create(&av).Error)
		created[v] = av
	}
	return attr, created
}

func createCategory(t *testing.T, testDB *gorm.DB, slug string, parentID *uint) model.Category {
	category := model.Category{
		Name:     slug,
		Slug:     slug,
		ParentID: parentID,
		IsActive: true,
	}
	require.NoError(t, testDB.Create(&category).Error)
	return category
}

func createBrand(t *testing.T, testDB *gorm.DB, slug string) model.Brand {
	brand := model.Brand{Name: slug, Slug: slug}
	require.NoError(t, testDB.Create(&brand).Error)
	return brand
}

func createProduct(t *testing.T, testDB *gorm.DB, slug string, categoryID uint, brandID *uint, price string) model.Product {
	product := model.Product{
		Name:       slug,
		Slug:       slug,
		CategoryID: categoryID,
		BrandID:    brandID,
		Price:      decimal.RequireFromString(price),
		IsActive:   true,
	}
	require.NoError(t, testDB.Omit("Category", "Brand").Create(&product).Error)
	return product
}

func offerValues(t *testing.T, testDB *gorm.DB, productID uint, values ...model.AttributeValue) {
	for _, av := range values {
		pav := model.ProductAttributeValue{
			ProductID:        productID,
			AttributeID:      av.AttributeID,
			AttributeValueID: av.ID,
		}
		require.NoError(t, testDB.Omit("Attribute", "AttributeValue").Create(&pav).Error)
	}
}

func createVariant(t *testing.T, testDB *gorm.DB, productID uint, stock int, active bool, values ...model.AttributeValue) model.ProductVariant {
	variant := model.ProductVariant{
		ProductID:       productID,
		Stock:           stock,
		IsActive:        active,
		AttributeValues: values,
	}
	require.NoError(t, testDB.Omit("Product", "AttributeValues.*").Create(&variant).Error)
	return variant
}
