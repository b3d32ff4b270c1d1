package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
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

// memoryCache mirrors the versioned Redis cache: Invalidate bumps the version
// and entries are keyed by version and fingerprint
type memoryCache struct {
	mu            sync.Mutex
	version       int64
	entries       map[string][]byte
	invalidations int
	beforeSet     func()
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, fingerprint string) ([]byte, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.entries[fmt.Sprintf("%d|%s", c.version, fingerprint)]
	return payload, c.version, ok
}

func (c *memoryCache) Set(_ context.Context, version int64, fingerprint string, payload []byte) {
	if c.beforeSet != nil {
		c.beforeSet()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fmt.Sprintf("%d|%s", version, fingerprint)] = payload
}

func (c *memoryCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	c.invalidations++
}

func (c *memoryCache) Invalidations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidations
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.OrderEvent
	err    error
}

func (n *recordingNotifier) NotifyOrderEvent(event model.OrderEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) Events() []model.OrderEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.OrderEvent(nil), n.events...)
}

var errNotifierDown = errors.New("notifier unavailable")

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

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

func createProduct(t *testing.T, testDB *gorm.DB, slug string, categoryID uint, price string) model.Product {
	product := model.Product{
		Name:       slug,
		Slug:       slug,
		CategoryID: categoryID,
		Price:      dec(price),
		IsActive:   true,
	}
	require.NoError(t, testDB.Omit("Category", "Brand").Create(&product).Error)
	return product
}

func setVariationAttributes(t *testing.T, testDB *gorm.DB, product *model.Product, attrs ...model.Attribute) {
	require.NoError(t, testDB.Model(product).Association("VariationAttributes").Replace(attrs))
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

func createVariant(t *testing.T, testDB *gorm.DB, productID uint, stock int, values ...model.AttributeValue) model.ProductVariant {
	variant := model.ProductVariant{
		ProductID:       productID,
		SKU:             BuildSKU("sku", values),
		Stock:           stock,
		IsActive:        true,
		AttributeValues: values,
	}
	require.NoError(t, testDB.Omit("Product", "AttributeValues.*").Create(&variant).Error)
	return variant
}

func variantStock(t *testing.T, testDB *gorm.DB, variantID uint) int {
	var variant model.ProductVariant
	require.NoError(t, testDB.First(&variant, variantID).Error)
	return variant.Stock
}

func countRows(t *testing.T, testDB *gorm.DB, table interface{}) int64 {
	var count int64
	require.NoError(t, testDB.Model(table).Count(&count).Error)
	return count
}
