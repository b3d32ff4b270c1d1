package repository

import (
	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VariantRepository interface {
	Create(variant *model.ProductVariant) error
	Update(variant *model.ProductVariant) error
	FindByID(id uint) (*model.ProductVariant, error)
	FindByProductID(productID uint) ([]model.ProductVariant, error)
	CountActiveByProduct(productID uint) (int64, error)
	FindAllForReport() ([]model.ProductVariant, error)
}

type variantRepository struct {
	db *gorm.DB
}

func NewVariantRepository(db *gorm.DB) VariantRepository {
	return &variantRepository{db: db}
}

// Create inserts the variant and its value links; the values themselves must exist
func (r *variantRepository) Create(variant *model.ProductVariant) error {
	logger.Debug("Creating product variant in database", map[string]interface{}{
		"product_id":   variant.ProductID,
		"sku":          variant.SKU,
		"values_count": len(variant.AttributeValues),
	})

	if err := r.db.Omit("Product", "AttributeValues.*").Create(variant).Error; err != nil {
		logger.Error("Failed to create product variant in database", err, map[string]interface{}{
			"product_id": variant.ProductID,
			"sku":        variant.SKU,
		})
		return err
	}

	logger.Debug("Product variant created in database", map[string]interface{}{
		"variant_id": variant.ID,
		"product_id": variant.ProductID,
	})
	return nil
}

func (r *variantRepository) Update(variant *model.ProductVariant) error {
	logger.Debug("Updating product variant in database", map[string]interface{}{
		"variant_id": variant.ID,
		"stock":      variant.Stock,
		"is_active":  variant.IsActive,
	})

	if err := r.db.Omit(clause.Associations).Save(variant).Error; err != nil {
		logger.Error("Failed to update product variant in database", err, map[string]interface{}{
			"variant_id": variant.ID,
		})
		return err
	}
	return nil
}

func (r *variantRepository) FindByID(id uint) (*model.ProductVariant, error) {
	var variant model.ProductVariant
	if err := r.db.Preload("AttributeValues.Attribute").
		First(&variant, id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *variantRepository) FindByProductID(productID uint) ([]model.ProductVariant, error) {
	var variants []model.ProductVariant
	if err := r.db.Preload("AttributeValues").
		Where("product_id = ?", productID).
		Order("id ASC").
		Find(&variants).Error; err != nil {
		logger.Error("Failed to find variants by product ID", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}
	return variants, nil
}

func (r *variantRepository) CountActiveByProduct(productID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&model.ProductVariant{}).
		Where("product_id = ? AND is_active = ?", productID, true).
		Count(&count).Error; err != nil {
		logger.Error("Failed to count active variants", err, map[string]interface{}{
			"product_id": productID,
		})
		return 0, err
	}
	return count, nil
}

func (r *variantRepository) FindAllForReport() ([]model.ProductVariant, error) {
	var variants []model.ProductVariant
	if err := r.db.Preload("Product").
		Preload("AttributeValues.Attribute").
		Order("product_id ASC, id ASC").
		Find(&variants).Error; err != nil {
		logger.Error("Failed to load variants for stock report", err)
		return nil, err
	}
	return variants, nil
}
