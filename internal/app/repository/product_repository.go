package repository

import (
	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Create(product *model.Product) error
	Update(product *model.Product) error
	FindByID(id uint) (*model.Product, error)
	FindBySlug(slug string) (*model.Product, error)
	FindDetailBySlug(slug string) (*model.Product, error)
	ReplaceVariationAttributes(product *model.Product, attrs []model.Attribute) error
	VariationAttributes(productID uint) ([]model.Attribute, error)
	OfferingCardAttributes(productID uint) ([]model.Attribute, error)
	OfferedValues(productID uint) ([]model.ProductAttributeValue, error)
	ReplaceOfferedValues(productID uint, offered []model.ProductAttributeValue) error
	DeleteOfferedValue(productID, attributeValueID uint) (int64, error)
	IncrementViewCount(id uint) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"slug":        product.Slug,
		"category_id": product.CategoryID,
		"brand_id":    product.BrandID,
	})

	if err := r.db.Omit(clause.Associations).Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"slug":        product.Slug,
			"category_id": product.CategoryID,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"slug":       product.Slug,
	})
	return nil
}

func (r *productRepository) Update(product *model.Product) error {
	logger.Debug("Updating product in database", map[string]interface{}{
		"product_id": product.ID,
	})

	if err := r.db.Omit(clause.Associations).Save(product).Error; err != nil {
		logger.Error("Failed to update product in database", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}
	return nil
}

func (r *productRepository) FindByID(id uint) (*model.Product, error) {
	var product model.Product
	if err := r.db.Preload("Category").
		Preload("Brand").
		First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindBySlug(slug string) (*model.Product, error) {
	var product model.Product
	if err := r.db.Where("slug = ?", slug).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindDetailBySlug loads an active product with everything a product card shows
func (r *productRepository) FindDetailBySlug(slug string) (*model.Product, error) {
	logger.Debug("Finding product detail by slug", map[string]interface{}{
		"slug": slug,
	})

	var product model.Product
	err := r.db.Preload("Category").
		Preload("Brand").
		Preload("VariationAttributes", func(db *gorm.DB) *gorm.DB {
			return db.Order("attributes.sort ASC, attributes.name ASC")
		}).
		Preload("SpecAttributes", func(db *gorm.DB) *gorm.DB {
			return db.Order("attributes.sort ASC, attributes.name ASC")
		}).
		Preload("OfferedValues.Attribute").
		Preload("OfferedValues.AttributeValue").
		Preload("Variants", "is_active = ?", true).
		Preload("Variants.AttributeValues.Attribute").
		Where("slug = ? AND is_active = ?", slug, true).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) ReplaceVariationAttributes(product *model.Product, attrs []model.Attribute) error {
	if err := r.db.Model(product).Association("VariationAttributes").Replace(attrs); err != nil {
		logger.Error("Failed to replace variation attributes", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}
	return nil
}

func (r *productRepository) VariationAttributes(productID uint) ([]model.Attribute, error) {
	var attrs []model.Attribute
	if err := r.db.Model(&model.Attribute{}).
		Joins("JOIN product_variation_attributes pva ON pva.attribute_id = attributes.id").
		Where("pva.product_id = ?", productID).
		Order("attributes.sort ASC, attributes.name ASC").
		Find(&attrs).Error; err != nil {
		logger.Error("Failed to find variation attributes", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}
	return attrs, nil
}

// OfferingCardAttributes returns show_in_product_card attributes with at least one offered value
func (r *productRepository) OfferingCardAttributes(productID uint) ([]model.Attribute, error) {
	var attrs []model.Attribute
	offered := r.db.Model(&model.ProductAttributeValue{}).
		Select("attribute_id").
		Where("product_id = ?", productID)

	if err := r.db.Where("show_in_product_card = ? AND id IN (?)", true, offered).
		Order("sort ASC, name ASC").
		Find(&attrs).Error; err != nil {
		logger.Error("Failed to find product card attributes", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}
	return attrs, nil
}

// OfferedValues returns offered values ordered the way variants are generated
func (r *productRepository) OfferedValues(productID uint) ([]model.ProductAttributeValue, error) {
	var offered []model.ProductAttributeValue
	if err := r.db.Preload("AttributeValue").
		Joins("JOIN attribute_values av ON av.id = product_attribute_values.attribute_value_id").
		Where("product_attribute_values.product_id = ?", productID).
		Order("av.sort ASC, av.value ASC").
		Find(&offered).Error; err != nil {
		logger.Error("Failed to find offered values", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}
	return offered, nil
}

func (r *productRepository) ReplaceOfferedValues(productID uint, offered []model.ProductAttributeValue) error {
	logger.Debug("Replacing offered values", map[string]interface{}{
		"product_id": productID,
		"count":      len(offered),
	})

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&model.ProductAttributeValue{}).Error; err != nil {
			return err
		}
		if len(offered) == 0 {
			return nil
		}
		for i := range offered {
			offered[i].ProductID = productID
		}
		return tx.Omit(clause.Associations).Create(&offered).Error
	})
}

func (r *productRepository) DeleteOfferedValue(productID, attributeValueID uint) (int64, error) {
	result := r.db.Where("product_id = ? AND attribute_value_id = ?", productID, attributeValueID).
		Delete(&model.ProductAttributeValue{})
	if result.Error != nil {
		logger.Error("Failed to delete offered value", result.Error, map[string]interface{}{
			"product_id":         productID,
			"attribute_value_id": attributeValueID,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *productRepository) IncrementViewCount(id uint) error {
	return r.db.Model(&model.Product{}).
		Where("id = ?", id).
		UpdateColumn("views_count", gorm.Expr("views_count + ?", 1)).Error
}
