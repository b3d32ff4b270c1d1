package repository

import (
	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/pkg/logger"
	"gorm.io/gorm"
)

type CategoryRepository interface {
	Create(category *model.Category) error
	FindByID(id uint) (*model.Category, error)
	FindBySlug(slug string) (*model.Category, error)
	FindActive() ([]model.Category, error)
	FilterAttributes(categoryID uint) ([]model.Attribute, error)
	ActiveProductCounts() (map[uint]int64, error)
	CountProducts(categoryID uint) (int64, error)
	UpdateParent(id uint, parentID *uint) error
	Delete(id uint) error
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(category *model.Category) error {
	logger.Debug("Creating category in database", map[string]interface{}{
		"slug":      category.Slug,
		"parent_id": category.ParentID,
	})

	if err := r.db.Create(category).Error; err != nil {
		logger.Error("Failed to create category in database", err, map[string]interface{}{
			"slug": category.Slug,
		})
		return err
	}
	return nil
}

func (r *categoryRepository) FindByID(id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) FindBySlug(slug string) (*model.Category, error) {
	var category model.Category
	if err := r.db.Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// FindActive returns active categories flat, ordered for tree assembly
func (r *categoryRepository) FindActive() ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.Where("is_active = ?", true).
		Order("sort ASC, name ASC").
		Find(&categories).Error; err != nil {
		logger.Error("Failed to find active categories", err)
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) FilterAttributes(categoryID uint) ([]model.Attribute, error) {
	var attrs []model.Attribute
	if err := r.db.Model(&model.Attribute{}).
		Joins("JOIN category_filter_attributes cfa ON cfa.attribute_id = attributes.id").
		Where("cfa.category_id = ?", categoryID).
		Order("attributes.sort ASC, attributes.name ASC").
		Find(&attrs).Error; err != nil {
		logger.Error("Failed to find category filter attributes", err, map[string]interface{}{
			"category_id": categoryID,
		})
		return nil, err
	}
	return attrs, nil
}

// ActiveProductCounts counts each category's own active products in one query
func (r *categoryRepository) ActiveProductCounts() (map[uint]int64, error) {
	var rows []struct {
		CategoryID uint
		Count      int64
	}
	if err := r.db.Model(&model.Product{}).
		Select("category_id, COUNT(*) AS count").
		Where("is_active = ?", true).
		Group("category_id").
		Scan(&rows).Error; err != nil {
		logger.Error("Failed to count products per category", err)
		return nil, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.CategoryID] = row.Count
	}
	return counts, nil
}

func (r *categoryRepository) CountProducts(categoryID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Product{}).Where("category_id = ?", categoryID).Count(&count).Error
	return count, err
}

func (r *categoryRepository) UpdateParent(id uint, parentID *uint) error {
	logger.Debug("Updating category parent in database", map[string]interface{}{
		"category_id": id,
		"parent_id":   parentID,
	})
	return r.db.Model(&model.Category{}).Where("id = ?", id).Update("parent_id", parentID).Error
}

func (r *categoryRepository) Delete(id uint) error {
	logger.Debug("Deleting category from database", map[string]interface{}{
		"category_id": id,
	})

	if err := r.db.Select("FilterAttributes", "MenuAttributes").Delete(&model.Category{ID: id}).Error; err != nil {
		logger.Error("Failed to delete category from database", err, map[string]interface{}{
			"category_id": id,
		})
		return err
	}
	return nil
}
