package repository

import (
	"errors"

	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/pkg/logger"
	"gorm.io/gorm"
)

type AttributeRepository interface {
	FindBySlug(slug string) (*model.Attribute, error)
	FindBySlugs(slugs []string) ([]model.Attribute, error)
	FindByIDs(ids []uint) ([]model.Attribute, error)
	FindFilterable() ([]model.Attribute, error)
	FindValuesByIDs(ids []uint) ([]model.AttributeValue, error)
	FindOrCreate(slug, name string) (*model.Attribute, error)
	FindOrCreateValue(attributeID uint, slug, value string) (*model.AttributeValue, error)
}

type attributeRepository struct {
	db *gorm.DB
}

func NewAttributeRepository(db *gorm.DB) AttributeRepository {
	return &attributeRepository{db: db}
}

func (r *attributeRepository) FindBySlug(slug string) (*model.Attribute, error) {
	var attr model.Attribute
	if err := r.db.Where("slug = ?", slug).First(&attr).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find attribute by slug", err, map[string]interface{}{
				"slug": slug,
			})
		}
		return nil, err
	}
	return &attr, nil
}

func (r *attributeRepository) FindBySlugs(slugs []string) ([]model.Attribute, error) {
	var attrs []model.Attribute
	if len(slugs) == 0 {
		return attrs, nil
	}
	if err := r.db.Where("slug IN ?", slugs).
		Order("sort ASC, name ASC").
		Find(&attrs).Error; err != nil {
		logger.Error("Failed to find attributes by slugs", err, map[string]interface{}{
			"slugs": slugs,
		})
		return nil, err
	}
	return attrs, nil
}

func (r *attributeRepository) FindByIDs(ids []uint) ([]model.Attribute, error) {
	var attrs []model.Attribute
	if len(ids) == 0 {
		return attrs, nil
	}
	if err := r.db.Where("id IN ?", ids).
		Order("sort ASC, name ASC").
		Find(&attrs).Error; err != nil {
		logger.Error("Failed to find attributes by IDs", err, map[string]interface{}{
			"attribute_ids": ids,
		})
		return nil, err
	}
	return attrs, nil
}

func (r *attributeRepository) FindFilterable() ([]model.Attribute, error) {
	var attrs []model.Attribute
	if err := r.db.Where("is_filterable = ?", true).
		Order("sort ASC, name ASC").
		Find(&attrs).Error; err != nil {
		logger.Error("Failed to find filterable attributes", err)
		return nil, err
	}
	return attrs, nil
}

func (r *attributeRepository) FindValuesByIDs(ids []uint) ([]model.AttributeValue, error) {
	var values []model.AttributeValue
	if len(ids) == 0 {
		return values, nil
	}
	if err := r.db.Preload("Attribute").
		Where("id IN ?", ids).
		Find(&values).Error; err != nil {
		logger.Error("Failed to find attribute values by IDs", err, map[string]interface{}{
			"value_ids": ids,
		})
		return nil, err
	}
	return values, nil
}

func (r *attributeRepository) FindOrCreate(slug, name string) (*model.Attribute, error) {
	attr := model.Attribute{Slug: slug}
	if err := r.db.Where(model.Attribute{Slug: slug}).
		Attrs(model.Attribute{Name: name}).
		FirstOrCreate(&attr).Error; err != nil {
		logger.Error("Failed to find or create attribute", err, map[string]interface{}{
			"slug": slug,
		})
		return nil, err
	}
	return &attr, nil
}

func (r *attributeRepository) FindOrCreateValue(attributeID uint, slug, value string) (*model.AttributeValue, error) {
	var av model.AttributeValue
	if err := r.db.Where(model.AttributeValue{AttributeID: attributeID, Slug: slug}).
		Attrs(model.AttributeValue{Value: value}).
		FirstOrCreate(&av).Error; err != nil {
		logger.Error("Failed to find or create attribute value", err, map[string]interface{}{
			"attribute_id": attributeID,
			"slug":         slug,
		})
		return nil, err
	}
	return &av, nil
}
