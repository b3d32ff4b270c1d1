package repository

import (
	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/pkg/logger"
	"gorm.io/gorm"
)

type BrandRepository interface {
	FindBySlug(slug string) (*model.Brand, error)
	FindOrCreate(slug, name string) (*model.Brand, error)
}

type brandRepository struct {
	db *gorm.DB
}

func NewBrandRepository(db *gorm.DB) BrandRepository {
	return &brandRepository{db: db}
}

func (r *brandRepository) FindBySlug(slug string) (*model.Brand, error) {
	var brand model.Brand
	if err := r.db.Where("slug = ?", slug).First(&brand).Error; err != nil {
		return nil, err
	}
	return &brand, nil
}

func (r *brandRepository) FindOrCreate(slug, name string) (*model.Brand, error) {
	brand := model.Brand{Slug: slug}
	if err := r.db.Where(model.Brand{Slug: slug}).
		Attrs(model.Brand{Name: name}).
		FirstOrCreate(&brand).Error; err != nil {
		logger.Error("Failed to find or create brand", err, map[string]interface{}{
			"slug": slug,
		})
		return nil, err
	}
	return &brand, nil
}
