package service

import (
	"errors"

	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/internal/app/repository"
	"github.com/opticplace/opticplace-backend/pkg/logger"
	"gorm.io/gorm"
)

type CategoryService interface {
	DeleteCategory(id uint) error
	UpdateCategoryParent(id uint, parentID *uint) error
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
	cache        CatalogCache
}

func NewCategoryService(categoryRepo repository.CategoryRepository, cache CatalogCache) CategoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
		cache:        cache,
	}
}

// DeleteCategory refuses while any product, active or not, still references the category
func (s *categoryService) DeleteCategory(id uint) error {
	if _, err := s.findCategory(id); err != nil {
		return err
	}

	count, err := s.categoryRepo.CountProducts(id)
	if err != nil {
		return err
	}
	if count > 0 {
		logger.Warn("Category deletion blocked by products", map[string]interface{}{
			"category_id": id,
			"products":    count,
		})
		return ErrCategoryInUse
	}

	if err := s.categoryRepo.Delete(id); err != nil {
		return err
	}
	invalidateCatalog(s.cache)

	logger.Info("Category deleted", map[string]interface{}{
		"category_id": id,
	})
	return nil
}

// UpdateCategoryParent moves a category; nil makes it a root
func (s *categoryService) UpdateCategoryParent(id uint, parentID *uint) error {
	if _, err := s.findCategory(id); err != nil {
		return err
	}

	if parentID != nil {
		// walk up from the new parent; meeting id means id would become its own ancestor
		visited := make(map[uint]bool)
		current := parentID
		for current != nil {
			if *current == id {
				logger.Warn("Category parent change rejected: cycle", map[string]interface{}{
					"category_id": id,
					"parent_id":   *parentID,
				})
				return ErrCategoryCycle
			}
			if visited[*current] {
				return ErrCategoryCycle
			}
			visited[*current] = true

			ancestor, err := s.findCategory(*current)
			if err != nil {
				return err
			}
			current = ancestor.ParentID
		}
	}

	if err := s.categoryRepo.UpdateParent(id, parentID); err != nil {
		return err
	}
	invalidateCatalog(s.cache)

	logger.Info("Category parent updated", map[string]interface{}{
		"category_id": id,
		"parent_id":   parentID,
	})
	return nil
}

func (s *categoryService) findCategory(id uint) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}
