package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/internal/app/repository"
	"github.com/opticplace/opticplace-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrValueNotOffered = fmt.Errorf("%w: value is not offered for this product", ErrNotFound)

// UpsertProductInput is the shape catalog feeds and admin tooling send.
// OfferedValues maps an attribute slug to value slugs; unknown ones are created.
type UpsertProductInput struct {
	Slug                string
	Name                string
	Description         string
	CategorySlug        string
	BrandSlug           string
	BrandName           string
	Price               decimal.Decimal
	OldPrice            *decimal.Decimal
	IsActive            bool
	Flags               model.MerchandisingFlags
	VariationAttributes []string
	OfferedValues       map[string][]string
}

type ProductDetail struct {
	*model.Product
	PriceRange repository.PriceRange `json:"price_range"`
}

type ProductService interface {
	UpsertProduct(input UpsertProductInput) (*model.Product, error)
	RemoveOfferedValue(productID, attributeValueID uint) error
	GetProductBySlug(slug string) (*ProductDetail, error)
}

type productService struct {
	db          *gorm.DB
	productRepo repository.ProductRepository
	cache       CatalogCache
}

func NewProductService(db *gorm.DB, productRepo repository.ProductRepository, cache CatalogCache) ProductService {
	return &productService{
		db:          db,
		productRepo: productRepo,
		cache:       cache,
	}
}

// UpsertProduct creates or updates a product by slug in one transaction, replacing its
// variation attributes and offered values with the given sets. Variants are left untouched.
func (s *productService) UpsertProduct(input UpsertProductInput) (*model.Product, error) {
	input.Slug = strings.ToLower(strings.TrimSpace(input.Slug))
	input.Name = strings.TrimSpace(input.Name)

	logger.Info("Upserting product", map[string]interface{}{
		"slug":     input.Slug,
		"category": input.CategorySlug,
	})

	if input.Slug == "" || input.Name == "" {
		return nil, fmt.Errorf("%w: product slug and name are required", ErrValidation)
	}
	if input.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if input.OldPrice != nil && input.OldPrice.LessThan(input.Price) {
		return nil, ErrInvalidPrice
	}

	var productID uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		productRepo := repository.NewProductRepository(tx)
		categoryRepo := repository.NewCategoryRepository(tx)
		brandRepo := repository.NewBrandRepository(tx)
		attributeRepo := repository.NewAttributeRepository(tx)

		category, err := categoryRepo.FindBySlug(strings.TrimSpace(input.CategorySlug))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCategoryNotFound
			}
			return err
		}

		var brandID *uint
		if slug := strings.TrimSpace(input.BrandSlug); slug != "" {
			name := strings.TrimSpace(input.BrandName)
			if name == "" {
				name = slug
			}
			brand, err := brandRepo.FindOrCreate(slug, name)
			if err != nil {
				return err
			}
			brandID = &brand.ID
		}

		product, err := productRepo.FindBySlug(input.Slug)
		isNew := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !isNew {
			return err
		}
		if isNew {
			product = &model.Product{Slug: input.Slug}
		}

		product.Name = input.Name
		product.Description = input.Description
		product.CategoryID = category.ID
		product.BrandID = brandID
		product.Price = input.Price
		product.OldPrice = decimal.NullDecimal{}
		if input.OldPrice != nil {
			product.OldPrice = decimal.NewNullDecimal(*input.OldPrice)
		}
		product.IsActive = input.IsActive
		product.MerchandisingFlags = input.Flags

		if isNew {
			err = productRepo.Create(product)
		} else {
			err = productRepo.Update(product)
		}
		if err != nil {
			return err
		}
		productID = product.ID

		variation := make([]model.Attribute, 0, len(input.VariationAttributes))
		for _, slug := range input.VariationAttributes {
			slug = strings.TrimSpace(slug)
			if slug == "" {
				continue
			}
			attr, err := attributeRepo.FindOrCreate(slug, slug)
			if err != nil {
				return err
			}
			variation = append(variation, *attr)
		}
		if err := productRepo.ReplaceVariationAttributes(product, variation); err != nil {
			return err
		}

		attrSlugs := make([]string, 0, len(input.OfferedValues))
		for slug := range input.OfferedValues {
			attrSlugs = append(attrSlugs, slug)
		}
		sort.Strings(attrSlugs)

		var offered []model.ProductAttributeValue
		seen := make(map[uint]bool)
		for _, attrSlug := range attrSlugs {
			slug := strings.TrimSpace(attrSlug)
			if slug == "" {
				continue
			}
			attr, err := attributeRepo.FindOrCreate(slug, slug)
			if err != nil {
				return err
			}
			for _, valueSlug := range input.OfferedValues[attrSlug] {
				valueSlug = strings.TrimSpace(valueSlug)
				if valueSlug == "" {
					continue
				}
				value, err := attributeRepo.FindOrCreateValue(attr.ID, valueSlug, valueSlug)
				if err != nil {
					return err
				}
				if seen[value.ID] {
					continue
				}
				seen[value.ID] = true
				offered = append(offered, model.ProductAttributeValue{
					AttributeID:      attr.ID,
					AttributeValueID: value.ID,
				})
			}
		}
		return productRepo.ReplaceOfferedValues(product.ID, offered)
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Error("Failed to upsert product", err, map[string]interface{}{
				"slug": input.Slug,
			})
		}
		return nil, err
	}

	invalidateCatalog(s.cache)

	logger.Info("Product upserted", map[string]interface{}{
		"product_id": productID,
		"slug":       input.Slug,
	})
	return s.productRepo.FindByID(productID)
}

// RemoveOfferedValue withdraws an offered value; existing variants carrying it stay
func (s *productService) RemoveOfferedValue(productID, attributeValueID uint) error {
	rows, err := s.productRepo.DeleteOfferedValue(productID, attributeValueID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrValueNotOffered
	}

	invalidateCatalog(s.cache)

	logger.Info("Offered value removed", map[string]interface{}{
		"product_id":         productID,
		"attribute_value_id": attributeValueID,
	})
	return nil
}

func (s *productService) GetProductBySlug(slug string) (*ProductDetail, error) {
	product, err := s.productRepo.FindDetailBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if err := s.productRepo.IncrementViewCount(product.ID); err != nil {
		logger.Warn("Failed to increment product view count", map[string]interface{}{
			"product_id": product.ID,
			"error":      err.Error(),
		})
	}

	return &ProductDetail{
		Product:    product,
		PriceRange: VariantPriceRange(product),
	}, nil
}

// VariantPriceRange spans the effective prices of active in-stock variants,
// or just the product price when there are none
func VariantPriceRange(product *model.Product) repository.PriceRange {
	var priceRange repository.PriceRange
	found := false
	for i := range product.Variants {
		v := &product.Variants[i]
		if !v.IsActive || v.Stock <= 0 {
			continue
		}
		price := v.EffectivePrice(product.Price)
		if !found || price.LessThan(priceRange.Min) {
			priceRange.Min = price
		}
		if !found || price.GreaterThan(priceRange.Max) {
			priceRange.Max = price
		}
		found = true
	}
	if !found {
		return repository.PriceRange{Min: product.Price, Max: product.Price}
	}
	return priceRange
}
