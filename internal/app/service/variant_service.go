package service

import (
	"errors"
	"strings"

	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/internal/app/repository"
	"github.com/opticplace/opticplace-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	skuProductSlugLen = 20
	skuValueSlugLen   = 10
	skuMaxLen         = 100
)

type CreateVariantInput struct {
	ProductID uint
	ValueIDs  []uint
	SKU       string
	Price     *decimal.Decimal
	OldPrice  *decimal.Decimal
	Stock     int
	IsActive  *bool
}

// UpdateVariantInput applies only the fields that are set. ClearPrice drops the
// override so the variant inherits the product price again.
type UpdateVariantInput struct {
	SKU        *string
	Price      *decimal.Decimal
	ClearPrice bool
	OldPrice   *decimal.Decimal
	Stock      *int
	IsActive   *bool
}

type VariantService interface {
	GenerateVariants(productID uint) (int, error)
	CreateVariant(input CreateVariantInput) (*model.ProductVariant, error)
	UpdateVariant(variantID uint, input UpdateVariantInput) (*model.ProductVariant, error)
}

type variantService struct {
	db              *gorm.DB
	productRepo     repository.ProductRepository
	variantRepo     repository.VariantRepository
	attributeRepo   repository.AttributeRepository
	cache           CatalogCache
	maxCombinations int
}

func NewVariantService(
	db *gorm.DB,
	productRepo repository.ProductRepository,
	variantRepo repository.VariantRepository,
	attributeRepo repository.AttributeRepository,
	cache CatalogCache,
	maxCombinations int,
) VariantService {
	return &variantService{
		db:              db,
		productRepo:     productRepo,
		variantRepo:     variantRepo,
		attributeRepo:   attributeRepo,
		cache:           cache,
		maxCombinations: maxCombinations,
	}
}

// GenerateVariants creates one variant per missing combination of offered values.
// Each variant is committed on its own; re-running after a failure is safe.
func (s *variantService) GenerateVariants(productID uint) (int, error) {
	logger.Info("Generating variants", map[string]interface{}{
		"product_id": productID,
	})

	product, err := s.findProduct(productID)
	if err != nil {
		return 0, err
	}

	attrs, err := s.participatingAttributes(productID)
	if err != nil {
		return 0, err
	}
	if len(attrs) == 0 {
		logger.Debug("No participating attributes, nothing to generate", map[string]interface{}{
			"product_id": productID,
		})
		return 0, nil
	}

	valuesByAttr, err := s.offeredValuesByAttribute(productID)
	if err != nil {
		return 0, err
	}

	lists := make([][]model.AttributeValue, 0, len(attrs))
	combinations := 1
	for _, attr := range attrs {
		values := valuesByAttr[attr.ID]
		if len(values) == 0 {
			logger.Debug("Participating attribute has no offered values, nothing to generate", map[string]interface{}{
				"product_id":   productID,
				"attribute_id": attr.ID,
			})
			return 0, nil
		}
		lists = append(lists, values)
		combinations *= len(values)
		if s.maxCombinations > 0 && combinations > s.maxCombinations {
			logger.Warn("Variant generation rejected: too many combinations", map[string]interface{}{
				"product_id": productID,
				"limit":      s.maxCombinations,
			})
			return 0, ErrTooManyCombinations
		}
	}

	existing, err := s.existingCombinations(productID)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, combo := range cartesian(lists) {
		key := model.CombinationKey(valueIDs(combo))
		if _, ok := existing[key]; ok {
			continue
		}

		variant := &model.ProductVariant{
			ProductID:       productID,
			SKU:             BuildSKU(product.Slug, combo),
			Stock:           0,
			IsActive:        true,
			AttributeValues: combo,
		}
		if err := s.variantRepo.Create(variant); err != nil {
			logger.Error("Variant generation stopped", err, map[string]interface{}{
				"product_id": productID,
				"created":    created,
			})
			if created > 0 {
				invalidateCatalog(s.cache)
			}
			return created, err
		}
		existing[key] = struct{}{}
		created++
	}

	if created > 0 {
		invalidateCatalog(s.cache)
	}

	logger.Info("Variants generated", map[string]interface{}{
		"product_id":   productID,
		"combinations": combinations,
		"created":      created,
	})
	return created, nil
}

func (s *variantService) CreateVariant(input CreateVariantInput) (*model.ProductVariant, error) {
	logger.Info("Creating variant", map[string]interface{}{
		"product_id": input.ProductID,
		"value_ids":  input.ValueIDs,
	})

	if input.Stock < 0 {
		return nil, ErrInvalidStock
	}

	product, err := s.findProduct(input.ProductID)
	if err != nil {
		return nil, err
	}

	ids := uniqueIDs(input.ValueIDs)
	values, err := s.attributeRepo.FindValuesByIDs(ids)
	if err != nil {
		return nil, err
	}
	if len(values) != len(ids) {
		logger.Warn("Variant references unknown attribute values", map[string]interface{}{
			"product_id": input.ProductID,
			"value_ids":  ids,
		})
		return nil, ErrInvalidValueSet
	}

	attrs, err := s.participatingAttributes(input.ProductID)
	if err != nil {
		return nil, err
	}
	if err := checkValueSet(attrs, values); err != nil {
		logger.Warn("Variant value set rejected", map[string]interface{}{
			"product_id": input.ProductID,
			"value_ids":  ids,
		})
		return nil, err
	}

	existing, err := s.existingCombinations(input.ProductID)
	if err != nil {
		return nil, err
	}
	if _, ok := existing[model.CombinationKey(ids)]; ok {
		logger.Warn("Duplicate variant combination", map[string]interface{}{
			"product_id": input.ProductID,
			"value_ids":  ids,
		})
		return nil, ErrDuplicateVariant
	}

	sortValues(attrs, values)
	variant := &model.ProductVariant{
		ProductID:       input.ProductID,
		SKU:             strings.TrimSpace(input.SKU),
		Stock:           input.Stock,
		IsActive:        true,
		AttributeValues: values,
	}
	if variant.SKU == "" {
		variant.SKU = BuildSKU(product.Slug, values)
	}
	if input.IsActive != nil {
		variant.IsActive = *input.IsActive
	}
	if input.Price != nil {
		variant.Price = decimal.NewNullDecimal(*input.Price)
	}
	if input.OldPrice != nil {
		variant.OldPrice = decimal.NewNullDecimal(*input.OldPrice)
	}
	if err := checkVariantPrices(variant, product.Price); err != nil {
		return nil, err
	}

	if err := s.variantRepo.Create(variant); err != nil {
		return nil, err
	}
	invalidateCatalog(s.cache)

	logger.Info("Variant created", map[string]interface{}{
		"product_id": input.ProductID,
		"variant_id": variant.ID,
		"sku":        variant.SKU,
	})
	return s.variantRepo.FindByID(variant.ID)
}

// UpdateVariant locks the row so an admin edit never overwrites a concurrent checkout decrement
func (s *variantService) UpdateVariant(variantID uint, input UpdateVariantInput) (*model.ProductVariant, error) {
	logger.Info("Updating variant", map[string]interface{}{
		"variant_id": variantID,
	})

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var variant model.ProductVariant
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Product").
			First(&variant, variantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVariantNotFound
			}
			return err
		}

		if input.SKU != nil {
			variant.SKU = strings.TrimSpace(*input.SKU)
		}
		if input.ClearPrice {
			variant.Price = decimal.NullDecimal{}
		} else if input.Price != nil {
			variant.Price = decimal.NewNullDecimal(*input.Price)
		}
		if input.OldPrice != nil {
			variant.OldPrice = decimal.NewNullDecimal(*input.OldPrice)
		}
		if input.Stock != nil {
			if *input.Stock < 0 {
				return ErrInvalidStock
			}
			variant.Stock = *input.Stock
		}
		if input.IsActive != nil {
			variant.IsActive = *input.IsActive
		}

		productPrice := decimal.Zero
		if variant.Product != nil {
			productPrice = variant.Product.Price
		}
		if err := checkVariantPrices(&variant, productPrice); err != nil {
			return err
		}

		return repository.NewVariantRepository(tx).Update(&variant)
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrValidation) {
			logger.Error("Failed to update variant", err, map[string]interface{}{
				"variant_id": variantID,
			})
		}
		return nil, err
	}

	invalidateCatalog(s.cache)
	return s.variantRepo.FindByID(variantID)
}

func (s *variantService) findProduct(productID uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

// participatingAttributes returns the configured variation attributes, falling back to
// product-card attributes that have at least one offered value on this product
func (s *variantService) participatingAttributes(productID uint) ([]model.Attribute, error) {
	attrs, err := s.productRepo.VariationAttributes(productID)
	if err != nil {
		return nil, err
	}
	if len(attrs) > 0 {
		return attrs, nil
	}
	return s.productRepo.OfferingCardAttributes(productID)
}

func (s *variantService) offeredValuesByAttribute(productID uint) (map[uint][]model.AttributeValue, error) {
	offered, err := s.productRepo.OfferedValues(productID)
	if err != nil {
		return nil, err
	}

	byAttr := make(map[uint][]model.AttributeValue)
	for _, pav := range offered {
		if pav.AttributeValue == nil {
			continue
		}
		byAttr[pav.AttributeID] = append(byAttr[pav.AttributeID], *pav.AttributeValue)
	}
	return byAttr, nil
}

func (s *variantService) existingCombinations(productID uint) (map[string]struct{}, error) {
	variants, err := s.variantRepo.FindByProductID(productID)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]struct{}, len(variants))
	for i := range variants {
		keys[model.CombinationKey(variants[i].ValueIDs())] = struct{}{}
	}
	return keys, nil
}

// checkValueSet requires exactly one value for every participating attribute and nothing else
func checkValueSet(attrs []model.Attribute, values []model.AttributeValue) error {
	if len(values) != len(attrs) {
		return ErrInvalidValueSet
	}

	allowed := make(map[uint]bool, len(attrs))
	for _, attr := range attrs {
		allowed[attr.ID] = true
	}
	seen := make(map[uint]bool, len(values))
	for _, v := range values {
		if !allowed[v.AttributeID] || seen[v.AttributeID] {
			return ErrInvalidValueSet
		}
		seen[v.AttributeID] = true
	}
	return nil
}

func checkVariantPrices(variant *model.ProductVariant, productPrice decimal.Decimal) error {
	effective := variant.EffectivePrice(productPrice)
	if effective.IsNegative() {
		return ErrInvalidPrice
	}
	if variant.OldPrice.Valid && variant.OldPrice.Decimal.LessThan(effective) {
		return ErrInvalidPrice
	}
	return nil
}

// sortValues orders values the same way their attributes are ordered, for SKU text
func sortValues(attrs []model.Attribute, values []model.AttributeValue) {
	position := make(map[uint]int, len(attrs))
	for i, attr := range attrs {
		position[attr.ID] = i
	}
	for i := 1; i < len(values); i++ {
		for j := i; j > 0 && position[values[j].AttributeID] < position[values[j-1].AttributeID]; j-- {
			values[j], values[j-1] = values[j-1], values[j]
		}
	}
}

// cartesian expands per-attribute value lists into every combination, first list varying slowest
func cartesian(lists [][]model.AttributeValue) [][]model.AttributeValue {
	result := [][]model.AttributeValue{{}}
	for _, list := range lists {
		next := make([][]model.AttributeValue, 0, len(result)*len(list))
		for _, prefix := range result {
			for _, v := range list {
				combo := make([]model.AttributeValue, len(prefix), len(prefix)+1)
				copy(combo, prefix)
				next = append(next, append(combo, v))
			}
		}
		result = next
	}
	return result
}

func valueIDs(values []model.AttributeValue) []uint {
	ids := make([]uint, len(values))
	for i, v := range values {
		ids[i] = v.ID
	}
	return ids
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	return unique
}

// BuildSKU joins a truncated product slug with truncated value slugs, upper-cased
func BuildSKU(productSlug string, values []model.AttributeValue) string {
	parts := make([]string, 0, len(values)+1)
	parts = append(parts, truncate(productSlug, skuProductSlugLen))
	for _, v := range values {
		parts = append(parts, truncate(v.Slug, skuValueSlugLen))
	}
	return truncate(strings.ToUpper(strings.Join(parts, "-")), skuMaxLen)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
