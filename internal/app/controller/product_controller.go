package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/internal/app/service"
	"github.com/opticplace/opticplace-backend/internal/middleware"
	"github.com/shopspring/decimal"
)

// ProductController is the admin catalog surface used by feeds and back-office tooling
type ProductController struct {
	productService  service.ProductService
	variantService  service.VariantService
	categoryService service.CategoryService
}

func NewProductController(
	productService service.ProductService,
	variantService service.VariantService,
	categoryService service.CategoryService,
) *ProductController {
	return &ProductController{
		productService:  productService,
		variantService:  variantService,
		categoryService: categoryService,
	}
}

type UpsertProductRequest struct {
	Slug                string              `json:"slug" binding:"required"`
	Name                string              `json:"name" binding:"required"`
	Description         string              `json:"description"`
	CategorySlug        string              `json:"category" binding:"required"`
	BrandSlug           string              `json:"brand"`
	BrandName           string              `json:"brand_name"`
	Price               decimal.Decimal     `json:"price"`
	OldPrice            *decimal.Decimal    `json:"old_price"`
	IsActive            *bool               `json:"is_active"`
	VariationAttributes []string            `json:"variation_attributes"`
	OfferedValues       map[string][]string `json:"attributes"`

	model.MerchandisingFlags
}

type CreateVariantRequest struct {
	ValueIDs []uint           `json:"value_ids" binding:"required,min=1"`
	SKU      string           `json:"sku"`
	Price    *decimal.Decimal `json:"price"`
	OldPrice *decimal.Decimal `json:"old_price"`
	Stock    int              `json:"stock" binding:"min=0"`
	IsActive *bool            `json:"is_active"`
}

// UpdateVariantRequest is a partial update; clear_price drops the override so the product price applies
type UpdateVariantRequest struct {
	SKU        *string          `json:"sku"`
	Price      *decimal.Decimal `json:"price"`
	ClearPrice bool             `json:"clear_price"`
	OldPrice   *decimal.Decimal `json:"old_price"`
	Stock      *int             `json:"stock"`
	IsActive   *bool            `json:"is_active"`
}

type UpdateCategoryParentRequest struct {
	ParentID *uint `json:"parent_id"`
}

// UpsertProduct
// POST /api/v1/admin/products
func (ctrl *ProductController) UpsertProduct(c *gin.Context) {
	var req UpsertProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	product, err := ctrl.productService.UpsertProduct(service.UpsertProductInput{
		Slug:                req.Slug,
		Name:                req.Name,
		Description:         req.Description,
		CategorySlug:        req.CategorySlug,
		BrandSlug:           req.BrandSlug,
		BrandName:           req.BrandName,
		Price:               req.Price,
		OldPrice:            req.OldPrice,
		IsActive:            active,
		Flags:               req.MerchandisingFlags,
		VariationAttributes: req.VariationAttributes,
		OfferedValues:       req.OfferedValues,
	})
	if err != nil {
		respondServiceError(c, err, "upsert product")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Product upserted", map[string]interface{}{
		"product_id": product.ID,
		"slug":       product.Slug,
	})
	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// GenerateVariants creates every missing combination of the offered values
// POST /api/v1/admin/products/:id/variants/generate
func (ctrl *ProductController) GenerateVariants(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	created, err := ctrl.variantService.GenerateVariants(productID)
	if err != nil {
		respondServiceError(c, err, "generate variants")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Variants generated", map[string]interface{}{
		"product_id": productID,
		"created":    created,
	})
	c.JSON(http.StatusOK, gin.H{
		"created": created,
	})
}

// CreateVariant
// POST /api/v1/admin/products/:id/variants
func (ctrl *ProductController) CreateVariant(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req CreateVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	variant, err := ctrl.variantService.CreateVariant(service.CreateVariantInput{
		ProductID: productID,
		ValueIDs:  req.ValueIDs,
		SKU:       req.SKU,
		Price:     req.Price,
		OldPrice:  req.OldPrice,
		Stock:     req.Stock,
		IsActive:  req.IsActive,
	})
	if err != nil {
		respondServiceError(c, err, "create variant")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"variant": variant,
	})
}

// UpdateVariant
// PATCH /api/v1/admin/variants/:id
func (ctrl *ProductController) UpdateVariant(c *gin.Context) {
	variantID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	variant, err := ctrl.variantService.UpdateVariant(variantID, service.UpdateVariantInput{
		SKU:        req.SKU,
		Price:      req.Price,
		ClearPrice: req.ClearPrice,
		OldPrice:   req.OldPrice,
		Stock:      req.Stock,
		IsActive:   req.IsActive,
	})
	if err != nil {
		respondServiceError(c, err, "update variant")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"variant": variant,
	})
}

// RemoveOfferedValue withdraws a value from a product; existing variants are kept
// DELETE /api/v1/admin/products/:id/offered-values/:value_id
func (ctrl *ProductController) RemoveOfferedValue(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	valueID, ok := parseIDParam(c, "value_id")
	if !ok {
		return
	}

	if err := ctrl.productService.RemoveOfferedValue(productID, valueID); err != nil {
		respondServiceError(c, err, "remove offered value")
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteCategory
// DELETE /api/v1/admin/categories/:id
func (ctrl *ProductController) DeleteCategory(c *gin.Context) {
	categoryID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.categoryService.DeleteCategory(categoryID); err != nil {
		respondServiceError(c, err, "delete category")
		return
	}

	c.Status(http.StatusNoContent)
}

// UpdateCategoryParent moves a category; a null parent_id makes it a root
// PUT /api/v1/admin/categories/:id/parent
func (ctrl *ProductController) UpdateCategoryParent(c *gin.Context) {
	categoryID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateCategoryParentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := ctrl.categoryService.UpdateCategoryParent(categoryID, req.ParentID); err != nil {
		respondServiceError(c, err, "update category parent")
		return
	}

	c.Status(http.StatusNoContent)
}
