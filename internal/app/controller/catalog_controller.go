package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/opticplace/opticplace-backend/internal/app/repository"
	"github.com/opticplace/opticplace-backend/internal/app/service"
	apperrors "github.com/opticplace/opticplace-backend/internal/errors"
	"github.com/opticplace/opticplace-backend/internal/middleware"
	"github.com/shopspring/decimal"
)

const attributeQueryPrefix = "attr_"

// storefront names for the repository sort orders
var sortAliases = map[string]repository.ProductSort{
	"newest":     repository.SortNewest,
	"oldest":     repository.SortOldest,
	"price_asc":  repository.SortPriceAsc,
	"price_desc": repository.SortPriceDesc,
	"popular":    repository.SortPopular,
	"bestseller": repository.SortBestseller,
}

type CatalogController struct {
	catalogService service.CatalogService
	productService service.ProductService
}

func NewCatalogController(catalogService service.CatalogService, productService service.ProductService) *CatalogController {
	return &CatalogController{
		catalogService: catalogService,
		productService: productService,
	}
}

// parseCatalogFilter reads category, brand, q, min_price, max_price, is_sale and attr_<slug>=v1,v2
func parseCatalogFilter(c *gin.Context) (repository.CatalogFilter, bool) {
	filter := repository.CatalogFilter{
		CategorySlug: c.Query("category"),
		BrandSlug:    c.Query("brand"),
		Search:       c.Query("q"),
	}

	for _, bound := range []struct {
		param string
		dst   **decimal.Decimal
	}{
		{"min_price", &filter.MinPrice},
		{"max_price", &filter.MaxPrice},
	} {
		raw := c.Query(bound.param)
		if raw == "" {
			continue
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			apperrors.BadRequest(c, apperrors.CatalogInvalidFilter, bound.param+" must be a number")
			return filter, false
		}
		*bound.dst = &value
	}

	if raw := c.Query("is_sale"); raw != "" {
		sale, err := strconv.ParseBool(raw)
		if err != nil {
			apperrors.BadRequest(c, apperrors.CatalogInvalidFilter, "is_sale must be true or false")
			return filter, false
		}
		filter.IsSale = &sale
	}

	for key, values := range c.Request.URL.Query() {
		if !strings.HasPrefix(key, attributeQueryPrefix) {
			continue
		}
		slug := strings.TrimPrefix(key, attributeQueryPrefix)
		if slug == "" {
			continue
		}
		for _, v := range values {
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					if filter.Attributes == nil {
						filter.Attributes = make(map[string][]string)
					}
					filter.Attributes[slug] = append(filter.Attributes[slug], part)
				}
			}
		}
	}

	return filter, true
}

// GetFilters returns the facets, category tree, brands and price range for a filter
// GET /api/v1/catalog/filters
func (ctrl *CatalogController) GetFilters(c *gin.Context) {
	filter, ok := parseCatalogFilter(c)
	if !ok {
		return
	}

	result, err := ctrl.catalogService.QueryCatalog(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err, "query catalog")
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListProducts
// GET /api/v1/catalog/products
func (ctrl *CatalogController) ListProducts(c *gin.Context) {
	filter, ok := parseCatalogFilter(c)
	if !ok {
		return
	}

	sortBy := repository.ProductSort(c.Query("sort"))
	if alias, found := sortAliases[string(sortBy)]; found {
		sortBy = alias
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(service.DefaultPageSize)))

	result, err := ctrl.catalogService.ListProducts(service.ListProductsInput{
		Filter:   filter,
		Sort:     sortBy,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondServiceError(c, err, "list products")
		return
	}

	middleware.GetLoggerFromContext(c).Debug("Products listed", map[string]interface{}{
		"total": result.Total,
		"page":  result.Page,
	})
	c.JSON(http.StatusOK, result)
}

// GetFeatured returns a storefront shelf: tab=popular|bestseller|new, limit, category
// GET /api/v1/catalog/featured
func (ctrl *CatalogController) GetFeatured(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultFeaturedLimit)))
	if err != nil {
		apperrors.BadRequest(c, apperrors.CatalogInvalidFilter, "limit must be a number")
		return
	}

	products, err := ctrl.catalogService.FeaturedProducts(
		repository.FeaturedTab(c.DefaultQuery("tab", string(repository.TabPopular))),
		limit,
		c.Query("category"),
	)
	if err != nil {
		respondServiceError(c, err, "list featured products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// GetProduct
// GET /api/v1/catalog/products/:slug
func (ctrl *CatalogController) GetProduct(c *gin.Context) {
	product, err := ctrl.productService.GetProductBySlug(c.Param("slug"))
	if err != nil {
		respondServiceError(c, err, "get product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}
