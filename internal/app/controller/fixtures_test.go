package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/internal/app/repository"
	"github.com/opticplace/opticplace-backend/internal/app/service"
	"github.com/opticplace/opticplace-backend/internal/db"
	apperrors "github.com/opticplace/opticplace-backend/internal/errors"
	"github.com/opticplace/opticplace-backend/internal/middleware"
	"github.com/opticplace/opticplace-backend/internal/websocket"
	"github.com/opticplace/opticplace-backend/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "controller-test-secret"

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	hub    *websocket.Hub
}

// newTestServer wires real services over an in-memory database
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := websocket.NewHub()
	go hub.Run(ctx)

	attributeRepo := repository.NewAttributeRepository(testDB)
	categoryRepo := repository.NewCategoryRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	variantRepo := repository.NewVariantRepository(testDB)

	rates := map[string]decimal.Decimal{
		"pickup":  decimal.Zero,
		"courier": decimal.NewFromInt(350),
	}

	catalogService := service.NewCatalogService(
		repository.NewCatalogRepository(testDB), categoryRepo, attributeRepo,
		service.FacetSettings{ShowCounts: true}, nil,
	)
	productService := service.NewProductService(testDB, productRepo, nil)
	variantService := service.NewVariantService(testDB, productRepo, variantRepo, attributeRepo, nil, 1000)
	categoryService := service.NewCategoryService(categoryRepo, nil)
	orderService := service.NewOrderService(
		testDB, repository.NewOrderRepository(testDB), repository.NewCouponRepository(testDB),
		rates, hub, nil,
	)
	reportService := service.NewReportService(variantRepo, nil)

	catalogController := NewCatalogController(catalogService, productService)
	productController := NewProductController(productService, variantService, categoryService)
	orderController := NewOrderController(orderService)
	reportController := NewReportController(reportService)
	streamController := NewOrderStreamController(hub, []string{"*"})

	auth := middleware.NewAuthMiddleware(testJWTSecret)
	router := gin.New()
	router.Use(middleware.LoggingMiddleware())

	api := router.Group("/api/v1")
	catalog := api.Group("/catalog")
	catalog.GET("/products", catalogController.ListProducts)
	catalog.GET("/products/:slug", catalogController.GetProduct)
	catalog.GET("/filters", catalogController.GetFilters)
	catalog.GET("/featured", catalogController.GetFeatured)

	orders := api.Group("/orders")
	orders.POST("/checkout", auth.OptionalAuthenticate(), orderController.Checkout)
	orders.POST("/coupon/validate", orderController.ValidateCoupon)
	orders.GET("/track/:number", orderController.TrackOrder)
	my := orders.Group("/my", auth.Authenticate())
	my.GET("", orderController.GetMyOrders)
	my.GET("/:id", orderController.GetMyOrder)
	my.POST("/:id/cancel", orderController.CancelMyOrder)

	admin := api.Group("/admin", auth.Authenticate(), auth.RequireRole(model.RoleAdmin))
	admin.POST("/products", productController.UpsertProduct)
	admin.POST("/products/:id/variants/generate", productController.GenerateVariants)
	admin.POST("/products/:id/variants", productController.CreateVariant)
	admin.DELETE("/products/:id/offered-values/:value_id", productController.RemoveOfferedValue)
	admin.PATCH("/variants/:id", productController.UpdateVariant)
	admin.DELETE("/categories/:id", productController.DeleteCategory)
	admin.PUT("/categories/:id/parent", productController.UpdateCategoryParent)
	admin.GET("/orders/stream", streamController.Stream)
	admin.GET("/orders/:id", orderController.GetOrder)
	admin.PUT("/orders/:id/status", orderController.UpdateOrderStatus)
	admin.POST("/orders/:id/cancel", orderController.CancelOrder)
	admin.GET("/reports/stock", reportController.ExportStock)

	return &testServer{router: router, db: testDB, hub: hub}
}

func token(t *testing.T, userID uint, role model.UserRole) string {
	t.Helper()
	signed, err := util.GenerateAccessToken(userID, "user@example.com", string(role), testJWTSecret, time.Hour)
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body apperrors.ErrorResponse
	decode(t, w, &body)
	return body.Error
}

// seedFrame creates a "frames" category and a product with red and blue variants through the admin API
func (s *testServer) seedFrame(t *testing.T, redStock, blueStock int) (productID uint, variants map[string]model.ProductVariant) {
	t.Helper()
	require.NoError(t, s.db.Create(&model.Category{Name: "Frames", Slug: "frames", IsActive: true}).Error)

	admin := token(t, 1, model.RoleAdmin)
	w := s.do(t, http.MethodPost, "/api/v1/admin/products", admin, map[string]interface{}{
		"slug":                 "aviator",
		"name":                 "Aviator",
		"category":             "frames",
		"brand":                "rayban",
		"price":                "1990.00",
		"variation_attributes": []string{"color"},
		"attributes":           map[string][]string{"color": {"red", "blue"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var upserted struct {
		Product model.Product `json:"product"`
	}
	decode(t, w, &upserted)
	productID = upserted.Product.ID

	w = s.do(t, http.MethodPost, "/api/v1/admin/products/"+itoa(productID)+"/variants/generate", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rows []model.ProductVariant
	require.NoError(t, s.db.Preload("AttributeValues").Where("product_id = ?", productID).Find(&rows).Error)
	require.Len(t, rows, 2)

	variants = make(map[string]model.ProductVariant)
	stock := map[string]int{"red": redStock, "blue": blueStock}
	for _, v := range rows {
		color := v.AttributeValues[0].Slug
		w = s.do(t, http.MethodPatch, "/api/v1/admin/variants/"+itoa(v.ID), admin, map[string]interface{}{
			"stock": stock[color],
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		v.Stock = stock[color]
		variants[color] = v
	}
	return productID, variants
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
