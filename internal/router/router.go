package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/opticplace/opticplace-backend/config"
	"github.com/opticplace/opticplace-backend/internal/app/controller"
	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/internal/middleware"
)

type Router struct {
	catalogController     *controller.CatalogController
	productController     *controller.ProductController
	orderController       *controller.OrderController
	reportController      *controller.ReportController
	orderStreamController *controller.OrderStreamController
	authMiddleware        *middleware.AuthMiddleware
	config                *config.Config
}

func NewRouter(
	catalogController *controller.CatalogController,
	productController *controller.ProductController,
	orderController *controller.OrderController,
	reportController *controller.ReportController,
	orderStreamController *controller.OrderStreamController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		catalogController:     catalogController,
		productController:     productController,
		orderController:       orderController,
		reportController:      reportController,
		orderStreamController: orderStreamController,
		authMiddleware:        authMiddleware,
		config:                cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(cors.New(corsConfig(r.config.CORS.AllowedOrigins)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "OpticPlace API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		catalog := v1.Group("/catalog")
		{
			catalog.GET("/products", r.catalogController.ListProducts)
			catalog.GET("/products/:slug", r.catalogController.GetProduct)
			catalog.GET("/filters", r.catalogController.GetFilters)
			catalog.GET("/featured", r.catalogController.GetFeatured)
		}

		orders := v1.Group("/orders")
		{
			orders.POST("/checkout", r.authMiddleware.OptionalAuthenticate(), r.orderController.Checkout)
			orders.POST("/coupon/validate", r.orderController.ValidateCoupon)
			orders.GET("/track/:number", r.orderController.TrackOrder)

			my := orders.Group("/my", r.authMiddleware.Authenticate())
			{
				my.GET("", r.orderController.GetMyOrders)
				my.GET("/:id", r.orderController.GetMyOrder)
				my.POST("/:id/cancel", r.orderController.CancelMyOrder)
			}
		}

		admin := v1.Group("/admin",
			r.authMiddleware.Authenticate(),
			r.authMiddleware.RequireRole(model.RoleAdmin),
		)
		{
			admin.POST("/products", r.productController.UpsertProduct)
			admin.POST("/products/:id/variants/generate", r.productController.GenerateVariants)
			admin.POST("/products/:id/variants", r.productController.CreateVariant)
			admin.DELETE("/products/:id/offered-values/:value_id", r.productController.RemoveOfferedValue)
			admin.PATCH("/variants/:id", r.productController.UpdateVariant)

			admin.DELETE("/categories/:id", r.productController.DeleteCategory)
			admin.PUT("/categories/:id/parent", r.productController.UpdateCategoryParent)

			admin.GET("/orders/stream", r.orderStreamController.Stream)
			admin.GET("/orders/:id", r.orderController.GetOrder)
			admin.PUT("/orders/:id/status", r.orderController.UpdateOrderStatus)
			admin.POST("/orders/:id/cancel", r.orderController.CancelOrder)

			admin.GET("/reports/stock", r.reportController.ExportStock)
		}
	}

	return router
}

func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	for _, origin := range allowedOrigins {
		if origin == "*" {
			// credentials cannot be combined with a wildcard origin
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cfg
		}
	}
	cfg.AllowOrigins = allowedOrigins
	return cfg
}
