package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/internal/app/service"
	apperrors "github.com/opticplace/opticplace-backend/internal/errors"
	"github.com/opticplace/opticplace-backend/internal/middleware"
	"github.com/shopspring/decimal"
)

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

type CartLineRequest struct {
	ProductID uint  `json:"product_id" binding:"required"`
	VariantID *uint `json:"variant_id"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

type CheckoutRequest struct {
	Lines          []CartLineRequest    `json:"lines" binding:"required,min=1,dive"`
	Email          string               `json:"email" binding:"required,email"`
	Phone          string               `json:"phone"`
	FullName       string               `json:"full_name"`
	City           string               `json:"city"`
	Address        string               `json:"address"`
	PostalCode     string               `json:"postal_code"`
	Comment        string               `json:"comment"`
	ShippingMethod model.ShippingMethod `json:"shipping_method" binding:"required"`
	PaymentMethod  model.PaymentMethod  `json:"payment_method" binding:"required"`
	CouponCode     string               `json:"coupon_code"`
}

type ValidateCouponRequest struct {
	Code     string          `json:"code" binding:"required"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
}

// Checkout places an order for guests and signed-in customers
// POST /api/v1/orders/checkout
func (ctrl *OrderController) Checkout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	input := service.CheckoutInput{
		Lines:          make([]service.CartLine, len(req.Lines)),
		Email:          req.Email,
		Phone:          req.Phone,
		FullName:       req.FullName,
		City:           req.City,
		Address:        req.Address,
		PostalCode:     req.PostalCode,
		Comment:        req.Comment,
		ShippingMethod: req.ShippingMethod,
		PaymentMethod:  req.PaymentMethod,
		CouponCode:     req.CouponCode,
	}
	for i, line := range req.Lines {
		input.Lines[i] = service.CartLine{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
		}
	}
	if userID, ok := middleware.GetUserID(c); ok {
		input.UserID = &userID
	}

	order, err := ctrl.orderService.Checkout(input)
	if err != nil {
		respondServiceError(c, err, "checkout")
		return
	}

	log.Info("Order placed", map[string]interface{}{
		"order_id": order.ID,
		"number":   order.Number,
		"total":    order.GrandTotal.String(),
	})
	c.JSON(http.StatusCreated, gin.H{
		"order": order,
	})
}

// ValidateCoupon previews the discount a code would give on a subtotal
// POST /api/v1/orders/coupon/validate
func (ctrl *OrderController) ValidateCoupon(c *gin.Context) {
	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	quote, err := ctrl.orderService.ValidateCoupon(req.Code, req.Subtotal)
	if err != nil {
		respondServiceError(c, err, "validate coupon")
		return
	}

	c.JSON(http.StatusOK, quote)
}

// GetMyOrders
// GET /api/v1/orders/my
func (ctrl *OrderController) GetMyOrders(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	orders, err := ctrl.orderService.ListUserOrders(userID)
	if err != nil {
		respondServiceError(c, err, "list orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetMyOrder
// GET /api/v1/orders/my/:id
func (ctrl *OrderController) GetMyOrder(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetUserOrder(userID, orderID)
	if err != nil {
		respondServiceError(c, err, "get order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// TrackOrder lets guests look up an order by number and contact email
// GET /api/v1/orders/track/:number?email=
func (ctrl *OrderController) TrackOrder(c *gin.Context) {
	order, err := ctrl.orderService.TrackOrder(c.Param("number"), c.Query("email"))
	if err != nil {
		respondServiceError(c, err, "track order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// CancelMyOrder
// POST /api/v1/orders/my/:id/cancel
func (ctrl *OrderController) CancelMyOrder(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.CancelUserOrder(userID, orderID)
	if err != nil {
		respondServiceError(c, err, "cancel order")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Order cancelled by customer", map[string]interface{}{
		"user_id":  userID,
		"order_id": order.ID,
	})
	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// GetOrder
// GET /api/v1/admin/orders/:id
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetOrder(orderID)
	if err != nil {
		respondServiceError(c, err, "get order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// UpdateOrderStatus
// PUT /api/v1/admin/orders/:id/status
func (ctrl *OrderController) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := ctrl.orderService.UpdateOrderStatus(orderID, req.Status)
	if err != nil {
		respondServiceError(c, err, "update order status")
		return
	}

	middleware.GetLoggerFromContext(c).Info("Order status updated", map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
	})
	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// CancelOrder
// POST /api/v1/admin/orders/:id/cancel
func (ctrl *OrderController) CancelOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.CancelOrder(orderID)
	if err != nil {
		respondServiceError(c, err, "cancel order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}
