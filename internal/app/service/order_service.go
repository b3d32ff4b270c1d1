package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/internal/app/repository"
	"github.com/opticplace/opticplace-backend/pkg/logger"
	"github.com/opticplace/opticplace-backend/pkg/money"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderNotifier is told about committed order changes. Its failures never undo the change.
type OrderNotifier interface {
	NotifyOrderEvent(event model.OrderEvent) error
}

type CartLine struct {
	ProductID uint
	VariantID *uint
	Quantity  int
}

type CheckoutInput struct {
	UserID         *uint
	Lines          []CartLine
	Email          string
	Phone          string
	FullName       string
	City           string
	Address        string
	PostalCode     string
	Comment        string
	ShippingMethod model.ShippingMethod
	PaymentMethod  model.PaymentMethod
	CouponCode     string
}

type CouponQuote struct {
	Code       string          `json:"code"`
	Applicable bool            `json:"applicable"`
	Discount   decimal.Decimal `json:"discount"`
}

type OrderService interface {
	Checkout(input CheckoutInput) (*model.Order, error)
	CancelOrder(orderID uint) (*model.Order, error)
	CancelUserOrder(userID, orderID uint) (*model.Order, error)
	UpdateOrderStatus(orderID uint, status model.OrderStatus) (*model.Order, error)
	GetOrder(orderID uint) (*model.Order, error)
	GetUserOrder(userID, orderID uint) (*model.Order, error)
	TrackOrder(number, email string) (*model.Order, error)
	ListUserOrders(userID uint) ([]model.Order, error)
	ValidateCoupon(code string, subtotal decimal.Decimal) (*CouponQuote, error)
}

type orderService struct {
	db            *gorm.DB
	orderRepo     repository.OrderRepository
	couponRepo    repository.CouponRepository
	shippingRates map[string]decimal.Decimal
	notifier      OrderNotifier
	cache         CatalogCache
	now           func() time.Time
}

func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	couponRepo repository.CouponRepository,
	shippingRates map[string]decimal.Decimal,
	notifier OrderNotifier,
	cache CatalogCache,
) OrderService {
	return &orderService{
		db:            db,
		orderRepo:     orderRepo,
		couponRepo:    couponRepo,
		shippingRates: shippingRates,
		notifier:      notifier,
		cache:         cache,
		now:           time.Now,
	}
}

// Checkout validates the cart, prices it and commits the order together with every
// stock decrement in one transaction. Referenced variants are locked in ascending id
// order for the whole validate-and-decrement sequence.
func (s *orderService) Checkout(input CheckoutInput) (*model.Order, error) {
	logger.Info("Processing checkout", map[string]interface{}{
		"user_id":         input.UserID,
		"lines":           len(input.Lines),
		"shipping_method": input.ShippingMethod,
		"payment_method":  input.PaymentMethod,
	})

	if err := s.validateCheckout(input); err != nil {
		logger.Warn("Checkout rejected", map[string]interface{}{
			"user_id": input.UserID,
			"reason":  err.Error(),
		})
		return nil, err
	}
	shippingCost := s.shippingRates[string(input.ShippingMethod)]

	coupon, err := s.findCoupon(input.CouponCode)
	if err != nil {
		return nil, err
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during checkout, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"user_id": input.UserID,
			})
			panic(r)
		}
	}()

	order, err := s.placeOrder(tx, input, coupon, shippingCost)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
			logger.Warn("Checkout rejected", map[string]interface{}{
				"user_id": input.UserID,
				"reason":  err.Error(),
			})
		} else {
			logger.Error("Checkout failed", err, map[string]interface{}{
				"user_id": input.UserID,
			})
		}
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit checkout", err, map[string]interface{}{
			"user_id": input.UserID,
		})
		return nil, err
	}

	logger.Info("Order placed", map[string]interface{}{
		"order_id":    order.ID,
		"number":      order.Number,
		"grand_total": order.GrandTotal.StringFixed(money.Places),
	})

	invalidateCatalog(s.cache)
	s.notify(model.OrderEventPlaced, order)
	return s.reload(order), nil
}

func (s *orderService) placeOrder(tx *gorm.DB, input CheckoutInput, coupon *model.Coupon, shippingCost decimal.Decimal) (*model.Order, error) {
	products, err := loadProducts(tx, input.Lines)
	if err != nil {
		return nil, err
	}
	for _, line := range input.Lines {
		product, ok := products[line.ProductID]
		if !ok || !product.IsActive {
			return nil, fmt.Errorf("%w (product_id=%d)", ErrProductNotFound, line.ProductID)
		}
	}

	variantIDs, requested := requestedStock(input.Lines)
	variants, err := lockVariants(tx, variantIDs)
	if err != nil {
		return nil, err
	}
	for _, line := range input.Lines {
		if line.VariantID == nil {
			continue
		}
		variant, ok := variants[*line.VariantID]
		if !ok || variant.ProductID != line.ProductID || !variant.IsActive {
			return nil, fmt.Errorf("%w (variant_id=%d)", ErrVariantNotFound, *line.VariantID)
		}
	}

	variantRepo := repository.NewVariantRepository(tx)
	checked := make(map[uint]bool)
	for _, line := range input.Lines {
		if line.VariantID != nil || checked[line.ProductID] {
			continue
		}
		checked[line.ProductID] = true

		active, err := variantRepo.CountActiveByProduct(line.ProductID)
		if err != nil {
			return nil, err
		}
		if active > 0 {
			return nil, fmt.Errorf("%w (product_id=%d)", ErrVariantRequired, line.ProductID)
		}
	}

	for _, id := range variantIDs {
		if requested[id] > variants[id].Stock {
			return nil, fmt.Errorf("%w (variant_id=%d, requested=%d, available=%d)",
				ErrInsufficientStock, id, requested[id], variants[id].Stock)
		}
	}

	subtotal := decimal.Zero
	sold := make(map[uint]int)
	items := make([]model.OrderItem, 0, len(input.Lines))
	for _, line := range input.Lines {
		product := products[line.ProductID]
		productID := product.ID
		unitPrice := product.Price

		item := model.OrderItem{
			ProductID:   &productID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
		}
		if line.VariantID != nil {
			variant := variants[*line.VariantID]
			variantID := variant.ID
			unitPrice = variant.EffectivePrice(product.Price)
			item.VariantID = &variantID
			item.SKU = variant.SKU
			item.VariantAttributes = variant.AttributeMap()
			sold[productID] += line.Quantity
		}

		lineTotal := money.LineTotal(unitPrice, line.Quantity)
		item.UnitPrice = money.Round(unitPrice)
		item.LineTotal = money.Round(lineTotal)
		subtotal = subtotal.Add(lineTotal)
		items = append(items, item)
	}

	discount := CouponDiscount(coupon, subtotal, s.now())
	grandTotal := subtotal.Sub(discount).Add(shippingCost)
	if grandTotal.IsNegative() {
		return nil, ErrNegativeTotal
	}

	order := &model.Order{
		Number:         uuid.NewString(),
		UserID:         input.UserID,
		Email:          strings.TrimSpace(input.Email),
		Phone:          strings.TrimSpace(input.Phone),
		FullName:       strings.TrimSpace(input.FullName),
		City:           strings.TrimSpace(input.City),
		Address:        strings.TrimSpace(input.Address),
		PostalCode:     strings.TrimSpace(input.PostalCode),
		Comment:        strings.TrimSpace(input.Comment),
		ShippingMethod: input.ShippingMethod,
		PaymentMethod:  input.PaymentMethod,
		Status:         model.OrderStatusPlaced,
		Subtotal:       money.Round(subtotal),
		DiscountTotal:  discount,
		ShippingCost:   money.Round(shippingCost),
		GrandTotal:     money.Round(grandTotal),
		Items:          items,
	}
	if coupon != nil && discount.IsPositive() {
		couponID := coupon.ID
		order.CouponID = &couponID
		order.CouponCode = coupon.Code
	}

	if err := tx.Create(order).Error; err != nil {
		return nil, err
	}

	for _, id := range variantIDs {
		result := tx.Model(&model.ProductVariant{}).
			Where("id = ? AND stock >= ?", id, requested[id]).
			UpdateColumn("stock", gorm.Expr("stock - ?", requested[id]))
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, fmt.Errorf("%w (variant_id=%d)", ErrInsufficientStock, id)
		}
	}

	for _, productID := range sortedKeys(sold) {
		if err := tx.Model(&model.Product{}).
			Where("id = ?", productID).
			UpdateColumn("sales_count", gorm.Expr("sales_count + ?", sold[productID])).Error; err != nil {
			return nil, err
		}
	}

	return order, nil
}

func (s *orderService) CancelOrder(orderID uint) (*model.Order, error) {
	return s.cancel(orderID, nil)
}

// CancelUserOrder cancels only when the order belongs to userID
func (s *orderService) CancelUserOrder(userID, orderID uint) (*model.Order, error) {
	return s.cancel(orderID, &userID)
}

func (s *orderService) cancel(orderID uint, userID *uint) (*model.Order, error) {
	logger.Info("Cancelling order", map[string]interface{}{
		"order_id": orderID,
		"user_id":  userID,
	})

	var order model.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if userID != nil && (locked.UserID == nil || *locked.UserID != *userID) {
			return ErrOrderNotFound
		}
		if !locked.Status.Cancellable() {
			return fmt.Errorf("%w (status=%s)", ErrOrderNotCancellable, locked.Status)
		}

		if err := restoreStock(tx, locked.Items); err != nil {
			return err
		}

		now := s.now()
		if err := tx.Model(&model.Order{}).
			Where("id = ?", locked.ID).
			Updates(map[string]interface{}{
				"status":       model.OrderStatusCancelled,
				"cancelled_at": now,
			}).Error; err != nil {
			return err
		}
		locked.Status = model.OrderStatusCancelled
		locked.CancelledAt = &now
		order = *locked
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
			logger.Warn("Order cancellation rejected", map[string]interface{}{
				"order_id": orderID,
				"reason":   err.Error(),
			})
		} else {
			logger.Error("Failed to cancel order", err, map[string]interface{}{
				"order_id": orderID,
			})
		}
		return nil, err
	}

	logger.Info("Order cancelled, stock restored", map[string]interface{}{
		"order_id": order.ID,
		"items":    len(order.Items),
	})

	invalidateCatalog(s.cache)
	s.notify(model.OrderEventCancelled, &order)
	return s.reload(&order), nil
}

// UpdateOrderStatus moves an order forward through fulfillment. Cancelling and
// refunding both return stock; refunds are only accepted once the order was paid.
func (s *orderService) UpdateOrderStatus(orderID uint, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if status == model.OrderStatusCancelled {
		return s.CancelOrder(orderID)
	}

	logger.Info("Updating order status", map[string]interface{}{
		"order_id": orderID,
		"status":   status,
	})

	var order model.Order
	restocked := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		locked, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}

		switch {
		case status == model.OrderStatusRefunded:
			if !locked.Status.Refundable() {
				return fmt.Errorf("%w (from=%s, to=%s)", ErrInvalidTransition, locked.Status, status)
			}
			if err := restoreStock(tx, locked.Items); err != nil {
				return err
			}
			restocked = true
		case locked.Status.Rank() < 0 || status.Rank() <= locked.Status.Rank():
			return fmt.Errorf("%w (from=%s, to=%s)", ErrInvalidTransition, locked.Status, status)
		}

		updates := map[string]interface{}{"status": status}
		if status == model.OrderStatusPaid && locked.PaidAt == nil {
			now := s.now()
			updates["paid_at"] = now
			locked.PaidAt = &now
		}
		if err := tx.Model(&model.Order{}).Where("id = ?", locked.ID).Updates(updates).Error; err != nil {
			return err
		}
		locked.Status = status
		order = *locked
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrConflict) {
			logger.Error("Failed to update order status", err, map[string]interface{}{
				"order_id": orderID,
			})
		}
		return nil, err
	}

	if restocked {
		invalidateCatalog(s.cache)
	}
	s.notify(model.OrderEventStatusChanged, &order)
	return s.reload(&order), nil
}

func (s *orderService) GetOrder(orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *orderService) GetUserOrder(userID, orderID uint) (*model.Order, error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID == nil || *order.UserID != userID {
		logger.Warn("Order access denied", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// TrackOrder finds an order by its public number for guests. The contact email must
// match, otherwise the order is reported as not found.
func (s *orderService) TrackOrder(number, email string) (*model.Order, error) {
	number = strings.TrimSpace(number)
	email = strings.TrimSpace(email)
	if number == "" || email == "" {
		return nil, fmt.Errorf("%w: order number and email are required", ErrValidation)
	}

	order, err := s.orderRepo.FindByNumber(number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !strings.EqualFold(order.Email, email) {
		logger.Warn("Order tracking email mismatch", map[string]interface{}{
			"order_id": order.ID,
		})
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) ListUserOrders(userID uint) ([]model.Order, error) {
	return s.orderRepo.FindByUserID(userID)
}

// ValidateCoupon quotes the discount a coupon would give on subtotal.
// Unknown and inapplicable codes quote zero rather than failing.
func (s *orderService) ValidateCoupon(code string, subtotal decimal.Decimal) (*CouponQuote, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: coupon code is required", ErrValidation)
	}
	if subtotal.IsNegative() {
		return nil, fmt.Errorf("%w: subtotal must not be negative", ErrValidation)
	}

	coupon, err := s.findCoupon(code)
	if err != nil {
		return nil, err
	}

	quote := &CouponQuote{Code: strings.TrimSpace(code), Discount: decimal.Zero}
	if coupon != nil {
		quote.Code = coupon.Code
		quote.Applicable = couponApplies(coupon, subtotal, s.now())
		quote.Discount = CouponDiscount(coupon, subtotal, s.now())
	}
	return quote, nil
}

func (s *orderService) validateCheckout(input CheckoutInput) error {
	if len(input.Lines) == 0 {
		return ErrEmptyCart
	}
	for _, line := range input.Lines {
		if line.ProductID == 0 {
			return fmt.Errorf("%w: product_id is required", ErrValidation)
		}
		if line.Quantity < 1 {
			return ErrInvalidQuantity
		}
	}

	if email := strings.TrimSpace(input.Email); email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: email is required", ErrInvalidContact)
	}

	if _, ok := s.shippingRates[string(input.ShippingMethod)]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidShipping, input.ShippingMethod)
	}
	if input.ShippingMethod != model.ShippingPickup {
		if strings.TrimSpace(input.City) == "" || strings.TrimSpace(input.Address) == "" {
			return fmt.Errorf("%w: city and address are required for delivery", ErrInvalidContact)
		}
	}

	switch input.PaymentMethod {
	case model.PaymentCard, model.PaymentSBP:
	case model.PaymentCash:
		if input.ShippingMethod != model.ShippingPickup && input.ShippingMethod != model.ShippingCourier {
			return fmt.Errorf("%w: cash is only accepted for pickup and courier delivery", ErrInvalidPayment)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPayment, input.PaymentMethod)
	}
	return nil
}

func (s *orderService) findCoupon(code string) (*model.Coupon, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}
	coupon, err := s.couponRepo.FindByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Debug("Unknown coupon code, no discount applied", map[string]interface{}{
				"code": code,
			})
			return nil, nil
		}
		logger.Error("Failed to look up coupon", err, map[string]interface{}{
			"code": code,
		})
		return nil, err
	}
	return coupon, nil
}

func (s *orderService) notify(eventType model.OrderEventType, order *model.Order) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyOrderEvent(model.NewOrderEvent(eventType, order)); err != nil {
		logger.Error("Failed to dispatch order notification", err, map[string]interface{}{
			"order_id": order.ID,
			"event":    eventType,
		})
	}
}

// reload re-reads a committed order; the in-memory copy is good enough if that fails
func (s *orderService) reload(order *model.Order) *model.Order {
	fresh, err := s.orderRepo.FindByID(order.ID)
	if err != nil {
		logger.Warn("Failed to reload committed order", map[string]interface{}{
			"order_id": order.ID,
			"error":    err.Error(),
		})
		return order
	}
	return fresh
}

// CouponDiscount returns the rounded discount a coupon yields on subtotal, clamped to
// [0, subtotal]. A nil or inapplicable coupon yields zero.
func CouponDiscount(coupon *model.Coupon, subtotal decimal.Decimal, now time.Time) decimal.Decimal {
	if !couponApplies(coupon, subtotal, now) {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch coupon.DiscountType {
	case model.DiscountPercent:
		discount = money.Percent(subtotal, coupon.Amount)
	case model.DiscountFixed:
		discount = coupon.Amount
	default:
		return decimal.Zero
	}
	return money.Round(money.Clamp(discount, decimal.Zero, subtotal))
}

func couponApplies(coupon *model.Coupon, subtotal decimal.Decimal, now time.Time) bool {
	if coupon == nil || !coupon.AppliesAt(now) {
		return false
	}
	if coupon.MinTotal.Valid && subtotal.LessThan(coupon.MinTotal.Decimal) {
		return false
	}
	return true
}

func loadProducts(tx *gorm.DB, lines []CartLine) (map[uint]*model.Product, error) {
	seen := make(map[uint]bool)
	var ids []uint
	for _, line := range lines {
		if !seen[line.ProductID] {
			seen[line.ProductID] = true
			ids = append(ids, line.ProductID)
		}
	}

	var products []model.Product
	if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]*model.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return byID, nil
}

// requestedStock sums quantities per variant and returns the variant ids ascending
func requestedStock(lines []CartLine) ([]uint, map[uint]int) {
	requested := make(map[uint]int)
	for _, line := range lines {
		if line.VariantID != nil {
			requested[*line.VariantID] += line.Quantity
		}
	}
	return sortedKeys(requested), requested
}

func lockVariants(tx *gorm.DB, ids []uint) (map[uint]*model.ProductVariant, error) {
	byID := make(map[uint]*model.ProductVariant, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	var variants []model.ProductVariant
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("AttributeValues.Attribute").
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&variants).Error; err != nil {
		return nil, err
	}
	for i := range variants {
		byID[variants[i].ID] = &variants[i]
	}
	return byID, nil
}

func lockOrder(tx *gorm.DB, orderID uint) (*model.Order, error) {
	var order model.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.id ASC")
		}).
		First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// restoreStock returns every item's quantity to its variant, ascending by variant id.
// Items whose variant has since been deleted are skipped.
func restoreStock(tx *gorm.DB, items []model.OrderItem) error {
	quantities := make(map[uint]int)
	for _, item := range items {
		if item.VariantID != nil {
			quantities[*item.VariantID] += item.Quantity
		}
	}

	for _, variantID := range sortedKeys(quantities) {
		result := tx.Model(&model.ProductVariant{}).
			Where("id = ?", variantID).
			UpdateColumn("stock", gorm.Expr("stock + ?", quantities[variantID]))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			logger.Warn("Variant missing during stock restore", map[string]interface{}{
				"variant_id": variantID,
				"quantity":   quantities[variantID],
			})
		}
	}
	return nil
}

func sortedKeys(m map[uint]int) []uint {
	keys := make([]uint, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
