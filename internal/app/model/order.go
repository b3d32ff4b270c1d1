package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string
type ShippingMethod string
type PaymentMethod string

const (
	OrderStatusPlaced     OrderStatus = "placed"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"

	ShippingPickup  ShippingMethod = "pickup"
	ShippingCourier ShippingMethod = "courier"
	ShippingCDEK    ShippingMethod = "cdek"
	ShippingPost    ShippingMethod = "post"

	PaymentCard PaymentMethod = "card"
	PaymentCash PaymentMethod = "cash"
	PaymentSBP  PaymentMethod = "sbp"
)

// fulfillment order; cancelled and refunded sit outside it
var orderStatusRank = map[OrderStatus]int{
	OrderStatusPlaced:     0,
	OrderStatusConfirmed:  1,
	OrderStatusPaid:       2,
	OrderStatusProcessing: 3,
	OrderStatusShipped:    4,
	OrderStatusDelivered:  5,
}

// Rank returns the position in the forward lifecycle, or -1 for terminal states
func (s OrderStatus) Rank() int {
	if r, ok := orderStatusRank[s]; ok {
		return r
	}
	return -1
}

func (s OrderStatus) Valid() bool {
	return s.Rank() >= 0 || s == OrderStatusCancelled || s == OrderStatusRefunded
}

// Cancellable reports whether stock may still be returned by cancelling
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPlaced || s == OrderStatusConfirmed || s == OrderStatusPaid
}

// Refundable reports whether a refund may be issued from this state
func (s OrderStatus) Refundable() bool {
	r := s.Rank()
	return r >= orderStatusRank[OrderStatusPaid]
}

type Order struct {
	ID             uint            `gorm:"primarykey" json:"id"`
	Number         string          `gorm:"type:varchar(36);uniqueIndex;not null" json:"number"` // public order number
	UserID         *uint           `gorm:"index" json:"user_id,omitempty"`                      // nil for guest checkout
	Email          string          `gorm:"type:varchar(255);not null" json:"email"`
	Phone          string          `gorm:"type:varchar(32)" json:"phone"`
	FullName       string          `gorm:"type:varchar(255)" json:"full_name"`
	City           string          `gorm:"type:varchar(255)" json:"city"`
	Address        string          `gorm:"type:text" json:"address"`
	PostalCode     string          `gorm:"type:varchar(20)" json:"postal_code"`
	Comment        string          `gorm:"type:text" json:"comment,omitempty"`
	ShippingMethod ShippingMethod  `gorm:"type:varchar(20);not null" json:"shipping_method"`
	PaymentMethod  PaymentMethod   `gorm:"type:varchar(20);not null" json:"payment_method"`
	Status         OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	CouponID       *uint           `gorm:"index" json:"coupon_id,omitempty"`
	CouponCode     string          `gorm:"type:varchar(64)" json:"coupon_code,omitempty"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	DiscountTotal  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount_total"`
	ShippingCost   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shipping_cost"`
	GrandTotal     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"grand_total"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem snapshots what was sold so later catalog edits never rewrite history
type OrderItem struct {
	ID                uint            `gorm:"primarykey" json:"id"`
	OrderID           uint            `gorm:"not null;index" json:"order_id"`
	ProductID         *uint           `gorm:"index" json:"product_id,omitempty"`
	VariantID         *uint           `gorm:"index" json:"variant_id,omitempty"` // stock restore only
	ProductName       string          `gorm:"type:varchar(255);not null" json:"product_name"`
	SKU               string          `gorm:"column:sku;type:varchar(100)" json:"sku"`
	VariantAttributes StringMap       `gorm:"type:text" json:"variant_attributes,omitempty"`
	Quantity          int             `gorm:"not null" json:"quantity"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	LineTotal         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"line_total"`
	CreatedAt         time.Time       `json:"created_at"`

	Variant *ProductVariant `gorm:"foreignKey:VariantID;constraint:OnDelete:SET NULL" json:"-"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
