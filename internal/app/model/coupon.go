package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// Coupon is read-only for the checkout path; it is managed elsewhere
type Coupon struct {
	ID           uint                `gorm:"primarykey" json:"id"`
	Code         string              `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	DiscountType DiscountType        `gorm:"type:varchar(16);not null" json:"discount_type"`
	Amount       decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"amount"`
	MinTotal     decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"min_total"`
	StartsAt     *time.Time          `json:"starts_at,omitempty"`
	EndsAt       *time.Time          `json:"ends_at,omitempty"`
	IsActive     bool                `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func (Coupon) TableName() string {
	return "coupons"
}

// AppliesAt reports whether the coupon is active and inside its validity window
func (c *Coupon) AppliesAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return false
	}
	if c.EndsAt != nil && now.After(*c.EndsAt) {
		return false
	}
	return true
}
