package repository

import (
	"strings"

	"github.com/opticplace/opticplace-backend/internal/app/model"
	"gorm.io/gorm"
)

// CouponRepository is a read-only lookup; coupons are administered elsewhere
type CouponRepository interface {
	FindByCode(code string) (*model.Coupon, error)
}

type couponRepository struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepository{db: db}
}

func (r *couponRepository) FindByCode(code string) (*model.Coupon, error) {
	var coupon model.Coupon
	if err := r.db.Where("LOWER(code) = ?", strings.ToLower(strings.TrimSpace(code))).
		First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}
