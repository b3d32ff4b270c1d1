package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          uint                `gorm:"primarykey" json:"id"`
	Name        string              `gorm:"type:varchar(255);not null" json:"name"`
	Slug        string              `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	Description string              `gorm:"type:text" json:"description,omitempty"`
	CategoryID  uint                `gorm:"not null;index" json:"category_id"`
	BrandID     *uint               `gorm:"index" json:"brand_id,omitempty"`
	Price       decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"price"`
	OldPrice    decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"old_price"`
	IsActive    bool                `gorm:"not null;index" json:"is_active"`
	ViewsCount  int64               `gorm:"not null;default:0" json:"views_count"`
	SalesCount  int64               `gorm:"not null;default:0" json:"sales_count"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`

	MerchandisingFlags `gorm:"embedded"`

	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"category,omitempty"`
	Brand    *Brand    `gorm:"foreignKey:BrandID;constraint:OnDelete:SET NULL" json:"brand,omitempty"`

	VariationAttributes []Attribute             `gorm:"many2many:product_variation_attributes" json:"variation_attributes,omitempty"`
	SpecAttributes      []Attribute             `gorm:"many2many:product_spec_attributes" json:"spec_attributes,omitempty"`
	OfferedValues       []ProductAttributeValue `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"offered_values,omitempty"`
	Variants            []ProductVariant        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"variants,omitempty"`
}

func (Product) TableName() string {
	return "products"
}

// MerchandisingFlags place a product on the storefront shelves
type MerchandisingFlags struct {
	IsPopular    bool `gorm:"not null;default:false" json:"is_popular"`
	IsBestseller bool `gorm:"not null;default:false" json:"is_bestseller"`
	IsNew        bool `gorm:"not null;default:false" json:"is_new"`
	IsSale       bool `gorm:"not null;default:false;index" json:"is_sale"`
}

// ProductAttributeValue marks a value as offered for a product, independent of stock
type ProductAttributeValue struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	ProductID        uint      `gorm:"not null;uniqueIndex:idx_product_attribute_values_product_value" json:"product_id"`
	AttributeID      uint      `gorm:"not null;index" json:"attribute_id"`
	AttributeValueID uint      `gorm:"not null;uniqueIndex:idx_product_attribute_values_product_value" json:"attribute_value_id"`
	CreatedAt        time.Time `json:"created_at"`

	Attribute      *Attribute      `gorm:"foreignKey:AttributeID" json:"attribute,omitempty"`
	AttributeValue *AttributeValue `gorm:"foreignKey:AttributeValueID;constraint:OnDelete:CASCADE" json:"attribute_value,omitempty"`
}

func (ProductAttributeValue) TableName() string {
	return "product_attribute_values"
}
