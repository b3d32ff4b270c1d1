package model

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProductVariant is a concretely priced and stocked combination of attribute values
type ProductVariant struct {
	ID        uint                `gorm:"primarykey" json:"id"`
	ProductID uint                `gorm:"not null;index" json:"product_id"`
	SKU       string              `gorm:"column:sku;type:varchar(100);index" json:"sku"`
	Price     decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"price"`
	OldPrice  decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"old_price"`
	Stock     int                 `gorm:"not null;default:0;check:chk_product_variants_stock,stock >= 0" json:"stock"`
	IsActive  bool                `gorm:"not null;index" json:"is_active"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`

	Product         *Product         `gorm:"foreignKey:ProductID" json:"-"`
	AttributeValues []AttributeValue `gorm:"many2many:product_variant_attribute_values;constraint:OnDelete:CASCADE" json:"attribute_values,omitempty"`
}

func (ProductVariant) TableName() string {
	return "product_variants"
}

// EffectivePrice falls back to the product price when no override is set
func (v *ProductVariant) EffectivePrice(productPrice decimal.Decimal) decimal.Decimal {
	if v.Price.Valid {
		return v.Price.Decimal
	}
	return productPrice
}

// ValueIDs returns the attribute value ids in ascending order
func (v *ProductVariant) ValueIDs() []uint {
	ids := make([]uint, 0, len(v.AttributeValues))
	for _, av := range v.AttributeValues {
		ids = append(ids, av.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CombinationKey is the order-independent identity of a value set
func CombinationKey(ids []uint) string {
	sorted := append([]uint(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}

// AttributeMap flattens the variant's values to attribute name -> value text.
// AttributeValues must be loaded with their Attribute.
func (v *ProductVariant) AttributeMap() StringMap {
	m := make(StringMap, len(v.AttributeValues))
	for _, av := range v.AttributeValues {
		name := strconv.FormatUint(uint64(av.AttributeID), 10)
		if av.Attribute != nil {
			name = av.Attribute.Name
		}
		m[name] = av.Value
	}
	return m
}
