package model

import "time"

// Attribute is an axis of variation such as "Color" or "Optical power"
type Attribute struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	Name              string    `gorm:"type:varchar(100);not null" json:"name"`
	Slug              string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	Sort              int       `gorm:"not null;default:0" json:"sort"`
	IsFilterable      bool      `gorm:"not null" json:"is_filterable"`        // eligible for catalog facets
	ShowInProductCard bool      `gorm:"not null" json:"show_in_product_card"` // eligible for variant selection
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Values []AttributeValue `gorm:"foreignKey:AttributeID;constraint:OnDelete:CASCADE" json:"values,omitempty"`
}

func (Attribute) TableName() string {
	return "attributes"
}

type AttributeValue struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	AttributeID uint      `gorm:"not null;uniqueIndex:idx_attribute_values_attribute_slug" json:"attribute_id"`
	Value       string    `gorm:"type:varchar(255);not null" json:"value"`
	Slug        string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_attribute_values_attribute_slug" json:"slug"`
	Sort        int       `gorm:"not null;default:0" json:"sort"`
	CreatedAt   time.Time `json:"created_at"`

	Attribute *Attribute `gorm:"foreignKey:AttributeID" json:"attribute,omitempty"`
}

func (AttributeValue) TableName() string {
	return "attribute_values"
}
