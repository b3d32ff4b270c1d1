package model

import "time"

type Category struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	ParentID  *uint     `gorm:"index" json:"parent_id,omitempty"`
	Sort      int       `gorm:"not null;default:0" json:"sort"`
	IsActive  bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Parent   *Category  `gorm:"foreignKey:ParentID;constraint:OnDelete:SET NULL" json:"-"`
	Children []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`

	// Explicit facet set for this category; empty means fall back to filterable attributes
	FilterAttributes []Attribute `gorm:"many2many:category_filter_attributes" json:"filter_attributes,omitempty"`
	MenuAttributes   []Attribute `gorm:"many2many:category_menu_attributes" json:"menu_attributes,omitempty"`
}

func (Category) TableName() string {
	return "categories"
}

type Brand struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug       string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	IsFeatured bool      `gorm:"not null" json:"is_featured"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Brand) TableName() string {
	return "brands"
}
