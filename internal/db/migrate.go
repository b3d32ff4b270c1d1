package db

import (
	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table owned by the catalog core, in dependency order
func Models() []interface{} {
	return []interface{}{
		&model.Attribute{},
		&model.AttributeValue{},
		&model.Category{},
		&model.Brand{},
		&model.Product{},
		&model.ProductAttributeValue{},
		&model.ProductVariant{},
		&model.Coupon{},
		&model.Order{},
		&model.OrderItem{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed inserts the reference attributes an optical catalog starts with
func Seed() error {
	return SeedAttributes(DB)
}

type seedAttribute struct {
	name        string
	slug        string
	filterable  bool
	productCard bool
	values      [][2]string // value, slug
}

var referenceAttributes = []seedAttribute{
	{
		name:        "Color",
		slug:        "color",
		filterable:  true,
		productCard: true,
		values:      [][2]string{{"Black", "black"}, {"Brown", "brown"}, {"Blue", "blue"}, {"Clear", "clear"}},
	},
	{
		name:        "Optical power",
		slug:        "power",
		filterable:  true,
		productCard: true,
		values:      [][2]string{{"-3.00", "m3-00"}, {"-2.00", "m2-00"}, {"-1.00", "m1-00"}, {"0.00", "0-00"}, {"+1.00", "p1-00"}},
	},
	{
		name:        "Base curve",
		slug:        "base-curve",
		filterable:  true,
		productCard: true,
		values:      [][2]string{{"8.4", "8-4"}, {"8.6", "8-6"}, {"8.8", "8-8"}},
	},
	{
		name:       "Frame material",
		slug:       "frame-material",
		filterable: true,
		values:     [][2]string{{"Acetate", "acetate"}, {"Metal", "metal"}, {"Titanium", "titanium"}},
	},
}

// SeedAttributes is a no-op when any attribute already exists
func SeedAttributes(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Attribute{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Info("Attributes already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for i, sa := range referenceAttributes {
			attr := model.Attribute{
				Name:              sa.name,
				Slug:              sa.slug,
				Sort:              i * 10,
				IsFilterable:      sa.filterable,
				ShowInProductCard: sa.productCard,
			}
			for j, v := range sa.values {
				attr.Values = append(attr.Values, model.AttributeValue{Value: v[0], Slug: v[1], Sort: j * 10})
			}
			if err := tx.Create(&attr).Error; err != nil {
				return err
			}
		}
		logger.Info("Reference attributes seeded", map[string]interface{}{
			"count": len(referenceAttributes),
		})
		return nil
	})
}

// starter category tree: root slug -> child slugs
var referenceCategories = []struct {
	name     string
	slug     string
	children [][2]string // name, slug
}{
	{name: "Eyeglasses", slug: "eyeglasses", children: [][2]string{{"Frames", "frames"}, {"Lenses", "lenses"}}},
	{name: "Sunglasses", slug: "sunglasses"},
	{name: "Contact lenses", slug: "contact-lenses", children: [][2]string{{"Daily", "daily"}, {"Monthly", "monthly"}}},
	{name: "Care", slug: "care", children: [][2]string{{"Solutions", "solutions"}, {"Cases", "cases"}}},
}

// SeedCategories creates the starter tree on an empty categories table
func SeedCategories(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		logger.Info("Categories already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for i, rc := range referenceCategories {
			root := model.Category{Name: rc.name, Slug: rc.slug, Sort: i * 10, IsActive: true}
			if err := tx.Create(&root).Error; err != nil {
				return err
			}
			for j, c := range rc.children {
				child := model.Category{Name: c[0], Slug: c[1], ParentID: &root.ID, Sort: j * 10, IsActive: true}
				if err := tx.Create(&child).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}
