package feed

import (
	"github.com/opticplace/opticplace-backend/internal/app/service"
	"github.com/opticplace/opticplace-backend/pkg/logger"
)

type Summary struct {
	Products int        `json:"products"`
	Variants int        `json:"variants"`
	Failed   []RowError `json:"failed,omitempty"`
}

// Importer upserts each feed row and then fills in its missing variants
type Importer struct {
	products service.ProductService
	variants service.VariantService
}

func NewImporter(products service.ProductService, variants service.VariantService) *Importer {
	return &Importer{
		products: products,
		variants: variants,
	}
}

// Import keeps going past failed rows; each row commits on its own
func (im *Importer) Import(rows []Row) Summary {
	var summary Summary

	for _, row := range rows {
		product, err := im.products.UpsertProduct(row.Input)
		if err != nil {
			logger.Warn("Feed row rejected", map[string]interface{}{
				"line":  row.Line,
				"slug":  row.Input.Slug,
				"error": err.Error(),
			})
			summary.Failed = append(summary.Failed, RowError{Line: row.Line, Slug: row.Input.Slug, Err: err.Error()})
			continue
		}
		summary.Products++

		created, err := im.variants.GenerateVariants(product.ID)
		if err != nil {
			logger.Warn("Variant generation failed for feed row", map[string]interface{}{
				"line":       row.Line,
				"product_id": product.ID,
				"error":      err.Error(),
			})
			summary.Failed = append(summary.Failed, RowError{Line: row.Line, Slug: row.Input.Slug, Err: err.Error()})
			continue
		}
		summary.Variants += created
	}

	logger.Info("Feed import finished", map[string]interface{}{
		"products": summary.Products,
		"variants": summary.Variants,
		"failed":   len(summary.Failed),
	})
	return summary
}
