package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/opticplace/opticplace-backend/internal/app/repository"
	"github.com/opticplace/opticplace-backend/pkg/logger"
	"github.com/opticplace/opticplace-backend/pkg/money"
	"github.com/xuri/excelize/v2"
)

const (
	stockSheet       = "Stock"
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	reportLinkExpiry = 30 * time.Minute
)

var stockHeaders = []string{"Product", "Product slug", "SKU", "Attributes", "Price", "Stock", "Active"}

// ReportStorage keeps generated reports and hands out temporary download links
type ReportStorage interface {
	Upload(ctx context.Context, key, contentType string, body []byte) error
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}

type StockReport struct {
	Filename string `json:"filename"`
	Rows     int    `json:"rows"`
	URL      string `json:"url,omitempty"`
	Content  []byte `json:"-"`
}

type ReportService interface {
	ExportStock(ctx context.Context) (*StockReport, error)
}

type reportService struct {
	variantRepo repository.VariantRepository
	storage     ReportStorage
	now         func() time.Time
}

// NewReportService builds the service; storage may be nil, in which case
// reports are returned inline instead of uploaded
func NewReportService(variantRepo repository.VariantRepository, storage ReportStorage) ReportService {
	return &reportService{
		variantRepo: variantRepo,
		storage:     storage,
		now:         time.Now,
	}
}

func (s *reportService) ExportStock(ctx context.Context) (*StockReport, error) {
	variants, err := s.variantRepo.FindAllForReport()
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), stockSheet); err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, err
	}

	header := make([]interface{}, len(stockHeaders))
	for i, h := range stockHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(stockSheet, "A1", &header); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(stockSheet, 1, 1, headerStyle); err != nil {
		return nil, err
	}

	for i := range variants {
		v := &variants[i]
		productName, productSlug := "", ""
		price := v.Price.Decimal
		if v.Product != nil {
			productName = v.Product.Name
			productSlug = v.Product.Slug
			price = v.EffectivePrice(v.Product.Price)
		}

		row := []interface{}{
			productName,
			productSlug,
			v.SKU,
			formatAttributes(v.AttributeMap()),
			price.StringFixed(money.Places),
			v.Stock,
			yesNo(v.IsActive),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(stockSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	for i := range stockHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(stockSheet, col, col, 20)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		logger.Error("Failed to render stock report", err)
		return nil, fmt.Errorf("render stock report: %w", err)
	}

	report := &StockReport{
		Filename: fmt.Sprintf("stock-%s.xlsx", s.now().UTC().Format("20060102-150405")),
		Rows:     len(variants),
	}

	if s.storage == nil {
		report.Content = buf.Bytes()
		logger.Info("Stock report generated", map[string]interface{}{
			"rows":  report.Rows,
			"bytes": buf.Len(),
		})
		return report, nil
	}

	key := "reports/" + report.Filename
	if err := s.storage.Upload(ctx, key, xlsxContentType, buf.Bytes()); err != nil {
		logger.Error("Failed to upload stock report", err, map[string]interface{}{
			"key": key,
		})
		return nil, fmt.Errorf("upload stock report: %w", err)
	}
	url, err := s.storage.PresignGet(ctx, key, reportLinkExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign stock report: %w", err)
	}
	report.URL = url

	logger.Info("Stock report uploaded", map[string]interface{}{
		"rows": report.Rows,
		"key":  key,
	})
	return report, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// formatAttributes renders "Color: Red; Size: M" sorted by attribute name
func formatAttributes(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b bytes.Buffer
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(attrs[k])
	}
	return strings.TrimSpace(b.String())
}
