package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opticplace/opticplace-backend/internal/app/model"
	"github.com/opticplace/opticplace-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type memoryStorage struct {
	objects map[string][]byte
	failing bool
}

func (s *memoryStorage) Upload(_ context.Context, key, _ string, body []byte) error {
	if s.failing {
		return errors.New("bucket unavailable")
	}
	s.objects[key] = body
	return nil
}

func (s *memoryStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://reports.example.com/" + key + "?signature=test", nil
}

func seedReportData(t *testing.T) *reportService {
	testDB := setupTestDB(t)
	_, colors := createAttribute(t, testDB, "color", true, "red", "blue")
	category := createCategory(t, testDB, "frames", nil)
	product := createProduct(t, testDB, "frame", category.ID, "1990.00")
	createVariant(t, testDB, product.ID, 5, colors["red"])
	blue := createVariant(t, testDB, product.ID, 0, colors["blue"])
	require.NoError(t, testDB.Model(&model.ProductVariant{}).Where("id = ?", blue.ID).Update("price", dec("2100")).Error)

	service := NewReportService(repository.NewVariantRepository(testDB), nil).(*reportService)
	service.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return service
}

func TestReportService_ExportStock_Inline(t *testing.T) {
	service := seedReportData(t)

	report, err := service.ExportStock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stock-20260301-120000.xlsx", report.Filename)
	assert.Equal(t, 2, report.Rows)
	assert.Empty(t, report.URL)
	require.NotEmpty(t, report.Content)

	f, err := excelize.OpenReader(bytes.NewReader(report.Content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(stockSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, stockHeaders, rows[0])
	assert.Equal(t, []string{"frame", "frame", "SKU-RED", "color: red", "1990.00", "5", "yes"}, rows[1])
	assert.Equal(t, "2100.00", rows[2][4])
	assert.Equal(t, "0", rows[2][5])
}

func TestReportService_ExportStock_Uploaded(t *testing.T) {
	service := seedReportData(t)
	storage := &memoryStorage{objects: make(map[string][]byte)}
	service.storage = storage

	report, err := service.ExportStock(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report.Content)
	assert.Equal(t, "https://reports.example.com/reports/stock-20260301-120000.xlsx?signature=test", report.URL)
	assert.Contains(t, storage.objects, "reports/stock-20260301-120000.xlsx")

	storage.failing = true
	_, err = service.ExportStock(context.Background())
	assert.Error(t, err)
}
