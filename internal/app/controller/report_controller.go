package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opticplace/opticplace-backend/internal/app/service"
	apperrors "github.com/opticplace/opticplace-backend/internal/errors"
	"github.com/opticplace/opticplace-backend/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportController struct {
	reportService service.ReportService
}

func NewReportController(reportService service.ReportService) *ReportController {
	return &ReportController{
		reportService: reportService,
	}
}

// ExportStock returns a presigned link when object storage is configured,
// otherwise the workbook itself as an attachment
// GET /api/v1/admin/reports/stock
func (ctrl *ReportController) ExportStock(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	report, err := ctrl.reportService.ExportStock(c.Request.Context())
	if err != nil {
		log.Error("Failed to export stock report", err)
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.ReportExportFailed, "failed to export stock report")
		return
	}

	log.Info("Stock report exported", map[string]interface{}{
		"filename": report.Filename,
		"rows":     report.Rows,
		"uploaded": report.URL != "",
	})

	if report.URL != "" {
		c.JSON(http.StatusOK, report)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+report.Filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, report.Content)
}
