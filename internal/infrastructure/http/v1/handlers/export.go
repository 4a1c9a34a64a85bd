package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"tradeflow/internal/core/apperror"
	"tradeflow/internal/infrastructure/export"
	"tradeflow/internal/infrastructure/http/v1/dto"
)

// ExportHandler renders cached analyses as xlsx downloads.
type ExportHandler struct {
	*BaseHandler
	service ReportService
}

// NewExportHandler creates a new export handler.
func NewExportHandler(base *BaseHandler, service ReportService) *ExportHandler {
	return &ExportHandler{BaseHandler: base, service: service}
}

// Analysis handles GET /export/analysis
//
// The workbook is built from the cache only; a missing analysis yields
// REPORT_NOT_GENERATED. A missing detail list exports an empty sheet.
func (h *ExportHandler) Analysis(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.AnalysisRequest
	if !h.BindQuery(c, &req) {
		return
	}
	params := req.ToParams()

	result, err := h.service.Analysis(ctx, params)
	if err != nil {
		h.Error(c, err)
		return
	}
	detail, err := h.service.AnalysisDetail(ctx, params)
	if err != nil && !apperror.IsNotGenerated(err) {
		h.Error(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteAnalysis(&buf, result, detail); err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(result)+`"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

// RegisterRoutes registers export routes.
func (h *ExportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/analysis", h.Analysis)
}
