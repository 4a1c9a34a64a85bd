package handlers

import (
	"github.com/gin-gonic/gin"

	"tradeflow/internal/infrastructure/http/v1/dto"
)

// AnalysisHandler serves filtered sales/purchase analyses.
type AnalysisHandler struct {
	*BaseHandler
	service ReportService
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(base *BaseHandler, service ReportService) *AnalysisHandler {
	return &AnalysisHandler{BaseHandler: base, service: service}
}

// Data handles GET /analysis/data
func (h *AnalysisHandler) Data(c *gin.Context) {
	var req dto.AnalysisRequest
	if !h.BindQuery(c, &req) {
		return
	}
	result, err := h.service.Analysis(c.Request.Context(), req.ToParams())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Detail handles GET /analysis/detail
func (h *AnalysisHandler) Detail(c *gin.Context) {
	var req dto.AnalysisRequest
	if !h.BindQuery(c, &req) {
		return
	}
	detail, err := h.service.AnalysisDetail(c.Request.Context(), req.ToParams())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, detail)
}

// Refresh handles POST /analysis/refresh
//
// Filters are read from the JSON body, falling back to the query string.
func (h *AnalysisHandler) Refresh(c *gin.Context) {
	var req dto.AnalysisRequest
	if !h.BindQuery(c, &req) || !h.BindJSON(c, &req) {
		return
	}
	report, err := h.service.RefreshAnalysis(c.Request.Context(), req.ToParams())
	if err != nil && report == nil {
		h.Error(c, err)
		return
	}
	h.Refreshed(c, report, err)
}

// FilterOptions handles GET /analysis/filter-options
func (h *AnalysisHandler) FilterOptions(c *gin.Context) {
	options, err := h.service.FilterOptions(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, options)
}

// CleanCache handles POST /analysis/clean-cache
func (h *AnalysisHandler) CleanCache(c *gin.Context) {
	result, err := h.service.CleanAnalysisCache(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.CleanCacheResponse{
		Success:     true,
		Message:     "stale analysis entries removed",
		CleanResult: *result,
	})
}

// RegisterRoutes registers analysis routes.
func (h *AnalysisHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/data", h.Data)
	rg.GET("/detail", h.Detail)
	rg.POST("/refresh", h.Refresh)
	rg.GET("/filter-options", h.FilterOptions)
	rg.POST("/clean-cache", h.CleanCache)
}
