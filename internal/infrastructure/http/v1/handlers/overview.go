package handlers

import (
	"github.com/gin-gonic/gin"

	"tradeflow/internal/infrastructure/http/v1/dto"
)

// OverviewHandler serves the dashboard reports. Reads never recompute.
type OverviewHandler struct {
	*BaseHandler
	service ReportService
}

// NewOverviewHandler creates a new overview handler.
func NewOverviewHandler(base *BaseHandler, service ReportService) *OverviewHandler {
	return &OverviewHandler{BaseHandler: base, service: service}
}

// Refresh handles POST /overview/refresh
func (h *OverviewHandler) Refresh(c *gin.Context) {
	report, err := h.service.RefreshOverview(c.Request.Context())
	if err != nil && report == nil {
		h.Error(c, err)
		return
	}
	h.Refreshed(c, report, err)
}

// Stats handles GET /overview/stats
func (h *OverviewHandler) Stats(c *gin.Context) {
	stats, err := h.service.OverviewStats(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, stats)
}

// TopSalesProducts handles GET /overview/top-sales-products
func (h *OverviewHandler) TopSalesProducts(c *gin.Context) {
	top, err := h.service.TopSalesProducts(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, top)
}

// MonthlyInventoryChanges handles GET /overview/monthly-inventory-change
func (h *OverviewHandler) MonthlyInventoryChanges(c *gin.Context) {
	changes, err := h.service.MonthlyInventoryChanges(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, changes)
}

// MonthlyInventoryChange handles GET /overview/monthly-inventory-change/:productModel
func (h *OverviewHandler) MonthlyInventoryChange(c *gin.Context) {
	change, err := h.service.MonthlyInventoryChange(c.Request.Context(), c.Param("productModel"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, change)
}

// OutOfInventory handles GET /overview/out-of-inventory
func (h *OverviewHandler) OutOfInventory(c *gin.Context) {
	models, err := h.service.OutOfInventory(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromOutOfInventory(models))
}

// InventorySummary handles GET /overview/inventory-summary
func (h *OverviewHandler) InventorySummary(c *gin.Context) {
	summary, err := h.service.InventorySummary(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, summary)
}

// RegisterRoutes registers overview routes.
func (h *OverviewHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.Stats)
	rg.POST("/refresh", h.Refresh)
	rg.GET("/top-sales-products", h.TopSalesProducts)
	rg.GET("/monthly-inventory-change", h.MonthlyInventoryChanges)
	rg.GET("/monthly-inventory-change/:productModel", h.MonthlyInventoryChange)
	rg.GET("/out-of-inventory", h.OutOfInventory)
	rg.GET("/inventory-summary", h.InventorySummary)
}
