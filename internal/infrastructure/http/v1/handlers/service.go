package handlers

import (
	"context"

	"tradeflow/internal/domain/reports"
)

// ReportService is the part of reports.Service the HTTP layer uses.
type ReportService interface {
	RefreshOverview(ctx context.Context) (*reports.OverviewReport, error)
	OverviewStats(ctx context.Context) (*reports.OverviewStats, error)
	TopSalesProducts(ctx context.Context) ([]reports.TopSalesProduct, error)
	MonthlyInventoryChanges(ctx context.Context) (map[string]reports.MonthlyInventoryChange, error)
	MonthlyInventoryChange(ctx context.Context, productModel string) (*reports.MonthlyInventoryChange, error)
	OutOfInventory(ctx context.Context) ([]string, error)
	InventorySummary(ctx context.Context) (*reports.InventorySummary, error)

	RefreshAnalysis(ctx context.Context, params reports.AnalysisParams) (*reports.AnalysisReport, error)
	Analysis(ctx context.Context, params reports.AnalysisParams) (*reports.AnalysisResult, error)
	AnalysisDetail(ctx context.Context, params reports.AnalysisParams) ([]reports.DetailItem, error)
	CleanAnalysisCache(ctx context.Context) (*reports.CleanResult, error)
	FilterOptions(ctx context.Context) (*reports.FilterOptions, error)
}

var _ ReportService = (*reports.Service)(nil)
