package reports

import (
	"encoding/json"
	"time"

	"tradeflow/internal/domain/ledger"
)

// ReportKind identifies a cached report.
type ReportKind string

const (
	KindOverviewStats          ReportKind = "overview_stats"
	KindTopSalesProducts       ReportKind = "top_sales_products"
	KindMonthlyInventoryChange ReportKind = "monthly_inventory_changes"
	KindInventorySummary       ReportKind = "inventory_summary"
	KindAnalysis               ReportKind = "analysis"
	KindAnalysisDetail         ReportKind = "analysis_detail"
)

// IsOverview reports whether the kind lives in the overview namespace.
func (k ReportKind) IsOverview() bool {
	switch k {
	case KindOverviewStats, KindTopSalesProducts, KindMonthlyInventoryChange, KindInventorySummary:
		return true
	}
	return false
}

// AllFilter is the display and key value of an absent partner/product filter.
const AllFilter = "All"

// OthersLabel is the product model of the synthetic remainder row in top sales.
const OthersLabel = "Others"

// OverviewStats is the rolling one-year dashboard summary.
type OverviewStats struct {
	TotalInbound           int64     `json:"total_inbound"`
	TotalOutbound          int64     `json:"total_outbound"`
	Suppliers              int64     `json:"suppliers"`
	Customers              int64     `json:"customers"`
	Products               int64     `json:"products"`
	TotalPurchaseAmount    float64   `json:"total_purchase_amount"`
	TotalSalesAmount       float64   `json:"total_sales_amount"`
	SoldGoodsCost          float64   `json:"sold_goods_cost"`
	InventoryedProducts    int64     `json:"inventoryed_products"`
	OutOfInventoryProducts []string  `json:"out_of_inventory_products"`
	WindowStart            string    `json:"window_start"`
	WindowEnd              string    `json:"window_end"`
	LastUpdated            time.Time `json:"last_updated"`
}

// TopSalesProduct is one row of the top sales ranking.
type TopSalesProduct struct {
	ProductModel string  `json:"product_model"`
	TotalSales   float64 `json:"total_sales"`
}

// MonthlyInventoryChange reconstructs one product's stock for the current month.
type MonthlyInventoryChange struct {
	ProductModel        string  `json:"product_model"`
	MonthStartInventory float64 `json:"month_start_inventory"`
	MonthlyInbound      float64 `json:"monthly_inbound"`
	MonthlyOutbound     float64 `json:"monthly_outbound"`
	MonthlyChange       float64 `json:"monthly_change"`
	CurrentInventory    float64 `json:"current_inventory"`
	QueryDate           string  `json:"query_date"`
}

// InventoryStatus is one product's all-time stock position.
type InventoryStatus struct {
	CurrentInventory float64 `json:"current_inventory"`
	LastInboundDate  *string `json:"last_inbound_date"`
	LastOutboundDate *string `json:"last_outbound_date"`
}

// InventorySummary lists stock per product with a valuation estimate
// based on the latest inbound price.
type InventorySummary struct {
	Products          map[string]InventoryStatus `json:"products"`
	TotalCostEstimate float64                    `json:"total_cost_estimate"`
	LastUpdated       time.Time                  `json:"last_updated"`
}

// OverviewReport groups everything one overview refresh produces.
type OverviewReport struct {
	Stats            OverviewStats                     `json:"stats"`
	TopSales         []TopSalesProduct                 `json:"top_sales_products"`
	MonthlyChanges   map[string]MonthlyInventoryChange `json:"monthly_inventory_changes"`
	InventorySummary InventorySummary                  `json:"inventory_summary"`
}

// QueryParams echoes the normalized filter of an analysis.
type QueryParams struct {
	StartDate    string           `json:"start_date"`
	EndDate      string           `json:"end_date"`
	PartnerCode  string           `json:"partner_code"`
	ProductModel string           `json:"product_model"`
	Type         ledger.Direction `json:"type"`
}

// SalesFigures are the outbound measures of an analysis.
type SalesFigures struct {
	SalesAmount    float64 `json:"sales_amount"`
	SpecialExpense float64 `json:"special_expense"`
	NetSalesAmount float64 `json:"net_sales_amount"`
	CostAmount     float64 `json:"cost_amount"`
	ProfitAmount   float64 `json:"profit_amount"`
	ProfitRate     float64 `json:"profit_rate"`
}

// PurchaseFigures are the inbound measures of an analysis.
type PurchaseFigures struct {
	PurchaseAmount    float64 `json:"purchase_amount"`
	SpecialIncome     float64 `json:"special_income"`
	NetPurchaseAmount float64 `json:"net_purchase_amount"`
}

// AnalysisResult is a filtered analysis. Exactly one of the figure blocks is set.
type AnalysisResult struct {
	*SalesFigures
	*PurchaseFigures
	QueryParams QueryParams `json:"query_params"`
	LastUpdated time.Time   `json:"last_updated"`
}

// DetailItem is one group of the detail breakdown.
// Amount is sales for outbound analyses and purchases for inbound ones.
type DetailItem struct {
	GroupBy      string  `json:"group_by"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Amount       float64 `json:"amount"`
	CostAmount   float64 `json:"cost_amount"`
	ProfitAmount float64 `json:"profit_amount"`
	ProfitRate   float64 `json:"profit_rate"`
}

// AnalysisReport is what one analysis refresh produces.
type AnalysisReport struct {
	Result *AnalysisResult `json:"result"`
	Detail []DetailItem    `json:"detail"`
}

// FilterOption is one entry of a filter dropdown.
type FilterOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FilterOptions lists the selectable analysis filters, "All" first.
type FilterOptions struct {
	Customers []FilterOption `json:"customers"`
	Suppliers []FilterOption `json:"suppliers"`
	Products  []FilterOption `json:"products"`
}

// CleanResult summarizes a clean-cache run.
type CleanResult struct {
	Before  int `json:"before"`
	Removed int `json:"removed"`
	After   int `json:"after"`
}

// Document is one cache namespace: cache key -> serialized result.
type Document map[string]json.RawMessage
