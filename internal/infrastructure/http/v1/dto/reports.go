package dto

import (
	"tradeflow/internal/domain/ledger"
	"tradeflow/internal/domain/reports"
)

// AnalysisRequest carries analysis filters from the query string (GET) or
// the JSON body (POST). The partner is customer_code for outbound analyses
// and supplier_code for inbound ones; partner_code overrides both.
type AnalysisRequest struct {
	StartDate    string  `form:"start_date" json:"start_date"`
	EndDate      string  `form:"end_date" json:"end_date"`
	CustomerCode *string `form:"customer_code" json:"customer_code"`
	SupplierCode *string `form:"supplier_code" json:"supplier_code"`
	PartnerCode  *string `form:"partner_code" json:"partner_code"`
	ProductModel *string `form:"product_model" json:"product_model"`
	Type         string  `form:"type" json:"type"`
}

// ToParams converts the request to service parameters.
func (r AnalysisRequest) ToParams() reports.AnalysisParams {
	partner := r.PartnerCode
	if partner == nil {
		if r.Type == string(ledger.Inbound) {
			partner = r.SupplierCode
		} else {
			partner = r.CustomerCode
		}
	}
	return reports.AnalysisParams{
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		PartnerCode:  partner,
		ProductModel: r.ProductModel,
		Type:         r.Type,
	}
}

// OutOfInventoryResponse lists products with stock <= 0.
type OutOfInventoryResponse struct {
	Products []OutOfInventoryProduct `json:"products"`
	Count    int                     `json:"count"`
}

// OutOfInventoryProduct is one entry of OutOfInventoryResponse.
type OutOfInventoryProduct struct {
	ProductModel string `json:"product_model"`
}

// FromOutOfInventory converts the cached model list.
func FromOutOfInventory(models []string) OutOfInventoryResponse {
	resp := OutOfInventoryResponse{
		Products: make([]OutOfInventoryProduct, len(models)),
		Count:    len(models),
	}
	for i, m := range models {
		resp.Products[i] = OutOfInventoryProduct{ProductModel: m}
	}
	return resp
}

// CleanCacheResponse reports a clean-cache run.
type CleanCacheResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	reports.CleanResult
}
