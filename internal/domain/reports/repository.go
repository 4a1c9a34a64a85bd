package reports

import (
	"context"
	"time"

	"tradeflow/internal/domain/ledger"
)

// Repository is the read-only ledger query layer used by the analytics core.
//
// Aggregates come back as raw driver values and must be converted with
// types.FromSQLResult before any arithmetic. Amounts are *float64, quantities
// are the exact NUMERIC text (*string); nil means SQL NULL.
type Repository interface {
	// PricedLines lists rows with unit_price >= 0 in scope.
	PricedLines(ctx context.Context, dir ledger.Direction, scope ledger.Scope) ([]PricedLine, error)

	// InboundCostBasis returns Σ(q*p) and Σq per product over inbound rows with unit_price >= 0.
	InboundCostBasis(ctx context.Context, scope ledger.Scope) ([]CostBasisRow, error)

	// NormalAmount returns Σ(q*p) over rows with unit_price >= 0.
	NormalAmount(ctx context.Context, dir ledger.Direction, scope ledger.Scope) (*float64, error)

	// SpecialAmount returns Σ|q*p| over rows with unit_price < 0.
	SpecialAmount(ctx context.Context, dir ledger.Direction, scope ledger.Scope) (*float64, error)

	// AmountsByProduct groups positive-price amounts per product, largest first.
	AmountsByProduct(ctx context.Context, dir ledger.Direction, scope ledger.Scope) ([]GroupAmountRow, error)

	// AmountsByPartner groups positive-price amounts per partner, largest first.
	AmountsByPartner(ctx context.Context, dir ledger.Direction, scope ledger.Scope) ([]GroupAmountRow, error)

	// QuantitySum returns Σq for one product with from <= date < before.
	// A zero bound is open.
	QuantitySum(ctx context.Context, dir ledger.Direction, productModel string, from, before time.Time) (*string, error)

	CountEntries(ctx context.Context, dir ledger.Direction, scope ledger.Scope) (int64, error)
	CountPartners(ctx context.Context, kind ledger.PartnerKind) (int64, error)
	CountProducts(ctx context.Context) (int64, error)

	// ProductModels lists every distinct product model known to the ledger.
	ProductModels(ctx context.Context) ([]string, error)

	// InventoryTotals returns all-time per-product movement totals.
	InventoryTotals(ctx context.Context) ([]InventoryRow, error)

	// Partners lists partners of one kind ordered by short name.
	Partners(ctx context.Context, kind ledger.PartnerKind) ([]Partner, error)
}

// PricedLine is one ledger row reduced to what valuation needs.
type PricedLine struct {
	ProductModel string   `db:"product_model"`
	Quantity     *string  `db:"quantity"`
	UnitPrice    *float64 `db:"unit_price"`
}

// CostBasisRow holds the weighted-average inputs for one product.
type CostBasisRow struct {
	ProductModel  string   `db:"product_model"`
	TotalValue    *float64 `db:"total_value"`
	TotalQuantity *string  `db:"total_quantity"`
}

// GroupAmountRow is an amount grouped by product or partner.
type GroupAmountRow struct {
	Code   string   `db:"code"`
	Name   string   `db:"name"`
	Amount *float64 `db:"amount"`
}

// InventoryRow holds all-time movement totals for one product.
type InventoryRow struct {
	ProductModel       string     `db:"product_model"`
	InboundQuantity    *string    `db:"inbound_quantity"`
	OutboundQuantity   *string    `db:"outbound_quantity"`
	LastInboundDate    *time.Time `db:"last_inbound_date"`
	LastOutboundDate   *time.Time `db:"last_outbound_date"`
	LatestInboundPrice *float64   `db:"latest_inbound_price"`
}

// Partner is a supplier or customer.
type Partner struct {
	Code      string `db:"code"`
	ShortName string `db:"short_name"`
	FullName  string `db:"full_name"`
}
