package reports

import (
	"context"
	"fmt"

	"tradeflow/internal/core/types"
	"tradeflow/internal/domain/ledger"
)

// CostBasis selects the inbound window used for average costs.
type CostBasis string

const (
	// CostBasisRange averages inbound rows inside the analysed date range.
	CostBasisRange CostBasis = "range"
	// CostBasisAllTime averages every inbound row regardless of date.
	CostBasisAllTime CostBasis = "all_time"
)

// ParseCostBasis accepts "range" (default) or "all_time".
func ParseCostBasis(s string) (CostBasis, error) {
	switch CostBasis(s) {
	case "", CostBasisRange:
		return CostBasisRange, nil
	case CostBasisAllTime:
		return CostBasisAllTime, nil
	}
	return "", fmt.Errorf("unknown cost basis %q", s)
}

// ProductAverageCost is the weighted-average inbound cost of one product.
type ProductAverageCost struct {
	ProductModel         string
	AvgCostPrice         types.Money
	TotalInboundQuantity types.Money
}

// CostEngine values outbound rows at weighted-average inbound cost.
type CostEngine struct {
	repo  Repository
	basis CostBasis
}

// NewCostEngine creates a cost engine.
func NewCostEngine(repo Repository, basis CostBasis) *CostEngine {
	if basis == "" {
		basis = CostBasisRange
	}
	return &CostEngine{repo: repo, basis: basis}
}

// AverageCosts computes Σ(q*p)/Σq per product over positive-price inbound
// rows. Products whose quantity sums to zero get no entry.
func (e *CostEngine) AverageCosts(ctx context.Context, scope ledger.Scope) (map[string]ProductAverageCost, error) {
	rows, err := e.repo.InboundCostBasis(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("inbound cost basis: %w", err)
	}

	costs := make(map[string]ProductAverageCost, len(rows))
	for _, row := range rows {
		value := types.FromSQLResult(row.TotalValue, types.Zero(), types.DefaultScale)
		qty := types.FromSQLResult(row.TotalQuantity, types.Zero(), types.DefaultScale)
		if qty.IsZero() {
			continue
		}
		avg, err := types.Div(value, qty)
		if err != nil {
			return nil, fmt.Errorf("average cost of %s: %w", row.ProductModel, err)
		}
		costs[row.ProductModel] = ProductAverageCost{
			ProductModel:         row.ProductModel,
			AvgCostPrice:         types.Round(avg, types.AvgCostScale),
			TotalInboundQuantity: qty,
		}
	}
	return costs, nil
}

// SoldGoodsCost returns the cost of goods sold in scope, net of special
// income and floored at zero, rounded to two digits.
//
// Products without inbound history are valued at their selling price.
// With no qualifying outbound rows the result is zero and no inbound
// queries are issued.
func (e *CostEngine) SoldGoodsCost(ctx context.Context, scope ledger.Scope) (types.Money, error) {
	lines, err := e.repo.PricedLines(ctx, ledger.Outbound, scope)
	if err != nil {
		return types.Zero(), fmt.Errorf("outbound lines: %w", err)
	}
	if len(lines) == 0 {
		return types.Zero(), nil
	}

	inboundScope := scope.WithoutPartner()
	avgScope := inboundScope
	if e.basis == CostBasisAllTime {
		avgScope = avgScope.WithoutDates()
	}

	costs, err := e.AverageCosts(ctx, avgScope)
	if err != nil {
		return types.Zero(), err
	}

	total := types.Zero()
	for _, line := range lines {
		qty := types.FromSQLResult(line.Quantity, types.Zero(), types.DefaultScale)
		unitCost := types.FromSQLResult(line.UnitPrice, types.Zero(), types.DefaultScale)
		if avg, ok := costs[line.ProductModel]; ok {
			unitCost = avg.AvgCostPrice
		}
		total = types.Add(total, types.Mul(qty, unitCost))
	}

	special, err := e.repo.SpecialAmount(ctx, ledger.Inbound, inboundScope)
	if err != nil {
		return types.Zero(), fmt.Errorf("special income: %w", err)
	}
	specialIncome := types.FromSQLResult(special, types.Zero(), types.AmountScale)

	return types.Round(types.MaxZero(types.Sub(total, specialIncome)), types.AmountScale), nil
}
