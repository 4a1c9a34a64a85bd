package reports

import (
	"context"
	"fmt"
	"time"

	"tradeflow/internal/core/types"
	"tradeflow/internal/domain/ledger"
)

// InventoryCalculator reconstructs stock levels from cumulative movements.
type InventoryCalculator struct {
	repo          Repository
	quantityScale int32
}

// NewInventoryCalculator creates an inventory calculator.
func NewInventoryCalculator(repo Repository, quantityScale int32) *InventoryCalculator {
	return &InventoryCalculator{repo: repo, quantityScale: quantityScale}
}

// MonthlyChanges returns, for every product, the stock at the start of now's
// month and the movement since. Each of the four sums is its own query.
func (c *InventoryCalculator) MonthlyChanges(ctx context.Context, now time.Time) (map[string]MonthlyInventoryChange, error) {
	models, err := c.repo.ProductModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("product models: %w", err)
	}

	monthStart := ledger.MonthStart(now)
	// through the end of today
	until := ledger.MonthStart(now).AddDate(0, 0, now.Day())
	queryDate := now.Format(ledger.DateLayout)

	changes := make(map[string]MonthlyInventoryChange, len(models))
	for _, model := range models {
		beforeIn, err := c.sum(ctx, ledger.Inbound, model, time.Time{}, monthStart)
		if err != nil {
			return nil, err
		}
		beforeOut, err := c.sum(ctx, ledger.Outbound, model, time.Time{}, monthStart)
		if err != nil {
			return nil, err
		}
		monthIn, err := c.sum(ctx, ledger.Inbound, model, monthStart, until)
		if err != nil {
			return nil, err
		}
		monthOut, err := c.sum(ctx, ledger.Outbound, model, monthStart, until)
		if err != nil {
			return nil, err
		}

		start := types.Sub(beforeIn, beforeOut)
		change := types.Sub(monthIn, monthOut)
		changes[model] = MonthlyInventoryChange{
			ProductModel:        model,
			MonthStartInventory: types.ToDBNumber(start, c.quantityScale),
			MonthlyInbound:      types.ToDBNumber(monthIn, c.quantityScale),
			MonthlyOutbound:     types.ToDBNumber(monthOut, c.quantityScale),
			MonthlyChange:       types.ToDBNumber(change, c.quantityScale),
			CurrentInventory:    types.ToDBNumber(types.Add(start, change), c.quantityScale),
			QueryDate:           queryDate,
		}
	}
	return changes, nil
}

func (c *InventoryCalculator) sum(ctx context.Context, dir ledger.Direction, model string, from, before time.Time) (types.Money, error) {
	raw, err := c.repo.QuantitySum(ctx, dir, model, from, before)
	if err != nil {
		return types.Zero(), fmt.Errorf("%s quantity of %s: %w", dir, model, err)
	}
	return types.FromSQLResult(raw, types.Zero(), c.quantityScale), nil
}

// Levels returns the all-time stock per product (inbound - outbound) together
// with the summary built from the same rows.
func (c *InventoryCalculator) Levels(ctx context.Context, now time.Time) (map[string]types.Money, *InventorySummary, error) {
	rows, err := c.repo.InventoryTotals(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("inventory totals: %w", err)
	}

	levels := make(map[string]types.Money, len(rows))
	summary := &InventorySummary{
		Products:    make(map[string]InventoryStatus, len(rows)),
		LastUpdated: now,
	}
	estimate := types.Zero()
	for _, row := range rows {
		in := types.FromSQLResult(row.InboundQuantity, types.Zero(), c.quantityScale)
		out := types.FromSQLResult(row.OutboundQuantity, types.Zero(), c.quantityScale)
		stock := types.Sub(in, out)
		levels[row.ProductModel] = stock

		summary.Products[row.ProductModel] = InventoryStatus{
			CurrentInventory: types.ToDBNumber(stock, c.quantityScale),
			LastInboundDate:  formatDate(row.LastInboundDate),
			LastOutboundDate: formatDate(row.LastOutboundDate),
		}
		if stock.IsPositive() && row.LatestInboundPrice != nil {
			price := types.FromSQLResult(row.LatestInboundPrice, types.Zero(), types.DefaultScale)
			estimate = types.Add(estimate, types.Mul(price, stock))
		}
	}
	summary.TotalCostEstimate = types.ToDBNumber(estimate, types.AmountScale)
	return levels, summary, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(ledger.DateLayout)
	return &s
}
