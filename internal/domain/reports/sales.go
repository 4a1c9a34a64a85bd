package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tradeflow/internal/core/types"
	"tradeflow/internal/domain/ledger"
)

// DefaultTopN is the number of ranked products before the "Others" row.
const DefaultTopN = 10

// SalesAggregator derives sales, purchase and profit figures from the ledger.
type SalesAggregator struct {
	repo Repository
	cost *CostEngine
	topN int
}

// NewSalesAggregator creates a sales aggregator.
func NewSalesAggregator(repo Repository, cost *CostEngine, topN int) *SalesAggregator {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &SalesAggregator{repo: repo, cost: cost, topN: topN}
}

// netAmount returns (normal, special, normal - special) for one direction.
func (a *SalesAggregator) netAmount(ctx context.Context, dir ledger.Direction, scope ledger.Scope) (normal, special, net types.Money, err error) {
	rawNormal, err := a.repo.NormalAmount(ctx, dir, scope)
	if err != nil {
		return normal, special, net, fmt.Errorf("%s normal amount: %w", dir, err)
	}
	rawSpecial, err := a.repo.SpecialAmount(ctx, dir, scope)
	if err != nil {
		return normal, special, net, fmt.Errorf("%s special amount: %w", dir, err)
	}
	normal = types.FromSQLResult(rawNormal, types.Zero(), types.DefaultScale)
	special = types.FromSQLResult(rawSpecial, types.Zero(), types.AmountScale)
	return normal, special, types.Sub(normal, special), nil
}

// Overview computes the dashboard statistics over window. soldGoodsCost must
// come from the cost engine for the same window; inventory is the all-time
// stock position per product.
func (a *SalesAggregator) Overview(ctx context.Context, window ledger.Scope, soldGoodsCost types.Money, inventory map[string]types.Money, now time.Time) (*OverviewStats, error) {
	stats := &OverviewStats{
		WindowStart: window.From.Format(ledger.DateLayout),
		WindowEnd:   window.To.Format(ledger.DateLayout),
		LastUpdated: now,
	}

	var err error
	if stats.TotalInbound, err = a.repo.CountEntries(ctx, ledger.Inbound, window); err != nil {
		return nil, fmt.Errorf("count inbound: %w", err)
	}
	if stats.TotalOutbound, err = a.repo.CountEntries(ctx, ledger.Outbound, window); err != nil {
		return nil, fmt.Errorf("count outbound: %w", err)
	}
	if stats.Suppliers, err = a.repo.CountPartners(ctx, ledger.Supplier); err != nil {
		return nil, fmt.Errorf("count suppliers: %w", err)
	}
	if stats.Customers, err = a.repo.CountPartners(ctx, ledger.Customer); err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}
	if stats.Products, err = a.repo.CountProducts(ctx); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	_, _, purchase, err := a.netAmount(ctx, ledger.Inbound, window)
	if err != nil {
		return nil, err
	}
	_, _, sales, err := a.netAmount(ctx, ledger.Outbound, window)
	if err != nil {
		return nil, err
	}
	stats.TotalPurchaseAmount = types.ToDBNumber(purchase, types.AmountScale)
	stats.TotalSalesAmount = types.ToDBNumber(sales, types.AmountScale)
	stats.SoldGoodsCost = types.ToDBNumber(soldGoodsCost, types.AmountScale)

	stats.OutOfInventoryProducts = make([]string, 0)
	for model, qty := range inventory {
		if !qty.IsZero() {
			stats.InventoryedProducts++
		}
		if !qty.IsPositive() {
			stats.OutOfInventoryProducts = append(stats.OutOfInventoryProducts, model)
		}
	}
	sort.Strings(stats.OutOfInventoryProducts)

	return stats, nil
}

// TopSales ranks products by positive-price outbound amount in scope and
// folds everything past the top N into one "Others" row, added only when
// that remainder is positive.
func (a *SalesAggregator) TopSales(ctx context.Context, scope ledger.Scope) ([]TopSalesProduct, error) {
	rows, err := a.repo.AmountsByProduct(ctx, ledger.Outbound, scope)
	if err != nil {
		return nil, fmt.Errorf("sales by product: %w", err)
	}

	type ranked struct {
		model string
		total types.Money
	}
	items := make([]ranked, 0, len(rows))
	for _, row := range rows {
		items = append(items, ranked{
			model: row.Code,
			total: types.FromSQLResult(row.Amount, types.Zero(), types.AmountScale),
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if c := items[i].total.Cmp(items[j].total); c != 0 {
			return c > 0
		}
		return items[i].model < items[j].model
	})

	n := min(a.topN, len(items))
	result := make([]TopSalesProduct, 0, n+1)
	for _, it := range items[:n] {
		result = append(result, TopSalesProduct{
			ProductModel: it.model,
			TotalSales:   types.ToDBNumber(it.total, types.AmountScale),
		})
	}

	rest := types.Zero()
	for _, it := range items[n:] {
		rest = types.Add(rest, it.total)
	}
	if rest.IsPositive() {
		result = append(result, TopSalesProduct{
			ProductModel: OthersLabel,
			TotalSales:   types.ToDBNumber(rest, types.AmountScale),
		})
	}
	return result, nil
}

// Analyze computes the filtered analysis for q.
func (a *SalesAggregator) Analyze(ctx context.Context, q analysisQuery, now time.Time) (*AnalysisResult, error) {
	result := &AnalysisResult{QueryParams: q.params, LastUpdated: now}

	if q.direction == ledger.Inbound {
		normal, special, net, err := a.netAmount(ctx, ledger.Inbound, q.scope)
		if err != nil {
			return nil, err
		}
		result.PurchaseFigures = &PurchaseFigures{
			PurchaseAmount:    types.ToDBNumber(normal, types.AmountScale),
			SpecialIncome:     types.ToDBNumber(special, types.AmountScale),
			NetPurchaseAmount: types.ToDBNumber(net, types.AmountScale),
		}
		return result, nil
	}

	normal, special, net, err := a.netAmount(ctx, ledger.Outbound, q.scope)
	if err != nil {
		return nil, err
	}
	sales := types.Round(normal, types.AmountScale)

	cost, err := a.cost.SoldGoodsCost(ctx, q.scope)
	if err != nil {
		return nil, fmt.Errorf("sold goods cost: %w", err)
	}

	profit := types.Sub(sales, cost)
	result.SalesFigures = &SalesFigures{
		SalesAmount:    types.ToDBNumber(sales, types.AmountScale),
		SpecialExpense: types.ToDBNumber(special, types.AmountScale),
		NetSalesAmount: types.ToDBNumber(net, types.AmountScale),
		CostAmount:     types.ToDBNumber(cost, types.AmountScale),
		ProfitAmount:   types.ToDBNumber(profit, types.AmountScale),
		ProfitRate:     types.ToDBNumber(types.Percent(profit, sales, types.AmountScale), types.AmountScale),
	}
	return result, nil
}

// Detail breaks an analysis down by the dimension left at "All" when exactly
// one of partner/product is filtered. Otherwise the breakdown is empty.
// Groups with a non-positive amount are dropped; largest first.
func (a *SalesAggregator) Detail(ctx context.Context, q analysisQuery) ([]DetailItem, error) {
	byPartner := q.params.PartnerCode == AllFilter && q.params.ProductModel != AllFilter
	byProduct := q.params.ProductModel == AllFilter && q.params.PartnerCode != AllFilter
	if !byPartner && !byProduct {
		return []DetailItem{}, nil
	}

	groupBy := "product"
	var (
		rows []GroupAmountRow
		err  error
	)
	if byPartner {
		groupBy = "partner"
		rows, err = a.repo.AmountsByPartner(ctx, q.direction, q.scope)
	} else {
		rows, err = a.repo.AmountsByProduct(ctx, q.direction, q.scope)
	}
	if err != nil {
		return nil, fmt.Errorf("detail groups by %s: %w", groupBy, err)
	}

	items := make([]DetailItem, 0, len(rows))
	for _, row := range rows {
		amount := types.FromSQLResult(row.Amount, types.Zero(), types.AmountScale)
		if !amount.IsPositive() {
			continue
		}
		item := DetailItem{
			GroupBy: groupBy,
			Code:    row.Code,
			Name:    row.Name,
			Amount:  types.ToDBNumber(amount, types.AmountScale),
		}
		if item.Name == "" {
			item.Name = row.Code
		}

		if q.direction == ledger.Outbound {
			groupScope := q.scope
			if byPartner {
				groupScope.PartnerCode = row.Code
			} else {
				groupScope.ProductModel = row.Code
			}
			cost, err := a.cost.SoldGoodsCost(ctx, groupScope)
			if err != nil {
				return nil, fmt.Errorf("detail cost for %s: %w", row.Code, err)
			}
			profit := types.Sub(amount, cost)
			item.CostAmount = types.ToDBNumber(cost, types.AmountScale)
			item.ProfitAmount = types.ToDBNumber(profit, types.AmountScale)
			item.ProfitRate = types.ToDBNumber(types.Percent(profit, amount, types.AmountScale), types.AmountScale)
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Amount > items[j].Amount
	})
	return items, nil
}
