package reports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/core/types"
	"tradeflow/internal/domain/ledger"
)

func newAggregator(fake *fakeLedger) *SalesAggregator {
	return NewSalesAggregator(fake, NewCostEngine(fake, CostBasisRange), DefaultTopN)
}

func topSalesFixture(tail ...string) *fakeLedger {
	var entries []ledger.Entry
	for i := 0; i < 10; i++ {
		entries = append(entries, out(fmt.Sprintf("P%02d", i+1), "1", fmt.Sprint(100-10*i), "2024-03-01"))
	}
	for i, price := range tail {
		entries = append(entries, out(fmt.Sprintf("P%02d", 11+i), "1", price, "2024-03-01"))
	}
	return newFakeLedger(entries...)
}

func TestTopSales_AppendsOthers(t *testing.T) {
	top, err := newAggregator(topSalesFixture("5", "3")).TopSales(context.Background(), year2024)
	require.NoError(t, err)

	require.Len(t, top, 11)
	assert.Equal(t, TopSalesProduct{ProductModel: "P01", TotalSales: 100}, top[0])
	assert.Equal(t, TopSalesProduct{ProductModel: "P10", TotalSales: 10}, top[9])
	assert.Equal(t, TopSalesProduct{ProductModel: OthersLabel, TotalSales: 8}, top[10])
}

func TestTopSales_NoOthersWhenRemainderIsZero(t *testing.T) {
	top, err := newAggregator(topSalesFixture("0", "0")).TopSales(context.Background(), year2024)
	require.NoError(t, err)

	require.Len(t, top, 10)
	for _, row := range top {
		assert.NotEqual(t, OthersLabel, row.ProductModel)
	}
}

func TestTopSales_FewerThanTopN(t *testing.T) {
	fake := newFakeLedger(
		out("A", "2", "10", "2024-03-01"),
		out("B", "1", "30", "2024-03-01"),
		out("B", "1", "-5", "2024-03-01"),
	)
	top, err := newAggregator(fake).TopSales(context.Background(), year2024)
	require.NoError(t, err)
	assert.Equal(t, []TopSalesProduct{
		{ProductModel: "B", TotalSales: 30},
		{ProductModel: "A", TotalSales: 20},
	}, top)
}

func TestOverview_NetsSpecialRows(t *testing.T) {
	fake := newFakeLedger(
		in("X", "10", "100", "2024-01-01"),
		in("X", "5", "-20", "2024-01-02"),
		out("X", "4", "150", "2024-02-01"),
		out("X", "1", "-30", "2024-02-02"),
	)
	fake.partners[ledger.Supplier] = []Partner{{Code: "S001"}}
	fake.partners[ledger.Customer] = []Partner{{Code: "C001"}, {Code: "C002"}}

	agg := newAggregator(fake)
	levels := map[string]types.Money{"X": types.MustMoney("10"), "Y": types.Zero(), "Z": types.MustMoney("-2")}
	stats, err := agg.Overview(context.Background(), year2024, types.MustMoney("300"), levels, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 900.0, stats.TotalPurchaseAmount)
	assert.Equal(t, 570.0, stats.TotalSalesAmount)
	assert.Equal(t, 300.0, stats.SoldGoodsCost)
	assert.EqualValues(t, 2, stats.TotalInbound)
	assert.EqualValues(t, 2, stats.TotalOutbound)
	assert.EqualValues(t, 1, stats.Suppliers)
	assert.EqualValues(t, 2, stats.Customers)
	assert.EqualValues(t, 1, stats.Products)
	assert.EqualValues(t, 2, stats.InventoryedProducts)
	assert.Equal(t, []string{"Y", "Z"}, stats.OutOfInventoryProducts)
}

func mustQuery(t *testing.T, p AnalysisParams) analysisQuery {
	t.Helper()
	q, err := p.validate()
	require.NoError(t, err)
	return q
}

func TestAnalyze_ProfitRateZeroWithoutSales(t *testing.T) {
	fake := newFakeLedger(in("X", "100", "10", "2024-01-01"))
	q := mustQuery(t, AnalysisParams{StartDate: "2024-01-01", EndDate: "2024-12-31"})

	result, err := newAggregator(fake).Analyze(context.Background(), q, time.Now())
	require.NoError(t, err)
	require.NotNil(t, result.SalesFigures)
	assert.Zero(t, result.SalesAmount)
	assert.Zero(t, result.ProfitRate)
	assert.Nil(t, result.PurchaseFigures)
}

func TestAnalyze_Inbound(t *testing.T) {
	fake := newFakeLedger(
		in("X", "10", "100", "2024-01-01"),
		in("X", "5", "-20", "2024-01-02"),
	)
	q := mustQuery(t, AnalysisParams{StartDate: "2024-01-01", EndDate: "2024-12-31", Type: "inbound"})

	result, err := newAggregator(fake).Analyze(context.Background(), q, time.Now())
	require.NoError(t, err)
	require.NotNil(t, result.PurchaseFigures)
	assert.Nil(t, result.SalesFigures)
	assert.Equal(t, 1000.0, result.PurchaseAmount)
	assert.Equal(t, 100.0, result.SpecialIncome)
	assert.Equal(t, 900.0, result.NetPurchaseAmount)
}

func TestDetail_GroupsByMissingDimension(t *testing.T) {
	fake := newFakeLedger(
		in("X", "100", "10", "2024-01-01"),
		outTo("C001", "X", "10", "15", "2024-02-01"),
		outTo("C002", "X", "20", "12", "2024-02-03"),
		outTo("C003", "X", "1", "0", "2024-02-03"),
		outTo("C001", "Y", "1", "99", "2024-02-04"),
	)
	agg := newAggregator(fake)

	q := mustQuery(t, AnalysisParams{StartDate: "2024-01-01", EndDate: "2024-12-31", ProductModel: strPtr("X")})
	items, err := agg.Detail(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, items, 2, "zero-amount group C003 is dropped")
	assert.Equal(t, DetailItem{
		GroupBy: "partner", Code: "C002", Name: "Customer C002",
		Amount: 240, CostAmount: 200, ProfitAmount: 40, ProfitRate: 16.67,
	}, items[0])
	assert.Equal(t, DetailItem{
		GroupBy: "partner", Code: "C001", Name: "Customer C001",
		Amount: 150, CostAmount: 100, ProfitAmount: 50, ProfitRate: 33.33,
	}, items[1])

	q = mustQuery(t, AnalysisParams{StartDate: "2024-01-01", EndDate: "2024-12-31", PartnerCode: strPtr("C001")})
	items, err = agg.Detail(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "product", items[0].GroupBy)
	assert.Equal(t, "X", items[0].Code)
	assert.Equal(t, "Y", items[1].Code)
	// Y has no inbound history so its cost is its selling price
	assert.Equal(t, 99.0, items[1].CostAmount)
	assert.Zero(t, items[1].ProfitRate)
}

func TestDetail_EmptyUnlessExactlyOneFilter(t *testing.T) {
	fake := newFakeLedger(out("X", "1", "10", "2024-02-01"))
	agg := newAggregator(fake)

	for _, p := range []AnalysisParams{
		{StartDate: "2024-01-01", EndDate: "2024-12-31"},
		{StartDate: "2024-01-01", EndDate: "2024-12-31", PartnerCode: strPtr("C001"), ProductModel: strPtr("X")},
	} {
		items, err := agg.Detail(context.Background(), mustQuery(t, p))
		require.NoError(t, err)
		assert.Empty(t, items)
		assert.NotNil(t, items)
	}
	assert.Zero(t, fake.callCount("AmountsByPartner"))
	assert.Zero(t, fake.callCount("AmountsByProduct"))
}
