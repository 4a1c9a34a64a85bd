package reports

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/core/types"
	"tradeflow/internal/domain/ledger"
)

var year2024 = ledger.Scope{From: date("2024-01-01"), To: date("2024-12-31")}

func TestCostEngine_WeightedAverageIsOrderIndependent(t *testing.T) {
	rows := []ledger.Entry{
		in("X", "10", "5", "2024-01-02"),
		in("X", "30", "9", "2024-01-03"),
		in("X", "60", "12", "2024-01-04"),
	}
	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}}

	for _, order := range orders {
		entries := make([]ledger.Entry, 0, len(rows))
		for _, i := range order {
			entries = append(entries, rows[i])
		}
		fake := newFakeLedger(entries...)
		fake.noise = 1e-12

		costs, err := NewCostEngine(fake, CostBasisRange).AverageCosts(context.Background(), year2024)
		require.NoError(t, err)
		require.Contains(t, costs, "X")
		// (50 + 270 + 720) / 100, not the plain mean of 5, 9 and 12
		assert.True(t, types.MustMoney("10.4").Equal(costs["X"].AvgCostPrice), "got %s", costs["X"].AvgCostPrice)
		assert.True(t, types.MustMoney("100").Equal(costs["X"].TotalInboundQuantity))
	}
}

func TestCostEngine_QuantitiesKeepNumericPrecision(t *testing.T) {
	fake := newFakeLedger(
		in("X", "12345678901234.5678", "1", "2024-01-02"),
		in("Y", "0.1", "3", "2024-01-02"),
		in("Y", "0.2", "3", "2024-01-03"),
	)

	costs, err := NewCostEngine(fake, CostBasisRange).AverageCosts(context.Background(), year2024)
	require.NoError(t, err)
	// 18 significant digits do not survive a float8 round trip
	assert.True(t, types.MustMoney("12345678901234.5678").Equal(costs["X"].TotalInboundQuantity), "got %s", costs["X"].TotalInboundQuantity)
	assert.True(t, types.MustMoney("0.3").Equal(costs["Y"].TotalInboundQuantity), "got %s", costs["Y"].TotalInboundQuantity)
}

func TestCostEngine_ZeroQuantityHasNoAverage(t *testing.T) {
	fake := newFakeLedger(in("X", "0", "10", "2024-01-02"))

	costs, err := NewCostEngine(fake, CostBasisRange).AverageCosts(context.Background(), year2024)
	require.NoError(t, err)
	assert.NotContains(t, costs, "X")
}

func TestCostEngine_SoldGoodsCost(t *testing.T) {
	tests := []struct {
		name    string
		entries []ledger.Entry
		want    string
	}{
		{
			name: "valued at average inbound cost",
			entries: []ledger.Entry{
				in("X", "100", "10", "2024-01-01"),
				out("X", "40", "15", "2024-02-01"),
			},
			want: "400",
		},
		{
			name: "falls back to selling price without inbound history",
			entries: []ledger.Entry{
				out("Y", "3", "25.5", "2024-02-01"),
			},
			want: "76.5",
		},
		{
			name: "mixed products",
			entries: []ledger.Entry{
				in("X", "100", "10", "2024-01-01"),
				out("X", "40", "15", "2024-02-01"),
				out("Y", "2", "7", "2024-02-01"),
			},
			want: "414",
		},
		{
			name: "special income is netted",
			entries: []ledger.Entry{
				in("X", "100", "10", "2024-01-01"),
				in("X", "5", "-20", "2024-01-05"),
				out("X", "40", "15", "2024-02-01"),
			},
			want: "300",
		},
		{
			name: "floors at zero when special income exceeds cost",
			entries: []ledger.Entry{
				in("X", "10", "10", "2024-01-01"),
				in("X", "5", "-100", "2024-01-05"),
				out("X", "10", "20", "2024-02-01"),
			},
			want: "0",
		},
		{
			name: "special outbound rows are not sold goods",
			entries: []ledger.Entry{
				in("X", "10", "10", "2024-01-01"),
				out("X", "1", "-50", "2024-02-01"),
				out("X", "2", "20", "2024-02-01"),
			},
			want: "20",
		},
		{
			name: "inbound outside the range does not count",
			entries: []ledger.Entry{
				in("X", "10", "1", "2023-06-01"),
				out("X", "2", "20", "2024-02-01"),
			},
			want: "40",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeLedger(tt.entries...)
			got, err := NewCostEngine(fake, CostBasisRange).SoldGoodsCost(context.Background(), year2024)
			require.NoError(t, err)
			assert.True(t, types.MustMoney(tt.want).Equal(got), "want %s, got %s", tt.want, got)
			assert.False(t, got.IsNegative())
		})
	}
}

func TestCostEngine_AllTimeBasis(t *testing.T) {
	fake := newFakeLedger(
		in("X", "10", "1", "2023-06-01"),
		out("X", "2", "20", "2024-02-01"),
	)

	got, err := NewCostEngine(fake, CostBasisAllTime).SoldGoodsCost(context.Background(), year2024)
	require.NoError(t, err)
	assert.True(t, types.MustMoney("2").Equal(got), "got %s", got)
}

func TestCostEngine_NoOutboundShortCircuits(t *testing.T) {
	fake := newFakeLedger(in("X", "100", "10", "2024-01-01"))

	got, err := NewCostEngine(fake, CostBasisRange).SoldGoodsCost(context.Background(), year2024)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
	assert.Equal(t, 1, fake.callCount("PricedLines"))
	assert.Zero(t, fake.callCount("InboundCostBasis"))
	assert.Zero(t, fake.callCount("SpecialAmount"))
}

func TestCostEngine_QueryFailurePropagates(t *testing.T) {
	for _, method := range []string{"PricedLines", "InboundCostBasis", "SpecialAmount"} {
		t.Run(method, func(t *testing.T) {
			fake := newFakeLedger(
				in("X", "100", "10", "2024-01-01"),
				out("X", "40", "15", "2024-02-01"),
			)
			fake.failOn(method)

			_, err := NewCostEngine(fake, CostBasisRange).SoldGoodsCost(context.Background(), year2024)
			require.Error(t, err)
			assert.ErrorIs(t, err, errLedgerDown)
		})
	}
}

func TestParseCostBasis(t *testing.T) {
	b, err := ParseCostBasis("")
	require.NoError(t, err)
	assert.Equal(t, CostBasisRange, b)

	b, err = ParseCostBasis("all_time")
	require.NoError(t, err)
	assert.Equal(t, CostBasisAllTime, b)

	_, err = ParseCostBasis("fifo")
	assert.Error(t, err)
}
