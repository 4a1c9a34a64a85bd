package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/core/types"
)

func TestMonthlyChanges(t *testing.T) {
	fake := newFakeLedger(
		in("X", "100", "10", "2024-01-01"),
		out("X", "40", "15", "2024-02-01"),
		in("X", "10", "11", "2024-06-01"),
		out("X", "3", "15", "2024-06-15"),
		out("X", "500", "15", "2024-07-01"), // after now
		in("Y", "5", "2", "2024-06-10"),
	)
	fake.noise = 1e-9
	now := time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)

	changes, err := NewInventoryCalculator(fake, types.QuantityScale).MonthlyChanges(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	assert.Equal(t, MonthlyInventoryChange{
		ProductModel:        "X",
		MonthStartInventory: 60,
		MonthlyInbound:      10,
		MonthlyOutbound:     3,
		MonthlyChange:       7,
		CurrentInventory:    67,
		QueryDate:           "2024-06-15",
	}, changes["X"])

	assert.Equal(t, 0.0, changes["Y"].MonthStartInventory)
	assert.Equal(t, 5.0, changes["Y"].CurrentInventory)

	// four independent sums per product
	assert.Equal(t, 8, fake.callCount("QuantitySum"))
}

func TestMonthlyChanges_QueryFailure(t *testing.T) {
	fake := newFakeLedger(in("X", "1", "1", "2024-01-01"))
	fake.failOn("QuantitySum")

	_, err := NewInventoryCalculator(fake, 0).MonthlyChanges(context.Background(), time.Now())
	assert.ErrorIs(t, err, errLedgerDown)
}

func TestLevels(t *testing.T) {
	fake := newFakeLedger(
		in("X", "100", "10", "2024-01-01"),
		in("X", "10", "12", "2024-03-01"),
		out("X", "40", "15", "2024-02-01"),
		in("Y", "5", "2", "2024-01-01"),
		out("Y", "5", "3", "2024-01-02"),
	)

	levels, summary, err := NewInventoryCalculator(fake, 0).Levels(context.Background(), time.Now())
	require.NoError(t, err)

	assert.True(t, types.MustMoney("70").Equal(levels["X"]))
	assert.True(t, levels["Y"].IsZero())

	x := summary.Products["X"]
	assert.Equal(t, 70.0, x.CurrentInventory)
	require.NotNil(t, x.LastInboundDate)
	assert.Equal(t, "2024-03-01", *x.LastInboundDate)
	require.NotNil(t, x.LastOutboundDate)
	assert.Equal(t, "2024-02-01", *x.LastOutboundDate)

	// latest inbound price 12 * 70 in stock, Y has no stock
	assert.Equal(t, 840.0, summary.TotalCostEstimate)
}
