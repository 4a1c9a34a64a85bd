package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeflow/internal/core/types"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestScopeContains(t *testing.T) {
	e := Entry{PartnerCode: "C001", ProductModel: "M100", Date: day("2024-03-15")}

	tests := []struct {
		name  string
		scope Scope
		want  bool
	}{
		{name: "unbounded", scope: Scope{}, want: true},
		{name: "inclusive bounds", scope: Scope{From: day("2024-03-15"), To: day("2024-03-15")}, want: true},
		{name: "before range", scope: Scope{From: day("2024-03-16")}, want: false},
		{name: "after range", scope: Scope{To: day("2024-03-14")}, want: false},
		{name: "partner match", scope: Scope{PartnerCode: "C001"}, want: true},
		{name: "partner mismatch", scope: Scope{PartnerCode: "C002"}, want: false},
		{name: "product mismatch", scope: Scope{ProductModel: "M200"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scope.Contains(e))
		})
	}
}

func TestEntrySpecial(t *testing.T) {
	e := Entry{Quantity: types.MustMoney("5"), UnitPrice: types.MustMoney("-20")}
	assert.True(t, e.IsSpecial())
	assert.True(t, types.MustMoney("-100").Equal(e.Amount()))
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, Outbound, d)
	assert.Equal(t, Customer, d.PartnerKind())

	d, err = ParseDirection("inbound")
	require.NoError(t, err)
	assert.Equal(t, Supplier, d.PartnerKind())

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestMonthStart(t *testing.T) {
	got := MonthStart(time.Date(2024, 2, 29, 17, 4, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), got)
}
