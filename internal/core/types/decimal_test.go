package types

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSQLResult(t *testing.T) {
	fallback := MustMoney("-1")
	noisy := 5600.000000000001
	str := "12.3456"

	tests := []struct {
		name  string
		value any
		scale int32
		want  string
	}{
		{name: "nil uses fallback", value: nil, scale: 2, want: "-1"},
		{name: "nil pointer uses fallback", value: (*float64)(nil), scale: 2, want: "-1"},
		{name: "float noise absorbed", value: noisy, scale: 2, want: "5600"},
		{name: "float pointer", value: &noisy, scale: 5, want: "5600"},
		{name: "int64", value: int64(42), scale: 0, want: "42"},
		{name: "string half-up", value: "2.345", scale: 2, want: "2.35"},
		{name: "negative half away from zero", value: "-2.345", scale: 2, want: "-2.35"},
		{name: "string pointer", value: &str, scale: 2, want: "12.35"},
		{name: "bytes", value: []byte("7.5"), scale: 0, want: "8"},
		{name: "garbage uses fallback", value: "abc", scale: 2, want: "-1"},
		{name: "empty string uses fallback", value: "", scale: 2, want: "-1"},
		{name: "null decimal", value: decimal.NullDecimal{}, scale: 2, want: "-1"},
		{name: "valid null decimal", value: decimal.NullDecimal{Decimal: MustMoney("1.239"), Valid: true}, scale: 2, want: "1.24"},
		{name: "unsupported type", value: struct{}{}, scale: 2, want: "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromSQLResult(tt.value, fallback, tt.scale)
			assert.True(t, MustMoney(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestToDBNumber(t *testing.T) {
	assert.Equal(t, 33.33, ToDBNumber(MustMoney("33.3333333"), 2))
	assert.Equal(t, 0.3, ToDBNumber(Add(NewMoney(0.1), NewMoney(0.2)), 5))
	assert.Equal(t, 1.01, ToDBNumber(MustMoney("1.005"), 2))
}

func TestDiv(t *testing.T) {
	got, err := Div(MustMoney("10"), MustMoney("4"))
	require.NoError(t, err)
	assert.True(t, MustMoney("2.5").Equal(got))

	_, err = Div(MustMoney("10"), Zero())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDivisionByZero))
}

func TestSumAndMaxZero(t *testing.T) {
	assert.True(t, Zero().Equal(Sum()))
	assert.True(t, MustMoney("0.6").Equal(Sum(NewMoney(0.1), NewMoney(0.2), NewMoney(0.3))))
	assert.True(t, Zero().Equal(MaxZero(MustMoney("-5"))))
	assert.True(t, MustMoney("5").Equal(MaxZero(MustMoney("5"))))
}

func TestPercent(t *testing.T) {
	assert.True(t, MustMoney("33.33").Equal(Percent(MustMoney("200"), MustMoney("600"), 2)))
	assert.True(t, Zero().Equal(Percent(MustMoney("200"), Zero(), 2)))
	assert.True(t, Zero().Equal(Percent(MustMoney("-10"), MustMoney("-5"), 2)))
}
