// Package types provides the decimal arithmetic used by every money and
// quantity calculation in the analytics core.
package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value or quantity with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Scales used across reports.
const (
	DefaultScale  int32 = 5
	AmountScale   int32 = 2
	AvgCostScale  int32 = 4
	QuantityScale int32 = 0
)

// ErrDivisionByZero is returned by Div when the divisor is zero.
var ErrDivisionByZero = errors.New("decimal division by zero")

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// NewMoney creates a Money value from a float.
// WARNING: float literals carry binary noise, prefer MustMoney for constants.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromSQLResult converts a raw aggregate value returned by the database driver
// into Money rounded half-up to scale. NULL and unparseable values yield fallback.
//
// Every aggregate read from the ledger must pass through here before any
// further arithmetic, so that driver float noise (5600.000000000001) is
// absorbed at the boundary.
func FromSQLResult(v any, fallback Money, scale int32) Money {
	d, ok := parseRaw(v)
	if !ok {
		return fallback
	}
	return Round(d, scale)
}

func parseRaw(v any) (Money, bool) {
	switch x := v.(type) {
	case nil:
		return Money{}, false
	case Money:
		return x, true
	case *Money:
		if x == nil {
			return Money{}, false
		}
		return *x, true
	case decimal.NullDecimal:
		return x.Decimal, x.Valid
	case float64:
		return decimal.NewFromFloat(x), true
	case *float64:
		if x == nil {
			return Money{}, false
		}
		return decimal.NewFromFloat(*x), true
	case float32:
		return decimal.NewFromFloat32(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int32:
		return decimal.NewFromInt32(x), true
	case int64:
		return decimal.NewFromInt(x), true
	case *int64:
		if x == nil {
			return Money{}, false
		}
		return decimal.NewFromInt(*x), true
	case string:
		return parseString(x)
	case *string:
		if x == nil {
			return Money{}, false
		}
		return parseString(*x)
	case []byte:
		return parseString(string(x))
	case driver.Valuer:
		raw, err := x.Value()
		if err != nil {
			return Money{}, false
		}
		if _, loop := raw.(driver.Valuer); loop {
			return Money{}, false
		}
		return parseRaw(raw)
	default:
		return Money{}, false
	}
}

func parseString(s string) (Money, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, false
	}
	return d, true
}

// ToDBNumber rounds d to scale and returns it as a plain float64 for
// serialization. Call it only at the final output step.
func ToDBNumber(d Money, scale int32) float64 {
	f, _ := Round(d, scale).Float64()
	return f
}

// Round rounds half away from zero (1.005 -> 1.01, -1.005 -> -1.01).
func Round(d Money, scale int32) Money {
	return d.Round(scale)
}

// Add returns a + b.
func Add(a, b Money) Money { return a.Add(b) }

// Sub returns a - b.
func Sub(a, b Money) Money { return a.Sub(b) }

// Mul returns a * b.
func Mul(a, b Money) Money { return a.Mul(b) }

// Div returns a / b with 16 digits of precision.
func Div(a, b Money) (Money, error) {
	if b.IsZero() {
		return Money{}, fmt.Errorf("%w: %s / 0", ErrDivisionByZero, a.String())
	}
	return a.Div(b), nil
}

// Sum adds all values, returning zero for an empty list.
func Sum(values ...Money) Money {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// MaxZero floors d at zero.
func MaxZero(d Money) Money {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Percent returns part/whole*100 rounded to scale, or zero when whole <= 0.
func Percent(part, whole Money, scale int32) Money {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return Round(part.Div(whole).Mul(decimal.NewFromInt(100)), scale)
}
