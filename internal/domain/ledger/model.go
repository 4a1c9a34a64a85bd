// Package ledger describes the inbound/outbound trade records the analytics
// core reads. The ledger is append-mostly and never written from here.
package ledger

import (
	"fmt"
	"time"

	"tradeflow/internal/core/types"
)

// DateLayout is the calendar date format used in requests, cache keys and rows.
const DateLayout = "2006-01-02"

// Direction distinguishes inbound (purchases) from outbound (sales) records.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// ParseDirection accepts "inbound" or "outbound"; empty defaults to outbound.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case "", Outbound:
		return Outbound, nil
	case Inbound:
		return Inbound, nil
	}
	return "", fmt.Errorf("unknown ledger direction %q", s)
}

// PartnerKind returns the kind of partner on the other side of the record.
func (d Direction) PartnerKind() PartnerKind {
	if d == Inbound {
		return Supplier
	}
	return Customer
}

// PartnerKind mirrors partners.type.
type PartnerKind int

const (
	Supplier PartnerKind = 0
	Customer PartnerKind = 1
)

// Entry is one inbound or outbound ledger row.
//
// Quantity is positive by convention; the sign lives in UnitPrice. A negative
// unit price is a non-trade adjustment (rebate, discount correction) and is
// reported as special income (inbound) or special expense (outbound).
type Entry struct {
	Direction        Direction
	PartnerCode      string
	PartnerShortName string
	ProductCode      string
	ProductModel     string
	Quantity         types.Money
	UnitPrice        types.Money
	Date             time.Time
	OrderNumber      string
	Remark           string
}

// IsSpecial reports whether the entry is a special adjustment.
func (e Entry) IsSpecial() bool {
	return e.UnitPrice.IsNegative()
}

// Amount returns quantity * unit price.
func (e Entry) Amount() types.Money {
	return types.Mul(e.Quantity, e.UnitPrice)
}

// Scope restricts a ledger query. Zero dates are unbounded and empty
// codes match everything. From and To are inclusive calendar dates.
type Scope struct {
	From         time.Time
	To           time.Time
	PartnerCode  string
	ProductModel string
}

// Contains reports whether e falls inside the scope.
func (s Scope) Contains(e Entry) bool {
	day := truncateDay(e.Date)
	if !s.From.IsZero() && day.Before(truncateDay(s.From)) {
		return false
	}
	if !s.To.IsZero() && day.After(truncateDay(s.To)) {
		return false
	}
	if s.PartnerCode != "" && e.PartnerCode != s.PartnerCode {
		return false
	}
	if s.ProductModel != "" && e.ProductModel != s.ProductModel {
		return false
	}
	return true
}

// WithoutPartner drops the partner filter. Partner codes belong to one
// direction, so scopes crossing directions keep only the product filter.
func (s Scope) WithoutPartner() Scope {
	s.PartnerCode = ""
	return s
}

// WithoutDates removes the date range.
func (s Scope) WithoutDates() Scope {
	s.From = time.Time{}
	s.To = time.Time{}
	return s
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of t's month at midnight in t's location.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}
