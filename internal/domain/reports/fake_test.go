package reports

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"tradeflow/internal/core/types"
	"tradeflow/internal/domain/ledger"
)

// fakeLedger evaluates Repository queries over in-memory entries.
type fakeLedger struct {
	mu       sync.Mutex
	entries  []ledger.Entry
	partners map[ledger.PartnerKind][]Partner
	products []string
	fail     map[string]error
	calls    map[string]int
	// noise is added to every float amount to mimic driver drift.
	noise float64
	// onFail is called whenever a query fails, like a Postgres error
	// aborting the surrounding transaction.
	onFail func()
}

func newFakeLedger(entries ...ledger.Entry) *fakeLedger {
	f := &fakeLedger{
		entries:  entries,
		partners: map[ledger.PartnerKind][]Partner{},
		fail:     map[string]error{},
		calls:    map[string]int{},
	}
	seen := map[string]bool{}
	for _, e := range entries {
		if !seen[e.ProductModel] {
			seen[e.ProductModel] = true
			f.products = append(f.products, e.ProductModel)
		}
	}
	sort.Strings(f.products)
	return f
}

var errLedgerDown = errors.New("ledger unavailable")

func (f *fakeLedger) track(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	err := f.fail[method]
	if err != nil && f.onFail != nil {
		f.onFail()
	}
	return err
}

func (f *fakeLedger) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeLedger) failOn(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = errLedgerDown
}

func (f *fakeLedger) raw(d types.Money) *float64 {
	v, _ := d.Float64()
	v += f.noise
	return &v
}

// qty renders a quantity the way Postgres renders NUMERIC as text.
func (f *fakeLedger) qty(d types.Money) *string {
	s := d.String()
	return &s
}

func (f *fakeLedger) match(dir ledger.Direction, scope ledger.Scope, keep func(ledger.Entry) bool) []ledger.Entry {
	var out []ledger.Entry
	for _, e := range f.entries {
		if e.Direction == dir && scope.Contains(e) && keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func normal(e ledger.Entry) bool  { return !e.IsSpecial() }
func special(e ledger.Entry) bool { return e.IsSpecial() }

func (f *fakeLedger) PricedLines(_ context.Context, dir ledger.Direction, scope ledger.Scope) ([]PricedLine, error) {
	if err := f.track("PricedLines"); err != nil {
		return nil, err
	}
	var lines []PricedLine
	for _, e := range f.match(dir, scope, normal) {
		lines = append(lines, PricedLine{ProductModel: e.ProductModel, Quantity: f.qty(e.Quantity), UnitPrice: f.raw(e.UnitPrice)})
	}
	return lines, nil
}

func (f *fakeLedger) InboundCostBasis(_ context.Context, scope ledger.Scope) ([]CostBasisRow, error) {
	if err := f.track("InboundCostBasis"); err != nil {
		return nil, err
	}
	values := map[string]types.Money{}
	qty := map[string]types.Money{}
	var order []string
	for _, e := range f.match(ledger.Inbound, scope, normal) {
		if _, ok := qty[e.ProductModel]; !ok {
			order = append(order, e.ProductModel)
		}
		values[e.ProductModel] = values[e.ProductModel].Add(e.Amount())
		qty[e.ProductModel] = qty[e.ProductModel].Add(e.Quantity)
	}
	rows := make([]CostBasisRow, 0, len(order))
	for _, m := range order {
		rows = append(rows, CostBasisRow{ProductModel: m, TotalValue: f.raw(values[m]), TotalQuantity: f.qty(qty[m])})
	}
	return rows, nil
}

func (f *fakeLedger) NormalAmount(_ context.Context, dir ledger.Direction, scope ledger.Scope) (*float64, error) {
	if err := f.track("NormalAmount"); err != nil {
		return nil, err
	}
	rows := f.match(dir, scope, normal)
	if len(rows) == 0 {
		return nil, nil
	}
	total := types.Zero()
	for _, e := range rows {
		total = total.Add(e.Amount())
	}
	return f.raw(total), nil
}

func (f *fakeLedger) SpecialAmount(_ context.Context, dir ledger.Direction, scope ledger.Scope) (*float64, error) {
	if err := f.track("SpecialAmount"); err != nil {
		return nil, err
	}
	rows := f.match(dir, scope, special)
	if len(rows) == 0 {
		return nil, nil
	}
	total := types.Zero()
	for _, e := range rows {
		total = total.Add(e.Amount().Abs())
	}
	return f.raw(total), nil
}

func (f *fakeLedger) group(dir ledger.Direction, scope ledger.Scope, key func(ledger.Entry) (string, string)) []GroupAmountRow {
	totals := map[string]types.Money{}
	names := map[string]string{}
	for _, e := range f.match(dir, scope, normal) {
		code, name := key(e)
		totals[code] = totals[code].Add(e.Amount())
		names[code] = name
	}
	rows := make([]GroupAmountRow, 0, len(totals))
	for code, total := range totals {
		rows = append(rows, GroupAmountRow{Code: code, Name: names[code], Amount: f.raw(total)})
	}
	sort.Slice(rows, func(i, j int) bool { return *rows[i].Amount > *rows[j].Amount })
	return rows
}

func (f *fakeLedger) AmountsByProduct(_ context.Context, dir ledger.Direction, scope ledger.Scope) ([]GroupAmountRow, error) {
	if err := f.track("AmountsByProduct"); err != nil {
		return nil, err
	}
	return f.group(dir, scope, func(e ledger.Entry) (string, string) { return e.ProductModel, e.ProductModel }), nil
}

func (f *fakeLedger) AmountsByPartner(_ context.Context, dir ledger.Direction, scope ledger.Scope) ([]GroupAmountRow, error) {
	if err := f.track("AmountsByPartner"); err != nil {
		return nil, err
	}
	return f.group(dir, scope, func(e ledger.Entry) (string, string) { return e.PartnerCode, e.PartnerShortName }), nil
}

func (f *fakeLedger) QuantitySum(_ context.Context, dir ledger.Direction, model string, from, before time.Time) (*string, error) {
	if err := f.track("QuantitySum"); err != nil {
		return nil, err
	}
	total := types.Zero()
	found := false
	for _, e := range f.entries {
		if e.Direction != dir || e.ProductModel != model {
			continue
		}
		if !from.IsZero() && e.Date.Before(from) {
			continue
		}
		if !before.IsZero() && !e.Date.Before(before) {
			continue
		}
		found = true
		total = total.Add(e.Quantity)
	}
	if !found {
		return nil, nil
	}
	return f.qty(total), nil
}

func (f *fakeLedger) CountEntries(_ context.Context, dir ledger.Direction, scope ledger.Scope) (int64, error) {
	if err := f.track("CountEntries"); err != nil {
		return 0, err
	}
	return int64(len(f.match(dir, scope, func(ledger.Entry) bool { return true }))), nil
}

func (f *fakeLedger) CountPartners(_ context.Context, kind ledger.PartnerKind) (int64, error) {
	if err := f.track("CountPartners"); err != nil {
		return 0, err
	}
	return int64(len(f.partners[kind])), nil
}

func (f *fakeLedger) CountProducts(context.Context) (int64, error) {
	if err := f.track("CountProducts"); err != nil {
		return 0, err
	}
	return int64(len(f.products)), nil
}

func (f *fakeLedger) ProductModels(context.Context) ([]string, error) {
	if err := f.track("ProductModels"); err != nil {
		return nil, err
	}
	return append([]string(nil), f.products...), nil
}

func (f *fakeLedger) InventoryTotals(context.Context) ([]InventoryRow, error) {
	if err := f.track("InventoryTotals"); err != nil {
		return nil, err
	}
	byModel := map[string]*InventoryRow{}
	inQty := map[string]types.Money{}
	outQty := map[string]types.Money{}
	for _, e := range f.entries {
		row, ok := byModel[e.ProductModel]
		if !ok {
			row = &InventoryRow{ProductModel: e.ProductModel}
			byModel[e.ProductModel] = row
		}
		d := e.Date
		if e.Direction == ledger.Inbound {
			inQty[e.ProductModel] = inQty[e.ProductModel].Add(e.Quantity)
			if row.LastInboundDate == nil || d.After(*row.LastInboundDate) {
				row.LastInboundDate = &d
				if !e.IsSpecial() {
					row.LatestInboundPrice = f.raw(e.UnitPrice)
				}
			}
		} else {
			outQty[e.ProductModel] = outQty[e.ProductModel].Add(e.Quantity)
			if row.LastOutboundDate == nil || d.After(*row.LastOutboundDate) {
				row.LastOutboundDate = &d
			}
		}
	}
	rows := make([]InventoryRow, 0, len(byModel))
	for model, row := range byModel {
		row.InboundQuantity = f.qty(inQty[model])
		row.OutboundQuantity = f.qty(outQty[model])
		rows = append(rows, *row)
	}
	return rows, nil
}

func (f *fakeLedger) Partners(_ context.Context, kind ledger.PartnerKind) ([]Partner, error) {
	if err := f.track("Partners"); err != nil {
		return nil, err
	}
	return f.partners[kind], nil
}

// memStore is an in-memory DocumentStore.
type memStore struct {
	mu        sync.Mutex
	namespace string
	doc       Document
	mergeErr  error
}

func newMemStore(namespace string) *memStore {
	return &memStore{namespace: namespace, doc: Document{}}
}

func (m *memStore) Namespace() string { return m.namespace }

func (m *memStore) Load(context.Context) Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(Document, len(m.doc))
	for k, v := range m.doc {
		out[k] = v
	}
	return out
}

func (m *memStore) Merge(_ context.Context, entries Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mergeErr != nil {
		return m.mergeErr
	}
	for k, v := range entries {
		m.doc[k] = v
	}
	return nil
}

func (m *memStore) Prune(_ context.Context, stale func(string, json.RawMessage) bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for k, v := range m.doc {
		if stale(k, v) {
			delete(m.doc, k)
			removed++
		}
	}
	return removed, nil
}

// --- fixtures ---

func date(s string) time.Time {
	t, err := time.Parse(ledger.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func in(model, qty, price, day string) ledger.Entry {
	return ledger.Entry{
		Direction:        ledger.Inbound,
		PartnerCode:      "S001",
		PartnerShortName: "Supplier One",
		ProductModel:     model,
		Quantity:         types.MustMoney(qty),
		UnitPrice:        types.MustMoney(price),
		Date:             date(day),
	}
}

func out(model, qty, price, day string) ledger.Entry {
	return ledger.Entry{
		Direction:        ledger.Outbound,
		PartnerCode:      "C001",
		PartnerShortName: "Customer One",
		ProductModel:     model,
		Quantity:         types.MustMoney(qty),
		UnitPrice:        types.MustMoney(price),
		Date:             date(day),
	}
}

func outTo(partner, model, qty, price, day string) ledger.Entry {
	e := out(model, qty, price, day)
	e.PartnerCode = partner
	e.PartnerShortName = "Customer " + partner
	return e
}

func strPtr(s string) *string { return &s }
