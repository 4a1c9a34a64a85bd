// Package report_repo implements the read-only ledger queries behind reports.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tradeflow/internal/domain/ledger"
	"tradeflow/internal/domain/reports"
	"tradeflow/internal/infrastructure/storage/postgres"
)

var _ reports.Repository = (*LedgerRepo)(nil)

// ledgerTable names the columns that differ between the two record tables.
type ledgerTable struct {
	name        string
	partnerCode string
	partnerName string
	date        string
}

var ledgerTables = map[ledger.Direction]ledgerTable{
	ledger.Inbound: {
		name:        "inbound_records",
		partnerCode: "supplier_code",
		partnerName: "supplier_short_name",
		date:        "inbound_date",
	},
	ledger.Outbound: {
		name:        "outbound_records",
		partnerCode: "customer_code",
		partnerName: "customer_short_name",
		date:        "outbound_date",
	},
}

func tableFor(dir ledger.Direction) (ledgerTable, error) {
	t, ok := ledgerTables[dir]
	if !ok {
		return ledgerTable{}, fmt.Errorf("unknown ledger direction %q", dir)
	}
	return t, nil
}

// Amounts involve the float unit_price column and arrive as *float64.
// Quantities stay NUMERIC and are read as text so no binary rounding happens
// before types.FromSQLResult parses them in the domain.
const (
	lineAmount    = "SUM(quantity * unit_price)::float8"
	specialAmount = "SUM(ABS(quantity * unit_price))::float8"
	quantitySum   = "SUM(quantity)::text"
)

// LedgerRepo implements reports.Repository on PostgreSQL.
// Queries run inside the transaction carried by ctx, if any.
type LedgerRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txm *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// applyScope adds the date range and partner/product filters.
func applyScope(q squirrel.SelectBuilder, t ledgerTable, scope ledger.Scope) squirrel.SelectBuilder {
	if !scope.From.IsZero() {
		q = q.Where(squirrel.GtOrEq{t.date: scope.From.Format(ledger.DateLayout)})
	}
	if !scope.To.IsZero() {
		q = q.Where(squirrel.LtOrEq{t.date: scope.To.Format(ledger.DateLayout)})
	}
	if scope.PartnerCode != "" {
		q = q.Where(squirrel.Eq{t.partnerCode: scope.PartnerCode})
	}
	if scope.ProductModel != "" {
		q = q.Where(squirrel.Eq{"product_model": scope.ProductModel})
	}
	return q
}

func (r *LedgerRepo) normal(t ledgerTable, scope ledger.Scope, columns ...string) squirrel.SelectBuilder {
	q := r.builder.Select(columns...).From(t.name).Where(squirrel.GtOrEq{"unit_price": 0})
	return applyScope(q, t, scope)
}

func (r *LedgerRepo) pricedLinesQuery(dir ledger.Direction, scope ledger.Scope) (squirrel.SelectBuilder, error) {
	t, err := tableFor(dir)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}
	return r.normal(t, scope, "product_model", "quantity::text AS quantity", "unit_price::float8 AS unit_price").
		OrderBy(t.date, "id"), nil
}

func (r *LedgerRepo) inboundCostBasisQuery(scope ledger.Scope) squirrel.SelectBuilder {
	return r.normal(ledgerTables[ledger.Inbound], scope,
		"product_model", lineAmount+" AS total_value", quantitySum+" AS total_quantity").
		GroupBy("product_model").
		OrderBy("product_model")
}

func (r *LedgerRepo) normalAmountQuery(dir ledger.Direction, scope ledger.Scope) (squirrel.SelectBuilder, error) {
	t, err := tableFor(dir)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}
	return r.normal(t, scope, lineAmount), nil
}

func (r *LedgerRepo) specialAmountQuery(dir ledger.Direction, scope ledger.Scope) (squirrel.SelectBuilder, error) {
	t, err := tableFor(dir)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}
	q := r.builder.Select(specialAmount).From(t.name).Where(squirrel.Lt{"unit_price": 0})
	return applyScope(q, t, scope), nil
}

func (r *LedgerRepo) amountsByProductQuery(dir ledger.Direction, scope ledger.Scope) (squirrel.SelectBuilder, error) {
	t, err := tableFor(dir)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}
	return r.normal(t, scope, "product_model AS code", "product_model AS name", lineAmount+" AS amount").
		GroupBy("product_model").
		OrderBy("amount DESC NULLS LAST", "product_model"), nil
}

func (r *LedgerRepo) amountsByPartnerQuery(dir ledger.Direction, scope ledger.Scope) (squirrel.SelectBuilder, error) {
	t, err := tableFor(dir)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}
	return r.normal(t, scope,
		t.partnerCode+" AS code", "COALESCE(MAX("+t.partnerName+"), '') AS name", lineAmount+" AS amount").
		GroupBy(t.partnerCode).
		OrderBy("amount DESC NULLS LAST", t.partnerCode), nil
}

func (r *LedgerRepo) quantitySumQuery(dir ledger.Direction, productModel string, from, before time.Time) (squirrel.SelectBuilder, error) {
	t, err := tableFor(dir)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}
	q := r.builder.Select(quantitySum).From(t.name).Where(squirrel.Eq{"product_model": productModel})
	if !from.IsZero() {
		q = q.Where(squirrel.GtOrEq{t.date: from.Format(ledger.DateLayout)})
	}
	if !before.IsZero() {
		q = q.Where(squirrel.Lt{t.date: before.Format(ledger.DateLayout)})
	}
	return q, nil
}

// PricedLines lists rows with unit_price >= 0 in scope.
func (r *LedgerRepo) PricedLines(ctx context.Context, dir ledger.Direction, scope ledger.Scope) ([]reports.PricedLine, error) {
	q, err := r.pricedLinesQuery(dir, scope)
	if err != nil {
		return nil, err
	}
	var lines []reports.PricedLine
	if err := r.selectAll(ctx, q, &lines); err != nil {
		return nil, fmt.Errorf("%s priced lines: %w", dir, err)
	}
	return lines, nil
}

// InboundCostBasis returns weighted-average inputs per product.
func (r *LedgerRepo) InboundCostBasis(ctx context.Context, scope ledger.Scope) ([]reports.CostBasisRow, error) {
	var rows []reports.CostBasisRow
	if err := r.selectAll(ctx, r.inboundCostBasisQuery(scope), &rows); err != nil {
		return nil, fmt.Errorf("inbound cost basis: %w", err)
	}
	return rows, nil
}

// NormalAmount returns Σ(q*p) over rows with unit_price >= 0.
func (r *LedgerRepo) NormalAmount(ctx context.Context, dir ledger.Direction, scope ledger.Scope) (*float64, error) {
	q, err := r.normalAmountQuery(dir, scope)
	if err != nil {
		return nil, err
	}
	var v *float64
	if err := r.selectOne(ctx, q, &v); err != nil {
		return nil, fmt.Errorf("%s normal amount: %w", dir, err)
	}
	return v, nil
}

// SpecialAmount returns Σ|q*p| over rows with unit_price < 0.
func (r *LedgerRepo) SpecialAmount(ctx context.Context, dir ledger.Direction, scope ledger.Scope) (*float64, error) {
	q, err := r.specialAmountQuery(dir, scope)
	if err != nil {
		return nil, err
	}
	var v *float64
	if err := r.selectOne(ctx, q, &v); err != nil {
		return nil, fmt.Errorf("%s special amount: %w", dir, err)
	}
	return v, nil
}

// AmountsByProduct groups positive-price amounts per product.
func (r *LedgerRepo) AmountsByProduct(ctx context.Context, dir ledger.Direction, scope ledger.Scope) ([]reports.GroupAmountRow, error) {
	q, err := r.amountsByProductQuery(dir, scope)
	if err != nil {
		return nil, err
	}
	var rows []reports.GroupAmountRow
	if err := r.selectAll(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("%s amounts by product: %w", dir, err)
	}
	return rows, nil
}

// AmountsByPartner groups positive-price amounts per partner.
func (r *LedgerRepo) AmountsByPartner(ctx context.Context, dir ledger.Direction, scope ledger.Scope) ([]reports.GroupAmountRow, error) {
	q, err := r.amountsByPartnerQuery(dir, scope)
	if err != nil {
		return nil, err
	}
	var rows []reports.GroupAmountRow
	if err := r.selectAll(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("%s amounts by partner: %w", dir, err)
	}
	return rows, nil
}

// QuantitySum returns Σq for one product with from <= date < before.
func (r *LedgerRepo) QuantitySum(ctx context.Context, dir ledger.Direction, productModel string, from, before time.Time) (*string, error) {
	q, err := r.quantitySumQuery(dir, productModel, from, before)
	if err != nil {
		return nil, err
	}
	var v *string
	if err := r.selectOne(ctx, q, &v); err != nil {
		return nil, fmt.Errorf("%s quantity of %s: %w", dir, productModel, err)
	}
	return v, nil
}

// CountEntries counts every row in scope, special adjustments included.
func (r *LedgerRepo) CountEntries(ctx context.Context, dir ledger.Direction, scope ledger.Scope) (int64, error) {
	t, err := tableFor(dir)
	if err != nil {
		return 0, err
	}
	q := applyScope(r.builder.Select("COUNT(*)").From(t.name), t, scope)
	var n int64
	if err := r.selectOne(ctx, q, &n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.name, err)
	}
	return n, nil
}

// CountPartners counts suppliers or customers.
func (r *LedgerRepo) CountPartners(ctx context.Context, kind ledger.PartnerKind) (int64, error) {
	q := r.builder.Select("COUNT(*)").From("partners").Where(squirrel.Eq{"type": int(kind)})
	var n int64
	if err := r.selectOne(ctx, q, &n); err != nil {
		return 0, fmt.Errorf("count partners: %w", err)
	}
	return n, nil
}

// CountProducts counts the product catalog.
func (r *LedgerRepo) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	if err := r.selectOne(ctx, r.builder.Select("COUNT(*)").From("products"), &n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// ProductModels lists distinct product models of the catalog.
func (r *LedgerRepo) ProductModels(ctx context.Context) ([]string, error) {
	q := r.builder.Select("DISTINCT product_model").From("products").
		Where("product_model IS NOT NULL").
		OrderBy("product_model")
	var models []string
	if err := r.selectAll(ctx, q, &models); err != nil {
		return nil, fmt.Errorf("product models: %w", err)
	}
	return models, nil
}

// inventoryTotalsSQL joins all-time movement totals with the latest
// positive inbound price of each product seen in either table.
const inventoryTotalsSQL = `
	WITH inb AS (
		SELECT product_model, SUM(quantity) AS qty, MAX(inbound_date) AS last_date
		FROM inbound_records
		GROUP BY product_model
	),
	outb AS (
		SELECT product_model, SUM(quantity) AS qty, MAX(outbound_date) AS last_date
		FROM outbound_records
		GROUP BY product_model
	),
	latest AS (
		SELECT DISTINCT ON (product_model) product_model, unit_price
		FROM inbound_records
		WHERE unit_price >= 0
		ORDER BY product_model, inbound_date DESC, id DESC
	),
	models AS (
		SELECT product_model FROM inb
		UNION
		SELECT product_model FROM outb
	)
	SELECT
		m.product_model,
		inb.qty::text AS inbound_quantity,
		outb.qty::text AS outbound_quantity,
		inb.last_date AS last_inbound_date,
		outb.last_date AS last_outbound_date,
		latest.unit_price::float8 AS latest_inbound_price
	FROM models m
	LEFT JOIN inb ON inb.product_model = m.product_model
	LEFT JOIN outb ON outb.product_model = m.product_model
	LEFT JOIN latest ON latest.product_model = m.product_model
	ORDER BY m.product_model
`

// InventoryTotals returns all-time per-product movement totals.
func (r *LedgerRepo) InventoryTotals(ctx context.Context) ([]reports.InventoryRow, error) {
	var rows []reports.InventoryRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, inventoryTotalsSQL); err != nil {
		return nil, fmt.Errorf("inventory totals: %w", err)
	}
	return rows, nil
}

func (r *LedgerRepo) partnersQuery(kind ledger.PartnerKind) squirrel.SelectBuilder {
	return r.builder.
		Select("code", "COALESCE(short_name, '') AS short_name", "COALESCE(full_name, '') AS full_name").
		From("partners").
		Where(squirrel.Eq{"type": int(kind)}).
		OrderBy("short_name", "code")
}

// Partners lists partners of one kind ordered by short name.
func (r *LedgerRepo) Partners(ctx context.Context, kind ledger.PartnerKind) ([]reports.Partner, error) {
	var partners []reports.Partner
	if err := r.selectAll(ctx, r.partnersQuery(kind), &partners); err != nil {
		return nil, fmt.Errorf("partners: %w", err)
	}
	return partners, nil
}

func (r *LedgerRepo) selectAll(ctx context.Context, q squirrel.Sqlizer, dest any) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return pgxscan.Select(ctx, r.txm.GetQuerier(ctx), dest, sql, args...)
}

func (r *LedgerRepo) selectOne(ctx context.Context, q squirrel.Sqlizer, dest any) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return pgxscan.Get(ctx, r.txm.GetQuerier(ctx), dest, sql, args...)
}
