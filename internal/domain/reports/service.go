package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"tradeflow/internal/core/apperror"
	appctx "tradeflow/internal/core/context"
	"tradeflow/internal/core/tx"
	"tradeflow/internal/domain/ledger"
	"tradeflow/pkg/logger"
)

var tracer = otel.Tracer("tradeflow/reports")

// Config tunes report computation.
type Config struct {
	CostBasis     CostBasis
	QuantityScale int32
	TopN          int
	// OverviewWindow is the lookback of overview statistics in years.
	OverviewWindow int
}

// Stores groups the two cache namespaces.
type Stores struct {
	Overview DocumentStore
	Analysis DocumentStore
}

// Service computes reports on refresh and serves them from the cache.
// Reads never touch the ledger.
type Service struct {
	repo      Repository
	cost      *CostEngine
	sales     *SalesAggregator
	inventory *InventoryCalculator
	stores    Stores
	txm       tx.ReadOnlyManager
	policy    StalePolicy
	now       func() time.Time
	window    int
}

// Option customizes a Service.
type Option func(*Service)

// WithTxManager runs analysis refreshes inside one read-only snapshot.
func WithTxManager(txm tx.ReadOnlyManager) Option {
	return func(s *Service) { s.txm = txm }
}

// WithStalePolicy replaces the default 30-day clean-cache policy.
func WithStalePolicy(p StalePolicy) Option {
	return func(s *Service) { s.policy = p }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new reports service.
func NewService(repo Repository, stores Stores, cfg Config, opts ...Option) *Service {
	cost := NewCostEngine(repo, cfg.CostBasis)
	s := &Service{
		repo:      repo,
		cost:      cost,
		sales:     NewSalesAggregator(repo, cost, cfg.TopN),
		inventory: NewInventoryCalculator(repo, cfg.QuantityScale),
		stores:    stores,
		policy:    DefaultMaxAge,
		now:       time.Now,
		window:    cfg.OverviewWindow,
	}
	if s.window <= 0 {
		s.window = 1
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- Overview namespace ---

// RefreshOverview recomputes every overview report and writes them to the
// cache in one merge. Cost runs first because the stats depend on it; the
// remaining calculators run concurrently.
//
// On a cache write failure the computed report is still returned together
// with an apperror.CodeCacheWriteFailure error.
func (s *Service) RefreshOverview(ctx context.Context) (*OverviewReport, error) {
	ctx = appctx.WithOperation(ctx, "refresh_overview")
	ctx, span := tracer.Start(ctx, "reports.RefreshOverview")
	defer span.End()

	now := s.now()
	window := ledger.Scope{From: now.AddDate(-s.window, 0, 0), To: now}

	cost, err := s.cost.SoldGoodsCost(ctx, window)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.NewQueryFailure("sold goods cost", err)
	}

	report := &OverviewReport{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		levels, summary, err := s.inventory.Levels(gctx, now)
		if err != nil {
			return err
		}
		stats, err := s.sales.Overview(gctx, window, cost, levels, now)
		if err != nil {
			return err
		}
		report.Stats = *stats
		report.InventorySummary = *summary
		return nil
	})
	g.Go(func() error {
		top, err := s.sales.TopSales(gctx, window)
		if err != nil {
			return err
		}
		report.TopSales = top
		return nil
	})
	g.Go(func() error {
		changes, err := s.inventory.MonthlyChanges(gctx, now)
		if err != nil {
			return err
		}
		report.MonthlyChanges = changes
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, apperror.NewQueryFailure("overview", err)
	}

	entries, err := encodeEntries(map[string]any{
		string(KindOverviewStats):          report.Stats,
		string(KindTopSalesProducts):       report.TopSales,
		string(KindMonthlyInventoryChange): report.MonthlyChanges,
		string(KindInventorySummary):       report.InventorySummary,
	})
	if err != nil {
		return report, apperror.NewInternal(err)
	}
	if err := s.stores.Overview.Merge(ctx, entries); err != nil {
		logger.Error(ctx, "overview cache write failed", "error", err)
		return report, apperror.NewCacheWriteFailure(NamespaceOverview, err)
	}

	logger.Info(ctx, "overview refreshed",
		"sold_goods_cost", report.Stats.SoldGoodsCost,
		"products", len(report.MonthlyChanges),
	)
	return report, nil
}

// OverviewStats returns the cached overview statistics.
func (s *Service) OverviewStats(ctx context.Context) (*OverviewStats, error) {
	var stats OverviewStats
	if err := s.readOverview(ctx, KindOverviewStats, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// TopSalesProducts returns the cached top sales ranking.
func (s *Service) TopSalesProducts(ctx context.Context) ([]TopSalesProduct, error) {
	var top []TopSalesProduct
	if err := s.readOverview(ctx, KindTopSalesProducts, &top); err != nil {
		return nil, err
	}
	return top, nil
}

// MonthlyInventoryChanges returns the cached monthly changes of every product.
func (s *Service) MonthlyInventoryChanges(ctx context.Context) (map[string]MonthlyInventoryChange, error) {
	var changes map[string]MonthlyInventoryChange
	if err := s.readOverview(ctx, KindMonthlyInventoryChange, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// MonthlyInventoryChange returns the cached monthly change of one product.
func (s *Service) MonthlyInventoryChange(ctx context.Context, productModel string) (*MonthlyInventoryChange, error) {
	changes, err := s.MonthlyInventoryChanges(ctx)
	if err != nil {
		return nil, err
	}
	change, ok := changes[productModel]
	if !ok {
		return nil, apperror.NewNotFound("product", productModel)
	}
	return &change, nil
}

// OutOfInventory returns the cached list of products with stock <= 0.
func (s *Service) OutOfInventory(ctx context.Context) ([]string, error) {
	stats, err := s.OverviewStats(ctx)
	if err != nil {
		return nil, err
	}
	return stats.OutOfInventoryProducts, nil
}

// InventorySummary returns the cached inventory summary.
func (s *Service) InventorySummary(ctx context.Context) (*InventorySummary, error) {
	var summary InventorySummary
	if err := s.readOverview(ctx, KindInventorySummary, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *Service) readOverview(ctx context.Context, kind ReportKind, dest any) error {
	return s.read(ctx, s.stores.Overview, string(kind), string(kind), dest)
}

// --- Analysis namespace ---

// RefreshAnalysis recomputes the filtered analysis and its detail breakdown
// and caches both. A failing breakdown is logged and cached as empty; any
// other failure leaves the cache untouched.
func (s *Service) RefreshAnalysis(ctx context.Context, params AnalysisParams) (*AnalysisReport, error) {
	q, err := params.validate()
	if err != nil {
		return nil, err
	}

	ctx = appctx.WithOperation(ctx, "refresh_analysis")
	ctx, span := tracer.Start(ctx, "reports.RefreshAnalysis", trace.WithAttributes(
		attribute.String("analysis.key", q.key),
		attribute.String("analysis.type", string(q.direction)),
	))
	defer span.End()

	now := s.now()
	report := &AnalysisReport{}
	err = s.snapshot(ctx, func(ctx context.Context) error {
		result, err := s.sales.Analyze(ctx, q, now)
		if err != nil {
			return err
		}
		report.Result = result

		var detail []DetailItem
		err = s.isolated(ctx, func(ctx context.Context) error {
			var err error
			detail, err = s.sales.Detail(ctx, q)
			return err
		})
		if err != nil {
			logger.Warn(ctx, "detail breakdown failed, caching empty list",
				"cache_key", q.detailKey,
				"error", err,
			)
			detail = []DetailItem{}
		}
		report.Detail = detail
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperror.NewQueryFailure("analysis", err)
	}

	entries, err := encodeEntries(map[string]any{
		q.key:       report.Result,
		q.detailKey: report.Detail,
	})
	if err != nil {
		return report, apperror.NewInternal(err)
	}
	if err := s.stores.Analysis.Merge(ctx, entries); err != nil {
		logger.Error(ctx, "analysis cache write failed", "cache_key", q.key, "error", err)
		return report, apperror.NewCacheWriteFailure(NamespaceAnalysis, err)
	}

	logger.Info(ctx, "analysis refreshed", "cache_key", q.key, "detail_groups", len(report.Detail))
	return report, nil
}

// Analysis returns the cached analysis for params.
func (s *Service) Analysis(ctx context.Context, params AnalysisParams) (*AnalysisResult, error) {
	q, err := params.validate()
	if err != nil {
		return nil, err
	}
	var result AnalysisResult
	if err := s.read(ctx, s.stores.Analysis, string(KindAnalysis), q.key, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AnalysisDetail returns the cached detail breakdown for params. A missing
// breakdown is reported as not generated, the same as a missing analysis.
func (s *Service) AnalysisDetail(ctx context.Context, params AnalysisParams) ([]DetailItem, error) {
	q, err := params.validate()
	if err != nil {
		return nil, err
	}
	var detail []DetailItem
	if err := s.read(ctx, s.stores.Analysis, string(KindAnalysisDetail), q.detailKey, &detail); err != nil {
		return nil, err
	}
	if detail == nil {
		detail = []DetailItem{}
	}
	return detail, nil
}

// CleanAnalysisCache removes analysis entries the stale policy rejects,
// together with their detail breakdowns.
func (s *Service) CleanAnalysisCache(ctx context.Context) (*CleanResult, error) {
	ctx = appctx.WithOperation(ctx, "clean_cache")
	now := s.now()

	doc := s.stores.Analysis.Load(ctx)
	stale := make(map[string]struct{})
	for key, raw := range doc {
		if IsDetailKey(key) {
			continue
		}
		drop, err := s.policy.IsStale(key, entryTimestamp(raw), now)
		if err != nil {
			return nil, fmt.Errorf("evaluate stale policy for %q: %w", key, err)
		}
		if drop {
			stale[key] = struct{}{}
			stale[DetailKeyFor(key)] = struct{}{}
		}
	}

	removed, err := s.stores.Analysis.Prune(ctx, func(key string, _ json.RawMessage) bool {
		_, ok := stale[key]
		return ok
	})
	if err != nil {
		return nil, apperror.NewCacheWriteFailure(NamespaceAnalysis, err)
	}

	result := &CleanResult{Before: len(doc), Removed: removed, After: len(doc) - removed}
	logger.Info(ctx, "analysis cache cleaned", "before", result.Before, "removed", result.Removed)
	return result, nil
}

// FilterOptions lists customers, suppliers and products for the analysis
// filters, each preceded by an "All" entry. Read straight from the ledger.
func (s *Service) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	customers, err := s.repo.Partners(ctx, ledger.Customer)
	if err != nil {
		return nil, apperror.NewQueryFailure("customers", err)
	}
	suppliers, err := s.repo.Partners(ctx, ledger.Supplier)
	if err != nil {
		return nil, apperror.NewQueryFailure("suppliers", err)
	}
	models, err := s.repo.ProductModels(ctx)
	if err != nil {
		return nil, apperror.NewQueryFailure("products", err)
	}

	opts := &FilterOptions{
		Customers: partnerOptions(customers),
		Suppliers: partnerOptions(suppliers),
		Products:  []FilterOption{{Value: AllFilter, Label: AllFilter}},
	}
	for _, m := range models {
		opts.Products = append(opts.Products, FilterOption{Value: m, Label: m})
	}
	return opts, nil
}

func partnerOptions(partners []Partner) []FilterOption {
	out := make([]FilterOption, 0, len(partners)+1)
	out = append(out, FilterOption{Value: AllFilter, Label: AllFilter})
	for _, p := range partners {
		label := p.ShortName
		if p.FullName != "" {
			label = fmt.Sprintf("%s (%s)", p.ShortName, p.FullName)
		}
		out = append(out, FilterOption{Value: p.Code, Label: label})
	}
	return out
}

// --- Generic access ---

// Refresh recomputes the namespace holding kind and returns the requested
// report. params is ignored for overview kinds.
func (s *Service) Refresh(ctx context.Context, kind ReportKind, params AnalysisParams) (any, error) {
	if kind.IsOverview() {
		report, err := s.RefreshOverview(ctx)
		if report == nil {
			return nil, err
		}
		switch kind {
		case KindOverviewStats:
			return &report.Stats, err
		case KindTopSalesProducts:
			return report.TopSales, err
		case KindMonthlyInventoryChange:
			return report.MonthlyChanges, err
		default:
			return &report.InventorySummary, err
		}
	}

	switch kind {
	case KindAnalysis, KindAnalysisDetail:
		report, err := s.RefreshAnalysis(ctx, params)
		if report == nil {
			return nil, err
		}
		if kind == KindAnalysisDetail {
			return report.Detail, err
		}
		return report.Result, err
	}
	return nil, apperror.NewValidation(fmt.Sprintf("unknown report kind %q", kind))
}

// GetCached decodes the cached report of kind into dest. It returns an
// apperror.CodeNotGenerated error when nothing has been computed yet.
func (s *Service) GetCached(ctx context.Context, kind ReportKind, params AnalysisParams, dest any) error {
	if kind.IsOverview() {
		return s.readOverview(ctx, kind, dest)
	}
	switch kind {
	case KindAnalysis, KindAnalysisDetail:
		q, err := params.validate()
		if err != nil {
			return err
		}
		key := q.key
		if kind == KindAnalysisDetail {
			key = q.detailKey
		}
		return s.read(ctx, s.stores.Analysis, string(kind), key, dest)
	}
	return apperror.NewValidation(fmt.Sprintf("unknown report kind %q", kind))
}

// --- helpers ---

func (s *Service) read(ctx context.Context, store DocumentStore, report, key string, dest any) error {
	raw, ok := store.Load(ctx)[key]
	if !ok {
		return apperror.NewNotGenerated(report, key)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		logger.Warn(ctx, "cached entry unreadable, treating as not generated",
			"namespace", store.Namespace(),
			"cache_key", key,
			"error", err,
		)
		return apperror.NewNotGenerated(report, key)
	}
	return nil
}

// snapshot runs fn inside a read-only transaction when one is configured so
// all queries of a refresh see the same ledger state.
func (s *Service) snapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txm == nil {
		return fn(ctx)
	}
	return s.txm.ReadOnly(ctx, fn)
}

// isolated runs optional work inside the snapshot so that its failure leaves
// the snapshot usable.
func (s *Service) isolated(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txm == nil {
		return fn(ctx)
	}
	return s.txm.Savepoint(ctx, fn)
}

func encodeEntries(values map[string]any) (Document, error) {
	doc := make(Document, len(values))
	for key, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", key, err)
		}
		doc[key] = raw
	}
	return doc, nil
}
