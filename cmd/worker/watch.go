package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tradeflow/internal/domain/reports"
	"tradeflow/pkg/logger"
)

// cacheMaintainer is the part of reports.Service the watcher drives.
type cacheMaintainer interface {
	RefreshOverview(ctx context.Context) (*reports.OverviewReport, error)
	CleanAnalysisCache(ctx context.Context) (*reports.CleanResult, error)
}

// runner blocks until ctx is cancelled.
type runner interface {
	Run(ctx context.Context) error
}

// Watcher keeps the overview cache warm. It refreshes once on start, again
// after every debounced ledger change, and prunes stale analyses periodically.
type Watcher struct {
	reports    cacheMaintainer
	cleanEvery time.Duration

	// refreshing serializes refreshes triggered by the listener and startup.
	refreshing sync.Mutex
}

// NewWatcher creates a watcher. cleanEvery <= 0 disables pruning.
func NewWatcher(svc cacheMaintainer, cleanEvery time.Duration) *Watcher {
	return &Watcher{reports: svc, cleanEvery: cleanEvery}
}

// Run refreshes the overview, then runs the listener and the pruning loop
// until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, listener runner) error {
	w.refresh(ctx, "startup")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return listener.Run(ctx)
	})
	if w.cleanEvery > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(w.cleanEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					w.clean(ctx)
				}
			}
		})
	}

	err := g.Wait()
	logger.Info(ctx, "watcher stopped")
	return err
}

// OnLedgerChanged is the listener callback.
func (w *Watcher) OnLedgerChanged(ctx context.Context, tables []string) {
	w.refresh(ctx, strings.Join(tables, ","))
}

func (w *Watcher) refresh(ctx context.Context, reason string) {
	w.refreshing.Lock()
	defer w.refreshing.Unlock()

	start := time.Now()
	_, err := w.reports.RefreshOverview(ctx)
	if err != nil {
		logger.Error(ctx, "overview refresh failed", "reason", reason, "error", err)
		return
	}
	logger.Info(ctx, "overview refreshed", "reason", reason, "duration", time.Since(start))
}

func (w *Watcher) clean(ctx context.Context) {
	res, err := w.reports.CleanAnalysisCache(ctx)
	if err != nil {
		logger.Error(ctx, "clean-cache failed", "error", err)
		return
	}
	if res.Removed > 0 {
		logger.Info(ctx, "stale analyses removed", "removed", res.Removed, "remaining", res.After)
	}
}
