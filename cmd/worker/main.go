// Package main is the tradeflow background worker. It refreshes cached
// reports from cron or keeps them warm by watching the ledger.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tradeflow/internal/app"
	"tradeflow/internal/config"
	"tradeflow/internal/domain/reports"
	"tradeflow/internal/infrastructure/storage/postgres"
	"tradeflow/pkg/logger"
)

var (
	rootCmd = &cobra.Command{
		Use:           "tradeflow-worker",
		Short:         "Refreshes and maintains tradeflow report caches",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the worker version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(app.Version)
		},
	}

	refreshOverviewCmd = &cobra.Command{
		Use:   "refresh-overview",
		Short: "Recompute the overview dashboard and store it in the cache",
		RunE:  withApp(refreshOverview),
	}

	refreshAnalysisCmd = &cobra.Command{
		Use:   "refresh-analysis",
		Short: "Recompute one analysis and store it in the cache",
		RunE:  withApp(refreshAnalysis),
	}

	cleanCacheCmd = &cobra.Command{
		Use:   "clean-cache",
		Short: "Remove stale analysis cache entries",
		RunE:  withApp(cleanCache),
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Refresh the overview whenever the ledger changes",
		RunE:  withApp(watch),
	}

	analysisFlags struct {
		start, end, partner, product, kind string
	}
	watchFlags struct {
		quiet, cleanEvery time.Duration
	}
)

func main() {
	f := refreshAnalysisCmd.Flags()
	f.StringVar(&analysisFlags.start, "start", "", "first day of the range (YYYY-MM-DD)")
	f.StringVar(&analysisFlags.end, "end", "", "last day of the range (YYYY-MM-DD)")
	f.StringVar(&analysisFlags.partner, "partner", "", "supplier or customer code")
	f.StringVar(&analysisFlags.product, "product", "", "product model")
	f.StringVar(&analysisFlags.kind, "type", "outbound", "inbound or outbound")
	_ = refreshAnalysisCmd.MarkFlagRequired("start")
	_ = refreshAnalysisCmd.MarkFlagRequired("end")

	watchCmd.Flags().DurationVar(&watchFlags.quiet, "quiet", 5*time.Second, "debounce window for ledger notifications")
	watchCmd.Flags().DurationVar(&watchFlags.cleanEvery, "clean-every", time.Hour, "interval between clean-cache runs, 0 disables")

	rootCmd.AddCommand(versionCmd, refreshOverviewCmd, refreshAnalysisCmd, cleanCacheCmd, watchCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tradeflow-worker: %v\n", err)
		os.Exit(1)
	}
}

type command func(ctx context.Context, a *app.App, args []string) error

// withApp loads configuration, builds the application and cancels the
// context on SIGINT/SIGTERM before running fn.
func withApp(fn command) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("cannot load config: %w", err)
		}
		log, err := app.NewLogger(cfg)
		if err != nil {
			return fmt.Errorf("cannot create logger: %w", err)
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx = logger.WithLogger(ctx, log.WithComponent("worker"))

		a, err := app.Build(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("cannot start the application: %w", err)
		}
		defer a.Close()

		return fn(ctx, a, args)
	}
}

func refreshOverview(ctx context.Context, a *app.App, _ []string) error {
	report, err := a.Reports.RefreshOverview(ctx)
	if err != nil && report == nil {
		return err
	}
	if err != nil {
		logger.Warn(ctx, "overview computed but not cached", "error", err)
	}
	return printJSON(report.Stats)
}

func refreshAnalysis(ctx context.Context, a *app.App, _ []string) error {
	params := reports.AnalysisParams{
		StartDate:    analysisFlags.start,
		EndDate:      analysisFlags.end,
		PartnerCode:  optional(analysisFlags.partner),
		ProductModel: optional(analysisFlags.product),
		Type:         analysisFlags.kind,
	}
	report, err := a.Reports.RefreshAnalysis(ctx, params)
	if err != nil && report == nil {
		return err
	}
	if err != nil {
		logger.Warn(ctx, "analysis computed but not cached", "error", err)
	}
	return printJSON(report.Result)
}

func cleanCache(ctx context.Context, a *app.App, _ []string) error {
	res, err := a.Reports.CleanAnalysisCache(ctx)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func watch(ctx context.Context, a *app.App, _ []string) error {
	w := NewWatcher(a.Reports, watchFlags.cleanEvery)
	listener := postgres.NewLedgerListener(a.Pool, watchFlags.quiet, w.OnLedgerChanged)
	return w.Run(ctx, listener)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
