// Package app wires configuration, storage and the reports service for the
// server and worker binaries.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tradeflow/internal/config"
	"tradeflow/internal/domain/reports"
	"tradeflow/internal/infrastructure/cache"
	"tradeflow/internal/infrastructure/storage/postgres"
	"tradeflow/internal/infrastructure/storage/postgres/report_repo"
	"tradeflow/pkg/logger"
)

// Version is overridden at build time with -ldflags "-X tradeflow/internal/app.Version=...".
var Version = "dev"

// App holds the long-lived dependencies of a process.
type App struct {
	Config  *config.Config
	Log     *logger.Logger
	Pool    *postgres.Pool
	TxM     *postgres.TxManager
	Reports *reports.Service

	redis redis.UniversalClient
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: !cfg.IsProduction(),
		Service:     "tradeflow",
	})
}

// Build connects to the ledger database and the cache backend.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect ledger database: %w", err)
	}
	txm := postgres.NewTxManager(pool).WithSnapshotTimeout(cfg.SnapshotTimeout)

	a := &App{Config: cfg, Log: log, Pool: pool, TxM: txm}

	var stores reports.Stores
	if cfg.CacheBackend == config.CacheBackendRedis {
		a.redis = NewRedisClient(cfg)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		stores = RedisStores(cfg, a.redis)
	} else {
		stores, err = FileStores(cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Reports, err = NewReportService(cfg, report_repo.NewLedgerRepo(txm), stores, txm)
	if err != nil {
		a.Close()
		return nil, err
	}

	log.Infow("application initialized",
		"version", Version,
		"cache_backend", cfg.CacheBackend,
		"cost_basis", cfg.CostBasis,
	)
	return a, nil
}

// Close releases connections.
func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}

// NewRedisClient creates a client from cfg.
func NewRedisClient(cfg *config.Config) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// RedisStores returns both namespaces on client.
func RedisStores(cfg *config.Config, client redis.UniversalClient) reports.Stores {
	return reports.Stores{
		Overview: cache.NewRedisStore(client, cfg.RedisPrefix, reports.NamespaceOverview),
		Analysis: cache.NewRedisStore(client, cfg.RedisPrefix, reports.NamespaceAnalysis),
	}
}

// FileStores returns both namespaces under cfg.DataDir.
func FileStores(cfg *config.Config) (reports.Stores, error) {
	overview, err := cache.NewFileStore(cache.FileStoreConfig{
		Dir:               cfg.DataDir,
		Namespace:         reports.NamespaceOverview,
		CompressThreshold: cfg.CacheCompressThreshold,
	})
	if err != nil {
		return reports.Stores{}, err
	}
	analysis, err := cache.NewFileStore(cache.FileStoreConfig{
		Dir:               cfg.DataDir,
		Namespace:         reports.NamespaceAnalysis,
		CompressThreshold: cfg.CacheCompressThreshold,
	})
	if err != nil {
		return reports.Stores{}, err
	}
	return reports.Stores{Overview: overview, Analysis: analysis}, nil
}

// NewReportService builds the reports service from cfg. txm may be nil,
// in which case analysis refreshes read outside a snapshot.
func NewReportService(cfg *config.Config, repo reports.Repository, stores reports.Stores, txm *postgres.TxManager) (*reports.Service, error) {
	basis, err := reports.ParseCostBasis(cfg.CostBasis)
	if err != nil {
		return nil, fmt.Errorf("REPORT_COST_BASIS: %w", err)
	}
	policy, err := cache.NewStalePolicy(cfg.StalePolicy)
	if err != nil {
		return nil, fmt.Errorf("CACHE_STALE_POLICY: %w", err)
	}

	opts := []reports.Option{reports.WithStalePolicy(policy)}
	if txm != nil {
		opts = append(opts, reports.WithTxManager(txm))
	}

	return reports.NewService(repo, stores, reports.Config{
		CostBasis:      basis,
		QuantityScale:  cfg.QuantityScale,
		TopN:           cfg.TopN,
		OverviewWindow: cfg.OverviewWindow,
	}, opts...), nil
}
