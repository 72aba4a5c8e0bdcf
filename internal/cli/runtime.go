package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/paycore/payroll-engine/internal/calculation"
	"github.com/paycore/payroll-engine/internal/config"
	"github.com/paycore/payroll-engine/internal/ledger"
	"github.com/paycore/payroll-engine/internal/payrun"
	"github.com/paycore/payroll-engine/internal/rules"
)

// runtime is the engine, catalog and ledger a command works with.
type runtime struct {
	runner  *payrun.Runner
	catalog *rules.CachedCatalog
	cache   *rules.RedisCache
	closers []func() error
}

// openRuntime builds the runtime from settings. catalogFile overrides
// PAYROLL_CATALOG_FILE; an empty result leaves rule resolution to each fixture.
func (o *RootOptions) openRuntime(ctx context.Context, registerer prometheus.Registerer, catalogFile string) (*runtime, error) {
	s := o.Settings
	rt := &runtime{}

	nra := config.DefaultNRATable()
	if s.NRATableFile != "" {
		loaded, err := config.LoadNRATable(s.NRATableFile)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load NRA table", err)
		}
		nra = loaded
	}
	engine := calculation.NewCalculationEngine(s.Method(), nra)
	engine.StrictYtdYear = s.StrictYtdYear
	engine.SetLogger(calculation.NewSlogLogger(o.Logger))

	if catalogFile == "" {
		catalogFile = s.CatalogFile
	}
	if catalogFile != "" {
		if err := rt.openCatalog(ctx, o, catalogFile); err != nil {
			_ = rt.Close()
			return nil, err
		}
	}

	store, err := ledger.Open(ctx, s.LedgerDriver, s.LedgerDSN)
	if err != nil {
		_ = rt.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	rt.closers = append(rt.closers, store.Close)
	reconcilerOpts := []ledger.ReconcilerOption{ledger.WithLogger(o.Logger)}
	if registerer != nil {
		reconcilerOpts = append(reconcilerOpts, ledger.WithMetrics(ledger.NewMetrics(registerer)))
	}

	rt.runner = &payrun.Runner{
		Engine:  engine,
		Ledger:  ledger.NewReconciler(store, reconcilerOpts...),
		Workers: s.BatchWorkers,
		Logger:  o.Logger,
	}
	if rt.catalog != nil {
		rt.runner.Catalog = rt.catalog
	}
	o.Logger.Debug("runtime ready",
		slog.String("ledger_driver", s.LedgerDriver),
		slog.String("method", string(s.Method())),
		slog.String("catalog", catalogFile),
	)
	return rt, nil
}

func (rt *runtime) openCatalog(ctx context.Context, o *RootOptions, path string) error {
	static, err := config.LoadTaxCatalog(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load tax catalog", err)
	}
	if err := rt.openCache(ctx, o); err != nil {
		return err
	}
	var cache rules.Cache = rules.NewMemoryCache(o.Settings.RuleCacheTTL)
	if rt.cache != nil {
		cache = rt.cache
	}
	rt.catalog = rules.NewCachedCatalog(static, cache, o.Logger)
	return nil
}

// openCache connects the shared Redis rule cache when PAYROLL_REDIS_ADDR is set.
func (rt *runtime) openCache(ctx context.Context, o *RootOptions) error {
	s := o.Settings
	if s.RedisAddr == "" {
		return nil
	}
	client, err := rules.NewRedisClient(ctx, s.RedisAddr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to connect to redis", err)
	}
	rt.closers = append(rt.closers, client.Close)
	rt.cache = rules.NewRedisCache(client, s.RuleCacheTTL)
	return nil
}

// Close releases everything the runtime opened, last opened first.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
