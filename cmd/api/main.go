package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/marketreplay/backtester/internal/api"
	"github.com/marketreplay/backtester/internal/api/handlers"
	"github.com/marketreplay/backtester/internal/audit"
	"github.com/marketreplay/backtester/internal/backtest"
	"github.com/marketreplay/backtester/internal/config"
	"github.com/marketreplay/backtester/internal/database"
	"github.com/marketreplay/backtester/internal/marketcache"
	"github.com/marketreplay/backtester/internal/marketdata"
	"github.com/marketreplay/backtester/internal/metrics"
	"github.com/marketreplay/backtester/internal/strategy"
)

func main() {
	var exitCode int
	defer func() { os.Exit(exitCode) }()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = 1
	}
}

// run wires together the market data cache, a default replay run, and the
// read-only results HTTP server. It runs one backtest over the configured
// tickers at startup, stores the result, and serves it until interrupted.
func run() error {
	logger := log.With().Str("component", "api").Logger()

	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := metrics.NewBacktestMetrics("backtester")

	db, err := optionalTimescalePool(ctx, cfg, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("timescale mirror unavailable, continuing without it")
	}
	if db != nil {
		defer db.Close()
	}

	provider := defaultProvider(cfg)
	cache, err := marketcache.NewFileCache(cfg.Cache.Directory)
	if err != nil {
		return fmt.Errorf("open historical data cache: %w", err)
	}

	var mirror marketcache.Mirror
	if db != nil {
		tm := marketcache.NewTimescaleMirror(db, logger)
		tm.SetMetrics(reg)
		mirror = tm
	}

	service := marketcache.New(provider, cache, marketcache.Config{
		MaxRetries:     cfg.Cache.MaxRetries,
		ParallelFetch:  cfg.Cache.ParallelFetch,
		ShutdownBudget: cfg.Cache.ShutdownBudget,
	}, mirror, logger)
	service.SetMetrics(reg)

	store := api.NewResultStore()
	broker := api.NewTickBroker()

	tickers := cfg.Replay.Tickers
	if len(tickers) == 0 {
		tickers = []string{"SPY"}
	}
	runID := time.Now().UTC().Format("2006-01-02T15:04")

	journal := audit.NewLogger(db, logger)

	if err := runDefaultBacktest(ctx, service, provider, reg, broker, store, journal, runID, tickers, cfg); err != nil {
		logger.Error().Err(err).Msg("startup backtest failed, serving an empty result set")
	}

	var pinger handlers.Pinger
	if db != nil {
		pinger = db
	}
	server := api.NewServer(&cfg.Server, store, broker, pinger, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server exited: %w", err)
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
	}

	return nil
}

func configPath() string {
	if p := os.Getenv("BACKTESTER_CONFIG"); p != "" {
		return p
	}
	return "configs/config.yaml"
}

func defaultProvider(cfg *config.Config) marketdata.Provider {
	sim := marketdata.NewSimulatedProvider(cfg.MarketData.Simulated.Seed)
	if cfg.MarketData.Simulated.StartPrice > 0 {
		sim.StartPrice = cfg.MarketData.Simulated.StartPrice
	}
	if cfg.MarketData.Simulated.Volatility > 0 {
		sim.Volatility = cfg.MarketData.Simulated.Volatility
	}
	return sim
}

func optionalTimescalePool(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*pgxpool.Pool, error) {
	if cfg.Database.Host == "" {
		return nil, nil
	}

	if err := runMirrorMigrations(cfg, logger); err != nil {
		return nil, fmt.Errorf("migrate timescale mirror: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connect timescale: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping timescale: %w", err)
	}
	return pool, nil
}

// runMirrorMigrations applies migrations/*.sql against the mirror database
// through a plain database/sql handle; the pgxpool used by the rest of the
// process is opened separately once migrations have settled.
func runMirrorMigrations(cfg *config.Config, logger zerolog.Logger) error {
	db, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	return database.RunMigrations(db, database.MigrationConfig{
		MigrationsPath: "migrations",
		DatabaseName:   cfg.Database.Database,
	}, logger)
}

// runDefaultBacktest runs the default RSI mean-reversion strategy over the
// configured replay window and publishes its result under runID.
func runDefaultBacktest(ctx context.Context, service *marketcache.Service, provider marketdata.Provider, reg *metrics.BacktestMetrics,
	broker *api.TickBroker, store *api.ResultStore, journal *audit.Logger, runID string, tickers []string, cfg *config.Config) error {

	previousDays := cfg.Replay.PreviousDays
	if previousDays <= 0 {
		previousDays = 30
	}
	initialCash := cfg.Replay.InitialCash
	if initialCash <= 0 {
		initialCash = 100_000
	}

	algo := strategy.NewRSIMeanReversion(strings.Join(tickers, "-")+"-rsi", tickers, 14, 30, 70, 10)

	builderCfg, err := backtest.NewBuilder().
		Tickers(tickers...).
		PreviousDays(previousDays).
		Market(marketdata.NYSE).
		Provider(provider).
		Strategy(algo, initialCash).
		Build()
	if err != nil {
		return fmt.Errorf("build backtest config: %w", err)
	}

	engine := backtest.NewEngine(service, zerolog.Nop(), broker.Publish(runID))
	engine.SetMetrics(reg)
	engine.SetTradeJournal(journal)

	results, err := engine.Run(ctx, builderCfg)
	if err != nil {
		return fmt.Errorf("run backtest: %w", err)
	}

	store.Put(runID, results)
	return nil
}
