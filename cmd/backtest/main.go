package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	alpacamd "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/marketreplay/backtester/internal/audit"
	"github.com/marketreplay/backtester/internal/backtest"
	"github.com/marketreplay/backtester/internal/config"
	"github.com/marketreplay/backtester/internal/marketcache"
	"github.com/marketreplay/backtester/internal/marketdata"
	"github.com/marketreplay/backtester/internal/risk"
	"github.com/marketreplay/backtester/internal/strategy"
)

func main() {
	tickers := flag.String("tickers", "SPY", "Comma-separated tickers to backtest")
	strategyName := flag.String("strategy", "rsi_mean_reversion", "Strategy to run")
	startDate := flag.String("start", "", "Start date (YYYY-MM-DD)")
	endDate := flag.String("end", "", "End date (YYYY-MM-DD); only logged, the replay window always ends at the current time")
	capital := flag.Float64("capital", 100000, "Initial capital per strategy")
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	outputDir := flag.String("output", "./backtest_results", "Output directory for the JSON results bundle")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	logger := log.With().Str("component", "backtest").Logger()

	logger.Info().Msg("starting backtest engine")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	start, end := resolveDates(*startDate, *endDate, cfg.Replay.PreviousDays)
	symbols := strings.Split(*tickers, ",")

	logger.Info().
		Strs("tickers", symbols).
		Str("strategy", *strategyName).
		Time("start", start).
		Time("end", end).
		Float64("capital", *capital).
		Msg("backtest configuration")

	provider, err := buildProvider(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build market data provider")
	}

	cache, err := marketcache.NewFileCache(cfg.Cache.Directory)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open historical data cache")
	}

	cacheCfg := marketcache.Config{
		MaxRetries:     cfg.Cache.MaxRetries,
		ParallelFetch:  cfg.Cache.ParallelFetch,
		ShutdownBudget: cfg.Cache.ShutdownBudget,
	}
	service := marketcache.New(provider, cache, cacheCfg, nil, logger)

	ctx := context.Background()
	previousDays := int(time.Since(start).Hours()/24) + 1
	if previousDays < 1 {
		previousDays = 1
	}
	if err := service.Initialize(ctx, symbols, previousDays, marketdata.NYSE); err != nil {
		logger.Fatal().Err(err).Msg("failed to warm historical data cache")
	}

	algo, err := createAlgorithm(*strategyName, symbols)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build strategy")
	}

	builderCfg, err := backtest.NewBuilder().
		Tickers(symbols...).
		PreviousDays(previousDays).
		Market(marketdata.NYSE).
		Provider(provider).
		Strategy(algo, *capital).
		Build()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid backtest configuration")
	}

	engine := backtest.NewEngine(service, logger, nil)
	engine.SetTradeJournal(audit.NewLogger(nil, logger))

	results, err := engine.Run(ctx, builderCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("backtest failed")
	}

	fmt.Println(results.String())

	if err := results.SaveToFile(*outputDir); err != nil {
		logger.Error().Err(err).Msg("failed to save results file")
	} else {
		logger.Info().Str("directory", *outputDir).Msg("detailed report saved")
	}

	for id, stats := range results.Statistics {
		logger.Info().
			Str("strategy", id).
			Float64("total_profit", stats.TotalProfit).
			Float64("max_drawdown_pct", stats.MaxDrawdown).
			Float64("sharpe", stats.Sharpe).
			Int("trades", stats.TotalTrades).
			Msg("backtest completed")
	}

	if err := service.Close(ctx); err != nil {
		logger.Error().Err(err).Msg("error during cache shutdown")
	}
}

// resolveDates applies the fallback window: previousDays back from
// yesterday when no explicit range is given.
func resolveDates(startFlag, endFlag string, previousDays int) (time.Time, time.Time) {
	var start, end time.Time
	var err error

	if previousDays <= 0 {
		previousDays = 30
	}

	if endFlag != "" {
		end, err = time.Parse("2006-01-02", endFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid end date format (use YYYY-MM-DD)")
		}
	} else {
		end = time.Now().AddDate(0, 0, -1)
	}

	if startFlag != "" {
		start, err = time.Parse("2006-01-02", startFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid start date format (use YYYY-MM-DD)")
		}
	} else {
		start = end.AddDate(0, 0, -previousDays)
	}

	return start, end
}

// buildProvider selects Alpaca when the configured market data provider is
// "alpaca" and an API key is set, falling back to the deterministic simulated provider otherwise so the
// backtester runs end to end without any network access.
func buildProvider(cfg *config.Config, logger zerolog.Logger) (marketdata.Provider, error) {
	if cfg.MarketData.Provider == "alpaca" && cfg.MarketData.Alpaca.APIKey != "" {
		client := alpacamd.NewClient(alpacamd.ClientOpts{
			APIKey:    cfg.MarketData.Alpaca.APIKey,
			APISecret: cfg.MarketData.Alpaca.APISecret,
		})
		rateLimit := int(cfg.MarketData.Alpaca.RateLimit)
		if rateLimit <= 0 {
			rateLimit = 200
		}
		return marketdata.NewAlpacaProvider(client, rateLimit, logger), nil
	}

	sim := marketdata.NewSimulatedProvider(cfg.MarketData.Simulated.Seed)
	if cfg.MarketData.Simulated.StartPrice > 0 {
		sim.StartPrice = cfg.MarketData.Simulated.StartPrice
	}
	if cfg.MarketData.Simulated.Volatility > 0 {
		sim.Volatility = cfg.MarketData.Simulated.Volatility
	}
	return sim, nil
}

// createAlgorithm builds the named strategy with its built-in default
// parameters rather than a per-strategy YAML config block.
func createAlgorithm(name string, symbols []string) (backtest.Algorithm, error) {
	switch name {
	case "rsi_mean_reversion":
		rsi := strategy.NewRSIMeanReversion(name, symbols, 14, 30, 70, 10)
		rsi.SetPositionSizer(risk.NewPercentRiskSizer(0.01, 0.20))
		return rsi, nil
	case "bollinger_band_bounce":
		return strategy.NewBollingerMeanReversion(name, symbols, 20, 2.0, 10), nil
	case "vwap_bounce":
		return strategy.NewVWAPBounce(name, symbols, 0.003, 0.01, 20, 10), nil
	case "ma_crossover":
		return strategy.NewMovingAverageCrossover(name, symbols, 10, 30, 10), nil
	default:
		return nil, fmt.Errorf("unknown strategy type: %s", name)
	}
}
