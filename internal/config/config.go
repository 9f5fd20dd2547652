// Package config loads application configuration from a YAML file with
// environment variable overrides, using viper's layered configuration.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Replay       ReplayConfig       `mapstructure:"replay"`
	Cache        CacheConfig        `mapstructure:"cache"`
	MarketData   MarketDataConfig   `mapstructure:"market_data"`
	Fundamentals FundamentalsConfig `mapstructure:"fundamentals"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig holds the read-only results HTTP server configuration.
type ServerConfig struct {
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout"`
	CORSAllowedOrigins string        `mapstructure:"cors_allowed_origins"`
}

// DatabaseConfig holds the optional Timescale mirror connection settings.
// Backtests run against the file cache without a database at all; this
// section only applies when a mirror is configured.
type DatabaseConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	User        string        `mapstructure:"user"`
	Password    string        `mapstructure:"password"`
	Database    string        `mapstructure:"database"`
	MaxConns    int           `mapstructure:"max_conns"`
	MinConns    int           `mapstructure:"min_conns"`
	MaxConnLife time.Duration `mapstructure:"max_conn_life"`
}

// ReplayConfig holds the default backtest replay parameters.
type ReplayConfig struct {
	Tickers               []string      `mapstructure:"tickers"`
	PreviousDays          int           `mapstructure:"previous_days"`
	Interval              time.Duration `mapstructure:"interval"`
	RunOnMarketClosed     bool          `mapstructure:"run_on_market_closed"`
	AutoLiquidateOnFinish bool          `mapstructure:"auto_liquidate_on_finish"`
	InitialCash           float64       `mapstructure:"initial_cash"`
	Market                string        `mapstructure:"market"` // "nyse", "lse", or "tse"
}

// CacheConfig holds the historical-data file cache settings.
type CacheConfig struct {
	Directory      string        `mapstructure:"directory"`
	MaxRetries     int           `mapstructure:"max_retries"`
	ParallelFetch  int           `mapstructure:"parallel_fetch"`
	ShutdownBudget time.Duration `mapstructure:"shutdown_budget"`
}

// MarketDataConfig holds market data provider configuration.
type MarketDataConfig struct {
	Provider  string          `mapstructure:"provider"` // "alpaca" or "simulated"
	Alpaca    AlpacaConfig    `mapstructure:"alpaca"`
	Simulated SimulatedConfig `mapstructure:"simulated"`
}

// AlpacaConfig holds Alpaca-specific configuration.
type AlpacaConfig struct {
	APIKey    string  `mapstructure:"api_key"`
	APISecret string  `mapstructure:"api_secret"`
	RateLimit float64 `mapstructure:"rate_limit"` // requests per minute
}

// SimulatedConfig holds deterministic-random provider settings, used in
// tests and demos where no real market data feed is available.
type SimulatedConfig struct {
	Seed       int64   `mapstructure:"seed"`
	StartPrice float64 `mapstructure:"start_price"`
	Volatility float64 `mapstructure:"volatility"`
}

// FundamentalsConfig holds the auxiliary fundamentals sidecar settings.
type FundamentalsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	CacheDir string        `mapstructure:"cache_dir"`
	TTL      time.Duration `mapstructure:"ttl"`
	NewsFeed string        `mapstructure:"news_feed_url"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // "json" or "console"
	TimeFormat string `mapstructure:"time_format"`
}

// Load reads configuration from the given YAML file, applying defaults
// first and environment variable overrides last.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	v.SetEnvPrefix("BACKTESTER")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if v.IsSet("ALPACA_API_KEY") {
		cfg.MarketData.Alpaca.APIKey = v.GetString("ALPACA_API_KEY")
	}
	if v.IsSet("ALPACA_API_SECRET") {
		cfg.MarketData.Alpaca.APISecret = v.GetString("ALPACA_API_SECRET")
	}
	if v.IsSet("DB_HOST") {
		cfg.Database.Host = v.GetString("DB_HOST")
	}
	if v.IsSet("DB_PASSWORD") {
		cfg.Database.Password = v.GetString("DB_PASSWORD")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.cors_allowed_origins", "*")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "backtester")
	v.SetDefault("database.database", "backtester")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_life", 5*time.Minute)

	v.SetDefault("replay.previous_days", 30)
	v.SetDefault("replay.interval", time.Minute)
	v.SetDefault("replay.run_on_market_closed", false)
	v.SetDefault("replay.auto_liquidate_on_finish", true)
	v.SetDefault("replay.initial_cash", 100_000.0)
	v.SetDefault("replay.market", "nyse")

	v.SetDefault("cache.directory", "./data/cache")
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.parallel_fetch", 4)
	v.SetDefault("cache.shutdown_budget", 5*time.Second)

	v.SetDefault("market_data.provider", "simulated")
	v.SetDefault("market_data.alpaca.rate_limit", 200.0)
	v.SetDefault("market_data.simulated.seed", 1)
	v.SetDefault("market_data.simulated.start_price", 100.0)
	v.SetDefault("market_data.simulated.volatility", 0.002)

	v.SetDefault("fundamentals.enabled", false)
	v.SetDefault("fundamentals.cache_dir", "./data/fundamentals")
	v.SetDefault("fundamentals.ttl", 24*time.Hour)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.time_format", time.RFC3339)
}

// ConnectionString returns a PostgreSQL connection string for the
// Timescale mirror.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database,
	)
}
