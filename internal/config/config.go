package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"stockticker/internal/provider"
)

const (
	ProviderAlphaVantage = "alphavantage"
	ProviderYahoo        = "yahoo"
)

var (
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrBatchUnsupported is returned when batch mode is requested for a
	// provider that sends one upstream request per symbol.
	ErrBatchUnsupported = errors.New("provider does not batch symbols")
)

type Server struct {
	Port              string `json:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type Provider struct {
	Name                  string `json:"name"`
	APIKey                string `json:"api_key"`
	Endpoint              string `json:"endpoint"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec"`
	Burst                 int    `json:"burst"`
}

type Cache struct {
	TTLSeconds int `json:"ttl_sec"`
}

type Ticker struct {
	Enabled     bool     `json:"enabled"`
	Symbols     []string `json:"symbols"`
	DelaySec    int      `json:"delay_sec"`
	CooldownSec int      `json:"cooldown_sec"`
	Batch       bool     `json:"batch"`
}

type Log struct {
	Level  string `json:"level"`
	Pretty bool   `json:"pretty"`
}

type Config struct {
	Server   Server   `json:"server"`
	Provider Provider `json:"provider"`
	Cache    Cache    `json:"cache"`
	Ticker   Ticker   `json:"ticker"`
	Log      Log      `json:"log"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 10},
		Provider: Provider{Name: ProviderAlphaVantage, Burst: 1},
		Cache: Cache{TTLSeconds: 600},
		Ticker: Ticker{
			Enabled:  true,
			Symbols:  []string{"AAPL", "MSFT", "AMZN", "GOOGL", "META"},
			DelaySec: 12,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads JSON config from path. If path is empty it falls back to
// ./config.json when present, otherwise defaults. A .env file in the working
// directory is loaded first; environment variables then override the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	cfg.Provider.Name = strings.ToLower(strings.TrimSpace(cfg.Provider.Name))
	cfg.Ticker.Symbols = provider.NormalizeSymbols(cfg.Ticker.Symbols)
	return cfg, nil
}

// Validate reports the first setting the service cannot run with.
func (c Config) Validate() error {
	switch c.Provider.Name {
	case ProviderAlphaVantage, ProviderYahoo:
	default:
		return fmt.Errorf("provider %q: %w", c.Provider.Name, ErrUnknownProvider)
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache ttl_sec must be positive, got %d", c.Cache.TTLSeconds)
	}
	if c.Ticker.DelaySec < 0 || c.Ticker.CooldownSec < 0 {
		return fmt.Errorf("ticker delays must not be negative")
	}
	if c.Ticker.Enabled && len(c.Ticker.Symbols) == 0 {
		return fmt.Errorf("ticker enabled with an empty watchlist")
	}
	// alphavantage and yahoo both send one request per symbol
	if c.Ticker.Batch {
		return fmt.Errorf("ticker batch with provider %q: %w", c.Provider.Name, ErrBatchUnsupported)
	}
	return nil
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSec) * time.Second
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func (c Config) TickerDelay() time.Duration {
	return time.Duration(c.Ticker.DelaySec) * time.Second
}

// TickerCooldown is the pause between passes; zero means the cache TTL.
func (c Config) TickerCooldown() time.Duration {
	if c.Ticker.CooldownSec <= 0 {
		return c.CacheTTL()
	}
	return time.Duration(c.Ticker.CooldownSec) * time.Second
}

func (c Config) MinRequestInterval() time.Duration {
	return time.Duration(c.Provider.MinRequestIntervalSec) * time.Second
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	envInt("REQUEST_TIMEOUT_SEC", 1, &cfg.Server.RequestTimeoutSec)

	if v := os.Getenv("PROVIDER"); v != "" {
		cfg.Provider.Name = v
	}
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("PROVIDER_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("PROVIDER_ENDPOINT"); v != "" {
		cfg.Provider.Endpoint = v
	}
	envInt("PROVIDER_MAX_RPM", 0, &cfg.Provider.MaxRequestsPerMinute)
	envInt("PROVIDER_MIN_INTERVAL_SEC", 0, &cfg.Provider.MinRequestIntervalSec)
	envInt("PROVIDER_BURST", 1, &cfg.Provider.Burst)

	envInt("QUOTE_CACHE_TTL_SEC", 1, &cfg.Cache.TTLSeconds)

	envBool("TICKER_ENABLED", &cfg.Ticker.Enabled)
	if v := os.Getenv("TICKER_SYMBOLS"); v != "" {
		cfg.Ticker.Symbols = splitCSV(v)
	}
	envInt("TICKER_DELAY_SEC", 0, &cfg.Ticker.DelaySec)
	envInt("TICKER_COOLDOWN_SEC", 0, &cfg.Ticker.CooldownSec)
	envBool("TICKER_BATCH", &cfg.Ticker.Batch)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	envBool("LOG_PRETTY", &cfg.Log.Pretty)
}

// envInt sets *dst from key when the value parses and is at least min.
func envInt(key string, min int, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var x int
	if _, err := fmt.Sscanf(v, "%d", &x); err == nil && x >= min {
		*dst = x
	}
}

func envBool(key string, dst *bool) {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "y":
		*dst = true
	case "0", "false", "no", "n":
		*dst = false
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
