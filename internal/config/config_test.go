package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stockticker/internal/config"
)

var envKeys = []string{
	"CONFIG_FILE", "PORT", "REQUEST_TIMEOUT_SEC", "PROVIDER", "PROVIDER_API_KEY", "ALPHAVANTAGE_API_KEY",
	"PROVIDER_ENDPOINT", "PROVIDER_MAX_RPM", "PROVIDER_MIN_INTERVAL_SEC", "PROVIDER_BURST",
	"QUOTE_CACHE_TTL_SEC", "TICKER_ENABLED", "TICKER_SYMBOLS", "TICKER_DELAY_SEC",
	"TICKER_COOLDOWN_SEC", "TICKER_BATCH", "LOG_LEVEL", "LOG_PRETTY",
}

// isolate runs the test in an empty directory with every recognised
// variable blanked, so no stray config.json, .env or shell setting leaks in.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := config.Load("")

	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, config.ProviderAlphaVantage, cfg.Provider.Name)
	require.Equal(t, 10*time.Minute, cfg.CacheTTL())
	require.Equal(t, 12*time.Second, cfg.TickerDelay())
	require.Equal(t, 10*time.Minute, cfg.TickerCooldown())
	require.Equal(t, []string{"AAPL", "MSFT", "AMZN", "GOOGL", "META"}, cfg.Ticker.Symbols)
	require.Equal(t, 10*time.Second, cfg.RequestTimeout())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := isolate(t)

	// Arrange: a config file and env overrides on top of it
	path := filepath.Join(dir, "ticker.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"provider": {"name": "Yahoo", "burst": 3},
		"cache": {"ttl_sec": 300},
		"ticker": {"symbols": [" nvda", "tsla", "NVDA"], "cooldown_sec": 60}
	}`), 0o600))
	t.Setenv("PROVIDER_API_KEY", "secret")
	t.Setenv("TICKER_BATCH", "yes")
	t.Setenv("TICKER_DELAY_SEC", "-4")
	t.Setenv("LOG_LEVEL", "debug")

	// Act
	cfg, err := config.Load(path)

	// Assert
	require.NoError(t, err)
	require.ErrorIs(t, cfg.Validate(), config.ErrBatchUnsupported, "yahoo fetches one symbol per request")
	require.Equal(t, config.ProviderYahoo, cfg.Provider.Name)
	require.Equal(t, 3, cfg.Provider.Burst)
	require.Equal(t, "secret", cfg.Provider.APIKey)
	require.Equal(t, []string{"NVDA", "TSLA"}, cfg.Ticker.Symbols)
	require.True(t, cfg.Ticker.Batch)
	require.Equal(t, 12*time.Second, cfg.TickerDelay(), "negative env value is ignored")
	require.Equal(t, time.Minute, cfg.TickerCooldown())
	require.Equal(t, 5*time.Minute, cfg.CacheTTL())
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TICKER_SYMBOLS=ibm, orcl\n"), 0o600))
	// godotenv never overrides variables that are already set
	require.NoError(t, os.Unsetenv("TICKER_SYMBOLS"))

	cfg, err := config.Load("")

	require.NoError(t, err)
	require.Equal(t, []string{"IBM", "ORCL"}, cfg.Ticker.Symbols)
}

func TestLoad_BadJSON(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := config.Load(path)

	require.ErrorContains(t, err, "parse config")
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := config.Load(filepath.Join(dir, "absent.json"))

	require.NoError(t, err)
	require.Equal(t, config.Default().Server, cfg.Server)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   error
		ok     bool
	}{
		{"defaults", func(*config.Config) {}, nil, true},
		{"unknown provider", func(c *config.Config) { c.Provider.Name = "bloomberg" }, config.ErrUnknownProvider, false},
		{"zero ttl", func(c *config.Config) { c.Cache.TTLSeconds = 0 }, nil, false},
		{"negative delay", func(c *config.Config) { c.Ticker.DelaySec = -1 }, nil, false},
		{"empty watchlist", func(c *config.Config) { c.Ticker.Symbols = nil }, nil, false},
		{"batch alphavantage", func(c *config.Config) { c.Ticker.Batch = true }, config.ErrBatchUnsupported, false},
		{"batch yahoo", func(c *config.Config) { c.Provider.Name = config.ProviderYahoo; c.Ticker.Batch = true }, config.ErrBatchUnsupported, false},
		{"empty watchlist, ticker off", func(c *config.Config) { c.Ticker.Symbols = nil; c.Ticker.Enabled = false }, nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			tc.mutate(&cfg)

			err := cfg.Validate()

			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tc.want != nil {
				require.ErrorIs(t, err, tc.want)
			}
		})
	}
}
