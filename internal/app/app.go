// Package app wires configuration into the provider chain, the ticker cycle
// and the search service shared by the server and the CLI.
package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"stockticker/internal/chart"
	"stockticker/internal/config"
	"stockticker/internal/httpx"
	"stockticker/internal/provider"
	"stockticker/internal/provider/alphavantage"
	"stockticker/internal/provider/cache"
	"stockticker/internal/provider/ratelimit"
	"stockticker/internal/provider/yahoo"
	"stockticker/internal/search"
	"stockticker/internal/ticker"
)

type App struct {
	Config config.Config
	Log    zerolog.Logger

	Cache  *cache.Cache
	Quotes *cache.Provider
	Chart  *chart.Renderer
	Search *search.Service
	Board  *ticker.Board
	Cycle  *ticker.Cycle
}

// New validates cfg and builds the full application around the configured
// upstream provider.
func New(cfg config.Config, log zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	up, err := Upstream(cfg, log)
	if err != nil {
		return nil, err
	}
	return NewWith(cfg, up, log), nil
}

// Upstream builds the bare provider named by cfg.
func Upstream(cfg config.Config, log zerolog.Logger) (provider.Provider, error) {
	hc := httpx.New(cfg.RequestTimeout(), httpx.DefaultUserAgent)
	switch cfg.Provider.Name {
	case config.ProviderAlphaVantage:
		if cfg.Provider.APIKey == "" {
			log.Warn().Msg("alphavantage selected but PROVIDER_API_KEY not set; using the demo key")
			cfg.Provider.APIKey = "demo"
		}
		return alphavantage.New(cfg.Provider.APIKey,
			alphavantage.WithBaseURL(cfg.Provider.Endpoint),
			alphavantage.WithHTTPClient(hc),
			alphavantage.WithLogger(log),
		), nil
	case config.ProviderYahoo:
		return yahoo.New(yahoo.Config{BaseURL: cfg.Provider.Endpoint, Log: log}, hc), nil
	default:
		return nil, fmt.Errorf("provider %q: %w", cfg.Provider.Name, config.ErrUnknownProvider)
	}
}

// Throttle wraps p with a token bucket when a per-minute budget is set,
// otherwise with a minimum interval when one is set.
func Throttle(p provider.Provider, cfg config.Config) provider.Provider {
	switch {
	case cfg.Provider.MaxRequestsPerMinute > 0:
		return &ratelimit.TokenBucketProvider{P: p, TB: ratelimit.PerMinute(cfg.Provider.MaxRequestsPerMinute, cfg.Provider.Burst)}
	case cfg.Provider.MinRequestIntervalSec > 0:
		return &ratelimit.MinInterval{P: p, Interval: cfg.MinRequestInterval()}
	default:
		return p
	}
}

// NewWith builds the application around an already constructed upstream:
// upstream -> throttle -> quote cache, shared by the ticker and search.
func NewWith(cfg config.Config, upstream provider.Provider, log zerolog.Logger) *App {
	qc := cache.New(cfg.CacheTTL())
	quotes := &cache.Provider{P: Throttle(upstream, cfg), Cache: qc, Log: log.With().Str("component", "cache").Logger()}
	renderer := chart.New()
	board := ticker.NewBoard()

	a := &App{
		Config: cfg,
		Log:    log,
		Cache:  qc,
		Quotes: quotes,
		Chart:  renderer,
		Board:  board,
	}
	a.Search = &search.Service{
		Quotes:  quotes,
		History: quotes,
		Chart:   renderer,
		Log:     log.With().Str("component", "search").Logger(),
	}
	a.Cycle = &ticker.Cycle{
		Watchlist: cfg.Ticker.Symbols,
		Source:    quotes,
		Board:     board,
		Delay:     cfg.TickerDelay(),
		Cooldown:  cfg.TickerCooldown(),
		Batch:     cfg.Ticker.Batch,
		Log:       log.With().Str("component", "ticker").Logger(),
	}
	log.Info().
		Str("provider", upstream.Name()).
		Dur("ttl", qc.TTL()).
		Dur("delay", a.Cycle.Delay).
		Bool("batch", a.Cycle.Batch).
		Msg("app ready")
	return a
}
