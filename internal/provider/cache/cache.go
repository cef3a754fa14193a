package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"stockticker/internal/provider"
)

// DefaultTTL is how long a fetched quote is served without a network call.
const DefaultTTL = 10 * time.Minute

// Cache maps normalized symbols to their last successful quote. Entries are
// never evicted; they only go stale once their age reaches the TTL.
type Cache struct {
	ttl   time.Duration
	now   func() time.Time
	items *gocache.Cache
}

type Option func(*Cache)

// WithClock overrides the time source used for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		ttl: ttl,
		now: time.Now,
		// staleness is judged against FetchedAt, so the store itself never expires
		// entries and runs no janitor
		items: gocache.New(gocache.NoExpiration, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the cached quote for symbol, fresh or not.
func (c *Cache) Get(symbol string) (provider.Quote, bool) {
	v, ok := c.items.Get(provider.NormalizeSymbol(symbol))
	if !ok {
		return provider.Quote{}, false
	}
	q, ok := v.(provider.Quote)
	return q, ok
}

// Put stores q under symbol. Only ok quotes are stored; anything else is
// dropped and Put reports false.
func (c *Cache) Put(symbol string, q provider.Quote) bool {
	if !q.OK() {
		return false
	}
	symbol = provider.NormalizeSymbol(symbol)
	q.Symbol = symbol
	c.items.Set(symbol, q, gocache.NoExpiration)
	return true
}

// Fresh reports whether q is younger than the cache TTL.
func (c *Cache) Fresh(q provider.Quote) bool {
	return IsFresh(q, c.ttl, c.now())
}

// Len reports how many symbols have a cached quote.
func (c *Cache) Len() int { return c.items.ItemCount() }

// IsFresh reports whether now - q.FetchedAt < ttl.
func IsFresh(q provider.Quote, ttl time.Duration, now time.Time) bool {
	return now.Sub(q.FetchedAt) < ttl
}

// Provider serves quotes from a Cache and asks the underlying provider only
// for symbols that are missing or stale. Failed lookups are never cached, so a
// repeat request within the TTL goes back upstream. History passes through.
type Provider struct {
	P     provider.Provider
	Cache *Cache
	Log   zerolog.Logger
}

func (c *Provider) Name() string { return c.P.Name() }

func (c *Provider) BatchesSymbols() bool { return provider.Batches(c.P) }

// Fetch returns quotes for requested symbols using cache when fresh.
func (c *Provider) Fetch(ctx context.Context, symbols []string) ([]provider.Quote, error) {
	symbols = provider.NormalizeSymbols(symbols)

	cached := make(map[string]provider.Quote, len(symbols))
	missing := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if q, ok := c.Cache.Get(s); ok && c.Cache.Fresh(q) {
			cached[s] = q
			continue
		}
		missing = append(missing, s)
	}

	if len(missing) == 0 {
		c.Log.Debug().Strs("symbols", symbols).Msg("quote cache hit")
		return ordered(symbols, cached), nil
	}

	fresh, err := c.P.Fetch(ctx, missing)
	for _, q := range fresh {
		if c.Cache.Put(q.Symbol, q) {
			continue
		}
		c.Log.Warn().Str("symbol", q.Symbol).Str("status", string(q.Status)).Msg("quote not cached")
	}
	for _, q := range fresh {
		cached[q.Symbol] = q
	}
	return ordered(symbols, cached), err
}

// Quote resolves a single symbol through Fetch.
func (c *Provider) Quote(ctx context.Context, symbol string) provider.Quote {
	symbol = provider.NormalizeSymbol(symbol)
	qs, _ := c.Fetch(ctx, []string{symbol})
	for _, q := range qs {
		if q.Symbol == symbol {
			return q
		}
	}
	return provider.Failed(symbol, provider.StatusNetworkError, c.Cache.now())
}

func (c *Provider) History(ctx context.Context, symbol string) (provider.History, error) {
	return c.P.History(ctx, symbol)
}

// ordered lists quotes in request order, skipping symbols with no result.
func ordered(symbols []string, by map[string]provider.Quote) []provider.Quote {
	out := make([]provider.Quote, 0, len(symbols))
	for _, s := range symbols {
		if q, ok := by[s]; ok {
			out = append(out, q)
		}
	}
	return out
}
