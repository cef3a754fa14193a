package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"stockticker/internal/provider"
)

// PerMinute builds a limiter allowing rpm requests per minute with the given
// burst. Non-positive rpm yields an unlimited limiter.
func PerMinute(rpm, burst int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), burst)
}

// TokenBucketProvider wraps a Provider and takes one token per upstream
// request, quotes and history alike, from one shared limiter. A multi-symbol
// Fetch against a provider that cannot batch is split into one call per
// symbol so every request it causes pays for a token.
type TokenBucketProvider struct {
	P  provider.Provider
	TB *rate.Limiter
}

func (t *TokenBucketProvider) Name() string { return t.P.Name() }

func (t *TokenBucketProvider) BatchesSymbols() bool { return provider.Batches(t.P) }

func (t *TokenBucketProvider) Fetch(ctx context.Context, symbols []string) ([]provider.Quote, error) {
	symbols = provider.NormalizeSymbols(symbols)
	if provider.Batches(t.P) {
		if err := t.wait(ctx); err != nil {
			return nil, err
		}
		return t.P.Fetch(ctx, symbols)
	}
	out := make([]provider.Quote, 0, len(symbols))
	for _, s := range symbols {
		if err := t.wait(ctx); err != nil {
			return out, err
		}
		qs, err := t.P.Fetch(ctx, []string{s})
		out = append(out, qs...)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func (t *TokenBucketProvider) History(ctx context.Context, symbol string) (provider.History, error) {
	if err := t.wait(ctx); err != nil {
		return provider.History{Symbol: provider.NormalizeSymbol(symbol)}, err
	}
	return t.P.History(ctx, symbol)
}

func (t *TokenBucketProvider) wait(ctx context.Context) error {
	if t.TB == nil {
		return nil
	}
	return t.TB.Wait(ctx)
}
