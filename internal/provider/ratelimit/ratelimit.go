package ratelimit

import (
	"context"
	"sync"
	"time"

	"stockticker/internal/provider"
)

// MinInterval wraps a provider and enforces a minimum time between upstream
// requests. A multi-symbol Fetch against a provider that cannot batch is split
// into one call per symbol, each behind the gate. Concurrent calls queue
// behind the gate, or return early if their context is canceled.
type MinInterval struct {
	P        provider.Provider
	Interval time.Duration

	gate sync.Mutex
	last time.Time
}

func (m *MinInterval) Name() string { return m.P.Name() }

func (m *MinInterval) BatchesSymbols() bool { return provider.Batches(m.P) }

func (m *MinInterval) Fetch(ctx context.Context, symbols []string) ([]provider.Quote, error) {
	symbols = provider.NormalizeSymbols(symbols)
	if provider.Batches(m.P) {
		return m.fetchOne(ctx, symbols)
	}
	out := make([]provider.Quote, 0, len(symbols))
	for _, s := range symbols {
		qs, err := m.fetchOne(ctx, []string{s})
		out = append(out, qs...)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// fetchOne performs a single gated upstream request.
func (m *MinInterval) fetchOne(ctx context.Context, symbols []string) ([]provider.Quote, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	defer m.gate.Unlock()
	qs, err := m.P.Fetch(ctx, symbols)
	m.last = time.Now()
	return qs, err
}

func (m *MinInterval) History(ctx context.Context, symbol string) (provider.History, error) {
	if err := m.wait(ctx); err != nil {
		return provider.History{Symbol: provider.NormalizeSymbol(symbol)}, err
	}
	defer m.gate.Unlock()
	h, err := m.P.History(ctx, symbol)
	m.last = time.Now()
	return h, err
}

// wait acquires the gate and sleeps out the remaining interval. On success the
// caller holds the gate and must release it.
func (m *MinInterval) wait(ctx context.Context) error {
	m.gate.Lock()
	if m.Interval <= 0 {
		return nil
	}
	wait := time.Until(m.last.Add(m.Interval))
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		m.gate.Unlock()
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
