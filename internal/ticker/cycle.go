// Package ticker refreshes a fixed watchlist on a self-pacing loop.
//
// A pass fetches the watchlist one symbol at a time, strictly in order, with
// a fixed delay between requests so the upstream per-minute quota is never
// exceeded; a pass then cools down for the cache TTL before repeating. In
// batch mode the whole watchlist goes out in one request and only the
// cooldown applies.
package ticker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"stockticker/internal/provider"
)

const (
	// DefaultDelay keeps five symbols at or under five requests per minute.
	DefaultDelay    = 12 * time.Second
	DefaultCooldown = 10 * time.Minute
)

// DefaultWatchlist is the symbol set shown when none is configured.
var DefaultWatchlist = []string{"AAPL", "MSFT", "AMZN", "GOOGL", "META"}

// QuoteSource is the part of provider.Provider the cycle needs.
type QuoteSource interface {
	Fetch(ctx context.Context, symbols []string) ([]provider.Quote, error)
}

// Sleeper pauses for d or until ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real-timer Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Cycle struct {
	Watchlist []string
	Source    QuoteSource
	Board     *Board
	Delay     time.Duration
	Cooldown  time.Duration
	// Batch fetches the whole watchlist in one call. It only applies when
	// Source implements provider.Batcher; otherwise symbols go one at a time.
	Batch bool

	Sleep     Sleeper
	Now       func() time.Time
	Log       zerolog.Logger
	OnPublish func(Snapshot)
}

func (c *Cycle) defaults() {
	if c.Board == nil {
		c.Board = NewBoard()
	}
	if c.Sleep == nil {
		c.Sleep = Sleep
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	if len(c.Watchlist) == 0 {
		c.Watchlist = DefaultWatchlist
	}
	c.Watchlist = provider.NormalizeSymbols(c.Watchlist)
}

func (c *Cycle) publish(s Snapshot) {
	if c.OnPublish != nil {
		c.OnPublish(s)
	}
}

// RunOnce performs one fetch pass and returns the final snapshot.
func (c *Cycle) RunOnce(ctx context.Context) (Snapshot, error) {
	c.defaults()
	snap := c.Board.begin(c.Now())
	batch := c.Batch && provider.Batches(c.Source)
	if c.Batch && !batch {
		c.Log.Warn().Msg("quote source fetches one symbol per request; batch mode ignored")
	}
	c.Log.Info().Int("pass", snap.Pass).Strs("symbols", c.Watchlist).Bool("batch", batch).Msg("ticker pass start")

	if batch {
		quotes, err := c.Source.Fetch(ctx, c.Watchlist)
		if err != nil && ctx.Err() != nil {
			return c.Board.Snapshot(), err
		}
		snap = c.Board.append(c.Now(), fragmentsFor(c.Watchlist, quotes)...)
		c.publish(snap)
		return snap, nil
	}

	for i, sym := range c.Watchlist {
		quotes, err := c.Source.Fetch(ctx, []string{sym})
		if err != nil && ctx.Err() != nil {
			return c.Board.Snapshot(), err
		}
		snap = c.Board.append(c.Now(), fragmentsFor([]string{sym}, quotes)...)
		c.publish(snap)

		if i < len(c.Watchlist)-1 {
			if err := c.Sleep(ctx, c.Delay); err != nil {
				return snap, err
			}
		}
	}
	c.Log.Info().Int("pass", snap.Pass).Msg("ticker pass done")
	return snap, nil
}

// Run repeats passes separated by the cooldown until ctx ends.
func (c *Cycle) Run(ctx context.Context) error {
	for {
		if _, err := c.RunOnce(ctx); err != nil {
			return err
		}
		if err := c.Sleep(ctx, c.Cooldown); err != nil {
			return err
		}
	}
}

// fragmentsFor pairs every requested symbol with its quote; a symbol the
// source did not answer for is shown as an error.
func fragmentsFor(symbols []string, quotes []provider.Quote) []Fragment {
	by := make(map[string]provider.Quote, len(quotes))
	for _, q := range quotes {
		by[q.Symbol] = q
	}
	out := make([]Fragment, 0, len(symbols))
	for _, s := range symbols {
		q, ok := by[s]
		if !ok {
			q = provider.Quote{Symbol: s, Status: provider.StatusNetworkError}
		}
		out = append(out, FragmentFor(q))
	}
	return out
}

// Handle controls a cycle started with Start.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Start runs c in its own goroutine until ctx ends or Stop is called.
func (c *Cycle) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		err := c.Run(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = nil
		}
		h.err = err
		c.Log.Info().Msg("ticker stopped")
	}()
	return h
}

// Stop cancels the cycle and waits for it to exit.
func (h *Handle) Stop() error {
	h.cancel()
	<-h.done
	return h.err
}

// Done is closed once the cycle has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }
