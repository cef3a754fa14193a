package provider

import (
	"context"
	"strings"
	"time"
)

// Status classifies the outcome of a quote lookup. Only StatusOK carries
// price data.
type Status string

const (
	StatusOK            Status = "ok"
	StatusRateLimited   Status = "rate-limited"
	StatusInvalidSymbol Status = "invalid-symbol"
	StatusNetworkError  Status = "network-error"
)

// Placeholder is shown for change fields the upstream did not supply.
const Placeholder = "—"

// Quote is the normalized shape returned by all providers.
// Keep price as a string fixed to two decimals so display never re-rounds.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Status        Status    `json:"status"`
	Price         string    `json:"price,omitempty"`
	Change        string    `json:"change,omitempty"`
	ChangePercent string    `json:"change_percent,omitempty"`
	Source        string    `json:"source,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
}

func (q Quote) OK() bool { return q.Status == StatusOK }

// Failed builds a non-ok quote for symbol.
func Failed(symbol string, status Status, at time.Time) Quote {
	return Quote{Symbol: symbol, Status: status, FetchedAt: at}
}

// HistoryReason explains an empty or partial history response.
type HistoryReason string

const (
	HistoryOK           HistoryReason = ""
	HistoryRateLimited  HistoryReason = "rate-limited"
	HistoryNoData       HistoryReason = "no-data"
	HistoryNetworkError HistoryReason = "network-error"
)

// HistoryPoint is one daily close, labelled by trading date.
type HistoryPoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// History is an oldest-first series of at most 30 daily closes.
type History struct {
	Symbol string         `json:"symbol"`
	Points []HistoryPoint `json:"points"`
	Reason HistoryReason  `json:"reason,omitempty"`
}

func (h History) OK() bool { return h.Reason == HistoryOK && len(h.Points) > 0 }

type Provider interface {
	Name() string
	// Fetch returns one quote per unique normalized symbol, in request order.
	// Upstream failures are reported through Quote.Status; the error is only
	// non-nil when ctx ended before every symbol was attempted.
	Fetch(ctx context.Context, symbols []string) ([]Quote, error)
	History(ctx context.Context, symbol string) (History, error)
}

// Batcher is implemented by providers that can resolve several symbols with a
// single upstream request. Providers without it send one request per symbol.
type Batcher interface {
	BatchesSymbols() bool
}

// Batches reports whether p resolves many symbols in one upstream request.
func Batches(p any) bool {
	b, ok := p.(Batcher)
	return ok && b.BatchesSymbols()
}

// NormalizeSymbol trims and upper-cases s. It is idempotent.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeSymbols normalizes symbols, dropping empties and duplicates while
// preserving first-seen order.
func NormalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		s = NormalizeSymbol(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
